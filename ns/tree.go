package ns

import (
	"fmt"
	"io"

	"goacpi/table"
)

const (
	// The initial slot count of the global node list.
	namespaceWindow = 8192

	// The initial bucket count of a parent's child index; must be a power
	// of two.
	childIndexWindow = 8

	// A child index is rehashed into twice as many buckets once the mean
	// chain length exceeds this value.
	childIndexMaxLoad = 4
)

// hashName computes the djb2 hash of a 4-byte name.
func hashName(name [amlNameLen]byte) uint32 {
	h := uint32(5381)
	for _, b := range name {
		h = (h << 5) + h + uint32(b)
	}
	return h
}

// childTable is an open-chained hash table keyed by the 4-byte child name.
// Chain traversal order is unspecified but stable for a given table state.
type childTable struct {
	count   int
	buckets [][]*Node
}

func (t *childTable) insert(n *Node) {
	if t.buckets == nil {
		t.buckets = make([][]*Node, childIndexWindow)
	} else if t.count >= childIndexMaxLoad*len(t.buckets) {
		t.grow()
	}

	slot := hashName(n.name) & uint32(len(t.buckets)-1)
	t.buckets[slot] = append(t.buckets[slot], n)
	t.count++
}

func (t *childTable) grow() {
	oldBuckets := t.buckets
	t.buckets = make([][]*Node, 2*len(oldBuckets))
	for _, chain := range oldBuckets {
		for _, n := range chain {
			slot := hashName(n.name) & uint32(len(t.buckets)-1)
			t.buckets[slot] = append(t.buckets[slot], n)
		}
	}
}

// remove detaches n from its chain, returning false if n is not present.
func (t *childTable) remove(n *Node) bool {
	if t.buckets == nil {
		return false
	}

	slot := hashName(n.name) & uint32(len(t.buckets)-1)
	chain := t.buckets[slot]
	for i, child := range chain {
		if child == n {
			t.buckets[slot] = append(chain[:i], chain[i+1:]...)
			t.count--
			return true
		}
	}

	return false
}

// contains reports whether n is still linked into its chain.
func (t *childTable) contains(n *Node) bool {
	if t.buckets == nil {
		return false
	}

	slot := hashName(n.name) & uint32(len(t.buckets)-1)
	for _, child := range t.buckets[slot] {
		if child == n {
			return true
		}
	}

	return false
}

// get returns the first chain entry whose raw 4-byte name matches or nil.
func (t *childTable) get(name [amlNameLen]byte) *Node {
	if t.buckets == nil {
		return nil
	}

	slot := hashName(name) & uint32(len(t.buckets)-1)
	for _, child := range t.buckets[slot] {
		if child.name == name {
			return child
		}
	}

	return nil
}

// Namespace holds the hierarchical ACPI namespace built from the ACPI tables
// together with the collaborators supplied by the host. It is designed for a
// single-threaded, cooperatively-called model: hosts that serve ACPI calls
// from multiple threads must serialize entry at their own layer.
type Namespace struct {
	root *Node

	// The global node list in installation order. Uninstalling a node
	// tombstones its slots with nil; slots are never reclaimed.
	nodes []*Node

	fadt      *table.FADT
	tables    table.Resolver
	interp    Interpreter
	segments  []*Segment
	errWriter io.Writer

	osiStrings map[string]bool
	osName     string
	revision   uint64

	// DebugNamespace logs each installed node's full path; DebugResolution
	// traces scope-search resolutions. Both write to the configured
	// errWriter.
	DebugNamespace  bool
	DebugResolution bool
}

// Root returns the namespace root node.
func (nsp *Namespace) Root() *Node {
	return nsp.root
}

// FADT returns the Fixed ACPI Description Table located during Create.
func (nsp *Namespace) FADT() *table.FADT {
	return nsp.fadt
}

// Size returns the number of slots in the global node list, including
// tombstones left behind by Uninstall. The root is not part of the list.
func (nsp *Namespace) Size() int {
	return len(nsp.nodes)
}

// GetChild returns the child of parent carrying the given name or nil if no
// such child exists. Names shorter than 4 characters are right-padded with
// '_'. Aliases are returned as-is; lookup paths that must flatten aliases do
// so themselves.
func (nsp *Namespace) GetChild(parent *Node, name string) *Node {
	return parent.children.get(padName(name))
}

// Install makes node visible to lookups by appending it to the global node
// list and inserting it into its parent's child index. Installing a second
// child with the same name under one parent indicates broken AML or a double
// loaded table and panics with the offending path.
func (nsp *Namespace) Install(node *Node) {
	if nsp.DebugNamespace {
		fmt.Fprintf(nsp.errWriter, "acpi_ns: created %s\n", node.Path())
	}

	nsp.nodes = append(nsp.nodes, node)

	if parent := node.parent; parent != nil {
		if parent.children.get(node.name) != nil {
			panic("acpi_ns: trying to install duplicate namespace node " + node.Path())
		}

		parent.children.insert(node)
	}
}

// Uninstall removes node from the namespace. Its slots in the global node
// list are tombstoned rather than reclaimed: in-flight iterators and method
// state may still reference the node.
func (nsp *Namespace) Uninstall(node *Node) {
	for i, n := range nsp.nodes {
		if n == node {
			nsp.nodes[i] = nil
		}
	}

	parent := node.parent
	if parent == nil {
		return
	}

	if !parent.children.remove(node) {
		panic("acpi_ns: child node is missing from parent's hash table during Uninstall()")
	}

	// As a sanity-check: make sure that the child does not occur twice.
	if parent.children.contains(node) {
		panic("acpi_ns: child node appears multiple times in parent's hash table during Uninstall()")
	}
}

// padName converts name to its fixed 4-byte form, right-padding with '_'.
func padName(name string) [amlNameLen]byte {
	var out [amlNameLen]byte
	for i := 0; i < amlNameLen; i++ {
		if i < len(name) {
			out[i] = name[i]
		} else {
			out[i] = '_'
		}
	}
	return out
}
