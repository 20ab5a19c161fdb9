package ns

import (
	"fmt"

	"goacpi/kernel"
)

// DoResolve looks up the node named by amln using the resolution rules from
// section 5.3 of the ACPI spec: names subject to the scope-search rule (a
// single relative segment) are searched for in ctx and every ancestor scope
// up to the root; all other names are resolved by plain descent after
// applying the '\' and '^' prefixes. A miss returns nil. If the final node is
// an alias its target is returned instead.
//
// ctx must be a non-alias node; callers resolve their context first.
func DoResolve(ctx *Node, amln AMLName) *Node {
	current := ctx
	if current == nil || current.kind == KindAlias {
		panic("acpi_ns: DoResolve() requires a resolved, non-alias context")
	}

	if amln.SearchScopes() {
		segment := amln.next()

		for current != nil {
			node := current.children.get(segment)
			if node == nil {
				current = current.parent
				continue
			}

			if node.kind == KindAlias {
				node = node.Target
			}
			return node
		}

		return nil
	}

	if amln.absolute {
		for current.parent != nil {
			current = current.parent
		}
	}

	for i := 0; i < amln.height; i++ {
		if current.parent == nil {
			// Too many '^' prefixes stop at the root.
			break
		}
		current = current.parent
	}

	// A name with zero segments refers to the scope itself.
	for !amln.done() {
		segment := amln.next()
		current = current.children.get(segment)
		if current == nil {
			return nil
		}
	}

	if current.kind == KindAlias {
		current = current.Target
	}
	return current
}

// Resolve looks up amln like DoResolve but additionally traces the lookup
// when resolution debugging is enabled on the namespace.
func (nsp *Namespace) Resolve(ctx *Node, amln AMLName) *Node {
	if nsp.DebugResolution && amln.SearchScopes() {
		seg := amln.segs[:amlNameLen]
		fmt.Fprintf(nsp.errWriter, "acpi_ns: resolving %s by searching through scopes\n", string(seg))
	}

	node := DoResolve(ctx, amln)
	if nsp.DebugResolution && node != nil {
		fmt.Fprintf(nsp.errWriter, "acpi_ns: resolution returns %s\n", node.Path())
	}
	return node
}

// DoResolveNewNode resolves the path at which a newly created node must be
// installed: every segment but the last must name an existing scope starting
// from ctx (after applying the '\' and '^' prefixes; the scope-search rule
// never applies to new names), and the last segment becomes the new node's
// name. On success node's name and parent are populated; the caller is still
// responsible for calling Install.
//
// Traversing an alias in the middle of the path is followed but logged as
// non-portable, matching the original implementation; ACPICA rejects such
// AML. A missing intermediate scope indicates broken AML and panics.
func (nsp *Namespace) DoResolveNewNode(node, ctx *Node, amln AMLName) {
	parent := ctx
	if parent == nil || parent.kind == KindAlias {
		panic("acpi_ns: DoResolveNewNode() requires a resolved, non-alias context")
	}

	// Note: amln.SearchScopes() is intentionally ignored here. As we are
	// binding a new name, plain descent is already the correct behavior.

	if amln.absolute {
		for parent.parent != nil {
			parent = parent.parent
		}
	}

	for i := 0; i < amln.height; i++ {
		if parent.parent == nil {
			break
		}
		parent = parent.parent
	}

	// Otherwise the new node would have an empty name.
	if amln.done() {
		panic("acpi_ns: DoResolveNewNode() called with an empty name")
	}

	for {
		segment := amln.next()

		if amln.done() {
			// The last segment is the name of the new node.
			node.name = segment
			node.parent = parent
			return
		}

		parent = parent.children.get(segment)
		if parent == nil {
			panic("acpi_ns: DoResolveNewNode() could not resolve scope " + string(segment[:]))
		}
		if parent.kind == KindAlias {
			fmt.Fprintf(nsp.errWriter, "acpi_ns: resolution of new object name traverses Alias(), this is not supported in ACPICA\n")
			parent = parent.Target
		}
	}
}

// ResolveNewNode parses an AML name string from data and binds node at the
// resulting path via DoResolveNewNode. It returns the number of bytes
// consumed from data.
func (nsp *Namespace) ResolveNewNode(node, ctx *Node, data []byte) (int, *kernel.Error) {
	amln, size, err := ParseAMLName(data)
	if err != nil {
		return 0, err
	}

	nsp.DoResolveNewNode(node, ctx, amln)
	return size, nil
}

// ResolvePath looks up a node by its human-readable path, e.g.
// "\_SB_.PCI0.LPCB" or "^^FOO". Segments shorter than 4 characters are
// right-padded with '_' and aliases are flattened at every step. A nil ctx
// defaults to the root. ResolvePath performs plain descent only; callers
// that need the scope-search rule use ResolveSearch instead. A miss or a
// malformed path returns nil.
func (nsp *Namespace) ResolvePath(ctx *Node, path string) *Node {
	current := ctx
	if current == nil {
		current = nsp.root
	}

	if len(path) > 0 && path[0] == rootChar {
		for current.parent != nil {
			current = current.parent
		}
		path = path[1:]
	} else {
		height := 0
		for height < len(path) && path[height] == parentPrefix {
			height++
		}
		path = path[height:]

		for i := 0; i < height; i++ {
			if current.parent == nil {
				break
			}
			current = current.parent
		}
	}

	if len(path) == 0 {
		return current
	}

	for {
		var segment [amlNameLen]byte

		k := 0
		for ; k < amlNameLen && len(path) > 0 && isNameChar(path[0]); k++ {
			segment[k] = path[0]
			path = path[1:]
		}
		// ACPI pads names with trailing underscores.
		for ; k < amlNameLen; k++ {
			segment[k] = '_'
		}

		current = current.children.get(segment)
		if current == nil {
			return nil
		}
		if current.kind == KindAlias {
			current = current.Target
		}

		if len(path) == 0 {
			return current
		}
		if path[0] != '.' {
			// Malformed path.
			return nil
		}
		path = path[1:]
	}
}

// ResolveSearch looks up a single segment using the upward scope-search walk:
// the segment is searched for in ctx and each ancestor up to and including
// the root. Aliases are flattened before returning. A miss returns nil.
func (nsp *Namespace) ResolveSearch(ctx *Node, name string) *Node {
	current := ctx
	if current == nil || current.kind == KindAlias {
		panic("acpi_ns: ResolveSearch() requires a resolved, non-alias context")
	}

	segment := padName(name)
	if nsp.DebugResolution {
		fmt.Fprintf(nsp.errWriter, "acpi_ns: resolving %s by searching through scopes\n", string(segment[:]))
	}

	for current != nil {
		node := current.children.get(segment)
		if node == nil {
			current = current.parent
			continue
		}

		if node.kind == KindAlias {
			node = node.Target
		}
		if nsp.DebugResolution {
			fmt.Fprintf(nsp.errWriter, "acpi_ns: resolution returns %s\n", node.Path())
		}
		return node
	}

	return nil
}
