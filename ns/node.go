package ns

import (
	"goacpi/kernel"
	"goacpi/table"
)

// The size of AML name identifiers in bytes.
const amlNameLen = 4

// Kind enumerates the object types a namespace node can assume.
type Kind uint8

// The list of supported Kind values.
const (
	KindRoot Kind = iota
	KindDevice
	KindMethod
	KindMutex
	KindProcessor
	KindThermalZone
	KindOpRegion
	KindField
	KindIndexField
	KindBufferField
	KindName
	KindAlias
	KindEvent
	KindPowerResource
)

// String returns a human-readable representation of k.
func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "Root"
	case KindDevice:
		return "Device"
	case KindMethod:
		return "Method"
	case KindMutex:
		return "Mutex"
	case KindProcessor:
		return "Processor"
	case KindThermalZone:
		return "ThermalZone"
	case KindOpRegion:
		return "OperationRegion"
	case KindField:
		return "Field"
	case KindIndexField:
		return "IndexField"
	case KindBufferField:
		return "BufferField"
	case KindName:
		return "Name"
	case KindAlias:
		return "Alias"
	case KindEvent:
		return "Event"
	case KindPowerResource:
		return "PowerResource"
	}

	return "Unknown"
}

// RegionSpace describes the address space where an operation region is
// located.
type RegionSpace uint8

// The list of supported RegionSpace values.
const (
	RegionSpaceSystemMemory RegionSpace = iota
	RegionSpaceSystemIO
	RegionSpacePCIConfig
	RegionSpaceEmbeddedControl
	RegionSpaceSMBus
	RegionSpaceCMOS
	RegionSpacePCIBarTarget
	RegionSpaceIPMI
)

// FieldAccessType is the granularity at which a field's backing region is
// read and written.
type FieldAccessType uint8

// Access granularities encoded in a field's flags byte.
const (
	FieldAccessTypeAny FieldAccessType = iota
	FieldAccessTypeByte
	FieldAccessTypeWord
	FieldAccessTypeDword
	FieldAccessTypeQword
	FieldAccessTypeBuffer
)

// FieldUpdateRule dictates what happens to the region bits that surround a
// field when a write narrower than the access width lands on it.
type FieldUpdateRule uint8

// Update rules encoded in a field's flags byte.
const (
	FieldUpdateRulePreserve FieldUpdateRule = iota
	FieldUpdateRuleWriteAsOnes
	FieldUpdateRuleWriteAsZeros
)

// MethodOverrideFunc is a host-supplied implementation for a method node. When
// a node carries an override the interpreter invokes it instead of executing
// the node's AML body.
type MethodOverrideFunc func(args []interface{}) (interface{}, *kernel.Error)

// OpRegionOverride supplies host callbacks that replace the built-in access
// path for a single operation region. The userptr registered together with
// the override is passed verbatim to each callback.
type OpRegionOverride struct {
	Read  func(userptr interface{}, offset uint64, width uint8) (uint64, *kernel.Error)
	Write func(userptr interface{}, offset uint64, width uint8, value uint64) *kernel.Error
}

// Segment wraps one loaded AML table (DSDT, SSDT or PSDT) together with a
// stable index. Method nodes reference the segment that defines their body, so
// segments are retained for the lifetime of the namespace.
type Segment struct {
	Table *table.SDTHeader
	Index int
}

// AML returns the AML bytecode encoded in the segment's table.
func (seg *Segment) AML() []byte {
	return table.Payload(seg.Table)
}

// Node is a single object in the ACPI namespace. The fields that are
// meaningful for a node depend on its Kind; unrelated fields retain their
// zero values.
type Node struct {
	name     [amlNameLen]byte
	kind     Kind
	parent   *Node
	children childTable

	// KindMethod: flags encode the argument count (bits 0-2), the
	// serialized flag (bit 3) and the sync level (bits 4-7). A non-nil
	// MethodOverride replaces the AML body, which otherwise lives at
	// [BodyOffset, BodyOffset+BodyLen) inside the owning segment's AML.
	MethodFlags    uint8
	MethodOverride MethodOverrideFunc
	Segment        *Segment
	BodyOffset     uint32
	BodyLen        uint32

	// KindOpRegion
	RegionSpace    RegionSpace
	RegionBase     uint64
	RegionLen      uint64
	regionOverride *OpRegionOverride
	regionUserptr  interface{}

	// KindField, KindIndexField and KindBufferField. FieldFlags retains
	// the AML encoding: access type in bits 0-3, the lock flag in bit 4
	// and the update rule in bits 5-6.
	FieldFlags  uint8
	BitOffset   uint64
	BitSize     uint64
	FieldRegion *Node
	IndexNode   *Node
	DataNode    *Node
	BufferObj   interface{}

	// KindAlias. The target is never another alias; chains are collapsed
	// when the alias is created.
	Target *Node

	// KindName
	Value interface{}

	// KindProcessor
	ProcessorID uint8
	PblkAddr    uint32
	PblkLen     uint8

	// KindMutex and KindMethod sync level trivia.
	SyncLevel uint8

	// KindPowerResource
	SystemLevel   uint8
	ResourceOrder uint16
}

// NewNode returns a new zero-initialized node of the given kind. The node is
// not attached to any namespace; callers bind it via DoResolveNewNode (or by
// assigning a name and parent directly) and make it visible with Install.
func NewNode(kind Kind) *Node {
	return &Node{kind: kind}
}

// Name returns the node's fixed 4-character ACPI identifier.
func (n *Node) Name() string {
	return string(n.name[:])
}

// Kind returns the node's object type.
func (n *Node) Kind() Kind {
	return n.kind
}

// Parent returns the node that contains n or nil if n is the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// ChildCount returns the number of children installed under n.
func (n *Node) ChildCount() int {
	return n.children.count
}

// FieldAccessType extracts the access type portion of the node's field flags.
func (n *Node) FieldAccessType() FieldAccessType {
	return FieldAccessType(n.FieldFlags & 0xf)
}

// FieldLock reports whether field accesses must acquire the global lock.
func (n *Node) FieldLock() bool {
	return n.FieldFlags&(1<<4) != 0
}

// FieldUpdateRule extracts the update rule portion of the node's field flags.
func (n *Node) FieldUpdateRule() FieldUpdateRule {
	return FieldUpdateRule((n.FieldFlags >> 5) & 0x3)
}

// MethodArgCount extracts the argument count encoded in the node's method
// flags.
func (n *Node) MethodArgCount() uint8 {
	return n.MethodFlags & 0x7
}

// MethodSerialized reports whether invocations of this method must be
// serialized.
func (n *Node) MethodSerialized() bool {
	return n.MethodFlags&(1<<3) != 0
}

// setName assigns the node's 4-byte identifier, right-padding shorter names
// with '_' as mandated by the ACPI spec.
func (n *Node) setName(name string) {
	n.name = padName(name)
}
