package ns

import (
	"fmt"

	"goacpi/kernel"
)

// ErrTypeMismatch is returned when an operation is attempted against a node
// of the wrong kind.
var ErrTypeMismatch = &kernel.Error{Module: "acpi_ns", Message: "namespace node has the wrong type for this operation"}

// CheckDevicePNPID evaluates dev's _HID (falling back to _CID when _HID is
// absent or fails to evaluate) and compares the result against id, which must
// be a uint64 EISA id or a string. It returns 0 on a match and non-zero
// otherwise; values of different types never match. Evaluation failures are
// logged and treated as an absent identifier.
func (nsp *Namespace) CheckDevicePNPID(dev *Node, id interface{}, state State) int {
	var idVal interface{}

	if hid := nsp.ResolvePath(dev, "_HID"); hid != nil {
		val, err := nsp.interp.Eval(nsp, state, hid)
		if err != nil {
			fmt.Fprintf(nsp.errWriter, "acpi_ns: could not evaluate _HID of device: %s\n", err.Error())
		} else {
			idVal = val
		}
	}

	if idVal == nil {
		cid := nsp.ResolvePath(dev, "_CID")
		if cid == nil {
			return 1
		}

		val, err := nsp.interp.Eval(nsp, state, cid)
		if err != nil {
			fmt.Fprintf(nsp.errWriter, "acpi_ns: could not evaluate _CID of device: %s\n", err.Error())
			return 1
		}
		idVal = val
	}

	switch want := id.(type) {
	case uint64:
		if got, ok := idVal.(uint64); ok && got == want {
			return 0
		}
	case string:
		if got, ok := idVal.(string); ok && got == want {
			return 0
		}
	}

	return 1
}

// OverrideOpRegion binds a host-supplied access override and user pointer to
// an operation region node. It fails with ErrTypeMismatch if node is not an
// operation region.
func (nsp *Namespace) OverrideOpRegion(node *Node, override *OpRegionOverride, userptr interface{}) *kernel.Error {
	if node.kind != KindOpRegion {
		fmt.Fprintf(nsp.errWriter, "acpi_ns: tried to override opregion functions for non-opregion %s\n", node.Path())
		return ErrTypeMismatch
	}

	node.regionOverride = override
	node.regionUserptr = userptr
	return nil
}

// RegionOverride returns the override and user pointer previously bound to
// the node via OverrideOpRegion, or nil if none is installed.
func (n *Node) RegionOverride() (*OpRegionOverride, interface{}) {
	return n.regionOverride, n.regionUserptr
}
