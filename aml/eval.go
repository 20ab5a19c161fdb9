package aml

import (
	"goacpi/kernel"
	"goacpi/ns"
)

var errEvalUnsupported = &kernel.Error{Module: "acpi_aml_loader", Message: "node cannot be evaluated without executing AML"}

// Eval evaluates node to a value. Data objects yield their stored value and
// methods with a native override invoke it; for AML-backed methods only the
// trivial "Return(data)" shape is understood, which covers the common
// Method(_HID) { Return(EisaId(...)) } pattern. Everything else requires a
// full interpreter and fails with an error.
func (l *Loader) Eval(nsp *ns.Namespace, state ns.State, node *ns.Node) (interface{}, *kernel.Error) {
	switch node.Kind() {
	case ns.KindName:
		return node.Value, nil
	case ns.KindMethod:
		if node.MethodOverride != nil {
			return node.MethodOverride(nil)
		}

		if node.Segment == nil || node.BodyLen == 0 {
			return nil, errEvalUnsupported
		}

		body := node.Segment.AML()[node.BodyOffset : node.BodyOffset+node.BodyLen]

		p := &pass{
			l:         l,
			nsp:       nsp,
			seg:       node.Segment,
			st:        &loadState{},
			r:         new(streamReader),
			tableName: string(node.Segment.Table.Signature[:]),
		}
		p.r.Init(body, 0)

		op, err := p.r.ReadByte()
		if err != nil || op != opReturn {
			return nil, errEvalUnsupported
		}

		return p.parseTermArgValue()
	}

	return nil, errEvalUnsupported
}
