package aml

import (
	"goacpi/kernel"
	"goacpi/ns"
)

// parsePkgLength decodes a PkgLength value. The high 2 bits of the lead byte
// indicate how many extra bytes follow.
func (p *pass) parsePkgLength() (uint32, *kernel.Error) {
	lead, err := p.r.ReadByte()
	if err != nil {
		return 0, err
	}

	var pkgLen uint32
	switch lead >> 6 {
	case 0:
		pkgLen = uint32(lead)
	default:
		// lead bits 0-3 are the least significant nybble of the length.
		pkgLen = uint32(lead & 0xf)
		for c := byte(0); c < lead>>6; c++ {
			next, err := p.r.ReadByte()
			if err != nil {
				return 0, err
			}

			pkgLen |= uint32(next) << (4 + 8*c)
		}
	}

	return pkgLen, nil
}

// parsePkgBounds decodes a PkgLength value and converts it to the absolute
// stream offset where the package ends. PkgLength counts from the first byte
// of its own encoding.
func (p *pass) parsePkgBounds() (uint32, *kernel.Error) {
	pkgStart := p.r.Offset()
	pkgLen, err := p.parsePkgLength()
	if err != nil {
		return 0, err
	}

	end := pkgStart + pkgLen
	if end > p.r.PkgEnd() {
		return 0, p.errorf("PkgLength 0x%x crosses the enclosing block boundary", pkgLen)
	}

	return end, nil
}

// parseNameString decodes an AML name string at the current offset.
func (p *pass) parseNameString() (ns.AMLName, *kernel.Error) {
	amln, size, err := ns.ParseAMLName(p.r.Rest())
	if err != nil {
		return ns.AMLName{}, p.errorf("%s", err.Error())
	}

	p.r.SetOffset(p.r.Offset() + uint32(size))
	return amln, nil
}

// parseNumConstant decodes a numBytes-wide little-endian constant.
func (p *pass) parseNumConstant(numBytes uint8) (uint64, *kernel.Error) {
	var res uint64
	for c := uint8(0); c < numBytes; c++ {
		next, err := p.r.ReadByte()
		if err != nil {
			return 0, err
		}

		res |= uint64(next) << (8 * c)
	}

	return res, nil
}

// parseString decodes a NUL-terminated ASCII string.
func (p *pass) parseString() (string, *kernel.Error) {
	start := p.r.Offset()
	for {
		next, err := p.r.ReadByte()
		if err != nil {
			return "", err
		}

		if next == 0x00 {
			break
		}
	}

	return string(p.r.data[start : p.r.Offset()-1]), nil
}

// isNameStart returns true if b can start an AML name string.
func isNameStart(b byte) bool {
	return b == '\\' || b == '^' || b == dualNamePrefix || b == multiNamePrefix ||
		(b >= 'A' && b <= 'Z') || b == '_'
}

// parseTermArgValue decodes the subset of TermArg productions that evaluate
// to data at load time: integer constants, strings, buffers, packages and
// symbolic name references. Anything that requires executing AML fails.
func (p *pass) parseTermArgValue() (interface{}, *kernel.Error) {
	op, err := p.r.ReadByte()
	if err != nil {
		return nil, err
	}

	switch op {
	case opZero:
		return uint64(0), nil
	case opOne:
		return uint64(1), nil
	case opOnes:
		return ^uint64(0), nil
	case opBytePrefix:
		return p.parseNumConstant(1)
	case opWordPrefix:
		return p.parseNumConstant(2)
	case opDWordPrefix:
		return p.parseNumConstant(4)
	case opQWordPrefix:
		return p.parseNumConstant(8)
	case opStringPrefix:
		return p.parseString()
	case opBuffer:
		return p.parseBuffer()
	case opPackage, opVarPackage:
		return p.parsePackage(op)
	}

	if isNameStart(op) {
		if err := p.r.UnreadByte(); err != nil {
			return nil, err
		}

		amln, err := p.parseNameString()
		if err != nil {
			return nil, err
		}
		return NameRef{Path: amln.String()}, nil
	}

	return nil, p.errorf("unsupported opcode 0x%x in data context", op)
}

// parseIntegerArg decodes a TermArg that must evaluate to an integer.
func (p *pass) parseIntegerArg() (uint64, *kernel.Error) {
	value, err := p.parseTermArgValue()
	if err != nil {
		return 0, err
	}

	num, ok := value.(uint64)
	if !ok {
		return 0, p.errorf("expected an integer TermArg; got %T", value)
	}
	return num, nil
}

// parseBuffer decodes a Buffer() declaration into a byte slice of the
// declared size.
func (p *pass) parseBuffer() ([]byte, *kernel.Error) {
	end, err := p.parsePkgBounds()
	if err != nil {
		return nil, err
	}

	size, err := p.parseIntegerArg()
	if err != nil {
		return nil, err
	}

	raw := p.r.data[p.r.Offset():end]
	buf := make([]byte, size)
	copy(buf, raw)

	p.r.SetOffset(end)
	return buf, nil
}

// parsePackage decodes a Package()/VarPackage() declaration into a slice of
// element values. Elements beyond the encoded initializers stay nil, matching
// the uninitialized package slots described by the ACPI spec.
func (p *pass) parsePackage(op byte) ([]interface{}, *kernel.Error) {
	end, err := p.parsePkgBounds()
	if err != nil {
		return nil, err
	}

	var count uint64
	if op == opPackage {
		if count, err = p.parseNumConstant(1); err != nil {
			return nil, err
		}
	} else {
		if count, err = p.parseIntegerArg(); err != nil {
			return nil, err
		}
	}

	var elems []interface{}
	for p.r.Offset() < end {
		value, err := p.parseTermArgValue()
		if err != nil {
			return nil, err
		}
		elems = append(elems, value)
	}

	for uint64(len(elems)) < count {
		elems = append(elems, nil)
	}

	p.r.SetOffset(end)
	return elems, nil
}
