package ns

import "goacpi/kernel"

// AML name grammar prefix bytes.
//
// Grammar:
//
//	NameString := RootChar NamePath | PrefixPath NamePath
//	PrefixPath := Nothing | '^' PrefixPath
//	NamePath   := NameSeg | DualNamePath | MultiNamePath | NullName
const (
	rootChar        = '\\'
	parentPrefix    = '^'
	dualNamePrefix  = 0x2e
	multiNamePrefix = 0x2f
)

var errInvalidName = &kernel.Error{Module: "acpi_ns", Message: "could not parse AML name string"}

// isLeadNameChar returns true if b is valid as the first byte of a name
// segment ('A'-'Z' or '_').
func isLeadNameChar(b byte) bool {
	return (b >= 'A' && b <= 'Z') || b == '_'
}

// isNameChar returns true if b is valid as a non-leading name segment byte.
func isNameChar(b byte) bool {
	return isLeadNameChar(b) || (b >= '0' && b <= '9')
}

// AMLName is the decoded form of an AML-encoded name string. It records
// whether the name is absolute, how many parent levels it pops and the raw
// bytes of its 4-byte segments.
//
// AMLName is a value type: operations that consume segments (DoResolve,
// DoResolveNewNode, String) receive their own copy so the original remains
// usable.
type AMLName struct {
	absolute bool
	height   int

	// The raw bytes of the segments that have not been consumed yet. The
	// length is always a multiple of amlNameLen.
	segs []byte
}

// ParseAMLName decodes an AML name string from the start of data. It returns
// the parsed name and the number of bytes consumed.
func ParseAMLName(data []byte) (AMLName, int, *kernel.Error) {
	var amln AMLName

	it := 0
	if it < len(data) && data[it] == rootChar {
		// First character is \ for absolute paths.
		amln.absolute = true
		it++
	} else {
		// Non-absolute paths can be prefixed by a number of ^.
		for it < len(data) && data[it] == parentPrefix {
			amln.height++
			it++
		}
	}

	if it >= len(data) {
		return AMLName{}, 0, errInvalidName
	}

	// The name's prefix byte determines the number of segments.
	var numSegs int
	switch next := data[it]; {
	case next == 0x00: // NullName: names the current scope
		it++
	case next == dualNamePrefix:
		it++
		numSegs = 2
	case next == multiNamePrefix:
		if it+1 >= len(data) {
			return AMLName{}, 0, errInvalidName
		}
		numSegs = int(data[it+1])
		if numSegs <= 2 {
			return AMLName{}, 0, errInvalidName
		}
		it += 2
	case isLeadNameChar(next):
		numSegs = 1
	default:
		return AMLName{}, 0, errInvalidName
	}

	end := it + amlNameLen*numSegs
	if end > len(data) {
		return AMLName{}, 0, errInvalidName
	}

	amln.segs = data[it:end]
	return amln, end, nil
}

// Absolute returns true if the name carries a leading '\' prefix.
func (amln AMLName) Absolute() bool {
	return amln.absolute
}

// Height returns the number of leading '^' prefixes.
func (amln AMLName) Height() int {
	return amln.height
}

// SegCount returns the number of segments that have not been consumed yet.
func (amln AMLName) SegCount() int {
	return len(amln.segs) / amlNameLen
}

// SearchScopes returns true if the ACPI scope-search rules apply to this
// name, i.e. it is a single relative segment with no parent prefixes.
func (amln AMLName) SearchScopes() bool {
	return !amln.absolute && amln.height == 0 && len(amln.segs) == amlNameLen
}

// done returns true once every segment has been consumed.
func (amln *AMLName) done() bool {
	return len(amln.segs) == 0
}

// next consumes the next 4-byte segment.
func (amln *AMLName) next() [amlNameLen]byte {
	var seg [amlNameLen]byte
	copy(seg[:], amln.segs)
	amln.segs = amln.segs[amlNameLen:]
	return seg
}

// String renders the name in its human-readable form, e.g. "\^^FOO_.BAR0".
func (amln AMLName) String() string {
	buf := make([]byte, 0, 1+amln.height+amln.SegCount()*(amlNameLen+1))
	if amln.absolute {
		buf = append(buf, rootChar)
	}
	for i := 0; i < amln.height; i++ {
		buf = append(buf, parentPrefix)
	}

	// The receiver is a copy so consuming the segments here does not
	// affect the caller's value.
	for !amln.done() {
		seg := amln.next()
		buf = append(buf, seg[:]...)
		if !amln.done() {
			buf = append(buf, '.')
		}
	}

	return string(buf)
}

// Path renders the absolute path of n in the form "\SEG1.SEG2.SEG3" by
// walking the parent links up to the root. The root itself renders as "\".
func (n *Node) Path() string {
	// Handle the trivial case.
	if n.parent == nil {
		return "\\"
	}

	// Find the number of segments, excluding the root.
	numSegs := 0
	for cur := n; cur.parent != nil; cur = cur.parent {
		numSegs++
	}

	// Build the path from right to left; a leading dot (or \) plus four
	// chars per segment.
	buf := make([]byte, numSegs*(amlNameLen+1))
	pos := len(buf)
	for cur := n; cur.parent != nil; cur = cur.parent {
		pos -= amlNameLen
		copy(buf[pos:], cur.name[:])
		pos--
		buf[pos] = '.'
	}
	buf[0] = rootChar // overwrites the first dot

	return string(buf)
}
