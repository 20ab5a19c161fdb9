package aml

import "goacpi/kernel"

var (
	errInvalidUnreadByte = &kernel.Error{Module: "acpi_aml_loader", Message: "bad call to UnreadByte; stream offset is 0"}
	errInvalidPkgEnd     = &kernel.Error{Module: "acpi_aml_loader", Message: "attempted to set pkgEnd past the end of the stream"}
	errReadPastPkgEnd    = &kernel.Error{Module: "acpi_aml_loader", Message: "attempted to read past pkgEnd"}
)

// streamReader provides cursor-based access to a block of AML bytecode. The
// pkgEnd marker bounds reads while the loader is inside a deferred package so
// that a corrupt PkgLength cannot pull the cursor outside the enclosing
// block.
type streamReader struct {
	data   []byte
	offset uint32
	pkgEnd uint32
}

// Init sets up the reader to consume data. If a non-zero initialOffset is
// specified, it will be used as the current offset in the stream.
func (r *streamReader) Init(data []byte, initialOffset uint32) {
	r.data = data
	_ = r.SetPkgEnd(uint32(len(data)))
	r.SetOffset(initialOffset)
}

// EOF returns true if the end of the pkg has been reached.
func (r *streamReader) EOF() bool {
	return r.offset >= r.pkgEnd
}

// SetPkgEnd adjusts the read boundary for the package being parsed.
func (r *streamReader) SetPkgEnd(pkgEnd uint32) *kernel.Error {
	if pkgEnd > uint32(len(r.data)) {
		return errInvalidPkgEnd
	}

	r.pkgEnd = pkgEnd
	return nil
}

// PkgEnd returns the current read boundary.
func (r *streamReader) PkgEnd() uint32 {
	return r.pkgEnd
}

// ReadByte returns the next byte from the stream.
func (r *streamReader) ReadByte() (byte, *kernel.Error) {
	if r.EOF() {
		return 0, errReadPastPkgEnd
	}

	r.offset++
	return r.data[r.offset-1], nil
}

// PeekByte returns the next byte from the stream without advancing the read
// pointer.
func (r *streamReader) PeekByte() (byte, *kernel.Error) {
	if r.EOF() {
		return 0, errReadPastPkgEnd
	}

	return r.data[r.offset], nil
}

// UnreadByte moves back the read pointer by one byte.
func (r *streamReader) UnreadByte() *kernel.Error {
	if r.offset == 0 {
		return errInvalidUnreadByte
	}

	r.offset--
	return nil
}

// Rest returns the stream contents between the current offset and pkgEnd.
func (r *streamReader) Rest() []byte {
	if r.EOF() {
		return nil
	}
	return r.data[r.offset:r.pkgEnd]
}

// Offset returns the current offset.
func (r *streamReader) Offset() uint32 {
	return r.offset
}

// SetOffset sets the reader offset to the supplied value.
func (r *streamReader) SetOffset(off uint32) {
	if max := uint32(len(r.data)); off > max {
		off = max
	}
	r.offset = off
}
