package table

import (
	"os"
	"unsafe"

	"goacpi/kernel"
)

var (
	errTableTooShort         = &kernel.Error{Module: "acpi_table", Message: "table is smaller than the standard ACPI header"}
	errTableLengthMismatch   = &kernel.Error{Module: "acpi_table", Message: "table length field does not match the table contents"}
	errTableChecksumMismatch = &kernel.Error{Module: "acpi_table", Message: "detected checksum mismatch while parsing ACPI table header"}
)

// FileResolver implements Resolver on top of a set of raw ACPI table images
// loaded into memory, typically from table dumps produced by acpidump or
// copied out of /sys/firmware/acpi/tables. It backs host-side tooling and
// tests; kernel hosts provide their own Resolver that maps tables in place.
//
// The zero value is ready to use. Table images are retained for the lifetime
// of the resolver so that headers handed out by LookupTable remain valid.
type FileResolver struct {
	tables [][]byte
}

// LoadFile reads a raw table image from path and registers it with the
// resolver after validating its header and checksum.
func (r *FileResolver) LoadFile(path string) *kernel.Error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return &kernel.Error{Module: "acpi_table", Message: err.Error()}
	}

	return r.Add(buf)
}

// Add registers a raw table image with the resolver. The resolver takes
// ownership of buf.
func (r *FileResolver) Add(buf []byte) *kernel.Error {
	if len(buf) < int(unsafe.Sizeof(SDTHeader{})) {
		return errTableTooShort
	}

	header := (*SDTHeader)(unsafe.Pointer(&buf[0]))
	if int(header.Length) != len(buf) {
		return errTableLengthMismatch
	}

	if !Valid(header) {
		return errTableChecksumMismatch
	}

	r.tables = append(r.tables, buf)
	return nil
}

// LookupTable returns the index-th registered table with the given signature
// or nil if no such table exists.
func (r *FileResolver) LookupTable(signature string, index int) *SDTHeader {
	for _, buf := range r.tables {
		header := (*SDTHeader)(unsafe.Pointer(&buf[0]))
		if string(header.Signature[:]) != signature {
			continue
		}

		if index == 0 {
			return header
		}
		index--
	}

	return nil
}

// Build assembles a raw table image with the given signature and payload,
// filling in the standard header with a valid length and checksum. It is
// intended for tests and tooling that need to synthesize tables.
func Build(signature string, revision uint8, payload []byte) []byte {
	sizeofHeader := int(unsafe.Sizeof(SDTHeader{}))
	buf := make([]byte, sizeofHeader+len(payload))
	copy(buf, signature)
	copy(buf[sizeofHeader:], payload)

	header := (*SDTHeader)(unsafe.Pointer(&buf[0]))
	header.Length = uint32(len(buf))
	header.Revision = revision
	copy(header.OEMID[:], "GOACPI")
	copy(header.OEMTableID[:], "GOACPINS")

	var sum uint8
	for _, b := range buf {
		sum += b
	}
	header.Checksum = -sum

	return buf
}
