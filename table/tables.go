package table

import "unsafe"

// SignatureLen is the length of an ACPI table signature.
const SignatureLen = 4

// Resolver is an interface implemented by objects that can lookup an ACPI
// table by its signature.
//
// LookupTable attempts to locate the index-th table carrying the given
// four-character signature, returning back a pointer to its standard header
// or nil if no such table exists. Indexing only matters for tables that may
// occur more than once (e.g. SSDT); for unique tables callers pass index 0.
// The resolver must make sure that the entire table contents remain mapped
// and accessible for the lifetime of the namespace so they can be referenced
// by the caller.
type Resolver interface {
	LookupTable(signature string, index int) *SDTHeader
}

// SDTHeader is the 36-byte header that every system description table
// starts with. The layout is fixed by the ACPI spec.
type SDTHeader struct {
	// Four ASCII characters identifying the table type, e.g. "DSDT".
	Signature [SignatureLen]byte

	// Total table size in bytes, header included.
	Length uint32

	// Table format revision. For the AML-bearing tables (DSDT/SSDT) a
	// revision below 2 additionally selects 32-bit integer arithmetic for
	// the interpreter; 2 and above selects 64-bit.
	Revision uint8

	// Summing every byte of the table, this field included, must yield 0
	// for the table to be considered intact.
	Checksum uint8

	// Vendor identification of the machine and table.
	OEMID       [6]byte
	OEMTableID  [8]byte
	OEMRevision uint32

	// Identification of the tool that produced the table.
	CreatorID       uint32
	CreatorRevision uint32
}

// AddressSpace selects the kind of address a register block lives in.
type AddressSpace uint8

// Address space ids assigned by the ACPI spec.
const (
	AddressSpaceSysMemory AddressSpace = iota
	AddressSpaceSysIO
	AddressSpacePCI
	AddressSpaceEmbController
	AddressSpaceSMBus
	AddressSpaceFuncFixedHW = 0x7f
)

// GenericAddress is the extended (ACPI 2.0+) way of describing the location
// of a register block: an address qualified by its space and access width.
type GenericAddress struct {
	Space      AddressSpace
	BitWidth   uint8
	BitOffset  uint8
	AccessSize uint8
	Address    uint64
}

// PowerProfileType is the machine role hint carried by the FADT; OSPM may
// use it to pick power-management defaults.
type PowerProfileType uint8

// Power profile values defined by the ACPI spec.
const (
	PowerProfileUnspecified PowerProfileType = iota
	PowerProfileDesktop
	PowerProfileMobile
	PowerProfileWorkstation
	PowerProfileEnterpriseServer
	PowerProfileSOHOServer
	PowerProfileAppliancePC
	PowerProfilePerformanceServer
)

// FADT64 carries the 64-bit wide duplicates of the legacy 32-bit FADT
// pointers and register blocks. Present from ACPI 2.0 on; when populated,
// these take precedence over their 32-bit counterparts.
type FADT64 struct {
	FirmwareControl uint64

	Dsdt uint64

	PM1aEventBlock   GenericAddress
	PM1bEventBlock   GenericAddress
	PM1aControlBlock GenericAddress
	PM1bControlBlock GenericAddress
	PM2ControlBlock  GenericAddress
	PMTimerBlock     GenericAddress
	GPE0Block        GenericAddress
	GPE1Block        GenericAddress
}

// FADT is the Fixed ACPI Description Table. The namespace caches it without
// reading its fields; the full register-block layout is retained so the
// hardware layer can consume the same cached table.
type FADT struct {
	SDTHeader

	FirmwareCtrl uint32
	Dsdt         uint32

	reserved uint8

	PreferredPowerManagementProfile PowerProfileType
	SCIInterrupt                    uint16
	SMICommandPort                  uint32
	AcpiEnable                      uint8
	AcpiDisable                     uint8
	S4BIOSReq                       uint8
	PSTATEControl                   uint8
	PM1aEventBlock                  uint32
	PM1bEventBlock                  uint32
	PM1aControlBlock                uint32
	PM1bControlBlock                uint32
	PM2ControlBlock                 uint32
	PMTimerBlock                    uint32
	GPE0Block                       uint32
	GPE1Block                       uint32
	PM1EventLength                  uint8
	PM1ControlLength                uint8
	PM2ControlLength                uint8
	PMTimerLength                   uint8
	GPE0Length                      uint8
	GPE1Length                      uint8
	GPE1Base                        uint8
	CStateControl                   uint8
	WorstC2Latency                  uint16
	WorstC3Latency                  uint16
	FlushSize                       uint16
	FlushStride                     uint16
	DutyOffset                      uint8
	DutyWidth                       uint8
	DayAlarm                        uint8
	MonthAlarm                      uint8
	Century                         uint8

	// Only meaningful from ACPI 2.0 on; reserved before that.
	BootArchitectureFlags uint16

	reserved2 uint8
	Flags     uint32

	ResetReg GenericAddress

	ResetValue uint8
	reserved3  [3]uint8

	// 64-bit replacements for the legacy pointers above (ACPI 2.0+).
	Ext FADT64
}

// Contents returns the raw contents of the table that starts with header,
// including the header bytes themselves.
func Contents(header *SDTHeader) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(header)), header.Length)
}

// Payload returns the table contents that follow the standard header. For
// DSDT/SSDT/PSDT tables this is the raw AML bytecode.
func Payload(header *SDTHeader) []byte {
	return Contents(header)[unsafe.Sizeof(SDTHeader{}):]
}

// Valid calculates the checksum for the table that starts with header and
// returns true if the table is valid.
func Valid(header *SDTHeader) bool {
	var sum uint8
	for _, b := range Contents(header) {
		sum += b
	}

	return sum == 0
}
