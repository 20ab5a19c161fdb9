package aml

// The subset of AML opcodes understood by the structural loader. Opcodes
// prefixed by extOpPrefix occupy two bytes in the stream.
const (
	opZero         = 0x00
	opOne          = 0x01
	opAlias        = 0x06
	opName         = 0x08
	opBytePrefix   = 0x0a
	opWordPrefix   = 0x0b
	opDWordPrefix  = 0x0c
	opStringPrefix = 0x0d
	opQWordPrefix  = 0x0e
	opScope        = 0x10
	opBuffer       = 0x11
	opPackage      = 0x12
	opVarPackage   = 0x13
	opMethod       = 0x14
	opExternal     = 0x15

	opCreateDWordField = 0x8a
	opCreateWordField  = 0x8b
	opCreateByteField  = 0x8c
	opCreateBitField   = 0x8d
	opCreateQWordField = 0x8f

	opReturn = 0xa4
	opOnes   = 0xff

	extOpPrefix = 0x5b

	dualNamePrefix  = 0x2e
	multiNamePrefix = 0x2f

	extOpMutex       = 0x01
	extOpEvent       = 0x02
	extOpCreateField = 0x13
	extOpOpRegion    = 0x80
	extOpField       = 0x81
	extOpDevice      = 0x82
	extOpProcessor   = 0x83
	extOpPowerRes    = 0x84
	extOpThermalZone = 0x85
	extOpIndexField  = 0x86
	extOpBankField   = 0x87
)

// Field list element lead bytes that do not start a named element.
const (
	fieldElemReserved  = 0x00
	fieldElemAccess    = 0x01
	fieldElemConnect   = 0x02
	fieldElemExtAccess = 0x03
)
