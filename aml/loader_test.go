package aml

import (
	"bytes"
	"io"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goacpi/kernel"
	"goacpi/ns"
	"goacpi/table"
)

// pkg prepends a PkgLength encoding to body. PkgLength counts its own bytes.
func pkg(body ...[]byte) []byte {
	flat := bytes.Join(body, nil)

	if len(flat)+1 <= 0x3f {
		return append([]byte{byte(len(flat) + 1)}, flat...)
	}

	total := uint32(len(flat) + 2)
	return append([]byte{0x40 | byte(total&0xf), byte(total >> 4)}, flat...)
}

func seg(name string) []byte {
	return []byte(name)
}

func newTestNamespace(t *testing.T, amlCode []byte, errWriter io.Writer) *ns.Namespace {
	t.Helper()

	fadtPayload := make([]byte, unsafe.Sizeof(table.FADT{})-unsafe.Sizeof(table.SDTHeader{}))

	resolver := new(table.FileResolver)
	require.NoError(t, errOrNil(resolver.Add(table.Build("FACP", 2, fadtPayload))))
	require.NoError(t, errOrNil(resolver.Add(table.Build("DSDT", 2, amlCode))))

	return ns.Create(ns.Config{
		Tables:      resolver,
		Interpreter: NewLoader(errWriter),
		ErrWriter:   errWriter,
	})
}

// errOrNil converts a typed nil *kernel.Error into an untyped nil so that
// require.NoError treats it as success.
func errOrNil(err *kernel.Error) error {
	if err != nil {
		return err
	}
	return nil
}

func TestPopulateStructuralObjects(t *testing.T) {
	amlCode := bytes.Join([][]byte{
		// Device(\_SB_.PCI0) { ... }
		{extOpPrefix, extOpDevice},
		pkg(
			[]byte{'\\', dualNamePrefix}, seg("_SB_"), seg("PCI0"),
			// Name(_HID, EisaId("PNP0A03"))
			[]byte{opName}, seg("_HID"), []byte{opDWordPrefix, 0x41, 0xd0, 0x03, 0x0a},
			// Name(_STR, "ICH9")
			[]byte{opName}, seg("_STR"), []byte{opStringPrefix, 'I', 'C', 'H', '9', 0x00},
			// Method(FOO_, 2) { Return(0x42) }
			[]byte{opMethod}, pkg(seg("FOO_"), []byte{0x02, opReturn, opBytePrefix, 0x42}),
			// OperationRegion(GPIO, SystemIO, 0xb0, 0x10)
			[]byte{extOpPrefix, extOpOpRegion}, seg("GPIO"),
			[]byte{0x01, opBytePrefix, 0xb0, opBytePrefix, 0x10},
			// Field(GPIO, ByteAcc, NoLock, Preserve) { FLD1,8, Offset(2), FLD2,16 }
			[]byte{extOpPrefix, extOpField},
			pkg(
				seg("GPIO"), []byte{0x01},
				seg("FLD1"), []byte{0x08},
				[]byte{fieldElemReserved, 0x08},
				seg("FLD2"), []byte{0x10},
			),
			// Mutex(MTX0, 3)
			[]byte{extOpPrefix, extOpMutex}, seg("MTX0"), []byte{0x03},
			// Event(EVT0)
			[]byte{extOpPrefix, extOpEvent}, seg("EVT0"),
		),
		// Scope(\_SB_.PCI0) { Device(LPCB) {} }
		{opScope},
		pkg(
			[]byte{'\\', dualNamePrefix}, seg("_SB_"), seg("PCI0"),
			[]byte{extOpPrefix, extOpDevice}, pkg(seg("LPCB")),
		),
		// Alias(\_SB_.PCI0, AL01)
		{opAlias, '\\', dualNamePrefix}, seg("_SB_"), seg("PCI0"), seg("AL01"),
		// Name(BUF0, Buffer(4) { 1, 2, 3, 4 })
		{opName}, seg("BUF0"), []byte{opBuffer}, pkg([]byte{opBytePrefix, 0x04, 1, 2, 3, 4}),
		// CreateByteField(BUF0, 1, BF1_)
		{opCreateByteField}, seg("BUF0"), []byte{opBytePrefix, 0x01}, seg("BF1_"),
		// Name(PKG0, Package(2) { 5, "ab" })
		{opName}, seg("PKG0"), []byte{opPackage},
		pkg([]byte{0x02, opBytePrefix, 0x05, opStringPrefix, 'a', 'b', 0x00}),
		// Processor(CPU0, 1, 0x120, 6) {}
		{extOpPrefix, extOpProcessor},
		pkg(seg("CPU0"), []byte{0x01, 0x20, 0x01, 0x00, 0x00, 0x06}),
	}, nil)

	var log bytes.Buffer
	nsp := newTestNamespace(t, amlCode, &log)

	pci0 := nsp.ResolvePath(nil, `\_SB_.PCI0`)
	require.NotNil(t, pci0)
	assert.Equal(t, ns.KindDevice, pci0.Kind())

	hid := nsp.ResolvePath(pci0, "_HID")
	require.NotNil(t, hid)
	assert.Equal(t, uint64(0x0a03d041), hid.Value)

	str := nsp.ResolvePath(pci0, "_STR")
	require.NotNil(t, str)
	assert.Equal(t, "ICH9", str.Value)

	foo := nsp.ResolvePath(pci0, "FOO_")
	require.NotNil(t, foo)
	assert.Equal(t, ns.KindMethod, foo.Kind())
	assert.EqualValues(t, 2, foo.MethodArgCount())
	assert.EqualValues(t, 3, foo.BodyLen)

	gpio := nsp.ResolvePath(pci0, "GPIO")
	require.NotNil(t, gpio)
	assert.Equal(t, ns.KindOpRegion, gpio.Kind())
	assert.Equal(t, ns.RegionSpaceSystemIO, gpio.RegionSpace)
	assert.EqualValues(t, 0xb0, gpio.RegionBase)
	assert.EqualValues(t, 0x10, gpio.RegionLen)

	fld1 := nsp.ResolvePath(pci0, "FLD1")
	require.NotNil(t, fld1)
	assert.Equal(t, ns.KindField, fld1.Kind())
	assert.EqualValues(t, 0, fld1.BitOffset)
	assert.EqualValues(t, 8, fld1.BitSize)
	assert.Equal(t, gpio, fld1.FieldRegion)

	// FLD2 follows FLD1 and the 8-bit reserved gap.
	fld2 := nsp.ResolvePath(pci0, "FLD2")
	require.NotNil(t, fld2)
	assert.EqualValues(t, 16, fld2.BitOffset)
	assert.EqualValues(t, 16, fld2.BitSize)

	mtx := nsp.ResolvePath(pci0, "MTX0")
	require.NotNil(t, mtx)
	assert.Equal(t, ns.KindMutex, mtx.Kind())
	assert.EqualValues(t, 3, mtx.SyncLevel)

	evt := nsp.ResolvePath(pci0, "EVT0")
	require.NotNil(t, evt)
	assert.Equal(t, ns.KindEvent, evt.Kind())

	// The Scope() block extended the existing PCI0 scope.
	lpcb := nsp.ResolvePath(nil, `\_SB_.PCI0.LPCB`)
	require.NotNil(t, lpcb)
	assert.Equal(t, ns.KindDevice, lpcb.Kind())

	// The alias resolves to its target, never to itself.
	assert.Equal(t, pci0, nsp.ResolvePath(nil, `\AL01`))

	buf := nsp.ResolvePath(nil, `\BUF0`)
	require.NotNil(t, buf)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf.Value)

	bf1 := nsp.ResolvePath(nil, `\BF1_`)
	require.NotNil(t, bf1)
	assert.Equal(t, ns.KindBufferField, bf1.Kind())
	assert.EqualValues(t, 8, bf1.BitOffset)
	assert.EqualValues(t, 8, bf1.BitSize)
	assert.Equal(t, buf, bf1.BufferObj)

	pkg0 := nsp.ResolvePath(nil, `\PKG0`)
	require.NotNil(t, pkg0)
	assert.Equal(t, []interface{}{uint64(5), "ab"}, pkg0.Value)

	cpu0 := nsp.ResolvePath(nil, `\CPU0`)
	require.NotNil(t, cpu0)
	assert.Equal(t, ns.KindProcessor, cpu0.Kind())
	assert.EqualValues(t, 1, cpu0.ProcessorID)
	assert.EqualValues(t, 0x120, cpu0.PblkAddr)
	assert.EqualValues(t, 6, cpu0.PblkLen)
}

func TestLoaderEval(t *testing.T) {
	amlCode := bytes.Join([][]byte{
		{extOpPrefix, extOpDevice},
		pkg(
			seg("KBD0"),
			// Name(_HID, EisaId("PNP0303"))
			[]byte{opName}, seg("_HID"), []byte{opDWordPrefix, 0x41, 0xd0, 0x03, 0x03},
		),
		{extOpPrefix, extOpDevice},
		pkg(
			seg("PIC_"),
			// Method(_HID) { Return(0x41d00000) }
			[]byte{opMethod}, pkg(seg("_HID"), []byte{0x00, opReturn, opDWordPrefix, 0x00, 0x00, 0xd0, 0x41}),
			// Method(BUSY) { Return(DerefOf(...)) } - not evaluatable
			// without executing AML; stand in with an unsupported body.
			[]byte{opMethod}, pkg(seg("BUSY"), []byte{0x00, 0x70, opBytePrefix, 0x01, 0x68}),
		),
	}, nil)

	var log bytes.Buffer
	nsp := newTestNamespace(t, amlCode, &log)
	loader := NewLoader(&log)

	kbd := nsp.ResolvePath(nil, `\KBD0`)
	require.NotNil(t, kbd)

	// Data objects evaluate to their stored value.
	val, err := loader.Eval(nsp, loader.NewState(), nsp.ResolvePath(kbd, "_HID"))
	require.Nil(t, err)
	assert.Equal(t, uint64(0x0303d041), val)

	// Trivial Return(data) method bodies evaluate without an interpreter.
	pic := nsp.ResolvePath(nil, `\PIC_`)
	require.NotNil(t, pic)
	val, err = loader.Eval(nsp, loader.NewState(), nsp.ResolvePath(pic, "_HID"))
	require.Nil(t, err)
	assert.Equal(t, uint64(0x41d00000), val)

	// Anything else requires a full interpreter.
	_, err = loader.Eval(nsp, loader.NewState(), nsp.ResolvePath(pic, "BUSY"))
	assert.Equal(t, errEvalUnsupported, err)

	// End to end: device PNP id matching driven by the loader's evaluator.
	assert.Equal(t, 0, nsp.CheckDevicePNPID(kbd, uint64(0x0303d041), loader.NewState()))
	assert.NotEqual(t, 0, nsp.CheckDevicePNPID(kbd, uint64(0x0a03d041), loader.NewState()))
	assert.Equal(t, 0, nsp.CheckDevicePNPID(pic, uint64(0x41d00000), loader.NewState()))
}

func TestPopulateReportsParseErrors(t *testing.T) {
	var log bytes.Buffer
	nsp := newTestNamespace(t, nil, &log)

	// 0xd8 is not a valid term list opcode.
	img := table.Build("SSDT", 2, []byte{0xd8})
	header := (*table.SDTHeader)(unsafe.Pointer(&img[0]))

	loader := NewLoader(&log)
	err := loader.Populate(nsp, nsp.Root(), &ns.Segment{Table: header, Index: 0}, loader.NewState())
	assert.Equal(t, errParsingAML, err)
	assert.Contains(t, log.String(), "unsupported opcode")
}

func TestPopulateRejectsForeignState(t *testing.T) {
	var log bytes.Buffer
	nsp := newTestNamespace(t, nil, &log)

	img := table.Build("SSDT", 2, nil)
	header := (*table.SDTHeader)(unsafe.Pointer(&img[0]))

	loader := NewLoader(&log)
	err := loader.Populate(nsp, nsp.Root(), &ns.Segment{Table: header, Index: 0}, struct{}{})
	assert.Equal(t, errBadState, err)
}

func TestPopulateSkipsUnresolvableScope(t *testing.T) {
	amlCode := bytes.Join([][]byte{
		// Scope(MISS) { Device(NOPE) {} } - skipped with a warning
		{opScope},
		pkg(seg("MISS"), []byte{extOpPrefix, extOpDevice}, pkg(seg("NOPE"))),
		// Device(OK__) {}
		{extOpPrefix, extOpDevice}, pkg(seg("OK__")),
	}, nil)

	var log bytes.Buffer
	nsp := newTestNamespace(t, amlCode, &log)

	assert.Nil(t, nsp.ResolvePath(nil, `\NOPE`))
	assert.NotNil(t, nsp.ResolvePath(nil, `\OK__`))
	assert.Contains(t, log.String(), "could not resolve Scope() target")
}
