package ns

import (
	"fmt"
	"io"
	"unsafe"

	"goacpi/kernel"
	"goacpi/table"
)

const (
	fadtSignature = "FACP"
	dsdtSignature = "DSDT"
	ssdtSignature = "SSDT"
	psdtSignature = "PSDT"
)

// State is an opaque, per-populate interpreter state. The namespace creates a
// fresh state for each AML segment it hands to the interpreter and threads
// caller-supplied states through evaluation entry points such as
// CheckDevicePNPID.
type State interface{}

// Interpreter is the contract between the namespace core and the external
// AML interpreter. Populate walks the definition blocks of one AML segment
// and creates namespace nodes through Install and DoResolveNewNode; Eval
// evaluates a method or data object node to a value, e.g. a uint64, string
// or []byte.
type Interpreter interface {
	NewState() State
	Populate(nsp *Namespace, ctx *Node, seg *Segment, state State) *kernel.Error
	Eval(nsp *Namespace, state State, node *Node) (interface{}, *kernel.Error)
}

// Config bundles the host collaborators and OS identification surface needed
// to build a namespace.
type Config struct {
	// Tables locates the ACPI tables. Required.
	Tables table.Resolver

	// Interpreter populates the namespace from each AML segment and backs
	// method evaluation. Required.
	Interpreter Interpreter

	// ErrWriter receives warnings and debug traces. Defaults to io.Discard.
	ErrWriter io.Writer

	// OSIStrings is the set of interface strings acknowledged by the
	// predefined \_OSI method. Defaults to DefaultOSIStrings.
	OSIStrings []string

	// OSName is the string returned by the predefined \_OS_ method.
	// Defaults to DefaultOSName.
	OSName string

	// Revision is the integer returned by the predefined \_REV method.
	// Defaults to 2.
	Revision uint64
}

// DefaultOSName is the operating system name reported by \_OS_ unless
// overridden. Virtually all AML in the wild probes for Windows, so that is
// what we claim to be.
const DefaultOSName = "Microsoft Windows NT"

// DefaultOSIStrings lists the OS interface strings acknowledged by \_OSI
// unless overridden.
var DefaultOSIStrings = []string{
	"Windows 2000",
	"Windows 2001",
	"Windows 2001 SP1",
	"Windows 2001.1",
	"Windows 2006",
	"Windows 2009",
	"Windows 2012",
	"Windows 2013",
	"Windows 2015",
}

// ones is the result an AML method returns for logical truth.
const ones = uint64(1<<64 - 1)

// Create builds the ACPI namespace: it locates and caches the FADT, seeds
// the predefined objects and then drives the interpreter over the DSDT and
// every SSDT and PSDT. The host must supply table management functions and
// an interpreter; a missing FADT or DSDT is fatal, as the host is unusable
// without ACPI.
func Create(cfg Config) *Namespace {
	if cfg.Tables == nil {
		panic("acpi_ns: Create() needs table management functions")
	}
	if cfg.Interpreter == nil {
		panic("acpi_ns: Create() needs an AML interpreter")
	}

	nsp := &Namespace{
		nodes:      make([]*Node, 0, namespaceWindow),
		tables:     cfg.Tables,
		interp:     cfg.Interpreter,
		errWriter:  cfg.ErrWriter,
		osName:     cfg.OSName,
		revision:   cfg.Revision,
		osiStrings: make(map[string]bool),
	}
	if nsp.errWriter == nil {
		nsp.errWriter = io.Discard
	}
	if nsp.osName == "" {
		nsp.osName = DefaultOSName
	}
	if nsp.revision == 0 {
		nsp.revision = 2
	}
	osiStrings := cfg.OSIStrings
	if osiStrings == nil {
		osiStrings = DefaultOSIStrings
	}
	for _, s := range osiStrings {
		nsp.osiStrings[s] = true
	}

	fadtHeader := nsp.tables.LookupTable(fadtSignature, 0)
	if fadtHeader == nil {
		panic("acpi_ns: unable to find ACPI FADT")
	}
	nsp.fadt = (*table.FADT)(unsafe.Pointer(fadtHeader))

	nsp.createRoot()

	// Load the DSDT.
	dsdtHeader := nsp.tables.LookupTable(dsdtSignature, 0)
	if dsdtHeader == nil {
		panic("acpi_ns: unable to find ACPI DSDT")
	}
	nsp.populateSegment(dsdtHeader, 0)

	// Load all SSDTs.
	for index := 0; ; index++ {
		ssdtHeader := nsp.tables.LookupTable(ssdtSignature, index)
		if ssdtHeader == nil {
			break
		}
		nsp.populateSegment(ssdtHeader, index)
	}

	// The PSDT is treated the same way as the SSDT. Scan for PSDTs too
	// for compatibility with some ACPI 1.0 PCs.
	for index := 0; ; index++ {
		psdtHeader := nsp.tables.LookupTable(psdtSignature, index)
		if psdtHeader == nil {
			break
		}
		nsp.populateSegment(psdtHeader, index)
	}

	fmt.Fprintf(nsp.errWriter, "acpi_ns: namespace created, total of %d objects\n", nsp.Size())
	return nsp
}

// createRoot builds the root node and installs the predefined objects that
// AML code may reference before any table is parsed: the \_SB_, \_SI_,
// \_GPE, \_PR_ and \_TZ_ device stubs plus the OS-defined \_OSI, \_OS_ and
// \_REV methods.
func (nsp *Namespace) createRoot() {
	nsp.root = NewNode(KindRoot)
	nsp.root.setName("\\___")

	for _, name := range []string{"_SB_", "_SI_", "_GPE"} {
		dev := NewNode(KindDevice)
		dev.setName(name)
		dev.parent = nsp.root
		nsp.Install(dev)
	}

	// Create nodes for compatibility with ACPI 1.0.
	for _, name := range []string{"_PR_", "_TZ_"} {
		dev := NewNode(KindDevice)
		dev.setName(name)
		dev.parent = nsp.root
		nsp.Install(dev)
	}

	// Create the OS-defined objects.
	osi := NewNode(KindMethod)
	osi.setName("_OSI")
	osi.parent = nsp.root
	osi.MethodFlags = 0x01
	osi.MethodOverride = nsp.doOSIMethod
	nsp.Install(osi)

	os := NewNode(KindMethod)
	os.setName("_OS_")
	os.parent = nsp.root
	os.MethodOverride = nsp.doOSMethod
	nsp.Install(os)

	rev := NewNode(KindMethod)
	rev.setName("_REV")
	rev.parent = nsp.root
	rev.MethodOverride = nsp.doREVMethod
	nsp.Install(rev)
}

// populateSegment wraps header in an AML segment descriptor and hands it to
// the interpreter with a fresh state. Segments are retained for the lifetime
// of the namespace because method bodies reference them.
func (nsp *Namespace) populateSegment(header *table.SDTHeader, index int) {
	seg := &Segment{Table: header, Index: index}
	nsp.segments = append(nsp.segments, seg)

	fmt.Fprintf(nsp.errWriter, "acpi_ns: loaded AML table '%s', total %d bytes of AML code\n",
		string(header.Signature[:]), len(seg.AML()))

	state := nsp.interp.NewState()
	if err := nsp.interp.Populate(nsp, nsp.root, seg, state); err != nil {
		fmt.Fprintf(nsp.errWriter, "acpi_ns: errors while populating from '%s' (index %d): %s\n",
			string(header.Signature[:]), index, err.Error())
	}
}

var errOSIArgument = &kernel.Error{Module: "acpi_ns", Message: "_OSI expects a single string argument"}

func (nsp *Namespace) doOSIMethod(args []interface{}) (interface{}, *kernel.Error) {
	if len(args) != 1 {
		return nil, errOSIArgument
	}
	query, ok := args[0].(string)
	if !ok {
		return nil, errOSIArgument
	}

	if nsp.osiStrings[query] {
		return ones, nil
	}
	return uint64(0), nil
}

func (nsp *Namespace) doOSMethod([]interface{}) (interface{}, *kernel.Error) {
	return nsp.osName, nil
}

func (nsp *Namespace) doREVMethod([]interface{}) (interface{}, *kernel.Error) {
	return nsp.revision, nil
}
