// Package aml implements a structural loader for ACPI Machine Language
// definition blocks. The loader walks the term list of a DSDT/SSDT/PSDT
// segment and creates the namespace nodes it declares (scopes, devices,
// methods, fields, regions e.t.c) without executing any method body; bodies
// are recorded by reference into the owning segment so they can be executed
// later.
package aml

import (
	"fmt"
	"io"

	"goacpi/kernel"
	"goacpi/ns"
)

var (
	errParsingAML = &kernel.Error{Module: "acpi_aml_loader", Message: "could not parse AML bytecode"}
	errBadState   = &kernel.Error{Module: "acpi_aml_loader", Message: "populate invoked with a state owned by another interpreter"}
)

// NameRef is an unresolved name reference encountered inside a package or
// data object. References are kept symbolic because AML permits forward
// references that can only be resolved once the whole namespace is built.
type NameRef struct {
	Path string
}

// Loader implements the namespace populate and evaluation contract on top of
// the structural subset of AML. Parse errors are reported to errWriter.
type Loader struct {
	errWriter io.Writer
}

// NewLoader creates a new structural AML loader that emits parse warnings
// and errors to errWriter.
func NewLoader(errWriter io.Writer) *Loader {
	if errWriter == nil {
		errWriter = io.Discard
	}
	return &Loader{errWriter: errWriter}
}

// loadState tracks the progress of a single populate pass.
type loadState struct {
	created int
}

// NewState returns a fresh populate state.
func (l *Loader) NewState() ns.State {
	return &loadState{}
}

// pass groups the cursor state shared by the recursive descent helpers while
// a single segment is populated.
type pass struct {
	l   *Loader
	nsp *ns.Namespace
	seg *ns.Segment
	st  *loadState
	r   *streamReader

	tableName string
}

// Populate walks the definition blocks of seg and installs a namespace node
// for every named object they declare, using ctx as the initial scope.
func (l *Loader) Populate(nsp *ns.Namespace, ctx *ns.Node, seg *ns.Segment, state ns.State) *kernel.Error {
	st, ok := state.(*loadState)
	if !ok {
		return errBadState
	}

	code := seg.AML()

	p := &pass{
		l:         l,
		nsp:       nsp,
		seg:       seg,
		st:        st,
		r:         new(streamReader),
		tableName: string(seg.Table.Signature[:]),
	}
	p.r.Init(code, 0)

	if err := p.parseTermList(ctx, uint32(len(code))); err != nil {
		return err
	}

	fmt.Fprintf(l.errWriter, "acpi_aml_loader: loaded %d objects from '%s'\n", st.created, p.tableName)
	return nil
}

// errorf logs a parse failure tagged with the table name and stream offset
// and returns errParsingAML.
func (p *pass) errorf(format string, args ...interface{}) *kernel.Error {
	fmt.Fprintf(p.l.errWriter, "[table: %s, offset: 0x%x] %s\n",
		p.tableName, p.r.Offset(), fmt.Sprintf(format, args...))
	return errParsingAML
}

// install binds node at the path encoded by amln relative to scope and makes
// it visible to lookups.
func (p *pass) install(node, scope *ns.Node, amln ns.AMLName) {
	p.nsp.DoResolveNewNode(node, scope, amln)
	p.nsp.Install(node)
	p.st.created++
}

// parseTermList processes objects until the stream reaches end, bounding all
// nested reads to the same limit.
func (p *pass) parseTermList(scope *ns.Node, end uint32) *kernel.Error {
	prevEnd := p.r.PkgEnd()
	if err := p.r.SetPkgEnd(end); err != nil {
		return err
	}

	for p.r.Offset() < end {
		if err := p.parseObject(scope); err != nil {
			return err
		}
	}

	p.r.SetOffset(end)
	return p.r.SetPkgEnd(prevEnd)
}

// nextOpcode decodes the next (possibly two-byte) opcode from the stream.
func (p *pass) nextOpcode() (op byte, extended bool, err *kernel.Error) {
	if op, err = p.r.ReadByte(); err != nil {
		return 0, false, err
	}

	if op != extOpPrefix {
		return op, false, nil
	}

	if op, err = p.r.ReadByte(); err != nil {
		return 0, false, err
	}
	return op, true, nil
}

// parseObject dispatches on the next opcode in the term list of scope.
func (p *pass) parseObject(scope *ns.Node) *kernel.Error {
	op, extended, err := p.nextOpcode()
	if err != nil {
		return err
	}

	if extended {
		switch op {
		case extOpDevice:
			return p.parseScopedObject(scope, ns.KindDevice, nil)
		case extOpProcessor:
			return p.parseScopedObject(scope, ns.KindProcessor, func(node *ns.Node) *kernel.Error {
				procID, err := p.parseNumConstant(1)
				if err != nil {
					return err
				}
				pblkAddr, err := p.parseNumConstant(4)
				if err != nil {
					return err
				}
				pblkLen, err := p.parseNumConstant(1)
				if err != nil {
					return err
				}

				node.ProcessorID = uint8(procID)
				node.PblkAddr = uint32(pblkAddr)
				node.PblkLen = uint8(pblkLen)
				return nil
			})
		case extOpPowerRes:
			return p.parseScopedObject(scope, ns.KindPowerResource, func(node *ns.Node) *kernel.Error {
				systemLevel, err := p.parseNumConstant(1)
				if err != nil {
					return err
				}
				resourceOrder, err := p.parseNumConstant(2)
				if err != nil {
					return err
				}

				node.SystemLevel = uint8(systemLevel)
				node.ResourceOrder = uint16(resourceOrder)
				return nil
			})
		case extOpThermalZone:
			return p.parseScopedObject(scope, ns.KindThermalZone, nil)
		case extOpMutex:
			return p.parseMutex(scope)
		case extOpEvent:
			return p.parseEvent(scope)
		case extOpOpRegion:
			return p.parseOpRegion(scope)
		case extOpField:
			return p.parseField(scope)
		case extOpIndexField:
			return p.parseIndexField(scope)
		case extOpBankField:
			// Bank fields have no namespace representation; skip the
			// whole package.
			end, err := p.parsePkgBounds()
			if err != nil {
				return err
			}
			fmt.Fprintf(p.l.errWriter, "[table: %s, offset: 0x%x] skipping BankField declaration\n",
				p.tableName, p.r.Offset())
			p.r.SetOffset(end)
			return nil
		case extOpCreateField:
			return p.parseCreateField(scope, 0)
		}

		return p.errorf("unsupported extended opcode 0x5b 0x%x", op)
	}

	switch op {
	case opScope:
		return p.parseScope(scope)
	case opMethod:
		return p.parseMethod(scope)
	case opName:
		return p.parseName(scope)
	case opAlias:
		return p.parseAlias(scope)
	case opExternal:
		return p.parseExternal()
	case opCreateBitField:
		return p.parseCreateField(scope, 1)
	case opCreateByteField:
		return p.parseCreateField(scope, 8)
	case opCreateWordField:
		return p.parseCreateField(scope, 16)
	case opCreateDWordField:
		return p.parseCreateField(scope, 32)
	case opCreateQWordField:
		return p.parseCreateField(scope, 64)
	}

	return p.errorf("unsupported opcode 0x%x", op)
}

// parseScope handles Scope() blocks: the target must name an existing scope
// whose term list the block extends.
func (p *pass) parseScope(scope *ns.Node) *kernel.Error {
	end, err := p.parsePkgBounds()
	if err != nil {
		return err
	}

	amln, err := p.parseNameString()
	if err != nil {
		return err
	}

	target := p.nsp.Resolve(scope, amln)
	if target == nil {
		fmt.Fprintf(p.l.errWriter, "[table: %s, offset: 0x%x] could not resolve Scope() target %s; skipping block\n",
			p.tableName, p.r.Offset(), amln.String())
		p.r.SetOffset(end)
		return nil
	}

	return p.parseTermList(target, end)
}

// parseScopedObject handles the named objects that open their own scope
// (Device, Processor, PowerResource, ThermalZone). When non-nil, header
// parses the kind-specific bytes that precede the object's term list.
func (p *pass) parseScopedObject(scope *ns.Node, kind ns.Kind, header func(*ns.Node) *kernel.Error) *kernel.Error {
	end, err := p.parsePkgBounds()
	if err != nil {
		return err
	}

	amln, err := p.parseNameString()
	if err != nil {
		return err
	}

	node := ns.NewNode(kind)
	if header != nil {
		if err = header(node); err != nil {
			return err
		}
	}

	p.install(node, scope, amln)
	return p.parseTermList(node, end)
}

func (p *pass) parseMethod(scope *ns.Node) *kernel.Error {
	end, err := p.parsePkgBounds()
	if err != nil {
		return err
	}

	amln, err := p.parseNameString()
	if err != nil {
		return err
	}

	flags, err := p.r.ReadByte()
	if err != nil {
		return err
	}

	node := ns.NewNode(ns.KindMethod)
	node.MethodFlags = flags
	node.SyncLevel = flags >> 4

	// The body is recorded by reference and skipped; it is parsed when the
	// method is invoked.
	node.Segment = p.seg
	node.BodyOffset = p.r.Offset()
	node.BodyLen = end - p.r.Offset()

	p.install(node, scope, amln)
	p.r.SetOffset(end)
	return nil
}

func (p *pass) parseName(scope *ns.Node) *kernel.Error {
	amln, err := p.parseNameString()
	if err != nil {
		return err
	}

	value, err := p.parseTermArgValue()
	if err != nil {
		return err
	}

	node := ns.NewNode(ns.KindName)
	node.Value = value
	p.install(node, scope, amln)
	return nil
}

func (p *pass) parseAlias(scope *ns.Node) *kernel.Error {
	src, err := p.parseNameString()
	if err != nil {
		return err
	}

	dst, err := p.parseNameString()
	if err != nil {
		return err
	}

	// Resolve flattens a trailing alias, so the target of the new alias is
	// never an alias itself.
	target := p.nsp.Resolve(scope, src)
	if target == nil {
		return p.errorf("could not resolve Alias() target %s", src.String())
	}

	node := ns.NewNode(ns.KindAlias)
	node.Target = target
	p.install(node, scope, dst)
	return nil
}

func (p *pass) parseMutex(scope *ns.Node) *kernel.Error {
	amln, err := p.parseNameString()
	if err != nil {
		return err
	}

	syncFlags, err := p.r.ReadByte()
	if err != nil {
		return err
	}

	node := ns.NewNode(ns.KindMutex)
	node.SyncLevel = syncFlags & 0xf
	p.install(node, scope, amln)
	return nil
}

func (p *pass) parseEvent(scope *ns.Node) *kernel.Error {
	amln, err := p.parseNameString()
	if err != nil {
		return err
	}

	p.install(ns.NewNode(ns.KindEvent), scope, amln)
	return nil
}

func (p *pass) parseOpRegion(scope *ns.Node) *kernel.Error {
	amln, err := p.parseNameString()
	if err != nil {
		return err
	}

	space, err := p.r.ReadByte()
	if err != nil {
		return err
	}

	base, err := p.parseIntegerArg()
	if err != nil {
		return err
	}

	length, err := p.parseIntegerArg()
	if err != nil {
		return err
	}

	node := ns.NewNode(ns.KindOpRegion)
	node.RegionSpace = ns.RegionSpace(space)
	node.RegionBase = base
	node.RegionLen = length
	p.install(node, scope, amln)
	return nil
}

func (p *pass) parseField(scope *ns.Node) *kernel.Error {
	end, err := p.parsePkgBounds()
	if err != nil {
		return err
	}

	regionName, err := p.parseNameString()
	if err != nil {
		return err
	}

	region := p.nsp.Resolve(scope, regionName)
	if region == nil || region.Kind() != ns.KindOpRegion {
		return p.errorf("could not resolve Field() region %s", regionName.String())
	}

	flags, err := p.r.ReadByte()
	if err != nil {
		return err
	}

	return p.parseFieldElements(scope, end, flags, ns.KindField, func(node *ns.Node) {
		node.FieldRegion = region
	})
}

func (p *pass) parseIndexField(scope *ns.Node) *kernel.Error {
	end, err := p.parsePkgBounds()
	if err != nil {
		return err
	}

	indexName, err := p.parseNameString()
	if err != nil {
		return err
	}

	dataName, err := p.parseNameString()
	if err != nil {
		return err
	}

	indexNode := p.nsp.Resolve(scope, indexName)
	if indexNode == nil {
		return p.errorf("could not resolve IndexField() index register %s", indexName.String())
	}

	dataNode := p.nsp.Resolve(scope, dataName)
	if dataNode == nil {
		return p.errorf("could not resolve IndexField() data register %s", dataName.String())
	}

	flags, err := p.r.ReadByte()
	if err != nil {
		return err
	}

	return p.parseFieldElements(scope, end, flags, ns.KindIndexField, func(node *ns.Node) {
		node.IndexNode = indexNode
		node.DataNode = dataNode
	})
}

// parseFieldElements walks a field list creating one node of the given kind
// per named element. The bind callback attaches the kind-specific backing
// references (operation region or index/data register pair).
func (p *pass) parseFieldElements(scope *ns.Node, end uint32, flags uint8, kind ns.Kind, bind func(*ns.Node)) *kernel.Error {
	var (
		bitOffset   uint64
		accessFlags = flags
	)

	for p.r.Offset() < end {
		next, err := p.r.PeekByte()
		if err != nil {
			return err
		}

		switch next {
		case fieldElemReserved:
			_, _ = p.r.ReadByte()
			skip, err := p.parsePkgLength()
			if err != nil {
				return err
			}
			bitOffset += uint64(skip)
		case fieldElemAccess:
			_, _ = p.r.ReadByte()
			accessType, err := p.r.ReadByte()
			if err != nil {
				return err
			}
			// The access attrib byte only matters for SMBus/GPIO
			// regions which the loader does not marshal.
			if _, err = p.r.ReadByte(); err != nil {
				return err
			}

			accessFlags = (accessFlags &^ 0xf) | (accessType & 0xf)
		case fieldElemConnect, fieldElemExtAccess:
			return p.errorf("unsupported field element type 0x%x", next)
		default:
			amln, err := p.parseNameString()
			if err != nil {
				return err
			}
			if amln.SegCount() != 1 {
				return p.errorf("field element name must be a single segment")
			}

			bits, err := p.parsePkgLength()
			if err != nil {
				return err
			}

			node := ns.NewNode(kind)
			node.FieldFlags = accessFlags
			node.BitOffset = bitOffset
			node.BitSize = uint64(bits)
			bind(node)
			p.install(node, scope, amln)

			bitOffset += uint64(bits)
		}
	}

	p.r.SetOffset(end)
	return nil
}

// parseCreateField handles the CreateField family. A fixed non-zero bits
// value selects one of the sized variants (CreateBitField e.t.c); zero
// selects the generic CreateField whose bit count is encoded in the stream.
// The sized byte/word/dword/qword variants encode a byte index, the bit
// variants a bit index.
func (p *pass) parseCreateField(scope *ns.Node, bits uint64) *kernel.Error {
	srcName, err := p.parseNameString()
	if err != nil {
		return err
	}

	source := p.nsp.Resolve(scope, srcName)
	if source == nil {
		return p.errorf("could not resolve CreateField() source buffer %s", srcName.String())
	}

	index, err := p.parseIntegerArg()
	if err != nil {
		return err
	}

	bitOffset := index
	if bits != 1 {
		bitOffset = index * 8
	}

	if bits == 0 {
		if bits, err = p.parseIntegerArg(); err != nil {
			return err
		}
		bitOffset = index
	}

	amln, err := p.parseNameString()
	if err != nil {
		return err
	}

	node := ns.NewNode(ns.KindBufferField)
	node.BufferObj = source
	node.BitOffset = bitOffset
	node.BitSize = bits
	p.install(node, scope, amln)
	return nil
}

func (p *pass) parseExternal() *kernel.Error {
	if _, err := p.parseNameString(); err != nil {
		return err
	}

	// Object type and argument count; externals have no namespace
	// representation of their own.
	if _, err := p.r.ReadByte(); err != nil {
		return err
	}
	if _, err := p.r.ReadByte(); err != nil {
		return err
	}
	return nil
}
