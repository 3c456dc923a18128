package wasmbin

// ValType is a WebAssembly 1.0 value type.
type ValType byte

const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
	F32 ValType = 0x7d
	F64 ValType = 0x7c
)

// SectionID identifies a module section, in the fixed order spec §4.6
// requires.
type SectionID byte

const (
	SecCustom SectionID = iota
	SecType
	SecImport
	SecFunction
	SecTable
	SecMemory
	SecGlobal
	SecExport
	SecStart
	SecElement
	SecCode
	SecData
)

const (
	magic   = "\x00asm"
	version = "\x01\x00\x00\x00"
)

// FuncType is one entry in the type section: a parameter list and a
// result list (WASM 1.0 allows at most one result).
type FuncType struct {
	Params  []ValType
	Results []ValType
}

func (t FuncType) encode() []byte {
	out := []byte{0x60}
	out = PutUvarint(out, uint64(len(t.Params)))
	for _, p := range t.Params {
		out = append(out, byte(p))
	}
	out = PutUvarint(out, uint64(len(t.Results)))
	for _, r := range t.Results {
		out = append(out, byte(r))
	}
	return out
}

// ImportKind distinguishes the four importable entity kinds. The fixed
// host import table (spec §6) only ever uses function imports.
type ImportKind byte

const (
	ImportFunc   ImportKind = 0x00
	ImportTable  ImportKind = 0x01
	ImportMemory ImportKind = 0x02
	ImportGlobal ImportKind = 0x03
)

// Import is one entry in the import section.
type Import struct {
	Module string
	Name   string
	Kind   ImportKind
	TypeIdx uint32 // valid when Kind == ImportFunc
}

// Export is one entry in the export section.
type Export struct {
	Name string
	Kind ImportKind // reused: func/table/memory/global export kinds match import kinds
	Idx  uint32
}

// Local is a run of locals of one type in a function body's prologue.
type Local struct {
	Count uint32
	Type  ValType
}

// Function is a single code-section entry: its locals and its already
// fully-encoded instruction bytes (the caller, internal/codegen, emits
// instruction opcodes directly — this package only frames them).
type Function struct {
	Locals []Local
	Body   []byte // instruction bytes, without the trailing 0x0b end handled here
}

func (f Function) encode() []byte {
	var body []byte
	body = PutUvarint(body, uint64(len(f.Locals)))
	for _, l := range f.Locals {
		body = PutUvarint(body, uint64(l.Count))
		body = append(body, byte(l.Type))
	}
	body = append(body, f.Body...)
	body = append(body, 0x0b) // end

	out := PutUvarint(nil, uint64(len(body)))
	return append(out, body...)
}

// DataSegment is one active data-section entry at a constant i32 offset.
type DataSegment struct {
	Offset int32
	Bytes  []byte
}

// Module accumulates every section of a WASM 1.0 binary in the order
// imports must be assigned and sections must be written.
type Module struct {
	Types    []FuncType
	Imports  []Import
	FuncTypeIdx []uint32 // one type index per non-imported function, in declaration order
	Funcs    []Function
	Memory   struct{ Min, Max uint32; HasMax bool }
	Globals  []Global
	Exports  []Export
	StartIdx *uint32
	Data     []DataSegment
}

// Global is one entry in the global section.
type Global struct {
	Type    ValType
	Mutable bool
	Init    []byte // a constant expression, e.g. i32.const
}

func section(id SectionID, payload []byte) []byte {
	out := []byte{byte(id)}
	out = PutUvarint(out, uint64(len(payload)))
	return append(out, payload...)
}

func vec(n int) []byte { return PutUvarint(nil, uint64(n)) }

func encodeName(s string) []byte {
	out := vec(len(s))
	return append(out, []byte(s)...)
}

// Encode serializes the module to a complete WASM 1.0 binary.
func (m *Module) Encode() []byte {
	var out []byte
	out = append(out, magic...)
	out = append(out, version...)

	if len(m.Types) > 0 {
		var p []byte
		p = append(p, vec(len(m.Types))...)
		for _, t := range m.Types {
			p = append(p, t.encode()...)
		}
		out = append(out, section(SecType, p)...)
	}

	if len(m.Imports) > 0 {
		var p []byte
		p = append(p, vec(len(m.Imports))...)
		for _, im := range m.Imports {
			p = append(p, encodeName(im.Module)...)
			p = append(p, encodeName(im.Name)...)
			p = append(p, byte(im.Kind))
			if im.Kind == ImportFunc {
				p = PutUvarint(p, uint64(im.TypeIdx))
			}
		}
		out = append(out, section(SecImport, p)...)
	}

	if len(m.FuncTypeIdx) > 0 {
		var p []byte
		p = append(p, vec(len(m.FuncTypeIdx))...)
		for _, idx := range m.FuncTypeIdx {
			p = PutUvarint(p, uint64(idx))
		}
		out = append(out, section(SecFunction, p)...)
	}

	if m.Memory.Min > 0 || m.Memory.HasMax {
		var p []byte
		p = vec(1)
		if m.Memory.HasMax {
			p = append(p, 0x01)
			p = PutUvarint(p, uint64(m.Memory.Min))
			p = PutUvarint(p, uint64(m.Memory.Max))
		} else {
			p = append(p, 0x00)
			p = PutUvarint(p, uint64(m.Memory.Min))
		}
		out = append(out, section(SecMemory, p)...)
	}

	if len(m.Globals) > 0 {
		var p []byte
		p = append(p, vec(len(m.Globals))...)
		for _, g := range m.Globals {
			p = append(p, byte(g.Type))
			if g.Mutable {
				p = append(p, 0x01)
			} else {
				p = append(p, 0x00)
			}
			p = append(p, g.Init...)
			p = append(p, 0x0b)
		}
		out = append(out, section(SecGlobal, p)...)
	}

	if len(m.Exports) > 0 {
		var p []byte
		p = append(p, vec(len(m.Exports))...)
		for _, e := range m.Exports {
			p = append(p, encodeName(e.Name)...)
			p = append(p, byte(e.Kind))
			p = PutUvarint(p, uint64(e.Idx))
		}
		out = append(out, section(SecExport, p)...)
	}

	if m.StartIdx != nil {
		p := PutUvarint(nil, uint64(*m.StartIdx))
		out = append(out, section(SecStart, p)...)
	}

	if len(m.Funcs) > 0 {
		var p []byte
		p = append(p, vec(len(m.Funcs))...)
		for _, f := range m.Funcs {
			p = append(p, f.encode()...)
		}
		out = append(out, section(SecCode, p)...)
	}

	if len(m.Data) > 0 {
		var p []byte
		p = append(p, vec(len(m.Data))...)
		for _, d := range m.Data {
			p = append(p, 0x00) // memory index 0, active segment
			p = append(p, 0x41) // i32.const
			p = PutVarint(p, int64(d.Offset))
			p = append(p, 0x0b) // end
			p = append(p, vec(len(d.Bytes))...)
			p = append(p, d.Bytes...)
		}
		out = append(out, section(SecData, p)...)
	}

	return out
}
