// Package memlayout describes the reference-counted heap model compiled
// Clean Language programs run against: the object header shared by every
// heap value, the per-kind payload layouts, and the retain/release
// insertion-site list the code generator consults. It holds no WASM
// instructions itself — internal/codegen emits the bytes; this package is
// the shared vocabulary of offsets and sizes both codegen and the built-in
// registrar's helper functions (String.length, List.push, ...) agree on.
package memlayout

// HeaderSize is the number of bytes preceding every heap object's payload.
// Pointers handed to compiled code point past the header; the header for a
// pointer p lives at p-HeaderSize.
const HeaderSize = 16

// Header field offsets, relative to the header's own start (ptr-HeaderSize).
const (
	OffRefcount    = 0 // u32
	OffTypeID      = 4 // u32
	OffPayloadSize = 8  // u32, interpretation depends on TypeID
	OffFlags       = 12 // u32, low bit = string-interned
)

// FlagInterned marks a String object as living in the string pool.
const FlagInterned = 1 << 0

// TypeID identifies a heap object's payload layout.
type TypeID uint32

const (
	TypeString TypeID = 1
	TypeList   TypeID = 2
	TypeMatrix TypeID = 3
	TypePairs  TypeID = 4
	// TypeID values 5 and above are assigned to user classes in class-name
	// order by the code generator.
	FirstUserClassTypeID TypeID = 5
)

// String payload: PayloadSize UTF-8 bytes, no further header fields.
// Immutable after construction.

// List payload offsets, relative to the pointer (i.e. past the 16-byte
// header). Elements are 32-bit slots: heap pointers for reference-typed
// elements, raw values for scalar element types.
const (
	ListOffLength   = 0  // u32
	ListOffCapacity = 4  // u32
	ListOffElements = 8  // capacity * 4 bytes follow
	ListElementSize = 4
	// ListMinCapacity is not referenced by the code generator: list
	// literals take a capacity equal to their element count, and lists
	// never grow.
	ListMinCapacity = 4
)

// Matrix payload offsets.
const (
	MatrixOffRows     = 0
	MatrixOffCols     = 4
	MatrixOffElements = 8
	MatrixElementSize = 4
)

// Pairs payload offsets: interleaved key/value 32-bit slots after the
// length/capacity pair. Lookup is a linear scan (spec §4.5).
const (
	PairsOffLength   = 0
	PairsOffCapacity = 4
	PairsOffEntries  = 8
	PairsEntrySize   = 8 // one key slot + one value slot
)

// RetentionSite names a point in the generated code where a retain or
// release call must be inserted, per spec §9's explicit insertion-site
// list (kept explicit and enumerable rather than discovered ad hoc during
// emission, so it is auditable).
type RetentionSite int

const (
	SiteAssignment     RetentionSite = iota // retain new value, release old value of the overwritten slot
	SiteParameterPass                       // retain each reference-typed argument at the call site
	SiteContainerStore                      // retain on List/Matrix/Pairs element store, release the displaced element
	SiteScopeExit                           // release every reference-typed local still live when a scope ends
	SiteExceptionUnwind                     // release every reference-typed local live at an __raise call site
)

// ClassLayout is the field layout for one user class, used by the
// generated release() to recurse into pointer-typed fields when an
// object's refcount reaches zero.
type ClassLayout struct {
	TypeID TypeID
	// FieldOffsets maps field name to its byte offset past the header.
	FieldOffsets map[string]int
	// PointerFields lists the field names requiring a recursive release,
	// i.e. fields whose type lowers to a heap pointer (String, List,
	// Matrix, Pairs, another class, Future).
	PointerFields []string
	Size          int // total payload size in bytes
}
