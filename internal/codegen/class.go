package codegen

import (
	"sort"

	"github.com/cwbudde/clean-wasmc/internal/ast"
	"github.com/cwbudde/clean-wasmc/internal/memlayout"
	"github.com/cwbudde/clean-wasmc/internal/semantic"
)

// layoutClasses assigns each user class a memlayout.ClassLayout: a stable
// TypeID (in class-name order, starting at memlayout.FirstUserClassTypeID so
// user classes never collide with the built-in String/List/Matrix/Pairs
// IDs), a byte offset for every field, and the subset of fields that are
// heap pointers needing a recursive release.
func (cg *Codegen) layoutClasses() {
	names := make([]string, 0, len(cg.classes))
	for name := range cg.classes {
		names = append(names, name)
	}
	sort.Strings(names)

	cg.classLayouts = make(map[string]*memlayout.ClassLayout, len(names))
	nextID := memlayout.FirstUserClassTypeID
	for _, name := range names {
		info := cg.classes[name]
		layout := &memlayout.ClassLayout{
			TypeID:       nextID,
			FieldOffsets: make(map[string]int),
		}
		nextID++
		// Own fields start after every inherited field slot, so a parent's
		// layout is a prefix of each subclass's.
		offset := 0
		for p, n := info.Decl.Parent, 0; p != "" && n < len(cg.classes); n++ {
			pi := cg.classes[p]
			if pi == nil {
				break
			}
			offset += 4 * len(pi.Decl.Fields)
			p = pi.Decl.Parent
		}
		for _, fieldName := range cg.orderedFields(info) {
			field := info.Fields[fieldName]
			layout.FieldOffsets[fieldName] = offset
			offset += 4 // every field slot is a 32-bit raw value or pointer
			if fieldIsHeapPointer(field) {
				layout.PointerFields = append(layout.PointerFields, fieldName)
			}
		}
		layout.Size = offset
		cg.classLayouts[name] = layout
	}
}

// orderedFields returns a class's own (non-inherited) field names in
// declaration order; parent fields get their own offsets in the parent's
// layout and are reached through a parent-struct prefix, mirroring
// single-inheritance layout the way the teacher lays out its own Instance
// record (_examples/CWBudde-go-dws/internal/runtime/instance.go).
func (cg *Codegen) orderedFields(info *semantic.ClassInfo) []string {
	names := make([]string, 0, len(info.Decl.Fields))
	for _, f := range info.Decl.Fields {
		names = append(names, f.Name)
	}
	return names
}

// fieldIsHeapPointer reports whether a field's syntactic type lowers to a
// heap pointer, by TypeKind alone — mirrors isHeapPointer's classification
// of resolved types.Type without needing the resolved type on hand.
func fieldIsHeapPointer(f *ast.Field) bool {
	switch f.Type.Kind {
	case ast.TString, ast.TList, ast.TMatrix, ast.TPairs, ast.TClass, ast.TFuture:
		return true
	}
	return false
}

// emitDeepRelease writes the refcount-zero fallthrough: for each known user
// class, compare the header's type_id and, on match, release every
// pointer-typed field. Falls through untouched for the built-in String
// (no pointer fields) and List/Matrix/Pairs (handled by their own
// generated element-release loop, built alongside them in strings.go).
func (cg *Codegen) emitDeepRelease(e *emitter, ptr, headerPtr int) {
	const typeIDLocal = releaseHelperTypeIDLocal
	e.localGet(uint32(headerPtr))
	e.i32Load(memlayout.OffTypeID)
	e.localSet(uint32(typeIDLocal))

	names := make([]string, 0, len(cg.classLayouts))
	for name := range cg.classLayouts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		layout := cg.classLayouts[name]
		if len(layout.PointerFields) == 0 {
			continue
		}
		e.localGet(uint32(typeIDLocal))
		e.i32Const(int32(layout.TypeID))
		e.op(opI32Eq)
		e.ifStart(blockVoid)
		for _, fieldName := range layout.PointerFields {
			off := uint32(layout.FieldOffsets[fieldName])
			e.localGet(uint32(ptr))
			e.i32Load(off)
			e.call(cg.releaseFuncIdx)
		}
		e.end()
	}

	// List/Matrix/Pairs element spines: release every slot when the
	// element type is itself a heap pointer. The generated String/List/
	// Matrix/Pairs helpers in strings.go track which collections hold
	// pointer elements; the release dispatcher here only needs to call
	// into the shared element-release loop for the three builtin IDs.
	for _, builtinID := range []memlayout.TypeID{memlayout.TypeList, memlayout.TypeMatrix, memlayout.TypePairs} {
		e.localGet(uint32(typeIDLocal))
		e.i32Const(int32(builtinID))
		e.op(opI32Eq)
		e.ifStart(blockVoid)
		e.localGet(uint32(ptr))
		e.call(cg.releaseElementsFuncIdx)
		e.end()
	}
}
