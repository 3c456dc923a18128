package codegen

import (
	"github.com/cwbudde/clean-wasmc/internal/memlayout"
	"github.com/cwbudde/clean-wasmc/internal/types"
)

// emitRetain emits `call $retain` for the pointer currently on top of the
// stack, leaving the (unchanged) pointer on the stack — spec §9's
// SiteAssignment/SiteParameterPass/SiteContainerStore insertion points all
// funnel through this one helper call. t is unused by the call itself; it's
// accepted so call sites that branch on heap-ness read naturally.
func (fb *funcBuilder) emitRetain(t types.Type) {
	fb.e.call(fb.cg.retainFuncIdx)
}

// emitRelease emits `call $release` for the pointer on top of the stack.
// release is type-generic: it reads type_id out of the object header.
func (fb *funcBuilder) emitRelease(t types.Type) {
	fb.e.call(fb.cg.releaseFuncIdx)
}

// buildRetainHelper emits `func retain(ptr i32) -> i32`: increment the
// header refcount and return ptr unchanged. Pointers handed to compiled
// code point past the 16-byte header (memlayout.HeaderSize), so every
// header access first subtracts HeaderSize to reach the field.
func buildRetainHelper() []byte {
	const ptr = 0
	const headerPtr = 1
	var e emitter
	e.localGet(ptr)
	e.i32Const(memlayout.HeaderSize)
	e.op(opI32Sub)
	e.localSet(headerPtr)

	e.localGet(headerPtr)
	e.localGet(headerPtr)
	e.i32Load(memlayout.OffRefcount)
	e.i32Const(1)
	e.op(opI32Add)
	e.i32Store(memlayout.OffRefcount)

	e.localGet(ptr)
	e.ret()
	return e.bytes()
}

// releaseHelperTypeIDLocal is the release() helper's fourth local
// (ptr=0, headerPtr=1, rc=2, type_id=3), used by emitDeepRelease's
// dispatch chain in class.go.
const releaseHelperTypeIDLocal = 3

// buildReleaseHelper emits `func release(ptr i32)`: decrement the header
// refcount; when it reaches zero, deep-release every pointer-typed field
// (dispatched on type_id via the per-class table the code generator
// fills in) and free the block. Deep release goes one level into List/
// Matrix/Pairs element spines and class fields; it does not break cycles
// (spec §4.5's explicit non-goal).
func buildReleaseHelper(cg *Codegen) []byte {
	const ptr = 0
	const headerPtr = 1
	const rc = 2
	var e emitter

	e.localGet(ptr)
	e.i32Const(memlayout.HeaderSize)
	e.op(opI32Sub)
	e.localSet(headerPtr)

	e.localGet(headerPtr)
	e.i32Load(memlayout.OffRefcount)
	e.i32Const(1)
	e.op(opI32Sub)
	e.localTee(rc)
	e.i32Const(0)
	e.op(opI32GtS)
	e.ifStart(blockVoid)
	e.localGet(headerPtr)
	e.localGet(rc)
	e.i32Store(memlayout.OffRefcount)
	e.elseStart()
	cg.emitDeepRelease(&e, ptr, headerPtr)
	e.localGet(ptr)
	e.call(cg.freeImportIdx)
	e.end()
	return e.bytes()
}
