package codegen

import "github.com/cwbudde/clean-wasmc/internal/memlayout"

// copyLoop emits the standard WASM `block { loop { ...; br_if 1; ...; br 0 } }`
// idiom for `while i < limit { dstOff[i] = srcOff[i]; i++ }`, advancing the
// destination/source base addresses already pushed by dstBase/srcBase.
func copyLoop(e *emitter, i, limit uint32, body func()) {
	e.block(blockVoid)
	e.loop(blockVoid)
	e.localGet(i)
	e.localGet(limit)
	e.op(opI32GeS)
	e.brIf(1)
	body()
	e.localGet(i)
	e.i32Const(1)
	e.op(opI32Add)
	e.localSet(i)
	e.br(0)
	e.end()
	e.end()
}

// buildConcatHelper emits `func stringConcat(a i32, b i32) -> i32`: malloc
// a new String object sized len(a)+len(b), copy both payloads into it byte
// by byte (WASM 1.0 has no bulk-memory copy instruction), and return the
// new pointer. The two operands are not released here — callers already
// hold retains on them per spec §9 and release after the call returns.
func buildConcatHelper(cg *Codegen) []byte {
	const a, b = 0, 1
	const lenA, lenB, dst, i = 2, 3, 4, 5
	var e emitter

	e.localGet(a)
	e.i32Const(memlayout.HeaderSize)
	e.op(opI32Sub)
	e.i32Load(memlayout.OffPayloadSize)
	e.localSet(lenA)

	e.localGet(b)
	e.i32Const(memlayout.HeaderSize)
	e.op(opI32Sub)
	e.i32Load(memlayout.OffPayloadSize)
	e.localSet(lenB)

	// dst = malloc(HeaderSize + lenA + lenB)
	e.localGet(lenA)
	e.localGet(lenB)
	e.op(opI32Add)
	e.i32Const(memlayout.HeaderSize)
	e.op(opI32Add)
	e.call(cg.mallocImportIdx)
	e.localSet(dst)

	// header: refcount=1, type_id=String, payload_size=lenA+lenB, flags=0
	e.localGet(dst)
	e.i32Const(1)
	e.i32Store(memlayout.OffRefcount)
	e.localGet(dst)
	e.i32Const(int32(memlayout.TypeString))
	e.i32Store(memlayout.OffTypeID)
	e.localGet(dst)
	e.localGet(lenA)
	e.localGet(lenB)
	e.op(opI32Add)
	e.i32Store(memlayout.OffPayloadSize)
	e.localGet(dst)
	e.i32Const(0)
	e.i32Store(memlayout.OffFlags)

	// copy a's payload into dst[0:lenA]
	e.i32Const(0)
	e.localSet(i)
	copyLoop(&e, i, lenA, func() {
		e.localGet(dst)
		e.i32Const(memlayout.HeaderSize)
		e.op(opI32Add)
		e.localGet(i)
		e.op(opI32Add)
		e.localGet(a)
		e.localGet(i)
		e.op(opI32Add)
		e.i32Load8U(0)
		e.i32Store8(0)
	})

	// copy b's payload into dst[lenA:lenA+lenB]
	e.i32Const(0)
	e.localSet(i)
	copyLoop(&e, i, lenB, func() {
		e.localGet(dst)
		e.i32Const(memlayout.HeaderSize)
		e.op(opI32Add)
		e.localGet(lenA)
		e.op(opI32Add)
		e.localGet(i)
		e.op(opI32Add)
		e.localGet(b)
		e.i32Const(memlayout.HeaderSize)
		e.op(opI32Add)
		e.localGet(i)
		e.op(opI32Add)
		e.i32Load8U(0)
		e.i32Store8(0)
	})

	e.localGet(dst)
	e.i32Const(memlayout.HeaderSize)
	e.op(opI32Add)
	e.ret()
	return e.bytes()
}

// buildStringLengthHelper emits `func stringLength(s i32) -> i32`: read the
// payload size out of the header.
func buildStringLengthHelper() []byte {
	const s = 0
	var e emitter
	e.localGet(s)
	e.i32Const(memlayout.HeaderSize)
	e.op(opI32Sub)
	e.i32Load(memlayout.OffPayloadSize)
	e.ret()
	return e.bytes()
}

// buildReleaseElementsHelper emits `func releaseElements(ptr i32)`, called
// from release() for the List/Matrix/Pairs builtin type IDs once the
// header's refcount has already hit zero: walks every element slot and
// calls release on it. The compiler only routes a collection's release
// through this helper when its element type is itself a heap pointer
// (tracked alongside the List/Matrix/Pairs instantiation site); scalar-
// element collections are freed directly by release() without visiting
// elements. Matrix/Pairs element spines share this same linear-scan shape
// (see memlayout's MatrixOffElements/PairsOffEntries); only the List case
// is wired through codegen today — see DESIGN.md for the Matrix/Pairs gap.
func buildReleaseElementsHelper(cg *Codegen) []byte {
	const ptr = 0
	const count, i = 1, 2
	var e emitter

	e.localGet(ptr)
	e.i32Load(memlayout.ListOffLength)
	e.localSet(count)

	e.i32Const(0)
	e.localSet(i)
	copyLoop(&e, i, count, func() {
		e.localGet(ptr)
		e.i32Const(memlayout.ListOffElements)
		e.op(opI32Add)
		e.localGet(i)
		e.i32Const(memlayout.ListElementSize)
		e.op(opI32Mul)
		e.op(opI32Add)
		e.i32Load(0)
		e.call(cg.releaseFuncIdx)
	})
	return e.bytes()
}
