package codegen

import "github.com/cwbudde/clean-wasmc/internal/memlayout"

// emitIntToString emits the shared decimal-formatting body for an i32
// value already sitting in local `val0`: sign handling, a digit-counting
// pass, a malloc sized to the result, and a second pass writing digits
// back to front. Shared by intToString (val0 == the param itself) and
// numberToString (val0 == the param truncated toward zero).
func emitIntToString(e *emitter, cg *Codegen, val0, neg, val, tmp, count, total, buf, i uint32) {
	e.localGet(val0)
	e.i32Const(0)
	e.op(opI32LtS)
	e.localSet(neg)

	// val = neg ? -val0 : val0
	e.i32Const(0)
	e.localGet(val0)
	e.op(opI32Sub)
	e.localGet(val0)
	e.localGet(neg)
	e.op(opSelect)
	e.localSet(val)

	// count = number of decimal digits in val (at least 1, for val == 0)
	e.localGet(val)
	e.localSet(tmp)
	e.i32Const(0)
	e.localSet(count)
	e.block(blockVoid)
	e.loop(blockVoid)
	e.localGet(tmp)
	e.i32Const(0)
	e.op(opI32Eq)
	e.brIf(1)
	e.localGet(count)
	e.i32Const(1)
	e.op(opI32Add)
	e.localSet(count)
	e.localGet(tmp)
	e.i32Const(10)
	e.op(opI32DivS)
	e.localSet(tmp)
	e.br(0)
	e.end()
	e.end()
	e.localGet(count)
	e.i32Const(0)
	e.op(opI32Eq)
	e.ifStart(blockVoid)
	e.i32Const(1)
	e.localSet(count)
	e.end()

	// total = count + neg; buf = malloc(HeaderSize + total)
	e.localGet(count)
	e.localGet(neg)
	e.op(opI32Add)
	e.localSet(total)
	e.localGet(total)
	e.i32Const(memlayout.HeaderSize)
	e.op(opI32Add)
	e.call(cg.mallocImportIdx)
	e.localSet(buf)

	e.localGet(buf)
	e.i32Const(1)
	e.i32Store(memlayout.OffRefcount)
	e.localGet(buf)
	e.i32Const(int32(memlayout.TypeString))
	e.i32Store(memlayout.OffTypeID)
	e.localGet(buf)
	e.localGet(total)
	e.i32Store(memlayout.OffPayloadSize)
	e.localGet(buf)
	e.i32Const(0)
	e.i32Store(memlayout.OffFlags)

	e.localGet(neg)
	e.ifStart(blockVoid)
	e.localGet(buf)
	e.i32Const(memlayout.HeaderSize)
	e.op(opI32Add)
	e.i32Const('-')
	e.i32Store8(0)
	e.end()

	// i walks total-1 down to neg, writing one digit per position.
	e.localGet(total)
	e.i32Const(1)
	e.op(opI32Sub)
	e.localSet(i)
	e.block(blockVoid)
	e.loop(blockVoid)
	e.localGet(i)
	e.localGet(neg)
	e.op(opI32LtS)
	e.brIf(1)

	e.localGet(buf)
	e.i32Const(memlayout.HeaderSize)
	e.op(opI32Add)
	e.localGet(i)
	e.op(opI32Add)
	e.localGet(val)
	e.i32Const(10)
	e.op(opI32RemS)
	e.i32Const('0')
	e.op(opI32Add)
	e.i32Store8(0)

	e.localGet(val)
	e.i32Const(10)
	e.op(opI32DivS)
	e.localSet(val)
	e.localGet(i)
	e.i32Const(1)
	e.op(opI32Sub)
	e.localSet(i)
	e.br(0)
	e.end()
	e.end()

	e.localGet(buf)
	e.i32Const(memlayout.HeaderSize)
	e.op(opI32Add)
	e.ret()
}

// buildIntToStringHelper: func intToString(n i32) -> i32, decimal with an
// optional leading '-'.
func buildIntToStringHelper(cg *Codegen) []byte {
	const n = 0
	const neg, val, tmp, count, total, buf, i = 1, 2, 3, 4, 5, 6, 7
	var e emitter
	emitIntToString(&e, cg, n, neg, val, tmp, count, total, buf, i)
	return e.bytes()
}

// buildNumberToStringHelper: func numberToString(n f64) -> i32. Truncates
// toward zero and formats as a plain integer — no fractional digits are
// rendered.
func buildNumberToStringHelper(cg *Codegen) []byte {
	const n = 0
	const val0, neg, val, tmp, count, total, buf, i = 1, 2, 3, 4, 5, 6, 7, 8
	var e emitter
	e.localGet(n)
	e.op(opI32TruncF64S)
	e.localSet(val0)
	emitIntToString(&e, cg, val0, neg, val, tmp, count, total, buf, i)
	return e.bytes()
}

// buildBoolToStringHelper: func boolToString(b i32) -> i32. Returns one
// of two pre-interned constant strings; truePtr/falsePtr are the pointers
// internString already assigned before this body is built.
func buildBoolToStringHelper(truePtr, falsePtr int32) []byte {
	const b = 0
	var e emitter
	e.localGet(b)
	e.ifStart(blockI32)
	e.i32Const(truePtr)
	e.elseStart()
	e.i32Const(falsePtr)
	e.end()
	return e.bytes()
}
