package codegen

import "github.com/cwbudde/clean-wasmc/internal/memlayout"

// This file builds the WASM bodies for the StrategyHelper builtins spec
// §4.7 declares (internal/builtins/registry.go). Each is a small, hand-
// emitted function in the same idiom as strings.go's stringConcat/
// stringLength: raw header/payload arithmetic, no bulk-memory ops.

// buildListLengthHelper: func listLength(list i32) -> i32
func buildListLengthHelper() []byte {
	const list = 0
	var e emitter
	e.localGet(list)
	e.i32Load(memlayout.ListOffLength)
	e.ret()
	return e.bytes()
}

// buildListGetHelper: func listGet(list i32, idx i32) -> i32
func buildListGetHelper() []byte {
	const list, idx = 0, 1
	var e emitter
	e.localGet(list)
	e.i32Const(memlayout.ListOffElements)
	e.op(opI32Add)
	e.localGet(idx)
	e.i32Const(memlayout.ListElementSize)
	e.op(opI32Mul)
	e.op(opI32Add)
	e.i32Load(0)
	e.ret()
	return e.bytes()
}

// buildListSetHelper: func listSet(list i32, idx i32, val i32). Overwrites
// the slot directly; retain/release of the displaced element (spec §9's
// SiteContainerStore) is the caller's responsibility, inserted around the
// call the same way it is for a plain assignment.
func buildListSetHelper() []byte {
	const list, idx, val = 0, 1, 2
	var e emitter
	e.localGet(list)
	e.i32Const(memlayout.ListOffElements)
	e.op(opI32Add)
	e.localGet(idx)
	e.i32Const(memlayout.ListElementSize)
	e.op(opI32Mul)
	e.op(opI32Add)
	e.localGet(val)
	e.i32Store(0)
	return e.bytes()
}

// buildListPushHelper: func listPush(list i32, val i32). Appends at
// length, then increments length. Growth beyond the capacity recorded at
// construction is not implemented — a list literal is allocated with a
// capacity equal to its element count, and push past capacity traps
// (unreachable) instead of reallocating.
func buildListPushHelper() []byte {
	const list, val, length = 0, 1, 2
	var e emitter
	e.localGet(list)
	e.i32Load(memlayout.ListOffLength)
	e.localSet(length)

	e.localGet(length)
	e.localGet(list)
	e.i32Load(memlayout.ListOffCapacity)
	e.op(opI32GeS)
	e.ifStart(blockVoid)
	e.op(opUnreachable)
	e.end()

	e.localGet(list)
	e.i32Const(memlayout.ListOffElements)
	e.op(opI32Add)
	e.localGet(length)
	e.i32Const(memlayout.ListElementSize)
	e.op(opI32Mul)
	e.op(opI32Add)
	e.localGet(val)
	e.i32Store(0)

	e.localGet(list)
	e.localGet(length)
	e.i32Const(1)
	e.op(opI32Add)
	e.i32Store(memlayout.ListOffLength)
	return e.bytes()
}

// buildStringContainsHelper: func stringContains(s i32, sub i32) -> i32
// (0/1). Naive quadratic substring search — correct, not optimized;
// Clean source strings are expected to be short (spec has no streaming
// string type).
func buildStringContainsHelper(cg *Codegen) []byte {
	const s, sub = 0, 1
	const sLen, subLen, i, j, found = 2, 3, 4, 5, 6
	var e emitter

	e.localGet(s)
	e.call(cg.stringLengthFuncIdx)
	e.localSet(sLen)
	e.localGet(sub)
	e.call(cg.stringLengthFuncIdx)
	e.localSet(subLen)

	e.i32Const(0)
	e.localSet(found)
	e.i32Const(0)
	e.localSet(i)

	// outer: for i in 0..sLen-subLen+1, try match at i
	e.block(blockVoid)
	e.loop(blockVoid)
	e.localGet(i)
	e.localGet(sLen)
	e.localGet(subLen)
	e.op(opI32Sub)
	e.op(opI32GtS) // i > sLen-subLen -> no room left, exit
	e.brIf(1)

	e.i32Const(1)
	e.localSet(found)
	e.i32Const(0)
	e.localSet(j)
	e.block(blockVoid)
	e.loop(blockVoid)
	e.localGet(j)
	e.localGet(subLen)
	e.op(opI32GeS)
	e.brIf(1) // matched all of sub at this i

	e.localGet(s)
	e.localGet(i)
	e.op(opI32Add)
	e.i32Load8U(0)
	e.localGet(sub)
	e.localGet(j)
	e.op(opI32Add)
	e.i32Load8U(0)
	e.op(opI32Ne)
	e.ifStart(blockVoid)
	e.i32Const(0)
	e.localSet(found)
	e.br(2) // exit inner block: this i doesn't match, fall through to i++
	e.end()

	e.localGet(j)
	e.i32Const(1)
	e.op(opI32Add)
	e.localSet(j)
	e.br(0)
	e.end()
	e.end()

	e.localGet(found)
	e.ifStart(blockVoid)
	e.br(2) // exit outer block: match found
	e.end()

	e.localGet(i)
	e.i32Const(1)
	e.op(opI32Add)
	e.localSet(i)
	e.br(0)
	e.end()
	e.end()

	e.localGet(found)
	e.ret()
	return e.bytes()
}

// buildMustBeTrueHelper: func mustBeTrue(cond i32). Traps into the host's
// assertion failure path when cond is false (spec §4.7's test-assertion
// surface, wired onto the __assert_fail host import from spec §7).
func buildMustBeTrueHelper(cg *Codegen) []byte {
	const cond = 0
	var e emitter
	e.localGet(cond)
	e.op(opI32Eqz)
	e.ifStart(blockVoid)
	e.i32Const(0)
	e.i32Const(0)
	e.call(cg.assertFailImportIdx)
	e.end()
	return e.bytes()
}

// buildMustBeEqualHelper: func mustBeEqual(a i32, b i32). Raw i32
// equality — correct for every value type that lowers to i32 (Boolean,
// Integer, String pointer identity, List/Matrix/Pairs/Class pointer
// identity). Structural string/float equality is not implemented.
func buildMustBeEqualHelper(cg *Codegen) []byte {
	const a, b = 0, 1
	var e emitter
	e.localGet(a)
	e.localGet(b)
	e.op(opI32Ne)
	e.ifStart(blockVoid)
	e.i32Const(0)
	e.i32Const(0)
	e.call(cg.assertFailImportIdx)
	e.end()
	return e.bytes()
}
