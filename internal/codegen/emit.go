package codegen

import (
	"math"

	"github.com/cwbudde/clean-wasmc/pkg/wasmbin"
)

// emitter accumulates one function body's instruction bytes. It is the
// WASM analogue of the teacher's Chunk.Write* family
// (_examples/CWBudde-go-dws/internal/bytecode/bytecode.go), trading
// opcode+operand byte writes against a relative-jump VM for opcode+LEB128
// writes against a structured-control-flow target.
type emitter struct {
	buf []byte
}

func (e *emitter) op(o op) { e.buf = append(e.buf, byte(o)) }

func (e *emitter) u32(v uint32) { e.buf = wasmbin.PutUvarint(e.buf, uint64(v)) }

func (e *emitter) block(bt blockType) {
	e.op(opBlock)
	e.buf = append(e.buf, byte(bt))
}

func (e *emitter) loop(bt blockType) {
	e.op(opLoop)
	e.buf = append(e.buf, byte(bt))
}

func (e *emitter) ifStart(bt blockType) {
	e.op(opIf)
	e.buf = append(e.buf, byte(bt))
}

func (e *emitter) elseStart() { e.op(opElse) }
func (e *emitter) end()       { e.op(opEnd) }

func (e *emitter) br(labelDepth uint32) {
	e.op(opBr)
	e.u32(labelDepth)
}

func (e *emitter) brIf(labelDepth uint32) {
	e.op(opBrIf)
	e.u32(labelDepth)
}

func (e *emitter) call(funcIdx uint32) {
	e.op(opCall)
	e.u32(funcIdx)
}

func (e *emitter) ret()  { e.op(opReturn) }
func (e *emitter) drop() { e.op(opDrop) }

func (e *emitter) localGet(slot uint32) {
	e.op(opLocalGet)
	e.u32(slot)
}

func (e *emitter) localSet(slot uint32) {
	e.op(opLocalSet)
	e.u32(slot)
}

func (e *emitter) localTee(slot uint32) {
	e.op(opLocalTee)
	e.u32(slot)
}

func (e *emitter) globalGet(idx uint32) {
	e.op(opGlobalGet)
	e.u32(idx)
}

func (e *emitter) i32Const(v int32) {
	e.op(opI32Const)
	e.buf = wasmbin.PutVarint(e.buf, int64(v))
}

func (e *emitter) i64Const(v int64) {
	e.op(opI64Const)
	e.buf = wasmbin.PutVarint(e.buf, v)
}

func (e *emitter) f64Const(v float64) {
	e.op(opF64Const)
	e.buf = append(e.buf, wasmbin.Float64Bytes(math.Float64bits(v))...)
}

// memArg writes the (align, offset) pair every load/store instruction
// carries; align is expressed as log2 of the natural alignment.
func (e *emitter) memArg(align, offset uint32) {
	e.u32(align)
	e.u32(offset)
}

func (e *emitter) i32Load(offset uint32)  { e.op(opI32Load); e.memArg(2, offset) }
func (e *emitter) f64Load(offset uint32)  { e.op(opF64Load); e.memArg(3, offset) }
func (e *emitter) i32Store(offset uint32) { e.op(opI32Store); e.memArg(2, offset) }
func (e *emitter) f64Store(offset uint32) { e.op(opF64Store); e.memArg(3, offset) }

func (e *emitter) i32Load8U(offset uint32) { e.op(opI32Load8U); e.memArg(0, offset) }
func (e *emitter) i32Store8(offset uint32) { e.op(opI32Store8); e.memArg(0, offset) }

func (e *emitter) bytes() []byte { return e.buf }
