// Package codegen lowers a type-checked *ast.Program (plus the
// *semantic.Result pass 2 produced) into a WebAssembly 1.0 *wasmbin.Module
// (spec §4.6). It plays the role the teacher's internal/bytecode.Compiler
// plays for DWScript bytecode — scope-depth tracked locals, a loop-context
// stack for break/continue, one emission pass per function body — adapted
// from the teacher's relative-jump bytecode to WASM's structured block/
// loop/br control flow, which needs label depths instead of patch lists.
package codegen

// op is a raw WASM 1.0 instruction opcode byte.
type op byte

const (
	opUnreachable op = 0x00
	opNop         op = 0x01
	opBlock       op = 0x02
	opLoop        op = 0x03
	opIf          op = 0x04
	opElse        op = 0x05
	opEnd         op = 0x0b
	opBr          op = 0x0c
	opBrIf        op = 0x0d
	opReturn      op = 0x0f
	opCall        op = 0x10

	opDrop   op = 0x1a
	opSelect op = 0x1b

	opLocalGet  op = 0x20
	opLocalSet  op = 0x21
	opLocalTee  op = 0x22
	opGlobalGet op = 0x23
	opGlobalSet op = 0x24

	opI32Load op = 0x28
	opI64Load op = 0x29
	opF32Load op = 0x2a
	opF64Load op = 0x2b

	opI32Load8U op = 0x2d

	opI32Store8 op = 0x3a

	opI32Store op = 0x36
	opI64Store op = 0x37
	opF32Store op = 0x38
	opF64Store op = 0x39

	opI32Const op = 0x41
	opI64Const op = 0x42
	opF32Const op = 0x43
	opF64Const op = 0x44

	opI32Eqz op = 0x45
	opI32Eq  op = 0x46
	opI32Ne  op = 0x47
	opI32LtS op = 0x48
	opI32GtS op = 0x4a
	opI32LeS op = 0x4c
	opI32GeS op = 0x4e

	opI64Eqz op = 0x50
	opI64Eq  op = 0x51
	opI64Ne  op = 0x52

	opF64Eq op = 0x61
	opF64Ne op = 0x62
	opF64Lt op = 0x63
	opF64Gt op = 0x64
	opF64Le op = 0x65
	opF64Ge op = 0x66

	opI32Clz    op = 0x67
	opI32Add    op = 0x6a
	opI32Sub    op = 0x6b
	opI32Mul    op = 0x6c
	opI32DivS   op = 0x6d
	opI32RemS   op = 0x6f
	opI32And    op = 0x71
	opI32Or     op = 0x72
	opI32Xor    op = 0x73
	opI32ShrS   op = 0x75

	opI64Add op = 0x7c
	opI64Sub op = 0x7d
	opI64Mul op = 0x7e
	opI64DivS op = 0x7f

	opF64Abs  op = 0x99
	opF64Neg  op = 0x9a
	opF64Ceil op = 0x9b
	opF64Floor op = 0x9c
	opF64Sqrt op = 0x9f
	opF64Add  op = 0xa0
	opF64Sub  op = 0xa1
	opF64Mul  op = 0xa2
	opF64Div  op = 0xa3

	opI32WrapI64    op = 0xa7
	opI32TruncF64S  op = 0xaa
	opI64ExtendI32S op = 0xac
	opF64ConvertI32S op = 0xb7
	opF32DemoteF64  op = 0xb6
	opF64PromoteF32 op = 0xbb
)

// blockType marks an empty (Void) or single-i32/f64-result block/if/loop
// header; WASM 1.0 only allows those two shapes (no multi-value).
type blockType byte

const (
	blockVoid blockType = 0x40
	blockI32  blockType = 0x7f // wasmbin.I32, spelled out: no i32-typed block result needs the dedicated ValType import here
)
