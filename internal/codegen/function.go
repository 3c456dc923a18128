package codegen

import (
	"github.com/cwbudde/clean-wasmc/internal/ast"
	"github.com/cwbudde/clean-wasmc/internal/semantic"
	"github.com/cwbudde/clean-wasmc/internal/types"
	"github.com/cwbudde/clean-wasmc/pkg/wasmbin"
)

type localVar struct {
	name string
	typ  types.Type
	slot uint32
}

type loopCtx struct {
	breakAtDepth    int
	continueAtDepth int
}

// funcBuilder lowers one function or method body. It is the WASM analogue
// of the teacher's per-function Compiler state
// (_examples/CWBudde-go-dws/internal/bytecode/compiler_core.go: locals,
// scopeDepth, loopStack, nextSlot) — renamed and re-targeted at structured
// block/loop/br emission instead of patch-list jumps.
type funcBuilder struct {
	cg         *Codegen
	class      *semantic.ClassInfo // nil outside a method/constructor body
	locals     []localVar
	scopes     [][]int // stack of index-ranges into locals, for release-at-scope-exit
	byName     map[string]int
	nParams    int
	returnType types.Type
	labelDepth int
	loopStack  []loopCtx
	e          emitter

	// retainScratch/retainScratch2 are lazily-allocated locals used to
	// duplicate a value around a retain call (WASM has no stack-dup
	// instruction); two are needed where a field store must hold both the
	// receiver pointer and the new value across an intervening release call.
	retainScratch  *uint32
	retainScratch2 *uint32

	// intAbsScratch backs the integer Math.abs sequence (no native i32.abs
	// opcode in WASM 1.0), lazily allocated the first time it's needed.
	intAbsScratch *uint32
}

func newFuncBuilder(cg *Codegen, class *semantic.ClassInfo, returnType types.Type) *funcBuilder {
	return &funcBuilder{cg: cg, class: class, returnType: returnType, byName: make(map[string]int)}
}

func (fb *funcBuilder) pushScope() { fb.scopes = append(fb.scopes, nil) }

// popScope releases every heap-typed local declared in the scope being
// exited (spec §9's SiteScopeExit) and pops the bookkeeping frame.
func (fb *funcBuilder) popScope() {
	top := fb.scopes[len(fb.scopes)-1]
	for _, idx := range top {
		lv := fb.locals[idx]
		if isHeapPointer(lv.typ) {
			fb.e.localGet(lv.slot)
			fb.emitRelease(lv.typ)
		}
	}
	fb.scopes = fb.scopes[:len(fb.scopes)-1]
}

func (fb *funcBuilder) addLocal(name string, t types.Type) uint32 {
	idx := len(fb.locals)
	slot := uint32(idx)
	fb.locals = append(fb.locals, localVar{name: name, typ: t, slot: slot})
	fb.byName[name] = idx
	if len(fb.scopes) > 0 {
		top := len(fb.scopes) - 1
		fb.scopes[top] = append(fb.scopes[top], idx)
	}
	return slot
}

func (fb *funcBuilder) lookupLocal(name string) (localVar, bool) {
	idx, ok := fb.byName[name]
	if !ok {
		return localVar{}, false
	}
	return fb.locals[idx], true
}

// build assembles the final wasmbin.Function: param locals were added
// first via addLocal before lowering began, so the non-param tail of
// fb.locals becomes the function's declared local entries.
func (fb *funcBuilder) build() wasmbin.Function {
	var decls []wasmbin.Local
	for _, lv := range fb.locals[fb.nParams:] {
		decls = append(decls, wasmbin.Local{Count: 1, Type: wasmType(lv.typ)})
	}
	return wasmbin.Function{Locals: decls, Body: fb.e.bytes()}
}

func (fb *funcBuilder) openBlock() int {
	mark := fb.labelDepth
	fb.e.block(blockVoid)
	fb.labelDepth++
	return mark
}

func (fb *funcBuilder) openLoop() int {
	mark := fb.labelDepth
	fb.e.loop(blockVoid)
	fb.labelDepth++
	return mark
}

func (fb *funcBuilder) openIf() {
	fb.e.ifStart(blockVoid)
	fb.labelDepth++
}

func (fb *funcBuilder) closeLabel() {
	fb.e.end()
	fb.labelDepth--
}

func (fb *funcBuilder) breakIndex() uint32 {
	top := fb.loopStack[len(fb.loopStack)-1]
	return uint32(fb.labelDepth - top.breakAtDepth - 1)
}

func (fb *funcBuilder) continueIndex() uint32 {
	top := fb.loopStack[len(fb.loopStack)-1]
	return uint32(fb.labelDepth - top.continueAtDepth - 1)
}

// lowerFunction emits params as the first locals, then the body.
func (fb *funcBuilder) lowerFunction(params []*ast.Param, paramTypes []types.Type, body *ast.BlockStatement) {
	for i, p := range params {
		fb.addLocal(p.Name, paramTypes[i])
	}
	fb.nParams = len(params)
	fb.pushScope()
	fb.lowerBlock(body)
	fb.popScope()
	if !types.Equal(fb.returnType, types.Void) {
		// Pass 2 already proved every path returns; a trailing unreachable
		// keeps the validator happy if the last statement is (exhaustively)
		// an if/else whose branches both return.
		fb.e.op(opUnreachable)
	}
}
