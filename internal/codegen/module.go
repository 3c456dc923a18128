package codegen

import (
	"github.com/cwbudde/clean-wasmc/internal/ast"
	"github.com/cwbudde/clean-wasmc/internal/builtins"
	"github.com/cwbudde/clean-wasmc/internal/diag"
	"github.com/cwbudde/clean-wasmc/internal/memlayout"
	"github.com/cwbudde/clean-wasmc/internal/semantic"
	"github.com/cwbudde/clean-wasmc/internal/types"
	"github.com/cwbudde/clean-wasmc/pkg/wasmbin"
)

// Codegen is the top-level lowering state for one compilation unit. It
// plays the role the teacher's internal/bytecode.Compiler plays at module
// scope: one pass assigning every function a stable index, a second
// emitting each body against those now-fixed indices.
type Codegen struct {
	prog   *ast.Program
	result *semantic.Result
	diags  diag.Diagnostics

	classes      map[string]*semantic.ClassInfo
	classLayouts map[string]*memlayout.ClassLayout

	mod *wasmbin.Module

	retainFuncIdx          uint32
	releaseFuncIdx         uint32
	releaseElementsFuncIdx uint32
	stringConcatFuncIdx    uint32
	stringLengthFuncIdx    uint32
	stringContainsFuncIdx  uint32
	listLengthFuncIdx      uint32
	listGetFuncIdx         uint32
	listSetFuncIdx         uint32
	listPushFuncIdx        uint32
	mustBeTrueFuncIdx      uint32
	mustBeEqualFuncIdx     uint32
	intToStringFuncIdx     uint32
	boolToStringFuncIdx    uint32
	numberToStringFuncIdx  uint32

	mallocImportIdx     uint32
	freeImportIdx       uint32
	printImportIdx      uint32
	printlnImportIdx    uint32
	assertFailImportIdx uint32
	raiseImportIdx      uint32

	constructorFuncIdx map[string]uint32
	helperIdx          map[string]uint32
	globalIdx          map[string]uint32

	stringPool     map[string]int32
	nextDataOffset int32
}

// Generate lowers a type-checked program into a complete WASM 1.0 module.
// result must be the *semantic.Result the same program was already
// checked with — Generate trusts its ExprTypes/Classes/Functions tables
// rather than re-deriving them.
func Generate(prog *ast.Program, result *semantic.Result) (*wasmbin.Module, []diag.Diagnostic) {
	cg := &Codegen{
		prog:               prog,
		result:             result,
		classes:            result.Classes,
		mod:                &wasmbin.Module{},
		constructorFuncIdx: make(map[string]uint32),
		helperIdx:          make(map[string]uint32),
		stringPool:         make(map[string]int32),
	}
	cg.layoutClasses()
	cg.declareImports()
	cg.declareHelpers()
	cg.assignUserFunctionIndices()
	cg.emitHelperBodies()
	cg.emitUserFunctionBodies()
	cg.finalizeMemoryAndExports()
	return cg.mod, cg.diags.All()
}

// addFuncType appends a fresh type-section entry and returns its index;
// no deduplication is attempted (correct, if slightly larger than a
// hand-tuned table — acceptable for a compiler whose module sizes are
// small programs, not a systems binary).
func (cg *Codegen) addFuncType(params []wasmbin.ValType, results []wasmbin.ValType) uint32 {
	cg.mod.Types = append(cg.mod.Types, wasmbin.FuncType{Params: params, Results: results})
	return uint32(len(cg.mod.Types) - 1)
}

func (cg *Codegen) declareImports() {
	for _, im := range builtins.HostImports {
		typeIdx := cg.addFuncType(im.Params, im.Results)
		cg.mod.Imports = append(cg.mod.Imports, wasmbin.Import{
			Module: "env", Name: im.Name, Kind: wasmbin.ImportFunc, TypeIdx: typeIdx,
		})
		idx := uint32(len(cg.mod.Imports) - 1)
		switch im.Name {
		case "malloc":
			cg.mallocImportIdx = idx
		case "free":
			cg.freeImportIdx = idx
		case "print":
			cg.printImportIdx = idx
		case "println":
			cg.printlnImportIdx = idx
		case "__assert_fail":
			cg.assertFailImportIdx = idx
		case "__raise":
			cg.raiseImportIdx = idx
		}
	}
}

// nextFuncIdx is the function index the next non-imported function
// (helper or user function) will receive: imported functions occupy
// indices [0, len(Imports)), and every function appended to mod.Funcs
// after that keeps counting up from there.
func (cg *Codegen) nextFuncIdx() uint32 {
	return uint32(len(cg.mod.Imports) + len(cg.mod.Funcs))
}

// declareHelpers reserves a function index (and its type-section entry)
// for every generated runtime helper, before any body is emitted — the
// bodies below call each other and into user code by these now-fixed
// indices, so allocation must happen as one pass ahead of emission.
func (cg *Codegen) declareHelpers() {
	i32 := []wasmbin.ValType{wasmbin.I32}
	i32i32 := []wasmbin.ValType{wasmbin.I32, wasmbin.I32}
	i32i32i32 := []wasmbin.ValType{wasmbin.I32, wasmbin.I32, wasmbin.I32}

	reserve := func(params []wasmbin.ValType, results []wasmbin.ValType) uint32 {
		cg.mod.FuncTypeIdx = append(cg.mod.FuncTypeIdx, cg.addFuncType(params, results))
		cg.mod.Funcs = append(cg.mod.Funcs, wasmbin.Function{}) // placeholder, filled by emitHelperBodies
		return cg.nextFuncIdx() - 1
	}

	cg.retainFuncIdx = reserve(i32, i32)
	cg.releaseFuncIdx = reserve(i32, nil)
	cg.releaseElementsFuncIdx = reserve(i32, nil)
	cg.stringConcatFuncIdx = reserve(i32i32, i32)
	cg.stringLengthFuncIdx = reserve(i32, i32)
	cg.stringContainsFuncIdx = reserve(i32i32, i32)
	cg.listLengthFuncIdx = reserve(i32, i32)
	cg.listGetFuncIdx = reserve(i32i32, i32)
	cg.listSetFuncIdx = reserve(i32i32i32, nil)
	cg.listPushFuncIdx = reserve(i32i32, nil)
	cg.mustBeTrueFuncIdx = reserve(i32, nil)
	cg.mustBeEqualFuncIdx = reserve(i32i32, nil)
	cg.intToStringFuncIdx = reserve(i32, i32)
	cg.boolToStringFuncIdx = reserve(i32, i32)
	cg.numberToStringFuncIdx = reserve([]wasmbin.ValType{wasmbin.F64}, i32)

	cg.helperIdx["String.length"] = cg.stringLengthFuncIdx
	cg.helperIdx["String.concat"] = cg.stringConcatFuncIdx
	cg.helperIdx["String.contains"] = cg.stringContainsFuncIdx
	cg.helperIdx["List.length"] = cg.listLengthFuncIdx
	cg.helperIdx["List.get"] = cg.listGetFuncIdx
	cg.helperIdx["List.set"] = cg.listSetFuncIdx
	cg.helperIdx["List.push"] = cg.listPushFuncIdx
	cg.helperIdx["mustBeTrue"] = cg.mustBeTrueFuncIdx
	cg.helperIdx["mustBeEqual"] = cg.mustBeEqualFuncIdx
}

func (cg *Codegen) helperFuncIdx(name string) uint32 { return cg.helperIdx[name] }

func (cg *Codegen) emitHelperBodies() {
	set := func(idx uint32, nLocals int, body []byte) {
		decls := make([]wasmbin.Local, nLocals)
		for i := range decls {
			decls[i] = wasmbin.Local{Count: 1, Type: wasmbin.I32}
		}
		cg.mod.Funcs[idx-uint32(len(cg.mod.Imports))] = wasmbin.Function{Locals: decls, Body: body}
	}
	set(cg.retainFuncIdx, 1, buildRetainHelper())
	set(cg.releaseFuncIdx, 3, buildReleaseHelper(cg))
	set(cg.releaseElementsFuncIdx, 2, buildReleaseElementsHelper(cg))
	set(cg.stringConcatFuncIdx, 4, buildConcatHelper(cg))
	set(cg.stringLengthFuncIdx, 0, buildStringLengthHelper())
	set(cg.stringContainsFuncIdx, 5, buildStringContainsHelper(cg))
	set(cg.listLengthFuncIdx, 0, buildListLengthHelper())
	set(cg.listGetFuncIdx, 0, buildListGetHelper())
	set(cg.listSetFuncIdx, 0, buildListSetHelper())
	set(cg.listPushFuncIdx, 1, buildListPushHelper())
	set(cg.mustBeTrueFuncIdx, 0, buildMustBeTrueHelper(cg))
	set(cg.mustBeEqualFuncIdx, 0, buildMustBeEqualHelper(cg))
	set(cg.intToStringFuncIdx, 7, buildIntToStringHelper(cg))
	truePtr := cg.internString("true")
	falsePtr := cg.internString("false")
	set(cg.boolToStringFuncIdx, 0, buildBoolToStringHelper(truePtr, falsePtr))
	set(cg.numberToStringFuncIdx, 8, buildNumberToStringHelper(cg))
}

// assignUserFunctionIndices reserves one function index per top-level
// function/test and per class constructor/method, recording it onto the
// FunctionSignature the semantic analyzer already resolved — codegen
// never re-runs overload resolution, it just stamps the Index field pass
// 2 left at its zero value.
func (cg *Codegen) assignUserFunctionIndices() {
	reserveFor := func(sig *types.FunctionSignature, nParams int, hasResult bool) {
		params := make([]wasmbin.ValType, nParams)
		for i := range params {
			params[i] = wasmbin.I32
		}
		var results []wasmbin.ValType
		if hasResult {
			results = []wasmbin.ValType{wasmbin.I32}
		}
		if sig != nil {
			for i, p := range sig.Params {
				params[i] = wasmType(p)
			}
			if sig.Result != nil && !types.Equal(sig.Result, types.Void) {
				results = []wasmbin.ValType{wasmType(sig.Result)}
			} else {
				results = nil
			}
		}
		cg.mod.FuncTypeIdx = append(cg.mod.FuncTypeIdx, cg.addFuncType(params, results))
		cg.mod.Funcs = append(cg.mod.Funcs, wasmbin.Function{})
		idx := cg.nextFuncIdx() - 1
		if sig != nil {
			sig.Index = int(idx)
		}
	}

	for _, fn := range cg.prog.Functions {
		set := cg.result.Functions[fn.Name]
		sig := resolveByArity(set, len(fn.Params))
		reserveFor(sig, len(fn.Params), fn.ReturnType != nil)
	}
	for range cg.prog.Tests {
		reserveFor(&types.FunctionSignature{Params: nil, Result: types.Void}, 0, false)
	}
	if cg.prog.Start != nil {
		reserveFor(&types.FunctionSignature{Params: nil, Result: types.Void}, 0, false)
	}

	for _, cls := range cg.prog.Classes {
		info := cg.classes[cls.Name]
		if info == nil {
			continue
		}
		if info.Constructor != nil {
			sig := &types.FunctionSignature{Params: paramTypesOf(info.Constructor), Result: types.Void}
			// +1 for the implicit `this` receiver parameter.
			reserveFor(sig, len(info.Constructor.Params)+1, false)
			cg.constructorFuncIdx[cls.Name] = uint32(sig.Index)
		}
		for _, m := range info.Methods {
			for i, sig := range m.Signatures {
				_ = i
				reserveFor(sig, len(sig.Params)+1, sig.Result != nil && !types.Equal(sig.Result, types.Void))
			}
		}
	}
}

func paramTypesOf(fn *ast.FunctionDecl) []types.Type {
	out := make([]types.Type, len(fn.Params))
	for i := range fn.Params {
		out[i] = types.Any
	}
	return out
}

// fieldLookup mirrors semantic.Analyzer.fieldLookup (unexported there) so
// codegen can walk the same single-inheritance chain from its own
// resolved class tables.
func (cg *Codegen) fieldLookup(c *semantic.ClassInfo, name string) (*ast.Field, *semantic.ClassInfo, bool) {
	for cur := c; cur != nil; {
		if f, ok := cur.Fields[name]; ok {
			return f, cur, true
		}
		if cur.Decl.Parent == "" {
			break
		}
		cur = cg.classes[cur.Decl.Parent]
	}
	return nil, nil, false
}

// methodLookup walks the parent chain for a method overload matching the
// given arity.
func (cg *Codegen) methodLookup(c *semantic.ClassInfo, name string, arity int) (*types.FunctionSignature, bool) {
	for cur := c; cur != nil; {
		if set, ok := cur.Methods[name]; ok {
			for _, sig := range set.Signatures {
				if len(sig.Params) == arity {
					return sig, true
				}
			}
		}
		if cur.Decl.Parent == "" {
			break
		}
		cur = cg.classes[cur.Decl.Parent]
	}
	return nil, false
}

func (cg *Codegen) emitUserFunctionBodies() {
	for _, fn := range cg.prog.Functions {
		set := cg.result.Functions[fn.Name]
		sig := resolveByArity(set, len(fn.Params))
		if sig == nil {
			continue
		}
		cg.emitPlainFunction(sig, fn)
	}
	for _, fn := range cg.prog.Tests {
		cg.emitTestFunction(fn)
	}
	if cg.prog.Start != nil {
		cg.emitStartFunction(cg.prog.Start)
	}
	for _, cls := range cg.prog.Classes {
		info := cg.classes[cls.Name]
		if info == nil {
			continue
		}
		if info.Constructor != nil {
			cg.emitMethodLike(info, info.Constructor, true)
		}
		for _, m := range info.MethodDecls {
			for _, decl := range m {
				cg.emitMethodLike(info, decl, false)
			}
		}
	}
}

func paramResultTypes(fn *ast.FunctionDecl, result *semantic.Result) []types.Type {
	out := make([]types.Type, len(fn.Params))
	for i, p := range fn.Params {
		if p.Type != nil {
			out[i] = astParamType(p)
		} else {
			out[i] = types.Any
		}
	}
	return out
}

// astParamType gives a best-effort types.Type for a param's syntactic
// type, used only to pick the WASM value-type family for locals; full
// class/generic resolution already happened in pass 2 and is reflected
// in ExprTypes for every expression referencing the parameter.
func astParamType(p *ast.Param) types.Type {
	switch p.Type.Kind {
	case ast.TBoolean:
		return types.Boolean
	case ast.TInteger:
		return types.Integer
	case ast.TNumber:
		return types.Number
	case ast.TString:
		return types.Str
	case ast.TNumberSized:
		return types.NumberSized{Bits: p.Type.Bits}
	case ast.TIntegerSized:
		return types.IntegerSized{Bits: p.Type.Bits, Unsigned: p.Type.Unsigned}
	default:
		return types.Any
	}
}

func (cg *Codegen) emitPlainFunction(sig *types.FunctionSignature, fn *ast.FunctionDecl) {
	fb := newFuncBuilder(cg, nil, sig.Result)
	paramTypes := paramResultTypes(fn, cg.result)
	fb.lowerFunction(fn.Params, paramTypes, fn.Body)
	cg.mod.Funcs[sig.Index-len(cg.mod.Imports)] = fb.build()
}

func (cg *Codegen) emitTestFunction(fn *ast.FunctionDecl) {
	idx := cg.testFuncIdx(fn)
	fb := newFuncBuilder(cg, nil, types.Void)
	fb.lowerFunction(nil, nil, fn.Body)
	cg.mod.Funcs[idx-len(cg.mod.Imports)] = fb.build()
}

// testFuncIdx recovers the index assignUserFunctionIndices reserved for
// this test, by recomputing position the same deterministic way it was
// assigned (tests carry no FunctionSignature to stash an Index on).
func (cg *Codegen) testFuncIdx(fn *ast.FunctionDecl) int {
	base := int(cg.numberToStringFuncIdx) + 1 + len(cg.prog.Functions)
	for i, t := range cg.prog.Tests {
		if t == fn {
			return base + i
		}
	}
	return base
}

func (cg *Codegen) emitStartFunction(fn *ast.FunctionDecl) {
	idx := int(cg.numberToStringFuncIdx) + 1 + len(cg.prog.Functions) + len(cg.prog.Tests)
	fb := newFuncBuilder(cg, nil, types.Void)
	fb.lowerFunction(nil, nil, fn.Body)
	cg.mod.Funcs[idx-len(cg.mod.Imports)] = fb.build()
	cg.mod.Exports = append(cg.mod.Exports, wasmbin.Export{Name: "start", Kind: wasmbin.ImportFunc, Idx: uint32(idx)})
}

// emitMethodLike lowers a constructor or method body with an implicit
// `this` receiver bound to local slot 0.
func (cg *Codegen) emitMethodLike(info *semantic.ClassInfo, fn *ast.FunctionDecl, isConstructor bool) {
	var idx int
	var resultType types.Type = types.Void
	if isConstructor {
		idx = int(cg.constructorFuncIdx[info.Decl.Name])
	} else {
		set, ok := info.Methods[fn.Name]
		if !ok {
			return
		}
		sig := findSigForDecl(set, fn)
		if sig == nil {
			return
		}
		idx = sig.Index
		if sig.Result != nil {
			resultType = sig.Result
		}
	}

	fb := newFuncBuilder(cg, info, resultType)
	fb.addLocal("this", info.Type)
	fb.nParams = 1
	paramTypes := paramResultTypes(fn, cg.result)
	for i, p := range fn.Params {
		fb.addLocal(p.Name, paramTypes[i])
	}
	fb.nParams = 1 + len(fn.Params)
	fb.lowerBlock(fn.Body)
	if !isConstructor && !types.Equal(resultType, types.Void) {
		// Pass 2 already proved every path returns; this trailing
		// unreachable only satisfies the validator when the last statement
		// is an if/else whose branches both return (see lowerFunction).
		fb.e.op(opUnreachable)
	}
	cg.mod.Funcs[idx-len(cg.mod.Imports)] = fb.build()
}

func findSigForDecl(set *types.OverloadSet, fn *ast.FunctionDecl) *types.FunctionSignature {
	for _, sig := range set.Signatures {
		if len(sig.Params) == len(fn.Params) {
			return sig
		}
	}
	return nil
}

// internString interns a literal into the data section once, returning
// the pointer value (past the 16-byte header) compiled code sees —
// string literals are laid out as ordinary String objects with
// FlagInterned set, living in static memory rather than the heap, so
// release() must never free them (see buildReleaseHelper: it always
// checks the refcount, and interned strings are seeded with a refcount
// high enough it never reaches zero through ordinary retain/release
// traffic).
func (cg *Codegen) internString(s string) int32 {
	if ptr, ok := cg.stringPool[s]; ok {
		return ptr
	}
	base := cg.nextDataOffset
	if base == 0 {
		base = 1024 // leave room below for the host's own scratch use
	}
	header := make([]byte, memlayout.HeaderSize)
	putU32(header, memlayout.OffRefcount, 1<<30)
	putU32(header, memlayout.OffTypeID, uint32(memlayout.TypeString))
	putU32(header, memlayout.OffPayloadSize, uint32(len(s)))
	putU32(header, memlayout.OffFlags, memlayout.FlagInterned)
	bytes := append(header, []byte(s)...)

	cg.mod.Data = append(cg.mod.Data, wasmbin.DataSegment{Offset: base, Bytes: bytes})
	ptr := base + memlayout.HeaderSize
	cg.nextDataOffset = base + int32(len(bytes)) + 8 // padding between segments
	cg.stringPool[s] = ptr
	return ptr
}

func putU32(b []byte, off int, v uint32) {
	b[off+0] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
	b[off+3] = byte(v >> 24)
}

func (cg *Codegen) finalizeMemoryAndExports() {
	cg.mod.Memory.Min = 1
	cg.mod.Memory.Max = 16
	cg.mod.Memory.HasMax = true
	cg.mod.Exports = append(cg.mod.Exports, wasmbin.Export{Name: "memory", Kind: wasmbin.ImportMemory, Idx: 0})
}
