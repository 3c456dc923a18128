package builtins

import "github.com/cwbudde/clean-wasmc/internal/types"

// Strategy is how a builtin's call is lowered by the code generator.
type Strategy int

const (
	StrategyNative Strategy = iota // direct WASM instruction(s)
	StrategyHelper                 // a generated function the codegen emits once
	StrategyImport                 // a host-provided import (see HostImports)
)

// Builtin is one predeclared entry of the function table, seeded before
// pass 2 of the semantic analyzer (spec §4.4, §4.7).
type Builtin struct {
	Name       string // qualified as called: "Math.sqrt", "print", "mustBeTrue"
	Signature  types.FunctionSignature
	Strategy   Strategy
	ImportName string // set when Strategy == StrategyImport; key into HostImports
}

func sig(result types.Type, params ...types.Type) types.FunctionSignature {
	return types.FunctionSignature{Params: params, Result: result}
}

// All is the complete seeded builtin set, grouped as spec §4.7 enumerates
// them. List helpers are written against Any element types
// since the builtin table is seeded once, ahead of any particular
// instantiation's type arguments — the analyzer widens at the call site
// the same way user-defined generic class methods would.
var All = buildAll()

func buildAll() []Builtin {
	var b []Builtin

	// Math.abs has both an Integer and a Number overload (spec §8's S5
	// scenario names it explicitly); sqrt/floor/ceil stay Number-only since
	// they're meaningless or redundant on an Integer argument.
	b = append(b,
		Builtin{Name: "Math.abs", Signature: sig(types.Integer, types.Integer), Strategy: StrategyNative},
		Builtin{Name: "Math.abs", Signature: sig(types.Number, types.Number), Strategy: StrategyNative},
	)
	for _, name := range []string{"sqrt", "floor", "ceil"} {
		b = append(b, Builtin{Name: "Math." + name, Signature: sig(types.Number, types.Number), Strategy: StrategyNative})
	}
	for _, name := range []string{"sin", "cos", "tan", "ln", "exp"} {
		b = append(b, Builtin{Name: "Math." + name, Signature: sig(types.Number, types.Number), Strategy: StrategyImport, ImportName: "math_" + name})
	}
	b = append(b, Builtin{Name: "Math.pi", Signature: sig(types.Number), Strategy: StrategyNative})
	b = append(b, Builtin{Name: "Math.e", Signature: sig(types.Number), Strategy: StrategyNative})

	b = append(b,
		Builtin{Name: "String.length", Signature: sig(types.Integer, types.Str), Strategy: StrategyHelper},
		Builtin{Name: "String.concat", Signature: sig(types.Str, types.Str, types.Str), Strategy: StrategyHelper},
		Builtin{Name: "String.contains", Signature: sig(types.Boolean, types.Str, types.Str), Strategy: StrategyHelper},
	)

	anyList := &types.List{Elem: types.Any}
	b = append(b,
		Builtin{Name: "List.length", Signature: sig(types.Integer, anyList), Strategy: StrategyHelper},
		Builtin{Name: "List.get", Signature: sig(types.Any, anyList, types.Integer), Strategy: StrategyHelper},
		Builtin{Name: "List.set", Signature: sig(types.Void, anyList, types.Integer, types.Any), Strategy: StrategyHelper},
		Builtin{Name: "List.push", Signature: sig(types.Void, anyList, types.Any), Strategy: StrategyHelper},
	)

	b = append(b,
		Builtin{Name: "File.read", Signature: sig(types.Str, types.Str), Strategy: StrategyImport, ImportName: "file_read"},
		Builtin{Name: "File.write", Signature: sig(types.Void, types.Str, types.Str), Strategy: StrategyImport, ImportName: "file_write"},
		Builtin{Name: "File.exists", Signature: sig(types.Boolean, types.Str), Strategy: StrategyImport, ImportName: "file_exists"},
	)

	b = append(b,
		Builtin{Name: "Http.get", Signature: sig(types.Str, types.Str), Strategy: StrategyImport, ImportName: "http_get"},
		Builtin{Name: "Http.post", Signature: sig(types.Str, types.Str, types.Str), Strategy: StrategyImport, ImportName: "http_post"},
		Builtin{Name: "Http.put", Signature: sig(types.Str, types.Str, types.Str), Strategy: StrategyImport, ImportName: "http_put"},
		Builtin{Name: "Http.patch", Signature: sig(types.Str, types.Str, types.Str), Strategy: StrategyImport, ImportName: "http_patch"},
		Builtin{Name: "Http.delete", Signature: sig(types.Str, types.Str), Strategy: StrategyImport, ImportName: "http_delete"},
	)

	b = append(b,
		Builtin{Name: "print", Signature: sig(types.Void, types.Str), Strategy: StrategyImport, ImportName: "print"},
		Builtin{Name: "println", Signature: sig(types.Void, types.Str), Strategy: StrategyImport, ImportName: "println"},
	)

	b = append(b,
		Builtin{Name: "mustBeTrue", Signature: sig(types.Void, types.Boolean), Strategy: StrategyHelper},
		Builtin{Name: "mustBeEqual", Signature: sig(types.Void, types.Any, types.Any), Strategy: StrategyHelper},
	)

	return b
}

// Lookup finds a builtin by its qualified call name, returning the first
// registered overload. Callers that need overload-aware dispatch (a name
// with more than one signature, e.g. "Math.abs") should use
// LookupForArgs instead.
func Lookup(name string) (Builtin, bool) {
	for _, bi := range All {
		if bi.Name == name {
			return bi, true
		}
	}
	return Builtin{}, false
}

// LookupForArgs finds the overload of name whose parameter types exactly
// match argTypes, falling back to the first same-arity entry and finally
// to Lookup's first-match behavior when nothing else fits. This mirrors
// types.OverloadSet.Resolve's exact-match tier without re-running full
// overload resolution a second time at codegen — semantic analysis already
// proved exactly one candidate matches before codegen ever sees the call.
func LookupForArgs(name string, argTypes []types.Type) (Builtin, bool) {
	var arityMatch *Builtin
	for i := range All {
		bi := &All[i]
		if bi.Name != name || len(bi.Signature.Params) != len(argTypes) {
			continue
		}
		if arityMatch == nil {
			arityMatch = bi
		}
		exact := true
		for j, p := range bi.Signature.Params {
			if !types.Equal(p, argTypes[j]) {
				exact = false
				break
			}
		}
		if exact {
			return *bi, true
		}
	}
	if arityMatch != nil {
		return *arityMatch, true
	}
	return Lookup(name)
}
