package codegen

import (
	"github.com/cwbudde/clean-wasmc/internal/types"
	"github.com/cwbudde/clean-wasmc/pkg/wasmbin"
)

// wasmType implements spec §4.6's Clean→WASM value-type mapping table.
func wasmType(t types.Type) wasmbin.ValType {
	switch v := t.(type) {
	case types.IntegerSized:
		if v.Bits == 64 {
			return wasmbin.I64
		}
		return wasmbin.I32
	case types.NumberSized:
		if v.Bits == 32 {
			return wasmbin.F32
		}
		return wasmbin.F64
	}
	switch t.String() {
	case "Number":
		return wasmbin.F64
	}
	// Boolean, Integer, String, List(_), Matrix(_), Pairs(_,_), Class{...},
	// Future(_) all lower to a single i32 (a raw value or a heap pointer).
	return wasmbin.I32
}

// isHeapPointer reports whether a value of type t is a refcounted heap
// pointer needing retain/release tracking (spec §4.5, §9's insertion-site
// list), as opposed to a raw scalar i32/i64/f32/f64.
func isHeapPointer(t types.Type) bool {
	switch t.(type) {
	case *types.List, *types.Matrix, *types.Pairs, *types.Class, types.Future:
		return true
	}
	return types.Equal(t, types.Str)
}
