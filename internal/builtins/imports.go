// Package builtins seeds the compiler's function table with the
// predeclared Math/String/List/File/Http/print/assert surface (spec §4.7)
// and describes the fixed host import table every compiled module
// requires (spec §6). internal/semantic consults the function-table half
// to type-check calls; internal/codegen consults the import table to
// assign the same import function indices the host expects.
package builtins

import "github.com/cwbudde/clean-wasmc/pkg/wasmbin"

// HostImport is one entry of the fixed-order "env" import table.
type HostImport struct {
	Index   int
	Name    string
	Params  []wasmbin.ValType
	Results []wasmbin.ValType
}

// HostImports is the fixed-order table from spec §6 (indices 0–15), plus
// two entries (__assert_fail, __raise) that §7's error-propagation text
// requires but the numbered table omits, and five math_* entries — all
// appended after index 15 rather than renumbering the spec's own table.
// See DESIGN.md.
var HostImports = []HostImport{
	{0, "print", []wasmbin.ValType{wasmbin.I32, wasmbin.I32}, nil},
	{1, "println", []wasmbin.ValType{wasmbin.I32, wasmbin.I32}, nil},
	{2, "print_simple", []wasmbin.ValType{wasmbin.I32}, nil},
	{3, "println_simple", []wasmbin.ValType{wasmbin.I32}, nil},
	{4, "file_write", []wasmbin.ValType{wasmbin.I32, wasmbin.I32, wasmbin.I32, wasmbin.I32}, []wasmbin.ValType{wasmbin.I32}},
	{5, "file_read", []wasmbin.ValType{wasmbin.I32, wasmbin.I32, wasmbin.I32}, []wasmbin.ValType{wasmbin.I32}},
	{6, "file_exists", []wasmbin.ValType{wasmbin.I32, wasmbin.I32}, []wasmbin.ValType{wasmbin.I32}},
	{7, "file_delete", []wasmbin.ValType{wasmbin.I32, wasmbin.I32}, []wasmbin.ValType{wasmbin.I32}},
	{8, "file_append", []wasmbin.ValType{wasmbin.I32, wasmbin.I32, wasmbin.I32, wasmbin.I32}, []wasmbin.ValType{wasmbin.I32}},
	{9, "http_get", []wasmbin.ValType{wasmbin.I32, wasmbin.I32, wasmbin.I32}, []wasmbin.ValType{wasmbin.I32}},
	{10, "http_post", []wasmbin.ValType{wasmbin.I32, wasmbin.I32, wasmbin.I32, wasmbin.I32, wasmbin.I32}, []wasmbin.ValType{wasmbin.I32}},
	{11, "http_put", []wasmbin.ValType{wasmbin.I32, wasmbin.I32, wasmbin.I32, wasmbin.I32, wasmbin.I32}, []wasmbin.ValType{wasmbin.I32}},
	{12, "http_patch", []wasmbin.ValType{wasmbin.I32, wasmbin.I32, wasmbin.I32, wasmbin.I32, wasmbin.I32}, []wasmbin.ValType{wasmbin.I32}},
	{13, "http_delete", []wasmbin.ValType{wasmbin.I32, wasmbin.I32, wasmbin.I32}, []wasmbin.ValType{wasmbin.I32}},
	{14, "malloc", []wasmbin.ValType{wasmbin.I32}, []wasmbin.ValType{wasmbin.I32}},
	{15, "free", []wasmbin.ValType{wasmbin.I32}, nil},
	{16, "__assert_fail", []wasmbin.ValType{wasmbin.I32, wasmbin.I32}, nil},
	{17, "__raise", []wasmbin.ValType{wasmbin.I32, wasmbin.I32}, nil},
	// WASM 1.0 has no transcendental instructions (only sqrt/abs/floor/ceil
	// are native opcodes); the five Math functions spec §4.7 lists beyond
	// those route to the host the same way File/Http do, rather than
	// shipping a polynomial approximation as "the" compiler behavior.
	{18, "math_sin", []wasmbin.ValType{wasmbin.F64}, []wasmbin.ValType{wasmbin.F64}},
	{19, "math_cos", []wasmbin.ValType{wasmbin.F64}, []wasmbin.ValType{wasmbin.F64}},
	{20, "math_tan", []wasmbin.ValType{wasmbin.F64}, []wasmbin.ValType{wasmbin.F64}},
	{21, "math_ln", []wasmbin.ValType{wasmbin.F64}, []wasmbin.ValType{wasmbin.F64}},
	{22, "math_exp", []wasmbin.ValType{wasmbin.F64}, []wasmbin.ValType{wasmbin.F64}},
}

// IndexOf returns the fixed function index for a host import name.
func IndexOf(name string) (int, bool) {
	for _, im := range HostImports {
		if im.Name == name {
			return im.Index, true
		}
	}
	return 0, false
}
