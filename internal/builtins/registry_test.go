package builtins

import (
	"testing"

	"github.com/cwbudde/clean-wasmc/internal/types"
)

func TestLookupForArgsPicksExactOverload(t *testing.T) {
	intBi, ok := LookupForArgs("Math.abs", []types.Type{types.Integer})
	if !ok {
		t.Fatalf("expected a Math.abs overload for an Integer argument")
	}
	if !types.Equal(intBi.Signature.Result, types.Integer) {
		t.Fatalf("Integer Math.abs result = %v, want Integer", intBi.Signature.Result)
	}

	numBi, ok := LookupForArgs("Math.abs", []types.Type{types.Number})
	if !ok {
		t.Fatalf("expected a Math.abs overload for a Number argument")
	}
	if !types.Equal(numBi.Signature.Result, types.Number) {
		t.Fatalf("Number Math.abs result = %v, want Number", numBi.Signature.Result)
	}
}

func TestIndexOfMatchesHostImportsTable(t *testing.T) {
	for _, im := range HostImports {
		idx, ok := IndexOf(im.Name)
		if !ok || idx != im.Index {
			t.Fatalf("IndexOf(%q) = (%d, %v), want (%d, true)", im.Name, idx, ok, im.Index)
		}
	}
	if _, ok := IndexOf("not_a_real_import"); ok {
		t.Fatalf("expected IndexOf to report false for an unknown name")
	}
}
