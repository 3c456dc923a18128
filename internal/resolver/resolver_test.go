package resolver

import (
	"testing"
	"testing/fstest"

	"github.com/cwbudde/clean-wasmc/internal/parser"
)

func TestResolveFindsFirstSearchPathMatch(t *testing.T) {
	fsys := fstest.MapFS{
		"modules/math_utils.cln": {Data: []byte("functions:\n    Integer square(Integer x)\n        return x * x\n")},
	}
	r := New(fsys)
	mod, err := r.Resolve("math_utils")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if mod.Path != "modules/math_utils.cln" {
		t.Fatalf("resolved to %q, want modules/math_utils.cln", mod.Path)
	}
	if len(mod.Program.Functions) != 1 || mod.Program.Functions[0].Name != "square" {
		t.Fatalf("unexpected parsed functions: %+v", mod.Program.Functions)
	}
}

func TestResolveCachesByCanonicalPath(t *testing.T) {
	fsys := fstest.MapFS{
		"util.cln": {Data: []byte("functions:\n    Void noop()\n        return\n")},
	}
	r := New(fsys)
	first, err := r.Resolve("util")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := r.Resolve("util")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached *Module instance, got distinct pointers")
	}
}

func TestResolveNotFound(t *testing.T) {
	r := New(fstest.MapFS{})
	_, err := r.Resolve("missing")
	if _, ok := err.(*NotFoundError); !ok {
		t.Fatalf("expected *NotFoundError, got %T (%v)", err, err)
	}
}

func TestResolveDetectsCycle(t *testing.T) {
	fsys := fstest.MapFS{
		"a.cln": {Data: []byte("import b\nfunctions:\n    Void noop()\n        return\n")},
		"b.cln": {Data: []byte("import a\nfunctions:\n    Void noop()\n        return\n")},
	}
	r := New(fsys)

	// Resolve a once, then put a.cln back on the in-progress stack by hand
	// so that resolving it again below sees it as still in progress.
	modA, err := r.Resolve("a")
	if err != nil {
		t.Fatalf("unexpected error resolving a: %v", err)
	}
	_ = modA

	r.stack = append(r.stack, "a.cln")
	r.stackSet["a.cln"] = true
	defer func() {
		r.stack = r.stack[:len(r.stack)-1]
		delete(r.stackSet, "a.cln")
	}()

	if _, err := r.Resolve("a"); err == nil {
		t.Fatalf("expected a cyclic error, got nil")
	} else if _, ok := err.(*CyclicError); !ok {
		t.Fatalf("expected *CyclicError, got %T (%v)", err, err)
	}
}

func TestMergeFlattensWholeModuleImport(t *testing.T) {
	fsys := fstest.MapFS{
		"shapes.cln": {Data: []byte("functions:\n    Integer area(Integer w, Integer h)\n        return w * h\n")},
	}
	entrySrc := "import shapes\nfunctions:\n    Void noop()\n        return\n"
	entry, diags := parser.Parse(entrySrc)
	if len(diags) != 0 {
		t.Fatalf("unexpected entry parse diagnostics: %v", diags)
	}

	r := New(fsys)
	merged, mergeDiags := Merge(entry, r)
	if len(mergeDiags) != 0 {
		t.Fatalf("unexpected merge diagnostics: %v", mergeDiags)
	}
	if len(merged.Functions) != 2 {
		t.Fatalf("expected 2 merged functions (noop + area), got %d", len(merged.Functions))
	}
}

func TestMergeReportsModuleNotFound(t *testing.T) {
	entrySrc := "import ghost\nfunctions:\n    Void noop()\n        return\n"
	entry, _ := parser.Parse(entrySrc)
	r := New(fstest.MapFS{})
	_, diags := Merge(entry, r)
	if len(diags) != 1 || diags[0].Kind != "ModuleNotFound" {
		t.Fatalf("expected a single ModuleNotFound diagnostic, got %+v", diags)
	}
}
