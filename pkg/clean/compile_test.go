package clean

import (
	"context"
	"strings"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/cwbudde/clean-wasmc/internal/hostenv"
)

// runModule compiles source, instantiates it against a fresh hostenv.Env,
// calls start, and returns the Env (with its recorded Calls) plus start's
// result values.
func runModule(t *testing.T, source string) (*hostenv.Env, []uint64) {
	t.Helper()

	artifact, diags := Compile(source, Options{Filename: "<test>"})
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if artifact == nil {
		t.Fatalf("Compile returned a nil artifact with no diagnostics")
	}
	if !strings.HasPrefix(string(artifact.Wasm), "\x00asm") {
		t.Fatalf("artifact does not start with the wasm magic number")
	}

	ctx := context.Background()
	runtime := wazero.NewRuntime(ctx)
	t.Cleanup(func() { runtime.Close(ctx) })

	env := hostenv.New(&strings.Builder{}, &strings.Builder{}, t.TempDir())
	if err := env.Instantiate(ctx, runtime); err != nil {
		t.Fatalf("failed to register host imports: %v", err)
	}

	compiled, err := runtime.CompileModule(ctx, artifact.Wasm)
	if err != nil {
		t.Fatalf("failed to compile module: %v", err)
	}
	mod, err := runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		t.Fatalf("failed to instantiate module: %v", err)
	}
	t.Cleanup(func() { mod.Close(ctx) })
	env.BindMemory(mod)

	start := mod.ExportedFunction("start")
	if start == nil {
		t.Fatalf("module has no start export")
	}
	results, err := start.Call(ctx)
	if err != nil {
		t.Fatalf("start() trapped: %v", err)
	}
	return env, results
}

// S1: hello world — the host observes a single println call with the
// expected 13-byte payload.
func TestCompileHelloWorld(t *testing.T) {
	env, _ := runModule(t, "start()\n    println(\"Hello, World!\")\n")

	var printlnCalls []string
	for _, c := range env.Calls {
		if c.Name == "println" {
			printlnCalls = append(printlnCalls, c.Text)
		}
	}
	if len(printlnCalls) != 1 {
		t.Fatalf("expected exactly one println call, got %d: %v", len(printlnCalls), printlnCalls)
	}
	if printlnCalls[0] != "Hello, World!" {
		t.Fatalf("println payload = %q, want %q", printlnCalls[0], "Hello, World!")
	}
}

// S2: start returns an integer literal directly.
func TestCompileIntegerReturn(t *testing.T) {
	_, results := runModule(t, "start()\n    return 42\n")
	if len(results) != 1 || int32(results[0]) != 42 {
		t.Fatalf("start() = %v, want [42]", results)
	}
}

// S3: recursive factorial.
func TestCompileRecursion(t *testing.T) {
	src := "functions:\n" +
		"    integer fact(integer n)\n" +
		"        if n <= 1\n" +
		"            return 1\n" +
		"        return n * fact(n - 1)\n" +
		"start()\n" +
		"    return fact(5)\n"

	_, results := runModule(t, src)
	if len(results) != 1 || int32(results[0]) != 120 {
		t.Fatalf("start() = %v, want [120]", results)
	}
}

// S4: string interpolation folds text/expr parts into one concatenated
// println payload.
func TestCompileStringInterpolation(t *testing.T) {
	src := "start()\n" +
		"    string name = \"Ada\"\n" +
		"    println(\"Hello {name}!\")\n"

	env, _ := runModule(t, src)

	var printlnCalls []string
	for _, c := range env.Calls {
		if c.Name == "println" {
			printlnCalls = append(printlnCalls, c.Text)
		}
	}
	if len(printlnCalls) != 1 {
		t.Fatalf("expected exactly one println call, got %d: %v", len(printlnCalls), printlnCalls)
	}
	if printlnCalls[0] != "Hello Ada!" {
		t.Fatalf("println payload = %q, want %q", printlnCalls[0], "Hello Ada!")
	}
}

// S5: overload resolution picks the Integer or Number overload of Math.abs
// by the static type of the argument, with no diagnostics.
func TestCompileOverloadResolution(t *testing.T) {
	src := "start()\n" +
		"    integer i = Math.abs(-3)\n" +
		"    number n = Math.abs(-3.0)\n" +
		"    return i\n"

	_, diags := Compile(src, Options{Filename: "<test>"})
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
}

// S6: mutually circular inheritance produces exactly one CircularInheritance
// diagnostic and no artifact.
func TestCompileCircularInheritance(t *testing.T) {
	src := "class A is B\n" +
		"    integer x\n" +
		"class B is A\n" +
		"    integer y\n" +
		"start()\n" +
		"    return 0\n"

	artifact, diags := Compile(src, Options{Filename: "<test>"})
	if artifact != nil {
		t.Fatalf("expected a nil artifact for a circular inheritance chain")
	}

	var circular int
	for _, d := range diags {
		if d.Kind == "CircularInheritance" {
			circular++
		}
	}
	if circular != 1 {
		t.Fatalf("expected exactly one CircularInheritance diagnostic, got %d (all: %v)", circular, diags)
	}
}
