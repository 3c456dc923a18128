// Package clean is the single entry point the CLI driver (and any other
// embedder) calls to run the full pipeline: lex+parse, resolve imports,
// type-check, and lower to a WASM 1.0 module. It plays exactly the role
// the teacher's cmd/dwscript/cmd/compile.go plays inline in its own
// RunE — pulled out to a library function so cmd/cleanc's subcommands
// and pkg/clean's own tests share one Compile call instead of each
// re-wiring the phase sequence.
package clean

import (
	"io/fs"

	"github.com/cwbudde/clean-wasmc/internal/builtins"
	"github.com/cwbudde/clean-wasmc/internal/codegen"
	"github.com/cwbudde/clean-wasmc/internal/diag"
	"github.com/cwbudde/clean-wasmc/internal/parser"
	"github.com/cwbudde/clean-wasmc/internal/resolver"
	"github.com/cwbudde/clean-wasmc/internal/semantic"
)

// Options configures one Compile call.
type Options struct {
	// Filename is used only for diagnostic messages; it need not exist on
	// disk (e.g. when compiling a string built in memory).
	Filename string

	// FS roots the module resolver's search path (spec §4.3 / §6:
	// "./", "./modules/", "./lib/", "./stdlib/"). A nil FS skips import
	// resolution entirely — programs with no `import` statements compile
	// the same either way, since Merge is a no-op over an import-free AST.
	FS fs.FS
}

// Artifact is everything a successful Compile produces: the WASM bytes
// plus the fixed host import table the bytes were generated against, so
// an embedder (cmd/cleanc run, internal/hostenv) knows exactly what to
// wire without re-deriving it from the binary.
type Artifact struct {
	Wasm    []byte
	Imports []builtins.HostImport
}

// Compile runs the full pipeline over source and returns either a
// complete Artifact or a nil one, alongside every diagnostic collected
// across every phase (spec §7: "a non-empty diagnostic list causes the
// compilation to return None for the artifact; otherwise the artifact is
// returned even if warnings are present").
func Compile(source string, opts Options) (*Artifact, []diag.Diagnostic) {
	var all diag.Diagnostics

	prog, parseDiags := parser.Parse(source)
	for _, d := range parseDiags {
		all.Add(d)
	}

	merged := prog
	if opts.FS != nil {
		m, resolveDiags := resolver.Merge(prog, resolver.New(opts.FS))
		merged = m
		for _, d := range resolveDiags {
			all.Add(d)
		}
	}

	result := semantic.Analyze(merged)
	for _, d := range result.Diagnostics {
		all.Add(d)
	}

	if all.HasErrors() {
		return nil, all.All()
	}

	mod, codegenDiags := codegen.Generate(merged, result)
	for _, d := range codegenDiags {
		all.Add(d)
	}

	if all.HasErrors() {
		return nil, all.All()
	}

	return &Artifact{Wasm: mod.Encode(), Imports: builtins.HostImports}, all.All()
}
