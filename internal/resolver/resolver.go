// Package resolver locates, parses and caches imported Clean Language
// modules (spec §4.3), and merges a program's transitive imports into one
// flattened AST for the semantic analyzer to consume.
//
// There is no direct teacher analogue — DWScript's retrieved tree has no
// multi-module resolver — so this package is built fresh around the
// general shape seen across the pack: a canonical-path cache plus an
// explicit in-progress stack for cycle detection, built on io/fs so the
// search-path walk is testable against an in-memory fstest.MapFS.
package resolver

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/cwbudde/clean-wasmc/internal/ast"
	"github.com/cwbudde/clean-wasmc/internal/diag"
	"github.com/cwbudde/clean-wasmc/internal/parser"
	"github.com/cwbudde/clean-wasmc/internal/token"
)

// searchPaths and extensions are the fixed lookup order from spec §9.
var (
	searchPaths = []string{".", "modules", "lib", "stdlib"}
	extensions  = []string{".cln", ".clean"}
)

// Module is one successfully parsed import, cached by its canonical path.
type Module struct {
	Path        string
	Program     *ast.Program
	Diagnostics []diag.Diagnostic
}

// NotFoundError reports that no search-path entry contains the module.
type NotFoundError struct{ Name string }

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("module %q not found in %s", e.Name, strings.Join(searchPaths, ", "))
}

// CyclicError reports that resolving Name would re-enter a module already
// in progress on the resolution stack.
type CyclicError struct {
	Name  string
	Stack []string
}

func (e *CyclicError) Error() string {
	return fmt.Sprintf("cyclic import: %s -> %s", strings.Join(e.Stack, " -> "), e.Name)
}

// Resolver locates modules against fsys, parses them, and caches the
// result by canonical path. The search order itself (first match wins)
// resolves what spec §4.3 calls the Ambiguous case: with a fixed,
// deterministic path order there is never more than one candidate to
// choose between, so Ambiguous never actually arises and has no
// corresponding diag.Kind — see DESIGN.md.
type Resolver struct {
	fsys     fs.FS
	cache    map[string]*Module
	stack    []string
	stackSet map[string]bool
}

// New creates a Resolver rooted at fsys (the compilation unit's root).
func New(fsys fs.FS) *Resolver {
	return &Resolver{fsys: fsys, cache: map[string]*Module{}, stackSet: map[string]bool{}}
}

func locate(fsys fs.FS, name string) (string, bool) {
	for _, dir := range searchPaths {
		for _, ext := range extensions {
			candidate := path.Clean(path.Join(dir, name+ext))
			if info, err := fs.Stat(fsys, candidate); err == nil && !info.IsDir() {
				return candidate, true
			}
		}
	}
	return "", false
}

// Resolve locates, parses (recursively resolving nothing further itself —
// see Merge for transitive import handling) and caches the module named
// name. Cache insertion happens only on success, so a cycle or read
// failure leaves the cache exactly as it was (spec §9: "no partial
// insertion").
func (r *Resolver) Resolve(name string) (*Module, error) {
	canon, ok := locate(r.fsys, name)
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	if r.stackSet[canon] {
		return nil, &CyclicError{Name: name, Stack: append([]string(nil), r.stack...)}
	}
	if m, ok := r.cache[canon]; ok {
		return m, nil
	}

	r.stack = append(r.stack, canon)
	r.stackSet[canon] = true
	defer func() {
		r.stack = r.stack[:len(r.stack)-1]
		delete(r.stackSet, canon)
	}()

	data, err := fs.ReadFile(r.fsys, canon)
	if err != nil {
		return nil, err
	}
	prog, diags := parser.Parse(string(data))
	m := &Module{Path: canon, Program: prog, Diagnostics: diags}
	r.cache[canon] = m
	return m, nil
}

// Merge resolves every import reachable from entry (transitively) and
// returns a single Program with their exported functions and classes
// flattened in, plus every diagnostic collected along the way (including
// parse diagnostics from the imported modules themselves).
func Merge(entry *ast.Program, r *Resolver) (*ast.Program, []diag.Diagnostic) {
	var diags diag.Diagnostics

	merged := &ast.Program{
		Sp:        entry.Sp,
		Imports:   entry.Imports,
		Classes:   append([]*ast.ClassDecl(nil), entry.Classes...),
		Functions: append([]*ast.FunctionDecl(nil), entry.Functions...),
		Tests:     entry.Tests,
		Start:     entry.Start,
	}

	seen := map[string]bool{}
	var walk func(prog *ast.Program)
	walk = func(prog *ast.Program) {
		for _, imp := range prog.Imports {
			key := imp.Module + "|" + imp.Symbol
			if seen[key] {
				continue
			}
			seen[key] = true

			mod, err := r.Resolve(imp.Module)
			if err != nil {
				diags.Add(toDiagnostic(err, imp.Sp))
				continue
			}
			for _, d := range mod.Diagnostics {
				diags.Add(d)
			}
			walk(mod.Program)
			mergeSymbols(merged, mod.Program, imp)
		}
	}
	walk(entry)

	return merged, diags.All()
}

func mergeSymbols(dst *ast.Program, src *ast.Program, imp *ast.ImportItem) {
	rename := func(name string) string {
		if imp.Alias != "" {
			return imp.Alias
		}
		return name
	}

	if imp.Symbol == "" {
		dst.Functions = append(dst.Functions, src.Functions...)
		dst.Classes = append(dst.Classes, src.Classes...)
		return
	}

	for _, fn := range src.Functions {
		if fn.Name == imp.Symbol {
			clone := *fn
			clone.Name = rename(fn.Name)
			dst.Functions = append(dst.Functions, &clone)
			return
		}
	}
	for _, c := range src.Classes {
		if c.Name == imp.Symbol {
			clone := *c
			clone.Name = rename(c.Name)
			dst.Classes = append(dst.Classes, &clone)
			return
		}
	}
}

func toDiagnostic(err error, span token.Span) diag.Diagnostic {
	var notFound *NotFoundError
	var cyclic *CyclicError
	switch {
	case errors.As(err, &notFound):
		return diag.Diagnostic{Kind: diag.ModuleNotFound, Severity: diag.SeverityError, Primary: span, Message: err.Error()}
	case errors.As(err, &cyclic):
		return diag.Diagnostic{Kind: diag.CyclicImport, Severity: diag.SeverityError, Primary: span, Message: err.Error()}
	default:
		return diag.Diagnostic{Kind: diag.InternalCompilerError, Severity: diag.SeverityError, Primary: span, Message: err.Error()}
	}
}
