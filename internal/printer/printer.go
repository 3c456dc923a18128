// Package printer re-prints a parsed *ast.Program back to canonical Clean
// Language source. It exists as its own package (spec §8 Property 2 needs
// an idempotence test that doesn't belong inside internal/ast or
// internal/parser) but does no work internal/ast's own node String()
// methods don't already do — every node already renders itself in valid
// Clean Language syntax; Print only owns the top-level formatting
// contract (trailing newline, no leading/trailing blank lines) an
// embedder like `cleanc fmt` depends on.
package printer

import (
	"strings"

	"github.com/cwbudde/clean-wasmc/internal/ast"
)

// Print renders prog as canonical Clean Language source text, suitable for
// writing back to a .cln/.clean file or for re-feeding to internal/parser
// in an idempotence check (spec §8 Property 2: parse, print, re-parse
// yields an identical AST modulo spans).
func Print(prog *ast.Program) string {
	s := strings.TrimRight(prog.String(), "\n")
	if s == "" {
		return ""
	}
	return s + "\n"
}
