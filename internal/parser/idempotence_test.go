package parser

import (
	"testing"

	"github.com/cwbudde/clean-wasmc/internal/printer"
)

// TestParserIdempotence is spec §8 Property 2: parsing, pretty-printing,
// and re-parsing a valid program yields an identical AST modulo spans —
// checked here via Program.String()'s own rendering (internal/printer is a
// thin wrapper over it), since nodes compare structurally through their
// String() output rather than span-stripped reflect.DeepEqual.
func TestParserIdempotence(t *testing.T) {
	sources := []string{
		"functions:\n    integer add(integer a, integer b)\n        return a + b\n",
		"class Shape\n    integer sides\nfunctions:\n    void noop()\n        return\nstart()\n    return 0\n",
	}

	for _, src := range sources {
		prog, diags := Parse(src)
		if len(diags) != 0 {
			t.Fatalf("unexpected diagnostics parsing %q: %v", src, diags)
		}

		printed := printer.Print(prog)
		reparsed, diags := Parse(printed)
		if len(diags) != 0 {
			t.Fatalf("unexpected diagnostics re-parsing printed output %q: %v", printed, diags)
		}

		if got, want := printer.Print(reparsed), printed; got != want {
			t.Fatalf("re-printing after a second parse changed output:\nfirst:  %q\nsecond: %q", want, got)
		}
	}
}
