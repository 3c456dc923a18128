package diag

import (
	"strings"
	"testing"

	"github.com/cwbudde/clean-wasmc/internal/token"
)

func span(line, col, endCol int) token.Span {
	start := token.Position{Line: line, Column: col}
	end := token.Position{Line: line, Column: endCol}
	return token.Span{Start: start, End: end}
}

func TestDiagnosticsHasErrorsIgnoresWarnings(t *testing.T) {
	var d Diagnostics
	d.Warnf(UnusedVariable, span(1, 1, 2), "unused variable %s", "x")
	if d.HasErrors() {
		t.Fatalf("a warning-only list should not report HasErrors")
	}

	d.Errorf(TypeMismatch, span(2, 1, 5), "expected %s, got %s", "Integer", "String")
	if !d.HasErrors() {
		t.Fatalf("expected HasErrors after an Errorf call")
	}
	if d.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", d.Len())
	}
}

func TestDiagnosticFormatIncludesSourceLineAndCaret(t *testing.T) {
	source := "integer x = \"oops\"\n"
	dd := Diagnostic{
		Kind:     TypeMismatch,
		Severity: SeverityError,
		Primary:  span(1, 13, 19),
		Message:  "cannot assign String to Integer",
	}

	out := dd.Format(false, source)
	if !strings.Contains(out, "cannot assign String to Integer") {
		t.Fatalf("Format output missing message: %q", out)
	}
	if !strings.Contains(out, source[:len(source)-1]) {
		t.Fatalf("Format output missing source line: %q", out)
	}
	if !strings.Contains(out, "^") {
		t.Fatalf("Format output missing a caret: %q", out)
	}
}

func TestFormatAllSeparatesEntriesWithBlankLine(t *testing.T) {
	diags := []Diagnostic{
		{Kind: ParseError, Severity: SeverityError, Primary: span(1, 1, 1), Message: "first"},
		{Kind: ParseError, Severity: SeverityError, Primary: span(2, 1, 1), Message: "second"},
	}
	out := FormatAll(diags, false, "")
	if strings.Count(out, "first") != 1 || strings.Count(out, "second") != 1 {
		t.Fatalf("FormatAll dropped an entry: %q", out)
	}
	if !strings.Contains(out, "\n\n") {
		t.Fatalf("expected a blank line between entries: %q", out)
	}
}
