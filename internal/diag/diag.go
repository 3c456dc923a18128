// Package diag is the diagnostic model shared by every compiler phase: the
// lexer, parser, semantic analyzer and code generator all append to the same
// flat Diagnostics list rather than returning phase-specific error types.
package diag

import (
	"fmt"
	"strings"

	"github.com/cwbudde/clean-wasmc/internal/token"
)

// Kind tags the category of a diagnostic. The set is closed; callers switch
// on it rather than matching on Message text.
type Kind string

const (
	LexError               Kind = "LexError"
	IndentationError       Kind = "IndentationError"
	ParseError             Kind = "ParseError"
	TypeMismatch           Kind = "TypeMismatch"
	UndefinedName          Kind = "UndefinedName"
	NoMatchingOverload     Kind = "NoMatchingOverload"
	DuplicateDefinition    Kind = "DuplicateDefinition"
	CircularInheritance    Kind = "CircularInheritance"
	PrivateAccessViolation Kind = "PrivateAccessViolation"
	InvalidBaseCall        Kind = "InvalidBaseCall"
	IndexOutOfBounds       Kind = "IndexOutOfBounds"
	IntegerOverflow        Kind = "IntegerOverflow"
	MisalignedPointer      Kind = "MisalignedPointer"
	NullPointerDereference Kind = "NullPointerDereference"
	CyclicImport           Kind = "CyclicImport"
	ModuleNotFound         Kind = "ModuleNotFound"
	InternalCompilerError  Kind = "InternalCompilerError"

	// UnusedVariable is the one kind named outside the closed list above
	// (spec §4.4's unused-name policy) — added because the policy is not a
	// Non-goal and needs a kind to report through, not reused from an
	// unrelated one. See DESIGN.md's Open Question decisions.
	UnusedVariable Kind = "UnusedVariable"
)

// Severity distinguishes hard failures from advisory notices. Only
// diagnostics at SeverityError or above suppress artifact production.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one entry in a compilation's flat diagnostic list.
type Diagnostic struct {
	Kind      Kind
	Severity  Severity
	Primary   token.Span
	Secondary []token.Span
	Message   string
	Hint      string
	DidYouMean []string
}

// Error lets Diagnostic satisfy the error interface so it can travel through
// ordinary Go error-handling paths when a single diagnostic needs one.
func (d Diagnostic) Error() string {
	return d.Format(false, "")
}

// Format renders a diagnostic with a source-line gutter and caret, in the
// style of a typical command-line compiler. source is the full text of the
// file the primary span belongs to; pass "" to omit the source excerpt.
func (d Diagnostic) Format(color bool, source string) string {
	var sb strings.Builder

	sevColor, reset := "", ""
	if color {
		reset = "\033[0m"
		if d.Severity == SeverityError {
			sevColor = "\033[1;31m"
		} else {
			sevColor = "\033[1;33m"
		}
	}

	fmt.Fprintf(&sb, "%s%s[%s]%s %s at %s\n", sevColor, d.Severity, d.Kind, reset, d.Message, d.Primary.Start)

	if source != "" {
		if line := sourceLine(source, d.Primary.Start.Line); line != "" {
			gutter := fmt.Sprintf("%4d | ", d.Primary.Start.Line)
			sb.WriteString(gutter)
			sb.WriteString(line)
			sb.WriteString("\n")
			sb.WriteString(strings.Repeat(" ", len(gutter)+d.Primary.Start.Column-1))
			sb.WriteString(sevColor)
			width := d.Primary.End.Column - d.Primary.Start.Column
			if width < 1 {
				width = 1
			}
			sb.WriteString(strings.Repeat("^", width))
			sb.WriteString(reset)
			sb.WriteString("\n")
		}
	}

	if d.Hint != "" {
		fmt.Fprintf(&sb, "  hint: %s\n", d.Hint)
	}
	if len(d.DidYouMean) > 0 {
		fmt.Fprintf(&sb, "  did you mean: %s?\n", strings.Join(d.DidYouMean, ", "))
	}

	return sb.String()
}

func sourceLine(source string, lineNum int) string {
	lines := strings.Split(source, "\n")
	if lineNum < 1 || lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}

// Diagnostics is the accumulating, order-preserving list threaded through
// every compiler phase.
type Diagnostics struct {
	items []Diagnostic
}

// Add appends a diagnostic.
func (d *Diagnostics) Add(diag Diagnostic) { d.items = append(d.items, diag) }

// Errorf appends a SeverityError diagnostic of the given kind.
func (d *Diagnostics) Errorf(kind Kind, span token.Span, format string, args ...any) {
	d.Add(Diagnostic{Kind: kind, Severity: SeverityError, Primary: span, Message: fmt.Sprintf(format, args...)})
}

// Warnf appends a SeverityWarning diagnostic of the given kind.
func (d *Diagnostics) Warnf(kind Kind, span token.Span, format string, args ...any) {
	d.Add(Diagnostic{Kind: kind, Severity: SeverityWarning, Primary: span, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any accumulated diagnostic is at SeverityError.
// Per the spec, a non-empty error list suppresses artifact production even
// though warnings alone do not.
func (d *Diagnostics) HasErrors() bool {
	for _, it := range d.items {
		if it.Severity == SeverityError {
			return true
		}
	}
	return false
}

// All returns every accumulated diagnostic in the order it was appended.
func (d *Diagnostics) All() []Diagnostic { return d.items }

// Len reports how many diagnostics have been appended.
func (d *Diagnostics) Len() int { return len(d.items) }

// FormatAll renders every diagnostic, one per paragraph, in order.
func FormatAll(diags []Diagnostic, color bool, source string) string {
	if len(diags) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, d := range diags {
		sb.WriteString(d.Format(color, source))
		if i < len(diags)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
