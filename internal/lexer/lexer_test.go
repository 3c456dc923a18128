package lexer

import (
	"testing"

	"github.com/cwbudde/clean-wasmc/internal/token"
)

// TestTokenSpanRoundTrip is spec §8 Property 1: for every token,
// source[token.start..token.end] equals the token's rendered lexeme.
// Synthetic tokens (NEWLINE/INDENT/DEDENT/EOF) carry no source slice and
// are excluded, matching the property's own "modulo normalization for
// synthetic tokens" carve-out.
func TestTokenSpanRoundTrip(t *testing.T) {
	src := "functions:\n    integer add(integer a, integer b)\n        return a + b\n"
	l := New(src)

	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			break
		}
		switch tok.Type {
		case token.NEWLINE, token.INDENT, token.DEDENT:
			continue
		}

		start := tok.Pos.Offset
		end := start + len(tok.Literal)
		if end > len(src) {
			t.Fatalf("token %v span [%d:%d] runs past source length %d", tok, start, end, len(src))
		}
		if got := src[start:end]; got != tok.Literal {
			t.Fatalf("token %s: source slice %q != literal %q", tok.Type, got, tok.Literal)
		}
	}
}

func TestLexerReportsNoDiagnosticsOnCleanInput(t *testing.T) {
	l := New("functions:\n    void noop()\n        return\n")
	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			break
		}
	}
	if diags := l.Diagnostics(); len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
}
