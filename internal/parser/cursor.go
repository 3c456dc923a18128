package parser

import (
	"github.com/cwbudde/clean-wasmc/internal/lexer"
	"github.com/cwbudde/clean-wasmc/internal/token"
)

// TokenCursor is an immutable cursor over a lexer's token stream: every
// navigation operation returns a new cursor rather than mutating shared
// parser state, so speculative parsing can backtrack just by discarding a
// cursor value.
type TokenCursor struct {
	lex     *lexer.Lexer
	current token.Token
	tokens  []token.Token // buffered tokens, shared across cursors derived from the same lexer
	index   int
}

// NewTokenCursor starts a cursor at the first token of l's stream.
func NewTokenCursor(l *lexer.Lexer) *TokenCursor {
	first := l.NextToken()
	toks := make([]token.Token, 1, 32)
	toks[0] = first
	return &TokenCursor{lex: l, current: first, tokens: toks}
}

func (c *TokenCursor) Current() token.Token { return c.current }

// Peek returns the token n positions ahead, buffering as needed.
func (c *TokenCursor) Peek(n int) token.Token {
	if n < 0 {
		return c.current
	}
	target := c.index + n
	for target >= len(c.tokens) {
		tok := c.tokens[len(c.tokens)-1]
		if tok.Type == token.EOF {
			break
		}
		c.tokens = append(c.tokens, c.lex.NextToken())
	}
	if target < len(c.tokens) {
		return c.tokens[target]
	}
	return c.tokens[len(c.tokens)-1]
}

func (c *TokenCursor) Advance() *TokenCursor { return c.AdvanceN(1) }

func (c *TokenCursor) AdvanceN(n int) *TokenCursor {
	if n <= 0 {
		return c
	}
	c.Peek(n)
	idx := c.index + n
	if idx >= len(c.tokens) {
		idx = len(c.tokens) - 1
	}
	return &TokenCursor{lex: c.lex, tokens: c.tokens, index: idx, current: c.tokens[idx]}
}

func (c *TokenCursor) Is(t token.Type) bool { return c.current.Type == t }

func (c *TokenCursor) IsAny(types ...token.Type) bool {
	for _, t := range types {
		if c.current.Type == t {
			return true
		}
	}
	return false
}

func (c *TokenCursor) PeekIs(n int, t token.Type) bool { return c.Peek(n).Type == t }

// Skip advances past the current token if it matches t.
func (c *TokenCursor) Skip(t token.Type) (*TokenCursor, bool) {
	if c.current.Type == t {
		return c.Advance(), true
	}
	return c, false
}

// Expect is Skip with error-reporting left to the caller.
func (c *TokenCursor) Expect(t token.Type) (*TokenCursor, bool) { return c.Skip(t) }

func (c *TokenCursor) IsEOF() bool { return c.current.Type == token.EOF }

func (c *TokenCursor) Position() token.Position { return c.current.Pos }

// Mark is a lightweight saved position for backtracking.
type Mark struct{ index int }

func (c *TokenCursor) Mark() Mark { return Mark{c.index} }

func (c *TokenCursor) ResetTo(m Mark) *TokenCursor {
	if m.index < 0 || m.index >= len(c.tokens) {
		return c
	}
	return &TokenCursor{lex: c.lex, tokens: c.tokens, index: m.index, current: c.tokens[m.index]}
}

// LookAhead scans forward (bounded, to avoid runaway scans on malformed
// input) for a token matching predicate, returning its distance.
func (c *TokenCursor) LookAhead(predicate func(token.Token) bool) (int, bool) {
	const maxLookahead = 500
	for d := 0; d < maxLookahead; d++ {
		tok := c.Peek(d)
		if tok.Type == token.EOF {
			return 0, false
		}
		if predicate(tok) {
			return d, true
		}
	}
	return 0, false
}
