// Package lexer turns Clean Language source text into a token stream.
//
// Clean Language is indentation-structured: block boundaries are not
// spelled out with braces or begin/end keywords but are inferred from
// the leading whitespace of each line, the same way Python's tokenizer
// works. The Lexer synthesizes INDENT, DEDENT and NEWLINE tokens so the
// parser never has to reason about columns directly.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cwbudde/clean-wasmc/internal/diag"
	"github.com/cwbudde/clean-wasmc/internal/token"
)

// Lexer is a hand-written scanner over a single Clean Language source file.
// Lexical problems (illegal characters, unterminated literals, inconsistent
// indentation) never stop scanning; they are recorded as diagnostics so
// later phases see as much of the program as possible.
type Lexer struct {
	input        string
	diagnostics  diag.Diagnostics
	pending      []token.Token // synthetic INDENT/DEDENT/NEWLINE and lookahead buffer
	indentStack  []int
	position     int
	readPosition int
	line         int
	column       int
	ch           rune
	atLineStart  bool
	usedTabs     bool
	usedSpaces   bool
	sawAnyToken  bool
}

// New creates a Lexer over input. A UTF-8 BOM, if present, is stripped.
func New(input string) *Lexer {
	if len(input) >= 3 && input[0] == 0xEF && input[1] == 0xBB && input[2] == 0xBF {
		input = input[3:]
	}
	l := &Lexer{
		input:       input,
		line:        1,
		column:      0,
		indentStack: []int{0},
		atLineStart: true,
	}
	l.readChar()
	return l
}

// Diagnostics returns all lexical diagnostics accumulated so far.
func (l *Lexer) Diagnostics() []diag.Diagnostic { return l.diagnostics.All() }

func (l *Lexer) span(pos token.Position) token.Span { return token.Span{Start: pos, End: pos} }

func (l *Lexer) addError(msg string, pos token.Position) {
	l.diagnostics.Errorf(diag.LexError, l.span(pos), "%s", msg)
}

func (l *Lexer) addWarning(msg string, pos token.Position) {
	l.diagnostics.Warnf(diag.IndentationError, l.span(pos), "%s", msg)
}

func (l *Lexer) addIndentError(msg string, pos token.Position) {
	l.diagnostics.Errorf(diag.IndentationError, l.span(pos), "%s", msg)
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = l.readPosition
		l.column++
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += size
	l.column++
	if r == utf8.RuneError && size == 1 {
		l.addError("invalid UTF-8 encoding", l.currentPos())
	}
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) currentPos() token.Position {
	return token.Position{Line: l.line, Column: l.column, Offset: l.position}
}

func (l *Lexer) newLine() {
	l.line++
	l.column = 0
	l.usedTabs, l.usedSpaces = false, false
}

// NextToken returns the next token, synthesizing INDENT/DEDENT/NEWLINE as needed.
func (l *Lexer) NextToken() token.Token {
	if len(l.pending) > 0 {
		tok := l.pending[0]
		l.pending = l.pending[1:]
		return tok
	}

	for l.atLineStart && l.ch != 0 {
		l.atLineStart = false
		if tok, ok := l.scanLineStart(); ok {
			return tok
		}
	}

	tok := l.scanToken()
	if tok.Type == token.EOF {
		return l.finalizeAtEOF(tok)
	}
	l.sawAnyToken = true
	return tok
}

// scanLineStart measures the indentation of the upcoming logical line,
// skipping blank and comment-only lines, and enqueues INDENT/DEDENT/NEWLINE
// tokens as the indent stack changes. It returns ok=false when the line
// turned out to be blank (nothing to report) so the caller falls through
// to an ordinary token scan.
func (l *Lexer) scanLineStart() (token.Token, bool) {
	pos := l.currentPos()
	width, mixed := l.measureIndent()
	if mixed {
		l.addWarning("mixed tabs and spaces in indentation", pos)
	}

	// Blank line or comment-only line: no block-structure effect.
	if l.ch == '\n' || l.ch == 0 || l.ch == '/' && l.peekChar() == '/' {
		if l.ch == '/' && l.peekChar() == '/' {
			l.skipLineComment()
		}
		if l.ch == '\n' {
			l.readChar()
			l.newLine()
		}
		l.atLineStart = true
		return token.Token{}, false
	}

	top := l.indentStack[len(l.indentStack)-1]
	switch {
	case width > top:
		l.indentStack = append(l.indentStack, width)
		l.pending = append(l.pending, token.NewToken(token.INDENT, "", pos))
	case width < top:
		for len(l.indentStack) > 1 && l.indentStack[len(l.indentStack)-1] > width {
			l.indentStack = l.indentStack[:len(l.indentStack)-1]
			l.pending = append(l.pending, token.NewToken(token.DEDENT, "", pos))
		}
		if l.indentStack[len(l.indentStack)-1] != width {
			l.addIndentError("unindent does not match any outer indentation level", pos)
			l.indentStack[len(l.indentStack)-1] = width
		}
	}

	if l.sawAnyToken {
		l.pending = append(l.pending, token.NewToken(token.NEWLINE, "", pos))
	}
	if len(l.pending) == 0 {
		return token.Token{}, false
	}
	tok := l.pending[0]
	l.pending = l.pending[1:]
	return tok, true
}

// measureIndent consumes leading whitespace and returns its width in units
// (tabs and spaces both count as one unit, per spec) plus whether the line
// mixed the two kinds of whitespace.
func (l *Lexer) measureIndent() (int, bool) {
	width := 0
	sawTab, sawSpace := false, false
	for l.ch == ' ' || l.ch == '\t' {
		if l.ch == '\t' {
			sawTab = true
		} else {
			sawSpace = true
		}
		width++
		l.readChar()
	}
	return width, sawTab && sawSpace
}

func (l *Lexer) finalizeAtEOF(eof token.Token) token.Token {
	pos := l.currentPos()
	if len(l.indentStack) > 1 {
		l.pending = append(l.pending, token.NewToken(token.NEWLINE, "", pos))
		for len(l.indentStack) > 1 {
			l.indentStack = l.indentStack[:len(l.indentStack)-1]
			l.pending = append(l.pending, token.NewToken(token.DEDENT, "", pos))
		}
		l.pending = append(l.pending, eof)
		tok := l.pending[0]
		l.pending = l.pending[1:]
		return tok
	}
	return eof
}

func (l *Lexer) skipWhitespaceOnLine() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) skipLineComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

func (l *Lexer) skipBlockComment(pos token.Position) {
	l.readChar() // skip '*'
	l.readChar()
	for {
		if l.ch == 0 {
			l.addError("unterminated block comment", pos)
			return
		}
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			l.readChar()
			return
		}
		if l.ch == '\n' {
			l.newLine()
		}
		l.readChar()
	}
}

// scanToken scans exactly one ordinary (non-synthetic) token, including
// skipping comments and intra-line whitespace, and handling a trailing
// newline by flipping back into line-start mode for the caller's next call.
func (l *Lexer) scanToken() token.Token {
	for {
		l.skipWhitespaceOnLine()
		if l.ch == '/' && l.peekChar() == '/' {
			l.skipLineComment()
			continue
		}
		if l.ch == '/' && l.peekChar() == '*' {
			pos := l.currentPos()
			l.readChar()
			l.skipBlockComment(pos)
			continue
		}
		break
	}

	pos := l.currentPos()

	if l.ch == 0 {
		return token.NewToken(token.EOF, "", pos)
	}

	if l.ch == '\n' {
		l.readChar()
		l.newLine()
		l.atLineStart = true
		if l.sawAnyToken {
			return token.NewToken(token.NEWLINE, "", pos)
		}
		return l.scanToken()
	}

	switch {
	case isLetter(l.ch):
		lit := l.readIdentifier()
		return token.NewToken(token.LookupIdent(lit), lit, pos)
	case isDigit(l.ch):
		tt, lit := l.readNumber()
		return token.NewToken(tt, lit, pos)
	case l.ch == '"':
		return l.readString(pos)
	}

	return l.readOperator(pos)
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readNumber() (token.Type, string) {
	start := l.position
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	isFloat := false
	if l.ch == '.' && isDigit(l.peekChar()) {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
	}
	if isFloat {
		return token.FLOAT, l.input[start:l.position]
	}
	return token.INT, l.input[start:l.position]
}

// readString reads a double-quoted string literal, honoring the escape
// sequences in §4.1 and {expr} interpolation holes (balanced at brace depth
// zero, with \{ \} for literal braces). The raw, still-escaped interpolation
// text is preserved verbatim inside the literal so the parser can re-lex it.
func (l *Lexer) readString(pos token.Position) token.Token {
	l.readChar() // opening quote
	var out strings.Builder
	hasInterp := false

	for l.ch != '"' && l.ch != 0 {
		switch l.ch {
		case '\\':
			l.readChar()
			switch l.ch {
			case '\\':
				out.WriteByte('\\')
			case '"':
				out.WriteByte('"')
			case 'n':
				out.WriteByte('\n')
			case 't':
				out.WriteByte('\t')
			case 'r':
				out.WriteByte('\r')
			case '{':
				out.WriteByte('{')
			case '}':
				out.WriteByte('}')
			default:
				l.addError("unknown escape sequence", l.currentPos())
				out.WriteRune(l.ch)
			}
			l.readChar()
		case '{':
			hasInterp = true
			out.WriteByte('{')
			l.readChar()
			depth := 1
			for depth > 0 && l.ch != 0 {
				if l.ch == '{' {
					depth++
				} else if l.ch == '}' {
					depth--
					if depth == 0 {
						out.WriteByte('}')
						l.readChar()
						break
					}
				}
				if l.ch == '\n' {
					l.newLine()
				}
				out.WriteRune(l.ch)
				l.readChar()
			}
		case '\n':
			l.addError("unterminated string literal", pos)
			return token.NewToken(token.STRING, out.String(), pos)
		default:
			out.WriteRune(l.ch)
			l.readChar()
		}
	}

	if l.ch == 0 {
		l.addError("unterminated string literal", pos)
		return token.NewToken(token.STRING, out.String(), pos)
	}
	l.readChar() // closing quote

	if hasInterp {
		return token.NewToken(token.INTERP_STRING, out.String(), pos)
	}
	return token.NewToken(token.STRING, out.String(), pos)
}

type opRule struct {
	ch      rune
	two     rune
	twoType token.Type
	oneType token.Type
}

var twoCharOps = []opRule{
	{'=', '=', token.EQ, token.ASSIGN},
	{'!', '=', token.NOT_EQ, token.ILLEGAL},
	{'<', '=', token.LESS_EQ, token.LESS},
	{'>', '=', token.GREATER_EQ, token.GREATER},
}

func (l *Lexer) readOperator(pos token.Position) token.Token {
	for _, r := range twoCharOps {
		if l.ch == r.ch {
			if l.peekChar() == r.two {
				lit := string(l.ch) + string(r.two)
				l.readChar()
				l.readChar()
				return token.NewToken(r.twoType, lit, pos)
			}
			if r.oneType == token.ILLEGAL {
				break
			}
			lit := string(l.ch)
			l.readChar()
			return token.NewToken(r.oneType, lit, pos)
		}
	}

	simple := map[rune]token.Type{
		'(': token.LPAREN, ')': token.RPAREN,
		'[': token.LBRACK, ']': token.RBRACK,
		'{': token.LBRACE, '}': token.RBRACE,
		',': token.COMMA, '.': token.DOT, ':': token.COLON, '?': token.QUESTION,
		'+': token.PLUS, '-': token.MINUS, '*': token.ASTERISK, '/': token.SLASH,
		'%': token.PERCENT, '^': token.CARET,
	}
	if tt, ok := simple[l.ch]; ok {
		lit := string(l.ch)
		l.readChar()
		return token.NewToken(tt, lit, pos)
	}

	lit := string(l.ch)
	l.addError("illegal character: "+lit, pos)
	l.readChar()
	return token.NewToken(token.ILLEGAL, lit, pos)
}

func isLetter(ch rune) bool { return unicode.IsLetter(ch) || ch == '_' }
func isDigit(ch rune) bool  { return ch >= '0' && ch <= '9' }
