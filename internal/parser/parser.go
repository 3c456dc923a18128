// Package parser builds a typed internal/ast tree from a token stream using
// a PEG-style recursive-descent grammar with explicit operator-precedence
// climbing for expressions. It is grounded on the teacher's TokenCursor +
// combinator idiom (cursor.go, and the optional/choice helpers below),
// generalized to Clean Language's indentation-based
// grammar and apply-block desugaring.
package parser

import (
	"strconv"

	"github.com/cwbudde/clean-wasmc/internal/ast"
	"github.com/cwbudde/clean-wasmc/internal/diag"
	"github.com/cwbudde/clean-wasmc/internal/lexer"
	"github.com/cwbudde/clean-wasmc/internal/token"
)

// syncTokens are the statement/function/class-boundary recovery points
// named in spec §4.2 and §7.
var syncTokens = []token.Type{token.FUNCTIONS, token.CLASS, token.TESTS, token.NEWLINE}

// Parser holds the mutable cursor and the accumulating diagnostic list.
// The cursor itself is immutable (see cursor.go); Parser.cur is simply the
// slot holding "the current one", matching the teacher's own pattern of a
// mutable parser wrapping otherwise-immutable navigation state.
type Parser struct {
	cur    *TokenCursor
	diags  diag.Diagnostics
	source string
}

// New creates a Parser over source.
func New(source string) *Parser {
	l := lexer.New(source)
	p := &Parser{cur: NewTokenCursor(l), source: source}
	for _, d := range l.Diagnostics() {
		p.diags.Add(d)
	}
	return p
}

// Parse runs a Parser over source and returns the resulting program (or a
// placeholder Program with Error-marked pieces) alongside every diagnostic
// from lexing and parsing.
func Parse(source string) (*ast.Program, []diag.Diagnostic) {
	p := New(source)
	prog := p.parseProgram()
	return prog, p.diags.All()
}

func (p *Parser) cur_() token.Token       { return p.cur.Current() }
func (p *Parser) peek(n int) token.Token  { return p.cur.Peek(n) }
func (p *Parser) is(t token.Type) bool    { return p.cur.Is(t) }
func (p *Parser) peekIs(n int, t token.Type) bool { return p.cur.PeekIs(n, t) }

func (p *Parser) advance() token.Token {
	tok := p.cur_()
	p.cur = p.cur.Advance()
	return tok
}

func (p *Parser) span(start token.Position) token.Span {
	return token.Span{Start: start, End: p.cur_().Pos}
}

// expect advances past a token of type t, or records a ParseError and
// leaves the cursor in place (progress is still guaranteed elsewhere since
// callers fall back to recovery on failure — spec §8 Property 3).
func (p *Parser) expect(t token.Type) (token.Token, bool) {
	if p.is(t) {
		return p.advance(), true
	}
	p.errorf(diag.ParseError, "expected %s, found %s %q", t, p.cur_().Type, p.cur_().Literal)
	return token.Token{}, false
}

func (p *Parser) optional(t token.Type) bool {
	if p.is(t) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) choice(types ...token.Type) (token.Token, bool) {
	for _, t := range types {
		if p.is(t) {
			return p.advance(), true
		}
	}
	return token.Token{}, false
}

func (p *Parser) errorf(kind diag.Kind, format string, args ...any) {
	sp := token.Span{Start: p.cur_().Pos, End: p.cur_().Pos}
	p.diags.Errorf(kind, sp, format, args...)
}

// skipToSync advances past tokens until a synchronization point: a NEWLINE
// at the current (or shallower) context, or one of functions:/class/tests:
// at the start of a line. Consumes at least one token, guaranteeing parser
// progress (spec §8 Property 3) even when already positioned on a sync
// token.
func (p *Parser) skipToSync() {
	p.advance()
	for {
		if p.is(token.EOF) {
			return
		}
		if p.cur.IsAny(syncTokens...) {
			if p.is(token.NEWLINE) {
				p.advance()
			}
			return
		}
		p.advance()
	}
}

// ---- Program -------------------------------------------------------------

func (p *Parser) parseProgram() *ast.Program {
	start := p.cur_().Pos
	prog := &ast.Program{}

	for !p.is(token.EOF) {
		switch {
		case p.optional(token.NEWLINE):
			continue
		case p.is(token.IMPORT):
			prog.Imports = append(prog.Imports, p.parseImport())
		case p.is(token.CONSTANT):
			if block, ok := p.parseApplyBlock(applyConstant).(*ast.BlockStatement); ok {
				for _, s := range block.Statements {
					if vd, ok := s.(*ast.VarDecl); ok {
						prog.Constants = append(prog.Constants, vd)
					}
				}
			}
		case p.is(token.CLASS):
			if c := p.parseClass(); c != nil {
				prog.Classes = append(prog.Classes, c)
			}
		case p.is(token.FUNCTIONS):
			p.parseFunctionsBlock(prog, false)
		case p.is(token.TESTS):
			p.parseFunctionsBlock(prog, true)
		case p.is(token.START) && p.peekIs(1, token.LPAREN):
			prog.Start = p.parseFunction()
		default:
			p.errorf(diag.ParseError, "unexpected top-level token %s %q", p.cur_().Type, p.cur_().Literal)
			p.skipToSync()
		}
	}

	prog.Sp = p.span(start)
	return prog
}

func (p *Parser) parseImport() *ast.ImportItem {
	start := p.cur_().Pos
	p.advance() // 'import'
	item := &ast.ImportItem{}

	name, _ := p.expect(token.IDENT)
	first := name.Literal

	if p.optional(token.FROM) {
		item.Symbol = first
		mod, _ := p.expect(token.IDENT)
		item.Module = mod.Literal
	} else {
		item.Module = first
	}
	if p.optional(token.AS) {
		alias, _ := p.expect(token.IDENT)
		item.Alias = alias.Literal
	}
	p.optional(token.NEWLINE)
	item.Sp = p.span(start)
	return item
}

// parseFunctionsBlock consumes `functions:` or `tests:` followed by an
// indented sequence of function declarations.
func (p *Parser) parseFunctionsBlock(prog *ast.Program, isTests bool) {
	p.advance() // 'functions' or 'tests'
	p.optional(token.COLON)
	p.optional(token.NEWLINE)
	if !p.optional(token.INDENT) {
		return
	}
	for !p.is(token.DEDENT) && !p.is(token.EOF) {
		if p.optional(token.NEWLINE) {
			continue
		}
		fn := p.parseFunction()
		if fn == nil {
			p.skipToSync()
			continue
		}
		if isTests {
			prog.Tests = append(prog.Tests, fn)
		} else {
			prog.Functions = append(prog.Functions, fn)
		}
	}
	p.optional(token.DEDENT)
}

// parseFunction parses `ReturnType? name(params)` followed by an indented
// body optionally starting with `description "..."` and `input:` blocks.
func (p *Parser) parseFunction() *ast.FunctionDecl {
	start := p.cur_().Pos
	fn := &ast.FunctionDecl{}

	if p.is(token.BACKGROUND) {
		fn.Background = true
		p.advance()
	}

	// A leading type before the name is a return type; `start()` and
	// Void-returning functions have none.
	if !((p.is(token.IDENT) || p.is(token.START)) && p.peekIs(1, token.LPAREN)) {
		fn.ReturnType = p.parseType()
	}

	name, ok := p.choice(token.IDENT, token.START)
	if !ok {
		p.expect(token.IDENT)
		return nil
	}
	fn.Name = name.Literal

	if _, ok := p.expect(token.LPAREN); !ok {
		return nil
	}
	for !p.is(token.RPAREN) && !p.is(token.EOF) {
		fn.Params = append(fn.Params, p.parseParam())
		if !p.optional(token.COMMA) {
			break
		}
	}
	p.expect(token.RPAREN)
	p.optional(token.NEWLINE)

	if p.optional(token.INDENT) {
		if p.is(token.DESCRIPTION) {
			p.advance()
			if s := p.parseStringLiteral(); s != nil && s.IsPlain() {
				fn.Description = s.Parts[0].Text
			}
			p.optional(token.NEWLINE)
		}
		if p.is(token.INPUT) {
			p.advance()
			p.optional(token.COLON)
			p.optional(token.NEWLINE)
			if p.optional(token.INDENT) {
				for !p.is(token.DEDENT) && !p.is(token.EOF) {
					p.advance()
				}
				p.optional(token.DEDENT)
			}
		}
		fn.Body = p.parseStatementsUntilDedent()
		p.optional(token.DEDENT)
	} else {
		fn.Body = &ast.BlockStatement{}
	}

	fn.Sp = p.span(start)
	return fn
}

func (p *Parser) parseParam() *ast.Param {
	start := p.cur_().Pos
	typ := p.parseType()
	name, _ := p.expect(token.IDENT)
	param := &ast.Param{Type: typ, Name: name.Literal}
	if p.optional(token.ASSIGN) {
		param.Default = p.parseExpression(LOWEST)
	}
	param.Sp = p.span(start)
	return param
}

// parseStatementsUntilDedent collects statements at the current indent
// level into a block, stopping at DEDENT or EOF.
func (p *Parser) parseStatementsUntilDedent() *ast.BlockStatement {
	start := p.cur_().Pos
	block := &ast.BlockStatement{}
	for !p.is(token.DEDENT) && !p.is(token.EOF) {
		if p.optional(token.NEWLINE) {
			continue
		}
		stmt := p.parseStatement()
		if stmt == nil {
			p.skipToSync()
			continue
		}
		block.Statements = append(block.Statements, stmt)
	}
	block.Sp = p.span(start)
	return block
}

// parseIndentedBlock expects NEWLINE INDENT ... DEDENT following a header
// that has already been consumed.
func (p *Parser) parseIndentedBlock() *ast.BlockStatement {
	p.optional(token.NEWLINE)
	if !p.optional(token.INDENT) {
		start := p.cur_().Pos
		return &ast.BlockStatement{Sp: p.span(start)}
	}
	block := p.parseStatementsUntilDedent()
	p.optional(token.DEDENT)
	return block
}

// ---- Classes ---------------------------------------------------------

func (p *Parser) parseClass() *ast.ClassDecl {
	start := p.cur_().Pos
	p.advance() // 'class'
	c := &ast.ClassDecl{}

	name, ok := p.expect(token.IDENT)
	if !ok {
		return nil
	}
	c.Name = name.Literal

	if p.optional(token.IS) {
		parent, _ := p.expect(token.IDENT)
		c.Parent = parent.Literal
	}
	p.optional(token.NEWLINE)

	if !p.optional(token.INDENT) {
		c.Sp = p.span(start)
		return c
	}

	for !p.is(token.DEDENT) && !p.is(token.EOF) {
		if p.optional(token.NEWLINE) {
			continue
		}
		switch {
		case p.is(token.CONSTRUCTOR):
			p.advance()
			p.optional(token.LPAREN)
			ctor := &ast.FunctionDecl{Name: "constructor"}
			for !p.is(token.RPAREN) && !p.is(token.EOF) {
				ctor.Params = append(ctor.Params, p.parseParam())
				if !p.optional(token.COMMA) {
					break
				}
			}
			p.expect(token.RPAREN)
			ctor.Body = p.parseIndentedBlock()
			c.Constructor = ctor
		case p.is(token.PRIVATE), p.isTypeStart() && p.isFieldDecl():
			isPrivate := p.optional(token.PRIVATE)
			fstart := p.cur_().Pos
			ftype := p.parseType()
			fname, _ := p.expect(token.IDENT)
			p.optional(token.NEWLINE)
			c.Fields = append(c.Fields, &ast.Field{
				Sp: p.span(fstart), Name: fname.Literal, Type: ftype, IsPrivate: isPrivate,
			})
		case p.isTypeStart() || p.is(token.IDENT):
			if fn := p.parseFunction(); fn != nil {
				c.Methods = append(c.Methods, fn)
			}
		default:
			p.skipToSync()
		}
	}
	p.optional(token.DEDENT)
	c.Sp = p.span(start)
	return c
}

// isTypeStart reports whether the current token can begin a type
// expression (built-in type keyword or a class-name identifier).
func (p *Parser) isTypeStart() bool {
	switch p.cur_().Type {
	case token.IDENT:
		return true
	}
	return false
}

// isFieldDecl performs a bounded lookahead to distinguish `Type name` field
// declarations from `Type name(...)` method declarations.
func (p *Parser) isFieldDecl() bool {
	mark := p.cur.Mark()
	defer func() { p.cur = p.cur.ResetTo(mark) }()
	p.parseType()
	if !p.is(token.IDENT) {
		return false
	}
	p.advance()
	return !p.is(token.LPAREN)
}

// ---- Types -------------------------------------------------------------

var builtinTypeNames = map[string]ast.TypeKind{
	"Boolean": ast.TBoolean, "Integer": ast.TInteger, "Number": ast.TNumber,
	"String": ast.TString, "Void": ast.TVoid, "Any": ast.TAny,
	"boolean": ast.TBoolean, "integer": ast.TInteger, "number": ast.TNumber,
	"string": ast.TString, "void": ast.TVoid, "any": ast.TAny,
}

func (p *Parser) parseType() *ast.Type {
	start := p.cur_().Pos
	name, _ := p.expect(token.IDENT)

	if kind, ok := builtinTypeNames[name.Literal]; ok {
		return &ast.Type{Sp: p.span(start), Kind: kind}
	}

	switch name.Literal {
	case "List", "Matrix":
		kind := ast.TList
		if name.Literal == "Matrix" {
			kind = ast.TMatrix
		}
		p.expect(token.LPAREN)
		elem := p.parseType()
		p.expect(token.RPAREN)
		return &ast.Type{Sp: p.span(start), Kind: kind, Elem: elem}
	case "Pairs":
		p.expect(token.LPAREN)
		key := p.parseType()
		p.expect(token.COMMA)
		val := p.parseType()
		p.expect(token.RPAREN)
		return &ast.Type{Sp: p.span(start), Kind: ast.TPairs, Key: key, Value: val}
	case "Future":
		p.expect(token.LPAREN)
		elem := p.parseType()
		p.expect(token.RPAREN)
		return &ast.Type{Sp: p.span(start), Kind: ast.TFuture, Elem: elem}
	}

	// Sized numeric types: Integer8/Integer16/Integer32/Integer64,
	// UInteger{…}, Number32/Number64 — spelled as a single identifier.
	if kind, bits, unsigned, ok := parseSizedTypeName(name.Literal); ok {
		return &ast.Type{Sp: p.span(start), Kind: kind, Bits: bits, Unsigned: unsigned}
	}

	t := &ast.Type{Sp: p.span(start), Kind: ast.TClass, Name: name.Literal}
	if p.optional(token.LPAREN) {
		for !p.is(token.RPAREN) && !p.is(token.EOF) {
			t.TypeArgs = append(t.TypeArgs, p.parseType())
			if !p.optional(token.COMMA) {
				break
			}
		}
		p.expect(token.RPAREN)
	}
	return t
}

func parseSizedTypeName(name string) (ast.TypeKind, int, bool, bool) {
	unsigned := false
	rest := name
	if len(name) > 1 && name[:1] == "U" {
		unsigned = true
		rest = name[1:]
	}
	var prefix string
	var kind ast.TypeKind
	switch {
	case hasPrefix(rest, "Integer") && len(rest) > len("Integer"):
		prefix, kind = "Integer", ast.TIntegerSized
	case hasPrefix(rest, "Number") && len(rest) > len("Number"):
		prefix, kind = "Number", ast.TNumberSized
	default:
		return 0, 0, false, false
	}
	bits, err := strconv.Atoi(rest[len(prefix):])
	if err != nil {
		return 0, 0, false, false
	}
	return kind, bits, unsigned, true
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
