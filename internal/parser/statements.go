package parser

import (
	"github.com/cwbudde/clean-wasmc/internal/ast"
	"github.com/cwbudde/clean-wasmc/internal/diag"
	"github.com/cwbudde/clean-wasmc/internal/token"
)

// parseStatement dispatches on the current token to one of the statement
// forms in spec §3, including apply-block recognition (spec §4.2).
func (p *Parser) parseStatement() ast.Statement {
	switch p.cur_().Type {
	case token.IF:
		return p.parseIfStatement()
	case token.ITERATE:
		return p.parseIterateStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.BREAK:
		start := p.advance().Pos
		p.optional(token.NEWLINE)
		return &ast.BreakStatement{Sp: p.span(start)}
	case token.CONTINUE:
		start := p.advance().Pos
		p.optional(token.NEWLINE)
		return &ast.ContinueStatement{Sp: p.span(start)}
	case token.RETURN:
		return p.parseReturnStatement()
	case token.ERROR:
		return p.parseErrorStatement()
	case token.PRINT, token.PRINTLN:
		return p.parsePrintStatement()
	case token.LATER:
		return p.parseLaterStatement()
	case token.BACKGROUND:
		return p.parseBackgroundStatement()
	case token.CONSTANT:
		return p.parseApplyBlock(applyConstant)
	case token.IDENT:
		return p.parseIdentLedStatement()
	default:
		if p.isTypeStart() {
			return p.parseTypedDeclOrApplyBlock()
		}
		start := p.cur_().Pos
		expr := p.parseExpression(LOWEST)
		if expr == nil {
			return nil
		}
		p.optional(token.NEWLINE)
		return &ast.ExpressionStatement{Sp: p.span(start), Expr: expr}
	}
}

func (p *Parser) parseIfStatement() ast.Statement {
	start := p.advance().Pos // 'if'
	cond := p.parseExpression(LOWEST)
	p.optional(token.THEN)
	then := p.parseIndentedBlock()
	stmt := &ast.IfStatement{Condition: cond, Then: then}
	if p.is(token.ELSE) {
		p.advance()
		if p.is(token.IF) {
			nested := p.parseIfStatement()
			stmt.Else = &ast.BlockStatement{Statements: []ast.Statement{nested}}
		} else {
			stmt.Else = p.parseIndentedBlock()
		}
	}
	stmt.Sp = p.span(start)
	return stmt
}

// parseIterateStatement disambiguates `iterate i in a to b [step s]` from
// `iterate item in collection` by checking for a `to`/`downto` token after
// the range's lower bound.
func (p *Parser) parseIterateStatement() ast.Statement {
	start := p.advance().Pos // 'iterate'
	name, _ := p.expect(token.IDENT)
	p.expect(token.IN)
	first := p.parseExpression(LOWEST)

	if tok, ok := p.choice(token.TO, token.DOWNTO); ok {
		to := p.parseExpression(LOWEST)
		var step ast.Expression
		if p.optional(token.STEP) {
			step = p.parseExpression(LOWEST)
		}
		body := p.parseIndentedBlock()
		return &ast.IterateRangeStatement{
			Sp: p.span(start), Var: name.Literal, From: first, To: to, Step: step,
			Downto: tok.Type == token.DOWNTO, Body: body,
		}
	}

	body := p.parseIndentedBlock()
	return &ast.IterateCollectionStatement{Sp: p.span(start), Var: name.Literal, Collection: first, Body: body}
}

func (p *Parser) parseWhileStatement() ast.Statement {
	start := p.advance().Pos // 'while'
	cond := p.parseExpression(LOWEST)
	body := p.parseIndentedBlock()
	return &ast.WhileStatement{Sp: p.span(start), Condition: cond, Body: body}
}

func (p *Parser) parseReturnStatement() ast.Statement {
	start := p.advance().Pos // 'return'
	stmt := &ast.ReturnStatement{}
	if !p.is(token.NEWLINE) && !p.is(token.DEDENT) && !p.is(token.EOF) {
		stmt.Value = p.parseExpression(LOWEST)
	}
	p.optional(token.NEWLINE)
	stmt.Sp = p.span(start)
	return stmt
}

func (p *Parser) parseErrorStatement() ast.Statement {
	start := p.advance().Pos // 'error'
	msg := p.parseExpression(LOWEST)
	p.optional(token.NEWLINE)
	return &ast.ErrorStatement{Sp: p.span(start), Message: msg}
}

func (p *Parser) parsePrintStatement() ast.Statement {
	ln := p.is(token.PRINTLN)
	start := p.advance().Pos
	val := p.parseExpression(LOWEST)
	p.optional(token.NEWLINE)
	return &ast.PrintStatement{Sp: p.span(start), Ln: ln, Value: val}
}

// parseLaterStatement is `later x = start expr`.
func (p *Parser) parseLaterStatement() ast.Statement {
	start := p.advance().Pos // 'later'
	name, _ := p.expect(token.IDENT)
	p.expect(token.ASSIGN)
	init := p.parseExpression(LOWEST)
	p.optional(token.NEWLINE)
	return &ast.VarDecl{Sp: p.span(start), Name: name.Literal, Initializer: init, IsLater: true}
}

func (p *Parser) parseBackgroundStatement() ast.Statement {
	start := p.advance().Pos // 'background'
	expr := p.parseExpression(LOWEST)
	p.optional(token.NEWLINE)
	return &ast.BackgroundStatement{Sp: p.span(start), Expr: expr}
}

// parseIdentLedStatement disambiguates, starting from a bare identifier:
// an assignment, an expression statement, or an `a.b.c:`/`<identifier>:`
// apply-block.
func (p *Parser) parseIdentLedStatement() ast.Statement {
	if p.peekIs(1, token.COLON) {
		return p.parseApplyBlock(applyIdentPrefix)
	}

	start := p.cur_().Pos
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}

	if p.is(token.ASSIGN) {
		target, ok := expr.(ast.AssignTarget)
		if !ok {
			p.errorf(diag.ParseError, "invalid assignment target")
			p.optional(token.NEWLINE)
			return nil
		}
		p.advance()
		val := p.parseExpression(LOWEST)
		p.optional(token.NEWLINE)
		return &ast.Assignment{Sp: p.span(start), Target: target, Value: val}
	}

	p.optional(token.NEWLINE)
	return &ast.ExpressionStatement{Sp: p.span(start), Expr: expr}
}

// parseTypedDeclOrApplyBlock handles statements that begin with a type
// name: either `Type name [= expr]` (a variable declaration) or a `<Type>:`
// apply-block (spec §4.2, kind 2).
func (p *Parser) parseTypedDeclOrApplyBlock() ast.Statement {
	mark := p.cur.Mark()
	typ := p.parseType()
	if p.is(token.COLON) {
		p.cur = p.cur.ResetTo(mark)
		return p.parseApplyBlock(applyTyped)
	}

	start := typ.Sp.Start
	name, _ := p.expect(token.IDENT)
	decl := &ast.VarDecl{DeclType: typ, Name: name.Literal}
	if p.optional(token.ASSIGN) {
		decl.Initializer = p.parseExpression(LOWEST)
	}
	p.optional(token.NEWLINE)
	decl.Sp = p.span(start)
	return decl
}
