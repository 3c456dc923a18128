package parser

import (
	"github.com/cwbudde/clean-wasmc/internal/ast"
	"github.com/cwbudde/clean-wasmc/internal/token"
)

// applyKind distinguishes the four apply-block forms in spec §4.2. Per
// spec §9's design note, desugaring happens entirely here: every kind
// resolves to a *ast.BlockStatement of ordinary statements, so no
// downstream phase ever sees an apply-block.
type applyKind int

const (
	applyConstant applyKind = iota
	applyTyped
	applyIdentPrefix
)

func (p *Parser) parseApplyBlock(kind applyKind) ast.Statement {
	start := p.cur_().Pos

	switch kind {
	case applyConstant:
		p.advance() // 'constant'
		p.expect(token.COLON)
		return p.desugarTypedLines(start, nil, true)
	case applyTyped:
		typ := p.parseType()
		p.expect(token.COLON)
		return p.desugarTypedLines(start, typ, false)
	default:
		return p.desugarIdentPrefixLines(start)
	}
}

// desugarTypedLines handles kinds 1 (constant:) and 2 (<Type>:): each
// indented line is `[Type] name = expr`.
func (p *Parser) desugarTypedLines(start token.Position, sharedType *ast.Type, isConstant bool) ast.Statement {
	p.optional(token.NEWLINE)
	block := &ast.BlockStatement{}
	if p.optional(token.INDENT) {
		for !p.is(token.DEDENT) && !p.is(token.EOF) {
			if p.optional(token.NEWLINE) {
				continue
			}
			lineStart := p.cur_().Pos
			lineType := sharedType
			if isConstant {
				lineType = p.parseType()
			}
			name, _ := p.expect(token.IDENT)
			p.expect(token.ASSIGN)
			init := p.parseExpression(LOWEST)
			p.optional(token.NEWLINE)
			block.Statements = append(block.Statements, &ast.VarDecl{
				Sp: p.span(lineStart), DeclType: lineType, Name: name.Literal,
				Initializer: init, IsConstant: isConstant,
			})
		}
		p.optional(token.DEDENT)
	}
	block.Sp = p.span(start)
	return block
}

// desugarIdentPrefixLines handles kinds 3 (`a.b.c:`) and 4
// (`<identifier>:`): each indented line is a bare expression, desugared to
// a call of the shared prefix with that expression as its sole argument.
func (p *Parser) desugarIdentPrefixLines(start token.Position) ast.Statement {
	nameTok, _ := p.expect(token.IDENT)
	var prefix ast.Expression = &ast.Identifier{Sp: token.Span{Start: nameTok.Pos, End: nameTok.Pos}, Value: nameTok.Literal}
	for p.is(token.DOT) {
		p.advance()
		prop, _ := p.expect(token.IDENT)
		prefix = &ast.PropertyAccess{Sp: p.span(nameTok.Pos), Receiver: prefix, Name: prop.Literal}
	}
	p.expect(token.COLON)
	p.optional(token.NEWLINE)

	block := &ast.BlockStatement{}
	if p.optional(token.INDENT) {
		for !p.is(token.DEDENT) && !p.is(token.EOF) {
			if p.optional(token.NEWLINE) {
				continue
			}
			lineStart := p.cur_().Pos
			arg := p.parseExpression(LOWEST)
			p.optional(token.NEWLINE)
			block.Statements = append(block.Statements, &ast.ExpressionStatement{
				Sp: p.span(lineStart), Expr: callFromPrefix(p.span(lineStart), prefix, arg),
			})
		}
		p.optional(token.DEDENT)
	}
	block.Sp = p.span(start)
	return block
}

func callFromPrefix(sp token.Span, prefix, arg ast.Expression) ast.Expression {
	switch recv := prefix.(type) {
	case *ast.Identifier:
		return &ast.CallExpression{Sp: sp, Callee: recv.Value, Args: []ast.Expression{arg}}
	case *ast.PropertyAccess:
		return &ast.MethodCallExpression{Sp: sp, Receiver: recv.Receiver, Method: recv.Name, Args: []ast.Expression{arg}}
	default:
		return &ast.CallExpression{Sp: sp, Callee: "", Args: []ast.Expression{arg}}
	}
}
