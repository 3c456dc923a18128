package parser

import (
	"strconv"
	"strings"

	"github.com/cwbudde/clean-wasmc/internal/ast"
	"github.com/cwbudde/clean-wasmc/internal/diag"
	"github.com/cwbudde/clean-wasmc/internal/token"
)

// Precedence levels, low to high, per spec §4.2: or, and, not, comparison,
// additive, multiplicative, exponent (right-associative), unary, postfix.
const (
	LOWEST = iota
	precOr
	precAnd
	precComparison
	precAdditive
	precMultiplicative
	precExponent
	precUnary
)

// binaryPrec reports the precedence of t as a binary operator, and whether
// it is right-associative (only `^` is).
func binaryPrec(t token.Type) (int, bool, bool) {
	switch t {
	case token.OR:
		return precOr, false, true
	case token.AND:
		return precAnd, false, true
	case token.EQ, token.NOT_EQ, token.LESS, token.GREATER, token.LESS_EQ, token.GREATER_EQ, token.IS:
		return precComparison, false, true
	case token.PLUS, token.MINUS:
		return precAdditive, false, true
	case token.ASTERISK, token.SLASH, token.PERCENT:
		return precMultiplicative, false, true
	case token.CARET:
		return precExponent, true, true
	default:
		return 0, false, false
	}
}

// parseExpression implements precedence climbing: everything binding at
// least as tightly as minPrec is folded into the returned expression.
func (p *Parser) parseExpression(minPrec int) ast.Expression {
	left := p.parseUnary()
	if left == nil {
		return nil
	}

	for {
		prec, rightAssoc, ok := binaryPrec(p.cur_().Type)
		if !ok || prec < minPrec {
			break
		}
		opTok := p.advance()
		nextMin := prec + 1
		if rightAssoc {
			nextMin = prec
		}
		right := p.parseExpression(nextMin)
		left = &ast.BinaryExpression{
			Sp: token.Span{Start: left.Span().Start, End: p.cur_().Pos},
			Left: left, Operator: opTok.Literal, Right: right,
		}
	}

	for p.is(token.ONERROR) {
		p.advance()
		var handler ast.Node
		if p.is(token.NEWLINE) {
			handler = p.parseIndentedBlock()
		} else {
			handler = p.parseExpression(LOWEST)
		}
		left = &ast.OnError{Sp: token.Span{Start: left.Span().Start, End: p.cur_().Pos}, Expr: left, Handler: handler}
	}

	return left
}

func (p *Parser) parseUnary() ast.Expression {
	switch p.cur_().Type {
	case token.MINUS:
		tok := p.advance()
		operand := p.parseUnary()
		return &ast.UnaryExpression{Sp: token.Span{Start: tok.Pos, End: p.cur_().Pos}, Operator: "-", Operand: operand}
	case token.NOT:
		tok := p.advance()
		operand := p.parseExpression(precComparison)
		return &ast.UnaryExpression{Sp: token.Span{Start: tok.Pos, End: p.cur_().Pos}, Operator: "not", Operand: operand}
	default:
		return p.parsePostfix(p.parsePrimary())
	}
}

func (p *Parser) parsePrimary() ast.Expression {
	start := p.cur_().Pos
	switch p.cur_().Type {
	case token.INT:
		tok := p.advance()
		v, _ := strconv.ParseInt(strings.ReplaceAll(tok.Literal, "_", ""), 10, 64)
		return &ast.IntegerLiteral{Sp: p.span(start), Value: v}
	case token.FLOAT:
		tok := p.advance()
		v, _ := strconv.ParseFloat(strings.ReplaceAll(tok.Literal, "_", ""), 64)
		return &ast.NumberLiteral{Sp: p.span(start), Raw: tok.Literal, Value: v}
	case token.STRING, token.INTERP_STRING:
		return p.parseStringLiteral()
	case token.TRUE:
		p.advance()
		return &ast.BooleanLiteral{Sp: p.span(start), Value: true}
	case token.FALSE:
		p.advance()
		return &ast.BooleanLiteral{Sp: p.span(start), Value: false}
	case token.NIL:
		p.advance()
		return &ast.NilLiteral{Sp: p.span(start)}
	case token.LPAREN:
		p.advance()
		expr := p.parseExpression(LOWEST)
		p.expect(token.RPAREN)
		return expr
	case token.LBRACK:
		return p.parseListOrMatrixLiteral()
	case token.IF:
		return p.parseConditionalExpression()
	case token.BASE:
		p.advance()
		p.expect(token.LPAREN)
		args := p.parseArgList()
		p.expect(token.RPAREN)
		return &ast.BaseCall{Sp: p.span(start), Args: args}
	case token.START:
		p.advance()
		expr := p.parseExpression(precUnary)
		return &ast.StartExpression{Sp: p.span(start), Expr: expr}
	case token.IDENT:
		tok := p.advance()
		if p.is(token.LPAREN) {
			p.advance()
			args := p.parseArgList()
			p.expect(token.RPAREN)
			return &ast.CallExpression{Sp: p.span(start), Callee: tok.Literal, Args: args}
		}
		return &ast.Identifier{Sp: p.span(start), Value: tok.Literal}
	default:
		p.errorf(diag.ParseError, "unexpected token %s %q in expression", p.cur_().Type, p.cur_().Literal)
		return nil
	}
}

// parseArgList parses a comma-separated expression list up to (but not
// consuming) the closing delimiter, which the caller expects.
func (p *Parser) parseArgList() []ast.Expression {
	var args []ast.Expression
	for !p.is(token.RPAREN) && !p.is(token.EOF) {
		args = append(args, p.parseExpression(LOWEST))
		if !p.optional(token.COMMA) {
			break
		}
	}
	return args
}

func (p *Parser) parsePostfix(left ast.Expression) ast.Expression {
	if left == nil {
		return nil
	}
	for {
		switch {
		case p.is(token.DOT):
			p.advance()
			name, _ := p.expect(token.IDENT)
			if p.is(token.LPAREN) {
				p.advance()
				args := p.parseArgList()
				p.expect(token.RPAREN)
				left = &ast.MethodCallExpression{
					Sp: token.Span{Start: left.Span().Start, End: p.cur_().Pos},
					Receiver: left, Method: name.Literal, Args: args,
				}
			} else {
				left = &ast.PropertyAccess{
					Sp: token.Span{Start: left.Span().Start, End: p.cur_().Pos},
					Receiver: left, Name: name.Literal,
				}
			}
		case p.is(token.LBRACK):
			p.advance()
			var idx []ast.Expression
			for !p.is(token.RBRACK) && !p.is(token.EOF) {
				idx = append(idx, p.parseExpression(LOWEST))
				if !p.optional(token.COMMA) {
					break
				}
			}
			p.expect(token.RBRACK)
			left = &ast.IndexAccess{
				Sp: token.Span{Start: left.Span().Start, End: p.cur_().Pos},
				Receiver: left, Indices: idx,
			}
		default:
			return left
		}
	}
}

// parseListOrMatrixLiteral parses `[...]`. When every element parses as a
// list literal itself, the whole thing is re-interpreted as a Matrix
// literal's rows rather than a list of lists.
func (p *Parser) parseListOrMatrixLiteral() ast.Expression {
	start := p.cur_().Pos
	p.advance() // '['
	var elems []ast.Expression
	for !p.is(token.RBRACK) && !p.is(token.EOF) {
		elems = append(elems, p.parseExpression(LOWEST))
		if !p.optional(token.COMMA) {
			break
		}
	}
	p.expect(token.RBRACK)

	if len(elems) > 0 {
		rows := make([][]ast.Expression, 0, len(elems))
		allLists := true
		for _, e := range elems {
			ll, ok := e.(*ast.ListLiteral)
			if !ok {
				allLists = false
				break
			}
			rows = append(rows, ll.Elements)
		}
		if allLists {
			return &ast.MatrixLiteral{Sp: p.span(start), Rows: rows}
		}
	}
	return &ast.ListLiteral{Sp: p.span(start), Elements: elems}
}

func (p *Parser) parseConditionalExpression() ast.Expression {
	start := p.advance().Pos // 'if'
	cond := p.parseExpression(LOWEST)
	p.expect(token.THEN)
	thenExpr := p.parseExpression(LOWEST)
	p.expect(token.ELSE)
	elseExpr := p.parseExpression(LOWEST)
	return &ast.ConditionalExpression{Sp: p.span(start), Condition: cond, Then: thenExpr, Else: elseExpr}
}

// parseStringLiteral parses the current STRING or INTERP_STRING token into
// an ast.StringLiteral, re-parsing each `{expr}` hole of an INTERP_STRING
// with a fresh Parser over just that hole's source text (the lexer leaves
// hole text unprocessed precisely so this can happen here).
func (p *Parser) parseStringLiteral() *ast.StringLiteral {
	start := p.cur_().Pos
	if !p.is(token.STRING) && !p.is(token.INTERP_STRING) {
		p.errorf(diag.ParseError, "expected string literal, found %s %q", p.cur_().Type, p.cur_().Literal)
		return nil
	}
	tok := p.advance()
	if tok.Type == token.STRING {
		return &ast.StringLiteral{Sp: p.span(start), Parts: []ast.StringPart{{Text: tok.Literal}}}
	}
	return &ast.StringLiteral{Sp: p.span(start), Parts: p.parseInterpolationHoles(tok.Literal)}
}

func (p *Parser) parseInterpolationHoles(raw string) []ast.StringPart {
	var parts []ast.StringPart
	var text strings.Builder
	i := 0
	for i < len(raw) {
		c := raw[i]
		switch {
		case c == '\\' && i+1 < len(raw):
			switch raw[i+1] {
			case 'n':
				text.WriteByte('\n')
			case 't':
				text.WriteByte('\t')
			case 'r':
				text.WriteByte('\r')
			default:
				text.WriteByte(raw[i+1])
			}
			i += 2
		case c == '{':
			if text.Len() > 0 {
				parts = append(parts, ast.StringPart{Text: text.String()})
				text.Reset()
			}
			depth := 1
			j := i + 1
			for j < len(raw) && depth > 0 {
				if raw[j] == '{' {
					depth++
				} else if raw[j] == '}' {
					depth--
					if depth == 0 {
						break
					}
				}
				j++
			}
			holeSrc := raw[i+1 : j]
			sub := New(holeSrc)
			expr := sub.parseExpression(LOWEST)
			for _, d := range sub.diags.All() {
				p.diags.Add(d)
			}
			parts = append(parts, ast.StringPart{Expr: expr})
			i = j + 1
		default:
			text.WriteByte(c)
			i++
		}
	}
	if text.Len() > 0 || len(parts) == 0 {
		parts = append(parts, ast.StringPart{Text: text.String()})
	}
	return parts
}
