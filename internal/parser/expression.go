package parser

import (
	"strings"

	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/token"
)

// parseExpr never returns nil; on error it yields an EmptyStatement at the
// offending position.
func (p *Parser) parseExpr() ast.Statement {
	return p.parseBinary(1)
}

func (p *Parser) parseBinary(minPrec int) ast.Statement {
	left := p.parseUnary()
	for {
		op, prec := binaryOp(p.lx.Peek().Kind)
		if prec == 0 || prec < minPrec {
			return left
		}
		p.advance()
		right := p.parseBinary(prec + 1)
		left = &ast.BinaryExpr{Meta: p.meta(left.GetSpan()), Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() ast.Statement {
	tok := p.lx.Peek()
	var op ast.Operator
	switch tok.Kind {
	case token.Minus:
		op = ast.OpMinus
	case token.Plus:
		op = ast.OpPlus
	case token.KwNot:
		op = ast.OpNot
	default:
		return p.parsePostfix(p.parsePrimary())
	}
	p.advance()
	operand := p.parseUnary()
	return &ast.UnaryExpr{Meta: p.meta(tok.Span), Op: op, Operand: operand}
}

func (p *Parser) parsePrimary() ast.Statement {
	tok := p.lx.Peek()
	switch tok.Kind {
	case token.IntLit, token.BasedIntLit, token.RealLit, token.StringLit, token.WStringLit,
		token.TimeLit, token.DateLit, token.TodLit, token.DateTimeLit, token.KwTrue, token.KwFalse:
		p.advance()
		return p.literal(tok)

	case token.Ident, token.KwString, token.KwWString:
		if p.peekKind(1) == token.Hash {
			return p.parseTypedLiteral()
		}
		if tok.Kind != token.Ident {
			break
		}
		p.advance()
		return &ast.Reference{Meta: p.meta(tok.Span), Name: tok.Text}

	case token.KwThis:
		p.advance()
		return &ast.ThisRef{Meta: p.meta(tok.Span)}

	case token.KwSuper:
		p.advance()
		return &ast.SuperRef{Meta: p.meta(tok.Span)}

	case token.LParen:
		p.advance()
		if p.at(token.Ident) && p.peekKind(1) == token.Assign {
			return p.parseStructLiteral(tok)
		}
		inner := p.parseExpr()
		p.expectEnd(token.RParen, tok.Span)
		return &ast.ParenExpr{Meta: p.meta(tok.Span), Inner: inner}

	case token.LBracket:
		return p.parseArrayLiteral()
	}
	p.err(diag.UnexpectedToken, "expected an expression, got "+describe(tok))
	return &ast.EmptyStatement{Meta: ast.Meta{ID: p.ids.Next(), Span: p.getDiagnosticSpan()}}
}

// parseTypedLiteral: INT#5, REAL#-1.5, Color#Red
func (p *Parser) parseTypedLiteral() ast.Statement {
	typ := p.advance()
	p.advance() // '#'
	var target ast.Statement
	if p.at(token.Minus) {
		minus := p.advance()
		operand := p.parsePrimary()
		target = &ast.UnaryExpr{Meta: p.meta(minus.Span), Op: ast.OpMinus, Operand: operand}
	} else {
		target = p.parsePrimary()
	}
	return &ast.CastExpr{Meta: p.meta(typ.Span), TypeName: typ.Text, TypeSpan: typ.Span, Target: target}
}

func (p *Parser) parseStructLiteral(open token.Token) ast.Statement {
	lit := &ast.StructLiteral{}
	for p.at(token.Ident) {
		name := p.advance()
		ref := &ast.Reference{Meta: p.meta(name.Span), Name: name.Text}
		p.expect(token.Assign, "expected ':=' in struct literal")
		val := p.parseExpr()
		lit.Fields = append(lit.Fields, &ast.Assignment{Meta: p.meta(name.Span), Left: ref, Right: val})
		if !p.eat(token.Comma) {
			break
		}
	}
	p.expectEnd(token.RParen, open.Span)
	lit.Meta = p.meta(open.Span)
	return lit
}

// parseArrayLiteral: [1, 2, 3(0), [4, 5]]
func (p *Parser) parseArrayLiteral() ast.Statement {
	open := p.advance()
	lit := &ast.ArrayLiteral{}
	for !p.at(token.RBracket) && !p.at(token.EOF) {
		if p.at(token.IntLit) && p.peekKind(1) == token.LParen {
			count := p.advance()
			n := p.literal(count)
			p.advance()
			var el ast.Statement
			if !p.at(token.RParen) {
				el = p.parseExpr()
			}
			p.expectEnd(token.RParen, count.Span)
			lit.Elements = append(lit.Elements, &ast.MultipliedStatement{Meta: p.meta(count.Span), Multiplier: n.Int, Element: el})
		} else {
			lit.Elements = append(lit.Elements, p.parseExpr())
		}
		if !p.eat(token.Comma) {
			break
		}
	}
	p.expectEnd(token.RBracket, open.Span)
	lit.Meta = p.meta(open.Span)
	return lit
}

func (p *Parser) parsePostfix(base ast.Statement) ast.Statement {
	for {
		start := base.GetSpan()
		switch p.lx.Peek().Kind {
		case token.Dot:
			p.advance()
			member := p.parseMember()
			if member == nil {
				return base
			}
			base = &ast.MemberAccess{Meta: p.meta(start), Base: base, Member: member}
		case token.LBracket:
			open := p.advance()
			var idx []ast.Statement
			for {
				idx = append(idx, p.parseExpr())
				if !p.eat(token.Comma) {
					break
				}
			}
			p.expectEnd(token.RBracket, open.Span)
			base = &ast.ArrayAccess{Meta: p.meta(start), Base: base, Indices: idx}
		case token.Caret:
			p.advance()
			base = &ast.Deref{Meta: p.meta(start), Base: base}
		case token.LParen:
			open := p.advance()
			args := p.parseArgs()
			p.expectEnd(token.RParen, open.Span)
			base = &ast.CallStatement{Meta: p.meta(start), Operator: base, Args: args}
		default:
			return base
		}
	}
}

// parseMember parses what follows '.': a name, a bit number or %X3.
func (p *Parser) parseMember() ast.Statement {
	tok := p.lx.Peek()
	switch tok.Kind {
	case token.Ident:
		p.advance()
		return &ast.Reference{Meta: p.meta(tok.Span), Name: tok.Text}
	case token.IntLit:
		p.advance()
		idx := p.literal(tok)
		return &ast.DirectAccess{Meta: p.meta(tok.Span), Kind: ast.DirectBit, Index: idx}
	case token.DirectAccess:
		p.advance()
		kind, ok := directKinds[strings.ToUpper(tok.Text[1:2])]
		if !ok {
			p.errAt(diag.SyntaxError, tok.Span, "unknown direct access "+tok.Text)
			return nil
		}
		num := tok
		num.Text = tok.Text[2:]
		num.Span.Start += 2
		num.Kind = token.IntLit
		idx := p.literal(num)
		return &ast.DirectAccess{Meta: p.meta(tok.Span), Kind: kind, Index: idx}
	}
	p.err(diag.MissingToken, "expected a member name after '.', got "+describe(tok))
	return nil
}

var directKinds = map[string]ast.DirectKind{
	"X": ast.DirectBit,
	"B": ast.DirectByte,
	"W": ast.DirectWord,
	"D": ast.DirectDWord,
	"L": ast.DirectLWord,
}

// parseArgs: positional, `a := x` and `q => y` arguments.
func (p *Parser) parseArgs() []ast.Statement {
	var args []ast.Statement
	for !p.at(token.RParen) && !p.at(token.EOF) {
		if p.at(token.Ident) && (p.peekKind(1) == token.Assign || p.peekKind(1) == token.Arrow) {
			name := p.advance()
			ref := &ast.Reference{Meta: p.meta(name.Span), Name: name.Text}
			output := p.advance().Kind == token.Arrow
			val := p.parseExpr()
			if output {
				args = append(args, &ast.OutputAssignment{Meta: p.meta(name.Span), Left: ref, Right: val})
			} else {
				args = append(args, &ast.Assignment{Meta: p.meta(name.Span), Left: ref, Right: val})
			}
		} else {
			args = append(args, p.parseExpr())
		}
		if !p.eat(token.Comma) {
			break
		}
	}
	return args
}
