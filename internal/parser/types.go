package parser

import (
	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/token"
)

// parseTypeBlock: TYPE name : type [:= init]; ... END_TYPE
func (p *Parser) parseTypeBlock() bool {
	open := p.advance()
	for p.skipPragmas(); p.at(token.Ident); p.skipPragmas() {
		start := p.lx.Peek().Span
		name := p.advance()
		if _, ok := p.expect(token.Colon, "expected ':' after type name"); !ok {
			p.resyncDecl(token.KwEndType)
			continue
		}
		var dt ast.DataType
		switch decl := p.parseTypeDecl().(type) {
		case *ast.DataTypeDefinition:
			dt = decl.Type
			dt.SetTypeName(name.Text)
		case *ast.DataTypeReference:
			dt = ast.NewAlias(name.Text, decl.Name)
		}
		var init ast.Statement
		if p.eat(token.Assign) {
			init = p.parseExpr()
		}
		// The semicolon may be left out before END_TYPE or the next declaration.
		if !p.eat(token.Semicolon) && !p.at(token.KwEndType) && !p.at(token.Ident) {
			p.expect(token.Semicolon, "expected ';' after type declaration")
		}
		p.unit.UserTypes = append(p.unit.UserTypes, &ast.UserTypeDeclaration{
			ID:          p.ids.Next(),
			Type:        dt,
			Initializer: init,
			Span:        start.Cover(p.lastSpan),
		})
	}
	p.expectEnd(token.KwEndType, open.Span)
	p.eat(token.Semicolon)
	return true
}

// parseTypeDecl parses a type after ':' and never returns nil; on error the
// result is a reference with an empty name.
func (p *Parser) parseTypeDecl() ast.DataTypeDeclaration {
	start := p.lx.Peek().Span
	def := func(t ast.DataType) ast.DataTypeDeclaration {
		return &ast.DataTypeDefinition{Type: t, Span: start.Cover(p.lastSpan)}
	}
	switch p.lx.Peek().Kind {
	case token.KwStruct:
		open := p.advance()
		var members []*ast.Variable
		for p.skipPragmas(); p.at(token.Ident); p.skipPragmas() {
			vars, ok := p.parseVarDecl()
			members = append(members, vars...)
			if !ok {
				p.resyncDecl(token.KwEndStruct)
			}
		}
		p.expectEnd(token.KwEndStruct, open.Span)
		return def(ast.NewStruct("", members))

	case token.KwArray:
		p.advance()
		p.expect(token.LBracket, "expected '[' after ARRAY")
		var dims []*ast.RangeStatement
		rank := 0
		for {
			if p.eat(token.Star) {
				rank++
			} else {
				dims = append(dims, p.parseRange())
			}
			if !p.eat(token.Comma) {
				break
			}
		}
		p.expect(token.RBracket, "expected ']' after array dimensions")
		p.expect(token.KwOf, "expected OF after array dimensions")
		inner := p.parseTypeDecl()
		if rank > 0 {
			if len(dims) > 0 {
				p.errAt(diag.SyntaxError, start.Cover(p.lastSpan), "cannot mix '*' and fixed dimensions")
			}
			return def(ast.NewVarLengthArray("", rank, inner))
		}
		return def(ast.NewArray("", dims, inner))

	case token.KwRefTo:
		p.advance()
		inner := p.parseTypeDecl()
		return def(ast.NewPointer("", inner, false))

	case token.KwPointer:
		p.advance()
		p.expect(token.KwTo, "expected TO after POINTER")
		inner := p.parseTypeDecl()
		return def(ast.NewPointer("", inner, false))

	case token.KwString, token.KwWString:
		tok := p.advance()
		wide := tok.Kind == token.KwWString
		var size ast.Statement
		switch {
		case p.eat(token.LBracket):
			size = p.parseExpr()
			p.expect(token.RBracket, "expected ']' after string length")
		case p.at(token.LParen):
			p.advance()
			size = p.parseExpr()
			p.expect(token.RParen, "expected ')' after string length")
		default:
			name := "STRING"
			if wide {
				name = "WSTRING"
			}
			return &ast.DataTypeReference{Name: name, Span: tok.Span}
		}
		return def(ast.NewString("", wide, size))

	case token.LParen:
		p.advance()
		elems := p.parseEnumElements(nil)
		return def(ast.NewEnum("", nil, elems))

	case token.Ident:
		name := p.advance()
		if !p.at(token.LParen) {
			return &ast.DataTypeReference{Name: name.Text, Span: name.Span}
		}
		p.advance()
		first := p.parseExpr()
		if p.eat(token.DotDot) {
			end := p.parseExpr()
			rng := &ast.RangeStatement{Meta: p.meta(first.GetSpan()), Start: first, End: end}
			p.expect(token.RParen, "expected ')' after subrange")
			return def(ast.NewSubRange("", name.Text, rng))
		}
		elems := p.parseEnumElements(first)
		return def(ast.NewEnum("", &ast.DataTypeReference{Name: name.Text, Span: name.Span}, elems))
	}
	p.err(diag.MissingToken, "expected a type, got "+describe(p.lx.Peek()))
	return &ast.DataTypeReference{Span: p.getDiagnosticSpan()}
}

func (p *Parser) parseRange() *ast.RangeStatement {
	start := p.parseExpr()
	p.expect(token.DotDot, "expected '..' in range")
	end := p.parseExpr()
	return &ast.RangeStatement{Meta: p.meta(start.GetSpan()), Start: start, End: end}
}

// parseEnumElements parses `a, b := 2)` after '('. first is an already
// parsed leading element, if any.
func (p *Parser) parseEnumElements(first ast.Statement) []*ast.EnumElement {
	var out []*ast.EnumElement
	add := func(s ast.Statement) {
		ref, ok := s.(*ast.Reference)
		if !ok {
			p.errAt(diag.SyntaxError, s.GetSpan(), "expected an enum element name")
			return
		}
		el := &ast.EnumElement{ID: ref.ID, Name: ref.Name, Span: ref.Span}
		if p.eat(token.Assign) {
			el.Value = p.parseExpr()
			el.Span = el.Span.Cover(p.lastSpan)
		}
		out = append(out, el)
	}
	if first != nil {
		add(first)
		if !p.eat(token.Comma) {
			p.expect(token.RParen, "expected ')' after enum elements")
			return out
		}
	}
	for !p.at(token.RParen) && !p.at(token.EOF) {
		name, ok := p.parseIdent("enum element")
		if !ok {
			break
		}
		add(&ast.Reference{Meta: ast.Meta{ID: p.ids.Next(), Span: name.Span}, Name: name.Text})
		if !p.eat(token.Comma) {
			break
		}
	}
	p.expect(token.RParen, "expected ')' after enum elements")
	return out
}
