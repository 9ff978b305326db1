package parser

import (
	"plcc/internal/ast"
	"plcc/internal/token"
)

var varKinds = map[token.Kind]ast.VarKind{
	token.KwVar:         ast.VarLocal,
	token.KwVarInput:    ast.VarInput,
	token.KwVarOutput:   ast.VarOutput,
	token.KwVarInOut:    ast.VarInOut,
	token.KwVarTemp:     ast.VarTemp,
	token.KwVarGlobal:   ast.VarGlobal,
	token.KwVarExternal: ast.VarExternal,
}

func (p *Parser) parseVarBlock() (*ast.VariableBlock, bool) {
	open := p.advance()
	blk := &ast.VariableBlock{ID: p.ids.Next(), Kind: varKinds[open.Kind]}
	if blk.Kind == ast.VarGlobal {
		blk.Linkage = p.takeExternal()
	}
	for {
		switch {
		case p.eat(token.KwConstant):
			blk.Constant = true
			continue
		case p.eat(token.KwRetain):
			blk.Retain = true
			continue
		case p.eat(token.KwNonRetain):
			blk.Retain = false
			continue
		}
		break
	}
	ok := true
	for p.skipPragmas(); p.at(token.Ident); p.skipPragmas() {
		vars, good := p.parseVarDecl()
		blk.Variables = append(blk.Variables, vars...)
		if !good {
			ok = false
			p.resyncDecl(token.KwEndVar)
		}
	}
	if _, good := p.expectEnd(token.KwEndVar, open.Span); !good {
		ok = false
	}
	p.eat(token.Semicolon)
	blk.Span = open.Span.Cover(p.lastSpan)
	return blk, ok
}

// parseVarDecl: a, b [AT %IX1.0] : type [:= init];
func (p *Parser) parseVarDecl() ([]*ast.Variable, bool) {
	first := p.lx.Peek().Span
	var names []token.Token
	for {
		name, ok := p.parseIdent("variable name")
		if !ok {
			return nil, false
		}
		names = append(names, name)
		if !p.eat(token.Comma) {
			break
		}
	}
	var location string
	if p.eat(token.KwAt) {
		loc, ok := p.expect(token.HardwareAddress, "expected a located address after AT")
		if !ok {
			return nil, false
		}
		location = loc.Text
	}
	if _, ok := p.expect(token.Colon, "expected ':' before the variable type"); !ok {
		return nil, false
	}
	decl := p.parseTypeDecl()
	var init ast.Statement
	if p.eat(token.Assign) {
		init = p.parseExpr()
	}
	_, ok := p.expect(token.Semicolon, "expected ';' after variable declaration")
	span := first.Cover(p.lastSpan)

	cl := ast.Cloner{IDs: p.ids}
	out := make([]*ast.Variable, len(names))
	for i, n := range names {
		v := &ast.Variable{ID: p.ids.Next(), Name: n.Text, NameSpan: n.Span, Type: decl, Initializer: init, Location: location, Span: span}
		if i > 0 {
			v.Type = cl.TypeDecl(decl)
			v.Initializer = cl.Statement(init)
		}
		out[i] = v
	}
	return out, ok
}

// resyncDecl skips to the end of the broken declaration.
func (p *Parser) resyncDecl(end token.Kind) {
	for !p.at(token.EOF) && !p.at(end) && !isTopLevelStarter(p.lx.Peek().Kind) {
		if p.eat(token.Semicolon) {
			return
		}
		p.advance()
	}
}
