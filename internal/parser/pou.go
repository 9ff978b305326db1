package parser

import (
	"strings"

	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/source"
	"plcc/internal/token"
)

var pouKinds = map[token.Kind]struct {
	kind ast.PouType
	end  token.Kind
}{
	token.KwProgram:       {ast.PouProgram, token.KwEndProgram},
	token.KwFunction:      {ast.PouFunction, token.KwEndFunction},
	token.KwFunctionBlock: {ast.PouFunctionBlock, token.KwEndFunctionBlock},
	token.KwClass:         {ast.PouClass, token.KwEndClass},
}

// parsePou разбирает PROGRAM / FUNCTION / FUNCTION_BLOCK / CLASS вместе с
// вложенными методами.
func (p *Parser) parsePou() bool {
	open := p.advance()
	spec := pouKinds[open.Kind]
	pou := &ast.Pou{ID: p.ids.Next(), Kind: spec.kind, Linkage: p.takeExternal()}
	mods := p.parseModifiers()
	pou.Abstract, pou.Final = mods.abstract, mods.final

	name, ok := p.parseIdent("POU name")
	if !ok {
		return false
	}
	pou.Name, pou.NameSpan = name.Text, name.Span
	p.unit.Pous = append(p.unit.Pous, pou)

	if p.at(token.Lt) {
		pou.Generics = p.parseGenerics()
	}
	if p.eat(token.KwExtends) {
		if sup, ok := p.parseIdent("base name after EXTENDS"); ok {
			pou.Super, pou.SuperSpan = sup.Text, sup.Span
		}
	}
	if p.eat(token.KwImplements) {
		pou.Interfaces = p.parseInterfaceList("interface name after IMPLEMENTS")
	}
	if p.eat(token.Colon) {
		pou.ReturnType = p.parseTypeDecl()
	}
	p.eat(token.Semicolon)

	for {
		p.skipPragmas()
		switch {
		case p.lx.Peek().IsVarBlockStart():
			if blk, _ := p.parseVarBlock(); blk != nil {
				pou.Blocks = append(pou.Blocks, blk)
			}
			continue
		case p.at(token.KwMethod):
			if pou.Kind == ast.PouFunction {
				p.err(diag.InvalidPouMember, "a FUNCTION cannot declare methods")
			}
			p.parseMethod(pou)
			continue
		case p.at(token.KwProperty):
			if pou.Kind == ast.PouFunction {
				p.err(diag.InvalidPouMember, "a FUNCTION cannot declare properties")
			}
			p.parseProperty(pou)
			continue
		}
		break
	}

	bodyStart := p.lx.Peek().Span
	stmts := p.parseStatements(spec.end)
	body := bodyStart.Cover(p.lastSpan)
	end, _ := p.expectEnd(spec.end, open.Span)
	p.eat(token.Semicolon)
	pou.Span = open.Span.Cover(p.lastSpan)

	if pou.Kind == ast.PouClass {
		if len(stmts) > 0 {
			p.errAt(diag.InvalidPouMember, stmts[0].GetSpan(), "a CLASS cannot have a body")
		}
		return true
	}
	p.unit.Implementations = append(p.unit.Implementations, &ast.Implementation{
		ID:           p.ids.Next(),
		Name:         pou.Name,
		TypeName:     pou.Name,
		Linkage:      pou.Linkage,
		Kind:         pou.Kind,
		Statements:   stmts,
		Location:     body,
		NameLocation: pou.NameSpan,
		EndLocation:  end.Span,
		Generic:      pou.IsGeneric(),
	})
	return true
}

type modifiers struct {
	access    ast.Access
	abstract  bool
	final     bool
	override  bool
	hasAccess bool
}

func (p *Parser) parseModifiers() modifiers {
	var m modifiers
	for {
		switch p.lx.Peek().Kind {
		case token.KwPublic:
			m.access, m.hasAccess = ast.AccessPublic, true
		case token.KwPrivate:
			m.access, m.hasAccess = ast.AccessPrivate, true
		case token.KwProtected:
			m.access, m.hasAccess = ast.AccessProtected, true
		case token.KwInternal:
			m.access, m.hasAccess = ast.AccessInternal, true
		case token.KwAbstract:
			m.abstract = true
		case token.KwFinal:
			m.final = true
		case token.KwOverride:
			m.override = true
		default:
			return m
		}
		p.advance()
	}
}

// parseGenerics: `<T : ANY_NUM, U : ANY>`
func (p *Parser) parseGenerics() []ast.GenericBinding {
	p.advance()
	var out []ast.GenericBinding
	for !p.at(token.Gt) && !p.at(token.EOF) {
		name, ok := p.parseIdent("generic parameter")
		if !ok {
			break
		}
		if _, ok := p.expect(token.Colon, "expected ':' before generic nature"); !ok {
			break
		}
		nature, ok := p.parseIdent("generic nature")
		if !ok {
			break
		}
		out = append(out, ast.GenericBinding{Name: name.Text, Nature: nature.Text})
		if !p.eat(token.Comma) {
			break
		}
	}
	p.expect(token.Gt, "expected '>' after generic parameters")
	return out
}

func (p *Parser) parseMethod(owner *ast.Pou) {
	open := p.advance()
	mods := p.parseModifiers()
	name, ok := p.parseIdent("method name")
	if !ok {
		p.skipTo(token.KwEndMethod)
		p.eat(token.KwEndMethod)
		return
	}
	m := &ast.Pou{
		ID:         p.ids.Next(),
		Name:       ast.QualifiedName(owner.Name, name.Text),
		NameSpan:   name.Span,
		Kind:       ast.PouMethod,
		Parent:     owner.Name,
		Linkage:    owner.Linkage,
		Access:     mods.access,
		Overriding: mods.override,
		Abstract:   mods.abstract,
		Final:      mods.final,
	}
	p.unit.Pous = append(p.unit.Pous, m)
	if p.eat(token.Colon) {
		m.ReturnType = p.parseTypeDecl()
	}
	p.eat(token.Semicolon)
	for p.skipPragmas(); p.lx.Peek().IsVarBlockStart(); p.skipPragmas() {
		if blk, _ := p.parseVarBlock(); blk != nil {
			m.Blocks = append(m.Blocks, blk)
		}
	}
	bodyStart := p.lx.Peek().Span
	stmts := p.parseStatements(token.KwEndMethod)
	body := bodyStart.Cover(p.lastSpan)
	end, _ := p.expectEnd(token.KwEndMethod, open.Span)
	p.eat(token.Semicolon)
	m.Span = open.Span.Cover(p.lastSpan)

	if owner.Kind == ast.PouInterface {
		m.Abstract = true
		if len(stmts) > 0 {
			p.errAt(diag.InvalidPouMember, stmts[0].GetSpan(), "an INTERFACE method cannot have a body")
		}
		return
	}
	p.unit.Implementations = append(p.unit.Implementations, &ast.Implementation{
		ID:           p.ids.Next(),
		Name:         m.Name,
		TypeName:     owner.Name,
		Linkage:      m.Linkage,
		Kind:         ast.PouMethod,
		Statements:   stmts,
		Location:     body,
		NameLocation: name.Span,
		EndLocation:  end.Span,
		Overriding:   m.Overriding,
		Access:       m.Access,
	})
}

func (p *Parser) parseInterfaceList(what string) []ast.InterfaceRef {
	var out []ast.InterfaceRef
	for {
		name, ok := p.parseIdent(what)
		if !ok {
			return out
		}
		out = append(out, ast.InterfaceRef{Name: name.Text, Span: name.Span})
		if !p.eat(token.Comma) {
			return out
		}
	}
}

// parseInterface: INTERFACE i EXTENDS a, b  METHOD ... END_METHOD  END_INTERFACE
func (p *Parser) parseInterface() bool {
	open := p.advance()
	iface := &ast.Pou{ID: p.ids.Next(), Kind: ast.PouInterface, Linkage: p.takeExternal()}
	name, ok := p.parseIdent("interface name")
	if !ok {
		return false
	}
	iface.Name, iface.NameSpan = name.Text, name.Span
	p.unit.Pous = append(p.unit.Pous, iface)
	if p.eat(token.KwExtends) {
		iface.Interfaces = p.parseInterfaceList("interface name after EXTENDS")
	}
	p.eat(token.Semicolon)

	for {
		p.skipPragmas()
		switch tok := p.lx.Peek(); {
		case tok.Kind == token.KwMethod:
			p.parseMethod(iface)
			continue
		case tok.IsVarBlockStart():
			p.errAt(diag.InvalidPouMember, tok.Span, "an INTERFACE cannot declare variables")
			p.parseVarBlock()
			continue
		case tok.Kind == token.KwProperty:
			p.errAt(diag.InvalidPouMember, tok.Span, "an INTERFACE cannot declare properties")
			p.skipTo(token.KwEndProperty)
			p.eat(token.KwEndProperty)
			continue
		}
		break
	}
	p.expectEnd(token.KwEndInterface, open.Span)
	p.eat(token.Semicolon)
	iface.Span = open.Span.Cover(p.lastSpan)
	return true
}

// parseProperty turns
//
//	PROPERTY p : T  GET ... END_GET  SET ... END_SET  END_PROPERTY
//
// into a backing member p of owner plus the methods __get_p and __set_p.
// The getter returns the backing member after its body ran; the setter
// stores its input there before its body runs.
func (p *Parser) parseProperty(owner *ast.Pou) {
	open := p.advance()
	mods := p.parseModifiers()
	name, ok := p.parseIdent("property name")
	if !ok {
		p.skipTo(token.KwEndProperty)
		p.eat(token.KwEndProperty)
		return
	}
	var typ ast.DataTypeDeclaration
	if _, ok := p.expect(token.Colon, "expected ':' before the property type"); ok {
		typ = p.parseTypeDecl()
	}
	p.eat(token.Semicolon)
	if typ == nil {
		p.skipTo(token.KwEndProperty)
		p.eat(token.KwEndProperty)
		return
	}

	qualified := ast.QualifiedName(owner.Name, name.Text)
	clone := ast.Cloner{IDs: p.ids}
	b := ast.NewBuilder(p.ids)
	accessors := 0
	for p.skipPragmas(); p.at(token.Ident); p.skipPragmas() {
		kw := p.lx.Peek()
		var end token.Kind
		switch strings.ToUpper(kw.Text) {
		case "GET":
			end = token.KwEndGet
		case "SET":
			end = token.KwEndSet
		default:
			p.errAt(diag.UnexpectedToken, kw.Span, "expected GET or SET, got "+describe(kw))
			p.skipTo(token.KwEndProperty)
			continue
		}
		p.advance()
		accessors++
		m := &ast.Pou{
			ID:         p.ids.Next(),
			NameSpan:   kw.Span,
			Kind:       ast.PouMethod,
			Parent:     owner.Name,
			Linkage:    owner.Linkage,
			Access:     mods.access,
			Overriding: mods.override,
			Abstract:   mods.abstract,
			Final:      mods.final,
			Property:   qualified,
		}
		for p.skipPragmas(); p.lx.Peek().IsVarBlockStart(); p.skipPragmas() {
			if blk, _ := p.parseVarBlock(); blk != nil {
				m.Blocks = append(m.Blocks, blk)
			}
		}
		bodyStart := p.lx.Peek().Span
		stmts := p.parseStatements(end)
		body := bodyStart.Cover(p.lastSpan)
		closing, _ := p.expectEnd(end, kw.Span)
		p.eat(token.Semicolon)
		m.Span = kw.Span.Cover(p.lastSpan)

		sp := kw.Span
		if end == token.KwEndGet {
			simple := ast.GetterPrefix + name.Text
			m.Name, m.ReturnType = ast.QualifiedName(owner.Name, simple), clone.TypeDecl(typ)
			stmts = append(stmts, b.Assign(b.Ref(simple, sp), b.Ref(name.Text, sp), sp))
		} else {
			m.Name = ast.QualifiedName(owner.Name, ast.SetterPrefix+name.Text)
			in := &ast.Variable{ID: p.ids.Next(), Name: ast.SetterParam, NameSpan: sp, Type: clone.TypeDecl(typ), Span: sp}
			m.Blocks = append([]*ast.VariableBlock{{ID: p.ids.Next(), Kind: ast.VarInput, Variables: []*ast.Variable{in}, Span: sp}}, m.Blocks...)
			stmts = append([]ast.Statement{b.Assign(b.Ref(name.Text, sp), b.Ref(ast.SetterParam, sp), sp)}, stmts...)
		}
		p.unit.Pous = append(p.unit.Pous, m)
		p.unit.Implementations = append(p.unit.Implementations, &ast.Implementation{
			ID:           p.ids.Next(),
			Name:         m.Name,
			TypeName:     owner.Name,
			Linkage:      m.Linkage,
			Kind:         ast.PouMethod,
			Statements:   stmts,
			Location:     body,
			NameLocation: kw.Span,
			EndLocation:  closing.Span,
			Overriding:   m.Overriding,
			Access:       m.Access,
		})
	}
	p.expectEnd(token.KwEndProperty, open.Span)
	p.eat(token.Semicolon)
	if accessors == 0 {
		p.errAt(diag.InvalidPouMember, name.Span, "PROPERTY "+name.Text+" declares neither GET nor SET")
	}

	backing := &ast.Variable{ID: p.ids.Next(), Name: name.Text, NameSpan: name.Span, Type: typ, Span: open.Span.Cover(p.lastSpan)}
	for _, blk := range owner.Blocks {
		if blk.Property {
			blk.Variables = append(blk.Variables, backing)
			return
		}
	}
	owner.Blocks = append(owner.Blocks, &ast.VariableBlock{
		ID:        p.ids.Next(),
		Kind:      ast.VarLocal,
		Property:  true,
		Variables: []*ast.Variable{backing},
		Span:      open.Span,
	})
}

// parseActions: ACTIONS fb ACTION a ... END_ACTION ... END_ACTIONS
func (p *Parser) parseActions() bool {
	open := p.advance()
	owner, ok := p.parseIdent("owner of the actions")
	if !ok {
		return false
	}
	for p.at(token.KwAction) {
		act := p.advance()
		name, ok := p.parseIdent("action name")
		if !ok {
			return false
		}
		p.action(owner.Text, name, act.Span)
	}
	p.expectEnd(token.KwEndActions, open.Span)
	p.eat(token.Semicolon)
	return true
}

// parseQualifiedAction: ACTION fb.a ... END_ACTION
func (p *Parser) parseQualifiedAction() bool {
	open := p.advance()
	owner, ok := p.parseIdent("action owner")
	if !ok {
		return false
	}
	if _, ok := p.expect(token.Dot, "expected '.' in qualified action name"); !ok {
		return false
	}
	name, ok := p.parseIdent("action name")
	if !ok {
		return false
	}
	p.action(owner.Text, name, open.Span)
	return true
}

func (p *Parser) action(owner string, name token.Token, open source.Span) {
	p.eat(token.Colon)
	qualified := ast.QualifiedName(owner, name.Text)
	pou := &ast.Pou{ID: p.ids.Next(), Name: qualified, NameSpan: name.Span, Kind: ast.PouAction, Parent: owner}
	p.unit.Pous = append(p.unit.Pous, pou)
	bodyStart := p.lx.Peek().Span
	stmts := p.parseStatements(token.KwEndAction)
	body := bodyStart.Cover(p.lastSpan)
	end, _ := p.expectEnd(token.KwEndAction, open)
	p.eat(token.Semicolon)
	pou.Span = open.Cover(p.lastSpan)
	p.unit.Implementations = append(p.unit.Implementations, &ast.Implementation{
		ID:           p.ids.Next(),
		Name:         qualified,
		TypeName:     owner,
		Kind:         ast.PouAction,
		Statements:   stmts,
		Location:     body,
		NameLocation: name.Span,
		EndLocation:  end.Span,
	})
}

// skipTo прокручивает до k (не съедая его) или EOF.
func (p *Parser) skipTo(k token.Kind) {
	for !p.at(k) && !p.at(token.EOF) {
		p.advance()
	}
}
