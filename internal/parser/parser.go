package parser

import (
	"slices"
	"strings"

	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/lexer"
	"plcc/internal/source"
	"plcc/internal/token"
)

type Options struct {
	MaxErrors     uint
	CurrentErrors uint
	Reporter      diag.Reporter
}

// Enough - проверить, достигли ли мы максимального количества ошибок
func (o *Options) Enough() bool {
	if o.MaxErrors == 0 {
		return false
	}
	return o.CurrentErrors >= o.MaxErrors
}

type Result struct {
	Unit   *ast.CompilationUnit
	Errors uint
}

// Parser - состояние парсера на один файл
type Parser struct {
	lx       *lexer.Lexer
	ids      ast.IDProvider
	file     *source.File
	unit     *ast.CompilationUnit
	opts     Options
	lastSpan source.Span // span последнего съеденного токена
	external bool        // pending {external}
}

// ParseFile parses one registered file. Node ids are drawn from ids so the
// caller controls the id segment.
func ParseFile(file *source.File, ids ast.IDProvider, opts Options) Result {
	lx := lexer.New(file, lexer.Options{Reporter: opts.Reporter})
	p := Parser{
		lx:       lx,
		ids:      ids,
		file:     file,
		unit:     &ast.CompilationUnit{File: file.ID, Path: file.Path},
		opts:     opts,
		lastSpan: lx.EmptySpan(),
	}
	p.parseItems()
	return Result{Unit: p.unit, Errors: p.opts.CurrentErrors}
}

func (p *Parser) at(k token.Kind) bool {
	return p.lx.Peek().Kind == k
}

func (p *Parser) atOr(kinds ...token.Kind) bool {
	return slices.Contains(kinds, p.lx.Peek().Kind)
}

func (p *Parser) peekKind(n int) token.Kind {
	return p.lx.PeekN(n).Kind
}

func (p *Parser) meta(start source.Span) ast.Meta {
	return ast.Meta{ID: p.ids.Next(), Span: start.Cover(p.lastSpan)}
}

// parseItems - основной цикл верхнего уровня.
func (p *Parser) parseItems() {
	for !p.at(token.EOF) {
		if !p.parseItem() {
			p.resyncTop()
		}
	}
}

func (p *Parser) parseItem() bool {
	switch tok := p.lx.Peek(); tok.Kind {
	case token.Pragma:
		p.parsePragma()
		return true
	case token.KwType:
		p.takeExternal()
		return p.parseTypeBlock()
	case token.KwVarGlobal:
		blk, ok := p.parseVarBlock()
		if blk != nil {
			p.unit.GlobalBlocks = append(p.unit.GlobalBlocks, blk)
		}
		return ok
	case token.KwProgram, token.KwFunction, token.KwFunctionBlock, token.KwClass:
		return p.parsePou()
	case token.KwInterface:
		return p.parseInterface()
	case token.KwActions:
		p.takeExternal()
		return p.parseActions()
	case token.KwAction:
		p.takeExternal()
		return p.parseQualifiedAction()
	default:
		p.err(diag.UnexpectedToken, "unexpected "+describe(tok)+" at top level")
		return false
	}
}

// parsePragma handles `{external}`; anything else is reported and ignored.
func (p *Parser) parsePragma() {
	tok := p.advance()
	body := strings.ToLower(strings.TrimSpace(strings.Trim(tok.Text, "{}")))
	switch body {
	case "external":
		p.external = true
	default:
		p.report(diag.UnknownPragma, diag.SevInfo, tok.Span, "unknown pragma "+tok.Text+" is ignored")
	}
}

func (p *Parser) takeExternal() ast.Linkage {
	if p.external {
		p.external = false
		return ast.LinkExternal
	}
	return ast.LinkInternal
}

// skipPragmas consumes pragmas inside declarations and bodies.
func (p *Parser) skipPragmas() {
	for p.at(token.Pragma) {
		p.parsePragma()
	}
}

// resyncTop прокручивает до начала следующей top-level конструкции.
func (p *Parser) resyncTop() {
	for !p.at(token.EOF) {
		if isTopLevelStarter(p.lx.Peek().Kind) {
			return
		}
		p.advance()
	}
}

func isTopLevelStarter(k token.Kind) bool {
	switch k {
	case token.KwProgram, token.KwFunction, token.KwFunctionBlock, token.KwClass, token.KwInterface,
		token.KwType, token.KwVarGlobal, token.KwActions, token.KwAction, token.Pragma:
		return true
	}
	return false
}

func (p *Parser) parseIdent(what string) (token.Token, bool) {
	if p.at(token.Ident) {
		return p.advance(), true
	}
	p.err(diag.MissingToken, "expected "+what+", got "+describe(p.lx.Peek()))
	return token.Token{Kind: token.Invalid, Span: p.getDiagnosticSpan()}, false
}

func describe(tok token.Token) string {
	switch {
	case tok.Kind == token.EOF:
		return "end of file"
	case tok.Text != "":
		return "'" + tok.Text + "'"
	}
	return tok.Kind.String()
}
