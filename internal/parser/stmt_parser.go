package parser

import (
	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/token"
)

// isBlockEnd reports tokens that close the current statement list. POU and
// declaration starters are included so a missing END_* does not swallow the
// rest of the file.
func isBlockEnd(k token.Kind) bool {
	switch k {
	case token.KwEndProgram, token.KwEndFunction, token.KwEndFunctionBlock, token.KwEndClass,
		token.KwEndMethod, token.KwEndAction, token.KwEndActions, token.KwEndIf, token.KwElsif,
		token.KwElse, token.KwEndCase, token.KwEndFor, token.KwEndWhile, token.KwUntil,
		token.KwEndRepeat, token.KwMethod, token.KwAction, token.KwEndVar, token.KwEndType,
		token.KwProperty, token.KwEndProperty, token.KwEndGet, token.KwEndSet, token.KwEndInterface:
		return true
	}
	return isTopLevelStarter(k) && k != token.Pragma
}

func (p *Parser) parseStatements(stops ...token.Kind) []ast.Statement {
	return p.parseStatementsUntil(func() bool { return p.atOr(stops...) })
}

func (p *Parser) parseStatementsUntil(stop func() bool) []ast.Statement {
	var out []ast.Statement
	for {
		p.skipPragmas()
		if p.at(token.EOF) || stop() || isBlockEnd(p.lx.Peek().Kind) {
			return out
		}
		before := p.lx.Peek().Span
		s, ok := p.parseStatement()
		if s != nil {
			out = append(out, s)
		}
		if !ok {
			p.resyncStatement()
			if p.lx.Peek().Span == before {
				p.advance()
			}
		}
	}
}

// resyncStatement прокручивает до ';' (съедая его) или до конца блока.
func (p *Parser) resyncStatement() {
	for !p.at(token.EOF) {
		if p.eat(token.Semicolon) {
			return
		}
		if isBlockEnd(p.lx.Peek().Kind) || isStatementStarter(p.lx.Peek().Kind) {
			return
		}
		p.advance()
	}
}

func isStatementStarter(k token.Kind) bool {
	switch k {
	case token.KwIf, token.KwCase, token.KwFor, token.KwWhile, token.KwRepeat,
		token.KwExit, token.KwContinue, token.KwReturn:
		return true
	}
	return false
}

func (p *Parser) parseStatement() (ast.Statement, bool) {
	tok := p.lx.Peek()
	switch tok.Kind {
	case token.KwIf:
		return p.parseIf()
	case token.KwCase:
		return p.parseCase()
	case token.KwFor:
		return p.parseFor()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwRepeat:
		return p.parseRepeat()
	case token.KwExit:
		p.advance()
		s := &ast.ExitStatement{Meta: p.meta(tok.Span)}
		_, ok := p.expect(token.Semicolon, "expected ';' after EXIT")
		return s, ok
	case token.KwContinue:
		p.advance()
		s := &ast.ContinueStatement{Meta: p.meta(tok.Span)}
		_, ok := p.expect(token.Semicolon, "expected ';' after CONTINUE")
		return s, ok
	case token.KwReturn:
		p.advance()
		s := &ast.ReturnStatement{Meta: p.meta(tok.Span)}
		_, ok := p.expect(token.Semicolon, "expected ';' after RETURN")
		return s, ok
	case token.Semicolon:
		p.advance()
		return &ast.EmptyStatement{Meta: p.meta(tok.Span)}, true
	}

	errs := p.opts.CurrentErrors
	lhs := p.parseExpr()
	var s ast.Statement = lhs
	if p.eat(token.Assign) {
		rhs := p.parseExpr()
		s = &ast.Assignment{Meta: p.meta(lhs.GetSpan()), Left: lhs, Right: rhs}
	}
	if p.opts.CurrentErrors != errs {
		return s, false
	}
	_, ok := p.expect(token.Semicolon, "expected ';' after statement")
	return s, ok
}

func (p *Parser) parseIf() (ast.Statement, bool) {
	open := p.advance()
	stmt := &ast.IfStatement{}
	for {
		cond := p.parseExpr()
		p.expect(token.KwThen, "expected THEN after IF condition")
		body := p.parseStatements(token.KwElsif, token.KwElse, token.KwEndIf)
		stmt.Blocks = append(stmt.Blocks, &ast.ConditionalBlock{Condition: cond, Body: body})
		if !p.eat(token.KwElsif) {
			break
		}
	}
	if p.eat(token.KwElse) {
		stmt.Else = p.parseStatements(token.KwEndIf)
	}
	_, ok := p.expectEnd(token.KwEndIf, open.Span)
	stmt.Meta = p.meta(open.Span)
	p.eat(token.Semicolon)
	return stmt, ok
}

func (p *Parser) parseCase() (ast.Statement, bool) {
	open := p.advance()
	stmt := &ast.CaseStatement{Selector: p.parseExpr()}
	p.expect(token.KwOf, "expected OF after CASE selector")
	for !p.atOr(token.KwElse, token.KwEndCase, token.EOF) {
		if !p.atCaseLabel() {
			p.err(diag.SyntaxError, "expected a CASE label, got "+describe(p.lx.Peek()))
			break
		}
		labels := p.parseCaseLabels()
		p.expect(token.Colon, "expected ':' after CASE labels")
		body := p.parseStatementsUntil(func() bool {
			return p.atOr(token.KwElse, token.KwEndCase) || p.atCaseLabel()
		})
		stmt.Blocks = append(stmt.Blocks, &ast.CaseBlock{Labels: labels, Body: body})
	}
	if p.eat(token.KwElse) {
		stmt.HasElse = true
		stmt.Else = p.parseStatements(token.KwEndCase)
	}
	_, ok := p.expectEnd(token.KwEndCase, open.Span)
	stmt.Meta = p.meta(open.Span)
	p.eat(token.Semicolon)
	return stmt, ok
}

func (p *Parser) parseCaseLabels() []ast.Statement {
	var out []ast.Statement
	for {
		e := p.parseExpr()
		if p.eat(token.DotDot) {
			end := p.parseExpr()
			e = &ast.RangeStatement{Meta: p.meta(e.GetSpan()), Start: e, End: end}
		}
		out = append(out, e)
		if !p.eat(token.Comma) {
			return out
		}
	}
}

// atCaseLabel looks ahead for `labels :` (a colon at nesting depth zero
// before any ';' or ':=').
func (p *Parser) atCaseLabel() bool {
	depth := 0
	for i := 0; ; i++ {
		tok := p.lx.PeekN(i)
		switch tok.Kind {
		case token.EOF, token.Semicolon, token.Assign, token.Arrow:
			return false
		case token.LParen, token.LBracket:
			depth++
		case token.RParen, token.RBracket:
			depth--
		case token.Colon:
			return depth == 0 && i > 0
		case token.KwTrue, token.KwFalse, token.KwString, token.KwWString:
		default:
			if tok.Kind.IsKeyword() {
				return false
			}
		}
	}
}

func (p *Parser) parseFor() (ast.Statement, bool) {
	open := p.advance()
	stmt := &ast.ForLoop{Counter: p.parseExpr()}
	p.expect(token.Assign, "expected ':=' after FOR counter")
	stmt.Start = p.parseExpr()
	p.expect(token.KwTo, "expected TO in FOR loop")
	stmt.End = p.parseExpr()
	if p.eat(token.KwBy) {
		stmt.By = p.parseExpr()
	}
	p.expect(token.KwDo, "expected DO in FOR loop")
	stmt.Body = p.parseStatements(token.KwEndFor)
	_, ok := p.expectEnd(token.KwEndFor, open.Span)
	stmt.Meta = p.meta(open.Span)
	p.eat(token.Semicolon)
	return stmt, ok
}

func (p *Parser) parseWhile() (ast.Statement, bool) {
	open := p.advance()
	stmt := &ast.WhileLoop{Condition: p.parseExpr()}
	p.expect(token.KwDo, "expected DO after WHILE condition")
	stmt.Body = p.parseStatements(token.KwEndWhile)
	_, ok := p.expectEnd(token.KwEndWhile, open.Span)
	stmt.Meta = p.meta(open.Span)
	p.eat(token.Semicolon)
	return stmt, ok
}

func (p *Parser) parseRepeat() (ast.Statement, bool) {
	open := p.advance()
	stmt := &ast.RepeatLoop{Body: p.parseStatements(token.KwUntil)}
	p.expect(token.KwUntil, "expected UNTIL in REPEAT loop")
	stmt.Condition = p.parseExpr()
	_, ok := p.expectEnd(token.KwEndRepeat, open.Span)
	stmt.Meta = p.meta(open.Span)
	p.eat(token.Semicolon)
	return stmt, ok
}
