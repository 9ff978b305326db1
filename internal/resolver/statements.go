package resolver

import (
	"plcc/internal/ast"
	"plcc/internal/types"
)

func (a *annotator) statements(stmts []ast.Statement) {
	for _, s := range stmts {
		a.statement(s)
	}
}

func (a *annotator) statement(s ast.Statement) {
	switch n := s.(type) {
	case nil:
	case *ast.IfStatement:
		for _, b := range n.Blocks {
			a.expect(b.Condition, types.BOOL)
			a.statements(b.Body)
		}
		a.statements(n.Else)
	case *ast.CaseStatement:
		a.withoutHint(n.Selector)
		sel := a.m.TypeOf(n.Selector)
		for _, b := range n.Blocks {
			for _, l := range b.Labels {
				a.expect(l, sel)
			}
			a.statements(b.Body)
		}
		a.statements(n.Else)
	case *ast.ForLoop:
		a.withoutHint(n.Counter)
		counter := a.m.TypeOf(n.Counter)
		a.expect(n.Start, counter)
		a.expect(n.End, counter)
		a.expect(n.By, counter)
		a.statements(n.Body)
	case *ast.WhileLoop:
		a.expect(n.Condition, types.BOOL)
		a.statements(n.Body)
	case *ast.RepeatLoop:
		a.statements(n.Body)
		a.expect(n.Condition, types.BOOL)
	case *ast.ExitStatement, *ast.ContinueStatement, *ast.ReturnStatement, *ast.EmptyStatement:
	default:
		a.withoutHint(s)
	}
}

// assignment annotates the left side first so the right side can take its
// type as the hint.
func (a *annotator) assignment(n *ast.Assignment) {
	a.withoutHint(n.Left)
	left := a.m.TypeOf(n.Left)
	if left == "" {
		a.withoutHint(n.Right)
		return
	}
	a.expect(n.Right, left)
	a.m.Annotate(n, ValueOf(left))
}
