package resolver

import (
	"plcc/internal/ast"
	"plcc/internal/types"
)

func (a *annotator) binary(n *ast.BinaryExpr) {
	if n.Op.IsComparison() {
		// the left side decides what the right side should look like
		// (`state = Running` resolves Running in state's enum)
		a.withoutHint(n.Left)
		a.push(a.m.TypeOf(n.Left))
		a.expr(n.Right)
		a.pop()
	} else {
		pass := ""
		if h := a.find(a.hint()); h.IsElementary() {
			pass = h.Name
		}
		a.push(pass)
		a.expr(n.Left)
		a.expr(n.Right)
		a.pop()
	}
	if !a.m.Has(n.Left) || !a.m.Has(n.Right) {
		return
	}
	l, r := a.find(a.m.TypeOf(n.Left)), a.find(a.m.TypeOf(n.Right))
	if l == nil || r == nil || l.IsVoid() || r.IsVoid() {
		a.m.Annotate(n, ValueOf(types.VOID))
		return
	}
	if t, ok := a.pointerArithmetic(n.Op, l, r); ok {
		a.m.Annotate(n, ValueOf(t))
		return
	}
	if l.IsGeneric() || r.IsGeneric() {
		a.m.Annotate(n, ValueOf(a.result(n.Op, l.Name)))
		return
	}
	if !types.SameName(l.Name, r.Name) {
		switch {
		case isLiteral(n.Right) && !isLiteral(n.Left) && a.refineLiteral(n.Right, l.Name):
			r = l
		case isLiteral(n.Left) && a.refineLiteral(n.Left, r.Name):
			l = r
		}
	}
	operand, boolean, ok := types.BinaryOperand(n.Op, l, r)
	if !ok {
		a.m.Annotate(n, ValueOf(types.VOID))
		return
	}
	if !types.SameName(l.Name, operand.Name) {
		a.m.AnnotateHint(n.Left, operand.Name)
	}
	if !types.SameName(r.Name, operand.Name) {
		a.m.AnnotateHint(n.Right, operand.Name)
	}
	if boolean {
		a.m.Annotate(n, ValueOf(types.BOOL))
		return
	}
	a.m.Annotate(n, ValueOf(operand.Name))
}

func (a *annotator) result(op ast.Operator, operand string) string {
	if op.IsComparison() {
		return types.BOOL
	}
	return operand
}

// pointerArithmetic covers `p + n`, `p - n`, `p - q` and pointer
// comparisons.
func (a *annotator) pointerArithmetic(op ast.Operator, l, r *types.Info) (string, bool) {
	switch {
	case l.IsPointer() && r.IsPointer():
		if op.IsComparison() {
			return types.BOOL, true
		}
		if op == ast.OpMinus {
			return types.LINT, true
		}
	case l.IsPointer() && r.IsInteger():
		if op == ast.OpPlus || op == ast.OpMinus {
			return l.Name, true
		}
		if op.IsComparison() {
			return types.BOOL, true
		}
	case l.IsInteger() && r.IsPointer():
		if op == ast.OpPlus {
			return r.Name, true
		}
		if op.IsComparison() {
			return types.BOOL, true
		}
	}
	return "", false
}

func (a *annotator) unary(n *ast.UnaryExpr) {
	a.expr(n.Operand)
	if !a.m.Has(n.Operand) {
		return
	}
	if v, lit, ok := integerLiteral(n); ok {
		// -128 fits SINT even though 128 does not
		t := a.integerType(v, a.hint())
		a.m.Annotate(lit, ValueOf(t))
		if n.Operand != ast.Statement(lit) {
			a.m.Annotate(n.Operand, ValueOf(t))
		}
		a.m.Annotate(n, ValueOf(t))
		return
	}
	t := a.find(a.m.TypeOf(n.Operand))
	if t.IsGeneric() {
		a.m.Annotate(n, ValueOf(t.Name))
		return
	}
	if !types.UnaryAllowed(n.Op, t) {
		a.m.Annotate(n, ValueOf(types.VOID))
		return
	}
	a.m.Annotate(n, ValueOf(t.Name))
}
