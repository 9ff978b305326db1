package validation

import (
	"sort"
	"strings"

	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/resolver"
)

func (v *validator) statements(list []ast.Statement) {
	for _, s := range list {
		v.statement(s)
	}
}

func (v *validator) statement(s ast.Statement) {
	switch n := s.(type) {
	case nil, *ast.ExitStatement, *ast.ContinueStatement, *ast.ReturnStatement, *ast.EmptyStatement:
	case *ast.Assignment:
		v.assignment(n)
	case *ast.IfStatement:
		for _, b := range n.Blocks {
			v.condition(b.Condition)
			v.statements(b.Body)
		}
		v.statements(n.Else)
	case *ast.WhileLoop:
		v.condition(n.Condition)
		v.statements(n.Body)
	case *ast.RepeatLoop:
		v.statements(n.Body)
		v.condition(n.Condition)
	case *ast.ForLoop:
		v.forLoop(n)
	case *ast.CaseStatement:
		v.caseStatement(n)
	default:
		v.expr(s)
	}
}

func (v *validator) assignment(n *ast.Assignment) {
	left, ok := v.m.Get(n.Left)
	if ok && left.Property {
		if ma, isMember := n.Left.(*ast.MemberAccess); isMember {
			v.expr(ma.Base)
		}
		v.expr(n.Right)
		v.at(diag.InvalidProperty, n.Left, "property %s has no SET", left.Qualified)
		return
	}
	v.expr(n.Left)
	v.expr(n.Right)
	if !ok {
		return
	}
	if !v.addressable(n.Left) {
		v.at(diag.NotAddressable, n.Left, "cannot assign to %s", ast.PrintStatement(n.Left))
		return
	}
	if v.constant(n.Left) {
		v.at(diag.AssignmentToConstant, n.Left, "cannot assign to constant %s", ast.PrintStatement(n.Left))
		return
	}
	v.convert(n.Right, left.Type)
}

func (v *validator) condition(c ast.Statement) {
	v.expr(c)
	t := v.typeOf(c)
	if t == nil {
		return
	}
	if t.IsVoid() {
		// a call without a result is a mistake of its own
		if _, call := c.(*ast.CallStatement); !call {
			return
		}
	}
	if !t.IsBool() {
		v.at(diag.InvalidCondition, c, "condition must be BOOL, found %s", v.describe(t))
	}
}

func (v *validator) forLoop(n *ast.ForLoop) {
	v.expr(n.Counter)
	v.expr(n.Start)
	v.expr(n.End)
	v.expr(n.By)
	v.statements(n.Body)

	counter, ok := v.m.Get(n.Counter)
	if !ok {
		return
	}
	t := v.typeInfo(counter.Type)
	if broken(t) {
		return
	}
	if !t.IsInteger() {
		v.at(diag.IncompatibleTypes, n.Counter, "FOR counter %s must be an integer, not %s", ast.PrintStatement(n.Counter), v.describe(t))
		return
	}
	if !v.addressable(n.Counter) {
		v.at(diag.NotAddressable, n.Counter, "FOR counter %s is not a variable", ast.PrintStatement(n.Counter))
		return
	}
	if v.constant(n.Counter) {
		v.at(diag.AssignmentToConstant, n.Counter, "FOR counter %s is a constant", ast.PrintStatement(n.Counter))
		return
	}
	v.convert(n.Start, counter.Type)
	v.convert(n.End, counter.Type)
	v.convert(n.By, counter.Type)
}

// interval is a CASE label folded to integers.
type interval struct {
	lo, hi int64
	label  ast.Statement
}

func (v *validator) caseStatement(n *ast.CaseStatement) {
	v.expr(n.Selector)
	sel, _ := v.m.Get(n.Selector)

	var seen []interval
	for _, b := range n.Blocks {
		for _, l := range b.Labels {
			v.expr(l)
			if r, ok := l.(*ast.RangeStatement); ok {
				v.convert(r.Start, sel.Type)
				v.convert(r.End, sel.Type)
			} else {
				v.convert(l, sel.Type)
			}
			in, ok := v.label(l)
			if !ok {
				continue
			}
			for _, prev := range seen {
				if in.lo <= prev.hi && prev.lo <= in.hi {
					v.at(diag.DuplicateCaseLabel, l, "duplicate CASE label %s", ast.PrintStatement(l))
					break
				}
			}
			seen = append(seen, in)
		}
		v.statements(b.Body)
	}
	v.statements(n.Else)

	t := v.typeInfo(sel.Type)
	if !t.IsEnum() || n.HasElse {
		return
	}
	var missing []string
	for _, variant := range t.Variants {
		covered := false
		for _, in := range seen {
			if variant.Value >= in.lo && variant.Value <= in.hi {
				covered = true
				break
			}
		}
		if !covered {
			missing = append(missing, variant.Name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		v.at(diag.NonExhaustiveCase, n.Selector, "CASE over %s does not handle %s", t.Name, strings.Join(missing, ", "))
	}
}

// label folds a CASE label; ranges fold both ends.
func (v *validator) label(l ast.Statement) (interval, bool) {
	if r, ok := l.(*ast.RangeStatement); ok {
		lo, ok1 := v.labelValue(r.Start)
		hi, ok2 := v.labelValue(r.End)
		if !ok1 || !ok2 {
			return interval{}, false
		}
		if lo > hi {
			lo, hi = hi, lo
		}
		return interval{lo: lo, hi: hi, label: l}, true
	}
	x, ok := v.labelValue(l)
	return interval{lo: x, hi: x, label: l}, ok
}

func (v *validator) labelValue(s ast.Statement) (int64, bool) {
	if ann, ok := v.m.Get(s); ok && ann.Kind == resolver.Variable && ann.Constant {
		if t := v.typeInfo(ann.Type); t.IsEnum() {
			name := ann.Qualified
			if i := strings.LastIndexByte(name, '.'); i >= 0 {
				name = name[i+1:]
			}
			if variant, ok := t.Variant(name); ok {
				return variant.Value, true
			}
		}
	}
	return v.idx.EvalInt(s, v.scope)
}
