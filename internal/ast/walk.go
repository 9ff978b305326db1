package ast

// Visitor is called for every node reached by Walk. If Visit returns nil the
// children of n are skipped; Walk calls Visit(nil) after the children.
type Visitor interface {
	Visit(n Statement) (w Visitor)
}

// Walk traverses s depth-first in source order.
func Walk(v Visitor, s Statement) {
	if s == nil {
		return
	}
	if v = v.Visit(s); v == nil {
		return
	}
	for _, c := range Children(s) {
		Walk(v, c)
	}
	v.Visit(nil)
}

type inspector func(Statement) bool

func (f inspector) Visit(s Statement) Visitor {
	if f(s) {
		return f
	}
	return nil
}

// Inspect calls f for s and, while f returns true, for its descendants.
func Inspect(s Statement, f func(Statement) bool) {
	Walk(inspector(func(n Statement) bool {
		if n == nil {
			return false
		}
		return f(n)
	}), s)
}

// InspectAll runs Inspect over a statement list.
func InspectAll(stmts []Statement, f func(Statement) bool) {
	for _, s := range stmts {
		Inspect(s, f)
	}
}

// Children returns the direct sub-statements of s in source order.
func Children(s Statement) []Statement {
	switch n := s.(type) {
	case *ArrayLiteral:
		return n.Elements
	case *MultipliedStatement:
		return one(n.Element)
	case *StructLiteral:
		out := make([]Statement, 0, len(n.Fields))
		for _, f := range n.Fields {
			out = append(out, f)
		}
		return out
	case *MemberAccess:
		return some(n.Base, n.Member)
	case *DirectAccess:
		return one(n.Index)
	case *ArrayAccess:
		return append(one(n.Base), n.Indices...)
	case *Deref:
		return one(n.Base)
	case *BinaryExpr:
		return some(n.Left, n.Right)
	case *UnaryExpr:
		return one(n.Operand)
	case *ParenExpr:
		return one(n.Inner)
	case *CastExpr:
		return one(n.Target)
	case *CallStatement:
		return append(one(n.Operator), n.Args...)
	case *Assignment:
		return some(n.Left, n.Right)
	case *OutputAssignment:
		return some(n.Left, n.Right)
	case *RangeStatement:
		return some(n.Start, n.End)
	case *IfStatement:
		var out []Statement
		for _, b := range n.Blocks {
			out = append(out, b.Condition)
			out = append(out, b.Body...)
		}
		return append(out, n.Else...)
	case *CaseStatement:
		out := one(n.Selector)
		for _, b := range n.Blocks {
			out = append(out, b.Labels...)
			out = append(out, b.Body...)
		}
		return append(out, n.Else...)
	case *ForLoop:
		return append(some(n.Counter, n.Start, n.End, n.By), n.Body...)
	case *WhileLoop:
		return append(one(n.Condition), n.Body...)
	case *RepeatLoop:
		return append(append([]Statement{}, n.Body...), one(n.Condition)...)
	}
	return nil
}

func one(s Statement) []Statement {
	if s == nil {
		return nil
	}
	return []Statement{s}
}

func some(ss ...Statement) []Statement {
	out := make([]Statement, 0, len(ss))
	for _, s := range ss {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
