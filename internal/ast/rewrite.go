package ast

// Rewrite rebuilds s bottom-up: children are rewritten first, then f is
// applied to the node itself. f returns the replacement (or the node).
func Rewrite(s Statement, f func(Statement) Statement) Statement {
	if s == nil {
		return nil
	}
	RewriteChildren(s, func(c Statement) Statement { return Rewrite(c, f) })
	return f(s)
}

// RewriteAll rewrites every statement of a list in place.
func RewriteAll(stmts []Statement, f func(Statement) Statement) []Statement {
	for i, s := range stmts {
		stmts[i] = Rewrite(s, f)
	}
	return stmts
}

// RewriteChildren replaces every direct child of s with f(child). It does
// not descend; f decides whether to. Nil children are left alone.
func RewriteChildren(s Statement, f func(Statement) Statement) {
	one := func(c Statement) Statement {
		if c == nil {
			return nil
		}
		return f(c)
	}
	all := func(list []Statement) []Statement {
		for i, c := range list {
			list[i] = one(c)
		}
		return list
	}
	switch n := s.(type) {
	case *ArrayLiteral:
		n.Elements = all(n.Elements)
	case *MultipliedStatement:
		n.Element = one(n.Element)
	case *StructLiteral:
		for i, fld := range n.Fields {
			if a, ok := one(fld).(*Assignment); ok {
				n.Fields[i] = a
			}
		}
	case *MemberAccess:
		n.Base = one(n.Base)
		n.Member = one(n.Member)
	case *DirectAccess:
		n.Index = one(n.Index)
	case *ArrayAccess:
		n.Base = one(n.Base)
		n.Indices = all(n.Indices)
	case *Deref:
		n.Base = one(n.Base)
	case *BinaryExpr:
		n.Left = one(n.Left)
		n.Right = one(n.Right)
	case *UnaryExpr:
		n.Operand = one(n.Operand)
	case *ParenExpr:
		n.Inner = one(n.Inner)
	case *CastExpr:
		n.Target = one(n.Target)
	case *CallStatement:
		n.Operator = one(n.Operator)
		n.Args = all(n.Args)
	case *Assignment:
		n.Left = one(n.Left)
		n.Right = one(n.Right)
	case *OutputAssignment:
		n.Left = one(n.Left)
		n.Right = one(n.Right)
	case *RangeStatement:
		n.Start = one(n.Start)
		n.End = one(n.End)
	case *IfStatement:
		for _, b := range n.Blocks {
			b.Condition = one(b.Condition)
			b.Body = all(b.Body)
		}
		n.Else = all(n.Else)
	case *CaseStatement:
		n.Selector = one(n.Selector)
		for _, b := range n.Blocks {
			b.Labels = all(b.Labels)
			b.Body = all(b.Body)
		}
		n.Else = all(n.Else)
	case *ForLoop:
		n.Counter = one(n.Counter)
		n.Start = one(n.Start)
		n.End = one(n.End)
		n.By = one(n.By)
		n.Body = all(n.Body)
	case *WhileLoop:
		n.Condition = one(n.Condition)
		n.Body = all(n.Body)
	case *RepeatLoop:
		n.Body = all(n.Body)
		n.Condition = one(n.Condition)
	}
}
