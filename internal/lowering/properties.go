package lowering

import (
	"plcc/internal/ast"
)

// propertyRead turns a read of a property into a call of its GET. It
// returns nil when n is no property or the property has no GET; the
// validator reports the latter.
func (r *body) propertyRead(n ast.Statement) ast.Statement {
	ann, ok := r.l.m.Get(n)
	if !ok || !ann.Property {
		return nil
	}
	return r.accessorCall(n, ast.GetterPrefix, nil)
}

// assignment turns a write of a property into a call of its SET.
func (r *body) assignment(n *ast.Assignment) ast.Statement {
	if ann, ok := r.l.m.Get(n.Left); ok && ann.Property {
		if out := r.accessorCall(n.Left, ast.SetterPrefix, []ast.Statement{n.Right}); out != nil {
			return out
		}
		// no SET: keep the target as storage so the validator can name it
		switch left := n.Left.(type) {
		case *ast.Reference:
			n.Left = r.ref(left)
		case *ast.MemberAccess:
			n.Left = r.member(left)
		}
		n.Right = r.expr(n.Right)
		return n
	}
	n.Left = r.expr(n.Left)
	n.Right = r.expr(n.Right)
	return n
}

// accessorCall calls the accessor prefix+name of the property n refers to,
// on the instance n is reached through.
func (r *body) accessorCall(n ast.Statement, prefix string, args []ast.Statement) ast.Statement {
	l := r.l
	sp := n.GetSpan()
	ann, _ := l.m.Get(n)
	var op ast.Statement
	var static, name string
	super := false
	switch x := n.(type) {
	case *ast.Reference:
		name = prefix + x.Name
		static = r.owner
		op = l.b.Ref(name, sp)
	case *ast.MemberAccess:
		ref, ok := x.Member.(*ast.Reference)
		if !ok {
			return nil
		}
		name = prefix + ref.Name
		static = r.receiverType(x.Base)
		if d, ok := x.Base.(*ast.Deref); ok {
			_, super = d.Base.(*ast.SuperRef)
		}
		op = l.b.Member(x.Base, name, sp)
	default:
		return nil
	}
	if static == "" {
		static = qualifier(ann.Qualified)
	}
	target := l.idx.FindMethod(static, name)
	if target == nil {
		return nil
	}
	virtual := !super && (target.Overriding || l.idx.IsOverridden(static, name))
	return r.methodCall(l.b.Call(op, args, sp), virtual, target)
}
