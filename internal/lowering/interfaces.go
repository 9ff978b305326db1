package lowering

import (
	"plcc/internal/ast"
	"plcc/internal/index"
	"plcc/internal/source"
	"plcc/internal/types"
)

// Fields of an interface value.
const (
	DataMember  = "data"
	TableMember = "table"
)

// ItableName is the struct type holding the method pointers of iface.
func ItableName(iface string) string { return types.ItablePrefix + iface }

// ItableInstance is the constant itable of class seen as iface.
func ItableInstance(iface, class string) string {
	return ItableName(iface) + "_" + class + "_instance"
}

// interfaces turns every interface into a fat pointer, the instance
// followed by its itable, and emits one itable per implementing class.
// Variables typed by the interface keep their type.
func (l *lowerer) interfaces() {
	sp := source.Undefined()
	voidPtr := types.PointerName(types.VOID)
	var classes []*index.PouEntry
	for _, p := range l.idx.Pous().Values() {
		if (p.Kind == ast.PouFunctionBlock || p.Kind == ast.PouClass) && !p.IsGeneric() && !p.IsExternal() {
			classes = append(classes, p)
		}
	}
	for _, p := range l.idx.Pous().Values() {
		if !p.IsInterface() {
			continue
		}
		pou := l.pous[types.Key(p.Name)]
		if pou == nil {
			continue
		}
		l.declareType(ast.NewPointer(voidPtr, ast.TypeRef(types.VOID, sp), false))
		pou.Blocks = append(pou.Blocks, l.block(ast.VarLocal,
			l.variable(DataMember, ast.TypeRef(voidPtr, sp), nil),
			l.variable(TableMember, ast.TypeRef(voidPtr, sp), nil)))
		l.itables(p, classes)
	}
}

// itables declares the itable layout of iface and fills it for every class
// that implements all of its methods. Incomplete classes are left to the
// validator.
func (l *lowerer) itables(iface *index.PouEntry, classes []*index.PouEntry) {
	sp := source.Undefined()
	name := ItableName(iface.Name)
	methods := l.idx.InterfaceMethods(iface.Name)
	fields := make([]*ast.Variable, 0, len(methods))
	for _, m := range methods {
		fn := FunctionName(m.Parent, m.SimpleName())
		l.declareType(ast.NewPointer(types.PointerName(fn), ast.TypeRef(fn, sp), false))
		fields = append(fields, l.variable(m.SimpleName(), ast.TypeRef(types.PointerName(types.VOID), sp), nil))
	}
	l.declareType(ast.NewStruct(name, fields))
	l.declareType(ast.NewPointer(types.PointerName(name), ast.TypeRef(name, sp), false))

next:
	for _, c := range classes {
		if !l.idx.Implements(c.Name, iface.Name) {
			continue
		}
		inits := make([]*ast.Assignment, 0, len(methods))
		for _, m := range methods {
			impl := l.idx.FindMethod(c.Name, m.SimpleName())
			if impl == nil {
				continue next
			}
			fn := FunctionName(impl.Parent, m.SimpleName())
			inits = append(inits, l.b.Assign(l.b.Ref(m.SimpleName(), sp), l.b.RefOf(l.b.Ref(fn, sp), sp), sp))
		}
		instance := ItableInstance(iface.Name, c.Name)
		blk := l.block(ast.VarGlobal, l.variable(instance, ast.TypeRef(name, sp), l.b.StructLit(inits, sp)))
		blk.Constant = true
		l.synth.GlobalBlocks = append(l.synth.GlobalBlocks, blk)
		l.itable[memberKey(iface.Name, c.Name)] = true
		l.res.Itables = append(l.res.Itables, instance)
	}
}

// iface returns the interface a value of typ is, nil for anything else.
func (l *lowerer) iface(typ string) *index.PouEntry {
	if typ == "" {
		return nil
	}
	t := l.idx.FindEffectiveTypeInfo(typ)
	if t == nil || t.Origin != types.OriginPou {
		return nil
	}
	return l.idx.FindInterface(t.Name)
}

// upcast finds values of a class used where an interface is expected. It
// reports the pair only when the class has an itable for it.
func (l *lowerer) upcast(s ast.Statement) (iface, class string, ok bool) {
	hint, found := l.m.Hint(s)
	if !found {
		return "", "", false
	}
	i := l.iface(hint)
	if i == nil {
		return "", "", false
	}
	c := l.object(l.m.TypeOf(s))
	if c == nil || !l.itable[memberKey(i.Name, c.Name)] {
		return "", "", false
	}
	return i.Name, c.Name, true
}

// fatPointer is the interface value of instance x of class.
func (l *lowerer) fatPointer(x ast.Statement, iface, class string, sp source.Span) ast.Statement {
	return l.b.StructLit([]*ast.Assignment{
		l.b.Assign(l.b.Ref(DataMember, sp), l.addressOf(x, sp), sp),
		l.b.Assign(l.b.Ref(TableMember, sp), l.b.RefOf(l.b.Ref(ItableInstance(iface, class), sp), sp), sp),
	}, sp)
}

// interfaceCall turns `i.m(args)` into an indirect call through the
// itable of i with the instance pointer of i as the receiver.
func (r *body) interfaceCall(n *ast.CallStatement, target *index.PouEntry) ast.Statement {
	l, sp := r.l, n.Span
	ma, ok := n.Operator.(*ast.MemberAccess)
	if !ok {
		return nil
	}
	i := l.iface(l.m.TypeOf(ma.Base))
	if i == nil {
		return nil
	}
	recv := r.expr(ma.Base)
	r.args(n.Args)
	simple := target.SimpleName()
	table := l.b.Deref(l.b.Cast(types.PointerName(ItableName(i.Name)), l.b.Member(recv, TableMember, sp), sp), sp)
	slot := l.b.Member(table, simple, sp)
	fn := l.b.Deref(l.b.Cast(types.PointerName(FunctionName(target.Parent, simple)), slot, sp), sp)
	this := l.b.Member(l.clone(recv), DataMember, sp)
	return l.b.Call(fn, append([]ast.Statement{this}, n.Args...), sp)
}
