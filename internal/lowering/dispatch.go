package lowering

import (
	"plcc/internal/ast"
	"plcc/internal/index"
	"plcc/internal/resolver"
	"plcc/internal/source"
	"plcc/internal/types"
)

// slot is one entry of a vtable: the method name and the class whose
// function implements it.
type slot struct {
	name string
	impl string
}

// classes decides which class trees dispatch dynamically and emits a
// vtable for every class in them. A tree dispatches as soon as one of its
// classes declares a method.
func (l *lowerer) classes() {
	var all []*index.PouEntry
	rooted := map[string]bool{}
	for _, p := range l.idx.Pous().Values() {
		if p.Kind != ast.PouFunctionBlock && p.Kind != ast.PouClass || p.IsGeneric() || p.IsExternal() {
			continue
		}
		all = append(all, p)
		if len(l.idx.MethodsOf(p.Name)) > 0 {
			rooted[types.Key(l.root(p.Name))] = true
		}
	}
	for _, p := range all {
		if !rooted[types.Key(l.root(p.Name))] {
			continue
		}
		l.dispatch[types.Key(p.Name)] = true
		l.vtable(p.Name)
	}
}

// slots lists the vtable entries of class: inherited methods first, in
// the order the root declares them, overrides keeping their slot.
func (l *lowerer) slots(class string) []slot {
	h := l.idx.Hierarchy(class)
	var out []slot
	pos := map[string]int{}
	for i := len(h) - 1; i >= 0; i-- {
		for _, m := range l.idx.MethodsOf(h[i].Name) {
			k := types.Key(m.SimpleName())
			if j, ok := pos[k]; ok {
				out[j].impl = h[i].Name
				continue
			}
			pos[k] = len(out)
			out = append(out, slot{name: m.SimpleName(), impl: h[i].Name})
		}
	}
	return out
}

func (l *lowerer) vtable(class string) {
	sp := source.Undefined()
	name := VtableName(class)
	var fields []*ast.Variable
	var inits []*ast.Assignment
	for _, s := range l.slots(class) {
		fn := FunctionName(s.impl, s.name)
		ptr := types.PointerName(fn)
		l.declareType(ast.NewPointer(ptr, ast.TypeRef(fn, sp), false))
		fields = append(fields, l.variable(s.name, ast.TypeRef(ptr, sp), nil))
		inits = append(inits, l.b.Assign(l.b.Ref(s.name, sp), l.b.RefOf(l.b.Ref(fn, sp), sp), sp))
	}
	l.declareType(ast.NewStruct(name, fields))
	l.declareType(ast.NewPointer(types.PointerName(name), ast.TypeRef(name, sp), false))
	l.declareType(ast.NewPointer(types.PointerName(types.VOID), ast.TypeRef(types.VOID, sp), false))

	blk := l.block(ast.VarGlobal, l.variable(VtableInstance(class), ast.TypeRef(name, sp), l.b.StructLit(inits, sp)))
	blk.Constant = true
	l.synth.GlobalBlocks = append(l.synth.GlobalBlocks, blk)
	l.res.Vtables = append(l.res.Vtables, name)
}

// bodies rewrites every implementation against the lowered object model
// and then turns methods and actions into functions.
func (l *lowerer) bodies() {
	var convert []*ast.Pou
	for _, u := range l.allUnits() {
		for _, p := range u.Pous {
			if p.IsGeneric() || l.isTemplate(p.Name) {
				continue
			}
			entry := l.idx.FindPou(p.Name)
			if entry == nil {
				continue
			}
			prefix := l.localInits(p)
			impl := l.impls[types.Key(p.Name)]
			if impl == nil {
				if entry.IsMethod() || entry.IsAction() {
					convert = append(convert, p)
				}
				continue
			}
			r := l.bodyOf(entry)
			impl.Statements = r.stmts(append(prefix, impl.Statements...))
			if entry.IsMethod() || entry.IsAction() {
				convert = append(convert, p)
			}
		}
	}
	for _, p := range convert {
		l.convert(p)
	}
}

// bodyOf sets up the rewriter for the body of p.
func (l *lowerer) bodyOf(p *index.PouEntry) *body {
	switch p.Kind {
	case ast.PouMethod, ast.PouAction:
		r := &body{
			l:     l,
			owner: p.Parent,
			self: func(sp source.Span) ast.Statement {
				return l.b.Deref(l.b.Ref(ThisParam, sp), sp)
			},
			this: func(sp source.Span) ast.Statement { return l.b.Ref(ThisParam, sp) },
		}
		if p.ReturnType != "" {
			r.ret = ast.QualifiedName(p.Name, p.SimpleName())
			r.fn = FunctionName(p.Parent, p.SimpleName())
		}
		return r
	case ast.PouFunctionBlock, ast.PouClass, ast.PouProgram:
		return &body{
			l:        l,
			owner:    p.Name,
			implicit: true,
			self: func(sp source.Span) ast.Statement {
				return l.b.Deref(&ast.ThisRef{Meta: ast.Meta{ID: l.ids.Next(), Span: sp}}, sp)
			},
		}
	}
	return &body{l: l}
}

// convert turns method or action p into a function of its owner's
// instance pointer.
func (l *lowerer) convert(p *ast.Pou) {
	old, owner := p.Name, p.Parent
	simple := old
	if q := qualifier(old); q != "" {
		simple = old[len(q)+1:]
	}
	name := FunctionName(owner, simple)
	abstract := false
	var self ast.DataTypeDeclaration = pointerDecl(owner, false)
	if l.idx.FindInterface(owner) != nil {
		// only its signature is used, by the casts of interface calls
		self, abstract = ast.TypeRef(types.PointerName(types.VOID), source.Undefined()), true
	}
	this := l.block(ast.VarInput, l.variable(ThisParam, self, nil))
	p.Blocks = append([]*ast.VariableBlock{this}, p.Blocks...)
	p.Name, p.Kind, p.Parent = name, ast.PouFunction, ""
	p.Overriding, p.Abstract, p.Final = false, abstract, false

	for _, ut := range l.scoped[types.Key(old)] {
		ut.Scope = name
	}
	if impl := l.impls[types.Key(old)]; impl != nil {
		impl.Name, impl.TypeName, impl.Kind = name, name, ast.PouFunction
		impl.Overriding = false
	}
	log.Debugf("%s became %s", old, name)
}

// body rewrites statements of one implementation. Members of owner and its
// ancestors are reached through `__SUPER` chains; with an explicit
// receiver every member access starts at self.
type body struct {
	l        *lowerer
	owner    string
	implicit bool
	self     func(sp source.Span) ast.Statement
	this     func(sp source.Span) ast.Statement // nil keeps THIS
	ret, fn  string                             // return slot and its new name
}

func (r *body) stmts(list []ast.Statement) []ast.Statement {
	out := make([]ast.Statement, 0, len(list))
	for _, s := range list {
		if call, ok := s.(*ast.CallStatement); ok {
			if pre, post, ok := r.fbCall(call); ok {
				out = append(out, pre...)
				out = append(out, call)
				out = append(out, post...)
				continue
			}
		}
		out = append(out, r.stmt(s))
	}
	return out
}

func (r *body) stmt(s ast.Statement) ast.Statement {
	switch n := s.(type) {
	case *ast.IfStatement:
		for _, b := range n.Blocks {
			b.Condition = r.expr(b.Condition)
			b.Body = r.stmts(b.Body)
		}
		n.Else = r.stmts(n.Else)
	case *ast.CaseStatement:
		n.Selector = r.expr(n.Selector)
		for _, b := range n.Blocks {
			for i, lbl := range b.Labels {
				b.Labels[i] = r.expr(lbl)
			}
			b.Body = r.stmts(b.Body)
		}
		n.Else = r.stmts(n.Else)
	case *ast.ForLoop:
		n.Counter = r.expr(n.Counter)
		n.Start = r.expr(n.Start)
		n.End = r.expr(n.End)
		n.By = r.expr(n.By)
		n.Body = r.stmts(n.Body)
	case *ast.WhileLoop:
		n.Condition = r.expr(n.Condition)
		n.Body = r.stmts(n.Body)
	case *ast.RepeatLoop:
		n.Body = r.stmts(n.Body)
		n.Condition = r.expr(n.Condition)
	default:
		return r.expr(s)
	}
	return s
}

func (r *body) expr(s ast.Statement) ast.Statement {
	if s == nil {
		return nil
	}
	if iface, class, ok := r.l.upcast(s); ok {
		return r.l.fatPointer(r.rewrite(s), iface, class, s.GetSpan())
	}
	return r.rewrite(s)
}

func (r *body) rewrite(s ast.Statement) ast.Statement {
	switch n := s.(type) {
	case *ast.Reference:
		if out := r.propertyRead(n); out != nil {
			return out
		}
		return r.ref(n)
	case *ast.MemberAccess:
		if out := r.propertyRead(n); out != nil {
			return out
		}
		return r.member(n)
	case *ast.Assignment:
		return r.assignment(n)
	case *ast.ThisRef:
		if r.this != nil {
			return r.this(n.Span)
		}
		return n
	case *ast.SuperRef:
		return r.l.addressOf(r.super(n.Span), n.Span)
	case *ast.Deref:
		if _, ok := n.Base.(*ast.SuperRef); ok {
			return r.super(n.Span)
		}
		n.Base = r.expr(n.Base)
		return n
	case *ast.StructLiteral:
		for _, f := range n.Fields {
			f.Right = r.expr(f.Right)
		}
		return n
	case *ast.CallStatement:
		return r.call(n)
	}
	ast.RewriteChildren(s, r.expr)
	return s
}

// ref rewrites a bare variable reference.
func (r *body) ref(n *ast.Reference) ast.Statement {
	ann, ok := r.l.m.Get(n)
	if !ok || ann.Kind != resolver.Variable || ann.Global {
		return n
	}
	if r.ret != "" && types.SameName(ann.Qualified, r.ret) {
		n.Name = r.fn
		return n
	}
	if r.owner == "" {
		return n
	}
	container := qualifier(ann.Qualified)
	d, ok := r.l.depth(r.owner, container)
	if !ok {
		return n
	}
	if r.implicit {
		if d == 0 {
			return n
		}
		var x ast.Statement = r.l.b.Ref(SuperMember, n.Span)
		for i := 1; i < d; i++ {
			x = r.l.b.Member(x, SuperMember, n.Span)
		}
		return r.l.b.Member(x, n.Name, n.Span)
	}
	return r.l.b.Member(r.l.chain(r.self(n.Span), r.owner, container, n.Span), n.Name, n.Span)
}

func (r *body) member(n *ast.MemberAccess) ast.Statement {
	baseType := r.l.m.TypeOf(n.Base)
	n.Base = r.expr(n.Base)
	ref, ok := n.Member.(*ast.Reference)
	if !ok {
		n.Member = r.expr(n.Member)
		return n
	}
	ann, ok := r.l.m.Get(ref)
	if !ok || ann.Kind != resolver.Variable {
		return n
	}
	cls := r.l.object(baseType)
	if cls == nil {
		return n
	}
	container := qualifier(ann.Qualified)
	if d, ok := r.l.depth(cls.Name, container); ok && d > 0 {
		n.Base = r.l.chain(n.Base, cls.Name, container, n.Span)
	}
	return n
}

// super is the base-class part of the current instance.
func (r *body) super(sp source.Span) ast.Statement {
	if r.implicit || r.self == nil {
		return r.l.b.Ref(SuperMember, sp)
	}
	return r.l.b.Member(r.self(sp), SuperMember, sp)
}

func (r *body) args(args []ast.Statement) {
	for i, a := range args {
		switch n := a.(type) {
		case *ast.Assignment:
			n.Right = r.expr(n.Right)
		case *ast.OutputAssignment:
			n.Right = r.expr(n.Right)
		default:
			args[i] = r.expr(a)
		}
	}
}

func (r *body) call(n *ast.CallStatement) ast.Statement {
	if ann, ok := r.l.m.Get(n.Operator); ok && ann.Kind == resolver.Function && !ann.Builtin {
		t := r.l.idx.FindPou(ann.Qualified)
		if t != nil && t.IsMethod() && r.l.idx.FindInterface(t.Parent) != nil {
			if out := r.interfaceCall(n, t); out != nil {
				return out
			}
		} else if t != nil && (t.IsMethod() || t.IsAction()) {
			if out := r.methodCall(n, ann.Virtual, t); out != nil {
				return out
			}
		}
	}
	n.Operator = r.expr(n.Operator)
	r.args(n.Args)
	return n
}

// receiverType is the class of the instance base evaluates to.
func (r *body) receiverType(base ast.Statement) string {
	if p := r.l.object(r.l.m.TypeOf(base)); p != nil {
		return p.Name
	}
	return ""
}

// methodCall turns `recv.m(args)` into `Owner_m(REF(recv), args)`, or an
// indirect call through the receiver's vtable when m is virtual.
func (r *body) methodCall(n *ast.CallStatement, virtual bool, target *index.PouEntry) ast.Statement {
	l, sp := r.l, n.Span
	var recv ast.Statement
	var static string
	if ma, ok := n.Operator.(*ast.MemberAccess); ok {
		static = r.receiverType(ma.Base)
		recv = r.expr(ma.Base)
	} else {
		if r.self == nil {
			return nil
		}
		static = r.owner
		recv = r.self(sp)
	}
	if static == "" {
		static = target.Parent
	}
	r.args(n.Args)
	simple := target.SimpleName()

	if virtual && target.IsMethod() && l.dispatch[types.Key(static)] {
		vt := l.b.Member(l.chain(recv, static, l.root(static), sp), VtableMember, sp)
		table := l.b.Deref(l.b.Cast(types.PointerName(VtableName(static)), vt, sp), sp)
		fn := l.b.Deref(l.b.Member(table, simple, sp), sp)
		impl := static
		for _, s := range l.slots(static) {
			if types.SameName(s.name, simple) {
				impl = s.impl
			}
		}
		this := l.addressOf(l.chain(l.clone(recv), static, impl, sp), sp)
		return l.b.Call(fn, append([]ast.Statement{this}, n.Args...), sp)
	}
	this := l.addressOf(l.chain(recv, static, target.Parent, sp), sp)
	return l.b.CallNamed(FunctionName(target.Parent, simple), append([]ast.Statement{this}, n.Args...), sp)
}

// fbCall expands a call of an FB instance that binds inherited parameters
// by name: inputs are assigned before the call, outputs read after it.
func (r *body) fbCall(n *ast.CallStatement) (pre, post []ast.Statement, ok bool) {
	l := r.l
	ann, found := l.m.Get(n.Operator)
	if !found || ann.Kind != resolver.Variable {
		return nil, nil, false
	}
	cls := l.object(ann.Type)
	if cls == nil || cls.Super == "" {
		return nil, nil, false
	}
	type inherited struct {
		param  *index.VariableEntry
		value  ast.Statement
		output bool
	}
	var keep []ast.Statement
	var moved []inherited
	for _, a := range n.Args {
		var left, right ast.Statement
		output := false
		switch v := a.(type) {
		case *ast.Assignment:
			left, right = v.Left, v.Right
		case *ast.OutputAssignment:
			left, right, output = v.Left, v.Right, true
		}
		ref, isRef := left.(*ast.Reference)
		if !isRef {
			keep = append(keep, a)
			continue
		}
		p := l.idx.FindMember(cls.Name, ref.Name)
		if p == nil || !p.IsParameter() {
			keep = append(keep, a)
			continue
		}
		if d, _ := l.depth(cls.Name, p.Container); d == 0 {
			keep = append(keep, a)
			continue
		}
		moved = append(moved, inherited{param: p, value: right, output: output})
	}
	if len(moved) == 0 {
		return nil, nil, false
	}
	n.Operator = r.expr(n.Operator)
	r.args(keep)
	n.Args = keep
	for _, m := range moved {
		sp := m.value.GetSpan()
		target := l.b.Member(l.chain(l.clone(n.Operator), cls.Name, m.param.Container, sp), m.param.Name, sp)
		if m.output {
			post = append(post, l.b.Assign(r.expr(m.value), target, sp))
		} else {
			pre = append(pre, l.b.Assign(target, r.expr(m.value), sp))
		}
	}
	return pre, post, true
}
