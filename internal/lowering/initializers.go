package lowering

import (
	"fmt"

	"plcc/internal/ast"
	"plcc/internal/index"
	"plcc/internal/resolver"
	"plcc/internal/source"
	"plcc/internal/types"
)

// initializers emits `<T>__init` for every type whose instances need code
// to initialise, and the project constructor that runs them for program
// instances and globals.
func (l *lowerer) initializers() {
	var names []string
	for _, e := range l.idx.Types().Values() {
		if e.Info.IsStruct() && !e.Builtin {
			names = append(names, e.Info.Name)
		}
	}
	for _, e := range l.idx.PouTypes().Values() {
		names = append(names, e.Info.Name)
	}
	for _, name := range names {
		if l.needsInit(name) {
			l.initFunction(name)
		}
	}
	l.constructor()
}

// stateMember reports members that live in the instance and are
// initialised with it.
func stateMember(v *index.VariableEntry) bool {
	if v.Role != index.RoleMember {
		return false
	}
	switch v.Kind {
	case ast.VarTemp, ast.VarInOut, ast.VarExternal:
		return false
	}
	return true
}

// needsInit reports whether values of typ need an init function: they
// carry a vtable pointer, or some member has an initializer the IR emitter
// cannot fold.
func (l *lowerer) needsInit(typ string) bool {
	t := l.idx.FindEffectiveTypeInfo(typ)
	if t == nil {
		return false
	}
	if t.Kind == types.KindArray {
		return l.needsInit(t.Inner)
	}
	if t.Kind != types.KindStruct || t.Origin == types.OriginVtable {
		return false
	}
	k := types.Key(t.Name)
	if v, ok := l.needs[k]; ok {
		return v
	}
	l.needs[k] = false // recursive members are reported by the validator
	v := l.computeNeeds(t)
	l.needs[k] = v
	return v
}

func (l *lowerer) computeNeeds(t *types.Info) bool {
	if t.Origin == types.OriginPou {
		p := l.idx.FindPou(t.Name)
		if p == nil || !p.Kind.IsStateful() || p.IsGeneric() || p.IsExternal() {
			return false
		}
		if l.dispatch[types.Key(p.Name)] {
			return true
		}
		if p.Super != "" && l.needsInit(p.Super) {
			return true
		}
	}
	for _, v := range l.idx.Members(t.Name).Values() {
		if !stateMember(v) {
			continue
		}
		if v.Initial != nil && !l.constant(v.Initial, t.Name) || l.needsInit(v.Type) {
			return true
		}
	}
	return false
}

// constant reports initializers the IR emitter folds into static data.
func (l *lowerer) constant(s ast.Statement, scope string) bool {
	switch n := s.(type) {
	case nil, *ast.Literal:
		return true
	case *ast.ArrayLiteral:
		for _, e := range n.Elements {
			if !l.constant(e, scope) {
				return false
			}
		}
		return true
	case *ast.MultipliedStatement:
		return l.constant(n.Element, scope)
	case *ast.StructLiteral:
		for _, f := range n.Fields {
			if !l.constant(f.Right, scope) {
				return false
			}
		}
		return true
	case *ast.ParenExpr:
		return l.constant(n.Inner, scope)
	case *ast.CastExpr:
		return l.constant(n.Target, scope)
	case *ast.RangeStatement:
		return l.constant(n.Start, scope) && l.constant(n.End, scope)
	}
	if ann, ok := l.m.Get(s); ok && ann.Kind == resolver.Variable && ann.Constant {
		if l.idx.FindEffectiveTypeInfo(ann.Type).IsEnum() {
			return true
		}
	}
	_, ok := l.idx.EvalConst(s, scope)
	return ok
}

// temps allocates the DINT loop counters of one synthetic body.
type temps struct {
	n int
}

func (t *temps) next() string {
	name := fmt.Sprintf("__i%d", t.n)
	t.n++
	return name
}

// block declares the counters handed out so far, nil when there are none.
func (t *temps) block(l *lowerer) *ast.VariableBlock {
	if t.n == 0 {
		return nil
	}
	vars := make([]*ast.Variable, t.n)
	for i := range vars {
		vars[i] = l.variable(fmt.Sprintf("__i%d", i), ast.TypeRef(types.DINT, source.Undefined()), nil)
	}
	return l.block(ast.VarTemp, vars...)
}

// initCalls initialises target of type typ by calling its init function,
// once per element for arrays.
func (l *lowerer) initCalls(target ast.Statement, typ string, tmp *temps) []ast.Statement {
	t := l.idx.FindEffectiveTypeInfo(typ)
	if t == nil || !l.needsInit(typ) {
		return nil
	}
	sp := target.GetSpan()
	if t.Kind == types.KindArray {
		counters := make([]ast.Statement, len(t.Dims))
		names := make([]string, len(t.Dims))
		for i := range t.Dims {
			names[i] = tmp.next()
			counters[i] = l.b.Ref(names[i], sp)
		}
		body := l.initCalls(l.b.Index(target, counters, sp), t.Inner, tmp)
		for i := len(t.Dims) - 1; i >= 0; i-- {
			d := t.Dims[i]
			body = []ast.Statement{l.b.For(l.b.Ref(names[i], sp), l.b.IntLit(d.Start, sp), l.b.IntLit(d.End, sp), body, sp)}
		}
		return body
	}
	l.initFunction(t.Name)
	return []ast.Statement{l.b.CallNamed(InitName(t.Name), []ast.Statement{target}, sp)}
}

// initFunction emits `<typ>__init(self)`: the base part first, then every
// member in declaration order, then the vtable pointer.
func (l *lowerer) initFunction(typ string) {
	k := types.Key(typ)
	if l.inits[k] {
		return
	}
	l.inits[k] = true
	sp := source.Undefined()
	self := func(sp source.Span) ast.Statement { return l.b.Ref(selfParam, sp) }
	tmp := &temps{}

	var out []ast.Statement
	owner := ""
	if p := l.object(typ); p != nil {
		owner = p.Name
		if p.Super != "" && l.needsInit(p.Super) {
			l.initFunction(p.Super)
			out = append(out, l.b.CallNamed(InitName(p.Super), []ast.Statement{l.b.Member(self(sp), SuperMember, sp)}, sp))
		}
	}
	r := &body{
		l:     l,
		owner: owner,
		self:  self,
		this:  func(sp source.Span) ast.Statement { return l.b.RefOf(self(sp), sp) },
	}
	for _, v := range l.idx.Members(typ).Values() {
		if !stateMember(v) {
			continue
		}
		target := l.b.Member(self(v.Span), v.Name, v.Span)
		if v.Initial != nil && !l.constant(v.Initial, typ) {
			if init := l.takeInitializer(typ, v.Name, nil); init != nil {
				out = append(out, l.b.Assign(target, r.expr(init), v.Span))
			}
			continue
		}
		out = append(out, l.initCalls(target, v.Type, tmp)...)
	}
	if owner != "" && l.dispatch[k] {
		vt := l.b.Member(l.chain(self(sp), owner, l.root(owner), sp), VtableMember, sp)
		out = append(out, l.b.Assign(vt, l.b.RefOf(l.b.Ref(VtableInstance(owner), sp), sp), sp))
	}

	blocks := []*ast.VariableBlock{l.block(ast.VarInOut, l.variable(selfParam, pointerDecl(typ, true), nil))}
	if b := tmp.block(l); b != nil {
		blocks = append(blocks, b)
	}
	l.function(InitName(typ), blocks, out)
	l.res.InitFunctions = append(l.res.InitFunctions, InitName(typ))
	log.Debugf("emitted %s", InitName(typ))
}

// localInits moves the initializers of function locals (and FB temps)
// that must be evaluated on every call into statements, returned for the
// start of the body.
func (l *lowerer) localInits(p *ast.Pou) []ast.Statement {
	if p.Linkage == ast.LinkExternal {
		return nil
	}
	stateful := p.Kind.IsStateful()
	tmp := &temps{}
	var out []ast.Statement
	for _, b := range p.Blocks {
		if b.Constant || b.Kind != ast.VarLocal && b.Kind != ast.VarTemp || stateful && b.Kind != ast.VarTemp {
			continue
		}
		for _, v := range b.Variables {
			sp := v.Span
			if v.Initializer != nil && !l.constant(v.Initializer, p.Name) {
				init := v.Initializer
				v.Initializer = nil
				out = append(out, l.b.Assign(l.b.Ref(v.Name, sp), init, sp))
				continue
			}
			e := l.idx.FindLocalMember(p.Name, v.Name)
			if e == nil {
				continue
			}
			out = append(out, l.initCalls(l.b.Ref(v.Name, sp), e.Type, tmp)...)
		}
	}
	if b := tmp.block(l); b != nil {
		p.Blocks = append(p.Blocks, b)
	}
	return out
}

// constructor emits the load-time function that initialises program
// instances and globals.
func (l *lowerer) constructor() {
	sp := source.Undefined()
	tmp := &temps{}
	var out []ast.Statement
	for _, v := range l.idx.ProgramInstances() {
		if v.IsExternal() {
			continue
		}
		out = append(out, l.initCalls(l.b.Ref(v.Name, sp), v.Type, tmp)...)
	}
	r := &body{l: l}
	for _, u := range l.units {
		for _, b := range u.GlobalBlocks {
			if b.Linkage == ast.LinkExternal {
				continue
			}
			for _, v := range b.Variables {
				e := l.idx.FindGlobal(v.Name)
				if e == nil {
					continue
				}
				if v.Initializer != nil && !l.constant(v.Initializer, "") {
					init := v.Initializer
					v.Initializer = nil
					out = append(out, l.b.Assign(l.b.Ref(v.Name, v.Span), r.expr(init), v.Span))
					continue
				}
				out = append(out, l.initCalls(l.b.Ref(v.Name, v.Span), e.Type, tmp)...)
			}
		}
	}
	if len(out) == 0 {
		return
	}
	var blocks []*ast.VariableBlock
	if b := tmp.block(l); b != nil {
		blocks = append(blocks, b)
	}
	name := ConstructorName(l.opt.Project)
	l.function(name, blocks, out)
	l.res.Constructor = name
}

// flatten replaces EXTENDS by an embedded `__SUPER` first member and gives
// the root of every dispatching tree its vtable pointer.
func (l *lowerer) flatten() {
	for _, u := range l.allUnits() {
		for _, p := range u.Pous {
			if p.Kind != ast.PouFunctionBlock && p.Kind != ast.PouClass {
				continue
			}
			var first *ast.VariableBlock
			switch {
			case p.Super != "":
				first = l.block(ast.VarLocal, l.variable(SuperMember, ast.TypeRef(p.Super, p.SuperSpan), nil))
				p.Super, p.SuperSpan = "", source.Undefined()
			case l.dispatch[types.Key(p.Name)]:
				first = l.block(ast.VarLocal, l.variable(VtableMember, ast.TypeRef(types.PointerName(types.VOID), source.Undefined()), nil))
			default:
				continue
			}
			p.Blocks = append([]*ast.VariableBlock{first}, p.Blocks...)
		}
	}
}
