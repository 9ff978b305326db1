package resolver

import (
	"plcc/internal/ast"
	"plcc/internal/index"
	"plcc/internal/types"
)

// genericCall binds the type parameters of pou from the call's arguments
// and records the specialisation the call needs.
//
// Typed arguments bind first (several of them promote to their common
// type), then the expected type of the call's result, and literals only
// fill what is still open: `x : INT := foo(1)` calls foo__INT.
func (a *annotator) genericCall(n *ast.CallStatement, pou *index.PouEntry) {
	bound, extra := BindArguments(a.idx, pou.Name, n.Args)
	bind := map[string]string{}
	hint := a.hint()

	for _, b := range bound {
		if isLiteral(b.Value) && !b.Output {
			continue
		}
		a.withoutHint(b.Value)
		a.unify(a.find(a.paramType(b.Param)), a.find(a.m.TypeOf(b.Value)), bind, true)
	}
	if ret := a.find(pou.ReturnType); ret.IsGeneric() {
		if h := a.find(hint); h != nil && types.Satisfies(h, ret.Nature) {
			a.unify(ret, h, bind, false)
		}
	}
	for _, b := range bound {
		if isLiteral(b.Value) && !b.Output {
			a.withoutHint(b.Value)
			a.unify(a.find(a.paramType(b.Param)), a.find(a.m.TypeOf(b.Value)), bind, false)
		}
	}

	inst := &Instantiation{Generic: pou.Name}
	names := make([]string, 0, len(pou.Generics))
	complete, template := true, false
	for _, g := range pou.Generics {
		nature, _ := types.ParseNature(g.Nature)
		t := bind[types.Key(index.GenericTypeName(pou.Name, g.Name))]
		inst.Bindings = append(inst.Bindings, Binding{Name: g.Name, Type: t, Nature: nature})
		if t == "" {
			complete = false
		}
		if a.find(t).IsGeneric() {
			template = true
		}
		names = append(names, t)
	}
	if complete {
		inst.Name = types.Mangle(pou.Name, names...)
	}
	if !template {
		a.m.RecordInstantiation(n, inst)
	}

	for _, b := range bound {
		a.argument(b, a.substitute(a.paramType(b.Param), bind))
	}
	a.unboundArgs(extra)

	ret := a.substitute(pou.ReturnType, bind)
	if pou.ReturnType != "" && ret == "" {
		ret = types.VOID
	}
	ann := a.functionAnnotation(pou)
	ann.Type = ret
	ann.Generic = pou.Name
	if !template {
		ann.CallName = inst.Name
	}
	a.m.Annotate(n.Operator, ann)
	a.annotateResult(n, ret)
}

// unify matches a parameter type against an argument type and binds the
// placeholders it finds. Pointers and arrays are matched element-wise.
func (a *annotator) unify(param, arg *types.Info, bind map[string]string, promote bool) {
	if param == nil || arg == nil || arg.IsVoid() {
		return
	}
	switch {
	case param.IsGeneric():
		k := types.Key(param.Name)
		name := bindable(arg)
		prev, ok := bind[k]
		switch {
		case !ok:
			bind[k] = name
		case promote:
			if t, ok := types.Promote(a.find(prev), a.find(name)); ok {
				bind[k] = t.Name
			}
		}
	case param.IsPointer() && arg.IsPointer(), param.IsArray() && arg.IsArray():
		a.unify(a.find(param.Inner), a.find(arg.Inner), bind, promote)
	}
}

// bindable is the name a type binds a placeholder as. Sized strings bind as
// the default string of their encoding.
func bindable(t *types.Info) string {
	if t.IsString() {
		if t.Encoding == types.UTF16 {
			return types.WSTRING
		}
		return types.STRING
	}
	return t.Name
}

// substitute replaces a placeholder by its binding. Compound types built
// on placeholders give "" and pass no hint.
func (a *annotator) substitute(typ string, bind map[string]string) string {
	t := a.find(typ)
	switch {
	case t == nil:
		return typ
	case t.IsGeneric():
		return bind[types.Key(t.Name)]
	case a.mentionsGeneric(t, 0):
		return ""
	}
	return typ
}

func (a *annotator) mentionsGeneric(t *types.Info, depth int) bool {
	if t == nil || depth > 8 {
		return false
	}
	if t.IsGeneric() {
		return true
	}
	if t.IsPointer() || t.IsArray() {
		return a.mentionsGeneric(a.find(t.Inner), depth+1)
	}
	return false
}
