package lowering

import (
	"fmt"
	"strings"

	"plcc/internal/ast"
	"plcc/internal/index"
	"plcc/internal/resolver"
	"plcc/internal/types"
)

// monomorphize copies every generic POU once per distinct binding the
// annotator recorded. The copies are indexed and annotated right away;
// their bodies may instantiate further generics, which are handled in the
// next round.
func (l *lowerer) monomorphize() error {
	pending := l.m.Instantiations()
	done := map[string]bool{}
	for round := 0; len(pending) > 0; round++ {
		if round >= l.opt.MaxDepth {
			return fmt.Errorf("lowering: specialisation depth exceeded (%d)", l.opt.MaxDepth)
		}
		batch := &ast.CompilationUnit{File: l.synth.File, Path: SyntheticPath}
		for _, inst := range pending {
			k := types.Key(inst.Name)
			if inst.Name == "" || done[k] {
				continue
			}
			done[k] = true
			if l.idx.FindPou(inst.Name) != nil {
				// written by hand, or specialised in an earlier round
				continue
			}
			if !l.concrete(inst) {
				continue
			}
			l.specialise(inst, batch)
		}
		if len(batch.Pous) == 0 {
			break
		}
		l.idx.Visit(batch)
		l.idx.Resolve()
		am := resolver.Annotate(l.idx, batch)
		am.Commit(l.idx)
		l.m.Import(am)

		l.synth.UserTypes = append(l.synth.UserTypes, batch.UserTypes...)
		l.synth.Pous = append(l.synth.Pous, batch.Pous...)
		l.synth.Implementations = append(l.synth.Implementations, batch.Implementations...)
		l.collectUnit(batch)
		log.Debugf("specialisation round %d: %d POUs", round+1, len(batch.Pous))
		pending = am.Instantiations()
	}
	return nil
}

// concrete reports whether every parameter is bound to a type that
// satisfies its nature. Anything else is left for the validator.
func (l *lowerer) concrete(inst *resolver.Instantiation) bool {
	for _, b := range inst.Bindings {
		t := l.idx.FindEffectiveTypeInfo(b.Type)
		if t == nil || t.IsGeneric() || !types.Satisfies(t, b.Nature) {
			return false
		}
	}
	return true
}

// substitution maps the type names of a generic POU to those of one
// specialisation.
type substitution struct {
	names map[string]string
}

func (s substitution) rename(name string) string {
	if to, ok := s.names[types.Key(name)]; ok {
		return to
	}
	if inner, ok := strings.CutPrefix(name, "__AUTO_DEREF__"); ok {
		if to := s.rename(inner); to != inner {
			return types.ReferenceName(to)
		}
	}
	if inner, ok := strings.CutPrefix(name, "__POINTER_TO_"); ok {
		if to := s.rename(inner); to != inner {
			return types.PointerName(to)
		}
	}
	return name
}

// scopedName renames a type hoisted from generic to its copy for inst:
// `__foo_arr` becomes `__foo__DINT_arr`.
func scopedName(name, generic, inst string) string {
	if rest, ok := strings.CutPrefix(name, "__"+generic); ok {
		return "__" + inst + rest
	}
	return "__" + inst + "_" + name
}

func (l *lowerer) specialise(inst *resolver.Instantiation, batch *ast.CompilationUnit) {
	g := l.pous[types.Key(inst.Generic)]
	if g == nil {
		return
	}
	s := substitution{names: map[string]string{}}
	for _, b := range inst.Bindings {
		s.names[types.Key(index.GenericTypeName(g.Name, b.Name))] = b.Type
	}
	hoisted := l.scoped[types.Key(g.Name)]
	for _, ut := range hoisted {
		if _, ok := ut.Type.(*ast.GenericType); ok {
			continue
		}
		name := ut.Type.TypeName()
		s.names[types.Key(name)] = scopedName(name, g.Name, inst.Name)
	}

	c := ast.Cloner{IDs: l.ids, Types: s.rename}
	for _, ut := range hoisted {
		if _, ok := ut.Type.(*ast.GenericType); ok {
			continue
		}
		batch.UserTypes = append(batch.UserTypes, &ast.UserTypeDeclaration{
			ID:          l.ids.Next(),
			Type:        c.DataType(ut.Type),
			Initializer: c.Statement(ut.Initializer),
			Span:        ut.Span,
			Scope:       inst.Name,
		})
	}

	p := c.Pou(g)
	p.Name = inst.Name
	p.Generics = nil
	p.Specialises = g.Name
	batch.Pous = append(batch.Pous, p)

	if impl := l.impls[types.Key(g.Name)]; impl != nil {
		cp := c.Implementation(impl)
		cp.Name, cp.TypeName, cp.Generic = inst.Name, inst.Name, false
		for i, st := range cp.Statements {
			cp.Statements[i] = renameRefs(st, g.Name, inst.Name)
		}
		batch.Implementations = append(batch.Implementations, cp)
	}
	l.res.Specialised = append(l.res.Specialised, inst.Name)
	log.Debugf("specialised %s as %s", inst.Generic, inst.Name)
}

// renameRefs points the return slot (and recursive calls) of a copied body
// at the copy.
func renameRefs(s ast.Statement, from, to string) ast.Statement {
	switch n := s.(type) {
	case *ast.Reference:
		if types.SameName(n.Name, from) {
			n.Name = to
		}
		return n
	case *ast.MemberAccess:
		n.Base = renameRefs(n.Base, from, to)
		return n
	}
	ast.RewriteChildren(s, func(c ast.Statement) ast.Statement { return renameRefs(c, from, to) })
	return s
}

// retargetCalls renames the operator of every generic or overloaded call
// to the POU it resolved to.
func (l *lowerer) retargetCalls() {
	f := func(s ast.Statement) ast.Statement {
		call, ok := s.(*ast.CallStatement)
		if !ok {
			return s
		}
		ref, ok := call.Operator.(*ast.Reference)
		if !ok {
			return s
		}
		if name := l.callTarget(call); name != "" {
			ref.Name = name
		}
		return s
	}
	for _, u := range l.allUnits() {
		for _, impl := range u.Implementations {
			if impl.Generic || l.isTemplate(impl.Name) {
				continue
			}
			ast.RewriteAll(impl.Statements, f)
		}
		l.eachInitializer(u, func(v *ast.Variable) {
			v.Initializer = ast.Rewrite(v.Initializer, f)
		})
	}
}

func (l *lowerer) callTarget(call *ast.CallStatement) string {
	if inst, ok := l.m.InstantiationOf(call); ok {
		if inst.Name != "" && l.idx.FindPou(inst.Name) != nil {
			return inst.Name
		}
		return ""
	}
	ann, ok := l.m.Get(call.Operator)
	if !ok || ann.Kind != resolver.Function || ann.Builtin || ann.CallName == "" {
		return ""
	}
	if types.SameName(ann.CallName, ann.Qualified) || l.idx.FindPou(ann.CallName) == nil {
		return ""
	}
	return ann.CallName
}

// eachInitializer visits every declared variable of u that has an
// initializer, outside generic templates.
func (l *lowerer) eachInitializer(u *ast.CompilationUnit, f func(v *ast.Variable)) {
	visit := func(vars []*ast.Variable) {
		for _, v := range vars {
			if v.Initializer != nil {
				f(v)
			}
		}
	}
	for _, b := range u.GlobalBlocks {
		visit(b.Variables)
	}
	for _, p := range u.Pous {
		if p.IsGeneric() {
			continue
		}
		for _, b := range p.Blocks {
			visit(b.Variables)
		}
	}
	for _, ut := range u.UserTypes {
		if st, ok := ut.Type.(*ast.StructType); ok {
			visit(st.Members)
		}
	}
}
