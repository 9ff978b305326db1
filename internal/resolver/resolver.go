// Package resolver annotates every expression of a compilation unit with
// its type. Types flow both ways: leaves synthesise a type from their
// shape, and the surrounding construct pushes the type it expects onto a
// hint stack so literals can adopt their destination type.
//
// The annotator reports nothing itself. Everything it cannot make sense of
// is left unannotated (or typed VOID) for the validator to report.
package resolver

import (
	"plcc/internal/ast"
	"plcc/internal/index"
	"plcc/internal/types"
)

// Annotate walks unit against idx and returns its annotations. idx is only
// read, so several units may be annotated concurrently against one index.
func Annotate(idx *index.Index, unit *ast.CompilationUnit) *AnnotationMap {
	a := newAnnotator(idx)
	a.unit(unit)
	return a.m
}

// AnnotateStatement annotates a single statement seen from scope; lowering
// uses it for the statements it synthesises.
func AnnotateStatement(idx *index.Index, m *AnnotationMap, scope string, s ast.Statement) {
	a := &annotator{idx: idx, m: m, scope: scope}
	a.statement(s)
}

type annotator struct {
	idx   *index.Index
	m     *AnnotationMap
	scope string   // POU whose body is annotated, "" at type level
	hints []string // expected types, innermost last
}

func newAnnotator(idx *index.Index) *annotator {
	return &annotator{idx: idx, m: NewAnnotationMap()}
}

func (a *annotator) unit(u *ast.CompilationUnit) {
	for _, ut := range u.UserTypes {
		a.scope = ut.Scope
		a.userType(ut)
	}
	a.scope = ""
	for _, b := range u.GlobalBlocks {
		a.block(b)
	}
	for _, p := range u.Pous {
		a.scope = p.Name
		for _, b := range p.Blocks {
			a.block(b)
		}
	}
	for _, impl := range u.Implementations {
		a.scope = impl.Name
		a.statements(impl.Statements)
	}
	a.scope = ""
}

func (a *annotator) userType(ut *ast.UserTypeDeclaration) {
	name := ut.Type.TypeName()
	if ut.Initializer != nil {
		a.expect(ut.Initializer, name)
	}
	switch t := ut.Type.(type) {
	case *ast.StructType:
		for _, m := range t.Members {
			a.variable(m, name)
		}
	case *ast.ArrayType:
		for _, d := range t.Dims {
			a.expect(d.Start, types.DINT)
			a.expect(d.End, types.DINT)
			a.m.Annotate(d, ValueOf(types.DINT))
		}
	case *ast.EnumType:
		base := types.DINT
		if info := a.find(name); info != nil && info.Inner != "" {
			base = info.Inner
		}
		for _, e := range t.Elements {
			if e.Value != nil {
				a.expect(e.Value, base)
			}
		}
	case *ast.SubRangeType:
		if t.Range != nil {
			a.expect(t.Range.Start, t.Base)
			a.expect(t.Range.End, t.Base)
			a.m.Annotate(t.Range, ValueOf(t.Base))
		}
	case *ast.StringType:
		if t.Size != nil {
			a.expect(t.Size, types.DINT)
		}
	}
}

func (a *annotator) block(b *ast.VariableBlock) {
	for _, v := range b.Variables {
		a.variable(v, a.scope)
	}
}

// variable annotates the initializer against the declared type.
func (a *annotator) variable(v *ast.Variable, container string) {
	if v.Initializer == nil {
		return
	}
	var typ string
	if container != "" {
		if e := a.idx.FindLocalMember(container, v.Name); e != nil {
			typ = e.Type
		}
	} else if e := a.idx.FindGlobal(v.Name); e != nil {
		typ = e.Type
	}
	if typ == "" {
		typ = ast.TypeNameOf(v.Type)
	}
	a.expect(v.Initializer, a.valueType(typ))
}

// valueType looks through the auto-deref pointer of a VAR_IN_OUT.
func (a *annotator) valueType(typ string) string {
	if t := a.find(typ); t != nil && t.Kind == types.KindPointer && t.AutoDeref {
		return t.Inner
	}
	return typ
}

// find resolves a type name against the index and the types created so far.
func (a *annotator) find(name string) *types.Info {
	if name == "" {
		return nil
	}
	if t := a.idx.FindEffectiveTypeInfo(name); t != nil {
		return t
	}
	return a.m.findNew(name)
}

// expect annotates s with typ pushed as its hint and records the hint.
func (a *annotator) expect(s ast.Statement, typ string) {
	if s == nil {
		return
	}
	a.push(typ)
	a.expr(s)
	a.pop()
	if typ != "" {
		a.m.AnnotateHint(s, typ)
	}
}

func (a *annotator) push(typ string) { a.hints = append(a.hints, typ) }

func (a *annotator) pop() { a.hints = a.hints[:len(a.hints)-1] }

// hint is the innermost expected type, "" for none.
func (a *annotator) hint() string {
	if len(a.hints) == 0 {
		return ""
	}
	return a.hints[len(a.hints)-1]
}

// withoutHint visits s in a context that expects nothing.
func (a *annotator) withoutHint(s ast.Statement) {
	if s == nil {
		return
	}
	a.push("")
	a.expr(s)
	a.pop()
}

// currentPou is the POU whose body is annotated.
func (a *annotator) currentPou() *index.PouEntry {
	if a.scope == "" {
		return nil
	}
	return a.idx.FindPou(a.scope)
}

// instanceOwner is the FB or class whose instance the current body runs on.
func (a *annotator) instanceOwner() *index.PouEntry {
	p := a.currentPou()
	for guard := 0; p != nil && guard < 8; guard++ {
		switch p.Kind {
		case ast.PouFunctionBlock, ast.PouClass, ast.PouProgram:
			return p
		case ast.PouMethod, ast.PouAction:
			p = a.idx.FindPou(p.Parent)
		default:
			return nil
		}
	}
	return nil
}

// pointerTo returns the name of a pointer type to target, creating it if
// the index does not know it yet.
func (a *annotator) pointerTo(target string) string {
	name := types.PointerName(target)
	if a.find(name) == nil {
		a.m.addType(types.PointerTo(name, target, false))
	}
	return name
}
