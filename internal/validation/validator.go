// Package validation reports the semantic errors of an annotated, lowered
// project. It never changes the AST, the index or the annotations.
//
// Expressions are checked bottom-up. A node whose operand is already
// broken (unannotated, or typed VOID by the annotator) is skipped so that
// one mistake yields one diagnostic.
package validation

import (
	"fmt"
	"strings"

	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/index"
	"plcc/internal/lowering"
	"plcc/internal/resolver"
	"plcc/internal/source"
	"plcc/internal/types"
)

// Lint grades an optional check.
type Lint uint8

const (
	LintWarning Lint = iota
	LintOff
	LintError
)

func (l Lint) String() string {
	switch l {
	case LintOff:
		return "off"
	case LintError:
		return "error"
	}
	return "warning"
}

// ParseLint accepts "off", "warning"/"warn" and "error".
func ParseLint(s string) (Lint, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none", "allow":
		return LintOff, nil
	case "", "warning", "warn":
		return LintWarning, nil
	case "error", "deny":
		return LintError, nil
	}
	return LintWarning, fmt.Errorf("unknown lint level %q", s)
}

// Options configure a validation run.
type Options struct {
	Reporter diag.Reporter
	// Declared is the index built before lowering. Declarations are
	// checked against it so that synthetic members and functions stay
	// out of duplicate and override checks. nil uses the lowered index.
	Declared *index.Index
	// Narrowing grades implicit narrowing conversions.
	Narrowing Lint
}

// checkOrder ranks codes for the per-node tie-break; earlier wins.
var checkOrder = []diag.Code{
	diag.UnresolvedReference,
	diag.IncompatibleArrayAccessRange,
	diag.IncompatibleArrayAccessType,
	diag.IncompatibleArrayAccessVariable,
	diag.DuplicateSymbol,
	diag.IncompatibleAssignment,
	diag.RecursiveDataStructure,
	diag.NonExhaustiveCase,
	diag.BitAccessOutOfRange,
	diag.UnknownTypeNature,
	diag.AmbiguousCall,
	diag.InvalidArgumentCount,
	diag.IncompatibleTypes,
	diag.AssignmentToConstant,
	diag.NotAddressable,
	diag.InvalidDereference,
	diag.NarrowingConversion,
	diag.DuplicateCaseLabel,
	diag.ArrayDimensionMismatch,
	diag.InvalidCondition,
	diag.NotCallable,
	diag.UnresolvedGeneric,
	diag.MissingOverride,
	diag.InvalidPouMember,
	diag.InvalidVarBlock,
	diag.InvalidInheritance,
	diag.ConflictingSignatures,
	diag.InterfaceMismatch,
	diag.InvalidPropertyBlock,
	diag.InvalidProperty,
}

func rank(c diag.Code) int {
	for i, k := range checkOrder {
		if k == c {
			return i
		}
	}
	return len(checkOrder)
}

// Validate checks units against idx and m, which must describe the units
// as they are now. Every surviving diagnostic is sent to opts.Reporter
// and returned.
func Validate(units []*ast.CompilationUnit, idx *index.Index, m *resolver.AnnotationMap, opts Options) []diag.Diagnostic {
	v := &validator{idx: idx, decl: opts.Declared, m: m, opts: opts}
	if v.decl == nil {
		v.decl = idx
	}
	v.declarations()
	for _, u := range units {
		v.unit(u)
	}

	bag := diag.NewBag(0)
	bag.AddAll(diag.KeepMostSpecific(v.diags, rank))
	bag.Dedup()
	out := bag.Items()
	if opts.Reporter != nil {
		for _, d := range out {
			opts.Reporter.Report(d)
		}
	}
	return out
}

type validator struct {
	idx  *index.Index // lowered
	decl *index.Index // as written
	m    *resolver.AnnotationMap
	opts Options

	scope string
	// init is set inside synthesised initializer functions, which may
	// write constants.
	init  bool
	diags []diag.Diagnostic
}

func (v *validator) report(code diag.Code, sp source.Span, node ast.Node, format string, args ...any) {
	d := diag.Of(code, sp, fmt.Sprintf(format, args...))
	if node != nil {
		d = d.OnNode(uint64(node.GetID()))
	}
	v.diags = append(v.diags, d)
}

// at reports on the span of node.
func (v *validator) at(code diag.Code, node ast.Node, format string, args ...any) {
	v.report(code, node.GetSpan(), node, format, args...)
}

func (v *validator) narrowing(node ast.Node, from, to *types.Info) {
	if v.opts.Narrowing == LintOff {
		return
	}
	d := diag.Of(diag.NarrowingConversion, node.GetSpan(),
		fmt.Sprintf("implicit conversion from %s to %s may lose data", v.describe(from), v.describe(to)))
	if v.opts.Narrowing == LintError {
		d.Severity = diag.SevError
	}
	v.diags = append(v.diags, d.OnNode(uint64(node.GetID())))
}

func (v *validator) typeInfo(name string) *types.Info {
	if name == "" {
		return nil
	}
	return v.idx.FindEffectiveTypeInfo(name)
}

// typeOf is the resolved type of an annotated node, nil when the node is
// unannotated or its type unknown.
func (v *validator) typeOf(n ast.Node) *types.Info {
	return v.typeInfo(v.m.TypeOf(n))
}

// broken reports types that stand for an error already reported.
func broken(t *types.Info) bool {
	return t == nil || t.IsVoid()
}

// describe is the user-facing spelling of a type; synthetic names are
// spelled out.
func (v *validator) describe(t *types.Info) string {
	return v.describeDepth(t, 0)
}

func (v *validator) describeDepth(t *types.Info, depth int) string {
	if t == nil {
		return types.VOID
	}
	if !strings.HasPrefix(t.Name, "__") || depth > 4 {
		return t.Name
	}
	switch t.Kind {
	case types.KindString:
		kw := types.STRING
		if t.Encoding == types.UTF16 {
			kw = types.WSTRING
		}
		return fmt.Sprintf("%s[%d]", kw, t.Size-1)
	case types.KindPointer:
		return "REF_TO " + v.describeDepth(v.typeInfo(t.Inner), depth+1)
	case types.KindArray:
		dims := make([]string, len(t.Dims))
		for i, d := range t.Dims {
			dims[i] = fmt.Sprintf("%d..%d", d.Start, d.End)
		}
		return fmt.Sprintf("ARRAY[%s] OF %s", strings.Join(dims, ", "), v.describeDepth(v.typeInfo(t.Inner), depth+1))
	case types.KindVarLengthArray:
		return fmt.Sprintf("ARRAY[%s] OF %s", strings.TrimSuffix(strings.Repeat("*, ", t.Rank), ", "), v.describeDepth(v.typeInfo(t.Inner), depth+1))
	}
	return t.Name
}

func (v *validator) unit(u *ast.CompilationUnit) {
	v.init = false
	for _, ut := range u.UserTypes {
		if v.generic(ut.Scope) {
			continue
		}
		v.scope = ut.Scope
		name := ut.Type.TypeName()
		if ut.Initializer != nil {
			v.expr(ut.Initializer)
			v.convert(ut.Initializer, name)
		}
		if st, ok := ut.Type.(*ast.StructType); ok {
			for _, m := range st.Members {
				if e := v.idx.FindLocalMember(name, m.Name); e != nil {
					v.initializer(m, e.Type)
				}
			}
		}
	}
	v.scope = ""
	for _, b := range u.GlobalBlocks {
		for _, g := range b.Variables {
			if e := v.idx.FindGlobal(g.Name); e != nil {
				v.initializer(g, e.Type)
			}
		}
	}
	for _, p := range u.Pous {
		if p.IsGeneric() {
			continue
		}
		v.scope = p.Name
		for _, b := range p.Blocks {
			for _, m := range b.Variables {
				if e := v.idx.FindLocalMember(p.Name, m.Name); e != nil {
					v.initializer(m, e.Type)
				}
			}
		}
	}
	for _, impl := range u.Implementations {
		if impl.Generic || v.generic(impl.Name) {
			continue
		}
		v.scope = impl.Name
		v.init = u.Path == lowering.SyntheticPath && lowering.IsInitFunction(impl.Name)
		v.statements(impl.Statements)
	}
	v.scope, v.init = "", false
}

// generic reports names of generic POUs, whose bodies are only checked
// through their specialisations.
func (v *validator) generic(pou string) bool {
	if pou == "" {
		return false
	}
	p := v.idx.FindPou(pou)
	return p != nil && p.IsGeneric()
}

func (v *validator) initializer(decl *ast.Variable, typ string) {
	if decl.Initializer == nil {
		return
	}
	v.expr(decl.Initializer)
	v.convert(decl.Initializer, v.valueType(typ))
}

// valueType looks through the auto-deref pointer of a VAR_IN_OUT.
func (v *validator) valueType(typ string) string {
	if t := v.typeInfo(typ); t.IsPointer() && t.AutoDeref {
		return t.Inner
	}
	return typ
}
