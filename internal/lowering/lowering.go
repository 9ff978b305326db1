// Package lowering rewrites an annotated project into the monomorphic
// shape the IR emitter consumes:
//
//   - every generic call gets a specialised copy of its callee,
//   - methods and actions become plain functions taking the instance as
//     their first argument, and virtual calls go through a per-class
//     vtable,
//   - interface values become an instance pointer paired with an itable,
//     and calls through them go through the itable,
//   - property reads and writes become calls of their GET and SET,
//   - EXTENDS becomes an embedded `__SUPER` first member,
//   - initializers that are not constant move into `<T>__init` functions
//     and a load-time constructor.
//
// Lowering mutates the units it is given and adds one synthetic unit. The
// caller re-indexes and re-annotates the result before validating it.
package lowering

import (
	"strings"

	"github.com/tliron/commonlog"

	"plcc/internal/ast"
	"plcc/internal/index"
	"plcc/internal/resolver"
	"plcc/internal/source"
	"plcc/internal/types"
)

var log = commonlog.GetLogger("plcc.lowering")

// Synthetic member and parameter names.
const (
	SuperMember  = types.BaseField
	VtableMember = "__vt"
	ThisParam    = "__this"
	selfParam    = "self"

	// SyntheticPath names the unit lowering adds.
	SyntheticPath = "<lowering>"
)

// FunctionName is the function a method or action of owner becomes.
func FunctionName(owner, member string) string { return owner + "_" + member }

// VtableName is the struct type holding the method pointers of class.
func VtableName(class string) string { return types.VtablePrefix + class }

// VtableInstance is the constant global of type VtableName(class).
func VtableInstance(class string) string { return VtableName(class) + "_instance" }

// InitName is the initializer function of a type.
func InitName(typ string) string { return typ + "__init" }

// ConstructorName is the load-time constructor of a project.
func ConstructorName(project string) string { return "__init___" + sanitize(project) }

// IsInitFunction reports functions synthesised to run initializers. They
// may write constants.
func IsInitFunction(name string) bool {
	return strings.HasSuffix(name, "__init") || strings.HasPrefix(name, "__init___")
}

func sanitize(name string) string {
	if name == "" {
		return "plc"
	}
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

type Options struct {
	// MaxDepth bounds the rounds of generic specialisation; a specialised
	// body may call further generics.
	MaxDepth int
	// Project names the constructor function.
	Project string
}

// Result describes what lowering produced.
type Result struct {
	// Units are the lowered input units followed by Synthetic.
	Units     []*ast.CompilationUnit
	Synthetic *ast.CompilationUnit

	// Constructor is the function to register in the constructor
	// section, "" when nothing needs initialising at load time.
	Constructor   string
	Specialised   []string
	Vtables       []string
	Itables       []string
	InitFunctions []string
}

type lowerer struct {
	idx *index.Index
	m   *resolver.AnnotationMap
	ids ast.IDProvider
	b   ast.Builder
	opt Options

	units []*ast.CompilationUnit
	synth *ast.CompilationUnit
	res   *Result

	pous   map[string]*ast.Pou
	impls  map[string]*ast.Implementation
	scoped map[string][]*ast.UserTypeDeclaration // hoisted types by owner
	vars   map[string]*ast.Variable              // container.name

	dispatch map[string]bool // classes whose hierarchy has methods
	itable   map[string]bool // interface.class pairs with an itable
	needs    map[string]bool
	inits    map[string]bool // init functions already emitted
	declared map[string]bool // synthetic type names already emitted
}

// Lower rewrites units in place. idx and m describe the units as they are
// now; specialisations are added to both.
func Lower(units []*ast.CompilationUnit, idx *index.Index, m *resolver.AnnotationMap, ids ast.IDProvider, opt Options) (*Result, error) {
	if opt.MaxDepth <= 0 {
		opt.MaxDepth = 16
	}
	l := &lowerer{
		idx:      idx,
		m:        m,
		ids:      ids,
		b:        ast.NewBuilder(ids),
		opt:      opt,
		units:    units,
		synth:    &ast.CompilationUnit{File: source.NoFileID, Path: SyntheticPath},
		pous:     map[string]*ast.Pou{},
		impls:    map[string]*ast.Implementation{},
		scoped:   map[string][]*ast.UserTypeDeclaration{},
		vars:     map[string]*ast.Variable{},
		dispatch: map[string]bool{},
		itable:   map[string]bool{},
		needs:    map[string]bool{},
		inits:    map[string]bool{},
		declared: map[string]bool{},
	}
	l.res = &Result{Synthetic: l.synth}
	l.collect(units)

	if err := l.monomorphize(); err != nil {
		return nil, err
	}
	l.retargetCalls()
	l.classes()
	l.interfaces()
	l.bodies()
	l.initializers()
	l.flatten()

	l.res.Units = append(append([]*ast.CompilationUnit(nil), units...), l.synth)
	log.Infof("lowered %d units: %d specialisations, %d vtables, %d itables, %d initializers",
		len(units), len(l.res.Specialised), len(l.res.Vtables), len(l.res.Itables), len(l.res.InitFunctions))
	return l.res, nil
}

func (l *lowerer) collect(units []*ast.CompilationUnit) {
	for _, u := range units {
		l.collectUnit(u)
	}
}

func (l *lowerer) collectUnit(u *ast.CompilationUnit) {
	for _, p := range u.Pous {
		if _, ok := l.pous[types.Key(p.Name)]; !ok {
			l.pous[types.Key(p.Name)] = p
		}
		for _, b := range p.Blocks {
			for _, v := range b.Variables {
				l.vars[memberKey(p.Name, v.Name)] = v
			}
		}
	}
	for _, impl := range u.Implementations {
		if _, ok := l.impls[types.Key(impl.Name)]; !ok {
			l.impls[types.Key(impl.Name)] = impl
		}
	}
	for _, ut := range u.UserTypes {
		if ut.Scope != "" {
			l.scoped[types.Key(ut.Scope)] = append(l.scoped[types.Key(ut.Scope)], ut)
		}
		if st, ok := ut.Type.(*ast.StructType); ok {
			for _, v := range st.Members {
				l.vars[memberKey(st.TypeName(), v.Name)] = v
			}
		}
	}
	for _, b := range u.GlobalBlocks {
		for _, v := range b.Variables {
			l.vars[memberKey("", v.Name)] = v
		}
	}
}

func memberKey(container, name string) string {
	return types.Key(container) + "." + types.Key(name)
}

// takeInitializer detaches the initializer of a declared variable so it
// is evaluated exactly once, by the code lowering generates.
func (l *lowerer) takeInitializer(container, name string, fallback ast.Statement) ast.Statement {
	if v := l.vars[memberKey(container, name)]; v != nil && v.Initializer != nil {
		init := v.Initializer
		v.Initializer = nil
		return init
	}
	return fallback
}

// allUnits is the input followed by the synthetic unit.
func (l *lowerer) allUnits() []*ast.CompilationUnit {
	return append(append([]*ast.CompilationUnit(nil), l.units...), l.synth)
}

// isTemplate reports generic POUs, which are never emitted themselves.
func (l *lowerer) isTemplate(name string) bool {
	p := l.idx.FindPou(name)
	return p != nil && p.IsGeneric()
}

// qualifier strips the last segment of a qualified name.
func qualifier(qualified string) string {
	if i := strings.LastIndexByte(qualified, '.'); i >= 0 {
		return qualified[:i]
	}
	return ""
}

// object returns the FB, class or program whose instance a value of typ is.
func (l *lowerer) object(typ string) *index.PouEntry {
	if typ == "" {
		return nil
	}
	t := l.idx.FindEffectiveTypeInfo(typ)
	if t == nil || t.Origin != types.OriginPou {
		return nil
	}
	p := l.idx.FindPou(t.Name)
	if p == nil || !p.Kind.IsStateful() {
		return nil
	}
	return p
}

// depth is how many `__SUPER` steps lead from an instance of class to the
// part declared by ancestor.
func (l *lowerer) depth(class, ancestor string) (int, bool) {
	if class == "" || ancestor == "" {
		return 0, false
	}
	for i, p := range l.idx.Hierarchy(class) {
		if types.SameName(p.Name, ancestor) {
			return i, true
		}
	}
	return 0, false
}

// root is the topmost ancestor of class.
func (l *lowerer) root(class string) string {
	h := l.idx.Hierarchy(class)
	if len(h) == 0 {
		return class
	}
	return h[len(h)-1].Name
}

// chain appends the `__SUPER` steps from class to ancestor to x.
func (l *lowerer) chain(x ast.Statement, class, ancestor string, sp source.Span) ast.Statement {
	d, _ := l.depth(class, ancestor)
	for i := 0; i < d; i++ {
		x = l.b.Member(x, SuperMember, sp)
	}
	return x
}

// addressOf takes the address of x; `p^` gives p back.
func (l *lowerer) addressOf(x ast.Statement, sp source.Span) ast.Statement {
	if d, ok := x.(*ast.Deref); ok {
		return d.Base
	}
	return l.b.RefOf(x, sp)
}

func (l *lowerer) clone(s ast.Statement) ast.Statement {
	return ast.Cloner{IDs: l.ids}.Statement(s)
}

func (l *lowerer) block(kind ast.VarKind, vars ...*ast.Variable) *ast.VariableBlock {
	return &ast.VariableBlock{ID: l.ids.Next(), Kind: kind, Variables: vars, Span: source.Undefined()}
}

func (l *lowerer) variable(name string, typ ast.DataTypeDeclaration, init ast.Statement) *ast.Variable {
	return &ast.Variable{ID: l.ids.Next(), Name: name, Type: typ, Initializer: init, Span: source.Undefined()}
}

// pointerDecl is an inline `REF_TO inner` declaration.
func pointerDecl(inner string, autoDeref bool) ast.DataTypeDeclaration {
	name := types.PointerName(inner)
	if autoDeref {
		name = types.ReferenceName(inner)
	}
	return &ast.DataTypeDefinition{Type: ast.NewPointer(name, ast.TypeRef(inner, source.Undefined()), autoDeref)}
}

// declareType adds a synthetic user type once.
func (l *lowerer) declareType(dt ast.DataType) {
	k := types.Key(dt.TypeName())
	if l.declared[k] {
		return
	}
	l.declared[k] = true
	l.synth.UserTypes = append(l.synth.UserTypes, &ast.UserTypeDeclaration{ID: l.ids.Next(), Type: dt, Span: source.Undefined()})
}

// function adds a synthetic function without return value.
func (l *lowerer) function(name string, blocks []*ast.VariableBlock, body []ast.Statement) {
	l.synth.Pous = append(l.synth.Pous, &ast.Pou{
		ID:       l.ids.Next(),
		Name:     name,
		Kind:     ast.PouFunction,
		Blocks:   blocks,
		Span:     source.Undefined(),
		NameSpan: source.Undefined(),
	})
	l.synth.Implementations = append(l.synth.Implementations, &ast.Implementation{
		ID:         l.ids.Next(),
		Name:       name,
		TypeName:   name,
		Kind:       ast.PouFunction,
		Statements: body,
	})
}
