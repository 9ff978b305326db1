// Package index is the global symbol table: data types, POUs, variables and
// implementations of a whole project, plus the lookups every later phase
// resolves names with.
package index

import (
	"sort"

	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/types"
)

// Index is append-mostly: entries are never removed, and lowering only adds
// fresh synthetic names. All keys are folded with types.Key.
type Index struct {
	types       *SymbolMap[*TypeEntry]
	pouTypes    *SymbolMap[*TypeEntry] // implicit instance structs
	pous        *SymbolMap[*PouEntry]
	globals     *SymbolMap[*VariableEntry]
	enumGlobals *SymbolMap[*VariableEntry] // enumerators by bare name
	members     map[string]*SymbolMap[*VariableEntry]
	impls       *SymbolMap[*ImplementationEntry]

	typeRefs []TypeRef
	refSeen  map[TypeRef]bool
	pending  []pendingConst
	diags    []diag.Diagnostic
}

// New returns an index seeded with the elementary types.
func New() *Index {
	idx := &Index{
		types:       NewSymbolMap[*TypeEntry](),
		pouTypes:    NewSymbolMap[*TypeEntry](),
		pous:        NewSymbolMap[*PouEntry](),
		globals:     NewSymbolMap[*VariableEntry](),
		enumGlobals: NewSymbolMap[*VariableEntry](),
		members:     make(map[string]*SymbolMap[*VariableEntry]),
		impls:       NewSymbolMap[*ImplementationEntry](),
		refSeen:     make(map[TypeRef]bool),
	}
	for _, info := range types.Builtins() {
		idx.types.Insert(info.Name, &TypeEntry{Info: info, Builtin: true})
	}
	return idx
}

// Build indexes units in order and runs the constant fixpoint.
func Build(units ...*ast.CompilationUnit) (*Index, []diag.Diagnostic) {
	idx := New()
	for _, u := range units {
		idx.Visit(u)
	}
	return idx, idx.Resolve()
}

// RegisterType adds a data type. Registering the same declaration twice is
// a no-op; a different declaration under the same name is kept as a
// duplicate for the validator. A placeholder for the name is filled in place.
func (idx *Index) RegisterType(e *TypeEntry) bool {
	return registerType(idx.types, e)
}

// RegisterPouType adds the implicit instance struct of a POU.
func (idx *Index) RegisterPouType(e *TypeEntry) bool {
	return registerType(idx.pouTypes, e)
}

func registerType(m *SymbolMap[*TypeEntry], e *TypeEntry) bool {
	for _, old := range m.GetAll(e.Name()) {
		if old.Info.Kind == types.KindPlaceholder && sameOrigin(old.Span, e.Span) {
			*old = *e
			return true
		}
	}
	return m.InsertUnique(e.Name(), e, func(a, b *TypeEntry) bool {
		return a == b || sameOrigin(a.Span, b.Span)
	})
}

// reserve registers a placeholder so forward references find the name.
func (idx *Index) reserve(m *SymbolMap[*TypeEntry], e *TypeEntry) *TypeEntry {
	for _, old := range m.GetAll(e.Name()) {
		if sameOrigin(old.Span, e.Span) {
			return old
		}
	}
	m.Insert(e.Name(), e)
	return e
}

func (idx *Index) RegisterPou(p *PouEntry) bool {
	return idx.pous.InsertUnique(p.Name, p, func(a, b *PouEntry) bool {
		return a == b || sameOrigin(a.Span, b.Span)
	})
}

func (idx *Index) RegisterImplementation(e *ImplementationEntry) bool {
	return idx.impls.InsertUnique(e.Name, e, func(a, b *ImplementationEntry) bool {
		return a == b || sameOrigin(a.Span, b.Span)
	})
}

func sameVariable(a, b *VariableEntry) bool {
	return a == b || sameOrigin(a.Span, b.Span)
}

// RegisterGlobal adds a global variable (or program instance).
func (idx *Index) RegisterGlobal(v *VariableEntry) bool {
	return idx.globals.InsertUnique(v.Name, v, sameVariable)
}

// RegisterMember adds v to container, assigning its position.
func (idx *Index) RegisterMember(container string, v *VariableEntry) bool {
	k := types.Key(container)
	m := idx.members[k]
	if m == nil {
		m = NewSymbolMap[*VariableEntry]()
		idx.members[k] = m
	}
	v.Container = container
	if v.Qualified == "" {
		v.Qualified = ast.QualifiedName(container, v.Name)
	}
	for _, old := range m.GetAll(v.Name) {
		if sameVariable(old, v) {
			return false
		}
	}
	v.Location = len(m.AllValues())
	m.Insert(v.Name, v)
	return true
}

// RegisterEnumValue adds an enumerator both under its enum and by bare name.
func (idx *Index) RegisterEnumValue(enum string, v *VariableEntry) bool {
	v.Role = RoleEnumValue
	v.Constant = true
	if !idx.RegisterMember(enum, v) {
		return false
	}
	idx.enumGlobals.Insert(v.Name, v)
	return true
}

func (idx *Index) addTypeRef(r TypeRef) {
	if !idx.refSeen[r] {
		idx.refSeen[r] = true
		idx.typeRefs = append(idx.typeRefs, r)
	}
}

// FindType returns a user or elementary type, then a POU instance struct.
func (idx *Index) FindType(name string) *TypeEntry {
	if e, ok := idx.types.Get(name); ok {
		return e
	}
	if e, ok := idx.pouTypes.Get(name); ok {
		return e
	}
	return nil
}

// FindTypeInfo is FindType without the entry wrapper.
func (idx *Index) FindTypeInfo(name string) *types.Info {
	if e := idx.FindType(name); e != nil {
		return e.Info
	}
	return nil
}

// FindPouType returns the instance struct of a POU.
func (idx *Index) FindPouType(name string) *TypeEntry {
	e, _ := idx.pouTypes.Get(name)
	return e
}

// FindEffectiveType follows aliases to the underlying entry.
func (idx *Index) FindEffectiveType(name string) *TypeEntry {
	e := idx.FindType(name)
	for guard := 0; e != nil && e.Info.Kind == types.KindAlias && guard < 64; guard++ {
		e = idx.FindType(e.Info.Inner)
	}
	if e != nil && e.Info.Kind == types.KindAlias {
		return nil
	}
	return e
}

// FindEffectiveTypeInfo follows aliases and returns the descriptor.
func (idx *Index) FindEffectiveTypeInfo(name string) *types.Info {
	if e := idx.FindEffectiveType(name); e != nil {
		return e.Info
	}
	return nil
}

// EffectiveTypeOrVoid never returns nil.
func (idx *Index) EffectiveTypeOrVoid(name string) *types.Info {
	if t := idx.FindEffectiveTypeInfo(name); t != nil {
		return t
	}
	return idx.FindTypeInfo(types.VOID)
}

// Lookup adapts the index to the types package.
func (idx *Index) Lookup() types.Lookup { return idx.FindEffectiveTypeInfo }

// Layout sizes types registered in this index.
func (idx *Index) Layout() types.Layout { return types.Layout{Find: idx.FindEffectiveTypeInfo} }

// FindPou returns the POU called name.
func (idx *Index) FindPou(name string) *PouEntry {
	p, _ := idx.pous.Get(name)
	return p
}

func (idx *Index) FindImplementation(name string) *ImplementationEntry {
	e, _ := idx.impls.Get(name)
	return e
}

// InitialValueOfType returns the initializer declared on a type, following aliases.
func (idx *Index) InitialValueOfType(name string) ast.Statement {
	e := idx.FindType(name)
	for guard := 0; e != nil && guard < 64; guard++ {
		if e.Initial != nil {
			return e.Initial
		}
		if e.Info.Kind != types.KindAlias {
			return nil
		}
		e = idx.FindType(e.Info.Inner)
	}
	return nil
}

// Types lists user and elementary types in registration order.
func (idx *Index) Types() *SymbolMap[*TypeEntry] { return idx.types }

// PouTypes lists instance structs in registration order.
func (idx *Index) PouTypes() *SymbolMap[*TypeEntry] { return idx.pouTypes }

func (idx *Index) Pous() *SymbolMap[*PouEntry]                       { return idx.pous }
func (idx *Index) Globals() *SymbolMap[*VariableEntry]               { return idx.globals }
func (idx *Index) Implementations() *SymbolMap[*ImplementationEntry] { return idx.impls }
func (idx *Index) TypeRefs() []TypeRef                               { return idx.typeRefs }

// Members returns the members of container in declaration order, or nil.
func (idx *Index) Members(container string) *SymbolMap[*VariableEntry] {
	return idx.members[types.Key(container)]
}

// Containers lists every container key that owns members, sorted.
func (idx *Index) Containers() []string {
	out := make([]string, 0, len(idx.members))
	for k := range idx.members {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
