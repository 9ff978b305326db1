package resolver

import (
	"plcc/internal/ast"
	"plcc/internal/index"
	"plcc/internal/types"
)

// Binding is one resolved type parameter of a generic call.
type Binding struct {
	Name   string // T
	Type   string // "" when nothing bound it
	Nature types.Nature
}

// Instantiation is a generic POU specialised for concrete bindings.
type Instantiation struct {
	Generic  string
	Name     string // foo__DINT, "" while a parameter is unbound
	Bindings []Binding
}

// AnnotationMap is the side table the annotator fills. Nodes are keyed by
// id; a node without an entry is unannotated.
type AnnotationMap struct {
	annotations map[ast.ID]Annotation

	// hints map an expression to the type it is converted to where it is
	// used: `x : BYTE := a` hints `a` with BYTE.
	hints map[ast.ID]string

	// generic calls, keyed by the call statement
	generics  map[ast.ID]*Instantiation
	instances []*Instantiation
	seen      map[string]bool

	// calls that matched several overloads equally well
	ambiguous map[ast.ID][]string

	// types the annotator had to create (REF() targets, sized string
	// literals); they are registered in the index by Commit
	newTypes []*types.Info
	newSeen  map[string]bool
}

func NewAnnotationMap() *AnnotationMap {
	return &AnnotationMap{
		annotations: make(map[ast.ID]Annotation),
		hints:       make(map[ast.ID]string),
		generics:    make(map[ast.ID]*Instantiation),
		seen:        make(map[string]bool),
		ambiguous:   make(map[ast.ID][]string),
		newSeen:     make(map[string]bool),
	}
}

func (m *AnnotationMap) Annotate(n ast.Node, a Annotation) {
	m.annotations[n.GetID()] = a
}

func (m *AnnotationMap) AnnotateHint(n ast.Node, typeName string) {
	if typeName == "" {
		return
	}
	m.hints[n.GetID()] = typeName
}

// Get returns the annotation of n.
func (m *AnnotationMap) Get(n ast.Node) (Annotation, bool) {
	if n == nil {
		return Annotation{}, false
	}
	a, ok := m.annotations[n.GetID()]
	return a, ok
}

func (m *AnnotationMap) GetByID(id ast.ID) (Annotation, bool) {
	a, ok := m.annotations[id]
	return a, ok
}

// Has reports whether n is annotated.
func (m *AnnotationMap) Has(n ast.Node) bool {
	_, ok := m.Get(n)
	return ok
}

// TypeOf is the resulting type name of n ("" when unannotated).
func (m *AnnotationMap) TypeOf(n ast.Node) string {
	a, _ := m.Get(n)
	return a.Type
}

// Hint is the type n is converted to where it is used, if any.
func (m *AnnotationMap) Hint(n ast.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	h, ok := m.hints[n.GetID()]
	return h, ok
}

// HintOrType prefers the hint.
func (m *AnnotationMap) HintOrType(n ast.Node) string {
	if h, ok := m.Hint(n); ok {
		return h
	}
	return m.TypeOf(n)
}

// TypeInfo resolves the annotated type of n in idx.
func (m *AnnotationMap) TypeInfo(n ast.Node, idx *index.Index) *types.Info {
	if t := m.TypeOf(n); t != "" {
		return idx.FindEffectiveTypeInfo(t)
	}
	return nil
}

// HintInfo resolves the hint of n in idx.
func (m *AnnotationMap) HintInfo(n ast.Node, idx *index.Index) *types.Info {
	if h, ok := m.Hint(n); ok {
		return idx.FindEffectiveTypeInfo(h)
	}
	return nil
}

// Len is the number of annotated nodes.
func (m *AnnotationMap) Len() int { return len(m.annotations) }

// RecordInstantiation ties a generic call to its specialisation.
func (m *AnnotationMap) RecordInstantiation(call ast.Node, inst *Instantiation) {
	m.generics[call.GetID()] = inst
	if inst.Name != "" && !m.seen[types.Key(inst.Name)] {
		m.seen[types.Key(inst.Name)] = true
		m.instances = append(m.instances, inst)
	}
}

// InstantiationOf returns the specialisation a generic call resolved to.
func (m *AnnotationMap) InstantiationOf(call ast.Node) (*Instantiation, bool) {
	inst, ok := m.generics[call.GetID()]
	return inst, ok
}

// Instantiations lists distinct fully bound specialisations in the order
// first seen.
func (m *AnnotationMap) Instantiations() []*Instantiation { return m.instances }

func (m *AnnotationMap) recordAmbiguous(call ast.Node, candidates []string) {
	m.ambiguous[call.GetID()] = candidates
}

// Ambiguous returns the equally good overloads of an ambiguous call.
func (m *AnnotationMap) Ambiguous(call ast.Node) ([]string, bool) {
	c, ok := m.ambiguous[call.GetID()]
	return c, ok
}

func (m *AnnotationMap) addType(t *types.Info) {
	if m.newSeen[types.Key(t.Name)] {
		return
	}
	m.newSeen[types.Key(t.Name)] = true
	m.newTypes = append(m.newTypes, t)
}

func (m *AnnotationMap) findNew(name string) *types.Info {
	if !m.newSeen[types.Key(name)] {
		return nil
	}
	for _, t := range m.newTypes {
		if types.SameName(t.Name, name) {
			return t
		}
	}
	return nil
}

// NewTypes lists the types created while annotating.
func (m *AnnotationMap) NewTypes() []*types.Info { return m.newTypes }

// Import merges other into m. Maps from different files never share ids.
func (m *AnnotationMap) Import(other *AnnotationMap) {
	for id, a := range other.annotations {
		m.annotations[id] = a
	}
	for id, h := range other.hints {
		m.hints[id] = h
	}
	for id, inst := range other.generics {
		m.generics[id] = inst
	}
	for _, inst := range other.instances {
		if !m.seen[types.Key(inst.Name)] {
			m.seen[types.Key(inst.Name)] = true
			m.instances = append(m.instances, inst)
		}
	}
	for id, c := range other.ambiguous {
		m.ambiguous[id] = c
	}
	for _, t := range other.newTypes {
		m.addType(t)
	}
}

// Commit registers the created types in idx. Types already present are
// left alone.
func (m *AnnotationMap) Commit(idx *index.Index) {
	for _, t := range m.newTypes {
		if idx.FindType(t.Name) != nil {
			continue
		}
		idx.RegisterType(&index.TypeEntry{Info: t})
	}
}
