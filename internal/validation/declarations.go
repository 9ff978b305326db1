package validation

import (
	"strings"

	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/index"
	"plcc/internal/source"
	"plcc/internal/types"
)

// declarations checks the project as written: duplicate names, recursive
// value types, and the rules of inheritance, interfaces and properties.
func (v *validator) declarations() {
	v.duplicates()
	v.recursion()
	v.inheritance()
}

func (v *validator) duplicates() {
	d := v.decl
	userTypes := d.Types()
	for _, k := range keys(userTypes) {
		var spans []source.Span
		for _, e := range userTypes.GetAll(k) {
			spans = append(spans, e.Span)
		}
		v.duplicate(userTypes.GetAll(k)[0].Name(), spans)
	}
	pous := d.Pous()
	for _, k := range keys(pous) {
		if pous.GetAll(k)[0].Property != "" {
			// a second GET or SET, reported with the property
			continue
		}
		var spans []source.Span
		for _, p := range pous.GetAll(k) {
			spans = append(spans, p.Span)
		}
		v.duplicate(pous.GetAll(k)[0].Name, spans)
	}
	v.variables(d.Globals())
	for _, c := range d.Containers() {
		v.variables(d.Members(c))
	}

	// a POU name shadowing a user type
	for _, p := range pous.Values() {
		if p.IsMethod() || p.Kind == ast.PouAction {
			continue
		}
		t, ok := userTypes.Get(p.Name)
		if !ok || t.Builtin || p.Span.IsUndefined() {
			continue
		}
		dup := diag.Of(diag.DuplicateSymbol, p.Span, p.Name+" is declared more than once")
		if !t.Span.IsUndefined() {
			dup = dup.WithNote(t.Span, "also declared here as a type")
		}
		v.diags = append(v.diags, dup)
	}
}

func keys[T any](m *index.SymbolMap[T]) []string {
	if m == nil {
		return nil
	}
	return m.Duplicates()
}

func (v *validator) variables(m *index.SymbolMap[*index.VariableEntry]) {
	for _, k := range keys(m) {
		all := m.GetAll(k)
		spans := make([]source.Span, 0, len(all))
		for _, e := range all {
			spans = append(spans, e.Span)
		}
		name := all[0].Name
		if all[0].Container != "" {
			name = all[0].Container + "." + name
		}
		v.duplicate(name, spans)
	}
}

// duplicate reports every written declaration of name, each pointing at
// another one.
func (v *validator) duplicate(name string, spans []source.Span) {
	var defined []source.Span
	for _, sp := range spans {
		if !sp.IsUndefined() {
			defined = append(defined, sp)
		}
	}
	if len(defined) < 2 {
		return
	}
	for i, sp := range defined {
		other := defined[(i+1)%len(defined)]
		v.diags = append(v.diags, diag.Of(diag.DuplicateSymbol, sp, name+" is declared more than once").
			WithNote(other, "also declared here"))
	}
}

// node of the value-containment graph.
type node struct {
	name  string
	span  source.Span
	order int
}

// recursion finds struct and instance types that contain themselves by
// value. Pointers break a cycle.
func (v *validator) recursion() {
	d := v.decl
	var nodes []node
	for _, e := range d.Types().Values() {
		if !e.Builtin && e.Info.Kind == types.KindStruct && e.Info.Origin == types.OriginPlain {
			nodes = append(nodes, node{name: e.Info.Name, span: e.Span, order: len(nodes)})
		}
	}
	for _, e := range d.PouTypes().Values() {
		if p := d.FindPou(e.Info.Name); p != nil && p.Kind.IsStateful() {
			nodes = append(nodes, node{name: e.Info.Name, span: p.Span, order: len(nodes)})
		}
	}
	byKey := make(map[string]node, len(nodes))
	for _, n := range nodes {
		byKey[types.Key(n.name)] = n
	}

	const (
		white = iota
		grey
		black
	)
	color := map[string]int{}
	reported := map[string]bool{}
	var stack []node
	var visit func(n node)
	visit = func(n node) {
		k := types.Key(n.name)
		color[k] = grey
		stack = append(stack, n)
		for _, next := range v.contained(n.name) {
			nk := types.Key(next)
			to, ok := byKey[nk]
			if !ok {
				continue
			}
			switch color[nk] {
			case white:
				visit(to)
			case grey:
				v.cycle(stack, nk, reported)
			}
		}
		stack = stack[:len(stack)-1]
		color[k] = black
	}
	for _, n := range nodes {
		if color[types.Key(n.name)] == white {
			visit(n)
		}
	}
}

// contained lists the struct types a value of typ holds inline.
func (v *validator) contained(typ string) []string {
	d := v.decl
	t := d.FindEffectiveTypeInfo(typ)
	if t == nil {
		return nil
	}
	var out []string
	if t.Super != "" {
		out = append(out, t.Super)
	}
	for _, f := range t.Fields {
		switch f.Kind {
		case ast.VarTemp, ast.VarInOut, ast.VarExternal:
			continue
		}
		ft := d.FindEffectiveTypeInfo(f.Type)
		for guard := 0; ft != nil && ft.IsArray() && guard < 32; guard++ {
			ft = d.FindEffectiveTypeInfo(ft.Inner)
		}
		if ft != nil && ft.Kind == types.KindStruct {
			out = append(out, ft.Name)
		}
	}
	return out
}

// cycle reports the part of stack from key on, rotated to start at its
// earliest declaration so every cycle is reported once.
func (v *validator) cycle(stack []node, key string, reported map[string]bool) {
	start := len(stack) - 1
	for start >= 0 && types.Key(stack[start].name) != key {
		start--
	}
	if start < 0 {
		return
	}
	loop := stack[start:]
	first := 0
	for i, n := range loop {
		if n.order < loop[first].order {
			first = i
		}
	}
	names := make([]string, 0, len(loop)+1)
	for i := range loop {
		names = append(names, loop[(first+i)%len(loop)].name)
	}
	names = append(names, names[0])
	id := types.Key(strings.Join(names, ","))
	if reported[id] {
		return
	}
	reported[id] = true
	v.diags = append(v.diags, diag.Of(diag.RecursiveDataStructure, loop[first].span,
		"recursive data structure "+strings.Join(names, " -> ")))
}

func (v *validator) inheritance() {
	d := v.decl
	for _, p := range d.Pous().Values() {
		switch p.Kind {
		case ast.PouMethod:
			v.override(p)
			if p.Property != "" {
				v.accessor(p)
			}
		case ast.PouFunctionBlock, ast.PouClass:
			v.extends(p)
		case ast.PouInterface:
			v.interfaceDecl(p)
		}
		if p.Kind != ast.PouInterface {
			v.implements(p)
		}
		if p.Kind != ast.PouClass {
			continue
		}
		for _, m := range d.Members(p.Name).Values() {
			if m.IsParameter() {
				v.report(diag.InvalidVarBlock, m.Span, nil, "CLASS %s cannot declare %s %s", p.Name, m.Kind, m.Name)
			}
		}
	}
}

func (v *validator) extends(p *index.PouEntry) {
	if p.Super == "" {
		return
	}
	base := v.decl.FindPou(p.Super)
	if base == nil {
		if v.decl.FindType(p.Super) != nil {
			v.report(diag.InvalidPouMember, p.Span, nil, "%s cannot extend %s, which is not a FUNCTION_BLOCK or CLASS", p.Name, p.Super)
		}
		return
	}
	switch {
	case base.Kind != ast.PouFunctionBlock && base.Kind != ast.PouClass:
		v.report(diag.InvalidPouMember, p.Span, nil, "%s cannot extend %s %s", p.Name, base.Kind, base.Name)
	case base.Final:
		v.report(diag.InvalidPouMember, p.Span, nil, "%s cannot extend FINAL %s", p.Name, base.Name)
	}
}

func (v *validator) override(m *index.PouEntry) {
	owner := v.decl.FindPou(m.Parent)
	if owner == nil {
		return
	}
	var base *index.PouEntry
	if owner.Super != "" {
		base = v.decl.FindMethod(owner.Super, m.SimpleName())
	}
	switch {
	case base == nil && m.Overriding:
		v.report(diag.InvalidPouMember, m.Span, nil, "%s is declared OVERRIDE but %s has no base method %s", m.Name, owner.Name, m.SimpleName())
	case base == nil:
	case base.Final:
		v.report(diag.InvalidPouMember, m.Span, nil, "%s overrides FINAL method %s", m.Name, base.Name)
	case !m.Overriding:
		v.report(diag.MissingOverride, m.Span, nil, "%s shadows %s without OVERRIDE", m.Name, base.Name)
	}
}
