package index

import (
	"strings"

	"plcc/internal/ast"
	"plcc/internal/types"
)

const maxHierarchy = 64

// FindGlobal returns a global variable or program instance.
func (idx *Index) FindGlobal(name string) *VariableEntry {
	v, _ := idx.globals.Get(name)
	return v
}

// FindMember looks name up among container's members, walking EXTENDS
// for classes and function blocks.
func (idx *Index) FindMember(container, name string) *VariableEntry {
	for guard := 0; container != "" && guard < maxHierarchy; guard++ {
		if m := idx.members[types.Key(container)]; m != nil {
			if v, ok := m.Get(name); ok {
				return v
			}
		}
		t := idx.FindTypeInfo(container)
		if t == nil || t.Super == "" {
			return nil
		}
		container = t.Super
	}
	return nil
}

// FindLocalMember looks only at container itself.
func (idx *Index) FindLocalMember(container, name string) *VariableEntry {
	if m := idx.members[types.Key(container)]; m != nil {
		v, _ := m.Get(name)
		return v
	}
	return nil
}

// FindVariable resolves a dotted path as seen from scope (a POU name, or ""
// for global context). The first segment is looked up in the local scope,
// then in the enclosing POU (an action's or method's owner) and its base
// classes, then among globals and enumerators. Later segments are members
// of the previous segment's type.
func (idx *Index) FindVariable(scope string, path []string) *VariableEntry {
	if len(path) == 0 {
		return nil
	}
	v := idx.findInScope(scope, path[0])
	rest := path[1:]
	if v == nil && len(path) >= 2 {
		// Color.Red
		if t := idx.FindEffectiveTypeInfo(path[0]); t.IsEnum() {
			v = idx.FindLocalMember(t.Name, path[1])
			rest = path[2:]
		}
	}
	for _, seg := range rest {
		if v == nil {
			return nil
		}
		v = idx.FindMember(idx.memberContainer(v.Type), seg)
	}
	return v
}

func (idx *Index) findInScope(scope, name string) *VariableEntry {
	for guard := 0; scope != "" && guard < maxHierarchy; guard++ {
		if v := idx.FindMember(scope, name); v != nil {
			return v
		}
		p := idx.FindPou(scope)
		if p == nil {
			break
		}
		scope = p.Parent
	}
	if v := idx.FindGlobal(name); v != nil {
		return v
	}
	v, _ := idx.enumGlobals.Get(name)
	return v
}

// memberContainer is the container whose members a value of typeName
// exposes. Auto-deref pointers are looked through.
func (idx *Index) memberContainer(typeName string) string {
	t := idx.FindEffectiveTypeInfo(typeName)
	if t != nil && t.Kind == types.KindPointer && t.AutoDeref {
		t = idx.FindEffectiveTypeInfo(t.Inner)
	}
	if t == nil {
		return ""
	}
	return t.Name
}

// FindEnumElement returns enumerator name of enum.
func (idx *Index) FindEnumElement(enum, name string) *VariableEntry {
	t := idx.FindEffectiveTypeInfo(enum)
	if !t.IsEnum() {
		return nil
	}
	return idx.FindLocalMember(t.Name, name)
}

// FindEnumGlobals returns every enumerator spelled name, across enums.
func (idx *Index) FindEnumGlobals(name string) []*VariableEntry {
	return idx.enumGlobals.GetAll(name)
}

// FindMethod looks method up in class and then in its base classes. For
// an interface the interfaces it extends are searched instead.
func (idx *Index) FindMethod(class, method string) *PouEntry {
	if owner := idx.FindInterface(class); owner != nil {
		for _, i := range idx.InterfaceHierarchy(owner.Name) {
			if p := idx.FindPou(ast.QualifiedName(i.Name, method)); p != nil && p.Kind == ast.PouMethod {
				return p
			}
		}
		return nil
	}
	for guard := 0; class != "" && guard < maxHierarchy; guard++ {
		if p := idx.FindPou(ast.QualifiedName(class, method)); p != nil && p.Kind == ast.PouMethod {
			return p
		}
		owner := idx.FindPou(class)
		if owner == nil {
			return nil
		}
		class = owner.Super
	}
	return nil
}

// FindInterface returns the INTERFACE named name.
func (idx *Index) FindInterface(name string) *PouEntry {
	if p := idx.FindPou(name); p != nil && p.IsInterface() {
		return p
	}
	return nil
}

// InterfaceHierarchy returns iface followed by every interface it extends,
// breadth first, each once.
func (idx *Index) InterfaceHierarchy(iface string) []*PouEntry {
	var out []*PouEntry
	seen := map[string]bool{}
	queue := []string{iface}
	for len(queue) > 0 && len(out) < maxHierarchy {
		name := queue[0]
		queue = queue[1:]
		p := idx.FindInterface(name)
		if p == nil || seen[types.Key(p.Name)] {
			continue
		}
		seen[types.Key(p.Name)] = true
		out = append(out, p)
		queue = append(queue, p.Interfaces...)
	}
	return out
}

// InterfacesOf lists the interfaces class implements, directly, through
// its base classes or through interfaces those extend.
func (idx *Index) InterfacesOf(class string) []*PouEntry {
	var out []*PouEntry
	seen := map[string]bool{}
	for _, p := range idx.Hierarchy(class) {
		for _, name := range p.Interfaces {
			for _, i := range idx.InterfaceHierarchy(name) {
				if !seen[types.Key(i.Name)] {
					seen[types.Key(i.Name)] = true
					out = append(out, i)
				}
			}
		}
	}
	return out
}

// Implements reports whether instances of class may stand for iface.
func (idx *Index) Implements(class, iface string) bool {
	for _, i := range idx.InterfacesOf(class) {
		if types.SameName(i.Name, iface) {
			return true
		}
	}
	return false
}

// InterfaceMethods lists the methods an implementor of iface must provide:
// its own first, then inherited ones not redeclared.
func (idx *Index) InterfaceMethods(iface string) []*PouEntry {
	var out []*PouEntry
	seen := map[string]bool{}
	for _, i := range idx.InterfaceHierarchy(iface) {
		for _, m := range idx.MethodsOf(i.Name) {
			if k := types.Key(m.SimpleName()); !seen[k] {
				seen[k] = true
				out = append(out, m)
			}
		}
	}
	return out
}

// FindAction returns action of owner.
func (idx *Index) FindAction(owner, action string) *PouEntry {
	if p := idx.FindPou(ast.QualifiedName(owner, action)); p != nil && p.Kind == ast.PouAction {
		return p
	}
	return nil
}

// MethodsOf returns the methods declared directly on class, in order.
func (idx *Index) MethodsOf(class string) []*PouEntry {
	var out []*PouEntry
	for _, p := range idx.pous.Values() {
		if p.Kind == ast.PouMethod && types.SameName(p.Parent, class) {
			out = append(out, p)
		}
	}
	return out
}

// Hierarchy returns class followed by its ancestors, nearest first.
func (idx *Index) Hierarchy(class string) []*PouEntry {
	var out []*PouEntry
	seen := map[string]bool{}
	for p := idx.FindPou(class); p != nil && !seen[types.Key(p.Name)]; p = idx.FindPou(p.Super) {
		seen[types.Key(p.Name)] = true
		out = append(out, p)
		if p.Super == "" {
			break
		}
	}
	return out
}

// IsSubclassOf reports whether derived is base or inherits from it.
func (idx *Index) IsSubclassOf(derived, base string) bool {
	for _, p := range idx.Hierarchy(derived) {
		if types.SameName(p.Name, base) {
			return true
		}
	}
	return false
}

// Parameters returns the declared parameters of a POU in declaration order.
func (idx *Index) Parameters(pou string) []*VariableEntry {
	var out []*VariableEntry
	for _, v := range idx.Members(pou).Values() {
		if v.IsParameter() {
			out = append(out, v)
		}
	}
	return out
}

// InputParameters are the parameters a positional call binds: VAR_INPUT
// and VAR_IN_OUT, in declaration order.
func (idx *Index) InputParameters(pou string) []*VariableEntry {
	var out []*VariableEntry
	for _, v := range idx.Parameters(pou) {
		if v.Kind != ast.VarOutput {
			out = append(out, v)
		}
	}
	return out
}

// ReturnVariable returns the implicit return slot of a function or method.
func (idx *Index) ReturnVariable(pou string) *VariableEntry {
	for _, v := range idx.Members(pou).Values() {
		if v.IsReturn() {
			return v
		}
	}
	return nil
}

// ReturnType is the declared return type of pou, or nil for VOID.
func (idx *Index) ReturnType(pou string) *types.Info {
	p := idx.FindPou(pou)
	if p == nil || p.ReturnType == "" {
		return nil
	}
	return idx.FindEffectiveTypeInfo(p.ReturnType)
}

// ProgramInstances lists the global instances of every PROGRAM.
func (idx *Index) ProgramInstances() []*VariableEntry {
	var out []*VariableEntry
	for _, v := range idx.globals.Values() {
		if v.Role == RoleProgramGlobal {
			out = append(out, v)
		}
	}
	return out
}

// FindCallable resolves the operator name of a call seen from scope: a POU,
// a method or action reachable from scope, or an FB instance variable.
// The returned variable is non-nil when the call goes through an instance.
func (idx *Index) FindCallable(scope string, path []string) (*PouEntry, *VariableEntry) {
	if len(path) == 1 {
		for s, guard := scope, 0; s != "" && guard < maxHierarchy; guard++ {
			if p := idx.FindMethod(s, path[0]); p != nil {
				return p, nil
			}
			if p := idx.FindAction(s, path[0]); p != nil {
				return p, nil
			}
			owner := idx.FindPou(s)
			if owner == nil {
				break
			}
			s = owner.Parent
		}
		if v := idx.findInScope(scope, path[0]); v != nil {
			if p := idx.FindPou(idx.memberContainer(v.Type)); p != nil {
				return p, v
			}
			return nil, v
		}
		return idx.FindPou(path[0]), nil
	}
	// prg.action, fb.method, inst.method
	if p := idx.FindPou(ast.QualifiedName(path[0], path[1])); p != nil && len(path) == 2 {
		return p, nil
	}
	v := idx.FindVariable(scope, path[:len(path)-1])
	if v == nil {
		return nil, nil
	}
	owner := idx.memberContainer(v.Type)
	last := path[len(path)-1]
	if p := idx.FindMethod(owner, last); p != nil {
		return p, v
	}
	if p := idx.FindAction(owner, last); p != nil {
		return p, v
	}
	if inner := idx.FindMember(owner, last); inner != nil {
		return idx.FindPou(idx.memberContainer(inner.Type)), inner
	}
	return nil, nil
}

// Overloads returns the explicit specialisations `name__<TYPE>` of name.
// Every mangled part must name an elementary type, so `main__init` is not
// an overload of main. Copies materialised by lowering are not overloads.
func (idx *Index) Overloads(name string) []*PouEntry {
	prefix := types.Key(name) + "__"
	var out []*PouEntry
	for _, k := range idx.pous.Keys() {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok || strings.Contains(rest, ".") || !elementaryParts(rest) {
			continue
		}
		p, _ := idx.pous.Get(k)
		if p.Specialises != "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func elementaryParts(mangled string) bool {
	for _, part := range strings.Split(mangled, "__") {
		if !types.IsElementaryName(part) {
			return false
		}
	}
	return true
}

// IsOverridden reports whether a class derived from class redefines method.
func (idx *Index) IsOverridden(class, method string) bool {
	for _, p := range idx.pous.Values() {
		if p.Kind != ast.PouMethod || types.SameName(p.Parent, class) {
			continue
		}
		if types.SameName(p.SimpleName(), method) && idx.IsSubclassOf(p.Parent, class) {
			return true
		}
	}
	return false
}
