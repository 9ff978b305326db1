// Package preproc rewrites a freshly parsed unit into the shape the indexer
// expects: inline types hoisted to named user types, generic parameters
// bound to placeholder types, VAR_IN_OUT turned into auto-deref pointers and
// every variable given an initializer. Running it twice changes nothing.
package preproc

import (
	"plcc/internal/ast"
	"plcc/internal/index"
	"plcc/internal/source"
	"plcc/internal/types"
)

// Run pre-processes unit in place. ids numbers the synthesised nodes.
func Run(unit *ast.CompilationUnit, ids ast.IDProvider) {
	p := &processor{unit: unit, b: ast.NewBuilder(ids), declared: map[string]*ast.UserTypeDeclaration{}}
	for _, ut := range unit.UserTypes {
		p.declare(ut)
	}

	for _, pou := range unit.Pous {
		p.generics(pou)
		for _, blk := range pou.Blocks {
			for _, v := range blk.Variables {
				p.hoistVariable(pou.Name, v, pou.Name)
				if blk.Kind == ast.VarInOut {
					p.byReference(v)
				}
			}
		}
		if pou.ReturnType != nil {
			pou.ReturnType = p.hoist(pou.ReturnType, index.InlineTypeName(pou.Name, "return"), pou.Name)
		}
	}
	for _, blk := range unit.GlobalBlocks {
		for _, v := range blk.Variables {
			p.hoistVariable("global", v, "")
		}
	}
	// hoisting appends to UserTypes; new entries are visited as the loop grows
	for i := 0; i < len(unit.UserTypes); i++ {
		p.userType(unit.UserTypes[i])
	}

	for _, ut := range unit.UserTypes {
		if st, ok := ut.Type.(*ast.StructType); ok {
			for _, m := range st.Members {
				p.defaultInit(m)
			}
		}
	}
	for _, blk := range unit.GlobalBlocks {
		if blk.Linkage == ast.LinkExternal {
			continue
		}
		for _, v := range blk.Variables {
			p.defaultInit(v)
		}
	}
	for _, pou := range unit.Pous {
		if pou.Linkage == ast.LinkExternal {
			continue
		}
		for _, blk := range pou.Blocks {
			if blk.Kind == ast.VarInOut || blk.Kind == ast.VarExternal {
				continue
			}
			for _, v := range blk.Variables {
				p.defaultInit(v)
			}
		}
	}
}

type processor struct {
	unit     *ast.CompilationUnit
	b        ast.Builder
	declared map[string]*ast.UserTypeDeclaration
}

func (p *processor) declare(ut *ast.UserTypeDeclaration) {
	if name := ut.Type.TypeName(); name != "" {
		if _, ok := p.declared[types.Key(name)]; !ok {
			p.declared[types.Key(name)] = ut
		}
	}
}

func (p *processor) addType(dt ast.DataType, sp source.Span, scope string) {
	ut := &ast.UserTypeDeclaration{ID: p.b.IDs.Next(), Type: dt, Span: sp, Scope: scope}
	p.unit.UserTypes = append(p.unit.UserTypes, ut)
	p.declare(ut)
}

// generics adds the placeholder type `__<pou>__<T>` for every type
// parameter and points the declarations at it.
func (p *processor) generics(pou *ast.Pou) {
	if len(pou.Generics) == 0 {
		return
	}
	rename := map[string]string{}
	for _, g := range pou.Generics {
		name := index.GenericTypeName(pou.Name, g.Name)
		rename[types.Key(g.Name)] = name
		if _, ok := p.declared[types.Key(name)]; !ok {
			p.addType(ast.NewGeneric(name, g.Nature), pou.NameSpan, pou.Name)
		}
	}
	for _, blk := range pou.Blocks {
		for _, v := range blk.Variables {
			renameGeneric(v.Type, rename)
		}
	}
	renameGeneric(pou.ReturnType, rename)
}

func renameGeneric(decl ast.DataTypeDeclaration, rename map[string]string) {
	switch d := decl.(type) {
	case *ast.DataTypeReference:
		if n, ok := rename[types.Key(d.Name)]; ok {
			d.Name = n
		}
	case *ast.DataTypeDefinition:
		switch t := d.Type.(type) {
		case *ast.ArrayType:
			renameGeneric(t.Inner, rename)
		case *ast.VarLengthArrayType:
			renameGeneric(t.Inner, rename)
		case *ast.PointerType:
			renameGeneric(t.Inner, rename)
		}
	}
}

func (p *processor) hoistVariable(owner string, v *ast.Variable, scope string) {
	v.Type = p.hoist(v.Type, index.InlineTypeName(owner, v.Name), scope)
}

// hoist replaces an anonymous inline definition with a reference to a new
// user type called name. Auto-deref pointers stay inline; the indexer
// shares them by name.
func (p *processor) hoist(decl ast.DataTypeDeclaration, name, scope string) ast.DataTypeDeclaration {
	d, ok := decl.(*ast.DataTypeDefinition)
	if !ok || d.Type == nil {
		return decl
	}
	if ptr, ok := d.Type.(*ast.PointerType); ok && ptr.AutoDeref {
		ptr.Inner = p.hoist(ptr.Inner, name, scope)
		return decl
	}
	if d.Type.TypeName() == "" {
		d.Type.SetTypeName(name)
	}
	p.addType(d.Type, d.Span, scope)
	return ast.TypeRef(d.Type.TypeName(), d.Span)
}

// userType hoists the inline parts of a user type: struct members become
// `__<struct>_<member>`, array and pointer targets `<name>_`.
func (p *processor) userType(ut *ast.UserTypeDeclaration) {
	name := ut.Type.TypeName()
	switch t := ut.Type.(type) {
	case *ast.StructType:
		for _, m := range t.Members {
			p.hoistVariable(name, m, ut.Scope)
		}
	case *ast.ArrayType:
		t.Inner = p.hoist(t.Inner, nestedName(name), ut.Scope)
	case *ast.VarLengthArrayType:
		t.Inner = p.hoist(t.Inner, nestedName(name), ut.Scope)
	case *ast.PointerType:
		t.Inner = p.hoist(t.Inner, nestedName(name), ut.Scope)
	}
}

func nestedName(name string) string {
	if len(name) > 2 && name[:2] == "__" {
		return name + "_"
	}
	return "__" + name
}

// byReference turns `VAR_IN_OUT x : T` into an auto-deref pointer to T.
func (p *processor) byReference(v *ast.Variable) {
	if d, ok := v.Type.(*ast.DataTypeDefinition); ok {
		if ptr, ok := d.Type.(*ast.PointerType); ok && ptr.AutoDeref {
			return
		}
	}
	inner := ast.TypeNameOf(v.Type)
	if inner == "" {
		return
	}
	sp := v.Type.GetSpan()
	v.Type = &ast.DataTypeDefinition{
		Type: ast.NewPointer(types.ReferenceName(inner), ast.TypeRef(inner, sp), true),
		Span: sp,
	}
}
