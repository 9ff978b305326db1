package index

import (
	"fmt"
	"strings"

	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/source"
	"plcc/internal/types"
)

// GenericTypeName is the internal name of type parameter t of pou.
func GenericTypeName(pou, t string) string {
	return "__" + pou + "__" + t
}

// InlineTypeName names an anonymous type declared on member field of owner.
func InlineTypeName(owner, field string) string {
	return "__" + owner + "_" + field
}

// shared reports synthetic names that many declarations may define
// identically; only the first definition is kept.
func shared(name string) bool {
	return strings.HasPrefix(name, "__POINTER_TO_") || strings.HasPrefix(name, "__AUTO_DEREF__")
}

// Visit registers everything unit declares: user types first, then global
// variables, then POUs with their members. Bounds that cannot be folded
// yet are queued for Resolve.
func (idx *Index) Visit(unit *ast.CompilationUnit) {
	v := &visitor{idx: idx}
	for _, ut := range unit.UserTypes {
		if name := ut.Type.TypeName(); name != "" {
			idx.reserve(idx.types, &TypeEntry{
				Info:  &types.Info{Kind: types.KindPlaceholder, Name: name},
				Span:  ut.Span,
				Scope: ut.Scope,
			})
		}
	}
	for _, ut := range unit.UserTypes {
		v.scope = ut.Scope
		v.dataType(ut.Type, ut.Type.TypeName(), ut.Span, ut.Initializer)
	}
	v.scope = ""
	for _, b := range unit.GlobalBlocks {
		v.globalBlock(b)
	}
	for _, p := range unit.Pous {
		v.pou(p)
	}
	for _, impl := range unit.Implementations {
		idx.RegisterImplementation(&ImplementationEntry{
			Name:     impl.Name,
			TypeName: impl.TypeName,
			Kind:     impl.Kind,
			Linkage:  impl.Linkage,
			Generic:  impl.Generic,
			Span:     impl.NameLocation,
		})
	}
}

type visitor struct {
	idx      *Index
	scope    string
	generics []ast.GenericBinding
}

func (v *visitor) report(code diag.Code, sp source.Span, format string, args ...any) {
	v.idx.diags = append(v.idx.diags, diag.Of(code, sp, fmt.Sprintf(format, args...)))
}

func (v *visitor) typeRef(name string, sp source.Span) {
	if name == "" {
		return
	}
	v.idx.addTypeRef(TypeRef{Name: name, Span: sp, Scope: v.scope})
}

// declType registers an inline definition (named fallback when anonymous)
// and returns the name a declaration refers to.
func (v *visitor) declType(decl ast.DataTypeDeclaration, fallback string) string {
	switch d := decl.(type) {
	case *ast.DataTypeReference:
		for _, g := range v.generics {
			if types.SameName(g.Name, d.Name) {
				return GenericTypeName(v.scope, g.Name)
			}
		}
		v.typeRef(d.Name, d.Span)
		return d.Name
	case *ast.DataTypeDefinition:
		if d.Type == nil {
			return ""
		}
		name := d.Type.TypeName()
		if name == "" {
			name = fallback
		}
		if shared(name) && v.idx.FindType(name) != nil {
			return name
		}
		v.dataType(d.Type, name, d.Span, nil)
		return name
	}
	return ""
}

func (v *visitor) dataType(dt ast.DataType, name string, sp source.Span, initial ast.Statement) {
	idx := v.idx
	entry := &TypeEntry{Span: sp, Initial: initial, Scope: v.scope}
	switch t := dt.(type) {
	case *ast.StructType:
		info := &types.Info{Kind: types.KindStruct, Name: name}
		if strings.HasPrefix(name, types.VtablePrefix) || strings.HasPrefix(name, types.ItablePrefix) {
			info.Origin = types.OriginVtable
		}
		entry.Info = info
		idx.RegisterType(entry)
		for _, m := range t.Members {
			typ := v.declType(m.Type, InlineTypeName(name, m.Name))
			info.Fields = append(info.Fields, types.Field{Name: m.Name, Type: typ})
			idx.RegisterMember(name, &VariableEntry{
				Name:     m.Name,
				Type:     typ,
				Initial:  m.Initializer,
				Hardware: m.Location,
				Span:     memberSpan(m),
			})
		}
		return
	case *ast.EnumType:
		base := types.DINT
		if t.Base != nil {
			base = v.declType(t.Base, InlineTypeName(name, "base"))
		}
		info := &types.Info{Kind: types.KindEnum, Name: name, Inner: base, Class: types.ClassEnum, Bits: 32, Signed: true}
		if b := idx.FindEffectiveTypeInfo(base); b != nil && b.IsInteger() {
			info.Bits, info.Signed = b.Bits, b.Signed
		}
		entry.Info = info
		idx.RegisterType(entry)
		v.enumVariants(info, t.Elements)
		return
	case *ast.ArrayType:
		inner := v.declType(t.Inner, name+"_")
		info := &types.Info{Kind: types.KindArray, Name: name, Inner: inner, Dims: make([]types.Dim, len(t.Dims))}
		for i, r := range t.Dims {
			v.dim(info, i, r)
		}
		entry.Info = info
	case *ast.VarLengthArrayType:
		inner := v.declType(t.Inner, name+"_")
		entry.Info = &types.Info{Kind: types.KindVarLengthArray, Name: name, Inner: inner, Rank: t.Rank}
	case *ast.PointerType:
		inner := v.declType(t.Inner, name+"_")
		entry.Info = types.PointerTo(name, inner, t.AutoDeref)
	case *ast.StringType:
		enc := types.UTF8
		if t.Wide {
			enc = types.UTF16
		}
		info := types.StringOf(name, enc, types.DefaultStringLength)
		if t.Size != nil {
			if n, ok := idx.EvalInt(t.Size, v.scope); ok && n > 0 {
				info.Size = n + 1
			} else {
				idx.pending = append(idx.pending, pendingConst{kind: pendString, info: info, start: t.Size, scope: v.scope, span: t.Size.GetSpan()})
			}
		}
		entry.Info = info
	case *ast.SubRangeType:
		v.typeRef(t.Base, sp)
		info := &types.Info{Kind: types.KindSubRange, Name: name, Inner: t.Base}
		if b := idx.FindEffectiveTypeInfo(t.Base); b != nil {
			info.Class, info.Bits, info.Signed = b.Class, b.Bits, b.Signed
		}
		if t.Range != nil {
			lo, okLo := idx.EvalInt(t.Range.Start, v.scope)
			hi, okHi := idx.EvalInt(t.Range.End, v.scope)
			if okLo && okHi {
				info.Lo, info.Hi = lo, hi
			} else {
				idx.pending = append(idx.pending, pendingConst{kind: pendRange, info: info, start: t.Range.Start, end: t.Range.End, scope: v.scope, span: t.Range.Span})
			}
		}
		entry.Info = info
	case *ast.GenericType:
		nature, ok := types.ParseNature(t.Nature)
		if !ok {
			v.report(diag.UnknownTypeNature, sp, "unknown generic nature '%s'", t.Nature)
			nature = types.NatureAny
		}
		entry.Info = &types.Info{Kind: types.KindGeneric, Name: name, Nature: nature}
	case *ast.AliasType:
		v.typeRef(t.Target, sp)
		entry.Info = &types.Info{Kind: types.KindAlias, Name: name, Inner: t.Target}
	default:
		return
	}
	idx.RegisterType(entry)
}

func memberSpan(m *ast.Variable) source.Span {
	if !m.NameSpan.IsUndefined() {
		return m.NameSpan
	}
	return m.Span
}

func (v *visitor) dim(info *types.Info, i int, r *ast.RangeStatement) {
	s, okS := v.idx.EvalInt(r.Start, v.scope)
	e, okE := v.idx.EvalInt(r.End, v.scope)
	if okS && okE {
		info.Dims[i] = types.Dim{Start: s, End: e, Const: true}
		return
	}
	v.idx.pending = append(v.idx.pending, pendingConst{kind: pendDim, info: info, dim: i, start: r.Start, end: r.End, scope: v.scope, span: r.Span})
}

// enumVariants numbers enumerators: explicit values are folded, the others
// continue from their predecessor starting at 0.
func (v *visitor) enumVariants(info *types.Info, elems []*ast.EnumElement) {
	for _, el := range elems {
		v.idx.RegisterEnumValue(info.Name, &VariableEntry{
			Name:    el.Name,
			Type:    info.Name,
			Initial: el.Value,
			Span:    el.Span,
		})
	}
	if !numberVariants(v.idx, info, elems, v.scope) {
		v.idx.pending = append(v.idx.pending, pendingConst{kind: pendEnum, info: info, elems: elems, scope: v.scope, span: firstUnfolded(v.idx, info, elems)})
	}
}

func numberVariants(idx *Index, info *types.Info, elems []*ast.EnumElement, scope string) bool {
	info.Variants = info.Variants[:0]
	next, ok := int64(0), true
	for _, el := range elems {
		if el.Value != nil {
			// enumerators may refer to earlier ones of the same enum
			n, folded := idx.EvalInt(el.Value, info.Name)
			if !folded {
				n, folded = idx.EvalInt(el.Value, scope)
			}
			if folded {
				next = n
			} else {
				ok = false
			}
		}
		info.Variants = append(info.Variants, types.Variant{Name: el.Name, Value: next})
		next++
	}
	return ok
}

func firstUnfolded(idx *Index, info *types.Info, elems []*ast.EnumElement) source.Span {
	for _, el := range elems {
		if el.Value == nil {
			continue
		}
		if _, ok := idx.EvalInt(el.Value, info.Name); !ok {
			return el.Value.GetSpan()
		}
	}
	return source.Undefined()
}

func (v *visitor) globalBlock(b *ast.VariableBlock) {
	for _, g := range b.Variables {
		typ := v.declType(g.Type, InlineTypeName("global", g.Name))
		v.idx.RegisterGlobal(&VariableEntry{
			Name:      g.Name,
			Qualified: g.Name,
			Type:      typ,
			Initial:   g.Initializer,
			Kind:      ast.VarGlobal,
			Role:      RoleGlobal,
			Linkage:   b.Linkage,
			Constant:  b.Constant,
			Retain:    b.Retain,
			Hardware:  g.Location,
			Span:      memberSpan(g),
		})
	}
}

func (v *visitor) pou(p *ast.Pou) {
	idx := v.idx
	entry := &PouEntry{
		Name:        p.Name,
		Kind:        p.Kind,
		Parent:      p.Parent,
		Super:       p.Super,
		Specialises: p.Specialises,
		Property:    p.Property,
		Linkage:     p.Linkage,
		Access:      p.Access,
		Overriding:  p.Overriding,
		Abstract:    p.Abstract,
		Final:       p.Final,
		Span:        p.NameSpan,
	}
	for _, g := range p.Generics {
		entry.Generics = append(entry.Generics, types.GenericBinding{Name: g.Name, Nature: g.Nature})
	}
	v.scope, v.generics = p.Name, p.Generics
	defer func() { v.scope, v.generics = "", nil }()

	for _, g := range p.Generics {
		name := GenericTypeName(p.Name, g.Name)
		if idx.FindType(name) == nil {
			v.dataType(ast.NewGeneric(name, g.Nature), name, p.NameSpan, nil)
		}
	}
	if p.Super != "" {
		v.typeRef(p.Super, p.SuperSpan)
	}
	for _, r := range p.Interfaces {
		entry.Interfaces = append(entry.Interfaces, r.Name)
		v.typeRef(r.Name, r.Span)
	}
	if p.ReturnType != nil {
		entry.ReturnType = v.declType(p.ReturnType, InlineTypeName(p.Name, "return"))
	}
	idx.RegisterPou(entry)
	if p.Kind == ast.PouAction {
		return
	}

	// the instance struct goes in before any member or method
	info := &types.Info{Kind: types.KindStruct, Name: p.Name, Origin: types.OriginPou, Super: p.Super}
	info.Generics = entry.Generics
	idx.RegisterPouType(&TypeEntry{Info: info, Span: p.NameSpan, Scope: p.Name})

	for _, b := range p.Blocks {
		for _, m := range b.Variables {
			typ := v.declType(m.Type, InlineTypeName(p.Name, m.Name))
			added := idx.RegisterMember(p.Name, &VariableEntry{
				Name:     m.Name,
				Type:     typ,
				Initial:  m.Initializer,
				Kind:     b.Kind,
				Linkage:  p.Linkage,
				Constant: b.Constant,
				Retain:   b.Retain,
				Hardware: m.Location,
				Property: b.Property,
				Span:     memberSpan(m),
			})
			if added && b.Kind != ast.VarTemp {
				info.Fields = append(info.Fields, types.Field{Name: m.Name, Type: typ, Kind: b.Kind, Constant: b.Constant})
			}
		}
	}
	if entry.ReturnType != "" {
		idx.RegisterMember(p.Name, &VariableEntry{
			Name:    entry.SimpleName(),
			Type:    entry.ReturnType,
			Role:    RoleReturn,
			Kind:    ast.VarLocal,
			Linkage: p.Linkage,
			Span:    p.NameSpan,
		})
	}
	if p.Kind == ast.PouProgram {
		idx.RegisterGlobal(&VariableEntry{
			Name:      p.Name,
			Qualified: p.Name,
			Type:      p.Name,
			Kind:      ast.VarGlobal,
			Role:      RoleProgramGlobal,
			Linkage:   p.Linkage,
			Span:      p.NameSpan,
		})
	}
}
