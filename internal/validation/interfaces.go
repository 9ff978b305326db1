package validation

import (
	"fmt"

	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/index"
	"plcc/internal/types"
)

// implements checks the IMPLEMENTS list of p: only an FB or class may
// implement, only interfaces may be implemented, and every method of every
// interface must be there with the same signature.
func (v *validator) implements(p *index.PouEntry) {
	d := v.decl
	if len(p.Interfaces) == 0 {
		return
	}
	if p.Kind != ast.PouFunctionBlock && p.Kind != ast.PouClass {
		v.report(diag.InvalidInheritance, p.Span, nil, "%s %s cannot implement interfaces", p.Kind, p.Name)
		return
	}
	for _, name := range p.Interfaces {
		i := d.FindPou(name)
		if i == nil || !i.IsInterface() {
			if i != nil || d.FindType(name) != nil {
				v.report(diag.InvalidInheritance, p.Span, nil, "%s cannot implement %s, which is not an INTERFACE", p.Name, name)
			}
			continue
		}
		for _, m := range d.InterfaceMethods(i.Name) {
			impl := d.FindMethod(p.Name, m.SimpleName())
			if impl == nil {
				v.report(diag.InterfaceMismatch, p.Span, nil, "method %s defined in interface %s is missing in POU %s", m.SimpleName(), m.Parent, p.Name)
				continue
			}
			if why := v.signatureDiffers(m, impl); why != "" {
				v.report(diag.InterfaceMismatch, impl.Span, nil, "%s does not match %s: %s", impl.Name, m.Name, why)
			}
		}
	}
}

// interfaceDecl checks an interface: it extends interfaces only, and the
// interfaces it reaches do not declare the same method differently.
func (v *validator) interfaceDecl(p *index.PouEntry) {
	d := v.decl
	for _, name := range p.Interfaces {
		if i := d.FindPou(name); i != nil && !i.IsInterface() || i == nil && d.FindType(name) != nil {
			v.report(diag.InvalidInheritance, p.Span, nil, "interface %s cannot extend %s, which is not an INTERFACE", p.Name, name)
		}
	}
	seen := map[string]*index.PouEntry{}
	for _, i := range d.InterfaceHierarchy(p.Name) {
		for _, m := range d.MethodsOf(i.Name) {
			k := types.Key(m.SimpleName())
			first, ok := seen[k]
			if !ok {
				seen[k] = m
				continue
			}
			if types.SameName(first.Parent, p.Name) {
				if why := v.signatureDiffers(m, first); why != "" {
					v.report(diag.InterfaceMismatch, first.Span, nil, "%s does not match inherited %s: %s", first.Name, m.Name, why)
				}
				continue
			}
			if why := v.signatureDiffers(first, m); why != "" {
				v.report(diag.ConflictingSignatures, p.Span, nil, "interface %s inherits %s and %s with different signatures: %s", p.Name, first.Name, m.Name, why)
			}
		}
	}
}

// signatureDiffers describes how impl's signature differs from want's, ""
// when they agree.
func (v *validator) signatureDiffers(want, impl *index.PouEntry) string {
	d := v.decl
	if !v.sameType(want.ReturnType, impl.ReturnType) {
		return "return type " + typeOrVoid(impl.ReturnType) + " should be " + typeOrVoid(want.ReturnType)
	}
	wp, ip := d.Parameters(want.Name), d.Parameters(impl.Name)
	if len(wp) != len(ip) {
		return fmt.Sprintf("expected %d parameters, found %d", len(wp), len(ip))
	}
	for i := range wp {
		switch {
		case wp[i].Kind != ip[i].Kind:
			return "parameter " + ip[i].Name + " is " + ip[i].Kind.String() + ", expected " + wp[i].Kind.String()
		case !v.sameType(wp[i].Type, ip[i].Type):
			return "parameter " + ip[i].Name + " is " + ip[i].Type + ", expected " + wp[i].Type
		}
	}
	return ""
}

func (v *validator) sameType(a, b string) bool {
	if a == "" || b == "" {
		return a == b
	}
	ta, tb := v.decl.FindEffectiveTypeInfo(a), v.decl.FindEffectiveTypeInfo(b)
	if ta == nil || tb == nil {
		return types.SameName(a, b)
	}
	return types.SameName(ta.Name, tb.Name)
}

func typeOrVoid(t string) string {
	if t == "" {
		return types.VOID
	}
	return t
}

// accessor checks the GET or SET p a PROPERTY turned into: it may only
// declare local variables, and a property has at most one of each.
func (v *validator) accessor(p *index.PouEntry) {
	d := v.decl
	if n := len(d.Pous().GetAll(p.Name)); n > 1 {
		kind := "GET"
		if p.ReturnType == "" {
			kind = "SET"
		}
		v.report(diag.InvalidProperty, p.Span, nil, "property %s declares more than one %s", p.Property, kind)
	}
	for _, m := range d.Members(p.Name).Values() {
		switch {
		case m.IsReturn(), m.Kind == ast.VarLocal, m.Kind == ast.VarTemp:
		case m.Kind == ast.VarInput && types.SameName(m.Name, ast.SetterParam):
		default:
			v.report(diag.InvalidPropertyBlock, m.Span, nil, "property %s cannot declare %s %s, only VAR and VAR_TEMP", p.Property, m.Kind, m.Name)
		}
	}
}
