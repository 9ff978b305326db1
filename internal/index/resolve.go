package index

import (
	"fmt"

	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/source"
	"plcc/internal/types"
)

type pendingKind uint8

const (
	pendDim pendingKind = iota
	pendString
	pendRange
	pendEnum
)

// pendingConst is a bound that referred to a constant not yet known when
// its type was indexed.
type pendingConst struct {
	kind       pendingKind
	info       *types.Info
	dim        int
	start, end ast.Statement
	elems      []*ast.EnumElement
	scope      string
	span       source.Span
}

func (idx *Index) fold(p pendingConst) bool {
	switch p.kind {
	case pendDim:
		s, okS := idx.EvalInt(p.start, p.scope)
		e, okE := idx.EvalInt(p.end, p.scope)
		if !okS || !okE {
			return false
		}
		p.info.Dims[p.dim] = types.Dim{Start: s, End: e, Const: true}
	case pendString:
		n, ok := idx.EvalInt(p.start, p.scope)
		if !ok || n <= 0 {
			return false
		}
		p.info.Size = n + 1
	case pendRange:
		lo, okLo := idx.EvalInt(p.start, p.scope)
		hi, okHi := idx.EvalInt(p.end, p.scope)
		if !okLo || !okHi {
			return false
		}
		p.info.Lo, p.info.Hi = lo, hi
	case pendEnum:
		return numberVariants(idx, p.info, p.elems, p.scope)
	}
	return true
}

// Resolve folds the queued constant bounds until nothing changes, then
// reports what is still not constant and every type name that does not
// resolve. It returns the diagnostics gathered since the last call.
func (idx *Index) Resolve() []diag.Diagnostic {
	for progress := true; progress && len(idx.pending) > 0; {
		progress = false
		rest := idx.pending[:0]
		for _, p := range idx.pending {
			if idx.fold(p) {
				progress = true
				continue
			}
			rest = append(rest, p)
		}
		idx.pending = rest
	}
	for _, p := range idx.pending {
		idx.diags = append(idx.diags, diag.Of(diag.NonConstantArrayBound, p.span, nonConstantMessage(p)))
	}
	idx.pending = nil

	for _, r := range idx.typeRefs {
		if idx.FindType(r.Name) == nil {
			idx.diags = append(idx.diags, diag.Of(diag.UnresolvedReference, r.Span, fmt.Sprintf("unknown type '%s'", r.Name)))
		}
	}
	out := idx.diags
	idx.diags = nil
	return out
}

func nonConstantMessage(p pendingConst) string {
	switch p.kind {
	case pendString:
		return fmt.Sprintf("length of '%s' is not a constant expression", p.info.Name)
	case pendRange:
		return fmt.Sprintf("bounds of '%s' are not constant expressions", p.info.Name)
	case pendEnum:
		return fmt.Sprintf("value of an enumerator of '%s' is not a constant expression", p.info.Name)
	}
	return fmt.Sprintf("array bounds of '%s' are not constant expressions", p.info.Name)
}

// Import merges other into idx. Entries keep their order; names defined in
// both stay as duplicates for the validator. Elementary types are not
// copied twice.
func (idx *Index) Import(other *Index) {
	for _, e := range other.types.AllValues() {
		if !e.Builtin {
			idx.RegisterType(e)
		}
	}
	for _, e := range other.pouTypes.AllValues() {
		idx.RegisterPouType(e)
	}
	for _, p := range other.pous.AllValues() {
		idx.RegisterPou(p)
	}
	for _, v := range other.globals.AllValues() {
		idx.RegisterGlobal(v)
	}
	for _, k := range other.Containers() {
		for _, v := range other.members[k].AllValues() {
			if v.Role == RoleEnumValue {
				if idx.RegisterMember(v.Container, v) {
					idx.enumGlobals.Insert(v.Name, v)
				}
				continue
			}
			idx.RegisterMember(v.Container, v)
		}
	}
	for _, e := range other.impls.AllValues() {
		idx.RegisterImplementation(e)
	}
	for _, r := range other.typeRefs {
		idx.addTypeRef(r)
	}
	idx.pending = append(idx.pending, other.pending...)
	idx.diags = append(idx.diags, other.diags...)
}
