package validation

import (
	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/resolver"
	"plcc/internal/types"
)

func (v *validator) expr(s ast.Statement) {
	switch n := s.(type) {
	case nil, *ast.Literal:
	case *ast.Reference:
		if !v.m.Has(n) {
			v.at(diag.UnresolvedReference, n, "could not resolve reference to %s", n.Name)
		}
		v.propertyRead(n)
	case *ast.MemberAccess:
		v.memberAccess(n)
	case *ast.ArrayAccess:
		v.arrayAccess(n)
	case *ast.Deref:
		v.deref(n)
	case *ast.ThisRef:
		if !v.m.Has(n) {
			v.at(diag.UnresolvedReference, n, "THIS is only available inside a FUNCTION_BLOCK or CLASS")
		}
	case *ast.SuperRef:
		if !v.m.Has(n) {
			v.at(diag.UnresolvedReference, n, "SUPER needs a base class")
		}
	case *ast.BinaryExpr:
		v.binary(n)
	case *ast.UnaryExpr:
		v.expr(n.Operand)
		if operand := v.typeOf(n.Operand); !broken(operand) && v.voidResult(n) {
			v.at(diag.IncompatibleTypes, n, "operator %s cannot be applied to %s", n.Op, v.describe(operand))
		}
	case *ast.ParenExpr:
		v.expr(n.Inner)
	case *ast.CastExpr:
		v.cast(n)
	case *ast.CallStatement:
		v.call(n)
	case *ast.ArrayLiteral:
		for _, e := range n.Elements {
			v.expr(e)
		}
	case *ast.MultipliedStatement:
		v.expr(n.Element)
	case *ast.StructLiteral:
		v.structLiteral(n)
	case *ast.RangeStatement:
		v.expr(n.Start)
		v.expr(n.End)
	case *ast.Assignment:
		v.assignment(n)
	case *ast.OutputAssignment:
		v.expr(n.Left)
		v.expr(n.Right)
	case *ast.DirectAccess:
		v.expr(n.Index)
	default:
		v.statement(s)
	}
}

// voidResult reports nodes the annotator typed VOID.
func (v *validator) voidResult(n ast.Node) bool {
	ann, ok := v.m.Get(n)
	return ok && types.SameName(ann.Type, types.VOID)
}

func (v *validator) memberAccess(n *ast.MemberAccess) {
	v.expr(n.Base)
	if d, ok := n.Member.(*ast.DirectAccess); ok {
		v.bitAccess(n, d)
		return
	}
	if !v.m.Has(n.Base) {
		return
	}
	ref, ok := n.Member.(*ast.Reference)
	if !ok {
		v.expr(n.Member)
		return
	}
	if !v.m.Has(ref) {
		v.at(diag.UnresolvedReference, ref, "could not resolve reference to %s", ast.PrintStatement(n))
	}
	v.propertyRead(n)
}

// propertyRead reports a property read that was left as is: the
// property has no GET.
func (v *validator) propertyRead(n ast.Statement) {
	if ann, ok := v.m.Get(n); ok && ann.Property {
		v.at(diag.InvalidProperty, n, "property %s has no GET", ann.Qualified)
	}
}

// bitAccess checks `x.%Xn`: x must be an integer wide enough for element n.
func (v *validator) bitAccess(n *ast.MemberAccess, d *ast.DirectAccess) {
	v.expr(d.Index)
	if !v.m.Has(n.Base) {
		return
	}
	t := v.typeOf(n.Base)
	if broken(t) {
		return
	}
	if t.Kind != types.KindInteger || t.Class != types.ClassInt && t.Class != types.ClassBit {
		v.at(diag.BitAccessOutOfRange, d, "%s access is only allowed on integer variables, not %s", d.Kind.Prefix(), v.describe(t))
		return
	}
	i, ok := v.idx.EvalInt(d.Index, v.scope)
	if !ok {
		return
	}
	width := int64(t.Bits / d.Kind.Bits())
	if i < 0 || i >= width {
		v.at(diag.BitAccessOutOfRange, d, "%s%d is out of range for %s, expected 0..%d", d.Kind.Prefix(), i, v.describe(t), width-1)
	}
}

func (v *validator) arrayAccess(n *ast.ArrayAccess) {
	v.expr(n.Base)
	for _, i := range n.Indices {
		v.expr(i)
	}
	if !v.m.Has(n.Base) {
		return
	}
	t := v.typeOf(n.Base)
	if broken(t) {
		return
	}
	if !t.IsArray() {
		v.at(diag.IncompatibleArrayAccessVariable, n, "%s is not an array, it is %s", ast.PrintStatement(n.Base), v.describe(t))
		return
	}
	indices := n.Indices
	for t.IsArray() && len(indices) > 0 {
		rank := len(t.Dims)
		if t.Kind == types.KindVarLengthArray {
			rank = t.Rank
		}
		if len(indices) < rank {
			v.at(diag.ArrayDimensionMismatch, n, "%s needs %d indices, %d given", ast.PrintStatement(n.Base), rank, len(indices))
			return
		}
		for i := 0; i < rank; i++ {
			var dim *types.Dim
			if t.Kind == types.KindArray {
				dim = &t.Dims[i]
			}
			v.arrayIndex(indices[i], dim)
		}
		indices = indices[rank:]
		if len(indices) > 0 {
			t = v.typeInfo(t.Inner)
		}
	}
	if len(indices) > 0 {
		v.at(diag.ArrayDimensionMismatch, n, "too many indices for %s", ast.PrintStatement(n.Base))
	}
}

// arrayIndex checks one index against its dimension; dim is nil for the
// dimensions of variable-length arrays.
func (v *validator) arrayIndex(ix ast.Statement, dim *types.Dim) {
	if !v.m.Has(ix) {
		return
	}
	t := v.typeOf(ix)
	if broken(t) {
		return
	}
	if !t.IsInteger() || t.Class != types.ClassInt && t.Class != types.ClassBit {
		v.at(diag.IncompatibleArrayAccessType, ix, "invalid type %s for an array index, expected an integer", v.describe(t))
		return
	}
	if dim == nil || !dim.Const {
		return
	}
	if i, ok := v.idx.EvalInt(ix, v.scope); ok && (i < dim.Start || i > dim.End) {
		v.at(diag.IncompatibleArrayAccessRange, ix, "index %d is out of range %d..%d", i, dim.Start, dim.End)
	}
}

func (v *validator) deref(n *ast.Deref) {
	v.expr(n.Base)
	if !v.m.Has(n.Base) {
		return
	}
	if t := v.typeOf(n.Base); !broken(t) && !t.IsPointer() {
		v.at(diag.InvalidDereference, n, "cannot dereference %s of type %s", ast.PrintStatement(n.Base), v.describe(t))
	}
}

func (v *validator) binary(n *ast.BinaryExpr) {
	v.expr(n.Left)
	v.expr(n.Right)
	l, r := v.typeOf(n.Left), v.typeOf(n.Right)
	if broken(l) || broken(r) || !v.voidResult(n) {
		return
	}
	v.at(diag.IncompatibleTypes, n, "operator %s cannot be applied to %s and %s", n.Op, v.describe(l), v.describe(r))
}

func (v *validator) cast(n *ast.CastExpr) {
	t := v.typeInfo(n.TypeName)
	if t == nil {
		v.report(diag.UnresolvedReference, n.TypeSpan, n, "unknown type %s", n.TypeName)
		return
	}
	if t.IsEnum() {
		if ref, ok := n.Target.(*ast.Reference); ok {
			if !v.m.Has(ref) {
				v.at(diag.UnresolvedReference, ref, "%s has no variant %s", t.Name, ref.Name)
			}
			return
		}
	}
	v.expr(n.Target)
	if _, ok := n.Target.(*ast.Literal); !ok {
		if _, signed := n.Target.(*ast.UnaryExpr); !signed {
			return
		}
	}
	// a typed literal must fit its type
	from := v.typeOf(n.Target)
	if broken(from) || types.SameName(from.Name, t.Name) {
		return
	}
	if c := types.Classify(from, t, v.idx.Lookup()); c != types.ConvIdentical && c != types.ConvWidening {
		v.at(diag.IncompatibleAssignment, n, "%s is not a valid %s literal", ast.PrintStatement(n.Target), v.describe(t))
	}
}

func (v *validator) structLiteral(n *ast.StructLiteral) {
	t := v.typeOf(n)
	for _, f := range n.Fields {
		if ref, ok := f.Left.(*ast.Reference); ok && t.IsStruct() && !v.m.Has(ref) {
			v.at(diag.UnresolvedReference, ref, "%s has no member %s", t.Name, ref.Name)
		}
		v.expr(f.Right)
	}
}

// addressable reports expressions that denote storage.
func (v *validator) addressable(s ast.Statement) bool {
	switch n := s.(type) {
	case *ast.Reference:
		ann, ok := v.m.Get(n)
		return ok && ann.Kind == resolver.Variable
	case *ast.MemberAccess:
		if _, ok := n.Member.(*ast.DirectAccess); ok {
			return v.addressable(n.Base)
		}
		ann, ok := v.m.Get(n)
		if !ok || ann.Kind != resolver.Variable {
			return false
		}
		if base, ok := v.m.Get(n.Base); ok && base.Kind == resolver.Type {
			// Color.Red
			return true
		}
		return v.addressable(n.Base)
	case *ast.ArrayAccess:
		return v.addressable(n.Base)
	case *ast.Deref:
		return true
	case *ast.ParenExpr:
		return v.addressable(n.Inner)
	}
	return false
}

// constant reports storage that may not be written.
func (v *validator) constant(s ast.Statement) bool {
	if v.init {
		return false
	}
	ann, _ := v.m.Get(s)
	return ann.Constant
}

// convert checks the implicit conversion of value to the type target.
func (v *validator) convert(value ast.Statement, target string) {
	if value == nil || target == "" {
		return
	}
	to := v.typeInfo(target)
	if broken(to) || to.IsGeneric() {
		return
	}
	switch lit := value.(type) {
	case *ast.ArrayLiteral:
		v.arrayInit(lit, to)
		return
	case *ast.StructLiteral:
		v.structInit(lit, to)
		return
	case *ast.ParenExpr:
		if _, ok := lit.Inner.(*ast.ArrayLiteral); ok {
			v.convert(lit.Inner, target)
			return
		}
	}
	from := v.typeOf(value)
	if broken(from) || from.IsGeneric() {
		return
	}
	switch types.Classify(from, to, v.idx.Lookup()) {
	case types.ConvIncompatible:
		v.at(diag.IncompatibleAssignment, value, "cannot assign %s to %s", v.describe(from), v.describe(to))
	case types.ConvNarrowing:
		v.narrowing(value, from, to)
	}
}

func (v *validator) arrayInit(lit *ast.ArrayLiteral, to *types.Info) {
	if !to.IsArray() {
		v.at(diag.IncompatibleAssignment, lit, "an array literal cannot initialise %s", v.describe(to))
		return
	}
	for _, e := range lit.Elements {
		if m, ok := e.(*ast.MultipliedStatement); ok {
			e = m.Element
		}
		v.convert(e, to.Inner)
	}
}

func (v *validator) structInit(lit *ast.StructLiteral, to *types.Info) {
	if !to.IsStruct() {
		v.at(diag.IncompatibleAssignment, lit, "a struct literal cannot initialise %s", v.describe(to))
		return
	}
	for _, f := range lit.Fields {
		if ann, ok := v.m.Get(f.Left); ok {
			v.convert(f.Right, ann.Type)
		}
	}
}
