package types

import (
	"strings"

	"plcc/internal/ast"
)

// Lookup resolves a type name to its effective descriptor (aliases
// followed). It returns nil for unknown names.
type Lookup func(name string) *Info

// Conversion classifies an implicit conversion between two types.
type Conversion uint8

const (
	ConvIdentical Conversion = iota
	ConvWidening
	ConvNarrowing
	ConvIncompatible
)

func (c Conversion) String() string {
	return [...]string{"identical", "widening", "narrowing", "incompatible"}[c]
}

// Allowed reports whether the conversion may happen implicitly.
func (c Conversion) Allowed() bool { return c != ConvIncompatible }

// wider picks the wider of two same-class types; ties go to unsigned.
func wider(a, b *Info) *Info {
	switch {
	case a.Bits > b.Bits:
		return a
	case b.Bits > a.Bits:
		return b
	case a.Signed && !b.Signed:
		return b
	}
	return a
}

// Promote returns the common type of two operands, or false when the
// operands belong to different classes, which only convert through an
// explicit <A>_TO_<B> call.
func Promote(a, b *Info) (*Info, bool) {
	if a == nil || b == nil {
		return nil, false
	}
	if a.Class != b.Class {
		return nil, false
	}
	switch a.Class {
	case ClassNone:
		return a, SameName(a.Name, b.Name)
	case ClassEnum:
		return a, SameName(a.Name, b.Name)
	case ClassPointer, ClassBool:
		return a, true
	case ClassString:
		if a.Encoding != b.Encoding {
			return nil, false
		}
		if b.Size > a.Size {
			return b, true
		}
		return a, true
	}
	return wider(a, b), true
}

// Equivalent reports structural identity: same name, or anonymous
// pointers/arrays/strings with equivalent shape.
func Equivalent(a, b *Info, find Lookup) bool {
	if a == nil || b == nil {
		return false
	}
	if SameName(a.Name, b.Name) {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindPointer:
		return SameName(a.Inner, b.Inner) || Equivalent(find(a.Inner), find(b.Inner), find)
	case KindArray:
		if len(a.Dims) != len(b.Dims) {
			return false
		}
		for i := range a.Dims {
			if a.Dims[i].Len() != b.Dims[i].Len() {
				return false
			}
		}
		return SameName(a.Inner, b.Inner) || Equivalent(find(a.Inner), find(b.Inner), find)
	case KindVarLengthArray:
		return a.Rank == b.Rank && (SameName(a.Inner, b.Inner) || Equivalent(find(a.Inner), find(b.Inner), find))
	case KindString:
		return a.Encoding == b.Encoding && a.Size == b.Size
	}
	return false
}

// Extends reports whether class derived inherits from base (or is base).
func Extends(derived, base *Info, find Lookup) bool {
	for cur, guard := derived, 0; cur != nil && guard < 64; guard++ {
		if SameName(cur.Name, base.Name) {
			return true
		}
		base := cur.Base()
		if base == "" {
			return false
		}
		cur = find(base)
	}
	return false
}

// Classify decides how a value of type from converts to type to.
func Classify(from, to *Info, find Lookup) Conversion {
	if from == nil || to == nil {
		return ConvIncompatible
	}
	if Equivalent(from, to, find) {
		return ConvIdentical
	}
	if to.Kind == KindGeneric {
		if Satisfies(from, to.Nature) {
			return ConvWidening
		}
		return ConvIncompatible
	}
	switch {
	case from.Kind == KindPointer && to.Kind == KindPointer:
		fi, ti := find(from.Inner), find(to.Inner)
		switch {
		case ti.IsVoid() || fi.IsVoid():
			return ConvWidening
		case fi.IsStruct() && ti.IsStruct() && Extends(fi, ti, find):
			return ConvWidening
		}
		return ConvIncompatible
	case from.IsStruct() && to.IsStruct():
		if Extends(from, to, find) {
			return ConvWidening
		}
		return ConvIncompatible
	case from.Kind == KindArray && to.Kind == KindVarLengthArray:
		if len(from.Dims) == to.Rank && (SameName(from.Inner, to.Inner) || Equivalent(find(from.Inner), find(to.Inner), find)) {
			return ConvWidening
		}
		return ConvIncompatible
	case from.Kind == KindString && to.Kind == KindString:
		if from.Encoding != to.Encoding {
			return ConvIncompatible
		}
		if to.Size >= from.Size {
			return ConvWidening
		}
		return ConvNarrowing
	}
	if !from.IsElementary() || !to.IsElementary() || from.Class != to.Class {
		return ConvIncompatible
	}
	switch from.Class {
	case ClassBool:
		return ConvIdentical
	case ClassReal:
		if to.Bits >= from.Bits {
			return ConvWidening
		}
		return ConvNarrowing
	}
	if to.Bits > from.Bits && (to.Signed || !from.Signed) || to.Bits == from.Bits && to.Signed == from.Signed {
		return ConvWidening
	}
	return ConvNarrowing
}

// BinaryOperand returns the type both operands of op are coerced to and
// whether the expression yields BOOL instead of that type.
func BinaryOperand(op ast.Operator, a, b *Info) (operand *Info, boolResult bool, ok bool) {
	t, ok := Promote(a, b)
	if !ok {
		return nil, false, false
	}
	switch {
	case op.IsComparison():
		if t.Class == ClassNone {
			return nil, false, false
		}
		return t, true, true
	case op.IsLogical():
		switch t.Class {
		case ClassBool, ClassBit, ClassInt:
			return t, false, true
		}
	case op == ast.OpModulo:
		switch t.Class {
		case ClassBit, ClassInt:
			return t, false, true
		}
	case op == ast.OpPower:
		if t.Class == ClassInt || t.Class == ClassReal {
			return t, false, true
		}
	case op.IsArithmetic():
		switch t.Class {
		case ClassBit, ClassInt, ClassReal, ClassDuration:
			return t, false, true
		}
	}
	return nil, false, false
}

// UnaryAllowed reports whether op applies to t.
func UnaryAllowed(op ast.Operator, t *Info) bool {
	if t == nil {
		return false
	}
	switch op {
	case ast.OpNot:
		return t.Class == ClassBool || t.Class == ClassBit || t.Class == ClassInt
	case ast.OpMinus:
		return t.Class == ClassInt || t.Class == ClassReal || t.Class == ClassDuration
	case ast.OpPlus:
		return t.IsNumeric() || t.Class == ClassBit || t.Class == ClassDuration
	}
	return false
}

// Mangle builds the C-ABI name of an overload or specialisation:
// Mangle("ROUND", "REAL") == "ROUND__REAL".
func Mangle(name string, typeNames ...string) string {
	if len(typeNames) == 0 {
		return name
	}
	return name + "__" + strings.Join(typeNames, "__")
}

// ParseConversion splits `<A>_TO_<B>` when both sides are elementary.
func ParseConversion(name string) (from, to string, ok bool) {
	up := strings.ToUpper(name)
	for i := strings.Index(up, "_TO_"); i >= 0; {
		from, to = up[:i], up[i+4:]
		if IsElementaryName(from) && IsElementaryName(to) {
			return from, to, true
		}
		next := strings.Index(up[i+1:], "_TO_")
		if next < 0 {
			break
		}
		i += next + 1
	}
	return "", "", false
}
