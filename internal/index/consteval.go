package index

import (
	"math"

	"plcc/internal/ast"
	"plcc/internal/types"
)

// ConstKind is the shape of a folded constant.
type ConstKind uint8

const (
	ConstInt ConstKind = iota
	ConstReal
	ConstBool
	ConstString
)

// ConstValue is the result of folding a constant expression.
type ConstValue struct {
	Kind ConstKind
	Int  int64
	Real float64
	Str  string
}

func IntValue(v int64) ConstValue    { return ConstValue{Kind: ConstInt, Int: v} }
func RealValue(v float64) ConstValue { return ConstValue{Kind: ConstReal, Real: v} }
func BoolValue(b bool) ConstValue {
	if b {
		return ConstValue{Kind: ConstBool, Int: 1}
	}
	return ConstValue{Kind: ConstBool}
}

// AsInt returns integer and boolean values as int64.
func (v ConstValue) AsInt() (int64, bool) {
	switch v.Kind {
	case ConstInt, ConstBool:
		return v.Int, true
	}
	return 0, false
}

func (v ConstValue) asReal() float64 {
	if v.Kind == ConstReal {
		return v.Real
	}
	return float64(v.Int)
}

// EvalConst folds expr as seen from scope. References must name constants
// (CONSTANT variables with an initializer, or enumerators).
func (idx *Index) EvalConst(expr ast.Statement, scope string) (ConstValue, bool) {
	ev := evaluator{idx: idx, visiting: map[*VariableEntry]bool{}}
	return ev.eval(expr, scope)
}

// EvalInt folds expr to an integer.
func (idx *Index) EvalInt(expr ast.Statement, scope string) (int64, bool) {
	v, ok := idx.EvalConst(expr, scope)
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

type evaluator struct {
	idx      *Index
	visiting map[*VariableEntry]bool
}

func (ev *evaluator) eval(expr ast.Statement, scope string) (ConstValue, bool) {
	switch e := expr.(type) {
	case *ast.Literal:
		switch e.Kind {
		case ast.LitInteger, ast.LitTime, ast.LitDate, ast.LitTimeOfDay, ast.LitDateTime:
			return IntValue(e.Int), true
		case ast.LitReal:
			return RealValue(e.Real), true
		case ast.LitBool:
			return BoolValue(e.Int != 0), true
		case ast.LitString, ast.LitWString:
			return ConstValue{Kind: ConstString, Str: e.Str}, true
		}
	case *ast.ParenExpr:
		return ev.eval(e.Inner, scope)
	case *ast.CastExpr:
		if t := ev.idx.FindEffectiveTypeInfo(e.TypeName); t.IsEnum() {
			if ref, ok := e.Target.(*ast.Reference); ok {
				if v, ok := t.Variant(ref.Name); ok {
					return IntValue(v.Value), true
				}
				return ConstValue{}, false
			}
		}
		v, ok := ev.eval(e.Target, scope)
		if !ok {
			return v, false
		}
		return ev.cast(v, e.TypeName), true
	case *ast.UnaryExpr:
		v, ok := ev.eval(e.Operand, scope)
		if !ok {
			return v, false
		}
		return unary(e.Op, v)
	case *ast.BinaryExpr:
		l, ok := ev.eval(e.Left, scope)
		if !ok {
			return l, false
		}
		r, ok := ev.eval(e.Right, scope)
		if !ok {
			return r, false
		}
		return binary(e.Op, l, r)
	case *ast.Reference, *ast.MemberAccess:
		segs := ast.SegmentsOf(expr)
		if segs == nil {
			return ConstValue{}, false
		}
		return ev.reference(ev.idx.FindVariable(scope, segs))
	}
	return ConstValue{}, false
}

func (ev *evaluator) reference(v *VariableEntry) (ConstValue, bool) {
	if v == nil || ev.visiting[v] {
		return ConstValue{}, false
	}
	if v.Role == RoleEnumValue {
		if t := ev.idx.FindEffectiveTypeInfo(v.Container); t != nil {
			if variant, ok := t.Variant(v.Name); ok {
				return IntValue(variant.Value), true
			}
		}
		return ConstValue{}, false
	}
	if !v.Constant || v.Initial == nil {
		return ConstValue{}, false
	}
	ev.visiting[v] = true
	defer delete(ev.visiting, v)
	val, ok := ev.eval(v.Initial, v.Container)
	if !ok {
		return val, false
	}
	return ev.cast(val, v.Type), true
}

// cast wraps integers to the width of typeName and converts between int
// and real the way a typed literal would.
func (ev *evaluator) cast(v ConstValue, typeName string) ConstValue {
	t := ev.idx.FindEffectiveTypeInfo(typeName)
	if t == nil {
		return v
	}
	switch {
	case t.IsFloat() && v.Kind == ConstInt:
		return RealValue(float64(v.Int))
	case t.Kind == types.KindInteger && v.Kind == ConstReal:
		return IntValue(wrap(int64(math.Trunc(v.Real)), t))
	case t.Kind == types.KindInteger && v.Kind == ConstInt:
		return IntValue(wrap(v.Int, t))
	case t.IsBool() && v.Kind == ConstInt:
		return BoolValue(v.Int != 0)
	}
	return v
}

func wrap(n int64, t *types.Info) int64 {
	if t.Bits == 0 || t.Bits >= 64 {
		return n
	}
	shift := 64 - t.Bits
	if t.Signed {
		return n << shift >> shift
	}
	return int64(uint64(n) << shift >> shift)
}

func unary(op ast.Operator, v ConstValue) (ConstValue, bool) {
	switch op {
	case ast.OpMinus:
		switch v.Kind {
		case ConstInt:
			return IntValue(-v.Int), true
		case ConstReal:
			return RealValue(-v.Real), true
		}
	case ast.OpPlus:
		if v.Kind == ConstInt || v.Kind == ConstReal {
			return v, true
		}
	case ast.OpNot:
		switch v.Kind {
		case ConstBool:
			return BoolValue(v.Int == 0), true
		case ConstInt:
			return IntValue(^v.Int), true
		}
	}
	return ConstValue{}, false
}

func binary(op ast.Operator, l, r ConstValue) (ConstValue, bool) {
	if l.Kind == ConstString || r.Kind == ConstString {
		if l.Kind == r.Kind {
			switch op {
			case ast.OpEqual:
				return BoolValue(l.Str == r.Str), true
			case ast.OpNotEqual:
				return BoolValue(l.Str != r.Str), true
			}
		}
		return ConstValue{}, false
	}
	if l.Kind == ConstReal || r.Kind == ConstReal {
		return binaryReal(op, l.asReal(), r.asReal())
	}
	a, b := l.Int, r.Int
	boolean := l.Kind == ConstBool && r.Kind == ConstBool
	switch op {
	case ast.OpPlus:
		return IntValue(a + b), true
	case ast.OpMinus:
		return IntValue(a - b), true
	case ast.OpMultiply:
		return IntValue(a * b), true
	case ast.OpDivide:
		if b == 0 {
			return ConstValue{}, false
		}
		return IntValue(a / b), true
	case ast.OpModulo:
		if b == 0 {
			return ConstValue{}, false
		}
		return IntValue(a % b), true
	case ast.OpPower:
		if b < 0 {
			return ConstValue{}, false
		}
		n := int64(1)
		for i := int64(0); i < b; i++ {
			n *= a
		}
		return IntValue(n), true
	case ast.OpAnd:
		if boolean {
			return BoolValue(a != 0 && b != 0), true
		}
		return IntValue(a & b), true
	case ast.OpOr:
		if boolean {
			return BoolValue(a != 0 || b != 0), true
		}
		return IntValue(a | b), true
	case ast.OpXor:
		if boolean {
			return BoolValue((a != 0) != (b != 0)), true
		}
		return IntValue(a ^ b), true
	case ast.OpEqual:
		return BoolValue(a == b), true
	case ast.OpNotEqual:
		return BoolValue(a != b), true
	case ast.OpLess:
		return BoolValue(a < b), true
	case ast.OpLessOrEqual:
		return BoolValue(a <= b), true
	case ast.OpGreater:
		return BoolValue(a > b), true
	case ast.OpGreaterOrEqual:
		return BoolValue(a >= b), true
	}
	return ConstValue{}, false
}

func binaryReal(op ast.Operator, a, b float64) (ConstValue, bool) {
	switch op {
	case ast.OpPlus:
		return RealValue(a + b), true
	case ast.OpMinus:
		return RealValue(a - b), true
	case ast.OpMultiply:
		return RealValue(a * b), true
	case ast.OpDivide:
		return RealValue(a / b), true
	case ast.OpPower:
		return RealValue(math.Pow(a, b)), true
	case ast.OpEqual:
		return BoolValue(a == b), true
	case ast.OpNotEqual:
		return BoolValue(a != b), true
	case ast.OpLess:
		return BoolValue(a < b), true
	case ast.OpLessOrEqual:
		return BoolValue(a <= b), true
	case ast.OpGreater:
		return BoolValue(a > b), true
	case ast.OpGreaterOrEqual:
		return BoolValue(a >= b), true
	}
	return ConstValue{}, false
}
