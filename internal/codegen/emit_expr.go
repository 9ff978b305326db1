package codegen

import (
	"strings"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	irtypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"plcc/internal/ast"
	"plcc/internal/resolver"
	"plcc/internal/types"
)

var (
	voidType = irtypes.Void
	i64      = irtypes.I64
	i32      = irtypes.I32
)

// emit lowers one expression.
func (fe *funcEmitter) emit(s ast.Statement) GeneratedValue {
	switch n := s.(type) {
	case *ast.Literal:
		return fe.literal(n)
	case *ast.Reference:
		return fe.reference(n)
	case *ast.MemberAccess:
		return fe.member(n)
	case *ast.ArrayAccess:
		return fe.arrayAccess(n)
	case *ast.Deref:
		return fe.deref(n)
	case *ast.ThisRef:
		t := fe.e.mustInfo(fe.ann(n).Type)
		if fe.self == nil {
			panic(internalf(n, "THIS outside of an instance"))
		}
		v := fe.self
		if want := fe.e.llType(t); !v.Type().Equal(want) {
			v = fe.cur.NewBitCast(v, want)
		}
		return rvalue(v, t, n)
	case *ast.ParenExpr:
		return fe.emit(n.Inner)
	case *ast.BinaryExpr:
		return fe.binary(n)
	case *ast.UnaryExpr:
		return fe.unary(n)
	case *ast.CastExpr:
		return fe.cast(n)
	case *ast.CallStatement:
		return fe.call(n)
	case *ast.ArrayLiteral, *ast.StructLiteral:
		return fe.aggregateLiteral(s)
	}
	panic(internalf(s, "cannot emit %T as an expression", s))
}

// load turns a generated value into a value of its type.
func (fe *funcEmitter) load(gv GeneratedValue) value.Value {
	switch gv.Kind {
	case RValue:
		return gv.V
	case LValue:
		return fe.cur.NewLoad(fe.e.llType(gv.Type), gv.V)
	}
	panic(&InternalError{Msg: "expected a value, found " + gv.Kind.String(), Node: gv.Node})
}

// address demands storage. RValues are never silently spilled here: the
// validator has rejected every user program that would need it.
func (fe *funcEmitter) address(gv GeneratedValue) value.Value {
	if gv.Kind != LValue {
		panic(&InternalError{Msg: "expected an lvalue, found " + gv.Kind.String(), Node: gv.Node})
	}
	return gv.V
}

// spill gives an aggregate rvalue storage so it can be indexed.
func (fe *funcEmitter) spill(gv GeneratedValue, n ast.Node) GeneratedValue {
	if gv.Kind == LValue {
		return gv
	}
	v := fe.load(gv)
	a := fe.alloca(gv.Type, "")
	fe.cur.NewStore(v, a)
	return lvalue(a, gv.Type, n)
}

// valueAs emits s under the hint t and converts the result to t.
func (fe *funcEmitter) valueAs(s ast.Statement, t *types.Info) value.Value {
	fe.hints.Push(t)
	gv := fe.emit(s)
	fe.hints.Pop()
	return fe.convert(fe.load(gv), gv.Type, t, s)
}

// operandType is the type an operand takes part in its parent's operation.
func (fe *funcEmitter) operandType(s ast.Statement) *types.Info {
	fe.ann(s)
	return fe.e.mustInfo(fe.e.m.HintOrType(s))
}

func (fe *funcEmitter) literal(n *ast.Literal) GeneratedValue {
	e := fe.e
	t := e.mustInfo(fe.ann(n).Type)
	if h := fe.hints.Top(); h != nil && literalFits(n, h) {
		t = h
	}
	switch n.Kind {
	case ast.LitString, ast.LitWString:
		return rvalue(e.stringConstant(n.Str, t), t, n)
	case ast.LitNull:
		if !t.IsPointer() {
			return rvalue(constant.NewNull(bytePtr), t, n)
		}
		return rvalue(constant.NewNull(e.pointerType(t)), t, n)
	case ast.LitReal:
		if ft, ok := e.llType(t).(*irtypes.FloatType); ok {
			return rvalue(constant.NewFloat(ft, n.Real), t, n)
		}
	}
	switch typ := e.llType(t).(type) {
	case *irtypes.IntType:
		return rvalue(constant.NewInt(typ, n.Int), t, n)
	case *irtypes.FloatType:
		return rvalue(constant.NewFloat(typ, float64(n.Int)), t, n)
	}
	panic(internalf(n, "literal %s cannot be a %s", n.Raw, t.Name))
}

// literalFits reports hints a literal can be emitted in directly.
func literalFits(n *ast.Literal, h *types.Info) bool {
	switch n.Kind {
	case ast.LitInteger:
		return h.IsInteger() || h.IsFloat() || h.IsEnum()
	case ast.LitReal:
		return h.IsFloat()
	case ast.LitBool:
		return h.IsBool()
	case ast.LitString:
		return h.IsString() && h.Encoding == types.UTF8
	case ast.LitWString:
		return h.IsString() && h.Encoding == types.UTF16
	case ast.LitTime, ast.LitDate, ast.LitTimeOfDay, ast.LitDateTime:
		return h.IsInteger()
	case ast.LitNull:
		return h.IsPointer()
	}
	return false
}

func (fe *funcEmitter) reference(n *ast.Reference) GeneratedValue {
	ann := fe.ann(n)
	switch ann.Kind {
	case resolver.Variable:
		if v, ok := fe.e.enumerator(n); ok {
			t := fe.e.mustInfo(ann.Type)
			return rvalue(constant.NewInt(fe.e.intType(t), v), t, n)
		}
		return fe.variable(n, ann)
	case resolver.Function:
		if f := fe.e.funcs[types.Key(ann.Name())]; f != nil {
			return rvalue(f, nil, n)
		}
	}
	panic(internalf(n, "%s does not denote a value", n.Name))
}

// variable locates the storage a variable annotation refers to.
func (fe *funcEmitter) variable(n ast.Node, ann resolver.Annotation) GeneratedValue {
	e := fe.e
	container, name := splitQualified(ann.Qualified)
	declared := e.mustInfo(ann.Type)
	var ptr value.Value
	var stored *types.Info
	switch {
	case ann.Global || container == "":
		ptr = fe.global(n, name)
		stored = declared
		if g := e.idx.FindGlobal(name); g != nil {
			stored = e.mustInfo(g.Type)
		}
	default:
		if s, ok := fe.locals[types.Key(name)]; ok && types.SameName(container, fe.pou.Name) {
			ptr, stored = s.ptr, s.t
			break
		}
		if m := e.idx.FindLocalMember(container, name); m != nil && m.Kind == ast.VarExternal {
			ptr = fe.global(n, name)
			stored = e.mustInfo(m.Type)
			break
		}
		if fe.self == nil || !types.SameName(container, fe.pou.InstanceStruct()) {
			panic(internalf(n, "%s is not reachable from %s", ann.Qualified, fe.pou.Name))
		}
		inst := e.mustInfo(fe.pou.InstanceStruct())
		f, i, ok := inst.Field(name)
		if !ok {
			panic(internalf(n, "%s has no field %s", inst.Name, name))
		}
		ptr = fe.fieldAddress(fe.self, inst, i)
		stored = e.mustInfo(f.Type)
	}
	if ann.AutoDeref {
		p := fe.cur.NewLoad(e.llType(stored), ptr)
		return lvalue(p, declared, n)
	}
	return lvalue(ptr, stored, n)
}

func (fe *funcEmitter) global(n ast.Node, name string) value.Value {
	g := fe.e.globals[types.Key(name)]
	if g == nil {
		panic(internalf(n, "global %s was not emitted", name))
	}
	return g
}

func splitQualified(q string) (container, name string) {
	if i := strings.LastIndexByte(q, '.'); i >= 0 {
		return q[:i], q[i+1:]
	}
	return "", q
}

// fieldAddress is the address of field i of the struct at ptr.
func (fe *funcEmitter) fieldAddress(ptr value.Value, st *types.Info, i int) value.Value {
	return fe.cur.NewGetElementPtr(fe.e.structType(st.Name), ptr,
		constant.NewInt(i32, 0), constant.NewInt(i32, int64(i)))
}

func (fe *funcEmitter) member(n *ast.MemberAccess) GeneratedValue {
	e := fe.e
	if d, ok := n.Member.(*ast.DirectAccess); ok {
		base := fe.emit(n.Base)
		return fe.bitRead(base, d, n)
	}
	ann := fe.ann(n)
	if v, ok := e.enumerator(n); ok {
		t := e.mustInfo(ann.Type)
		return rvalue(constant.NewInt(e.intType(t), v), t, n)
	}
	if ann.Kind == resolver.Variable && ann.Global {
		if b, ok := e.m.Get(n.Base); ok && b.Kind == resolver.Type {
			return fe.variable(n, ann)
		}
	}
	ref, ok := n.Member.(*ast.Reference)
	if !ok {
		panic(internalf(n, "member access without a member name"))
	}
	if ann.Kind == resolver.Function {
		return fe.reference(ref)
	}
	base := fe.spill(fe.emit(n.Base), n.Base)
	st := base.Type
	if st == nil || st.Kind != types.KindStruct {
		panic(internalf(n, "member %s of a non-struct value", ref.Name))
	}
	f, i, ok := st.Field(ref.Name)
	if !ok {
		panic(internalf(n, "%s has no field %s", st.Name, ref.Name))
	}
	ptr := fe.fieldAddress(base.V, st, i)
	ft := e.mustInfo(f.Type)
	if ann.AutoDeref {
		return lvalue(fe.cur.NewLoad(e.llType(ft), ptr), e.mustInfo(ann.Type), n)
	}
	return lvalue(ptr, ft, n)
}

// bitRead extracts `x.%Xn` and its wider siblings.
func (fe *funcEmitter) bitRead(base GeneratedValue, d *ast.DirectAccess, n ast.Node) GeneratedValue {
	e := fe.e
	v := fe.load(base)
	it, ok := v.Type().(*irtypes.IntType)
	if !ok {
		panic(internalf(n, "bit access on a non-integer"))
	}
	shift := fe.bitShift(d, it)
	shifted := value.Value(v)
	if !isZeroShift(shift) {
		shifted = fe.cur.NewLShr(v, shift)
	}
	width := d.Kind.Bits()
	t := e.mustInfo(fe.ann(n).Type)
	out := e.llType(t).(*irtypes.IntType)
	if uint64(width) >= it.BitSize {
		return rvalue(fe.resizeInt(shifted, out, false), t, n)
	}
	return rvalue(fe.cur.NewTrunc(shifted, out), t, n)
}

// bitShift is the offset of the accessed element in bits, in the type of
// the base value.
func (fe *funcEmitter) bitShift(d *ast.DirectAccess, it *irtypes.IntType) value.Value {
	width := int64(d.Kind.Bits())
	if i, ok := fe.e.idx.EvalInt(d.Index, fe.pou.Name); ok {
		return constant.NewInt(it, i*width)
	}
	ix := fe.resizeInt(fe.load(fe.emit(d.Index)), it, false)
	if width == 1 {
		return ix
	}
	return fe.cur.NewMul(ix, constant.NewInt(it, width))
}

func isZeroShift(v value.Value) bool {
	c, ok := v.(*constant.Int)
	return ok && c.X.Sign() == 0
}

func (fe *funcEmitter) arrayAccess(n *ast.ArrayAccess) GeneratedValue {
	e := fe.e
	base := fe.spill(fe.emit(n.Base), n.Base)
	ptr, t := base.V, base.Type
	indices := n.Indices
	for len(indices) > 0 {
		switch t.Kind {
		case types.KindArray:
			rank := len(t.Dims)
			var linear value.Value = constant.NewInt(i64, 0)
			stride := int64(1)
			for k := rank - 1; k >= 0; k-- {
				i := fe.index(indices[k])
				off := fe.cur.NewSub(i, constant.NewInt(i64, t.Dims[k].Start))
				term := value.Value(off)
				if stride != 1 {
					term = fe.cur.NewMul(off, constant.NewInt(i64, stride))
				}
				linear = fe.add(linear, term)
				stride *= t.Dims[k].Len()
			}
			ptr = fe.cur.NewGetElementPtr(e.llType(t), ptr, constant.NewInt(i64, 0), linear)
			indices = indices[rank:]
		case types.KindVarLengthArray:
			ptr = fe.vlaElement(ptr, t, indices[:t.Rank])
			indices = indices[t.Rank:]
		default:
			panic(internalf(n, "indexing %s, which is not an array", t.Name))
		}
		t = e.mustInfo(t.Inner)
	}
	return lvalue(ptr, t, n)
}

// add folds the zero start of a sum.
func (fe *funcEmitter) add(acc, term value.Value) value.Value {
	if c, ok := acc.(*constant.Int); ok && c.X.Sign() == 0 {
		return term
	}
	return fe.cur.NewAdd(acc, term)
}

// index emits an array index as i64.
func (fe *funcEmitter) index(s ast.Statement) value.Value {
	gv := fe.emit(s)
	return fe.resizeInt(fe.load(gv), i64, fe.e.signed(gv.Type))
}

// vlaElement addresses an element through the fat pointer at fat.
func (fe *funcEmitter) vlaElement(fat value.Value, t *types.Info, indices []ast.Statement) value.Value {
	e := fe.e
	vt := e.vlaType(t)
	elem := e.llType(e.mustInfo(t.Inner))
	data := fe.cur.NewLoad(vt.Fields[0], fe.cur.NewGetElementPtr(vt, fat, constant.NewInt(i32, 0), constant.NewInt(i32, 0)))
	var linear value.Value = constant.NewInt(i64, 0)
	var stride value.Value = constant.NewInt(i64, 1)
	for k := len(indices) - 1; k >= 0; k-- {
		lo := fe.vlaBound(fat, vt, constant.NewInt(i32, int64(2*k)))
		hi := fe.vlaBound(fat, vt, constant.NewInt(i32, int64(2*k+1)))
		off := fe.cur.NewSub(fe.index(indices[k]), lo)
		term := value.Value(off)
		if c, ok := stride.(*constant.Int); !ok || c.X.Int64() != 1 {
			term = fe.cur.NewMul(off, stride)
		}
		linear = fe.add(linear, term)
		if k > 0 {
			n := fe.cur.NewAdd(fe.cur.NewSub(hi, lo), constant.NewInt(i64, 1))
			stride = fe.cur.NewMul(stride, n)
		}
	}
	return fe.cur.NewGetElementPtr(elem, data, linear)
}

// vlaBound loads entry i of the bounds array of a fat pointer as i64.
func (fe *funcEmitter) vlaBound(fat value.Value, vt *irtypes.StructType, i value.Value) value.Value {
	p := fe.cur.NewGetElementPtr(vt, fat, constant.NewInt(i32, 0), constant.NewInt(i32, 1), i)
	return fe.cur.NewSExt(fe.cur.NewLoad(i32, p), i64)
}

func (fe *funcEmitter) deref(n *ast.Deref) GeneratedValue {
	e := fe.e
	ptr := fe.emit(n.Base)
	target := e.mustInfo(fe.ann(n).Type)
	return lvalue(fe.castPointer(fe.load(ptr), target), target, n)
}

// allOnes is the constant with every bit of it set; llir only prints i1
// constants as true or false.
func allOnes(it *irtypes.IntType) *constant.Int {
	if it.BitSize == 1 {
		return constant.True
	}
	return constant.NewInt(it, -1)
}

// castPointer makes p a pointer to storage of type t.
func (fe *funcEmitter) castPointer(p value.Value, t *types.Info) value.Value {
	want := irtypes.NewPointer(fe.e.llType(t))
	if p.Type().Equal(want) {
		return p
	}
	return fe.cur.NewBitCast(p, want)
}

func (fe *funcEmitter) unary(n *ast.UnaryExpr) GeneratedValue {
	t := fe.e.mustInfo(fe.ann(n).Type)
	v := fe.valueAs(n.Operand, t)
	switch n.Op {
	case ast.OpNot:
		return rvalue(fe.cur.NewXor(v, allOnes(v.Type().(*irtypes.IntType))), t, n)
	case ast.OpMinus:
		switch typ := v.Type().(type) {
		case *irtypes.IntType:
			return rvalue(fe.cur.NewSub(constant.NewInt(typ, 0), v), t, n)
		case *irtypes.FloatType:
			return rvalue(fe.cur.NewFNeg(v), t, n)
		}
	case ast.OpPlus:
		return rvalue(v, t, n)
	}
	panic(internalf(n, "unary %s on %s", n.Op, t.Name))
}

func (fe *funcEmitter) cast(n *ast.CastExpr) GeneratedValue {
	e := fe.e
	t := e.mustInfo(n.TypeName)
	if t.IsEnum() {
		if ref, ok := n.Target.(*ast.Reference); ok {
			if v, ok := t.Variant(ref.Name); ok {
				return rvalue(constant.NewInt(e.intType(t), v.Value), t, n)
			}
		}
	}
	return rvalue(fe.valueAs(n.Target, t), t, n)
}

func (fe *funcEmitter) binary(n *ast.BinaryExpr) GeneratedValue {
	e := fe.e
	result := e.mustInfo(fe.ann(n).Type)
	l, r := fe.operandType(n.Left), fe.operandType(n.Right)
	if l.IsPointer() || r.IsPointer() {
		return fe.pointerArithmetic(n, l, r, result)
	}
	op := l
	if !types.SameName(l.Name, r.Name) {
		if p, ok := types.Promote(l, r); ok {
			op = p
		}
	}
	if op.IsString() {
		return fe.compareStrings(n, op, result)
	}
	x, y := fe.valueAs(n.Left, op), fe.valueAs(n.Right, op)
	if n.Op.IsComparison() {
		return rvalue(fe.compare(n.Op, x, y, e.signed(op)), result, n)
	}
	if n.Op == ast.OpPower {
		return rvalue(fe.power(x, y, op, result, n), result, n)
	}
	return rvalue(fe.arithmetic(n, x, y, e.signed(op)), result, n)
}

func (fe *funcEmitter) arithmetic(n *ast.BinaryExpr, x, y value.Value, signed bool) value.Value {
	b := fe.cur
	if _, float := x.Type().(*irtypes.FloatType); float {
		switch n.Op {
		case ast.OpPlus:
			return b.NewFAdd(x, y)
		case ast.OpMinus:
			return b.NewFSub(x, y)
		case ast.OpMultiply:
			return b.NewFMul(x, y)
		case ast.OpDivide:
			return b.NewFDiv(x, y)
		case ast.OpModulo:
			return b.NewFRem(x, y)
		}
		panic(internalf(n, "operator %s on reals", n.Op))
	}
	switch n.Op {
	case ast.OpPlus:
		return b.NewAdd(x, y)
	case ast.OpMinus:
		return b.NewSub(x, y)
	case ast.OpMultiply:
		return b.NewMul(x, y)
	case ast.OpDivide:
		if signed {
			return b.NewSDiv(x, y)
		}
		return b.NewUDiv(x, y)
	case ast.OpModulo:
		if signed {
			return b.NewSRem(x, y)
		}
		return b.NewURem(x, y)
	case ast.OpAnd:
		return b.NewAnd(x, y)
	case ast.OpOr:
		return b.NewOr(x, y)
	case ast.OpXor:
		return b.NewXor(x, y)
	}
	panic(internalf(n, "operator %s on integers", n.Op))
}

var (
	signedPred = map[ast.Operator]enum.IPred{
		ast.OpEqual: enum.IPredEQ, ast.OpNotEqual: enum.IPredNE,
		ast.OpLess: enum.IPredSLT, ast.OpLessOrEqual: enum.IPredSLE,
		ast.OpGreater: enum.IPredSGT, ast.OpGreaterOrEqual: enum.IPredSGE,
	}
	unsignedPred = map[ast.Operator]enum.IPred{
		ast.OpEqual: enum.IPredEQ, ast.OpNotEqual: enum.IPredNE,
		ast.OpLess: enum.IPredULT, ast.OpLessOrEqual: enum.IPredULE,
		ast.OpGreater: enum.IPredUGT, ast.OpGreaterOrEqual: enum.IPredUGE,
	}
	floatPred = map[ast.Operator]enum.FPred{
		ast.OpEqual: enum.FPredOEQ, ast.OpNotEqual: enum.FPredUNE,
		ast.OpLess: enum.FPredOLT, ast.OpLessOrEqual: enum.FPredOLE,
		ast.OpGreater: enum.FPredOGT, ast.OpGreaterOrEqual: enum.FPredOGE,
	}
)

func (fe *funcEmitter) compare(op ast.Operator, x, y value.Value, signed bool) value.Value {
	switch x.Type().(type) {
	case *irtypes.FloatType:
		return fe.cur.NewFCmp(floatPred[op], x, y)
	case *irtypes.PointerType:
		return fe.cur.NewICmp(unsignedPred[op], fe.cur.NewPtrToInt(x, i64), fe.cur.NewPtrToInt(y, i64))
	}
	if signed {
		return fe.cur.NewICmp(signedPred[op], x, y)
	}
	return fe.cur.NewICmp(unsignedPred[op], x, y)
}

// power computes `x ** y` in double precision through llvm.pow.
func (fe *funcEmitter) power(x, y value.Value, op, result *types.Info, n ast.Node) value.Value {
	e := fe.e
	lreal := e.mustInfo(types.LREAL)
	fx := fe.convert(x, op, lreal, n)
	fy := fe.convert(y, op, lreal, n)
	pow := e.intrinsic("llvm.pow.f64", irtypes.Double, irtypes.Double, irtypes.Double)
	return fe.convert(fe.cur.NewCall(pow, fx, fy), lreal, result, n)
}

// compareStrings compares STRINGs through strcmp.
func (fe *funcEmitter) compareStrings(n *ast.BinaryExpr, op, result *types.Info) GeneratedValue {
	if !n.Op.IsComparison() || op.Encoding != types.UTF8 {
		panic(internalf(n, "operator %s on %s", n.Op, op.Name))
	}
	strcmp := fe.e.intrinsic("strcmp", i32, bytePtr, bytePtr)
	x := fe.stringPointer(n.Left)
	y := fe.stringPointer(n.Right)
	c := fe.cur.NewCall(strcmp, x, y)
	return rvalue(fe.cur.NewICmp(signedPred[n.Op], c, constant.NewInt(i32, 0)), result, n)
}

// stringPointer is an i8* to the characters of a string expression.
func (fe *funcEmitter) stringPointer(s ast.Statement) value.Value {
	gv := fe.spill(fe.emit(s), s)
	return fe.cur.NewBitCast(gv.V, bytePtr)
}

// pointerArithmetic offsets pointers by bytes and subtracts them.
func (fe *funcEmitter) pointerArithmetic(n *ast.BinaryExpr, l, r, result *types.Info) GeneratedValue {
	x := fe.pointerInt(n.Left, l)
	y := fe.pointerInt(n.Right, r)
	if n.Op.IsComparison() {
		return rvalue(fe.cur.NewICmp(unsignedPred[n.Op], x, y), result, n)
	}
	var v value.Value
	switch n.Op {
	case ast.OpPlus:
		v = fe.cur.NewAdd(x, y)
	case ast.OpMinus:
		v = fe.cur.NewSub(x, y)
	default:
		panic(internalf(n, "operator %s on pointers", n.Op))
	}
	if result.IsPointer() {
		return rvalue(fe.cur.NewIntToPtr(v, fe.e.pointerType(result)), result, n)
	}
	return rvalue(fe.resizeInt(v, fe.e.llType(result).(*irtypes.IntType), true), result, n)
}

func (fe *funcEmitter) pointerInt(s ast.Statement, t *types.Info) value.Value {
	gv := fe.emit(s)
	v := fe.load(gv)
	if t.IsPointer() {
		return fe.cur.NewPtrToInt(v, i64)
	}
	return fe.resizeInt(v, i64, fe.e.signed(gv.Type))
}

// aggregateLiteral builds an array or struct literal in a temporary.
// Literals that fold are emitted as constants.
func (fe *funcEmitter) aggregateLiteral(s ast.Statement) GeneratedValue {
	e := fe.e
	t := fe.hints.Top()
	if t == nil {
		if ann, ok := e.m.Get(s); ok {
			t = e.info(ann.Type)
		}
	}
	if t == nil || !t.IsAggregate() {
		panic(internalf(s, "aggregate literal without a target type"))
	}
	if c, ok := e.constant(s, t, fe.pou.Name); ok {
		return rvalue(c, t, s)
	}
	tmp := fe.alloca(t, "")
	fe.cur.NewStore(e.defaultValue(t, 0), tmp)
	switch n := s.(type) {
	case *ast.ArrayLiteral:
		inner := e.mustInfo(t.Inner)
		total := t.Elements()
		i := int64(0)
		for _, el := range n.Elements {
			times := int64(1)
			if m, ok := el.(*ast.MultipliedStatement); ok {
				times, el = m.Multiplier, m.Element
			}
			for k := int64(0); k < times && i < total; k++ {
				p := fe.cur.NewGetElementPtr(e.llType(t), tmp, constant.NewInt(i64, 0), constant.NewInt(i64, i))
				fe.store(lvalue(p, inner, el), el)
				i++
			}
		}
	case *ast.StructLiteral:
		for _, a := range n.Fields {
			ref := a.Left.(*ast.Reference)
			f, i, ok := t.Field(ref.Name)
			if !ok {
				panic(internalf(a, "%s has no field %s", t.Name, ref.Name))
			}
			fe.store(lvalue(fe.fieldAddress(tmp, t, i), e.mustInfo(f.Type), a.Left), a.Right)
		}
	}
	return lvalue(tmp, t, s)
}
