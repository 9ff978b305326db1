package codegen

import (
	"strings"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	irtypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"plcc/internal/ast"
	"plcc/internal/index"
	"plcc/internal/resolver"
	"plcc/internal/types"
)

func (fe *funcEmitter) call(n *ast.CallStatement) GeneratedValue {
	e := fe.e
	op := fe.ann(n.Operator)
	if op.Builtin {
		return fe.builtin(n, op)
	}
	switch op.Kind {
	case resolver.Function:
		p := e.idx.FindPou(op.Name())
		if p == nil {
			panic(internalf(n, "call of unknown POU %s", op.Name()))
		}
		if p.Kind.IsStateful() {
			return fe.callStateful(n, p, lvalue(fe.global(n, p.Name), e.mustInfo(p.Name), n))
		}
		f := e.funcs[types.Key(p.Name)]
		if f == nil {
			panic(internalf(n, "function %s was not emitted", p.Name))
		}
		return fe.callFunction(n, p, f)
	case resolver.Variable, resolver.Value:
		p := e.idx.FindPou(op.Type)
		if p == nil {
			break
		}
		if p.Kind.IsStateful() {
			return fe.callStateful(n, p, fe.spill(fe.emit(n.Operator), n.Operator))
		}
		if d, ok := n.Operator.(*ast.Deref); ok {
			ptr := fe.load(fe.emit(d.Base))
			want := irtypes.NewPointer(e.signature(p))
			if !ptr.Type().Equal(want) {
				ptr = fe.cur.NewBitCast(ptr, want)
			}
			return fe.callFunction(n, p, ptr)
		}
	}
	panic(internalf(n, "%s is not callable", describeNode(n.Operator)))
}

// writeback copies a temporary output into its target after a call.
type writeback struct {
	tmp    value.Value
	t      *types.Info
	target GeneratedValue
	node   ast.Node
}

// callFunction calls a non-stateful POU. Unbound inputs take their
// declared default; unbound outputs land in a scratch slot.
func (fe *funcEmitter) callFunction(n *ast.CallStatement, p *index.PouEntry, callee value.Value) GeneratedValue {
	e := fe.e
	bound, _ := resolver.BindArguments(e.idx, p.Name, n.Args)
	byParam := make(map[*index.VariableEntry]resolver.ArgBinding, len(bound))
	for _, b := range bound {
		byParam[b.Param] = b
	}
	params := e.idx.Parameters(p.Name)
	args := make([]value.Value, len(params))
	var after []writeback
	for i, prm := range params {
		t := e.mustInfo(prm.Type)
		b, ok := byParam[prm]
		switch prm.Kind {
		case ast.VarInOut:
			if !ok {
				args[i] = constant.NewNull(e.llType(t).(*irtypes.PointerType))
				continue
			}
			args[i] = fe.inOutArgument(b.Value, t)
		case ast.VarOutput:
			if ok && b.Value != nil {
				target := fe.emit(b.Value)
				if target.Kind == LValue && e.llType(target.Type).Equal(e.llType(t)) {
					args[i] = target.V
					continue
				}
				tmp := fe.scratch(t)
				args[i] = tmp
				after = append(after, writeback{tmp: tmp, t: t, target: target, node: b.Arg})
				continue
			}
			args[i] = fe.scratch(t)
		default:
			var v value.Value
			if ok {
				v = fe.valueAs(b.Value, t)
			} else {
				v = e.initialValue(prm.Initial, t, p.Name)
			}
			if byReference(t) {
				tmp := fe.alloca(t, "")
				fe.cur.NewStore(v, tmp)
				v = tmp
			}
			args[i] = v
		}
	}
	result := fe.cur.NewCall(callee, args...)
	for _, w := range after {
		fe.storeValue(fe.cur.NewLoad(e.llType(w.t), w.tmp), w.t, w.target, w.node)
	}
	ret := e.idx.ReturnType(p.Name)
	if ret == nil || ret.IsVoid() {
		return noValue(n)
	}
	return rvalue(result, ret, n)
}

// scratch is a defaulted temporary of type t.
func (fe *funcEmitter) scratch(t *types.Info) value.Value {
	tmp := fe.alloca(t, "")
	fe.cur.NewStore(fe.e.defaultValue(t, 0), tmp)
	return tmp
}

// inOutArgument passes the address of s for a VAR_IN_OUT of type ref.
// Fixed arrays bound to ARRAY[*] are wrapped in a fat pointer.
func (fe *funcEmitter) inOutArgument(s ast.Statement, ref *types.Info) value.Value {
	e := fe.e
	inner := e.mustInfo(ref.Inner)
	gv := fe.emit(s)
	ptr := fe.address(gv)
	if inner.Kind == types.KindVarLengthArray && gv.Type.Kind == types.KindArray {
		return fe.fatPointer(ptr, gv.Type, inner)
	}
	want := e.llType(ref)
	if ptr.Type().Equal(want) {
		return ptr
	}
	return fe.cur.NewBitCast(ptr, want)
}

// fatPointer describes the fixed array at ptr as an ARRAY[*] of type vla.
func (fe *funcEmitter) fatPointer(ptr value.Value, arr, vla *types.Info) value.Value {
	e := fe.e
	vt := e.vlaType(vla)
	fat := fe.allocaOf(vt)
	data := fe.cur.NewGetElementPtr(e.llType(arr), ptr, constant.NewInt(i64, 0), constant.NewInt(i64, 0))
	slot := fe.cur.NewGetElementPtr(vt, fat, constant.NewInt(i32, 0), constant.NewInt(i32, 0))
	fe.cur.NewStore(fe.cur.NewBitCast(data, vt.Fields[0]), slot)
	for k, d := range arr.Dims {
		for j, bound := range [2]int64{d.Start, d.End} {
			p := fe.cur.NewGetElementPtr(vt, fat, constant.NewInt(i32, 0), constant.NewInt(i32, 1), constant.NewInt(i32, int64(2*k+j)))
			fe.cur.NewStore(constant.NewInt(i32, bound), p)
		}
	}
	return fat
}

// callStateful runs an FB instance or a program: inputs are stored into
// the instance, the body runs, outputs are copied out.
func (fe *funcEmitter) callStateful(n *ast.CallStatement, p *index.PouEntry, inst GeneratedValue) GeneratedValue {
	e := fe.e
	self := fe.address(inst)
	st := e.mustInfo(p.InstanceStruct())
	self = fe.castPointer(self, st)
	bound, _ := resolver.BindArguments(e.idx, p.Name, n.Args)
	var outs []resolver.ArgBinding
	for _, b := range bound {
		f, i, ok := st.Field(b.Param.Name)
		if !ok {
			panic(internalf(b.Arg, "%s has no field %s", st.Name, b.Param.Name))
		}
		ft := e.mustInfo(f.Type)
		switch {
		case b.Output:
			outs = append(outs, b)
		case b.Param.Kind == ast.VarInOut:
			fe.cur.NewStore(fe.inOutArgument(b.Value, ft), fe.fieldAddress(self, st, i))
		default:
			fe.store(lvalue(fe.fieldAddress(self, st, i), ft, b.Arg), b.Value)
		}
	}
	f := e.funcs[types.Key(p.Name)]
	if f == nil {
		panic(internalf(n, "%s was not emitted", p.Name))
	}
	fe.cur.NewCall(f, self)
	for _, b := range outs {
		if b.Value == nil {
			continue
		}
		f, i, _ := st.Field(b.Param.Name)
		ft := e.mustInfo(f.Type)
		v := fe.cur.NewLoad(e.llType(ft), fe.fieldAddress(self, st, i))
		fe.storeValue(v, ft, fe.emit(b.Value), b.Arg)
	}
	return noValue(n)
}

// builtinArgs strips `name :=` from builtin arguments.
func builtinArgs(args []ast.Statement) []ast.Statement {
	out := make([]ast.Statement, 0, len(args))
	for _, a := range args {
		switch v := a.(type) {
		case *ast.Assignment:
			out = append(out, v.Right)
		case *ast.OutputAssignment:
			out = append(out, v.Right)
		default:
			out = append(out, a)
		}
	}
	return out
}

func (fe *funcEmitter) builtin(n *ast.CallStatement, op resolver.Annotation) GeneratedValue {
	e := fe.e
	args := builtinArgs(n.Args)
	result := e.info(fe.ann(n).Type)
	switch strings.ToUpper(op.Qualified) {
	case "REF":
		return fe.addressOf(n, args[0], result, false)
	case "ADR":
		return fe.addressOf(n, args[0], result, true)
	case "SIZEOF":
		t := e.mustInfo(e.m.TypeOf(args[0]))
		return rvalue(constant.NewInt(e.intType(result), e.sizeOf(t)), result, n)
	case "MOVE":
		return rvalue(fe.valueAs(args[0], result), result, n)
	case "SEL":
		g := fe.valueAs(args[0], e.mustInfo(types.BOOL))
		in0, in1 := fe.valueAs(args[1], result), fe.valueAs(args[2], result)
		return rvalue(fe.cur.NewSelect(g, in1, in0), result, n)
	case "MUX":
		k := fe.load(fe.emit(args[0]))
		vals := fe.values(args[1:], result)
		v := vals[len(vals)-1]
		kt := k.Type().(*irtypes.IntType)
		for i := len(vals) - 2; i >= 0; i-- {
			hit := fe.cur.NewICmp(enum.IPredEQ, k, constant.NewInt(kt, int64(i)))
			v = fe.cur.NewSelect(hit, vals[i], v)
		}
		return rvalue(v, result, n)
	case "MAX", "MIN":
		pick := ast.OpGreater
		if strings.EqualFold(op.Qualified, "MIN") {
			pick = ast.OpLess
		}
		vals := fe.values(args, result)
		acc := vals[0]
		for _, v := range vals[1:] {
			acc = fe.cur.NewSelect(fe.compare(pick, v, acc, e.signed(result)), v, acc)
		}
		return rvalue(acc, result, n)
	case "LIMIT":
		vals := fe.values(args, result)
		lo, in, hi := vals[0], vals[1], vals[2]
		signed := e.signed(result)
		v := fe.cur.NewSelect(fe.compare(ast.OpLess, in, lo, signed), lo, in)
		v = fe.cur.NewSelect(fe.compare(ast.OpGreater, v, hi, signed), hi, v)
		return rvalue(v, result, n)
	case "LOWER_BOUND", "UPPER_BOUND":
		return fe.bound(n, args, result, strings.EqualFold(op.Qualified, "UPPER_BOUND"))
	}
	b, ok := resolver.LookupBuiltin(op.Qualified)
	if !ok || !b.IsConversion() {
		panic(internalf(n, "builtin %s has no lowering", op.Qualified))
	}
	from, to := e.mustInfo(b.From), e.mustInfo(b.To)
	if from.IsString() || to.IsString() {
		return fe.runtimeConversion(n, b.Name, args[0], from, to)
	}
	return rvalue(fe.valueAs(args[0], to), to, n)
}

// values emits args as values of type t.
func (fe *funcEmitter) values(args []ast.Statement, t *types.Info) []value.Value {
	out := make([]value.Value, len(args))
	for i, a := range args {
		out[i] = fe.valueAs(a, t)
	}
	return out
}

func (fe *funcEmitter) addressOf(n *ast.CallStatement, arg ast.Statement, result *types.Info, integer bool) GeneratedValue {
	e := fe.e
	var ptr value.Value
	if a, ok := e.m.Get(arg); ok && a.Kind == resolver.Function && !a.Builtin {
		f := e.funcs[types.Key(a.Name())]
		if f == nil {
			panic(internalf(arg, "function %s was not emitted", a.Name()))
		}
		ptr = f
	} else {
		ptr = fe.address(fe.emit(arg))
	}
	if integer {
		return rvalue(fe.cur.NewPtrToInt(ptr, fe.e.llType(result).(*irtypes.IntType)), result, n)
	}
	want := e.pointerType(result)
	if !ptr.Type().Equal(want) {
		ptr = fe.cur.NewBitCast(ptr, want)
	}
	return rvalue(ptr, result, n)
}

// bound implements LOWER_BOUND and UPPER_BOUND. Dimensions count from 1.
func (fe *funcEmitter) bound(n *ast.CallStatement, args []ast.Statement, result *types.Info, upper bool) GeneratedValue {
	e := fe.e
	gv := fe.emit(args[0])
	out := e.intType(result)
	t := gv.Type
	if t.Kind == types.KindArray {
		dim, ok := e.idx.EvalInt(args[1], fe.pou.Name)
		if !ok || dim < 1 || int(dim) > len(t.Dims) {
			panic(internalf(args[1], "dimension of a fixed array must be a constant in range"))
		}
		d := t.Dims[dim-1]
		v := d.Start
		if upper {
			v = d.End
		}
		return rvalue(constant.NewInt(out, v), result, n)
	}
	if t.Kind != types.KindVarLengthArray {
		panic(internalf(args[0], "bounds of %s, which is not an array", t.Name))
	}
	vt := e.vlaType(t)
	fat := fe.address(gv)
	var slot value.Value
	if dim, ok := e.idx.EvalInt(args[1], fe.pou.Name); ok {
		i := 2 * (dim - 1)
		if upper {
			i++
		}
		slot = constant.NewInt(i32, i)
	} else {
		d := fe.resizeInt(fe.load(fe.emit(args[1])), i32, true)
		i := fe.cur.NewMul(fe.cur.NewSub(d, constant.NewInt(i32, 1)), constant.NewInt(i32, 2))
		slot = i
		if upper {
			slot = fe.cur.NewAdd(i, constant.NewInt(i32, 1))
		}
	}
	p := fe.cur.NewGetElementPtr(vt, fat, constant.NewInt(i32, 0), constant.NewInt(i32, 1), slot)
	return rvalue(fe.resizeInt(fe.cur.NewLoad(i32, p), out, true), result, n)
}

// runtimeConversion calls the runtime for conversions from and to
// strings. Strings are passed by pointer and returned by value.
func (fe *funcEmitter) runtimeConversion(n *ast.CallStatement, name string, arg ast.Statement, from, to *types.Info) GeneratedValue {
	e := fe.e
	param := e.llType(from)
	var v value.Value
	if from.IsString() {
		param = irtypes.NewPointer(param)
		gv := fe.spill(fe.emit(arg), arg)
		v = fe.castPointer(gv.V, from)
	} else {
		v = fe.valueAs(arg, from)
	}
	f := e.intrinsic(name, e.llType(to), param)
	return rvalue(fe.cur.NewCall(f, v), to, n)
}
