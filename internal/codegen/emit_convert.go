package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	irtypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"plcc/internal/ast"
	"plcc/internal/types"
)

// intrinsic declares an external function once per module.
func (e *Emitter) intrinsic(name string, ret irtypes.Type, params ...irtypes.Type) *ir.Func {
	if f, ok := e.intrinsics[name]; ok {
		return f
	}
	if f, ok := e.funcs[types.Key(name)]; ok {
		e.intrinsics[name] = f
		return f
	}
	ps := make([]*ir.Param, len(params))
	for i, p := range params {
		ps[i] = ir.NewParam("", p)
	}
	f := e.mod.NewFunc(name, ret, ps...)
	e.intrinsics[name] = f
	return f
}

func (e *Emitter) memcpy() *ir.Func {
	return e.intrinsic("llvm.memcpy.p0i8.p0i8.i64", voidType, bytePtr, bytePtr, i64, irtypes.I1)
}

// convert turns v, a value of type from, into a value of type to. The
// validator has rejected every conversion that has no representation.
func (fe *funcEmitter) convert(v value.Value, from, to *types.Info, n ast.Node) value.Value {
	if from == nil || to == nil {
		return v
	}
	e := fe.e
	target := e.llType(to)
	src := v.Type()
	if src.Equal(target) {
		return v
	}
	b := fe.cur
	switch s := src.(type) {
	case *irtypes.IntType:
		switch t := target.(type) {
		case *irtypes.IntType:
			if t.BitSize == 1 && s.BitSize > 1 {
				return b.NewICmp(enum.IPredNE, v, constant.NewInt(s, 0))
			}
			return fe.resizeInt(v, t, e.signed(from))
		case *irtypes.FloatType:
			if e.signed(from) && s.BitSize > 1 {
				return b.NewSIToFP(v, t)
			}
			return b.NewUIToFP(v, t)
		case *irtypes.PointerType:
			return b.NewIntToPtr(fe.resizeInt(v, i64, false), t)
		}
	case *irtypes.FloatType:
		switch t := target.(type) {
		case *irtypes.FloatType:
			if s.Kind == irtypes.FloatKindFloat {
				return b.NewFPExt(v, t)
			}
			return b.NewFPTrunc(v, t)
		case *irtypes.IntType:
			if t.BitSize == 1 {
				return b.NewFCmp(enum.FPredUNE, v, constant.NewFloat(s, 0))
			}
			if e.signed(to) {
				return b.NewFPToSI(v, t)
			}
			return b.NewFPToUI(v, t)
		}
	case *irtypes.PointerType:
		switch t := target.(type) {
		case *irtypes.PointerType:
			return b.NewBitCast(v, t)
		case *irtypes.IntType:
			return b.NewPtrToInt(v, t)
		}
	case *irtypes.ArrayType, *irtypes.StructType:
		if to.IsAggregate() {
			return fe.reshape(v, from, to)
		}
	}
	panic(internalf(n, "no conversion from %s to %s", from.Name, to.Name))
}

// resizeInt truncates or extends v to t.
func (fe *funcEmitter) resizeInt(v value.Value, t *irtypes.IntType, signed bool) value.Value {
	s, ok := v.Type().(*irtypes.IntType)
	if !ok {
		panic(internalf(nil, "resizing %s as an integer", v.Type()))
	}
	switch {
	case s.BitSize == t.BitSize:
		return v
	case s.BitSize > t.BitSize:
		return fe.cur.NewTrunc(v, t)
	case signed && s.BitSize > 1:
		return fe.cur.NewSExt(v, t)
	}
	return fe.cur.NewZExt(v, t)
}

// reshape reinterprets an aggregate of one shape as another through
// memory: strings of different capacity, and derived structs assigned to
// their base.
func (fe *funcEmitter) reshape(v value.Value, from, to *types.Info) value.Value {
	e := fe.e
	src := fe.alloca(from, "")
	fe.cur.NewStore(v, src)
	dst := fe.alloca(to, "")
	fe.cur.NewStore(e.defaultValue(to, 0), dst)
	fe.copyBytes(dst, src, min(e.sizeOf(from), e.sizeOf(to)))
	if to.IsString() && from.IsString() && from.Size > to.Size {
		fe.terminate(dst, to)
	}
	return fe.cur.NewLoad(e.llType(to), dst)
}

// copyBytes copies n bytes between two addresses.
func (fe *funcEmitter) copyBytes(dst, src value.Value, n int64) {
	fe.cur.NewCall(fe.e.memcpy(),
		fe.cur.NewBitCast(dst, bytePtr),
		fe.cur.NewBitCast(src, bytePtr),
		constant.NewInt(i64, n),
		constant.False)
}

// terminate writes the terminator into the last code unit of a string.
func (fe *funcEmitter) terminate(ptr value.Value, t *types.Info) {
	last := fe.cur.NewGetElementPtr(fe.e.llType(t), ptr, constant.NewInt(i64, 0), constant.NewInt(i64, t.Size-1))
	fe.cur.NewStore(constant.NewInt(charType(t), 0), last)
}

// store assigns the value of src to the storage dst.
func (fe *funcEmitter) store(dst GeneratedValue, src ast.Statement) {
	ptr := fe.address(dst)
	t := dst.Type
	if t.IsString() {
		if from := fe.e.info(fe.ann(src).Type); from.IsString() && from.Size != t.Size {
			fe.storeString(ptr, t, src, from)
			return
		}
	}
	fe.cur.NewStore(fe.valueAs(src, t), ptr)
}

// storeString copies a string of another capacity: as much as fits, then
// a terminator when the source was cut.
func (fe *funcEmitter) storeString(ptr value.Value, t *types.Info, src ast.Statement, from *types.Info) {
	fe.hints.Push(t)
	gv := fe.emit(src)
	fe.hints.Pop()
	if gv.Kind != LValue || gv.Type == nil || gv.Type.Size == t.Size {
		fe.cur.NewStore(fe.convert(fe.load(gv), gv.Type, t, src), ptr)
		return
	}
	from = gv.Type
	fe.copyBytes(ptr, gv.V, min(fe.e.sizeOf(from), fe.e.sizeOf(t)))
	if from.Size > t.Size {
		fe.terminate(ptr, t)
	}
}

// storeValue stores an already computed value of type from.
func (fe *funcEmitter) storeValue(v value.Value, from *types.Info, dst GeneratedValue, n ast.Node) {
	fe.cur.NewStore(fe.convert(v, from, dst.Type, n), fe.address(dst))
}
