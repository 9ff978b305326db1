package codegen

import (
	"github.com/llir/llvm/ir/enum"
	irtypes "github.com/llir/llvm/ir/types"

	"fortio.org/safecast"

	"plcc/internal/ast"
	"plcc/internal/index"
	"plcc/internal/types"
)

var (
	bytePtr       = irtypes.NewPointer(irtypes.I8)
	enumInternal  = enum.LinkageInternal
	enumAppending = enum.LinkageAppending
)

// declareTypes creates the named struct of every user struct, vtable and
// stateful POU up front so that pointers between them resolve.
func (e *Emitter) declareTypes() {
	for _, t := range e.idx.Types().Values() {
		if !t.Builtin && t.Info.Kind == types.KindStruct {
			e.structType(t.Info.Name)
		}
	}
	for _, t := range e.idx.PouTypes().Values() {
		if p := e.idx.FindPou(t.Info.Name); p != nil && (p.Kind.IsStateful() || p.IsInterface()) && !p.IsGeneric() {
			e.structType(t.Info.Name)
		}
	}
}

// structType returns the named struct for a struct type, creating it on
// first use. Its fields are filled after it is registered so that
// self-referencing pointers find it.
func (e *Emitter) structType(name string) *irtypes.StructType {
	k := types.Key(name)
	if st, ok := e.structs[k]; ok {
		return st
	}
	t := e.mustInfo(name)
	st := irtypes.NewStruct()
	e.structs[k] = st
	e.mod.NewTypeDef(t.Name, st)
	for _, f := range t.Fields {
		st.Fields = append(st.Fields, e.llType(e.mustInfo(f.Type)))
	}
	return st
}

// llType maps a type to its LLVM representation.
func (e *Emitter) llType(t *types.Info) irtypes.Type {
	if t == nil {
		return irtypes.Void
	}
	switch t.Kind {
	case types.KindVoid:
		return irtypes.Void
	case types.KindBool:
		return irtypes.I1
	case types.KindInteger:
		return irtypes.NewInt(uint64(t.Bits))
	case types.KindEnum, types.KindSubRange:
		return e.intType(t)
	case types.KindFloat:
		if t.Bits == 32 {
			return irtypes.Float
		}
		return irtypes.Double
	case types.KindString:
		return irtypes.NewArray(length(t.Size), charType(t))
	case types.KindArray:
		return irtypes.NewArray(length(t.Elements()), e.llType(e.mustInfo(t.Inner)))
	case types.KindVarLengthArray:
		return e.vlaType(t)
	case types.KindPointer:
		return e.pointerType(t)
	case types.KindStruct:
		return e.structType(t.Name)
	}
	panic(internalf(nil, "type %s of kind %s has no representation", t.Name, t.Kind))
}

// intType is the integer type enums and subranges are stored as.
func (e *Emitter) intType(t *types.Info) *irtypes.IntType {
	for guard := 0; t != nil && guard < 16; guard++ {
		if t.Bits > 0 {
			return irtypes.NewInt(uint64(t.Bits))
		}
		if t.Inner == "" {
			break
		}
		t = e.info(t.Inner)
	}
	return irtypes.I32
}

func charType(t *types.Info) *irtypes.IntType {
	if t.Encoding == types.UTF16 {
		return irtypes.I16
	}
	return irtypes.I8
}

// length converts an element count that the index guarantees to be
// non-negative.
func length(n int64) uint64 {
	l, err := safecast.Conv[uint64](n)
	if err != nil {
		panic(internalf(nil, "negative length %d", n))
	}
	return l
}

// pointerType maps REF_TO. Pointers to VOID are i8*, pointers to functions
// point at the function's signature.
func (e *Emitter) pointerType(t *types.Info) *irtypes.PointerType {
	if fn := e.functionTarget(t); fn != nil {
		return irtypes.NewPointer(e.signature(fn))
	}
	inner := e.info(t.Inner)
	if inner == nil || inner.IsVoid() {
		return bytePtr
	}
	return irtypes.NewPointer(e.llType(inner))
}

// functionTarget returns the function a pointer type points at, nil for
// pointers to data.
func (e *Emitter) functionTarget(t *types.Info) *index.PouEntry {
	if t == nil || t.Kind != types.KindPointer {
		return nil
	}
	inner := e.info(t.Inner)
	if inner == nil || inner.Origin != types.OriginPou {
		return nil
	}
	p := e.idx.FindPou(inner.Name)
	if p == nil || p.Kind.IsStateful() || p.IsInterface() {
		return nil
	}
	return p
}

// vlaType is the fat pointer of ARRAY[*]: the data pointer followed by
// the lower and upper bound of every dimension.
func (e *Emitter) vlaType(t *types.Info) *irtypes.StructType {
	rank := t.Rank
	if rank <= 0 {
		rank = 1
	}
	elem := e.llType(e.mustInfo(t.Inner))
	return irtypes.NewStruct(irtypes.NewPointer(elem), irtypes.NewArray(length(int64(2*rank)), irtypes.I32))
}

// signature is the function type a POU is emitted with. Stateful POUs take
// their instance; functions take inputs by value (aggregates by pointer),
// in-outs and outputs by pointer, and return their result by value.
func (e *Emitter) signature(p *index.PouEntry) *irtypes.FuncType {
	if p.Kind.IsStateful() || p.Kind == ast.PouAction {
		return irtypes.NewFunc(irtypes.Void, irtypes.NewPointer(e.structType(p.InstanceStruct())))
	}
	ret := irtypes.Type(irtypes.Void)
	if rt := e.idx.ReturnType(p.Name); rt != nil && !rt.IsVoid() {
		ret = e.llType(rt)
	}
	var params []irtypes.Type
	for _, v := range e.idx.Parameters(p.Name) {
		params = append(params, e.paramType(v))
	}
	return irtypes.NewFunc(ret, params...)
}

func (e *Emitter) paramType(v *index.VariableEntry) irtypes.Type {
	t := e.mustInfo(v.Type)
	switch {
	case v.Kind == ast.VarInOut:
		// declared through an auto-deref pointer already
		return e.llType(t)
	case v.Kind == ast.VarOutput, byReference(t):
		return irtypes.NewPointer(e.llType(t))
	}
	return e.llType(t)
}

// byReference reports input types passed as a pointer to a copy.
func byReference(t *types.Info) bool {
	switch t.Kind {
	case types.KindString, types.KindArray, types.KindStruct:
		return true
	}
	return false
}

// signed reports whether integer-like values of t are signed.
func (e *Emitter) signed(t *types.Info) bool {
	for guard := 0; t != nil && guard < 16; guard++ {
		switch t.Kind {
		case types.KindInteger, types.KindFloat:
			return t.Signed
		case types.KindEnum, types.KindSubRange:
			if t.Bits > 0 {
				return t.Signed
			}
			t = e.info(t.Inner)
			continue
		}
		return false
	}
	return true
}

// sizeOf is the store size of t, as SIZEOF reports it.
func (e *Emitter) sizeOf(t *types.Info) int64 {
	return e.idx.Layout().SizeOf(t)
}
