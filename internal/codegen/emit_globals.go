package codegen

import (
	"unicode/utf16"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	irtypes "github.com/llir/llvm/ir/types"

	"plcc/internal/ast"
	"plcc/internal/index"
	"plcc/internal/resolver"
	"plcc/internal/types"
)

// InstanceName is the global holding the single instance of a PROGRAM.
func InstanceName(program string) string { return program + "_instance" }

// declareFunctions declares every emitted POU so that bodies and constant
// initializers can refer to any of them.
func (e *Emitter) declareFunctions(units []*ast.CompilationUnit) error {
	impls := map[string]*ast.Implementation{}
	for _, u := range units {
		for _, impl := range u.Implementations {
			if _, ok := impls[types.Key(impl.Name)]; !ok {
				impls[types.Key(impl.Name)] = impl
			}
		}
	}
	for _, u := range units {
		for _, p := range u.Pous {
			entry := e.idx.FindPou(p.Name)
			if entry == nil || entry.IsGeneric() || entry.Linkage == ast.LinkBuiltIn {
				continue
			}
			k := types.Key(entry.Name)
			if _, done := e.funcs[k]; done {
				continue
			}
			impl := impls[k]
			if impl == nil && (entry.Kind == ast.PouClass || entry.IsInterface() || entry.Abstract) {
				continue
			}
			sig := e.signature(entry)
			params := make([]*ir.Param, len(sig.Params))
			for i, t := range sig.Params {
				params[i] = ir.NewParam("", t)
			}
			f := e.mod.NewFunc(entry.Name, sig.RetType, params...)
			e.funcs[k] = f
			if entry.IsExternal() {
				continue
			}
			e.bodies = append(e.bodies, body{pou: entry, impl: impl})
		}
	}
	return nil
}

// emitGlobals defines globals and program instances. All of them exist
// before any initializer is folded, so initializers may take the address
// of globals declared later.
func (e *Emitter) emitGlobals(units []*ast.CompilationUnit) error {
	type pending struct {
		g     *ir.Global
		entry *index.VariableEntry
		t     *types.Info
		fixed bool
	}
	var defs []pending
	for _, u := range units {
		for _, b := range u.GlobalBlocks {
			for _, v := range b.Variables {
				entry := e.idx.FindGlobal(v.Name)
				k := types.Key(v.Name)
				if entry == nil || e.globals[k] != nil {
					continue
				}
				t := e.mustInfo(entry.Type)
				if b.Linkage == ast.LinkExternal {
					e.globals[k] = e.mod.NewGlobal(entry.Name, e.llType(t))
					continue
				}
				g := e.mod.NewGlobalDef(entry.Name, e.zero(t))
				g.Immutable = b.Constant && entry.Initial != nil
				e.globals[k] = g
				defs = append(defs, pending{g: g, entry: entry, t: t})
			}
		}
	}
	for _, v := range e.idx.ProgramInstances() {
		k := types.Key(v.Name)
		if e.globals[k] != nil {
			continue
		}
		t := e.mustInfo(v.Type)
		if v.IsExternal() {
			e.globals[k] = e.mod.NewGlobal(InstanceName(v.Name), e.llType(t))
			continue
		}
		g := e.mod.NewGlobalDef(InstanceName(v.Name), e.zero(t))
		e.globals[k] = g
		defs = append(defs, pending{g: g, entry: v, t: t})
	}
	for _, d := range defs {
		init := d.entry.Initial
		if d.entry.Role == index.RoleProgramGlobal {
			init = nil
		}
		d.g.Init = e.initialValue(init, d.t, "")
	}
	return nil
}

// initialValue folds the initializer of a variable of type t. Without an
// initializer, or with one lowering left to run-time code, the type's
// default is used.
func (e *Emitter) initialValue(init ast.Statement, t *types.Info, scope string) constant.Constant {
	if init != nil {
		if c, ok := e.constant(init, t, scope); ok {
			return c
		}
	}
	return e.defaultValue(t, 0)
}

// zero is the all-zero value of t.
func (e *Emitter) zero(t *types.Info) constant.Constant {
	switch typ := e.llType(t).(type) {
	case *irtypes.IntType:
		return constant.NewInt(typ, 0)
	case *irtypes.FloatType:
		return constant.NewFloat(typ, 0)
	case *irtypes.PointerType:
		return constant.NewNull(typ)
	default:
		return constant.NewZeroInitializer(typ)
	}
}

func isZero(c constant.Constant) bool {
	switch x := c.(type) {
	case *constant.ZeroInitializer, *constant.Null:
		return true
	case *constant.Int:
		return x.X.Sign() == 0
	case *constant.Float:
		return x.X.Sign() == 0 && !x.X.Signbit()
	}
	return false
}

// defaultValue is the value of t before any code runs: declared member
// and type initializers, the first enumerator of enums, zero otherwise.
func (e *Emitter) defaultValue(t *types.Info, depth int) constant.Constant {
	if depth > 32 {
		return e.zero(t)
	}
	if entry := e.idx.FindType(t.Name); entry != nil && !entry.Builtin {
		if init := e.idx.InitialValueOfType(t.Name); init != nil {
			if c, ok := e.constant(init, t, entry.Scope); ok {
				return c
			}
		}
	}
	switch t.Kind {
	case types.KindEnum:
		if len(t.Variants) > 0 {
			return constant.NewInt(e.intType(t), t.Variants[0].Value)
		}
	case types.KindStruct:
		fields := e.fieldDefaults(t, depth)
		for _, f := range fields {
			if !isZero(f) {
				return constant.NewStruct(e.structType(t.Name), fields...)
			}
		}
	case types.KindArray:
		elem := e.defaultValue(e.mustInfo(t.Inner), depth+1)
		if isZero(elem) {
			break
		}
		n := t.Elements()
		elems := make([]constant.Constant, n)
		for i := range elems {
			elems[i] = elem
		}
		return constant.NewArray(e.llType(t).(*irtypes.ArrayType), elems...)
	}
	return e.zero(t)
}

// fieldDefaults are the initial values of the fields of struct t.
func (e *Emitter) fieldDefaults(t *types.Info, depth int) []constant.Constant {
	out := make([]constant.Constant, len(t.Fields))
	for i, f := range t.Fields {
		ft := e.mustInfo(f.Type)
		if m := e.idx.FindLocalMember(t.Name, f.Name); m != nil && m.Initial != nil && stored(m) {
			if c, ok := e.constant(m.Initial, ft, t.Name); ok {
				out[i] = c
				continue
			}
		}
		out[i] = e.defaultValue(ft, depth+1)
	}
	return out
}

// stored reports members that live in their container's instance and
// take their initial value with it.
func stored(v *index.VariableEntry) bool {
	switch v.Kind {
	case ast.VarTemp, ast.VarInOut, ast.VarExternal:
		return false
	}
	return v.Role == index.RoleMember
}

// constant folds expr to a constant of type t.
func (e *Emitter) constant(expr ast.Statement, t *types.Info, scope string) (constant.Constant, bool) {
	switch n := expr.(type) {
	case nil:
		return nil, false
	case *ast.ParenExpr:
		if _, ok := n.Inner.(*ast.ArrayLiteral); ok {
			return e.constant(n.Inner, t, scope)
		}
	case *ast.ArrayLiteral:
		return e.arrayConstant(n, t, scope)
	case *ast.StructLiteral:
		return e.structConstant(n, t, scope)
	case *ast.Literal:
		switch n.Kind {
		case ast.LitString, ast.LitWString:
			if t.IsString() {
				return e.stringConstant(n.Str, t), true
			}
			return nil, false
		case ast.LitNull:
			if t.IsPointer() {
				return constant.NewNull(e.pointerType(t)), true
			}
			return nil, false
		}
	case *ast.CallStatement:
		return e.addressConstant(n, t)
	}
	if v, ok := e.enumerator(expr); ok {
		return e.scalarConstant(index.IntValue(v), t)
	}
	cv, ok := e.idx.EvalConst(expr, scope)
	if !ok {
		return nil, false
	}
	return e.scalarConstant(cv, t)
}

// enumerator folds references to enum values through their annotation.
func (e *Emitter) enumerator(expr ast.Statement) (int64, bool) {
	ann, ok := e.m.Get(expr)
	if !ok || ann.Kind != resolver.Variable || !ann.Constant {
		return 0, false
	}
	t := e.info(ann.Type)
	if !t.IsEnum() {
		return 0, false
	}
	name := ann.Qualified
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			name = name[i+1:]
			break
		}
	}
	v, ok := t.Variant(name)
	return v.Value, ok
}

func (e *Emitter) scalarConstant(cv index.ConstValue, t *types.Info) (constant.Constant, bool) {
	switch typ := e.llType(t).(type) {
	case *irtypes.IntType:
		switch cv.Kind {
		case index.ConstInt, index.ConstBool:
			return constant.NewInt(typ, cv.Int), true
		case index.ConstReal:
			return constant.NewInt(typ, int64(cv.Real)), true
		}
	case *irtypes.FloatType:
		switch cv.Kind {
		case index.ConstInt:
			return constant.NewFloat(typ, float64(cv.Int)), true
		case index.ConstReal:
			return constant.NewFloat(typ, cv.Real), true
		}
	case *irtypes.ArrayType:
		if cv.Kind == index.ConstString && t.IsString() {
			return e.stringConstant(cv.Str, t), true
		}
	case *irtypes.PointerType:
		if cv.Kind == index.ConstInt && cv.Int == 0 {
			return constant.NewNull(typ), true
		}
	}
	return nil, false
}

// stringConstant pads s with terminators to the size of t, cutting it
// when it is longer.
func (e *Emitter) stringConstant(s string, t *types.Info) constant.Constant {
	size := t.Size
	if size <= 0 {
		size = 1
	}
	if t.Encoding == types.UTF16 {
		units := utf16.Encode([]rune(s))
		elems := make([]constant.Constant, size)
		for i := range elems {
			var u int64
			if int64(i) < size-1 && i < len(units) {
				u = int64(units[i])
			}
			elems[i] = constant.NewInt(irtypes.I16, u)
		}
		return constant.NewArray(irtypes.NewArray(length(size), irtypes.I16), elems...)
	}
	buf := make([]byte, size)
	copy(buf[:size-1], s)
	return constant.NewCharArray(buf)
}

func (e *Emitter) arrayConstant(lit *ast.ArrayLiteral, t *types.Info, scope string) (constant.Constant, bool) {
	if t.Kind != types.KindArray {
		return nil, false
	}
	inner := e.mustInfo(t.Inner)
	total := t.Elements()
	elems := make([]constant.Constant, 0, total)
	for _, el := range lit.Elements {
		times := int64(1)
		if m, ok := el.(*ast.MultipliedStatement); ok {
			times, el = m.Multiplier, m.Element
		}
		c, ok := e.constant(el, inner, scope)
		if !ok {
			return nil, false
		}
		for i := int64(0); i < times && int64(len(elems)) < total; i++ {
			elems = append(elems, c)
		}
	}
	if int64(len(elems)) < total {
		fill := e.defaultValue(inner, 1)
		for int64(len(elems)) < total {
			elems = append(elems, fill)
		}
	}
	return constant.NewArray(e.llType(t).(*irtypes.ArrayType), elems...), true
}

func (e *Emitter) structConstant(lit *ast.StructLiteral, t *types.Info, scope string) (constant.Constant, bool) {
	if t.Kind != types.KindStruct {
		return nil, false
	}
	fields := e.fieldDefaults(t, 1)
	for _, a := range lit.Fields {
		ref, ok := a.Left.(*ast.Reference)
		if !ok {
			return nil, false
		}
		f, i, ok := t.Field(ref.Name)
		if !ok {
			return nil, false
		}
		c, ok := e.constant(a.Right, e.mustInfo(f.Type), scope)
		if !ok {
			return nil, false
		}
		fields[i] = c
	}
	return constant.NewStruct(e.structType(t.Name), fields...), true
}

// addressConstant folds REF and ADR of functions and globals.
func (e *Emitter) addressConstant(call *ast.CallStatement, t *types.Info) (constant.Constant, bool) {
	op, ok := e.m.Get(call.Operator)
	if !ok || !op.Builtin || len(call.Args) != 1 {
		return nil, false
	}
	adr := types.SameName(op.Qualified, "ADR")
	if !adr && !types.SameName(op.Qualified, "REF") {
		return nil, false
	}
	arg, ok := e.m.Get(call.Args[0])
	if !ok {
		return nil, false
	}
	var target constant.Constant
	switch {
	case arg.Kind == resolver.Function && !arg.Builtin:
		if f := e.funcs[types.Key(arg.Name())]; f != nil {
			target = f
		}
	case arg.Kind == resolver.Variable && arg.Global:
		if ref, isRef := call.Args[0].(*ast.Reference); isRef {
			if g := e.globals[types.Key(ref.Name)]; g != nil {
				target = g
			}
		}
	}
	if target == nil {
		return nil, false
	}
	typ := e.llType(t)
	if adr {
		it, ok := typ.(*irtypes.IntType)
		if !ok {
			return nil, false
		}
		return constant.NewPtrToInt(target, it), true
	}
	if target.Type().Equal(typ) {
		return target, true
	}
	return constant.NewBitCast(target, typ), true
}
