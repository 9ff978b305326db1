package validation

import (
	"strconv"
	"strings"

	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/index"
	"plcc/internal/resolver"
	"plcc/internal/types"
)

func (v *validator) call(n *ast.CallStatement) {
	v.expr(n.Operator)
	op, ok := v.m.Get(n.Operator)
	if !ok {
		v.argValues(n.Args)
		return
	}
	if cands, ambiguous := v.m.Ambiguous(n); ambiguous {
		v.at(diag.AmbiguousCall, n.Operator, "ambiguous call of %s, candidates are %s", ast.PrintStatement(n.Operator), strings.Join(cands, ", "))
	}
	v.instantiation(n)

	var pou *index.PouEntry
	switch op.Kind {
	case resolver.Function:
		if op.Builtin {
			v.builtinCall(n, op)
			return
		}
		if pou = v.idx.FindPou(op.Name()); pou == nil {
			pou = v.idx.FindPou(op.Qualified)
		}
	case resolver.Variable, resolver.Value:
		pou = v.idx.FindPou(op.Type)
		if pou == nil || !pou.IsCallable() {
			v.at(diag.NotCallable, n.Operator, "%s is not callable", ast.PrintStatement(n.Operator))
			v.argValues(n.Args)
			return
		}
	default:
		v.at(diag.NotCallable, n.Operator, "type %s is not callable", op.Type)
		v.argValues(n.Args)
		return
	}
	if pou == nil {
		v.argValues(n.Args)
		return
	}
	v.arguments(n, pou)
}

// argValues checks the values of arguments no parameter was matched to.
func (v *validator) argValues(args []ast.Statement) {
	for _, a := range args {
		v.expr(argValue(a))
	}
}

func argValue(a ast.Statement) ast.Statement {
	switch n := a.(type) {
	case *ast.Assignment:
		return n.Right
	case *ast.OutputAssignment:
		return n.Right
	}
	return a
}

// instantiation checks the bindings of a generic call that lowering could
// not specialise.
func (v *validator) instantiation(n *ast.CallStatement) {
	inst, ok := v.m.InstantiationOf(n)
	if !ok {
		return
	}
	for _, b := range inst.Bindings {
		if b.Type == "" {
			v.at(diag.UnresolvedGeneric, n, "could not resolve generic parameter %s of %s", b.Name, inst.Generic)
			continue
		}
		t := v.typeInfo(b.Type)
		if t == nil || t.IsGeneric() {
			continue
		}
		if !types.Satisfies(t, b.Nature) {
			v.at(diag.UnknownTypeNature, n, "%s does not satisfy %s required by %s of %s", v.describe(t), b.Nature, b.Name, inst.Generic)
		}
	}
}

func (v *validator) arguments(n *ast.CallStatement, pou *index.PouEntry) {
	bound, extra := resolver.BindArguments(v.idx, pou.Name, n.Args)
	positional := 0
	for _, a := range extra {
		switch x := a.(type) {
		case *ast.Assignment:
			v.unknownParam(x.Left, pou)
			v.expr(x.Right)
		case *ast.OutputAssignment:
			v.unknownParam(x.Left, pou)
			v.expr(x.Right)
		default:
			positional++
			v.expr(a)
		}
	}
	params := v.idx.Parameters(pou.Name)
	if positional > 0 {
		v.at(diag.InvalidArgumentCount, n, "%s takes %d parameters, %d arguments given", pou.Name, len(params), len(n.Args))
	}

	seen := map[*index.VariableEntry]bool{}
	for _, b := range bound {
		seen[b.Param] = true
		v.expr(b.Value)
		switch {
		case b.Param.IsInOut():
			v.inOut(b)
		case b.Output:
			v.output(b)
		default:
			if h, ok := v.m.Hint(b.Value); ok {
				v.convert(b.Value, h)
			}
		}
	}
	if pou.Kind != ast.PouFunction && pou.Kind != ast.PouFunctionBlock {
		return
	}
	for _, p := range params {
		if p.IsInOut() && !seen[p] {
			v.at(diag.InvalidArgumentCount, n, "missing argument for VAR_IN_OUT %s of %s", p.Name, pou.Name)
		}
	}
}

func (v *validator) unknownParam(left ast.Statement, pou *index.PouEntry) {
	if ref, ok := left.(*ast.Reference); ok {
		v.at(diag.UnresolvedReference, ref, "%s has no parameter %s", pou.Name, ref.Name)
		return
	}
	v.expr(left)
}

// inOut checks an argument passed by reference: it must be writable
// storage of a type the parameter can alias.
func (v *validator) inOut(b resolver.ArgBinding) {
	if !v.m.Has(b.Value) {
		return
	}
	if !v.addressable(b.Value) {
		v.at(diag.NotAddressable, b.Value, "VAR_IN_OUT %s needs a variable, not %s", b.Param.Name, ast.PrintStatement(b.Value))
		return
	}
	if v.constant(b.Value) {
		v.at(diag.AssignmentToConstant, b.Value, "constant %s cannot be passed to VAR_IN_OUT %s", ast.PrintStatement(b.Value), b.Param.Name)
		return
	}
	to, from := v.typeInfo(v.valueType(b.Param.Type)), v.typeOf(b.Value)
	if broken(to) || broken(from) || to.IsGeneric() || from.IsGeneric() {
		return
	}
	switch types.Classify(from, to, v.idx.Lookup()) {
	case types.ConvIncompatible, types.ConvNarrowing:
		v.at(diag.IncompatibleAssignment, b.Value, "%s cannot be passed to VAR_IN_OUT %s of type %s", v.describe(from), b.Param.Name, v.describe(to))
	}
}

// output checks `param => target`.
func (v *validator) output(b resolver.ArgBinding) {
	if b.Value == nil || !v.m.Has(b.Value) {
		return
	}
	if !v.addressable(b.Value) {
		v.at(diag.NotAddressable, b.Value, "output %s must be assigned to a variable", b.Param.Name)
		return
	}
	if v.constant(b.Value) {
		v.at(diag.AssignmentToConstant, b.Value, "cannot assign output %s to constant %s", b.Param.Name, ast.PrintStatement(b.Value))
		return
	}
	from, to := v.typeInfo(v.valueType(b.Param.Type)), v.typeOf(b.Value)
	if broken(to) || broken(from) || to.IsGeneric() || from.IsGeneric() {
		return
	}
	switch types.Classify(from, to, v.idx.Lookup()) {
	case types.ConvIncompatible:
		v.at(diag.IncompatibleAssignment, b.Value, "cannot assign output %s of type %s to %s", b.Param.Name, v.describe(from), v.describe(to))
	case types.ConvNarrowing:
		v.narrowing(b.Value, from, to)
	}
}

func (v *validator) builtinCall(n *ast.CallStatement, op resolver.Annotation) {
	values := make([]ast.Statement, 0, len(n.Args))
	for _, a := range n.Args {
		values = append(values, argValue(a))
	}
	for _, val := range values {
		v.expr(val)
	}
	b, ok := resolver.LookupBuiltin(op.Qualified)
	if !ok {
		return
	}
	if len(values) < b.MinArgs || b.MaxArgs >= 0 && len(values) > b.MaxArgs {
		want := "at least " + strconv.Itoa(b.MinArgs)
		switch {
		case b.MinArgs == b.MaxArgs:
			want = strconv.Itoa(b.MinArgs)
		case b.MaxArgs >= 0:
			want = strconv.Itoa(b.MinArgs) + " to " + strconv.Itoa(b.MaxArgs)
		}
		v.at(diag.InvalidArgumentCount, n, "%s takes %s arguments, %d given", b.Name, want, len(values))
		return
	}
	if types.SameName(b.Name, "REF") || types.SameName(b.Name, "ADR") {
		arg := values[0]
		ann, has := v.m.Get(arg)
		if has && !(ann.Kind == resolver.Function && !ann.Builtin) && !v.addressable(arg) {
			v.at(diag.NotAddressable, arg, "%s needs a variable, not %s", b.Name, ast.PrintStatement(arg))
		}
		return
	}
	for _, val := range values {
		if h, ok := v.m.Hint(val); ok {
			v.convert(val, h)
		}
	}
}
