package resolver

import (
	"plcc/internal/ast"
	"plcc/internal/index"
	"plcc/internal/types"
)

// ArgBinding pairs a call argument with the parameter it feeds.
type ArgBinding struct {
	Param  *index.VariableEntry
	Arg    ast.Statement // as written, including `name :=` / `name =>`
	Value  ast.Statement
	Output bool
}

// BindArguments matches the arguments of a call to pou's parameters.
// Positional arguments bind in declaration order, named ones by name.
// Arguments no parameter accepts are returned as extra.
func BindArguments(idx *index.Index, pou string, args []ast.Statement) (bound []ArgBinding, extra []ast.Statement) {
	params := idx.Parameters(pou)
	pos := 0
	for _, arg := range args {
		switch n := arg.(type) {
		case *ast.Assignment:
			p := namedParam(idx, pou, n.Left)
			if p == nil {
				extra = append(extra, arg)
				continue
			}
			bound = append(bound, ArgBinding{Param: p, Arg: arg, Value: n.Right, Output: p.Kind == ast.VarOutput})
		case *ast.OutputAssignment:
			p := namedParam(idx, pou, n.Left)
			if p == nil {
				extra = append(extra, arg)
				continue
			}
			bound = append(bound, ArgBinding{Param: p, Arg: arg, Value: n.Right, Output: true})
		default:
			if pos >= len(params) {
				extra = append(extra, arg)
				continue
			}
			p := params[pos]
			pos++
			bound = append(bound, ArgBinding{Param: p, Arg: arg, Value: arg, Output: p.Kind == ast.VarOutput})
		}
	}
	return bound, extra
}

func namedParam(idx *index.Index, pou string, left ast.Statement) *index.VariableEntry {
	ref, ok := left.(*ast.Reference)
	if !ok {
		return nil
	}
	p := idx.FindMember(pou, ref.Name)
	if p == nil || !p.IsParameter() {
		return nil
	}
	return p
}

func (a *annotator) call(n *ast.CallStatement) {
	pou, name := a.callee(n.Operator)
	if pou == nil {
		if name == "" {
			a.unboundArgs(n.Args)
			return
		}
		if b, ok := a.builtin(name); ok {
			a.builtinCall(n, b)
			return
		}
		if cands := a.idx.Overloads(name); len(cands) > 0 {
			a.overloadedCall(n, nil, cands)
			return
		}
		a.unboundArgs(n.Args)
		return
	}
	if pou.Kind == ast.PouFunction {
		if cands := a.idx.Overloads(pou.Name); len(cands) > 0 {
			a.overloadedCall(n, pou, cands)
			return
		}
	}
	if pou.IsGeneric() {
		a.genericCall(n, pou)
		return
	}
	a.arguments(pou.Name, n.Args)
	a.annotateResult(n, pou.ReturnType)
}

func (a *annotator) annotateResult(n *ast.CallStatement, ret string) {
	if ret == "" {
		ret = types.VOID
	}
	a.m.Annotate(n, ValueOf(ret))
}

// callee annotates the operator of a call and returns the POU it invokes.
// name is the bare operator name for builtins and overload sets.
func (a *annotator) callee(op ast.Statement) (*index.PouEntry, string) {
	switch n := op.(type) {
	case *ast.Reference:
		p, v := a.idx.FindCallable(a.scope, []string{n.Name})
		switch {
		case v != nil && p != nil:
			// FB instance or program
			a.m.Annotate(n, a.variableAnnotation(v))
			return p, n.Name
		case v != nil:
			// recursion through the function's own name; its return slot
			// shadows the POU
			if p = a.idx.FindPou(n.Name); p != nil && p.IsCallable() && p.Kind != ast.PouProgram {
				a.m.Annotate(n, a.functionAnnotation(p))
				return p, n.Name
			}
			a.m.Annotate(n, a.variableAnnotation(v))
			return nil, ""
		case p != nil:
			ann := a.functionAnnotation(p)
			if p.Kind == ast.PouMethod {
				ann.Virtual = p.Overriding || a.idx.IsOverridden(p.Parent, p.SimpleName())
			}
			a.m.Annotate(n, ann)
			return p, n.Name
		}
		return nil, n.Name
	case *ast.MemberAccess:
		a.memberAccess(n)
	default:
		a.withoutHint(op)
	}
	ann, ok := a.m.Get(op)
	if !ok {
		return nil, ""
	}
	switch ann.Kind {
	case Function:
		return a.idx.FindPou(ann.Qualified), ""
	case Variable, Value:
		return a.idx.FindPou(ann.Type), ""
	}
	return nil, ""
}

// arguments annotates every argument against the parameter it binds.
func (a *annotator) arguments(pou string, args []ast.Statement) {
	bound, extra := BindArguments(a.idx, pou, args)
	for _, b := range bound {
		a.argument(b, a.paramType(b.Param))
	}
	a.unboundArgs(extra)
}

func (a *annotator) argument(b ArgBinding, typ string) {
	if b.Output {
		a.withoutHint(b.Value)
	} else {
		a.expect(b.Value, typ)
	}
	if b.Arg != b.Value {
		ref := argName(b.Arg)
		if ref != nil {
			a.m.Annotate(ref, a.variableAnnotation(b.Param))
		}
		if typ != "" {
			a.m.Annotate(b.Arg, ValueOf(typ))
		}
	}
}

func argName(arg ast.Statement) ast.Statement {
	switch n := arg.(type) {
	case *ast.Assignment:
		return n.Left
	case *ast.OutputAssignment:
		return n.Left
	}
	return nil
}

// paramType is the type an argument is converted to: the target type for
// VAR_IN_OUT.
func (a *annotator) paramType(p *index.VariableEntry) string {
	return a.valueType(p.Type)
}

func (a *annotator) unboundArgs(args []ast.Statement) {
	for _, arg := range args {
		switch n := arg.(type) {
		case *ast.Assignment:
			a.withoutHint(n.Right)
		case *ast.OutputAssignment:
			a.withoutHint(n.Right)
		default:
			a.withoutHint(arg)
		}
	}
}

// Conversion ranks used for overload resolution, best first.
const (
	rankIdentical = iota
	rankWidening
	rankGeneric
	rankNarrowing
	rankNone
)

// overloadedCall picks the best of generic (possibly nil) and its explicit
// specialisations for the argument types.
func (a *annotator) overloadedCall(n *ast.CallStatement, generic *index.PouEntry, cands []*index.PouEntry) {
	a.unboundArgs(n.Args)
	if generic != nil {
		cands = append([]*index.PouEntry{generic}, cands...)
	}
	best, bestRank, bestSum := []*index.PouEntry(nil), rankNone, 0
	for _, c := range cands {
		rank, sum := a.rank(c, n.Args)
		switch {
		case rank == rankNone:
		case rank < bestRank || rank == bestRank && sum < bestSum:
			best, bestRank, bestSum = []*index.PouEntry{c}, rank, sum
		case rank == bestRank && sum == bestSum:
			best = append(best, c)
		}
	}
	switch {
	case len(best) == 0:
		// nothing fits; the validator reports against the first signature
		best = cands[:1]
	case len(best) > 1:
		names := make([]string, len(best))
		for i, c := range best {
			names[i] = c.Name
		}
		a.m.recordAmbiguous(n, names)
	}
	chosen := best[0]
	if chosen.IsGeneric() {
		a.genericCall(n, chosen)
		return
	}
	ann := a.functionAnnotation(chosen)
	if generic != nil {
		ann.Qualified = generic.Name
	}
	ann.CallName = chosen.Name
	a.m.Annotate(n.Operator, ann)
	a.arguments(chosen.Name, n.Args)
	a.annotateResult(n, chosen.ReturnType)
}

// rank is the worst conversion the arguments need to call c, and the sum of
// all of them for tie breaking.
func (a *annotator) rank(c *index.PouEntry, args []ast.Statement) (worst, sum int) {
	bound, extra := BindArguments(a.idx, c.Name, args)
	if len(extra) > 0 {
		return rankNone, 0
	}
	for _, b := range bound {
		r := a.argRank(b)
		if r > worst {
			worst = r
		}
		sum += r
	}
	return worst, sum
}

func (a *annotator) argRank(b ArgBinding) int {
	to := a.find(a.paramType(b.Param))
	from := a.find(a.m.TypeOf(b.Value))
	if b.Output {
		from, to = to, from
	}
	if to.IsGeneric() {
		if types.Satisfies(from, to.Nature) {
			return rankGeneric
		}
		return rankNone
	}
	if v, _, ok := integerLiteral(b.Value); ok && to != nil && fits(v, to) {
		if from != nil && types.SameName(from.Name, to.Name) {
			return rankIdentical
		}
		return rankWidening
	}
	switch types.Classify(from, to, a.find) {
	case types.ConvIdentical:
		return rankIdentical
	case types.ConvWidening:
		return rankWidening
	case types.ConvNarrowing:
		return rankNarrowing
	}
	return rankNone
}
