package resolver

import (
	"strings"

	"plcc/internal/ast"
	"plcc/internal/types"
)

// Builtin is a function the compiler provides without a declaration.
type Builtin struct {
	Name    string
	MinArgs int
	MaxArgs int // -1 for variadic
	// Conversion is set for `<A>_TO_<B>`.
	From, To string

	annotate func(a *annotator, args []ast.Statement) string
}

// IsConversion reports `<A>_TO_<B>` builtins.
func (b *Builtin) IsConversion() bool { return b.To != "" }

var builtinTable = map[string]*Builtin{}

func registerBuiltin(b *Builtin) { builtinTable[types.Key(b.Name)] = b }

func init() {
	registerBuiltin(&Builtin{Name: "REF", MinArgs: 1, MaxArgs: 1, annotate: addressOf})
	registerBuiltin(&Builtin{Name: "ADR", MinArgs: 1, MaxArgs: 1, annotate: addressOf})
	registerBuiltin(&Builtin{Name: "SEL", MinArgs: 3, MaxArgs: 3, annotate: func(a *annotator, args []ast.Statement) string {
		a.expect(args[0], types.BOOL)
		return a.promoteAll(args[1:])
	}})
	registerBuiltin(&Builtin{Name: "MUX", MinArgs: 2, MaxArgs: -1, annotate: func(a *annotator, args []ast.Statement) string {
		a.withoutHint(args[0])
		return a.promoteAll(args[1:])
	}})
	registerBuiltin(&Builtin{Name: "MAX", MinArgs: 1, MaxArgs: -1, annotate: (*annotator).promoteAll})
	registerBuiltin(&Builtin{Name: "MIN", MinArgs: 1, MaxArgs: -1, annotate: (*annotator).promoteAll})
	registerBuiltin(&Builtin{Name: "LIMIT", MinArgs: 3, MaxArgs: 3, annotate: (*annotator).promoteAll})
	registerBuiltin(&Builtin{Name: "MOVE", MinArgs: 1, MaxArgs: 1, annotate: func(a *annotator, args []ast.Statement) string {
		a.expect(args[0], a.hint())
		return a.m.TypeOf(args[0])
	}})
	registerBuiltin(&Builtin{Name: "SIZEOF", MinArgs: 1, MaxArgs: 1, annotate: func(a *annotator, args []ast.Statement) string {
		a.withoutHint(args[0])
		if h := a.find(a.hint()); h.IsInteger() {
			return h.Name
		}
		return types.DINT
	}})
	bound := func(a *annotator, args []ast.Statement) string {
		a.withoutHint(args[0])
		a.expect(args[1], types.DINT)
		return types.DINT
	}
	registerBuiltin(&Builtin{Name: "LOWER_BOUND", MinArgs: 2, MaxArgs: 2, annotate: bound})
	registerBuiltin(&Builtin{Name: "UPPER_BOUND", MinArgs: 2, MaxArgs: 2, annotate: bound})
}

// LookupBuiltin finds a builtin by name, including the `<A>_TO_<B>`
// conversions between elementary types.
func LookupBuiltin(name string) (*Builtin, bool) {
	if b, ok := builtinTable[types.Key(name)]; ok {
		return b, true
	}
	from, to, ok := types.ParseConversion(name)
	if !ok {
		return nil, false
	}
	return &Builtin{
		Name:    strings.ToUpper(name),
		MinArgs: 1,
		MaxArgs: 1,
		From:    from,
		To:      to,
		annotate: func(a *annotator, args []ast.Statement) string {
			a.expect(args[0], from)
			return to
		},
	}, true
}

// builtin finds name unless a declaration shadows it.
func (a *annotator) builtin(name string) (*Builtin, bool) {
	if a.idx.FindPou(name) != nil || a.idx.FindVariable(a.scope, []string{name}) != nil {
		return nil, false
	}
	return LookupBuiltin(name)
}

func (a *annotator) builtinCall(n *ast.CallStatement, b *Builtin) {
	args := make([]ast.Statement, 0, len(n.Args))
	for _, arg := range n.Args {
		switch v := arg.(type) {
		case *ast.Assignment:
			args = append(args, v.Right)
		case *ast.OutputAssignment:
			args = append(args, v.Right)
		default:
			args = append(args, arg)
		}
	}
	ann := Annotation{Kind: Function, Qualified: b.Name, Builtin: true}
	if len(args) < b.MinArgs || b.MaxArgs >= 0 && len(args) > b.MaxArgs {
		// the validator reports the count
		a.unboundArgs(args)
		a.m.Annotate(n.Operator, ann)
		a.m.Annotate(n, ValueOf(types.VOID))
		return
	}
	ret := b.annotate(a, args)
	if ret == "" {
		ret = types.VOID
	}
	ann.Type = ret
	a.m.Annotate(n.Operator, ann)
	a.m.Annotate(n, ValueOf(ret))
}

func addressOf(a *annotator, args []ast.Statement) string {
	a.withoutHint(args[0])
	ann, ok := a.m.Get(args[0])
	if !ok {
		return ""
	}
	if ann.Kind == Function && !ann.Builtin {
		// a function pointer, typed by the function's instance struct
		return a.pointerTo(ann.Name())
	}
	return a.pointerTo(ann.Type)
}

// promoteAll annotates args under the current hint and returns their
// common type. Literals take the type of the typed arguments when they fit.
func (a *annotator) promoteAll(args []ast.Statement) string {
	h := a.hint()
	var common *types.Info
	a.push(h)
	for _, arg := range args {
		a.expr(arg)
	}
	a.pop()
	for _, arg := range args {
		if isLiteral(arg) {
			continue
		}
		t := a.find(a.m.TypeOf(arg))
		if t == nil {
			return ""
		}
		if common == nil {
			common = t
			continue
		}
		p, ok := types.Promote(common, t)
		if !ok {
			return types.VOID
		}
		common = p
	}
	for _, arg := range args {
		if !isLiteral(arg) {
			continue
		}
		if common != nil && a.refineLiteral(arg, common.Name) {
			continue
		}
		t := a.find(a.m.TypeOf(arg))
		if common == nil {
			common = t
			continue
		}
		p, ok := types.Promote(common, t)
		if !ok {
			return types.VOID
		}
		common = p
	}
	if common == nil {
		return ""
	}
	for _, arg := range args {
		if !types.SameName(a.m.TypeOf(arg), common.Name) {
			a.m.AnnotateHint(arg, common.Name)
		}
	}
	return common.Name
}
