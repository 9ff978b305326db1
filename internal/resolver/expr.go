package resolver

import (
	"fmt"
	"math"
	"unicode/utf16"

	"plcc/internal/ast"
	"plcc/internal/index"
	"plcc/internal/types"
)

func (a *annotator) expr(s ast.Statement) {
	switch n := s.(type) {
	case nil:
	case *ast.Literal:
		a.literal(n)
	case *ast.ArrayLiteral:
		a.arrayLiteral(n)
	case *ast.MultipliedStatement:
		a.expr(n.Element)
		if t := a.m.TypeOf(n.Element); t != "" {
			a.m.Annotate(n, ValueOf(t))
		}
	case *ast.StructLiteral:
		a.structLiteral(n)
	case *ast.Reference:
		if ann, ok := a.resolveName(n.Name); ok {
			a.m.Annotate(n, ann)
		}
	case *ast.MemberAccess:
		a.memberAccess(n)
	case *ast.DirectAccess:
		a.expect(n.Index, types.DINT)
		a.m.Annotate(n, ValueOf(directType(n.Kind)))
	case *ast.ArrayAccess:
		a.arrayAccess(n)
	case *ast.Deref:
		a.deref(n)
	case *ast.ThisRef:
		if owner := a.instanceOwner(); owner != nil {
			a.m.Annotate(n, ValueOf(a.pointerTo(owner.Name)))
		}
	case *ast.SuperRef:
		if owner := a.instanceOwner(); owner != nil && owner.Super != "" {
			a.m.Annotate(n, ValueOf(a.pointerTo(owner.Super)))
		}
	case *ast.BinaryExpr:
		a.binary(n)
	case *ast.UnaryExpr:
		a.unary(n)
	case *ast.ParenExpr:
		a.expr(n.Inner)
		if ann, ok := a.m.Get(n.Inner); ok {
			a.m.Annotate(n, ann)
		}
	case *ast.CastExpr:
		a.cast(n)
	case *ast.CallStatement:
		a.call(n)
	case *ast.Assignment:
		a.assignment(n)
	case *ast.OutputAssignment:
		a.withoutHint(n.Left)
		a.withoutHint(n.Right)
	case *ast.RangeStatement:
		a.expr(n.Start)
		a.expr(n.End)
		if t := a.hint(); t != "" {
			a.m.Annotate(n, ValueOf(t))
		} else if t := a.m.TypeOf(n.Start); t != "" {
			a.m.Annotate(n, ValueOf(t))
		}
	default:
		a.statement(s)
	}
}

func directType(k ast.DirectKind) string {
	switch k {
	case ast.DirectByte:
		return types.BYTE
	case ast.DirectWord:
		return types.WORD
	case ast.DirectDWord:
		return types.DWORD
	case ast.DirectLWord:
		return types.LWORD
	}
	return types.BOOL
}

func (a *annotator) literal(n *ast.Literal) {
	var typ string
	switch n.Kind {
	case ast.LitInteger:
		typ = a.integerType(n.Int, a.hint())
	case ast.LitReal:
		typ = types.LREAL
		if h := a.find(a.hint()); h.IsFloat() {
			typ = h.Name
		}
	case ast.LitBool:
		typ = types.BOOL
	case ast.LitString, ast.LitWString:
		typ = a.stringLiteralType(n)
	case ast.LitTime:
		typ = types.TIME
	case ast.LitDate:
		typ = types.DATE
	case ast.LitTimeOfDay:
		typ = types.TIME_OF_DAY
	case ast.LitDateTime:
		typ = types.DATE_AND_TIME
	case ast.LitNull:
		if h := a.find(a.hint()); h.IsPointer() {
			typ = h.Name
		} else {
			typ = a.pointerTo(types.VOID)
		}
	}
	a.m.Annotate(n, ValueOf(typ))
}

// integerType is the type an integer literal takes: the hinted type when
// the value fits it, DINT otherwise (LINT beyond 32 bits).
func (a *annotator) integerType(v int64, hint string) string {
	if h := a.find(hint); h != nil && fits(v, h) {
		return h.Name
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return types.LINT
	}
	return types.DINT
}

// fits reports whether v is representable in t. Reals take any integer.
func fits(v int64, t *types.Info) bool {
	switch {
	case t.IsFloat():
		return true
	case t.Kind == types.KindSubRange:
		return v >= t.Lo && v <= t.Hi
	case t.Kind != types.KindInteger:
		return false
	case t.Class != types.ClassInt && t.Class != types.ClassBit:
		return false
	case t.Bits >= 64:
		return t.Signed || v >= 0
	case t.Signed:
		lim := int64(1) << (t.Bits - 1)
		return v >= -lim && v < lim
	}
	return v >= 0 && v < int64(1)<<t.Bits
}

func (a *annotator) stringLiteralType(n *ast.Literal) string {
	prefix, enc, length := "__STRING_", types.UTF8, int64(len(n.Str))
	if n.Kind == ast.LitWString {
		prefix, enc, length = "__WSTRING_", types.UTF16, int64(len(utf16.Encode([]rune(n.Str))))
	}
	name := fmt.Sprintf("%s%d", prefix, length)
	if a.find(name) == nil {
		a.m.addType(types.StringOf(name, enc, length))
	}
	return name
}

// refineLiteral re-types an integer literal (possibly negated or in
// parentheses) to typ when the value fits. It reports whether it did.
func (a *annotator) refineLiteral(s ast.Statement, typ string) bool {
	t := a.find(typ)
	if t == nil {
		return false
	}
	v, lit, ok := integerLiteral(s)
	if !ok || !fits(v, t) {
		if r, isReal := s.(*ast.Literal); isReal && r.Kind == ast.LitReal && t.IsFloat() {
			a.m.Annotate(r, ValueOf(t.Name))
			return true
		}
		return false
	}
	a.m.Annotate(lit, ValueOf(t.Name))
	for cur := s; cur != lit; {
		a.m.Annotate(cur, ValueOf(t.Name))
		switch n := cur.(type) {
		case *ast.ParenExpr:
			cur = n.Inner
		case *ast.UnaryExpr:
			cur = n.Operand
		default:
			cur = lit
		}
	}
	return true
}

// integerLiteral unwraps `-5`, `(5)` and `5`.
func integerLiteral(s ast.Statement) (int64, *ast.Literal, bool) {
	switch n := s.(type) {
	case *ast.Literal:
		if n.Kind == ast.LitInteger {
			return n.Int, n, true
		}
	case *ast.ParenExpr:
		return integerLiteral(n.Inner)
	case *ast.UnaryExpr:
		if n.Op == ast.OpMinus {
			if v, lit, ok := integerLiteral(n.Operand); ok {
				return -v, lit, true
			}
		}
	}
	return 0, nil, false
}

// isLiteral reports numeric literals whose type is still negotiable.
func isLiteral(s ast.Statement) bool {
	if _, _, ok := integerLiteral(s); ok {
		return true
	}
	if l, ok := s.(*ast.Literal); ok && l.Kind == ast.LitReal {
		return true
	}
	return false
}

func (a *annotator) arrayLiteral(n *ast.ArrayLiteral) {
	h := a.find(a.hint())
	if !h.IsArray() {
		for _, e := range n.Elements {
			a.withoutHint(e)
		}
		a.m.Annotate(n, ValueOf(types.VOID))
		return
	}
	for _, e := range n.Elements {
		a.expect(e, h.Inner)
	}
	a.m.Annotate(n, ValueOf(h.Name))
}

func (a *annotator) structLiteral(n *ast.StructLiteral) {
	h := a.find(a.hint())
	for _, f := range n.Fields {
		ref, ok := f.Left.(*ast.Reference)
		if !h.IsStruct() || !ok {
			a.withoutHint(f.Right)
			continue
		}
		member := a.idx.FindMember(h.Name, ref.Name)
		if member == nil {
			a.withoutHint(f.Right)
			continue
		}
		ann := a.variableAnnotation(member)
		a.m.Annotate(ref, ann)
		a.m.Annotate(f, ann)
		a.expect(f.Right, ann.Type)
	}
	if h.IsStruct() {
		a.m.Annotate(n, ValueOf(h.Name))
	} else {
		a.m.Annotate(n, ValueOf(types.VOID))
	}
}

func (a *annotator) variableAnnotation(v *index.VariableEntry) Annotation {
	ann := Annotation{
		Kind:      Variable,
		Type:      v.Type,
		Qualified: v.Qualified,
		Constant:  v.Constant,
		VarKind:   v.Kind,
		Global:    v.IsGlobal(),
	}
	if t := a.find(v.Type); t != nil && t.Kind == types.KindPointer && t.AutoDeref {
		ann.Type, ann.AutoDeref = t.Inner, true
	}
	if v.Property {
		// inside its own accessors the backing variable is plain storage
		if p := a.currentPou(); p == nil || !types.SameName(p.Property, v.Qualified) {
			ann.Property = true
		}
	}
	return ann
}

func (a *annotator) functionAnnotation(p *index.PouEntry) Annotation {
	return Annotation{Kind: Function, Type: p.ReturnType, Qualified: p.Name, Pou: p.Kind}
}

// resolveName resolves a bare identifier from the current scope: variables
// first, then POUs and the methods and actions in reach, then types.
func (a *annotator) resolveName(name string) (Annotation, bool) {
	v := a.idx.FindVariable(a.scope, []string{name})
	if v == nil || v.Role == index.RoleEnumValue {
		// an enumerator of the expected enum wins over same-named ones
		if h := a.find(a.hint()); h.IsEnum() {
			if e := a.idx.FindLocalMember(h.Name, name); e != nil {
				v = e
			}
		}
	}
	if v != nil {
		return a.variableAnnotation(v), true
	}
	if p, _ := a.idx.FindCallable(a.scope, []string{name}); p != nil {
		return a.functionAnnotation(p), true
	}
	if t := a.find(name); t != nil {
		return TypeRefOf(t.Name), true
	}
	return Annotation{}, false
}

func (a *annotator) memberAccess(n *ast.MemberAccess) {
	if d, ok := n.Member.(*ast.DirectAccess); ok {
		a.withoutHint(n.Base)
		a.expr(d)
		a.m.Annotate(n, ValueOf(directType(d.Kind)))
		return
	}
	a.withoutHint(n.Base)
	ref, ok := n.Member.(*ast.Reference)
	if !ok {
		return
	}
	base, ok := a.m.Get(n.Base)
	if !ok {
		return
	}
	ann, ok := a.member(base, n.Base, ref.Name)
	if !ok {
		return
	}
	a.m.Annotate(ref, ann)
	a.m.Annotate(n, ann)
}

// member resolves name inside the value or type base stands for.
func (a *annotator) member(base Annotation, baseNode ast.Statement, name string) (Annotation, bool) {
	switch base.Kind {
	case Type:
		if e := a.idx.FindEnumElement(base.Type, name); e != nil {
			return a.variableAnnotation(e), true
		}
		return Annotation{}, false
	case Variable, Value:
	default:
		return Annotation{}, false
	}
	t := a.find(base.Type)
	if t == nil {
		return Annotation{}, false
	}
	container := t.Name
	if v := a.idx.FindMember(container, name); v != nil && v.Role != index.RoleEnumValue {
		ann := a.variableAnnotation(v)
		ann.Constant = ann.Constant || base.Constant
		ann.Global = base.Global
		return ann, true
	}
	if p := a.idx.FindMethod(container, name); p != nil {
		ann := a.functionAnnotation(p)
		ann.Virtual = !isSuperReceiver(baseNode) && (p.Overriding || a.idx.IsOverridden(container, name))
		return ann, true
	}
	if p := a.idx.FindAction(container, name); p != nil {
		return a.functionAnnotation(p), true
	}
	return Annotation{}, false
}

// isSuperReceiver reports `SUPER^.m()`, which always binds statically.
func isSuperReceiver(s ast.Statement) bool {
	switch n := s.(type) {
	case *ast.Deref:
		return isSuperReceiver(n.Base)
	case *ast.SuperRef:
		return true
	}
	return false
}

func (a *annotator) arrayAccess(n *ast.ArrayAccess) {
	a.withoutHint(n.Base)
	for _, i := range n.Indices {
		a.withoutHint(i)
	}
	t := a.find(a.m.TypeOf(n.Base))
	if !t.IsArray() {
		if a.m.Has(n.Base) {
			a.m.Annotate(n, ValueOf(types.VOID))
		}
		return
	}
	// indices beyond the first array's rank continue into nested arrays
	left := len(n.Indices)
	for t.IsArray() && left > 0 {
		rank := len(t.Dims)
		if t.Kind == types.KindVarLengthArray {
			rank = t.Rank
		}
		if left < rank {
			a.m.Annotate(n, ValueOf(types.VOID))
			return
		}
		left -= rank
		if left == 0 {
			a.m.Annotate(n, ValueOf(t.Inner))
			return
		}
		t = a.find(t.Inner)
	}
	a.m.Annotate(n, ValueOf(types.VOID))
}

func (a *annotator) deref(n *ast.Deref) {
	a.withoutHint(n.Base)
	if !a.m.Has(n.Base) {
		return
	}
	t := a.find(a.m.TypeOf(n.Base))
	if !t.IsPointer() {
		a.m.Annotate(n, ValueOf(types.VOID))
		return
	}
	a.m.Annotate(n, ValueOf(t.Inner))
}

func (a *annotator) cast(n *ast.CastExpr) {
	t := a.find(n.TypeName)
	if t == nil {
		a.withoutHint(n.Target)
		return
	}
	if t.IsEnum() {
		if ref, ok := n.Target.(*ast.Reference); ok {
			if e := a.idx.FindEnumElement(t.Name, ref.Name); e != nil {
				ann := a.variableAnnotation(e)
				a.m.Annotate(ref, ann)
				a.m.Annotate(n, ann)
			}
			return
		}
	}
	// a typed literal is a literal of that type
	if v, lit, ok := integerLiteral(n.Target); ok {
		a.push(t.Name)
		a.expr(n.Target)
		a.pop()
		if t.IsBool() && (v == 0 || v == 1) || fits(v, t) {
			a.m.Annotate(lit, ValueOf(t.Name))
			a.m.Annotate(n.Target, ValueOf(t.Name))
		}
		a.m.Annotate(n, ValueOf(t.Name))
		return
	}
	a.expect(n.Target, t.Name)
	a.m.Annotate(n, ValueOf(t.Name))
}
