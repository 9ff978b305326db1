package ast

import "plcc/internal/source"

// Builder creates synthetic nodes. Every node gets a fresh id and the span
// passed in (usually the span of the node being lowered, or Undefined).
type Builder struct {
	IDs IDProvider
}

func NewBuilder(ids IDProvider) Builder { return Builder{IDs: ids} }

func (b Builder) meta(sp source.Span) Meta { return Meta{ID: b.IDs.Next(), Span: sp} }

func (b Builder) Ref(name string, sp source.Span) *Reference {
	return &Reference{Meta: b.meta(sp), Name: name}
}

func (b Builder) Member(base Statement, member string, sp source.Span) *MemberAccess {
	return &MemberAccess{Meta: b.meta(sp), Base: base, Member: b.Ref(member, sp)}
}

// Path builds a.b.c from its segments.
func (b Builder) Path(sp source.Span, segments ...string) Statement {
	var out Statement
	for _, s := range segments {
		if out == nil {
			out = b.Ref(s, sp)
			continue
		}
		out = b.Member(out, s, sp)
	}
	return out
}

func (b Builder) Call(op Statement, args []Statement, sp source.Span) *CallStatement {
	return &CallStatement{Meta: b.meta(sp), Operator: op, Args: args}
}

// CallNamed calls a POU by name.
func (b Builder) CallNamed(name string, args []Statement, sp source.Span) *CallStatement {
	return b.Call(b.Ref(name, sp), args, sp)
}

func (b Builder) Assign(left, right Statement, sp source.Span) *Assignment {
	return &Assignment{Meta: b.meta(sp), Left: left, Right: right}
}

func (b Builder) IntLit(v int64, sp source.Span) *Literal {
	return &Literal{Meta: b.meta(sp), Kind: LitInteger, Int: v}
}

func (b Builder) BoolLit(v bool, sp source.Span) *Literal {
	lit := &Literal{Meta: b.meta(sp), Kind: LitBool}
	if v {
		lit.Int = 1
	}
	return lit
}

func (b Builder) Deref(base Statement, sp source.Span) *Deref {
	return &Deref{Meta: b.meta(sp), Base: base}
}

// RefOf builds REF(target).
func (b Builder) RefOf(target Statement, sp source.Span) *CallStatement {
	return b.CallNamed("REF", []Statement{target}, sp)
}

func (b Builder) Binary(op Operator, l, r Statement, sp source.Span) *BinaryExpr {
	return &BinaryExpr{Meta: b.meta(sp), Op: op, Left: l, Right: r}
}

func (b Builder) Range(start, end Statement, sp source.Span) *RangeStatement {
	return &RangeStatement{Meta: b.meta(sp), Start: start, End: end}
}

func (b Builder) If(cond Statement, body []Statement, sp source.Span) *IfStatement {
	return &IfStatement{Meta: b.meta(sp), Blocks: []*ConditionalBlock{{Condition: cond, Body: body}}}
}

func (b Builder) Index(base Statement, indices []Statement, sp source.Span) *ArrayAccess {
	return &ArrayAccess{Meta: b.meta(sp), Base: base, Indices: indices}
}

// Cast reinterprets target as typeName.
func (b Builder) Cast(typeName string, target Statement, sp source.Span) *CastExpr {
	return &CastExpr{Meta: b.meta(sp), TypeName: typeName, TypeSpan: sp, Target: target}
}

// For builds `FOR counter := start TO end DO body END_FOR`.
func (b Builder) For(counter, start, end Statement, body []Statement, sp source.Span) *ForLoop {
	return &ForLoop{Meta: b.meta(sp), Counter: counter, Start: start, End: end, Body: body}
}

func (b Builder) StructLit(fields []*Assignment, sp source.Span) *StructLiteral {
	return &StructLiteral{Meta: b.meta(sp), Fields: fields}
}

// TypeRef is a named type declaration.
func TypeRef(name string, sp source.Span) *DataTypeReference {
	return &DataTypeReference{Name: name, Span: sp}
}

// SegmentsOf flattens a reference chain a.b.c into its names. It returns
// nil when s contains anything other than references and member accesses.
func SegmentsOf(s Statement) []string {
	switch n := s.(type) {
	case *Reference:
		return []string{n.Name}
	case *MemberAccess:
		base := SegmentsOf(n.Base)
		ref, ok := n.Member.(*Reference)
		if base == nil || !ok {
			return nil
		}
		return append(base, ref.Name)
	}
	return nil
}
