package ast

import (
	"testing"

	"plcc/internal/source"
)

func sampleExpr(b Builder) Statement {
	// a := x.y + 3 * f(1)
	return b.Assign(
		b.Ref("a", source.Undefined()),
		b.Binary(OpPlus,
			b.Path(source.Undefined(), "x", "y"),
			b.Binary(OpMultiply, b.IntLit(3, source.Undefined()), b.CallNamed("f", []Statement{b.IntLit(1, source.Undefined())}, source.Undefined()), source.Undefined()),
			source.Undefined()),
		source.Undefined())
}

func TestIDProviderClonesShareCounter(t *testing.T) {
	p := NewIDProvider()
	q := p.Clone()
	a, b, c := p.Next(), q.Next(), p.Next()
	if a != 1 || b != 2 || c != 3 {
		t.Fatalf("ids = %d %d %d, want 1 2 3", a, b, c)
	}
	s0, s1 := Segment(0), Segment(1)
	if s0.Peek() >= s1.Peek() {
		t.Fatalf("segments overlap: %d >= %d", s0.Peek(), s1.Peek())
	}
}

func TestInspectVisitsInSourceOrder(t *testing.T) {
	b := NewBuilder(NewIDProvider())
	var names []string
	Inspect(sampleExpr(b), func(s Statement) bool {
		if r, ok := s.(*Reference); ok {
			names = append(names, r.Name)
		}
		return true
	})
	want := []string{"a", "x", "y", "f"}
	if len(names) != len(want) {
		t.Fatalf("visited %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("visited %v, want %v", names, want)
		}
	}
}

func TestRewriteReplacesLeaves(t *testing.T) {
	b := NewBuilder(NewIDProvider())
	out := Rewrite(sampleExpr(b), func(s Statement) Statement {
		if r, ok := s.(*Reference); ok && r.Name == "x" {
			return b.Deref(b.Ref("__this", r.Span), r.Span)
		}
		return s
	})
	if got, want := PrintStatement(out), "a := __this^.y + 3 * f(1)"; got != want {
		t.Fatalf("rewrite printed %q, want %q", got, want)
	}
}

func TestCloneAssignsFreshIDs(t *testing.T) {
	ids := NewIDProvider()
	b := NewBuilder(ids)
	orig := sampleExpr(b)
	seen := map[ID]bool{}
	Inspect(orig, func(s Statement) bool { seen[s.GetID()] = true; return true })

	cp := Cloner{IDs: ids}.Statement(orig)
	if PrintStatement(cp) != PrintStatement(orig) {
		t.Fatalf("clone differs: %q vs %q", PrintStatement(cp), PrintStatement(orig))
	}
	Inspect(cp, func(s Statement) bool {
		if seen[s.GetID()] {
			t.Fatalf("clone reused id %d", s.GetID())
		}
		return true
	})
}

func TestClonerRenamesTypes(t *testing.T) {
	c := Cloner{IDs: NewIDProvider(), Types: func(n string) string {
		if n == "T" {
			return "DINT"
		}
		return n
	}}
	decl := c.TypeDecl(&DataTypeDefinition{Type: NewArray("", nil, TypeRef("T", source.Undefined()))})
	if got := PrintType(decl); got != "ARRAY[] OF DINT" {
		t.Fatalf("renamed type printed %q", got)
	}
}

func TestPrintParenthesizesByPrecedence(t *testing.T) {
	b := NewBuilder(NewIDProvider())
	sp := source.Undefined()
	e := b.Binary(OpMultiply, b.Binary(OpPlus, b.Ref("a", sp), b.Ref("b", sp), sp), b.Ref("c", sp), sp)
	if got := PrintStatement(e); got != "(a + b) * c" {
		t.Fatalf("printed %q", got)
	}
	e = b.Binary(OpMinus, b.Ref("a", sp), b.Binary(OpMinus, b.Ref("b", sp), b.Ref("c", sp), sp), sp)
	if got := PrintStatement(e); got != "a - (b - c)" {
		t.Fatalf("printed %q", got)
	}
}

func TestLiteralText(t *testing.T) {
	cases := []struct {
		lit  Literal
		want string
	}{
		{Literal{Kind: LitInteger, Int: -4}, "-4"},
		{Literal{Kind: LitReal, Real: 2}, "2.0"},
		{Literal{Kind: LitBool, Int: 1}, "TRUE"},
		{Literal{Kind: LitString, Str: "it's $5"}, "'it$'s $$5'"},
		{Literal{Kind: LitInteger, Int: 255, Raw: "16#FF"}, "16#FF"},
	}
	for _, tc := range cases {
		if got := LiteralText(&tc.lit); got != tc.want {
			t.Errorf("LiteralText(%+v) = %q, want %q", tc.lit, got, tc.want)
		}
	}
}

func TestSegmentsOf(t *testing.T) {
	b := NewBuilder(NewIDProvider())
	sp := source.Undefined()
	if got := SegmentsOf(b.Path(sp, "a", "b", "c")); len(got) != 3 || got[2] != "c" {
		t.Fatalf("SegmentsOf = %v", got)
	}
	if got := SegmentsOf(b.Deref(b.Ref("p", sp), sp)); got != nil {
		t.Fatalf("SegmentsOf(deref) = %v, want nil", got)
	}
}
