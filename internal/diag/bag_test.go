package diag

import (
	"testing"

	"plcc/internal/source"
)

func span(start, end uint32) source.Span {
	return source.Span{File: 1, Start: start, End: end}
}

func TestBagLimitAndErrors(t *testing.T) {
	b := NewBag(2)
	b.Add(Of(NonExhaustiveCase, span(0, 1), "w"))
	if b.HasErrors() || !b.HasWarnings() {
		t.Fatalf("expected only warnings")
	}
	b.Add(Of(UnresolvedReference, span(1, 2), "e"))
	if ok := b.Add(Of(UnresolvedReference, span(2, 3), "dropped")); ok {
		t.Fatalf("limit must drop the third diagnostic")
	}
	if !b.HasErrors() || b.Len() != 2 {
		t.Fatalf("unexpected bag state: %d items", b.Len())
	}
}

func TestBagSortIsDeterministic(t *testing.T) {
	b := NewBag(0)
	b.Add(Of(IncompatibleTypes, span(5, 6), "b"))
	b.Add(Of(NonExhaustiveCase, span(0, 9), "w"))
	b.Add(Of(UnresolvedReference, span(0, 9), "a"))
	b.Sort()
	items := b.Items()
	if items[0].Code != UnresolvedReference || items[1].Code != NonExhaustiveCase || items[2].Code != IncompatibleTypes {
		t.Fatalf("unexpected order: %v %v %v", items[0].Code, items[1].Code, items[2].Code)
	}
}

func TestBagApplyPolicy(t *testing.T) {
	b := NewBag(0)
	b.Add(Of(NarrowingConversion, span(0, 1), "n"))
	b.Add(Of(NonExhaustiveCase, span(1, 2), "c"))
	b.Apply(Policy{
		Suppress: map[Code]bool{NonExhaustiveCase: true},
		Severity: map[Code]Severity{NarrowingConversion: SevError},
	})
	if b.Len() != 1 || b.Items()[0].Severity != SevError {
		t.Fatalf("policy not applied: %+v", b.Items())
	}
}

func TestKeepMostSpecific(t *testing.T) {
	rank := func(c Code) int {
		switch c {
		case UnresolvedReference:
			return 0
		case IncompatibleArrayAccessRange:
			return 1
		}
		return 10
	}
	ds := []Diagnostic{
		Of(IncompatibleArrayAccessRange, span(0, 10), "wide").OnNode(7),
		Of(IncompatibleAssignment, span(2, 4), "narrow").OnNode(7),
		Of(IncompatibleArrayAccessRange, span(2, 4), "narrow, later check").OnNode(7),
		Of(UnresolvedReference, span(20, 21), "other node").OnNode(8),
		Of(DuplicateSymbol, span(30, 31), "no node"),
	}
	out := KeepMostSpecific(ds, rank)
	if len(out) != 3 {
		t.Fatalf("expected 3 diagnostics, got %d", len(out))
	}
	if out[0].Code != IncompatibleArrayAccessRange || out[0].Message != "narrow, later check" {
		t.Errorf("wrong survivor for node 7: %+v", out[0])
	}
}
