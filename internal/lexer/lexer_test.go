package lexer

import (
	"testing"

	"plcc/internal/diag"
	"plcc/internal/source"
	"plcc/internal/token"
)

func lex(t *testing.T, src string) ([]token.Token, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.Register("test.st", src)
	bag := diag.NewBag(0)
	toks := Tokenize(fs.Get(id), Options{Reporter: diag.BagReporter{Bag: bag}})
	return toks, bag
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func expectKinds(t *testing.T, src string, want ...token.Kind) {
	t.Helper()
	toks, bag := lex(t, src)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics for %q: %+v", src, bag.Items())
	}
	got := kinds(toks)
	want = append(want, token.EOF)
	if len(got) != len(want) {
		t.Fatalf("%q: want %v, got %v", src, want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%q: token %d: want %v, got %v (%q)", src, i, want[i], got[i], toks[i].Text)
		}
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	expectKinds(t, "program Main end_program",
		token.KwProgram, token.Ident, token.KwEndProgram)
	expectKinds(t, "VAR_IN_OUT x : REF_TO DINT; END_VAR",
		token.KwVarInOut, token.Ident, token.Colon, token.KwRefTo, token.Ident, token.Semicolon, token.KwEndVar)
}

func TestLiterals(t *testing.T) {
	expectKinds(t, "16#FF 2#1010_0101 1_000 3.14 1.0E-3 'it$'s' \"wide\"",
		token.BasedIntLit, token.BasedIntLit, token.IntLit, token.RealLit, token.RealLit, token.StringLit, token.WStringLit)
	expectKinds(t, "T#1s TIME#1h30m15ms D#2024-01-31 TOD#12:30:00 DT#2024-01-31-12:00:00",
		token.TimeLit, token.TimeLit, token.DateLit, token.TodLit, token.DateTimeLit)
	expectKinds(t, "INT#5", token.Ident, token.Hash, token.IntLit)
}

func TestRangesAndOperators(t *testing.T) {
	expectKinds(t, "ARRAY[0..9] OF INT",
		token.KwArray, token.LBracket, token.IntLit, token.DotDot, token.IntLit, token.RBracket, token.KwOf, token.Ident)
	expectKinds(t, "a := b ** 2 <> c => d^",
		token.Ident, token.Assign, token.Ident, token.Power, token.IntLit, token.NotEq, token.Ident, token.Arrow, token.Ident, token.Caret)
}

func TestCommentsAndPragmas(t *testing.T) {
	expectKinds(t, "(* block\n comment *) x // line\n/* c */ {external} y",
		token.Ident, token.Pragma, token.Ident)
}

func TestDirectAccess(t *testing.T) {
	expectKinds(t, "x.%X3 y AT %IX1.0",
		token.Ident, token.Dot, token.DirectAccess, token.Ident, token.KwAt, token.HardwareAddress)
}

func TestSpansCoverText(t *testing.T) {
	toks, _ := lex(t, "x := 16#1F;")
	for _, tok := range toks[:len(toks)-1] {
		if int(tok.Span.Len()) != len(tok.Text) {
			t.Errorf("span %v does not match %q", tok.Span, tok.Text)
		}
	}
	if toks[2].Span.Start != 5 || toks[2].Span.End != 10 {
		t.Errorf("unexpected literal span %v", toks[2].Span)
	}
}

func TestInvalidInputIsReported(t *testing.T) {
	toks, bag := lex(t, "x := 1 ? 2;")
	if bag.Len() != 1 {
		t.Fatalf("expected one diagnostic, got %d", bag.Len())
	}
	if bag.Items()[0].Code != diag.SyntaxError {
		t.Errorf("unexpected code %v", bag.Items()[0].Code)
	}
	if toks[len(toks)-1].Kind != token.EOF {
		t.Errorf("lexing must continue to EOF")
	}
}

func TestUnterminatedComment(t *testing.T) {
	_, bag := lex(t, "x (* never closed")
	if bag.Len() != 1 {
		t.Fatalf("expected one diagnostic, got %d", bag.Len())
	}
}
