package token

import "testing"

func TestLookupKeywordIsCaseInsensitive(t *testing.T) {
	for _, s := range []string{"END_IF", "end_if", "End_If"} {
		k, ok := LookupKeyword(s)
		if !ok || k != KwEndIf {
			t.Errorf("LookupKeyword(%q) = %v, %v", s, k, ok)
		}
	}
	if _, ok := LookupKeyword("DINT"); ok {
		t.Errorf("elementary type names are identifiers")
	}
}

func TestKindString(t *testing.T) {
	if got := KwFunctionBlock.String(); got != "FUNCTION_BLOCK" {
		t.Errorf("unexpected keyword spelling %q", got)
	}
	if got := Assign.String(); got != "':='" {
		t.Errorf("unexpected operator spelling %q", got)
	}
	if !KwTrue.IsLiteral() || Ident.IsLiteral() {
		t.Errorf("IsLiteral is wrong")
	}
}

func TestAccessorNamesStayIdentifiers(t *testing.T) {
	for _, s := range []string{"GET", "set"} {
		if _, ok := LookupKeyword(s); ok {
			t.Errorf("%s must stay usable as a name", s)
		}
	}
	if k, ok := LookupKeyword("end_get"); !ok || k != KwEndGet {
		t.Errorf("END_GET = %v, %v", k, ok)
	}
}
