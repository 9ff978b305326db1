package diag

import "testing"

func TestCodeIDsAreStable(t *testing.T) {
	tests := []struct {
		code Code
		id   string
		name string
	}{
		{DuplicateSymbol, "E004", "duplicate_symbol"},
		{UnresolvedReference, "E048", "unresolved_reference"},
		{IncompatibleArrayAccessRange, "E058", "incompatible_array_access_range"},
		{NonExhaustiveCase, "E085", "non_exhaustive_case"},
	}
	for _, tt := range tests {
		if got := tt.code.ID(); got != tt.id {
			t.Errorf("%v: want id %s, got %s", tt.code, tt.id, got)
		}
		if got := tt.code.Name(); got != tt.name {
			t.Errorf("%v: want name %s, got %s", tt.code, tt.name, got)
		}
	}
}

func TestParseCode(t *testing.T) {
	for _, in := range []string{"E048", "e048", "48", "unresolved_reference"} {
		c, err := ParseCode(in)
		if err != nil || c != UnresolvedReference {
			t.Errorf("ParseCode(%q) = %v, %v", in, c, err)
		}
	}
	if _, err := ParseCode("E999"); err == nil {
		t.Errorf("expected error for unknown code")
	}
}

func TestCodesSortedAndNamed(t *testing.T) {
	codes := Codes()
	seen := map[string]bool{}
	for i, c := range codes {
		if i > 0 && codes[i-1] >= c {
			t.Fatalf("codes not sorted at %d", i)
		}
		if seen[c.Name()] {
			t.Errorf("duplicate name %s", c.Name())
		}
		seen[c.Name()] = true
	}
}
