package parser

import (
	"testing"

	"plcc/internal/ast"
)

const roundTripSource = `
TYPE
  point : STRUCT x : DINT; y : DINT := 5; END_STRUCT;
  color : INT (red := 1, green := 2, blue := 4) := green;
  small : SINT(-10..10);
  name : STRING[16];
END_TYPE
VAR_GLOBAL CONSTANT limit : DINT := 100; END_VAR
{external} FUNCTION ROUND<T: ANY_REAL> : T VAR_INPUT in : T; END_VAR END_FUNCTION
FUNCTION_BLOCK counter EXTENDS base
  VAR_INPUT step : INT := 1; END_VAR
  VAR_OUTPUT cv : INT; END_VAR
  VAR pts : ARRAY[0..1, 2..3] OF point; p : REF_TO point; END_VAR
  METHOD PROTECTED OVERRIDE reset : BOOL
    cv := 0;
    reset := TRUE;
  END_METHOD
  IF cv < limit AND NOT (step = 0) THEN
    cv := cv + step * (2 - 1);
  ELSIF cv >= limit THEN
    cv := -cv;
  ELSE
    ;
  END_IF
  CASE cv OF
    1, 3..5: p^.x := pts[1, 2].y;
  ELSE
    pts[0, 3] := (x := 1, y := INT#2);
  END_CASE
  FOR cv := 10 TO 0 BY -1 DO
    IF cv.%X0 THEN CONTINUE; END_IF
  END_FOR
  THIS^.cv := ROUND(in := 2.5) ** 2 MOD 3;
END_FUNCTION_BLOCK
ACTION counter.clear
  cv := 0;
  RETURN;
END_ACTION
`

// Printing a parsed unit and parsing it again is a fixpoint of the printer.
func TestPrintParseRoundTrip(t *testing.T) {
	first := mustParse(t, roundTripSource)
	printed := ast.Print(first)
	second := mustParse(t, printed)
	if again := ast.Print(second); again != printed {
		t.Fatalf("round trip changed the program:\n--- first\n%s\n--- second\n%s", printed, again)
	}
	if len(second.Pous) != len(first.Pous) || len(second.Implementations) != len(first.Implementations) ||
		len(second.UserTypes) != len(first.UserTypes) {
		t.Fatalf("structure changed: %d/%d pous, %d/%d impls", len(first.Pous), len(second.Pous),
			len(first.Implementations), len(second.Implementations))
	}
}
