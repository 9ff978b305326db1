package parser

import (
	"strings"
	"testing"

	"plcc/internal/ast"
	"plcc/internal/diag"
)

func TestParseFunctionWithGlobals(t *testing.T) {
	unit := mustParse(t, `
VAR_GLOBAL gX : INT; END_VAR
FUNCTION main : INT VAR x : INT; END_VAR
  x := 10; gX := 20; gX := x + gX; main := gX;
END_FUNCTION
`)
	if len(unit.GlobalBlocks) != 1 || unit.GlobalBlocks[0].Variables[0].Name != "gX" {
		t.Fatalf("globals not parsed: %+v", unit.GlobalBlocks)
	}
	main := unit.FindPou("main")
	if main == nil || main.Kind != ast.PouFunction || ast.TypeNameOf(main.ReturnType) != "INT" {
		t.Fatalf("bad pou: %+v", main)
	}
	impl := unit.FindImplementation("main")
	if len(impl.Statements) != 4 {
		t.Fatalf("got %d statements, want 4", len(impl.Statements))
	}
	third := impl.Statements[2].(*ast.Assignment)
	bin, ok := third.Right.(*ast.BinaryExpr)
	if !ok || bin.Op != ast.OpPlus {
		t.Fatalf("x + gX parsed as %T", third.Right)
	}
}

func TestParseGenericHeader(t *testing.T) {
	unit := mustParse(t, `FUNCTION foo<T: ANY, U : ANY_NUM> : T VAR_INPUT a : U; END_VAR END_FUNCTION`)
	foo := unit.FindPou("foo")
	if len(foo.Generics) != 2 || foo.Generics[0] != (ast.GenericBinding{Name: "T", Nature: "ANY"}) ||
		foo.Generics[1].Nature != "ANY_NUM" {
		t.Fatalf("generics = %+v", foo.Generics)
	}
	if !unit.FindImplementation("foo").Generic {
		t.Fatalf("implementation not marked generic")
	}
}

func TestParseDoubleDeref(t *testing.T) {
	unit := mustParse(t, `PROGRAM p VAR a, b : BYTE; c : REF_TO BYTE; d : REF_TO REF_TO BYTE; e : BYTE; END_VAR
c := REF(a); d := REF(c); b := d^^; e := (d^)^; a := e + 16#01;
END_PROGRAM`)
	impl := unit.FindImplementation("p")
	b := impl.Statements[2].(*ast.Assignment)
	outer, ok := b.Right.(*ast.Deref)
	if !ok {
		t.Fatalf("d^^ parsed as %T", b.Right)
	}
	if _, ok := outer.Base.(*ast.Deref); !ok {
		t.Fatalf("inner of d^^ is %T", outer.Base)
	}
	last := impl.Statements[4].(*ast.Assignment).Right.(*ast.BinaryExpr)
	if lit := last.Right.(*ast.Literal); lit.Int != 1 || lit.Raw != "16#01" {
		t.Fatalf("16#01 decoded as %+v", lit)
	}
	pou := unit.FindPou("p")
	if len(pou.Blocks[0].Variables) != 5 {
		t.Fatalf("a, b should declare two variables: %d total", len(pou.Blocks[0].Variables))
	}
	a, bv := pou.Blocks[0].Variables[0], pou.Blocks[0].Variables[1]
	if a.Type == bv.Type {
		t.Fatalf("variables of a shared declaration must not share the type node")
	}
}

func TestParseArrayAccessAndTypes(t *testing.T) {
	unit := mustParse(t, `PROGRAM prg
VAR
  multi : ARRAY[0..1,2..3] OF INT;
  vla : REF_TO ARRAY[*] OF INT;
  s : STRING[20];
  r : INT(0..10);
  e : (red, green := 5, blue);
  t : TIME := T#1s500ms;
END_VAR
multi[1,4];
END_PROGRAM`)
	vars := unit.FindPou("prg").Blocks[0].Variables
	arr := vars[0].Type.(*ast.DataTypeDefinition).Type.(*ast.ArrayType)
	if len(arr.Dims) != 2 {
		t.Fatalf("dims = %d", len(arr.Dims))
	}
	ptr := vars[1].Type.(*ast.DataTypeDefinition).Type.(*ast.PointerType)
	if vla, ok := ptr.Inner.(*ast.DataTypeDefinition).Type.(*ast.VarLengthArrayType); !ok || vla.Rank != 1 {
		t.Fatalf("vla = %+v", ptr.Inner)
	}
	if _, ok := vars[2].Type.(*ast.DataTypeDefinition).Type.(*ast.StringType); !ok {
		t.Fatalf("STRING[20] parsed as %+v", vars[2].Type)
	}
	if sr := vars[3].Type.(*ast.DataTypeDefinition).Type.(*ast.SubRangeType); sr.Base != "INT" {
		t.Fatalf("subrange base = %q", sr.Base)
	}
	enum := vars[4].Type.(*ast.DataTypeDefinition).Type.(*ast.EnumType)
	if len(enum.Elements) != 3 || enum.Elements[1].Value == nil {
		t.Fatalf("enum = %+v", enum.Elements)
	}
	if lit := vars[5].Initializer.(*ast.Literal); lit.Int != 1_500_000_000 {
		t.Fatalf("T#1s500ms = %d ns", lit.Int)
	}
	acc := firstStatement(t, unit, "prg").(*ast.ArrayAccess)
	if len(acc.Indices) != 2 {
		t.Fatalf("indices = %d", len(acc.Indices))
	}
}

func TestParseControlFlow(t *testing.T) {
	unit := mustParse(t, `FUNCTION f : DINT
VAR i, acc : DINT; c : BOOL; END_VAR
IF c THEN acc := 1; ELSIF NOT c THEN acc := 2; ELSE acc := 3; END_IF
CASE acc OF
  1, 2: acc := 10;
  3..5: acc := 20; acc := 21;
ELSE
  acc := 0;
END_CASE
FOR i := 0 TO 10 BY 2 DO acc := acc + i; END_FOR
WHILE acc > 0 DO acc := acc - 1; IF acc = 5 THEN EXIT; END_IF END_WHILE
REPEAT acc := acc + 1; UNTIL acc >= 3 END_REPEAT
f := acc;
END_FUNCTION`)
	stmts := unit.FindImplementation("f").Statements
	if len(stmts) != 6 {
		t.Fatalf("got %d statements", len(stmts))
	}
	ifs := stmts[0].(*ast.IfStatement)
	if len(ifs.Blocks) != 2 || len(ifs.Else) != 1 {
		t.Fatalf("if = %+v", ifs)
	}
	cs := stmts[1].(*ast.CaseStatement)
	if len(cs.Blocks) != 2 || len(cs.Blocks[1].Body) != 2 || !cs.HasElse {
		t.Fatalf("case = %+v", cs)
	}
	if _, ok := cs.Blocks[1].Labels[0].(*ast.RangeStatement); !ok {
		t.Fatalf("3..5 parsed as %T", cs.Blocks[1].Labels[0])
	}
	if fl := stmts[2].(*ast.ForLoop); fl.By == nil {
		t.Fatalf("BY lost")
	}
}

func TestParseClassesMethodsActions(t *testing.T) {
	unit := mustParse(t, `
CLASS base
  VAR x : INT; END_VAR
  METHOD get : INT get := x; END_METHOD
END_CLASS
FUNCTION_BLOCK derived EXTENDS base
  METHOD PUBLIC OVERRIDE get : INT get := 2 * x; END_METHOD
  x := x + 1;
END_FUNCTION_BLOCK
ACTIONS derived
  ACTION reset x := 0; END_ACTION
END_ACTIONS
`)
	get := unit.FindPou("derived.get")
	if get == nil || !get.Overriding || get.Parent != "derived" || get.Kind != ast.PouMethod {
		t.Fatalf("method = %+v", get)
	}
	if unit.FindImplementation("base") != nil {
		t.Fatalf("classes have no body implementation")
	}
	if d := unit.FindPou("derived"); d.Super != "base" {
		t.Fatalf("super = %q", d.Super)
	}
	act := unit.FindImplementation("derived.reset")
	if act == nil || act.Kind != ast.PouAction || act.TypeName != "derived" {
		t.Fatalf("action = %+v", act)
	}
}

func TestParseLiteralsAndCalls(t *testing.T) {
	unit := mustParse(t, `PROGRAM p VAR
  arr : ARRAY[0..4] OF INT := [2(1), 3(0)];
  pt : point := (x := 1, y := 2);
END_VAR
fb(a := INT#5, b := 'it$'s', q => out);
x := y.%X3 OR y.2;
s := "wide$0041";
END_PROGRAM`)
	vars := unit.FindPou("p").Blocks[0].Variables
	arr := vars[0].Initializer.(*ast.ArrayLiteral)
	if m := arr.Elements[0].(*ast.MultipliedStatement); m.Multiplier != 2 {
		t.Fatalf("multiplier = %d", m.Multiplier)
	}
	if sl := vars[1].Initializer.(*ast.StructLiteral); len(sl.Fields) != 2 {
		t.Fatalf("struct literal fields = %d", len(sl.Fields))
	}
	stmts := unit.FindImplementation("p").Statements
	call := stmts[0].(*ast.CallStatement)
	if len(call.Args) != 3 {
		t.Fatalf("args = %d", len(call.Args))
	}
	cast := call.Args[0].(*ast.Assignment).Right.(*ast.CastExpr)
	if cast.TypeName != "INT" {
		t.Fatalf("typed literal = %+v", cast)
	}
	if s := call.Args[1].(*ast.Assignment).Right.(*ast.Literal); s.Str != "it's" {
		t.Fatalf("string = %q", s.Str)
	}
	if _, ok := call.Args[2].(*ast.OutputAssignment); !ok {
		t.Fatalf("q => out parsed as %T", call.Args[2])
	}
	or := stmts[1].(*ast.Assignment).Right.(*ast.BinaryExpr)
	bit := or.Left.(*ast.MemberAccess).Member.(*ast.DirectAccess)
	if bit.Kind != ast.DirectBit || bit.Index.(*ast.Literal).Int != 3 {
		t.Fatalf("bit access = %+v", bit)
	}
	if w := stmts[2].(*ast.Assignment).Right.(*ast.Literal); w.Str != "wideA" {
		t.Fatalf("wide string = %q", w.Str)
	}
}

func TestParseExternalPragma(t *testing.T) {
	unit, bag := parseSource(t, `{external} FUNCTION ROUND<T: ANY_REAL> : T VAR_INPUT in : T; END_VAR END_FUNCTION
{unknown} FUNCTION g : INT END_FUNCTION`)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors: %v", bag.Items())
	}
	if unit.FindPou("ROUND").Linkage != ast.LinkExternal {
		t.Fatalf("{external} not applied")
	}
	if unit.FindPou("g").Linkage != ast.LinkInternal {
		t.Fatalf("linkage leaked to the next POU")
	}
	if bag.Len() != 1 || bag.Items()[0].Code != diag.UnknownPragma {
		t.Fatalf("want one unknown_pragma info, got %v", bag.Items())
	}
}

func TestParseTypeSemicolonIsOptional(t *testing.T) {
	unit := mustParse(t, `TYPE point : STRUCT x : INT; y : INT; END_STRUCT END_TYPE
TYPE
  a : STRUCT v : INT; END_STRUCT
  b : INT := 3;
  c : (on, off)
END_TYPE`)
	if len(unit.UserTypes) != 4 {
		t.Fatalf("got %d type declarations, want 4", len(unit.UserTypes))
	}
	if unit.UserTypes[2].Initializer == nil {
		t.Fatalf("initializer of b lost")
	}

	_, bag := parseSource(t, `TYPE a : INT b : INT; END_TYPE`)
	if bag.HasErrors() {
		t.Fatalf("declarations separated by a name: %v", bag.Items())
	}
	_, bag = parseSource(t, `TYPE a : INT := 1 2 END_TYPE`)
	if !bag.HasErrors() {
		t.Fatalf("expected a missing ';' error")
	}
}

func TestParseErrorsRecover(t *testing.T) {
	unit, bag := parseSource(t, `PROGRAM p
x := ;
y := 1;
END_PROGRAM
FUNCTION f : INT END_FUNCTION`)
	if !bag.HasErrors() {
		t.Fatalf("expected a syntax error")
	}
	if unit.FindPou("f") == nil {
		t.Fatalf("parser did not recover to the next POU")
	}
	stmts := unit.FindImplementation("p").Statements
	if len(stmts) != 2 {
		t.Fatalf("got %d statements after recovery", len(stmts))
	}
}

func TestParseUnclosedBlockNotesOpening(t *testing.T) {
	_, bag := parseSource(t, `FUNCTION f : INT IF TRUE THEN f := 1; END_FUNCTION`)
	var found bool
	for _, d := range bag.Items() {
		if d.Code == diag.UnclosedBlock && len(d.Notes) == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("want unclosed_block with note, got %v", bag.Items())
	}
}

func TestDurations(t *testing.T) {
	cases := map[string]int64{
		"1s":       1_000_000_000,
		"1m30s":    90_000_000_000,
		"-5ms":     -5_000_000,
		"1.5h":     5_400_000_000_000,
		"2d_1h":    2*86400e9 + 3600e9,
		"10us20ns": 10_020,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		if err != nil || got != want {
			t.Errorf("ParseDuration(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	if _, err := ParseDuration("5"); err == nil {
		t.Errorf("missing unit accepted")
	}
}

func TestParseInterfacesAndImplements(t *testing.T) {
	unit := mustParse(t, `
INTERFACE named
  METHOD name : STRING END_METHOD
END_INTERFACE
INTERFACE shape EXTENDS named, sized
  METHOD area : REAL VAR_INPUT scale : REAL; END_VAR END_METHOD
END_INTERFACE
FUNCTION_BLOCK square EXTENDS base IMPLEMENTS shape, other
  METHOD area : REAL VAR_INPUT scale : REAL; END_VAR area := scale; END_METHOD
END_FUNCTION_BLOCK
`)
	shape := unit.FindPou("shape")
	if shape == nil || shape.Kind != ast.PouInterface {
		t.Fatalf("interface = %+v", shape)
	}
	if len(shape.Interfaces) != 2 || shape.Interfaces[0].Name != "named" || shape.Interfaces[1].Name != "sized" {
		t.Fatalf("interface extends = %+v", shape.Interfaces)
	}
	area := unit.FindPou("shape.area")
	if area == nil || !area.Abstract || area.Parent != "shape" {
		t.Fatalf("interface method = %+v", area)
	}
	if unit.FindImplementation("shape.area") != nil {
		t.Fatalf("interface methods have no implementation")
	}
	sq := unit.FindPou("square")
	if sq.Super != "base" || len(sq.Interfaces) != 2 || sq.Interfaces[1].Name != "other" {
		t.Fatalf("square = super %q, implements %+v", sq.Super, sq.Interfaces)
	}
	if unit.FindImplementation("square.area") == nil {
		t.Fatalf("class method lost its body")
	}
}

func TestParseInterfaceRejectsBodiesAndVariables(t *testing.T) {
	_, bag := parseSource(t, `
INTERFACE broken
  VAR x : INT; END_VAR
  METHOD m : INT m := 1; END_METHOD
END_INTERFACE
PROGRAM p END_PROGRAM`)
	var members int
	for _, d := range bag.Items() {
		if d.Code == diag.InvalidPouMember {
			members++
		}
	}
	if members != 2 {
		t.Fatalf("want 2 invalid members, got %v", bag.Items())
	}
}

func TestParsePropertyBecomesAccessors(t *testing.T) {
	unit := mustParse(t, `
FUNCTION_BLOCK tank
  VAR volume : INT; END_VAR
  PROPERTY PUBLIC level : INT
    GET
      VAR tmp : INT; END_VAR
      tmp := 1;
    END_GET
    set
      volume := __in * 2;
    END_SET
  END_PROPERTY
  PROPERTY limit : INT GET END_GET END_PROPERTY
END_FUNCTION_BLOCK
`)
	tank := unit.FindPou("tank")
	var backing *ast.VariableBlock
	for _, b := range tank.Blocks {
		if b.Property {
			backing = b
		}
	}
	if backing == nil || len(backing.Variables) != 2 || backing.Variables[0].Name != "level" || backing.Variables[1].Name != "limit" {
		t.Fatalf("backing block = %+v", backing)
	}

	get := unit.FindPou("tank.__get_level")
	if get == nil || get.Kind != ast.PouMethod || get.Property != "tank.level" || get.ReturnType == nil || get.Access != ast.AccessPublic {
		t.Fatalf("getter = %+v", get)
	}
	if got := printBody(unit, "tank.__get_level"); got != "tmp := 1; __get_level := level" {
		t.Fatalf("getter body = %q", got)
	}
	set := unit.FindPou("tank.__set_level")
	if set == nil || set.ReturnType != nil || set.Blocks[0].Kind != ast.VarInput || set.Blocks[0].Variables[0].Name != ast.SetterParam {
		t.Fatalf("setter = %+v", set)
	}
	if got := printBody(unit, "tank.__set_level"); got != "level := __in; volume := __in * 2" {
		t.Fatalf("setter body = %q", got)
	}
	if unit.FindPou("tank.__set_limit") != nil {
		t.Fatalf("limit has no SET")
	}
}

func TestParsePropertyNeedsAnAccessor(t *testing.T) {
	_, bag := parseSource(t, `
CLASS c
  PROPERTY p : INT END_PROPERTY
END_CLASS`)
	if !bag.HasErrors() {
		t.Fatalf("expected an error for a property without GET or SET")
	}
}

func printBody(unit *ast.CompilationUnit, name string) string {
	impl := unit.FindImplementation(name)
	if impl == nil {
		return "<missing>"
	}
	var parts []string
	for _, s := range impl.Statements {
		parts = append(parts, ast.PrintStatement(s))
	}
	return strings.Join(parts, "; ")
}
