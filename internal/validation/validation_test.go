package validation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/index"
	"plcc/internal/lowering"
	"plcc/internal/parser"
	"plcc/internal/preproc"
	"plcc/internal/resolver"
	"plcc/internal/source"
)

type checked struct {
	fs    *source.FileSet
	diags []diag.Diagnostic
}

// check runs the front end and lowering over src and validates the result
// the way the driver does.
func check(t *testing.T, src string, opts Options) *checked {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.Register("test.st", src)
	bag := diag.NewBag(0)
	ids := ast.NewIDProvider()
	parsed := parser.ParseFile(fs.Get(id), ids, parser.Options{Reporter: diag.BagReporter{Bag: bag}})
	require.False(t, bag.HasErrors(), "%v", bag.Items())
	preproc.Run(parsed.Unit, ids)
	idx, _ := index.Build(parsed.Unit)
	m := resolver.Annotate(idx, parsed.Unit)
	m.Commit(idx)

	res, err := lowering.Lower([]*ast.CompilationUnit{parsed.Unit}, idx, m, ids, lowering.Options{Project: "demo"})
	require.NoError(t, err)
	after, _ := index.Build(res.Units...)
	lm := resolver.NewAnnotationMap()
	for _, u := range res.Units {
		am := resolver.Annotate(after, u)
		am.Commit(after)
		lm.Import(am)
	}
	opts.Declared = idx
	return &checked{fs: fs, diags: Validate(res.Units, after, lm, opts)}
}

// found lists "<code> <text under the primary span>".
func (c *checked) found() []string {
	out := make([]string, 0, len(c.diags))
	for _, d := range c.diags {
		out = append(out, fmt.Sprintf("%s %s", d.Code.ID(), c.fs.Text(d.Primary)))
	}
	return out
}

func (c *checked) only(code diag.Code) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range c.diags {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

func TestArrayAccessDiagnostics(t *testing.T) {
	c := check(t, `
PROGRAM p
VAR
  multi : ARRAY[0..1, 2..3] OF INT;
  arr : ARRAY[0..1] OF INT;
  int_ref : INT;
  string_ref : STRING;
END_VAR
multi[1, 4];
arr[3];
arr[string_ref];
int_ref[1];
END_PROGRAM`, Options{})

	assert.ElementsMatch(t, []string{
		"E058 4",
		"E058 3",
		"E059 string_ref",
		"E060 int_ref[1]",
	}, c.found())
}

func TestUnresolvedReferenceIsReportedOnce(t *testing.T) {
	c := check(t, `
PROGRAM p VAR x : INT; END_VAR
x := y;
END_PROGRAM`, Options{})

	require.Len(t, c.diags, 1)
	assert.Equal(t, "E048 y", c.found()[0])
	assert.Equal(t, diag.SevError, c.diags[0].Severity)
}

func TestDiagnosticListing(t *testing.T) {
	c := check(t, `
PROGRAM p VAR x : INT; END_VAR
x := b;
x := a;
END_PROGRAM`, Options{})

	assert.Equal(t, "error E048 test.st:3:6 could not resolve reference to b\n"+
		"error E048 test.st:4:6 could not resolve reference to a", diag.Listing(c.diags, c.fs, true))
}

func TestUnknownMemberStopsTheChain(t *testing.T) {
	c := check(t, `
TYPE point : STRUCT x : INT; y : INT; END_STRUCT END_TYPE
PROGRAM p VAR pt : point; END_VAR
pt.missing.deeper := 1;
END_PROGRAM`, Options{})

	require.Equal(t, []string{"E048 missing"}, c.found())
	assert.Contains(t, c.diags[0].Message, "pt.missing")
}

func TestImplicitConversions(t *testing.T) {
	src := `
PROGRAM p VAR i : INT; d : DINT; s : STRING; END_VAR
i := d;
i := s;
d := i;
END_PROGRAM`

	c := check(t, src, Options{})
	assert.ElementsMatch(t, []string{"E067 d", "E037 s"}, c.found())
	narrow := c.only(diag.NarrowingConversion)
	require.Len(t, narrow, 1)
	assert.Equal(t, diag.SevWarning, narrow[0].Severity)

	c = check(t, src, Options{Narrowing: LintOff})
	assert.Equal(t, []string{"E037 s"}, c.found())

	c = check(t, src, Options{Narrowing: LintError})
	narrow = c.only(diag.NarrowingConversion)
	require.Len(t, narrow, 1)
	assert.Equal(t, diag.SevError, narrow[0].Severity)
}

func TestCrossClassNeedsExplicitConversion(t *testing.T) {
	c := check(t, `
PROGRAM p VAR i : INT; r : REAL; b : BOOL; w : WORD; END_VAR
r := i;
r := i + r;
r := INT_TO_REAL(i) + r;
r := 2;
r := r * 2;
b := i;
w := i;
w := INT_TO_WORD(i);
END_PROGRAM`, Options{})

	assert.ElementsMatch(t, []string{"E037 i", "E031 i + r", "E037 i", "E037 i"}, c.found())
}

func TestWritesNeedWritableStorage(t *testing.T) {
	c := check(t, `
VAR_GLOBAL CONSTANT limit : INT := 10; END_VAR
FUNCTION inc : INT
VAR_IN_OUT v : INT; END_VAR
v := v + 1;
inc := v;
END_FUNCTION
PROGRAM p VAR x : INT; END_VAR
x := inc(5);
x := inc(limit);
x := inc(x);
limit := 5;
END_PROGRAM`, Options{})

	assert.ElementsMatch(t, []string{"E040 5", "E036 limit", "E036 limit"}, c.found())
}

func TestCallArguments(t *testing.T) {
	c := check(t, `
FUNCTION add : INT
VAR_INPUT a : INT; b : INT; END_VAR
add := a + b;
END_FUNCTION
PROGRAM p VAR x : INT; END_VAR
x := add(1, 2, 3);
x := add(a := 1, c := 2);
x := add(1, 2);
END_PROGRAM`, Options{})

	assert.ElementsMatch(t, []string{"E032 add(1, 2, 3)", "E048 c"}, c.found())
}

func TestCaseLabels(t *testing.T) {
	c := check(t, `
TYPE Color : (Red, Green, Blue); END_TYPE
PROGRAM p VAR c : Color; i : INT; x : INT; END_VAR
CASE i OF
1, 2: x := 1;
2..4: x := 2;
END_CASE
CASE c OF
Red: x := 1;
Green: x := 2;
END_CASE
CASE c OF
Red: x := 1;
ELSE x := 0;
END_CASE
END_PROGRAM`, Options{})

	assert.ElementsMatch(t, []string{"E070 2..4", "E085 c"}, c.found())
	missing := c.only(diag.NonExhaustiveCase)
	require.Len(t, missing, 1)
	assert.Contains(t, missing[0].Message, "Blue")
	assert.NotContains(t, missing[0].Message, "Green")
	assert.Equal(t, diag.SevWarning, missing[0].Severity)
}

func TestConditionsAndOperators(t *testing.T) {
	c := check(t, `
PROGRAM p VAR i : INT; b : BOOL; END_VAR
IF i THEN b := TRUE; END_IF
WHILE b DO b := FALSE; END_WHILE
b := b + 1;
i := i^;
END_PROGRAM`, Options{})

	assert.ElementsMatch(t, []string{"E069 i", "E031 b + 1", "E068 i^"}, c.found())
}

func TestBitAccess(t *testing.T) {
	c := check(t, `
PROGRAM p VAR i : INT; r : REAL; b : BOOL; END_VAR
b := i.%X3;
b := i.%X16;
b := r.%X1;
END_PROGRAM`, Options{})

	access := c.only(diag.BitAccessOutOfRange)
	require.Len(t, access, 2)
	assert.Contains(t, access[0].Message, "out of range")
	assert.Contains(t, access[1].Message, "REAL")
}

func TestDuplicateDeclarations(t *testing.T) {
	c := check(t, `
VAR_GLOBAL g : INT; g : DINT; END_VAR
TYPE dup : STRUCT x : INT; END_STRUCT END_TYPE
TYPE dup : STRUCT y : INT; END_STRUCT END_TYPE
PROGRAM p VAR a : INT; a : INT; END_VAR
END_PROGRAM`, Options{})

	dups := c.only(diag.DuplicateSymbol)
	require.Len(t, dups, 6)
	var msgs []string
	for _, d := range dups {
		msgs = append(msgs, d.Message)
		assert.Len(t, d.Notes, 1)
	}
	assert.Contains(t, msgs, "g is declared more than once")
	assert.Contains(t, msgs, "dup is declared more than once")
	assert.Contains(t, msgs, "p.a is declared more than once")
}

func TestRecursiveStructs(t *testing.T) {
	c := check(t, `
TYPE node : STRUCT next : node; val : INT; END_STRUCT END_TYPE
TYPE link : STRUCT next : REF_TO link; END_STRUCT END_TYPE
TYPE a : STRUCT inner : b; END_STRUCT END_TYPE
TYPE b : STRUCT inner : ARRAY[0..1] OF a; END_STRUCT END_TYPE`, Options{})

	var msgs []string
	for _, d := range c.only(diag.RecursiveDataStructure) {
		msgs = append(msgs, d.Message)
	}
	assert.ElementsMatch(t, []string{
		"recursive data structure node -> node",
		"recursive data structure a -> b -> a",
	}, msgs)
}

func TestGenericBindings(t *testing.T) {
	c := check(t, `
FUNCTION foo<T : ANY_NUM> : T
VAR_INPUT val : T; END_VAR
foo := val;
END_FUNCTION
PROGRAM p VAR s : STRING; d : DINT; END_VAR
foo(s);
foo();
d := foo(d);
END_PROGRAM`, Options{})

	assert.ElementsMatch(t, []string{"E062 foo(s)", "E064 foo()"}, c.found())
}

func TestOverrides(t *testing.T) {
	c := check(t, `
CLASS base
  METHOD get : INT get := 1; END_METHOD
  METHOD FINAL locked : INT locked := 1; END_METHOD
END_CLASS
CLASS derived EXTENDS base
  METHOD get : INT get := 2; END_METHOD
  METHOD OVERRIDE locked : INT locked := 2; END_METHOD
  METHOD OVERRIDE other : INT other := 3; END_METHOD
END_CLASS`, Options{})

	assert.ElementsMatch(t, []string{"E038 get", "E034 locked", "E034 other"}, c.found())
	assert.Equal(t, diag.SevWarning, c.only(diag.MissingOverride)[0].Severity)
}

func TestDerivedInstancesConvertToTheirBase(t *testing.T) {
	c := check(t, `
FUNCTION_BLOCK A VAR x : INT; END_VAR END_FUNCTION_BLOCK
FUNCTION_BLOCK B EXTENDS A VAR y : INT; END_VAR END_FUNCTION_BLOCK
FUNCTION_BLOCK C VAR x : INT; END_VAR END_FUNCTION_BLOCK
FUNCTION use : INT
VAR_IN_OUT fb : A; END_VAR
use := fb.x;
END_FUNCTION
PROGRAM p
VAR ia : A; ib : B; ic : C; r : POINTER TO A; v : INT; END_VAR
r := ADR(ib);
r := ADR(ia);
v := use(ib);
r := ADR(ic);
v := use(ic);
END_PROGRAM`, Options{})

	assert.ElementsMatch(t, []string{"E037 ADR(ic)", "E037 ic"}, c.found())
}

func TestExtendingFinalClass(t *testing.T) {
	c := check(t, `
CLASS FINAL sealed END_CLASS
CLASS child EXTENDS sealed END_CLASS`, Options{})

	require.Len(t, c.only(diag.InvalidPouMember), 1)
	assert.Contains(t, c.only(diag.InvalidPouMember)[0].Message, "FINAL sealed")
}

func TestLoweredProjectIsClean(t *testing.T) {
	c := check(t, `
TYPE Mode : (Idle, Running); END_TYPE
CLASS base
  VAR x : INT; END_VAR
  METHOD get : INT get := x; END_METHOD
END_CLASS
CLASS derived EXTENDS base
  METHOD OVERRIDE get : INT get := SUPER^.get() * 2; END_METHOD
END_CLASS
FUNCTION twice<T : ANY_NUM> : T
VAR_INPUT val : T; END_VAR
twice := val + val;
END_FUNCTION
FUNCTION_BLOCK counter
VAR start : INT := 3; cur : INT := start * 2; END_VAR
cur := cur + 1;
END_FUNCTION_BLOCK
PROGRAM p
VAR b : base; d : derived; v : INT; n : DINT; cnt : counter; m : Mode; i : INT; END_VAR
v := b.get();
v := d.get();
n := twice(n);
cnt();
FOR i := 1 TO 10 BY 2 DO
  v := v + i;
END_FOR
CASE m OF
Idle: m := Running;
Running: m := Idle;
END_CASE
IF v > 10 THEN v := 0; END_IF
END_PROGRAM`, Options{Narrowing: LintError})

	assert.Empty(t, c.found())
}

func TestParseLint(t *testing.T) {
	for in, want := range map[string]Lint{"off": LintOff, "warn": LintWarning, "": LintWarning, "Error": LintError} {
		got, err := ParseLint(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLint("loud")
	assert.Error(t, err)
	assert.Equal(t, "error", LintError.String())
}

func TestReporterReceivesSurvivors(t *testing.T) {
	bag := diag.NewBag(0)
	c := check(t, `
PROGRAM p VAR x : INT; END_VAR
x := y + z;
END_PROGRAM`, Options{Reporter: diag.BagReporter{Bag: bag}})

	assert.Len(t, c.diags, 2)
	assert.Equal(t, c.diags, bag.Items())
}

func TestInterfaceImplementationChecks(t *testing.T) {
	c := check(t, `
INTERFACE shape
  METHOD area : INT VAR_INPUT scale : INT; END_VAR END_METHOD
  METHOD name : INT END_METHOD
END_INTERFACE
TYPE plain : STRUCT x : INT; END_STRUCT END_TYPE
CLASS square IMPLEMENTS shape
  METHOD area : DINT VAR_INPUT scale : INT; END_VAR area := 1; END_METHOD
END_CLASS
CLASS circle IMPLEMENTS plain
END_CLASS
FUNCTION f IMPLEMENTS shape : INT f := 1; END_FUNCTION
`, Options{})

	assert.ElementsMatch(t, []string{"E112 square", "E112 area", "E110 circle", "E110 f"}, c.found())
	missing := c.only(diag.InterfaceMismatch)
	require.Len(t, missing, 2)
	assert.Contains(t, missing[0].Message+missing[1].Message, "method name defined in interface shape is missing in POU square")
}

func TestInterfaceInheritanceChecks(t *testing.T) {
	c := check(t, `
TYPE plain : STRUCT x : INT; END_STRUCT END_TYPE
INTERFACE a METHOD m : INT END_METHOD END_INTERFACE
INTERFACE b METHOD m : BOOL END_METHOD END_INTERFACE
INTERFACE c EXTENDS a, b END_INTERFACE
INTERFACE d EXTENDS a
  METHOD m : INT VAR_INPUT x : INT; END_VAR END_METHOD
END_INTERFACE
INTERFACE e EXTENDS plain END_INTERFACE
`, Options{})

	assert.ElementsMatch(t, []string{"E111 c", "E112 m", "E110 e"}, c.found())
}

func TestInterfaceAssignments(t *testing.T) {
	c := check(t, `
INTERFACE shape METHOD area : INT END_METHOD END_INTERFACE
CLASS square IMPLEMENTS shape METHOD area : INT area := 4; END_METHOD END_CLASS
CLASS blob METHOD area : INT area := 0; END_METHOD END_CLASS
FUNCTION measure : INT
VAR_INPUT it : shape; END_VAR
measure := it.area();
END_FUNCTION
PROGRAM p VAR s : square; b : blob; it : shape; v : INT; END_VAR
it := s;
v := it.area();
v := measure(s);
it := b;
END_PROGRAM`, Options{})

	assert.Equal(t, []string{"E037 b"}, c.found(), "a class that does not implement the interface cannot stand for it")
}

func TestPropertyAccessChecks(t *testing.T) {
	c := check(t, `
FUNCTION_BLOCK tank
  PROPERTY level : INT GET END_GET END_PROPERTY
  PROPERTY target : INT SET END_SET END_PROPERTY
  PROPERTY odd : INT GET VAR_INPUT x : INT; END_VAR END_GET END_PROPERTY
END_FUNCTION_BLOCK
PROGRAM p VAR t : tank; v : INT; END_VAR
v := t.level;
t.level := 1;
v := t.target;
t.target := 2;
END_PROGRAM`, Options{})

	assert.ElementsMatch(t, []string{"E117 t.level", "E117 t.target", "E116 x"}, c.found())
	for _, d := range c.only(diag.InvalidProperty) {
		if c.fs.Text(d.Primary) == "t.level" {
			assert.Equal(t, "property tank.level has no SET", d.Message)
		} else {
			assert.Equal(t, "property tank.target has no GET", d.Message)
		}
	}
}

func TestPropertyWithTwoGetters(t *testing.T) {
	c := check(t, `
CLASS c
  PROPERTY p : INT GET END_GET GET END_GET END_PROPERTY
END_CLASS`, Options{})

	props := c.only(diag.InvalidProperty)
	require.NotEmpty(t, props)
	assert.Equal(t, "property c.p declares more than one GET", props[0].Message)
}
