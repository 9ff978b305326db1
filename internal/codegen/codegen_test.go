package codegen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plcc/internal/resolver"
	"plcc/internal/testkit"
)

func generate(t *testing.T, src string, opt Options) string {
	t.Helper()
	p := testkit.Lower(t, src)
	if opt.Constructor == "" {
		opt.Constructor = p.Lowered.Constructor
	}
	mod, err := Generate(p.Units(), p.Index, p.Resolved, opt)
	require.NoError(t, err)
	return mod.String()
}

func TestFunctionWithParameters(t *testing.T) {
	ir := generate(t, `
FUNCTION add : INT
VAR_INPUT a : INT; b : INT; END_VAR
add := a + b;
END_FUNCTION`, Options{ModuleName: "demo"})

	assert.Contains(t, ir, `source_filename = "demo"`)
	assert.Contains(t, ir, "define i16 @add(i16 %0, i16 %1)")
	assert.Contains(t, ir, "add i16")
	assert.Contains(t, ir, "ret i16")
}

func TestProgramInstanceAndGlobals(t *testing.T) {
	ir := generate(t, `
VAR_GLOBAL g : DINT := 7; END_VAR
VAR_GLOBAL CONSTANT limit : DINT := 10; END_VAR
PROGRAM p
VAR x : DINT; flag : BOOL; END_VAR
x := g + limit;
flag := x > 3;
END_PROGRAM`, Options{})

	assert.Contains(t, ir, "%p = type { i32, i1 }")
	assert.Contains(t, ir, "@g = global i32 7")
	assert.Contains(t, ir, "@limit = constant i32 10")
	assert.Contains(t, ir, "@p_instance = global %p")
	assert.Contains(t, ir, "define void @p(%p* %0)")
	assert.Contains(t, ir, "icmp sgt i32")
}

func TestFunctionBlockCall(t *testing.T) {
	ir := generate(t, `
FUNCTION_BLOCK counter
VAR_INPUT step : INT; END_VAR
VAR_OUTPUT total : INT; END_VAR
total := total + step;
END_FUNCTION_BLOCK
PROGRAM p
VAR c : counter; out : INT; END_VAR
c(step := 2, total => out);
END_PROGRAM`, Options{})

	assert.Contains(t, ir, "%counter = type { i16, i16 }")
	assert.Contains(t, ir, "define void @counter(%counter* %0)")
	assert.Contains(t, ir, "call void @counter(%counter*")
}

func TestVirtualCallGoesThroughVtable(t *testing.T) {
	ir := generate(t, `
CLASS base
  METHOD get : INT get := 1; END_METHOD
END_CLASS
CLASS derived EXTENDS base
  METHOD OVERRIDE get : INT get := 2; END_METHOD
END_CLASS
PROGRAM p VAR b : base; v : INT; END_VAR
v := b.get();
END_PROGRAM`, Options{})

	assert.Contains(t, ir, "@__vtable_base_instance = constant %__vtable_base")
	assert.Contains(t, ir, "@__vtable_derived_instance = constant %__vtable_derived")
	assert.Contains(t, ir, "define i16 @derived_get(%derived* %0)")
	assert.Regexp(t, regexp.MustCompile(`call i16 %\d+\(%base\* `), ir)
}

func TestInterfaceCallGoesThroughItable(t *testing.T) {
	ir := generate(t, `
INTERFACE shape METHOD area : INT END_METHOD END_INTERFACE
CLASS square IMPLEMENTS shape
  VAR side : INT; END_VAR
  METHOD area : INT area := side * side; END_METHOD
END_CLASS
FUNCTION measure : INT
VAR_INPUT it : shape; END_VAR
measure := it.area();
END_FUNCTION
PROGRAM p VAR s : square; v : INT; END_VAR
v := measure(s);
END_PROGRAM`, Options{})

	assert.Contains(t, ir, "%shape = type { i8*, i8* }")
	assert.Contains(t, ir, "%__itable_shape = type { i8* }")
	assert.Contains(t, ir, "@__itable_shape_square_instance = constant %__itable_shape")
	assert.NotContains(t, ir, "@shape_area(", "the interface signature is never emitted")
	assert.Regexp(t, regexp.MustCompile(`call i16 %\d+\(i8\* `), ir)
	assert.Contains(t, ir, "call i16 @measure(%shape*")
}

func TestPropertyAccessorsAreFunctions(t *testing.T) {
	ir := generate(t, `
FUNCTION_BLOCK tank
  PROPERTY level : INT GET END_GET SET END_SET END_PROPERTY
END_FUNCTION_BLOCK
PROGRAM p VAR t : tank; v : INT; END_VAR
t.level := 3;
v := t.level;
END_PROGRAM`, Options{})

	assert.Contains(t, ir, "define i16 @tank___get_level(%tank* %0)")
	assert.Contains(t, ir, "define void @tank___set_level(%tank* %0, i16 %1)")
	assert.Contains(t, ir, "call void @tank___set_level(%tank*")
	assert.Contains(t, ir, "call i16 @tank___get_level(%tank*")
}

func TestDerivedInstanceAsBase(t *testing.T) {
	ir := generate(t, `
FUNCTION_BLOCK A VAR x : INT; END_VAR END_FUNCTION_BLOCK
FUNCTION_BLOCK B EXTENDS A VAR y : INT; END_VAR END_FUNCTION_BLOCK
FUNCTION use : INT
VAR_IN_OUT fb : A; END_VAR
use := fb.x;
END_FUNCTION
PROGRAM p
VAR ib : B; r : POINTER TO A; v : INT; END_VAR
r := ADR(ib);
v := use(ib);
END_PROGRAM`, Options{})

	assert.Contains(t, ir, "%B = type { %A, i16 }")
	assert.Regexp(t, regexp.MustCompile(`bitcast %B\* %\d+ to %A\*`), ir)
	assert.Contains(t, ir, "call i16 @use(%A*")
}

func TestConstructorSection(t *testing.T) {
	src := `
VAR_GLOBAL g : INT := 5; h : INT := g + 1; END_VAR
PROGRAM p VAR x : INT; END_VAR
x := h;
END_PROGRAM`

	ir := generate(t, src, Options{UseInitArray: true})
	assert.Contains(t, ir, "define void @__init___demo()")
	assert.Contains(t, ir, `@__plcc_ctor = internal global void ()* @__init___demo, section ".init_array"`)
	assert.Contains(t, ir, "@llvm.used = appending global [1 x i8*]")

	ir = generate(t, src, Options{})
	assert.Contains(t, ir, `section ".ctors"`)
	assert.NotContains(t, ir, ".init_array")
}

func TestUnknownConstructorIsAnError(t *testing.T) {
	p := testkit.Lower(t, "PROGRAM p END_PROGRAM")
	_, err := Generate(p.Units(), p.Index, p.Resolved, Options{Constructor: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestControlFlow(t *testing.T) {
	ir := generate(t, `
FUNCTION classify : INT
VAR_INPUT x : INT; END_VAR
VAR i : INT; END_VAR
CASE x OF
  1, 2: classify := 10;
  3: classify := 20;
ELSE
  classify := 0;
END_CASE
FOR i := 1 TO 10 BY 2 DO
  IF i = x THEN EXIT; END_IF
END_FOR
WHILE x > 0 DO x := x - 1; END_WHILE
REPEAT x := x + 1; UNTIL x >= 5 END_REPEAT
END_FUNCTION`, Options{})

	assert.Contains(t, ir, "switch i16")
	assert.Regexp(t, regexp.MustCompile(`for\.cond\d+:`), ir)
	assert.Regexp(t, regexp.MustCompile(`while\.body\d+:`), ir)
	assert.Regexp(t, regexp.MustCompile(`repeat\.cond\d+:`), ir)
	assert.Contains(t, ir, "icmp sle i16")
}

func TestCaseWithRangesUsesComparisons(t *testing.T) {
	ir := generate(t, `
FUNCTION band : INT
VAR_INPUT x : INT; END_VAR
CASE x OF
  1..5: band := 1;
  6: band := 2;
END_CASE
END_FUNCTION`, Options{})

	assert.NotContains(t, ir, "switch")
	assert.Contains(t, ir, "icmp sge i16")
	assert.Contains(t, ir, "icmp sle i16")
}

func TestStringAssignmentCopiesAndTruncates(t *testing.T) {
	ir := generate(t, `
PROGRAM p
VAR long : STRING[20]; short : STRING[5]; END_VAR
long := 'hello world';
short := long;
END_PROGRAM`, Options{})

	assert.Contains(t, ir, "[21 x i8]")
	assert.Contains(t, ir, "[6 x i8]")
	assert.Contains(t, ir, "call void @llvm.memcpy.p0i8.p0i8.i64")
}

func TestBuiltins(t *testing.T) {
	ir := generate(t, `
FUNCTION pick : DINT
VAR_INPUT a : DINT; b : DINT; g : BOOL; END_VAR
VAR r : REAL; p : REF_TO DINT; END_VAR
pick := SEL(g, a, b) + MAX(a, b, 3) + LIMIT(0, a, 100);
r := DINT_TO_REAL(a);
p := REF(a);
pick := pick + SIZEOF(r);
END_FUNCTION`, Options{})

	assert.Contains(t, ir, "select i1")
	assert.Contains(t, ir, "sitofp i32")
	assert.Contains(t, ir, "add i32 ")
}

func TestNotFlipsEveryBit(t *testing.T) {
	ir := generate(t, `
FUNCTION f : BOOL
VAR_INPUT b : BOOL; w : WORD; END_VAR
VAR m : WORD; END_VAR
f := NOT b;
m := NOT w;
END_FUNCTION`, Options{})

	assert.Regexp(t, regexp.MustCompile(`xor i1 %\d+, true`), ir)
	assert.Regexp(t, regexp.MustCompile(`xor i16 %\d+, -1`), ir)
}

func TestMissingAnnotationIsAnInternalError(t *testing.T) {
	p := testkit.Lower(t, `
PROGRAM p VAR x : INT; END_VAR
x := 1;
END_PROGRAM`)

	defer func() {
		ie, ok := AsInternal(recover())
		require.True(t, ok, "expected an internal error")
		assert.Contains(t, ie.Error(), "has no annotation")
		assert.Contains(t, ie.Prompt(), BugReportURL)
	}()
	_, _ = Generate(p.Units(), p.Index, resolver.NewAnnotationMap(), Options{})
	t.Fatal("Generate returned")
}

func TestSections(t *testing.T) {
	assert.Equal(t, ".init_array", ConstructorSection(true))
	assert.Equal(t, ".ctors", ConstructorSection(false))
	assert.Equal(t, ".fini_array", DestructorSection(true))
	assert.Equal(t, ".dtors", DestructorSection(false))
	assert.Equal(t, "prg_instance", InstanceName("prg"))
}

func TestHintStack(t *testing.T) {
	var h hints
	assert.Nil(t, h.Top())
	h.Push(nil)
	assert.Equal(t, 1, h.Len())
	h.Pop()
	assert.Panics(t, h.Pop)
	assert.Equal(t, "lvalue", LValue.String())
	assert.Equal(t, "no value", NoValue.String())
}
