package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/parser"
	"plcc/internal/source"
	"plcc/internal/types"
)

func parse(t *testing.T, src string) *ast.CompilationUnit {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.Register("test.st", src)
	bag := diag.NewBag(0)
	res := parser.ParseFile(fs.Get(id), ast.NewIDProvider(), parser.Options{Reporter: diag.BagReporter{Bag: bag}})
	require.False(t, bag.HasErrors(), "%v", bag.Items())
	return res.Unit
}

func build(t *testing.T, src string) (*Index, []diag.Diagnostic) {
	t.Helper()
	return Build(parse(t, src))
}

func TestGenericFunctionInstanceStruct(t *testing.T) {
	idx, diags := build(t, `FUNCTION foo<T: ANY> : T; END_FUNCTION`)
	assert.Empty(t, diags)

	info := idx.FindEffectiveTypeInfo("foo")
	require.NotNil(t, info)
	assert.Equal(t, types.KindStruct, info.Kind)
	require.Len(t, info.Generics, 1)
	assert.Equal(t, types.GenericBinding{Name: "T", Nature: "ANY"}, info.Generics[0])

	pou := idx.FindPou("FOO")
	require.NotNil(t, pou)
	assert.Equal(t, GenericTypeName("foo", "T"), pou.ReturnType)
	g := idx.FindEffectiveTypeInfo(pou.ReturnType)
	require.NotNil(t, g)
	assert.Equal(t, types.KindGeneric, g.Kind)
	assert.Equal(t, types.NatureAny, g.Nature)
}

func TestGlobalsAndFunctionMembers(t *testing.T) {
	idx, diags := build(t, `
VAR_GLOBAL gX : INT; END_VAR
FUNCTION main : INT
VAR_INPUT a : DINT; END_VAR
VAR x : INT; END_VAR
VAR_TEMP t : BOOL; END_VAR
END_FUNCTION`)
	assert.Empty(t, diags)

	g := idx.FindGlobal("gx")
	require.NotNil(t, g)
	assert.Equal(t, "INT", g.Type)
	assert.True(t, g.IsGlobal())

	x := idx.FindVariable("main", []string{"x"})
	require.NotNil(t, x)
	assert.Equal(t, "main.x", x.Qualified)

	// globals are visible from any scope, locals shadow them
	assert.Same(t, g, idx.FindVariable("main", []string{"gX"}))

	ret := idx.ReturnVariable("main")
	require.NotNil(t, ret)
	assert.Equal(t, "main", ret.Name)
	assert.Equal(t, "INT", ret.Type)

	params := idx.Parameters("main")
	require.Len(t, params, 1)
	assert.Equal(t, "a", params[0].Name)

	info := idx.FindTypeInfo("main")
	require.NotNil(t, info)
	var names []string
	for _, f := range info.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a", "x"}, names, "temps and the return slot are not instance fields")
}

func TestProgramInstanceAndActionScope(t *testing.T) {
	idx, _ := build(t, `
PROGRAM prg
VAR counter : INT; END_VAR
END_PROGRAM
ACTIONS prg
ACTION reset
  counter := 0;
END_ACTION
END_ACTIONS`)

	inst := idx.FindGlobal("prg")
	require.NotNil(t, inst)
	assert.Equal(t, RoleProgramGlobal, inst.Role)
	assert.Len(t, idx.ProgramInstances(), 1)

	act := idx.FindPou("prg.reset")
	require.NotNil(t, act)
	assert.Equal(t, "prg", act.InstanceStruct())
	assert.Nil(t, idx.FindPouType("prg.reset"), "actions share the owner's struct")

	v := idx.FindVariable("prg.reset", []string{"counter"})
	require.NotNil(t, v)
	assert.Equal(t, "prg.counter", v.Qualified)

	assert.NotNil(t, idx.FindVariable("", []string{"prg", "counter"}))
}

func TestClassHierarchyLookup(t *testing.T) {
	idx, diags := build(t, `
CLASS base
VAR x : INT; END_VAR
METHOD area : REAL
END_METHOD
END_CLASS
CLASS derived EXTENDS base
VAR y : INT; END_VAR
METHOD OVERRIDE area : REAL
  area := 1.0;
END_METHOD
METHOD scale
VAR_INPUT f : REAL; END_VAR
END_METHOD
END_CLASS`)
	assert.Empty(t, diags)

	// x is inherited
	v := idx.FindVariable("derived.scale", []string{"x"})
	require.NotNil(t, v)
	assert.Equal(t, "base.x", v.Qualified)

	m := idx.FindMethod("derived", "area")
	require.NotNil(t, m)
	assert.Equal(t, "derived.area", m.Name)
	assert.True(t, m.Overriding)

	m = idx.FindMethod("derived", "AREA")
	require.NotNil(t, m)

	assert.Equal(t, "base.area", idx.FindMethod("base", "area").Name)
	assert.Nil(t, idx.FindMethod("base", "scale"))

	var chain []string
	for _, p := range idx.Hierarchy("derived") {
		chain = append(chain, p.Name)
	}
	assert.Equal(t, []string{"derived", "base"}, chain)
	assert.True(t, idx.IsSubclassOf("derived", "base"))
	assert.False(t, idx.IsSubclassOf("base", "derived"))
	assert.Len(t, idx.MethodsOf("derived"), 2)
}

func TestInstanceStructRegisteredBeforeMethods(t *testing.T) {
	idx, _ := build(t, `
FUNCTION_BLOCK fb
METHOD m1 END_METHOD
METHOD m2 END_METHOD
END_FUNCTION_BLOCK`)

	keys := idx.PouTypes().Keys()
	require.Equal(t, []string{"fb", "fb.m1", "fb.m2"}, keys)
}

func TestForwardAndCyclicTypes(t *testing.T) {
	idx, diags := build(t, `
TYPE node : STRUCT
  value : INT;
  next : REF_TO node;
  data : payload;
END_STRUCT;
END_TYPE
TYPE payload : ARRAY[0..N - 1] OF BYTE; END_TYPE
VAR_GLOBAL CONSTANT N : INT := 4; END_VAR`)
	assert.Empty(t, diags)

	node := idx.FindEffectiveTypeInfo("node")
	require.NotNil(t, node)
	require.Len(t, node.Fields, 3)
	next := idx.FindEffectiveTypeInfo(node.Fields[1].Type)
	require.NotNil(t, next)
	assert.Equal(t, types.KindPointer, next.Kind)
	assert.True(t, types.SameName(next.Inner, "node"))

	payload := idx.FindEffectiveTypeInfo("payload")
	require.NotNil(t, payload)
	require.Len(t, payload.Dims, 1)
	assert.Equal(t, types.Dim{Start: 0, End: 3, Const: true}, payload.Dims[0])
	assert.Equal(t, int64(4), idx.Layout().SizeOf(payload))
}

func TestNonConstantBound(t *testing.T) {
	_, diags := build(t, `
VAR_GLOBAL n : INT := 3; END_VAR
TYPE bad : ARRAY[0..n] OF INT; END_TYPE`)
	require.Len(t, diags, 1)
	assert.Equal(t, diag.NonConstantArrayBound, diags[0].Code)
}

func TestUnknownTypeReported(t *testing.T) {
	src := `VAR_GLOBAL a : missing; END_VAR`
	_, diags := build(t, src)
	require.Len(t, diags, 1)
	assert.Equal(t, diag.UnresolvedReference, diags[0].Code)
	assert.Contains(t, diags[0].Message, "missing")
	assert.Equal(t, "missing", src[diags[0].Primary.Start:diags[0].Primary.End])
}

func TestEnumValues(t *testing.T) {
	idx, diags := build(t, `
TYPE color : (red, green := 5, blue); END_TYPE
TYPE level : INT (low := 1, high := low + 10); END_TYPE`)
	assert.Empty(t, diags)

	color := idx.FindEffectiveTypeInfo("color")
	require.NotNil(t, color)
	assert.Equal(t, []types.Variant{{Name: "red", Value: 0}, {Name: "green", Value: 5}, {Name: "blue", Value: 6}}, color.Variants)

	level := idx.FindEffectiveTypeInfo("level")
	require.NotNil(t, level)
	assert.Equal(t, uint32(16), level.Bits)
	v, ok := level.Variant("HIGH")
	require.True(t, ok)
	assert.Equal(t, int64(11), v.Value)

	blue := idx.FindVariable("", []string{"blue"})
	require.NotNil(t, blue)
	assert.Equal(t, RoleEnumValue, blue.Role)
	assert.Same(t, blue, idx.FindVariable("", []string{"color", "blue"}))
	assert.Same(t, blue, idx.FindEnumElement("color", "Blue"))
}

func TestDuplicatesAreKept(t *testing.T) {
	idx, _ := build(t, `
VAR_GLOBAL a : INT; a : BOOL; END_VAR
TYPE t : INT; END_TYPE
TYPE t : BOOL; END_TYPE`)
	assert.Equal(t, []string{"a"}, idx.Globals().Duplicates())
	assert.Equal(t, []string{"t"}, idx.Types().Duplicates())
	assert.Equal(t, "INT", idx.FindGlobal("a").Type, "first definition wins lookups")
}

func TestReindexIsIdempotent(t *testing.T) {
	unit := parse(t, `
TYPE point : STRUCT x, y : DINT; END_STRUCT; END_TYPE
VAR_GLOBAL origin : point; END_VAR
FUNCTION_BLOCK fb VAR p : point; END_VAR END_FUNCTION_BLOCK`)

	once, _ := Build(unit)
	twice, _ := Build(unit, unit)
	assert.Equal(t, once, twice)

	again := New()
	again.Visit(unit)
	again.Import(once)
	again.Resolve()
	assert.Empty(t, again.Types().Duplicates())
	assert.Empty(t, again.Globals().Duplicates())
}

func TestImportMergesFiles(t *testing.T) {
	a := New()
	a.Visit(parse(t, `VAR_GLOBAL CONSTANT size : INT := 8; END_VAR`))
	b := New()
	b.Visit(parse(t, `TYPE buf : ARRAY[1..size] OF BYTE; END_TYPE`))

	merged := New()
	merged.Import(a)
	merged.Import(b)
	assert.Empty(t, merged.Resolve())

	buf := merged.FindEffectiveTypeInfo("buf")
	require.NotNil(t, buf)
	assert.Equal(t, types.Dim{Start: 1, End: 8, Const: true}, buf.Dims[0])
	assert.Equal(t, 0, len(merged.Types().Duplicates()), "elementary types are not imported twice")
}

func TestAliasResolution(t *testing.T) {
	idx, diags := build(t, `
TYPE myInt : INT; END_TYPE
TYPE myInt2 : myInt; END_TYPE`)
	assert.Empty(t, diags)
	assert.Equal(t, types.KindAlias, idx.FindTypeInfo("myInt2").Kind)
	assert.Equal(t, "INT", idx.FindEffectiveTypeInfo("myInt2").Name)
	assert.Equal(t, "TIME_OF_DAY", idx.FindEffectiveTypeInfo("TOD").Name)
}

func TestFindCallable(t *testing.T) {
	idx, _ := build(t, `
FUNCTION_BLOCK counter
METHOD inc END_METHOD
END_FUNCTION_BLOCK
PROGRAM main
VAR c : counter; END_VAR
END_PROGRAM
FUNCTION helper : INT END_FUNCTION`)

	p, v := idx.FindCallable("main", []string{"c", "inc"})
	require.NotNil(t, p)
	assert.Equal(t, "counter.inc", p.Name)
	require.NotNil(t, v)
	assert.Equal(t, "c", v.Name)

	p, v = idx.FindCallable("main", []string{"c"})
	require.NotNil(t, p)
	assert.Equal(t, "counter", p.Name)
	assert.NotNil(t, v)

	p, v = idx.FindCallable("main", []string{"helper"})
	require.NotNil(t, p)
	assert.Nil(t, v)
}

func TestInterfaceLookups(t *testing.T) {
	idx, diags := build(t, `
INTERFACE named
  METHOD name : INT END_METHOD
END_INTERFACE
INTERFACE sized
  METHOD size : INT END_METHOD
  METHOD name : INT END_METHOD
END_INTERFACE
INTERFACE shape EXTENDS named, sized
  METHOD area : INT END_METHOD
END_INTERFACE
CLASS base IMPLEMENTS shape
  METHOD name : INT END_METHOD
END_CLASS
CLASS square EXTENDS base
END_CLASS
CLASS stray
END_CLASS
`)
	assert.Empty(t, diags)

	shape := idx.FindInterface("SHAPE")
	require.NotNil(t, shape)
	assert.Equal(t, []string{"named", "sized"}, shape.Interfaces)
	assert.Nil(t, idx.FindInterface("base"))
	assert.False(t, shape.IsCallable())

	var names []string
	for _, p := range idx.InterfaceHierarchy("shape") {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"shape", "named", "sized"}, names)

	names = nil
	for _, m := range idx.InterfaceMethods("shape") {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"shape.area", "named.name", "sized.size"}, names)

	assert.True(t, idx.Implements("square", "sized"), "through the base class and the extended interface")
	assert.True(t, idx.Implements("base", "shape"))
	assert.False(t, idx.Implements("stray", "named"))
	assert.Len(t, idx.InterfacesOf("square"), 3)

	m := idx.FindMethod("shape", "size")
	require.NotNil(t, m)
	assert.Equal(t, "sized", m.Parent)
	assert.Equal(t, "base", idx.FindMethod("square", "name").Parent)

	// the interface has a (still empty) instance type to declare variables with
	require.NotNil(t, idx.FindPouType("shape"))
}

func TestPropertyMembersAndAccessors(t *testing.T) {
	idx, diags := build(t, `
CLASS tank
  PROPERTY level : INT GET END_GET SET END_SET END_PROPERTY
  VAR plain : INT; END_VAR
END_CLASS
`)
	assert.Empty(t, diags)
	require.NotNil(t, idx.FindMember("tank", "level"))
	assert.True(t, idx.FindMember("tank", "level").Property)
	assert.False(t, idx.FindMember("tank", "plain").Property)
	get := idx.FindMethod("tank", ast.GetterPrefix+"level")
	require.NotNil(t, get)
	assert.Equal(t, "tank.level", get.Property)
	assert.Equal(t, types.INT, get.ReturnType)
	in := idx.FindMember("tank."+ast.SetterPrefix+"level", ast.SetterParam)
	require.NotNil(t, in)
	assert.Equal(t, ast.VarInput, in.Kind)
}
