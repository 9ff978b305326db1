package lowering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/index"
	"plcc/internal/parser"
	"plcc/internal/preproc"
	"plcc/internal/resolver"
	"plcc/internal/source"
	"plcc/internal/types"
)

type fixture struct {
	unit *ast.CompilationUnit
	res  *Result
	idx  *index.Index // re-built from the lowered units
}

func lower(t *testing.T, src string) *fixture {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.Register("test.st", src)
	bag := diag.NewBag(0)
	ids := ast.NewIDProvider()
	parsed := parser.ParseFile(fs.Get(id), ids, parser.Options{Reporter: diag.BagReporter{Bag: bag}})
	require.False(t, bag.HasErrors(), "%v", bag.Items())
	preproc.Run(parsed.Unit, ids)
	idx, diags := index.Build(parsed.Unit)
	require.Empty(t, diags)
	m := resolver.Annotate(idx, parsed.Unit)

	res, err := Lower([]*ast.CompilationUnit{parsed.Unit}, idx, m, ids, Options{Project: "demo"})
	require.NoError(t, err)
	after, diags := index.Build(res.Units...)
	require.Empty(t, diags)
	return &fixture{unit: parsed.Unit, res: res, idx: after}
}

func (f *fixture) pou(t *testing.T, name string) *ast.Pou {
	t.Helper()
	for _, u := range f.res.Units {
		if p := u.FindPou(name); p != nil {
			return p
		}
	}
	require.Failf(t, "missing POU", "%s", name)
	return nil
}

func (f *fixture) body(t *testing.T, name string) []ast.Statement {
	t.Helper()
	for _, u := range f.res.Units {
		if impl := u.FindImplementation(name); impl != nil {
			return impl.Statements
		}
	}
	require.Failf(t, "missing implementation", "%s", name)
	return nil
}

func (f *fixture) lines(t *testing.T, name string) []string {
	t.Helper()
	var out []string
	for _, s := range f.body(t, name) {
		out = append(out, ast.PrintStatement(s))
	}
	return out
}

func TestGenericCallsAreSpecialised(t *testing.T) {
	f := lower(t, `
FUNCTION foo<T : ANY_NUM> : T
VAR_INPUT val : T; END_VAR
foo := val;
END_FUNCTION
PROGRAM p VAR d : DINT; i : INT; END_VAR
d := foo(d);
i := foo(i);
END_PROGRAM`)

	assert.ElementsMatch(t, []string{"foo__DINT", "foo__INT"}, f.res.Specialised)
	assert.Equal(t, []string{"d := foo__DINT(d)", "i := foo__INT(i)"}, f.lines(t, "p"))
	assert.Equal(t, []string{"foo__DINT := val"}, f.lines(t, "foo__DINT"))

	spec := f.idx.FindPou("foo__DINT")
	require.NotNil(t, spec)
	assert.False(t, spec.IsGeneric())
	assert.Equal(t, types.DINT, spec.ReturnType)
	assert.Equal(t, types.INT, f.idx.FindMember("foo__INT", "val").Type)
	assert.Equal(t, "foo", spec.Specialises)
	assert.Empty(t, f.idx.Overloads("foo"), "materialised copies are not overloads")
}

func TestHandWrittenSpecialisationsStayOverloads(t *testing.T) {
	f := lower(t, `
FUNCTION foo<T : ANY_NUM> : T
VAR_INPUT val : T; END_VAR
foo := val;
END_FUNCTION
FUNCTION foo__INT : INT
VAR_INPUT val : INT; END_VAR
foo__INT := val + 1;
END_FUNCTION
PROGRAM p VAR d : DINT; i : INT; END_VAR
d := foo(d);
i := foo(i);
END_PROGRAM`)

	assert.Equal(t, []string{"foo__DINT"}, f.res.Specialised)
	var names []string
	for _, p := range f.idx.Overloads("foo") {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"foo__INT"}, names)
}

func TestMethodsBecomeFunctionsWithVtables(t *testing.T) {
	f := lower(t, `
CLASS base
  VAR x : INT; END_VAR
  METHOD get : INT get := x; END_METHOD
  METHOD fixed : INT fixed := 1; END_METHOD
END_CLASS
CLASS derived EXTENDS base
  METHOD OVERRIDE get : INT get := SUPER^.get() * 2; END_METHOD
END_CLASS
PROGRAM p VAR b : base; d : derived; v : INT; END_VAR
v := b.get();
v := b.fixed();
v := d.x;
END_PROGRAM`)

	assert.Equal(t, []string{
		"v := __POINTER_TO___vtable_base#b.__vt^.get^(REF(b))",
		"v := base_fixed(REF(b))",
		"v := d.__SUPER.x",
	}, f.lines(t, "p"))
	assert.Equal(t, []string{"base_get := __this^.x"}, f.lines(t, "base_get"))
	assert.Equal(t, []string{"derived_get := base_get(REF(__this^.__SUPER)) * 2"}, f.lines(t, "derived_get"))

	get := f.pou(t, "derived_get")
	assert.Equal(t, ast.PouFunction, get.Kind)
	assert.Empty(t, get.Parent)
	assert.False(t, get.Overriding)
	assert.Equal(t, ThisParam, get.Blocks[0].Variables[0].Name)
	assert.Equal(t, types.PointerName("derived"), f.idx.FindMember("derived_get", ThisParam).Type)

	// EXTENDS became an embedded first member, the root carries the vtable
	assert.Equal(t, SuperMember, f.pou(t, "derived").Blocks[0].Variables[0].Name)
	assert.Empty(t, f.pou(t, "derived").Super)
	assert.Equal(t, VtableMember, f.pou(t, "base").Blocks[0].Variables[0].Name)

	assert.Equal(t, []string{"__vtable_base", "__vtable_derived"}, f.res.Vtables)
	vt := f.idx.FindTypeInfo("__vtable_derived")
	require.NotNil(t, vt)
	assert.Equal(t, types.OriginVtable, vt.Origin)
	require.Len(t, vt.Fields, 2)
	assert.Equal(t, "get", vt.Fields[0].Name)
	assert.Equal(t, types.PointerName("derived_get"), vt.Fields[0].Type)
	assert.Equal(t, types.PointerName("base_fixed"), vt.Fields[1].Type)
	inst := f.idx.FindGlobal(VtableInstance("derived"))
	require.NotNil(t, inst)
	assert.True(t, inst.Constant)

	assert.Equal(t, []string{
		"base__init(self.__SUPER)",
		"self.__SUPER.__vt := REF(__vtable_derived_instance)",
	}, f.lines(t, "derived__init"))
	assert.Equal(t, []string{"p__init(p)"}, f.lines(t, "__init___demo"))
	assert.Equal(t, "__init___demo", f.res.Constructor)
}

func TestVirtualCallTypesAfterLowering(t *testing.T) {
	f := lower(t, `
CLASS base
  METHOD get : INT get := 1; END_METHOD
END_CLASS
CLASS derived EXTENDS base
  METHOD OVERRIDE get : INT get := 2; END_METHOD
END_CLASS
PROGRAM p VAR b : base; v : INT; END_VAR
v := b.get();
END_PROGRAM`)

	var unit *ast.CompilationUnit
	for _, u := range f.res.Units {
		if u.FindImplementation("p") != nil {
			unit = u
		}
	}
	require.NotNil(t, unit)
	m := resolver.Annotate(f.idx, unit)
	stmt := f.body(t, "p")[0].(*ast.Assignment)
	call := stmt.Right.(*ast.CallStatement)
	assert.Equal(t, "base_get", m.TypeOf(call.Operator))
	assert.Equal(t, types.INT, m.TypeOf(call))
}

func TestInheritedNamedArgumentsAreAssigned(t *testing.T) {
	f := lower(t, `
FUNCTION_BLOCK fbA
VAR_INPUT a : INT; END_VAR
VAR_OUTPUT q : INT; END_VAR
q := a;
END_FUNCTION_BLOCK
FUNCTION_BLOCK fbB EXTENDS fbA
VAR_INPUT b : INT; END_VAR
END_FUNCTION_BLOCK
PROGRAM p VAR inst : fbB; r : INT; END_VAR
inst(a := 1, b := 2, q => r);
END_PROGRAM`)

	assert.Equal(t, []string{
		"inst.__SUPER.a := 1",
		"inst(b := 2)",
		"r := inst.__SUPER.q",
	}, f.lines(t, "p"))
	assert.Empty(t, f.res.Vtables)
}

func TestInitializersMoveIntoFunctions(t *testing.T) {
	f := lower(t, `
VAR_GLOBAL g : INT := 5; h : INT := g + 1; END_VAR
FUNCTION_BLOCK counter
VAR start : INT := 3; cur : INT := start * 2; END_VAR
END_FUNCTION_BLOCK
FUNCTION f : INT
VAR x : INT := h; END_VAR
f := x;
END_FUNCTION
PROGRAM p VAR c : counter; arr : ARRAY[1..2] OF counter; END_VAR
END_PROGRAM`)

	assert.Equal(t, []string{"self.cur := self.start * 2"}, f.lines(t, "counter__init"))
	assert.Equal(t, []string{"x := h", "f := x"}, f.lines(t, "f"))

	init := f.body(t, "p__init")
	require.Len(t, init, 2)
	assert.Equal(t, "counter__init(self.c)", ast.PrintStatement(init[0]))
	loop, ok := init[1].(*ast.ForLoop)
	require.True(t, ok, "%T", init[1])
	assert.Equal(t, "__i0", ast.PrintStatement(loop.Counter))
	assert.Equal(t, "1", ast.PrintStatement(loop.Start))
	assert.Equal(t, "2", ast.PrintStatement(loop.End))
	require.Len(t, loop.Body, 1)
	assert.Equal(t, "counter__init(self.arr[__i0])", ast.PrintStatement(loop.Body[0]))
	tmp := f.idx.FindMember("p__init", "__i0")
	require.NotNil(t, tmp)
	assert.Equal(t, ast.VarTemp, tmp.Kind)

	assert.Equal(t, []string{"p__init(p)", "h := g + 1"}, f.lines(t, "__init___demo"))
	assert.ElementsMatch(t, []string{"counter__init", "p__init"}, f.res.InitFunctions)
	assert.True(t, IsInitFunction("counter__init"))
	assert.True(t, IsInitFunction(f.res.Constructor))
}

func TestNothingToInitialise(t *testing.T) {
	f := lower(t, `
VAR_GLOBAL g : INT := 5; END_VAR
PROGRAM p VAR x : INT := 1; END_VAR
x := g;
END_PROGRAM`)

	assert.Empty(t, f.res.Constructor)
	assert.Empty(t, f.res.InitFunctions)
	assert.Equal(t, []string{"x := g"}, f.lines(t, "p"))
}

func TestSpecialisationDepthIsBounded(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.Register("test.st", `
FUNCTION foo<T : ANY_NUM> : T
VAR_INPUT val : T; END_VAR
foo := val;
END_FUNCTION
PROGRAM p VAR d : DINT; END_VAR
d := foo(d);
END_PROGRAM`)
	ids := ast.NewIDProvider()
	parsed := parser.ParseFile(fs.Get(id), ids, parser.Options{Reporter: diag.BagReporter{Bag: diag.NewBag(0)}})
	preproc.Run(parsed.Unit, ids)
	idx, _ := index.Build(parsed.Unit)
	m := resolver.Annotate(idx, parsed.Unit)

	res, err := Lower([]*ast.CompilationUnit{parsed.Unit}, idx, m, ids, Options{MaxDepth: 1})
	require.NoError(t, err, "one round is enough for a single generic")
	assert.Equal(t, []string{"foo__DINT"}, res.Specialised)
}

func TestNames(t *testing.T) {
	assert.Equal(t, "fb_m", FunctionName("fb", "m"))
	assert.Equal(t, "__vtable_fb", VtableName("fb"))
	assert.Equal(t, "__vtable_fb_instance", VtableInstance("fb"))
	assert.Equal(t, "__init___my_proj", ConstructorName("my-proj"))
	assert.Equal(t, "__init___plc", ConstructorName(""))
	assert.False(t, IsInitFunction("main"))
}

func TestInterfaceValuesCarryTheirItable(t *testing.T) {
	f := lower(t, `
INTERFACE greeter
  METHOD greet : INT VAR_INPUT n : INT; END_VAR END_METHOD
END_INTERFACE
FUNCTION_BLOCK english IMPLEMENTS greeter
  METHOD greet : INT VAR_INPUT n : INT; END_VAR greet := n; END_METHOD
END_FUNCTION_BLOCK
FUNCTION twice : INT
VAR_INPUT g : greeter; END_VAR
twice := g.greet(2);
END_FUNCTION
PROGRAM p VAR e : english; g : greeter; v : INT; END_VAR
g := e;
v := g.greet(1);
v := twice(e);
END_PROGRAM`)

	fat := "(data := REF(e), table := REF(__itable_greeter_english_instance))"
	call := "__POINTER_TO_greeter_greet#__POINTER_TO___itable_greeter#g.table^.greet^"
	assert.Equal(t, []string{
		"g := " + fat,
		"v := " + call + "(g.data, 1)",
		"v := twice(" + fat + ")",
	}, f.lines(t, "p"))
	assert.Equal(t, []string{"twice := " + call + "(g.data, 2)"}, f.lines(t, "twice"))

	// the interface itself is the fat pointer
	iface := f.idx.FindPouType("greeter")
	require.NotNil(t, iface)
	require.Len(t, iface.Info.Fields, 2)
	assert.Equal(t, DataMember, iface.Info.Fields[0].Name)
	assert.Equal(t, TableMember, iface.Info.Fields[1].Name)
	assert.Equal(t, types.PointerName(types.VOID), iface.Info.Fields[1].Type)

	tbl := f.idx.FindTypeInfo(ItableName("greeter"))
	require.NotNil(t, tbl)
	assert.Equal(t, types.OriginVtable, tbl.Origin)
	require.Len(t, tbl.Fields, 1)
	assert.Equal(t, "greet", tbl.Fields[0].Name)
	assert.Equal(t, []string{ItableInstance("greeter", "english")}, f.res.Itables)
	inst := f.idx.FindGlobal(ItableInstance("greeter", "english"))
	require.NotNil(t, inst)
	assert.True(t, inst.Constant)
	assert.Equal(t, "(greet := REF(english_greet))", ast.PrintStatement(inst.Initial))

	// the abstract signature stays for the casts
	sig := f.idx.FindPou("greeter_greet")
	require.NotNil(t, sig)
	assert.True(t, sig.Abstract)
	assert.Equal(t, types.PointerName(types.VOID), f.idx.FindMember("greeter_greet", ThisParam).Type)
}

func TestInheritedInterfacesShareTheItable(t *testing.T) {
	f := lower(t, `
INTERFACE named
  METHOD name : INT END_METHOD
END_INTERFACE
INTERFACE shape EXTENDS named
  METHOD area : INT END_METHOD
END_INTERFACE
CLASS base IMPLEMENTS shape
  METHOD name : INT name := 1; END_METHOD
  METHOD area : INT area := 0; END_METHOD
END_CLASS
CLASS square EXTENDS base
  METHOD OVERRIDE area : INT area := 4; END_METHOD
END_CLASS
CLASS stray
  METHOD name : INT name := 2; END_METHOD
END_CLASS
PROGRAM p VAR s : square; n : named; END_VAR
n := s;
END_PROGRAM`)

	assert.ElementsMatch(t, []string{
		ItableInstance("named", "base"), ItableInstance("named", "square"),
		ItableInstance("shape", "base"), ItableInstance("shape", "square"),
	}, f.res.Itables, "stray has the method but does not implement named")
	inst := f.idx.FindGlobal(ItableInstance("shape", "square"))
	require.NotNil(t, inst)
	assert.Equal(t, "(area := REF(square_area), name := REF(base_name))", ast.PrintStatement(inst.Initial))
	assert.Equal(t, []string{"n := (data := REF(s), table := REF(__itable_named_square_instance))"}, f.lines(t, "p"))
}

func TestPropertiesGoThroughAccessors(t *testing.T) {
	f := lower(t, `
FUNCTION_BLOCK tank
  PROPERTY level : INT
    GET END_GET
    SET END_SET
  END_PROPERTY
level := level + 1;
END_FUNCTION_BLOCK
PROGRAM p VAR t : tank; v : INT; END_VAR
t.level := 5;
v := t.level;
END_PROGRAM`)

	assert.Equal(t, []string{
		"tank___set_level(REF(t), 5)",
		"v := tank___get_level(REF(t))",
	}, f.lines(t, "p"))
	assert.Equal(t, []string{"tank___set_level(THIS, tank___get_level(THIS) + 1)"}, f.lines(t, "tank"))
	assert.Equal(t, []string{"tank___get_level := __this^.level"}, f.lines(t, "tank___get_level"))
	assert.Equal(t, []string{"__this^.level := __in"}, f.lines(t, "tank___set_level"))

	get := f.idx.FindPou("tank___get_level")
	require.NotNil(t, get)
	assert.Equal(t, "tank.level", get.Property)
	assert.True(t, f.idx.FindMember("tank", "level").Property)
}
