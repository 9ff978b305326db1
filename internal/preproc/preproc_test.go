package preproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/index"
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

func userTypeNames(u *ast.CompilationUnit) []string {
	var out []string
	for _, ut := range u.UserTypes {
		out = append(out, ut.Type.TypeName())
	}
	return out
}

func variable(t *testing.T, pou *ast.Pou, name string) *ast.Variable {
	t.Helper()
	for _, b := range pou.Blocks {
		for _, v := range b.Variables {
			if v.Name == name {
				return v
			}
		}
	}
	t.Fatalf("no variable %s in %s", name, pou.Name)
	return nil
}

func TestHoistsInlineTypes(t *testing.T) {
	unit := parse(t, `
VAR_GLOBAL g : ARRAY[0..3] OF STRUCT a : INT; END_STRUCT; END_VAR
FUNCTION_BLOCK fb
VAR
  state : (idle, busy);
  buf : ARRAY[1..2] OF ARRAY[0..1] OF BYTE;
  s : STRING[10];
END_VAR
END_FUNCTION_BLOCK`)
	Run(unit, ast.NewIDProviderFrom(1000))

	names := userTypeNames(unit)
	assert.Contains(t, names, "__fb_state")
	assert.Contains(t, names, "__fb_buf")
	assert.Contains(t, names, "__fb_buf_")
	assert.Contains(t, names, "__fb_s")
	assert.Contains(t, names, "__global_g")
	assert.Contains(t, names, "__global_g_")

	fb := unit.FindPou("fb")
	state := variable(t, fb, "state")
	ref, ok := state.Type.(*ast.DataTypeReference)
	require.True(t, ok)
	assert.Equal(t, "__fb_state", ref.Name)

	// the first enumerator is the default
	cast, ok := state.Initializer.(*ast.CastExpr)
	require.True(t, ok)
	assert.Equal(t, "__fb_state", cast.TypeName)
	assert.Equal(t, "idle", cast.Target.(*ast.Reference).Name)

	lit, ok := variable(t, fb, "s").Initializer.(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, ast.LitString, lit.Kind)
}

func TestDefaultInitializers(t *testing.T) {
	unit := parse(t, `
TYPE myReal : LREAL; END_TYPE
FUNCTION f : INT
VAR
  i : INT;
  b : BOOL;
  r : myReal;
  d : TIME;
  k : INT := 7;
END_VAR
END_FUNCTION`)
	Run(unit, ast.NewIDProviderFrom(1000))
	f := unit.FindPou("f")

	kinds := map[string]ast.LiteralKind{"i": ast.LitInteger, "b": ast.LitBool, "r": ast.LitReal, "d": ast.LitTime}
	for name, kind := range kinds {
		lit, ok := variable(t, f, name).Initializer.(*ast.Literal)
		require.True(t, ok, name)
		assert.Equal(t, kind, lit.Kind, name)
		assert.True(t, lit.Span.IsUndefined(), "defaults are synthetic")
	}
	assert.Equal(t, "7", ast.PrintStatement(variable(t, f, "k").Initializer))
}

func TestInOutBecomesAutoDerefPointer(t *testing.T) {
	unit := parse(t, `
FUNCTION swap
VAR_IN_OUT a, b : INT; END_VAR
END_FUNCTION`)
	Run(unit, ast.NewIDProviderFrom(1000))

	a := variable(t, unit.FindPou("swap"), "a")
	def, ok := a.Type.(*ast.DataTypeDefinition)
	require.True(t, ok)
	ptr, ok := def.Type.(*ast.PointerType)
	require.True(t, ok)
	assert.True(t, ptr.AutoDeref)
	assert.Equal(t, types.ReferenceName("INT"), ptr.TypeName())
	assert.Nil(t, a.Initializer)

	idx, diags := index.Build(unit)
	assert.Empty(t, diags)
	v := idx.FindVariable("swap", []string{"b"})
	require.NotNil(t, v)
	assert.True(t, v.IsInOut())
	info := idx.FindEffectiveTypeInfo(v.Type)
	require.NotNil(t, info)
	assert.True(t, info.AutoDeref)
	assert.Equal(t, "INT", info.Inner)
}

func TestGenericPlaceholders(t *testing.T) {
	unit := parse(t, `
FUNCTION foo<T : ANY_NUM> : T
VAR_INPUT a : T; arr : ARRAY[0..1] OF T; END_VAR
END_FUNCTION`)
	Run(unit, ast.NewIDProviderFrom(1000))

	foo := unit.FindPou("foo")
	assert.Equal(t, "__foo__T", ast.TypeNameOf(foo.ReturnType))
	assert.Equal(t, "__foo__T", ast.TypeNameOf(variable(t, foo, "a").Type))
	assert.Contains(t, userTypeNames(unit), "__foo__T")

	idx, diags := index.Build(unit)
	assert.Empty(t, diags)
	g := idx.FindEffectiveTypeInfo("__foo__T")
	require.NotNil(t, g)
	assert.Equal(t, types.NatureNum, g.Nature)
	arr := idx.FindEffectiveTypeInfo("__foo_arr")
	require.NotNil(t, arr)
	assert.Equal(t, "__foo__T", arr.Inner)
}

func TestRunIsIdempotent(t *testing.T) {
	unit := parse(t, `
TYPE color : (red, green); END_TYPE
TYPE rec : STRUCT p : REF_TO INT; c : color; n : ARRAY[0..1] OF (a, b); END_STRUCT; END_TYPE
VAR_GLOBAL g : rec; END_VAR
FUNCTION_BLOCK fb
VAR_IN_OUT io : ARRAY[0..2] OF INT; END_VAR
VAR x : INT; y : (on, off); END_VAR
END_FUNCTION_BLOCK
FUNCTION gen<T : ANY> : T END_FUNCTION`)
	ids := ast.NewIDProviderFrom(1000)
	Run(unit, ids)
	first := ast.Print(unit)
	count := len(unit.UserTypes)
	next := ids.Peek()

	Run(unit, ids)
	assert.Equal(t, first, ast.Print(unit))
	assert.Equal(t, count, len(unit.UserTypes))
	assert.Equal(t, next, ids.Peek(), "no nodes are created on the second run")
}
