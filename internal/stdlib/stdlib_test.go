package stdlib

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/source"
	"plcc/internal/testkit"
	"plcc/internal/validation"
)

func all() string {
	var b strings.Builder
	for _, f := range Files() {
		b.Write(f.Content)
		b.WriteByte('\n')
	}
	return b.String()
}

func TestFilesAreEmbedded(t *testing.T) {
	files := Files()
	require.NotEmpty(t, files)
	for _, f := range files {
		assert.True(t, IsStdlib(f.Path), f.Path)
		assert.True(t, strings.HasSuffix(f.Path, ".st"), f.Path)
	}
	assert.False(t, IsStdlib("main.st"))

	fs := source.NewFileSet()
	ids := Register(fs)
	require.Len(t, ids, len(files))
	for _, id := range ids {
		assert.NotZero(t, fs.Get(id).Flags&source.FileBuiltin)
	}
}

func TestDeclarations(t *testing.T) {
	p := testkit.Parse(t, all())
	round := p.Unit.FindPou("ROUND")
	require.NotNil(t, round)
	assert.Equal(t, ast.LinkExternal, round.Linkage)
	assert.True(t, round.IsGeneric())

	ctu := p.Unit.FindPou("CTU")
	require.NotNil(t, ctu)
	assert.Equal(t, ast.PouFunctionBlock, ctu.Kind)
	assert.Equal(t, ast.LinkInternal, ctu.Linkage)
}

func TestCallsSpecialiseToRuntimeSymbols(t *testing.T) {
	p := testkit.Lower(t, all()+`
PROGRAM main
VAR r : REAL; l : LREAL; n : DINT; s : STRING[10]; c : CTU; END_VAR
r := SQRT(r);
l := ABS(l);
n := LEN(s);
c(CU := TRUE, PV := 3);
END_PROGRAM`)

	assert.Subset(t, p.Lowered.Specialised, []string{"SQRT__REAL", "ABS__LREAL", "LEN__STRING"})

	diags := validation.Validate(p.Units(), p.Index, p.Resolved, validation.Options{Declared: p.Declared})
	for _, d := range diags {
		assert.NotEqual(t, diag.SevError, d.Severity, "%s: %s", d.Code.ID(), d.Message)
	}
}
