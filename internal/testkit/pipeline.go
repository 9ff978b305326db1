// Package testkit takes Structured Text snippets through the front end
// for tests of the later stages.
package testkit

import (
	"testing"

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

// Project is one snippet after annotation and, when requested, lowering.
type Project struct {
	Files *source.FileSet
	IDs   ast.IDProvider
	Unit  *ast.CompilationUnit

	// Declared and Annotations describe the unit as written.
	Declared    *index.Index
	Annotations *resolver.AnnotationMap

	// Lowered is nil unless the project went through Lower. Index and
	// Lowered annotations describe its units.
	Lowered  *lowering.Result
	Index    *index.Index
	Resolved *resolver.AnnotationMap
}

// Parse parses src as test.st and fails the test on syntax errors.
func Parse(t testing.TB, src string) *Project {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.Register("test.st", src)
	bag := diag.NewBag(0)
	ids := ast.NewIDProvider()
	parsed := parser.ParseFile(fs.Get(id), ids, parser.Options{Reporter: diag.BagReporter{Bag: bag}})
	require.False(t, bag.HasErrors(), "%v", bag.Items())
	require.NoError(t, CheckSpans(parsed.Unit, fs.Get(id)))
	preproc.Run(parsed.Unit, ids)
	return &Project{Files: fs, IDs: ids, Unit: parsed.Unit}
}

// Annotate parses, indexes and annotates src.
func Annotate(t testing.TB, src string) *Project {
	t.Helper()
	p := Parse(t, src)
	p.Declared, _ = index.Build(p.Unit)
	p.Annotations = resolver.Annotate(p.Declared, p.Unit)
	p.Annotations.Commit(p.Declared)
	return p
}

// Lower annotates src, lowers it for project "demo" and annotates the
// lowered units against a fresh index.
func Lower(t testing.TB, src string) *Project {
	t.Helper()
	p := Annotate(t, src)
	res, err := lowering.Lower([]*ast.CompilationUnit{p.Unit}, p.Declared, p.Annotations, p.IDs, lowering.Options{Project: "demo"})
	require.NoError(t, err)
	p.Lowered = res
	p.Index, _ = index.Build(res.Units...)
	p.Resolved = resolver.NewAnnotationMap()
	for _, u := range res.Units {
		am := resolver.Annotate(p.Index, u)
		am.Commit(p.Index)
		p.Resolved.Import(am)
	}
	return p
}

// Units are the lowered units, or the parsed unit before lowering.
func (p *Project) Units() []*ast.CompilationUnit {
	if p.Lowered != nil {
		return p.Lowered.Units
	}
	return []*ast.CompilationUnit{p.Unit}
}
