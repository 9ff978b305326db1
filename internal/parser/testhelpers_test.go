package parser

import (
	"testing"

	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/source"
)

func parseSource(t *testing.T, src string) (*ast.CompilationUnit, *diag.Bag) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.Register("test.st", src)
	bag := diag.NewBag(0)
	res := ParseFile(fs.Get(id), ast.NewIDProvider(), Options{Reporter: diag.BagReporter{Bag: bag}})
	return res.Unit, bag
}

func mustParse(t *testing.T, src string) *ast.CompilationUnit {
	t.Helper()
	unit, bag := parseSource(t, src)
	if bag.HasErrors() {
		for _, d := range bag.Items() {
			t.Errorf("%s %s: %s", d.Code.ID(), d.Primary, d.Message)
		}
		t.FailNow()
	}
	return unit
}

func firstStatement(t *testing.T, unit *ast.CompilationUnit, pou string) ast.Statement {
	t.Helper()
	impl := unit.FindImplementation(pou)
	if impl == nil || len(impl.Statements) == 0 {
		t.Fatalf("no statements in %s", pou)
	}
	return impl.Statements[0]
}
