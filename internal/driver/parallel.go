package driver

import (
	"context"

	"golang.org/x/sync/errgroup"

	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/index"
	"plcc/internal/parser"
	"plcc/internal/preproc"
	"plcc/internal/resolver"
	"plcc/internal/source"
)

// parsedFile is the per-file output of the parallel front end.
type parsedFile struct {
	id    source.FileID
	unit  *ast.CompilationUnit
	index *index.Index
	diags []diag.Diagnostic
}

// parseAll parses, pre-processes and indexes every file concurrently. Each
// worker draws node ids from its own segment, so units never share ids.
func parseAll(ctx context.Context, fileSet *source.FileSet, ids []source.FileID, jobs int) ([]parsedFile, error) {
	out := make([]parsedFile, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(ids))))
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			bag := diag.NewBag(0)
			segment := ast.Segment(i)
			res := parser.ParseFile(fileSet.Get(id), segment, parser.Options{Reporter: diag.BagReporter{Bag: bag}})
			preproc.Run(res.Unit, segment)
			idx := index.New()
			idx.Visit(res.Unit)
			out[i] = parsedFile{id: id, unit: res.Unit, index: idx, diags: bag.Items()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// annotateAll annotates every unit concurrently against the shared,
// read-only index, then commits the results in input order.
func annotateAll(ctx context.Context, idx *index.Index, units []*ast.CompilationUnit, jobs int) (*resolver.AnnotationMap, error) {
	maps := make([]*resolver.AnnotationMap, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(units))))
	for i, u := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			maps[i] = resolver.Annotate(idx, u)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	all := resolver.NewAnnotationMap()
	for _, m := range maps {
		m.Commit(idx)
		all.Import(m)
	}
	return all, nil
}
