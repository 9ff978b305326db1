package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"plcc/internal/source"
)

func TestListing(t *testing.T) {
	fs := source.NewFileSet()
	fs.SetBaseDir("/work")
	user := fs.Add("/work/src/main.st", []byte("a\nb\n"), 0)
	lib := fs.Add("/work/lib/iec.st", []byte("x\n"), source.FileBuiltin)

	diags := []Diagnostic{
		{
			Severity: SevWarning,
			Code:     NonExhaustiveCase,
			Message:  "another",
			Primary:  source.Span{File: user, Start: 2, End: 3},
		},
		{
			Severity: SevError,
			Code:     UnresolvedReference,
			Message:  "first line\nsecond",
			Primary:  source.Span{File: user, Start: 0, End: 1},
			Notes: []Note{
				{Span: source.Span{File: lib, Start: 0, End: 0}, Msg: "in the library"},
				{Span: source.Span{File: user, Start: 2, End: 3}, Msg: "declared here"},
			},
		},
		{Severity: SevError, Code: UnresolvedReference, Message: "library only", Primary: source.Span{File: lib}},
	}

	assert.Equal(t, "error E048 src/main.st:1:1 first line second\n"+
		"note E048 src/main.st:2:1 declared here\n"+
		"warning E085 src/main.st:2:1 another", Listing(diags, fs, true))
	assert.Equal(t, "error E048 src/main.st:1:1 first line second\n"+
		"warning E085 src/main.st:2:1 another", Listing(diags, fs, false))
	assert.Empty(t, Listing(nil, fs, true))
}
