package lexer

import (
	"plcc/internal/diag"
)

type Options struct {
	Reporter diag.Reporter // nil: errors are dropped but lexing continues
}

func (lx *Lexer) report(code diag.Code, tok Token, msg string) {
	if lx.opts.Reporter != nil {
		lx.opts.Reporter.Report(diag.Of(code, tok.Span, msg))
	}
}
