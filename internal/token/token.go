package token

import (
	"plcc/internal/source"
)

// Token represents a single source token with its location.
type Token struct {
	Kind Kind
	Span source.Span
	Text string
}

// IsLiteral reports whether the token is a literal value.
func (t Token) IsLiteral() bool { return t.Kind.IsLiteral() }

// IsKeyword reports whether the token is a language keyword.
func (t Token) IsKeyword() bool { return t.Kind.IsKeyword() }

// IsIdent reports whether the token is an identifier.
func (t Token) IsIdent() bool { return t.Kind == Ident }

// IsVarBlockStart reports whether the token opens a VAR* block.
func (t Token) IsVarBlockStart() bool {
	switch t.Kind {
	case KwVar, KwVarInput, KwVarOutput, KwVarInOut, KwVarTemp, KwVarGlobal, KwVarExternal:
		return true
	}
	return false
}
