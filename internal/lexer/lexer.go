package lexer

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
	plexer "github.com/alecthomas/participle/v2/lexer"

	"plcc/internal/diag"
	"plcc/internal/source"
	"plcc/internal/token"
)

// Token is re-exported for callers that only import lexer.
type Token = token.Token

type Lexer struct {
	file *source.File
	opts Options
	toks []token.Token
	pos  int
}

var symbolNames = func() map[plexer.TokenType]string {
	out := map[plexer.TokenType]string{}
	for name, tt := range stDefinition.Symbols() {
		out[tt] = name
	}
	return out
}()

var operatorKinds = map[string]token.Kind{
	":=": token.Assign,
	"=>": token.Arrow,
	"<=": token.LtEq,
	">=": token.GtEq,
	"<>": token.NotEq,
	"**": token.Power,
	"..": token.DotDot,
	"-":  token.Minus,
	"+":  token.Plus,
	"*":  token.Star,
	"/":  token.Slash,
	"=":  token.Eq,
	"<":  token.Lt,
	">":  token.Gt,
	"^":  token.Caret,
	"&":  token.Amp,
	"(":  token.LParen,
	")":  token.RParen,
	",":  token.Comma,
	";":  token.Semicolon,
	":":  token.Colon,
	"[":  token.LBracket,
	"]":  token.RBracket,
	".":  token.Dot,
	"#":  token.Hash,
}

// New tokenizes the whole file eagerly; the parser needs unbounded lookahead
// for CASE labels and generic headers.
func New(file *source.File, opts Options) *Lexer {
	lx := &Lexer{file: file, opts: opts}
	lx.scan()
	return lx
}

// Tokens returns every significant token, terminated by EOF.
func (lx *Lexer) Tokens() []token.Token {
	return lx.toks
}

// Next returns the next token; after EOF it keeps returning EOF.
func (lx *Lexer) Next() token.Token {
	tok := lx.toks[lx.pos]
	if lx.pos < len(lx.toks)-1 {
		lx.pos++
	}
	return tok
}

// Peek returns the next token without consuming it.
func (lx *Lexer) Peek() token.Token {
	return lx.toks[lx.pos]
}

// PeekN looks n tokens ahead (PeekN(0) == Peek()); past the end it yields EOF.
func (lx *Lexer) PeekN(n int) token.Token {
	if i := lx.pos + n; i < len(lx.toks) {
		return lx.toks[i]
	}
	return lx.toks[len(lx.toks)-1]
}

// EmptySpan is a zero-width span at the current position.
func (lx *Lexer) EmptySpan() source.Span {
	sp := lx.toks[lx.pos].Span
	sp.End = sp.Start
	return sp
}

func (lx *Lexer) scan() {
	src := string(lx.file.Content)
	stream, err := stDefinition.LexString(lx.file.Path, src)
	if err != nil {
		panic(fmt.Errorf("lexer definition rejected input: %w", err))
	}
	for {
		pt, err := stream.Next()
		if err != nil {
			// the Invalid rule makes the definition total
			panic(fmt.Errorf("lexer failed: %w", err))
		}
		if pt.EOF() {
			break
		}
		lx.emit(pt)
	}
	end := lx.offset(len(src))
	lx.toks = append(lx.toks, token.Token{
		Kind: token.EOF,
		Span: source.Span{File: lx.file.ID, Start: end, End: end},
	})
}

func (lx *Lexer) offset(n int) uint32 {
	off, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("source offset overflow: %w", err))
	}
	return off
}

func (lx *Lexer) emit(pt plexer.Token) {
	start := lx.offset(pt.Pos.Offset)
	tok := token.Token{
		Span: source.Span{File: lx.file.ID, Start: start, End: start + lx.offset(len(pt.Value))},
		Text: pt.Value,
	}
	switch symbolNames[pt.Type] {
	case "Whitespace", "LineComment", "BlockComment":
		return
	case "UnterminatedComment":
		lx.report(diag.SyntaxError, tok, "unterminated block comment")
		return
	case "Pragma":
		tok.Kind = token.Pragma
	case "DateTime":
		tok.Kind = token.DateTimeLit
	case "TimeOfDay":
		tok.Kind = token.TodLit
	case "Date":
		tok.Kind = token.DateLit
	case "Time":
		tok.Kind = token.TimeLit
	case "Ident":
		if kw, ok := token.LookupKeyword(pt.Value); ok {
			tok.Kind = kw
		} else {
			tok.Kind = token.Ident
		}
	case "Based":
		tok.Kind = token.BasedIntLit
	case "Real":
		tok.Kind = token.RealLit
	case "Int":
		tok.Kind = token.IntLit
	case "String":
		tok.Kind = token.StringLit
	case "WString":
		tok.Kind = token.WStringLit
	case "UnterminatedString":
		tok.Kind = token.Invalid
		lx.report(diag.SyntaxError, tok, "unterminated string literal")
	case "Direct":
		tok.Kind = classifyDirect(pt.Value)
	case "Operator":
		tok.Kind = operatorKinds[pt.Value]
	default:
		tok.Kind = token.Invalid
		lx.report(diag.SyntaxError, tok, fmt.Sprintf("unexpected character %q", pt.Value))
	}
	lx.toks = append(lx.toks, tok)
}

// classifyDirect separates bit/byte access (%X3, %B1) from located
// variables (%IX1.0, %QW4, %MD2).
func classifyDirect(text string) token.Kind {
	body := strings.ToUpper(strings.TrimPrefix(text, "%"))
	if body == "" {
		return token.Invalid
	}
	switch body[0] {
	case 'I', 'Q', 'M':
		return token.HardwareAddress
	}
	return token.DirectAccess
}

// Tokenize is a convenience wrapper returning the token slice.
func Tokenize(file *source.File, opts Options) []token.Token {
	return New(file, opts).Tokens()
}
