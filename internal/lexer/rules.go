package lexer

import (
	plexer "github.com/alecthomas/participle/v2/lexer"
)

// stDefinition tokenizes Structured Text. Rule order matters: typed date/time
// prefixes must win over identifiers, reals over integers, and multi-char
// operators over single-char ones. The trailing Invalid rule makes the
// lexer total so it never aborts on bad input.
var stDefinition = plexer.MustStateful(plexer.Rules{
	"Root": {
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "BlockComment", Pattern: `\(\*(?s:.)*?\*\)|/\*(?s:.)*?\*/`},
		{Name: "UnterminatedComment", Pattern: `\(\*(?s:.)*|/\*(?s:.)*`},
		{Name: "Pragma", Pattern: `\{[^}]*\}`},

		{Name: "DateTime", Pattern: `(?i)(?:DATE_AND_TIME|LDT|DT)#\d+-\d+-\d+-\d+:\d+(?::\d+(?:\.\d+)?)?`},
		{Name: "TimeOfDay", Pattern: `(?i)(?:TIME_OF_DAY|LTOD|TOD)#\d+:\d+(?::\d+(?:\.\d+)?)?`},
		{Name: "Date", Pattern: `(?i)(?:LDATE|DATE|LD|D)#\d+-\d+-\d+`},
		{Name: "Time", Pattern: `(?i)(?:LTIME|TIME|LT|T)#[-+]?(?:[0-9_.]+(?:d|h|ms|m|s|us|ns))+`},

		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
		{Name: "Based", Pattern: `\d+#[0-9A-Fa-f_]+`},
		{Name: "Real", Pattern: `\d[\d_]*\.\d[\d_]*(?:[eE][+-]?\d+)?|\d[\d_]*[eE][+-]?\d+`},
		{Name: "Int", Pattern: `\d[\d_]*`},
		{Name: "String", Pattern: `'(?:[^'$]|\$.)*'`},
		{Name: "WString", Pattern: `"(?:[^"$]|\$.)*"`},
		{Name: "UnterminatedString", Pattern: `['"][^\n]*`},
		{Name: "Direct", Pattern: `%[A-Za-z]{1,2}\d+(?:\.\d+)*|%[A-Za-z]{1,2}\*`},

		{Name: "Operator", Pattern: `:=|=>|<=|>=|<>|\*\*|\.\.|[-+*/=<>^&(),;:\[\].#]`},
		{Name: "Invalid", Pattern: `.`},
	},
})
