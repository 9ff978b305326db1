// Package token defines lexical token kinds for Structured Text.
// Invariants:
//   - Token.Text is the exact source slice covered by Token.Span.
//   - Keywords are case-insensitive; LookupKeyword expects any casing.
//   - Elementary type names (INT, DINT, REAL, ...) are identifiers except
//     STRING and WSTRING, which take a length suffix and are keywords.
//   - Comments and whitespace never reach the token stream.
package token
