// Package diag defines the diagnostic model shared by every compiler pass.
//
// Diagnostics are values: passes collect them into a Bag (or any Reporter)
// and hand the list back to the driver. Nothing in this package formats or
// prints; rendering lives in internal/diagfmt.
//
// # Data model
//
//   - Severity: Info, Warning, Error.
//   - Code: stable catalogue entry (codes.go) rendered as "E048" with a
//     snake_case name ("unresolved_reference") usable for suppression.
//   - Primary: the source.Span the diagnostic points at.
//   - Notes: secondary spans with labels.
//   - Node: identity of the AST node that produced it (0 when not tied to a
//     node). Used by KeepMostSpecific to apply the per-node tie-break.
//
// # Ordering
//
// Bag.Sort orders by file, start, end, severity (desc) and code so output is
// deterministic no matter how many workers produced the diagnostics.
package diag
