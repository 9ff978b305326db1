package ast

import "plcc/internal/source"

// LiteralKind distinguishes literal shapes.
type LiteralKind uint8

const (
	LitInteger LiteralKind = iota
	LitReal
	LitBool
	LitString
	LitWString
	LitTime
	LitDate
	LitTimeOfDay
	LitDateTime
	LitNull
)

// Literal is a scalar constant. Int carries integers, booleans (0/1) and
// date/time values in nanoseconds; Real carries reals; Str carries decoded
// string contents. Raw is the source spelling.
type Literal struct {
	Meta
	Kind LiteralKind
	Int  int64
	Real float64
	Str  string
	Raw  string
}

// ArrayLiteral is `[a, b, 3(0)]`.
type ArrayLiteral struct {
	Meta
	Elements []Statement
}

// MultipliedStatement is the `n(x)` repetition inside array initializers.
type MultipliedStatement struct {
	Meta
	Multiplier int64
	Element    Statement
}

// StructLiteral is `(a := 1, b := 2)`.
type StructLiteral struct {
	Meta
	Fields []*Assignment
}

// Reference is a bare identifier.
type Reference struct {
	Meta
	Name string
}

// MemberAccess is `Base.Member`; Member is a *Reference or a *DirectAccess.
// Chains of member accesses form qualified references (`prg.fb.x`).
type MemberAccess struct {
	Meta
	Base   Statement
	Member Statement
}

// DirectKind is the width selected by a direct access.
type DirectKind uint8

const (
	DirectBit DirectKind = iota
	DirectByte
	DirectWord
	DirectDWord
	DirectLWord
)

// Bits returns the width of one accessed element.
func (k DirectKind) Bits() uint32 {
	switch k {
	case DirectByte:
		return 8
	case DirectWord:
		return 16
	case DirectDWord:
		return 32
	case DirectLWord:
		return 64
	}
	return 1
}

// Prefix is the ST spelling without the index, e.g. "%X".
func (k DirectKind) Prefix() string {
	switch k {
	case DirectByte:
		return "%B"
	case DirectWord:
		return "%W"
	case DirectDWord:
		return "%D"
	case DirectLWord:
		return "%L"
	}
	return "%X"
}

// DirectAccess is the `%Xn` / `%Bn` part of `x.%X3`; a plain `x.3` is a bit access too.
type DirectAccess struct {
	Meta
	Kind  DirectKind
	Index Statement
}

// ArrayAccess is `Base[i, j]`.
type ArrayAccess struct {
	Meta
	Base    Statement
	Indices []Statement
}

// Deref is `Base^`.
type Deref struct {
	Meta
	Base Statement
}

// ThisRef is `THIS`, a pointer to the current instance.
type ThisRef struct {
	Meta
}

// SuperRef is `SUPER`, a pointer to the base-class part of the current instance.
type SuperRef struct {
	Meta
}

type BinaryExpr struct {
	Meta
	Op    Operator
	Left  Statement
	Right Statement
}

type UnaryExpr struct {
	Meta
	Op      Operator
	Operand Statement
}

type ParenExpr struct {
	Meta
	Inner Statement
}

// CastExpr is a typed literal or qualified enum value: `INT#5`, `Color#Red`.
type CastExpr struct {
	Meta
	TypeName string
	TypeSpan source.Span
	Target   Statement
}

// CallStatement is `Operator(Args...)`. Named inputs are *Assignment,
// output bindings are *OutputAssignment, anything else is positional.
type CallStatement struct {
	Meta
	Operator Statement
	Args     []Statement
}

type Assignment struct {
	Meta
	Left  Statement
	Right Statement
}

// OutputAssignment is `formal => actual` inside a call.
type OutputAssignment struct {
	Meta
	Left  Statement
	Right Statement
}

// RangeStatement is `Start..End` in array dimensions, subranges and case labels.
type RangeStatement struct {
	Meta
	Start Statement
	End   Statement
}
