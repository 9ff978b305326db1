package types

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"plcc/internal/ast"
)

// Kind enumerates the DataTypeInformation variants.
type Kind uint8

const (
	KindVoid Kind = iota
	KindInteger
	KindFloat
	KindBool
	KindString
	KindStruct
	KindEnum
	KindArray
	KindVarLengthArray
	KindPointer
	KindAlias
	KindSubRange
	KindGeneric
	// KindPlaceholder reserves a name while the indexer has not filled it yet.
	KindPlaceholder
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindArray:
		return "array"
	case KindVarLengthArray:
		return "vla"
	case KindPointer:
		return "pointer"
	case KindAlias:
		return "alias"
	case KindSubRange:
		return "subrange"
	case KindGeneric:
		return "generic"
	case KindPlaceholder:
		return "placeholder"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Class groups elementary types that convert into each other implicitly.
type Class uint8

const (
	ClassNone Class = iota
	ClassBool
	ClassBit
	ClassInt
	ClassReal
	ClassDuration
	ClassDate
	ClassString
	ClassChar
	ClassEnum
	ClassPointer
)

func (c Class) String() string {
	return [...]string{"none", "bool", "bit", "int", "real", "duration", "date", "string", "char", "enum", "pointer"}[c]
}

// Encoding of string and char types.
type Encoding uint8

const (
	UTF8 Encoding = iota
	UTF16
)

// Bytes is the code unit width.
func (e Encoding) Bytes() int64 {
	if e == UTF16 {
		return 2
	}
	return 1
}

// Origin records why a struct type exists.
type Origin uint8

const (
	OriginPlain Origin = iota
	OriginPou          // implicit instance struct of a POU
	OriginVtable       // __vtable_<Class>, __itable_<Interface>
)

type Field struct {
	Name     string
	Type     string
	Kind     ast.VarKind // declaring block, for POU structs
	Constant bool
}

type Variant struct {
	Name  string
	Value int64
}

// Dim is one array dimension. Const is false when a bound did not fold;
// such dimensions are reported by the validator and treated as [0..0].
type Dim struct {
	Start int64
	End   int64
	Const bool
}

// Len is the number of elements in the dimension.
func (d Dim) Len() int64 {
	if d.End < d.Start {
		return 0
	}
	return d.End - d.Start + 1
}

// GenericBinding is `T : ANY_NUM` on a generic POU.
type GenericBinding struct {
	Name   string
	Nature string
}

// Info is the compact descriptor behind every Index type entry. Types refer
// to each other by name only, so cyclic graphs need no pointers.
type Info struct {
	Kind Kind
	Name string

	// elementary types
	Class  Class
	Signed bool
	Bits   uint32

	// STRING / WSTRING: Size counts code units including the terminator.
	Encoding Encoding
	Size     int64

	// structs; POU instance structs carry their generics here
	Fields   []Field
	Generics []GenericBinding
	Origin   Origin
	Super    string // EXTENDS, for POU structs

	// enums
	Variants []Variant

	// Inner is the element type of arrays and VLAs, the target of pointers
	// and aliases, the base of enums and subranges.
	Inner string
	Dims  []Dim
	Rank  int

	AutoDeref bool // VAR_IN_OUT and REFERENCE TO pointers

	// subranges
	Lo, Hi int64

	// generic placeholders
	Nature Nature
}

// BaseField is the member a derived POU struct embeds its base in once
// EXTENDS has been lowered.
const BaseField = "__SUPER"

// Base is the POU t extends: the declared EXTENDS or, after lowering, the
// type of the embedded base member.
func (t *Info) Base() string {
	if t == nil {
		return ""
	}
	if t.Super != "" {
		return t.Super
	}
	if len(t.Fields) > 0 && SameName(t.Fields[0].Name, BaseField) {
		return t.Fields[0].Type
	}
	return ""
}

func (t *Info) String() string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}

func (t *Info) IsInteger() bool  { return t != nil && (t.Kind == KindInteger || t.Kind == KindSubRange) }
func (t *Info) IsFloat() bool    { return t != nil && t.Kind == KindFloat }
func (t *Info) IsBool() bool     { return t != nil && t.Kind == KindBool }
func (t *Info) IsNumeric() bool  { return t.IsInteger() || t.IsFloat() }
func (t *Info) IsString() bool   { return t != nil && t.Kind == KindString }
func (t *Info) IsPointer() bool  { return t != nil && t.Kind == KindPointer }
func (t *Info) IsArray() bool    { return t != nil && (t.Kind == KindArray || t.Kind == KindVarLengthArray) }
func (t *Info) IsStruct() bool   { return t != nil && t.Kind == KindStruct }
func (t *Info) IsEnum() bool     { return t != nil && t.Kind == KindEnum }
func (t *Info) IsVoid() bool     { return t == nil || t.Kind == KindVoid }
func (t *Info) IsGeneric() bool  { return t != nil && t.Kind == KindGeneric }
func (t *Info) IsAggregate() bool {
	return t != nil && (t.Kind == KindStruct || t.Kind == KindArray || t.Kind == KindString || t.Kind == KindVarLengthArray)
}

// IsElementary reports scalar types that have a class.
func (t *Info) IsElementary() bool {
	return t != nil && t.Class != ClassNone && t.Class != ClassPointer && t.Class != ClassEnum
}

// Field returns the named struct member (case-insensitive).
func (t *Info) Field(name string) (Field, int, bool) {
	if t == nil {
		return Field{}, -1, false
	}
	k := Key(name)
	for i, f := range t.Fields {
		if Key(f.Name) == k {
			return f, i, true
		}
	}
	return Field{}, -1, false
}

// Variant returns the named enum variant (case-insensitive).
func (t *Info) Variant(name string) (Variant, bool) {
	if t == nil {
		return Variant{}, false
	}
	k := Key(name)
	for _, v := range t.Variants {
		if Key(v.Name) == k {
			return v, true
		}
	}
	return Variant{}, false
}

// Elements is the total element count of a fixed array.
func (t *Info) Elements() int64 {
	n := int64(1)
	for _, d := range t.Dims {
		n *= d.Len()
	}
	return n
}

var folders = sync.Pool{New: func() any { c := cases.Fold(); return &c }}

// Key folds an IEC identifier to its case-insensitive lookup key.
func Key(name string) string {
	if isLowerASCII(name) {
		return name
	}
	c := folders.Get().(*cases.Caser)
	defer folders.Put(c)
	return c.String(name)
}

func isLowerASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' || c >= 0x80 {
			return false
		}
	}
	return true
}

// SameName compares identifiers case-insensitively.
func SameName(a, b string) bool {
	return len(a) == len(b) && strings.EqualFold(a, b) || Key(a) == Key(b)
}
