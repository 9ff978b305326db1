package ast

import "plcc/internal/source"

// DataTypeDeclaration is how a variable or POU names its type: either a
// reference to a named type or an inline definition.
type DataTypeDeclaration interface {
	GetSpan() source.Span
	dataTypeDecl()
}

// DataTypeReference names an existing type.
type DataTypeReference struct {
	Name string
	Span source.Span
}

// DataTypeDefinition carries an inline (possibly anonymous) type.
type DataTypeDefinition struct {
	Type DataType
	Span source.Span
}

func (d *DataTypeReference) GetSpan() source.Span  { return d.Span }
func (d *DataTypeDefinition) GetSpan() source.Span { return d.Span }
func (*DataTypeReference) dataTypeDecl()           {}
func (*DataTypeDefinition) dataTypeDecl()          {}

// TypeNameOf returns the referenced or defined name of decl ("" for anonymous).
func TypeNameOf(decl DataTypeDeclaration) string {
	switch d := decl.(type) {
	case *DataTypeReference:
		return d.Name
	case *DataTypeDefinition:
		if d.Type != nil {
			return d.Type.TypeName()
		}
	}
	return ""
}

// DataType is a user-visible type constructor.
type DataType interface {
	TypeName() string
	SetTypeName(name string)
	dataType()
}

type typeName struct{ Name string }

func (t *typeName) TypeName() string        { return t.Name }
func (t *typeName) SetTypeName(name string) { t.Name = name }

type StructType struct {
	typeName
	Members []*Variable
}

// EnumElement is one enumerator with an optional explicit value.
type EnumElement struct {
	ID    ID
	Name  string
	Value Statement
	Span  source.Span
}

type EnumType struct {
	typeName
	Base     DataTypeDeclaration // nil means DINT
	Elements []*EnumElement
}

// ArrayType is `ARRAY[a..b, c..d] OF Inner`.
type ArrayType struct {
	typeName
	Dims  []*RangeStatement
	Inner DataTypeDeclaration
}

// VarLengthArrayType is `ARRAY[*, *] OF Inner`.
type VarLengthArrayType struct {
	typeName
	Rank  int
	Inner DataTypeDeclaration
}

// PointerType is `REF_TO Inner` / `POINTER TO Inner`. AutoDeref marks the
// pointers introduced for VAR_IN_OUT parameters.
type PointerType struct {
	typeName
	Inner     DataTypeDeclaration
	AutoDeref bool
}

// StringType is `STRING[n]` / `WSTRING[n]`; Size nil means the default length.
type StringType struct {
	typeName
	Wide bool
	Size Statement
}

// SubRangeType is `INT(0..10)`.
type SubRangeType struct {
	typeName
	Base  string
	Range *RangeStatement
}

// GenericType is the placeholder `T` of a generic POU.
type GenericType struct {
	typeName
	Nature string
}

// AliasType is `TYPE MyInt : INT; END_TYPE`.
type AliasType struct {
	typeName
	Target string
}

func (*StructType) dataType()         {}
func (*EnumType) dataType()           {}
func (*ArrayType) dataType()          {}
func (*VarLengthArrayType) dataType() {}
func (*PointerType) dataType()        {}
func (*StringType) dataType()         {}
func (*SubRangeType) dataType()       {}
func (*GenericType) dataType()        {}
func (*AliasType) dataType()          {}

// NewStruct and friends exist so callers outside the package can set the
// embedded name in a literal-free way.
func NewStruct(name string, members []*Variable) *StructType {
	return &StructType{typeName: typeName{name}, Members: members}
}

func NewEnum(name string, base DataTypeDeclaration, elems []*EnumElement) *EnumType {
	return &EnumType{typeName: typeName{name}, Base: base, Elements: elems}
}

func NewArray(name string, dims []*RangeStatement, inner DataTypeDeclaration) *ArrayType {
	return &ArrayType{typeName: typeName{name}, Dims: dims, Inner: inner}
}

func NewVarLengthArray(name string, rank int, inner DataTypeDeclaration) *VarLengthArrayType {
	return &VarLengthArrayType{typeName: typeName{name}, Rank: rank, Inner: inner}
}

func NewPointer(name string, inner DataTypeDeclaration, autoDeref bool) *PointerType {
	return &PointerType{typeName: typeName{name}, Inner: inner, AutoDeref: autoDeref}
}

func NewString(name string, wide bool, size Statement) *StringType {
	return &StringType{typeName: typeName{name}, Wide: wide, Size: size}
}

func NewSubRange(name, base string, rng *RangeStatement) *SubRangeType {
	return &SubRangeType{typeName: typeName{name}, Base: base, Range: rng}
}

func NewGeneric(name, nature string) *GenericType {
	return &GenericType{typeName: typeName{name}, Nature: nature}
}

func NewAlias(name, target string) *AliasType {
	return &AliasType{typeName: typeName{name}, Target: target}
}

// UserTypeDeclaration is one entry of a TYPE block or a hoisted inline type.
// Scope names the POU an inline type was hoisted from.
type UserTypeDeclaration struct {
	ID          ID
	Type        DataType
	Initializer Statement
	Span        source.Span
	Scope       string
}
