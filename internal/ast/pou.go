package ast

import "plcc/internal/source"

// PouType is the kind of a program organisation unit.
type PouType uint8

const (
	PouProgram PouType = iota
	PouFunction
	PouFunctionBlock
	PouClass
	PouMethod
	PouAction
	PouInterface
)

func (k PouType) String() string {
	switch k {
	case PouProgram:
		return "PROGRAM"
	case PouFunction:
		return "FUNCTION"
	case PouFunctionBlock:
		return "FUNCTION_BLOCK"
	case PouClass:
		return "CLASS"
	case PouMethod:
		return "METHOD"
	case PouAction:
		return "ACTION"
	case PouInterface:
		return "INTERFACE"
	}
	return "POU"
}

// IsStateful reports whether instances of the POU keep their locals between calls.
func (k PouType) IsStateful() bool {
	switch k {
	case PouProgram, PouFunctionBlock, PouClass:
		return true
	}
	return false
}

type Linkage uint8

const (
	LinkInternal Linkage = iota
	LinkExternal
	LinkBuiltIn
)

type Access uint8

const (
	AccessPublic Access = iota
	AccessPrivate
	AccessProtected
	AccessInternal
)

func (a Access) String() string {
	switch a {
	case AccessPrivate:
		return "PRIVATE"
	case AccessProtected:
		return "PROTECTED"
	case AccessInternal:
		return "INTERNAL"
	}
	return "PUBLIC"
}

// GenericBinding is `T : ANY_NUM` in a generic POU header.
type GenericBinding struct {
	Name   string
	Nature string
}

// VarKind is the kind of a variable block.
type VarKind uint8

const (
	VarLocal VarKind = iota
	VarInput
	VarOutput
	VarInOut
	VarTemp
	VarGlobal
	VarExternal
)

func (k VarKind) String() string {
	switch k {
	case VarInput:
		return "VAR_INPUT"
	case VarOutput:
		return "VAR_OUTPUT"
	case VarInOut:
		return "VAR_IN_OUT"
	case VarTemp:
		return "VAR_TEMP"
	case VarGlobal:
		return "VAR_GLOBAL"
	case VarExternal:
		return "VAR_EXTERNAL"
	}
	return "VAR"
}

// IsParameter reports whether variables of this kind are call parameters.
func (k VarKind) IsParameter() bool {
	return k == VarInput || k == VarOutput || k == VarInOut
}

type Variable struct {
	ID          ID
	Name        string
	NameSpan    source.Span
	Type        DataTypeDeclaration
	Initializer Statement
	Location    string // AT %IX1.0
	Span        source.Span
}

type VariableBlock struct {
	ID        ID
	Kind      VarKind
	Constant  bool
	Retain    bool
	// Property marks the backing storage of PROPERTY declarations.
	Property  bool
	Linkage   Linkage
	Variables []*Variable
	Span      source.Span
}

// Accessor methods a PROPERTY declares.
const (
	GetterPrefix = "__get_"
	SetterPrefix = "__set_"
	// SetterParam is the input the setter receives the new value in.
	SetterParam = "__in"
)

// InterfaceRef names an interface in IMPLEMENTS or an interface's EXTENDS.
type InterfaceRef struct {
	Name string
	Span source.Span
}

// Pou is the declaration part of a program organisation unit. Methods and
// actions carry their owner in Parent and a qualified Name ("fb.m").
type Pou struct {
	ID          ID
	Name        string
	NameSpan    source.Span
	Kind        PouType
	Parent      string
	Blocks      []*VariableBlock
	ReturnType  DataTypeDeclaration
	Generics    []GenericBinding
	// Specialises names the generic this POU was materialised from.
	Specialises string
	Super       string
	SuperSpan   source.Span
	// Interfaces is the IMPLEMENTS list of a FUNCTION_BLOCK or CLASS and
	// the EXTENDS list of an INTERFACE.
	Interfaces  []InterfaceRef
	// Property is the qualified property ("fb.p") an accessor belongs to.
	Property    string
	Linkage     Linkage
	Access      Access
	Overriding  bool
	Abstract    bool
	Final       bool
	Span        source.Span
}

// IsGeneric reports whether the POU declares type parameters.
func (p *Pou) IsGeneric() bool { return len(p.Generics) > 0 }

// Implementation is the body of a POU.
type Implementation struct {
	ID           ID
	Name         string
	TypeName     string
	Linkage      Linkage
	Kind         PouType
	Statements   []Statement
	Location     source.Span
	NameLocation source.Span
	EndLocation  source.Span
	Overriding   bool
	Generic      bool
	Access       Access
}

// CompilationUnit is everything parsed from one file.
type CompilationUnit struct {
	File            source.FileID
	Path            string
	GlobalBlocks    []*VariableBlock
	Pous            []*Pou
	Implementations []*Implementation
	UserTypes       []*UserTypeDeclaration
}

// FindPou returns the POU named name (exact match).
func (u *CompilationUnit) FindPou(name string) *Pou {
	for _, p := range u.Pous {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// FindImplementation returns the implementation named name (exact match).
func (u *CompilationUnit) FindImplementation(name string) *Implementation {
	for _, impl := range u.Implementations {
		if impl.Name == name {
			return impl
		}
	}
	return nil
}

// QualifiedName joins a qualifier and a name with a dot.
func QualifiedName(qualifier, name string) string {
	if qualifier == "" {
		return name
	}
	return qualifier + "." + name
}
