package resolver

import (
	"fmt"

	"plcc/internal/ast"
)

// Kind tells what an annotated node stands for.
type Kind uint8

const (
	// Value is any expression that produces a value of Type.
	Value Kind = iota + 1
	// Variable is a reference to a declared variable, member, enumerator
	// or program instance.
	Variable
	// Type is a reference that names a data type (`Color` in `Color.Red`).
	Type
	// Function is a reference to a callable POU or builtin; Type holds the
	// return type.
	Function
)

func (k Kind) String() string {
	switch k {
	case Value:
		return "value"
	case Variable:
		return "variable"
	case Type:
		return "type"
	case Function:
		return "function"
	}
	return "none"
}

// Annotation is what the annotator learned about one node.
type Annotation struct {
	Kind Kind
	// Type is the resulting type name: the value type, the variable's
	// type (the target type for auto-deref variables), the named type, or
	// a function's return type ("" for VOID).
	Type string

	// Variable and Function
	Qualified string

	// Variable
	Constant  bool
	VarKind   ast.VarKind
	AutoDeref bool
	Global    bool
	Property  bool // reads and writes go through the GET and SET accessors

	// Function
	CallName string // differs from Qualified for generic and overloaded calls
	Generic  string // the generic POU a specialised call came from
	Builtin  bool
	Virtual  bool // dispatched through the receiver's vtable
	Pou      ast.PouType
}

// ValueOf annotates a plain value.
func ValueOf(typeName string) Annotation {
	return Annotation{Kind: Value, Type: typeName}
}

// TypeRefOf annotates a reference naming a type.
func TypeRefOf(typeName string) Annotation {
	return Annotation{Kind: Type, Type: typeName}
}

// Name is the name the emitter should call for a Function annotation.
func (a Annotation) Name() string {
	if a.CallName != "" {
		return a.CallName
	}
	return a.Qualified
}

func (a Annotation) String() string {
	switch a.Kind {
	case Variable:
		s := fmt.Sprintf("variable %s : %s", a.Qualified, a.Type)
		if a.Constant {
			s += " (constant)"
		}
		return s
	case Function:
		ret := a.Type
		if ret == "" {
			ret = "VOID"
		}
		return fmt.Sprintf("function %s : %s", a.Name(), ret)
	case Type:
		return "type " + a.Type
	case Value:
		return "value " + a.Type
	}
	return "<none>"
}
