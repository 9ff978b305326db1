package index

import (
	"strings"

	"plcc/internal/ast"
	"plcc/internal/source"
	"plcc/internal/types"
)

// TypeEntry is one registered data type.
type TypeEntry struct {
	Info    *types.Info
	Initial ast.Statement // TYPE x : INT := 5; END_TYPE
	Span    source.Span
	Scope   string // POU an inline type was hoisted from
	Builtin bool
}

func (e *TypeEntry) Name() string { return e.Info.Name }

// Role tells how a variable entry came to exist.
type Role uint8

const (
	RoleMember Role = iota // POU or struct member
	RoleGlobal
	RoleReturn        // implicit return slot of a function or method
	RoleEnumValue     // enumerator, container is the enum type
	RoleProgramGlobal // the single instance of a PROGRAM
)

// VariableEntry is a member, global, enumerator or return slot.
type VariableEntry struct {
	Name      string
	Qualified string
	Container string // "" for globals
	Type      string
	Initial   ast.Statement
	Kind      ast.VarKind
	Role      Role
	Linkage   ast.Linkage
	Constant  bool
	Retain    bool
	Hardware  string
	Property  bool // backing member of a PROPERTY
	Location  int  // position among the container's members
	Span      source.Span

	// Generated is attached by the IR emitter once the symbol exists in
	// the module, so later references need no second lookup.
	Generated any
}

func (v *VariableEntry) IsParameter() bool { return v.Role == RoleMember && v.Kind.IsParameter() }
func (v *VariableEntry) IsReturn() bool    { return v.Role == RoleReturn }
func (v *VariableEntry) IsTemp() bool      { return v.Kind == ast.VarTemp }
func (v *VariableEntry) IsExternal() bool  { return v.Linkage == ast.LinkExternal }
func (v *VariableEntry) IsGlobal() bool {
	return v.Role == RoleGlobal || v.Role == RoleProgramGlobal
}

// IsInOut reports VAR_IN_OUT parameters, which are passed by reference.
func (v *VariableEntry) IsInOut() bool { return v.Role == RoleMember && v.Kind == ast.VarInOut }

// PouEntry describes a program organisation unit.
type PouEntry struct {
	Name        string
	Kind        ast.PouType
	Parent      string // owner of methods and actions
	Super       string
	Generics    []types.GenericBinding
	// Specialises is the generic a lowered specialisation came from.
	Specialises string
	// Interfaces are implemented by an FB or class, or extended by an
	// interface.
	Interfaces  []string
	// Property is the qualified property an accessor method belongs to.
	Property    string
	ReturnType  string // "" for VOID
	Linkage     ast.Linkage
	Access      ast.Access
	Overriding  bool
	Abstract    bool
	Final       bool
	Span        source.Span
}

// InstanceStruct names the struct holding the POU's state. Actions run on
// their owner's instance.
func (p *PouEntry) InstanceStruct() string {
	if p.Kind == ast.PouAction {
		return p.Parent
	}
	return p.Name
}

// SimpleName is the unqualified name: "m" for method "cls.m".
func (p *PouEntry) SimpleName() string {
	if i := strings.LastIndexByte(p.Name, '.'); i >= 0 {
		return p.Name[i+1:]
	}
	return p.Name
}

func (p *PouEntry) IsGeneric() bool  { return len(p.Generics) > 0 }
func (p *PouEntry) IsExternal() bool { return p.Linkage == ast.LinkExternal }
func (p *PouEntry) IsMethod() bool   { return p.Kind == ast.PouMethod }
func (p *PouEntry) IsAction() bool   { return p.Kind == ast.PouAction }

// IsInterface reports INTERFACE declarations.
func (p *PouEntry) IsInterface() bool { return p.Kind == ast.PouInterface }

// IsCallable reports POUs that may appear as the operator of a call.
func (p *PouEntry) IsCallable() bool { return p.Kind != ast.PouClass && p.Kind != ast.PouInterface }

// ImplementationEntry records that a POU has a body.
type ImplementationEntry struct {
	Name     string
	TypeName string
	Kind     ast.PouType
	Linkage  ast.Linkage
	Generic  bool
	Span     source.Span
}

// TypeRef is a type name used by a declaration, kept so unknown names can
// be reported at their span.
type TypeRef struct {
	Name  string
	Span  source.Span
	Scope string
}

// sameOrigin decides whether two registrations describe the same
// declaration. Synthetic declarations have undefined spans and are matched
// by name alone.
func sameOrigin(a, b source.Span) bool {
	return a == b
}
