package diag

import (
	"fmt"
	"strconv"
	"strings"
)

// Code is a stable diagnostic identifier. Numbers never change meaning once
// released; tooling suppresses diagnostics by ID ("E085") or Name.
type Code uint16

const (
	UnknownCode Code = 0

	// Syntax
	SyntaxError     Code = 1
	MissingToken    Code = 2
	UnclosedBlock   Code = 3
	UnexpectedToken Code = 7
	InvalidLiteral  Code = 11
	UnknownPragma   Code = 12

	// Declarations
	DuplicateSymbol        Code = 4
	RecursiveDataStructure Code = 29
	NonConstantArrayBound  Code = 33
	InvalidPouMember       Code = 34
	InvalidVarBlock        Code = 35
	MissingOverride        Code = 38
	InvalidInheritance     Code = 110
	ConflictingSignatures  Code = 111
	InterfaceMismatch      Code = 112
	InvalidPropertyBlock   Code = 116
	InvalidProperty        Code = 117

	// Types and expressions
	IncompatibleTypes               Code = 31
	InvalidArgumentCount            Code = 32
	AssignmentToConstant            Code = 36
	IncompatibleAssignment          Code = 37
	NotAddressable                  Code = 40
	ArrayDimensionMismatch          Code = 45
	UnresolvedReference             Code = 48
	NotCallable                     Code = 49
	BitAccessOutOfRange             Code = 57
	IncompatibleArrayAccessRange    Code = 58
	IncompatibleArrayAccessType     Code = 59
	IncompatibleArrayAccessVariable Code = 60
	UnknownTypeNature               Code = 62
	AmbiguousCall                   Code = 63
	UnresolvedGeneric               Code = 64
	NarrowingConversion             Code = 67
	InvalidDereference              Code = 68
	InvalidCondition                Code = 69
	DuplicateCaseLabel              Code = 70
	NonExhaustiveCase               Code = 85

	// Environment
	IOLoadFileError Code = 100
	ProjectConfig   Code = 101
)

type codeInfo struct {
	name  string
	title string
	sev   Severity
}

var codeCatalogue = map[Code]codeInfo{
	UnknownCode:                     {"unknown", "Unknown error", SevError},
	SyntaxError:                     {"syntax_error", "Syntax error", SevError},
	MissingToken:                    {"missing_token", "Missing expected token", SevError},
	UnclosedBlock:                   {"unclosed_block", "Block is not closed", SevError},
	UnexpectedToken:                 {"unexpected_token", "Unexpected token", SevError},
	InvalidLiteral:                  {"invalid_literal", "Malformed literal", SevError},
	UnknownPragma:                   {"unknown_pragma", "Unknown pragma", SevInfo},
	DuplicateSymbol:                 {"duplicate_symbol", "Duplicate symbol", SevError},
	RecursiveDataStructure:          {"recursive_data_structure", "Recursive data structure", SevError},
	NonConstantArrayBound:           {"non_constant_array_bound", "Array bound is not constant", SevError},
	InvalidPouMember:                {"invalid_pou_member", "Member is not allowed in this POU", SevError},
	InvalidVarBlock:                 {"invalid_var_block", "Variable block is not allowed in this POU", SevError},
	MissingOverride:                 {"missing_override", "Method shadows a base method without OVERRIDE", SevWarning},
	InvalidInheritance:              {"invalid_inheritance", "Invalid EXTENDS or IMPLEMENTS", SevError},
	ConflictingSignatures:           {"conflicting_signatures", "Interfaces declare a method with different signatures", SevError},
	InterfaceMismatch:               {"interface_mismatch", "POU does not implement its interface", SevError},
	InvalidPropertyBlock:            {"invalid_property_block", "Variable block is not allowed in a property", SevError},
	InvalidProperty:                 {"invalid_property", "Invalid property declaration or use", SevError},
	IncompatibleTypes:               {"incompatible_types", "Incompatible types", SevError},
	InvalidArgumentCount:            {"invalid_argument_count", "Wrong number of arguments", SevError},
	AssignmentToConstant:            {"assignment_to_constant", "Cannot assign to a constant", SevError},
	IncompatibleAssignment:          {"incompatible_assignment", "Incompatible assignment", SevError},
	NotAddressable:                  {"not_addressable", "Expression is not addressable", SevError},
	ArrayDimensionMismatch:          {"array_dimension_mismatch", "Wrong number of array indices", SevError},
	UnresolvedReference:             {"unresolved_reference", "Unresolved reference", SevError},
	NotCallable:                     {"not_callable", "Expression is not callable", SevError},
	BitAccessOutOfRange:             {"bit_access_out_of_range", "Bit access out of range", SevError},
	IncompatibleArrayAccessRange:    {"incompatible_array_access_range", "Array index out of range", SevError},
	IncompatibleArrayAccessType:     {"incompatible_array_access_type", "Invalid array index type", SevError},
	IncompatibleArrayAccessVariable: {"incompatible_array_access_variable", "Indexed value is not an array", SevError},
	UnknownTypeNature:               {"unknown_type_nature", "Type does not satisfy generic nature", SevError},
	AmbiguousCall:                   {"ambiguous_call", "Ambiguous call", SevError},
	UnresolvedGeneric:               {"unresolved_generic", "Generic parameter cannot be resolved", SevError},
	NarrowingConversion:             {"narrowing_conversion", "Implicit narrowing conversion", SevWarning},
	InvalidDereference:              {"invalid_dereference", "Dereference of a non-pointer", SevError},
	InvalidCondition:                {"invalid_condition", "Condition is not BOOL", SevError},
	DuplicateCaseLabel:              {"duplicate_case_label", "Duplicate CASE label", SevError},
	NonExhaustiveCase:               {"non_exhaustive_case", "CASE does not cover every enum variant", SevWarning},
	IOLoadFileError:                 {"io_error", "Cannot load file", SevError},
	ProjectConfig:                   {"project_config", "Invalid project configuration", SevError},
}

// ID returns the stable code string, e.g. "E048".
func (c Code) ID() string {
	return fmt.Sprintf("E%03d", int(c))
}

// Name returns the snake_case name, e.g. "unresolved_reference".
func (c Code) Name() string {
	if info, ok := codeCatalogue[c]; ok {
		return info.name
	}
	return codeCatalogue[UnknownCode].name
}

func (c Code) Title() string {
	if info, ok := codeCatalogue[c]; ok {
		return info.title
	}
	return codeCatalogue[UnknownCode].title
}

// DefaultSeverity is the severity used unless configuration overrides it.
func (c Code) DefaultSeverity() Severity {
	if info, ok := codeCatalogue[c]; ok {
		return info.sev
	}
	return SevError
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// Codes lists the catalogue in numeric order.
func Codes() []Code {
	out := make([]Code, 0, len(codeCatalogue))
	for c := range codeCatalogue {
		out = append(out, c)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// ParseCode resolves "E048", "48" or "unresolved_reference".
func ParseCode(s string) (Code, error) {
	s = strings.TrimSpace(s)
	digits := strings.TrimPrefix(strings.ToUpper(s), "E")
	if n, err := strconv.ParseUint(digits, 10, 16); err == nil {
		c := Code(n)
		if _, ok := codeCatalogue[c]; ok {
			return c, nil
		}
		return UnknownCode, fmt.Errorf("unknown diagnostic code %q", s)
	}
	lower := strings.ToLower(s)
	for c, info := range codeCatalogue {
		if info.name == lower {
			return c, nil
		}
	}
	return UnknownCode, fmt.Errorf("unknown diagnostic code %q", s)
}
