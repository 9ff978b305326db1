package codegen

import (
	"github.com/llir/llvm/ir/value"

	"plcc/internal/ast"
	"plcc/internal/types"
)

// ValueKind tells what a GeneratedValue holds.
type ValueKind uint8

const (
	NoValue ValueKind = iota
	RValue
	LValue
)

func (k ValueKind) String() string {
	switch k {
	case RValue:
		return "rvalue"
	case LValue:
		return "lvalue"
	}
	return "no value"
}

// GeneratedValue is the result of emitting one expression. For an LValue,
// V is the address of the storage and Type describes what it points to.
type GeneratedValue struct {
	Kind ValueKind
	V    value.Value
	Type *types.Info
	Node ast.ID
}

func rvalue(v value.Value, t *types.Info, n ast.Node) GeneratedValue {
	return GeneratedValue{Kind: RValue, V: v, Type: t, Node: n.GetID()}
}

func lvalue(ptr value.Value, t *types.Info, n ast.Node) GeneratedValue {
	return GeneratedValue{Kind: LValue, V: ptr, Type: t, Node: n.GetID()}
}

func noValue(n ast.Node) GeneratedValue {
	return GeneratedValue{Kind: NoValue, Node: n.GetID()}
}

// hints is the stack of types expected of the expression being emitted.
// Literals take the type on top when it fits them.
type hints struct {
	stack []*types.Info
}

func (h *hints) Push(t *types.Info) { h.stack = append(h.stack, t) }

func (h *hints) Pop() {
	if len(h.stack) == 0 {
		panic(internalf(nil, "type hint stack underflow"))
	}
	h.stack = h.stack[:len(h.stack)-1]
}

// Top is the innermost hint, nil when nothing is expected.
func (h *hints) Top() *types.Info {
	if len(h.stack) == 0 {
		return nil
	}
	return h.stack[len(h.stack)-1]
}

func (h *hints) Len() int { return len(h.stack) }
