package ast

// Operator is a unary or binary ST operator.
type Operator uint8

const (
	OpInvalid Operator = iota
	OpPlus
	OpMinus
	OpMultiply
	OpDivide
	OpModulo
	OpPower
	OpEqual
	OpNotEqual
	OpLess
	OpLessOrEqual
	OpGreater
	OpGreaterOrEqual
	OpAnd
	OpOr
	OpXor
	OpNot
)

var operatorSpelling = [...]string{
	OpInvalid:        "?",
	OpPlus:           "+",
	OpMinus:          "-",
	OpMultiply:       "*",
	OpDivide:         "/",
	OpModulo:         "MOD",
	OpPower:          "**",
	OpEqual:          "=",
	OpNotEqual:       "<>",
	OpLess:           "<",
	OpLessOrEqual:    "<=",
	OpGreater:        ">",
	OpGreaterOrEqual: ">=",
	OpAnd:            "AND",
	OpOr:             "OR",
	OpXor:            "XOR",
	OpNot:            "NOT",
}

func (op Operator) String() string {
	if int(op) < len(operatorSpelling) {
		return operatorSpelling[op]
	}
	return "?"
}

// IsComparison reports whether the operator yields BOOL regardless of operands.
func (op Operator) IsComparison() bool {
	switch op {
	case OpEqual, OpNotEqual, OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual:
		return true
	}
	return false
}

// IsLogical reports whether the operator is AND/OR/XOR/NOT.
func (op Operator) IsLogical() bool {
	switch op {
	case OpAnd, OpOr, OpXor, OpNot:
		return true
	}
	return false
}

// IsArithmetic reports whether the operator is + - * / MOD **.
func (op Operator) IsArithmetic() bool {
	switch op {
	case OpPlus, OpMinus, OpMultiply, OpDivide, OpModulo, OpPower:
		return true
	}
	return false
}

// Precedence orders binary operators; higher binds tighter.
func (op Operator) Precedence() int {
	switch op {
	case OpOr:
		return 1
	case OpXor:
		return 2
	case OpAnd:
		return 3
	case OpEqual, OpNotEqual:
		return 4
	case OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual:
		return 5
	case OpPlus, OpMinus:
		return 6
	case OpMultiply, OpDivide, OpModulo:
		return 7
	case OpPower:
		return 8
	}
	return 0
}
