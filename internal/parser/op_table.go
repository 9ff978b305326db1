package parser

import (
	"plcc/internal/ast"
	"plcc/internal/token"
)

// binaryOps maps operator tokens to AST operators; precedence lives on
// ast.Operator so the printer and the parser agree.
var binaryOps = map[token.Kind]ast.Operator{
	token.KwOr:  ast.OpOr,
	token.KwXor: ast.OpXor,
	token.KwAnd: ast.OpAnd,
	token.Amp:   ast.OpAnd,
	token.Eq:    ast.OpEqual,
	token.NotEq: ast.OpNotEqual,
	token.Lt:    ast.OpLess,
	token.LtEq:  ast.OpLessOrEqual,
	token.Gt:    ast.OpGreater,
	token.GtEq:  ast.OpGreaterOrEqual,
	token.Plus:  ast.OpPlus,
	token.Minus: ast.OpMinus,
	token.Star:  ast.OpMultiply,
	token.Slash: ast.OpDivide,
	token.KwMod: ast.OpModulo,
	token.Power: ast.OpPower,
}

func binaryOp(k token.Kind) (ast.Operator, int) {
	op, ok := binaryOps[k]
	if !ok {
		return ast.OpInvalid, 0
	}
	return op, op.Precedence()
}
