package ast

// ConditionalBlock is one IF/ELSIF arm.
type ConditionalBlock struct {
	Condition Statement
	Body      []Statement
}

type IfStatement struct {
	Meta
	Blocks []*ConditionalBlock
	Else   []Statement
}

// CaseBlock is one CASE arm; labels are values or RangeStatements.
type CaseBlock struct {
	Labels []Statement
	Body   []Statement
}

type CaseStatement struct {
	Meta
	Selector Statement
	Blocks   []*CaseBlock
	Else     []Statement
	HasElse  bool
}

type ForLoop struct {
	Meta
	Counter Statement
	Start   Statement
	End     Statement
	By      Statement // nil means 1
	Body    []Statement
}

type WhileLoop struct {
	Meta
	Condition Statement
	Body      []Statement
}

type RepeatLoop struct {
	Meta
	Condition Statement
	Body      []Statement
}

type ExitStatement struct{ Meta }

type ContinueStatement struct{ Meta }

type ReturnStatement struct{ Meta }

// EmptyStatement is a lone `;`.
type EmptyStatement struct{ Meta }
