package ast

import "plcc/internal/source"

// Node is anything with an identity and a location.
type Node interface {
	GetID() ID
	GetSpan() source.Span
}

// Meta is embedded in every node.
type Meta struct {
	ID   ID
	Span source.Span
}

func (m *Meta) GetID() ID             { return m.ID }
func (m *Meta) GetSpan() source.Span  { return m.Span }
func (m *Meta) SetSpan(s source.Span) { m.Span = s }

// Statement covers both statements and expressions; ST does not separate
// them syntactically in call arguments and case labels.
type Statement interface {
	Node
	stmtNode()
}

func (*Literal) stmtNode()             {}
func (*ArrayLiteral) stmtNode()        {}
func (*MultipliedStatement) stmtNode() {}
func (*StructLiteral) stmtNode()       {}
func (*Reference) stmtNode()           {}
func (*MemberAccess) stmtNode()        {}
func (*DirectAccess) stmtNode()        {}
func (*ArrayAccess) stmtNode()         {}
func (*Deref) stmtNode()               {}
func (*ThisRef) stmtNode()             {}
func (*SuperRef) stmtNode()            {}
func (*BinaryExpr) stmtNode()          {}
func (*UnaryExpr) stmtNode()           {}
func (*ParenExpr) stmtNode()           {}
func (*CastExpr) stmtNode()            {}
func (*CallStatement) stmtNode()       {}
func (*Assignment) stmtNode()          {}
func (*OutputAssignment) stmtNode()    {}
func (*IfStatement) stmtNode()         {}
func (*CaseStatement) stmtNode()       {}
func (*ForLoop) stmtNode()             {}
func (*WhileLoop) stmtNode()           {}
func (*RepeatLoop) stmtNode()          {}
func (*ExitStatement) stmtNode()       {}
func (*ContinueStatement) stmtNode()   {}
func (*ReturnStatement) stmtNode()     {}
func (*EmptyStatement) stmtNode()      {}
func (*RangeStatement) stmtNode()      {}
