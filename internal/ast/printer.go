package ast

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Print renders a compilation unit as Structured Text that parses back to
// the same structure.
func Print(unit *CompilationUnit) string {
	p := &printer{}
	p.unit(unit)
	return p.sb.String()
}

// PrintStatement renders a single statement or expression without a
// trailing semicolon.
func PrintStatement(s Statement) string {
	p := &printer{}
	p.expr(s)
	return p.sb.String()
}

// PrintType renders a type declaration as it would appear after a colon.
func PrintType(d DataTypeDeclaration) string {
	p := &printer{}
	p.typeDecl(d)
	return p.sb.String()
}

type printer struct {
	sb     strings.Builder
	indent int
}

func (p *printer) write(s string) { p.sb.WriteString(s) }

func (p *printer) writef(format string, args ...any) { fmt.Fprintf(&p.sb, format, args...) }

func (p *printer) line(s string) {
	p.sb.WriteString(strings.Repeat("    ", p.indent))
	p.sb.WriteString(s)
	p.sb.WriteByte('\n')
}

func (p *printer) startLine() { p.sb.WriteString(strings.Repeat("    ", p.indent)) }

func (p *printer) unit(u *CompilationUnit) {
	for _, t := range u.UserTypes {
		p.userType(t)
	}
	for _, b := range u.GlobalBlocks {
		p.block(b)
	}
	for _, pou := range u.Pous {
		switch pou.Kind {
		case PouMethod:
			continue // printed inside the owner
		case PouAction:
			p.action(u, pou)
		default:
			p.pou(u, pou)
		}
	}
}

func (p *printer) userType(t *UserTypeDeclaration) {
	p.startLine()
	p.writef("TYPE %s : ", t.Type.TypeName())
	p.dataType(t.Type)
	if t.Initializer != nil {
		p.write(" := ")
		p.expr(t.Initializer)
	}
	p.write("; END_TYPE\n")
}

func (p *printer) block(b *VariableBlock) {
	head := b.Kind.String()
	if b.Constant {
		head += " CONSTANT"
	}
	if b.Retain {
		head += " RETAIN"
	}
	if b.Linkage == LinkExternal {
		head = "{external} " + head
	}
	p.line(head)
	p.indent++
	for _, v := range b.Variables {
		p.variable(v)
	}
	p.indent--
	p.line("END_VAR")
}

func (p *printer) variable(v *Variable) {
	p.startLine()
	p.write(v.Name)
	if v.Location != "" {
		p.write(" AT " + v.Location)
	}
	p.write(" : ")
	p.typeDecl(v.Type)
	if v.Initializer != nil {
		p.write(" := ")
		p.expr(v.Initializer)
	}
	p.write(";\n")
}

func pouKeyword(k PouType) string {
	switch k {
	case PouFunctionBlock:
		return "FUNCTION_BLOCK"
	case PouClass:
		return "CLASS"
	case PouMethod:
		return "METHOD"
	case PouFunction:
		return "FUNCTION"
	case PouInterface:
		return "INTERFACE"
	}
	return "PROGRAM"
}

func (p *printer) header(pou *Pou, name string) {
	p.startLine()
	if pou.Linkage == LinkExternal {
		p.write("{external} ")
	}
	p.write(pouKeyword(pou.Kind))
	if pou.Kind == PouMethod && pou.Access != AccessPublic {
		p.write(" " + pou.Access.String())
	}
	if pou.Abstract {
		p.write(" ABSTRACT")
	}
	if pou.Final {
		p.write(" FINAL")
	}
	if pou.Overriding {
		p.write(" OVERRIDE")
	}
	p.write(" " + name)
	if len(pou.Generics) > 0 {
		parts := make([]string, len(pou.Generics))
		for i, g := range pou.Generics {
			parts[i] = g.Name + " : " + g.Nature
		}
		p.write("<" + strings.Join(parts, ", ") + ">")
	}
	if pou.Super != "" {
		p.write(" EXTENDS " + pou.Super)
	}
	if len(pou.Interfaces) > 0 {
		names := make([]string, len(pou.Interfaces))
		for i, r := range pou.Interfaces {
			names[i] = r.Name
		}
		if pou.Kind == PouInterface {
			p.write(" EXTENDS " + strings.Join(names, ", "))
		} else {
			p.write(" IMPLEMENTS " + strings.Join(names, ", "))
		}
	}
	if pou.ReturnType != nil {
		p.write(" : ")
		p.typeDecl(pou.ReturnType)
	}
	p.write("\n")
}

func (p *printer) pou(u *CompilationUnit, pou *Pou) {
	p.header(pou, pou.Name)
	p.indent++
	for _, b := range pou.Blocks {
		p.block(b)
	}
	for _, m := range u.Pous {
		if m.Kind == PouMethod && m.Parent == pou.Name {
			p.method(u, m)
		}
	}
	if impl := u.FindImplementation(pou.Name); impl != nil {
		p.statements(impl.Statements)
	}
	p.indent--
	p.line("END_" + pouKeyword(pou.Kind))
}

func (p *printer) method(u *CompilationUnit, m *Pou) {
	p.header(m, m.Name[strings.LastIndexByte(m.Name, '.')+1:])
	p.indent++
	for _, b := range m.Blocks {
		p.block(b)
	}
	if impl := u.FindImplementation(m.Name); impl != nil {
		p.statements(impl.Statements)
	}
	p.indent--
	p.line("END_METHOD")
}

func (p *printer) action(u *CompilationUnit, a *Pou) {
	p.line("ACTION " + a.Name)
	p.indent++
	if impl := u.FindImplementation(a.Name); impl != nil {
		p.statements(impl.Statements)
	}
	p.indent--
	p.line("END_ACTION")
}

func (p *printer) typeDecl(d DataTypeDeclaration) {
	switch t := d.(type) {
	case *DataTypeReference:
		p.write(t.Name)
	case *DataTypeDefinition:
		p.dataType(t.Type)
	}
}

func (p *printer) dataType(t DataType) {
	switch n := t.(type) {
	case *StructType:
		p.write("STRUCT\n")
		p.indent++
		for _, m := range n.Members {
			p.variable(m)
		}
		p.indent--
		p.startLine()
		p.write("END_STRUCT")
	case *EnumType:
		if n.Base != nil {
			p.typeDecl(n.Base)
			p.write(" ")
		}
		p.write("(")
		for i, e := range n.Elements {
			if i > 0 {
				p.write(", ")
			}
			p.write(e.Name)
			if e.Value != nil {
				p.write(" := ")
				p.expr(e.Value)
			}
		}
		p.write(")")
	case *ArrayType:
		p.write("ARRAY[")
		for i, d := range n.Dims {
			if i > 0 {
				p.write(", ")
			}
			p.expr(d)
		}
		p.write("] OF ")
		p.typeDecl(n.Inner)
	case *VarLengthArrayType:
		p.write("ARRAY[" + strings.TrimSuffix(strings.Repeat("*, ", n.Rank), ", ") + "] OF ")
		p.typeDecl(n.Inner)
	case *PointerType:
		p.write("REF_TO ")
		p.typeDecl(n.Inner)
	case *StringType:
		if n.Wide {
			p.write("WSTRING")
		} else {
			p.write("STRING")
		}
		if n.Size != nil {
			p.write("[")
			p.expr(n.Size)
			p.write("]")
		}
	case *SubRangeType:
		p.write(n.Base + "(")
		p.expr(n.Range)
		p.write(")")
	case *GenericType:
		p.write(n.Nature)
	case *AliasType:
		p.write(n.Target)
	}
}

func (p *printer) statements(stmts []Statement) {
	for _, s := range stmts {
		p.statement(s)
	}
}

func (p *printer) body(stmts []Statement) {
	p.indent++
	p.statements(stmts)
	p.indent--
}

func (p *printer) statement(s Statement) {
	switch n := s.(type) {
	case *IfStatement:
		for i, b := range n.Blocks {
			p.startLine()
			if i == 0 {
				p.write("IF ")
			} else {
				p.write("ELSIF ")
			}
			p.expr(b.Condition)
			p.write(" THEN\n")
			p.body(b.Body)
		}
		if len(n.Else) > 0 {
			p.line("ELSE")
			p.body(n.Else)
		}
		p.line("END_IF;")
	case *CaseStatement:
		p.startLine()
		p.write("CASE ")
		p.expr(n.Selector)
		p.write(" OF\n")
		for _, b := range n.Blocks {
			p.startLine()
			for i, l := range b.Labels {
				if i > 0 {
					p.write(", ")
				}
				p.expr(l)
			}
			p.write(":\n")
			p.body(b.Body)
		}
		if n.HasElse {
			p.line("ELSE")
			p.body(n.Else)
		}
		p.line("END_CASE;")
	case *ForLoop:
		p.startLine()
		p.write("FOR ")
		p.expr(n.Counter)
		p.write(" := ")
		p.expr(n.Start)
		p.write(" TO ")
		p.expr(n.End)
		if n.By != nil {
			p.write(" BY ")
			p.expr(n.By)
		}
		p.write(" DO\n")
		p.body(n.Body)
		p.line("END_FOR;")
	case *WhileLoop:
		p.startLine()
		p.write("WHILE ")
		p.expr(n.Condition)
		p.write(" DO\n")
		p.body(n.Body)
		p.line("END_WHILE;")
	case *RepeatLoop:
		p.line("REPEAT")
		p.body(n.Body)
		p.startLine()
		p.write("UNTIL ")
		p.expr(n.Condition)
		p.write("\n")
		p.line("END_REPEAT;")
	case *ExitStatement:
		p.line("EXIT;")
	case *ContinueStatement:
		p.line("CONTINUE;")
	case *ReturnStatement:
		p.line("RETURN;")
	case *EmptyStatement:
		p.line(";")
	default:
		p.startLine()
		p.expr(s)
		p.write(";\n")
	}
}

func (p *printer) expr(s Statement) {
	switch n := s.(type) {
	case nil:
	case *Literal:
		p.write(LiteralText(n))
	case *ArrayLiteral:
		p.write("[")
		p.list(n.Elements)
		p.write("]")
	case *MultipliedStatement:
		p.writef("%d(", n.Multiplier)
		p.expr(n.Element)
		p.write(")")
	case *StructLiteral:
		p.write("(")
		for i, f := range n.Fields {
			if i > 0 {
				p.write(", ")
			}
			p.expr(f)
		}
		p.write(")")
	case *Reference:
		p.write(n.Name)
	case *MemberAccess:
		p.expr(n.Base)
		p.write(".")
		p.expr(n.Member)
	case *DirectAccess:
		p.write(n.Kind.Prefix())
		p.expr(n.Index)
	case *ArrayAccess:
		p.expr(n.Base)
		p.write("[")
		p.list(n.Indices)
		p.write("]")
	case *Deref:
		p.expr(n.Base)
		p.write("^")
	case *ThisRef:
		p.write("THIS")
	case *SuperRef:
		p.write("SUPER")
	case *BinaryExpr:
		p.operand(n.Left, n.Op.Precedence(), false)
		p.write(" " + n.Op.String() + " ")
		p.operand(n.Right, n.Op.Precedence(), true)
	case *UnaryExpr:
		if n.Op == OpNot {
			p.write("NOT ")
		} else {
			p.write(n.Op.String())
		}
		p.operand(n.Operand, 9, false)
	case *ParenExpr:
		p.write("(")
		p.expr(n.Inner)
		p.write(")")
	case *CastExpr:
		p.write(n.TypeName + "#")
		p.expr(n.Target)
	case *CallStatement:
		p.expr(n.Operator)
		p.write("(")
		p.list(n.Args)
		p.write(")")
	case *Assignment:
		p.expr(n.Left)
		p.write(" := ")
		p.expr(n.Right)
	case *OutputAssignment:
		p.expr(n.Left)
		p.write(" => ")
		p.expr(n.Right)
	case *RangeStatement:
		p.expr(n.Start)
		p.write("..")
		p.expr(n.End)
	default:
		p.writef("<%T>", s)
	}
}

// operand wraps binary sub-expressions that would otherwise re-associate.
func (p *printer) operand(s Statement, prec int, right bool) {
	if b, ok := s.(*BinaryExpr); ok {
		bp := b.Op.Precedence()
		if bp < prec || (right && bp == prec) {
			p.write("(")
			p.expr(s)
			p.write(")")
			return
		}
	}
	p.expr(s)
}

func (p *printer) list(items []Statement) {
	for i, s := range items {
		if i > 0 {
			p.write(", ")
		}
		p.expr(s)
	}
}

// LiteralText renders a literal, preferring its source spelling.
func LiteralText(l *Literal) string {
	if l.Raw != "" {
		return l.Raw
	}
	switch l.Kind {
	case LitInteger:
		return strconv.FormatInt(l.Int, 10)
	case LitReal:
		s := strconv.FormatFloat(l.Real, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEn") {
			s += ".0"
		}
		return s
	case LitBool:
		if l.Int != 0 {
			return "TRUE"
		}
		return "FALSE"
	case LitString:
		return "'" + EscapeString(l.Str, '\'') + "'"
	case LitWString:
		return `"` + EscapeString(l.Str, '"') + `"`
	case LitTime:
		return "T#" + strconv.FormatInt(l.Int, 10) + "ns"
	case LitDate:
		return time.Unix(0, l.Int).UTC().Format("D#2006-01-02")
	case LitTimeOfDay:
		return time.Unix(0, l.Int).UTC().Format("TOD#15:04:05")
	case LitDateTime:
		return time.Unix(0, l.Int).UTC().Format("DT#2006-01-02-15:04:05")
	}
	return "NULL"
}

// EscapeString applies IEC `$` escapes for a literal delimited by quote.
func EscapeString(s string, quote byte) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '$':
			sb.WriteString("$$")
		case c == quote:
			sb.WriteByte('$')
			sb.WriteByte(c)
		case c == '\n':
			sb.WriteString("$N")
		case c == '\r':
			sb.WriteString("$R")
		case c == '\t':
			sb.WriteString("$T")
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
