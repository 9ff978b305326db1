package ast

// Cloner deep-copies subtrees, giving every copied node a fresh id. Spans
// are kept so diagnostics on instantiated code point at the original source.
type Cloner struct {
	IDs IDProvider
	// Types, when set, rewrites type names in copied declarations and casts.
	Types func(name string) string
}

func (c Cloner) typeName(name string) string {
	if c.Types == nil {
		return name
	}
	return c.Types(name)
}

// Statement deep-copies s.
func (c Cloner) Statement(s Statement) Statement {
	if s == nil {
		return nil
	}
	m := func(old Meta) Meta { return Meta{ID: c.IDs.Next(), Span: old.Span} }
	switch n := s.(type) {
	case *Literal:
		cp := *n
		cp.Meta = m(n.Meta)
		return &cp
	case *ArrayLiteral:
		return &ArrayLiteral{Meta: m(n.Meta), Elements: c.Statements(n.Elements)}
	case *MultipliedStatement:
		return &MultipliedStatement{Meta: m(n.Meta), Multiplier: n.Multiplier, Element: c.Statement(n.Element)}
	case *StructLiteral:
		out := &StructLiteral{Meta: m(n.Meta)}
		for _, f := range n.Fields {
			out.Fields = append(out.Fields, c.Statement(f).(*Assignment))
		}
		return out
	case *Reference:
		return &Reference{Meta: m(n.Meta), Name: n.Name}
	case *MemberAccess:
		return &MemberAccess{Meta: m(n.Meta), Base: c.Statement(n.Base), Member: c.Statement(n.Member)}
	case *DirectAccess:
		return &DirectAccess{Meta: m(n.Meta), Kind: n.Kind, Index: c.Statement(n.Index)}
	case *ArrayAccess:
		return &ArrayAccess{Meta: m(n.Meta), Base: c.Statement(n.Base), Indices: c.Statements(n.Indices)}
	case *Deref:
		return &Deref{Meta: m(n.Meta), Base: c.Statement(n.Base)}
	case *ThisRef:
		return &ThisRef{Meta: m(n.Meta)}
	case *SuperRef:
		return &SuperRef{Meta: m(n.Meta)}
	case *BinaryExpr:
		return &BinaryExpr{Meta: m(n.Meta), Op: n.Op, Left: c.Statement(n.Left), Right: c.Statement(n.Right)}
	case *UnaryExpr:
		return &UnaryExpr{Meta: m(n.Meta), Op: n.Op, Operand: c.Statement(n.Operand)}
	case *ParenExpr:
		return &ParenExpr{Meta: m(n.Meta), Inner: c.Statement(n.Inner)}
	case *CastExpr:
		return &CastExpr{Meta: m(n.Meta), TypeName: c.typeName(n.TypeName), TypeSpan: n.TypeSpan, Target: c.Statement(n.Target)}
	case *CallStatement:
		return &CallStatement{Meta: m(n.Meta), Operator: c.Statement(n.Operator), Args: c.Statements(n.Args)}
	case *Assignment:
		return &Assignment{Meta: m(n.Meta), Left: c.Statement(n.Left), Right: c.Statement(n.Right)}
	case *OutputAssignment:
		return &OutputAssignment{Meta: m(n.Meta), Left: c.Statement(n.Left), Right: c.Statement(n.Right)}
	case *RangeStatement:
		return c.Range(n)
	case *IfStatement:
		out := &IfStatement{Meta: m(n.Meta), Else: c.Statements(n.Else)}
		for _, b := range n.Blocks {
			out.Blocks = append(out.Blocks, &ConditionalBlock{Condition: c.Statement(b.Condition), Body: c.Statements(b.Body)})
		}
		return out
	case *CaseStatement:
		out := &CaseStatement{Meta: m(n.Meta), Selector: c.Statement(n.Selector), Else: c.Statements(n.Else), HasElse: n.HasElse}
		for _, b := range n.Blocks {
			out.Blocks = append(out.Blocks, &CaseBlock{Labels: c.Statements(b.Labels), Body: c.Statements(b.Body)})
		}
		return out
	case *ForLoop:
		return &ForLoop{Meta: m(n.Meta), Counter: c.Statement(n.Counter), Start: c.Statement(n.Start),
			End: c.Statement(n.End), By: c.Statement(n.By), Body: c.Statements(n.Body)}
	case *WhileLoop:
		return &WhileLoop{Meta: m(n.Meta), Condition: c.Statement(n.Condition), Body: c.Statements(n.Body)}
	case *RepeatLoop:
		return &RepeatLoop{Meta: m(n.Meta), Condition: c.Statement(n.Condition), Body: c.Statements(n.Body)}
	case *ExitStatement:
		return &ExitStatement{Meta: m(n.Meta)}
	case *ContinueStatement:
		return &ContinueStatement{Meta: m(n.Meta)}
	case *ReturnStatement:
		return &ReturnStatement{Meta: m(n.Meta)}
	case *EmptyStatement:
		return &EmptyStatement{Meta: m(n.Meta)}
	}
	panic("ast: clone of unknown statement")
}

// Statements deep-copies a list.
func (c Cloner) Statements(stmts []Statement) []Statement {
	if stmts == nil {
		return nil
	}
	out := make([]Statement, len(stmts))
	for i, s := range stmts {
		out[i] = c.Statement(s)
	}
	return out
}

// Range deep-copies a range.
func (c Cloner) Range(r *RangeStatement) *RangeStatement {
	if r == nil {
		return nil
	}
	return &RangeStatement{Meta: Meta{ID: c.IDs.Next(), Span: r.Span}, Start: c.Statement(r.Start), End: c.Statement(r.End)}
}

// TypeDecl deep-copies a data type declaration.
func (c Cloner) TypeDecl(d DataTypeDeclaration) DataTypeDeclaration {
	switch n := d.(type) {
	case nil:
		return nil
	case *DataTypeReference:
		return &DataTypeReference{Name: c.typeName(n.Name), Span: n.Span}
	case *DataTypeDefinition:
		return &DataTypeDefinition{Type: c.DataType(n.Type), Span: n.Span}
	}
	return d
}

// DataType deep-copies a type constructor. Named types are renamed through
// Types as well, so a hoisted type can be copied under a new name.
func (c Cloner) DataType(t DataType) DataType {
	switch n := t.(type) {
	case *StructType:
		return NewStruct(c.typeName(n.Name), c.Variables(n.Members))
	case *EnumType:
		elems := make([]*EnumElement, len(n.Elements))
		for i, e := range n.Elements {
			elems[i] = &EnumElement{ID: c.IDs.Next(), Name: e.Name, Value: c.Statement(e.Value), Span: e.Span}
		}
		return NewEnum(c.typeName(n.Name), c.TypeDecl(n.Base), elems)
	case *ArrayType:
		dims := make([]*RangeStatement, len(n.Dims))
		for i, d := range n.Dims {
			dims[i] = c.Range(d)
		}
		return NewArray(c.typeName(n.Name), dims, c.TypeDecl(n.Inner))
	case *VarLengthArrayType:
		return NewVarLengthArray(c.typeName(n.Name), n.Rank, c.TypeDecl(n.Inner))
	case *PointerType:
		return NewPointer(c.typeName(n.Name), c.TypeDecl(n.Inner), n.AutoDeref)
	case *StringType:
		return NewString(c.typeName(n.Name), n.Wide, c.Statement(n.Size))
	case *SubRangeType:
		return NewSubRange(c.typeName(n.Name), c.typeName(n.Base), c.Range(n.Range))
	case *GenericType:
		return NewGeneric(n.Name, n.Nature)
	case *AliasType:
		return NewAlias(c.typeName(n.Name), c.typeName(n.Target))
	}
	return t
}

// Variables deep-copies variable declarations.
func (c Cloner) Variables(vars []*Variable) []*Variable {
	out := make([]*Variable, len(vars))
	for i, v := range vars {
		out[i] = &Variable{
			ID:          c.IDs.Next(),
			Name:        v.Name,
			NameSpan:    v.NameSpan,
			Type:        c.TypeDecl(v.Type),
			Initializer: c.Statement(v.Initializer),
			Location:    v.Location,
			Span:        v.Span,
		}
	}
	return out
}

// Blocks deep-copies variable blocks.
func (c Cloner) Blocks(blocks []*VariableBlock) []*VariableBlock {
	out := make([]*VariableBlock, len(blocks))
	for i, b := range blocks {
		cp := *b
		cp.ID = c.IDs.Next()
		cp.Variables = c.Variables(b.Variables)
		out[i] = &cp
	}
	return out
}

// Pou deep-copies a POU declaration.
func (c Cloner) Pou(p *Pou) *Pou {
	cp := *p
	cp.ID = c.IDs.Next()
	cp.Blocks = c.Blocks(p.Blocks)
	cp.ReturnType = c.TypeDecl(p.ReturnType)
	cp.Generics = append([]GenericBinding(nil), p.Generics...)
	cp.Interfaces = append([]InterfaceRef(nil), p.Interfaces...)
	return &cp
}

// Implementation deep-copies a body.
func (c Cloner) Implementation(impl *Implementation) *Implementation {
	cp := *impl
	cp.ID = c.IDs.Next()
	cp.Statements = c.Statements(impl.Statements)
	return &cp
}
