package preproc

import (
	"plcc/internal/ast"
	"plcc/internal/source"
	"plcc/internal/types"
)

// defaultInit gives v the default value of its type when it has none.
// Types whose default is all-zero bytes and that have no literal spelling
// (structs, arrays, pointers, FB instances) are left to the IR emitter.
func (p *processor) defaultInit(v *ast.Variable) {
	if v.Initializer != nil || v.Location != "" {
		return
	}
	v.Initializer = p.defaultFor(ast.TypeNameOf(v.Type), 0)
}

func (p *processor) defaultFor(typeName string, depth int) ast.Statement {
	if typeName == "" || depth > 16 {
		return nil
	}
	if types.IsElementaryName(typeName) {
		return p.elementaryDefault(typeName)
	}
	ut, ok := p.declared[types.Key(typeName)]
	if !ok {
		return nil
	}
	if ut.Initializer != nil {
		return nil // the type carries its own initial value
	}
	switch t := ut.Type.(type) {
	case *ast.EnumType:
		if len(t.Elements) == 0 {
			return nil
		}
		first := t.Elements[0]
		return &ast.CastExpr{
			Meta:     ast.Meta{ID: p.b.IDs.Next(), Span: source.Undefined()},
			TypeName: t.TypeName(),
			Target:   p.b.Ref(first.Name, source.Undefined()),
		}
	case *ast.AliasType:
		return p.defaultFor(t.Target, depth+1)
	case *ast.SubRangeType:
		// the lower bound is the smallest valid value
		if t.Range != nil {
			if lit, ok := t.Range.Start.(*ast.Literal); ok {
				return p.literal(lit.Kind, lit.Int, lit.Real, lit.Raw)
			}
		}
		return p.defaultFor(t.Base, depth+1)
	case *ast.StringType:
		return p.literal(stringKind(t.Wide), 0, 0, quote(t.Wide))
	}
	return nil
}

func stringKind(wide bool) ast.LiteralKind {
	if wide {
		return ast.LitWString
	}
	return ast.LitString
}

func quote(wide bool) string {
	if wide {
		return `""`
	}
	return "''"
}

func (p *processor) elementaryDefault(name string) ast.Statement {
	switch types.Key(name) {
	case "bool":
		return p.literal(ast.LitBool, 0, 0, "FALSE")
	case "real", "lreal":
		return p.literal(ast.LitReal, 0, 0, "0.0")
	case "time", "ltime":
		return p.literal(ast.LitTime, 0, 0, "T#0s")
	case "date", "ldate":
		return p.literal(ast.LitDate, 0, 0, "D#1970-01-01")
	case "time_of_day", "tod", "ltod", "ltime_of_day":
		return p.literal(ast.LitTimeOfDay, 0, 0, "TOD#00:00:00")
	case "date_and_time", "dt", "ldt", "ldate_and_time":
		return p.literal(ast.LitDateTime, 0, 0, "DT#1970-01-01-00:00:00")
	case "string":
		return p.literal(ast.LitString, 0, 0, "''")
	case "wstring":
		return p.literal(ast.LitWString, 0, 0, `""`)
	case "char", "wchar":
		return nil
	}
	return p.literal(ast.LitInteger, 0, 0, "0")
}

func (p *processor) literal(kind ast.LiteralKind, i int64, r float64, raw string) *ast.Literal {
	return &ast.Literal{
		Meta: ast.Meta{ID: p.b.IDs.Next(), Span: source.Undefined()},
		Kind: kind,
		Int:  i,
		Real: r,
		Raw:  raw,
	}
}
