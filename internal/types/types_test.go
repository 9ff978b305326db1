package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plcc/internal/ast"
)

func builtinLookup() (map[string]*Info, Lookup) {
	m := map[string]*Info{}
	for _, t := range Builtins() {
		m[Key(t.Name)] = t
	}
	var find Lookup
	find = func(name string) *Info {
		t := m[Key(name)]
		for t != nil && t.Kind == KindAlias {
			t = m[Key(t.Inner)]
		}
		return t
	}
	return m, find
}

func TestPromoteWidestTiesToUnsigned(t *testing.T) {
	_, find := builtinLookup()
	cases := []struct{ a, b, want string }{
		{INT, DINT, DINT},
		{SINT, USINT, USINT},
		{DINT, UDINT, UDINT},
		{BYTE, WORD, WORD},
		{REAL, LREAL, LREAL},
	}
	for _, tc := range cases {
		got, ok := Promote(find(tc.a), find(tc.b))
		require.True(t, ok, "%s + %s", tc.a, tc.b)
		assert.Equal(t, tc.want, got.Name, "%s + %s", tc.a, tc.b)
	}
	_, ok := Promote(find(BYTE), find(INT))
	assert.False(t, ok, "BIT and NUM do not mix implicitly")
	_, ok = Promote(find(BOOL), find(INT))
	assert.False(t, ok)
	_, ok = Promote(find(INT), find(REAL))
	assert.False(t, ok, "INT and REAL do not mix implicitly")
}

func TestClassifyConversions(t *testing.T) {
	_, find := builtinLookup()
	cases := []struct {
		from, to string
		want     Conversion
	}{
		{INT, INT, ConvIdentical},
		{INT, DINT, ConvWidening},
		{UINT, DINT, ConvWidening},
		{INT, UDINT, ConvNarrowing},
		{DINT, INT, ConvNarrowing},
		{REAL, LREAL, ConvWidening},
		{LREAL, REAL, ConvNarrowing},
		{INT, REAL, ConvIncompatible},
		{DINT, LREAL, ConvIncompatible},
		{REAL, INT, ConvIncompatible},
		{BOOL, INT, ConvIncompatible},
		{BYTE, INT, ConvIncompatible},
		{"TOD", TIME_OF_DAY, ConvIdentical},
		{STRING, WSTRING, ConvIncompatible},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(find(tc.from), find(tc.to), find), "%s -> %s", tc.from, tc.to)
	}
	short := StringOf("__STRING_10", UTF8, 10)
	assert.Equal(t, ConvNarrowing, Classify(find(STRING), short, find))
	assert.Equal(t, ConvWidening, Classify(short, find(STRING), find))
}

func TestDerivedStructsWidenToTheirBase(t *testing.T) {
	m, find := builtinLookup()
	for _, info := range []*Info{
		{Kind: KindStruct, Name: "A", Origin: OriginPou},
		{Kind: KindStruct, Name: "B", Origin: OriginPou, Super: "A"},
		// B after lowering: EXTENDS became the first member
		{Kind: KindStruct, Name: "C", Origin: OriginPou, Fields: []Field{{Name: BaseField, Type: "B"}, {Name: "y", Type: INT}}},
		{Kind: KindStruct, Name: "D", Origin: OriginPou, Fields: []Field{{Name: "y", Type: "A"}}},
		{Kind: KindPointer, Name: "__REF_TO_C", Inner: "C"},
		{Kind: KindPointer, Name: "__REF_TO_A", Inner: "A"},
	} {
		m[Key(info.Name)] = info
	}

	assert.Equal(t, "B", find("C").Base())
	assert.Equal(t, "", find("D").Base())
	assert.True(t, Extends(find("C"), find("A"), find))
	assert.False(t, Extends(find("D"), find("A"), find))
	assert.Equal(t, ConvWidening, Classify(find("C"), find("A"), find))
	assert.Equal(t, ConvIncompatible, Classify(find("A"), find("C"), find))
	assert.Equal(t, ConvWidening, Classify(find("__REF_TO_C"), find("__REF_TO_A"), find))
	assert.Equal(t, ConvIncompatible, Classify(find("__REF_TO_A"), find("__REF_TO_C"), find))
}

func TestBinaryOperand(t *testing.T) {
	_, find := builtinLookup()
	op, isBool, ok := BinaryOperand(ast.OpLess, find(INT), find(DINT))
	require.True(t, ok)
	assert.True(t, isBool)
	assert.Equal(t, DINT, op.Name)

	_, _, ok = BinaryOperand(ast.OpModulo, find(REAL), find(REAL))
	assert.False(t, ok)
	_, _, ok = BinaryOperand(ast.OpPlus, find(BOOL), find(BOOL))
	assert.False(t, ok)
	op, _, ok = BinaryOperand(ast.OpAnd, find(BOOL), find(BOOL))
	require.True(t, ok)
	assert.Equal(t, BOOL, op.Name)
	_, _, ok = BinaryOperand(ast.OpPlus, find(INT), find(REAL))
	assert.False(t, ok)
	_, _, ok = BinaryOperand(ast.OpLess, find(LREAL), find(DINT))
	assert.False(t, ok)
}

func TestNatures(t *testing.T) {
	_, find := builtinLookup()
	assert.True(t, Satisfies(find(DINT), NatureNum))
	assert.True(t, Satisfies(find(DINT), NatureAny))
	assert.False(t, Satisfies(find(DINT), NatureReal))
	assert.True(t, Satisfies(find(LREAL), NatureReal))
	assert.True(t, Satisfies(find(WORD), NatureBit))
	assert.True(t, Satisfies(find(STRING), NatureChars))
	assert.True(t, Satisfies(&Info{Kind: KindStruct, Name: "s"}, NatureDerived))
	n, ok := ParseNature("any_num")
	require.True(t, ok)
	assert.Equal(t, NatureNum, n)
	_, ok = ParseNature("ANY_BANANA")
	assert.False(t, ok)
}

func TestMangleAndConversions(t *testing.T) {
	assert.Equal(t, "ROUND__REAL", Mangle("ROUND", REAL))
	assert.Equal(t, "foo", Mangle("foo"))
	from, to, ok := ParseConversion("int_to_real")
	require.True(t, ok)
	assert.Equal(t, [2]string{INT, REAL}, [2]string{from, to})
	from, to, ok = ParseConversion("TIME_OF_DAY_TO_DATE_AND_TIME")
	require.True(t, ok)
	assert.Equal(t, [2]string{TIME_OF_DAY, DATE_AND_TIME}, [2]string{from, to})
	_, _, ok = ParseConversion("FOO_TO_BAR")
	assert.False(t, ok)
}

func TestLayout(t *testing.T) {
	m, find := builtinLookup()
	m["point"] = &Info{Kind: KindStruct, Name: "point", Fields: []Field{{Name: "flag", Type: BOOL}, {Name: "x", Type: DINT}, {Name: "y", Type: SINT}}}
	m["arr"] = &Info{Kind: KindArray, Name: "arr", Inner: INT, Dims: []Dim{{0, 1, true}, {2, 3, true}}}
	l := Layout{Find: find}
	assert.Equal(t, int64(12), l.SizeOf(find("point")))
	assert.Equal(t, int64(4), l.AlignOf(find("point")))
	assert.Equal(t, int64(8), l.SizeOf(find("arr")))
	assert.Equal(t, int64(81), l.SizeOf(find(STRING)))
	assert.Equal(t, int64(162), l.SizeOf(find(WSTRING)))
}

func TestKeyFolding(t *testing.T) {
	assert.Equal(t, "counter", Key("Counter"))
	assert.True(t, SameName("gX", "GX"))
	assert.False(t, SameName("gX", "gY"))
}
