package types

// Names of the elementary types, in their canonical spelling.
const (
	BOOL          = "BOOL"
	BYTE          = "BYTE"
	WORD          = "WORD"
	DWORD         = "DWORD"
	LWORD         = "LWORD"
	SINT          = "SINT"
	USINT         = "USINT"
	INT           = "INT"
	UINT          = "UINT"
	DINT          = "DINT"
	UDINT         = "UDINT"
	LINT          = "LINT"
	ULINT         = "ULINT"
	REAL          = "REAL"
	LREAL         = "LREAL"
	TIME          = "TIME"
	LTIME         = "LTIME"
	DATE          = "DATE"
	TIME_OF_DAY   = "TIME_OF_DAY"
	DATE_AND_TIME = "DATE_AND_TIME"
	STRING        = "STRING"
	WSTRING       = "WSTRING"
	CHAR          = "CHAR"
	WCHAR         = "WCHAR"
	VOID          = "VOID"
)

// DefaultStringLength is the capacity of an unsized STRING, without the
// terminator.
const DefaultStringLength = 80

func intType(name string, bits uint32, signed bool, class Class) *Info {
	return &Info{Kind: KindInteger, Name: name, Bits: bits, Signed: signed, Class: class}
}

// Builtins returns fresh descriptors for every elementary type followed by
// the short-name aliases (TOD, DT, ...).
func Builtins() []*Info {
	return []*Info{
		{Kind: KindBool, Name: BOOL, Bits: 1, Class: ClassBool},
		intType(BYTE, 8, false, ClassBit),
		intType(WORD, 16, false, ClassBit),
		intType(DWORD, 32, false, ClassBit),
		intType(LWORD, 64, false, ClassBit),
		intType(SINT, 8, true, ClassInt),
		intType(USINT, 8, false, ClassInt),
		intType(INT, 16, true, ClassInt),
		intType(UINT, 16, false, ClassInt),
		intType(DINT, 32, true, ClassInt),
		intType(UDINT, 32, false, ClassInt),
		intType(LINT, 64, true, ClassInt),
		intType(ULINT, 64, false, ClassInt),
		{Kind: KindFloat, Name: REAL, Bits: 32, Signed: true, Class: ClassReal},
		{Kind: KindFloat, Name: LREAL, Bits: 64, Signed: true, Class: ClassReal},
		intType(TIME, 64, true, ClassDuration),
		intType(LTIME, 64, true, ClassDuration),
		intType(DATE, 64, true, ClassDate),
		intType(TIME_OF_DAY, 64, true, ClassDate),
		intType(DATE_AND_TIME, 64, true, ClassDate),
		intType(CHAR, 8, false, ClassChar),
		intType(WCHAR, 16, false, ClassChar),
		{Kind: KindString, Name: STRING, Encoding: UTF8, Size: DefaultStringLength + 1, Class: ClassString},
		{Kind: KindString, Name: WSTRING, Encoding: UTF16, Size: DefaultStringLength + 1, Class: ClassString},
		{Kind: KindVoid, Name: VOID},
		{Kind: KindAlias, Name: "LDATE", Inner: DATE},
		{Kind: KindAlias, Name: "TOD", Inner: TIME_OF_DAY},
		{Kind: KindAlias, Name: "LTOD", Inner: TIME_OF_DAY},
		{Kind: KindAlias, Name: "LTIME_OF_DAY", Inner: TIME_OF_DAY},
		{Kind: KindAlias, Name: "DT", Inner: DATE_AND_TIME},
		{Kind: KindAlias, Name: "LDT", Inner: DATE_AND_TIME},
		{Kind: KindAlias, Name: "LDATE_AND_TIME", Inner: DATE_AND_TIME},
	}
}

var elementaryKeys = func() map[string]bool {
	out := map[string]bool{}
	for _, t := range Builtins() {
		if t.Kind != KindVoid {
			out[Key(t.Name)] = true
		}
	}
	return out
}()

// IsElementaryName reports whether name spells an elementary type.
func IsElementaryName(name string) bool {
	return elementaryKeys[Key(name)]
}

// StringOf builds a sized string descriptor; length excludes the terminator.
func StringOf(name string, enc Encoding, length int64) *Info {
	return &Info{Kind: KindString, Name: name, Encoding: enc, Size: length + 1, Class: ClassString}
}

// PointerTo builds a pointer descriptor.
func PointerTo(name, inner string, autoDeref bool) *Info {
	return &Info{Kind: KindPointer, Name: name, Inner: inner, AutoDeref: autoDeref, Class: ClassPointer, Bits: 64}
}

// PointerName is the synthetic name of an anonymous pointer type.
func PointerName(inner string) string {
	return "__POINTER_TO_" + inner
}

// VtablePrefix starts the name of every vtable struct.
const VtablePrefix = "__vtable_"

// ItablePrefix starts the name of every interface table struct.
const ItablePrefix = "__itable_"

// ReferenceName names the auto-deref pointer used for VAR_IN_OUT.
func ReferenceName(inner string) string {
	return "__AUTO_DEREF__" + inner
}
