package token

import "strings"

var keywords = map[string]Kind{
	"PROGRAM":            KwProgram,
	"END_PROGRAM":        KwEndProgram,
	"FUNCTION":           KwFunction,
	"END_FUNCTION":       KwEndFunction,
	"FUNCTION_BLOCK":     KwFunctionBlock,
	"END_FUNCTION_BLOCK": KwEndFunctionBlock,
	"CLASS":              KwClass,
	"END_CLASS":          KwEndClass,
	"METHOD":             KwMethod,
	"END_METHOD":         KwEndMethod,
	"ACTION":             KwAction,
	"END_ACTION":         KwEndAction,
	"ACTIONS":            KwActions,
	"END_ACTIONS":        KwEndActions,
	"EXTENDS":            KwExtends,
	"IMPLEMENTS":         KwImplements,
	"INTERFACE":          KwInterface,
	"END_INTERFACE":      KwEndInterface,
	"PROPERTY":           KwProperty,
	"END_PROPERTY":       KwEndProperty,
	"END_GET":            KwEndGet,
	"END_SET":            KwEndSet,
	"OVERRIDE":           KwOverride,
	"ABSTRACT":           KwAbstract,
	"FINAL":              KwFinal,
	"PUBLIC":             KwPublic,
	"PRIVATE":            KwPrivate,
	"PROTECTED":          KwProtected,
	"INTERNAL":           KwInternal,
	"VAR":                KwVar,
	"VAR_INPUT":          KwVarInput,
	"VAR_OUTPUT":         KwVarOutput,
	"VAR_IN_OUT":         KwVarInOut,
	"VAR_TEMP":           KwVarTemp,
	"VAR_GLOBAL":         KwVarGlobal,
	"VAR_EXTERNAL":       KwVarExternal,
	"END_VAR":            KwEndVar,
	"CONSTANT":           KwConstant,
	"RETAIN":             KwRetain,
	"NON_RETAIN":         KwNonRetain,
	"AT":                 KwAt,
	"TYPE":               KwType,
	"END_TYPE":           KwEndType,
	"STRUCT":             KwStruct,
	"END_STRUCT":         KwEndStruct,
	"ARRAY":              KwArray,
	"OF":                 KwOf,
	"REF_TO":             KwRefTo,
	"POINTER":            KwPointer,
	"TO":                 KwTo,
	"STRING":             KwString,
	"WSTRING":            KwWString,
	"IF":                 KwIf,
	"THEN":               KwThen,
	"ELSIF":              KwElsif,
	"ELSE":               KwElse,
	"END_IF":             KwEndIf,
	"CASE":               KwCase,
	"END_CASE":           KwEndCase,
	"FOR":                KwFor,
	"BY":                 KwBy,
	"DO":                 KwDo,
	"END_FOR":            KwEndFor,
	"WHILE":              KwWhile,
	"END_WHILE":          KwEndWhile,
	"REPEAT":             KwRepeat,
	"UNTIL":              KwUntil,
	"END_REPEAT":         KwEndRepeat,
	"EXIT":               KwExit,
	"CONTINUE":           KwContinue,
	"RETURN":             KwReturn,
	"AND":                KwAnd,
	"OR":                 KwOr,
	"XOR":                KwXor,
	"NOT":                KwNot,
	"MOD":                KwMod,
	"TRUE":               KwTrue,
	"FALSE":              KwFalse,
	"THIS":               KwThis,
	"SUPER":              KwSuper,
}

var keywordSpelling = func() map[Kind]string {
	out := make(map[Kind]string, len(keywords))
	for s, k := range keywords {
		out[k] = s
	}
	return out
}()

// LookupKeyword classifies ident case-insensitively.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[strings.ToUpper(ident)]
	return k, ok
}
