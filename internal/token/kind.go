package token

// Kind represents the category of a source token.
type Kind uint8

const (
	// Invalid indicates an erroneous token.
	Invalid Kind = iota
	// EOF marks the end of the source input.
	EOF

	Ident
	IntLit      // 42, 1_000
	BasedIntLit // 16#FF, 2#1010
	RealLit     // 1.5, 2.0E3
	StringLit   // 'abc'
	WStringLit  // "abc"
	TimeLit     // T#1s, TIME#1h2m
	DateLit     // D#2024-01-01
	TodLit      // TOD#12:00:00
	DateTimeLit // DT#2024-01-01-12:00:00
	Pragma      // {external}
	DirectAccess
	HardwareAddress

	// operators and punctuation
	Assign    // :=
	Arrow     // =>
	Eq        // =
	NotEq     // <>
	Lt        // <
	LtEq      // <=
	Gt        // >
	GtEq      // >=
	Plus      // +
	Minus     // -
	Star      // *
	Power     // **
	Slash     // /
	Caret     // ^
	Amp       // &
	LParen    // (
	RParen    // )
	LBracket  // [
	RBracket  // ]
	Comma     // ,
	Semicolon // ;
	Colon     // :
	Dot       // .
	DotDot    // ..
	Hash      // #

	keywordsBegin
	KwProgram
	KwEndProgram
	KwFunction
	KwEndFunction
	KwFunctionBlock
	KwEndFunctionBlock
	KwClass
	KwEndClass
	KwMethod
	KwEndMethod
	KwAction
	KwEndAction
	KwActions
	KwEndActions
	KwExtends
	KwImplements
	KwInterface
	KwEndInterface
	KwProperty
	KwEndProperty
	KwEndGet
	KwEndSet
	KwOverride
	KwAbstract
	KwFinal
	KwPublic
	KwPrivate
	KwProtected
	KwInternal
	KwVar
	KwVarInput
	KwVarOutput
	KwVarInOut
	KwVarTemp
	KwVarGlobal
	KwVarExternal
	KwEndVar
	KwConstant
	KwRetain
	KwNonRetain
	KwAt
	KwType
	KwEndType
	KwStruct
	KwEndStruct
	KwArray
	KwOf
	KwRefTo
	KwPointer
	KwTo
	KwString
	KwWString
	KwIf
	KwThen
	KwElsif
	KwElse
	KwEndIf
	KwCase
	KwEndCase
	KwFor
	KwBy
	KwDo
	KwEndFor
	KwWhile
	KwEndWhile
	KwRepeat
	KwUntil
	KwEndRepeat
	KwExit
	KwContinue
	KwReturn
	KwAnd
	KwOr
	KwXor
	KwNot
	KwMod
	KwTrue
	KwFalse
	KwThis
	KwSuper
	keywordsEnd
)

var kindNames = [...]string{
	Invalid:         "invalid",
	EOF:             "end of file",
	Ident:           "identifier",
	IntLit:          "integer literal",
	BasedIntLit:     "integer literal",
	RealLit:         "real literal",
	StringLit:       "string literal",
	WStringLit:      "wide string literal",
	TimeLit:         "time literal",
	DateLit:         "date literal",
	TodLit:          "time-of-day literal",
	DateTimeLit:     "date-and-time literal",
	Pragma:          "pragma",
	DirectAccess:    "direct access",
	HardwareAddress: "hardware address",
	Assign:          "':='",
	Arrow:           "'=>'",
	Eq:              "'='",
	NotEq:           "'<>'",
	Lt:              "'<'",
	LtEq:            "'<='",
	Gt:              "'>'",
	GtEq:            "'>='",
	Plus:            "'+'",
	Minus:           "'-'",
	Star:            "'*'",
	Power:           "'**'",
	Slash:           "'/'",
	Caret:           "'^'",
	Amp:             "'&'",
	LParen:          "'('",
	RParen:          "')'",
	LBracket:        "'['",
	RBracket:        "']'",
	Comma:           "','",
	Semicolon:       "';'",
	Colon:           "':'",
	Dot:             "'.'",
	DotDot:          "'..'",
	Hash:            "'#'",
}

func (k Kind) String() string {
	if k.IsKeyword() {
		return keywordSpelling[k]
	}
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// IsKeyword reports whether k is a reserved word.
func (k Kind) IsKeyword() bool {
	return k > keywordsBegin && k < keywordsEnd
}

// IsLiteral reports whether k starts a literal value.
func (k Kind) IsLiteral() bool {
	switch k {
	case IntLit, BasedIntLit, RealLit, StringLit, WStringLit, TimeLit, DateLit, TodLit, DateTimeLit, KwTrue, KwFalse:
		return true
	}
	return false
}
