package types

import "strings"

// Nature is an IEC generic constraint group.
type Nature uint8

const (
	NatureUnknown Nature = iota
	NatureAny
	NatureDerived
	NatureElementary
	NatureMagnitude
	NatureNum
	NatureReal
	NatureInt
	NatureSigned
	NatureUnsigned
	NatureDuration
	NatureBit
	NatureChars
	NatureString
	NatureChar
	NatureDate
)

var natureNames = [...]string{
	NatureUnknown:    "?",
	NatureAny:        "ANY",
	NatureDerived:    "ANY_DERIVED",
	NatureElementary: "ANY_ELEMENTARY",
	NatureMagnitude:  "ANY_MAGNITUDE",
	NatureNum:        "ANY_NUM",
	NatureReal:       "ANY_REAL",
	NatureInt:        "ANY_INT",
	NatureSigned:     "ANY_SIGNED",
	NatureUnsigned:   "ANY_UNSIGNED",
	NatureDuration:   "ANY_DURATION",
	NatureBit:        "ANY_BIT",
	NatureChars:      "ANY_CHARS",
	NatureString:     "ANY_STRING",
	NatureChar:       "ANY_CHAR",
	NatureDate:       "ANY_DATE",
}

var natureParent = [...]Nature{
	NatureAny:        NatureUnknown,
	NatureDerived:    NatureAny,
	NatureElementary: NatureAny,
	NatureMagnitude:  NatureElementary,
	NatureNum:        NatureMagnitude,
	NatureReal:       NatureNum,
	NatureInt:        NatureNum,
	NatureSigned:     NatureInt,
	NatureUnsigned:   NatureInt,
	NatureDuration:   NatureMagnitude,
	NatureBit:        NatureElementary,
	NatureChars:      NatureElementary,
	NatureString:     NatureChars,
	NatureChar:       NatureChars,
	NatureDate:       NatureElementary,
}

func (n Nature) String() string {
	if int(n) < len(natureNames) {
		return natureNames[n]
	}
	return "?"
}

// ParseNature accepts the IEC spelling, case-insensitively.
func ParseNature(s string) (Nature, bool) {
	up := strings.ToUpper(s)
	for i, name := range natureNames {
		if name == up && i != int(NatureUnknown) {
			return Nature(i), true
		}
	}
	return NatureUnknown, false
}

// Within reports whether n equals ancestor or lies beneath it.
func (n Nature) Within(ancestor Nature) bool {
	for cur := n; cur != NatureUnknown; cur = natureParent[cur] {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// NatureOf is the most specific nature of a resolved (non-alias) type.
func NatureOf(t *Info) Nature {
	if t == nil {
		return NatureUnknown
	}
	switch t.Kind {
	case KindBool:
		return NatureBit
	case KindFloat:
		return NatureReal
	case KindInteger, KindSubRange:
		switch t.Class {
		case ClassBit:
			return NatureBit
		case ClassDuration:
			return NatureDuration
		case ClassDate:
			return NatureDate
		case ClassChar:
			return NatureChar
		}
		if t.Signed {
			return NatureSigned
		}
		return NatureUnsigned
	case KindString:
		return NatureString
	case KindGeneric:
		return t.Nature
	case KindVoid, KindPlaceholder:
		return NatureUnknown
	}
	return NatureDerived
}

// Satisfies reports whether t may bind a generic of nature n.
func Satisfies(t *Info, n Nature) bool {
	return NatureOf(t).Within(n)
}
