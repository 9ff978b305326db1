package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"plcc/internal/ast"
	"plcc/internal/diag"
	"plcc/internal/token"
)

// literal decodes a literal token; malformed text is reported as
// invalid_literal and yields a zero value.
func (p *Parser) literal(tok token.Token) *ast.Literal {
	lit := &ast.Literal{Raw: tok.Text}
	var err error
	switch tok.Kind {
	case token.IntLit:
		lit.Kind = ast.LitInteger
		lit.Int, err = parseInteger(tok.Text, 10)
	case token.BasedIntLit:
		lit.Kind = ast.LitInteger
		base, digits, _ := strings.Cut(tok.Text, "#")
		var b int
		if b, err = strconv.Atoi(base); err == nil {
			if b != 2 && b != 8 && b != 16 {
				err = fmt.Errorf("unsupported base %d", b)
			} else {
				lit.Int, err = parseInteger(digits, b)
			}
		}
	case token.RealLit:
		lit.Kind = ast.LitReal
		lit.Real, err = strconv.ParseFloat(strings.ReplaceAll(tok.Text, "_", ""), 64)
	case token.StringLit:
		lit.Kind = ast.LitString
		lit.Str, err = Unescape(tok.Text[1:len(tok.Text)-1], false)
	case token.WStringLit:
		lit.Kind = ast.LitWString
		lit.Str, err = Unescape(tok.Text[1:len(tok.Text)-1], true)
	case token.KwTrue, token.KwFalse:
		lit.Kind = ast.LitBool
		if tok.Kind == token.KwTrue {
			lit.Int = 1
		}
	case token.TimeLit:
		lit.Kind = ast.LitTime
		lit.Int, err = ParseDuration(afterHash(tok.Text))
	case token.DateLit:
		lit.Kind = ast.LitDate
		lit.Int, err = parseStamp("2006-1-2", afterHash(tok.Text))
	case token.TodLit:
		lit.Kind = ast.LitTimeOfDay
		lit.Int, err = parseTimeOfDay(afterHash(tok.Text))
	case token.DateTimeLit:
		lit.Kind = ast.LitDateTime
		lit.Int, err = parseDateTime(afterHash(tok.Text))
	}
	if err != nil {
		p.errAt(diag.InvalidLiteral, tok.Span, fmt.Sprintf("invalid literal %s: %v", tok.Text, err))
	}
	lit.Meta = p.meta(tok.Span)
	return lit
}

func afterHash(s string) string {
	_, rest, _ := strings.Cut(s, "#")
	return rest
}

// parseInteger accepts the full 64-bit unsigned range; values above
// MaxInt64 keep their bit pattern for ULINT/LWORD.
func parseInteger(digits string, base int) (int64, error) {
	u, err := strconv.ParseUint(strings.ReplaceAll(digits, "_", ""), base, 64)
	if err != nil {
		return 0, err
	}
	return int64(u), nil
}

// Unescape decodes `$` escapes. Strings take `$hh`, wide strings `$hhhh`.
func Unescape(s string, wide bool) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '$' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", fmt.Errorf("dangling '$'")
		}
		switch e := s[i]; e {
		case '$', '\'', '"':
			sb.WriteByte(e)
		case 'L', 'l', 'N', 'n':
			sb.WriteByte('\n')
		case 'P', 'p':
			sb.WriteByte('\f')
		case 'R', 'r':
			sb.WriteByte('\r')
		case 'T', 't':
			sb.WriteByte('\t')
		default:
			width := 2
			if wide {
				width = 4
			}
			if i+width > len(s) {
				return "", fmt.Errorf("bad escape $%c", e)
			}
			v, err := strconv.ParseUint(s[i:i+width], 16, 32)
			if err != nil {
				return "", fmt.Errorf("bad escape $%s", s[i:i+width])
			}
			sb.WriteRune(rune(v))
			i += width - 1
		}
	}
	return sb.String(), nil
}

var durationUnits = []struct {
	suffix string
	ns     float64
}{
	{"ms", 1e6}, {"us", 1e3}, {"ns", 1}, {"d", 86400e9}, {"h", 3600e9}, {"m", 60e9}, {"s", 1e9},
}

// ParseDuration converts `1h2m3.5s` style text to nanoseconds.
func ParseDuration(text string) (int64, error) {
	s := strings.ToLower(strings.ReplaceAll(text, "_", ""))
	sign := 1.0
	if strings.HasPrefix(s, "-") {
		sign, s = -1, s[1:]
	} else {
		s = strings.TrimPrefix(s, "+")
	}
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	total := 0.0
	for s != "" {
		n := strings.IndexFunc(s, func(r rune) bool { return (r < '0' || r > '9') && r != '.' })
		if n <= 0 {
			return 0, fmt.Errorf("expected a number in %q", text)
		}
		v, err := strconv.ParseFloat(s[:n], 64)
		if err != nil {
			return 0, err
		}
		s = s[n:]
		matched := false
		for _, u := range durationUnits {
			if strings.HasPrefix(s, u.suffix) {
				total += v * u.ns
				s = s[len(u.suffix):]
				matched = true
				break
			}
		}
		if !matched {
			return 0, fmt.Errorf("missing unit in %q", text)
		}
	}
	return int64(math.Round(sign * total)), nil
}

func parseStamp(layout, text string) (int64, error) {
	t, err := time.ParseInLocation(layout, text, time.UTC)
	if err != nil {
		return 0, err
	}
	return t.UnixNano(), nil
}

func parseTimeOfDay(text string) (int64, error) {
	parts := strings.Split(text, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("expected hh:mm[:ss]")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h > 23 {
		return 0, fmt.Errorf("bad hour %q", parts[0])
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m > 59 {
		return 0, fmt.Errorf("bad minute %q", parts[1])
	}
	sec := 0.0
	if len(parts) == 3 {
		if sec, err = strconv.ParseFloat(parts[2], 64); err != nil || sec >= 60 {
			return 0, fmt.Errorf("bad second %q", parts[2])
		}
	}
	return int64(h)*3600e9 + int64(m)*60e9 + int64(math.Round(sec*1e9)), nil
}

// parseDateTime: 2024-01-31-12:30:00
func parseDateTime(text string) (int64, error) {
	idx := -1
	for n, i := 0, 0; i < len(text); i++ {
		if text[i] == '-' {
			n++
			if n == 3 {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return 0, fmt.Errorf("expected date-time")
	}
	day, err := parseStamp("2006-1-2", text[:idx])
	if err != nil {
		return 0, err
	}
	tod, err := parseTimeOfDay(text[idx+1:])
	if err != nil {
		return 0, err
	}
	return day + tod, nil
}
