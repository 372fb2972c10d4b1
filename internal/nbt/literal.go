package nbt

import (
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

// A typed literal is a string such as "3b", "-12s", "9000l", "1.5f" or
// "20.0d": a suffix letter selecting a narrow numeric tag, preceded by
// nothing but digits, '.' and '-'. The prefix may be empty.

var errLongSyntax = errors.New("not an integer")

// literalKind maps a suffix letter to its tag kind.
func literalKind(suffix byte) (Kind, bool) {
	switch suffix {
	case 'b':
		return TagByte, true
	case 's':
		return TagShort, true
	case 'l':
		return TagLong, true
	case 'f':
		return TagFloat, true
	case 'd':
		return TagDouble, true
	}
	return TagEnd, false
}

// splitLiteral reports whether s is a typed literal and splits it into the
// numeric prefix and suffix letter.
func splitLiteral(s string) (prefix string, suffix byte, ok bool) {
	if s == "" {
		return "", 0, false
	}
	suffix = s[len(s)-1]
	if _, ok := literalKind(suffix); !ok {
		return "", 0, false
	}
	prefix = s[:len(s)-1]
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		if !isDigit(c) && c != '.' && c != '-' {
			return "", 0, false
		}
	}
	return prefix, suffix, true
}

// dropLast removes the final character of s.
func dropLast(s string) string {
	_, n := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-n]
}

// writeLiteral parses prefix according to suffix and writes the tag.
// Unparsable byte/short prefixes become 0 and float/double prefixes NaN;
// only a bad long prefix is an error.
func (e *encoder) writeLiteral(suffix byte, prefix string, name Name) error {
	switch suffix {
	case 'b':
		e.w.Byte(toInt8(parseIntPrefix(prefix)), name)
	case 's':
		e.w.Short(toInt16(parseIntPrefix(prefix)), name)
	case 'l':
		n, err := parseBigInt(prefix)
		if err != nil {
			return &LiteralError{Text: prefix + "l", Err: err}
		}
		e.w.Long(n, name)
	case 'f':
		e.w.Float(float32(parseFloatPrefix(prefix)), name)
	case 'd':
		e.w.Double(parseFloatPrefix(prefix), name)
	}
	return nil
}

// parseIntPrefix reads the leading integer of s: optional sign, then digits
// (or hex digits after "0x"). Trailing garbage is ignored; no digits is NaN.
func parseIntPrefix(s string) float64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	base := 10
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		s = s[2:]
	}
	end := 0
	for end < len(s) && digitValue(s[end]) < base {
		end++
	}
	if end == 0 {
		return nan64
	}
	var f float64
	if base == 10 {
		f, _ = strconv.ParseFloat(s[:end], 64)
	} else {
		n, _ := new(big.Int).SetString(s[:end], base)
		f, _ = new(big.Float).SetInt(n).Float64()
	}
	if neg {
		f = -f
	}
	return f
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return 36
}

// parseFloatPrefix reads the longest decimal prefix of s. No digits is NaN.
func parseFloatPrefix(s string) float64 {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	rest := strings.TrimLeft(s, "+-")
	if len(s)-len(rest) <= 1 && strings.HasPrefix(rest, "Infinity") {
		if strings.HasPrefix(s, "-") {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	end := decimalPrefix(s)
	if end == 0 {
		return nan64
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nan64
	}
	return f
}

// parseBigInt parses an exact integer and keeps its low 64 bits. The empty
// string is 0. A sign is allowed only on decimal input.
func parseBigInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	base := 10
	digits := s
	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 10 {
			digits = s[2:]
		}
	}
	if base == 10 {
		unsigned := strings.TrimPrefix(strings.TrimPrefix(digits, "-"), "+")
		if len(digits)-len(unsigned) > 1 || unsigned == "" {
			return 0, errLongSyntax
		}
		for i := 0; i < len(unsigned); i++ {
			if !isDigit(unsigned[i]) {
				return 0, errLongSyntax
			}
		}
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok || (base != 10 && n.Sign() < 0) {
		return 0, errLongSyntax
	}
	return wrapBig(n), nil
}
