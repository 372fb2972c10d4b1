package nbt

import (
	"encoding/json"
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// List elements after the first are pushed through the first element's
// writer no matter what they are. The coercions below reproduce what the
// reference encoder's typed-array stores do with a mismatched value:
// ToNumber followed by a modular integer wrap, truthiness for booleans,
// and string conversion for text.

var errBigIntToNumber = errors.New("64-bit integer cannot be converted to a plain number")

// nan64 is the canonical quiet NaN.
var nan64 = math.Float64frombits(0x7FF8000000000000)

func isIntegral(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f == math.Trunc(f)
}

// wrapInt reduces f modulo 2^bits into the signed range; NaN and infinities
// become 0.
func wrapInt(f float64, bits uint) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	mod := math.Ldexp(1, int(bits))
	r := math.Mod(math.Trunc(f), mod)
	if r < 0 {
		r += mod
	}
	if r >= mod/2 {
		r -= mod
	}
	return int64(r)
}

func toInt8(f float64) int8   { return int8(wrapInt(f, 8)) }
func toInt16(f float64) int16 { return int16(wrapInt(f, 16)) }
func toInt32(f float64) int32 { return int32(wrapInt(f, 32)) }

var mask64 = new(big.Int).SetUint64(math.MaxUint64)

// wrapBig keeps the low 64 bits of x in two's complement.
func wrapBig(x *big.Int) int64 {
	return int64(new(big.Int).And(x, mask64).Uint64())
}

// numberOf returns the float value of an ordinary number.
func numberOf(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case uintptr:
		return float64(x)
	case json.Number:
		return stringToNumber(string(x))
	}
	rv := reflectValue(v)
	switch {
	case rv.CanInt():
		return float64(rv.Int())
	case rv.CanUint():
		return float64(rv.Uint())
	case rv.CanFloat():
		return rv.Float()
	}
	return nan64
}

// toNumber converts any value the way a numeric typed-array store does.
// 64-bit integers are rejected.
func toNumber(v any) (float64, error) {
	switch classify(v) {
	case classLong:
		return 0, errBigIntToNumber
	case classNull:
		return 0, nil
	case classBool:
		if truthy(v) {
			return 1, nil
		}
		return 0, nil
	case classNumber:
		return numberOf(v), nil
	case classText:
		return stringToNumber(textOf(v)), nil
	case classSequence, classByteArray, classIntArray, classLongArray:
		return stringToNumber(jsString(v)), nil
	}
	return nan64, nil
}

// toLong converts a value for a LONG list. Only integers, booleans and
// integer strings are accepted.
func toLong(v any) (int64, error) {
	switch classify(v) {
	case classLong:
		return longOf(v), nil
	case classBool:
		if truthy(v) {
			return 1, nil
		}
		return 0, nil
	case classText:
		return parseBigInt(textOf(v))
	}
	return 0, errors.New("not convertible to a 64-bit integer")
}

func truthy(v any) bool {
	switch classify(v) {
	case classNull:
		return false
	case classBool:
		return reflectValue(v).Bool()
	case classNumber:
		f := numberOf(v)
		return f != 0 && !math.IsNaN(f)
	case classLong:
		return longOf(v) != 0
	case classText:
		return textOf(v) != ""
	}
	return true
}

// stringToNumber parses s as a numeric literal after trimming whitespace.
// The empty string is 0; anything unparsable is NaN.
func stringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, ok := new(big.Int).SetString(s[2:], base)
			if !ok {
				return nan64
			}
			f, _ := new(big.Float).SetInt(n).Float64()
			return f
		}
	}
	if end := decimalPrefix(s); end != len(s) {
		return nan64
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nan64
	}
	return f
}

// decimalPrefix returns the length of the longest prefix of s of the form
// [+-]? (digits [. digits?] | . digits) ([eE] [+-]? digits)?, or 0 when no
// digit is present.
func decimalPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits > 0 || frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}
	return i
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// jsString renders v the way string conversion of the reference host does,
// used when text is required from a non-text value.
func jsString(v any) string {
	switch classify(v) {
	case classNull:
		return "null"
	case classBool:
		if truthy(v) {
			return "true"
		}
		return "false"
	case classNumber:
		return formatNumber(numberOf(v))
	case classLong:
		return strconv.FormatInt(longOf(v), 10)
	case classText:
		return textOf(v)
	case classSequence:
		items := sequenceOf(v)
		parts := make([]string, len(items))
		for i, it := range items {
			if classify(it) == classNull {
				continue
			}
			parts[i] = jsString(it)
		}
		return strings.Join(parts, ",")
	case classByteArray:
		return joinInts(bytesOf(v))
	case classIntArray:
		return joinInts(intsOf(v))
	case classLongArray:
		return joinInts(longsOf(v))
	case classRecord:
		return "[object Object]"
	}
	return "undefined"
}

func joinInts[T int8 | int32 | int64](xs []T) string {
	var b strings.Builder
	for i, x := range xs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(int64(x), 10))
	}
	return b.String()
}

// formatNumber prints f in shortest round-trip form: plain decimal between
// 1e-6 and 1e21, exponent form outside.
func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if a := math.Abs(f); a >= 1e-6 && a < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	sign := exp[0]
	exp = strings.TrimLeft(exp[1:], "0")
	return mant + "e" + string(sign) + exp
}
