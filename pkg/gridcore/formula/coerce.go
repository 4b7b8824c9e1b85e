package formula

import (
	"strconv"
	"strings"
)

// Coerce converts displayed cell text to a number. Every character other
// than digits, '.' and '-' is dropped, then the longest leading numeric
// prefix is parsed. Text without such a prefix coerces to 0.
//
//	"$1,234.50" -> 1234.5
//	"1-2"       -> 1
//	"abc"       -> 0
func Coerce(text string) float64 {
	stripped := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, text)

	prefix := numericPrefix(stripped)
	if prefix == "" {
		return 0
	}
	v, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return 0
	}
	return v
}

// numericPrefix returns the longest prefix of s shaped like
// -?digits*(.digits*)? that contains at least one digit.
func numericPrefix(s string) string {
	i := 0
	if i < len(s) && s[i] == '-' {
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
		if digits+frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return ""
	}
	return strings.TrimSuffix(s[:i], ".")
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
