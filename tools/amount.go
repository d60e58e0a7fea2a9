package tools

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount normalizes a bank-export amount into a float.
//
// The export writes values like "-1 234,56 PLN". Because the file is comma
// separated, such a value may also arrive split in two: the whole part in
// the amount column ("-1 234") and the minor units in the following column
// ("56 PLN"). When the whole part has no fraction of its own, minor is
// added with the whole part's sign. Anything unparsable yields 0.
func ParseAmount(whole, minor string) float64 {
	num, hasFraction, ok := parseNumber(whole)
	if !ok {
		return 0
	}
	if hasFraction {
		return num
	}

	digits := keepDigits(minor)
	if digits == "" {
		return num
	}
	if len(digits) > 2 {
		digits = digits[:2]
	}
	cents, err := strconv.Atoi(digits)
	if err != nil {
		return num
	}
	if len(digits) == 1 {
		cents *= 10
	}

	frac := float64(cents) / 100
	if num < 0 || strings.HasPrefix(strings.TrimSpace(whole), "-") {
		return num - frac
	}
	return num + frac
}

// parseNumber accepts thousands separators (space, nbsp, apostrophe, and
// comma or dot when the other one is the decimal mark) and trailing
// currency text.
func parseNumber(s string) (value float64, hasFraction, ok bool) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.', r == '-', r == '+':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '\'':
			// thousands separator
		case unicode.IsLetter(r):
			// currency code or symbol
		default:
			return 0, false, false
		}
	}
	cleaned := b.String()
	if cleaned == "" || cleaned == "-" || cleaned == "+" {
		return 0, false, false
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(cleaned, ",") == 1 {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case strings.Count(cleaned, ".") > 1:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, false
	}
	return v, strings.Contains(cleaned, "."), true
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if !unicode.IsSpace(r) && !unicode.IsLetter(r) {
			return ""
		}
	}
	return b.String()
}
