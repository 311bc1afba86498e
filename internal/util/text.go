package util

import (
	"strconv"
	"strings"
	"unicode"
)

// SanitizeField prepares a model-emitted string for use as an identifier or
// stored value: surrounding whitespace and quotes are trimmed and control
// characters are stripped. A nil-ish or malformed field degrades to "".
func SanitizeField(value string) string {
	value = strings.TrimSpace(value)
	value = strings.Trim(value, `"'`)
	value = strings.ToValidUTF8(value, "")

	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// ParseFloatOr parses value as a float, falling back to def on missing or
// non-numeric input. Model output is not trusted to be numeric.
func ParseFloatOr(value string, def float64) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

// DedupeStrings returns in with empty strings and duplicates removed,
// preserving first-seen order.
func DedupeStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
