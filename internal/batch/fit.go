package batch

import (
	"strings"
	"unicode"
)

// Fit trims s to at most limit runes, cutting at the last word boundary when
// one falls in the second half of the allowance. limit <= 0 means no limit.
func Fit(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	cut := r[:limit]
	if unicode.IsSpace(r[limit]) {
		return strings.TrimRightFunc(string(cut), trailing)
	}
	for i := len(cut) - 1; i >= limit/2; i-- {
		if unicode.IsSpace(cut[i]) {
			return strings.TrimRightFunc(string(cut[:i]), trailing)
		}
	}
	return strings.TrimRightFunc(string(cut), trailing)
}

func trailing(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(",;:-", r)
}
