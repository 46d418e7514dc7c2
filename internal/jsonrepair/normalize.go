package jsonrepair

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	reBreak = regexp.MustCompile(`(?i)<br\s*/?>|</(?:p|li|div|h[1-6])\s*>`)
	reTag   = regexp.MustCompile(`</?[A-Za-z][^<>]*>`)
	reBlank = regexp.MustCompile(`\n{3,}`)
)

// Normalize strips markup tags, decodes HTML entities and trims whitespace.
// Block-level closing tags and <br> become line breaks first.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reBreak.ReplaceAllString(s, "\n")
	s = reTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	s = reBlank.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}
