package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeHeader prepares a column header for comparison: lowercased with
// surrounding whitespace trimmed. Inner whitespace is kept so "unit value"
// stays distinct from "value".
func NormalizeHeader(name string) string {
	return strings.ToLower(strings.Trim(name, " \n\t"))
}

// CollapseSpaces replaces every run of whitespace with a single space and
// trims the result.
func CollapseSpaces(s string) string {
	return strings.Trim(whitespaceRegex.ReplaceAllString(s, " "), " ")
}

// Snippet returns at most n characters (not bytes) of the trimmed text.
func Snippet(text string, n int) string {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) <= n {
		return trimmed
	}
	return string(runes[:n])
}
