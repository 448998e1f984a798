// Package textclean normalizes user-supplied text before it is validated and
// stored. Text is never rewritten beyond that: markup, angle brackets and
// entities are kept exactly as the client sent them.
package textclean

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalize trims surrounding whitespace, replaces invalid UTF-8 with U+FFFD
// and drops control characters other than tab and newline.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	s = strings.Map(func(r rune) rune {
		if r == '\t' || r == '\n' || !unicode.IsControl(r) {
			return r
		}
		return -1
	}, s)
	return strings.TrimSpace(s)
}

// Len returns the length of s in characters.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}
