package util

import "strings"

// SanitizeText drops what Postgres text columns and terminals choke on:
// invalid UTF-8, NUL, byte order marks and control characters other than
// newline, carriage return and tab.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToValidUTF8(s, "")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n', r == '\r', r == '\t':
			return r
		case r < 0x20, r == 0x7f, r == '\uFEFF':
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
