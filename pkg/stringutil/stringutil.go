// Package stringutil provides utility functions for working with strings.
package stringutil

import (
	"strings"
	"unicode/utf8"
)

// Truncate truncates a string to a maximum length, adding "..." if truncated.
// If maxLen is 3 or less, the string is truncated without "...".
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

const hexDigits = "0123456789abcdef"

// BackslashReplace decodes b as UTF-8, replacing every byte that is not part
// of a valid encoding with a visible \xNN escape. Valid input is returned
// unchanged, so the result is always valid UTF-8 and decoding never fails.
func BackslashReplace(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var sb strings.Builder
	sb.Grow(len(b) + 8)
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			sb.WriteString(`\x`)
			sb.WriteByte(hexDigits[b[0]>>4])
			sb.WriteByte(hexDigits[b[0]&0x0f])
			b = b[1:]
			continue
		}
		sb.Write(b[:size])
		b = b[size:]
	}
	return sb.String()
}
