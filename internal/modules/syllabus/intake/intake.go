// Package intake turns uploaded or pasted syllabus bytes into clean UTF-8
// text before it is placed into a prompt.
package intake

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const DefaultMaxBytes = 200_000

var (
	ErrEmpty    = errors.New("syllabus content is empty")
	ErrTooLarge = errors.New("syllabus content is too large")
	ErrBinary   = errors.New("syllabus content is not text")
)

// Normalize validates raw source bytes and returns NFC text with LF line
// endings. Control characters other than newline and tab are dropped.
func Normalize(raw []byte, maxBytes int) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(raw) > maxBytes {
		return "", fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, len(raw), maxBytes)
	}
	s := strings.TrimPrefix(string(raw), "\ufeff")
	if looksBinary(s) {
		return "", ErrBinary
	}
	s = strings.ToValidUTF8(s, "\ufffd")

	out := norm.NFC.String(s)
	out = strings.ReplaceAll(out, "\r\n", "\n")
	out = strings.ReplaceAll(out, "\r", "\n")
	out = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, out)
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmpty
	}
	return out, nil
}

// looksBinary reports whether the head of s has enough NULs or invalid
// sequences that it is almost certainly not a text document.
func looksBinary(s string) bool {
	probe := s
	if len(probe) > 8192 {
		probe = probe[:8192]
	}
	if strings.IndexByte(probe, 0) >= 0 {
		return true
	}
	bad := 0
	for len(probe) > 0 {
		r, size := utf8.DecodeRuneInString(probe)
		if r == utf8.RuneError && size == 1 {
			bad++
		}
		probe = probe[size:]
	}
	return bad > 16
}
