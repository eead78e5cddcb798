// Package sanitize repairs the near-JSON that chat models return into text
// encoding/json can parse. Every transform is a pure string function that
// never panics and leaves already clean JSON unchanged, so running a
// sanitizer twice yields the same result as running it once.
package sanitize

import (
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?i)```[ \\t]*(?:json)?")

// maxPasses bounds how often a repair chain is re-applied while its output
// keeps changing. One transform can expose work for an earlier one, e.g.
// collapsing whitespace next to a quote.
const maxPasses = 4

// Simple applies the lenient repair chain: fences, quote normalization,
// trailing commas, NaN, trim.
func Simple(raw string) string {
	return settle(raw, simplePass)
}

// Strict is Simple plus envelope extraction and whitespace collapsing, for
// providers that wrap the object in prose or emit raw control characters
// inside string literals.
func Strict(raw string) string {
	return settle(raw, strictPass)
}

func simplePass(s string) string {
	s = StripFences(s)
	s = NormalizeQuotes(s)
	s = StripTrailingCommas(s)
	s = ReplaceNaN(s)
	return strings.TrimSpace(s)
}

func strictPass(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = StripFences(s)
	s = ExtractObject(s)
	s = NormalizeQuotes(s)
	s = CollapseWhitespace(s)
	s = StripTrailingCommas(s)
	s = ReplaceNaN(s)
	return strings.TrimSpace(s)
}

// settle runs pass until its output stops changing.
func settle(s string, pass func(string) string) string {
	for i := 0; i < maxPasses; i++ {
		next := pass(s)
		if next == s {
			return next
		}
		s = next
	}
	return s
}

func StripFences(s string) string {
	for fenceRe.MatchString(s) {
		s = fenceRe.ReplaceAllString(s, "")
	}
	return s
}

// ExtractObject drops anything before the first '{' and after the last '}'.
// Input without a brace pair is returned unchanged.
func ExtractObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// NormalizeQuotes rewrites single-quoted keys and values into double-quoted
// strings. A single-quoted run is converted when it is followed by a colon
// (a key) or preceded by a colon (a value), or when it sits as an array
// element. Apostrophes inside double-quoted strings are never touched.
func NormalizeQuotes(s string) string {
	if !strings.ContainsRune(s, '\'') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inStr := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inStr {
			b.WriteByte(ch)
			if ch == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if ch == '"' {
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
			b.WriteByte(ch)
		case '\'':
			j := closingSingleQuote(s, i+1)
			if j < 0 || !quotedRunIsToken(b.String(), s[j+1:]) {
				b.WriteByte(ch)
				continue
			}
			b.WriteByte('"')
			b.WriteString(requote(s[i+1 : j]))
			b.WriteByte('"')
			i = j
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func closingSingleQuote(s string, from int) int {
	for k := from; k < len(s); k++ {
		switch s[k] {
		case '\\':
			k++
		case '\'':
			return k
		}
	}
	return -1
}

func quotedRunIsToken(before, after string) bool {
	prev := lastNonSpace(before)
	next := firstNonSpace(after)
	if next == ':' || prev == ':' {
		return true
	}
	return (prev == '[' || prev == ',') && (next == ',' || next == ']' || next == '}')
}

// requote turns the body of a single-quoted literal into a valid
// double-quoted body: \' becomes ', bare " is escaped and raw line breaks
// and tabs become escapes.
func requote(body string) string {
	var b strings.Builder
	b.Grow(len(body) + 4)
	for k := 0; k < len(body); k++ {
		ch := body[k]
		switch {
		case ch == '\\' && k+1 < len(body) && body[k+1] == '\'':
			b.WriteByte('\'')
			k++
		case ch == '\\' && k+1 < len(body):
			b.WriteByte(ch)
			b.WriteByte(body[k+1])
			k++
		case ch == '"':
			b.WriteString(`\"`)
		case ch == '\n':
			b.WriteString(`\n`)
		case ch == '\r':
			b.WriteString(`\r`)
		case ch == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// CollapseWhitespace turns every whitespace run outside string literals into
// a single space and escapes raw newlines, carriage returns and tabs found
// inside string literals.
func CollapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inStr := false
	pendingSpace := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inStr {
			switch ch {
			case '\\':
				b.WriteByte(ch)
				if i+1 < len(s) {
					i++
					b.WriteByte(s[i])
				}
			case '"':
				inStr = false
				b.WriteByte(ch)
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			default:
				b.WriteByte(ch)
			}
			continue
		}
		if isSpace(ch) {
			pendingSpace = true
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		if ch == '"' {
			inStr = true
		}
		b.WriteByte(ch)
	}
	if pendingSpace {
		b.WriteByte(' ')
	}
	return b.String()
}

// StripTrailingCommas removes commas (and the whitespace after them) that
// directly precede a closing brace or bracket outside string literals.
func StripTrailingCommas(s string) string {
	if !strings.ContainsRune(s, ',') {
		return s
	}
	out := make([]byte, 0, len(s))
	inStr := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inStr {
			out = append(out, ch)
			if ch == '\\' && i+1 < len(s) {
				i++
				out = append(out, s[i])
			} else if ch == '"' {
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '}', ']':
			out = dropDanglingCommas(out)
		}
		out = append(out, ch)
	}
	return string(out)
}

func dropDanglingCommas(out []byte) []byte {
	k := len(out)
	for k > 0 && isSpace(out[k-1]) {
		k--
	}
	if k == 0 || out[k-1] != ',' {
		return out
	}
	for k > 0 && (out[k-1] == ',' || isSpace(out[k-1])) {
		k--
	}
	return out[:k]
}

// ReplaceNaN swaps bare NaN tokens outside string literals for null.
func ReplaceNaN(s string) string {
	if !strings.Contains(s, "NaN") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inStr := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inStr {
			b.WriteByte(ch)
			if ch == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			} else if ch == '"' {
				inStr = false
			}
			continue
		}
		if ch == '"' {
			inStr = true
		}
		if ch == 'N' && strings.HasPrefix(s[i:], "NaN") &&
			(i == 0 || !isIdent(s[i-1])) &&
			(i+3 == len(s) || !isIdent(s[i+3])) {
			b.WriteString("null")
			i += 2
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\n' || ch == '\r' || ch == '\t'
}

func isIdent(ch byte) bool {
	return ch == '_' || (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func lastNonSpace(s string) byte {
	for k := len(s) - 1; k >= 0; k-- {
		if !isSpace(s[k]) {
			return s[k]
		}
	}
	return 0
}

func firstNonSpace(s string) byte {
	for k := 0; k < len(s); k++ {
		if !isSpace(s[k]) {
			return s[k]
		}
	}
	return 0
}
