package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// SchemaError reports the first structural problem found in a reply.
// Index is the topic index, or -1 for course-level fields.
type SchemaError struct {
	Index  int
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Index >= 0 {
		if e.Field == "" {
			return fmt.Sprintf("topics[%d]: %s", e.Index, e.Reason)
		}
		return fmt.Sprintf("topics[%d].%s: %s", e.Index, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

const ReasonNoRootTopics = "no root topics"

// ParseError wraps a JSON syntax failure with enough context to find it in logs.
type ParseError struct {
	Offset  int64
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse reply at offset %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TreeError is returned when the topic set is not a forest in strict tree
// mode, or in either mode when topic ids repeat.
type TreeError struct {
	Report InvariantReport
}

func (e *TreeError) Error() string {
	return fmt.Sprintf("topic tree inconsistent: %s", e.Report.Reason)
}

const snippetRadius = 50

func newParseError(candidate string, err error) *ParseError {
	var off int64
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syn):
		off = syn.Offset
	case errors.As(err, &typ):
		off = typ.Offset
	}
	return &ParseError{Offset: off, Snippet: snippet(candidate, int(off)), Err: err}
}

// snippet returns up to snippetRadius bytes either side of at, widened to
// whole runes so multi-byte characters are never split.
func snippet(s string, at int) string {
	lo := at - snippetRadius
	if lo < 0 {
		lo = 0
	}
	hi := at + snippetRadius
	if hi > len(s) {
		hi = len(s)
	}
	if lo > hi {
		return ""
	}
	for lo > 0 && !utf8.RuneStart(s[lo]) {
		lo--
	}
	for hi < len(s) && !utf8.RuneStart(s[hi]) {
		hi++
	}
	return s[lo:hi]
}
