package prompts

import (
	"errors"
	"fmt"
	"strings"
)

var registry = map[Role]Template{}

func init() {
	rb, err := parseRuleBook(rulesYAML)
	if err != nil {
		panic(err)
	}
	for _, s := range rb.Specs() {
		RegisterSpec(s)
	}
}

func Register(t Template) {
	registry[t.Role] = t
}

// RegisterSpec compiles and registers s, panicking on a malformed spec.
func RegisterSpec(s Spec) {
	t, err := MakeTemplate(s)
	if err != nil {
		panic(err)
	}
	Register(t)
}

var ErrEmptySource = errors.New("source text is empty")

// Build renders the provider prompt for role. The source text is appended
// verbatim after every instruction.
func Build(sourceText string, role Role) (string, error) {
	if strings.TrimSpace(sourceText) == "" {
		return "", ErrEmptySource
	}
	if role == "" {
		role = RoleTeacher
	}
	t, ok := registry[role]
	if !ok {
		return "", fmt.Errorf("unknown prompt role: %s", role)
	}
	var b strings.Builder
	b.Grow(len(sourceText) + 4096)
	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(t.heading)
	b.WriteString("\n")
	b.WriteString(sourceText)
	return b.String(), nil
}

// FieldNames lists every schema field the prompt for role asks for.
func FieldNames(role Role) []string {
	t, ok := registry[role]
	if !ok {
		return nil
	}
	return append([]string(nil), t.Fields...)
}
