package prompts

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Section is one numbered rule, optionally with bullet items.
type Section struct {
	N     int
	Title string
	Items []string
}

// Spec is the declarative form of a role prompt.
type Spec struct {
	Role          Role
	Version       int
	Intro         string
	Focus         string
	CourseFields  []Field
	TopicFields   []Field
	Sections      []Section
	SourceHeading string
}

// Template is a compiled Spec.
type Template struct {
	Role    Role
	Version int
	Fields  []string
	Render  func() string
	heading string
}

const promptText = `{{.Intro}}
{
{{- range .CourseFields}}
  "{{.Name}}": {{.Type}},
{{- end}}
  "topics": Array<{
{{- range $i, $f := .TopicFields}}{{if $i}},{{end}}
    "{{$f.Name}}": {{$f.Type}}
{{- end}}
  }>
}
{{if .Focus}}
{{.Focus}}
{{end}}
Follow STRICTLY:
{{- range .Sections}}
{{.N}}. {{.Title}}
{{- range .Items}}
   - {{.}}
{{- end}}
{{- end}}
`

var promptTmpl = template.Must(template.New("course").Option("missingkey=zero").Parse(promptText))

func MakeTemplate(s Spec) (Template, error) {
	if strings.TrimSpace(string(s.Role)) == "" {
		return Template{}, fmt.Errorf("missing prompt role")
	}
	if s.Version <= 0 {
		return Template{}, fmt.Errorf("invalid version for %s", s.Role)
	}
	if len(s.TopicFields) == 0 {
		return Template{}, fmt.Errorf("missing topic fields for %s", s.Role)
	}
	for i := range s.Sections {
		s.Sections[i].N = i + 1
	}
	var b bytes.Buffer
	if err := promptTmpl.Execute(&b, s); err != nil {
		return Template{}, fmt.Errorf("%s template render: %w", s.Role, err)
	}
	rendered := strings.TrimSpace(b.String())

	fields := make([]string, 0, len(s.CourseFields)+len(s.TopicFields)+1)
	for _, f := range s.CourseFields {
		fields = append(fields, f.Name)
	}
	fields = append(fields, "topics")
	for _, f := range s.TopicFields {
		fields = append(fields, f.Name)
	}

	heading := strings.TrimSpace(s.SourceHeading)
	if heading == "" {
		heading = "Source material:"
	}
	return Template{
		Role:    s.Role,
		Version: s.Version,
		Fields:  fields,
		Render:  func() string { return rendered },
		heading: heading,
	}, nil
}
