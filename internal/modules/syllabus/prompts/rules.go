package prompts

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

type Field struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type roleRules struct {
	Focus  string   `yaml:"focus"`
	Fields []Field  `yaml:"fields"`
	Rules  []string `yaml:"rules"`
}

type schemaFields struct {
	Course []Field `yaml:"course"`
	Topic  []Field `yaml:"topic"`
}

type ruleBook struct {
	Version       int                `yaml:"version"`
	Intro         string             `yaml:"intro"`
	Schema        schemaFields       `yaml:"schema"`
	FormatRules   []string           `yaml:"format_rules"`
	Breakdown     []string           `yaml:"breakdown"`
	Hierarchy     []string           `yaml:"hierarchy"`
	Roles         map[Role]roleRules `yaml:"roles"`
	SourceHeading string             `yaml:"source_heading"`
}

func parseRuleBook(raw []byte) (ruleBook, error) {
	var rb ruleBook
	if err := yaml.Unmarshal(raw, &rb); err != nil {
		return ruleBook{}, fmt.Errorf("parse prompt rules: %w", err)
	}
	if rb.Version <= 0 {
		return ruleBook{}, fmt.Errorf("prompt rules: invalid version %d", rb.Version)
	}
	if len(rb.Schema.Course) == 0 || len(rb.Schema.Topic) == 0 {
		return ruleBook{}, fmt.Errorf("prompt rules: schema is empty")
	}
	if len(rb.Roles) == 0 {
		return ruleBook{}, fmt.Errorf("prompt rules: no roles defined")
	}
	return rb, nil
}

// Specs expands the rule book into one Spec per role.
func (rb ruleBook) Specs() []Spec {
	out := make([]Spec, 0, len(rb.Roles))
	for role, rr := range rb.Roles {
		topic := append(append([]Field(nil), rb.Schema.Topic...), rr.Fields...)
		sections := make([]Section, 0, len(rb.FormatRules)+3)
		for _, r := range rb.FormatRules {
			sections = append(sections, Section{Title: r})
		}
		sections = append(sections,
			Section{Title: "Recursively generate subtopics for each topic:", Items: rb.Breakdown},
			Section{Title: "Ensure hierarchical relationships:", Items: rb.Hierarchy},
		)
		if len(rr.Rules) > 0 {
			sections = append(sections, Section{Title: fmt.Sprintf("Requirements for the %s plan:", role), Items: rr.Rules})
		}
		out = append(out, Spec{
			Role:          role,
			Version:       rb.Version,
			Intro:         rb.Intro,
			Focus:         rr.Focus,
			CourseFields:  rb.Schema.Course,
			TopicFields:   topic,
			Sections:      sections,
			SourceHeading: rb.SourceHeading,
		})
	}
	return out
}
