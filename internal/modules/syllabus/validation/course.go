package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/yungbote/lectureplanner-backend/internal/domain"
	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/sanitize"
)

const DefaultParseBudget = 3

type Options struct {
	// ParseBudget bounds how many times a candidate is parsed, re-stripping
	// trailing commas between tries. Values < 1 mean DefaultParseBudget.
	ParseBudget int
	// StrictTree rejects replies whose topics do not form a forest. Duplicate
	// topic ids are rejected in both modes.
	StrictTree bool
}

func DefaultOptions() Options {
	return Options{ParseBudget: DefaultParseBudget}
}

type Outcome struct {
	Course *domain.Course
	Tree   InvariantReport
	Parses int
}

// ValidateCourseJSON parses a sanitized reply and checks the course shape.
func ValidateCourseJSON(candidate string) (*domain.Course, error) {
	out, err := ValidateWithOptions(candidate, DefaultOptions())
	if err != nil {
		return nil, err
	}
	return out.Course, nil
}

func ValidateWithOptions(candidate string, opts Options) (*Outcome, error) {
	budget := opts.ParseBudget
	if budget < 1 {
		budget = DefaultParseBudget
	}

	var (
		doc    map[string]json.RawMessage
		err    error
		parses int
	)
	for parses < budget {
		parses++
		doc, err = decodeObject(candidate)
		if err == nil {
			break
		}
		fixed := sanitize.StripTrailingCommas(candidate)
		if fixed == candidate {
			break
		}
		candidate = fixed
	}
	if err != nil {
		return &Outcome{Parses: parses}, newParseError(candidate, err)
	}

	course, err := buildCourse(doc)
	if err != nil {
		return &Outcome{Parses: parses}, err
	}

	out := &Outcome{Course: course, Tree: CheckTree(course.Topics), Parses: parses}
	if out.Tree.Status != StatusPass && (opts.StrictTree || out.Tree.failed(CheckDuplicateIDs)) {
		return out, &TreeError{Report: out.Tree}
	}
	return out, nil
}

var errNotObject = errors.New("reply is not a JSON object")

func decodeObject(candidate string) (map[string]json.RawMessage, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errNotObject
	}
	return doc, nil
}

func buildCourse(doc map[string]json.RawMessage) (*domain.Course, error) {
	title, ok := stringField(doc["courseTitle"])
	if !ok {
		return nil, &SchemaError{Index: -1, Field: "courseTitle", Reason: "missing or not a string"}
	}
	if strings.TrimSpace(title) == "" {
		return nil, &SchemaError{Index: -1, Field: "courseTitle", Reason: "empty"}
	}

	rawTopics, present := doc["topics"]
	if !present || isNull(rawTopics) {
		return nil, &SchemaError{Index: -1, Field: "topics", Reason: "missing"}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(rawTopics, &items); err != nil {
		return nil, &SchemaError{Index: -1, Field: "topics", Reason: "not an array"}
	}

	objs := make([]map[string]json.RawMessage, len(items))
	roots := 0
	for i, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
			return nil, &SchemaError{Index: i, Reason: "not an object"}
		}
		objs[i] = obj
		if d, ok := numberField(obj["depth"]); ok && d == 1 {
			roots++
		}
	}
	if roots == 0 {
		return nil, &SchemaError{Index: -1, Field: "topics", Reason: ReasonNoRootTopics}
	}

	course := &domain.Course{
		Title:       title,
		Description: optionalString(doc["courseDescription"]),
		TargetLevel: optionalString(doc["targetLevel"]),
		Topics:      make([]domain.Topic, 0, len(objs)),
	}
	for i, obj := range objs {
		t, err := buildTopic(i, obj)
		if err != nil {
			return nil, err
		}
		course.Topics = append(course.Topics, t)
	}
	return course, nil
}

func buildTopic(i int, obj map[string]json.RawMessage) (domain.Topic, error) {
	id, ok := idField(obj["id"])
	if !ok || id == "" {
		return domain.Topic{}, &SchemaError{Index: i, Field: "id", Reason: "missing or empty"}
	}
	title, ok := stringField(obj["title"])
	if !ok || strings.TrimSpace(title) == "" {
		return domain.Topic{}, &SchemaError{Index: i, Field: "title", Reason: "missing or empty"}
	}
	depth, ok := numberField(obj["depth"])
	if !ok {
		return domain.Topic{}, &SchemaError{Index: i, Field: "depth", Reason: "missing or not a number"}
	}
	if depth != math.Trunc(depth) || depth < 1 {
		return domain.Topic{}, &SchemaError{Index: i, Field: "depth", Reason: "must be a positive integer"}
	}

	t := domain.Topic{
		ID:                 id,
		Title:              title,
		Depth:              int(depth),
		Description:        optionalString(obj["description"]),
		Notes:              optionalString(obj["notes"]),
		Methodology:        optionalString(obj["methodology"]),
		KeyConcepts:        stringList(obj["keyConcepts"]),
		Prerequisites:      stringList(obj["prerequisites"]),
		Assessments:        stringList(obj["assessments"]),
		Activities:         stringList(obj["activities"]),
		CaseStudies:        stringList(obj["caseStudies"]),
		Resources:          stringList(obj["resources"]),
		LearningObjectives: stringList(obj["learningObjectives"]),
		PracticeItems:      stringList(obj["practiceItems"]),
		RelatedTopics:      stringList(obj["relatedTopics"]),
		Duration:           lenientNumber(obj["duration"]),
		Difficulty:         lenientNumber(obj["difficulty"]),
	}
	if pid, ok := idField(obj["parentId"]); ok && pid != "" {
		t.ParentID = &pid
	}
	return t, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func stringField(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func optionalString(raw json.RawMessage) string {
	s, _ := stringField(raw)
	return s
}

// idField accepts string ids and bare numeric ids, which models emit interchangeably.
func idField(raw json.RawMessage) (string, bool) {
	if s, ok := stringField(raw); ok {
		return strings.TrimSpace(s), true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil && !isNull(raw) {
		return n.String(), true
	}
	return "", false
}

func numberField(raw json.RawMessage) (float64, bool) {
	if isNull(raw) {
		return 0, false
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] == '"' {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return 0, false
	}
	return f, true
}

// lenientNumber reads enrichment numbers; "45 minutes" yields 45.
func lenientNumber(raw json.RawMessage) *float64 {
	if f, ok := numberField(raw); ok {
		return &f
	}
	s, ok := stringField(raw)
	if !ok {
		return nil
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	f, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil
	}
	return &f
}

// stringList flattens enrichment arrays. String elements are kept as sent,
// non-string elements as their compact JSON text, and null elements are
// skipped. A lone non-blank string becomes a one-element list.
func stringList(raw json.RawMessage) []string {
	if isNull(raw) {
		return nil
	}
	if s, ok := stringField(raw); ok {
		if strings.TrimSpace(s) == "" {
			return nil
		}
		return []string{s}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := stringField(item); ok {
			out = append(out, s)
			continue
		}
		if isNull(item) {
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, item); err == nil {
			out = append(out, buf.String())
		}
	}
	return out
}

// IsSchemaError reports whether err carries a *SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
