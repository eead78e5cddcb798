package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrTopicNotFound  = errors.New("topic not found")
	ErrParentNotFound = errors.New("parent topic not found")
	ErrDuplicateTopic = errors.New("duplicate topic id")
	ErrInvalidTopic   = errors.New("invalid topic")
)

// DefaultTopicMinutes is assumed for topics without a duration when totalling a course.
const DefaultTopicMinutes = 30

// Topic is one node of the course forest. Roots have depth 1 and no parent.
type Topic struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Depth              int      `json:"depth"`
	ParentID           *string  `json:"parentId"`
	Description        string   `json:"description,omitempty"`
	Notes              string   `json:"notes,omitempty"`
	Methodology        string   `json:"methodology,omitempty"`
	KeyConcepts        []string `json:"keyConcepts,omitempty"`
	Prerequisites      []string `json:"prerequisites,omitempty"`
	Assessments        []string `json:"assessments,omitempty"`
	Activities         []string `json:"activities,omitempty"`
	CaseStudies        []string `json:"caseStudies,omitempty"`
	Resources          []string `json:"resources,omitempty"`
	LearningObjectives []string `json:"learningObjectives,omitempty"`
	PracticeItems      []string `json:"practiceItems,omitempty"`
	RelatedTopics      []string `json:"relatedTopics,omitempty"`
	Duration           *float64 `json:"duration,omitempty"`
	Difficulty         *float64 `json:"difficulty,omitempty"`
}

func (t Topic) IsRoot() bool { return t.ParentID == nil }

// Parent returns the parent id or "" for roots.
func (t Topic) Parent() string {
	if t.ParentID == nil {
		return ""
	}
	return *t.ParentID
}

type Course struct {
	ID          string  `json:"id,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	TargetLevel string  `json:"targetLevel,omitempty"`
	Topics      []Topic `json:"topics"`
}

func StringPtr(s string) *string { return &s }

func (c *Course) index(id string) int {
	for i := range c.Topics {
		if c.Topics[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Course) Topic(id string) (Topic, bool) {
	if i := c.index(id); i >= 0 {
		return c.Topics[i], true
	}
	return Topic{}, false
}

func (c *Course) Roots() []Topic {
	var out []Topic
	for _, t := range c.Topics {
		if t.Depth == 1 {
			out = append(out, t)
		}
	}
	return out
}

func (c *Course) Children(id string) []Topic {
	var out []Topic
	for _, t := range c.Topics {
		if t.ParentID != nil && *t.ParentID == id {
			out = append(out, t)
		}
	}
	return out
}

// AddTopic inserts t under its parent. Depth is derived from the parent and
// an id is generated when none is given.
func (c *Course) AddTopic(t Topic) (Topic, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return Topic{}, fmt.Errorf("%w: title is required", ErrInvalidTopic)
	}
	if strings.TrimSpace(t.ID) == "" {
		t.ID = uuid.NewString()
	}
	if c.index(t.ID) >= 0 {
		return Topic{}, fmt.Errorf("%w: %s", ErrDuplicateTopic, t.ID)
	}
	if t.ParentID == nil || *t.ParentID == "" {
		t.ParentID = nil
		t.Depth = 1
	} else {
		p, ok := c.Topic(*t.ParentID)
		if !ok {
			return Topic{}, fmt.Errorf("%w: %s", ErrParentNotFound, *t.ParentID)
		}
		t.Depth = p.Depth + 1
	}
	c.Topics = append(c.Topics, t)
	return t, nil
}

// TopicPatch carries the editable fields of a topic. Nil means unchanged.
// Identity and placement (id, parent, depth) cannot be patched.
type TopicPatch struct {
	Title              *string   `json:"title,omitempty"`
	Description        *string   `json:"description,omitempty"`
	Notes              *string   `json:"notes,omitempty"`
	Methodology        *string   `json:"methodology,omitempty"`
	KeyConcepts        *[]string `json:"keyConcepts,omitempty"`
	Prerequisites      *[]string `json:"prerequisites,omitempty"`
	Assessments        *[]string `json:"assessments,omitempty"`
	Activities         *[]string `json:"activities,omitempty"`
	CaseStudies        *[]string `json:"caseStudies,omitempty"`
	Resources          *[]string `json:"resources,omitempty"`
	LearningObjectives *[]string `json:"learningObjectives,omitempty"`
	PracticeItems      *[]string `json:"practiceItems,omitempty"`
	RelatedTopics      *[]string `json:"relatedTopics,omitempty"`
	Duration           *float64  `json:"duration,omitempty"`
	Difficulty         *float64  `json:"difficulty,omitempty"`
}

func (c *Course) UpdateTopic(id string, p TopicPatch) (Topic, error) {
	i := c.index(id)
	if i < 0 {
		return Topic{}, fmt.Errorf("%w: %s", ErrTopicNotFound, id)
	}
	t := c.Topics[i]
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return Topic{}, fmt.Errorf("%w: title is required", ErrInvalidTopic)
		}
		t.Title = title
	}
	if p.RelatedTopics != nil {
		for _, rid := range *p.RelatedTopics {
			if rid == id || c.index(rid) < 0 {
				return Topic{}, fmt.Errorf("%w: related topic %q", ErrInvalidTopic, rid)
			}
		}
		t.RelatedTopics = append([]string(nil), *p.RelatedTopics...)
	}
	if p.Difficulty != nil && (*p.Difficulty < 1 || *p.Difficulty > 5) {
		return Topic{}, fmt.Errorf("%w: difficulty must be within 1..5", ErrInvalidTopic)
	}
	if p.Duration != nil && *p.Duration < 0 {
		return Topic{}, fmt.Errorf("%w: duration must be >= 0", ErrInvalidTopic)
	}
	setString(&t.Description, p.Description)
	setString(&t.Notes, p.Notes)
	setString(&t.Methodology, p.Methodology)
	setList(&t.KeyConcepts, p.KeyConcepts)
	setList(&t.Prerequisites, p.Prerequisites)
	setList(&t.Assessments, p.Assessments)
	setList(&t.Activities, p.Activities)
	setList(&t.CaseStudies, p.CaseStudies)
	setList(&t.Resources, p.Resources)
	setList(&t.LearningObjectives, p.LearningObjectives)
	setList(&t.PracticeItems, p.PracticeItems)
	if p.Duration != nil {
		t.Duration = p.Duration
	}
	if p.Difficulty != nil {
		t.Difficulty = p.Difficulty
	}
	c.Topics[i] = t
	return t, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setList(dst *[]string, src *[]string) {
	if src != nil {
		*dst = append([]string(nil), (*src)...)
	}
}

// RemoveTopic deletes the topic and its whole subtree, returning the removed ids.
// Cross-links pointing at removed topics are pruned.
func (c *Course) RemoveTopic(id string) ([]string, error) {
	if c.index(id) < 0 {
		return nil, fmt.Errorf("%w: %s", ErrTopicNotFound, id)
	}
	doomed := map[string]bool{id: true}
	for changed := true; changed; {
		changed = false
		for _, t := range c.Topics {
			if !doomed[t.ID] && t.ParentID != nil && doomed[*t.ParentID] {
				doomed[t.ID] = true
				changed = true
			}
		}
	}
	kept := c.Topics[:0]
	var removed []string
	for _, t := range c.Topics {
		if doomed[t.ID] {
			removed = append(removed, t.ID)
			continue
		}
		if len(t.RelatedTopics) > 0 {
			rel := make([]string, 0, len(t.RelatedTopics))
			for _, r := range t.RelatedTopics {
				if !doomed[r] {
					rel = append(rel, r)
				}
			}
			t.RelatedTopics = rel
		}
		kept = append(kept, t)
	}
	c.Topics = kept
	return removed, nil
}

// Stats summarises a course the way the planner sidebar shows it.
type Stats struct {
	TopicCount        int     `json:"topicCount"`
	RootCount         int     `json:"rootCount"`
	MaxDepth          int     `json:"maxDepth"`
	TotalMinutes      float64 `json:"totalMinutes"`
	AverageDifficulty float64 `json:"averageDifficulty"`
}

func (c *Course) Stats() Stats {
	s := Stats{TopicCount: len(c.Topics)}
	var diffSum float64
	for _, t := range c.Topics {
		if t.Depth == 1 {
			s.RootCount++
		}
		if t.Depth > s.MaxDepth {
			s.MaxDepth = t.Depth
		}
		if t.Duration != nil {
			s.TotalMinutes += *t.Duration
		} else {
			s.TotalMinutes += DefaultTopicMinutes
		}
		if t.Difficulty != nil {
			diffSum += *t.Difficulty
		} else {
			diffSum += 1
		}
	}
	if s.TopicCount > 0 {
		s.AverageDifficulty = math.Round(diffSum / float64(s.TopicCount))
	}
	return s
}
