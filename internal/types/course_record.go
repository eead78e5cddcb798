package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/lectureplanner-backend/internal/domain"
)

type CourseRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	TargetLevel string    `gorm:"column:target_level" json:"target_level"`
	Role        string    `gorm:"column:role;not null;index" json:"role"`
	Model       string    `gorm:"column:model" json:"model"`
	// SourceHash is the sha256 of the normalized source text.
	SourceHash string         `gorm:"column:source_hash;index" json:"source_hash"`
	Topics     []*TopicRecord `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"topics,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (CourseRecord) TableName() string { return "course" }

// TopicRecord is one row of a course outline. TopicKey and ParentKey hold the
// ids the model produced, which are only unique within a course.
type TopicRecord struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_topic_course_key,priority:1" json:"course_id"`
	TopicKey    string         `gorm:"column:topic_key;not null;uniqueIndex:idx_topic_course_key,priority:2" json:"topic_key"`
	ParentKey   *string        `gorm:"column:parent_key;index" json:"parent_key,omitempty"`
	Position    int            `gorm:"column:position;not null;default:0" json:"position"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Depth       int            `gorm:"column:depth;not null" json:"depth"`
	Description string         `gorm:"column:description;type:text" json:"description,omitempty"`
	Notes       string         `gorm:"column:notes;type:text" json:"notes,omitempty"`
	Methodology string         `gorm:"column:methodology;type:text" json:"methodology,omitempty"`
	Lists       datatypes.JSON `gorm:"column:lists" json:"lists"`
	Duration    *float64       `gorm:"column:duration" json:"duration,omitempty"`
	Difficulty  *float64       `gorm:"column:difficulty" json:"difficulty,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TopicRecord) TableName() string { return "course_topic" }

// topicLists is the jsonb shape of TopicRecord.Lists.
type topicLists struct {
	KeyConcepts        []string `json:"keyConcepts,omitempty"`
	Prerequisites      []string `json:"prerequisites,omitempty"`
	Assessments        []string `json:"assessments,omitempty"`
	Activities         []string `json:"activities,omitempty"`
	CaseStudies        []string `json:"caseStudies,omitempty"`
	Resources          []string `json:"resources,omitempty"`
	LearningObjectives []string `json:"learningObjectives,omitempty"`
	PracticeItems      []string `json:"practiceItems,omitempty"`
	RelatedTopics      []string `json:"relatedTopics,omitempty"`
}

// NewCourseRecord converts a validated course into rows. A course without an
// id gets a fresh one, which is also written back to c.
func NewCourseRecord(c *domain.Course, role, model, sourceHash string) (*CourseRecord, error) {
	id := uuid.New()
	if c.ID != "" {
		parsed, err := uuid.Parse(c.ID)
		if err != nil {
			return nil, fmt.Errorf("course id %q: %w", c.ID, err)
		}
		id = parsed
	}
	c.ID = id.String()

	topics, err := NewTopicRecords(id, c.Topics)
	if err != nil {
		return nil, err
	}
	return &CourseRecord{
		ID:          id,
		Title:       c.Title,
		Description: c.Description,
		TargetLevel: c.TargetLevel,
		Role:        role,
		Model:       model,
		SourceHash:  sourceHash,
		Topics:      topics,
	}, nil
}

func NewTopicRecords(courseID uuid.UUID, topics []domain.Topic) ([]*TopicRecord, error) {
	out := make([]*TopicRecord, 0, len(topics))
	for i, t := range topics {
		lists, err := json.Marshal(topicLists{
			KeyConcepts:        t.KeyConcepts,
			Prerequisites:      t.Prerequisites,
			Assessments:        t.Assessments,
			Activities:         t.Activities,
			CaseStudies:        t.CaseStudies,
			Resources:          t.Resources,
			LearningObjectives: t.LearningObjectives,
			PracticeItems:      t.PracticeItems,
			RelatedTopics:      t.RelatedTopics,
		})
		if err != nil {
			return nil, fmt.Errorf("topic %q lists: %w", t.ID, err)
		}
		var parent *string
		if t.ParentID != nil {
			p := *t.ParentID
			parent = &p
		}
		out = append(out, &TopicRecord{
			ID:          uuid.New(),
			CourseID:    courseID,
			TopicKey:    t.ID,
			ParentKey:   parent,
			Position:    i,
			Title:       t.Title,
			Depth:       t.Depth,
			Description: t.Description,
			Notes:       t.Notes,
			Methodology: t.Methodology,
			Lists:       datatypes.JSON(lists),
			Duration:    t.Duration,
			Difficulty:  t.Difficulty,
		})
	}
	return out, nil
}

// ToDomain rebuilds the course. Topics are expected in Position order.
func (r *CourseRecord) ToDomain() (*domain.Course, error) {
	c := &domain.Course{
		ID:          r.ID.String(),
		Title:       r.Title,
		Description: r.Description,
		TargetLevel: r.TargetLevel,
		Topics:      make([]domain.Topic, 0, len(r.Topics)),
	}
	for _, tr := range r.Topics {
		var l topicLists
		if len(tr.Lists) > 0 {
			if err := json.Unmarshal(tr.Lists, &l); err != nil {
				return nil, fmt.Errorf("topic %q lists: %w", tr.TopicKey, err)
			}
		}
		c.Topics = append(c.Topics, domain.Topic{
			ID:                 tr.TopicKey,
			Title:              tr.Title,
			Depth:              tr.Depth,
			ParentID:           tr.ParentKey,
			Description:        tr.Description,
			Notes:              tr.Notes,
			Methodology:        tr.Methodology,
			KeyConcepts:        l.KeyConcepts,
			Prerequisites:      l.Prerequisites,
			Assessments:        l.Assessments,
			Activities:         l.Activities,
			CaseStudies:        l.CaseStudies,
			Resources:          l.Resources,
			LearningObjectives: l.LearningObjectives,
			PracticeItems:      l.PracticeItems,
			RelatedTopics:      l.RelatedTopics,
			Duration:           tr.Duration,
			Difficulty:         tr.Difficulty,
		})
	}
	return c, nil
}
