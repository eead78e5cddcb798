package validation

import (
	"encoding/json"

	"github.com/yungbote/lectureplanner-backend/internal/domain"
)

// Reply is the object shape the provider is asked to return.
type Reply struct {
	CourseTitle       string         `json:"courseTitle" jsonschema:"minLength=1"`
	CourseDescription string         `json:"courseDescription,omitempty"`
	TargetLevel       string         `json:"targetLevel,omitempty"`
	Topics            []domain.Topic `json:"topics"`
}

func ReplyFromCourse(c *domain.Course) Reply {
	topics := c.Topics
	if topics == nil {
		topics = []domain.Topic{}
	}
	return Reply{
		CourseTitle:       c.Title,
		CourseDescription: c.Description,
		TargetLevel:       c.TargetLevel,
		Topics:            topics,
	}
}

// EncodeReply renders a course in the provider reply shape.
func EncodeReply(c *domain.Course) ([]byte, error) {
	return json.Marshal(ReplyFromCourse(c))
}
