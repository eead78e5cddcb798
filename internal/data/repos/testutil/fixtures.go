package testutil

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/lectureplanner-backend/internal/domain"
	"github.com/yungbote/lectureplanner-backend/internal/types"
)

// SampleCourse is a two-root outline with one nested child.
func SampleCourse() *domain.Course {
	dur := 60.0
	diff := 3.0
	return &domain.Course{
		Title:       "Operating Systems",
		Description: "Processes, memory and files",
		TargetLevel: "undergraduate",
		Topics: []domain.Topic{
			{ID: "1", Title: "Processes", Depth: 1, KeyConcepts: []string{"scheduling"}, Duration: &dur, Difficulty: &diff},
			{ID: "1.1", Title: "Threads", Depth: 2, ParentID: domain.StringPtr("1"), RelatedTopics: []string{"2"}},
			{ID: "2", Title: "Memory", Depth: 1, Prerequisites: []string{"Processes"}},
		},
	}
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, c *domain.Course) *types.CourseRecord {
	tb.Helper()
	rec, err := types.NewCourseRecord(c, "teacher", "test/model", "hash")
	if err != nil {
		tb.Fatalf("build course record: %v", err)
	}
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return rec
}
