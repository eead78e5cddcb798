package repos

import (
	"github.com/yungbote/lectureplanner-backend/internal/data/repos/course"
	"github.com/yungbote/lectureplanner-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type CourseRepo = course.CourseRepo
type GenerationRunRepo = course.GenerationRunRepo

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return course.NewCourseRepo(db, baseLog)
}

func NewGenerationRunRepo(db *gorm.DB, baseLog *logger.Logger) GenerationRunRepo {
	return course.NewGenerationRunRepo(db, baseLog)
}
