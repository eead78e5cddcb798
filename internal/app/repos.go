package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/lectureplanner-backend/internal/data/repos"
	"github.com/yungbote/lectureplanner-backend/internal/platform/logger"
)

type Repos struct {
	Course        repos.CourseRepo
	GenerationRun repos.GenerationRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Course:        repos.NewCourseRepo(db, log),
		GenerationRun: repos.NewGenerationRunRepo(db, log),
	}
}
