package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/lectureplanner-backend/internal/types"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&types.CourseRecord{},
		&types.TopicRecord{},
		&types.GenerationRun{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
