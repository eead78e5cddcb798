package course

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/lectureplanner-backend/internal/platform/logger"
	"github.com/yungbote/lectureplanner-backend/internal/types"
)

type CourseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, courses []*types.CourseRecord) ([]*types.CourseRecord, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.CourseRecord, error)
	List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.CourseRecord, error)
	ReplaceTopics(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, topics []*types.TopicRecord) error
	SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) error
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	repoLog := baseLog.With("repo", "CourseRepo")
	return &courseRepo{db: db, log: repoLog}
}

// Create inserts courses together with their topics.
func (r *courseRepo) Create(ctx context.Context, tx *gorm.DB, courses []*types.CourseRecord) ([]*types.CourseRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(courses) == 0 {
		return []*types.CourseRecord{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

// GetByIDs loads courses with topics in outline order.
func (r *courseRepo) GetByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.CourseRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.CourseRecord
	if len(courseIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Preload("Topics", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id IN ?", courseIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// List returns course headers, newest first. Topics are not loaded.
func (r *courseRepo) List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*types.CourseRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var results []*types.CourseRecord
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ReplaceTopics swaps the whole outline of a course.
func (r *courseRepo) ReplaceTopics(ctx context.Context, tx *gorm.DB, courseID uuid.UUID, topics []*types.TopicRecord) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Where("course_id = ?", courseID).Delete(&types.TopicRecord{}).Error; err != nil {
			return err
		}
		for _, t := range topics {
			t.CourseID = courseID
		}
		if len(topics) > 0 {
			if err := txx.Create(&topics).Error; err != nil {
				return err
			}
		}
		return txx.Model(&types.CourseRecord{}).
			Where("id = ?", courseID).
			Update("updated_at", time.Now().UTC()).Error
	})
}

func (r *courseRepo) SoftDeleteByIDs(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(courseIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", courseIDs).
		Delete(&types.CourseRecord{}).Error; err != nil {
		return err
	}
	return nil
}
