package course

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/lectureplanner-backend/internal/platform/logger"
	"github.com/yungbote/lectureplanner-backend/internal/types"
)

type GenerationRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, runs []*types.GenerationRun) ([]*types.GenerationRun, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.GenerationRun, error)
	GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.GenerationRun, error)
	Finish(ctx context.Context, tx *gorm.DB, run *types.GenerationRun) error
}

type generationRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenerationRunRepo(db *gorm.DB, baseLog *logger.Logger) GenerationRunRepo {
	repoLog := baseLog.With("repo", "GenerationRunRepo")
	return &generationRunRepo{db: db, log: repoLog}
}

func (r *generationRunRepo) Create(ctx context.Context, tx *gorm.DB, runs []*types.GenerationRun) ([]*types.GenerationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(runs) == 0 {
		return []*types.GenerationRun{}, nil
	}
	for _, run := range runs {
		if run.ID == uuid.Nil {
			run.ID = uuid.New()
		}
		if run.Status == "" {
			run.Status = types.RunStatusRunning
		}
		if run.StartedAt.IsZero() {
			run.StartedAt = time.Now().UTC()
		}
	}
	if err := transaction.WithContext(ctx).Create(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *generationRunRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.GenerationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.GenerationRun
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).Where("id IN ?", ids).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *generationRunRepo) GetByCourseID(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.GenerationRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.GenerationRun
	if err := transaction.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("started_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Finish writes the terminal fields of a run. FinishedAt defaults to now.
func (r *generationRunRepo) Finish(ctx context.Context, tx *gorm.DB, run *types.GenerationRun) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if run.FinishedAt == nil {
		now := time.Now().UTC()
		run.FinishedAt = &now
	}
	res := transaction.WithContext(ctx).
		Model(&types.GenerationRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"course_id":   run.CourseID,
			"model":       run.Model,
			"status":      run.Status,
			"attempts":    run.Attempts,
			"error_kind":  run.ErrorKind,
			"error":       run.Error,
			"raw_reply":   run.RawReply,
			"usage":       run.Usage,
			"finished_at": run.FinishedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
