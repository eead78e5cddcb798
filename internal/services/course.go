package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/lectureplanner-backend/internal/cache"
	"github.com/yungbote/lectureplanner-backend/internal/data/repos"
	"github.com/yungbote/lectureplanner-backend/internal/domain"
	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/ingestion"
	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/intake"
	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/prompts"
	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/validation"
	"github.com/yungbote/lectureplanner-backend/internal/platform/logger"
	"github.com/yungbote/lectureplanner-backend/internal/types"
)

var ErrCourseNotFound = errors.New("course not found")

const rawReplyLimit = 4000

// Ingest sources recorded on generation runs.
const (
	SourceSyllabus    = "syllabus"
	SourceUpload      = "upload"
	SourceDescription = "description"
)

// Ingester is the slice of the ingestion pipeline the service drives.
type Ingester interface {
	FetchStructuredCourse(ctx context.Context, req ingestion.Request) (*ingestion.Result, error)
}

type IngestRequest struct {
	Source  string
	Content []byte
	Role    prompts.Role
}

type IngestResult struct {
	RunID    uuid.UUID
	Course   *domain.Course
	Stats    domain.Stats
	Tree     validation.InvariantReport
	RawReply string
	Model    string
	Usage    json.RawMessage
	Attempts int
	Retries  int
}

type CourseSummary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Role        string    `json:"role"`
	Model       string    `json:"model,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type CourseServiceConfig struct {
	APIKey         string
	Timeout        time.Duration
	MaxSourceBytes int
}

type CourseService interface {
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)
	GetCourse(ctx context.Context, id string) (*domain.Course, error)
	ListCourses(ctx context.Context, limit, offset int) ([]CourseSummary, error)
	AddTopic(ctx context.Context, courseID string, t domain.Topic) (*domain.Course, domain.Topic, error)
	UpdateTopic(ctx context.Context, courseID, topicID string, patch domain.TopicPatch) (*domain.Course, domain.Topic, error)
	RemoveTopic(ctx context.Context, courseID, topicID string) (*domain.Course, []string, error)
	DeleteCourse(ctx context.Context, courseID string) error
}

type courseService struct {
	db         *gorm.DB
	log        *logger.Logger
	ingester   Ingester
	courseRepo repos.CourseRepo
	runRepo    repos.GenerationRunRepo
	cache      cache.CourseCache
	cfg        CourseServiceConfig

	// mu serialises outline edits so concurrent writers cannot drop each
	// other's changes.
	mu sync.Mutex
}

func NewCourseService(
	db *gorm.DB,
	baseLog *logger.Logger,
	ingester Ingester,
	courseRepo repos.CourseRepo,
	runRepo repos.GenerationRunRepo,
	courseCache cache.CourseCache,
	cfg CourseServiceConfig,
) CourseService {
	serviceLog := baseLog.With("service", "CourseService")
	return &courseService{
		db:         db,
		log:        serviceLog,
		ingester:   ingester,
		courseRepo: courseRepo,
		runRepo:    runRepo,
		cache:      courseCache,
		cfg:        cfg,
	}
}

func (cs *courseService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	text, err := intake.Normalize(req.Content, cs.cfg.MaxSourceBytes)
	if err != nil {
		return nil, &ingestion.InputError{Err: err}
	}
	role := req.Role
	if role == "" {
		role = prompts.RoleTeacher
	}
	source := req.Source
	if source == "" {
		source = SourceSyllabus
	}
	sum := sha256.Sum256([]byte(text))
	hash := hex.EncodeToString(sum[:])

	run := &types.GenerationRun{
		Source:      source,
		Role:        string(role),
		SourceBytes: len(text),
		SourceHash:  hash,
	}
	if _, err := cs.runRepo.Create(ctx, nil, []*types.GenerationRun{run}); err != nil {
		return nil, fmt.Errorf("record generation run: %w", err)
	}
	log := cs.log.With("run_id", run.ID.String(), "source", source, "role", role)

	pctx := ctx
	if cs.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, cs.cfg.Timeout)
		defer cancel()
	}
	res, err := cs.ingester.FetchStructuredCourse(pctx, ingestion.Request{
		SourceText: text,
		Role:       role,
		APIKey:     cs.cfg.APIKey,
	})
	if err != nil {
		cs.finishRun(ctx, log, run, nil, err)
		return nil, err
	}

	rec, err := types.NewCourseRecord(res.Course, string(role), res.Model, hash)
	if err != nil {
		cs.finishRun(ctx, log, run, res, err)
		return nil, err
	}
	if err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := cs.courseRepo.Create(ctx, tx, []*types.CourseRecord{rec})
		return err
	}); err != nil {
		cs.finishRun(ctx, log, run, res, err)
		return nil, fmt.Errorf("save course: %w", err)
	}
	run.CourseID = &rec.ID
	cs.finishRun(ctx, log, run, res, nil)
	cs.cachePut(ctx, res.Course)

	return &IngestResult{
		RunID:    run.ID,
		Course:   res.Course,
		Stats:    res.Course.Stats(),
		Tree:     res.Tree,
		RawReply: res.RawReply,
		Model:    res.Model,
		Usage:    res.Usage,
		Attempts: res.Attempts,
		Retries:  res.Retries,
	}, nil
}

// finishRun never fails the request; a lost audit row is only logged.
func (cs *courseService) finishRun(ctx context.Context, log *logger.Logger, run *types.GenerationRun, res *ingestion.Result, runErr error) {
	run.Status = types.RunStatusSucceeded
	if res != nil {
		run.Model = res.Model
		run.Attempts = res.Attempts
		run.RawReply = truncate(res.RawReply, rawReplyLimit)
		if len(res.Usage) > 0 {
			run.Usage = datatypes.JSON(res.Usage)
		}
	}
	if runErr != nil {
		run.Status = types.RunStatusFailed
		run.ErrorKind = ingestion.Kind(runErr)
		run.Error = truncate(runErr.Error(), rawReplyLimit)
		var ac interface{ GetAttempts() int }
		if errors.As(runErr, &ac) {
			run.Attempts = ac.GetAttempts()
		}
	}
	// The request context may already be done when the pipeline timed out.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := cs.runRepo.Finish(fctx, nil, run); err != nil {
		log.Warn("failed to finish generation run", "error", err)
	}
}

func (cs *courseService) GetCourse(ctx context.Context, id string) (*domain.Course, error) {
	courseID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrCourseNotFound
	}
	if cs.cache != nil {
		c, ok, err := cs.cache.Get(ctx, id)
		if err != nil {
			cs.log.Warn("course cache read failed", "course_id", id, "error", err)
		} else if ok {
			return c, nil
		}
	}
	rows, err := cs.courseRepo.GetByIDs(ctx, nil, []uuid.UUID{courseID})
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if len(rows) == 0 || rows[0] == nil {
		return nil, ErrCourseNotFound
	}
	c, err := rows[0].ToDomain()
	if err != nil {
		return nil, err
	}
	cs.cachePut(ctx, c)
	return c, nil
}

func (cs *courseService) ListCourses(ctx context.Context, limit, offset int) ([]CourseSummary, error) {
	rows, err := cs.courseRepo.List(ctx, nil, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	out := make([]CourseSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, CourseSummary{
			ID:          r.ID.String(),
			Title:       r.Title,
			Description: r.Description,
			Role:        r.Role,
			Model:       r.Model,
			CreatedAt:   r.CreatedAt,
		})
	}
	return out, nil
}

func (cs *courseService) AddTopic(ctx context.Context, courseID string, t domain.Topic) (*domain.Course, domain.Topic, error) {
	var added domain.Topic
	c, err := cs.mutate(ctx, courseID, func(c *domain.Course) error {
		var err error
		added, err = c.AddTopic(t)
		return err
	})
	return c, added, err
}

func (cs *courseService) UpdateTopic(ctx context.Context, courseID, topicID string, patch domain.TopicPatch) (*domain.Course, domain.Topic, error) {
	var updated domain.Topic
	c, err := cs.mutate(ctx, courseID, func(c *domain.Course) error {
		var err error
		updated, err = c.UpdateTopic(topicID, patch)
		return err
	})
	return c, updated, err
}

func (cs *courseService) RemoveTopic(ctx context.Context, courseID, topicID string) (*domain.Course, []string, error) {
	var removed []string
	c, err := cs.mutate(ctx, courseID, func(c *domain.Course) error {
		var err error
		removed, err = c.RemoveTopic(topicID)
		return err
	})
	return c, removed, err
}

// DeleteCourse soft-deletes the course and evicts it from the cache. A
// re-ingested syllabus creates a new course rather than reviving this one.
func (cs *courseService) DeleteCourse(ctx context.Context, courseID string) error {
	id, err := uuid.Parse(courseID)
	if err != nil {
		return ErrCourseNotFound
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()

	err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := cs.courseRepo.GetByIDs(ctx, tx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		if len(rows) == 0 || rows[0] == nil {
			return ErrCourseNotFound
		}
		return cs.courseRepo.SoftDeleteByIDs(ctx, tx, []uuid.UUID{id})
	})
	if err != nil {
		return err
	}
	if cs.cache != nil {
		if err := cs.cache.Delete(ctx, courseID); err != nil {
			cs.log.Warn("course cache evict failed", "course_id", courseID, "error", err)
		}
	}
	cs.log.Info("course deleted", "course_id", courseID)
	return nil
}

// mutate loads the course from the database (never the cache), applies fn and
// writes the new outline back.
func (cs *courseService) mutate(ctx context.Context, courseID string, fn func(*domain.Course) error) (*domain.Course, error) {
	id, err := uuid.Parse(courseID)
	if err != nil {
		return nil, ErrCourseNotFound
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()

	var course *domain.Course
	err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := cs.courseRepo.GetByIDs(ctx, tx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		if len(rows) == 0 || rows[0] == nil {
			return ErrCourseNotFound
		}
		course, err = rows[0].ToDomain()
		if err != nil {
			return err
		}
		if err := fn(course); err != nil {
			return err
		}
		topics, err := types.NewTopicRecords(id, course.Topics)
		if err != nil {
			return err
		}
		return cs.courseRepo.ReplaceTopics(ctx, tx, id, topics)
	})
	if err != nil {
		return nil, err
	}
	cs.cachePut(ctx, course)
	return course, nil
}

func (cs *courseService) cachePut(ctx context.Context, c *domain.Course) {
	if cs.cache == nil || c == nil {
		return
	}
	if err := cs.cache.Set(ctx, c); err != nil {
		cs.log.Warn("course cache write failed", "course_id", c.ID, "error", err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
