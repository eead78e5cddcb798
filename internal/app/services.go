package app

import (
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/lectureplanner-backend/internal/config"
	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/ingestion"
	"github.com/yungbote/lectureplanner-backend/internal/platform/logger"
	"github.com/yungbote/lectureplanner-backend/internal/services"
)

type Services struct {
	Pipeline *ingestion.Pipeline
	Course   services.CourseService
}

// NewPipeline builds the retrying ingestion pipeline from the LLM settings.
func NewPipeline(log *logger.Logger, cfg config.LLMConfig, provider ingestion.Provider) *ingestion.Pipeline {
	return ingestion.New(log, provider, ingestion.Config{
		MaxAttempts:      cfg.MaxAttempts,
		Backoff:          cfg.Backoff,
		ParseBudget:      cfg.ParseBudget,
		StrictTree:       cfg.StrictTree,
		StrictSanitize:   cfg.StrictSanitize,
		StructuredOutput: cfg.StructuredOutput,
		Model:            cfg.Model,
	})
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg *config.Config, clients Clients, reposet Repos) Services {
	log.Info("Wiring services...")

	pipeline := NewPipeline(log, cfg.LLM, clients.Provider)

	apiKey := ProviderAPIKey(cfg.LLM)
	if strings.TrimSpace(apiKey) == "" {
		log.Warn("OPENROUTER_API_KEY is not set, ingestion requests will fail until it is configured")
	}

	course := services.NewCourseService(
		db,
		log,
		pipeline,
		reposet.Course,
		reposet.GenerationRun,
		clients.Cache,
		services.CourseServiceConfig{
			APIKey:         apiKey,
			Timeout:        cfg.Ingest.Timeout,
			MaxSourceBytes: cfg.Ingest.MaxSourceBytes,
		},
	)

	return Services{Pipeline: pipeline, Course: course}
}
