package app

import (
	"fmt"

	"github.com/yungbote/lectureplanner-backend/internal/config"
	"github.com/yungbote/lectureplanner-backend/internal/data/db"
	apphttp "github.com/yungbote/lectureplanner-backend/internal/http"
	httpH "github.com/yungbote/lectureplanner-backend/internal/http/handlers"
	"github.com/yungbote/lectureplanner-backend/internal/platform/logger"
)

type Handlers struct {
	Health *httpH.HealthHandler
	Course *httpH.CourseHandler
}

func wireHandlers(log *logger.Logger, dbs *db.Service, serviceset Services) (Handlers, error) {
	log.Info("Wiring handlers...")
	sqlDB, err := dbs.DB().DB()
	if err != nil {
		return Handlers{}, fmt.Errorf("database handle: %w", err)
	}
	return Handlers{
		Health: httpH.NewHealthHandler(sqlDB),
		Course: httpH.NewCourseHandler(log, serviceset.Course),
	}, nil
}

func wireServer(log *logger.Logger, cfg *config.Config, handlers Handlers) *apphttp.Server {
	serviceName := ""
	if cfg.Telemetry.Enabled {
		serviceName = cfg.Telemetry.ServiceName
	}
	return apphttp.NewServer(
		apphttp.ServerConfig{
			Addr:         cfg.HTTP.Addr,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		},
		apphttp.RouterConfig{
			Log:           log,
			ServiceName:   serviceName,
			CORSOrigins:   cfg.HTTP.Origins(),
			MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
			CourseHandler: handlers.Course,
			HealthHandler: handlers.Health,
		},
	)
}
