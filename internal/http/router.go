package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/lectureplanner-backend/internal/http/handlers"
	httpMW "github.com/yungbote/lectureplanner-backend/internal/http/middleware"
	"github.com/yungbote/lectureplanner-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log          *logger.Logger
	ServiceName  string
	CORSOrigins  []string
	MaxBodyBytes int64

	CourseHandler *httpH.CourseHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	api.Use(httpMW.BodyLimit(cfg.MaxBodyBytes))
	{
		// Courses
		if cfg.CourseHandler != nil {
			api.GET("/courses", cfg.CourseHandler.ListCourses)
			api.POST("/courses/process-syllabus", cfg.CourseHandler.ProcessSyllabus)
			api.POST("/courses/upload", cfg.CourseHandler.Upload)
			api.POST("/courses/generate", cfg.CourseHandler.Generate)
			api.GET("/courses/:id", cfg.CourseHandler.GetCourse)
			api.DELETE("/courses/:id", cfg.CourseHandler.DeleteCourse)
			api.POST("/courses/:id/topics", cfg.CourseHandler.AddTopic)
			api.PATCH("/courses/:id/topics/:topicId", cfg.CourseHandler.UpdateTopic)
			api.DELETE("/courses/:id/topics/:topicId", cfg.CourseHandler.RemoveTopic)
		}
	}

	return r
}
