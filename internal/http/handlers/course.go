package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lectureplanner-backend/internal/domain"
	"github.com/yungbote/lectureplanner-backend/internal/http/response"
	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/prompts"
	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/validation"
	"github.com/yungbote/lectureplanner-backend/internal/platform/apierr"
	"github.com/yungbote/lectureplanner-backend/internal/platform/ctxutil"
	"github.com/yungbote/lectureplanner-backend/internal/platform/logger"
	"github.com/yungbote/lectureplanner-backend/internal/services"
)

const multipartMemory = 8 << 20

type CourseHandler struct {
	log           *logger.Logger
	courseService services.CourseService
}

func NewCourseHandler(log *logger.Logger, courseService services.CourseService) *CourseHandler {
	return &CourseHandler{
		log:           log.With("handler", "CourseHandler"),
		courseService: courseService,
	}
}

type processSyllabusRequest struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	Role   string `json:"role"`
}

type ingestResponse struct {
	Result   string                     `json:"result"`
	Parsed   validation.Reply           `json:"parsed"`
	Course   *domain.Course             `json:"course"`
	Stats    domain.Stats               `json:"stats"`
	Tree     validation.InvariantReport `json:"tree"`
	RunID    string                     `json:"runId"`
	Model    string                     `json:"model,omitempty"`
	Usage    json.RawMessage            `json:"usage,omitempty"`
	Attempts int                        `json:"attempts"`
}

type courseResponse struct {
	Course *domain.Course `json:"course"`
	Stats  domain.Stats   `json:"stats"`
}

func (h *CourseHandler) fail(c *gin.Context, op string, err error) {
	ae := toAPIError(err)
	fields := append([]interface{}{"op", op, "error", err, "status", ae.Status, "code", ae.Code}, ctxutil.LogFields(c.Request.Context())...)
	if ae.Status >= http.StatusInternalServerError {
		h.log.Error("course request failed", fields...)
	} else {
		h.log.Warn("course request rejected", fields...)
	}
	_ = c.Error(err)
	response.RespondAPIError(c, ae)
}

// ListCourses answers GET /api/courses.
func (h *CourseHandler) ListCourses(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	courses, err := h.courseService.ListCourses(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, "list_courses", err)
		return
	}
	response.RespondOK(c, gin.H{"message": "Courses endpoint", "courses": courses})
}

// ProcessSyllabus answers POST /api/courses/process-syllabus.
func (h *CourseHandler) ProcessSyllabus(c *gin.Context) {
	var req processSyllabusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, "process_syllabus", bindError(err))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		h.fail(c, "process_syllabus", apierr.BadRequest("invalid_input", errors.New("content is required")))
		return
	}
	h.ingest(c, services.SourceSyllabus, []byte(req.Content), req.Role)
}

// Generate answers POST /api/courses/generate with a free-form description.
func (h *CourseHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, "generate", bindError(err))
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		h.fail(c, "generate", apierr.BadRequest("invalid_input", errors.New("prompt is required")))
		return
	}
	h.ingest(c, services.SourceDescription, []byte(req.Prompt), req.Role)
}

// Upload answers POST /api/courses/upload with a multipart "file" field.
func (h *CourseHandler) Upload(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		h.fail(c, "upload", bindError(err))
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		h.fail(c, "upload", apierr.BadRequest("invalid_input", errors.New("file is required")))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, "upload", apierr.BadRequest("invalid_input", err))
		return
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		h.fail(c, "upload", err)
		return
	}
	h.ingest(c, services.SourceUpload, raw, c.PostForm("role"))
}

func (h *CourseHandler) ingest(c *gin.Context, source string, content []byte, rawRole string) {
	role, err := prompts.ParseRole(rawRole)
	if err != nil {
		h.fail(c, source, apierr.BadRequest("invalid_role", err))
		return
	}
	res, err := h.courseService.Ingest(c.Request.Context(), services.IngestRequest{
		Source:  source,
		Content: content,
		Role:    role,
	})
	if err != nil {
		h.fail(c, source, err)
		return
	}
	response.RespondOK(c, ingestResponse{
		Result:   res.RawReply,
		Parsed:   validation.ReplyFromCourse(res.Course),
		Course:   res.Course,
		Stats:    res.Stats,
		Tree:     res.Tree,
		RunID:    res.RunID.String(),
		Model:    res.Model,
		Usage:    res.Usage,
		Attempts: res.Attempts,
	})
}

// GetCourse answers GET /api/courses/:id.
func (h *CourseHandler) GetCourse(c *gin.Context) {
	course, err := h.courseService.GetCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get_course", err)
		return
	}
	response.RespondOK(c, courseResponse{Course: course, Stats: course.Stats()})
}

// AddTopic answers POST /api/courses/:id/topics.
func (h *CourseHandler) AddTopic(c *gin.Context) {
	var t domain.Topic
	if err := c.ShouldBindJSON(&t); err != nil {
		h.fail(c, "add_topic", bindError(err))
		return
	}
	course, added, err := h.courseService.AddTopic(c.Request.Context(), c.Param("id"), t)
	if err != nil {
		h.fail(c, "add_topic", err)
		return
	}
	response.RespondCreated(c, gin.H{"topic": added, "course": course, "stats": course.Stats()})
}

// UpdateTopic answers PATCH /api/courses/:id/topics/:topicId.
func (h *CourseHandler) UpdateTopic(c *gin.Context) {
	var patch domain.TopicPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.fail(c, "update_topic", bindError(err))
		return
	}
	course, updated, err := h.courseService.UpdateTopic(c.Request.Context(), c.Param("id"), c.Param("topicId"), patch)
	if err != nil {
		h.fail(c, "update_topic", err)
		return
	}
	response.RespondOK(c, gin.H{"topic": updated, "course": course, "stats": course.Stats()})
}

// RemoveTopic answers DELETE /api/courses/:id/topics/:topicId.
func (h *CourseHandler) RemoveTopic(c *gin.Context) {
	course, removed, err := h.courseService.RemoveTopic(c.Request.Context(), c.Param("id"), c.Param("topicId"))
	if err != nil {
		h.fail(c, "remove_topic", err)
		return
	}
	response.RespondOK(c, gin.H{"removed": removed, "course": course, "stats": course.Stats()})
}

// DeleteCourse soft-deletes a course and its outline.
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	if err := h.courseService.DeleteCourse(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "delete_course", err)
		return
	}
	response.RespondNoContent(c)
}

func bindError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return err
	}
	return apierr.BadRequest("invalid_request", err)
}
