package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/lectureplanner-backend/internal/domain"
	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/ingestion"
	"github.com/yungbote/lectureplanner-backend/internal/platform/logger"
	"github.com/yungbote/lectureplanner-backend/internal/services"
)

type fakeCourseService struct {
	ingestErr error
	lastReq   services.IngestRequest
	course    *domain.Course
}

func (f *fakeCourseService) Ingest(ctx context.Context, req services.IngestRequest) (*services.IngestResult, error) {
	f.lastReq = req
	if f.ingestErr != nil {
		return nil, f.ingestErr
	}
	return &services.IngestResult{
		RunID:    uuid.New(),
		Course:   f.course,
		Stats:    f.course.Stats(),
		RawReply: "```json\n{}\n```",
		Model:    "test/model",
		Usage:    json.RawMessage(`{"total_tokens":3}`),
		Attempts: 1,
	}, nil
}

func (f *fakeCourseService) GetCourse(ctx context.Context, id string) (*domain.Course, error) {
	if id != f.course.ID {
		return nil, services.ErrCourseNotFound
	}
	return f.course, nil
}

func (f *fakeCourseService) ListCourses(ctx context.Context, limit, offset int) ([]services.CourseSummary, error) {
	return []services.CourseSummary{{ID: f.course.ID, Title: f.course.Title, Role: "teacher"}}, nil
}

func (f *fakeCourseService) AddTopic(ctx context.Context, courseID string, t domain.Topic) (*domain.Course, domain.Topic, error) {
	added, err := f.course.AddTopic(t)
	return f.course, added, err
}

func (f *fakeCourseService) UpdateTopic(ctx context.Context, courseID, topicID string, p domain.TopicPatch) (*domain.Course, domain.Topic, error) {
	updated, err := f.course.UpdateTopic(topicID, p)
	return f.course, updated, err
}

func (f *fakeCourseService) RemoveTopic(ctx context.Context, courseID, topicID string) (*domain.Course, []string, error) {
	removed, err := f.course.RemoveTopic(topicID)
	return f.course, removed, err
}

func (f *fakeCourseService) DeleteCourse(ctx context.Context, courseID string) error {
	if f.course == nil || courseID != f.course.ID {
		return services.ErrCourseNotFound
	}
	f.course = nil
	return nil
}

func newTestRouter(svc services.CourseService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewCourseHandler(logger.Nop(), svc)
	r := gin.New()
	r.POST("/api/courses/process-syllabus", h.ProcessSyllabus)
	r.POST("/api/courses/generate", h.Generate)
	r.POST("/api/courses/upload", h.Upload)
	r.GET("/api/courses", h.ListCourses)
	r.GET("/api/courses/:id", h.GetCourse)
	r.DELETE("/api/courses/:id", h.DeleteCourse)
	r.POST("/api/courses/:id/topics", h.AddTopic)
	r.PATCH("/api/courses/:id/topics/:topicId", h.UpdateTopic)
	r.DELETE("/api/courses/:id/topics/:topicId", h.RemoveTopic)
	return r
}

func sampleCourse() *domain.Course {
	return &domain.Course{
		ID:    "7f1c2a9e-0000-4000-8000-000000000001",
		Title: "Statistics",
		Topics: []domain.Topic{
			{ID: "1", Title: "Descriptive", Depth: 1},
			{ID: "1.1", Title: "Mean", Depth: 2, ParentID: domain.StringPtr("1")},
		},
	}
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var e errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return e
}

func TestProcessSyllabus(t *testing.T) {
	svc := &fakeCourseService{course: sampleCourse()}
	r := newTestRouter(svc)

	rec := doJSON(r, http.MethodPost, "/api/courses/process-syllabus", map[string]string{"content": "Week 1", "role": "student"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var out struct {
		Result string `json:"result"`
		Parsed struct {
			CourseTitle string `json:"courseTitle"`
		} `json:"parsed"`
		Course *domain.Course `json:"course"`
		Model  string         `json:"model"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Parsed.CourseTitle != "Statistics" || out.Course.ID == "" || out.Model != "test/model" || out.Result == "" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if svc.lastReq.Role != "student" || svc.lastReq.Source != services.SourceSyllabus || string(svc.lastReq.Content) != "Week 1" {
		t.Fatalf("unexpected ingest request: %+v", svc.lastReq)
	}
}

func TestProcessSyllabusValidation(t *testing.T) {
	r := newTestRouter(&fakeCourseService{course: sampleCourse()})

	rec := doJSON(r, http.MethodPost, "/api/courses/process-syllabus", map[string]string{"content": "  "})
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Error.Code != "invalid_input" {
		t.Fatalf("empty content: status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(r, http.MethodPost, "/api/courses/process-syllabus", map[string]string{"content": "x", "role": "dean"})
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Error.Code != "invalid_role" {
		t.Fatalf("bad role: status=%d body=%s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/courses/process-syllabus", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	bad := httptest.NewRecorder()
	r.ServeHTTP(bad, req)
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("malformed json: status=%d", bad.Code)
	}
}

func TestIngestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"config", &ingestion.ConfigurationError{Reason: "no key"}, http.StatusInternalServerError, "not_configured"},
		{"dns", &ingestion.ConnectivityError{Host: "openrouter.ai", Stage: "dns"}, http.StatusServiceUnavailable, "provider_unreachable"},
		{"upstream", &ingestion.UpstreamError{StatusCode: 500, Body: "secret upstream detail"}, http.StatusInternalServerError, "upstream_error"},
		{"validation", &ingestion.ValidationError{Err: context.Canceled}, http.StatusInternalServerError, "unparseable_reply"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&fakeCourseService{course: sampleCourse(), ingestErr: tc.err})
			rec := doJSON(r, http.MethodPost, "/api/courses/generate", map[string]string{"prompt": "A course on rocks"})
			if rec.Code != tc.status {
				t.Fatalf("status=%d want %d body=%s", rec.Code, tc.status, rec.Body.String())
			}
			e := decodeError(t, rec)
			if e.Error.Code != tc.code {
				t.Fatalf("code=%q want %q", e.Error.Code, tc.code)
			}
			if bytes.Contains(rec.Body.Bytes(), []byte("secret upstream detail")) {
				t.Fatalf("upstream body leaked to client")
			}
		})
	}
}

func TestUpload(t *testing.T) {
	svc := &fakeCourseService{course: sampleCourse()}
	r := newTestRouter(svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "syllabus.txt")
	_, _ = fw.Write([]byte("Week 1: Sampling"))
	_ = mw.WriteField("role", "teacher")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/courses/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if svc.lastReq.Source != services.SourceUpload || string(svc.lastReq.Content) != "Week 1: Sampling" {
		t.Fatalf("unexpected ingest request: %+v", svc.lastReq)
	}
}

func TestUploadMissingFile(t *testing.T) {
	r := newTestRouter(&fakeCourseService{course: sampleCourse()})
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("role", "teacher")
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/courses/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestCourseReadAndEdit(t *testing.T) {
	svc := &fakeCourseService{course: sampleCourse()}
	r := newTestRouter(svc)
	base := "/api/courses/" + svc.course.ID

	rec := doJSON(r, http.MethodGet, base, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status=%d", rec.Code)
	}
	var got struct {
		Stats domain.Stats `json:"stats"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Stats.TopicCount != 2 || got.Stats.TotalMinutes != 60 {
		t.Fatalf("unexpected stats: %+v", got.Stats)
	}

	if rec := doJSON(r, http.MethodGet, "/api/courses/"+uuid.NewString(), nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown course: status=%d", rec.Code)
	}

	rec = doJSON(r, http.MethodPost, base+"/topics", map[string]any{"title": "Median", "parentId": "1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = doJSON(r, http.MethodPost, base+"/topics", map[string]any{"title": "Orphan", "parentId": "nope"})
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Error.Code != "parent_not_found" {
		t.Fatalf("orphan: status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = doJSON(r, http.MethodPost, base+"/topics", map[string]any{"id": "1", "title": "Dup"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: status=%d", rec.Code)
	}

	rec = doJSON(r, http.MethodPatch, base+"/topics/1.1", map[string]any{"difficulty": 9})
	if rec.Code != http.StatusBadRequest || decodeError(t, rec).Error.Code != "invalid_topic" {
		t.Fatalf("bad patch: status=%d body=%s", rec.Code, rec.Body.String())
	}
	rec = doJSON(r, http.MethodPatch, base+"/topics/1.1", map[string]any{"title": "Arithmetic mean"})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: status=%d", rec.Code)
	}

	rec = doJSON(r, http.MethodDelete, base+"/topics/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status=%d", rec.Code)
	}
	if len(svc.course.Topics) != 0 {
		t.Fatalf("subtree not removed: %+v", svc.course.Topics)
	}
	rec = doJSON(r, http.MethodDelete, base+"/topics/1", nil)
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Error.Code != "topic_not_found" {
		t.Fatalf("delete missing: status=%d", rec.Code)
	}
}

func TestListCourses(t *testing.T) {
	r := newTestRouter(&fakeCourseService{course: sampleCourse()})
	rec := doJSON(r, http.MethodGet, "/api/courses?limit=5", nil)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`"Statistics"`)) {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestDeleteCourse(t *testing.T) {
	svc := &fakeCourseService{course: sampleCourse()}
	r := newTestRouter(svc)
	path := "/api/courses/" + svc.course.ID

	rec := doJSON(r, http.MethodDelete, path, nil)
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("delete: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if svc.course != nil {
		t.Fatalf("course not deleted")
	}

	rec = doJSON(r, http.MethodDelete, path, nil)
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Error.Code != "course_not_found" {
		t.Fatalf("delete again: status=%d body=%s", rec.Code, rec.Body.String())
	}
}
