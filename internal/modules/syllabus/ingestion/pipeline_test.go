package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/prompts"
	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/validation"
	"github.com/yungbote/lectureplanner-backend/internal/platform/openrouter"
)

const validReply = `{
  "courseTitle": "Intro to Databases",
  "topics": [
    {"id": "1", "title": "Relational model", "depth": 1, "parentId": null},
    {"id": "1.1", "title": "Keys", "depth": 2, "parentId": "1"}
  ]
}`

type step struct {
	content string
	err     error
}

type fakeProvider struct {
	mu    sync.Mutex
	steps []step
	calls int
	reqs  []openrouter.Request
}

func (f *fakeProvider) Host() string  { return "openrouter.test" }
func (f *fakeProvider) Model() string { return "test/model" }

func (f *fakeProvider) Complete(ctx context.Context, r openrouter.Request) (*openrouter.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, r)
	i := f.calls
	f.calls++
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	s := f.steps[i]
	if s.err != nil {
		return nil, s.err
	}
	return &openrouter.Completion{Model: "test/model-served", Content: s.content, Usage: []byte(`{"total_tokens":42}`)}, nil
}

type fakeResolver struct {
	fail  bool
	calls int
}

func (r *fakeResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	r.calls++
	if r.fail {
		return nil, errors.New("no such host")
	}
	return []string{"127.0.0.1"}, nil
}

type countingSleeper struct {
	waits []time.Duration
}

func (s *countingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func newTestPipeline(p Provider, r Resolver, s *countingSleeper) *Pipeline {
	return New(nil, p, Config{
		MaxAttempts:    3,
		Backoff:        time.Second,
		ParseBudget:    3,
		StrictTree:     true,
		StrictSanitize: true,
	}, WithResolver(r), WithSleeper(s.sleep))
}

func TestFetchAllDNSFailures(t *testing.T) {
	prov := &fakeProvider{steps: []step{{content: validReply}}}
	res := &fakeResolver{fail: true}
	sl := &countingSleeper{}

	_, err := newTestPipeline(prov, res, sl).FetchStructuredCourse(context.Background(), Request{
		SourceText: "Week 1: SQL", Role: prompts.RoleTeacher, APIKey: "sk-test",
	})

	var ce *ConnectivityError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, 3, ce.Attempts)
	require.Equal(t, "dns", ce.Stage)
	require.Equal(t, "openrouter.test", ce.Host)
	require.Equal(t, 3, res.calls)
	require.Len(t, sl.waits, 2)
	require.Equal(t, time.Second, sl.waits[0])
	require.Zero(t, prov.calls)
	require.Equal(t, KindConnectivity, Kind(err))
}

func TestFetchRetriesAfterServerError(t *testing.T) {
	prov := &fakeProvider{steps: []step{
		{err: &openrouter.HTTPError{StatusCode: 500, Body: "boom"}},
		{content: "```json\n" + validReply + "\n```"},
	}}
	sl := &countingSleeper{}

	out, err := newTestPipeline(prov, &fakeResolver{}, sl).FetchStructuredCourse(context.Background(), Request{
		SourceText: "Week 1: SQL", Role: prompts.RoleStudent, APIKey: "sk-test",
	})
	require.NoError(t, err)
	require.Equal(t, 2, out.Attempts)
	require.Equal(t, 1, out.Retries)
	require.Len(t, sl.waits, 1)
	require.Equal(t, 2, prov.calls)
	require.Equal(t, "Intro to Databases", out.Course.Title)
	require.Len(t, out.Course.Topics, 2)
	require.Equal(t, "test/model-served", out.Model)
	require.JSONEq(t, `{"total_tokens":42}`, string(out.Usage))
	require.Equal(t, prompts.RoleStudent, out.Role)
	require.True(t, strings.HasPrefix(out.RawReply, "```json"))
}

func TestFetchMissingKey(t *testing.T) {
	prov := &fakeProvider{steps: []step{{content: validReply}}}
	res := &fakeResolver{}
	sl := &countingSleeper{}

	_, err := newTestPipeline(prov, res, sl).FetchStructuredCourse(context.Background(), Request{
		SourceText: "Week 1", APIKey: "  ",
	})
	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	require.Zero(t, ce.Attempts)
	require.Zero(t, res.calls)
	require.Zero(t, prov.calls)
	require.Empty(t, sl.waits)
}

func TestFetchEmptySourceIsInputError(t *testing.T) {
	prov := &fakeProvider{steps: []step{{content: validReply}}}
	_, err := newTestPipeline(prov, &fakeResolver{}, &countingSleeper{}).FetchStructuredCourse(context.Background(), Request{
		SourceText: "   ", APIKey: "sk-test",
	})
	require.Equal(t, KindInput, Kind(err))
	require.Zero(t, prov.calls)
}

func TestFetchValidationFailureRetriesThenSucceeds(t *testing.T) {
	prov := &fakeProvider{steps: []step{
		{content: `{"courseTitle": "X", "topics": [{"id": "a", "title": "Child", "depth": 2, "parentId": "z"}]}`},
		{content: `{"courseTitle": "X", "topics": [{"id": "a", "title": "Root", "depth": 1,},],}`},
	}}
	out, err := newTestPipeline(prov, &fakeResolver{}, &countingSleeper{}).FetchStructuredCourse(context.Background(), Request{
		SourceText: "Week 1", APIKey: "sk-test",
	})
	require.NoError(t, err)
	require.Equal(t, "X", out.Course.Title)
	require.Equal(t, 1, out.Retries)
}

func TestFetchValidationExhausted(t *testing.T) {
	prov := &fakeProvider{steps: []step{
		{content: `{"courseTitle": "X", "topics": [{"id": "a", "title": "Child", "depth": 2, "parentId": "z"}]}`},
	}}
	sl := &countingSleeper{}
	_, err := newTestPipeline(prov, &fakeResolver{}, sl).FetchStructuredCourse(context.Background(), Request{
		SourceText: "Week 1", APIKey: "sk-test",
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, 3, ve.Attempts)
	require.NotNil(t, ve.SchemaError())
	require.Contains(t, err.Error(), "no root topics")
	require.Equal(t, 3, prov.calls)
	require.Len(t, sl.waits, 2)
}

func TestFetchUpstreamExhaustedKeepsTruncatedBody(t *testing.T) {
	body := strings.Repeat("e", openrouter.MaxErrorBody)
	prov := &fakeProvider{steps: []step{{err: &openrouter.HTTPError{StatusCode: 502, Body: body}}}}
	_, err := newTestPipeline(prov, &fakeResolver{}, &countingSleeper{}).FetchStructuredCourse(context.Background(), Request{
		SourceText: "Week 1", APIKey: "sk-test",
	})
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	require.Equal(t, 502, ue.StatusCode)
	require.Len(t, ue.Body, openrouter.MaxErrorBody)
	require.Equal(t, 3, ue.Attempts)
}

func TestFetchTransportErrorIsConnectivity(t *testing.T) {
	prov := &fakeProvider{steps: []step{{err: &openrouter.TransportError{Err: errors.New("reset")}}}}
	_, err := newTestPipeline(prov, &fakeResolver{}, &countingSleeper{}).FetchStructuredCourse(context.Background(), Request{
		SourceText: "Week 1", APIKey: "sk-test",
	})
	var ce *ConnectivityError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "transport", ce.Stage)
	require.Equal(t, 3, prov.calls)
}

func TestFetchPerCallTimeoutIsRetried(t *testing.T) {
	prov := &fakeProvider{steps: []step{
		{err: &openrouter.TransportError{Err: context.DeadlineExceeded}},
		{content: validReply},
	}}
	out, err := newTestPipeline(prov, &fakeResolver{}, &countingSleeper{}).FetchStructuredCourse(context.Background(), Request{
		SourceText: "Week 1", APIKey: "sk-test",
	})
	require.NoError(t, err)
	require.Equal(t, 2, out.Attempts)
	require.Equal(t, 2, prov.calls)
}

func TestFetchPerCallTimeoutsExhaustBudget(t *testing.T) {
	prov := &fakeProvider{steps: []step{{err: &openrouter.TransportError{Err: context.DeadlineExceeded}}}}
	_, err := newTestPipeline(prov, &fakeResolver{}, &countingSleeper{}).FetchStructuredCourse(context.Background(), Request{
		SourceText: "Week 1", APIKey: "sk-test",
	})
	var ce *ConnectivityError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "timeout", ce.Stage)
	require.Equal(t, 3, ce.Attempts)
	require.Equal(t, KindConnectivity, Kind(err))
	require.Equal(t, 3, prov.calls)
}

func TestFetchRetriesSlowProviderCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(300 * time.Millisecond):
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   "test/model",
			"choices": []map[string]any{{"message": map[string]any{"content": validReply}}},
		})
	}))
	defer srv.Close()

	client, err := openrouter.New(openrouter.Config{BaseURL: srv.URL, Model: "test/model", Timeout: 100 * time.Millisecond})
	require.NoError(t, err)
	p := New(nil, client, Config{MaxAttempts: 3}, WithResolver(&fakeResolver{}), WithSleeper((&countingSleeper{}).sleep))

	out, err := p.FetchStructuredCourse(context.Background(), Request{SourceText: "Week 1", APIKey: "sk-test"})
	require.NoError(t, err)
	require.Equal(t, 2, out.Attempts)
	require.EqualValues(t, 2, calls.Load())
}

func TestFetchDuplicateTopicIDsRejectedInLenientMode(t *testing.T) {
	dup := `{"courseTitle":"X","topics":[{"id":"1","title":"A","depth":1},{"id":"1","title":"B","depth":1}]}`
	prov := &fakeProvider{steps: []step{{content: dup}, {content: validReply}}}
	p := New(nil, prov, Config{MaxAttempts: 3}, WithResolver(&fakeResolver{}), WithSleeper((&countingSleeper{}).sleep))

	out, err := p.FetchStructuredCourse(context.Background(), Request{SourceText: "Week 1", APIKey: "sk-test"})
	require.NoError(t, err)
	require.Equal(t, 2, out.Attempts)

	prov = &fakeProvider{steps: []step{{content: dup}}}
	p = New(nil, prov, Config{MaxAttempts: 2}, WithResolver(&fakeResolver{}), WithSleeper((&countingSleeper{}).sleep))
	_, err = p.FetchStructuredCourse(context.Background(), Request{SourceText: "Week 1", APIKey: "sk-test"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	var te *validation.TreeError
	require.ErrorAs(t, err, &te)
	require.Equal(t, validation.CheckDuplicateIDs, te.Report.Reason)
	require.Equal(t, 2, prov.calls)
}

func TestFetchCanceledContextStopsRetrying(t *testing.T) {
	prov := &fakeProvider{steps: []step{{err: &openrouter.HTTPError{StatusCode: 500, Body: "x"}}}}
	ctx, cancel := context.WithCancel(context.Background())
	sl := &countingSleeper{}
	p := New(nil, prov, Config{MaxAttempts: 3}, WithResolver(&fakeResolver{}), WithSleeper(func(c context.Context, d time.Duration) error {
		cancel()
		return sl.sleep(c, d)
	}))

	_, err := p.FetchStructuredCourse(ctx, Request{SourceText: "Week 1", APIKey: "sk-test"})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, KindCanceled, Kind(err))
	require.Equal(t, 1, prov.calls)
}

func TestFetchStructuredOutputSendsSchema(t *testing.T) {
	prov := &fakeProvider{steps: []step{{content: validReply}}}
	p := New(nil, prov, Config{StructuredOutput: true, Model: "override/model"}, WithResolver(&fakeResolver{}), WithSleeper((&countingSleeper{}).sleep))
	_, err := p.FetchStructuredCourse(context.Background(), Request{SourceText: "Week 1", APIKey: "sk-test"})
	require.NoError(t, err)
	require.Len(t, prov.reqs, 1)
	r := prov.reqs[0]
	require.Equal(t, "override/model", r.Model)
	require.Equal(t, "json_schema", r.ResponseFormat["type"])
	require.Contains(t, r.Prompt, "Week 1")
}

func TestFetchWithMockProvider(t *testing.T) {
	p := New(nil, openrouter.NewMock(), Config{StrictTree: true, StrictSanitize: true}, WithResolver(&fakeResolver{}))
	out, err := p.FetchStructuredCourse(context.Background(), Request{SourceText: "Algebra\nGeometry", APIKey: "mock"})
	require.NoError(t, err)
	require.Equal(t, "Algebra", out.Course.Title)
	require.Len(t, out.Course.Roots(), 2)
	require.Equal(t, 0, out.Retries)
}
