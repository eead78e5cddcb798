package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/lectureplanner-backend/internal/domain"
	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/prompts"
	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/sanitize"
	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/validation"
	"github.com/yungbote/lectureplanner-backend/internal/platform/ctxutil"
	"github.com/yungbote/lectureplanner-backend/internal/platform/logger"
	"github.com/yungbote/lectureplanner-backend/internal/platform/openrouter"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = time.Second
	rawLogLimit        = 500
)

// Provider is the chat-completions surface the pipeline drives.
type Provider interface {
	Complete(ctx context.Context, r openrouter.Request) (*openrouter.Completion, error)
	Host() string
	Model() string
}

// Resolver performs the pre-flight DNS check. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Sleeper waits d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type Config struct {
	MaxAttempts      int
	Backoff          time.Duration
	ParseBudget      int
	StrictTree       bool
	StrictSanitize   bool
	StructuredOutput bool
	Model            string
}

type Request struct {
	SourceText string
	Role       prompts.Role
	APIKey     string
}

type Result struct {
	RawReply string
	Course   *domain.Course
	Tree     validation.InvariantReport
	Role     prompts.Role
	Model    string
	Usage    json.RawMessage
	Attempts int
	Retries  int
}

// Pipeline runs prompt -> provider -> sanitize -> validate with a bounded
// number of full round trips. It holds no per-request state and is safe for
// concurrent use.
type Pipeline struct {
	log      *logger.Logger
	provider Provider
	resolver Resolver
	sleep    Sleeper
	tracer   trace.Tracer
	cfg      Config
}

type Option func(*Pipeline)

func WithResolver(r Resolver) Option { return func(p *Pipeline) { p.resolver = r } }

func WithSleeper(s Sleeper) Option { return func(p *Pipeline) { p.sleep = s } }

func WithTracer(t trace.Tracer) Option { return func(p *Pipeline) { p.tracer = t } }

func New(log *logger.Logger, provider Provider, cfg Config, opts ...Option) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	// Zero disables the wait between attempts.
	if cfg.Backoff < 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.ParseBudget < 1 {
		cfg.ParseBudget = validation.DefaultParseBudget
	}
	p := &Pipeline{
		log:      log.With("service", "IngestionPipeline"),
		provider: provider,
		resolver: net.DefaultResolver,
		sleep:    sleepCtx,
		tracer:   otel.Tracer("lectureplanner/ingestion"),
		cfg:      cfg,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// FetchStructuredCourse turns source text into a validated course.
func (p *Pipeline) FetchStructuredCourse(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return nil, &ConfigurationError{Reason: "provider API key is not set"}
	}
	if p.provider == nil {
		return nil, &ConfigurationError{Reason: "no provider configured"}
	}
	role := req.Role
	if role == "" {
		role = prompts.RoleTeacher
	}
	prompt, err := prompts.Build(req.SourceText, role)
	if err != nil {
		return nil, &InputError{Err: err}
	}

	ctx, span := p.tracer.Start(ctx, "ingestion.fetch_structured_course", trace.WithAttributes(
		attribute.String("role", string(role)),
		attribute.Int("source_bytes", len(req.SourceText)),
		attribute.Int("max_attempts", p.cfg.MaxAttempts),
	))
	defer span.End()

	log := p.log.With(ctxutil.LogFields(ctx)...).With("role", role)

	var lastErr error
	attempt := 0
	for attempt < p.cfg.MaxAttempts {
		if attempt > 0 {
			if err := p.sleep(ctx, p.cfg.Backoff); err != nil {
				lastErr = fmt.Errorf("waiting to retry: %w", err)
				break
			}
		}
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		attempt++

		res, err := p.attempt(ctx, log, attempt, prompt, req.APIKey)
		if err == nil {
			res.Role = role
			res.Attempts = attempt
			res.Retries = attempt - 1
			span.SetAttributes(attribute.Int("attempts", attempt), attribute.String("model", res.Model))
			log.Info("course ingested", "attempts", attempt, "model", res.Model, "topics", len(res.Course.Topics))
			return res, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}

	if ac, ok := lastErr.(attemptCounter); ok {
		ac.setAttempts(attempt)
	}
	span.SetAttributes(attribute.Int("attempts", attempt), attribute.String("error.kind", Kind(lastErr)))
	span.SetStatus(codes.Error, lastErr.Error())
	log.Error("course ingestion failed", "attempts", attempt, "kind", Kind(lastErr), "error", lastErr)
	return nil, lastErr
}

func (p *Pipeline) attempt(ctx context.Context, log *logger.Logger, n int, prompt, apiKey string) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "ingestion.attempt", trace.WithAttributes(attribute.Int("attempt", n)))
	defer span.End()
	log = log.With("attempt", n, "max_attempts", p.cfg.MaxAttempts)

	host := p.provider.Host()
	if addrs, err := p.resolver.LookupHost(ctx, host); err != nil || len(addrs) == 0 {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err == nil {
			err = errors.New("no addresses")
		}
		log.Warn("provider DNS check failed", "host", host, "error", err)
		span.SetStatus(codes.Error, "dns")
		return nil, &ConnectivityError{Host: host, Stage: "dns", Err: err}
	}

	creq := openrouter.Request{APIKey: apiKey, Model: p.cfg.Model, Prompt: prompt}
	if p.cfg.StructuredOutput {
		creq.ResponseFormat = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   prompts.SchemaName,
				"strict": false,
				"schema": prompts.Schema(),
			},
		}
	}
	start := time.Now()
	completion, err := p.provider.Complete(ctx, creq)
	if err != nil {
		classified := classifyProviderError(ctx, host, err)
		fields := []interface{}{"error", err, "duration_ms", time.Since(start).Milliseconds()}
		var ue *UpstreamError
		if errors.As(classified, &ue) {
			fields = append(fields, "status", ue.StatusCode, "body", ue.Body)
		}
		log.Warn("provider call failed", fields...)
		span.SetStatus(codes.Error, Kind(classified))
		return nil, classified
	}
	span.SetAttributes(attribute.String("model", completion.Model), attribute.Int("reply_bytes", len(completion.Content)))

	var sanitized string
	if p.cfg.StrictSanitize {
		sanitized = sanitize.Strict(completion.Content)
	} else {
		sanitized = sanitize.Simple(completion.Content)
	}
	out, err := validation.ValidateWithOptions(sanitized, validation.Options{
		ParseBudget: p.cfg.ParseBudget,
		StrictTree:  p.cfg.StrictTree,
	})
	if err != nil {
		fields := []interface{}{"error", err, "raw_head", head(completion.Content, rawLogLimit)}
		var pe *validation.ParseError
		if errors.As(err, &pe) {
			fields = append(fields, "offset", pe.Offset, "snippet", pe.Snippet)
		}
		if out != nil {
			fields = append(fields, "parses", out.Parses)
		}
		log.Warn("model reply rejected", fields...)
		span.SetStatus(codes.Error, "validation")
		return nil, &ValidationError{Err: err}
	}
	if out.Tree.Status != validation.StatusPass {
		log.Warn("topic tree inconsistent, accepted in lenient mode", "reason", out.Tree.Reason, "failed", out.Tree.Failed())
	}

	model := completion.Model
	if model == "" {
		model = p.provider.Model()
	}
	return &Result{
		RawReply: completion.Content,
		Course:   out.Course,
		Tree:     out.Tree,
		Model:    model,
		Usage:    completion.Usage,
	}, nil
}

// classifyProviderError maps a provider failure onto the pipeline's error
// kinds. A deadline only ends the run when the caller's ctx is done; a
// per-call timeout inside the provider is a retryable connectivity failure.
func classifyProviderError(ctx context.Context, host string, err error) error {
	var (
		he *openrouter.HTTPError
		te *openrouter.TransportError
	)
	ctxErr := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	switch {
	case ctxErr && ctx.Err() != nil:
		return err
	case ctxErr:
		return &ConnectivityError{Host: host, Stage: "timeout", Err: err}
	case errors.Is(err, openrouter.ErrMissingAPIKey):
		return &ConfigurationError{Reason: err.Error()}
	case errors.As(err, &he):
		return &UpstreamError{StatusCode: he.StatusCode, Body: he.Body, Err: err}
	case errors.As(err, &te):
		return &ConnectivityError{Host: host, Stage: "transport", Err: err}
	default:
		return &UpstreamError{Err: err}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
