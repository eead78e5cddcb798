package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/lectureplanner-backend/internal/config"
	apphttp "github.com/yungbote/lectureplanner-backend/internal/http"
	"github.com/yungbote/lectureplanner-backend/internal/observability"
	"github.com/yungbote/lectureplanner-backend/internal/platform/logger"
	"github.com/yungbote/lectureplanner-backend/internal/platform/shutdown"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

type App struct {
	Log      *logger.Logger
	Cfg      *config.Config
	Clients  Clients
	Repos    Repos
	Services Services
	Server   *apphttp.Server

	otelShutdown func(context.Context) error
}

// New loads configuration and builds the logger before wiring the rest.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := NewWithConfig(ctx, cfg, log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

func NewLogger(cfg config.LogConfig) (*logger.Logger, error) {
	return logger.NewWithOptions(logger.Options{
		Mode:          cfg.Mode,
		Level:         cfg.Level,
		DisableRedact: !cfg.Redact,
		HashSalt:      cfg.HashSalt,
	})
}

func NewWithConfig(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if strings.HasPrefix(strings.ToLower(cfg.Log.Mode), "prod") {
		gin.SetMode(gin.ReleaseMode)
	}

	otelShutdown := observability.InitOTel(ctx, log, cfg.Telemetry, Version)

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, err
	}
	reposet := wireRepos(clients.DB.DB(), log)
	serviceset := wireServices(clients.DB.DB(), log, cfg, clients, reposet)
	handlerset, err := wireHandlers(log, clients.DB, serviceset)
	if err != nil {
		clients.Close()
		_ = otelShutdown(ctx)
		return nil, err
	}

	return &App{
		Log:          log,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Server:       wireServer(log, cfg, handlerset),
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP until ctx is done, then drains in-flight requests within
// the configured shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return errors.New("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Log.Info("server listening", "addr", a.Cfg.HTTP.Addr)
		return a.Server.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Log.Info("shutting down server")
		sctx, cancel := shutdown.Grace(a.Cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return a.Server.Shutdown(sctx)
	})

	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		sctx, cancel := shutdown.Grace(a.Cfg.HTTP.ShutdownTimeout)
		if err := a.otelShutdown(sctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
		a.otelShutdown = nil
	}
	a.Clients.Close()
	if a.Log != nil {
		a.Log.Sync()
	}
}
