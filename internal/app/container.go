// Package app provides the session-scoped dependency container. The
// presentation layer constructs one Container per authenticated session and
// calls the services in-process; there is no command-line or HTTP surface.
package app

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"rapport-backend/internal/config"
	"rapport-backend/internal/domain"
	"rapport-backend/internal/infrastructure/observability"
	"rapport-backend/internal/infrastructure/persistence/supabase"
	"rapport-backend/internal/infrastructure/tracing"
	"rapport-backend/internal/repository"
	"rapport-backend/internal/service/guide"
	"rapport-backend/internal/service/llm"
	"rapport-backend/internal/service/notes"
)

// Container holds all session dependencies. Discarding the container and
// building a new one is the session reset point: cache, in-flight registry
// and the one-shot prefetch flag all start fresh.
type Container struct {
	Config        *config.Config
	ConfigWatcher *config.Watcher
	Logger        *zap.Logger
	Store         repository.RecordStore
	Generator     *llm.Client
	GuideService  *guide.Service
	NotesService  *notes.Service
	Metrics       *observability.Collector
	Tracing       *tracing.TracerProvider
}

// NewContainer wires a container for one session.
func NewContainer(cfg *config.Config, userID string, profile domain.UserProfile) (*Container, error) {
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	var collector *observability.Collector
	if cfg.Metrics.Enabled {
		collector = observability.NewCollector(cfg.Metrics.Namespace)
	}

	var tracerProvider *tracing.TracerProvider
	if cfg.Tracing.Enabled {
		tracerProvider, err = tracing.InitTracing(
			cfg.Tracing.ServiceName,
			string(cfg.Environment),
			cfg.Tracing.Endpoint,
			cfg.Tracing.SampleRate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to init tracing: %w", err)
		}
	}

	var store repository.RecordStore
	store, err = supabase.NewStore(cfg.Supabase, logger)
	if err != nil {
		return nil, err
	}
	if collector != nil {
		store = observability.MeterRecordStore(store, collector)
	}
	if tracerProvider != nil {
		store = tracing.TraceRecordStore(store, otel.Tracer("rapport-backend/store"))
	}

	client := llm.NewClient(cfg.Generation, logger)
	if collector != nil {
		client.SetStreamFragmentHook(collector.StreamFragments.Inc)
	}

	session := guide.Session{UserID: userID, Profile: profile}
	guideService := guide.NewService(session, store, client, logger,
		guide.WithMetrics(collector),
		guide.WithPrefetchConfig(cfg.Prefetch),
	)
	notesService := notes.NewService(userID, store, client, logger)

	// Hot reloading only runs in development; elsewhere the watcher is inert.
	watcher, err := config.NewWatcher(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}

	return &Container{
		Config:        cfg,
		ConfigWatcher: watcher,
		Logger:        logger,
		Store:         store,
		Generator:     client,
		GuideService:  guideService,
		NotesService:  notesService,
		Metrics:       collector,
		Tracing:       tracerProvider,
	}, nil
}

// StartPrefetch kicks off the background prefetch run. Call it once after
// the initial data load; repeated calls are no-ops within one session.
func (c *Container) StartPrefetch(ctx context.Context) {
	go c.GuideService.RunPrefetch(ctx)
}

// Shutdown stops the config watcher and flushes the logger and the tracer
// provider.
func (c *Container) Shutdown(ctx context.Context) error {
	if c.ConfigWatcher != nil {
		c.ConfigWatcher.Stop()
	}
	_ = c.Logger.Sync()
	if c.Tracing != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return c.Tracing.Shutdown(shutdownCtx)
	}
	return nil
}

func newLogger(cfg config.Logging) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.Set(cfg.Level); err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
