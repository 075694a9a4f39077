package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/sparkadvisor/config"
	"github.com/mohammad-safakhou/sparkadvisor/internal/advisor"
	"github.com/mohammad-safakhou/sparkadvisor/internal/docs"
	"github.com/mohammad-safakhou/sparkadvisor/internal/kusto"
	"github.com/mohammad-safakhou/sparkadvisor/internal/logging"
	"github.com/mohammad-safakhou/sparkadvisor/internal/runtime"
	"github.com/mohammad-safakhou/sparkadvisor/internal/store"
	"github.com/mohammad-safakhou/sparkadvisor/provider"
	"github.com/mohammad-safakhou/sparkadvisor/session"
	"github.com/mohammad-safakhou/sparkadvisor/session/inmemory"
	redis_session "github.com/mohammad-safakhou/sparkadvisor/session/redis"
)

// app holds everything a command needs; Close releases it in reverse order.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	advisor  *advisor.Advisor
	registry *prometheus.Registry

	closers []func(context.Context) error
}

type appOptions struct {
	// longRunning starts the session janitor and runs migrations when
	// server.migrate_on_start is set.
	longRunning bool
}

// newBaseApp loads configuration and the logger only.
func newBaseApp(cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.onClose(func(context.Context) error { _ = logger.Sync(); return nil })
	return a, nil
}

func newApp(ctx context.Context, cfgPath string, opts appOptions) (*app, error) {
	a, err := newBaseApp(cfgPath)
	if err != nil {
		return nil, err
	}
	cfg, logger := a.cfg, a.logger
	if err := cfg.Kusto.Validate(); err != nil {
		a.Close()
		return nil, err
	}

	tel, meter, tracer, err := runtime.SetupTelemetry(ctx, cfg.Telemetry, runtime.TelemetryOptions{
		ServiceVersion: version,
		Registerer:     a.registry,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	a.onClose(tel.Shutdown)

	var llm provider.Provider
	if p, err := provider.NewProvider(cfg.LLM); err != nil {
		logger.Warn("llm disabled, analyses use telemetry and docs only", zap.Error(err))
	} else {
		llm = p
	}

	searcher, err := a.openDocs(cfg.Search)
	if err != nil {
		a.Close()
		return nil, err
	}

	sessions, err := a.openSessions(ctx, opts)
	if err != nil {
		a.Close()
		return nil, err
	}

	var history advisor.History
	if cfg.Storage.Postgres.Enabled() {
		st, err := a.openStore(ctx, opts)
		if err != nil {
			a.Close()
			return nil, err
		}
		history = st
	}

	adv, err := advisor.New(advisor.Options{
		Kusto:    kusto.New(cfg.Kusto, logger.Named("kusto")),
		Docs:     searcher,
		LLM:      llm,
		Sessions: sessions,
		History:  history,
		Config:   cfg.Advisor,
		Models:   cfg.LLM,
		Budget:   cfg.Budget,
		Tracer:   tracer,
		Meter:    meter,
		Logger:   logger.Named("advisor"),
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.advisor = adv
	return a, nil
}

func (a *app) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close runs the registered closers last-in first-out.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("shutdown", zap.Error(err))
		}
	}
	a.closers = nil
}

// openIndex returns the configured documentation index. The bleve index is
// closed with the app.
func (a *app) openIndex(cfg config.SearchConfig) (docs.Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Backend == config.SearchBackendAzure {
		return docs.NewAzureSearch(cfg, a.cfg.General.DefaultTimeout), nil
	}
	idx, err := docs.OpenBleve(cfg.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("open docs index: %w", err)
	}
	a.onClose(func(context.Context) error { return idx.Close() })
	return idx, nil
}

// openDocs is openIndex for the analysis path: a broken index disables RAG
// instead of failing the command.
func (a *app) openDocs(cfg config.SearchConfig) (docs.Searcher, error) {
	idx, err := a.openIndex(cfg)
	if err != nil {
		if cfg.Backend == config.SearchBackendAzure {
			return nil, err
		}
		a.logger.Warn("documentation search disabled", zap.Error(err))
		return nil, nil
	}
	return idx, nil
}

func (a *app) openSessions(ctx context.Context, opts appOptions) (session.Store, error) {
	var sessions session.Store
	switch a.cfg.Advisor.SessionStore {
	case config.SessionStoreRedis:
		client, err := runtime.ConnRedis(ctx, a.cfg.Storage.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.onClose(func(context.Context) error { return client.Close() })
		sessions = redis_session.NewRedisSessionStore(client, a.cfg.Storage.Redis.KeyPrefix, a.cfg.Advisor.SessionTTL)
	default:
		sessions = inmemory.NewInMemorySessionStore(a.cfg.Advisor.SessionTTL)
	}
	if opts.longRunning {
		jctx, cancel := context.WithCancel(context.Background())
		go session.RunJanitor(jctx, sessions, a.cfg.Advisor.CleanupInterval, a.logger.Named("sessions"))
		a.onClose(func(context.Context) error { cancel(); return nil })
	}
	return sessions, nil
}

func (a *app) openStore(ctx context.Context, opts appOptions) (*store.Store, error) {
	dsn, err := runtime.BuildPostgresDSN(a.cfg)
	if err != nil {
		return nil, err
	}
	if opts.longRunning && a.cfg.Server.MigrateOnStart {
		if err := store.Migrate(a.cfg.Server.MigrationsDir, dsn, "up", 0); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		a.logger.Info("migrations applied", zap.String("dir", a.cfg.Server.MigrationsDir))
	}
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	a.onClose(func(context.Context) error { return st.Close() })
	return st, nil
}

var _ advisor.Telemetry = (*kusto.Client)(nil)
