package advisor

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/sparkadvisor/config"
	"github.com/mohammad-safakhou/sparkadvisor/internal/budget"
	"github.com/mohammad-safakhou/sparkadvisor/internal/docs"
	"github.com/mohammad-safakhou/sparkadvisor/internal/kusto"
	"github.com/mohammad-safakhou/sparkadvisor/internal/recommend"
	"github.com/mohammad-safakhou/sparkadvisor/internal/store"
	"github.com/mohammad-safakhou/sparkadvisor/provider"
	"github.com/mohammad-safakhou/sparkadvisor/session"
)

var (
	// ErrUnknownPattern is returned for pattern names outside Patterns.
	ErrUnknownPattern = errors.New("unknown pattern")
	// ErrHistoryDisabled is returned when no postgres store is configured.
	ErrHistoryDisabled = errors.New("analysis history is not configured")
	// ErrEmptyCategory is returned for a blank category search.
	ErrEmptyCategory = errors.New("category must be non-empty")
)

// Telemetry is the read side of the Sparklens telemetry database.
type Telemetry interface {
	SparklensRecommendations(ctx context.Context, appID string) ([]kusto.Recommendation, error)
	FabricRecommendations(ctx context.Context, appID string) ([]kusto.Recommendation, error)
	ApplicationSummary(ctx context.Context, appID string) (kusto.Summary, error)
	ApplicationMetrics(ctx context.Context, appID string) (kusto.Metrics, error)
	StageSummary(ctx context.Context, appID string) ([]kusto.Stage, error)
	ScalingPredictions(ctx context.Context, appID string) ([]kusto.Prediction, error)
	BadPracticeApplications(ctx context.Context, min int) ([]kusto.AppViolations, error)
	RecentApplications(ctx context.Context, hours int) ([]kusto.RecentApp, error)
	WorstApplications(ctx context.Context, n int) ([]kusto.WorstApp, error)
	CommonBadPatterns(ctx context.Context) ([]kusto.Pattern, error)
	AllMetrics(ctx context.Context, metrics []string) (map[string]kusto.Metrics, error)
	ApplicationNames(ctx context.Context) (map[string]string, error)
	ShuffleImbalances(ctx context.Context) (map[string]float64, error)
	RecommendationsByCategory(ctx context.Context, category string) ([]kusto.CategoryMatch, error)
	DatabaseSchema(ctx context.Context) (kusto.Schema, error)
	FullReport(ctx context.Context, appID string) (kusto.Report, error)
	ExecuteQuery(ctx context.Context, query string, max int) ([]kusto.Row, error)
}

// History persists analyses and feedback.
type History interface {
	SaveAnalysis(ctx context.Context, sessionID string, res *recommend.Result) (string, error)
	LatestAnalysis(ctx context.Context, appID string) (*store.AnalysisRecord, error)
	SaveFeedback(ctx context.Context, f store.Feedback, maxResult int) (int64, error)
	FeedbackStats(ctx context.Context) (map[store.FeedbackType]int, error)
}

// Options wires an Advisor. Docs, LLM, Sessions and History may be nil; the
// matching features degrade instead of failing.
type Options struct {
	Kusto    Telemetry
	Docs     docs.Searcher
	LLM      provider.Provider
	Sessions session.Store
	History  History
	Config   config.AdvisorConfig
	Models   config.LLMConfig
	Budget   budget.Config
	Tracer   trace.Tracer
	Meter    otelmetric.Meter
	Logger   *zap.Logger
}

// Advisor runs the analyses behind every surface (HTTP, MCP, CLI).
type Advisor struct {
	kusto    Telemetry
	docs     docs.Searcher
	llm      provider.Provider
	judge    *recommend.Judge
	sessions session.Store
	history  History
	cfg      config.AdvisorConfig
	models   config.LLMConfig
	budget   budget.Config
	tracer   trace.Tracer
	metrics  *metrics
	logger   *zap.Logger

	schemaCache *expirable.LRU[string, kusto.Schema]
	reportCache *expirable.LRU[string, kusto.Report]
	now         func() time.Time
}

func New(opts Options) (*Advisor, error) {
	if opts.Kusto == nil {
		return nil, errors.New("advisor: telemetry client required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("sparkadvisor/internal/advisor")
	}
	cfg := opts.Config.Normalize()
	models := opts.Models.Normalize()
	b := opts.Budget.Normalize()
	meter := opts.Meter
	if meter == nil {
		meter = otel.Meter("sparkadvisor/internal/advisor")
	}
	return &Advisor{
		kusto:       opts.Kusto,
		docs:        opts.Docs,
		llm:         opts.LLM,
		judge:       recommend.NewJudge(opts.LLM, models.Judge, b, logger.Named("judge")),
		sessions:    opts.Sessions,
		history:     opts.History,
		cfg:         cfg,
		models:      models,
		budget:      b,
		tracer:      tracer,
		metrics:     newMetrics(meter, logger),
		logger:      logger,
		schemaCache: expirable.NewLRU[string, kusto.Schema](1, nil, cfg.SchemaCacheTTL),
		reportCache: expirable.NewLRU[string, kusto.Report](cfg.ReportCacheSize, nil, reportCacheTTL),
		now:         time.Now,
	}, nil
}

const reportCacheTTL = 5 * time.Minute

// Sessions exposes the session store, nil when sessions are disabled.
func (a *Advisor) Sessions() session.Store { return a.sessions }

// chat issues one free-text completion, charging it to the analysis budget
// carried by ctx.
func (a *Advisor) chat(ctx context.Context, params config.ModelParams, system, user string) (string, error) {
	if a.llm == nil {
		return "", errors.New("llm not configured")
	}
	mon := budget.MonitorFrom(ctx)
	if mon != nil {
		if err := mon.Allow(int64(budget.Count(system) + budget.Count(user) + params.MaxTokens)); err != nil {
			return "", err
		}
	}
	resp, err := a.llm.Chat(ctx, provider.ChatRequest{
		Messages: []provider.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	if mon != nil {
		_ = mon.Add(int64(resp.PromptTokens + resp.CompletionTokens))
	}
	return resp.Content, nil
}

func (a *Advisor) withBudget(ctx context.Context) context.Context {
	if budget.MonitorFrom(ctx) != nil {
		return ctx
	}
	return budget.WithMonitor(ctx, budget.NewMonitor(a.budget))
}
