// Package advisortest provides in-memory fakes of the advisor's collaborators.
package advisortest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/mohammad-safakhou/sparkadvisor/internal/docs"
	"github.com/mohammad-safakhou/sparkadvisor/internal/kusto"
	"github.com/mohammad-safakhou/sparkadvisor/internal/recommend"
	"github.com/mohammad-safakhou/sparkadvisor/internal/store"
	"github.com/mohammad-safakhou/sparkadvisor/provider"
)

// Telemetry serves canned rows. Zero fields read as empty tables; a nil
// Summary reads as kusto.ErrNotFound.
type Telemetry struct {
	Sparklens   []kusto.Recommendation
	Fabric      []kusto.Recommendation
	Summary     *kusto.Summary
	Metrics     kusto.Metrics
	MetricsErr  error
	Stages      []kusto.Stage
	StagesErr   error
	Predictions []kusto.Prediction
	Bad         []kusto.AppViolations
	Recent      []kusto.RecentApp
	Worst       []kusto.WorstApp
	Patterns    []kusto.Pattern
	All         map[string]kusto.Metrics
	Names       map[string]string
	Shuffle     map[string]float64
	ByCategory  []kusto.CategoryMatch
	Schema      kusto.Schema
	Rows        []kusto.Row

	mu          sync.Mutex
	schemaCalls int
	queries     []string
}

func (f *Telemetry) SparklensRecommendations(context.Context, string) ([]kusto.Recommendation, error) {
	return f.Sparklens, nil
}

func (f *Telemetry) FabricRecommendations(context.Context, string) ([]kusto.Recommendation, error) {
	return f.Fabric, nil
}

func (f *Telemetry) ApplicationSummary(context.Context, string) (kusto.Summary, error) {
	if f.Summary == nil {
		return kusto.Summary{}, kusto.ErrNotFound
	}
	return *f.Summary, nil
}

func (f *Telemetry) ApplicationMetrics(context.Context, string) (kusto.Metrics, error) {
	return f.Metrics, f.MetricsErr
}

func (f *Telemetry) StageSummary(context.Context, string) ([]kusto.Stage, error) {
	return f.Stages, f.StagesErr
}

func (f *Telemetry) ScalingPredictions(context.Context, string) ([]kusto.Prediction, error) {
	return f.Predictions, nil
}

func (f *Telemetry) BadPracticeApplications(_ context.Context, min int) ([]kusto.AppViolations, error) {
	var out []kusto.AppViolations
	for _, a := range f.Bad {
		if a.ViolationCount >= min {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *Telemetry) RecentApplications(context.Context, int) ([]kusto.RecentApp, error) {
	return f.Recent, nil
}

func (f *Telemetry) WorstApplications(_ context.Context, n int) ([]kusto.WorstApp, error) {
	if n > 0 && len(f.Worst) > n {
		return f.Worst[:n], nil
	}
	return f.Worst, nil
}

func (f *Telemetry) CommonBadPatterns(context.Context) ([]kusto.Pattern, error) {
	return f.Patterns, nil
}

func (f *Telemetry) AllMetrics(context.Context, []string) (map[string]kusto.Metrics, error) {
	return f.All, nil
}

func (f *Telemetry) ApplicationNames(context.Context) (map[string]string, error) {
	return f.Names, nil
}

func (f *Telemetry) ShuffleImbalances(context.Context) (map[string]float64, error) {
	return f.Shuffle, nil
}

func (f *Telemetry) RecommendationsByCategory(context.Context, string) ([]kusto.CategoryMatch, error) {
	return f.ByCategory, nil
}

func (f *Telemetry) DatabaseSchema(context.Context) (kusto.Schema, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schemaCalls++
	return f.Schema, nil
}

func (f *Telemetry) FullReport(context.Context, string) (kusto.Report, error) {
	return kusto.Report{
		Recommendations:       f.Sparklens,
		FabricRecommendations: f.Fabric,
		Stages:                f.Stages,
		Predictions:           f.Predictions,
	}, nil
}

// ExecuteQuery applies the real safety guard and row limit, records the
// final query and returns Rows.
func (f *Telemetry) ExecuteQuery(_ context.Context, q string, max int) ([]kusto.Row, error) {
	if err := kusto.ValidateQuerySafety(q); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, kusto.EnsureLimit(q, max))
	return f.Rows, nil
}

// SchemaCalls counts DatabaseSchema round trips.
func (f *Telemetry) SchemaCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.schemaCalls
}

// Queries returns the executed queries after limit rewriting.
func (f *Telemetry) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// LLM answers schema-constrained calls with Judge and free-text calls with
// Text. A non-nil Err fails every call.
type LLM struct {
	Judge string
	Text  string
	Err   error

	mu      sync.Mutex
	prompts []string
}

func (f *LLM) Chat(_ context.Context, req provider.ChatRequest) (provider.ChatResponse, error) {
	f.mu.Lock()
	if n := len(req.Messages); n > 0 {
		f.prompts = append(f.prompts, req.Messages[n-1].Content)
	}
	f.mu.Unlock()
	if f.Err != nil {
		return provider.ChatResponse{}, f.Err
	}
	content := f.Text
	if req.Schema != nil {
		content = f.Judge
	}
	return provider.ChatResponse{Content: content, PromptTokens: 10, CompletionTokens: 10}, nil
}

// Prompts returns the user prompts received so far.
func (f *LLM) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// JudgeAnswer encodes a judge response carrying items.
func JudgeAnswer(items []recommend.Validated, health recommend.Health) string {
	if items == nil {
		items = []recommend.Validated{}
	}
	b, _ := json.Marshal(map[string]any{
		"validated_recommendations": items,
		"summary":                   "Judge summary",
		"critical_count":            0,
		"warning_count":             0,
		"info_count":                0,
		"overall_health":            health,
		"detected_contradictions":   []recommend.Contradiction{},
	})
	return string(b)
}

// Searcher returns Docs, capped at the requested top-k.
type Searcher struct {
	Docs []docs.Document

	mu      sync.Mutex
	queries []string
}

func (f *Searcher) Search(_ context.Context, q docs.Query) ([]docs.Document, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q.Text)
	f.mu.Unlock()
	if q.TopK > 0 && len(f.Docs) > q.TopK {
		return f.Docs[:q.TopK], nil
	}
	return f.Docs, nil
}

// Queries returns the search texts received so far.
func (f *Searcher) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// History keeps analyses and feedback in memory.
type History struct {
	mu       sync.Mutex
	saved    []recommend.Result
	feedback []store.Feedback
}

func (f *History) SaveAnalysis(_ context.Context, _ string, res *recommend.Result) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, *res)
	return "analysis-1", nil
}

func (f *History) LatestAnalysis(_ context.Context, appID string) (*store.AnalysisRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.saved) - 1; i >= 0; i-- {
		if f.saved[i].ApplicationID == appID {
			return &store.AnalysisRecord{ID: "analysis-1", ApplicationID: appID, Result: f.saved[i]}, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *History) SaveFeedback(_ context.Context, fb store.Feedback, max int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fb.ResultText = store.Truncate(fb.ResultText, max)
	f.feedback = append(f.feedback, fb)
	return int64(len(f.feedback)), nil
}

func (f *History) FeedbackStats(context.Context) (map[store.FeedbackType]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[store.FeedbackType]int{}
	for _, fb := range f.feedback {
		out[fb.Type]++
	}
	return out, nil
}

// Saved returns the persisted analyses.
func (f *History) Saved() []recommend.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recommend.Result(nil), f.saved...)
}

// Feedback returns the stored feedback.
func (f *History) Feedback() []store.Feedback {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Feedback(nil), f.feedback...)
}
