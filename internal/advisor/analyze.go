package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/sparkadvisor/internal/docs"
	"github.com/mohammad-safakhou/sparkadvisor/internal/kusto"
	"github.com/mohammad-safakhou/sparkadvisor/internal/recommend"
)

// Analysis is a reconciled result plus the inputs it was built from.
type Analysis struct {
	recommend.Result
	ApplicationSummary *kusto.Summary           `json:"application_summary,omitempty"`
	SourceCounts       map[recommend.Source]int `json:"source_counts"`
	AnalysisID         string                   `json:"analysis_id,omitempty"`
	SessionID          string                   `json:"session_id,omitempty"`
}

const rawFallbackSummary = "Validation failed, returning raw recommendations"

// Analyze gathers telemetry, documentation and (when both are thin) LLM
// recommendations for appID and reconciles them with the judge. Source
// failures only shrink the input; the call fails solely on cancellation.
func (a *Advisor) Analyze(ctx context.Context, appID, sessionID string) (*Analysis, error) {
	appID = strings.TrimSpace(appID)
	if appID == "" {
		return nil, errors.New("application id required")
	}
	ctx, span := a.tracer.Start(ctx, "advisor.analyze")
	defer span.End()
	span.SetAttributes(attribute.String("application_id", appID))
	ctx = a.withBudget(ctx)
	log := a.logger.With(zap.String("application_id", appID))

	var (
		sparklens, fabric []kusto.Recommendation
		summary           *kusto.Summary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		defer a.metrics.observeSource(gctx, "kusto_sparklens", start)
		recs, err := a.kusto.SparklensRecommendations(gctx, appID)
		if err != nil {
			log.Warn("sparklens recommendations unavailable", zap.Error(err))
			return nil
		}
		sparklens = recs
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		defer a.metrics.observeSource(gctx, "kusto_fabric", start)
		recs, err := a.kusto.FabricRecommendations(gctx, appID)
		if err != nil {
			log.Warn("fabric recommendations unavailable", zap.Error(err))
			return nil
		}
		fabric = recs
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		defer a.metrics.observeSource(gctx, "kusto_summary", start)
		s, err := a.kusto.ApplicationSummary(gctx, appID)
		if err != nil {
			log.Warn("application summary unavailable", zap.Error(err))
			return nil
		}
		summary = &s
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	kustoRecs := append(telemetryRecommendations(sparklens, ""), telemetryRecommendations(fabric, "fabric")...)
	ragRecs := a.documentation(ctx, ragQueries(kustoRecs, summary, a.cfg.RAGMaxCategories))

	var llmRecs []recommend.Recommendation
	if len(kustoRecs) == 0 && len(ragRecs) < a.cfg.LLMFallbackBelow && a.llm != nil {
		start := time.Now()
		text, err := a.generateRecommendations(ctx, appID, summary, kustoRecs)
		a.metrics.observeSource(ctx, "llm", start)
		if err != nil {
			log.Warn("llm recommendations failed", zap.Error(err))
		} else if strings.TrimSpace(text) != "" {
			llmRecs = append(llmRecs, recommend.Recommendation{
				Text:     recommend.FormatLLMText(text),
				Source:   recommend.SourceLLM,
				Metadata: map[string]any{"generated": true},
			})
		}
	}

	all := make([]recommend.Recommendation, 0, len(kustoRecs)+len(ragRecs)+len(llmRecs))
	all = append(append(append(all, kustoRecs...), ragRecs...), llmRecs...)
	counts := map[recommend.Source]int{
		recommend.SourceKusto: len(kustoRecs),
		recommend.SourceRAG:   len(ragRecs),
		recommend.SourceLLM:   len(llmRecs),
	}
	log.Info("combined recommendations",
		zap.Int("kusto", len(kustoRecs)), zap.Int("rag", len(ragRecs)), zap.Int("llm", len(llmRecs)))

	start := time.Now()
	res, judgeErr := a.judge.Validate(ctx, appID, all, summaryContext(summary))
	a.metrics.observeSource(ctx, "judge", start)
	if judgeErr != nil {
		log.Warn("judge validation failed", zap.Error(judgeErr))
		span.RecordError(judgeErr)
		span.SetStatus(codes.Error, "judge fallback")
		res.OverallHealth = recommend.HealthUnknown
		res.Summary = rawFallbackSummary
	}

	out := &Analysis{Result: *res, ApplicationSummary: summary, SourceCounts: counts}
	a.metrics.recordAnalysis(ctx, res, counts, judgeErr)
	span.SetAttributes(attribute.String("overall_health", string(res.OverallHealth)),
		attribute.Int("recommendations", res.TotalRecommendations))

	if a.history != nil {
		id, err := a.history.SaveAnalysis(ctx, sessionID, res)
		if err != nil {
			log.Warn("persist analysis failed", zap.Error(err))
		}
		out.AnalysisID = id
	}
	out.SessionID = a.recordSession(ctx, sessionID, appID, res)
	return out, nil
}

// telemetryRecommendations splits every row into individual items tagged
// with the table they came from.
func telemetryRecommendations(rows []kusto.Recommendation, category string) []recommend.Recommendation {
	var out []recommend.Recommendation
	for _, row := range rows {
		for _, text := range recommend.Split(row.Recommendation) {
			meta := map[string]any{"from_kusto": true, "table": row.Table}
			if category != "" {
				meta["category"] = category
			}
			out = append(out, recommend.Recommendation{Text: text, Source: recommend.SourceKusto, Metadata: meta})
		}
	}
	return out
}

// ragQueries picks the documentation searches: the distinct telemetry
// categories in first-seen order, or queries derived from the metrics when
// telemetry carries no category.
func ragQueries(kustoRecs []recommend.Recommendation, summary *kusto.Summary, max int) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range kustoRecs {
		c, _ := r.Metadata["category"].(string)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		out = metricQueries(summary)
	}
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

func metricQueries(s *kusto.Summary) []string {
	if s == nil {
		return nil
	}
	var out []string
	if s.GCOverheadPct > 25 {
		out = append(out, "reduce garbage collection overhead memory")
	}
	if s.TaskSkewRatio > 3 {
		out = append(out, "data skew task imbalance")
	}
	if s.ExecutorEfficiency < 0.5 {
		out = append(out, "executor efficiency autoscale")
	}
	if s.ParallelismScore < 0.4 {
		out = append(out, "parallelism partitions")
	}
	return out
}

func (a *Advisor) documentation(ctx context.Context, queries []string) []recommend.Recommendation {
	if a.docs == nil || len(queries) == 0 {
		return nil
	}
	start := time.Now()
	defer a.metrics.observeSource(ctx, "rag", start)
	var out []recommend.Recommendation
	for _, q := range queries {
		found, err := a.docs.Search(ctx, docs.Query{Text: q, TopK: a.cfg.RAGTopK}.Normalize())
		if err != nil {
			a.logger.Warn("documentation search failed", zap.String("query", q), zap.Error(err))
			continue
		}
		for _, d := range found {
			out = append(out, recommend.Recommendation{
				Text:   d.Content,
				Source: recommend.SourceRAG,
				Metadata: map[string]any{
					"title":      d.Title,
					"source_url": d.SourceURL,
					"score":      d.Score,
				},
			})
		}
	}
	return out
}

func (a *Advisor) generateRecommendations(ctx context.Context, appID string, summary *kusto.Summary, issues []recommend.Recommendation) (string, error) {
	metrics := "No metrics available"
	if summary != nil {
		b, _ := json.MarshalIndent(summary, "", "  ")
		metrics = string(b)
	}
	issueText := "No specific issues detected"
	if len(issues) > 0 {
		lines := make([]string, 0, 5)
		for i, r := range issues {
			if i == 5 {
				break
			}
			lines = append(lines, "- "+r.Text)
		}
		issueText = strings.Join(lines, "\n")
	}
	prompt := fmt.Sprintf(recommendationPrompt, appID, metrics, issueText,
		fmt.Sprintf(aiWarningOpen, "MEDIUM"), aiWarningClose)
	return a.chat(ctx, a.models.Recommend, advisorSystemPrompt, prompt)
}

// summaryContext is the application context handed to the judge.
func summaryContext(s *kusto.Summary) map[string]any {
	if s == nil {
		return nil
	}
	return map[string]any{
		"app_name":            s.AppName,
		"health_status":       s.HealthStatus,
		"performance_grade":   s.PerformanceGrade,
		"duration_sec":        s.DurationSec,
		"executor_count":      s.ExecutorCount,
		"executor_efficiency": s.ExecutorEfficiency,
		"gc_overhead_pct":     s.GCOverheadPct,
		"task_skew_ratio":     s.TaskSkewRatio,
		"parallelism_score":   s.ParallelismScore,
	}
}

func (a *Advisor) recordSession(ctx context.Context, sessionID, appID string, res *recommend.Result) string {
	if a.sessions == nil {
		return sessionID
	}
	sess, err := a.sessions.Ensure(ctx, sessionID)
	if err != nil {
		a.logger.Warn("session unavailable", zap.String("session_id", sessionID), zap.Error(err))
		return sessionID
	}
	sess.RecordAnalysis(appID, res, a.now().UTC())
	if err := a.sessions.Save(ctx, sess); err != nil {
		a.logger.Warn("session save failed", zap.String("session_id", sess.ID), zap.Error(err))
	}
	return sess.ID
}

// ValidateRecommendations runs the judge on caller-supplied items.
func (a *Advisor) ValidateRecommendations(ctx context.Context, appID string, recs []recommend.Recommendation, appContext map[string]any) (*recommend.Result, error) {
	ctx, span := a.tracer.Start(ctx, "advisor.validate")
	defer span.End()
	if err := recommend.CheckInputs(recs); err != nil {
		return nil, err
	}
	return a.judge.Validate(a.withBudget(ctx), appID, recs, appContext)
}
