package advisor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/sparkadvisor/internal/recommend"
)

// metrics holds the advisor's otel instruments. A nil instrument is skipped.
type metrics struct {
	analysesTotal   otelmetric.Int64Counter
	judgeOutcomes   otelmetric.Int64Counter
	sourceLatency   otelmetric.Float64Histogram
	recommendations otelmetric.Int64Counter
}

func newMetrics(meter otelmetric.Meter, logger *zap.Logger) *metrics {
	m := &metrics{}
	var err error
	m.analysesTotal, err = meter.Int64Counter(
		"advisor_analyses_total",
		otelmetric.WithDescription("Completed application analyses by overall health"),
	)
	if err != nil {
		logger.Warn("advisor metrics init", zap.String("metric", "advisor_analyses_total"), zap.Error(err))
	}
	m.judgeOutcomes, err = meter.Int64Counter(
		"advisor_judge_outcomes_total",
		otelmetric.WithDescription("Judge calls by outcome (ok, fallback, restored)"),
	)
	if err != nil {
		logger.Warn("advisor metrics init", zap.String("metric", "advisor_judge_outcomes_total"), zap.Error(err))
	}
	m.sourceLatency, err = meter.Float64Histogram(
		"advisor_source_latency_seconds",
		otelmetric.WithDescription("Latency of each recommendation source"),
		otelmetric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn("advisor metrics init", zap.String("metric", "advisor_source_latency_seconds"), zap.Error(err))
	}
	m.recommendations, err = meter.Int64Counter(
		"advisor_recommendations_total",
		otelmetric.WithDescription("Recommendations gathered per source"),
	)
	if err != nil {
		logger.Warn("advisor metrics init", zap.String("metric", "advisor_recommendations_total"), zap.Error(err))
	}
	return m
}

func (m *metrics) observeSource(ctx context.Context, source string, start time.Time) {
	if m.sourceLatency != nil {
		m.sourceLatency.Record(ctx, time.Since(start).Seconds(), otelmetric.WithAttributes(attribute.String("source", source)))
	}
}

func (m *metrics) recordAnalysis(ctx context.Context, res *recommend.Result, counts map[recommend.Source]int, judgeErr error) {
	if m.analysesTotal != nil {
		m.analysesTotal.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("health", string(res.OverallHealth))))
	}
	if m.recommendations != nil {
		for src, n := range counts {
			m.recommendations.Add(ctx, int64(n), otelmetric.WithAttributes(attribute.String("source", string(src))))
		}
	}
	if m.judgeOutcomes == nil {
		return
	}
	outcome := "ok"
	if judgeErr != nil {
		outcome = "fallback"
	}
	m.judgeOutcomes.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("outcome", outcome)))
	restored := 0
	for _, v := range res.ValidatedRecommendations {
		if recommend.Restored(v) {
			restored++
		}
	}
	if restored > 0 {
		m.judgeOutcomes.Add(ctx, int64(restored), otelmetric.WithAttributes(attribute.String("outcome", "restored")))
	}
}
