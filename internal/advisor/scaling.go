package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/sparkadvisor/internal/kusto"
)

// Verdict is the scaling recommendation.
type Verdict string

const (
	VerdictDontScale     Verdict = "DONT_SCALE"
	VerdictScaleDown     Verdict = "SCALE_DOWN"
	VerdictScaleUp       Verdict = "SCALE_UP"
	VerdictOptimizeFirst Verdict = "OPTIMIZE_FIRST"
	VerdictAnalyzeNeeded Verdict = "ANALYZE_NEEDED"
	VerdictError         Verdict = "ERROR"
)

// ParseVerdict reads the verdict out of a scaling narrative.
func ParseVerdict(text string) Verdict {
	up := strings.ToUpper(strings.ReplaceAll(text, "’", "'"))
	switch {
	case strings.Contains(up, "DON'T SCALE"), strings.Contains(up, "DONT SCALE"), strings.Contains(up, "NOT SCALE"), strings.Contains(up, "NO SCALE"):
		return VerdictDontScale
	case strings.Contains(up, "SCALE DOWN"):
		return VerdictScaleDown
	case strings.Contains(up, "SCALE UP"):
		return VerdictScaleUp
	case strings.Contains(up, "OPTIMIZE FIRST"):
		return VerdictOptimizeFirst
	}
	return VerdictAnalyzeNeeded
}

// RuleVerdict applies the scaling rules to the metrics alone. It stands in
// for the narrative when no LLM answer is available.
func RuleVerdict(m kusto.Metrics, durationSec float64) Verdict {
	switch {
	case m.DriverTimePct > 80, m.ExecutorEfficiency > 0 && m.ExecutorEfficiency < 0.2, durationSec > 0 && durationSec < 60:
		return VerdictDontScale
	case m.GCOverhead > 0.25, m.TaskSkewRatio > 3:
		return VerdictOptimizeFirst
	case m.DriverTimePct > 60, m.ExecutorEfficiency > 0 && m.ExecutorEfficiency < 0.3:
		return VerdictScaleDown
	case m.ExecutorEfficiency > 0.6 && m.DriverTimePct < 40:
		return VerdictScaleUp
	}
	return VerdictAnalyzeNeeded
}

var durationPart = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([hms])`)

// ParseDuration converts prediction durations such as "16m 52s" to seconds.
func ParseDuration(s string) float64 {
	var total float64
	for _, m := range durationPart.FindAllStringSubmatch(strings.ToLower(s), -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		switch m[2] {
		case "h":
			total += v * 3600
		case "m":
			total += v * 60
		case "s":
			total += v
		}
	}
	return total
}

// Baseline finds the 1.0x (current) prediction.
func Baseline(preds []kusto.Prediction) (kusto.Prediction, bool) {
	for _, p := range preds {
		if strings.Contains(p.ExecutorMultiplier, "1.0x") || strings.Contains(p.ExecutorMultiplier, "Current") {
			return p, true
		}
	}
	return kusto.Prediction{}, false
}

var scalingKeywords = []string{"executor", "scale", "driver", "resource", "parallelism"}

func scalingRelated(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range scalingKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

type ScalingMetrics struct {
	DurationSec           float64 `json:"duration_sec"`
	ExecutorCount         float64 `json:"executor_count"`
	DriverTimePct         float64 `json:"driver_time_pct"`
	ExecutorEfficiencyPct float64 `json:"executor_efficiency"`
}

type ScalingAnalysis struct {
	ApplicationID                string             `json:"application_id"`
	Status                       string             `json:"status"`
	Recommendation               Verdict            `json:"recommendation"`
	LLMAnalysis                  string             `json:"llm_analysis,omitempty"`
	CurrentMetrics               ScalingMetrics     `json:"current_metrics"`
	Predictions                  []kusto.Prediction `json:"predictions"`
	PredictionsCount             int                `json:"predictions_count"`
	ExistingRecommendations      []string           `json:"existing_recommendations"`
	ExistingRecommendationsCount int                `json:"existing_recommendations_count"`
	Source                       string             `json:"source,omitempty"`
	Error                        string             `json:"error,omitempty"`
}

// AnalyzeScaling judges whether more or fewer executors would pay off for
// appID, using Sparklens predictions, current metrics and the scaling
// related recommendations already on record.
func (a *Advisor) AnalyzeScaling(ctx context.Context, appID string) *ScalingAnalysis {
	ctx, span := a.tracer.Start(ctx, "advisor.analyze_scaling")
	defer span.End()
	span.SetAttributes(attribute.String("application_id", appID))
	ctx = a.withBudget(ctx)
	log := a.logger.With(zap.String("application_id", appID))

	res := &ScalingAnalysis{ApplicationID: appID, ExistingRecommendations: []string{}, Predictions: []kusto.Prediction{}}

	if recs, err := a.kusto.SparklensRecommendations(ctx, appID); err != nil {
		log.Warn("existing recommendations unavailable", zap.Error(err))
	} else {
		for _, r := range recs {
			if scalingRelated(r.Recommendation) {
				res.ExistingRecommendations = append(res.ExistingRecommendations, r.Recommendation)
			}
		}
	}
	res.ExistingRecommendationsCount = len(res.ExistingRecommendations)

	preds, err := a.kusto.ScalingPredictions(ctx, appID)
	if err != nil {
		log.Warn("scaling predictions unavailable", zap.Error(err))
	} else if preds != nil {
		res.Predictions = preds
	}
	res.PredictionsCount = len(res.Predictions)

	metrics, err := a.kusto.ApplicationMetrics(ctx, appID)
	if err != nil {
		log.Warn("application metrics unavailable", zap.Error(err))
	}
	if res.PredictionsCount == 0 && err != nil {
		res.Status = StatusError
		res.Recommendation = VerdictError
		res.Error = err.Error()
		return res
	}

	current := ScalingMetrics{
		DurationSec:           metrics.DurationSec,
		ExecutorCount:         metrics.ExecutorCount,
		DriverTimePct:         metrics.DriverTimePct,
		ExecutorEfficiencyPct: round(metrics.ExecutorEfficiency*100, 1),
	}
	// predictions measure duration differently from the metrics table
	if base, ok := Baseline(res.Predictions); ok {
		if d := ParseDuration(base.EstimatedDuration); d > 0 {
			current.DurationSec = d
		}
		if base.ExecutorCount > 0 {
			current.ExecutorCount = base.ExecutorCount
		}
	}
	res.CurrentMetrics = current
	res.Status = StatusSuccess
	res.Source = "kusto_predictions + kusto_metrics"

	existing := "No existing scaling recommendations found."
	if len(res.ExistingRecommendations) > 0 {
		existing = strings.Join(res.ExistingRecommendations, "\n")
	}
	predText := "No scaling predictions available in database."
	if len(res.Predictions) > 0 {
		b, _ := json.MarshalIndent(res.Predictions, "", "  ")
		predText = string(b)
	}
	prompt := fmt.Sprintf(scalingPrompt, appID, existing, predText,
		current.DurationSec, current.ExecutorCount, current.DriverTimePct, current.ExecutorEfficiencyPct)
	text, err := a.chat(ctx, a.models.Analysis, scalingSystemPrompt, prompt)
	if err != nil {
		log.Warn("scaling narrative failed", zap.Error(err))
		res.Error = err.Error()
		res.Recommendation = RuleVerdict(metrics, current.DurationSec)
		return res
	}
	res.LLMAnalysis = text
	res.Recommendation = ParseVerdict(text)
	res.Source += " + llm_analysis"
	return res
}
