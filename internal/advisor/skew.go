package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/sparkadvisor/internal/kusto"
)

// Analysis statuses shared by skew and scaling results.
const (
	StatusSuccess = "success"
	StatusNoData  = "no_data"
	StatusError   = "error"
)

// skewThreshold is the imbalance ratio above which a stage counts as skewed.
const skewThreshold = 2.0

// SkewedStage is one stage whose task or shuffle distribution is uneven.
type SkewedStage struct {
	StageID          int     `json:"stage_id"`
	TaskImbalance    float64 `json:"task_imbalance"`
	ShuffleImbalance float64 `json:"shuffle_imbalance"`
	Severity         string  `json:"severity"`
	StageDurationSec float64 `json:"stage_duration_sec"`
}

type SkewAnalysis struct {
	ApplicationID     string        `json:"application_id"`
	Status            string        `json:"status"`
	Message           string        `json:"message,omitempty"`
	StagesAnalyzed    int           `json:"stages_analyzed"`
	StagesWithSkew    int           `json:"stages_with_skew"`
	ProblematicStages []SkewedStage `json:"problematic_stages"`
	LLMAnalysis       string        `json:"llm_analysis,omitempty"`
	Source            string        `json:"source,omitempty"`
	Error             string        `json:"error,omitempty"`
}

// SkewSeverity grades the worse of the two imbalance ratios.
func SkewSeverity(task, shuffle float64) string {
	worst := task
	if shuffle > worst {
		worst = shuffle
	}
	switch {
	case worst > 10:
		return "CRITICAL"
	case worst > 5:
		return "HIGH"
	case worst > 3:
		return "MEDIUM"
	}
	return "LOW"
}

var severityOrder = map[string]int{"CRITICAL": 1, "HIGH": 2, "MEDIUM": 3, "LOW": 4}

// SkewedStages keeps stages with either imbalance above the threshold,
// ordered by severity then by duration, longest first.
func SkewedStages(stages []kusto.Stage) []SkewedStage {
	out := []SkewedStage{}
	for _, s := range stages {
		if s.TaskImbalance <= skewThreshold && s.ShuffleImbalance <= skewThreshold {
			continue
		}
		out = append(out, SkewedStage{
			StageID:          s.StageID,
			TaskImbalance:    round(s.TaskImbalance, 2),
			ShuffleImbalance: round(s.ShuffleImbalance, 2),
			Severity:         SkewSeverity(s.TaskImbalance, s.ShuffleImbalance),
			StageDurationSec: s.StageExecutionTimeSec,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if oi, oj := severityOrder[out[i].Severity], severityOrder[out[j].Severity]; oi != oj {
			return oi < oj
		}
		return out[i].StageDurationSec > out[j].StageDurationSec
	})
	return out
}

// AnalyzeSkew inspects the stage statistics of appID. Skewed stages are
// found deterministically; the LLM only adds the remediation narrative.
func (a *Advisor) AnalyzeSkew(ctx context.Context, appID string) *SkewAnalysis {
	ctx, span := a.tracer.Start(ctx, "advisor.analyze_skew")
	defer span.End()
	span.SetAttributes(attribute.String("application_id", appID))
	ctx = a.withBudget(ctx)

	res := &SkewAnalysis{ApplicationID: appID, ProblematicStages: []SkewedStage{}}
	stages, err := a.kusto.StageSummary(ctx, appID)
	if err != nil {
		a.logger.Warn("stage summary failed", zap.String("application_id", appID), zap.Error(err))
		res.Status = StatusError
		res.Error = err.Error()
		return res
	}
	if len(stages) == 0 {
		res.Status = StatusNoData
		res.Message = "No stage summary data found for this application."
		return res
	}

	res.Status = StatusSuccess
	res.StagesAnalyzed = len(stages)
	res.ProblematicStages = SkewedStages(stages)
	res.StagesWithSkew = len(res.ProblematicStages)
	res.Source = "kusto_stage_data"

	data, _ := json.MarshalIndent(stages, "", "  ")
	params := a.models.Analysis
	text, err := a.chat(ctx, params, skewSystemPrompt, fmt.Sprintf(skewPrompt, appID, string(data)))
	if err != nil {
		a.logger.Warn("skew narrative failed", zap.String("application_id", appID), zap.Error(err))
		res.Error = err.Error()
		return res
	}
	res.LLMAnalysis = text
	res.Source = "kusto_stage_data + llm_analysis"
	return res
}
