package advisor

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mohammad-safakhou/sparkadvisor/internal/kusto"
)

// BadApp is an application breaking bad-practice thresholds.
type BadApp struct {
	kusto.AppViolations
	SeverityLabel    string `json:"severity_label"`
	BriefExplanation string `json:"brief_explanation"`
}

// ViolationLabel grades a violation count.
func ViolationLabel(violations int) string {
	switch {
	case violations >= 10:
		return "CRITICAL"
	case violations >= 5:
		return "WARNING"
	}
	return "ATTENTION"
}

// FindBadApplications lists applications with at least min violations, most
// violations first.
func (a *Advisor) FindBadApplications(ctx context.Context, min int) ([]BadApp, error) {
	if min <= 0 {
		min = 3
	}
	ctx, span := a.tracer.Start(ctx, "advisor.bad_applications")
	defer span.End()
	apps, err := a.kusto.BadPracticeApplications(ctx, min)
	if err != nil {
		return nil, fmt.Errorf("bad practice applications: %w", err)
	}
	sort.SliceStable(apps, func(i, j int) bool { return apps[i].ViolationCount > apps[j].ViolationCount })
	out := make([]BadApp, 0, len(apps))
	for _, app := range apps {
		label := ViolationLabel(app.ViolationCount)
		out = append(out, BadApp{
			AppViolations: app,
			SeverityLabel: label,
			BriefExplanation: fmt.Sprintf("%s: %d bad practices detected. Review configuration and resource allocation.",
				label, app.ViolationCount),
		})
	}
	return out, nil
}

// FindRecentApplications lists applications that ran in the last hours.
func (a *Advisor) FindRecentApplications(ctx context.Context, hours int) ([]kusto.RecentApp, error) {
	if hours <= 0 {
		hours = 24
	}
	ctx, span := a.tracer.Start(ctx, "advisor.recent_applications")
	defer span.End()
	apps, err := a.kusto.RecentApplications(ctx, hours)
	if err != nil {
		return nil, fmt.Errorf("recent applications: %w", err)
	}
	return apps, nil
}

// WorstApplications ranks applications by recommendation count.
func (a *Advisor) WorstApplications(ctx context.Context, n int) ([]kusto.WorstApp, error) {
	return a.kusto.WorstApplications(ctx, n)
}

// CommonBadPatterns lists the recommendations shared by most applications.
func (a *Advisor) CommonBadPatterns(ctx context.Context) ([]kusto.Pattern, error) {
	return a.kusto.CommonBadPatterns(ctx)
}

// RecommendationsByCategory finds telemetry recommendations mentioning the
// keywords of category. See kusto.Categories for the predefined names; any
// other word is searched for as is.
func (a *Advisor) RecommendationsByCategory(ctx context.Context, category string) ([]kusto.CategoryMatch, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, ErrEmptyCategory
	}
	ctx, span := a.tracer.Start(ctx, "advisor.recommendations_by_category")
	defer span.End()
	matches, err := a.kusto.RecommendationsByCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("%s recommendations: %w", category, err)
	}
	return matches, nil
}

// HealthyApp is an application scoring at or above the requested minimum.
type HealthyApp struct {
	AppID              string  `json:"app_id"`
	AppName            string  `json:"app_name"`
	HealthScore        float64 `json:"health_score"`
	Grade              string  `json:"grade"`
	ExecutorEfficiency float64 `json:"executor_efficiency"`
	GCOverheadPct      float64 `json:"gc_overhead_pct"`
	TaskSkewRatio      float64 `json:"task_skew_ratio"`
}

// HealthGrade labels a health score.
func HealthGrade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	}
	return "C"
}

var scoreMetrics = []string{
	kusto.MetricExecutorEfficiency,
	kusto.MetricGCOverhead,
	kusto.MetricTaskSkewRatio,
	kusto.MetricParallelismScore,
	kusto.MetricDurationSec,
}

// FindHealthyApplications lists applications whose performance score is at
// least minScore, best first.
func (a *Advisor) FindHealthyApplications(ctx context.Context, minScore float64) ([]HealthyApp, error) {
	if minScore <= 0 {
		minScore = 80
	}
	ctx, span := a.tracer.Start(ctx, "advisor.healthy_applications")
	defer span.End()
	metrics, err := a.kusto.AllMetrics(ctx, scoreMetrics)
	if err != nil {
		return nil, fmt.Errorf("application metrics: %w", err)
	}
	names := a.names(ctx)
	var out []HealthyApp
	for id, m := range metrics {
		score := round(m.PerformanceScore, 1)
		if score < minScore {
			continue
		}
		out = append(out, HealthyApp{
			AppID:              id,
			AppName:            nameOf(names, id),
			HealthScore:        score,
			Grade:              HealthGrade(score),
			ExecutorEfficiency: m.ExecutorEfficiency,
			GCOverheadPct:      round(m.GCOverhead*100, 1),
			TaskSkewRatio:      m.TaskSkewRatio,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HealthScore != out[j].HealthScore {
			return out[i].HealthScore > out[j].HealthScore
		}
		return out[i].AppID < out[j].AppID
	})
	return out, nil
}

const (
	PatternDriverHeavy     = "driver_heavy"
	PatternMemoryIntensive = "memory_intensive"
	PatternShuffleHeavy    = "shuffle_heavy"
)

// Patterns lists the supported performance patterns.
var Patterns = []string{PatternDriverHeavy, PatternMemoryIntensive, PatternShuffleHeavy}

// PatternApp is an application matching a performance pattern. Value is the
// pattern's signal: driver time %, GC overhead % or shuffle imbalance.
type PatternApp struct {
	AppID       string  `json:"app_id"`
	AppName     string  `json:"app_name"`
	Pattern     string  `json:"pattern"`
	Value       float64 `json:"value"`
	DurationSec float64 `json:"duration_sec"`
	Detail      string  `json:"detail"`
}

// FindApplicationsByPattern lists applications showing pattern, strongest
// signal first.
func (a *Advisor) FindApplicationsByPattern(ctx context.Context, pattern string) ([]PatternApp, error) {
	ctx, span := a.tracer.Start(ctx, "advisor.pattern_applications")
	defer span.End()
	var (
		out []PatternApp
		err error
	)
	switch pattern {
	case PatternDriverHeavy:
		out, err = a.metricPattern(ctx, pattern, kusto.MetricDriverTimePct, func(m kusto.Metrics) (float64, bool) {
			return m.DriverTimePct, m.DriverTimePct > 50
		}, "driver time %.1f%%")
	case PatternMemoryIntensive:
		out, err = a.metricPattern(ctx, pattern, kusto.MetricGCOverhead, func(m kusto.Metrics) (float64, bool) {
			return round(m.GCOverhead*100, 1), m.GCOverhead > 0.25
		}, "GC overhead %.1f%%")
	case PatternShuffleHeavy:
		out, err = a.shufflePattern(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPattern, pattern)
	}
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].AppID < out[j].AppID
	})
	return out, nil
}

func (a *Advisor) metricPattern(ctx context.Context, pattern, metric string, match func(kusto.Metrics) (float64, bool), detail string) ([]PatternApp, error) {
	metrics, err := a.kusto.AllMetrics(ctx, []string{metric, kusto.MetricDurationSec})
	if err != nil {
		return nil, fmt.Errorf("%s metrics: %w", pattern, err)
	}
	names := a.names(ctx)
	var out []PatternApp
	for id, m := range metrics {
		v, ok := match(m)
		if !ok {
			continue
		}
		out = append(out, PatternApp{
			AppID:       id,
			AppName:     nameOf(names, id),
			Pattern:     pattern,
			Value:       v,
			DurationSec: m.DurationSec,
			Detail:      fmt.Sprintf(detail, v),
		})
	}
	return out, nil
}

func (a *Advisor) shufflePattern(ctx context.Context) ([]PatternApp, error) {
	imbalances, err := a.kusto.ShuffleImbalances(ctx)
	if err != nil {
		return nil, fmt.Errorf("shuffle imbalance: %w", err)
	}
	matches, err := a.kusto.RecommendationsByCategory(ctx, "shuffle")
	if err != nil {
		a.logger.Warn("shuffle recommendations unavailable", zap.Error(err))
		matches = nil
	}
	flagged := map[string]bool{}
	for _, m := range matches {
		flagged[m.AppID] = true
	}
	durations, err := a.kusto.AllMetrics(ctx, []string{kusto.MetricDurationSec})
	if err != nil {
		durations = map[string]kusto.Metrics{}
	}
	names := a.names(ctx)

	ids := map[string]bool{}
	for id, v := range imbalances {
		if v > 3 {
			ids[id] = true
		}
	}
	for id := range flagged {
		ids[id] = true
	}
	out := make([]PatternApp, 0, len(ids))
	for id := range ids {
		v := round(imbalances[id], 2)
		detail := fmt.Sprintf("shuffle imbalance %.2fx", v)
		if v <= 3 {
			detail = "shuffle recommendation present"
		} else if flagged[id] {
			detail += ", shuffle recommendation present"
		}
		out = append(out, PatternApp{
			AppID:       id,
			AppName:     nameOf(names, id),
			Pattern:     PatternShuffleHeavy,
			Value:       v,
			DurationSec: durations[id].DurationSec,
			Detail:      detail,
		})
	}
	return out, nil
}

func (a *Advisor) names(ctx context.Context) map[string]string {
	names, err := a.kusto.ApplicationNames(ctx)
	if err != nil {
		a.logger.Warn("application names unavailable", zap.Error(err))
		return map[string]string{}
	}
	return names
}

func nameOf(names map[string]string, id string) string {
	if n := names[id]; n != "" {
		return n
	}
	return "Unknown"
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
