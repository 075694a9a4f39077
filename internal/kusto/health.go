package kusto

// Health labels used in summaries and application lists.
const (
	HealthCritical = "CRITICAL"
	HealthWarning  = "WARNING"
	HealthHealthy  = "HEALTHY"
	HealthUnknown  = "UNKNOWN"
)

// SummaryHealth classifies an application from GC overhead, task skew and
// executor efficiency.
func SummaryHealth(gc, skew, eff float64) string {
	switch {
	case gc > 0.4 || skew > 5 || eff < 0.3:
		return HealthCritical
	case gc > 0.25 || skew > 3 || eff < 0.5:
		return HealthWarning
	}
	return HealthHealthy
}

// RecentHealth is SummaryHealth without the skew signal, which the recent
// application listing does not load.
func RecentHealth(gc, eff float64) string {
	switch {
	case gc > 0.4 || eff < 0.3:
		return HealthCritical
	case gc > 0.25 || eff < 0.5:
		return HealthWarning
	}
	return HealthHealthy
}

// Grade is the A-D performance grade of the summary view.
func Grade(m Metrics) string {
	eff, gc, skew := m.ExecutorEfficiency, m.GCOverhead, m.TaskSkewRatio
	switch {
	case eff > 0.7 && gc < 0.15 && skew < 2:
		return "A"
	case eff > 0.5 && gc < 0.25 && skew < 3:
		return "B"
	case eff > 0.3 && gc < 0.35:
		return "C"
	}
	return "D"
}

// PerformanceScore weighs efficiency, parallelism, GC and skew into 0-100.
func PerformanceScore(m Metrics) float64 {
	skew := m.TaskSkewRatio
	if skew <= 0 {
		skew = 1
	}
	return m.ExecutorEfficiency*30 + m.ParallelismScore*30 + (1-m.GCOverhead)*20 + (1/skew)*20
}

// ScoreGrade labels a performance score.
func ScoreGrade(score float64) string {
	switch {
	case score >= 80:
		return "EXCELLENT"
	case score >= 65:
		return "GOOD"
	case score >= 50:
		return "FAIR"
	}
	return "POOR"
}

// MetricSeverity is the severity of the worst metric.
func MetricSeverity(m Metrics) string {
	switch {
	case m.ExecutorEfficiency < 0.2 || m.GCOverhead > 0.4 || m.DriverTimePct > 80 || m.TaskSkewRatio > 10:
		return "CRITICAL"
	case m.ExecutorEfficiency < 0.4 || m.GCOverhead > 0.25 || m.TaskSkewRatio > 5:
		return "HIGH"
	case m.ParallelismScore < 0.4:
		return "MEDIUM"
	}
	return "LOW"
}

// Violates reports whether a metric value breaks its bad-practice threshold.
func Violates(metric string, value float64) bool {
	switch metric {
	case MetricExecutorEfficiency:
		return value < 0.4
	case MetricGCOverhead:
		return value > 0.25
	case MetricParallelismScore:
		return value < 0.4
	case MetricTaskSkewRatio:
		return value > 3.0
	}
	return false
}

// BadPracticeMetrics are the metrics checked by Violates.
var BadPracticeMetrics = []string{
	MetricExecutorEfficiency,
	MetricGCOverhead,
	MetricParallelismScore,
	MetricTaskSkewRatio,
}
