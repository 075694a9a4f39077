package kusto

import (
	"errors"
	"testing"
)

func TestSummaryHealth(t *testing.T) {
	cases := []struct {
		gc, skew, eff float64
		want          string
	}{
		{0.45, 1, 0.9, HealthCritical},
		{0.1, 6, 0.9, HealthCritical},
		{0.1, 1, 0.25, HealthCritical},
		{0.3, 1, 0.9, HealthWarning},
		{0.1, 4, 0.9, HealthWarning},
		{0.1, 1, 0.45, HealthWarning},
		{0.1, 1.5, 0.8, HealthHealthy},
	}
	for _, tc := range cases {
		if got := SummaryHealth(tc.gc, tc.skew, tc.eff); got != tc.want {
			t.Fatalf("SummaryHealth(%v,%v,%v) = %s, want %s", tc.gc, tc.skew, tc.eff, got, tc.want)
		}
	}
	if got := RecentHealth(0.1, 0.8); got != HealthHealthy {
		t.Fatalf("RecentHealth = %s", got)
	}
}

func TestPerformanceScoreAndGrade(t *testing.T) {
	m := Metrics{ExecutorEfficiency: 0.9, ParallelismScore: 0.9, GCOverhead: 0.05, TaskSkewRatio: 1}
	score := PerformanceScore(m)
	if score < 92.9 || score > 93.1 {
		t.Fatalf("score = %v", score)
	}
	if ScoreGrade(score) != "EXCELLENT" || ScoreGrade(70) != "GOOD" || ScoreGrade(55) != "FAIR" || ScoreGrade(10) != "POOR" {
		t.Fatalf("unexpected score grades")
	}
	if Grade(m) != "A" {
		t.Fatalf("grade = %s", Grade(m))
	}
	if s := PerformanceScore(Metrics{TaskSkewRatio: 0}); s != 40 {
		t.Fatalf("zero skew should count as balanced, got %v", s)
	}
}

func TestMetricSeverity(t *testing.T) {
	if MetricSeverity(Metrics{ExecutorEfficiency: 0.9, ParallelismScore: 0.9, DriverTimePct: 85, TaskSkewRatio: 1}) != "CRITICAL" {
		t.Fatalf("driver-heavy app should be critical")
	}
	if MetricSeverity(Metrics{ExecutorEfficiency: 0.9, ParallelismScore: 0.3, TaskSkewRatio: 1}) != "MEDIUM" {
		t.Fatalf("low parallelism should be medium")
	}
}

func TestValidateQuerySafety(t *testing.T) {
	bad := []string{
		".set-or-append sparklens_metrics <| datatable(x:int)[1]",
		"sparklens_metrics | where 1==1; .drop table x",
		"StormEvents | take 10",
		"",
	}
	for _, q := range bad {
		if err := ValidateQuerySafety(q); !errors.Is(err, ErrUnsafeQuery) {
			t.Fatalf("expected %q to be rejected, got %v", q, err)
		}
	}
	for _, q := range []string{".show tables", "fabric_recommedations | count"} {
		if err := ValidateQuerySafety(q); err != nil {
			t.Fatalf("expected %q to pass: %v", q, err)
		}
	}
	if got := EnsureLimit("sparklens_metrics | take 5", 100); got != "sparklens_metrics | take 5" {
		t.Fatalf("existing take should be kept: %q", got)
	}
}
