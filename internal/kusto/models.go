package kusto

import (
	"fmt"
	"sort"
	"strings"
)

// Metric names as written by the Sparklens job.
const (
	MetricExecutorEfficiency = "Executor Efficiency"
	MetricGCOverhead         = "GC Overhead"
	MetricTaskSkewRatio      = "Task Skew Ratio"
	MetricParallelismScore   = "Parallelism Score"
	MetricJobType            = "Job Type"
	MetricDriverTimePct      = "Driver Time %"
	MetricExecutorTimePct    = "Executor Time %"
	MetricDurationSec        = "Application Duration (sec)"
	MetricExecutorCount      = "Executor Count"
	MetricTaskCount          = "Task Count"
)

// Recommendation is one analyzer recommendation row.
type Recommendation struct {
	AppID          string `json:"app_id"`
	Recommendation string `json:"recommendation"`
	Table          string `json:"table"`
}

// Metrics is the latest value of each Sparklens metric for one application.
type Metrics struct {
	AppID              string  `json:"app_id"`
	ExecutorEfficiency float64 `json:"executor_efficiency"`
	GCOverhead         float64 `json:"gc_overhead"`
	TaskSkewRatio      float64 `json:"task_skew_ratio"`
	ParallelismScore   float64 `json:"parallelism_score"`
	JobType            float64 `json:"job_type"`
	DriverTimePct      float64 `json:"driver_time_pct"`
	ExecutorTimePct    float64 `json:"executor_time_pct"`
	DurationSec        float64 `json:"duration_sec"`
	ExecutorCount      float64 `json:"executor_count"`
	TaskCount          float64 `json:"task_count"`

	JobTypeLabel     string  `json:"job_type_label"`
	Severity         string  `json:"severity"`
	PerformanceScore float64 `json:"performance_score"`
	Grade            string  `json:"grade"`
}

// MetricsFromRows folds metric/value rows into a Metrics value and computes
// the derived fields. A missing skew ratio counts as perfectly balanced.
func MetricsFromRows(appID string, rows []Row) Metrics {
	m := Metrics{AppID: appID, TaskSkewRatio: 1}
	for _, r := range rows {
		m.set(r.String("metric"), r.Float("value"))
	}
	m.derive()
	return m
}

func (m *Metrics) set(metric string, v float64) {
	switch metric {
	case MetricExecutorEfficiency:
		m.ExecutorEfficiency = v
	case MetricGCOverhead:
		m.GCOverhead = v
	case MetricTaskSkewRatio:
		m.TaskSkewRatio = v
	case MetricParallelismScore:
		m.ParallelismScore = v
	case MetricJobType:
		m.JobType = v
	case MetricDriverTimePct:
		m.DriverTimePct = v
	case MetricExecutorTimePct:
		m.ExecutorTimePct = v
	case MetricDurationSec:
		m.DurationSec = v
	case MetricExecutorCount:
		m.ExecutorCount = v
	case MetricTaskCount:
		m.TaskCount = v
	}
}

func (m *Metrics) derive() {
	m.JobTypeLabel = "BATCH"
	if m.JobType >= 0.5 {
		m.JobTypeLabel = "STREAMING"
	}
	m.Severity = MetricSeverity(*m)
	m.PerformanceScore = PerformanceScore(*m)
	m.Grade = ScoreGrade(m.PerformanceScore)
}

// Context flattens the metrics into the judge's application context.
func (m Metrics) Context() map[string]any {
	return map[string]any{
		MetricExecutorEfficiency: m.ExecutorEfficiency,
		MetricGCOverhead:         m.GCOverhead,
		MetricTaskSkewRatio:      m.TaskSkewRatio,
		MetricParallelismScore:   m.ParallelismScore,
		MetricDurationSec:        m.DurationSec,
		MetricExecutorCount:      m.ExecutorCount,
		"Job Type":               m.JobTypeLabel,
		"Severity":               m.Severity,
		"Performance Score":      fmt.Sprintf("%.1f", m.PerformanceScore),
	}
}

// Metadata is the application's configuration snapshot.
type Metadata struct {
	AppID                   string `json:"app_id"`
	AppName                 string `json:"app_name"`
	ArtifactID              string `json:"artifact_id"`
	ArtifactType            string `json:"artifact_type"`
	CapacityID              string `json:"capacity_id"`
	ExecutorMax             string `json:"executor_max"`
	ExecutorMin             string `json:"executor_min"`
	HighConcurrencyEnabled  bool   `json:"high_concurrency_enabled"`
	NativeExecutionEnabled  string `json:"native_execution_enabled"`
	AutoCompact             string `json:"auto_compact"`
	AdaptiveFileSize        string `json:"adaptive_file_size"`
	FastOptimize            string `json:"fast_optimize"`
	FileLevelCompaction     string `json:"file_level_compaction"`
	ExtendedStats           string `json:"extended_stats"`
	SnapshotAcceleration    string `json:"snapshot_acceleration"`
	VOrder                  string `json:"vorder"`
	OptimizeWrite           string `json:"optimize_write"`
	ResourceProfile         string `json:"resource_profile"`
}

func metadataFromRow(r Row) Metadata {
	return Metadata{
		AppID:                  r.String("applicationId"),
		AppName:                r.String("applicationName"),
		ArtifactID:             r.String("artifactId"),
		ArtifactType:           r.String("artifactType"),
		CapacityID:             r.String("capacityId"),
		ExecutorMax:            r.String("executorMax"),
		ExecutorMin:            r.String("executorMin"),
		HighConcurrencyEnabled: r.Bool("isHighConcurrencyEnabled"),
		NativeExecutionEnabled: r.String("spark.native.enabled"),
		AutoCompact:            r.String("spark.databricks.delta.autoCompact.enabled"),
		AdaptiveFileSize:       r.String("spark.microsoft.delta.targetFileSize.adaptive.enabled"),
		FastOptimize:           r.String("spark.microsoft.delta.optimize.fast.enabled"),
		FileLevelCompaction:    r.String("spark.microsoft.delta.optimize.fileLevelTarget.enabled"),
		ExtendedStats:          r.String("spark.microsoft.delta.stats.collect.extended"),
		SnapshotAcceleration:   r.String("spark.microsoft.delta.snapshot.driverMode.enabled"),
		VOrder:                 r.String("spark.sql.parquet.vorder.default"),
		OptimizeWrite:          r.String("spark.microsoft.delta.optimizeWrite.enabled"),
		ResourceProfile:        r.String("spark.fabric.resourceProfile"),
	}
}

// Summary is the application health overview shown at the top of reports.
type Summary struct {
	AppID              string  `json:"app_id"`
	AppName            string  `json:"app_name"`
	HealthStatus       string  `json:"health_status"`
	PerformanceGrade   string  `json:"performance_grade"`
	DurationSec        float64 `json:"duration_sec"`
	ExecutorCount      float64 `json:"executor_count"`
	ExecutorEfficiency float64 `json:"executor_efficiency"`
	GCOverheadPct      float64 `json:"gc_overhead_pct"`
	TaskSkewRatio      float64 `json:"task_skew_ratio"`
	ParallelismScore   float64 `json:"parallelism_score"`
	ExecutorConfig     string  `json:"executor_config"`
	HighConcurrency    bool    `json:"high_concurrency"`
}

// NewSummary combines metrics with the optional metadata snapshot.
func NewSummary(m Metrics, meta *Metadata) Summary {
	s := Summary{
		AppID:              m.AppID,
		AppName:            "Unknown",
		HealthStatus:       SummaryHealth(m.GCOverhead, m.TaskSkewRatio, m.ExecutorEfficiency),
		PerformanceGrade:   Grade(m),
		DurationSec:        m.DurationSec,
		ExecutorCount:      m.ExecutorCount,
		ExecutorEfficiency: m.ExecutorEfficiency,
		GCOverheadPct:      m.GCOverhead * 100,
		TaskSkewRatio:      m.TaskSkewRatio,
		ParallelismScore:   m.ParallelismScore,
	}
	if meta != nil {
		if meta.AppName != "" {
			s.AppName = meta.AppName
		}
		s.ExecutorConfig = fmt.Sprintf("Min:%s Max:%s", meta.ExecutorMin, meta.ExecutorMax)
		s.HighConcurrency = meta.HighConcurrencyEnabled
	}
	return s
}

// Stage is the task statistics of one stage attempt.
type Stage struct {
	AppID                 string  `json:"app_id"`
	StageID               int     `json:"stage_id"`
	StageAttemptID        int     `json:"stage_attempt_id"`
	NumTasks              int     `json:"num_tasks"`
	SuccessfulTasks       int     `json:"successful_tasks"`
	FailedTasks           int     `json:"failed_tasks"`
	MinDurationSec        float64 `json:"min_duration_sec"`
	MaxDurationSec        float64 `json:"max_duration_sec"`
	AvgDurationSec        float64 `json:"avg_duration_sec"`
	P75DurationSec        float64 `json:"p75_duration_sec"`
	AvgShuffleReadMB      float64 `json:"avg_shuffle_read_mb"`
	MaxShuffleReadMB      float64 `json:"max_shuffle_read_mb"`
	AvgShuffleWriteMB     float64 `json:"avg_shuffle_write_mb"`
	MaxShuffleWriteMB     float64 `json:"max_shuffle_write_mb"`
	AvgInputMB            float64 `json:"avg_input_mb"`
	MaxInputMB            float64 `json:"max_input_mb"`
	AvgOutputMB           float64 `json:"avg_output_mb"`
	MaxOutputMB           float64 `json:"max_output_mb"`
	NumExecutors          int     `json:"num_executors"`
	StageExecutionTimeSec float64 `json:"stage_execution_time_sec"`
	TaskImbalance         float64 `json:"task_imbalance"`
	ShuffleImbalance      float64 `json:"shuffle_imbalance"`
}

func stageFromRow(r Row) Stage {
	s := Stage{
		AppID:                 r.String("app_id"),
		StageID:               r.Int("stage_id"),
		StageAttemptID:        r.Int("stage_attempt_id"),
		NumTasks:              r.Int("num_tasks"),
		SuccessfulTasks:       r.Int("successful_tasks"),
		FailedTasks:           r.Int("failed_tasks"),
		MinDurationSec:        r.Float("min_duration_sec"),
		MaxDurationSec:        r.Float("max_duration_sec"),
		AvgDurationSec:        r.Float("avg_duration_sec"),
		P75DurationSec:        r.Float("p75_duration_sec"),
		AvgShuffleReadMB:      r.Float("avg_shuffle_read_mb"),
		MaxShuffleReadMB:      r.Float("max_shuffle_read_mb"),
		AvgShuffleWriteMB:     r.Float("avg_shuffle_write_mb"),
		MaxShuffleWriteMB:     r.Float("max_shuffle_write_mb"),
		AvgInputMB:            r.Float("avg_input_mb"),
		MaxInputMB:            r.Float("max_input_mb"),
		AvgOutputMB:           r.Float("avg_output_mb"),
		MaxOutputMB:           r.Float("max_output_mb"),
		NumExecutors:          r.Int("num_executors"),
		StageExecutionTimeSec: r.Float("stage_execution_time_sec"),
	}
	s.TaskImbalance = ratio(s.MaxDurationSec, s.AvgDurationSec)
	s.ShuffleImbalance = ratio(s.MaxShuffleReadMB, s.AvgShuffleReadMB)
	return s
}

func ratio(max, avg float64) float64 {
	if avg > 0 {
		return max / avg
	}
	return 1
}

// Prediction is one executor-scaling estimate.
type Prediction struct {
	AppID              string  `json:"app_id"`
	ExecutorCount      float64 `json:"executor_count"`
	ExecutorMultiplier string  `json:"executor_multiplier"`
	EstimatedWallclock string  `json:"estimated_wallclock"`
	EstimatedDuration  string  `json:"estimated_duration"`
}

// AppViolations is one application breaking bad-practice thresholds.
type AppViolations struct {
	AppID           string   `json:"app_id"`
	ApplicationName string   `json:"application_name"`
	ArtifactID      string   `json:"artifact_id"`
	ViolationCount  int      `json:"violation_count"`
	Issues          []string `json:"issues"`
}

// RecentApp is one application seen inside the look-back window.
type RecentApp struct {
	AppID              string  `json:"app_id"`
	AppName            string  `json:"app_name"`
	ArtifactID         string  `json:"artifact_id"`
	CapacityID         string  `json:"capacity_id"`
	HealthStatus       string  `json:"health_status"`
	DurationMin        float64 `json:"duration_min"`
	ExecutorEfficiency float64 `json:"executor_efficiency"`
	GCOverheadPct      float64 `json:"gc_overhead_pct"`
}

// WorstApp ranks applications by recommendation count.
type WorstApp struct {
	AppID               string `json:"app_id"`
	RecommendationCount int    `json:"RecommendationCount"`
}

// Pattern is one recommendation text and how many applications it affects.
type Pattern struct {
	Recommendation string `json:"recommendation"`
	AffectedApps   int    `json:"AffectedApps"`
}

// CategoryMatch is a recommendation found by category keyword.
type CategoryMatch struct {
	AppID          string `json:"app_id"`
	Source         string `json:"source"`
	Recommendation string `json:"recommendation"`
	Category       string `json:"category"`
}

// Column is one column of a table in the database schema.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema maps table names to their columns.
type Schema map[string][]Column

// Tables returns the table names in order.
func (s Schema) Tables() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Describe renders the schema as "table: col (type), ..." lines.
func (s Schema) Describe() string {
	var b strings.Builder
	for _, t := range s.Tables() {
		cols := make([]string, 0, len(s[t]))
		for _, c := range s[t] {
			cols = append(cols, fmt.Sprintf("%s (%s)", c.Name, c.Type))
		}
		fmt.Fprintf(&b, "%s: %s\n", t, strings.Join(cols, ", "))
	}
	return b.String()
}

// Report is everything stored about one application.
type Report struct {
	Recommendations       []Recommendation `json:"recommendations"`
	FabricRecommendations []Recommendation `json:"fabric_recommendations"`
	Stages                []Stage          `json:"summary"`
	Predictions           []Prediction     `json:"predictions"`
}
