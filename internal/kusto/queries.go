package kusto

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

const appParam = "declare query_parameters (application_id:string);\n"

func quoteList(items []string) string {
	q := make([]string, len(items))
	for i, s := range items {
		q[i] = `"` + s + `"`
	}
	return strings.Join(q, ", ")
}

func (c *Client) recommendations(ctx context.Context, table, appID string) ([]Recommendation, error) {
	q := appParam + fmt.Sprintf("%s\n| where app_id == application_id\n| project app_id, recommendation", table)
	rows, err := c.Query(ctx, q, map[string]any{"application_id": appID})
	if err != nil {
		return nil, err
	}
	out := make([]Recommendation, 0, len(rows))
	for _, r := range rows {
		out = append(out, Recommendation{AppID: r.String("app_id"), Recommendation: r.String("recommendation"), Table: table})
	}
	return out, nil
}

// SparklensRecommendations returns the Sparklens analyzer output for appID.
func (c *Client) SparklensRecommendations(ctx context.Context, appID string) ([]Recommendation, error) {
	return c.recommendations(ctx, c.tables.Recommendations, appID)
}

// FabricRecommendations returns the Fabric-specific recommendations (native
// engine, high concurrency, Delta settings) for appID.
func (c *Client) FabricRecommendations(ctx context.Context, appID string) ([]Recommendation, error) {
	return c.recommendations(ctx, c.tables.FabricRecommendations, appID)
}

// ApplicationMetrics loads the latest metric values of appID.
func (c *Client) ApplicationMetrics(ctx context.Context, appID string) (Metrics, error) {
	q := appParam + fmt.Sprintf(`%s
| where app_id == application_id
| summarize arg_max(value, *) by metric
| project metric, value`, c.tables.Metrics)
	rows, err := c.Query(ctx, q, map[string]any{"application_id": appID})
	if err != nil {
		return Metrics{}, err
	}
	if len(rows) == 0 {
		return Metrics{}, fmt.Errorf("metrics for %s: %w", appID, ErrNotFound)
	}
	return MetricsFromRows(appID, rows), nil
}

// ApplicationMetadata loads the configuration snapshot of appID.
func (c *Client) ApplicationMetadata(ctx context.Context, appID string) (Metadata, error) {
	q := appParam + fmt.Sprintf("%s\n| where applicationId == application_id\n| take 1", c.tables.Metadata)
	rows, err := c.Query(ctx, q, map[string]any{"application_id": appID})
	if err != nil {
		return Metadata{}, err
	}
	if len(rows) == 0 {
		return Metadata{}, fmt.Errorf("metadata for %s: %w", appID, ErrNotFound)
	}
	return metadataFromRow(rows[0]), nil
}

// ApplicationSummary combines metrics and metadata into a health overview.
// Missing metadata is tolerated; missing metrics is ErrNotFound.
func (c *Client) ApplicationSummary(ctx context.Context, appID string) (Summary, error) {
	m, err := c.ApplicationMetrics(ctx, appID)
	if err != nil {
		return Summary{AppID: appID, HealthStatus: "NOT_FOUND"}, err
	}
	meta, err := c.ApplicationMetadata(ctx, appID)
	if err != nil {
		return NewSummary(m, nil), nil
	}
	return NewSummary(m, &meta), nil
}

// StageSummary returns per-stage task statistics ordered by stage id.
func (c *Client) StageSummary(ctx context.Context, appID string) ([]Stage, error) {
	q := appParam + fmt.Sprintf(`%s
| where app_id == application_id
| project app_id, stage_id, stage_attempt_id, num_tasks, successful_tasks, failed_tasks,
    min_duration_sec, max_duration_sec, avg_duration_sec, p75_duration_sec,
    avg_shuffle_read_mb, max_shuffle_read_mb, avg_shuffle_write_mb, max_shuffle_write_mb,
    avg_input_mb, max_input_mb, avg_output_mb, max_output_mb, num_executors, stage_execution_time_sec
| order by stage_id asc`, c.tables.Summary)
	rows, err := c.Query(ctx, q, map[string]any{"application_id": appID})
	if err != nil {
		return nil, err
	}
	out := make([]Stage, 0, len(rows))
	for _, r := range rows {
		out = append(out, stageFromRow(r))
	}
	return out, nil
}

// ScalingPredictions returns the estimated durations at different executor
// counts, smallest count first.
func (c *Client) ScalingPredictions(ctx context.Context, appID string) ([]Prediction, error) {
	q := appParam + fmt.Sprintf(`%s
| where app_id == application_id
| project app_id,
    executor_count = ["Executor Count"],
    executor_multiplier = ["Executor Multiplier"],
    estimated_wallclock = ["Estimated Executor WallClock"],
    estimated_duration = ["Estimated Total Duration"]
| order by executor_count asc`, c.tables.Predictions)
	rows, err := c.Query(ctx, q, map[string]any{"application_id": appID})
	if err != nil {
		return nil, err
	}
	out := make([]Prediction, 0, len(rows))
	for _, r := range rows {
		out = append(out, Prediction{
			AppID:              r.String("app_id"),
			ExecutorCount:      r.Float("executor_count"),
			ExecutorMultiplier: r.String("executor_multiplier"),
			EstimatedWallclock: r.String("estimated_wallclock"),
			EstimatedDuration:  r.String("estimated_duration"),
		})
	}
	return out, nil
}

// WorstApplications ranks applications by number of recommendations. n is
// clamped to 1..1000.
func (c *Client) WorstApplications(ctx context.Context, n int) ([]WorstApp, error) {
	if n < 1 {
		return nil, fmt.Errorf("top_n must be >= 1")
	}
	if n > 1000 {
		n = 1000
	}
	q := fmt.Sprintf(`declare query_parameters (top_n:int);
%s
| summarize RecommendationCount=count() by app_id
| order by RecommendationCount desc
| take top_n`, c.tables.Recommendations)
	rows, err := c.Query(ctx, q, map[string]any{"top_n": n})
	if err != nil {
		return nil, err
	}
	out := make([]WorstApp, 0, len(rows))
	for _, r := range rows {
		out = append(out, WorstApp{AppID: r.String("app_id"), RecommendationCount: r.Int("RecommendationCount")})
	}
	return out, nil
}

// CommonBadPatterns returns the 20 recommendations affecting most applications.
func (c *Client) CommonBadPatterns(ctx context.Context) ([]Pattern, error) {
	q := fmt.Sprintf(`%s
| summarize AffectedApps=dcount(app_id) by recommendation
| order by AffectedApps desc
| take 20`, c.tables.Recommendations)
	rows, err := c.Query(ctx, q, nil)
	if err != nil {
		return nil, err
	}
	out := make([]Pattern, 0, len(rows))
	for _, r := range rows {
		out = append(out, Pattern{Recommendation: r.String("recommendation"), AffectedApps: r.Int("AffectedApps")})
	}
	return out, nil
}

// AllMetrics returns the latest tracked metrics of every application.
func (c *Client) AllMetrics(ctx context.Context, metrics []string) (map[string]Metrics, error) {
	q := fmt.Sprintf(`%s
| where metric in (%s)
| summarize arg_max(value, *) by app_id, metric
| project app_id, metric, value`, c.tables.Metrics, quoteList(metrics))
	rows, err := c.Query(ctx, q, nil)
	if err != nil {
		return nil, err
	}
	return foldMetrics(rows), nil
}

func foldMetrics(rows []Row) map[string]Metrics {
	byApp := map[string][]Row{}
	for _, r := range rows {
		id := r.String("app_id")
		byApp[id] = append(byApp[id], r)
	}
	out := make(map[string]Metrics, len(byApp))
	for id, rs := range byApp {
		out[id] = MetricsFromRows(id, rs)
	}
	return out
}

type appName struct {
	name, artifact, capacity string
}

func (c *Client) appNames(ctx context.Context, hours int) (map[string]appName, error) {
	where := ""
	params := map[string]any(nil)
	if hours > 0 {
		where = "\n| where ingestion_time() >= ago(hours * 1h)"
		params = map[string]any{"hours": hours}
	}
	q := fmt.Sprintf(`%s%s
| distinct applicationId, applicationName, artifactId, capacityId`, c.tables.Metadata, where)
	if params != nil {
		q = "declare query_parameters (hours:int);\n" + q
	}
	rows, err := c.Query(ctx, q, params)
	if err != nil {
		return nil, err
	}
	out := make(map[string]appName, len(rows))
	for _, r := range rows {
		out[r.String("applicationId")] = appName{
			name:     r.String("applicationName"),
			artifact: r.String("artifactId"),
			capacity: r.String("capacityId"),
		}
	}
	return out, nil
}

// ApplicationNames maps application ids to their display names.
func (c *Client) ApplicationNames(ctx context.Context) (map[string]string, error) {
	names, err := c.appNames(ctx, 0)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(names))
	for id, n := range names {
		out[id] = n.name
	}
	return out, nil
}

// BadPracticeApplications lists applications breaking at least min of the
// bad-practice thresholds, most violations first.
func (c *Client) BadPracticeApplications(ctx context.Context, min int) ([]AppViolations, error) {
	q := fmt.Sprintf(`%s
| where metric in (%s)
| summarize arg_max(value, *) by app_id, metric
| project app_id, metric, value`, c.tables.Metrics, quoteList(BadPracticeMetrics))
	rows, err := c.Query(ctx, q, nil)
	if err != nil {
		return nil, err
	}
	issues := map[string][]string{}
	for _, r := range rows {
		if metric := r.String("metric"); Violates(metric, r.Float("value")) {
			id := r.String("app_id")
			issues[id] = append(issues[id], metric)
		}
	}
	names, err := c.appNames(ctx, 0)
	if err != nil {
		c.logger.Warn("application names unavailable", zap.Error(err))
		names = map[string]appName{}
	}

	var out []AppViolations
	for id, list := range issues {
		if len(list) < min {
			continue
		}
		sort.Strings(list)
		n := names[id]
		out = append(out, AppViolations{
			AppID:           id,
			ApplicationName: orUnknown(n.name),
			ArtifactID:      orUnknown(n.artifact),
			ViolationCount:  len(list),
			Issues:          list,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ViolationCount != out[j].ViolationCount {
			return out[i].ViolationCount > out[j].ViolationCount
		}
		return out[i].AppID < out[j].AppID
	})
	return out, nil
}

// RecentApplications lists applications ingested in the last hours, longest
// running first.
func (c *Client) RecentApplications(ctx context.Context, hours int) ([]RecentApp, error) {
	if hours <= 0 {
		hours = 24
	}
	names, err := c.appNames(ctx, hours)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`declare query_parameters (hours:int);
%s
| where ingestion_time() >= ago(hours * 1h)
| where metric in (%s)
| summarize arg_max(value, *) by app_id, metric
| project app_id, metric, value`, c.tables.Metrics,
		quoteList([]string{MetricExecutorEfficiency, MetricGCOverhead, MetricDurationSec, MetricExecutorCount}))
	rows, err := c.Query(ctx, q, map[string]any{"hours": hours})
	if err != nil {
		return nil, err
	}
	metrics := foldMetrics(rows)

	out := make([]RecentApp, 0, len(names))
	for id, n := range names {
		app := RecentApp{
			AppID:        id,
			AppName:      orUnknown(n.name),
			ArtifactID:   orUnknown(n.artifact),
			CapacityID:   n.capacity,
			HealthStatus: HealthUnknown,
		}
		if m, ok := metrics[id]; ok {
			app.HealthStatus = RecentHealth(m.GCOverhead, m.ExecutorEfficiency)
			app.DurationMin = float64(int(m.DurationSec/60*100+0.5)) / 100
			app.ExecutorEfficiency = m.ExecutorEfficiency
			app.GCOverheadPct = m.GCOverhead * 100
		}
		out = append(out, app)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DurationMin != out[j].DurationMin {
			return out[i].DurationMin > out[j].DurationMin
		}
		return out[i].AppID < out[j].AppID
	})
	return out, nil
}

var categoryTerms = map[string][]string{
	"memory":      {"Memory", "GC", "heap", "cache"},
	"shuffle":     {"Shuffle", "partition", "repartition"},
	"join":        {"Join", "broadcast", "skew"},
	"cpu":         {"CPU", "Efficiency", "executor"},
	"gc":          {"GC", "Garbage Collection"},
	"skew":        {"Skew", "imbalance", "straggler"},
	"driver":      {"Driver", "coordination"},
	"parallelism": {"Parallelism", "task", "core"},
	"streaming":   {"Streaming", "micro-batch"},
	"fabric":      {"Fabric", "NEE", "Native Execution"},
}

// Categories lists the category names with a predefined keyword set.
func Categories() []string {
	out := make([]string, 0, len(categoryTerms))
	for name := range categoryTerms {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RecommendationsByCategory searches both recommendation tables for the
// keywords of a category. Unknown categories search for the word itself.
func (c *Client) RecommendationsByCategory(ctx context.Context, category string) ([]CategoryMatch, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, fmt.Errorf("category must be non-empty")
	}
	terms, ok := categoryTerms[strings.ToLower(category)]
	if !ok {
		terms = []string{category}
	}
	decl := make([]string, len(terms))
	conds := make([]string, len(terms))
	params := make(map[string]any, len(terms)+1)
	for i, t := range terms {
		name := fmt.Sprintf("t%d", i)
		decl[i] = name + ":string"
		conds[i] = "recommendation has " + name
		params[name] = t
	}
	decl = append(decl, "category_name:string")
	params["category_name"] = category
	filter := strings.Join(conds, " or ")

	q := fmt.Sprintf(`declare query_parameters (%s);
union isfuzzy=true
(%s | where %s | project app_id, source = "sparklens", recommendation, category = category_name),
(%s | where %s | project app_id, source = "fabric", recommendation, category = category_name)
| order by app_id asc
| take 100`, strings.Join(decl, ", "), c.tables.Recommendations, filter, c.tables.FabricRecommendations, filter)
	rows, err := c.Query(ctx, q, params)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryMatch, 0, len(rows))
	for _, r := range rows {
		out = append(out, CategoryMatch{
			AppID:          r.String("app_id"),
			Source:         r.String("source"),
			Recommendation: r.String("recommendation"),
			Category:       r.String("category"),
		})
	}
	return out, nil
}

// DatabaseSchema lists every table with its columns.
func (c *Client) DatabaseSchema(ctx context.Context) (Schema, error) {
	rows, err := c.Query(ctx, `.show database schema
| project TableName, ColumnName, ColumnType
| order by TableName asc, ColumnName asc`, nil)
	if err != nil {
		return nil, err
	}
	s := Schema{}
	for _, r := range rows {
		t := r.String("TableName")
		if t == "" {
			continue
		}
		if _, ok := s[t]; !ok {
			s[t] = []Column{}
		}
		col := r.String("ColumnName")
		if col == "" {
			continue
		}
		s[t] = append(s[t], Column{Name: col, Type: r.String("ColumnType")})
	}
	return s, nil
}

// FullReport gathers recommendations, stage statistics and predictions.
func (c *Client) FullReport(ctx context.Context, appID string) (Report, error) {
	var (
		rep Report
		err error
	)
	if rep.Recommendations, err = c.SparklensRecommendations(ctx, appID); err != nil {
		return rep, err
	}
	if rep.FabricRecommendations, err = c.FabricRecommendations(ctx, appID); err != nil {
		return rep, err
	}
	if rep.Stages, err = c.StageSummary(ctx, appID); err != nil {
		return rep, err
	}
	if rep.Predictions, err = c.ScalingPredictions(ctx, appID); err != nil {
		return rep, err
	}
	return rep, nil
}

// ExecuteQuery runs a caller-supplied read query after the safety check,
// capping the result at max rows.
func (c *Client) ExecuteQuery(ctx context.Context, query string, max int) ([]Row, error) {
	if err := ValidateQuerySafety(query); err != nil {
		return nil, err
	}
	return c.Query(ctx, EnsureLimit(query, max), nil)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// ShuffleImbalances returns the worst stage shuffle imbalance of every
// application in the stage summary table.
func (c *Client) ShuffleImbalances(ctx context.Context) (map[string]float64, error) {
	q := fmt.Sprintf(`%s
| extend shuffle_imbalance = iff(avg_shuffle_read_mb > 0, todouble(max_shuffle_read_mb) / todouble(avg_shuffle_read_mb), 1.0)
| summarize max_shuffle_imbalance = max(shuffle_imbalance) by app_id`, c.tables.Summary)
	rows, err := c.Query(ctx, q, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(rows))
	for _, r := range rows {
		out[r.String("app_id")] = r.Float("max_shuffle_imbalance")
	}
	return out, nil
}
