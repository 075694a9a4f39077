package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mohammad-safakhou/sparkadvisor/internal/advisor/advisortest"
	"github.com/mohammad-safakhou/sparkadvisor/internal/docs"
	"github.com/mohammad-safakhou/sparkadvisor/internal/kusto"
	"github.com/mohammad-safakhou/sparkadvisor/internal/recommend"
	"github.com/mohammad-safakhou/sparkadvisor/internal/store"
)

const skewText = "🔴 HIGH: Task skew ratio 7.2 on stage 3"

func telemetryFixture() *advisortest.Telemetry {
	return &advisortest.Telemetry{
		Sparklens: []kusto.Recommendation{{
			AppID:          "app-1",
			Recommendation: "(1) " + skewText + " (2) ⚫ LOW: No action required",
			Table:          "sparklens_recommedations",
		}},
		Fabric: []kusto.Recommendation{{
			AppID:          "app-1",
			Recommendation: "🟡 MEDIUM: Enable the native execution engine",
			Table:          "fabric_recommedations",
		}},
		Summary: &kusto.Summary{AppID: "app-1", AppName: "nightly-etl", ExecutorEfficiency: 0.4, GCOverheadPct: 12},
	}
}

func docsFixture() *advisortest.Searcher {
	return &advisortest.Searcher{Docs: []docs.Document{
		{Title: "Native execution engine", Content: "Enable the native engine for vectorized execution.", SourceURL: "https://learn.microsoft.com/native", Score: 3.2},
		{Title: "Autotune", Content: "Autotune adjusts shuffle partitions per query.", SourceURL: "https://learn.microsoft.com/autotune", Score: 2.1},
	}}
}

func TestAnalyzeKeepsTelemetryVerbatim(t *testing.T) {
	llm := &advisortest.LLM{}
	h := newHarness(t, telemetryFixture(), llm, docsFixture())
	llm.Judge = advisortest.JudgeAnswer([]recommend.Validated{
		{Recommendation: "Rebalance stage 3", Source: recommend.SourceKusto, Confidence: recommend.ConfidenceHigh, Priority: 3, Reasoning: "skew", Action: "salt keys"},
		{Recommendation: "Enable native engine", Source: recommend.SourceRAG, Confidence: recommend.ConfidenceMedium, Priority: 22, Reasoning: "docs", Action: "toggle"},
	}, recommend.HealthHealthy)

	res, err := h.advisor.Analyze(context.Background(), "app-1", "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	wantCounts := map[recommend.Source]int{recommend.SourceKusto: 3, recommend.SourceRAG: 2, recommend.SourceLLM: 0}
	if diff := cmp.Diff(wantCounts, res.SourceCounts); diff != "" {
		t.Fatalf("source counts (-want +got):\n%s", diff)
	}

	var kustoTexts []string
	restored := 0
	for _, v := range res.ValidatedRecommendations {
		if v.Source != recommend.SourceKusto {
			continue
		}
		kustoTexts = append(kustoTexts, v.Recommendation)
		if recommend.Restored(v) {
			restored++
		}
	}
	want := []string{skewText, "⚫ LOW: No action required", "🟡 MEDIUM: Enable the native execution engine"}
	for _, w := range want {
		if !contains(kustoTexts, w) {
			t.Fatalf("telemetry item %q missing from %v", w, kustoTexts)
		}
	}
	if len(kustoTexts) != 3 || restored != 2 {
		t.Fatalf("expected 3 kusto items with 2 restored, got %d/%d", len(kustoTexts), restored)
	}
	if res.ValidatedRecommendations[0].Source != recommend.SourceKusto {
		t.Fatalf("telemetry must lead, got %s first", res.ValidatedRecommendations[0].Source)
	}
	for _, v := range res.ValidatedRecommendations {
		if v.Recommendation == skewText && (v.Priority < 10 || v.Priority > 19) {
			t.Fatalf("HIGH item priority %d outside its band", v.Priority)
		}
	}
	if res.OverallHealth != recommend.HealthWarning {
		t.Fatalf("expected health escalated to warning, got %s", res.OverallHealth)
	}

	if len(h.docs.Queries()) != 1 || h.docs.Queries()[0] != "fabric" {
		t.Fatalf("unexpected documentation queries %v", h.docs.Queries())
	}
	if len(h.history.Saved()) != 1 || res.AnalysisID != "analysis-1" {
		t.Fatalf("analysis not persisted: %d saved, id %q", len(h.history.Saved()), res.AnalysisID)
	}
	sess, err := h.sessions.Get(context.Background(), res.SessionID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if sess.CurrentAppID != "app-1" || len(sess.LastRecommendations) != len(res.ValidatedRecommendations) {
		t.Fatalf("session not updated: %+v", sess)
	}
}

func TestAnalyzeAsksLLMWithoutTelemetry(t *testing.T) {
	llm := &advisortest.LLM{Text: "1. Increase spark.sql.shuffle.partitions\n2. Cache reused tables"}
	tel := &advisortest.Telemetry{Summary: &kusto.Summary{AppID: "app-2", GCOverheadPct: 40}}
	h := newHarness(t, tel, llm, nil)
	llm.Judge = advisortest.JudgeAnswer([]recommend.Validated{
		{Recommendation: "Increase shuffle partitions", Source: recommend.SourceLLM, Confidence: recommend.ConfidenceLow, Priority: 32, Reasoning: "generic", Action: "tune"},
	}, recommend.HealthHealthy)

	res, err := h.advisor.Analyze(context.Background(), "app-2", "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.SourceCounts[recommend.SourceLLM] != 1 {
		t.Fatalf("expected one llm input, got %v", res.SourceCounts)
	}
	if len(llm.Prompts()) != 2 {
		t.Fatalf("expected generation and judge calls, got %d", len(llm.Prompts()))
	}
	if !strings.Contains(llm.Prompts()[0], "app-2") {
		t.Fatalf("generation prompt lacks application id: %q", llm.Prompts()[0])
	}
	if res.TotalRecommendations != 1 || res.ValidatedRecommendations[0].Source != recommend.SourceLLM {
		t.Fatalf("unexpected result %+v", res.ValidatedRecommendations)
	}
}

func TestAnalyzeSkipsLLMWhenTelemetryPresent(t *testing.T) {
	llm := &advisortest.LLM{Text: "unused"}
	h := newHarness(t, telemetryFixture(), llm, nil)
	llm.Judge = advisortest.JudgeAnswer(nil, recommend.HealthHealthy)

	res, err := h.advisor.Analyze(context.Background(), "app-1", "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(llm.Prompts()) != 1 {
		t.Fatalf("expected only the judge call, got %d", len(llm.Prompts()))
	}
	if res.SourceCounts[recommend.SourceLLM] != 0 {
		t.Fatalf("llm must not be asked, got %v", res.SourceCounts)
	}
	if res.SourceCounts[recommend.SourceKusto] != 3 || res.TotalRecommendations != 3 {
		t.Fatalf("dropped telemetry must be restored, got %d items", res.TotalRecommendations)
	}
}

func TestAnalyzeJudgeFailureFallsBack(t *testing.T) {
	llm := &advisortest.LLM{Err: errUnavailable}
	h := newHarness(t, telemetryFixture(), llm, nil)

	res, err := h.advisor.Analyze(context.Background(), "app-1", "sess-1")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.OverallHealth != recommend.HealthUnknown {
		t.Fatalf("expected unknown health, got %s", res.OverallHealth)
	}
	if res.Summary != rawFallbackSummary || res.Error == "" {
		t.Fatalf("unexpected fallback summary %q error %q", res.Summary, res.Error)
	}
	if res.TotalRecommendations != 3 {
		t.Fatalf("fallback must keep every input, got %d", res.TotalRecommendations)
	}
	if res.SessionID != "sess-1" {
		t.Fatalf("session id not kept: %q", res.SessionID)
	}
}

func TestAnalyzeRequiresApplicationID(t *testing.T) {
	h := newHarness(t, &advisortest.Telemetry{}, nil, nil)
	if _, err := h.advisor.Analyze(context.Background(), "  ", ""); err == nil {
		t.Fatalf("expected error for blank application id")
	}
}

func TestValidateRecommendationsRejectsUnknownSource(t *testing.T) {
	h := newHarness(t, &advisortest.Telemetry{}, &advisortest.LLM{}, nil)
	_, err := h.advisor.ValidateRecommendations(context.Background(), "app-1",
		[]recommend.Recommendation{{Text: "x", Source: "guess"}}, nil)
	if err == nil {
		t.Fatalf("expected unknown source error")
	}
}

func TestValidateRecommendationsRejectsCombinedInput(t *testing.T) {
	llm := &advisortest.LLM{}
	h := newHarness(t, &advisortest.Telemetry{}, llm, nil)
	_, err := h.advisor.ValidateRecommendations(context.Background(), "app-1", []recommend.Recommendation{
		{Text: "🟡 MEDIUM: GC overhead 31%", Source: recommend.SourceKusto},
		{Text: "merged advice", Source: recommend.SourceCombined},
	}, nil)
	if !errors.Is(err, recommend.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if n := len(llm.Prompts()); n != 0 {
		t.Fatalf("judge received %d prompts for rejected input", n)
	}
}

func TestRecommendationsByCategory(t *testing.T) {
	tel := &advisortest.Telemetry{ByCategory: []kusto.CategoryMatch{
		{AppID: "a", Source: "sparklens", Recommendation: "Increase executor memory", Category: "memory"},
	}}
	h := newHarness(t, tel, nil, nil)
	got, err := h.advisor.RecommendationsByCategory(context.Background(), "memory")
	if err != nil {
		t.Fatalf("RecommendationsByCategory: %v", err)
	}
	if diff := cmp.Diff(tel.ByCategory, got); diff != "" {
		t.Fatalf("matches (-want +got):\n%s", diff)
	}
	if _, err := h.advisor.RecommendationsByCategory(context.Background(), " "); !errors.Is(err, ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
}

func TestRAGQueriesFallBackToMetrics(t *testing.T) {
	got := ragQueries(nil, &kusto.Summary{GCOverheadPct: 30, TaskSkewRatio: 4, ExecutorEfficiency: 0.9, ParallelismScore: 0.9}, 3)
	want := []string{"reduce garbage collection overhead memory", "data skew task imbalance"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("queries (-want +got):\n%s", diff)
	}
	recs := []recommend.Recommendation{
		{Metadata: map[string]any{"category": "fabric"}},
		{Metadata: map[string]any{"category": "fabric"}},
		{Metadata: map[string]any{}},
	}
	if got := ragQueries(recs, nil, 3); len(got) != 1 || got[0] != "fabric" {
		t.Fatalf("expected one category query, got %v", got)
	}
}

func TestFindBadApplicationsLabels(t *testing.T) {
	tel := &advisortest.Telemetry{Bad: []kusto.AppViolations{
		{AppID: "a", ViolationCount: 4},
		{AppID: "b", ViolationCount: 12},
		{AppID: "c", ViolationCount: 6},
		{AppID: "d", ViolationCount: 1},
	}}
	h := newHarness(t, tel, nil, nil)
	apps, err := h.advisor.FindBadApplications(context.Background(), 0)
	if err != nil {
		t.Fatalf("FindBadApplications: %v", err)
	}
	var got []string
	for _, a := range apps {
		got = append(got, a.AppID+":"+a.SeverityLabel)
	}
	want := []string{"b:CRITICAL", "c:WARNING", "a:ATTENTION"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("bad apps (-want +got):\n%s", diff)
	}
}

func TestFindHealthyApplications(t *testing.T) {
	tel := &advisortest.Telemetry{
		All: map[string]kusto.Metrics{
			"a": {PerformanceScore: 93.44, ExecutorEfficiency: 0.9},
			"b": {PerformanceScore: 81, ExecutorEfficiency: 0.7},
			"c": {PerformanceScore: 50},
		},
		Names: map[string]string{"a": "daily-load"},
	}
	h := newHarness(t, tel, nil, nil)
	apps, err := h.advisor.FindHealthyApplications(context.Background(), 0)
	if err != nil {
		t.Fatalf("FindHealthyApplications: %v", err)
	}
	if len(apps) != 2 {
		t.Fatalf("expected 2 healthy apps, got %+v", apps)
	}
	if apps[0].AppID != "a" || apps[0].Grade != "A" || apps[0].HealthScore != 93.4 || apps[0].AppName != "daily-load" {
		t.Fatalf("unexpected first app %+v", apps[0])
	}
	if apps[1].Grade != "B" || apps[1].AppName != "Unknown" {
		t.Fatalf("unexpected second app %+v", apps[1])
	}
}

func TestFindApplicationsByPattern(t *testing.T) {
	tel := &advisortest.Telemetry{
		All: map[string]kusto.Metrics{
			"a": {DriverTimePct: 72, GCOverhead: 0.1},
			"b": {DriverTimePct: 91, GCOverhead: 0.3},
			"c": {DriverTimePct: 20, GCOverhead: 0.45},
		},
		Shuffle:    map[string]float64{"a": 4.5, "b": 1.2},
		ByCategory: []kusto.CategoryMatch{{AppID: "b", Category: "shuffle"}},
	}
	h := newHarness(t, tel, nil, nil)
	ctx := context.Background()

	driver, err := h.advisor.FindApplicationsByPattern(ctx, PatternDriverHeavy)
	if err != nil {
		t.Fatalf("driver_heavy: %v", err)
	}
	if len(driver) != 2 || driver[0].AppID != "b" || driver[1].AppID != "a" {
		t.Fatalf("unexpected driver_heavy order %+v", driver)
	}

	memory, err := h.advisor.FindApplicationsByPattern(ctx, PatternMemoryIntensive)
	if err != nil {
		t.Fatalf("memory_intensive: %v", err)
	}
	if len(memory) != 2 || memory[0].AppID != "c" || memory[0].Value != 45 {
		t.Fatalf("unexpected memory_intensive %+v", memory)
	}

	shuffle, err := h.advisor.FindApplicationsByPattern(ctx, PatternShuffleHeavy)
	if err != nil {
		t.Fatalf("shuffle_heavy: %v", err)
	}
	if len(shuffle) != 2 || shuffle[0].AppID != "a" || shuffle[1].Detail != "shuffle recommendation present" {
		t.Fatalf("unexpected shuffle_heavy %+v", shuffle)
	}

	if _, err := h.advisor.FindApplicationsByPattern(ctx, "io_heavy"); !errors.Is(err, ErrUnknownPattern) {
		t.Fatalf("expected ErrUnknownPattern, got %v", err)
	}
}

func TestSkewedStagesOrdering(t *testing.T) {
	stages := []kusto.Stage{
		{StageID: 1, TaskImbalance: 1.5, ShuffleImbalance: 1.1},
		{StageID: 2, TaskImbalance: 4, StageExecutionTimeSec: 10},
		{StageID: 3, ShuffleImbalance: 12, StageExecutionTimeSec: 5},
		{StageID: 4, TaskImbalance: 3.5, StageExecutionTimeSec: 40},
		{StageID: 5, TaskImbalance: 2.5},
	}
	got := SkewedStages(stages)
	var ids []int
	for _, s := range got {
		ids = append(ids, s.StageID)
	}
	if diff := cmp.Diff([]int{3, 4, 2, 5}, ids); diff != "" {
		t.Fatalf("stage order (-want +got):\n%s", diff)
	}
	if got[0].Severity != "CRITICAL" || got[3].Severity != "LOW" {
		t.Fatalf("unexpected severities %+v", got)
	}
}

func TestAnalyzeSkew(t *testing.T) {
	ctx := context.Background()

	h := newHarness(t, &advisortest.Telemetry{}, nil, nil)
	if res := h.advisor.AnalyzeSkew(ctx, "app-1"); res.Status != StatusNoData {
		t.Fatalf("expected no_data, got %+v", res)
	}

	h = newHarness(t, &advisortest.Telemetry{StagesErr: errUnavailable}, nil, nil)
	if res := h.advisor.AnalyzeSkew(ctx, "app-1"); res.Status != StatusError || res.Error == "" {
		t.Fatalf("expected error status, got %+v", res)
	}

	tel := &advisortest.Telemetry{Stages: []kusto.Stage{{StageID: 7, TaskImbalance: 6}}}
	llm := &advisortest.LLM{Text: "Salt the join key on stage 7."}
	h = newHarness(t, tel, llm, nil)
	res := h.advisor.AnalyzeSkew(ctx, "app-1")
	if res.Status != StatusSuccess || res.StagesWithSkew != 1 || res.ProblematicStages[0].Severity != "HIGH" {
		t.Fatalf("unexpected skew analysis %+v", res)
	}
	if res.LLMAnalysis == "" || !strings.Contains(res.Source, "llm_analysis") {
		t.Fatalf("expected llm narrative, got %+v", res)
	}

	h = newHarness(t, tel, nil, nil)
	res = h.advisor.AnalyzeSkew(ctx, "app-1")
	if res.Status != StatusSuccess || res.Error == "" || res.Source != "kusto_stage_data" {
		t.Fatalf("llm failure must keep deterministic result, got %+v", res)
	}
}

func TestParseDurationAndBaseline(t *testing.T) {
	cases := map[string]float64{"16m 52s": 1012, "1h 2m": 3720, "45s": 45, "n/a": 0}
	for in, want := range cases {
		if got := ParseDuration(in); got != want {
			t.Fatalf("ParseDuration(%q) = %v, want %v", in, got, want)
		}
	}
	preds := []kusto.Prediction{{ExecutorMultiplier: "0.5x"}, {ExecutorMultiplier: "1.0x (Current)", ExecutorCount: 4}}
	base, ok := Baseline(preds)
	if !ok || base.ExecutorCount != 4 {
		t.Fatalf("unexpected baseline %+v %v", base, ok)
	}
}

func TestParseVerdict(t *testing.T) {
	cases := map[string]Verdict{
		"Recommendation: DON'T SCALE, the driver dominates": VerdictDontScale,
		"We suggest to scale down to 4 executors":           VerdictScaleDown,
		"SCALE UP by 2x":                                    VerdictScaleUp,
		"Optimize first: GC is heavy":                       VerdictOptimizeFirst,
		"unclear":                                           VerdictAnalyzeNeeded,
		"DO NOT SCALE UP, the driver is the bottleneck":     VerdictDontScale,
		"You should not scale down yet":                     VerdictDontScale,
		"Don’t scale up until skew is fixed":                VerdictDontScale,
	}
	for in, want := range cases {
		if got := ParseVerdict(in); got != want {
			t.Fatalf("ParseVerdict(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestAnalyzeScaling(t *testing.T) {
	ctx := context.Background()
	tel := &advisortest.Telemetry{
		Sparklens: []kusto.Recommendation{
			{Recommendation: "Reduce executor count, driver is the bottleneck"},
			{Recommendation: "Cache the lookup table"},
		},
		Predictions: []kusto.Prediction{
			{ExecutorMultiplier: "1.0x (Current)", ExecutorCount: 4, EstimatedDuration: "16m 52s"},
			{ExecutorMultiplier: "2.0x", ExecutorCount: 8, EstimatedDuration: "15m 10s"},
		},
		Metrics: kusto.Metrics{DriverTimePct: 85, ExecutorEfficiency: 0.5, DurationSec: 2000, ExecutorCount: 3},
	}

	h := newHarness(t, tel, nil, nil)
	res := h.advisor.AnalyzeScaling(ctx, "app-1")
	if res.Status != StatusSuccess || res.Recommendation != VerdictDontScale {
		t.Fatalf("expected rule verdict DONT_SCALE, got %+v", res)
	}
	if res.CurrentMetrics.DurationSec != 1012 || res.CurrentMetrics.ExecutorCount != 4 {
		t.Fatalf("baseline must override metrics, got %+v", res.CurrentMetrics)
	}
	if res.ExistingRecommendationsCount != 1 || res.PredictionsCount != 2 {
		t.Fatalf("unexpected counts %+v", res)
	}

	llm := &advisortest.LLM{Text: "Verdict: SCALE UP, efficiency holds at 2x."}
	h = newHarness(t, tel, llm, nil)
	if res := h.advisor.AnalyzeScaling(ctx, "app-1"); res.Recommendation != VerdictScaleUp || res.LLMAnalysis == "" {
		t.Fatalf("expected llm verdict, got %+v", res)
	}

	h = newHarness(t, &advisortest.Telemetry{MetricsErr: kusto.ErrNotFound}, nil, nil)
	if res := h.advisor.AnalyzeScaling(ctx, "app-1"); res.Status != StatusError || res.Recommendation != VerdictError {
		t.Fatalf("expected error without data, got %+v", res)
	}
}

func TestSchemaIsCached(t *testing.T) {
	tel := &advisortest.Telemetry{Schema: kusto.Schema{"sparklens_metrics": {{Name: "app_id", Type: "string"}}}}
	h := newHarness(t, tel, nil, nil)
	for i := 0; i < 3; i++ {
		if _, err := h.advisor.Schema(context.Background()); err != nil {
			t.Fatalf("Schema: %v", err)
		}
	}
	if tel.SchemaCalls() != 1 {
		t.Fatalf("expected one schema query, got %d", tel.SchemaCalls())
	}
}

func TestQueryAppliesRowLimit(t *testing.T) {
	tel := &advisortest.Telemetry{}
	h := newHarness(t, tel, nil, nil)
	if _, err := h.advisor.Query(context.Background(), ".drop table sparklens_metrics"); !errors.Is(err, kusto.ErrUnsafeQuery) {
		t.Fatalf("expected unsafe query error, got %v", err)
	}
	if _, err := h.advisor.Query(context.Background(), "sparklens_metrics | where value > 1"); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(tel.Queries()) != 1 || !strings.HasSuffix(tel.Queries()[0], "| take 100") {
		t.Fatalf("row limit not applied: %v", tel.Queries())
	}
}

func TestFeedbackFromMessage(t *testing.T) {
	llm := &advisortest.LLM{}
	h := newHarness(t, telemetryFixture(), llm, docsFixture())
	llm.Judge = advisortest.JudgeAnswer([]recommend.Validated{
		{Recommendation: "Enable native engine", Source: recommend.SourceRAG, Confidence: recommend.ConfidenceMedium, Priority: 22, Reasoning: "docs", Action: "toggle"},
	}, recommend.HealthHealthy)
	ctx := context.Background()
	res, err := h.advisor.Analyze(ctx, "app-1", "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if _, ok := h.advisor.FeedbackFromMessage(ctx, res.SessionID, "what about stage 3?"); ok {
		t.Fatalf("plain question must not be feedback")
	}
	f, ok := h.advisor.FeedbackFromMessage(ctx, res.SessionID, "not helpful, too generic")
	if !ok {
		t.Fatalf("expected feedback")
	}
	if f.Type != store.FeedbackNotHelpful || f.ApplicationID != "app-1" {
		t.Fatalf("unexpected feedback %+v", f)
	}
	if f.KustoCount != 3 || f.RAGCount != 1 || f.RecommendationCount != 4 {
		t.Fatalf("unexpected counts %+v", f)
	}
	if _, err := h.advisor.SubmitFeedback(ctx, f); err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	stats, err := h.advisor.FeedbackStats(ctx)
	if err != nil || stats[store.FeedbackNotHelpful] != 1 {
		t.Fatalf("unexpected stats %v %v", stats, err)
	}
}

func TestSubmitFeedbackWithoutHistory(t *testing.T) {
	a, err := New(Options{Kusto: &advisortest.Telemetry{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := a.SubmitFeedback(context.Background(), store.Feedback{Type: store.FeedbackHelpful}); !errors.Is(err, ErrHistoryDisabled) {
		t.Fatalf("expected ErrHistoryDisabled, got %v", err)
	}
}

func TestFormatAnalysis(t *testing.T) {
	a := &Analysis{
		Result: recommend.Result{
			ApplicationID: "app-1",
			OverallHealth: recommend.HealthWarning,
			Summary:       "Skew dominates",
			ValidatedRecommendations: []recommend.Validated{
				{Recommendation: skewText, Source: recommend.SourceKusto, Priority: 10, Confidence: recommend.ConfidenceHigh},
				{Recommendation: "Use AQE", Source: recommend.SourceRAG, Priority: 22, Confidence: recommend.ConfidenceMedium,
					Metadata: map[string]any{"title": "Adaptive query execution", "source_url": "https://learn.microsoft.com/aqe"}},
			},
		},
		SourceCounts: map[recommend.Source]int{recommend.SourceKusto: 1, recommend.SourceRAG: 1},
	}
	out := FormatAnalysis(a)
	for _, want := range []string{"app-1", "WARNING", "Tier 1", skewText, "Adaptive query execution", "https://learn.microsoft.com/aqe"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Tier 3") {
		t.Fatalf("report must omit empty AI tier:\n%s", out)
	}
	chat := FormatChatSummary(a)
	if !strings.Contains(chat, "Kusto: 1, RAG: 1, LLM: 0") || !strings.Contains(chat, "1. [high] [KUSTO]") {
		t.Fatalf("unexpected chat summary:\n%s", chat)
	}
}
