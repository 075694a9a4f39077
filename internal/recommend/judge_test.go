package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/sparkadvisor/config"
	"github.com/mohammad-safakhou/sparkadvisor/internal/budget"
	"github.com/mohammad-safakhou/sparkadvisor/provider"
)

type fakeLLM struct {
	content string
	err     error
	reqs    []provider.ChatRequest
}

func (f *fakeLLM) Chat(_ context.Context, req provider.ChatRequest) (provider.ChatResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return provider.ChatResponse{}, f.err
	}
	return provider.ChatResponse{Content: f.content, PromptTokens: 100, CompletionTokens: 50}, nil
}

func newJudge(llm provider.Provider) *Judge {
	return NewJudge(llm, config.ModelParams{Temperature: 0.3, MaxTokens: 4000}, budget.Config{}, nil)
}

func judgeAnswer(t *testing.T, items []Validated, health Health) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"validated_recommendations": items,
		"summary":                   "ok",
		"critical_count":            99,
		"warning_count":             0,
		"info_count":                0,
		"overall_health":            health,
		"detected_contradictions":   []Contradiction{},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

var inputs = []Recommendation{
	{Text: "🔴 HIGH Task skew ratio 7.2 on stage 3", Source: SourceKusto, Metadata: map[string]any{"table": "sparklens_recommedations"}},
	{Text: "⚫ LOW No critical issues. No action required", Source: SourceKusto, Metadata: map[string]any{"table": "fabric_recommedations"}},
	{Text: "Use adaptive query execution to coalesce partitions", Source: SourceRAG, Metadata: map[string]any{"title": "AQE", "source_url": "https://learn.microsoft.com/aqe"}},
	{Text: "Consider tuning shuffle partitions", Source: SourceLLM},
}

func TestValidateEmptyInputSkipsLLM(t *testing.T) {
	llm := &fakeLLM{}
	res, err := newJudge(llm).Validate(context.Background(), "app-1", nil, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(llm.reqs) != 0 {
		t.Fatalf("expected no llm call, got %d", len(llm.reqs))
	}
	if res.OverallHealth != HealthHealthy || res.TotalRecommendations != 0 {
		t.Fatalf("unexpected empty result %+v", res)
	}
}

func TestValidateRestoresTelemetry(t *testing.T) {
	answer := judgeAnswer(t, []Validated{
		{Recommendation: "Skew is high, rebalance", Source: SourceKusto, Confidence: ConfidenceHigh, Priority: 3, Reasoning: "r", Action: "a"},
		{Recommendation: "AQE - coalesce partitions", Source: SourceRAG, Confidence: ConfidenceHigh, Priority: 22, Reasoning: "r", Action: "a"},
		{Recommendation: "Made up telemetry", Source: SourceLLM, Confidence: ConfidenceLow, Priority: 35, Reasoning: "r", Action: "a", IsGeneric: true},
	}, HealthHealthy)
	llm := &fakeLLM{content: answer}

	res, err := newJudge(llm).Validate(context.Background(), "app-1", inputs, map[string]any{"Executor Efficiency": 0.42})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	req := llm.reqs[0]
	if req.Schema == nil || req.Schema.Name != SchemaName || !req.Schema.Strict {
		t.Fatalf("expected strict schema request, got %+v", req.Schema)
	}
	if req.Temperature != 0.3 || req.MaxTokens != 4000 {
		t.Fatalf("unexpected sampling %v/%d", req.Temperature, req.MaxTokens)
	}

	if res.TotalRecommendations != 4 {
		t.Fatalf("expected 4 recommendations, got %d", res.TotalRecommendations)
	}
	first := res.ValidatedRecommendations[0]
	if first.Recommendation != inputs[0].Text {
		t.Fatalf("kusto text not verbatim: %q", first.Recommendation)
	}
	if first.Priority < 10 || first.Priority > 19 {
		t.Fatalf("HIGH kusto priority outside band: %d", first.Priority)
	}
	if first.Metadata["table"] != "sparklens_recommedations" {
		t.Fatalf("metadata not restored: %v", first.Metadata)
	}

	restored := res.ValidatedRecommendations[1]
	if restored.Source != SourceKusto || restored.Priority != 15 || restored.Confidence != ConfidenceHigh {
		t.Fatalf("dropped kusto item not restored: %+v", restored)
	}
	if restored.Recommendation != inputs[1].Text || restored.Metadata["table"] != "fabric_recommedations" {
		t.Fatalf("restored item lost its text or metadata: %+v", restored)
	}

	if res.ValidatedRecommendations[2].Source != SourceRAG || res.ValidatedRecommendations[3].Source != SourceLLM {
		t.Fatalf("trust order violated: %+v", res.ValidatedRecommendations)
	}
	if res.ValidatedRecommendations[2].Metadata["title"] != "AQE" {
		t.Fatalf("rag metadata not restored")
	}
	if res.CriticalCount != 0 || res.WarningCount != 3 || res.InfoCount != 1 {
		t.Fatalf("counts not recomputed: %d/%d/%d", res.CriticalCount, res.WarningCount, res.InfoCount)
	}
	if res.OverallHealth != HealthWarning {
		t.Fatalf("health should escalate to warning, got %s", res.OverallHealth)
	}
	if strings.Join(sourceNames(res.SourcesUsed), ",") != "kusto,rag,llm" {
		t.Fatalf("unexpected sources used %v", res.SourcesUsed)
	}
}

func TestValidateDropsInventedTelemetry(t *testing.T) {
	recs := []Recommendation{{Text: "🟡 MEDIUM GC overhead 0.31", Source: SourceKusto}}
	answer := judgeAnswer(t, []Validated{
		{Recommendation: "GC overhead", Source: SourceKusto, Confidence: ConfidenceHigh, Priority: 24},
		{Recommendation: "Invented", Source: SourceKusto, Confidence: ConfidenceHigh, Priority: 2},
	}, HealthWarning)

	res, err := newJudge(&fakeLLM{content: answer}).Validate(context.Background(), "app-2", recs, nil)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.TotalRecommendations != 1 || res.ValidatedRecommendations[0].Priority != 24 {
		t.Fatalf("expected the single in-band kusto item, got %+v", res.ValidatedRecommendations)
	}
}

func TestValidateFallsBackOnLLMError(t *testing.T) {
	boom := errors.New("503 service unavailable")
	res, err := newJudge(&fakeLLM{err: boom}).Validate(context.Background(), "app-3", inputs, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected llm error, got %v", err)
	}
	if res.Error == "" || res.OverallHealth != HealthWarning {
		t.Fatalf("expected fallback result, got %+v", res)
	}
	if res.ValidatedRecommendations[0].Reasoning != fallbackReasoning {
		t.Fatalf("expected fallback reasoning")
	}
}

func TestValidateRejectsUnknownSource(t *testing.T) {
	answer := `{"validated_recommendations":[{"recommendation":"x","source":"web","confidence":"high","priority":1,"reasoning":"","action":"","is_generic":false,"contradicts":[]}],"summary":"","critical_count":0,"warning_count":0,"info_count":0,"overall_health":"healthy","detected_contradictions":[]}`
	_, err := newJudge(&fakeLLM{content: answer}).Validate(context.Background(), "app-4", inputs, nil)
	if !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestParseResponseRepairsTruncatedJSON(t *testing.T) {
	content := `{"validated_recommendations":[{"recommendation":"x","source":"rag","confidence":"High","priority":21,"reasoning":"r","action":"a","is_generic":false,"contradicts":[]}],"summary":"s","critical_count":0,"warning_count":1,"info_count":0,"overall_health":"warning","detected_contradictions":[]`
	res, err := ParseResponse(content)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if res.ValidatedRecommendations[0].Confidence != ConfidenceHigh {
		t.Fatalf("confidence not normalized: %q", res.ValidatedRecommendations[0].Confidence)
	}
}

func TestValidateTrimsDocumentationToBudget(t *testing.T) {
	long := strings.Repeat("spark partition tuning guidance ", 2000)
	recs := []Recommendation{{Text: long, Source: SourceRAG}}
	llm := &fakeLLM{content: judgeAnswer(t, []Validated{}, HealthHealthy)}
	j := NewJudge(llm, config.ModelParams{MaxTokens: 1000}, budget.Config{MaxPromptTokens: 3000, PerDocumentTokens: 500}, nil)

	if _, err := j.Validate(context.Background(), "app-5", recs, nil); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	prompt := llm.reqs[0].Messages[1].Content
	if n := budget.Count(prompt); n > 3000 {
		t.Fatalf("prompt over budget: %d tokens", n)
	}
}

func TestValidateHonorsAnalysisBudget(t *testing.T) {
	mon := budget.NewMonitor(budget.Config{MaxAnalysisTokens: 10})
	ctx := budget.WithMonitor(context.Background(), mon)
	llm := &fakeLLM{}
	res, err := newJudge(llm).Validate(ctx, "app-6", inputs, nil)
	var exceeded budget.ErrExceeded
	if !errors.As(err, &exceeded) {
		t.Fatalf("expected budget error, got %v", err)
	}
	if len(llm.reqs) != 0 || res.Error == "" {
		t.Fatalf("expected fallback without llm call")
	}
}

func sourceNames(ss []Source) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

func TestCheckInputs(t *testing.T) {
	ok := []Recommendation{{Text: "a", Source: SourceKusto}, {Text: "b", Source: SourceRAG}, {Text: "c", Source: SourceLLM}}
	if err := CheckInputs(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, src := range []Source{SourceCombined, "", "rumor"} {
		err := CheckInputs([]Recommendation{{Text: "a", Source: SourceKusto}, {Text: "b", Source: src}})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("source %q: expected ErrInvalidInput, got %v", src, err)
		}
		if !strings.Contains(err.Error(), "recommendation 1") {
			t.Fatalf("source %q: error does not name the item: %v", src, err)
		}
	}
}
