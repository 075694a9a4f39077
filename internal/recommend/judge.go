package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/sparkadvisor/config"
	"github.com/mohammad-safakhou/sparkadvisor/internal/budget"
	"github.com/mohammad-safakhou/sparkadvisor/provider"
)

// ErrInvalidResponse marks a judge answer whose shape cannot be used.
var ErrInvalidResponse = errors.New("invalid judge response")

// ErrInvalidInput marks recommendations that cannot be sent to the judge.
var ErrInvalidInput = errors.New("invalid recommendation input")

// CheckInputs rejects items whose source is not kusto, rag or llm.
func CheckInputs(recs []Recommendation) error {
	for i, r := range recs {
		if !r.Source.ValidInput() {
			return fmt.Errorf("%w: recommendation %d has source %q, want kusto, rag or llm", ErrInvalidInput, i, r.Source)
		}
	}
	return nil
}

// Judge validates combined recommendations with a schema-constrained LLM
// call and patches the answer so telemetry items survive untouched.
type Judge struct {
	llm    provider.Provider
	params config.ModelParams
	budget budget.Config
	logger *zap.Logger
}

// NewJudge builds a judge. A nil llm makes every call fall back.
func NewJudge(llm provider.Provider, params config.ModelParams, b budget.Config, logger *zap.Logger) *Judge {
	if logger == nil {
		logger = zap.NewNop()
	}
	if params.MaxTokens <= 0 {
		params.MaxTokens = 4000
	}
	return &Judge{llm: llm, params: params, budget: b.Normalize(), logger: logger}
}

// Validate reconciles recs into one prioritized result. On any judge failure
// it returns the deterministic fallback together with the error.
func (j *Judge) Validate(ctx context.Context, appID string, recs []Recommendation, appContext map[string]any) (*Result, error) {
	if len(recs) == 0 {
		return &Result{
			ApplicationID:            appID,
			ValidatedRecommendations: []Validated{},
			Summary:                  "No recommendations to validate.",
			OverallHealth:            HealthHealthy,
			DetectedContradictions:   []Contradiction{},
			SourcesUsed:              []Source{},
		}, nil
	}
	if j.llm == nil {
		err := errors.New("judge: no llm configured")
		return Fallback(appID, recs, err), err
	}

	prompted := j.fitRAG(appID, recs, appContext)
	prompt := BuildJudgePrompt(appID, prompted, appContext)

	mon := budget.MonitorFrom(ctx)
	if mon != nil {
		estimate := int64(budget.Count(JudgeSystemPrompt) + budget.Count(prompt) + j.params.MaxTokens)
		if err := mon.Allow(estimate); err != nil {
			return Fallback(appID, recs, err), err
		}
	}

	resp, err := j.llm.Chat(ctx, provider.ChatRequest{
		Messages: []provider.Message{
			{Role: "system", Content: JudgeSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: j.params.Temperature,
		MaxTokens:   j.params.MaxTokens,
		Schema:      &provider.JSONSchema{Name: SchemaName, Strict: true, Schema: ResponseSchema()},
	})
	if err != nil {
		j.logger.Warn("judge call failed", zap.String("application_id", appID), zap.Error(err))
		return Fallback(appID, recs, err), err
	}
	if mon != nil {
		_ = mon.Add(int64(resp.PromptTokens + resp.CompletionTokens))
	}

	res, err := ParseResponse(resp.Content)
	if err != nil {
		j.logger.Warn("judge response rejected", zap.String("application_id", appID), zap.Error(err))
		return Fallback(appID, recs, err), err
	}

	j.reconcile(appID, recs, res)
	return res, nil
}

// reconcile applies the post-judge patches in order.
func (j *Judge) reconcile(appID string, recs []Recommendation, res *Result) {
	groups := GroupBySource(recs)

	RestoreMetadata(res.ValidatedRecommendations, groups)
	var extra int
	res.ValidatedRecommendations, extra = EnforceVerbatim(res.ValidatedRecommendations, groups[SourceKusto])
	if extra > 0 {
		j.logger.Warn("judge invented telemetry recommendations; dropped",
			zap.String("application_id", appID), zap.Int("count", extra))
	}
	var restored int
	res.ValidatedRecommendations, restored = RestoreDropped(res.ValidatedRecommendations, groups[SourceKusto])
	if restored > 0 {
		j.logger.Info("restored telemetry recommendations filtered by judge",
			zap.String("application_id", appID), zap.Int("count", restored))
	}

	res.DetectedContradictions = MergeContradictions(res.DetectedContradictions, DetectContradictions(res.ValidatedRecommendations))
	Order(res.ValidatedRecommendations)
	Finalize(appID, res)
}

// ParseResponse decodes and shape-checks a judge answer. Malformed JSON gets
// one repair attempt before it is rejected.
func ParseResponse(content string) (*Result, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty content", ErrInvalidResponse)
	}
	var res Result
	if err := json.Unmarshal([]byte(content), &res); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(content)
		if rerr != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
		if err := json.Unmarshal([]byte(repaired), &res); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
	}
	if err := checkShape(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

func checkShape(res *Result) error {
	if res.ValidatedRecommendations == nil {
		res.ValidatedRecommendations = []Validated{}
	}
	for i := range res.ValidatedRecommendations {
		v := &res.ValidatedRecommendations[i]
		v.Source = Source(strings.ToLower(strings.TrimSpace(string(v.Source))))
		if !v.Source.Valid() {
			return fmt.Errorf("%w: item %d has unknown source %q", ErrInvalidResponse, i, v.Source)
		}
		v.Confidence = Confidence(strings.ToLower(strings.TrimSpace(string(v.Confidence))))
		if !v.Confidence.Valid() {
			return fmt.Errorf("%w: item %d has unknown confidence %q", ErrInvalidResponse, i, v.Confidence)
		}
		if v.Priority < 1 {
			v.Priority = 1
		}
		if v.Contradicts == nil {
			v.Contradicts = []string{}
		}
		// metadata never comes from the judge
		v.Metadata = nil
	}
	res.OverallHealth = Health(strings.ToLower(strings.TrimSpace(string(res.OverallHealth))))
	if !res.OverallHealth.Valid() {
		return fmt.Errorf("%w: unknown overall_health %q", ErrInvalidResponse, res.OverallHealth)
	}
	if res.DetectedContradictions == nil {
		res.DetectedContradictions = []Contradiction{}
	}
	res.Error = ""
	return nil
}

// fitRAG caps each documentation excerpt and then trims the set so the whole
// prompt stays inside the prompt budget. Non-RAG text is never cut.
func (j *Judge) fitRAG(appID string, recs []Recommendation, appContext map[string]any) []Recommendation {
	var ragIdx []int
	var texts []string
	out := make([]Recommendation, len(recs))
	copy(out, recs)
	for i, r := range out {
		if r.Source == SourceRAG {
			ragIdx = append(ragIdx, i)
			texts = append(texts, budget.Truncate(r.Text, j.budget.PerDocumentTokens))
		}
	}
	if len(ragIdx) == 0 {
		return out
	}

	skeleton := make([]Recommendation, len(out))
	copy(skeleton, out)
	for _, i := range ragIdx {
		skeleton[i].Text = ""
	}
	fixed := budget.Count(JudgeSystemPrompt) + budget.Count(BuildJudgePrompt(appID, skeleton, appContext))

	fitted, err := budget.Fit(texts, fixed, j.budget.MaxPromptTokens)
	if err != nil {
		j.logger.Warn("prompt over budget before documentation", zap.String("application_id", appID), zap.Error(err))
		fitted = texts
	}
	for k, i := range ragIdx {
		out[i].Text = fitted[k]
	}
	return out
}

// Finalize fills the derived fields of a result: application id, totals,
// sources used, bucket counts and escalated health.
func Finalize(appID string, res *Result) {
	res.ApplicationID = appID
	res.TotalRecommendations = len(res.ValidatedRecommendations)
	res.SourcesUsed = SourcesUsed(res.ValidatedRecommendations)

	critical, warning, info := Counts(res.ValidatedRecommendations)
	res.CriticalCount, res.WarningCount, res.InfoCount = critical, warning, info

	if derived := DeriveHealth(critical, warning); derived != "" && derived.rank() < res.OverallHealth.rank() {
		res.OverallHealth = derived
	}
}

// SourcesUsed returns the distinct sources of vs in trust order.
func SourcesUsed(vs []Validated) []Source {
	seen := map[Source]bool{}
	out := []Source{}
	for _, v := range vs {
		if !seen[v.Source] {
			seen[v.Source] = true
			out = append(out, v.Source)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if Trust(out[a]) != Trust(out[b]) {
			return Trust(out[a]) < Trust(out[b])
		}
		return out[a] < out[b]
	})
	return out
}

// Counts buckets priorities into critical, warning and info.
func Counts(vs []Validated) (critical, warning, info int) {
	for _, v := range vs {
		switch BucketOf(v.Priority) {
		case BucketCritical:
			critical++
		case BucketWarning:
			warning++
		default:
			info++
		}
	}
	return
}

// DeriveHealth is the health implied by bucket counts, or "" when the counts
// carry no signal beyond the judge's own verdict.
func DeriveHealth(critical, warning int) Health {
	switch {
	case critical > 0:
		return HealthCritical
	case warning > 0:
		return HealthWarning
	}
	return ""
}
