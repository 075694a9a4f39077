package recommend

import (
	"encoding/json"
	"strings"
)

// Source identifies where a recommendation came from.
type Source string

const (
	SourceKusto    Source = "kusto"
	SourceRAG      Source = "rag"
	SourceLLM      Source = "llm"
	SourceCombined Source = "combined"
)

// Sources lists the input sources in trust order.
var Sources = []Source{SourceKusto, SourceRAG, SourceLLM}

// Trust ranks a source; lower is more trusted.
func Trust(s Source) int {
	switch s {
	case SourceKusto:
		return 1
	case SourceRAG, SourceCombined:
		return 2
	default:
		return 3
	}
}

// ValidInput reports whether s may label a recommendation handed to the
// judge. combined only appears in judge output.
func (s Source) ValidInput() bool {
	switch s {
	case SourceKusto, SourceRAG, SourceLLM:
		return true
	}
	return false
}

// Valid reports whether s is one of the known output sources.
func (s Source) Valid() bool {
	switch s {
	case SourceKusto, SourceRAG, SourceLLM, SourceCombined:
		return true
	}
	return false
}

// Confidence is the judge's confidence label.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func (c Confidence) Valid() bool {
	return c == ConfidenceHigh || c == ConfidenceMedium || c == ConfidenceLow
}

// Health is the overall verdict for an application.
type Health string

const (
	HealthCritical  Health = "critical"
	HealthWarning   Health = "warning"
	HealthHealthy   Health = "healthy"
	HealthExcellent Health = "excellent"
	HealthUnknown   Health = "unknown"
)

func (h Health) Valid() bool {
	switch h {
	case HealthCritical, HealthWarning, HealthHealthy, HealthExcellent:
		return true
	}
	return false
}

// rank orders health from worst (0) to best.
func (h Health) rank() int {
	switch h {
	case HealthCritical:
		return 0
	case HealthWarning:
		return 1
	case HealthHealthy:
		return 2
	case HealthExcellent:
		return 3
	}
	return 4
}

// Recommendation is one input item handed to the judge.
type Recommendation struct {
	Text     string         `json:"text"`
	Source   Source         `json:"source"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// UnmarshalJSON accepts "recommendation" as an alias for "text" and defaults
// a missing source to llm.
func (r *Recommendation) UnmarshalJSON(b []byte) error {
	var raw struct {
		Text           string         `json:"text"`
		Recommendation string         `json:"recommendation"`
		Source         Source         `json:"source"`
		Metadata       map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.Text = raw.Text
	if r.Text == "" {
		r.Text = raw.Recommendation
	}
	r.Source = Source(strings.ToLower(strings.TrimSpace(string(raw.Source))))
	if r.Source == "" {
		r.Source = SourceLLM
	}
	r.Metadata = raw.Metadata
	return nil
}

// Validated is one judged recommendation.
type Validated struct {
	Recommendation string         `json:"recommendation"`
	Source         Source         `json:"source"`
	Confidence     Confidence     `json:"confidence"`
	Priority       int            `json:"priority"`
	Reasoning      string         `json:"reasoning"`
	Action         string         `json:"action"`
	IsGeneric      bool           `json:"is_generic"`
	Contradicts    []string       `json:"contradicts"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// FromKusto reports whether the item is telemetry-backed, either by source or
// by the from_kusto metadata flag.
func (v Validated) FromKusto() bool {
	if v.Source == SourceKusto {
		return true
	}
	b, _ := v.Metadata["from_kusto"].(bool)
	return b
}

type Contradiction struct {
	Recommendation1 string `json:"recommendation_1"`
	Recommendation2 string `json:"recommendation_2"`
	Explanation     string `json:"explanation"`
}

// Result is the reconciled output of one validation.
type Result struct {
	ApplicationID            string          `json:"application_id"`
	ValidatedRecommendations []Validated     `json:"validated_recommendations"`
	Summary                  string          `json:"summary"`
	CriticalCount            int             `json:"critical_count"`
	WarningCount             int             `json:"warning_count"`
	InfoCount                int             `json:"info_count"`
	OverallHealth            Health          `json:"overall_health"`
	DetectedContradictions   []Contradiction `json:"detected_contradictions"`
	TotalRecommendations     int             `json:"total_recommendations"`
	SourcesUsed              []Source        `json:"sources_used"`
	Error                    string          `json:"error,omitempty"`
}

// GroupBySource splits recs into per-source groups keeping input order.
func GroupBySource(recs []Recommendation) map[Source][]Recommendation {
	out := make(map[Source][]Recommendation, len(Sources))
	for _, r := range recs {
		out[r.Source] = append(out[r.Source], r)
	}
	return out
}

// CountBySource tallies input recommendations per source.
func CountBySource(recs []Recommendation) map[Source]int {
	out := map[Source]int{}
	for _, r := range recs {
		out[r.Source]++
	}
	return out
}
