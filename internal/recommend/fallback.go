package recommend

import "fmt"

const (
	fallbackReasoning = "Fallback validation - LLM judge unavailable"
	fallbackAction    = "Review recommendation manually"
)

// Fallback ranks recs by source trust alone. It is used whenever the judge
// cannot produce a usable answer.
func Fallback(appID string, recs []Recommendation, cause error) *Result {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	vs := make([]Validated, 0, len(recs))
	for i, r := range recs {
		src := r.Source
		if !src.Valid() {
			src = SourceLLM
		}
		conf := ConfidenceLow
		if src == SourceKusto {
			conf = ConfidenceMedium
		}
		vs = append(vs, Validated{
			Recommendation: r.Text,
			Source:         src,
			Confidence:     conf,
			Priority:       Trust(src)*10 + i,
			Reasoning:      fallbackReasoning,
			Action:         fallbackAction,
			Contradicts:    []string{},
			Metadata:       r.Metadata,
		})
	}
	Order(vs)

	return &Result{
		ApplicationID:            appID,
		ValidatedRecommendations: vs,
		Summary:                  fmt.Sprintf("Fallback validation completed. LLM judge error: %s", msg),
		WarningCount:             len(recs),
		OverallHealth:            HealthWarning,
		DetectedContradictions:   []Contradiction{},
		TotalRecommendations:     len(vs),
		SourcesUsed:              SourcesUsed(vs),
		Error:                    msg,
	}
}
