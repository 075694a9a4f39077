package recommend

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// JudgeSystemPrompt fixes the judge's role and the ground-truth rules for
// telemetry recommendations.
const JudgeSystemPrompt = `You are an expert Spark performance consultant and recommendation validator.

CRITICAL RULES:
1. MANDATORY: Include EVERY SINGLE Kusto recommendation in your output - NO EXCEPTIONS
   - If you receive N Kusto recs, you MUST output exactly N items with source='kusto'
   - NEVER skip, filter, combine, or reduce Kusto recommendations
   - Keep Kusto recommendations in the order they were given
2. ONLY validate and format the provided recommendations - DO NOT generate new ones
3. Kusto recommendations are GROUND TRUTH - never modify text or severity, never split them
4. RAG recommendations must preserve FULL CONTENT - never summarize into titles only
5. Prioritize: Kusto telemetry > RAG docs > LLM generic advice
6. Detect contradictions and explain which recommendation to follow
7. Filter out generic LLM advice that lacks specific, actionable guidance
8. Mark generic advice vs. application-specific recommendations

Severity mapping (DO NOT OVERRIDE):
- CRITICAL -> priority 1-9
- HIGH -> priority 10-19
- MEDIUM -> priority 20-29
- LOW -> priority 30-39

If a Kusto recommendation says there are no critical issues with LOW severity, keep it at
priority 30 or above and keep "No action required" as its action.

Count the Kusto recommendations in the input and ensure your output has the SAME count.`

// BuildJudgePrompt renders the user message for the judge call.
func BuildJudgePrompt(appID string, recs []Recommendation, appContext map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Spark Application Analysis: %s\n\n", appID)
	b.WriteString("## Task\n")
	b.WriteString("Validate and prioritize the following Spark optimization recommendations from multiple sources.\n")
	b.WriteString("Detect contradictions, assess confidence, and provide actionable guidance.\n\n")

	if len(appContext) > 0 {
		b.WriteString("## Application Metrics\n")
		keys := make([]string, 0, len(appContext))
		for k := range appContext {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %v\n", k, appContext[k])
		}
		b.WriteString("\n")
	}

	groups := GroupBySource(recs)
	b.WriteString("## Recommendations by Source\n\n")

	if kusto := groups[SourceKusto]; len(kusto) > 0 {
		b.WriteString("### Kusto Telemetry (High Priority - Data-Driven)\n")
		for i, r := range kusto {
			fmt.Fprintf(&b, "%d. %s\n", i+1, r.Text)
			if len(r.Metadata) > 0 {
				meta, _ := json.Marshal(r.Metadata)
				fmt.Fprintf(&b, "   Metadata: %s\n", meta)
			}
		}
		b.WriteString("\n")
	}

	if rag := groups[SourceRAG]; len(rag) > 0 {
		b.WriteString("### RAG Documentation (Medium Priority - Best Practices)\n")
		b.WriteString("IMPORTANT: Preserve the full content from RAG docs, do NOT summarize into titles only\n")
		for i, r := range rag {
			title, _ := r.Metadata["title"].(string)
			if title == "" {
				title = fmt.Sprintf("Doc %d", i+1)
			}
			fmt.Fprintf(&b, "%d. Title: %s\n", i+1, title)
			fmt.Fprintf(&b, "   Content: %s\n", r.Text)
			if u, _ := r.Metadata["source_url"].(string); u != "" {
				fmt.Fprintf(&b, "   Source: %s\n", u)
			}
		}
		b.WriteString("\n")
	}

	if llm := groups[SourceLLM]; len(llm) > 0 {
		b.WriteString("### LLM Generated (Lower Priority - General Guidance)\n")
		for i, r := range llm {
			fmt.Fprintf(&b, "%d. %s\n", i+1, r.Text)
		}
		b.WriteString("\n")
	}

	n := len(groups[SourceKusto])
	b.WriteString("## Validation Criteria\n\n")
	fmt.Fprintf(&b, "1. **MANDATORY: Output ALL %d Kusto Recommendations:**\n", n)
	b.WriteString("   - NEVER skip, filter, combine, or reduce Kusto recommendations\n")
	fmt.Fprintf(&b, "   - Your output MUST contain exactly %d items with source='kusto'\n", n)
	b.WriteString("   - DO NOT split, rephrase, or re-score\n")
	b.WriteString("   - Extract severity from text (LOW, MEDIUM, HIGH, CRITICAL)\n")
	b.WriteString("   - Map to priority: CRITICAL->1-9, HIGH->10-19, MEDIUM->20-29, LOW->30-39\n\n")
	b.WriteString("2. **RAG Documentation Handling:**\n")
	b.WriteString("   - Include FULL content from RAG docs, not just titles\n")
	b.WriteString("   - Format as: '[Title] - [Full Content]'\n\n")
	b.WriteString("3. **LLM Recommendations:**\n")
	b.WriteString("   - Only include if they provide SPECIFIC, ACTIONABLE guidance\n")
	b.WriteString("   - Mark as 'is_generic: true' and low priority if too vague\n\n")
	b.WriteString("4. **Prioritization:** Kusto > RAG > LLM, Specific > Generic\n")
	b.WriteString("5. **Confidence:** HIGH (data/docs), MEDIUM (best practice), LOW (generic)\n")
	b.WriteString("6. **Detect contradictions and explain resolution**\n")
	return b.String()
}
