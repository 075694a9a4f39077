package recommend

// SchemaName is the json_schema name sent with the judge call.
const SchemaName = "recommendation_validation"

// ResponseSchema is the strict JSON schema the judge must answer with.
func ResponseSchema() map[string]any {
	str := map[string]any{"type": "string"}
	integer := map[string]any{"type": "integer"}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"validated_recommendations": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"recommendation": str,
						"source":         map[string]any{"type": "string", "enum": []string{"kusto", "rag", "llm", "combined"}},
						"confidence":     map[string]any{"type": "string", "enum": []string{"high", "medium", "low"}},
						"priority":       integer,
						"reasoning":      str,
						"action":         str,
						"is_generic":     map[string]any{"type": "boolean"},
						"contradicts":    map[string]any{"type": "array", "items": str},
					},
					"required":             []string{"recommendation", "source", "confidence", "priority", "reasoning", "action", "is_generic", "contradicts"},
					"additionalProperties": false,
				},
			},
			"summary":        str,
			"critical_count": integer,
			"warning_count":  integer,
			"info_count":     integer,
			"overall_health": map[string]any{"type": "string", "enum": []string{"critical", "warning", "healthy", "excellent"}},
			"detected_contradictions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"recommendation_1": str,
						"recommendation_2": str,
						"explanation":      str,
					},
					"required":             []string{"recommendation_1", "recommendation_2", "explanation"},
					"additionalProperties": false,
				},
			},
		},
		"required": []string{
			"validated_recommendations", "summary", "critical_count", "warning_count",
			"info_count", "overall_health", "detected_contradictions",
		},
		"additionalProperties": false,
	}
}
