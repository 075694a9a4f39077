package budget

import "fmt"

// Config defines token guardrails for LLM prompts issued during one analysis.
type Config struct {
	MaxPromptTokens     int   `mapstructure:"max_prompt_tokens"`
	MaxCompletionTokens int   `mapstructure:"max_completion_tokens"`
	PerDocumentTokens   int   `mapstructure:"per_document_tokens"`
	MaxAnalysisTokens   int64 `mapstructure:"max_analysis_tokens"`
}

// Normalize applies defaults for unset limits.
func (c Config) Normalize() Config {
	if c.MaxPromptTokens <= 0 {
		c.MaxPromptTokens = 12000
	}
	if c.MaxCompletionTokens <= 0 {
		c.MaxCompletionTokens = 4000
	}
	if c.PerDocumentTokens <= 0 {
		c.PerDocumentTokens = 800
	}
	return c
}

// Validate ensures the budget values are sane before use.
func (c Config) Validate() error {
	if c.MaxPromptTokens < 0 {
		return fmt.Errorf("max_prompt_tokens cannot be negative")
	}
	if c.MaxCompletionTokens < 0 {
		return fmt.Errorf("max_completion_tokens cannot be negative")
	}
	if c.PerDocumentTokens < 0 {
		return fmt.Errorf("per_document_tokens cannot be negative")
	}
	if c.MaxAnalysisTokens < 0 {
		return fmt.Errorf("max_analysis_tokens cannot be negative")
	}
	if c.PerDocumentTokens > 0 && c.MaxPromptTokens > 0 && c.PerDocumentTokens > c.MaxPromptTokens {
		return fmt.Errorf("per_document_tokens cannot exceed max_prompt_tokens")
	}
	return nil
}

// IsZero reports whether the config defines no explicit limits.
func (c Config) IsZero() bool {
	return c.MaxPromptTokens == 0 && c.MaxCompletionTokens == 0 && c.PerDocumentTokens == 0 && c.MaxAnalysisTokens == 0
}
