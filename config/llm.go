package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	LLMTypeAzure  = "azure"
	LLMTypeOpenAI = "openai"
)

// LLMConfig describes the chat-completions endpoint used by the judge and the
// generative fallbacks.
type LLMConfig struct {
	Type       string        `mapstructure:"type"` // azure or openai
	Endpoint   string        `mapstructure:"endpoint"`
	APIKey     string        `mapstructure:"api_key"`
	APIVersion string        `mapstructure:"api_version"`
	Deployment string        `mapstructure:"deployment"` // azure deployment or openai model
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`

	Judge     ModelParams `mapstructure:"judge"`
	Recommend ModelParams `mapstructure:"recommend"`
	Analysis  ModelParams `mapstructure:"analysis"`
}

// ModelParams are the sampling settings of one kind of call.
type ModelParams struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// Normalize applies defaults when values are omitted.
func (c LLMConfig) Normalize() LLMConfig {
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	if c.Type == "" {
		c.Type = LLMTypeAzure
	}
	c.Endpoint = strings.TrimRight(strings.TrimSpace(c.Endpoint), "/")
	if c.Endpoint == "" && c.Type == LLMTypeOpenAI {
		c.Endpoint = "https://api.openai.com/v1"
	}
	if c.Timeout <= 0 {
		c.Timeout = 90 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.Judge.MaxTokens <= 0 {
		c.Judge.MaxTokens = 4000
	}
	if c.Recommend.MaxTokens <= 0 {
		c.Recommend.MaxTokens = 2000
	}
	if c.Analysis.MaxTokens <= 0 {
		c.Analysis.MaxTokens = 3000
	}
	return c
}

// Validate checks the settings needed to issue a chat call.
func (c LLMConfig) Validate() error {
	switch c.Type {
	case LLMTypeAzure, LLMTypeOpenAI:
	default:
		return fmt.Errorf("llm.type must be %q or %q, got %q", LLMTypeAzure, LLMTypeOpenAI, c.Type)
	}
	if c.Endpoint == "" {
		return fmt.Errorf("llm.endpoint required")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("llm.api_key required")
	}
	if strings.TrimSpace(c.Deployment) == "" {
		return fmt.Errorf("llm.deployment required")
	}
	if c.Type == LLMTypeAzure && strings.TrimSpace(c.APIVersion) == "" {
		return fmt.Errorf("llm.api_version required for azure")
	}
	for name, p := range map[string]ModelParams{"judge": c.Judge, "recommend": c.Recommend, "analysis": c.Analysis} {
		if p.Temperature < 0 || p.Temperature > 2 {
			return fmt.Errorf("llm.%s.temperature must be between 0 and 2", name)
		}
	}
	return nil
}
