package provider

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/sparkadvisor/config"
	openai_provider "github.com/mohammad-safakhou/sparkadvisor/provider/openai"
)

// Message is one chat turn.
type Message = openai_provider.Message

// ChatRequest is a single completion call.
type ChatRequest = openai_provider.ChatRequest

// ChatResponse carries the first choice and token usage.
type ChatResponse = openai_provider.ChatResponse

// JSONSchema constrains the response to a named strict schema.
type JSONSchema = openai_provider.JSONSchema

// Provider is the interface that all LLM implementations must satisfy
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// NewProvider creates a chat client from configuration.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Type {
	case config.LLMTypeAzure:
		return openai_provider.NewAzureClient(cfg.Endpoint, cfg.APIKey, cfg.Deployment, cfg.APIVersion, cfg.Timeout, cfg.MaxRetries), nil
	case config.LLMTypeOpenAI:
		return openai_provider.NewOpenAIClient(cfg.Endpoint, cfg.APIKey, cfg.Deployment, cfg.Timeout, cfg.MaxRetries), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Type)
	}
}
