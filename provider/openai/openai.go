package openai_provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mohammad-safakhou/sparkadvisor/internal/httpx"
)

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// JSONSchema is the json_schema response format payload.
type JSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

// ChatRequest is the provider-neutral input of one completion.
type ChatRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	Schema      *JSONSchema // nil = free text
	JSONObject  bool        // json_object mode when no schema is given
}

// ChatResponse is the first choice plus reported usage.
type ChatResponse struct {
	Content          string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// request represents a request to the chat completions API
type request struct {
	Model          string          `json:"model,omitempty"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

// response represents a response from the chat completions API
type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Client talks to Azure OpenAI deployments or the OpenAI API.
type Client struct {
	url     string
	headers map[string]string
	model   string // sent in the body for openai; azure encodes it in the URL
	http    *httpx.Client
}

// NewAzureClient targets {endpoint}/openai/deployments/{deployment}/chat/completions.
func NewAzureClient(endpoint, apiKey, deployment, apiVersion string, timeout time.Duration, retries int) *Client {
	u := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		endpoint, url.PathEscape(deployment), url.QueryEscape(apiVersion))
	return &Client{
		url:     u,
		headers: map[string]string{"api-key": apiKey},
		http:    httpx.NewClient(timeout, retries, 500*time.Millisecond),
	}
}

// NewOpenAIClient targets {baseURL}/chat/completions with bearer auth.
func NewOpenAIClient(baseURL, apiKey, model string, timeout time.Duration, retries int) *Client {
	return &Client{
		url:     baseURL + "/chat/completions",
		headers: map[string]string{"Authorization": "Bearer " + apiKey},
		model:   model,
		http:    httpx.NewClient(timeout, retries, 500*time.Millisecond),
	}
}

// Chat sends one completion request and returns the first choice.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if len(req.Messages) == 0 {
		return ChatResponse{}, fmt.Errorf("chat: no messages")
	}
	body := request{
		Model:       c.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	switch {
	case req.Schema != nil:
		body.ResponseFormat = &responseFormat{Type: "json_schema", JSONSchema: req.Schema}
	case req.JSONObject:
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var out response
	if err := c.http.DoJSON(ctx, http.MethodPost, c.url, c.headers, body, &out); err != nil {
		return ChatResponse{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return ChatResponse{}, fmt.Errorf("no choices in response")
	}
	return ChatResponse{
		Content:          out.Choices[0].Message.Content,
		FinishReason:     out.Choices[0].FinishReason,
		PromptTokens:     out.Usage.PromptTokens,
		CompletionTokens: out.Usage.CompletionTokens,
	}, nil
}
