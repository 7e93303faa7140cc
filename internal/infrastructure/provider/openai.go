// Package provider contains the ChatProvider implementations behind the
// model registry: an OpenAI-compatible HTTP client (DeepSeek speaks this
// dialect) and an OpenRouter client.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Jenny-Gump/content-generator/internal/domain"
	"github.com/Jenny-Gump/content-generator/internal/ports"
)

const chatCompletionsPath = "/chat/completions"

// OpenAIClient implements ports.ChatProvider against any OpenAI-compatible
// chat completions endpoint.
type OpenAIClient struct {
	name    string
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ ports.ChatProvider = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client for the given backend. The http.Client has
// no timeout of its own; per-attempt deadlines come from the caller context.
func NewOpenAIClient(name, baseURL, apiKey string) *OpenAIClient {
	return &OpenAIClient{
		name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{},
	}
}

// Name identifies the backend inside the registry.
func (c *OpenAIClient) Name() string {
	return c.name
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens            int `json:"prompt_tokens"`
		CompletionTokens        int `json:"completion_tokens"`
		TotalTokens             int `json:"total_tokens"`
		CompletionTokensDetails struct {
			ReasoningTokens int `json:"reasoning_tokens"`
		} `json:"completion_tokens_details"`
	} `json:"usage"`
}

// Complete posts one chat completion request and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, model string, req domain.ModelRequest) (domain.ChatResponse, error) {
	payload := chatRequest{
		Model:       model,
		Temperature: 0.3,
		MaxTokens:   req.MaxTokens,
	}
	for _, m := range req.Messages {
		payload.Messages = append(payload.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	if req.ResponseFormat == domain.FormatJSON {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatCompletionsPath, bytes.NewReader(body))
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return domain.ChatResponse{}, fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.ChatResponse{}, &domain.HTTPStatusError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(raw)),
		}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.ChatResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return domain.ChatResponse{}, fmt.Errorf("no completion choices returned")
	}

	return domain.ChatResponse{
		Text: parsed.Choices[0].Message.Content,
		Usage: domain.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			ReasoningTokens:  parsed.Usage.CompletionTokensDetails.ReasoningTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}
