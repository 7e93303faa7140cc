package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/revrost/go-openrouter"

	"github.com/Jenny-Gump/content-generator/internal/domain"
	"github.com/Jenny-Gump/content-generator/internal/ports"
)

// OpenRouterClient implements ports.ChatProvider over the OpenRouter API,
// which multiplexes many vendors behind "vendor/model" identifiers.
type OpenRouterClient struct {
	client *openrouter.Client
}

var _ ports.ChatProvider = (*OpenRouterClient)(nil)

// NewOpenRouterClient wraps the official client.
func NewOpenRouterClient(apiKey string) *OpenRouterClient {
	return &OpenRouterClient{client: openrouter.NewClient(apiKey)}
}

// Name identifies the backend inside the registry.
func (c *OpenRouterClient) Name() string {
	return "openrouter"
}

// Complete sends one chat completion and returns the first choice.
func (c *OpenRouterClient) Complete(ctx context.Context, model string, req domain.ModelRequest) (domain.ChatResponse, error) {
	request := openrouter.ChatCompletionRequest{
		Model:     model,
		MaxTokens: req.MaxTokens,
	}
	for _, m := range req.Messages {
		role := openrouter.ChatMessageRoleUser
		if m.Role == domain.RoleSystem {
			role = openrouter.ChatMessageRoleSystem
		}
		request.Messages = append(request.Messages, openrouter.ChatCompletionMessage{
			Role:    role,
			Content: openrouter.Content{Text: m.Content},
		})
	}
	if req.ResponseFormat == domain.FormatJSON {
		request.ResponseFormat = &openrouter.ChatCompletionResponseFormat{
			Type: openrouter.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	response, err := c.client.CreateChatCompletion(ctx, request)
	if err != nil {
		// Surface the HTTP status so the invoker can classify rate limits
		// and 5xx responses as retryable.
		var apiErr *openrouter.APIError
		if errors.As(err, &apiErr) {
			return domain.ChatResponse{}, &domain.HTTPStatusError{
				Status: apiErr.HTTPStatusCode,
				Body:   apiErr.Message,
			}
		}
		return domain.ChatResponse{}, fmt.Errorf("create completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return domain.ChatResponse{}, fmt.Errorf("no completion choices returned")
	}

	return domain.ChatResponse{
		Text: response.Choices[0].Message.Content.Text,
		Usage: domain.TokenUsage{
			PromptTokens:     response.Usage.PromptTokens,
			CompletionTokens: response.Usage.CompletionTokens,
			TotalTokens:      response.Usage.TotalTokens,
		},
	}, nil
}
