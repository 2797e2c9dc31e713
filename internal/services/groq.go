package services

import (
	"context"
	"fmt"
	"math"

	"github.com/sashabaranov/go-openai"
)

// GroqProvider talks to Groq's OpenAI-compatible chat completions API. Any
// other OpenAI-compatible endpoint works by changing the base URL.
type GroqProvider struct {
	client *openai.Client
}

func NewGroqProvider(apiKey, baseURL string) *GroqProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &GroqProvider{client: openai.NewClientWithConfig(cfg)}
}

func (p *GroqProvider) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}

	// go-openai omits a zero temperature from the request body.
	temperature := req.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("groq request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errEmptyCompletion
	}

	return &Completion{
		Content:     resp.Choices[0].Message.Content,
		TotalTokens: resp.Usage.TotalTokens,
	}, nil
}
