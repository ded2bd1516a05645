package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-pkgz/lgr"
	"github.com/sashabaranov/go-openai"

	"github.com/umputun/tickerz/pkg/domain"
)

// OpenAI summarizes with an OpenAI-compatible chat completion api
type OpenAI struct {
	client *openai.Client
	config Config
}

// NewOpenAI creates a new OpenAI summarizer
func NewOpenAI(cfg Config) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}
	return &OpenAI{client: openai.NewClientWithConfig(clientConfig), config: cfg}
}

// Summarize asks the model for a json summary of the text
func (o *OpenAI) Summarize(ctx context.Context, text string) (*domain.Summary, error) {
	const op = "openai summarize"
	ctx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       o.config.Model,
		Temperature: float32(o.config.Temperature),
		MaxTokens:   o.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: o.config.systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(text)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, classifyOpenAIError(op, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, domain.Errorf(domain.KindAPI, op, "no response from llm")
	}

	lgr.Printf("[DEBUG] openai summary response, %d tokens used", resp.Usage.TotalTokens)
	return parseSummary(op, resp.Choices[0].Message.Content)
}

// classifyOpenAIError maps provider errors: 429 is RATE_LIMIT, other api replies API_ERROR, the rest NETWORK_ERROR
func classifyOpenAIError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return &domain.Error{Kind: domain.KindRateLimit, Op: op, Err: err, Details: apiErr.Message}
		}
		return domain.Wrap(domain.KindAPI, op, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return domain.Wrap(domain.KindRateLimit, op, err)
		}
		return domain.Wrap(domain.KindAPI, op, err)
	}
	return domain.Wrap(domain.KindNetwork, op, fmt.Errorf("llm request failed: %w", err))
}
