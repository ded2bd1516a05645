package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-pkgz/lgr"
	"google.golang.org/genai"

	"github.com/umputun/tickerz/pkg/domain"
)

// Gemini summarizes with the Gemini generate content api
type Gemini struct {
	client *genai.Client
	config Config
}

// NewGemini creates a new Gemini summarizer
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.Model == "" || cfg.Model == DefaultModel {
		cfg.Model = DefaultGeminiModel
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

	cc := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.Endpoint != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("error initializing gemini client: %w", err)
	}
	return &Gemini{client: client, config: cfg}, nil
}

// Summarize asks the model for a json summary of the text
func (g *Gemini) Summarize(ctx context.Context, text string) (*domain.Summary, error) {
	const op = "gemini summarize"
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(userPrompt(text)),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(g.config.systemPrompt(), genai.RoleUser),
			ResponseMIMEType:  "application/json",
			Temperature:       genai.Ptr(float32(g.config.Temperature)),
			MaxOutputTokens:   int32(g.config.MaxTokens), //nolint:gosec // configured value is small
		})
	if err != nil {
		return nil, classifyGeminiError(op, err)
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].Content == nil {
		if reason := resp.Candidates[0].FinishReason; reason != genai.FinishReasonUnspecified {
			return nil, domain.Errorf(domain.KindAPI, op, "generation was terminated due to: %s", reason)
		}
	}
	reply := resp.Text()
	if reply == "" {
		return nil, domain.Errorf(domain.KindAPI, op, "no response from llm")
	}

	lgr.Printf("[DEBUG] gemini summary response, %d bytes", len(reply))
	return parseSummary(op, reply)
}

// classifyGeminiError maps provider errors: 429 is RATE_LIMIT, other api replies API_ERROR, the rest NETWORK_ERROR
func classifyGeminiError(op string, err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return domain.Wrap(domain.KindNetwork, op, fmt.Errorf("llm request failed: %w", err))
	}
	if apiErr.Code == http.StatusTooManyRequests {
		return &domain.Error{Kind: domain.KindRateLimit, Op: op, Err: err, Details: apiErr.Message}
	}
	return domain.Wrap(domain.KindAPI, op, err)
}
