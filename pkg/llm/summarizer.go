// Package llm turns article text into a short summary, key points and sentiment using an LLM provider.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/umputun/tickerz/pkg/domain"
)

// providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// defaults
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 500
	DefaultTimeout     = 60 * time.Second
	MaxInputRunes      = 4000
	maxKeyPoints       = 5
)

// Config is a provider-neutral summarizer configuration
type Config struct {
	Provider     string
	APIKey       string
	Endpoint     string // custom base url, openai-compatible or gemini
	Model        string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
	SystemPrompt string
}

// Summarizer produces a summary of the given text
type Summarizer interface {
	Summarize(ctx context.Context, text string) (*domain.Summary, error)
}

// New makes a summarizer for the configured provider
func New(ctx context.Context, cfg Config) (Summarizer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenAI:
		return NewOpenAI(cfg), nil
	case ProviderGemini:
		return NewGemini(ctx, cfg)
	default:
		return nil, domain.Errorf(domain.KindValidation, "llm", "unknown provider %q", cfg.Provider)
	}
}

const defaultSystemPrompt = `You are a helpful assistant that summarizes financial and general news content.
Return a concise summary (a real, meaningful summary, not just the word "Summary:"), 3-5 key points and the overall
sentiment of the content (positive, negative or neutral).

Respond with a JSON object of the following structure:
{"summary": string, "keyPoints": [string], "sentiment": "positive" | "negative" | "neutral"}

Write the summary in the same language as the content. Do not use phrases like "The article discusses".`

func (c Config) systemPrompt() string {
	if c.SystemPrompt != "" {
		return c.SystemPrompt
	}
	return defaultSystemPrompt
}

func userPrompt(text string) string {
	return "Please summarize the following content and provide key points and sentiment analysis:\n\n" + truncate(text)
}

// truncate limits the text to MaxInputRunes runes
func truncate(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= MaxInputRunes { // byte length bounds rune count
		return text
	}
	runes := []rune(text)
	if len(runes) <= MaxInputRunes {
		return text
	}
	return string(runes[:MaxInputRunes])
}

// parseSummary decodes and validates a model reply, empty or placeholder summaries are rejected
func parseSummary(op, reply string) (*domain.Summary, error) {
	reply = strings.TrimSpace(reply)
	// some models wrap json in a markdown fence even in json mode
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")

	var raw struct {
		Summary   string   `json:"summary"`
		KeyPoints []string `json:"keyPoints"`
		Sentiment string   `json:"sentiment"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &raw); err != nil {
		return nil, domain.Wrap(domain.KindAPI, op, fmt.Errorf("failed to parse json response: %w", err))
	}

	summary := strings.TrimSpace(raw.Summary)
	switch strings.ToLower(summary) {
	case "", "summary", "summary:":
		return nil, &domain.Error{Kind: domain.KindAPI, Op: op, Err: errors.New("empty or placeholder summary"),
			Details: raw.Summary}
	}

	points := make([]string, 0, len(raw.KeyPoints))
	for _, p := range raw.KeyPoints {
		if p = strings.TrimSpace(p); p != "" {
			points = append(points, p)
		}
	}
	if len(points) > maxKeyPoints {
		points = points[:maxKeyPoints]
	}

	return &domain.Summary{Summary: summary, KeyPoints: points, Sentiment: domain.ParseSentiment(raw.Sentiment)}, nil
}
