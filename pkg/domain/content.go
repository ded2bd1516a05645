package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// SourceType identifies where a content item came from
type SourceType string

// supported source types
const (
	SourceRSS      SourceType = "rss"
	SourceStock    SourceType = "stock"
	SourceCalendar SourceType = "calendar"
	SourceWeather  SourceType = "weather"
)

// Valid reports whether the source type is one of the known ones
func (s SourceType) Valid() bool {
	switch s {
	case SourceRSS, SourceStock, SourceCalendar, SourceWeather:
		return true
	default:
		return false
	}
}

// Sentiment of a summarized item
type Sentiment string

// sentiment values
const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ParseSentiment normalizes a model-provided sentiment, unknown values become neutral
func ParseSentiment(s string) Sentiment {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentPositive:
		return SentimentPositive
	case SentimentNegative:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// UnknownAuthor is used when a source item has no author
const UnknownAuthor = "Unknown"

// ContentMetadata is the display metadata extracted from a source item
type ContentMetadata struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
	Author      string    `json:"author"`
	URL         string    `json:"url"`
}

// ContentItem is a normalized, deduplicated piece of ingested content.
// SourceID is the dedup key, unique per SourceType.
type ContentItem struct {
	ID           int64
	SourceType   SourceType
	SourceID     string
	RawPayload   json.RawMessage
	Summary      string
	KeyPoints    []string
	Sentiment    Sentiment
	Metadata     ContentMetadata
	DisplayCount int
	LastShownAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Summarized reports whether the summarize stage has filled the item
func (c *ContentItem) Summarized() bool {
	return c.Summary != ""
}

// Summary is the AI enrichment result for a content item
type Summary struct {
	Summary   string    `json:"summary"`
	KeyPoints []string  `json:"keyPoints"`
	Sentiment Sentiment `json:"sentiment"`
}

// ContentFilter selects content items for listing
type ContentFilter struct {
	SourceType     SourceType
	SummarizedOnly bool
	Limit          int
}

// ContentStats holds counters used by operator checks
type ContentStats struct {
	Total      int64 `json:"total" db:"total"`
	Summarized int64 `json:"summarized" db:"summarized"`
}
