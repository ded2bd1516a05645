// Package pipeline implements the three content stages run by the job queue.
// A fetch job downloads and parses a feed, a process job stores new items and
// a summarize job enriches a stored item with an AI summary.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/tickerz/pkg/cache"
	"github.com/umputun/tickerz/pkg/domain"
	"github.com/umputun/tickerz/pkg/queue"
	"github.com/umputun/tickerz/pkg/rss"
)

//go:generate moq -out mocks/content_store.go -pkg mocks -skip-ensure -fmt goimports . ContentStore
//go:generate moq -out mocks/feed_store.go -pkg mocks -skip-ensure -fmt goimports . FeedStore
//go:generate moq -out mocks/feed_fetcher.go -pkg mocks -skip-ensure -fmt goimports . FeedFetcher
//go:generate moq -out mocks/summarizer.go -pkg mocks -skip-ensure -fmt goimports . Summarizer
//go:generate moq -out mocks/extractor.go -pkg mocks -skip-ensure -fmt goimports . Extractor
//go:generate moq -out mocks/enqueuer.go -pkg mocks -skip-ensure -fmt goimports . Enqueuer

// queue names and job types
const (
	QueueFetch     = "rss-fetch"
	QueueProcess   = "rss-process"
	QueueSummarize = "rss-summary"

	JobFetch     = "fetch-feed"
	JobProcess   = "process-feed"
	JobSummarize = "summarize-content"
)

// QueueNames returns the pipeline queues in stage order
func QueueNames() []string {
	return []string{QueueFetch, QueueProcess, QueueSummarize}
}

// default cache lifetimes
const (
	DefaultFeedTTL    = time.Hour
	DefaultSummaryTTL = 24 * time.Hour
)

// ContentStore keeps content items, (source type, source id) is unique
type ContentStore interface {
	CreateContentIfAbsent(ctx context.Context, item *domain.ContentItem) (bool, error)
	ContentExists(ctx context.Context, sourceType domain.SourceType, sourceID string) (bool, error)
	GetContent(ctx context.Context, sourceType domain.SourceType, sourceID string) (*domain.ContentItem, error)
	UpdateContentSummary(ctx context.Context, sourceType domain.SourceType, sourceID string, s domain.Summary) error
	DeleteContent(ctx context.Context, sourceType domain.SourceType, sourceID string) error
}

// FeedStore records feed fetch times
type FeedStore interface {
	UpdateFeedFetched(ctx context.Context, feedID string, fetchedAt time.Time) error
}

// FeedFetcher downloads and parses feed documents
type FeedFetcher interface {
	Fetch(ctx context.Context, url string, opts ...rss.FetchOption) (string, error)
	Parse(raw string) (*domain.ParsedFeed, error)
}

// Summarizer makes an AI summary of a text
type Summarizer interface {
	Summarize(ctx context.Context, text string) (*domain.Summary, error)
}

// Extractor gets the readable article text of a page
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Enqueuer adds jobs to a queue, implemented by queue.Manager
type Enqueuer interface {
	Enqueue(ctx context.Context, queueName, jobType string, payload any, opts ...queue.Option) (string, error)
}

// Registrar binds job handlers, implemented by queue.Manager
type Registrar interface {
	Process(queueName, jobType string, h queue.Handler) error
}

// FetchJob is the payload of a fetch job
type FetchJob struct {
	FeedID  string `json:"feedId"`
	FeedURL string `json:"feedUrl"`
}

// ProcessJob is the payload of a process job
type ProcessJob struct {
	FeedID  string             `json:"feedId"`
	Content domain.FeedPayload `json:"content"`
}

// SummarizeJob is the payload of a summarize job, ContentID is the item source id
type SummarizeJob struct {
	ContentID string `json:"contentId"`
	Text      string `json:"text"`
}

// FetchResult is stored with a completed fetch job
type FetchResult struct {
	FeedID       string `json:"feedId"`
	Cached       bool   `json:"cached"`
	Items        int    `json:"items"`
	ProcessJobID string `json:"processJobId"`
}

// ProcessResult is stored with a completed process job
type ProcessResult struct {
	Items   int `json:"items"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// SummarizeResult is stored with a completed summarize job
type SummarizeResult struct {
	ContentID string           `json:"contentId"`
	Cached    bool             `json:"cached"`
	Sentiment domain.Sentiment `json:"sentiment"`
	KeyPoints int              `json:"keyPoints"`
}

// Config holds pipeline dependencies and settings
type Config struct {
	Fetcher    FeedFetcher
	Feeds      FeedStore
	Store      ContentStore
	Summarizer Summarizer
	Extractor  Extractor // optional, used for items with short text
	Cache      cache.Cache
	Queue      Enqueuer

	FeedTTL       time.Duration
	SummaryTTL    time.Duration
	FetchTimeout  time.Duration // zero keeps the fetcher default
	MinTextLength int           // extraction is tried for texts shorter than this, zero disables it
}

// Pipeline runs fetch, process and summarize stages
type Pipeline struct {
	Config
	now func() time.Time
}

// New makes a pipeline, zero TTLs get defaults and a nil cache is replaced by a memory cache
func New(cfg Config) *Pipeline {
	if cfg.FeedTTL <= 0 {
		cfg.FeedTTL = DefaultFeedTTL
	}
	if cfg.SummaryTTL <= 0 {
		cfg.SummaryTTL = DefaultSummaryTTL
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NewMemoryCache()
	}
	return &Pipeline{Config: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// Register binds the three stage handlers
func (p *Pipeline) Register(r Registrar) error {
	handlers := []struct {
		queue, jobType string
		h              queue.Handler
	}{
		{QueueFetch, JobFetch, p.HandleFetch},
		{QueueProcess, JobProcess, p.HandleProcess},
		{QueueSummarize, JobSummarize, p.HandleSummarize},
	}
	for _, h := range handlers {
		if err := r.Process(h.queue, h.jobType, h.h); err != nil {
			return fmt.Errorf("register %s: %w", h.jobType, err)
		}
	}
	return nil
}

// EnqueueFetch schedules a fetch of the feed and returns the job id
func (p *Pipeline) EnqueueFetch(ctx context.Context, feedID, feedURL string) (string, error) {
	if feedID == "" || feedURL == "" {
		return "", domain.Errorf(domain.KindValidation, "enqueue fetch", "feed id and url are required")
	}
	id, err := p.Queue.Enqueue(ctx, QueueFetch, JobFetch, FetchJob{FeedID: feedID, FeedURL: feedURL})
	if err != nil {
		return "", fmt.Errorf("enqueue fetch of %s: %w", feedID, err)
	}
	lgr.Printf("[DEBUG] fetch of feed %s queued as %s", feedID, id)
	return id, nil
}
