package pipeline

import (
	"context"
	"fmt"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/tickerz/pkg/cache"
	"github.com/umputun/tickerz/pkg/domain"
	"github.com/umputun/tickerz/pkg/queue"
	"github.com/umputun/tickerz/pkg/rss"
)

// HandleFetch downloads and parses a feed, caches the parsed payload and queues a process job.
// A cached payload is processed again without a network call.
func (p *Pipeline) HandleFetch(ctx context.Context, job *queue.Job) (any, error) {
	const op = "fetch stage"
	var req FetchJob
	if err := job.Decode(&req); err != nil {
		return nil, domain.Wrap(domain.KindParse, op, err)
	}
	if req.FeedID == "" || req.FeedURL == "" {
		return nil, domain.Errorf(domain.KindValidation, op, "job %s has no feed id or url", job.ID)
	}

	var payload domain.FeedPayload
	found, err := cache.GetJSON(ctx, p.Cache, cache.FeedKey(req.FeedID), &payload)
	if err != nil {
		lgr.Printf("[WARN] can't read cached feed %s: %v", req.FeedID, err)
		found = false
	}
	if found && payload.Validate() == nil {
		lgr.Printf("[DEBUG] feed %s served from cache", req.FeedID)
		id, err := p.enqueueProcess(ctx, req.FeedID, payload)
		if err != nil {
			return nil, err
		}
		return FetchResult{FeedID: req.FeedID, Cached: true, Items: len(payload.RSS.Items), ProcessJobID: id}, nil
	}

	var opts []rss.FetchOption
	if p.FetchTimeout > 0 {
		opts = append(opts, rss.WithTimeout(p.FetchTimeout))
	}
	raw, err := p.Fetcher.Fetch(ctx, req.FeedURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", req.FeedID, err)
	}
	feed, err := p.Fetcher.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", req.FeedID, err)
	}
	payload = domain.NewRSSPayload(feed)

	if err := cache.SetJSON(ctx, p.Cache, cache.FeedKey(req.FeedID), payload, p.FeedTTL); err != nil {
		lgr.Printf("[WARN] can't cache feed %s: %v", req.FeedID, err)
	}
	if err := p.Feeds.UpdateFeedFetched(ctx, req.FeedID, p.now()); err != nil {
		lgr.Printf("[WARN] can't update fetch time of feed %s: %v", req.FeedID, err)
	}

	id, err := p.enqueueProcess(ctx, req.FeedID, payload)
	if err != nil {
		return nil, err
	}
	lgr.Printf("[INFO] fetched feed %s with %d items", req.FeedID, len(feed.Items))
	return FetchResult{FeedID: req.FeedID, Items: len(feed.Items), ProcessJobID: id}, nil
}

func (p *Pipeline) enqueueProcess(ctx context.Context, feedID string, payload domain.FeedPayload) (string, error) {
	id, err := p.Queue.Enqueue(ctx, QueueProcess, JobProcess, ProcessJob{FeedID: feedID, Content: payload})
	if err != nil {
		return "", fmt.Errorf("enqueue process of feed %s: %w", feedID, err)
	}
	return id, nil
}
