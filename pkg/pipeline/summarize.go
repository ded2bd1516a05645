package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/tickerz/pkg/cache"
	"github.com/umputun/tickerz/pkg/domain"
	"github.com/umputun/tickerz/pkg/queue"
)

// HandleSummarize makes an AI summary of a stored item and saves it with the item.
// A summary cached by an earlier delivery of the same job is reused.
func (p *Pipeline) HandleSummarize(ctx context.Context, job *queue.Job) (any, error) {
	const op = "summarize stage"
	var req SummarizeJob
	if err := job.Decode(&req); err != nil {
		return nil, domain.Wrap(domain.KindParse, op, err)
	}
	if req.ContentID == "" {
		return nil, domain.Errorf(domain.KindValidation, op, "job %s has no content id", job.ID)
	}

	item, err := p.Store.GetContent(ctx, domain.SourceRSS, req.ContentID)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", req.ContentID, err)
	}

	var sum domain.Summary
	cached, err := cache.GetJSON(ctx, p.Cache, cache.SummaryKey(req.ContentID), &sum)
	if err != nil {
		lgr.Printf("[WARN] can't read cached summary of %s: %v", req.ContentID, err)
		cached = false
	}
	if cached && sum.Summary == "" {
		cached = false
	}

	if !cached {
		text := p.enrichText(ctx, req.Text, item.Metadata.URL)
		if strings.TrimSpace(text) == "" {
			return nil, domain.Errorf(domain.KindValidation, op, "nothing to summarize for %s", req.ContentID)
		}
		res, err := p.Summarizer.Summarize(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", req.ContentID, err)
		}
		sum = *res
		if err := cache.SetJSON(ctx, p.Cache, cache.SummaryKey(req.ContentID), sum, p.SummaryTTL); err != nil {
			lgr.Printf("[WARN] can't cache summary of %s: %v", req.ContentID, err)
		}
	}

	if err := p.Store.UpdateContentSummary(ctx, domain.SourceRSS, req.ContentID, sum); err != nil {
		return nil, fmt.Errorf("save summary of %s: %w", req.ContentID, err)
	}
	lgr.Printf("[DEBUG] item %s summarized, sentiment %s, cached %v", req.ContentID, sum.Sentiment, cached)
	return SummarizeResult{ContentID: req.ContentID, Cached: cached, Sentiment: sum.Sentiment,
		KeyPoints: len(sum.KeyPoints)}, nil
}

// enrichText appends the extracted article to short texts, extraction errors keep the text as is
func (p *Pipeline) enrichText(ctx context.Context, text, url string) string {
	if p.Extractor == nil || p.MinTextLength <= 0 || url == "" {
		return text
	}
	if utf8.RuneCountInString(strings.TrimSpace(text)) >= p.MinTextLength {
		return text
	}
	article, err := p.Extractor.Extract(ctx, url)
	if err != nil {
		lgr.Printf("[WARN] can't extract article %s: %v", url, err)
		return text
	}
	return strings.TrimSpace(text) + "\n\n" + article
}
