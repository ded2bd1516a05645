package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-pkgz/lgr"
	"github.com/microcosm-cc/bluemonday"

	"github.com/umputun/tickerz/pkg/domain"
	"github.com/umputun/tickerz/pkg/queue"
)

var textPolicy = bluemonday.StrictPolicy()

// HandleProcess stores items of a parsed feed not seen before and queues a summarize job for each new one
func (p *Pipeline) HandleProcess(ctx context.Context, job *queue.Job) (any, error) {
	const op = "process stage"
	var req ProcessJob
	if err := job.Decode(&req); err != nil {
		return nil, domain.Wrap(domain.KindParse, op, err)
	}
	if req.FeedID == "" {
		return nil, domain.Errorf(domain.KindValidation, op, "job %s has no feed id", job.ID)
	}
	if err := req.Content.Validate(); err != nil {
		return nil, fmt.Errorf("feed %s: %w", req.FeedID, err)
	}

	res := ProcessResult{Items: len(req.Content.RSS.Items)}
	for _, it := range req.Content.RSS.Items {
		created, err := p.processItem(ctx, req.FeedID, it)
		if err != nil {
			return nil, err
		}
		if created {
			res.Created++
			continue
		}
		res.Skipped++
	}
	lgr.Printf("[INFO] feed %s processed, %d items, %d new, %d skipped", req.FeedID, res.Items, res.Created, res.Skipped)
	return res, nil
}

// processItem stores a single item, returns true if it was new
func (p *Pipeline) processItem(ctx context.Context, feedID string, it domain.ParsedItem) (bool, error) {
	guid := it.ResolveGUID()
	if guid == "" {
		lgr.Printf("[WARN] item %q of feed %s has no guid, id or link, skipped", it.Title, feedID)
		return false, nil
	}
	key := domain.DedupKey(feedID, guid)

	exists, err := p.Store.ContentExists(ctx, domain.SourceRSS, key)
	if err != nil {
		return false, fmt.Errorf("check item %s: %w", key, err)
	}
	if exists {
		return false, nil
	}

	raw, err := json.Marshal(it)
	if err != nil {
		return false, fmt.Errorf("marshal item %s: %w", key, err)
	}
	item := &domain.ContentItem{
		SourceType: domain.SourceRSS,
		SourceID:   key,
		RawPayload: raw,
		Metadata:   p.metadata(it),
	}
	created, err := p.Store.CreateContentIfAbsent(ctx, item)
	if err != nil {
		return false, fmt.Errorf("store item %s: %w", key, err)
	}
	if !created {
		// another worker stored it between the check and the insert
		return false, nil
	}

	text := item.Metadata.Title + "\n\n" + item.Metadata.Description
	if _, err := p.Queue.Enqueue(ctx, QueueSummarize, JobSummarize, SummarizeJob{ContentID: key, Text: text}); err != nil {
		// drop the item, so the retried job creates it again and the summary is queued
		if derr := p.Store.DeleteContent(ctx, domain.SourceRSS, key); derr != nil {
			lgr.Printf("[WARN] can't remove item %s after failed enqueue: %v", key, derr)
		}
		return false, fmt.Errorf("enqueue summarize of %s: %w", key, err)
	}
	lgr.Printf("[DEBUG] new item %s stored as %d", key, item.ID)
	return true, nil
}

func (p *Pipeline) metadata(it domain.ParsedItem) domain.ContentMetadata {
	desc := it.Description
	if strings.TrimSpace(desc) == "" {
		desc = it.Content
	}
	res := domain.ContentMetadata{
		Title:       strings.TrimSpace(it.Title),
		Description: plainText(desc),
		ImageURL:    it.ImageURL(),
		PublishedAt: it.Published.UTC(),
		Author:      strings.TrimSpace(it.Author),
		URL:         it.Link,
	}
	if res.ImageURL == "" {
		res.ImageURL = firstImage(it.Description + it.Content)
	}
	if res.Author == "" {
		res.Author = domain.UnknownAuthor
	}
	if it.Published.IsZero() {
		res.PublishedAt = p.now()
	}
	return res
}

// plainText strips markup and collapses whitespace
func plainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(html.UnescapeString(textPolicy.Sanitize(s))), " ")
}

// firstImage returns src of the first img element in an html fragment
func firstImage(fragment string) string {
	if !strings.Contains(fragment, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}
