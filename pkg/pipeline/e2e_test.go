package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/tickerz/pkg/cache"
	"github.com/umputun/tickerz/pkg/domain"
	"github.com/umputun/tickerz/pkg/pipeline/mocks"
	"github.com/umputun/tickerz/pkg/queue"
	"github.com/umputun/tickerz/pkg/repository"
	"github.com/umputun/tickerz/pkg/rss"
)

const e2eFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Market News</title>
	<link>http://example.com</link>
	<description>stocks</description>
	<item>
		<guid>a1</guid>
		<title>Stocks rally</title>
		<link>http://example.com/a1</link>
		<description><![CDATA[<p>Indexes <b>up</b> 2%</p>]]></description>
	</item>
	<item>
		<guid>a2</guid>
		<title>Bonds fall</title>
		<link>http://example.com/a2</link>
		<description>Yields higher</description>
	</item>
</channel>
</rss>`

func TestPipeline_EndToEnd(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = fmt.Fprint(w, e2eFeed)
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repos, err := repository.NewRepositories(ctx, repository.Config{DSN: filepath.Join(t.TempDir(), "e2e.db")})
	require.NoError(t, err)
	defer repos.Close()
	feed := &domain.Feed{URL: ts.URL, Title: "Market News", IsActive: true}
	require.NoError(t, repos.Feed.CreateFeed(ctx, feed))

	sum := &mocks.SummarizerMock{SummarizeFunc: func(_ context.Context, text string) (*domain.Summary, error) {
		title, _, _ := strings.Cut(text, "\n")
		return &domain.Summary{Summary: "about " + title, KeyPoints: []string{"one", "two", "three"},
			Sentiment: domain.SentimentNeutral}, nil
	}}

	mgr := queue.NewManager(queue.NewMemoryBroker(), queue.Config{
		Concurrency:  2,
		PollInterval: 5 * time.Millisecond,
		Defaults:     queue.Options{MaxAttempts: 3, Backoff: queue.Backoff{Type: queue.BackoffFixed, Delay: 10 * time.Millisecond}},
		DeadLetter:   domain.IsPermanent,
	})
	p := New(Config{
		Fetcher:    rss.NewClient(rss.Options{}),
		Feeds:      repos.Feed,
		Store:      repos.Content,
		Summarizer: sum,
		Cache:      cache.NewMemoryCache(),
		Queue:      mgr,
	})
	require.NoError(t, p.Register(mgr))

	done := make(chan error, 1)
	go func() { done <- mgr.Run(ctx) }()

	_, err = p.EnqueueFetch(ctx, feed.ID, feed.URL)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		st, err := repos.Content.ContentStats(ctx)
		return err == nil && st.Summarized == 2
	}, 5*time.Second, 10*time.Millisecond)

	item, err := repos.Content.GetContent(ctx, domain.SourceRSS, domain.DedupKey(feed.ID, "a1"))
	require.NoError(t, err)
	assert.Equal(t, "about Stocks rally", item.Summary)
	assert.Equal(t, []string{"one", "two", "three"}, item.KeyPoints)
	assert.Equal(t, domain.SentimentNeutral, item.Sentiment)
	assert.Equal(t, "Indexes up 2%", item.Metadata.Description)
	assert.Equal(t, "Unknown", item.Metadata.Author)

	stored, err := repos.Feed.GetFeed(ctx, feed.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastFetchedAt, "fetch time recorded")

	// second fetch is served from cache, items are deduplicated and not summarized again
	_, err = p.EnqueueFetch(ctx, feed.ID, feed.URL)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		st, err := mgr.Stats(ctx)
		return err == nil && st[QueueProcess].Completed == 2
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(1), hits.Load(), "second fetch served from cache")
	assert.Len(t, sum.SummarizeCalls(), 2)
	st, err := repos.Content.ContentStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ContentStats{Total: 2, Summarized: 2}, st)

	jobs, err := mgr.Jobs(ctx, QueueProcess, queue.StateCompleted, 10)
	require.NoError(t, err)
	require.NotEmpty(t, jobs)
	assert.Contains(t, string(jobs[0].Result), `"skipped":2`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("queue manager didn't stop")
	}
}

func TestPipeline_EndToEnd_ParseErrorDeadLetter(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, "this is not a feed")
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := queue.NewManager(queue.NewMemoryBroker(), queue.Config{PollInterval: 5 * time.Millisecond,
		DeadLetter: domain.IsPermanent})
	p := New(Config{Fetcher: rss.NewClient(rss.Options{}), Feeds: &mocks.FeedStoreMock{}, Store: &mocks.ContentStoreMock{},
		Summarizer: &mocks.SummarizerMock{}, Queue: mgr})
	require.NoError(t, p.Register(mgr))
	go func() { _ = mgr.Run(ctx) }()

	_, err := p.EnqueueFetch(ctx, "f1", ts.URL)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		st, err := mgr.Stats(ctx)
		return err == nil && st[QueueFetch].Dead == 1
	}, 5*time.Second, 10*time.Millisecond)

	jobs, err := mgr.Jobs(ctx, QueueFetch, queue.StateDead, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, 1, jobs[0].Attempts, "parse errors are not retried")
	assert.Contains(t, jobs[0].LastError, string(domain.KindParse))
}
