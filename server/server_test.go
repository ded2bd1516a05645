package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/tickerz/pkg/domain"
	"github.com/umputun/tickerz/pkg/queue"
	"github.com/umputun/tickerz/pkg/quote"
	"github.com/umputun/tickerz/pkg/rss"
	"github.com/umputun/tickerz/server/mocks"
)

type testDeps struct {
	queues    *mocks.QueuesMock
	scheduler *mocks.SchedulerMock
	quotes    *mocks.QuotesMock
	feeds     *mocks.FeedReaderMock
	content   *mocks.ContentMock
	cache     *mocks.CacheMock
	feedStore *mocks.FeedStoreMock
	sources   *mocks.SourcesMock
}

func newTestServer(t *testing.T) (*Server, *testDeps) {
	t.Helper()
	d := &testDeps{
		queues:    &mocks.QueuesMock{},
		scheduler: &mocks.SchedulerMock{},
		quotes:    &mocks.QuotesMock{},
		feeds:     &mocks.FeedReaderMock{},
		content:   &mocks.ContentMock{},
		cache:     &mocks.CacheMock{},
		feedStore: &mocks.FeedStoreMock{},
		sources:   &mocks.SourcesMock{},
	}
	srv := New(Config{BaseURL: "http://tickerz.example.com/", Version: "test"}, Deps{Queues: d.queues,
		Scheduler: d.scheduler, Quotes: d.quotes, Feeds: d.feeds, Content: d.content, Cache: d.cache, FeedStore: d.feedStore,
		Sources: d.sources})
	return srv, d
}

func request(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_PingAndAppInfo(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := request(t, srv, "GET", "/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
	assert.Equal(t, "tickerz", rec.Header().Get("App-Name"))
	assert.Equal(t, "test", rec.Header().Get("App-Version"))
}

func TestServer_Status(t *testing.T) {
	srv, d := newTestServer(t)
	d.content.ContentStatsFunc = func(context.Context) (domain.ContentStats, error) {
		return domain.ContentStats{Total: 10, Summarized: 7}, nil
	}
	d.queues.StatsFunc = func(context.Context) (map[string]queue.Stats, error) {
		return map[string]queue.Stats{"rss-fetch": {Waiting: 2, Dead: 1}}, nil
	}

	rec := request(t, srv, "GET", "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"content":{"total":10,"summarized":7}`)
	assert.Contains(t, rec.Body.String(), `"rss-fetch":{"waiting":2`)

	d.queues.StatsFunc = func(context.Context) (map[string]queue.Stats, error) { return nil, errors.New("redis down") }
	rec = request(t, srv, "GET", "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestServer_QueueJobs(t *testing.T) {
	srv, d := newTestServer(t)
	d.queues.JobsFunc = func(_ context.Context, name string, _ queue.State, _ int) ([]*queue.Job, error) {
		if name == "rss-summary" {
			return nil, nil
		}
		return []*queue.Job{{ID: "j1", Queue: name, Type: "fetch-feed", State: queue.StateFailed, LastError: "boom"}}, nil
	}

	rec := request(t, srv, "GET", "/api/v1/queues/rss-fetch/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"j1"`)
	call := d.queues.JobsCalls()[0]
	assert.Equal(t, queue.StateFailed, call.State, "failed jobs by default")
	assert.Equal(t, defaultJobsLimit, call.Limit)

	rec = request(t, srv, "GET", "/api/v1/queues/rss-summary/jobs?state=dead&limit=10000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
	call = d.queues.JobsCalls()[1]
	assert.Equal(t, queue.StateDead, call.State)
	assert.Equal(t, maxLimit, call.Limit)

	rec = request(t, srv, "GET", "/api/v1/queues/rss-fetch/jobs?state=lost", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = request(t, srv, "GET", "/api/v1/queues/rss-fetch/jobs?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, d.queues.JobsCalls(), 2)
}

func TestServer_QueueActions(t *testing.T) {
	srv, d := newTestServer(t)
	d.queues.RequeueFunc = func(_ context.Context, _, id string) error {
		if id == "missing" {
			return fmt.Errorf("requeue: %w", queue.ErrJobNotFound)
		}
		return nil
	}
	d.queues.PurgeFunc = func(context.Context, string, queue.State) (int, error) { return 3, nil }

	rec := request(t, srv, "POST", "/api/v1/queues/rss-fetch/jobs/j1/retry", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"waiting"`)

	rec = request(t, srv, "POST", "/api/v1/queues/rss-fetch/jobs/missing/retry", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"can't retry job"`)

	rec = request(t, srv, "DELETE", "/api/v1/queues/rss-fetch/jobs?state=dead", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"purged":3}`+"\n", rec.Body.String())
	assert.Equal(t, queue.StateDead, d.queues.PurgeCalls()[0].State)

	rec = request(t, srv, "DELETE", "/api/v1/queues/rss-fetch/jobs?state=waiting", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "pending jobs can't be purged")
	rec = request(t, srv, "DELETE", "/api/v1/queues/rss-fetch/jobs", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, d.queues.PurgeCalls(), 1)
}

func TestServer_FetchFeeds(t *testing.T) {
	srv, d := newTestServer(t)
	d.scheduler.FetchNowFunc = func(_ context.Context, id string) (string, error) {
		switch id {
		case "f1":
			return "job-1", nil
		case "off":
			return "", domain.Errorf(domain.KindValidation, "fetch now", "feed off is disabled")
		default:
			return "", domain.NotFound("get feed", "feed", id)
		}
	}
	d.scheduler.RunOnceFunc = func(context.Context) (int, error) { return 4, nil }

	rec := request(t, srv, "POST", "/api/v1/feeds/f1/fetch", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"jobId":"job-1"`)

	assert.Equal(t, http.StatusBadRequest, request(t, srv, "POST", "/api/v1/feeds/off/fetch", "").Code)
	assert.Equal(t, http.StatusNotFound, request(t, srv, "POST", "/api/v1/feeds/nope/fetch", "").Code)

	rec = request(t, srv, "POST", "/api/v1/feeds/fetch", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"queued":4`)
}

func TestServer_FeedManagement(t *testing.T) {
	srv, d := newTestServer(t)
	d.feedStore.CreateFeedFunc = func(_ context.Context, f *domain.Feed) error {
		if f.URL == "" {
			return domain.Errorf(domain.KindValidation, "create feed", "url is required")
		}
		f.ID = "f-new"
		return nil
	}
	d.feedStore.GetFeedsFunc = func(context.Context, bool) ([]domain.Feed, error) {
		return []domain.Feed{{ID: "f1", URL: "http://example.com/rss", Title: "Markets", IsActive: true}}, nil
	}
	d.feedStore.SetFeedActiveFunc = func(_ context.Context, id string, _ bool) error {
		if id != "f1" {
			return domain.NotFound("set feed active", "feed", id)
		}
		return nil
	}
	d.feedStore.DeleteFeedFunc = func(context.Context, string) error { return nil }

	rec := request(t, srv, "POST", "/api/v1/feeds", `{"url":"http://example.com/rss","title":"Markets"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"f-new"`)
	assert.True(t, d.feedStore.CreateFeedCalls()[0].Feed.IsActive, "active by default")

	rec = request(t, srv, "POST", "/api/v1/feeds", `{"url":"http://example.com/2","isActive":false}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.False(t, d.feedStore.CreateFeedCalls()[1].Feed.IsActive)

	assert.Equal(t, http.StatusBadRequest, request(t, srv, "POST", "/api/v1/feeds", `{"title":"no url"}`).Code)
	assert.Equal(t, http.StatusBadRequest, request(t, srv, "POST", "/api/v1/feeds", `not json`).Code)

	rec = request(t, srv, "GET", "/api/v1/feeds?active=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"Markets"`)
	assert.True(t, d.feedStore.GetFeedsCalls()[0].ActiveOnly)

	assert.Equal(t, http.StatusOK, request(t, srv, "PUT", "/api/v1/feeds/f1/active", `{"active":false}`).Code)
	assert.False(t, d.feedStore.SetFeedActiveCalls()[0].Active)
	assert.Equal(t, http.StatusNotFound, request(t, srv, "PUT", "/api/v1/feeds/f2/active", `{"active":true}`).Code)
	assert.Equal(t, http.StatusBadRequest, request(t, srv, "PUT", "/api/v1/feeds/f1/active", `{}`).Code)

	assert.Equal(t, http.StatusNoContent, request(t, srv, "DELETE", "/api/v1/feeds/f1", "").Code)
	assert.Equal(t, "f1", d.feedStore.DeleteFeedCalls()[0].FeedID)
}

func TestServer_Content(t *testing.T) {
	srv, d := newTestServer(t)
	d.content.ListContentFunc = func(context.Context, domain.ContentFilter) ([]domain.ContentItem, error) {
		return []domain.ContentItem{{ID: 1, SourceType: domain.SourceRSS, SourceID: "f1:a1", Summary: "stocks up",
			RawPayload: []byte(`{"secret":"raw"}`), Metadata: domain.ContentMetadata{Title: "Stocks"}}}, nil
	}

	rec := request(t, srv, "GET", "/api/v1/content?type=rss&summarized=true&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sourceId":"f1:a1"`)
	assert.NotContains(t, rec.Body.String(), "secret", "raw payload is not exposed")
	assert.Equal(t, domain.ContentFilter{SourceType: domain.SourceRSS, SummarizedOnly: true, Limit: 5},
		d.content.ListContentCalls()[0].Filter)

	assert.Equal(t, http.StatusBadRequest, request(t, srv, "GET", "/api/v1/content?type=fax", "").Code)
	assert.Len(t, d.content.ListContentCalls(), 1)
}

func TestServer_FlushCache(t *testing.T) {
	srv, d := newTestServer(t)
	d.cache.FlushFunc = func(context.Context) error { return nil }
	assert.Equal(t, http.StatusNoContent, request(t, srv, "DELETE", "/api/v1/cache", "").Code)
	require.Len(t, d.cache.FlushCalls(), 1)

	d.cache.FlushFunc = func(context.Context) error { return errors.New("redis down") }
	assert.Equal(t, http.StatusInternalServerError, request(t, srv, "DELETE", "/api/v1/cache", "").Code)
}

func TestServer_Quotes(t *testing.T) {
	srv, d := newTestServer(t)
	d.quotes.GetFilteredDataFunc = func(_ context.Context, opts quote.FilterOptions) (*quote.FilteredData, error) {
		if opts.Symbols[0] == "LIMIT" {
			return nil, domain.Errorf(domain.KindRateLimit, "get quotes", "rate limit exceeded")
		}
		return &quote.FilteredData{Quotes: []quote.Quote{{Symbol: "AAPL", Price: 190.5}}}, nil
	}

	rec := request(t, srv, "GET", "/api/v1/quotes?symbols=AAPL,%20MSFT,&range=1mo&interval=daily&metrics=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"symbol":"AAPL"`)
	assert.Equal(t, quote.FilterOptions{Symbols: []string{"AAPL", "MSFT"}, Interval: "daily", TimeRange: "1mo",
		IncludeMetrics: true}, d.quotes.GetFilteredDataCalls()[0].Opts)

	assert.Equal(t, http.StatusBadRequest, request(t, srv, "GET", "/api/v1/quotes", "").Code)
	assert.Equal(t, http.StatusBadRequest, request(t, srv, "GET", "/api/v1/quotes?symbols=AAPL&metrics=maybe", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, request(t, srv, "GET", "/api/v1/quotes?symbols=LIMIT", "").Code)
}

func TestServer_RSSPreview(t *testing.T) {
	srv, d := newTestServer(t)
	d.feeds.FetchAndFilterFunc = func(_ context.Context, url string, _ rss.FilterOptions, _ ...rss.FetchOption) (*domain.ParsedFeed, error) {
		if url == "http://bad" {
			return nil, domain.Errorf(domain.KindParse, "parse feed", "not a feed")
		}
		return &domain.ParsedFeed{Title: "Markets", Items: []domain.ParsedItem{{Title: "Stocks rally"}}}, nil
	}

	rec := request(t, srv, "GET", "/api/v1/rss/preview?url=http://example.com/rss&keywords=stocks,bonds&max_age=24&min_length=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"Stocks rally"`)
	filter := d.feeds.FetchAndFilterCalls()[0].Filter
	assert.Equal(t, rss.FilterOptions{Keywords: []string{"stocks", "bonds"}, MaxAgeInHours: 24, MinLength: 10}, filter)

	assert.Equal(t, http.StatusBadRequest, request(t, srv, "GET", "/api/v1/rss/preview", "").Code)
	assert.Equal(t, http.StatusBadRequest, request(t, srv, "GET", "/api/v1/rss/preview?url=http://x&max_age=abc", "").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, request(t, srv, "GET", "/api/v1/rss/preview?url=http://bad", "").Code)
}

func TestServer_RSS(t *testing.T) {
	srv, d := newTestServer(t)
	published := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	d.content.ListContentFunc = func(context.Context, domain.ContentFilter) ([]domain.ContentItem, error) {
		return []domain.ContentItem{
			{ID: 1, SourceID: "f1:a1", Summary: "Indexes went up", KeyPoints: []string{"tech <led>", "volume high"},
				Sentiment: domain.SentimentPositive, Metadata: domain.ContentMetadata{Title: "Stocks rally",
					URL: "http://example.com/a1", Author: "Jane", PublishedAt: published}},
			{ID: 2, SourceID: "f1:a2", Summary: "Yields higher", Metadata: domain.ContentMetadata{Title: "Bonds fall"}},
		}, nil
	}

	d.content.RecordDisplayFunc = func(_ context.Context, id int64) error {
		if id == 2 {
			return domain.NotFound("record display", "content item", "2")
		}
		return nil
	}

	rec := request(t, srv, "GET", "/rss", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/rss+xml; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Len(t, d.content.RecordDisplayCalls(), 2, "every published item is counted")
	assert.Equal(t, int64(1), d.content.RecordDisplayCalls()[0].ID)
	assert.Equal(t, int64(2), d.content.RecordDisplayCalls()[1].ID)
	assert.Equal(t, domain.ContentFilter{SummarizedOnly: true, Limit: rssItemsLimit}, d.content.ListContentCalls()[0].Filter)

	feed, err := gofeed.NewParser().ParseString(rec.Body.String())
	require.NoError(t, err)
	assert.Equal(t, "tickerz", feed.Title)
	assert.Equal(t, "http://tickerz.example.com/", feed.Link)
	require.Len(t, feed.Items, 2)
	assert.Equal(t, "Stocks rally", feed.Items[0].Title)
	assert.Equal(t, "f1:a1", feed.Items[0].GUID)
	assert.Equal(t, "Indexes went up", feed.Items[0].Description)
	assert.Contains(t, feed.Items[0].Content, "<li>tech &lt;led&gt;</li>")
	assert.Contains(t, feed.Items[0].Content, "Sentiment: positive")
	require.NotNil(t, feed.Items[0].PublishedParsed)
	assert.True(t, published.Equal(*feed.Items[0].PublishedParsed))

	d.content.ListContentFunc = func(context.Context, domain.ContentFilter) ([]domain.ContentItem, error) {
		return nil, errors.New("db locked")
	}
	assert.Equal(t, http.StatusInternalServerError, request(t, srv, "GET", "/rss", "").Code)
	assert.Len(t, d.content.RecordDisplayCalls(), 2, "nothing counted when nothing published")
}

func TestServer_OPML(t *testing.T) {
	srv, d := newTestServer(t)
	d.feedStore.GetFeedsFunc = func(context.Context, bool) ([]domain.Feed, error) {
		return []domain.Feed{{ID: "f1", URL: "http://example.com/rss", Title: "Markets"}, {ID: "f2", URL: "http://example.com/2"}}, nil
	}
	rec := request(t, srv, "GET", "/opml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "<?xml"))
	assert.Contains(t, body, `<outline text="Markets" title="Markets" type="rss" xmlUrl="http://example.com/rss"></outline>`)
	assert.Contains(t, body, `text="http://example.com/2"`, "url used when title is empty")
	assert.True(t, d.feedStore.GetFeedsCalls()[0].ActiveOnly)
}

func TestServer_Sources(t *testing.T) {
	srv, d := newTestServer(t)
	created := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	stored := map[string]domain.SourceConfiguration{}
	d.sources.CreateSourceFunc = func(_ context.Context, src *domain.SourceConfiguration) error {
		if err := src.Validate(); err != nil {
			return err
		}
		src.ID, src.CreatedAt = "s"+strconv.Itoa(len(stored)+1), created
		stored[src.ID] = *src
		return nil
	}
	d.sources.GetSourceFunc = func(_ context.Context, id string) (*domain.SourceConfiguration, error) {
		src, ok := stored[id]
		if !ok {
			return nil, domain.NotFound("get source", "source configuration", id)
		}
		return &src, nil
	}
	d.sources.ListSourcesFunc = func(_ context.Context, srcType domain.SourceType, _ bool) ([]domain.SourceConfiguration, error) {
		var res []domain.SourceConfiguration
		for _, src := range stored {
			if srcType == "" || src.Type == srcType {
				res = append(res, src)
			}
		}
		return res, nil
	}
	d.sources.SetSourceActiveFunc = func(_ context.Context, id string, active bool) error {
		src, ok := stored[id]
		if !ok {
			return domain.NotFound("set source active", "source configuration", id)
		}
		src.IsActive = active
		stored[id] = src
		return nil
	}
	d.sources.MarkSourceSyncedFunc = func(context.Context, string, time.Time) error { return nil }
	d.quotes.GetFilteredDataFunc = func(_ context.Context, opts quote.FilterOptions) (*quote.FilteredData, error) {
		return &quote.FilteredData{Quotes: []quote.Quote{{Symbol: opts.Symbols[0], Price: 190.5}}}, nil
	}

	t.Run("create validates type specific fields", func(t *testing.T) {
		rec := request(t, srv, "POST", "/api/v1/sources", `{"type":"stock","name":"tech","config":{}}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rec = request(t, srv, "POST", "/api/v1/sources", `{"type":"radio","name":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rec = request(t, srv, "POST", "/api/v1/sources", `{bad`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = request(t, srv, "POST", "/api/v1/sources", `{"type":"stock","name":"tech","config":{"symbols":["AAPL"]}}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		var resp sourceResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "s1", resp.ID)
		assert.True(t, resp.IsActive)
		assert.Equal(t, []string{"AAPL"}, resp.Config.Symbols)

		rec = request(t, srv, "POST", "/api/v1/sources",
			`{"type":"weather","name":"home","config":{"location":"Berlin"},"isActive":false}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("list", func(t *testing.T) {
		rec := request(t, srv, "GET", "/api/v1/sources?type=stock&active=true", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp []sourceResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp, 1)
		assert.Equal(t, domain.SourceStock, resp[0].Type)
		last := d.sources.ListSourcesCalls()[len(d.sources.ListSourcesCalls())-1]
		assert.True(t, last.ActiveOnly)

		assert.Equal(t, http.StatusBadRequest, request(t, srv, "GET", "/api/v1/sources?type=radio", "").Code)
	})

	t.Run("sync", func(t *testing.T) {
		rec := request(t, srv, "POST", "/api/v1/sources/s1/sync", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"symbol":"AAPL"`)
		require.Len(t, d.sources.MarkSourceSyncedCalls(), 1)
		assert.Equal(t, "s1", d.sources.MarkSourceSyncedCalls()[0].ID)

		// inactive and unsupported sources are rejected
		assert.Equal(t, http.StatusBadRequest, request(t, srv, "POST", "/api/v1/sources/s2/sync", "").Code)
		rec = request(t, srv, "PUT", "/api/v1/sources/s2/active", `{"active":true}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, http.StatusBadRequest, request(t, srv, "POST", "/api/v1/sources/s2/sync", "").Code)
		assert.Len(t, d.sources.MarkSourceSyncedCalls(), 1)

		assert.Equal(t, http.StatusNotFound, request(t, srv, "POST", "/api/v1/sources/nope/sync", "").Code)
		assert.Equal(t, http.StatusBadRequest, request(t, srv, "PUT", "/api/v1/sources/s1/active", `{}`).Code)
	})
}

func TestStatusOf(t *testing.T) {
	tbl := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", queue.ErrJobNotFound), http.StatusNotFound},
		{domain.Errorf(domain.KindValidation, "op", "bad"), http.StatusBadRequest},
		{domain.NotFound("op", "feed", "f1"), http.StatusNotFound},
		{domain.Errorf(domain.KindRateLimit, "op", "slow down"), http.StatusTooManyRequests},
		{domain.Errorf(domain.KindParse, "op", "garbage"), http.StatusUnprocessableEntity},
		{domain.Errorf(domain.KindNetwork, "op", "timeout"), http.StatusBadGateway},
		{domain.Errorf(domain.KindAPI, "op", "500"), http.StatusBadGateway},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tbl {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusOf(tt.err))
		})
	}
}

func TestServer_Run(t *testing.T) {
	srv, d := newTestServer(t)
	d.content.ContentStatsFunc = func(context.Context) (domain.ContentStats, error) { return domain.ContentStats{}, nil }
	d.queues.StatsFunc = func(context.Context) (map[string]queue.Stats, error) { return map[string]queue.Stats{}, nil }

	port := chooseRandomUnusedPort(t)
	srv.Listen = fmt.Sprintf("127.0.0.1:%d", port)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	url := fmt.Sprintf("http://127.0.0.1:%d/api/v1/status", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:gosec // test url
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server didn't stop")
	}
}

func chooseRandomUnusedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
