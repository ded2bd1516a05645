package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/tickerz/pkg/domain"
	"github.com/umputun/tickerz/pkg/pipeline/mocks"
	"github.com/umputun/tickerz/pkg/queue"
)

// memStore is a content store keeping items in a map
func memStore() (*mocks.ContentStoreMock, map[string]*domain.ContentItem) {
	var mu sync.Mutex
	items := map[string]*domain.ContentItem{}
	var seq int64
	store := &mocks.ContentStoreMock{
		ContentExistsFunc: func(_ context.Context, _ domain.SourceType, id string) (bool, error) {
			mu.Lock()
			defer mu.Unlock()
			_, ok := items[id]
			return ok, nil
		},
		CreateContentIfAbsentFunc: func(_ context.Context, item *domain.ContentItem) (bool, error) {
			mu.Lock()
			defer mu.Unlock()
			if _, ok := items[item.SourceID]; ok {
				return false, nil
			}
			seq++
			item.ID = seq
			items[item.SourceID] = item
			return true, nil
		},
		DeleteContentFunc: func(_ context.Context, _ domain.SourceType, id string) error {
			mu.Lock()
			defer mu.Unlock()
			delete(items, id)
			return nil
		},
	}
	return store, items
}

func TestHandleProcess(t *testing.T) {
	store, items := memStore()
	items["f1:old"] = &domain.ContentItem{SourceType: domain.SourceRSS, SourceID: "f1:old"}
	q := capturingQueue()
	p, _ := newTestPipeline(Config{Store: store, Queue: q})

	feed := &domain.ParsedFeed{Title: "news", Items: []domain.ParsedItem{
		{GUID: "new1", Title: "Stocks rally", Description: "<p>Markets <b>up</b></p>", Link: "http://x/1",
			MediaContentURL: "http://x/1.jpg", Author: "Ann"},
		{GUID: "old", Title: "Seen before"},
		{Title: "no identity at all"},
		{Link: "http://x/3", Description: `text <img src="http://x/3.png">`},
	}}
	res, err := p.HandleProcess(context.Background(), newJob(t, ProcessJob{FeedID: "f1", Content: domain.NewRSSPayload(feed)}))
	require.NoError(t, err)
	assert.Equal(t, ProcessResult{Items: 4, Created: 2, Skipped: 2}, res)

	require.Len(t, items, 3)
	first := items["f1:new1"]
	require.NotNil(t, first)
	assert.Equal(t, domain.SourceRSS, first.SourceType)
	assert.Equal(t, domain.ContentMetadata{Title: "Stocks rally", Description: "Markets up", ImageURL: "http://x/1.jpg",
		PublishedAt: testNow, Author: "Ann", URL: "http://x/1"}, first.Metadata)
	var raw domain.ParsedItem
	require.NoError(t, json.Unmarshal(first.RawPayload, &raw))
	assert.Equal(t, "new1", raw.GUID, "raw item kept as payload")

	third := items["f1:http://x/3"]
	require.NotNil(t, third, "link used as guid")
	assert.Equal(t, "http://x/3.png", third.Metadata.ImageURL)
	assert.Equal(t, "Unknown", third.Metadata.Author)

	calls := q.EnqueueCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, QueueSummarize, calls[0].QueueName)
	assert.Equal(t, JobSummarize, calls[0].JobType)
	assert.Equal(t, SummarizeJob{ContentID: "f1:new1", Text: "Stocks rally\n\nMarkets up"}, calls[0].Payload)
	assert.Equal(t, SummarizeJob{ContentID: "f1:http://x/3", Text: "\n\ntext"}, calls[1].Payload)
}

func TestHandleProcess_LostRace(t *testing.T) {
	store := &mocks.ContentStoreMock{
		ContentExistsFunc:         func(context.Context, domain.SourceType, string) (bool, error) { return false, nil },
		CreateContentIfAbsentFunc: func(context.Context, *domain.ContentItem) (bool, error) { return false, nil },
	}
	q := capturingQueue()
	p, _ := newTestPipeline(Config{Store: store, Queue: q})

	feed := &domain.ParsedFeed{Items: []domain.ParsedItem{{GUID: "g1", Title: "t"}}}
	res, err := p.HandleProcess(context.Background(), newJob(t, ProcessJob{FeedID: "f1", Content: domain.NewRSSPayload(feed)}))
	require.NoError(t, err)
	assert.Equal(t, ProcessResult{Items: 1, Skipped: 1}, res)
	assert.Empty(t, q.EnqueueCalls(), "item created by another worker is not summarized twice")
}

func TestHandleProcess_EnqueueFailureRemovesItem(t *testing.T) {
	store, items := memStore()
	q := &mocks.EnqueuerMock{EnqueueFunc: func(context.Context, string, string, any, ...queue.Option) (string, error) {
		return "", errors.New("queue down")
	}}
	p, _ := newTestPipeline(Config{Store: store, Queue: q})

	feed := &domain.ParsedFeed{Items: []domain.ParsedItem{{GUID: "g1", Title: "t"}, {GUID: "g2", Title: "t2"}}}
	job := newJob(t, ProcessJob{FeedID: "f1", Content: domain.NewRSSPayload(feed)})
	_, err := p.HandleProcess(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue down")
	require.Len(t, store.DeleteContentCalls(), 1)
	assert.Equal(t, "f1:g1", store.DeleteContentCalls()[0].SourceID)
	assert.Empty(t, items, "nothing left behind for the retry to skip")

	// retry after the queue recovers creates both items
	q.EnqueueFunc = func(context.Context, string, string, any, ...queue.Option) (string, error) { return "id", nil }
	res, err := p.HandleProcess(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, ProcessResult{Items: 2, Created: 2}, res)
}

func TestHandleProcess_Errors(t *testing.T) {
	storeErr := errors.New("database is closed")
	tbl := []struct {
		name     string
		job      *queue.Job
		store    *mocks.ContentStoreMock
		wantKind domain.Kind
	}{
		{name: "no feed payload", job: newJob(t, ProcessJob{FeedID: "f1", Content: domain.FeedPayload{Kind: domain.SourceRSS}}),
			wantKind: domain.KindParse},
		{name: "unsupported kind", job: newJob(t, ProcessJob{FeedID: "f1", Content: domain.FeedPayload{Kind: domain.SourceStock}}),
			wantKind: domain.KindParse},
		{name: "no feed id", job: newJob(t, ProcessJob{Content: domain.NewRSSPayload(testFeed())}),
			wantKind: domain.KindValidation},
		{name: "undecodable", job: &queue.Job{ID: "j", Payload: []byte(`{"feedId": 1}`)}, wantKind: domain.KindParse},
		{name: "exists check fails", job: newJob(t, ProcessJob{FeedID: "f1", Content: domain.NewRSSPayload(testFeed())}),
			store: &mocks.ContentStoreMock{ContentExistsFunc: func(context.Context, domain.SourceType, string) (bool, error) {
				return false, storeErr
			}}},
		{name: "create fails", job: newJob(t, ProcessJob{FeedID: "f1", Content: domain.NewRSSPayload(testFeed())}),
			store: &mocks.ContentStoreMock{
				ContentExistsFunc: func(context.Context, domain.SourceType, string) (bool, error) { return false, nil },
				CreateContentIfAbsentFunc: func(context.Context, *domain.ContentItem) (bool, error) {
					return false, domain.Errorf(domain.KindValidation, "create content", "bad key")
				},
			}, wantKind: domain.KindValidation},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			store := tt.store
			if store == nil {
				store = &mocks.ContentStoreMock{}
			}
			q := capturingQueue()
			p, _ := newTestPipeline(Config{Store: store, Queue: q})
			_, err := p.HandleProcess(context.Background(), tt.job)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, domain.KindOf(err))
			assert.Empty(t, q.EnqueueCalls())
		})
	}
}
