package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/tickerz/pkg/domain"
	"github.com/umputun/tickerz/pkg/scheduler/mocks"
)

func testFeeds() []domain.Feed {
	return []domain.Feed{
		{ID: "f1", URL: "http://example.com/1", IsActive: true},
		{ID: "f2", URL: "http://example.com/2", IsActive: true},
		{ID: "f3", URL: "http://example.com/3", IsActive: true},
	}
}

func TestNew(t *testing.T) {
	s, err := New(&mocks.FeedsMock{}, &mocks.FetchEnqueuerMock{}, Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedule, s.cfg.Schedule)

	_, err = New(&mocks.FeedsMock{}, &mocks.FetchEnqueuerMock{}, Config{Schedule: "every minute"})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = New(&mocks.FeedsMock{}, &mocks.FetchEnqueuerMock{}, Config{Schedule: "@every 30s"})
	assert.NoError(t, err, "descriptors are accepted")
}

func TestScheduler_RunOnce(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	feeds := &mocks.FeedsMock{GetFeedsToFetchFunc: func(context.Context, time.Time) ([]domain.Feed, error) {
		return testFeeds(), nil
	}}
	enq := &mocks.FetchEnqueuerMock{EnqueueFetchFunc: func(_ context.Context, id, _ string) (string, error) {
		if id == "f2" {
			return "", errors.New("queue down")
		}
		return "job-" + id, nil
	}}
	s, err := New(feeds, enq, Config{})
	require.NoError(t, err)
	s.now = func() time.Time { return now }

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n, "failed feed doesn't stop the others")
	require.Len(t, enq.EnqueueFetchCalls(), 3)
	assert.Equal(t, "http://example.com/3", enq.EnqueueFetchCalls()[2].FeedURL)
	assert.Equal(t, now, feeds.GetFeedsToFetchCalls()[0].Now)
}

func TestScheduler_RunOnceErrors(t *testing.T) {
	feeds := &mocks.FeedsMock{GetFeedsToFetchFunc: func(context.Context, time.Time) ([]domain.Feed, error) {
		return nil, errors.New("db locked")
	}}
	enq := &mocks.FetchEnqueuerMock{}
	s, err := New(feeds, enq, Config{})
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db locked")

	feeds.GetFeedsToFetchFunc = func(context.Context, time.Time) ([]domain.Feed, error) { return testFeeds(), nil }
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := s.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, n)
	assert.Empty(t, enq.EnqueueFetchCalls())
}

func TestScheduler_FetchNow(t *testing.T) {
	feeds := &mocks.FeedsMock{GetFeedFunc: func(_ context.Context, id string) (*domain.Feed, error) {
		switch id {
		case "f1":
			return &domain.Feed{ID: "f1", URL: "http://example.com/1", IsActive: true}, nil
		case "off":
			return &domain.Feed{ID: "off", URL: "http://example.com/off"}, nil
		default:
			return nil, domain.NotFound("get feed", "feed", id)
		}
	}}
	enq := &mocks.FetchEnqueuerMock{EnqueueFetchFunc: func(context.Context, string, string) (string, error) { return "job-1", nil }}
	s, err := New(feeds, enq, Config{})
	require.NoError(t, err)

	id, err := s.FetchNow(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", id)

	_, err = s.FetchNow(context.Background(), "missing")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	_, err = s.FetchNow(context.Background(), "off")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	require.Len(t, enq.EnqueueFetchCalls(), 1)
	assert.Equal(t, "f1", enq.EnqueueFetchCalls()[0].FeedID)
}

func TestScheduler_StartStop(t *testing.T) {
	feeds := &mocks.FeedsMock{GetFeedsToFetchFunc: func(context.Context, time.Time) ([]domain.Feed, error) {
		return testFeeds()[:1], nil
	}}
	enq := &mocks.FetchEnqueuerMock{EnqueueFetchFunc: func(context.Context, string, string) (string, error) { return "id", nil }}
	s, err := New(feeds, enq, Config{Schedule: "0 0 1 1 *", RunOnStart: true})
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()), "second start rejected")

	require.Eventually(t, func() bool { return len(enq.EnqueueFetchCalls()) == 1 }, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop() // no-op

	require.NoError(t, s.Start(context.Background()), "can be started again after stop")
	s.Stop()
}

func TestScheduler_StopsWithContext(t *testing.T) {
	s, err := New(&mocks.FeedsMock{}, &mocks.FetchEnqueuerMock{}, Config{Schedule: "0 0 1 1 *"})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler didn't stop")
	}
}
