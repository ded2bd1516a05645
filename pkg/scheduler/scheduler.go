// Package scheduler turns a cron schedule into fetch jobs for feeds due for an update
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/robfig/cron/v3"

	"github.com/umputun/tickerz/pkg/domain"
)

//go:generate moq -out mocks/feeds.go -pkg mocks -skip-ensure -fmt goimports . Feeds
//go:generate moq -out mocks/fetch_enqueuer.go -pkg mocks -skip-ensure -fmt goimports . FetchEnqueuer

// DefaultSchedule checks feeds every five minutes
const DefaultSchedule = "*/5 * * * *"

// Feeds provides feeds to fetch
type Feeds interface {
	GetFeed(ctx context.Context, id string) (*domain.Feed, error)
	GetFeedsToFetch(ctx context.Context, now time.Time) ([]domain.Feed, error)
}

// FetchEnqueuer queues a feed fetch, implemented by pipeline.Pipeline
type FetchEnqueuer interface {
	EnqueueFetch(ctx context.Context, feedID, feedURL string) (string, error)
}

// Config holds scheduler settings
type Config struct {
	Schedule   string // standard 5-field cron expression
	RunOnStart bool   // trigger once right after Start
}

// Scheduler enqueues fetches of due feeds on a cron schedule
type Scheduler struct {
	feeds    Feeds
	enqueuer FetchEnqueuer
	cfg      Config
	now      func() time.Time

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New makes a scheduler, an invalid schedule is VALIDATION_ERROR
func New(feeds Feeds, enqueuer FetchEnqueuer, cfg Config) (*Scheduler, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, domain.Wrap(domain.KindValidation, "new scheduler", fmt.Errorf("schedule %q: %w", cfg.Schedule, err))
	}
	return &Scheduler{feeds: feeds, enqueuer: enqueuer, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Start runs the schedule in background until Stop or ctx cancellation.
// Overlapping ticks are skipped while the previous one is still running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("scheduler already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	logger := cron.PrintfLogger(cronLogger{})
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(s.cfg.Schedule, func() { s.tick(ctx) }); err != nil {
		cancel()
		return fmt.Errorf("add schedule %q: %w", s.cfg.Schedule, err)
	}
	s.cron, s.cancel = c, cancel
	c.Start()

	if s.cfg.RunOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.tick(ctx)
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	lgr.Printf("[INFO] scheduler started with schedule %q", s.cfg.Schedule)
	return nil
}

// Stop cancels the schedule and waits for a running tick to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	lgr.Printf("[INFO] scheduler stopped")
}

// RunOnce enqueues fetches for all feeds due now and returns how many were queued.
// Failure to queue one feed doesn't stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	feeds, err := s.feeds.GetFeedsToFetch(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("get feeds to fetch: %w", err)
	}
	queued := 0
	for _, f := range feeds {
		if ctx.Err() != nil {
			return queued, ctx.Err()
		}
		if _, err := s.enqueuer.EnqueueFetch(ctx, f.ID, f.URL); err != nil {
			lgr.Printf("[WARN] can't queue fetch of feed %s (%s): %v", f.ID, f.URL, err)
			continue
		}
		queued++
	}
	return queued, nil
}

// FetchNow queues a fetch of a single feed regardless of its schedule
func (s *Scheduler) FetchNow(ctx context.Context, feedID string) (string, error) {
	feed, err := s.feeds.GetFeed(ctx, feedID)
	if err != nil {
		return "", fmt.Errorf("fetch now: %w", err)
	}
	if !feed.IsActive {
		return "", domain.Errorf(domain.KindValidation, "fetch now", "feed %s is disabled", feedID)
	}
	return s.enqueuer.EnqueueFetch(ctx, feed.ID, feed.URL)
}

func (s *Scheduler) tick(ctx context.Context) {
	n, err := s.RunOnce(ctx)
	if err != nil {
		lgr.Printf("[WARN] scheduled run failed after %d feeds: %v", n, err)
		return
	}
	if n > 0 {
		lgr.Printf("[INFO] queued %d feed fetches", n)
	}
}

// cronLogger sends cron errors to lgr
type cronLogger struct{}

func (cronLogger) Printf(format string, args ...any) {
	lgr.Printf("[WARN] cron: "+format, args...)
}
