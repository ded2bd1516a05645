package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/tickerz/pkg/cache"
	"github.com/umputun/tickerz/pkg/config"
	"github.com/umputun/tickerz/pkg/content"
	"github.com/umputun/tickerz/pkg/domain"
	"github.com/umputun/tickerz/pkg/llm"
	"github.com/umputun/tickerz/pkg/pgstore"
	"github.com/umputun/tickerz/pkg/pipeline"
	"github.com/umputun/tickerz/pkg/queue"
	"github.com/umputun/tickerz/pkg/quote"
	"github.com/umputun/tickerz/pkg/repository"
	"github.com/umputun/tickerz/pkg/rss"
	"github.com/umputun/tickerz/pkg/scheduler"
	"github.com/umputun/tickerz/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"CONFIG" default:"tickerz.yml" description:"configuration file"`
	Listen string `short:"l" long:"listen" env:"LISTEN" description:"listen address, overrides config"`

	// one-shot operator commands, the process exits after running them
	AddFeed      string        `long:"add-feed" description:"subscribe to feed url and exit"`
	Enqueue      string        `long:"enqueue" description:"queue a fetch of feed id and exit (needs redis queue)"`
	Stats        bool          `long:"stats" description:"print content and queue stats and exit"`
	ClearCache   bool          `long:"clear-cache" description:"flush the cache and exit"`
	PurgeContent time.Duration `long:"purge-content" description:"delete content items older than the given age and exit"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	color.NoColor = color.NoColor || opts.NoColor
	setupLog(opts.Debug)
	log.Printf("[INFO] starting tickerz version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	err := run(ctx, opts)
	cancel()
	if err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
	log.Print("[INFO] shutdown complete")
}

// feedStore is what the pipeline, scheduler and server need from the feed storage
type feedStore interface {
	pipeline.FeedStore
	scheduler.Feeds
	server.FeedStore
}

// contentStore is what the pipeline, server and operator commands need from the content storage
type contentStore interface {
	pipeline.ContentStore
	server.Content
	PurgeContent(ctx context.Context, before time.Time) (int64, error)
}

// app holds wired components
type app struct {
	cfg      *config.Config
	feeds    feedStore
	content  contentStore
	sources  server.Sources
	cache    cache.Cache
	queue    *queue.Manager
	pipeline *pipeline.Pipeline
	closers  []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("[WARN] close error: %v", err)
		}
	}
}

func run(ctx context.Context, opts Opts) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Listen != "" {
		cfg.Server.Listen = opts.Listen
	}
	setupLog(opts.Debug, secrets(cfg)...)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if done, err := a.operatorCommand(ctx, opts); done {
		return err
	}

	summarizer, err := llm.New(ctx, llm.Config{Provider: cfg.LLM.Provider, APIKey: cfg.LLM.APIKey, Endpoint: cfg.LLM.Endpoint,
		Model: cfg.LLM.Model, Temperature: cfg.LLM.Temperature, MaxTokens: cfg.LLM.MaxTokens, Timeout: cfg.LLM.Timeout,
		SystemPrompt: cfg.LLM.SystemPrompt})
	if err != nil {
		return fmt.Errorf("failed to make summarizer: %w", err)
	}

	rssClient := rss.NewClient(rss.Options{Timeout: cfg.RSS.Timeout, MaxRedirects: cfg.RSS.MaxRedirects,
		UserAgent: cfg.RSS.UserAgent})
	pcfg := pipeline.Config{
		Fetcher:      rssClient,
		Feeds:        a.feeds,
		Store:        a.content,
		Summarizer:   summarizer,
		Cache:        a.cache,
		Queue:        a.queue,
		FeedTTL:      cfg.Pipeline.FeedTTL,
		SummaryTTL:   cfg.Pipeline.SummaryTTL,
		FetchTimeout: cfg.Pipeline.FetchTimeout,
	}
	if cfg.Extraction.Enabled {
		pcfg.Extractor = content.NewHTTPExtractor(content.Options{Timeout: cfg.Extraction.Timeout,
			UserAgent: cfg.Extraction.UserAgent, MaxLength: cfg.Extraction.MaxLength})
		pcfg.MinTextLength = cfg.Extraction.MinTextLength
	}
	a.pipeline = pipeline.New(pcfg)
	if err := a.pipeline.Register(a.queue); err != nil {
		return fmt.Errorf("failed to register pipeline: %w", err)
	}

	sched, err := scheduler.New(a.feeds, a.pipeline, scheduler.Config{Schedule: cfg.Schedule.Cron,
		RunOnStart: cfg.Schedule.RunOnStart})
	if err != nil {
		return fmt.Errorf("failed to make scheduler: %w", err)
	}

	quotes := quote.NewClient(quote.Options{APIKey: cfg.Quotes.APIKey, BaseURL: cfg.Quotes.BaseURL,
		Timeout: cfg.Quotes.Timeout, CacheTTL: cfg.Quotes.CacheTTL}, a.cache)

	srv := server.New(server.Config{
		Listen:    cfg.Server.Listen,
		Timeout:   cfg.Server.Timeout,
		BaseURL:   cfg.Server.BaseURL,
		FeedTitle: cfg.Server.FeedTitle,
		Version:   revision,
		Debug:     opts.Debug,
	}, server.Deps{Queues: a.queue, Scheduler: sched, Quotes: quotes, Feeds: rssClient, Content: a.content,
		Cache: a.cache, FeedStore: a.feeds, Sources: a.sources})

	if !cfg.Schedule.Disabled {
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.queue.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run failed: %w", err)
	}
	return nil
}

// newApp opens storage, cache and queue according to config
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	switch cfg.Database.Driver {
	case "postgres":
		st, err := pgstore.New(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		a.feeds, a.content, a.sources = st, st, st
		a.closers = append(a.closers, st.Close)
	default:
		repos, err := repository.NewRepositories(ctx, repository.Config{DSN: cfg.Database.DSN,
			MaxOpenConns: cfg.Database.MaxOpenConns, MaxIdleConns: cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		a.feeds, a.content, a.sources = repos.Feed, repos.Content, repos.Source
		a.closers = append(a.closers, repos.Close)
	}

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		a.closers = append(a.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.close()
			return nil, fmt.Errorf("failed to connect to redis %s: %w", cfg.Redis.Addr, err)
		}
	}

	switch cfg.Cache.Backend {
	case "redis":
		a.cache = cache.NewRedisCache(rdb, cfg.Redis.Prefix+"cache:")
	case "tiered":
		a.cache = cache.NewTiered(cache.NewMemoryCache(), cache.NewRedisCache(rdb, cfg.Redis.Prefix+"cache:"), cfg.Cache.LocalTTL)
	default:
		a.cache = cache.NewMemoryCache()
	}

	var broker queue.Broker = queue.NewMemoryBroker()
	if cfg.Queue.Backend == "redis" {
		broker = queue.NewRedisBroker(rdb, cfg.Redis.Prefix+"queue:")
	}
	a.queue = queue.NewManager(broker, queue.Config{
		Concurrency: cfg.Queue.Concurrency,
		LeaseTime:   cfg.Queue.LeaseTime,
		Defaults: queue.Options{MaxAttempts: cfg.Queue.Attempts,
			Backoff: queue.Backoff{Type: queue.BackoffType(cfg.Queue.BackoffType), Delay: cfg.Queue.BackoffDelay}},
		Retention:  queue.Retention{Count: cfg.Queue.KeepCount, Age: cfg.Queue.KeepAge},
		DeadLetter: domain.IsPermanent,
	})
	return a, nil
}

// operatorCommand runs a one-shot command if requested, done is true when the process should exit
func (a *app) operatorCommand(ctx context.Context, opts Opts) (done bool, err error) {
	switch {
	case opts.AddFeed != "":
		feed := &domain.Feed{URL: opts.AddFeed, IsActive: true}
		if err := a.feeds.CreateFeed(ctx, feed); err != nil {
			return true, fmt.Errorf("failed to add feed: %w", err)
		}
		fmt.Printf("feed %s added: %s\n", feed.ID, feed.URL)
	case opts.Enqueue != "":
		if a.cfg.Queue.Backend != "redis" {
			return true, errors.New("enqueue needs the redis queue backend, memory queue is lost on exit")
		}
		feed, err := a.feeds.GetFeed(ctx, opts.Enqueue)
		if err != nil {
			return true, fmt.Errorf("failed to get feed: %w", err)
		}
		// enqueue only needs the queue, handlers run in the serving process
		id, err := pipeline.New(pipeline.Config{Queue: a.queue, Cache: a.cache}).EnqueueFetch(ctx, feed.ID, feed.URL)
		if err != nil {
			return true, fmt.Errorf("failed to enqueue: %w", err)
		}
		fmt.Printf("fetch of feed %s queued as job %s\n", feed.ID, id)
	case opts.Stats:
		st, err := a.content.ContentStats(ctx)
		if err != nil {
			return true, fmt.Errorf("failed to get content stats: %w", err)
		}
		fmt.Printf("content: total %d, summarized %d\n", st.Total, st.Summarized)
		for _, name := range pipeline.QueueNames() {
			s, err := a.queue.QueueStats(ctx, name)
			if err != nil {
				return true, fmt.Errorf("failed to get queue stats: %w", err)
			}
			fmt.Printf("queue %s: waiting %d, active %d, delayed %d, completed %d, failed %d, dead %d\n",
				name, s.Waiting, s.Active, s.Delayed, s.Completed, s.Failed, s.Dead)
		}
	case opts.ClearCache:
		if err := a.cache.Flush(ctx); err != nil {
			return true, fmt.Errorf("failed to flush cache: %w", err)
		}
		fmt.Println("cache flushed")
	case opts.PurgeContent > 0:
		n, err := a.content.PurgeContent(ctx, time.Now().Add(-opts.PurgeContent))
		if err != nil {
			return true, fmt.Errorf("failed to purge content: %w", err)
		}
		fmt.Printf("%d content items purged\n", n)
	default:
		return false, nil
	}
	return true, nil
}

// secrets returns configured credentials to be masked in logs
func secrets(cfg *config.Config) []string {
	var res []string
	for _, s := range []string{cfg.LLM.APIKey, cfg.Quotes.APIKey, cfg.Redis.Password} {
		if s != "" {
			res = append(res, s)
		}
	}
	return res
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
