package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/tickerz/pkg/domain"
	"github.com/umputun/tickerz/pkg/queue"
	"github.com/umputun/tickerz/pkg/quote"
	"github.com/umputun/tickerz/pkg/rss"
)

//go:generate moq -out mocks/queues.go -pkg mocks -skip-ensure -fmt goimports . Queues
//go:generate moq -out mocks/scheduler.go -pkg mocks -skip-ensure -fmt goimports . Scheduler
//go:generate moq -out mocks/quotes.go -pkg mocks -skip-ensure -fmt goimports . Quotes
//go:generate moq -out mocks/feed_reader.go -pkg mocks -skip-ensure -fmt goimports . FeedReader
//go:generate moq -out mocks/content.go -pkg mocks -skip-ensure -fmt goimports . Content
//go:generate moq -out mocks/cache.go -pkg mocks -skip-ensure -fmt goimports . Cache
//go:generate moq -out mocks/feed_store.go -pkg mocks -skip-ensure -fmt goimports . FeedStore
//go:generate moq -out mocks/sources.go -pkg mocks -skip-ensure -fmt goimports . Sources

// Server represents HTTP server instance
type Server struct {
	Config
	queues    Queues
	scheduler Scheduler
	quotes    Quotes
	feeds     FeedReader
	content   Content
	cache     Cache
	feedStore FeedStore
	sources   Sources

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// Config holds server settings
type Config struct {
	Listen    string
	Timeout   time.Duration
	BaseURL   string // public url used for links of the rss output
	FeedTitle string
	Version   string
	Debug     bool
}

// Deps are the components served over http
type Deps struct {
	Queues    Queues
	Scheduler Scheduler
	Quotes    Quotes
	Feeds     FeedReader
	Content   Content
	Cache     Cache
	FeedStore FeedStore
	Sources   Sources
}

// Queues provides queue inspection and operator actions, implemented by queue.Manager
type Queues interface {
	Stats(ctx context.Context) (map[string]queue.Stats, error)
	Jobs(ctx context.Context, queueName string, state queue.State, limit int) ([]*queue.Job, error)
	Requeue(ctx context.Context, queueName, id string) error
	Purge(ctx context.Context, queueName string, state queue.State) (int, error)
}

// Scheduler triggers feed fetches on demand
type Scheduler interface {
	FetchNow(ctx context.Context, feedID string) (string, error)
	RunOnce(ctx context.Context) (int, error)
}

// Quotes provides market data
type Quotes interface {
	GetFilteredData(ctx context.Context, opts quote.FilterOptions) (*quote.FilteredData, error)
}

// FeedReader fetches and filters remote feeds
type FeedReader interface {
	FetchAndFilter(ctx context.Context, url string, filter rss.FilterOptions, opts ...rss.FetchOption) (*domain.ParsedFeed, error)
}

// Content lists stored items and tracks how often they were published
type Content interface {
	ListContent(ctx context.Context, filter domain.ContentFilter) ([]domain.ContentItem, error)
	ContentStats(ctx context.Context) (domain.ContentStats, error)
	RecordDisplay(ctx context.Context, id int64) error
}

// Cache can be flushed by operator
type Cache interface {
	Flush(ctx context.Context) error
}

// FeedStore manages feed subscriptions
type FeedStore interface {
	CreateFeed(ctx context.Context, feed *domain.Feed) error
	GetFeeds(ctx context.Context, activeOnly bool) ([]domain.Feed, error)
	SetFeedActive(ctx context.Context, feedID string, active bool) error
	DeleteFeed(ctx context.Context, feedID string) error
}

// Sources manages configured external sources
type Sources interface {
	CreateSource(ctx context.Context, src *domain.SourceConfiguration) error
	GetSource(ctx context.Context, id string) (*domain.SourceConfiguration, error)
	ListSources(ctx context.Context, srcType domain.SourceType, activeOnly bool) ([]domain.SourceConfiguration, error)
	SetSourceActive(ctx context.Context, id string, active bool) error
	MarkSourceSynced(ctx context.Context, id string, syncedAt time.Time) error
}

// New initializes a new server instance
func New(cfg Config, deps Deps) *Server {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FeedTitle == "" {
		cfg.FeedTitle = "tickerz"
	}
	s := &Server{
		Config:    cfg,
		queues:    deps.Queues,
		scheduler: deps.Scheduler,
		quotes:    deps.Quotes,
		feeds:     deps.Feeds,
		content:   deps.Content,
		cache:     deps.Cache,
		feedStore: deps.FeedStore,
		sources:   deps.Sources,
		router:    routegroup.New(http.NewServeMux()),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	lgr.Printf("[INFO] starting server on %s", s.Listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:              s.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.Timeout,
		WriteTimeout:      s.Timeout,
	}
	httpServer := s.httpServer
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		lgr.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			lgr.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Handler returns the router, used by tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("tickerz", "umputun", s.Version))
	s.router.Use(rest.Ping)
	if s.Debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}
	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)

		r.HandleFunc("GET /queues", s.queueStatsHandler)
		r.HandleFunc("GET /queues/{queue}/jobs", s.listJobsHandler)
		r.HandleFunc("POST /queues/{queue}/jobs/{id}/retry", s.retryJobHandler)
		r.HandleFunc("DELETE /queues/{queue}/jobs", s.purgeJobsHandler)

		r.HandleFunc("GET /feeds", s.listFeedsHandler)
		r.HandleFunc("POST /feeds", s.createFeedHandler)
		r.HandleFunc("PUT /feeds/{id}/active", s.setFeedActiveHandler)
		r.HandleFunc("DELETE /feeds/{id}", s.deleteFeedHandler)
		r.HandleFunc("POST /feeds/fetch", s.fetchDueFeedsHandler)
		r.HandleFunc("POST /feeds/{id}/fetch", s.fetchFeedHandler)
		r.HandleFunc("GET /sources", s.listSourcesHandler)
		r.HandleFunc("POST /sources", s.createSourceHandler)
		r.HandleFunc("PUT /sources/{id}/active", s.setSourceActiveHandler)
		r.HandleFunc("POST /sources/{id}/sync", s.syncSourceHandler)
		r.HandleFunc("GET /content", s.listContentHandler)
		r.HandleFunc("DELETE /cache", s.flushCacheHandler)

		r.HandleFunc("GET /quotes", s.quotesHandler)
		r.HandleFunc("GET /rss/preview", s.rssPreviewHandler)
	})

	s.router.HandleFunc("GET /rss", s.rssHandler)
	s.router.HandleFunc("GET /opml", s.opmlHandler)
}

// renderJSON sends JSON response with the status code
func renderJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		lgr.Printf("[ERROR] can't encode response to JSON: %v", err)
	}
}

// renderError maps classified errors to status codes and sends {"error": msg}
func renderError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	rest.SendErrorJSON(w, r, lgr.Default(), statusOf(err), err, msg)
}

func statusOf(err error) int {
	if errors.Is(err, queue.ErrJobNotFound) {
		return http.StatusNotFound
	}
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindRateLimit:
		return http.StatusTooManyRequests
	case domain.KindParse:
		return http.StatusUnprocessableEntity
	case domain.KindNetwork, domain.KindAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
