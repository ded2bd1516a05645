package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/tickerz/pkg/domain"
	"github.com/umputun/tickerz/pkg/queue"
)

const (
	defaultJobsLimit    = 50
	defaultContentLimit = 50
	maxLimit            = 500
)

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":  "ok",
		"version": s.Version,
		"time":    time.Now().UTC(),
	}
	if st, err := s.content.ContentStats(r.Context()); err == nil {
		status["content"] = st
	} else {
		lgr.Printf("[WARN] can't get content stats: %v", err)
		status["status"] = "degraded"
	}
	if st, err := s.queues.Stats(r.Context()); err == nil {
		status["queues"] = st
	} else {
		lgr.Printf("[WARN] can't get queue stats: %v", err)
		status["status"] = "degraded"
	}
	renderJSON(w, http.StatusOK, status)
}

func (s *Server) queueStatsHandler(w http.ResponseWriter, r *http.Request) {
	st, err := s.queues.Stats(r.Context())
	if err != nil {
		renderError(w, r, err, "can't get queue stats")
		return
	}
	renderJSON(w, http.StatusOK, st)
}

// listJobsHandler lists jobs of a queue, failed ones by default
func (s *Server) listJobsHandler(w http.ResponseWriter, r *http.Request) {
	state := queue.StateFailed
	if v := r.URL.Query().Get("state"); v != "" {
		st, err := queue.ParseState(v)
		if err != nil {
			renderError(w, r, domain.Wrap(domain.KindValidation, "list jobs", err), "invalid state")
			return
		}
		state = st
	}
	limit, err := parseLimit(r, defaultJobsLimit)
	if err != nil {
		renderError(w, r, err, "invalid limit")
		return
	}

	jobs, err := s.queues.Jobs(r.Context(), r.PathValue("queue"), state, limit)
	if err != nil {
		renderError(w, r, err, "can't list jobs")
		return
	}
	if jobs == nil {
		jobs = []*queue.Job{}
	}
	renderJSON(w, http.StatusOK, jobs)
}

func (s *Server) retryJobHandler(w http.ResponseWriter, r *http.Request) {
	queueName, id := r.PathValue("queue"), r.PathValue("id")
	if err := s.queues.Requeue(r.Context(), queueName, id); err != nil {
		renderError(w, r, err, "can't retry job")
		return
	}
	renderJSON(w, http.StatusOK, map[string]string{"queue": queueName, "id": id, "state": string(queue.StateWaiting)})
}

// purgeJobsHandler drops completed, failed or dead jobs of a queue
func (s *Server) purgeJobsHandler(w http.ResponseWriter, r *http.Request) {
	state, err := queue.ParseState(r.URL.Query().Get("state"))
	if err != nil {
		renderError(w, r, domain.Wrap(domain.KindValidation, "purge jobs", err), "invalid state")
		return
	}
	switch state {
	case queue.StateCompleted, queue.StateFailed, queue.StateDead:
	default:
		renderError(w, r, domain.Errorf(domain.KindValidation, "purge jobs", "can't purge %s jobs", state),
			"only completed, failed or dead jobs can be purged")
		return
	}
	n, err := s.queues.Purge(r.Context(), r.PathValue("queue"), state)
	if err != nil {
		renderError(w, r, err, "can't purge jobs")
		return
	}
	renderJSON(w, http.StatusOK, map[string]int{"purged": n})
}

func (s *Server) fetchFeedHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.scheduler.FetchNow(r.Context(), r.PathValue("id"))
	if err != nil {
		renderError(w, r, err, "can't fetch feed")
		return
	}
	renderJSON(w, http.StatusAccepted, map[string]string{"jobId": id})
}

func (s *Server) fetchDueFeedsHandler(w http.ResponseWriter, r *http.Request) {
	n, err := s.scheduler.RunOnce(r.Context())
	if err != nil {
		renderError(w, r, err, "can't fetch feeds")
		return
	}
	renderJSON(w, http.StatusAccepted, map[string]int{"queued": n})
}

type contentResponse struct {
	ID          int64                  `json:"id"`
	SourceType  domain.SourceType      `json:"sourceType"`
	SourceID    string                 `json:"sourceId"`
	Summary     string                 `json:"summary,omitempty"`
	KeyPoints   []string               `json:"keyPoints,omitempty"`
	Sentiment   domain.Sentiment       `json:"sentiment,omitempty"`
	Metadata    domain.ContentMetadata `json:"metadata"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
	LastShownAt *time.Time             `json:"lastShownAt,omitempty"`
}

// listContentHandler lists stored items, newest first
func (s *Server) listContentHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultContentLimit)
	if err != nil {
		renderError(w, r, err, "invalid limit")
		return
	}
	filter := domain.ContentFilter{SourceType: domain.SourceType(r.URL.Query().Get("type")), Limit: limit}
	if filter.SourceType != "" && !filter.SourceType.Valid() {
		renderError(w, r, domain.Errorf(domain.KindValidation, "list content", "unknown type %q", filter.SourceType),
			"invalid type")
		return
	}
	filter.SummarizedOnly, _ = strconv.ParseBool(r.URL.Query().Get("summarized"))

	items, err := s.content.ListContent(r.Context(), filter)
	if err != nil {
		renderError(w, r, err, "can't list content")
		return
	}
	res := make([]contentResponse, 0, len(items))
	for _, it := range items {
		res = append(res, contentResponse{ID: it.ID, SourceType: it.SourceType, SourceID: it.SourceID, Summary: it.Summary,
			KeyPoints: it.KeyPoints, Sentiment: it.Sentiment, Metadata: it.Metadata, CreatedAt: it.CreatedAt,
			UpdatedAt: it.UpdatedAt, LastShownAt: it.LastShownAt})
	}
	renderJSON(w, http.StatusOK, res)
}

func (s *Server) flushCacheHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Flush(r.Context()); err != nil {
		renderError(w, r, err, "can't flush cache")
		return
	}
	lgr.Printf("[INFO] cache flushed by request from %s", r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}

func parseLimit(r *http.Request, def int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, domain.Errorf(domain.KindValidation, "parse limit", "limit must be a positive number, got %q", v)
	}
	return min(n, maxLimit), nil
}
