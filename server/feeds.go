package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/tickerz/pkg/domain"
)

type feedRequest struct {
	URL                  string `json:"url"`
	Title                string `json:"title"`
	Description          string `json:"description"`
	FetchIntervalMinutes int    `json:"fetchIntervalMinutes"`
	IsActive             *bool  `json:"isActive"`
}

type feedResponse struct {
	ID                   string     `json:"id"`
	URL                  string     `json:"url"`
	Title                string     `json:"title"`
	Description          string     `json:"description,omitempty"`
	LastFetchedAt        *time.Time `json:"lastFetchedAt,omitempty"`
	FetchIntervalMinutes int        `json:"fetchIntervalMinutes"`
	IsActive             bool       `json:"isActive"`
	CreatedAt            time.Time  `json:"createdAt"`
}

func toFeedResponse(f domain.Feed) feedResponse {
	return feedResponse{ID: f.ID, URL: f.URL, Title: f.Title, Description: f.Description, LastFetchedAt: f.LastFetchedAt,
		FetchIntervalMinutes: f.FetchIntervalMinutes, IsActive: f.IsActive, CreatedAt: f.CreatedAt}
}

// listFeedsHandler lists subscriptions, active=true limits to enabled feeds
func (s *Server) listFeedsHandler(w http.ResponseWriter, r *http.Request) {
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))
	list, err := s.feedStore.GetFeeds(r.Context(), activeOnly)
	if err != nil {
		renderError(w, r, err, "can't get feeds")
		return
	}
	res := make([]feedResponse, 0, len(list))
	for _, f := range list {
		res = append(res, toFeedResponse(f))
	}
	renderJSON(w, http.StatusOK, res)
}

// createFeedHandler subscribes to a feed, new feeds are active unless isActive is false
func (s *Server) createFeedHandler(w http.ResponseWriter, r *http.Request) {
	var req feedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, domain.Wrap(domain.KindValidation, "create feed", err), "can't decode request")
		return
	}
	if req.FetchIntervalMinutes < 0 {
		renderError(w, r, domain.Errorf(domain.KindValidation, "create feed", "negative fetch interval"),
			"invalid fetch interval")
		return
	}
	feed := &domain.Feed{URL: req.URL, Title: req.Title, Description: req.Description,
		FetchIntervalMinutes: req.FetchIntervalMinutes, IsActive: req.IsActive == nil || *req.IsActive}
	if err := s.feedStore.CreateFeed(r.Context(), feed); err != nil {
		renderError(w, r, err, "can't create feed")
		return
	}
	lgr.Printf("[INFO] feed %s added: %s", feed.ID, feed.URL)
	renderJSON(w, http.StatusCreated, toFeedResponse(*feed))
}

func (s *Server) setFeedActiveHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active *bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
		renderError(w, r, domain.Errorf(domain.KindValidation, "set feed active", "active flag is required"),
			"can't decode request")
		return
	}
	id := r.PathValue("id")
	if err := s.feedStore.SetFeedActive(r.Context(), id, *req.Active); err != nil {
		renderError(w, r, err, "can't update feed")
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"id": id, "isActive": *req.Active})
}

func (s *Server) deleteFeedHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.feedStore.DeleteFeed(r.Context(), id); err != nil {
		renderError(w, r, err, "can't delete feed")
		return
	}
	lgr.Printf("[INFO] feed %s deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
