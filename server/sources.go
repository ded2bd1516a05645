package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/tickerz/pkg/domain"
	"github.com/umputun/tickerz/pkg/quote"
	"github.com/umputun/tickerz/pkg/rss"
)

type sourceRequest struct {
	Type                string              `json:"type"`
	Name                string              `json:"name"`
	Config              domain.SourceConfig `json:"config"`
	SyncIntervalMinutes int                 `json:"syncIntervalMinutes"`
	IsActive            *bool               `json:"isActive"`
}

type sourceResponse struct {
	ID                  string              `json:"id"`
	Type                domain.SourceType   `json:"type"`
	Name                string              `json:"name"`
	Config              domain.SourceConfig `json:"config"`
	IsActive            bool                `json:"isActive"`
	LastSyncAt          *time.Time          `json:"lastSyncAt,omitempty"`
	SyncIntervalMinutes int                 `json:"syncIntervalMinutes"`
	CreatedAt           time.Time           `json:"createdAt"`
}

func toSourceResponse(src domain.SourceConfiguration) sourceResponse {
	return sourceResponse{ID: src.ID, Type: src.Type, Name: src.Name, Config: src.Config, IsActive: src.IsActive,
		LastSyncAt: src.LastSyncAt, SyncIntervalMinutes: src.SyncIntervalMinutes, CreatedAt: src.CreatedAt}
}

// listSourcesHandler lists source configurations, filtered by type and active flag
func (s *Server) listSourcesHandler(w http.ResponseWriter, r *http.Request) {
	srcType := domain.SourceType(r.URL.Query().Get("type"))
	if srcType != "" && !srcType.Valid() {
		renderError(w, r, domain.Errorf(domain.KindValidation, "list sources", "unknown source type %q", srcType),
			"invalid source type")
		return
	}
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))
	list, err := s.sources.ListSources(r.Context(), srcType, activeOnly)
	if err != nil {
		renderError(w, r, err, "can't get sources")
		return
	}
	res := make([]sourceResponse, 0, len(list))
	for _, src := range list {
		res = append(res, toSourceResponse(src))
	}
	renderJSON(w, http.StatusOK, res)
}

// createSourceHandler validates and stores a source configuration
func (s *Server) createSourceHandler(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, domain.Wrap(domain.KindValidation, "create source", err), "can't decode request")
		return
	}
	src := &domain.SourceConfiguration{Type: domain.SourceType(req.Type), Name: req.Name, Config: req.Config,
		SyncIntervalMinutes: req.SyncIntervalMinutes, IsActive: req.IsActive == nil || *req.IsActive}
	if err := s.sources.CreateSource(r.Context(), src); err != nil {
		renderError(w, r, err, "can't create source")
		return
	}
	lgr.Printf("[INFO] %s source %s added: %s", src.Type, src.ID, src.Name)
	renderJSON(w, http.StatusCreated, toSourceResponse(*src))
}

func (s *Server) setSourceActiveHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active *bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
		renderError(w, r, domain.Errorf(domain.KindValidation, "set source active", "active flag is required"),
			"can't decode request")
		return
	}
	id := r.PathValue("id")
	if err := s.sources.SetSourceActive(r.Context(), id, *req.Active); err != nil {
		renderError(w, r, err, "can't update source")
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"id": id, "isActive": *req.Active})
}

// syncSourceHandler pulls the current data of a source and records the sync time.
// Only rss and stock sources have a client to pull from.
func (s *Server) syncSourceHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	src, err := s.sources.GetSource(r.Context(), id)
	if err != nil {
		renderError(w, r, err, "can't get source")
		return
	}
	if !src.IsActive {
		renderError(w, r, domain.Errorf(domain.KindValidation, "sync source", "source %s is not active", id),
			"source is not active")
		return
	}

	var data any
	switch src.Type {
	case domain.SourceRSS:
		data, err = s.feeds.FetchAndFilter(r.Context(), src.Config.URL, rss.FilterOptions{})
	case domain.SourceStock:
		data, err = s.quotes.GetFilteredData(r.Context(), quote.FilterOptions{Symbols: src.Config.Symbols})
	default:
		err = domain.Errorf(domain.KindValidation, "sync source", "sync of %s sources is not supported", src.Type)
	}
	if err != nil {
		renderError(w, r, err, "can't sync source")
		return
	}

	syncedAt := time.Now().UTC()
	if err := s.sources.MarkSourceSynced(r.Context(), id, syncedAt); err != nil {
		renderError(w, r, err, "can't mark source synced")
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"id": id, "type": src.Type, "syncedAt": syncedAt, "data": data})
}
