package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/umputun/tickerz/pkg/domain"
	"github.com/umputun/tickerz/pkg/quote"
)

// quotesHandler returns quotes for symbols=AAPL,MSFT with optional interval, range and metrics
func (s *Server) quotesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := quote.FilterOptions{
		Symbols:   splitList(q.Get("symbols")),
		Interval:  q.Get("interval"),
		TimeRange: q.Get("range"),
	}
	if len(opts.Symbols) == 0 {
		renderError(w, r, domain.Errorf(domain.KindValidation, "get quotes", "symbols are required"), "symbols are required")
		return
	}
	if v := q.Get("metrics"); v != "" {
		metrics, err := strconv.ParseBool(v)
		if err != nil {
			renderError(w, r, domain.Wrap(domain.KindValidation, "get quotes", err), "invalid metrics flag")
			return
		}
		opts.IncludeMetrics = metrics
	}

	data, err := s.quotes.GetFilteredData(r.Context(), opts)
	if err != nil {
		renderError(w, r, err, "can't get quotes")
		return
	}
	renderJSON(w, http.StatusOK, data)
}

// splitList splits comma separated values, dropping empty ones
func splitList(v string) []string {
	var res []string
	for p := range strings.SplitSeq(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			res = append(res, p)
		}
	}
	return res
}
