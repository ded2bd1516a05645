// Package quote is a rate-limited client of an Alpha Vantage compatible quote and metrics API.
// Successful responses are cached so repeated calls don't spend the provider quota.
package quote

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/tickerz/pkg/cache"
	"github.com/umputun/tickerz/pkg/domain"
)

// defaults
const (
	DefaultBaseURL  = "https://www.alphavantage.co/query"
	DefaultTimeout  = 10 * time.Second
	DefaultCacheTTL = 5 * time.Minute
)

// Options are client settings
type Options struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Client talks to the quote API through a response cache
type Client struct {
	opts  Options
	http  *http.Client
	cache cache.Cache
	now   func() time.Time
}

// NewClient makes a client, nil cache means an in-memory one
func NewClient(opts Options, c cache.Cache) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if c == nil {
		c = cache.NewMemoryCache()
	}
	return &Client{opts: opts, http: &http.Client{Timeout: opts.Timeout}, cache: c, now: time.Now}
}

type response map[string]json.RawMessage

// cacheKey builds "quote:{function}:{sorted params}", the api key is not part of it
func cacheKey(function string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return "quote:" + function + ":" + strings.Join(parts, "&")
}

// call returns the decoded response for the api function, from cache when possible.
// Only successful responses are cached.
func (c *Client) call(ctx context.Context, function string, params map[string]string) (response, error) {
	op := "quote " + function
	key := cacheKey(function, params)

	var cached response
	if ok, err := cache.GetJSON(ctx, c.cache, key, &cached); err != nil {
		lgr.Printf("[WARN] quote cache read failed for %s: %v", key, err)
	} else if ok {
		lgr.Printf("[DEBUG] quote cache hit %s", key)
		return cached, nil
	}

	q := url.Values{}
	q.Set("function", function)
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("apikey", c.opts.APIKey)

	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, domain.Wrap(domain.KindNetwork, op, fmt.Errorf("create request: %w", err))
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.Wrap(domain.KindNetwork, op, redact(err, c.opts.APIKey))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.Error{Kind: domain.KindNetwork, Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, domain.Wrap(domain.KindNetwork, op, fmt.Errorf("read body: %w", err))
	}
	var res response
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, domain.Wrap(domain.KindParse, op, fmt.Errorf("decode response: %w", err))
	}

	if msg := stringField(res, "Error Message"); msg != "" {
		return nil, &domain.Error{Kind: domain.KindAPI, Op: op, Err: errors.New(msg)}
	}
	for _, f := range []string{"Note", "Information"} {
		if note := stringField(res, f); note != "" {
			return nil, &domain.Error{Kind: domain.KindRateLimit, Op: op, Err: errors.New("rate limit reached"), Details: note}
		}
	}

	if err := cache.SetJSON(ctx, c.cache, key, res, c.opts.CacheTTL); err != nil {
		lgr.Printf("[WARN] quote cache write failed for %s: %v", key, err)
	}
	return res, nil
}

// GetQuotes returns latest quotes, one request per symbol in order.
// Symbols without a quote in the response are omitted.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) ([]Quote, error) {
	res := make([]Quote, 0, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		resp, err := c.call(ctx, "GLOBAL_QUOTE", map[string]string{"symbol": sym})
		if err != nil {
			return nil, fmt.Errorf("quote %s: %w", sym, err)
		}
		var gq map[string]string
		if raw, ok := resp["Global Quote"]; !ok || json.Unmarshal(raw, &gq) != nil || len(gq) == 0 {
			lgr.Printf("[DEBUG] no quote for %s", sym)
			continue
		}
		res = append(res, Quote{
			Symbol:           cmp.Or(gq["01. symbol"], sym),
			Open:             num(gq["02. open"]),
			High:             num(gq["03. high"]),
			Low:              num(gq["04. low"]),
			Price:            num(gq["05. price"]),
			Volume:           integer(gq["06. volume"]),
			LatestTradingDay: gq["07. latest trading day"],
			PreviousClose:    num(gq["08. previous close"]),
			Change:           num(gq["09. change"]),
			ChangePercent:    num(strings.TrimSuffix(gq["10. change percent"], "%")),
		})
	}
	return res, nil
}

// GetHistoricalData returns the full daily or intraday series, newest first.
// Interval is "daily" (default) or one of 1min, 5min, 15min, 30min, 60min.
func (c *Client) GetHistoricalData(ctx context.Context, symbol, interval string) (*HistoricalData, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if interval == "" {
		interval = IntervalDaily
	}

	function, seriesKey := "TIME_SERIES_DAILY", "Time Series (Daily)"
	params := map[string]string{"symbol": symbol, "outputsize": "full"}
	if interval != IntervalDaily {
		if !intradayIntervals[interval] {
			return nil, domain.Errorf(domain.KindValidation, "historical data", "unsupported interval %q", interval)
		}
		function, seriesKey = "TIME_SERIES_INTRADAY", "Time Series ("+interval+")"
		params["interval"] = interval
	}

	resp, err := c.call(ctx, function, params)
	if err != nil {
		return nil, fmt.Errorf("historical %s: %w", symbol, err)
	}

	res := &HistoricalData{Symbol: symbol, Interval: interval, Data: []Point{}}
	raw, ok := resp[seriesKey]
	if !ok {
		return res, nil
	}
	var series map[string]map[string]string
	if err := json.Unmarshal(raw, &series); err != nil {
		return nil, domain.Wrap(domain.KindParse, "historical data", fmt.Errorf("decode series: %w", err))
	}
	for date, v := range series {
		closePrice := num(v["4. close"])
		res.Data = append(res.Data, Point{
			Date:          date,
			Open:          num(v["1. open"]),
			High:          num(v["2. high"]),
			Low:           num(v["3. low"]),
			Close:         closePrice,
			AdjustedClose: closePrice,
			Volume:        integer(v["5. volume"]),
		})
	}
	// dates in both formats sort lexicographically
	slices.SortFunc(res.Data, func(a, b Point) int { return strings.Compare(b.Date, a.Date) })
	return res, nil
}

// GetMetrics returns fundamental metrics of a company
func (c *Client) GetMetrics(ctx context.Context, symbol string) (*Metrics, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	resp, err := c.call(ctx, "OVERVIEW", map[string]string{"symbol": symbol})
	if err != nil {
		return nil, fmt.Errorf("metrics %s: %w", symbol, err)
	}
	return &Metrics{
		Symbol:        symbol,
		MarketCap:     num(stringField(resp, "MarketCapitalization")),
		PERatio:       num(stringField(resp, "PERatio")),
		EPS:           num(stringField(resp, "EPS")),
		DividendYield: num(stringField(resp, "DividendYield")),
		Beta:          num(stringField(resp, "Beta")),
		High52Week:    num(stringField(resp, "52WeekHigh")),
		Low52Week:     num(stringField(resp, "52WeekLow")),
	}, nil
}

// GetFilteredData returns quotes first, then historical data and metrics per symbol fetched in parallel
func (c *Client) GetFilteredData(ctx context.Context, opts FilterOptions) (*FilteredData, error) {
	quotes, err := c.GetQuotes(ctx, opts.Symbols)
	if err != nil {
		return nil, err
	}
	res := &FilteredData{Quotes: quotes, FetchedAt: c.now().UTC()}
	if opts.TimeRange == "" && !opts.IncludeMetrics {
		return res, nil
	}
	var cutoff string
	if opts.TimeRange != "" {
		span, ok := timeRanges[opts.TimeRange]
		if !ok {
			return nil, domain.Errorf(domain.KindValidation, "filtered data", "unsupported time range %q", opts.TimeRange)
		}
		cutoff = span(res.FetchedAt).Format("2006-01-02")
	}

	symbols := make([]string, 0, len(opts.Symbols))
	for _, s := range opts.Symbols {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}

	var historical []HistoricalData
	var metrics []Metrics
	if opts.TimeRange != "" {
		historical = make([]HistoricalData, len(symbols))
	}
	if opts.IncludeMetrics {
		metrics = make([]Metrics, len(symbols))
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, sym := range symbols {
		if opts.TimeRange != "" {
			g.Go(func() error {
				h, err := c.GetHistoricalData(gctx, sym, opts.Interval)
				if err != nil {
					return err
				}
				h.Data = slices.DeleteFunc(h.Data, func(p Point) bool { return p.Date[:min(len(p.Date), 10)] < cutoff })
				historical[i] = *h
				return nil
			})
		}
		if opts.IncludeMetrics {
			g.Go(func() error {
				m, err := c.GetMetrics(gctx, sym)
				if err != nil {
					return err
				}
				metrics[i] = *m
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	res.Historical, res.Metrics = historical, metrics
	return res, nil
}

func stringField(r response, name string) string {
	raw, ok := r[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// num parses provider numbers, missing or "None" values are zero
func num(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func integer(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return int64(num(s))
	}
	return v
}

// redact removes the api key from the url of transport errors, the wrapped cause is kept
func redact(err error, key string) error {
	var uerr *url.Error
	if key == "" || !errors.As(err, &uerr) {
		return err
	}
	return &url.Error{Op: uerr.Op, URL: strings.ReplaceAll(uerr.URL, key, "****"), Err: uerr.Err}
}
