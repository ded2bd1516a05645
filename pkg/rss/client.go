// Package rss fetches, parses and filters RSS and Atom feeds
package rss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/tickerz/pkg/domain"
)

// default client settings
const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxRedirects = 5
	DefaultUserAgent    = "Tickerz.ai RSS Fetcher/1.0"

	maxBodySize = 10 << 20
)

// Options are client settings, each can be overridden per fetch
type Options struct {
	Timeout      time.Duration
	MaxRedirects int
	UserAgent    string
}

// FetchOption overrides client settings for a single fetch
type FetchOption func(*Options)

// WithTimeout sets the request timeout
func WithTimeout(d time.Duration) FetchOption { return func(o *Options) { o.Timeout = d } }

// WithMaxRedirects sets how many redirects are followed
func WithMaxRedirects(n int) FetchOption { return func(o *Options) { o.MaxRedirects = n } }

// WithUserAgent sets the user agent header
func WithUserAgent(ua string) FetchOption { return func(o *Options) { o.UserAgent = ua } }

// Client fetches and parses feeds
type Client struct {
	opts      Options
	transport http.RoundTripper
	now       func() time.Time
	maxBody   int64
}

// NewClient makes a client, zero options get defaults
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &Client{
		opts: opts,
		transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		now:     time.Now,
		maxBody: maxBodySize,
	}
}

// Fetch retrieves the raw feed document. Transport failures, timeouts, redirect overflow and
// non-2xx statuses are NETWORK_ERROR, a document over the size limit is PARSE_ERROR.
func (c *Client) Fetch(ctx context.Context, url string, opts ...FetchOption) (string, error) {
	const op = "fetch feed"
	o := c.opts
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", domain.Wrap(domain.KindNetwork, op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", o.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5")

	client := &http.Client{
		Transport: c.transport,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) > o.MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", o.MaxRedirects)
			}
			return nil
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", domain.Wrap(domain.KindNetwork, op, fmt.Errorf("get %s: %w", url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &domain.Error{Kind: domain.KindNetwork, Op: op,
			Err: fmt.Errorf("get %s: unexpected status %d", url, resp.StatusCode), Details: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return "", domain.Wrap(domain.KindNetwork, op, fmt.Errorf("read body of %s: %w", url, err))
	}
	if int64(len(body)) > c.maxBody {
		return "", domain.Errorf(domain.KindParse, op, "body of %s is too large, over %d bytes", url, c.maxBody)
	}
	lgr.Printf("[DEBUG] fetched %d bytes from %s", len(body), url)
	return string(body), nil
}

// FetchAndFilter fetches, parses and filters a feed in one call
func (c *Client) FetchAndFilter(ctx context.Context, url string, filter FilterOptions, opts ...FetchOption) (*domain.ParsedFeed, error) {
	raw, err := c.Fetch(ctx, url, opts...)
	if err != nil {
		return nil, err
	}
	feed, err := c.Parse(raw)
	if err != nil {
		return nil, err
	}
	feed.Items = c.Filter(feed.Items, filter)
	return feed, nil
}

// IsTimeout reports whether a fetch error was caused by the deadline
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
