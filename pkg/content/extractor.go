// Package content extracts readable article text from web pages.
package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/markusmobius/go-trafilatura"

	"github.com/umputun/tickerz/pkg/domain"
)

// defaults
const (
	DefaultTimeout   = 15 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (compatible; Tickerz/1.0)"
	maxPageSize      = 5 << 20
)

// Options for HTTPExtractor
type Options struct {
	Timeout   time.Duration
	UserAgent string
	MaxLength int // max runes of returned text, 0 means unlimited
}

// HTTPExtractor extracts article content from URLs using trafilatura
type HTTPExtractor struct {
	opts   Options
	client *http.Client
}

// NewHTTPExtractor creates a new content extractor
func NewHTTPExtractor(opts Options) *HTTPExtractor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &HTTPExtractor{opts: opts, client: &http.Client{Timeout: opts.Timeout}}
}

// Extract retrieves and extracts text content from the given URL
func (e *HTTPExtractor) Extract(ctx context.Context, urlStr string) (string, error) {
	const op = "extract"
	// validate URL
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", domain.Wrap(domain.KindValidation, op, fmt.Errorf("parse URL: %w", err))
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return "", domain.Errorf(domain.KindValidation, op, "invalid URL: %s", urlStr)
	}

	// create request with context
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, http.NoBody)
	if err != nil {
		return "", domain.Wrap(domain.KindValidation, op, fmt.Errorf("create request: %w", err))
	}
	// browser-like headers, some sites refuse bare clients
	req.Header.Set("User-Agent", e.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	// fetch content
	resp, err := e.client.Do(req)
	if err != nil {
		return "", domain.Wrap(domain.KindNetwork, op, fmt.Errorf("fetch URL %s: %w", urlStr, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &domain.Error{Kind: domain.KindNetwork, Op: op,
			Err: fmt.Errorf("unexpected status code %d for URL %s", resp.StatusCode, urlStr)}
	}

	// configure trafilatura options
	opts := trafilatura.Options{
		EnableFallback:  true,
		ExcludeComments: true,
		Deduplicate:     true,
		OriginalURL:     parsedURL,
	}
	// extract content, pages over maxPageSize are cut
	result, err := trafilatura.Extract(io.LimitReader(resp.Body, maxPageSize), opts)
	if err != nil {
		return "", domain.Wrap(domain.KindParse, op, fmt.Errorf("extract content from %s: %w", urlStr, err))
	}
	if result == nil || strings.TrimSpace(result.ContentText) == "" {
		return "", domain.Errorf(domain.KindParse, op, "no text content extracted from %s", urlStr)
	}

	// get main content and trim to the configured length
	text := strings.TrimSpace(result.ContentText)
	if e.opts.MaxLength > 0 {
		if runes := []rune(text); len(runes) > e.opts.MaxLength {
			text = string(runes[:e.opts.MaxLength])
		}
	}
	lgr.Printf("[DEBUG] extracted %d bytes from %s", len(text), urlStr)
	return text, nil
}
