// Package cache provides the TTL key-value cache used for feed payloads, quote responses and summaries.
// Entries are immutable once written and replaced wholesale on the next Set.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Cache is a TTL key-value store. Get reports a miss with ok=false and no error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Flush(ctx context.Context) error
}

// GetJSON reads key and decodes it into v
func GetJSON(ctx context.Context, c Cache, key string, v any) (bool, error) {
	data, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.Set(ctx, key, data, ttl)
}

// FeedKey is the key of a cached feed payload
func FeedKey(feedID string) string { return "feed:" + feedID }

// SummaryKey is the key of a cached summary
func SummaryKey(contentID string) string { return "summary:" + contentID }
