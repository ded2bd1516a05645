package cache

import (
	"context"
	"errors"
	"time"
)

// ttlGetter is implemented by remote caches able to report remaining ttl with the value
type ttlGetter interface {
	GetWithTTL(ctx context.Context, key string) ([]byte, time.Duration, bool, error)
}

// Tiered is a two level cache: a short-lived local layer in front of a shared remote one.
// Local copies never outlive the remote entry.
type Tiered struct {
	local    *MemoryCache
	remote   Cache
	localTTL time.Duration
}

// NewTiered makes a tiered cache, localTTL caps how long a local copy lives
func NewTiered(local *MemoryCache, remote Cache, localTTL time.Duration) *Tiered {
	if localTTL <= 0 {
		localTTL = 30 * time.Second
	}
	return &Tiered{local: local, remote: remote, localTTL: localTTL}
}

// Get tries the local layer first and populates it on remote hits
func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if data, ok, _ := t.local.Get(ctx, key); ok {
		return data, true, nil
	}

	if tg, ok := t.remote.(ttlGetter); ok {
		data, ttl, found, err := tg.GetWithTTL(ctx, key)
		if err != nil || !found {
			return nil, false, err
		}
		_ = t.local.Set(ctx, key, data, t.capTTL(ttl))
		return data, true, nil
	}

	// remaining ttl unknown, serve from remote without local copy
	return t.remote.Get(ctx, key)
}

// Set writes both layers
func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := t.remote.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return t.local.Set(ctx, key, value, t.capTTL(ttl))
}

// Delete removes keys from both layers
func (t *Tiered) Delete(ctx context.Context, keys ...string) error {
	return errors.Join(t.local.Delete(ctx, keys...), t.remote.Delete(ctx, keys...))
}

// Flush clears both layers
func (t *Tiered) Flush(ctx context.Context) error {
	return errors.Join(t.local.Flush(ctx), t.remote.Flush(ctx))
}

func (t *Tiered) capTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > t.localTTL {
		return t.localTTL
	}
	return ttl
}
