package domain

import "time"

// DefaultFetchInterval applies to feeds created without an explicit interval
const DefaultFetchInterval = 60

// Feed is a registered RSS source
type Feed struct {
	ID                   string
	URL                  string
	Title                string
	Description          string
	LastFetchedAt        *time.Time
	FetchIntervalMinutes int
	IsActive             bool
	OwnerID              string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Due reports whether the feed should be fetched at the given time
func (f *Feed) Due(now time.Time) bool {
	if !f.IsActive {
		return false
	}
	if f.LastFetchedAt == nil {
		return true
	}
	interval := f.FetchIntervalMinutes
	if interval <= 0 {
		interval = DefaultFetchInterval
	}
	return !f.LastFetchedAt.Add(time.Duration(interval) * time.Minute).After(now)
}
