package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/umputun/tickerz/pkg/domain"
)

// FeedRepository handles feed-related database operations
type FeedRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

type feedRow struct {
	ID                   string       `db:"id"`
	URL                  string       `db:"url"`
	Title                string       `db:"title"`
	Description          string       `db:"description"`
	LastFetchedAt        sql.NullTime `db:"last_fetched_at"`
	FetchIntervalMinutes int          `db:"fetch_interval_minutes"`
	IsActive             bool         `db:"is_active"`
	OwnerID              string       `db:"owner_id"`
	CreatedAt            time.Time    `db:"created_at"`
	UpdatedAt            time.Time    `db:"updated_at"`
}

// CreateFeed inserts a new feed, id and defaults are filled in when missing
func (r *FeedRepository) CreateFeed(ctx context.Context, feed *domain.Feed) error {
	const op = "create feed"
	if strings.TrimSpace(feed.URL) == "" {
		return domain.Errorf(domain.KindValidation, op, "url is required")
	}
	if feed.ID == "" {
		feed.ID = uuid.NewString()
	}
	if feed.FetchIntervalMinutes <= 0 {
		feed.FetchIntervalMinutes = domain.DefaultFetchInterval
	}
	now := r.now()
	feed.CreatedAt, feed.UpdatedAt = now, now

	row := feedRow{ID: feed.ID, URL: feed.URL, Title: feed.Title, Description: feed.Description,
		FetchIntervalMinutes: feed.FetchIntervalMinutes, IsActive: feed.IsActive, OwnerID: feed.OwnerID,
		CreatedAt: now, UpdatedAt: now}
	if feed.LastFetchedAt != nil {
		row.LastFetchedAt = sql.NullTime{Time: feed.LastFetchedAt.UTC(), Valid: true}
	}

	query := `
		INSERT INTO feeds (id, url, title, description, last_fetched_at, fetch_interval_minutes, is_active,
			owner_id, created_at, updated_at)
		VALUES (:id, :url, :title, :description, :last_fetched_at, :fetch_interval_minutes, :is_active,
			:owner_id, :created_at, :updated_at)
	`
	err := withRetry(ctx, func() error {
		_, err := r.db.NamedExecContext(ctx, query, row)
		return err
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.Errorf(domain.KindValidation, op, "feed with url %s already exists", feed.URL)
		}
		return fmt.Errorf("create feed: %w", err)
	}
	return nil
}

// GetFeed retrieves a feed by ID
func (r *FeedRepository) GetFeed(ctx context.Context, id string) (*domain.Feed, error) {
	var row feedRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM feeds WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("get feed", "feed", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get feed: %w", err)
	}
	return row.toDomain(), nil
}

// GetFeeds retrieves feeds with optional filtering
func (r *FeedRepository) GetFeeds(ctx context.Context, activeOnly bool) ([]domain.Feed, error) {
	query := "SELECT * FROM feeds"
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY title, url"

	var rows []feedRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("get feeds: %w", err)
	}
	feeds := make([]domain.Feed, len(rows))
	for i := range rows {
		feeds[i] = *rows[i].toDomain()
	}
	return feeds, nil
}

// GetFeedsToFetch retrieves active feeds due for fetching at the given time, never fetched first
func (r *FeedRepository) GetFeedsToFetch(ctx context.Context, now time.Time) ([]domain.Feed, error) {
	var rows []feedRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT * FROM feeds WHERE is_active = 1 ORDER BY last_fetched_at IS NOT NULL, last_fetched_at ASC")
	if err != nil {
		return nil, fmt.Errorf("get feeds to fetch: %w", err)
	}
	res := make([]domain.Feed, 0, len(rows))
	for i := range rows {
		if f := rows[i].toDomain(); f.Due(now) {
			res = append(res, *f)
		}
	}
	return res, nil
}

// UpdateFeedFetched sets the last fetch time of a feed, NOT_FOUND if the feed is gone
func (r *FeedRepository) UpdateFeedFetched(ctx context.Context, feedID string, fetchedAt time.Time) error {
	var affected int64
	err := withRetry(ctx, func() error {
		res, err := r.db.ExecContext(ctx, "UPDATE feeds SET last_fetched_at = ?, updated_at = ? WHERE id = ?",
			fetchedAt.UTC(), r.now(), feedID)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update feed fetched: %w", err)
	}
	if affected == 0 {
		return domain.NotFound("update feed fetched", "feed", feedID)
	}
	return nil
}

// SetFeedActive enables or disables a feed
func (r *FeedRepository) SetFeedActive(ctx context.Context, feedID string, active bool) error {
	res, err := r.db.ExecContext(ctx, "UPDATE feeds SET is_active = ?, updated_at = ? WHERE id = ?", active, r.now(), feedID)
	if err != nil {
		return fmt.Errorf("set feed active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("set feed active", "feed", feedID)
	}
	return nil
}

// DeleteFeed removes a feed, content items already ingested stay
func (r *FeedRepository) DeleteFeed(ctx context.Context, feedID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM feeds WHERE id = ?", feedID)
	if err != nil {
		return fmt.Errorf("delete feed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("delete feed", "feed", feedID)
	}
	return nil
}

func (f *feedRow) toDomain() *domain.Feed {
	res := &domain.Feed{ID: f.ID, URL: f.URL, Title: f.Title, Description: f.Description,
		FetchIntervalMinutes: f.FetchIntervalMinutes, IsActive: f.IsActive, OwnerID: f.OwnerID,
		CreatedAt: f.CreatedAt.UTC(), UpdatedAt: f.UpdatedAt.UTC()}
	if f.LastFetchedAt.Valid {
		t := f.LastFetchedAt.Time.UTC()
		res.LastFetchedAt = &t
	}
	return res
}
