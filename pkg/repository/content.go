package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/umputun/tickerz/pkg/domain"
)

// ContentRepository handles content item operations
type ContentRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

type contentRow struct {
	ID           int64        `db:"id"`
	SourceType   string       `db:"source_type"`
	SourceID     string       `db:"source_id"`
	RawPayload   string       `db:"raw_payload"`
	Summary      string       `db:"summary"`
	KeyPoints    string       `db:"key_points"`
	Sentiment    string       `db:"sentiment"`
	Metadata     string       `db:"metadata"`
	DisplayCount int          `db:"display_count"`
	LastShownAt  sql.NullTime `db:"last_shown_at"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

// CreateContentIfAbsent inserts the item unless one with the same source type and id exists.
// Returns true if the item was created, in this case item.ID and timestamps are set.
func (r *ContentRepository) CreateContentIfAbsent(ctx context.Context, item *domain.ContentItem) (bool, error) {
	const op = "create content"
	// validate identity
	if !item.SourceType.Valid() {
		return false, domain.Errorf(domain.KindValidation, op, "invalid source type %q", item.SourceType)
	}
	if strings.TrimSpace(item.SourceID) == "" {
		return false, domain.Errorf(domain.KindValidation, op, "source id is required")
	}

	row, err := fromContent(item)
	if err != nil {
		return false, domain.Wrap(domain.KindValidation, op, err)
	}
	now := r.now()
	row.CreatedAt, row.UpdatedAt = now, now

	// insert, an existing source type and id pair is left as is
	query := `
		INSERT INTO content_items (source_type, source_id, raw_payload, summary, key_points, sentiment, metadata,
			display_count, created_at, updated_at)
		VALUES (:source_type, :source_id, :raw_payload, :summary, :key_points, :sentiment, :metadata,
			:display_count, :created_at, :updated_at)
		ON CONFLICT(source_type, source_id) DO NOTHING
	`
	var created bool
	err = withRetry(ctx, func() error {
		res, err := r.db.NamedExecContext(ctx, query, row)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if created = n == 1; created {
			item.ID, err = res.LastInsertId()
		}
		return err
	})
	if err != nil {
		return false, fmt.Errorf("create content %s/%s: %w", item.SourceType, item.SourceID, err)
	}
	if created {
		item.CreatedAt, item.UpdatedAt = now, now
	}
	return created, nil
}

// ContentExists checks whether an item with the source type and id is stored
func (r *ContentRepository) ContentExists(ctx context.Context, sourceType domain.SourceType, sourceID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM content_items WHERE source_type = ? AND source_id = ?)", sourceType, sourceID)
	if err != nil {
		return false, fmt.Errorf("content exists: %w", err)
	}
	return exists, nil
}

// GetContent retrieves an item by source type and id
func (r *ContentRepository) GetContent(ctx context.Context, sourceType domain.SourceType, sourceID string) (*domain.ContentItem, error) {
	var row contentRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM content_items WHERE source_type = ? AND source_id = ?",
		sourceType, sourceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("get content", "content item", string(sourceType)+"/"+sourceID)
	}
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}
	return row.toDomain()
}

// UpdateContentSummary sets summary, key points and sentiment, other fields are untouched
func (r *ContentRepository) UpdateContentSummary(ctx context.Context, sourceType domain.SourceType, sourceID string,
	s domain.Summary) error {
	keyPoints, err := json.Marshal(nonNil(s.KeyPoints))
	if err != nil {
		return fmt.Errorf("marshal key points: %w", err)
	}

	var affected int64
	err = withRetry(ctx, func() error {
		res, err := r.db.ExecContext(ctx, `
			UPDATE content_items SET summary = ?, key_points = ?, sentiment = ?, updated_at = ?
			WHERE source_type = ? AND source_id = ?`,
			s.Summary, string(keyPoints), string(s.Sentiment), r.now(), sourceType, sourceID)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update content summary: %w", err)
	}
	if affected == 0 {
		return domain.NotFound("update content summary", "content item", string(sourceType)+"/"+sourceID)
	}
	return nil
}

// DeleteContent removes an item, missing items are ignored
func (r *ContentRepository) DeleteContent(ctx context.Context, sourceType domain.SourceType, sourceID string) error {
	err := withRetry(ctx, func() error {
		_, err := r.db.ExecContext(ctx, "DELETE FROM content_items WHERE source_type = ? AND source_id = ?",
			sourceType, sourceID)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	return nil
}

// ListContent returns items matching the filter, newest first
func (r *ContentRepository) ListContent(ctx context.Context, filter domain.ContentFilter) ([]domain.ContentItem, error) {
	// build query from filter
	var conds []string
	var args []any
	if filter.SourceType != "" {
		conds = append(conds, "source_type = ?")
		args = append(args, filter.SourceType)
	}
	if filter.SummarizedOnly {
		conds = append(conds, "summary != ''")
	}
	query := "SELECT * FROM content_items"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var rows []contentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}

	// convert to domain models
	res := make([]domain.ContentItem, 0, len(rows))
	for i := range rows {
		item, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		res = append(res, *item)
	}
	return res, nil
}

// RecordDisplay increments the display counter and sets the last shown time
func (r *ContentRepository) RecordDisplay(ctx context.Context, id int64) error {
	now := r.now()
	res, err := r.db.ExecContext(ctx,
		"UPDATE content_items SET display_count = display_count + 1, last_shown_at = ?, updated_at = ? WHERE id = ?",
		now, now, id)
	if err != nil {
		return fmt.Errorf("record display: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("record display", "content item", fmt.Sprintf("%d", id))
	}
	return nil
}

// PurgeContent deletes items created before the cutoff, returns number of deleted items
func (r *ContentRepository) PurgeContent(ctx context.Context, before time.Time) (int64, error) {
	var deleted int64
	err := withRetry(ctx, func() error {
		res, err := r.db.ExecContext(ctx, "DELETE FROM content_items WHERE created_at < ?", before.UTC())
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("purge content: %w", err)
	}
	return deleted, nil
}

// ContentStats returns total and summarized item counts
func (r *ContentRepository) ContentStats(ctx context.Context) (domain.ContentStats, error) {
	var stats domain.ContentStats
	err := r.db.GetContext(ctx, &stats,
		"SELECT COUNT(*) AS total, COALESCE(SUM(CASE WHEN summary != '' THEN 1 ELSE 0 END), 0) AS summarized FROM content_items")
	if err != nil {
		return domain.ContentStats{}, fmt.Errorf("content stats: %w", err)
	}
	return stats, nil
}

func fromContent(item *domain.ContentItem) (contentRow, error) {
	keyPoints, err := json.Marshal(nonNil(item.KeyPoints))
	if err != nil {
		return contentRow{}, fmt.Errorf("marshal key points: %w", err)
	}
	meta, err := json.Marshal(item.Metadata)
	if err != nil {
		return contentRow{}, fmt.Errorf("marshal metadata: %w", err)
	}
	payload := string(item.RawPayload)
	if payload == "" {
		payload = "{}"
	}
	return contentRow{SourceType: string(item.SourceType), SourceID: item.SourceID, RawPayload: payload,
		Summary: item.Summary, KeyPoints: string(keyPoints), Sentiment: string(item.Sentiment), Metadata: string(meta),
		DisplayCount: item.DisplayCount}, nil
}

func (c *contentRow) toDomain() (*domain.ContentItem, error) {
	res := &domain.ContentItem{ID: c.ID, SourceType: domain.SourceType(c.SourceType), SourceID: c.SourceID,
		RawPayload: json.RawMessage(c.RawPayload), Summary: c.Summary, Sentiment: domain.Sentiment(c.Sentiment),
		DisplayCount: c.DisplayCount, CreatedAt: c.CreatedAt.UTC(), UpdatedAt: c.UpdatedAt.UTC(), KeyPoints: []string{}}
	if err := json.Unmarshal([]byte(c.KeyPoints), &res.KeyPoints); err != nil {
		return nil, fmt.Errorf("unmarshal key points of %d: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(c.Metadata), &res.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata of %d: %w", c.ID, err)
	}
	if c.LastShownAt.Valid {
		t := c.LastShownAt.Time.UTC()
		res.LastShownAt = &t
	}
	return res, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
