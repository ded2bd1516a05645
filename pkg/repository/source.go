package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/umputun/tickerz/pkg/domain"
)

// SourceRepository handles source configuration operations
type SourceRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

type sourceRow struct {
	ID                  string       `db:"id"`
	Type                string       `db:"type"`
	Name                string       `db:"name"`
	Config              string       `db:"config"`
	IsActive            bool         `db:"is_active"`
	LastSyncAt          sql.NullTime `db:"last_sync_at"`
	SyncIntervalMinutes int          `db:"sync_interval_minutes"`
	CreatedAt           time.Time    `db:"created_at"`
	UpdatedAt           time.Time    `db:"updated_at"`
}

// CreateSource validates and inserts a source configuration
func (r *SourceRepository) CreateSource(ctx context.Context, src *domain.SourceConfiguration) error {
	if err := src.Validate(); err != nil {
		return err
	}
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	if src.SyncIntervalMinutes == 0 {
		src.SyncIntervalMinutes = domain.DefaultSyncInterval
	}
	cfg, err := json.Marshal(src.Config)
	if err != nil {
		return fmt.Errorf("marshal source config: %w", err)
	}
	now := r.now()
	src.CreatedAt, src.UpdatedAt = now, now

	row := sourceRow{ID: src.ID, Type: string(src.Type), Name: src.Name, Config: string(cfg), IsActive: src.IsActive,
		SyncIntervalMinutes: src.SyncIntervalMinutes, CreatedAt: now, UpdatedAt: now}
	err = withRetry(ctx, func() error {
		_, err := r.db.NamedExecContext(ctx, `
			INSERT INTO source_configurations (id, type, name, config, is_active, sync_interval_minutes, created_at, updated_at)
			VALUES (:id, :type, :name, :config, :is_active, :sync_interval_minutes, :created_at, :updated_at)`, row)
		return err
	})
	if err != nil {
		return fmt.Errorf("create source: %w", err)
	}
	return nil
}

// GetSource retrieves a source configuration by id
func (r *SourceRepository) GetSource(ctx context.Context, id string) (*domain.SourceConfiguration, error) {
	var row sourceRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM source_configurations WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("get source", "source configuration", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	return row.toDomain()
}

// ListSources returns source configurations, optionally of one type and active only
func (r *SourceRepository) ListSources(ctx context.Context, srcType domain.SourceType, activeOnly bool) ([]domain.SourceConfiguration, error) {
	query := "SELECT * FROM source_configurations WHERE (? = '' OR type = ?)"
	if activeOnly {
		query += " AND is_active = 1"
	}
	query += " ORDER BY name"

	var rows []sourceRow
	if err := r.db.SelectContext(ctx, &rows, query, srcType, srcType); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	res := make([]domain.SourceConfiguration, 0, len(rows))
	for i := range rows {
		src, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		res = append(res, *src)
	}
	return res, nil
}

// SetSourceActive enables or disables a source configuration
func (r *SourceRepository) SetSourceActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, "UPDATE source_configurations SET is_active = ?, updated_at = ? WHERE id = ?",
		active, r.now(), id)
	if err != nil {
		return fmt.Errorf("set source active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFound("set source active", "source configuration", id)
	}
	return nil
}

// MarkSourceSynced records the time of the last successful sync
func (r *SourceRepository) MarkSourceSynced(ctx context.Context, id string, syncedAt time.Time) error {
	var affected int64
	err := withRetry(ctx, func() error {
		res, err := r.db.ExecContext(ctx, "UPDATE source_configurations SET last_sync_at = ?, updated_at = ? WHERE id = ?",
			syncedAt.UTC(), r.now(), id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("mark source synced: %w", err)
	}
	if affected == 0 {
		return domain.NotFound("mark source synced", "source configuration", id)
	}
	return nil
}

func (s *sourceRow) toDomain() (*domain.SourceConfiguration, error) {
	res := &domain.SourceConfiguration{ID: s.ID, Type: domain.SourceType(s.Type), Name: s.Name, IsActive: s.IsActive,
		SyncIntervalMinutes: s.SyncIntervalMinutes, CreatedAt: s.CreatedAt.UTC(), UpdatedAt: s.UpdatedAt.UTC()}
	if err := json.Unmarshal([]byte(s.Config), &res.Config); err != nil {
		return nil, fmt.Errorf("unmarshal source config %s: %w", s.ID, err)
	}
	if s.LastSyncAt.Valid {
		t := s.LastSyncAt.Time.UTC()
		res.LastSyncAt = &t
	}
	return res, nil
}
