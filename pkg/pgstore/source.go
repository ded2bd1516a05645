package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/umputun/tickerz/pkg/domain"
)

// Source is the source_configurations table
type Source struct {
	ID                  string                                  `gorm:"primaryKey;size:40"`
	Type                string                                  `gorm:"size:32;index"`
	Name                string                                  `gorm:"size:256"`
	Config              datatypes.JSONType[domain.SourceConfig] `gorm:"type:jsonb"`
	IsActive            bool                                    `gorm:"index"`
	LastSyncAt          *time.Time
	SyncIntervalMinutes int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TableName for Source
func (Source) TableName() string { return "source_configurations" }

// CreateSource validates and inserts a source configuration
func (s *Store) CreateSource(ctx context.Context, src *domain.SourceConfiguration) error {
	if err := src.Validate(); err != nil {
		return err
	}
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	if src.SyncIntervalMinutes == 0 {
		src.SyncIntervalMinutes = domain.DefaultSyncInterval
	}
	row := Source{ID: src.ID, Type: string(src.Type), Name: src.Name, Config: datatypes.NewJSONType(src.Config),
		IsActive: src.IsActive, SyncIntervalMinutes: src.SyncIntervalMinutes}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create source: %w", err)
	}
	src.CreatedAt, src.UpdatedAt = row.CreatedAt.UTC(), row.UpdatedAt.UTC()
	return nil
}

// GetSource retrieves a source configuration by id
func (s *Store) GetSource(ctx context.Context, id string) (*domain.SourceConfiguration, error) {
	var row Source
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("get source", "source configuration", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	return row.toDomain(), nil
}

// ListSources returns source configurations, optionally of one type and active only
func (s *Store) ListSources(ctx context.Context, srcType domain.SourceType, activeOnly bool) ([]domain.SourceConfiguration, error) {
	q := s.DB.WithContext(ctx).Model(&Source{})
	if srcType != "" {
		q = q.Where("type = ?", string(srcType))
	}
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var rows []Source
	if err := q.Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	res := make([]domain.SourceConfiguration, len(rows))
	for i := range rows {
		res[i] = *rows[i].toDomain()
	}
	return res, nil
}

// SetSourceActive enables or disables a source configuration
func (s *Store) SetSourceActive(ctx context.Context, id string, active bool) error {
	res := s.DB.WithContext(ctx).Model(&Source{}).Where("id = ?", id).
		Updates(map[string]any{"is_active": active, "updated_at": s.now()})
	if res.Error != nil {
		return fmt.Errorf("set source active: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("set source active", "source configuration", id)
	}
	return nil
}

// MarkSourceSynced records the time of the last successful sync
func (s *Store) MarkSourceSynced(ctx context.Context, id string, syncedAt time.Time) error {
	res := s.DB.WithContext(ctx).Model(&Source{}).Where("id = ?", id).
		Updates(map[string]any{"last_sync_at": syncedAt.UTC(), "updated_at": s.now()})
	if res.Error != nil {
		return fmt.Errorf("mark source synced: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("mark source synced", "source configuration", id)
	}
	return nil
}

func (r *Source) toDomain() *domain.SourceConfiguration {
	res := &domain.SourceConfiguration{ID: r.ID, Type: domain.SourceType(r.Type), Name: r.Name, Config: r.Config.Data(),
		IsActive: r.IsActive, SyncIntervalMinutes: r.SyncIntervalMinutes, CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC()}
	if r.LastSyncAt != nil {
		t := r.LastSyncAt.UTC()
		res.LastSyncAt = &t
	}
	return res
}
