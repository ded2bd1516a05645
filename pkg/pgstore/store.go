// Package pgstore is the PostgreSQL content store, used when several processes share one database.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/umputun/tickerz/pkg/domain"
)

// Feed is the feeds table
type Feed struct {
	ID                   string `gorm:"primaryKey;size:40"`
	URL                  string `gorm:"size:1024;uniqueIndex"`
	Title                string `gorm:"size:512"`
	Description          string
	LastFetchedAt        *time.Time
	FetchIntervalMinutes int    `gorm:"default:60"`
	IsActive             bool   `gorm:"index"`
	OwnerID              string `gorm:"size:64;index"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ContentItem is the content_items table, (source_type, source_id) is the dedup key
type ContentItem struct {
	ID           int64                                      `gorm:"primaryKey;autoIncrement"`
	SourceType   string                                     `gorm:"size:32;uniqueIndex:idx_content_source"`
	SourceID     string                                     `gorm:"size:1024;uniqueIndex:idx_content_source"`
	RawPayload   datatypes.JSON                             `gorm:"type:jsonb"`
	Summary      string                                     `gorm:"type:text"`
	KeyPoints    datatypes.JSONSlice[string]                `gorm:"type:jsonb"`
	Sentiment    string                                     `gorm:"size:16"`
	Metadata     datatypes.JSONType[domain.ContentMetadata] `gorm:"type:jsonb"`
	DisplayCount int
	LastShownAt  *time.Time
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}

// TableName for Feed
func (Feed) TableName() string { return "feeds" }

// TableName for ContentItem
func (ContentItem) TableName() string { return "content_items" }

// Store implements the content store on top of gorm
type Store struct {
	DB  *gorm.DB
	now func() time.Time
}

// New opens the database and migrates the schema
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewWithDB(ctx, db)
}

// NewWithDB makes a store on an opened gorm connection and migrates the schema
func NewWithDB(ctx context.Context, db *gorm.DB) (*Store, error) {
	if err := db.WithContext(ctx).AutoMigrate(&Feed{}, &ContentItem{}, &Source{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{DB: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}

// CreateFeed inserts a new feed, id and defaults are filled in when missing
func (s *Store) CreateFeed(ctx context.Context, feed *domain.Feed) error {
	if strings.TrimSpace(feed.URL) == "" {
		return domain.Errorf(domain.KindValidation, "create feed", "url is required")
	}
	if feed.ID == "" {
		feed.ID = uuid.NewString()
	}
	if feed.FetchIntervalMinutes <= 0 {
		feed.FetchIntervalMinutes = domain.DefaultFetchInterval
	}
	row := fromFeed(feed)
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "duplicate key") {
			return domain.Errorf(domain.KindValidation, "create feed", "feed with url %s already exists", feed.URL)
		}
		return fmt.Errorf("create feed: %w", err)
	}
	feed.CreatedAt, feed.UpdatedAt = row.CreatedAt, row.UpdatedAt
	return nil
}

// GetFeed retrieves a feed by ID
func (s *Store) GetFeed(ctx context.Context, id string) (*domain.Feed, error) {
	var row Feed
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("get feed", "feed", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get feed: %w", err)
	}
	return row.toDomain(), nil
}

// GetFeeds retrieves all feeds or active ones only
func (s *Store) GetFeeds(ctx context.Context, activeOnly bool) ([]domain.Feed, error) {
	q := s.DB.WithContext(ctx).Model(&Feed{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var rows []Feed
	if err := q.Order("title, url").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("get feeds: %w", err)
	}
	res := make([]domain.Feed, len(rows))
	for i := range rows {
		res[i] = *rows[i].toDomain()
	}
	return res, nil
}

// GetFeedsToFetch retrieves active feeds due for fetching at the given time
func (s *Store) GetFeedsToFetch(ctx context.Context, now time.Time) ([]domain.Feed, error) {
	feeds, err := s.GetFeeds(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("get feeds to fetch: %w", err)
	}
	res := make([]domain.Feed, 0, len(feeds))
	for _, f := range feeds {
		if f.Due(now) {
			res = append(res, f)
		}
	}
	return res, nil
}

// UpdateFeedFetched sets the last fetch time of a feed, NOT_FOUND if the feed is gone
func (s *Store) UpdateFeedFetched(ctx context.Context, feedID string, fetchedAt time.Time) error {
	res := s.DB.WithContext(ctx).Model(&Feed{}).Where("id = ?", feedID).
		Updates(map[string]any{"last_fetched_at": fetchedAt.UTC(), "updated_at": s.now()})
	if res.Error != nil {
		return fmt.Errorf("update feed fetched: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("update feed fetched", "feed", feedID)
	}
	return nil
}

// SetFeedActive enables or disables a feed
func (s *Store) SetFeedActive(ctx context.Context, feedID string, active bool) error {
	res := s.DB.WithContext(ctx).Model(&Feed{}).Where("id = ?", feedID).
		Updates(map[string]any{"is_active": active, "updated_at": s.now()})
	if res.Error != nil {
		return fmt.Errorf("set feed active: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("set feed active", "feed", feedID)
	}
	return nil
}

// DeleteFeed removes a feed, ingested content stays
func (s *Store) DeleteFeed(ctx context.Context, feedID string) error {
	res := s.DB.WithContext(ctx).Where("id = ?", feedID).Delete(&Feed{})
	if res.Error != nil {
		return fmt.Errorf("delete feed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("delete feed", "feed", feedID)
	}
	return nil
}

// CreateContentIfAbsent inserts the item unless one with the same source type and id exists
func (s *Store) CreateContentIfAbsent(ctx context.Context, item *domain.ContentItem) (bool, error) {
	if !item.SourceType.Valid() || strings.TrimSpace(item.SourceID) == "" {
		return false, domain.Errorf(domain.KindValidation, "create content", "invalid content key %q/%q",
			item.SourceType, item.SourceID)
	}
	row := fromContent(item)
	now := s.now()
	row.CreatedAt, row.UpdatedAt = now, now

	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_type"}, {Name: "source_id"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("create content %s/%s: %w", item.SourceType, item.SourceID, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	item.ID, item.CreatedAt, item.UpdatedAt = row.ID, now, now
	return true, nil
}

// ContentExists checks whether an item with the source type and id is stored
func (s *Store) ContentExists(ctx context.Context, sourceType domain.SourceType, sourceID string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&ContentItem{}).
		Where("source_type = ? AND source_id = ?", string(sourceType), sourceID).Limit(1).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("content exists: %w", err)
	}
	return count > 0, nil
}

// GetContent retrieves an item by source type and id
func (s *Store) GetContent(ctx context.Context, sourceType domain.SourceType, sourceID string) (*domain.ContentItem, error) {
	var row ContentItem
	err := s.DB.WithContext(ctx).Where("source_type = ? AND source_id = ?", string(sourceType), sourceID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("get content", "content item", string(sourceType)+"/"+sourceID)
	}
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}
	return row.toDomain(), nil
}

// UpdateContentSummary sets summary, key points and sentiment, other fields are untouched
func (s *Store) UpdateContentSummary(ctx context.Context, sourceType domain.SourceType, sourceID string, sum domain.Summary) error {
	keyPoints := sum.KeyPoints
	if keyPoints == nil {
		keyPoints = []string{}
	}
	res := s.DB.WithContext(ctx).Model(&ContentItem{}).
		Where("source_type = ? AND source_id = ?", string(sourceType), sourceID).
		Updates(map[string]any{
			"summary":    sum.Summary,
			"key_points": datatypes.NewJSONSlice(keyPoints),
			"sentiment":  string(sum.Sentiment),
			"updated_at": s.now(),
		})
	if res.Error != nil {
		return fmt.Errorf("update content summary: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("update content summary", "content item", string(sourceType)+"/"+sourceID)
	}
	return nil
}

// DeleteContent removes an item, missing items are ignored
func (s *Store) DeleteContent(ctx context.Context, sourceType domain.SourceType, sourceID string) error {
	err := s.DB.WithContext(ctx).Where("source_type = ? AND source_id = ?", string(sourceType), sourceID).
		Delete(&ContentItem{}).Error
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	return nil
}

// ListContent returns items matching the filter, newest first
func (s *Store) ListContent(ctx context.Context, filter domain.ContentFilter) ([]domain.ContentItem, error) {
	q := s.DB.WithContext(ctx).Model(&ContentItem{})
	if filter.SourceType != "" {
		q = q.Where("source_type = ?", string(filter.SourceType))
	}
	if filter.SummarizedOnly {
		q = q.Where("summary <> ''")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var rows []ContentItem
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	res := make([]domain.ContentItem, len(rows))
	for i := range rows {
		res[i] = *rows[i].toDomain()
	}
	return res, nil
}

// RecordDisplay increments the display counter and sets the last shown time
func (s *Store) RecordDisplay(ctx context.Context, id int64) error {
	now := s.now()
	res := s.DB.WithContext(ctx).Model(&ContentItem{}).Where("id = ?", id).
		Updates(map[string]any{"display_count": gorm.Expr("display_count + 1"), "last_shown_at": now, "updated_at": now})
	if res.Error != nil {
		return fmt.Errorf("record display: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("record display", "content item", fmt.Sprintf("%d", id))
	}
	return nil
}

// PurgeContent deletes items created before the given time and returns how many were removed
func (s *Store) PurgeContent(ctx context.Context, before time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).Where("created_at < ?", before.UTC()).Delete(&ContentItem{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge content: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// ContentStats returns total and summarized item counts
func (s *Store) ContentStats(ctx context.Context) (domain.ContentStats, error) {
	var stats domain.ContentStats
	err := s.DB.WithContext(ctx).Model(&ContentItem{}).
		Select("COUNT(*) AS total, COUNT(*) FILTER (WHERE summary <> '') AS summarized").
		Scan(&stats).Error
	if err != nil {
		return domain.ContentStats{}, fmt.Errorf("content stats: %w", err)
	}
	return stats, nil
}

func fromFeed(f *domain.Feed) Feed {
	return Feed{ID: f.ID, URL: f.URL, Title: f.Title, Description: f.Description, LastFetchedAt: f.LastFetchedAt,
		FetchIntervalMinutes: f.FetchIntervalMinutes, IsActive: f.IsActive, OwnerID: f.OwnerID}
}

func (f *Feed) toDomain() *domain.Feed {
	res := &domain.Feed{ID: f.ID, URL: f.URL, Title: f.Title, Description: f.Description,
		FetchIntervalMinutes: f.FetchIntervalMinutes, IsActive: f.IsActive, OwnerID: f.OwnerID,
		CreatedAt: f.CreatedAt.UTC(), UpdatedAt: f.UpdatedAt.UTC()}
	if f.LastFetchedAt != nil {
		t := f.LastFetchedAt.UTC()
		res.LastFetchedAt = &t
	}
	return res
}

func fromContent(item *domain.ContentItem) ContentItem {
	payload := datatypes.JSON(item.RawPayload)
	if len(payload) == 0 {
		payload = datatypes.JSON("{}")
	}
	keyPoints := item.KeyPoints
	if keyPoints == nil {
		keyPoints = []string{}
	}
	return ContentItem{SourceType: string(item.SourceType), SourceID: item.SourceID, RawPayload: payload,
		Summary: item.Summary, KeyPoints: datatypes.NewJSONSlice(keyPoints), Sentiment: string(item.Sentiment),
		Metadata: datatypes.NewJSONType(item.Metadata), DisplayCount: item.DisplayCount, LastShownAt: item.LastShownAt}
}

func (c *ContentItem) toDomain() *domain.ContentItem {
	keyPoints := []string(c.KeyPoints)
	if keyPoints == nil {
		keyPoints = []string{}
	}
	res := &domain.ContentItem{ID: c.ID, SourceType: domain.SourceType(c.SourceType), SourceID: c.SourceID,
		RawPayload: []byte(c.RawPayload), Summary: c.Summary, KeyPoints: keyPoints,
		Sentiment: domain.Sentiment(c.Sentiment), Metadata: c.Metadata.Data(), DisplayCount: c.DisplayCount,
		CreatedAt: c.CreatedAt.UTC(), UpdatedAt: c.UpdatedAt.UTC()}
	if c.LastShownAt != nil {
		t := c.LastShownAt.UTC()
		res.LastShownAt = &t
	}
	return res
}
