package domain

import (
	"strings"
	"time"
)

// DefaultSyncInterval applies to source configurations created without an explicit interval
const DefaultSyncInterval = 15

// SourceConfig is the type-specific part of a source configuration
type SourceConfig struct {
	URL        string   `json:"url,omitempty"`
	Symbols    []string `json:"symbols,omitempty"`
	CalendarID string   `json:"calendarId,omitempty"`
	Location   string   `json:"location,omitempty"`
}

// SourceConfiguration describes a configured external source
type SourceConfiguration struct {
	ID                  string
	Type                SourceType
	Name                string
	Config              SourceConfig
	IsActive            bool
	LastSyncAt          *time.Time
	SyncIntervalMinutes int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Validate checks the type-specific required fields
func (s *SourceConfiguration) Validate() error {
	const op = "validate source"
	if strings.TrimSpace(s.Name) == "" {
		return Errorf(KindValidation, op, "name is required")
	}
	switch s.Type {
	case SourceRSS:
		if strings.TrimSpace(s.Config.URL) == "" {
			return Errorf(KindValidation, op, "rss source requires url")
		}
	case SourceStock:
		if len(s.Config.Symbols) == 0 {
			return Errorf(KindValidation, op, "stock source requires symbols")
		}
		for _, sym := range s.Config.Symbols {
			if strings.TrimSpace(sym) == "" {
				return Errorf(KindValidation, op, "stock source has empty symbol")
			}
		}
	case SourceCalendar:
		if strings.TrimSpace(s.Config.CalendarID) == "" {
			return Errorf(KindValidation, op, "calendar source requires calendarId")
		}
	case SourceWeather:
		if strings.TrimSpace(s.Config.Location) == "" {
			return Errorf(KindValidation, op, "weather source requires location")
		}
	default:
		return Errorf(KindValidation, op, "unknown source type %q", s.Type)
	}
	if s.SyncIntervalMinutes < 0 {
		return Errorf(KindValidation, op, "sync interval must be non-negative")
	}
	return nil
}
