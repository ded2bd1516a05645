package domain

import (
	"strings"
	"time"
)

// FeedPayload is the parsed content handed from the fetch stage to the process stage.
// Kind selects which of the variant fields is set, only rss is produced today.
type FeedPayload struct {
	Kind SourceType  `json:"kind"`
	RSS  *ParsedFeed `json:"rss,omitempty"`
}

// NewRSSPayload wraps a parsed feed
func NewRSSPayload(feed *ParsedFeed) FeedPayload {
	return FeedPayload{Kind: SourceRSS, RSS: feed}
}

// Validate checks the payload has the shape its kind requires
func (p FeedPayload) Validate() error {
	const op = "validate payload"
	switch p.Kind {
	case SourceRSS:
		if p.RSS == nil {
			return Errorf(KindParse, op, "rss payload without feed")
		}
		return nil
	case "":
		return Errorf(KindParse, op, "payload kind is missing")
	default:
		return Errorf(KindParse, op, "unsupported payload kind %q", p.Kind)
	}
}

// ParsedFeed is a feed document in normalized form
type ParsedFeed struct {
	Title         string       `json:"title"`
	Description   string       `json:"description,omitempty"`
	Link          string       `json:"link,omitempty"`
	Language      string       `json:"language,omitempty"`
	LastBuildDate string       `json:"lastBuildDate,omitempty"`
	Items         []ParsedItem `json:"items"`
}

// ParsedItem is a single feed entry in normalized form
type ParsedItem struct {
	GUID              string    `json:"guid,omitempty"`
	ID                string    `json:"id,omitempty"`
	Link              string    `json:"link,omitempty"`
	Title             string    `json:"title,omitempty"`
	Description       string    `json:"description,omitempty"`
	Content           string    `json:"content,omitempty"`
	Author            string    `json:"author,omitempty"`
	Categories        []string  `json:"categories,omitempty"`
	PubDate           string    `json:"pubDate,omitempty"`
	Published         time.Time `json:"published,omitzero"`
	MediaContentURL   string    `json:"mediaContent,omitempty"`
	MediaThumbnailURL string    `json:"mediaThumbnail,omitempty"`
	EnclosureURL      string    `json:"enclosure,omitempty"`
}

// ResolveGUID picks the item identity: guid, then id, then link. Empty means the item can't be deduplicated.
func (it ParsedItem) ResolveGUID() string {
	for _, v := range []string{it.GUID, it.ID, it.Link} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// ImageURL returns the first image candidate: media:content, media:thumbnail, enclosure
func (it ParsedItem) ImageURL() string {
	for _, v := range []string{it.MediaContentURL, it.MediaThumbnailURL, it.EnclosureURL} {
		if v != "" {
			return v
		}
	}
	return ""
}

// DedupKey builds the per-feed identity of an item
func DedupKey(feedID, guid string) string {
	return feedID + ":" + guid
}
