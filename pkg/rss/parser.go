package rss

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	ext "github.com/mmcdole/gofeed/extensions"
	gorss "github.com/mmcdole/gofeed/rss"

	"github.com/umputun/tickerz/pkg/domain"
)

// Parse converts a raw RSS (0.9x, 1.0, 2.0) or Atom document into a ParsedFeed.
// Anything else, or a malformed document, is PARSE_ERROR.
func (c *Client) Parse(raw string) (*domain.ParsedFeed, error) {
	const op = "parse feed"
	if strings.TrimSpace(raw) == "" {
		return nil, domain.Errorf(domain.KindParse, op, "empty document")
	}

	switch gofeed.DetectFeedType(strings.NewReader(raw)) {
	case gofeed.FeedTypeRSS:
		feed, err := (&gorss.Parser{}).Parse(strings.NewReader(raw))
		if err != nil {
			return nil, domain.Wrap(domain.KindParse, op, fmt.Errorf("rss: %w", err))
		}
		return fromRSS(feed), nil
	case gofeed.FeedTypeAtom:
		feed, err := (&atom.Parser{}).Parse(strings.NewReader(raw))
		if err != nil {
			return nil, domain.Wrap(domain.KindParse, op, fmt.Errorf("atom: %w", err))
		}
		return fromAtom(feed), nil
	default:
		return nil, domain.Errorf(domain.KindParse, op, "unsupported feed format")
	}
}

func fromRSS(feed *gorss.Feed) *domain.ParsedFeed {
	res := &domain.ParsedFeed{
		Title:         strings.TrimSpace(feed.Title),
		Description:   feed.Description,
		Link:          feed.Link,
		Language:      feed.Language,
		LastBuildDate: feed.LastBuildDate,
		Items:         make([]domain.ParsedItem, 0, len(feed.Items)),
	}

	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		parsed := domain.ParsedItem{
			Link:        strings.TrimSpace(item.Link),
			Title:       strings.TrimSpace(item.Title),
			Description: item.Description,
			Content:     item.Content,
			Author:      strings.TrimSpace(item.Author),
			PubDate:     item.PubDate,
		}
		if item.GUID != nil {
			parsed.GUID = strings.TrimSpace(item.GUID.Value)
		}
		for _, cat := range item.Categories {
			if cat != nil && cat.Value != "" {
				parsed.Categories = append(parsed.Categories, cat.Value)
			}
		}
		if item.Enclosure != nil {
			parsed.EnclosureURL = item.Enclosure.URL
		}

		// dublin core fills gaps in author and date
		if dc := item.DublinCoreExt; dc != nil {
			if parsed.Author == "" && len(dc.Creator) > 0 {
				parsed.Author = strings.TrimSpace(dc.Creator[0])
			}
			if parsed.PubDate == "" && len(dc.Date) > 0 {
				parsed.PubDate = dc.Date[0]
			}
		}
		if item.PubDateParsed != nil {
			parsed.Published = item.PubDateParsed.UTC()
		} else if parsed.PubDate != "" {
			if t, err := time.Parse(time.RFC3339, parsed.PubDate); err == nil {
				parsed.Published = t.UTC()
			}
		}

		parsed.MediaContentURL, parsed.MediaThumbnailURL = mediaURLs(item.Extensions)
		res.Items = append(res.Items, parsed)
	}
	return res
}

func fromAtom(feed *atom.Feed) *domain.ParsedFeed {
	res := &domain.ParsedFeed{
		Title:         strings.TrimSpace(feed.Title),
		Description:   feed.Subtitle,
		Link:          atomLink(feed.Links, "alternate"),
		Language:      feed.Language,
		LastBuildDate: feed.Updated,
		Items:         make([]domain.ParsedItem, 0, len(feed.Entries)),
	}

	for _, entry := range feed.Entries {
		if entry == nil {
			continue
		}
		parsed := domain.ParsedItem{
			ID:           strings.TrimSpace(entry.ID),
			Link:         atomLink(entry.Links, "alternate"),
			Title:        strings.TrimSpace(entry.Title),
			Description:  entry.Summary,
			EnclosureURL: atomLink(entry.Links, "enclosure"),
			PubDate:      entry.Published,
		}
		if entry.Content != nil {
			parsed.Content = entry.Content.Value
		}
		if parsed.Description == "" {
			parsed.Description = parsed.Content
		}
		if len(entry.Authors) > 0 && entry.Authors[0] != nil {
			parsed.Author = strings.TrimSpace(entry.Authors[0].Name)
		}
		for _, cat := range entry.Categories {
			if cat == nil {
				continue
			}
			if v := cmp.Or(cat.Term, cat.Label); v != "" {
				parsed.Categories = append(parsed.Categories, v)
			}
		}
		switch {
		case entry.PublishedParsed != nil:
			parsed.Published = entry.PublishedParsed.UTC()
		case entry.UpdatedParsed != nil:
			parsed.Published = entry.UpdatedParsed.UTC()
			parsed.PubDate = entry.Updated
		}
		parsed.MediaContentURL, parsed.MediaThumbnailURL = mediaURLs(entry.Extensions)
		res.Items = append(res.Items, parsed)
	}
	return res
}

// atomLink returns href of the first link with the given rel. Links without rel count as alternate.
// For alternate it falls back to the first link.
func atomLink(links []*atom.Link, rel string) string {
	for _, l := range links {
		if l == nil {
			continue
		}
		r := l.Rel
		if r == "" {
			r = "alternate"
		}
		if r == rel && l.Href != "" {
			return l.Href
		}
	}
	if rel == "alternate" {
		for _, l := range links {
			if l != nil && l.Href != "" && l.Rel != "enclosure" {
				return l.Href
			}
		}
	}
	return ""
}

// mediaURLs extracts media:content and media:thumbnail urls, including ones nested in media:group
func mediaURLs(exts ext.Extensions) (content, thumbnail string) {
	media, ok := exts["media"]
	if !ok {
		return "", ""
	}
	content = firstAttr(media["content"], "url")
	thumbnail = firstAttr(media["thumbnail"], "url")
	for _, group := range media["group"] {
		if content == "" {
			content = firstAttr(group.Children["content"], "url")
		}
		if thumbnail == "" {
			thumbnail = firstAttr(group.Children["thumbnail"], "url")
		}
	}
	return content, thumbnail
}

func firstAttr(list []ext.Extension, attr string) string {
	for _, e := range list {
		if v := strings.TrimSpace(e.Attrs[attr]); v != "" {
			return v
		}
	}
	return ""
}
