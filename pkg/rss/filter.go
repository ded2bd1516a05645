package rss

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/umputun/tickerz/pkg/domain"
)

// FilterOptions selects feed items. All set criteria must match.
type FilterOptions struct {
	Categories    []string // any item category contains any of these, case-insensitive
	Keywords      []string // any keyword found in title, description or content, case-insensitive
	MaxAgeInHours int      // items published earlier are dropped, items without a date are kept
	MinLength     int      // minimal description length in characters
	MaxLength     int      // maximal description length in characters
}

// IsZero reports whether no criteria are set
func (f FilterOptions) IsZero() bool {
	return len(f.Categories) == 0 && len(f.Keywords) == 0 && f.MaxAgeInHours <= 0 && f.MinLength <= 0 && f.MaxLength <= 0
}

// Filter returns items matching all criteria, keeping the original order
func (c *Client) Filter(items []domain.ParsedItem, f FilterOptions) []domain.ParsedItem {
	if f.IsZero() {
		return items
	}
	now := c.now()
	res := make([]domain.ParsedItem, 0, len(items))
	for _, it := range items {
		if f.match(it, now) {
			res = append(res, it)
		}
	}
	return res
}

func (f FilterOptions) match(it domain.ParsedItem, now time.Time) bool {
	if len(f.Categories) > 0 && !matchCategories(it.Categories, f.Categories) {
		return false
	}
	if len(f.Keywords) > 0 && !matchKeywords(it, f.Keywords) {
		return false
	}
	if f.MaxAgeInHours > 0 && !it.Published.IsZero() {
		if now.Sub(it.Published) > time.Duration(f.MaxAgeInHours)*time.Hour {
			return false
		}
	}
	descLen := utf8.RuneCountInString(it.Description)
	if f.MinLength > 0 && descLen < f.MinLength {
		return false
	}
	if f.MaxLength > 0 && descLen > f.MaxLength {
		return false
	}
	return true
}

func matchCategories(itemCats, wanted []string) bool {
	for _, ic := range itemCats {
		ic = strings.ToLower(ic)
		for _, w := range wanted {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" && strings.Contains(ic, w) {
				return true
			}
		}
	}
	return false
}

func matchKeywords(it domain.ParsedItem, keywords []string) bool {
	text := strings.ToLower(it.Title + " " + it.Description + " " + it.Content)
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}
