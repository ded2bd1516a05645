package server

import (
	"encoding/xml"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/gorilla/feeds"

	"github.com/umputun/tickerz/pkg/domain"
	"github.com/umputun/tickerz/pkg/rss"
)

const rssItemsLimit = 50

// rssPreviewHandler fetches a remote feed and returns filtered items without storing anything
func (s *Server) rssPreviewHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	url := strings.TrimSpace(q.Get("url"))
	if url == "" {
		renderError(w, r, domain.Errorf(domain.KindValidation, "rss preview", "url is required"), "url is required")
		return
	}

	filter := rss.FilterOptions{Keywords: splitList(q.Get("keywords")), Categories: splitList(q.Get("categories"))}
	for name, dst := range map[string]*int{"max_age": &filter.MaxAgeInHours, "min_length": &filter.MinLength,
		"max_length": &filter.MaxLength} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			renderError(w, r, domain.Errorf(domain.KindValidation, "rss preview", "%s must be a non-negative number", name),
				"invalid "+name)
			return
		}
		*dst = n
	}

	feed, err := s.feeds.FetchAndFilter(r.Context(), url, filter)
	if err != nil {
		renderError(w, r, err, "can't preview feed")
		return
	}
	renderJSON(w, http.StatusOK, feed)
}

// rssHandler publishes summarized items as RSS 2.0
func (s *Server) rssHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.content.ListContent(r.Context(), domain.ContentFilter{SummarizedOnly: true, Limit: rssItemsLimit})
	if err != nil {
		renderError(w, r, err, "can't list content")
		return
	}

	out, err := s.generateRSS(items, time.Now())
	if err != nil {
		renderError(w, r, err, "can't generate rss")
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(out)); err != nil {
		lgr.Printf("[WARN] can't write rss response: %v", err)
		return
	}

	// count the publication, a failed update doesn't affect the served feed
	for _, item := range items {
		if err := s.content.RecordDisplay(r.Context(), item.ID); err != nil {
			lgr.Printf("[WARN] can't record display of %s: %v", item.SourceID, err)
		}
	}
}

// opmlHandler exports active feed subscriptions
func (s *Server) opmlHandler(w http.ResponseWriter, r *http.Request) {
	list, err := s.feedStore.GetFeeds(r.Context(), true)
	if err != nil {
		renderError(w, r, err, "can't get feeds")
		return
	}
	out, err := generateOPML(list, s.FeedTitle, time.Now())
	if err != nil {
		renderError(w, r, err, "can't generate opml")
		return
	}
	w.Header().Set("Content-Type", "text/x-opml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(out)); err != nil {
		lgr.Printf("[WARN] can't write opml response: %v", err)
	}
}

// generateRSS makes an RSS 2.0 document from stored items, summary goes to description
func (s *Server) generateRSS(items []domain.ContentItem, now time.Time) (string, error) {
	baseURL := strings.TrimRight(s.BaseURL, "/")
	feed := &feeds.Feed{
		Title:       s.FeedTitle,
		Link:        &feeds.Link{Href: baseURL + "/"},
		Description: "summarized market news",
		Created:     now,
	}
	for _, it := range items {
		author := it.Metadata.Author
		if author == "" {
			author = domain.UnknownAuthor
		}
		feed.Add(&feeds.Item{
			Title:       it.Metadata.Title,
			Link:        &feeds.Link{Href: it.Metadata.URL},
			Author:      &feeds.Author{Name: author},
			Description: it.Summary,
			Content:     itemHTML(it),
			Id:          it.SourceID,
			IsPermaLink: "false",
			Created:     it.Metadata.PublishedAt,
			Updated:     it.UpdatedAt,
		})
	}

	rssFeed := (&feeds.Rss{Feed: feed}).RssFeed()
	data, err := xml.MarshalIndent(rssFeed.FeedXml(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal rss: %w", err)
	}
	return xml.Header + string(data), nil
}

// itemHTML renders summary, key points and sentiment as html content
func itemHTML(it domain.ContentItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(it.Summary))
	if len(it.KeyPoints) > 0 {
		b.WriteString("<ul>")
		for _, p := range it.KeyPoints {
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(p))
		}
		b.WriteString("</ul>")
	}
	if it.Sentiment != "" {
		fmt.Fprintf(&b, "<p>Sentiment: %s</p>", html.EscapeString(string(it.Sentiment)))
	}
	return b.String()
}

// generateOPML makes an OPML file with feed subscriptions
func generateOPML(list []domain.Feed, title string, now time.Time) (string, error) {
	type outline struct {
		XMLName xml.Name `xml:"outline"`
		Text    string   `xml:"text,attr"`
		Title   string   `xml:"title,attr"`
		Type    string   `xml:"type,attr"`
		XMLUrl  string   `xml:"xmlUrl,attr"`
	}
	type body struct {
		XMLName  xml.Name  `xml:"body"`
		Outlines []outline `xml:"outline"`
	}
	type head struct {
		XMLName     xml.Name `xml:"head"`
		Title       string   `xml:"title"`
		DateCreated string   `xml:"dateCreated"`
	}
	type opml struct {
		XMLName xml.Name `xml:"opml"`
		Version string   `xml:"version,attr"`
		Head    head     `xml:"head"`
		Body    body     `xml:"body"`
	}

	outlines := make([]outline, 0, len(list))
	for _, f := range list {
		name := f.Title
		if name == "" {
			name = f.URL
		}
		outlines = append(outlines, outline{Text: name, Title: name, Type: "rss", XMLUrl: f.URL})
	}
	doc := opml{
		Version: "2.0",
		Head:    head{Title: title + " subscriptions", DateCreated: now.Format(time.RFC1123Z)},
		Body:    body{Outlines: outlines},
	}
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal opml: %w", err)
	}
	return xml.Header + string(data), nil
}
