package ingest

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"github.com/lueurxax/feed-digest/internal/core/domain"
	"github.com/lueurxax/feed-digest/internal/core/links"
	"github.com/lueurxax/feed-digest/internal/platform/htmlutils"
)

const (
	httpPrefix      = "http"
	snippetMaxRunes = 300
)

// ParseFeed parses an RSS, Atom or JSON feed body. Entries without a usable
// link are skipped, repeated links keep their first entry, and at most
// maxItems entries are returned (all when maxItems <= 0). URLs are
// canonicalized and every item is stamped with fetchedAt.
func ParseFeed(body []byte, fetchedAt time.Time, maxItems int) ([]domain.FeedItem, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]domain.FeedItem, 0, len(parsed.Items))
	seen := make(map[string]bool, len(parsed.Items))

	for _, entry := range parsed.Items {
		if maxItems > 0 && len(items) >= maxItems {
			break
		}

		link := links.Canonical(extractLink(entry))
		if link == "" || seen[link] {
			continue
		}

		seen[link] = true

		items = append(items, domain.FeedItem{
			Title:       htmlutils.CleanText(entry.Title),
			URL:         link,
			Snippet:     snippet(entry),
			PublishedAt: publishedAt(entry),
			FetchedAt:   fetchedAt,
		})
	}

	return items, nil
}

// extractLink prefers the entry link and falls back to a GUID that looks like a URL.
func extractLink(entry *gofeed.Item) string {
	if link := strings.TrimSpace(entry.Link); link != "" {
		return link
	}

	if guid := strings.TrimSpace(entry.GUID); strings.HasPrefix(guid, httpPrefix) {
		return guid
	}

	return ""
}

// publishedAt uses the parsed publication or update date and otherwise tries
// the raw strings with a lenient parser. Unknown dates stay nil.
func publishedAt(entry *gofeed.Item) *time.Time {
	switch {
	case entry.PublishedParsed != nil:
		t := entry.PublishedParsed.UTC()
		return &t
	case entry.UpdatedParsed != nil:
		t := entry.UpdatedParsed.UTC()
		return &t
	}

	for _, raw := range []string{entry.Published, entry.Updated} {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		if t, err := dateparse.ParseAny(raw); err == nil {
			t = t.UTC()
			return &t
		}
	}

	return nil
}

func snippet(entry *gofeed.Item) string {
	text := entry.Description
	if strings.TrimSpace(text) == "" {
		text = entry.Content
	}

	return htmlutils.Truncate(htmlutils.CleanText(text), snippetMaxRunes)
}
