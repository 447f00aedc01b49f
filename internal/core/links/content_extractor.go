package links

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"

	"github.com/lueurxax/feed-digest/internal/platform/htmlutils"
)

// articleTypes are the schema.org types whose JSON-LD carries article text.
var articleTypes = map[string]bool{
	"Article":              true,
	"NewsArticle":          true,
	"BlogPosting":          true,
	"ReportageNewsArticle": true,
	"TechArticle":          true,
}

// pageHints is what a single pass over the document yields.
type pageHints struct {
	description string
	articleBody string
}

// ExtractText returns the readable text of a fetched document, cleaned and
// truncated to maxLen runes. Sources are tried in order: a feed payload's
// first entry, JSON-LD articleBody, readability, visible text, and finally
// the page description. Empty means nothing readable was found.
func ExtractText(body []byte, rawURL string, maxLen int) string {
	if text, ok := feedEntryText(body); ok {
		return finish(text, maxLen)
	}

	if !looksLikeHTML(body) {
		return finish(string(body), maxLen)
	}

	hints := scanPage(body)

	if hints.articleBody != "" {
		return finish(hints.articleBody, maxLen)
	}

	if text := readableText(body, rawURL); text != "" {
		return finish(text, maxLen)
	}

	if text := htmlutils.TextFromHTML(body); text != "" {
		return finish(text, maxLen)
	}

	return finish(hints.description, maxLen)
}

func finish(text string, maxLen int) string {
	return htmlutils.TruncateBytes(htmlutils.CleanText(text), maxLen)
}

func feedEntryText(body []byte) (string, bool) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil || len(feed.Items) == 0 {
		return "", false
	}

	item := feed.Items[0]
	if item.Content != "" {
		return item.Content, true
	}

	return item.Description, true
}

func readableText(body []byte, rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(article.TextContent)
}

func looksLikeHTML(body []byte) bool {
	head := bytes.ToLower(bytes.TrimSpace(body))
	if len(head) > 512 {
		head = head[:512]
	}

	return bytes.HasPrefix(head, []byte("<!doctype html")) ||
		bytes.Contains(head, []byte("<html")) ||
		bytes.Contains(head, []byte("<head")) ||
		bytes.Contains(head, []byte("<body"))
}

// scanPage walks the document once collecting the best description and any
// JSON-LD article body.
func scanPage(body []byte) pageHints {
	var (
		hints                 pageHints
		metaDesc, ogDesc, ldD string
	)

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return hints
	}

	var walk func(*html.Node)

	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				switch key, content := metaPair(n); key {
				case "description":
					metaDesc = content
				case "og:description":
					ogDesc = content
				}
			case "script":
				if attr(n, "type") == "application/ld+json" && n.FirstChild != nil {
					ld := articleFromLD(n.FirstChild.Data)
					ldD = firstNonEmpty(ldD, ld.description)
					hints.articleBody = firstNonEmpty(hints.articleBody, ld.articleBody)
				}

				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)

	hints.description = firstNonEmpty(ldD, ogDesc, metaDesc)

	return hints
}

func metaPair(n *html.Node) (string, string) {
	key := attr(n, "property")
	if key == "" {
		key = attr(n, "name")
	}

	return strings.ToLower(key), strings.TrimSpace(attr(n, "content"))
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}

	return ""
}

type ldArticle struct {
	description string
	articleBody string
}

// articleFromLD reads the first article object of a JSON-LD block, looking
// through arrays and @graph.
func articleFromLD(data string) ldArticle {
	var v any
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return ldArticle{}
	}

	var found ldArticle

	var visit func(any) bool

	visit = func(v any) bool {
		switch node := v.(type) {
		case []any:
			for _, child := range node {
				if visit(child) {
					return true
				}
			}
		case map[string]any:
			if isArticleType(node["@type"]) {
				found.description, _ = node["description"].(string)
				found.articleBody, _ = node["articleBody"].(string)

				return true
			}

			return visit(node["@graph"])
		}

		return false
	}

	visit(v)

	return found
}

func isArticleType(v any) bool {
	switch t := v.(type) {
	case string:
		return articleTypes[t]
	case []any:
		for _, each := range t {
			if s, ok := each.(string); ok && articleTypes[s] {
				return true
			}
		}
	}

	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
