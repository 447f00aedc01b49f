package enrichment

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/feed-digest/internal/core/cache"
	"github.com/lueurxax/feed-digest/internal/core/domain"
	"github.com/lueurxax/feed-digest/internal/core/ports"
	"github.com/lueurxax/feed-digest/internal/core/ports/mocks"
)

const (
	urlA = "https://news.example.com/a"
	urlB = "https://news.example.com/b"
	urlC = "https://news.example.com/c"
)

var errNetwork = errors.New("connection refused")

func TestEnrichCacheHitSkipsNetwork(t *testing.T) {
	ctx := context.Background()
	fetcher := mocks.NewTextFetcher()
	articles := cache.NewMemory(cache.DefaultTTL)
	articles.Set(ctx, urlA, "cached text")

	e := NewEnricher(fetcher, articles, nil, Options{}, nil)
	items := []domain.ContentItem{{URL: urlA}}

	stats := e.Enrich(ctx, items)

	assert.Equal(t, "cached text", items[0].RawContent)
	assert.True(t, items[0].Enriched)
	assert.Equal(t, 1, stats.CacheHits)
	assert.Empty(t, fetcher.Calls(), "cache hit must not fetch")
}

func TestEnrichSkipList(t *testing.T) {
	fetcher := mocks.NewTextFetcher()
	e := NewEnricher(fetcher, nil, nil, Options{SkipHosts: []string{"paywalled.example.org"}}, nil)

	items := []domain.ContentItem{
		{URL: "https://x.com/user/status/1", Snippet: "short"},
		{URL: "https://mobile.twitter.com/user/status/2"},
		{URL: "https://www.paywalled.example.org/story"},
	}

	stats := e.Enrich(context.Background(), items)

	assert.Equal(t, 3, stats.Skipped)
	assert.Empty(t, fetcher.Calls())

	for _, item := range items {
		assert.False(t, item.Enriched)
		assert.Empty(t, item.RawContent)
	}
}

func TestEnrichFetchStoresInCache(t *testing.T) {
	ctx := context.Background()
	fetcher := mocks.NewTextFetcher()
	fetcher.SetText(urlA, "fresh article text")

	articles := cache.NewMemory(cache.DefaultTTL)
	e := NewEnricher(fetcher, articles, nil, Options{}, nil)

	items := []domain.ContentItem{{URL: urlA}}
	stats := e.Enrich(ctx, items)

	require.True(t, items[0].Enriched)
	assert.Equal(t, "fresh article text", items[0].RawContent)
	assert.Equal(t, 1, stats.Fetched)
	assert.Equal(t, 1, stats.Enriched())

	cached, ok := articles.Get(ctx, urlA)
	require.True(t, ok)
	assert.Equal(t, "fresh article text", cached)

	again := []domain.ContentItem{{URL: urlA}}
	e.Enrich(ctx, again)
	assert.Len(t, fetcher.Calls(), 1, "second build is served from cache")
}

func TestEnrichErrorPageNotCached(t *testing.T) {
	ctx := context.Background()
	fetcher := mocks.NewTextFetcher()
	fetcher.SetText(urlA, "Please enable JavaScript to continue reading.")

	articles := cache.NewMemory(cache.DefaultTTL)
	e := NewEnricher(fetcher, articles, nil, Options{}, nil)

	items := []domain.ContentItem{{URL: urlA, Snippet: "feed snippet"}}
	stats := e.Enrich(ctx, items)

	assert.False(t, items[0].Enriched)
	assert.Empty(t, items[0].RawContent)
	assert.Equal(t, "feed snippet", items[0].Snippet)
	assert.Equal(t, 1, stats.ErrorPages)
	assert.Equal(t, 0, articles.Len())
}

func TestEnrichFailuresAreIsolated(t *testing.T) {
	fetcher := mocks.NewTextFetcher()
	fetcher.FetchTextFn = func(ctx context.Context, url string, _ ports.FetchOptions) (string, error) {
		switch url {
		case urlA:
			<-ctx.Done()
			return "", ctx.Err()
		case urlB:
			return "", errNetwork
		default:
			return "article " + url, nil
		}
	}

	e := NewEnricher(fetcher, nil, nil, Options{Timeout: 50 * time.Millisecond}, nil)
	items := []domain.ContentItem{{URL: urlA}, {URL: urlB}, {URL: urlC}}

	stats := e.Enrich(context.Background(), items)

	assert.False(t, items[0].Enriched)
	assert.False(t, items[1].Enriched)
	assert.True(t, items[2].Enriched)
	assert.Equal(t, "article "+urlC, items[2].RawContent)

	assert.Equal(t, 1, stats.Timeouts)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Fetched)
}

func TestEnrichBoundsConcurrency(t *testing.T) {
	var (
		inFlight atomic.Int32
		peak     atomic.Int32
	)

	fetcher := mocks.NewTextFetcher()
	fetcher.FetchTextFn = func(_ context.Context, url string, _ ports.FetchOptions) (string, error) {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)

		for {
			seen := peak.Load()
			if current <= seen || peak.CompareAndSwap(seen, current) {
				break
			}
		}

		time.Sleep(20 * time.Millisecond)

		return "text of " + url, nil
	}

	e := NewEnricher(fetcher, nil, nil, Options{Concurrency: 3}, nil)

	items := make([]domain.ContentItem, 10)
	for i := range items {
		items[i].URL = "https://news.example.com/" + strings.Repeat("x", i+1)
	}

	stats := e.Enrich(context.Background(), items)

	assert.Equal(t, 10, stats.Fetched)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Positive(t, peak.Load())
}

func TestEnrichLeavesFilledItemsAlone(t *testing.T) {
	fetcher := mocks.NewTextFetcher()
	e := NewEnricher(fetcher, nil, nil, Options{}, nil)

	items := []domain.ContentItem{{URL: urlA, RawContent: "already here"}}
	stats := e.Enrich(context.Background(), items)

	assert.Equal(t, "already here", items[0].RawContent)
	assert.Equal(t, 0, stats.Candidates)
	assert.Empty(t, fetcher.Calls())
}

func TestEnrichRecordsMetrics(t *testing.T) {
	fetcher := mocks.NewTextFetcher()
	fetcher.SetText(urlA, "article text")

	sink := mocks.NewMetricsSink()
	e := NewEnricher(fetcher, nil, sink, Options{}, nil)

	e.Enrich(context.Background(), []domain.ContentItem{{URL: urlA}, {URL: urlB}})

	events := sink.Find(ports.MetricTypeEnrichment, "enrich")
	require.Len(t, events, 1)
	assert.Equal(t, ports.MetricStatusDegraded, events[0].Status)
	assert.Equal(t, "1", events[0].Metadata["fetched"])
	assert.Equal(t, "1", events[0].Metadata["failed"])
	assert.Contains(t, events[0].Metadata["error"], urlB)
	assert.Contains(t, events[0].Metadata["error"], mocks.ErrTextNotFound.Error())
}

func TestEnrichCleanRunHasNoErrorText(t *testing.T) {
	fetcher := mocks.NewTextFetcher()
	fetcher.SetText(urlA, "article text")

	sink := mocks.NewMetricsSink()
	stats := NewEnricher(fetcher, nil, sink, Options{}, nil).Enrich(context.Background(), []domain.ContentItem{{URL: urlA}})

	assert.Empty(t, stats.LastError)

	events := sink.Find(ports.MetricTypeEnrichment, "enrich")
	require.Len(t, events, 1)
	assert.NotContains(t, events[0].Metadata, "error")
}

func TestSkipList(t *testing.T) {
	list := NewSkipList([]string{"example.org"})

	tests := []struct {
		url  string
		want bool
	}{
		{url: "https://x.com/a", want: true},
		{url: "https://www.instagram.com/p/1", want: true},
		{url: "https://blog.example.org/post", want: true},
		{url: "https://example.com/post", want: false},
		{url: "https://notx.com/a", want: false},
		{url: "not a url", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, list.Skips(tt.url))
		})
	}
}

func TestIsErrorPage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "javascript wall", text: "You need to enable JavaScript to run this app.", want: true},
		{name: "bot check", text: "Checking your browser before accessing the site", want: true},
		{name: "outage", text: "The service is temporarily unavailable.", want: true},
		{name: "article", text: "The council approved the new budget on Tuesday.", want: false},
		{name: "phrase past scan limit", text: strings.Repeat("a", errorPageScanLimit) + " access denied", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isErrorPage(tt.text))
		})
	}
}
