package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/feed-digest/internal/core/domain"
	"github.com/lueurxax/feed-digest/internal/core/links"
	"github.com/lueurxax/feed-digest/internal/platform/retry"
)

var errUnreachable = errors.New("feed unreachable")

type fakeStore struct {
	mu      sync.Mutex
	sources []domain.Source
	items   map[string][]domain.FeedItem
	errors  map[string]string
	cleared []string
	cutoffs []time.Time
	listErr error
	onList  func()
}

func newFakeStore(sources ...domain.Source) *fakeStore {
	return &fakeStore{
		sources: sources,
		items:   make(map[string][]domain.FeedItem),
		errors:  make(map[string]string),
	}
}

func (s *fakeStore) ListAllEnabledSources(context.Context) ([]domain.Source, error) {
	if s.onList != nil {
		s.onList()
	}

	if s.listErr != nil {
		return nil, s.listErr
	}

	return s.sources, nil
}

func (s *fakeStore) UpsertItems(_ context.Context, sourceID string, items []domain.FeedItem) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[string]bool)
	for _, item := range s.items[sourceID] {
		known[item.URL] = true
	}

	inserted := 0

	for _, item := range items {
		if known[item.URL] {
			continue
		}

		s.items[sourceID] = append(s.items[sourceID], item)
		inserted++
	}

	return inserted, nil
}

func (s *fakeStore) RecordSourceError(_ context.Context, sourceID, message string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errors[sourceID] = message

	return nil
}

func (s *fakeStore) ClearSourceError(_ context.Context, sourceID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.errors, sourceID)
	s.cleared = append(s.cleared, sourceID)

	return nil
}

func (s *fakeStore) PruneItemsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cutoffs = append(s.cutoffs, cutoff)

	return 0, nil
}

type fakeFetcher map[string]string

func (f fakeFetcher) Fetch(_ context.Context, rawURL string) ([]byte, error) {
	body, ok := f[rawURL]
	if !ok {
		return nil, errUnreachable
	}

	return []byte(body), nil
}

func TestPollOnce(t *testing.T) {
	store := newFakeStore(
		domain.Source{ID: "s1", Name: "News", FeedURL: "https://news.example.com/rss", Enabled: true},
		domain.Source{ID: "s2", Name: "Down", FeedURL: "https://down.example.com/rss", Enabled: true},
		domain.Source{ID: "s3", Name: "Atom", FeedURL: "https://atom.example.com/feed", Enabled: true},
	)
	store.errors["s1"] = "old failure"

	fetcher := fakeFetcher{
		"https://news.example.com/rss":  rssFeed,
		"https://atom.example.com/feed": atomFeed,
	}

	p := NewPoller(store, fetcher, Options{}, nil)

	stats, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PollStats{Sources: 3, Failed: 1, NewItems: 3}, stats)

	assert.Len(t, store.items["s1"], 2)
	assert.Len(t, store.items["s3"], 1)
	assert.ElementsMatch(t, []string{"s1", "s3"}, store.cleared)
	assert.NotContains(t, store.errors, "s1", "a successful poll clears the previous failure")
	assert.Contains(t, store.errors["s2"], errUnreachable.Error())

	stats, err = p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.NewItems, "known items are not counted twice")
}

func TestPollOnceRecordsUnparseableFeed(t *testing.T) {
	store := newFakeStore(domain.Source{ID: "s1", FeedURL: "https://bad.example.com/rss", Enabled: true})
	p := NewPoller(store, fakeFetcher{"https://bad.example.com/rss": "<html>maintenance</html>"}, Options{}, nil)

	stats, err := p.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Contains(t, store.errors["s1"], "parse feed")
}

func TestPollOnceListFailure(t *testing.T) {
	store := newFakeStore()
	store.listErr = errUnreachable

	_, err := NewPoller(store, fakeFetcher{}, Options{}, nil).PollOnce(context.Background())
	require.ErrorIs(t, err, errUnreachable)
}

func TestPollOnceWithWebFetcher(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rss", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFeed))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	store := newFakeStore(
		domain.Source{ID: "ok", FeedURL: srv.URL + "/rss", Enabled: true},
		domain.Source{ID: "gone", FeedURL: srv.URL + "/gone", Enabled: true},
	)

	fetcher := links.NewWebFetcher(links.WebFetcherOptions{
		RPS:   100,
		Retry: retry.Config{MaxAttempts: 1},
	})

	stats, err := NewPoller(store, fetcher, Options{FeedTimeout: 5 * time.Second}, nil).PollOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.NewItems)
	assert.Contains(t, store.errors["gone"], "status 410")
}

func TestPrune(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	p := NewPoller(store, fakeFetcher{}, Options{Retention: 48 * time.Hour}, nil)
	p.now = func() time.Time { return now }

	require.NoError(t, p.Prune(context.Background()))
	assert.Equal(t, []time.Time{now.Add(-48 * time.Hour)}, store.cutoffs)
}

func TestRunPrunesAndPollsUntilCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newFakeStore()

	var once sync.Once

	store.onList = func() { once.Do(cancel) }

	err := NewPoller(store, fakeFetcher{}, Options{PollInterval: time.Hour}, nil).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, store.cutoffs, 1, "prune runs on start")
}
