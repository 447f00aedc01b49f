package mocks

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/lueurxax/feed-digest/internal/core/domain"
	"github.com/lueurxax/feed-digest/internal/core/ports"
)

var (
	_ ports.ItemStore   = (*ItemStore)(nil)
	_ ports.DigestStore = (*DigestStore)(nil)
	_ ports.UsageStore  = (*UsageStore)(nil)
)

// ItemStore is a thread-safe in-memory implementation of ports.ItemStore.
type ItemStore struct {
	mu      sync.RWMutex
	sources []domain.Source
	items   map[string][]domain.FeedItem

	// ListEnabledSourcesFn allows overriding ListEnabledSources behavior.
	ListEnabledSourcesFn func(ctx context.Context, channelID string) ([]domain.Source, error)

	// ListItemsInWindowFn allows overriding ListItemsInWindow behavior.
	ListItemsInWindowFn func(ctx context.Context, sourceID string, start, end time.Time, maxCount int) ([]domain.FeedItem, error)
}

// NewItemStore creates a new mock item store.
func NewItemStore() *ItemStore {
	return &ItemStore{items: make(map[string][]domain.FeedItem)}
}

// AddSource registers a source.
func (s *ItemStore) AddSource(source domain.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sources = append(s.sources, source)
}

// AddItems registers items under their SourceID.
func (s *ItemStore) AddItems(items ...domain.FeedItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		s.items[item.SourceID] = append(s.items[item.SourceID], item)
	}
}

// ListEnabledSources returns enabled sources of channelID in registration order.
func (s *ItemStore) ListEnabledSources(ctx context.Context, channelID string) ([]domain.Source, error) {
	if s.ListEnabledSourcesFn != nil {
		return s.ListEnabledSourcesFn(ctx, channelID)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Source

	for _, source := range s.sources {
		if source.ChannelID == channelID && source.Enabled {
			result = append(result, source)
		}
	}

	return result, nil
}

// ListItemsInWindow returns the source's items published in [start, end), most recent first.
func (s *ItemStore) ListItemsInWindow(ctx context.Context, sourceID string, start, end time.Time, maxCount int) ([]domain.FeedItem, error) {
	if s.ListItemsInWindowFn != nil {
		return s.ListItemsInWindowFn(ctx, sourceID, start, end, maxCount)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.FeedItem

	for _, item := range s.items[sourceID] {
		published := item.FetchedAt
		if item.PublishedAt != nil {
			published = *item.PublishedAt
		}

		if !published.Before(start) && published.Before(end) {
			result = append(result, item)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return publishedAt(result[i]).After(publishedAt(result[j]))
	})

	if maxCount > 0 && len(result) > maxCount {
		result = result[:maxCount]
	}

	return result, nil
}

func publishedAt(item domain.FeedItem) time.Time {
	if item.PublishedAt != nil {
		return *item.PublishedAt
	}

	return item.FetchedAt
}

// DigestRecord is a digest stored by DigestStore.
type DigestRecord struct {
	ID          string
	ChannelID   string
	WindowStart time.Time
	WindowEnd   time.Time
	Rendered    string
}

// DigestStore is a thread-safe in-memory implementation of ports.DigestStore.
type DigestStore struct {
	mu      sync.Mutex
	records []DigestRecord

	// CreateDigestRecordFn allows overriding CreateDigestRecord behavior.
	CreateDigestRecordFn func(ctx context.Context, channelID string, start, end time.Time, rendered string) (string, error)
}

// NewDigestStore creates a new mock digest store.
func NewDigestStore() *DigestStore {
	return &DigestStore{}
}

// CreateDigestRecord stores the record and returns a sequential ID.
func (s *DigestStore) CreateDigestRecord(ctx context.Context, channelID string, start, end time.Time, rendered string) (string, error) {
	if s.CreateDigestRecordFn != nil {
		return s.CreateDigestRecordFn(ctx, channelID, start, end, rendered)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := "digest-" + strconv.Itoa(len(s.records)+1)
	s.records = append(s.records, DigestRecord{
		ID:          id,
		ChannelID:   channelID,
		WindowStart: start,
		WindowEnd:   end,
		Rendered:    rendered,
	})

	return id, nil
}

// Records returns stored digests.
func (s *DigestStore) Records() []DigestRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]DigestRecord(nil), s.records...)
}

// UsageStore is a thread-safe in-memory implementation of ports.UsageStore.
type UsageStore struct {
	mu       sync.Mutex
	requests map[string]int

	// GetDailyRequestsFn allows overriding GetDailyRequests behavior.
	GetDailyRequestsFn func(ctx context.Context, tenantID string) (int, error)

	// IncrementRequestsFn allows overriding IncrementRequests behavior.
	IncrementRequestsFn func(ctx context.Context, tenantID, provider, model string, promptTokens, completionTokens int) error
}

// NewUsageStore creates a new mock usage store.
func NewUsageStore() *UsageStore {
	return &UsageStore{requests: make(map[string]int)}
}

// SetDailyRequests sets the request count of tenantID.
func (s *UsageStore) SetDailyRequests(tenantID string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests[tenantID] = count
}

// GetDailyRequests returns today's request count of tenantID.
func (s *UsageStore) GetDailyRequests(ctx context.Context, tenantID string) (int, error) {
	if s.GetDailyRequestsFn != nil {
		return s.GetDailyRequestsFn(ctx, tenantID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.requests[tenantID], nil
}

// IncrementRequests adds one request to tenantID.
func (s *UsageStore) IncrementRequests(ctx context.Context, tenantID, provider, model string, promptTokens, completionTokens int) error {
	if s.IncrementRequestsFn != nil {
		return s.IncrementRequestsFn(ctx, tenantID, provider, model, promptTokens, completionTokens)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests[tenantID]++

	return nil
}
