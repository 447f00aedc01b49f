// Package cache stores previously fetched article text keyed by canonical URL.
//
// Entries expire a fixed TTL after they are written. Expiry is evaluated lazily:
// a read of an expired entry deletes it and reports a miss.
package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long fetched article text stays valid.
const DefaultTTL = 6 * time.Hour

// ArticleCache is a TTL-bounded URL to text store.
type ArticleCache interface {
	Get(ctx context.Context, url string) (string, bool)
	Set(ctx context.Context, url, text string)
}

type entry struct {
	text      string
	expiresAt time.Time
}

// Memory is an in-process ArticleCache guarded by a single mutex.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Memory cache.
type Option func(*Memory)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		m.now = now
	}
}

// NewMemory creates an in-process cache. A non-positive ttl selects DefaultTTL.
func NewMemory(ttl time.Duration, opts ...Option) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	m := &Memory{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Get returns the cached text for url if present and not expired.
func (m *Memory) Get(_ context.Context, url string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[url]
	if !ok {
		return "", false
	}

	if !m.now().Before(e.expiresAt) {
		delete(m.entries, url)
		return "", false
	}

	return e.text, true
}

// Set stores text for url with a fresh TTL.
func (m *Memory) Set(_ context.Context, url, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[url] = entry{
		text:      text,
		expiresAt: m.now().Add(m.ttl),
	}
}

// Len returns the number of stored entries, including expired ones not yet read.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}

// Clear removes all cached entries.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]entry)
}
