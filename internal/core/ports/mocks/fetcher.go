package mocks

import (
	"context"
	"sync"

	"github.com/lueurxax/feed-digest/internal/core/ports"
)

var _ ports.TextFetcher = (*TextFetcher)(nil)

// TextFetcher is a thread-safe in-memory implementation of ports.TextFetcher.
type TextFetcher struct {
	mu    sync.Mutex
	texts map[string]string
	calls []string

	// FetchTextFn allows overriding FetchText behavior.
	FetchTextFn func(ctx context.Context, url string, opts ports.FetchOptions) (string, error)
}

// NewTextFetcher creates a new mock text fetcher.
func NewTextFetcher() *TextFetcher {
	return &TextFetcher{texts: make(map[string]string)}
}

// SetText registers the text returned for url.
func (f *TextFetcher) SetText(url, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.texts[url] = text
}

// FetchText returns the registered text for url or ErrTextNotFound.
func (f *TextFetcher) FetchText(ctx context.Context, url string, opts ports.FetchOptions) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	text, ok := f.texts[url]
	f.mu.Unlock()

	if f.FetchTextFn != nil {
		return f.FetchTextFn(ctx, url, opts)
	}

	if !ok {
		return "", ErrTextNotFound
	}

	return text, nil
}

// Calls returns the URLs fetched so far, in call order.
func (f *TextFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

// Reset clears registered texts and recorded calls.
func (f *TextFetcher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.texts = make(map[string]string)
	f.calls = nil
}
