package links

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/feed-digest/internal/platform/retry"
)

const (
	testDomain      = "example.com"
	headerUserAgent = "User-Agent"
	headerAccept    = "Accept"
	testHTMLBody    = "<html><body>Test content</body></html>"
)

func fastRetry() retry.Config {
	return retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		Multiplier:   1,
		MaxDelay:     time.Millisecond,
	}
}

func newTestFetcher() *WebFetcher {
	return NewWebFetcher(WebFetcherOptions{RPS: 100, HostRPS: 100, Timeout: 5 * time.Second, Retry: fastRetry()})
}

func TestNewWebFetcher(t *testing.T) {
	tests := []struct {
		name string
		opts WebFetcherOptions
	}{
		{name: "defaults", opts: WebFetcherOptions{}},
		{name: "custom timeout", opts: WebFetcherOptions{RPS: 5, Timeout: 10 * time.Second}},
		{name: "negative timeout uses default", opts: WebFetcherOptions{RPS: 1, Timeout: -time.Second}},
		{name: "custom user agent", opts: WebFetcherOptions{UserAgent: "digest-test"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := NewWebFetcher(tt.opts)

			require.NotNil(t, fetcher.client, "client is nil")
			require.NotNil(t, fetcher.global, "global limiter is nil")
			require.NotEmpty(t, fetcher.userAgent, "userAgent is empty")
			assert.Positive(t, fetcher.client.Timeout)
			assert.Positive(t, fetcher.maxBodyBytes)
			assert.Positive(t, float64(fetcher.hostRPS))
		})
	}
}

func TestWebFetcherHostLimiter(t *testing.T) {
	fetcher := newTestFetcher()

	limiter1 := fetcher.hostLimiter(testDomain)
	require.NotNil(t, limiter1)

	assert.Same(t, limiter1, fetcher.hostLimiter(testDomain), "same host shares a limiter")
	assert.NotSame(t, limiter1, fetcher.hostLimiter("other.com"), "different hosts get separate limiters")
}

func TestIsBinary(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{contentType: "", want: false},
		{contentType: "text/html; charset=utf-8", want: false},
		{contentType: "application/rss+xml", want: false},
		{contentType: "image/png", want: true},
		{contentType: "application/pdf", want: true},
		{contentType: "Application/Octet-Stream", want: true},
		{contentType: "not a media type;;", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, isBinary(tt.contentType))
		})
	}
}

func TestWebFetcherFetch(t *testing.T) {
	t.Run("successful fetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "digest-test", r.Header.Get(headerUserAgent))
			assert.NotEmpty(t, r.Header.Get(headerAccept))

			_, _ = w.Write([]byte(testHTMLBody))
		}))
		defer server.Close()

		fetcher := NewWebFetcher(WebFetcherOptions{RPS: 100, UserAgent: "digest-test", Retry: fastRetry()})

		body, err := fetcher.Fetch(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, testHTMLBody, string(body))
	})

	t.Run("not found is not retried", func(t *testing.T) {
		var calls atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := newTestFetcher().Fetch(context.Background(), server.URL)
		require.ErrorIs(t, err, ErrHTTPStatusNotOK)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("server error is retried", func(t *testing.T) {
		var calls atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}

			_, _ = w.Write([]byte(testHTMLBody))
		}))
		defer server.Close()

		body, err := newTestFetcher().Fetch(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, testHTMLBody, string(body))
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("binary content is rejected without retry", func(t *testing.T) {
		var calls atomic.Int32

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.7"))
		}))
		defer server.Close()

		_, err := newTestFetcher().Fetch(context.Background(), server.URL)
		require.ErrorIs(t, err, ErrUnsupportedContent)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("body is capped", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(testHTMLBody))
		}))
		defer server.Close()

		fetcher := NewWebFetcher(WebFetcherOptions{RPS: 100, HostRPS: 100, MaxBodyBytes: 6, Retry: fastRetry()})

		body, err := fetcher.Fetch(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "<html>", string(body))
	})

	t.Run("canceled context", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestFetcher().Fetch(ctx, server.URL)
		require.Error(t, err)
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := newTestFetcher().Fetch(context.Background(), "://invalid-url")
		require.Error(t, err)
	})
}

func TestWebFetcherRedirectLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/redirect", http.StatusFound)
	}))
	defer server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrTooManyRedirects)
}
