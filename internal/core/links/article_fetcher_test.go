package links

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/lueurxax/feed-digest/internal/core/errors"
	"github.com/lueurxax/feed-digest/internal/core/ports"
)

func TestArticleFetcherFetchText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(testArticleHTML))
	}))
	defer server.Close()

	fetcher := NewArticleFetcher(newTestFetcher())

	text, err := fetcher.FetchText(context.Background(), server.URL+"/article", ports.FetchOptions{
		Timeout:   time.Second,
		MaxLength: 60,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, text)
	assert.LessOrEqual(t, len([]rune(text)), 60)
}

func TestArticleFetcherErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
		wantErr error
	}{
		{
			name: "http error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
			timeout: time.Second,
			wantErr: coreerrors.ErrFetchError,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}

				_, _ = w.Write([]byte(testArticleHTML))
			},
			timeout: 50 * time.Millisecond,
			wantErr: coreerrors.ErrFetchTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			fetcher := NewArticleFetcher(newTestFetcher())

			_, err := fetcher.FetchText(context.Background(), server.URL, ports.FetchOptions{Timeout: tt.timeout})
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
