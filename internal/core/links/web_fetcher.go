package links

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lueurxax/feed-digest/internal/platform/retry"
)

var (
	// ErrTooManyRedirects indicates too many HTTP redirects.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrHTTPStatusNotOK indicates an HTTP response with a non-200 status code.
	ErrHTTPStatusNotOK = errors.New("HTTP status not OK")
	// ErrUnsupportedContent indicates a response that carries no readable text.
	ErrUnsupportedContent = errors.New("unsupported content type")
)

const (
	defaultTimeout      = 30 * time.Second
	defaultUserAgent    = "FeedDigest/1.0 (+digest builder)"
	defaultRPS          = 5
	defaultHostRPS      = 1
	defaultMaxBodyBytes = 5 << 20
	globalBurst         = 5
	hostBurst           = 2
	maxRedirects        = 5

	acceptHeader = "text/html,application/xhtml+xml,application/rss+xml,application/atom+xml,application/xml;q=0.9,text/plain;q=0.8"
)

// binaryTypes are media type prefixes that never hold article or feed text.
var binaryTypes = []string{"image/", "audio/", "video/", "font/", "application/pdf", "application/zip", "application/octet-stream"}

// WebFetcherOptions configures a WebFetcher. Zero values take defaults.
type WebFetcherOptions struct {
	// RPS limits requests across all hosts.
	RPS float64
	// HostRPS limits requests to any single host.
	HostRPS      float64
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	Retry        retry.Config
}

// WebFetcher downloads pages and feeds politely: a global and a per-host
// rate limit, bounded redirects and body size, and retries on transient
// failures.
type WebFetcher struct {
	client       *http.Client
	global       *rate.Limiter
	hosts        sync.Map // host -> *rate.Limiter
	hostRPS      rate.Limit
	userAgent    string
	maxBodyBytes int64
	retry        retry.Config
}

func NewWebFetcher(opts WebFetcherOptions) *WebFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	if opts.RPS <= 0 {
		opts.RPS = defaultRPS
	}

	if opts.HostRPS <= 0 {
		opts.HostRPS = defaultHostRPS
	}

	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}

	return &WebFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return ErrTooManyRedirects
				}

				return nil
			},
		},
		global:       rate.NewLimiter(rate.Limit(opts.RPS), globalBurst),
		hostRPS:      rate.Limit(opts.HostRPS),
		userAgent:    opts.UserAgent,
		maxBodyBytes: opts.MaxBodyBytes,
		retry:        opts.Retry,
	}
}

// Fetch downloads rawURL, retrying transient failures.
func (f *WebFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	body, err := retry.DoValue(ctx, f.retry, func(ctx context.Context) ([]byte, error) {
		return f.fetchOnce(ctx, rawURL)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	return body, nil
}

func (f *WebFetcher) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.global.Wait(ctx); err != nil {
		return nil, fmt.Errorf("global rate limit: %w", err)
	}

	if err := f.hostLimiter(Host(rawURL)).Wait(ctx); err != nil {
		return nil, fmt.Errorf("host rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.StatusError{StatusCode: resp.StatusCode, Err: ErrHTTPStatusNotOK}
	}

	if ct := resp.Header.Get("Content-Type"); isBinary(ct) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return body, nil
}

func (f *WebFetcher) hostLimiter(host string) *rate.Limiter {
	if l, ok := f.hosts.Load(host); ok {
		return l.(*rate.Limiter)
	}

	l, _ := f.hosts.LoadOrStore(host, rate.NewLimiter(f.hostRPS, hostBurst))

	return l.(*rate.Limiter)
}

func isBinary(contentType string) bool {
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	for _, prefix := range binaryTypes {
		if strings.HasPrefix(mediaType, prefix) {
			return true
		}
	}

	return false
}
