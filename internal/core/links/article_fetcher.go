package links

import (
	"context"
	"errors"
	"fmt"

	coreerrors "github.com/lueurxax/feed-digest/internal/core/errors"
	"github.com/lueurxax/feed-digest/internal/core/ports"
)

const defaultMaxLength = 12000

// ArticleFetcher downloads an article page and returns its readable text.
type ArticleFetcher struct {
	web *WebFetcher
}

var _ ports.TextFetcher = (*ArticleFetcher)(nil)

func NewArticleFetcher(web *WebFetcher) *ArticleFetcher {
	return &ArticleFetcher{web: web}
}

// FetchText fetches url within opts.Timeout. Timeouts are reported as
// ErrFetchTimeout, every other failure as ErrFetchError.
func (a *ArticleFetcher) FetchText(ctx context.Context, url string, opts ports.FetchOptions) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	maxLength := opts.MaxLength
	if maxLength <= 0 {
		maxLength = defaultMaxLength
	}

	body, err := a.web.Fetch(ctx, url)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", coreerrors.ErrFetchTimeout, err)
		}

		return "", fmt.Errorf("%w: %w", coreerrors.ErrFetchError, err)
	}

	return ExtractText(body, url, maxLength), nil
}
