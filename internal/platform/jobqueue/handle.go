package jobqueue

import (
	"context"
	"sync"
	"time"
)

// Handle is the caller's side of one queued job. It settles exactly once,
// with either a value or an error.
type Handle[Res any] struct {
	ID         string
	EnqueuedAt time.Time

	once sync.Once
	done chan struct{}
	res  Res
	err  error
}

func newHandle[Res any](id string, enqueuedAt time.Time) *Handle[Res] {
	return &Handle[Res]{
		ID:         id,
		EnqueuedAt: enqueuedAt,
		done:       make(chan struct{}),
	}
}

func (h *Handle[Res]) settle(res Res, err error) {
	h.once.Do(func() {
		h.res = res
		h.err = err
		close(h.done)
	})
}

// Done returns a channel closed when the job has settled.
func (h *Handle[Res]) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the job settles or ctx is done. Giving up on the wait
// does not cancel the job; its result is then discarded.
func (h *Handle[Res]) Wait(ctx context.Context) (Res, error) {
	select {
	case <-h.done:
		return h.res, h.err
	case <-ctx.Done():
		var zero Res

		return zero, ctx.Err()
	}
}
