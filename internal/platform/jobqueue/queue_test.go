package jobqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/lueurxax/feed-digest/internal/core/errors"
)

const waitTimeout = 5 * time.Second

var errJob = errors.New("job failed")

func waitCtx(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	t.Cleanup(cancel)

	return ctx
}

type task struct {
	id    int
	sleep time.Duration
	fail  bool
	panic bool
}

func TestQueueFIFOWithVaryingDurations(t *testing.T) {
	q := New[task, int](nil)

	var (
		mu        sync.Mutex
		started   []int
		active    atomic.Int32
		maxActive atomic.Int32
	)

	q.SetProcessor(func(_ context.Context, tk task) (int, error) {
		n := active.Add(1)
		defer active.Add(-1)

		if n > maxActive.Load() {
			maxActive.Store(n)
		}

		mu.Lock()
		started = append(started, tk.id)
		mu.Unlock()

		time.Sleep(tk.sleep)

		return tk.id * 10, nil
	})

	durations := []time.Duration{30 * time.Millisecond, time.Millisecond, 15 * time.Millisecond, 0, 5 * time.Millisecond}

	handles := make([]*Handle[int], len(durations))
	for i, d := range durations {
		handles[i] = q.Enqueue(task{id: i, sleep: d})
	}

	for i, h := range handles {
		res, err := h.Wait(waitCtx(t))
		require.NoError(t, err)
		assert.Equal(t, i*10, res, "each handle receives its own job's result")
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4}, started)
	assert.Equal(t, int32(1), maxActive.Load(), "never more than one job at a time")

	<-q.Idle()
	assert.Equal(t, 0, q.Len())
	assert.False(t, q.Running())
}

func TestQueueIsolatesFailures(t *testing.T) {
	q := New[task, int](nil)
	q.SetProcessor(func(_ context.Context, tk task) (int, error) {
		switch {
		case tk.panic:
			panic("processor exploded")
		case tk.fail:
			return 0, errJob
		default:
			return tk.id, nil
		}
	})

	first := q.Enqueue(task{id: 1})
	failing := q.Enqueue(task{id: 2, fail: true})
	panicking := q.Enqueue(task{id: 3, panic: true})
	last := q.Enqueue(task{id: 4})

	res, err := first.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 1, res)

	_, err = failing.Wait(waitCtx(t))
	require.ErrorIs(t, err, errJob)

	_, err = panicking.Wait(waitCtx(t))

	var panicErr *ErrJobPanicked
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "processor exploded", panicErr.Value)

	res, err = last.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 4, res)
}

func TestQueueWithoutProcessorRejectsJobs(t *testing.T) {
	q := New[task, int](nil)

	a := q.Enqueue(task{id: 1})
	b := q.Enqueue(task{id: 2})

	_, err := a.Wait(waitCtx(t))
	require.ErrorIs(t, err, coreerrors.ErrQueueMisconfigured)

	_, err = b.Wait(waitCtx(t))
	require.ErrorIs(t, err, coreerrors.ErrQueueMisconfigured)

	<-q.Idle()

	q.SetProcessor(func(_ context.Context, tk task) (int, error) { return tk.id, nil })

	res, err := q.Enqueue(task{id: 3}).Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 3, res, "queue recovers once a processor is registered")
}

func TestQueueAbandonedWaitDoesNotCancelJob(t *testing.T) {
	q := New[task, int](nil)

	release := make(chan struct{})

	var jobCtxErr atomic.Value

	q.SetProcessor(func(ctx context.Context, tk task) (int, error) {
		<-release

		if err := ctx.Err(); err != nil {
			jobCtxErr.Store(err)
		}

		return tk.id, nil
	})

	h := q.Enqueue(task{id: 7})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)

	close(release)

	select {
	case <-h.Done():
	case <-time.After(waitTimeout):
		t.Fatal("job never settled")
	}

	res, err := h.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 7, res)
	assert.Nil(t, jobCtxErr.Load())
}

func TestQueueLenAndRunning(t *testing.T) {
	q := New[task, int](nil)

	started := make(chan struct{})
	release := make(chan struct{})

	q.SetProcessor(func(_ context.Context, tk task) (int, error) {
		if tk.id == 1 {
			close(started)
			<-release
		}

		return tk.id, nil
	})

	first := q.Enqueue(task{id: 1})
	<-started

	second := q.Enqueue(task{id: 2})
	third := q.Enqueue(task{id: 3})

	assert.True(t, q.Running())
	assert.Equal(t, 2, q.Len())
	assert.NotEqual(t, second.ID, third.ID)

	close(release)

	for _, h := range []*Handle[int]{first, second, third} {
		_, err := h.Wait(waitCtx(t))
		require.NoError(t, err)
	}
}

func TestQueueShutdown(t *testing.T) {
	q := New[task, int](nil)

	started := make(chan struct{})

	q.SetProcessor(func(ctx context.Context, _ task) (int, error) {
		close(started)
		<-ctx.Done()

		return 0, ctx.Err()
	})

	running := q.Enqueue(task{id: 1})
	<-started

	pending := q.Enqueue(task{id: 2})

	q.Shutdown()

	_, err := running.Wait(waitCtx(t))
	require.ErrorIs(t, err, context.Canceled)

	_, err = pending.Wait(waitCtx(t))
	require.ErrorIs(t, err, ErrQueueClosed)

	_, err = q.Enqueue(task{id: 3}).Wait(waitCtx(t))
	require.ErrorIs(t, err, ErrQueueClosed)
}

func TestHandleSettlesOnce(t *testing.T) {
	h := newHandle[int]("id", time.Now())

	h.settle(1, nil)
	h.settle(2, errJob)

	res, err := h.Wait(waitCtx(t))
	require.NoError(t, err)
	assert.Equal(t, 1, res)
}
