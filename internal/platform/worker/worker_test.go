package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStep = errors.New("step failed")

func TestLoopRunsUntilCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls atomic.Int32

	err := Loop(ctx, Config{
		Name:         "test",
		PollInterval: time.Millisecond,
		Process: func(context.Context) error {
			if calls.Add(1) == 3 {
				cancel()
			}

			return nil
		},
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(3), calls.Load())
}

func TestLoopStopsWhenOnErrorDeclines(t *testing.T) {
	var seen error

	err := Loop(context.Background(), Config{
		Name:         "test",
		PollInterval: time.Millisecond,
		Process:      func(context.Context) error { return errStep },
		OnError: func(err error) bool {
			seen = err
			return false
		},
	})

	require.ErrorIs(t, err, errStep)
	assert.ErrorIs(t, seen, errStep)
}

func TestLoopRecoversPanics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32

	err := Loop(ctx, Config{
		Name:         "test",
		PollInterval: time.Millisecond,
		Process: func(context.Context) error {
			if calls.Add(1) == 1 {
				panic("boom")
			}

			cancel()

			return nil
		},
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(2), calls.Load(), "loop continues after a panic")
}

func TestLoopPeriodicTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var (
		steps    atomic.Int32
		periodic atomic.Int32
	)

	_ = Loop(ctx, Config{
		Name:         "test",
		PollInterval: time.Millisecond,
		Process: func(context.Context) error {
			if steps.Add(1) == 5 {
				cancel()
			}

			return nil
		},
		PeriodicTasks: []PeriodicTask{{
			Name:     "prune",
			Interval: time.Hour,
			Run: func(context.Context) error {
				periodic.Add(1)
				return errStep
			},
		}},
	})

	assert.Equal(t, int32(1), periodic.Load(), "runs on start, then waits for its interval")
}

func TestSafeRun(t *testing.T) {
	err := SafeRun(context.Background(), func(context.Context) error { panic("bad") })

	var panicErr *ErrPanic
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "bad", panicErr.Value)

	require.ErrorIs(t, SafeRun(context.Background(), func(context.Context) error { return errStep }), errStep)
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), 0))
	require.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}
