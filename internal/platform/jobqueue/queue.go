// Package jobqueue serializes work through a single worker. Jobs run strictly
// in enqueue order, one at a time, and each caller receives its own result
// through a one-shot Handle.
package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	coreerrors "github.com/lueurxax/feed-digest/internal/core/errors"
	"github.com/lueurxax/feed-digest/internal/platform/observability"
)

// ErrQueueClosed is returned for jobs enqueued after Shutdown.
var ErrQueueClosed = errors.New("job queue is shut down")

// Job outcome labels.
const (
	statusSuccess  = "success"
	statusError    = "error"
	statusPanic    = "panic"
	statusRejected = "rejected"

	logKeyJobID = "job_id"
)

// Processor handles one job. The context is the queue's own and is not tied
// to any caller waiting on the result.
type Processor[Req, Res any] func(ctx context.Context, req Req) (Res, error)

// ErrJobPanicked wraps a value recovered from a panicking processor.
type ErrJobPanicked struct {
	Value any
}

func (e *ErrJobPanicked) Error() string {
	return fmt.Sprintf("job panicked: %v", e.Value)
}

type job[Req, Res any] struct {
	req    Req
	handle *Handle[Res]
}

// Queue is an in-process FIFO with a single worker. Its zero value is not
// usable; create it with New.
type Queue[Req, Res any] struct {
	mu        sync.Mutex
	jobs      []*job[Req, Res]
	draining  bool
	running   bool
	closed    bool
	processor Processor[Req, Res]

	ctx    context.Context
	cancel context.CancelFunc
	idle   chan struct{}
	logger *zerolog.Logger
}

func New[Req, Res any](logger *zerolog.Logger) *Queue[Req, Res] {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	ctx, cancel := context.WithCancel(context.Background())

	idle := make(chan struct{})
	close(idle)

	return &Queue[Req, Res]{
		ctx:    ctx,
		cancel: cancel,
		idle:   idle,
		logger: logger,
	}
}

// SetProcessor registers the function that runs every job.
func (q *Queue[Req, Res]) SetProcessor(p Processor[Req, Res]) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.processor = p
}

// Enqueue appends req to the tail and starts the worker if it is idle.
func (q *Queue[Req, Res]) Enqueue(req Req) *Handle[Res] {
	h := newHandle[Res](uuid.NewString(), time.Now())

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		h.settle(*new(Res), ErrQueueClosed)
		observability.QueueJobs.WithLabelValues(statusRejected).Inc()

		return h
	}

	q.jobs = append(q.jobs, &job[Req, Res]{req: req, handle: h})
	observability.QueueDepth.Set(float64(len(q.jobs)))

	q.logger.Debug().Str(logKeyJobID, h.ID).Int("depth", len(q.jobs)).Msg("job enqueued")

	if !q.draining {
		q.draining = true
		q.idle = make(chan struct{})

		go q.drain()
	}

	return h
}

// Len returns the number of jobs waiting to start.
func (q *Queue[Req, Res]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.jobs)
}

// Running reports whether a job is executing.
func (q *Queue[Req, Res]) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.running
}

// Idle returns a channel closed once the worker has nothing left to do.
func (q *Queue[Req, Res]) Idle() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.idle
}

// Shutdown rejects new jobs and cancels the context of the running one.
// Jobs still queued are rejected with ErrQueueClosed.
func (q *Queue[Req, Res]) Shutdown() {
	q.mu.Lock()
	q.closed = true
	pending := q.jobs
	q.jobs = nil
	q.mu.Unlock()

	q.cancel()

	for _, j := range pending {
		j.handle.settle(*new(Res), ErrQueueClosed)
		observability.QueueJobs.WithLabelValues(statusRejected).Inc()
	}

	observability.QueueDepth.Set(0)
}

// drain runs queued jobs until the queue is empty.
func (q *Queue[Req, Res]) drain() {
	for {
		j, processor, ok := q.next()
		if !ok {
			return
		}

		q.run(j, processor)

		q.mu.Lock()
		q.running = false
		q.mu.Unlock()

		observability.QueueRunning.Set(0)
	}
}

// next pops the head job. With no processor registered every queued job is
// rejected and the worker stops.
func (q *Queue[Req, Res]) next() (*job[Req, Res], Processor[Req, Res], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) > 0 && q.processor == nil {
		for _, j := range q.jobs {
			j.handle.settle(*new(Res), coreerrors.ErrQueueMisconfigured)
			observability.QueueJobs.WithLabelValues(statusRejected).Inc()
		}

		q.logger.Error().Int("rejected", len(q.jobs)).Msg("job queue has no processor, rejecting queued jobs")

		q.jobs = nil
	}

	if len(q.jobs) == 0 {
		q.draining = false
		close(q.idle)
		observability.QueueDepth.Set(0)

		return nil, nil, false
	}

	j := q.jobs[0]
	q.jobs[0] = nil
	q.jobs = q.jobs[1:]
	q.running = true

	observability.QueueDepth.Set(float64(len(q.jobs)))
	observability.QueueRunning.Set(1)

	return j, q.processor, true
}

func (q *Queue[Req, Res]) run(j *job[Req, Res], processor Processor[Req, Res]) {
	start := time.Now()
	observability.QueueWaitSeconds.Observe(start.Sub(j.handle.EnqueuedAt).Seconds())

	logger := q.logger.With().Str(logKeyJobID, j.handle.ID).Logger()
	logger.Info().Dur("waited", start.Sub(j.handle.EnqueuedAt)).Msg("job started")

	res, err := q.invoke(processor, j.req)

	duration := time.Since(start)
	observability.QueueJobDuration.Observe(duration.Seconds())

	var panicErr *ErrJobPanicked

	switch {
	case errors.As(err, &panicErr):
		observability.QueueJobs.WithLabelValues(statusPanic).Inc()
		logger.Error().Err(err).Dur("duration", duration).Msg("job panicked")
	case err != nil:
		observability.QueueJobs.WithLabelValues(statusError).Inc()
		logger.Warn().Err(err).Dur("duration", duration).Msg("job failed")
	default:
		observability.QueueJobs.WithLabelValues(statusSuccess).Inc()
		logger.Info().Dur("duration", duration).Msg("job finished")
	}

	j.handle.settle(res, err)
}

func (q *Queue[Req, Res]) invoke(processor Processor[Req, Res], req Req) (res Res, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero Res

			res, err = zero, &ErrJobPanicked{Value: r}
		}
	}()

	return processor(q.ctx, req)
}
