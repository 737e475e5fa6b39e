// Package queue implements the admission scheduler: a bounded worker pool
// with strict priority-first ordering, FIFO within equal priority, dual
// deadlines and graceful drain.
package queue

import (
	"container/heap"
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/pixfold/image-processor/internal/instance"
	"github.com/pixfold/image-processor/pkg/errors"
	"github.com/pixfold/image-processor/task"
)

// Work is one admitted unit of image work. It must honor ctx at its
// interruption points; cancellation is cooperative.
type Work func(ctx context.Context) (*task.Result, error)

type Options struct {
	// Concurrency is the maximum number of jobs running at once.
	Concurrency int

	// QueueSize bounds queued+running; admissions beyond it are rejected
	// with OVERLOADED. Zero means unbounded.
	QueueSize int

	// JobTimeout bounds active execution only. Zero disables it.
	JobTimeout time.Duration

	// RequestTimeout bounds queue-wait plus execution, starting at
	// admission. Zero disables it.
	RequestTimeout time.Duration

	Prometheus instance.Prometheus
}

// Scheduler owns all queue state: the running count and the priority-ordered
// waiting collection. Job payloads are exclusively owned by their submitters;
// the scheduler only synchronizes slot handoff.
type Scheduler struct {
	opts Options

	mu       sync.Mutex
	seq      uint64
	running  int
	waiting  jobHeap
	draining bool
	drained  chan struct{}
}

type job struct {
	priority int
	seq      uint64
	start    chan struct{}
	index    int // heap index; -1 once off the heap
}

func New(opts Options) *Scheduler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	return &Scheduler{
		opts:    opts,
		drained: make(chan struct{}),
	}
}

// Submit admits work at the given priority and blocks until the work
// resolves, a deadline fires, or ctx aborts. The scheduler adds only its own
// OVERLOADED, TIMED_OUT, UNAVAILABLE and CANCELLED errors; work errors pass
// through unmodified. It never retries.
func (s *Scheduler) Submit(ctx context.Context, priority int, work Work) (*task.Result, error) {
	s.mu.Lock()

	if s.draining {
		s.mu.Unlock()

		if s.opts.Prometheus != nil {
			s.opts.Prometheus.RejectedUnavailable()
		}

		return nil, errors.New(errors.KindUnavailable, "not accepting new jobs: shutting down")
	}

	if s.opts.QueueSize > 0 && s.running+s.waiting.Len() >= s.opts.QueueSize {
		depth := s.running + s.waiting.Len()
		s.mu.Unlock()

		if s.opts.Prometheus != nil {
			s.opts.Prometheus.RejectedOverloaded()
		}

		return nil, errors.New(errors.KindOverloaded, "queue is full (%d jobs)", depth)
	}

	j := &job{
		priority: priority,
		seq:      s.seq,
		start:    make(chan struct{}),
	}
	s.seq++

	heap.Push(&s.waiting, j)
	s.dispatchLocked()
	s.mu.Unlock()

	var dequeued func()
	if s.opts.Prometheus != nil {
		dequeued = s.opts.Prometheus.JobQueued()
	}

	// the request clock starts at admission and covers queue wait too
	reqCtx := ctx
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	select {
	case <-j.start:
	case <-reqCtx.Done():
		s.mu.Lock()
		select {
		case <-j.start:
			// a slot was granted concurrently; run it out below so the
			// slot is released properly
			s.mu.Unlock()
		default:
			heap.Remove(&s.waiting, j.index)
			s.mu.Unlock()

			if dequeued != nil {
				dequeued()
			}

			return nil, s.admissionError(ctx, reqCtx)
		}
	}

	if dequeued != nil {
		dequeued()
	}

	return s.run(ctx, reqCtx, work)
}

// run executes work in its granted slot and classifies the outcome.
func (s *Scheduler) run(ctx, reqCtx context.Context, work Work) (*task.Result, error) {
	var finish func(bool)
	if s.opts.Prometheus != nil {
		finish = s.opts.Prometheus.StartJob()
	}

	defer s.release()

	execCtx := reqCtx
	if s.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(reqCtx, s.opts.JobTimeout)
		defer cancel()
	}

	type outcome struct {
		result *task.Result
		err    error
	}

	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if pnk := recover(); pnk != nil {
				done <- outcome{err: fmt.Errorf("panic at runtime: %v", pnk)}
			}
		}()

		result, err := work(execCtx)
		done <- outcome{result: result, err: err}
	}()

	var out outcome

	select {
	case out = <-done:
	case <-execCtx.Done():
		// abandon the in-flight call; cancellation is cooperative, so the
		// work may still finish and its result is simply discarded
		err := s.deadlineError(ctx, reqCtx, execCtx)

		zap.S().Debugw("job abandoned",
			"error", err,
		)

		if finish != nil {
			finish(false)
		}

		return nil, err
	}

	if out.err != nil {
		if finish != nil {
			finish(false)
		}

		// work that surfaced its context error is still a deadline/abort
		if execCtx.Err() != nil && errorIsContext(out.err) {
			return nil, s.deadlineError(ctx, reqCtx, execCtx)
		}

		return nil, out.err
	}

	if finish != nil {
		finish(true)
	}

	return out.result, nil
}

// release frees the slot and grants the next one; the last release during a
// drain closes the drained gate.
func (s *Scheduler) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running--
	s.dispatchLocked()

	if s.draining && s.idleLocked() {
		select {
		case <-s.drained:
		default:
			close(s.drained)
		}
	}
}

// dispatchLocked grants slots to the highest-priority waiters. Among queued
// jobs the ordering is a stable sort by (-priority, sequence).
func (s *Scheduler) dispatchLocked() {
	for s.running < s.opts.Concurrency && s.waiting.Len() > 0 {
		j := heap.Pop(&s.waiting).(*job)
		s.running++
		close(j.start)
	}
}

func (s *Scheduler) idleLocked() bool {
	return s.running == 0 && s.waiting.Len() == 0
}

// Shutdown stops admissions immediately and waits for the queue to go idle or
// for ctx to fire, whichever first. Already-admitted jobs, queued included,
// are allowed to finish.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.draining {
		s.draining = true

		if s.idleLocked() {
			close(s.drained)
		}
	}
	s.mu.Unlock()

	select {
	case <-s.drained:
		return nil
	case <-ctx.Done():
		return errors.Wrap(errors.KindTimedOut, ctx.Err(), "drain timed out")
	}
}

// Depth reports queued+running, the value admission control compares against
// QueueSize.
func (s *Scheduler) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running + s.waiting.Len()
}

// Accepting reports whether new admissions are possible.
func (s *Scheduler) Accepting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return !s.draining
}

// admissionError classifies a request that never got a slot.
func (s *Scheduler) admissionError(ctx, reqCtx context.Context) error {
	if ctx.Err() != nil && reqCtx.Err() == ctx.Err() {
		if s.opts.Prometheus != nil {
			s.opts.Prometheus.JobCancelled()
		}

		return errors.Wrap(errors.KindCancelled, ctx.Err(), "aborted while queued")
	}

	if s.opts.Prometheus != nil {
		s.opts.Prometheus.JobTimedOut()
	}

	return errors.New(errors.KindTimedOut, "request timed out while queued")
}

// deadlineError classifies an execution cut short by one of the two racing
// deadlines or a caller abort.
func (s *Scheduler) deadlineError(ctx, reqCtx, execCtx context.Context) error {
	if ctx.Err() != nil {
		if s.opts.Prometheus != nil {
			s.opts.Prometheus.JobCancelled()
		}

		return errors.Wrap(errors.KindCancelled, ctx.Err(), "aborted while running")
	}

	if s.opts.Prometheus != nil {
		s.opts.Prometheus.JobTimedOut()
	}

	if reqCtx.Err() != nil && execCtx.Err() == reqCtx.Err() {
		return errors.New(errors.KindTimedOut, "request timed out after %s", s.opts.RequestTimeout)
	}

	return errors.New(errors.KindTimedOut, "job timed out after %s", s.opts.JobTimeout)
}

func errorIsContext(err error) bool {
	for _, e := range multierr.Errors(err) {
		if stderrors.Is(e, context.Canceled) || stderrors.Is(e, context.DeadlineExceeded) {
			return true
		}
	}

	return false
}
