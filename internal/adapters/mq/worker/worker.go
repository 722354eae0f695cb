// Package worker runs granule jobs on a fixed number of goroutines.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/okian/icetrack/internal/adapters/mq/queue"
	"github.com/okian/icetrack/pkg/logger"
	"github.com/okian/icetrack/pkg/metrics"
)

// DefaultWorkerCount is the pool size used when none is configured.
const DefaultWorkerCount = 8

// Policy decides what a pool does once a job fails.
type Policy int

const (
	// FailFast cancels pending jobs on the first failure and returns it.
	FailFast Policy = iota
	// Collect runs every job and returns all failures joined.
	Collect
)

// ParsePolicy maps "fail_fast" and "collect" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail_fast":
		return FailFast, nil
	case "collect":
		return Collect, nil
	default:
		return FailFast, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

func (p Policy) String() string {
	if p == Collect {
		return "collect"
	}
	return "fail_fast"
}

// Processor handles one job.
type Processor interface {
	Process(ctx context.Context, job queue.Job) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, job queue.Job) error

// Process implements Processor.
func (f ProcessorFunc) Process(ctx context.Context, job queue.Job) error { return f(ctx, job) }

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
	Len() int
	IsClosed() bool
}

// sharedQueue hands every worker of a pool the same job channel.
type sharedQueue struct {
	Queue
	jobs <-chan queue.Job
}

func (s sharedQueue) Dequeue(context.Context) <-chan queue.Job { return s.jobs }

// Worker processes jobs from a queue.
type Worker interface {
	// Run processes jobs until the queue drains or ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue  Queue
	proc   Processor
	name   string
	report func(JobError)

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, proc Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		proc:     proc,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			// A job may be received in the same instant ctx is canceled.
			if ctx.Err() != nil {
				return
			}
			metrics.UpdateQueueDepth(w.queue.Len())
			w.process(ctx, job)
		}
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) {
	metrics.IncWorkersBusy()
	defer metrics.DecWorkersBusy()

	if err := w.proc.Process(ctx, job); err != nil {
		metrics.RecordError("worker", "job_failed")
		w.logger.Error(ctx, "job failed",
			logger.String("path", job.Path),
			logger.Int("index", job.Index),
			logger.Error(err),
		)
		if w.report != nil {
			w.report(JobError{Job: job, Err: err})
		}
	}
}

// Shutdown stops the worker after its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	size   int
	queue  Queue
	proc   Processor
	policy Policy
	logger logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below 1 selects
// DefaultWorkerCount.
func NewPool(workerCount int, q Queue, proc Processor, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = DefaultWorkerCount
	}
	p := &Pool{
		size:   workerCount,
		queue:  q,
		proc:   proc,
		policy: FailFast,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Run starts the workers and blocks until the queue is drained, the policy
// stops the run, or ctx is canceled. The queue must be closed by the
// producer for Run to return on its own.
//
// All workers receive from one shared channel, so a slow job occupies only
// its own worker. Under FailFast the first failure cancels the remaining
// jobs, the workers are shut down after their current job, and the failure
// is returned as a *JobError. Under Collect every job runs and the failures
// are joined in job order.
func (p *Pool) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !p.queue.IsClosed() {
		p.logger.Warn(ctx, "queue still open; pool stops only on cancel", logger.Int("queued", p.queue.Len()))
	}

	var (
		mu       sync.Mutex
		failures []JobError
	)
	report := func(je JobError) {
		mu.Lock()
		failures = append(failures, je)
		mu.Unlock()
		if p.policy == FailFast {
			cancel()
		}
	}

	metrics.UpdateWorkersActive(p.size)
	defer metrics.UpdateWorkersActive(0)

	shared := sharedQueue{Queue: p.queue, jobs: p.queue.Dequeue(runCtx)}
	workers := make([]Worker, p.size)
	var wg sync.WaitGroup
	for i := range workers {
		w := NewInMemoryWorker(shared, p.proc,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(p.logger),
			withReporter(report),
		)
		workers[i] = w
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(runCtx)
		}()
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-runCtx.Done():
		p.shutdown(context.WithoutCancel(ctx), workers)
		<-finished
	}

	if len(failures) == 0 {
		return ctx.Err()
	}
	if p.policy == FailFast {
		return &failures[0]
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].Job.Index < failures[j].Job.Index })
	errs := make([]error, len(failures))
	for i := range failures {
		errs[i] = &failures[i]
	}
	return errors.Join(errs...)
}

// shutdown stops every worker after its current job.
func (p *Pool) shutdown(ctx context.Context, workers []Worker) {
	p.logger.Info(ctx, "stopping workers", logger.Int("workers", len(workers)))
	for _, w := range workers {
		if err := w.Shutdown(ctx); err != nil {
			p.logger.Warn(ctx, "worker shutdown failed", logger.Error(err))
		}
	}
}
