package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/icetrack/internal/adapters/mq/queue"
	"github.com/okian/icetrack/internal/adapters/mq/worker"
)

// Mock implementations for testing.
type mockQueue struct {
	jobs   chan queue.Job
	closed atomic.Bool
}

func newMockQueue(jobs ...queue.Job) *mockQueue {
	mq := &mockQueue{jobs: make(chan queue.Job, len(jobs)+10)}
	for _, j := range jobs {
		mq.jobs <- j
	}
	return mq
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Job { return mq.jobs }

func (mq *mockQueue) Len() int { return len(mq.jobs) }

func (mq *mockQueue) IsClosed() bool { return mq.closed.Load() }

func (mq *mockQueue) Close() {
	mq.closed.Store(true)
	close(mq.jobs)
}

type recorder struct {
	mu    sync.Mutex
	seen  map[int]bool
	fails map[string]error
}

func newRecorder() *recorder {
	return &recorder{seen: make(map[int]bool), fails: make(map[string]error)}
}

func (r *recorder) Process(ctx context.Context, job queue.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[job.Index] = true
	return r.fails[job.Path]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func jobs(n int) []queue.Job {
	out := make([]queue.Job, n)
	for i := range out {
		out[i] = queue.Job{Index: i, Path: fmt.Sprintf("g%02d.h5", i)}
	}
	return out
}

func TestParsePolicy(t *testing.T) {
	convey.Convey("Given policy names", t, func() {
		p, err := worker.ParsePolicy("fail_fast")
		convey.So(err, convey.ShouldBeNil)
		convey.So(p, convey.ShouldEqual, worker.FailFast)

		p, err = worker.ParsePolicy(" Collect ")
		convey.So(err, convey.ShouldBeNil)
		convey.So(p, convey.ShouldEqual, worker.Collect)
		convey.So(p.String(), convey.ShouldEqual, "collect")

		_, err = worker.ParsePolicy("retry")
		convey.So(errors.Is(err, worker.ErrUnknownPolicy), convey.ShouldBeTrue)
	})
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker over a queue of three jobs", t, func() {
		q := newMockQueue(jobs(3)...)
		rec := newRecorder()
		w := worker.NewInMemoryWorker(q, rec, worker.WithName("test-worker"))

		convey.Convey("When the queue is closed and the worker runs", func() {
			q.Close()
			w.Run(context.Background())

			convey.Convey("Then every job is processed and Run returns", func() {
				convey.So(rec.count(), convey.ShouldEqual, 3)
			})

			convey.Convey("Then a later Shutdown returns immediately", func() {
				convey.So(w.Shutdown(context.Background()), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the context is already canceled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			w.Run(ctx)

			convey.Convey("Then no job is processed", func() {
				convey.So(rec.count(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When shutting down a worker blocked on an open queue", func() {
			empty := newMockQueue()
			idle := worker.NewInMemoryWorker(empty, rec)
			go idle.Run(context.Background())

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			convey.Convey("Then it stops gracefully", func() {
				convey.So(idle.Shutdown(ctx), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool", t, func() {
		convey.Convey("When created with a non-positive count", func() {
			pool := worker.NewPool(0, newMockQueue(), newRecorder())

			convey.Convey("Then the default size is used", func() {
				convey.So(pool.Size(), convey.ShouldEqual, worker.DefaultWorkerCount)
			})
		})

		convey.Convey("When running fifty successful jobs on four workers", func() {
			q := newMockQueue(jobs(50)...)
			q.Close()
			rec := newRecorder()
			err := worker.NewPool(4, q, rec).Run(context.Background())

			convey.Convey("Then all jobs complete without error", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(rec.count(), convey.ShouldEqual, 50)
			})
		})

		convey.Convey("When a job fails under Collect", func() {
			q := newMockQueue(jobs(10)...)
			q.Close()
			rec := newRecorder()
			boom := errors.New("boom")
			rec.fails["g07.h5"] = boom
			rec.fails["g02.h5"] = boom
			err := worker.NewPool(3, q, rec, worker.WithPolicy(worker.Collect)).Run(context.Background())

			convey.Convey("Then every job still runs", func() {
				convey.So(rec.count(), convey.ShouldEqual, 10)
			})

			convey.Convey("Then both failures are reported in job order", func() {
				convey.So(errors.Is(err, boom), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldEqual, "g02.h5: boom\ng07.h5: boom")
			})
		})

		convey.Convey("When a job fails under FailFast", func() {
			var started atomic.Int32
			release := make(chan struct{})
			boom := errors.New("boom")
			proc := worker.ProcessorFunc(func(ctx context.Context, job queue.Job) error {
				started.Add(1)
				if job.Index == 0 {
					return boom
				}
				select {
				case <-release:
				case <-ctx.Done():
				}
				return ctx.Err()
			})
			q := newMockQueue(jobs(20)...)
			q.Close()
			err := worker.NewPool(1, q, proc).Run(context.Background())
			close(release)

			convey.Convey("Then the first failure is returned as a JobError", func() {
				var je *worker.JobError
				convey.So(errors.As(err, &je), convey.ShouldBeTrue)
				convey.So(je.Job.Index, convey.ShouldEqual, 0)
				convey.So(errors.Is(err, boom), convey.ShouldBeTrue)
			})

			convey.Convey("Then pending jobs are not started", func() {
				convey.So(started.Load(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When one job is stuck on a pool of two workers", func() {
			release := make(chan struct{})
			var done sync.Map
			proc := worker.ProcessorFunc(func(ctx context.Context, job queue.Job) error {
				if job.Index == 0 {
					<-release
				}
				done.Store(job.Index, true)
				return nil
			})
			q := newMockQueue(jobs(3)...)
			q.Close()
			result := make(chan error, 1)
			go func() { result <- worker.NewPool(2, q, proc).Run(context.Background()) }()

			finished := func(i int) bool { _, ok := done.Load(i); return ok }
			deadline := time.Now().Add(2 * time.Second)
			for !(finished(1) && finished(2)) && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			otherJobsDone := finished(1) && finished(2)
			close(release)

			convey.Convey("Then the other jobs complete on the free worker", func() {
				convey.So(otherJobsDone, convey.ShouldBeTrue)
				convey.So(<-result, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the parent context is canceled with no failures", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err := worker.NewPool(2, newMockQueue(), newRecorder()).Run(ctx)

			convey.Convey("Then the context error is returned", func() {
				convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
			})
		})
	})
}
