package worker

import (
	"github.com/okian/icetrack/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// withReporter routes job failures to the owning pool.
func withReporter(report func(JobError)) Option {
	return func(w *InMemoryWorker) {
		w.report = report
	}
}

// PoolOption applies a configuration option to the Pool.
type PoolOption func(*Pool)

// WithPolicy sets how the pool reacts to a failed job.
func WithPolicy(p Policy) PoolOption {
	return func(pool *Pool) {
		pool.policy = p
	}
}

// WithPoolLogger sets the logger of the pool and its workers.
func WithPoolLogger(l logger.Logger) PoolOption {
	return func(pool *Pool) {
		if l != nil {
			pool.logger = l
		}
	}
}
