package service

import (
	"github.com/okian/icetrack/internal/adapters/mq/worker"
	"github.com/okian/icetrack/internal/granule"
	"github.com/okian/icetrack/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of granules processed concurrently.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithStride sets the coordinate sampling stride.
func WithStride(every int) Option {
	return func(s *Service) {
		s.stride = every
	}
}

// WithFailurePolicy sets how a batch reacts to a failed granule.
func WithFailurePolicy(p worker.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithInputDedupe drops repeated inputs from each batch, comparing them by
// key (see dedupe.KeyFunc). A nil key keeps every input, which is the
// default.
func WithInputDedupe(key func(string) string) Option {
	return func(s *Service) {
		s.dedupeKey = key
	}
}

// WithOpener replaces the HDF5 opener, e.g. with an in-memory one.
func WithOpener(o granule.Opener) Option {
	return func(s *Service) {
		if o != nil {
			s.opener = o
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
