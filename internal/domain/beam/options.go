package beam

import "github.com/okian/icetrack/pkg/logger"

// Option applies a configuration option to the Selector.
type Option func(*Selector)

// WithStride sets the sampling stride. Values below 1 are kept so that
// extraction reports ErrInvalidStride instead of silently defaulting.
func WithStride(every int) Option {
	return func(s *Selector) {
		s.every = every
	}
}

// WithLogger sets the logger used for skipped-beam diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.logger = l
		}
	}
}
