package track

import "github.com/okian/icetrack/pkg/logger"

// Option applies a configuration option to the Processor.
type Option func(*Processor)

// WithFloes replaces the default floe intervals. An empty list is ignored.
func WithFloes(floes []Floe) Option {
	return func(p *Processor) {
		if len(floes) > 0 {
			p.floes = append([]Floe(nil), floes...)
		}
	}
}

// WithSampleTime sets the UTC hour and minute kept from each day.
func WithSampleTime(hour, minute int) Option {
	return func(p *Processor) {
		p.hour, p.minute = hour, minute
	}
}

// WithLogger sets a custom logger for the processor.
func WithLogger(l logger.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}
