package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/okian/icetrack/internal/adapters/mq/worker"
	"github.com/okian/icetrack/internal/config"
	"github.com/okian/icetrack/internal/domain/dedupe"
	"github.com/okian/icetrack/internal/domain/geotable"
	"github.com/okian/icetrack/internal/domain/track"
	"github.com/okian/icetrack/pkg/logger"
	"github.com/okian/icetrack/pkg/metrics"
)

// Layer names used in the overlay file.
const (
	LayerBeams = "beams"
	LayerTrack = "track"
)

// Pipeline runs the configured beam batch, track processing and overlay.
type Pipeline struct {
	cfg   *config.Config
	svc   *Service
	track *track.Processor
	log   logger.Logger
}

// RunResult lists what a pipeline run produced.
type RunResult struct {
	Batch     BatchReport
	Beams     *geotable.Table
	Track     *geotable.Table
	Outputs   []string
	BatchErr  error // set under the collect policy when some granules failed
	NoGranule bool  // the granule glob matched nothing
}

// NewPipeline builds a pipeline from cfg. Extra options are applied to the
// Service after the configured ones.
func NewPipeline(cfg *config.Config, log logger.Logger, opts ...Option) (*Pipeline, error) {
	if log == nil {
		log = logger.Nop()
	}
	policy, err := worker.ParsePolicy(cfg.FailurePolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	dedupeKey, err := dedupe.KeyFunc(cfg.DedupeInputs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	proc, err := TrackProcessor(cfg, log)
	if err != nil {
		return nil, err
	}
	svcOpts := append([]Option{
		WithLogger(log),
		WithWorkerCount(cfg.WorkerCount),
		WithStride(cfg.Stride),
		WithFailurePolicy(policy),
		WithInputDedupe(dedupeKey),
	}, opts...)
	return &Pipeline{cfg: cfg, svc: New(svcOpts...), track: proc, log: log}, nil
}

// TrackProcessor builds a track processor from the configured floes.
func TrackProcessor(cfg *config.Config, log logger.Logger) (*track.Processor, error) {
	if log == nil {
		log = logger.Nop()
	}
	floes := make([]track.Floe, 0, len(cfg.Floes))
	for _, f := range cfg.Floes {
		start, end, err := f.Bounds()
		if err != nil {
			return nil, err
		}
		tf := track.Floe{ID: f.ID, Start: start, End: end}
		if err := tf.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
		}
		floes = append(floes, tf)
	}
	return track.NewProcessor(track.WithFloes(floes), track.WithLogger(log.Named("track"))), nil
}

// MetricsOptions maps the metrics keys of cfg to manager options.
func MetricsOptions(cfg *config.Config) []metrics.Option {
	return []metrics.Option{
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithHistogramBuckets(cfg.MetricsBuckets),
	}
}

// Service returns the granule service the pipeline drives.
func (p *Pipeline) Service() *Service { return p.svc }

// Run processes the granule glob into BeamsOutput, then, if TrackInput is
// set, the track into TrackOutput and the merged layers into OverlayOutput.
// Under the collect policy a partial beam table is still written and the
// batch error is returned alongside the result.
func (p *Pipeline) Run(ctx context.Context) (RunResult, error) {
	var res RunResult

	paths, err := filepath.Glob(p.cfg.Granules)
	if err != nil {
		return res, fmt.Errorf("%w: granules %q: %w", config.ErrInvalidConfig, p.cfg.Granules, err)
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		res.NoGranule = true
		p.log.Warn(ctx, "no granules matched", logger.String("glob", p.cfg.Granules))
	}

	beams, report, err := p.svc.ProcessBatch(ctx, paths)
	res.Batch = report
	if err != nil {
		if beams == nil {
			return res, err
		}
		res.BatchErr = err
	}
	res.Beams = beams
	if err := beams.WriteGeoJSON(p.cfg.BeamsOutput); err != nil {
		return res, err
	}
	res.Outputs = append(res.Outputs, p.cfg.BeamsOutput)
	p.log.Info(ctx, "beams written", logger.String("path", p.cfg.BeamsOutput), logger.Int("rows", beams.Len()))

	if p.cfg.TrackInput != "" {
		t, err := p.RunTrack(ctx)
		if err != nil {
			return res, errors.Join(res.BatchErr, err)
		}
		res.Track = t
		res.Outputs = append(res.Outputs, p.cfg.TrackOutput)

		if p.cfg.OverlayOutput != "" {
			overlay, err := geotable.Merge(
				geotable.Layer{Name: LayerBeams, Table: beams},
				geotable.Layer{Name: LayerTrack, Table: t},
			)
			if err != nil {
				return res, errors.Join(res.BatchErr, err)
			}
			if err := overlay.WriteGeoJSON(p.cfg.OverlayOutput); err != nil {
				return res, errors.Join(res.BatchErr, err)
			}
			res.Outputs = append(res.Outputs, p.cfg.OverlayOutput)
			p.log.Info(ctx, "overlay written", logger.String("path", p.cfg.OverlayOutput), logger.Int("rows", overlay.Len()))
		}
	}
	return res, res.BatchErr
}

// RunTrack processes TrackInput into TrackOutput.
func (p *Pipeline) RunTrack(ctx context.Context) (*geotable.Table, error) {
	if p.cfg.TrackInput == "" {
		return nil, fmt.Errorf("%w: track_input is empty", config.ErrInvalidConfig)
	}
	return p.track.ProcessFile(ctx, p.cfg.TrackInput, p.cfg.TrackOutput)
}
