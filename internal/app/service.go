// Package service drives the beam pipeline over granule files: one file at
// a time, or a batch of files on a bounded worker pool.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/icetrack/internal/adapters/mq/queue"
	"github.com/okian/icetrack/internal/adapters/mq/worker"
	"github.com/okian/icetrack/internal/domain/beam"
	"github.com/okian/icetrack/internal/domain/dedupe"
	"github.com/okian/icetrack/internal/domain/geotable"
	"github.com/okian/icetrack/internal/granule"
	"github.com/okian/icetrack/pkg/logger"
	"github.com/okian/icetrack/pkg/metrics"
	"github.com/okian/icetrack/pkg/tracing"
)

// Service extracts strong-beam lines from granule files.
type Service struct {
	workerCount int
	stride      int
	policy      worker.Policy
	opener      granule.Opener
	selector    *beam.Selector
	dedupeKey   func(string) string

	logger logger.Logger
}

// New constructs a Service. Defaults: worker.DefaultWorkerCount workers,
// beam.DefaultStride, fail-fast batches, HDF5 files.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: worker.DefaultWorkerCount,
		stride:      beam.DefaultStride,
		policy:      worker.FailFast,
		opener:      granule.HDF5Opener{},
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.selector = beam.NewSelector(
		beam.WithStride(s.stride),
		beam.WithLogger(s.logger.Named("selector")),
	)
	return s
}

// ProcessGranule runs the beam selector over an already opened granule.
func (s *Service) ProcessGranule(ctx context.Context, g *granule.Granule) (*geotable.Table, beam.Summary, error) {
	return s.selector.Select(ctx, g)
}

// ProcessFile opens path, extracts its strong-beam table and closes the file
// before returning, on every path.
func (s *Service) ProcessFile(ctx context.Context, path string) (_ *geotable.Table, err error) {
	ctx, span := tracing.Tracer().Start(ctx, "granule.process",
		trace.WithAttributes(attribute.String("granule.path", path)))
	defer span.End()

	start := time.Now()
	defer func() {
		if err != nil {
			metrics.RecordGranuleFailed()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		metrics.RecordGranuleProcessed(time.Since(start).Seconds())
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g, err := s.opener.Open(ctx, path)
	if err != nil {
		metrics.RecordError("service", "open")
		return nil, err
	}
	defer func() {
		if cerr := g.Close(); cerr != nil {
			s.logger.Warn(ctx, "closing granule failed", logger.String("path", path), logger.Error(cerr))
			if err == nil {
				err = fmt.Errorf("close %s: %w", path, cerr)
			}
		}
	}()

	table, sum, err := s.ProcessGranule(ctx, g)
	if err != nil {
		metrics.RecordError("service", "select")
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("beams.strong", sum.Strong),
		attribute.Int("beams.extracted", sum.Extracted),
		attribute.Int("beams.skipped", sum.Skipped),
	)
	s.logger.Debug(ctx, "granule processed",
		logger.String("path", path),
		logger.Int("rows", table.Len()),
		logger.Duration("elapsed", time.Since(start)),
	)
	return table, nil
}

// BatchReport summarizes one ProcessBatch call.
type BatchReport struct {
	RunID      string
	Files      int      // files scheduled
	Duplicates []string // inputs dropped by input dedupe
	Failed     []string // files whose processing returned an error
	Rows       int
	Duration   time.Duration
}

// ProcessBatch processes every path on the worker pool and concatenates the
// per-file tables in input order. A path given twice contributes its rows
// twice unless WithInputDedupe is set.
//
// Under worker.FailFast the first failure cancels pending files and no table
// is returned. Under worker.Collect every file runs and the table of the
// successful ones is returned together with an error naming each failure.
// Both errors wrap ErrBatchFailed.
func (s *Service) ProcessBatch(ctx context.Context, paths []string) (*geotable.Table, BatchReport, error) {
	report := BatchReport{RunID: uuid.NewString()}
	log := s.logger.Named("batch").With(logger.String("run_id", report.RunID))

	ctx, span := tracing.Tracer().Start(ctx, "granule.batch",
		trace.WithAttributes(
			attribute.String("batch.run_id", report.RunID),
			attribute.Int("batch.inputs", len(paths)),
		))
	defer span.End()

	start := time.Now()
	unique := paths
	if s.dedupeKey != nil {
		d := dedupe.NewInMemoryDeduper(dedupe.WithKeyFunc(s.dedupeKey))
		unique, report.Duplicates = dedupe.Paths(ctx, d, paths)
		for _, dup := range report.Duplicates {
			log.Warn(ctx, "duplicate input skipped", logger.String("path", dup))
		}
		log.Debug(ctx, "inputs deduplicated", logger.Int("distinct", d.Size()), logger.Int("dropped", len(report.Duplicates)))
	}
	report.Files = len(unique)
	log.Info(ctx, "batch started",
		logger.Int("files", report.Files),
		logger.Int("workers", s.workerCount),
		logger.String("policy", s.policy.String()),
	)

	results := make([]*geotable.Table, len(unique))
	failed := make([]bool, len(unique))

	q := queue.NewInMemoryQueue(queue.WithCapacity(max(len(unique), 1)))
	for i, p := range unique {
		if err := q.Enqueue(ctx, queue.Job{Index: i, Path: p}); err != nil {
			_ = q.Close()
			return nil, report, fmt.Errorf("%w: schedule %s: %w", ErrBatchFailed, p, err)
		}
	}
	_ = q.Close()

	proc := worker.ProcessorFunc(func(ctx context.Context, job queue.Job) error {
		t, err := s.ProcessFile(ctx, job.Path)
		if err != nil {
			failed[job.Index] = true
			return err
		}
		results[job.Index] = t
		return nil
	})
	pool := worker.NewPool(s.workerCount, q, proc,
		worker.WithPolicy(s.policy),
		worker.WithPoolLogger(log),
	)
	runErr := pool.Run(ctx)

	for i, f := range failed {
		if f {
			report.Failed = append(report.Failed, unique[i])
		}
	}
	report.Duration = time.Since(start)

	if runErr != nil && (s.policy == worker.FailFast || !isJobFailure(runErr)) {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		log.Error(ctx, "batch aborted", logger.Error(runErr), logger.Duration("elapsed", report.Duration))
		return nil, report, fmt.Errorf("%w: %w", ErrBatchFailed, runErr)
	}

	parts := append([]*geotable.Table{geotable.New(geotable.CRS4326, beam.ColumnBeam, beam.ColumnFileDate)}, results...)
	table, err := geotable.Concat(parts...)
	if err != nil {
		return nil, report, fmt.Errorf("%w: %w", ErrBatchFailed, err)
	}
	report.Rows = table.Len()
	metrics.RecordBatch(report.Duration.Seconds(), report.Rows)
	span.SetAttributes(attribute.Int("batch.rows", report.Rows), attribute.Int("batch.failed", len(report.Failed)))

	log.Info(ctx, "batch finished",
		logger.Int("rows", report.Rows),
		logger.Int("failed", len(report.Failed)),
		logger.Duration("elapsed", report.Duration),
	)
	if runErr != nil {
		span.SetStatus(codes.Error, "partial batch")
		return table, report, fmt.Errorf("%w: %w", ErrBatchFailed, runErr)
	}
	return table, report, nil
}

func isJobFailure(err error) bool {
	var je *worker.JobError
	return errors.As(err, &je)
}
