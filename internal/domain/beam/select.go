package beam

import (
	"context"
	"fmt"
	"regexp"

	"github.com/okian/icetrack/internal/domain/geotable"
	"github.com/okian/icetrack/internal/granule"
	"github.com/okian/icetrack/pkg/logger"
	"github.com/okian/icetrack/pkg/metrics"
)

// Output columns of the beam table.
const (
	ColumnBeam     = "beam"
	ColumnFileDate = "file_date"
)

// DefaultStride samples every 1000th freeboard segment.
const DefaultStride = 1000

// groupPattern matches beam groups: "/gt" followed by exactly two characters
// at the end of the path, e.g. /gt1l or /gt3r.
var groupPattern = regexp.MustCompile(`/gt.{2}$`)

// IsBeamGroup reports whether a group path names a beam.
func IsBeamGroup(name string) bool {
	return groupPattern.MatchString(name)
}

// Summary counts what the selector saw in one granule.
type Summary struct {
	Candidates int // groups matching the beam pattern
	Strong     int
	Extracted  int
	Skipped    int
}

// Selector extracts strong-beam lines from granules.
type Selector struct {
	every  int
	logger logger.Logger
}

// NewSelector creates a Selector with DefaultStride.
func NewSelector(opts ...Option) *Selector {
	s := &Selector{every: DefaultStride}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Nop()
	}
	return s
}

// Stride returns the configured sampling stride.
func (s *Selector) Stride() int { return s.every }

// Select returns one row per strong beam of g whose coordinates form a
// valid line. Empty and degenerate beams are logged and skipped; any other
// failure aborts the granule.
func (s *Selector) Select(ctx context.Context, g *granule.Granule) (*geotable.Table, Summary, error) {
	var sum Summary
	table := geotable.New(geotable.CRS4326, ColumnBeam, ColumnFileDate)

	var fileDate string
	haveDate := false

	for _, group := range g.Groups() {
		if !IsBeamGroup(group) {
			continue
		}
		sum.Candidates++

		bt, err := g.BeamType(group)
		if err != nil {
			return nil, sum, err
		}
		if bt != granule.BeamStrong {
			continue
		}
		sum.Strong++

		ex := Extract(g, group, s.every)
		switch {
		case ex.Outcome == OutcomeOK:
			if ex.Dropped > 0 {
				s.logger.Debug(ctx, "dropped non-geographic samples",
					logger.String("granule", g.Source()),
					logger.String("beam", ex.Beam),
					logger.Int("dropped", ex.Dropped),
				)
			}
		case ex.Outcome.Skippable():
			sum.Skipped++
			metrics.RecordBeamSkipped(ex.Outcome.String())
			s.logger.Warn(ctx, "skipping beam",
				logger.String("granule", g.Source()),
				logger.String("beam", group),
				logger.String("reason", ex.Outcome.String()),
				logger.Error(ex.Err),
			)
			continue
		default:
			return nil, sum, fmt.Errorf("extract %s: %w", group, ex.Err)
		}

		if !haveDate {
			if fileDate, err = g.CoverageStart(); err != nil {
				return nil, sum, err
			}
			haveDate = true
		}
		table.Append(ex.Line, map[string]any{
			ColumnBeam:     ex.Beam,
			ColumnFileDate: fileDate,
		})
		sum.Extracted++
		metrics.RecordBeamExtracted()
	}

	s.logger.Debug(ctx, "granule beams selected",
		logger.String("granule", g.Source()),
		logger.Int("candidates", sum.Candidates),
		logger.Int("strong", sum.Strong),
		logger.Int("extracted", sum.Extracted),
		logger.Int("skipped", sum.Skipped),
	)
	return table, sum, nil
}
