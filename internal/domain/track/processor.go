// Package track reduces the Polarstern ship-position series to one noon
// fix per day while the ship drifted with an ice floe.
package track

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/paulmach/orb"

	"github.com/okian/icetrack/internal/domain/geotable"
	"github.com/okian/icetrack/pkg/logger"
	"github.com/okian/icetrack/pkg/metrics"
)

// ColumnFloe holds the floe id of each kept row.
const ColumnFloe = "Floe"

// Default daily sample time, UTC.
const (
	DefaultSampleHour   = 12
	DefaultSampleMinute = 0
)

// Processor filters and tags track records.
type Processor struct {
	floes  []Floe
	hour   int
	minute int
	logger logger.Logger
}

// NewProcessor creates a Processor with DefaultFloes and a 12:00 sample.
func NewProcessor(opts ...Option) *Processor {
	p := &Processor{
		floes:  DefaultFloes(),
		hour:   DefaultSampleHour,
		minute: DefaultSampleMinute,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Floes returns the configured intervals.
func (p *Processor) Floes() []Floe { return append([]Floe(nil), p.floes...) }

// Sampled reports whether t is at the daily sample time. Only hour and
// minute are compared, so 12:00:30 counts as the noon reading.
func (p *Processor) Sampled(t time.Time) bool {
	t = t.UTC()
	return t.Hour() == p.hour && t.Minute() == p.minute
}

// Process keeps the sampled records that fall on a floe and returns them as
// points with every source column plus Floe.
func (p *Processor) Process(ctx context.Context, d *Data) (*geotable.Table, error) {
	cols := make([]string, 0, len(d.Columns)+2)
	if d.Index != "" {
		cols = append(cols, d.Index)
	}
	cols = append(cols, d.Columns...)
	cols = append(cols, ColumnFloe)
	table := geotable.New(geotable.CRS4326, cols...)

	for i, rec := range d.Records {
		if !p.Sampled(rec.Time) {
			continue
		}
		floe := AssignFloe(p.floes, rec.Time)
		if floe == 0 {
			continue
		}
		if !finite(rec.Longitude) || !finite(rec.Latitude) {
			return nil, fmt.Errorf("%w: record %d at %s has non-finite position", ErrParseValue, i, rec.Time.Format(time.RFC3339))
		}
		props := make(map[string]any, len(rec.Values)+2)
		for k, v := range rec.Values {
			props[k] = v
		}
		if d.Index != "" {
			props[d.Index] = rec.Time.Format("2006-01-02T15:04:05")
		}
		props[ColumnFloe] = floe
		table.Rows = append(table.Rows, geotable.Row{
			Geometry:   orb.Point{rec.Longitude, rec.Latitude},
			Properties: props,
		})
	}

	metrics.RecordTrackRows(len(d.Records), table.Len())
	p.logger.Info(ctx, "track processed",
		logger.Int("rows_read", len(d.Records)),
		logger.Int("rows_kept", table.Len()),
	)
	return table, nil
}

// ProcessFile reads the track at in, processes it and writes GeoJSON to out.
func (p *Processor) ProcessFile(ctx context.Context, in, out string) (*geotable.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := ReadFile(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in, err)
	}
	table, err := p.Process(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in, err)
	}
	if err := table.WriteGeoJSON(out); err != nil {
		return nil, err
	}
	p.logger.Info(ctx, "track written", logger.String("path", out), logger.Int("rows", table.Len()))
	return table, nil
}

// ReadGeoJSON loads a processed track written by ProcessFile.
func ReadGeoJSON(path string) (*geotable.Table, error) {
	return geotable.ReadGeoJSON(path)
}

// FloeIDs returns the Floe column as ints. JSON-decoded tables carry
// numbers as float64.
func FloeIDs(t *geotable.Table) []int {
	out := make([]int, t.Len())
	for i, r := range t.Rows {
		switch v := r.Properties[ColumnFloe].(type) {
		case int:
			out[i] = v
		case float64:
			out[i] = int(v)
		}
	}
	return out
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
