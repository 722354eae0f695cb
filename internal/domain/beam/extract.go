// Package beam turns ATL10 beam groups into line geometries.
package beam

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/okian/icetrack/internal/granule"
)

// Outcome classifies a single beam extraction.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeEmptyInput
	OutcomeInvalidGeometry
	OutcomeOther
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeEmptyInput:
		return "empty_input"
	case OutcomeInvalidGeometry:
		return "invalid_geometry"
	default:
		return "other"
	}
}

// Skippable reports whether the selector may drop the beam and continue.
func (o Outcome) Skippable() bool {
	return o == OutcomeEmptyInput || o == OutcomeInvalidGeometry
}

// Extraction is the result of extracting one beam. Line is set only when
// Outcome is OutcomeOK; Err is set otherwise.
type Extraction struct {
	Beam    string
	Outcome Outcome
	Line    orb.LineString
	Dropped int // sampled points discarded as non-geographic
	Err     error
}

// Classify maps an extraction error to its Outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrEmptyInput):
		return OutcomeEmptyInput
	case errors.Is(err, ErrInvalidGeometry):
		return OutcomeInvalidGeometry
	default:
		return OutcomeOther
	}
}

// Extract reads <group>/freeboard_segment/{longitude,latitude} from g and
// builds a line from every every-th coordinate pair.
func Extract(g *granule.Granule, group string, every int) Extraction {
	ex := Extraction{Beam: group}
	if every < 1 {
		ex.Outcome, ex.Err = OutcomeOther, fmt.Errorf("%w: got %d", ErrInvalidStride, every)
		return ex
	}
	data, err := g.Beam(group)
	if err != nil {
		ex.Outcome, ex.Err = OutcomeOther, err
		return ex
	}
	ex.Beam = data.Name
	ex.Line, ex.Dropped, ex.Err = buildLine(data.Longitude, data.Latitude, every)
	if ex.Err != nil {
		ex.Err = fmt.Errorf("%s: %s: %w", g.Source(), data.Name, ex.Err)
		ex.Line = nil
	}
	ex.Outcome = Classify(ex.Err)
	return ex
}

// BuildLine samples indices 0, every, 2*every, ... of both sequences and
// pairs them as (lon, lat). Samples that are not geographic coordinates
// (NaN, infinite, or out of range such as the ATL10 fill value) are dropped,
// so the line has ceil(len/every) points less the dropped ones. It must keep
// at least two distinct points.
func BuildLine(lon, lat []float64, every int) (orb.LineString, error) {
	ls, _, err := buildLine(lon, lat, every)
	return ls, err
}

func buildLine(lon, lat []float64, every int) (orb.LineString, int, error) {
	if every < 1 {
		return nil, 0, fmt.Errorf("%w: got %d", ErrInvalidStride, every)
	}
	lonS, latS := Subsample(lon, every), Subsample(lat, every)
	if len(lonS) == 0 || len(latS) == 0 {
		return nil, 0, ErrEmptyInput
	}
	if len(lonS) != len(latS) {
		return nil, 0, fmt.Errorf("%w: %d and %d", ErrLengthMismatch, len(lon), len(lat))
	}

	ls := make(orb.LineString, 0, len(lonS))
	distinct := false
	for i := range lonS {
		p := orb.Point{lonS[i], latS[i]}
		if !validPoint(p) {
			continue
		}
		if len(ls) > 0 && !p.Equal(ls[0]) {
			distinct = true
		}
		ls = append(ls, p)
	}
	dropped := len(lonS) - len(ls)
	if !distinct {
		return nil, dropped, fmt.Errorf("%w: %d sampled points, %d not geographic, fewer than two distinct remain",
			ErrInvalidGeometry, len(lonS), dropped)
	}
	return ls, dropped, nil
}

// Subsample returns values[0], values[every], ... as a new slice.
func Subsample(values []float64, every int) []float64 {
	if every < 1 || len(values) == 0 {
		return nil
	}
	out := make([]float64, 0, (len(values)+every-1)/every)
	for i := 0; i < len(values); i += every {
		out = append(out, values[i])
	}
	return out
}

func validPoint(p orb.Point) bool {
	lon, lat := p[0], p[1]
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return false
	}
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}
