package granule

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

// ATL10 layout constants.
const (
	AttrCoverageStart = "time_coverage_start"
	AttrBeamType      = "atlas_beam_type"
	FreeboardSegment  = "freeboard_segment"
	LongitudeDataset  = "longitude"
	LatitudeDataset   = "latitude"
)

// BeamType classifies a beam by laser power.
type BeamType int

const (
	BeamUnknown BeamType = iota
	BeamWeak
	BeamStrong
)

// ParseBeamType maps an atlas_beam_type attribute value to a BeamType.
func ParseBeamType(s string) BeamType {
	switch strings.TrimSpace(s) {
	case "strong":
		return BeamStrong
	case "weak":
		return BeamWeak
	default:
		return BeamUnknown
	}
}

func (t BeamType) String() string {
	switch t {
	case BeamStrong:
		return "strong"
	case BeamWeak:
		return "weak"
	default:
		return "unknown"
	}
}

// BeamData is the typed content of one beam group.
type BeamData struct {
	Name      string
	Longitude []float64
	Latitude  []float64
	Type      BeamType
	Strong    bool
}

// Granule is an opened granule file. It is not safe for concurrent use.
type Granule struct {
	source string
	store  Store
}

// New wraps store; source names the file in errors and logs.
func New(source string, store Store) *Granule {
	return &Granule{source: source, store: store}
}

// Source returns the file path or label the granule was opened from.
func (g *Granule) Source() string { return g.source }

// Groups returns every group path in sorted order.
func (g *Granule) Groups() []string {
	groups := append([]string(nil), g.store.Groups()...)
	sort.Strings(groups)
	return groups
}

// CoverageStart returns the root time_coverage_start attribute.
func (g *Granule) CoverageStart() (string, error) {
	return g.stringAttr("/", AttrCoverageStart)
}

// BeamType reads the atlas_beam_type attribute of group.
func (g *Granule) BeamType(group string) (BeamType, error) {
	s, err := g.stringAttr(group, AttrBeamType)
	if err != nil {
		return BeamUnknown, err
	}
	return ParseBeamType(s), nil
}

// Beam reads the freeboard-segment coordinates of group.
func (g *Granule) Beam(group string) (BeamData, error) {
	bt, err := g.BeamType(group)
	if err != nil {
		return BeamData{}, err
	}
	lon, err := g.dataset(group, LongitudeDataset)
	if err != nil {
		return BeamData{}, err
	}
	lat, err := g.dataset(group, LatitudeDataset)
	if err != nil {
		return BeamData{}, err
	}
	if len(lon) != len(lat) {
		return BeamData{}, fmt.Errorf("%w: %s: %s has %d longitudes and %d latitudes",
			ErrMalformedGranule, g.source, group, len(lon), len(lat))
	}
	return BeamData{
		Name:      cleanPath(group),
		Longitude: lon,
		Latitude:  lat,
		Type:      bt,
		Strong:    bt == BeamStrong,
	}, nil
}

// Close releases the underlying file.
func (g *Granule) Close() error {
	return g.store.Close()
}

func (g *Granule) dataset(group, name string) ([]float64, error) {
	p := path.Join(cleanPath(group), FreeboardSegment, name)
	vals, err := g.store.Float64s(p)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s: missing dataset %s", ErrMalformedGranule, g.source, p)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %s: %w", p, g.source, err)
	}
	return vals, nil
}

func (g *Granule) stringAttr(obj, name string) (string, error) {
	v, err := g.store.Attr(cleanPath(obj), name)
	if errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("%w: %s: missing attribute %s on %s", ErrMalformedGranule, g.source, name, cleanPath(obj))
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", g.source, err)
	}
	s, ok := attrString(v)
	if !ok {
		return "", fmt.Errorf("%w: %s: attribute %s on %s is %T, not a string", ErrMalformedGranule, g.source, name, cleanPath(obj), v)
	}
	return s, nil
}

// attrString accepts the shapes HDF5 string attributes decode to.
func attrString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimRight(t, "\x00"), true
	case []byte:
		return strings.TrimRight(string(t), "\x00"), true
	case []string:
		if len(t) == 0 {
			return "", false
		}
		return strings.TrimRight(t[0], "\x00"), true
	default:
		return "", false
	}
}
