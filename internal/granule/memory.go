package granule

import (
	"fmt"
	"sync/atomic"
)

// Memory is an in-memory Store. It backs fixtures and tests, and any
// granule assembled without a file on disk.
type Memory struct {
	groups   map[string]struct{}
	attrs    map[string]map[string]any
	datasets map[string][]float64
	closed   atomic.Bool
}

// NewMemory returns an empty store holding only the root group.
func NewMemory() *Memory {
	return &Memory{
		groups:   map[string]struct{}{"/": {}},
		attrs:    make(map[string]map[string]any),
		datasets: make(map[string][]float64),
	}
}

// WithGroup adds a group and its ancestors.
func (m *Memory) WithGroup(p string) *Memory {
	for p = cleanPath(p); ; p = parent(p) {
		m.groups[p] = struct{}{}
		if p == "/" {
			return m
		}
	}
}

// WithAttr sets an attribute on the object at p. An error value makes Attr
// fail with it, as an undecodable attribute would.
func (m *Memory) WithAttr(p, name string, value any) *Memory {
	p = cleanPath(p)
	if m.attrs[p] == nil {
		m.attrs[p] = make(map[string]any)
	}
	m.attrs[p][name] = value
	return m
}

// WithDataset stores values at p and creates the parent groups.
func (m *Memory) WithDataset(p string, values []float64) *Memory {
	p = cleanPath(p)
	m.WithGroup(parent(p))
	m.datasets[p] = values
	return m
}

// WithBeam adds a beam group with its type attribute and coordinates.
func (m *Memory) WithBeam(group, beamType string, lon, lat []float64) *Memory {
	group = cleanPath(group)
	m.WithGroup(group).WithAttr(group, AttrBeamType, beamType)
	m.WithDataset(group+"/"+FreeboardSegment+"/"+LongitudeDataset, lon)
	m.WithDataset(group+"/"+FreeboardSegment+"/"+LatitudeDataset, lat)
	return m
}

// Groups implements Store.
func (m *Memory) Groups() []string {
	out := make([]string, 0, len(m.groups))
	for g := range m.groups {
		out = append(out, g)
	}
	return out
}

// Attr implements Store.
func (m *Memory) Attr(objPath, name string) (any, error) {
	v, ok := m.attrs[cleanPath(objPath)][name]
	if !ok {
		return nil, fmt.Errorf("%w: attribute %s on %s", ErrNotFound, name, cleanPath(objPath))
	}
	if err, ok := v.(error); ok {
		return nil, fmt.Errorf("read attribute %s on %s: %w", name, cleanPath(objPath), err)
	}
	return v, nil
}

// Float64s implements Store.
func (m *Memory) Float64s(dsPath string) ([]float64, error) {
	if m.closed.Load() {
		return nil, fmt.Errorf("read %s: store closed", dsPath)
	}
	v, ok := m.datasets[cleanPath(dsPath)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, dsPath)
	}
	return append([]float64(nil), v...), nil
}

// Close implements Store.
func (m *Memory) Close() error {
	m.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool { return m.closed.Load() }

func parent(p string) string {
	for i := len(p) - 1; i > 0; i-- {
		if p[i] == '/' {
			return p[:i]
		}
	}
	return "/"
}
