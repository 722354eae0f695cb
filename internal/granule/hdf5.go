package granule

import (
	"context"
	"fmt"
	"strings"

	"github.com/scigolib/hdf5"
)

// hdf5Store indexes the groups and datasets of an HDF5 file once at open.
type hdf5Store struct {
	file     *hdf5.File
	groups   map[string]*hdf5.Group
	datasets map[string]*hdf5.Dataset
}

// HDF5Opener opens granules with the pure-Go HDF5 reader.
type HDF5Opener struct{}

// Open implements Opener. The returned Granule owns the file handle.
func (HDF5Opener) Open(ctx context.Context, path string) (*Granule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}
	s := &hdf5Store{
		file:     f,
		groups:   make(map[string]*hdf5.Group),
		datasets: make(map[string]*hdf5.Dataset),
	}
	f.Walk(func(objPath string, obj hdf5.Object) {
		p := cleanPath(strings.TrimSuffix(objPath, "/"))
		switch v := obj.(type) {
		case *hdf5.Group:
			s.groups[p] = v
		case *hdf5.Dataset:
			s.datasets[p] = v
		}
	})
	return New(path, s), nil
}

func (s *hdf5Store) Groups() []string {
	out := make([]string, 0, len(s.groups))
	for p := range s.groups {
		out = append(out, p)
	}
	return out
}

func (s *hdf5Store) Attr(objPath, name string) (any, error) {
	objPath = cleanPath(objPath)
	if g, ok := s.groups[objPath]; ok {
		attrs, err := g.Attributes()
		if err != nil {
			return nil, fmt.Errorf("read attributes of %s: %w", objPath, err)
		}
		for _, a := range attrs {
			if a.Name == name {
				return decodeAttr(objPath, name, a.ReadValue)
			}
		}
		return nil, fmt.Errorf("%w: attribute %s on %s", ErrNotFound, name, objPath)
	}
	if ds, ok := s.datasets[objPath]; ok {
		attrs, err := ds.Attributes()
		if err != nil {
			return nil, fmt.Errorf("read attributes of %s: %w", objPath, err)
		}
		for _, a := range attrs {
			if a.Name == name {
				return decodeAttr(objPath, name, a.ReadValue)
			}
		}
	}
	return nil, fmt.Errorf("%w: attribute %s on %s", ErrNotFound, name, objPath)
}

// decodeAttr reads an attribute value. Variable-length strings and some
// integer widths are not decodable and surface here by name.
func decodeAttr(objPath, name string, read func() (any, error)) (any, error) {
	v, err := read()
	if err != nil {
		return nil, fmt.Errorf("decode attribute %s on %s: %w", name, objPath, err)
	}
	return v, nil
}

func (s *hdf5Store) Float64s(dsPath string) ([]float64, error) {
	ds, ok := s.datasets[cleanPath(dsPath)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, dsPath)
	}
	vals, err := ds.Read()
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", dsPath, err)
	}
	return vals, nil
}

func (s *hdf5Store) Close() error {
	return s.file.Close()
}
