// Package granule gives typed access to ATL10 granule files.
//
// A Store is the raw hierarchical view (groups, attributes, numeric
// datasets). Granule wraps a Store and validates the fixed ATL10 paths the
// beam pipeline relies on.
package granule

import (
	"context"
	"path"
	"strings"
)

// Store is the raw hierarchical view of an opened granule file.
type Store interface {
	// Groups lists every group path in the file, including "/".
	Groups() []string
	// Attr returns the named attribute of the group or dataset at objPath.
	// A missing object or attribute is reported as ErrNotFound.
	Attr(objPath, name string) (any, error)
	// Float64s reads the dataset at dsPath as float64 values.
	Float64s(dsPath string) ([]float64, error)
	// Close releases the underlying file.
	Close() error
}

// Opener opens granule files by path.
type Opener interface {
	Open(ctx context.Context, path string) (*Granule, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, path string) (*Granule, error)

// Open calls f(ctx, path).
func (f OpenerFunc) Open(ctx context.Context, path string) (*Granule, error) { return f(ctx, path) }

// cleanPath normalises object paths to "/a/b" form.
func cleanPath(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
