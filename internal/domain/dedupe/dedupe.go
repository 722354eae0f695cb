// Package dedupe drops repeated input granules from a batch when asked to.
package dedupe

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// Key modes select what makes two inputs the same granule.
const (
	KeyNone = "none" // keep every input
	KeyPath = "path" // same cleaned path
	KeyName = "name" // same file name in any directory
)

// Deduper records seen keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Size returns the number of distinct keys recorded.
	Size() int
}

type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	keyFunc func(string) string
}

// NewInMemoryDeduper creates a map-backed deduper. Keys are normalized with
// CleanPath unless WithKeyFunc says otherwise.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		seen:    make(map[string]struct{}),
		keyFunc: CleanPath,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	k := d.keyFunc(key)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[k]; ok {
		return true
	}
	d.seen[k] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// CleanPath normalizes a file path so "a/./b.h5" and "a/b.h5" collide.
func CleanPath(p string) string {
	return filepath.Clean(p)
}

// BaseName keys a path by its file name. ATL10 file names are unique per
// granule, so copies in different directories collide.
func BaseName(p string) string {
	return filepath.Base(p)
}

// KeyFunc returns the key function for mode. KeyNone and "" return nil,
// meaning inputs are not deduplicated.
func KeyFunc(mode string) (func(string) string, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", KeyNone:
		return nil, nil
	case KeyPath:
		return CleanPath, nil
	case KeyName:
		return BaseName, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKeyMode, mode)
	}
}

// Paths returns paths with later duplicates removed, keeping first-seen
// order, and the duplicates that were dropped.
func Paths(ctx context.Context, d Deduper, paths []string) (unique, dropped []string) {
	unique = make([]string, 0, len(paths))
	for _, p := range paths {
		if d.SeenAndRecord(ctx, p) {
			dropped = append(dropped, p)
			continue
		}
		unique = append(unique, p)
	}
	return unique, dropped
}
