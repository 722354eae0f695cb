package granule

import "errors"

// Sentinel kinds for granule access errors.
var (
	// ErrOpen reports that a granule file could not be opened or parsed.
	ErrOpen = errors.New("open granule failed")
	// ErrMalformedGranule reports a missing group, dataset or attribute at a
	// path the ATL10 layout requires, or coordinate arrays of unequal length.
	ErrMalformedGranule = errors.New("malformed granule")
	// ErrNotFound is returned by a Store for an unknown dataset path.
	ErrNotFound = errors.New("object not found")
)
