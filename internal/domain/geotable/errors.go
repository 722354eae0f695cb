package geotable

import "errors"

// Sentinel kinds for table errors.
var (
	ErrCRSMismatch = errors.New("coordinate reference systems differ")
	ErrDecode      = errors.New("decode geojson failed")
	ErrWrite       = errors.New("write geojson failed")
)
