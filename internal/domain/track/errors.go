package track

import "errors"

// Sentinel kinds for track processing errors.
var (
	ErrRead           = errors.New("read track file")
	ErrMissingColumn  = errors.New("missing column")
	ErrParseTimestamp = errors.New("unparseable timestamp")
	ErrParseValue     = errors.New("unparseable value")
	ErrInvalidFloe    = errors.New("invalid floe interval")
)
