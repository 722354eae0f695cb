package beam

import "errors"

// Sentinel kinds for beam extraction. ErrEmptyInput and ErrInvalidGeometry
// are recoverable: the selector skips the beam and moves on.
var (
	ErrEmptyInput      = errors.New("empty coordinate sequence")
	ErrInvalidGeometry = errors.New("degenerate line geometry")
	ErrInvalidStride   = errors.New("stride must be at least 1")
	ErrLengthMismatch  = errors.New("longitude and latitude lengths differ")
)
