package dedupe

import "errors"

// ErrUnknownKeyMode reports a dedupe mode other than none, path or name.
var ErrUnknownKeyMode = errors.New("unknown dedupe key mode")
