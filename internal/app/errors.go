package service

import "errors"

// ErrBatchFailed wraps the per-file failures of a batch run.
var ErrBatchFailed = errors.New("batch failed")
