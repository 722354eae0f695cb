package worker

import (
	"errors"
	"fmt"

	"github.com/okian/icetrack/internal/adapters/mq/queue"
)

// ErrUnknownPolicy is returned by ParsePolicy.
var ErrUnknownPolicy = errors.New("unknown failure policy")

// JobError ties a processing failure to its job.
type JobError struct {
	Job queue.Job
	Err error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("%s: %v", e.Job.Path, e.Err)
}

func (e *JobError) Unwrap() error { return e.Err }
