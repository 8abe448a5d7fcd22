package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrSkipLimitExceeded matches *SkipLimitExceededError with errors.Is.
	ErrSkipLimitExceeded = errors.New("skip limit exceeded")

	// ErrExecutionLog is returned when a chunk was committed but its
	// execution log entry could not be written.
	ErrExecutionLog = errors.New("execution log append failed")

	// ErrCheckpointBeyondInput is returned on resume when the input holds
	// fewer records than the checkpoint says were already read.
	ErrCheckpointBeyondInput = errors.New("input ended before checkpoint position")
)

// SkipLimitExceededError aborts a run once more records were rejected than
// the configured skip limit allows.
type SkipLimitExceededError struct {
	Limit      int
	Count      int
	LastReason string
}

func (e *SkipLimitExceededError) Error() string {
	return fmt.Sprintf("skip limit exceeded: %d skipped records, limit %d (last: %s)",
		e.Count, e.Limit, e.LastReason)
}

func (e *SkipLimitExceededError) Is(target error) bool {
	return target == ErrSkipLimitExceeded
}
