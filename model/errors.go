package model

import (
	"errors"
	"fmt"
)

// ErrCancelled marks a run stopped between stages by external cancellation,
// distinct from a stage failure so operators can tell abandonment apart.
var ErrCancelled = errors.New("workflow cancelled")

type PrerequisiteError struct {
	Stage   string
	Missing string
}

func (e PrerequisiteError) Error() string {
	return fmt.Sprintf("stage %s prerequisite not met: %s", e.Stage, e.Missing)
}

type StageExecutionError struct {
	Stage string
	Cause error
}

func (e StageExecutionError) Error() string {
	return fmt.Sprintf("stage %s execution failed: %v", e.Stage, e.Cause)
}

func (e StageExecutionError) Unwrap() error {
	return e.Cause
}
