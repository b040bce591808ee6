package classify

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes that abort a pipeline run.
// Recoverable conditions (per-band resampling failures, label/mask count
// drift, remote interpreter failures) are absorbed with a warning and do
// not surface here.
var (
	// ErrInvalidROI marks a zero-area or unresolvable region of interest.
	ErrInvalidROI = errors.New("invalid region of interest")
	// ErrClusteringFailed marks an unrecoverable clustering failure, such
	// as fewer valid pixels than requested clusters.
	ErrClusteringFailed = errors.New("clustering failed")
	// ErrRasterWrite marks a failure to persist an output raster.
	ErrRasterWrite = errors.New("raster write failed")
)

// StageError attaches the failing pipeline stage to an error so the
// caller can report where a run died without parsing message text.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// stageErr wraps err with the stage name, formatting msg as context.
func stageErr(stage string, err error, format string, v ...interface{}) *StageError {
	if format != "" {
		err = fmt.Errorf(format+": %w", append(v, err)...)
	}
	return &StageError{Stage: stage, Err: err}
}
