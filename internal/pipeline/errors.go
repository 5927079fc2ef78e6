package pipeline

import (
	"errors"
	"fmt"

	"github.com/nao1215/processflow/internal/model"
	"github.com/nao1215/processflow/internal/session"
	"github.com/nao1215/processflow/internal/stage"
)

// Errors returned by the orchestrator.
// Callers use errors.Is to classify them and StatusCode to translate them
// into the codes shared by every transport.
var (
	// ErrInvalidSession is returned when the session lacks a project
	// directory or image type. No work is performed.
	ErrInvalidSession = model.ErrInvalidSession

	// ErrBadRequest is returned when required request fields are absent or
	// malformed. No work is performed.
	ErrBadRequest = errors.New("bad request")

	// ErrAlreadyRunning is returned when the session already has an active
	// run. The active run is not affected.
	ErrAlreadyRunning = session.ErrAlreadyRunning

	// ErrMissingSettings is returned when a requested stage has no settings
	// entry. It is detected before any stage runs.
	ErrMissingSettings = errors.New("missing settings for a requested stage")

	// ErrNothingToCancel is returned by Cancel when no stage is running.
	ErrNothingToCancel = session.ErrNothingToCancel

	// ErrStageFailed is wrapped by StageError.
	ErrStageFailed = errors.New("stage failed")
)

// MissingSettingsError names the first requested stage without settings.
type MissingSettingsError struct {
	Stage stage.Stage
}

// Error implements error.
func (e *MissingSettingsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingSettings, e.Stage)
}

// Unwrap returns ErrMissingSettings.
func (e *MissingSettingsError) Unwrap() error {
	return ErrMissingSettings
}

// StageError reports a stage worker that returned a non-success status.
// The status is propagated verbatim; stages before it keep their output.
type StageError struct {
	Stage  stage.Stage
	Status stage.Status
}

// Error implements error.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s returned status %d", ErrStageFailed, e.Stage, int(e.Status))
}

// Unwrap returns ErrStageFailed.
func (e *StageError) Unwrap() error {
	return ErrStageFailed
}

// StatusCode translates the result of Execute or Cancel into a status code.
// A nil error maps to stage.StatusOK, a stage failure to the stage's own
// status, and anything unrecognized to stage.StatusInternalError.
func StatusCode(err error) stage.Status {
	if err == nil {
		return stage.StatusOK
	}

	var stageErr *StageError
	switch {
	case errors.As(err, &stageErr):
		return stageErr.Status
	case errors.Is(err, ErrMissingSettings):
		return stage.StatusMissingSettings
	case errors.Is(err, ErrAlreadyRunning):
		return stage.StatusAlreadyRunning
	case errors.Is(err, ErrNothingToCancel):
		return stage.StatusNothingToCancel
	case errors.Is(err, ErrBadRequest):
		return stage.StatusBadRequest
	default:
		return stage.StatusInternalError
	}
}
