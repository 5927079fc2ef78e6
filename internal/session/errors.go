package session

import "errors"

var (
	// ErrAlreadyRunning is returned by RunState.Claim when the session already
	// has an active run. The active run is not affected.
	ErrAlreadyRunning = errors.New("a process flow run is already active for this session")

	// ErrNothingToCancel is returned by RunState.RequestCancel when no stage is
	// currently running.
	ErrNothingToCancel = errors.New("no process flow run to cancel")
)
