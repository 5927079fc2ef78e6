package session

import (
	"sync"

	"github.com/nao1215/processflow/internal/stage"
)

// RunState is the per-session record of an in-flight pipeline run.
//
// The zero value is ready to use. A run goes through Claim, any number of
// SetCurrent calls, and Release. Between Claim and the first SetCurrent the
// session reports no current stage but still refuses a second Claim, which
// makes the single-flight check and the first stage write atomic with
// respect to other runs on the same session.
type RunState struct {
	mu sync.Mutex

	// current is the stage being executed, or stage.None.
	current stage.Stage

	// cancelRequested is set by RequestCancel and reset by Claim.
	cancelRequested bool

	// claimed is true from Claim until Release.
	claimed bool
}

// Claim reserves the session for a new run and resets the cancel flag.
// It fails with ErrAlreadyRunning while another run holds the session.
func (r *RunState) Claim() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.claimed || r.current != stage.None {
		return ErrAlreadyRunning
	}
	r.claimed = true
	r.cancelRequested = false
	return nil
}

// SetCurrent records s as the running stage.
func (r *RunState) SetCurrent(s stage.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = s
}

// Current returns the running stage, or stage.None.
func (r *RunState) Current() stage.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Release clears the current stage and ends the run.
// The cancel flag is left as is so it can still be inspected afterwards.
func (r *RunState) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = stage.None
	r.claimed = false
}

// RequestCancel sets the cancel flag if a stage is running and returns that
// stage. Without a running stage it returns ErrNothingToCancel and leaves the
// flag untouched.
func (r *RunState) RequestCancel() (stage.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == stage.None {
		return stage.None, ErrNothingToCancel
	}
	r.cancelRequested = true
	return r.current, nil
}

// CancelRequested reports whether cancellation was requested for the
// current run.
func (r *RunState) CancelRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelRequested
}
