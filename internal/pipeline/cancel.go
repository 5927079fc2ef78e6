package pipeline

import (
	"context"

	"github.com/nao1215/processflow/internal/model"
)

// Cancel asks the run on sess to stop.
//
// It always sets the session's cancel flag, so no further stage starts once
// the running one returns. When terminateCurrent is true the running stage's
// worker is also told to stop early. Cancel returns ErrNothingToCancel when
// no stage is running, and it never waits for the run to wind down.
func (o *Orchestrator) Cancel(ctx context.Context, sess *model.Session, terminateCurrent bool) error {
	if sess == nil {
		return ErrInvalidSession
	}

	state, ok := o.store.Lookup(sess.ID)
	if !ok {
		o.logger.Debug("nothing to cancel", "session", sess.ID)
		return ErrNothingToCancel
	}

	current, err := state.RequestCancel()
	if err != nil {
		o.logger.Debug("nothing to cancel", "session", sess.ID)
		return err
	}

	o.logger.Info("cancel requested",
		"session", sess.ID,
		"stage", current,
		"terminate", terminateCurrent,
	)

	if terminateCurrent {
		o.registry.Worker(current).Cancel(ctx, sess)
	}
	return nil
}
