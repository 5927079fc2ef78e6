package stage

import (
	"context"

	"github.com/nao1215/processflow/internal/model"
)

// Worker is the capability every stage implementation provides.
//
// Execute blocks until the stage has processed pageIDs, which may take
// minutes. It reports the outcome through the returned Status only; the
// stage's output is discovered afterwards by inspecting the project directory.
// Workers own the shape of their settings bag and must answer
// StatusInvalidInput for an empty page set or a malformed bag.
//
// Cancel asks an in-flight Execute for the same session to stop early. It must
// be safe to call at any time, more than once, and must not block.
type Worker interface {
	Execute(ctx context.Context, sess *model.Session, pageIDs []string, settings model.Settings) Status
	Cancel(ctx context.Context, sess *model.Session)
}

// WorkerFunc adapts a plain function into a Worker whose Cancel does nothing.
// It is useful for stages that cannot be interrupted.
type WorkerFunc func(ctx context.Context, sess *model.Session, pageIDs []string, settings model.Settings) Status

// Execute calls f.
func (f WorkerFunc) Execute(ctx context.Context, sess *model.Session, pageIDs []string, settings model.Settings) Status {
	return f(ctx, sess, pageIDs, settings)
}

// Cancel is a no-op.
func (f WorkerFunc) Cancel(context.Context, *model.Session) {}
