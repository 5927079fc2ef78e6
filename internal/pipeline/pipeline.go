package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/nao1215/processflow/internal/model"
	"github.com/nao1215/processflow/internal/pagefilter"
	"github.com/nao1215/processflow/internal/session"
	"github.com/nao1215/processflow/internal/stage"
)

// PageFilter narrows a page set to the pages with output from a preceding
// stage. *pagefilter.Filter is the production implementation.
type PageFilter interface {
	FilterValid(ctx context.Context, sess *model.Session, pageIDs []string, preceding stage.Stage) ([]string, error)
}

// Orchestrator runs the stage pipeline for sessions.
// It is safe for concurrent use; runs on different sessions proceed
// independently.
type Orchestrator struct {
	// registry maps each stage to its worker and fixes the run order.
	registry *stage.Registry

	// store holds per-session run state.
	store *session.Store

	// filter drops pages whose gating stage produced no output.
	filter PageFilter

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a custom logger for the orchestrator.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithFilter replaces the page filter.
// If not set, a pagefilter.Filter with the default layout is used.
func WithFilter(filter PageFilter) Option {
	return func(o *Orchestrator) {
		o.filter = filter
	}
}

// New creates an Orchestrator over registry and store.
func New(registry *stage.Registry, store *session.Store, opts ...Option) (*Orchestrator, error) {
	if registry == nil {
		return nil, errors.New("pipeline: nil stage registry")
	}
	if store == nil {
		return nil, errors.New("pipeline: nil session store")
	}

	o := &Orchestrator{
		registry: registry,
		store:    store,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.filter == nil {
		f, err := pagefilter.New(pagefilter.WithLogger(o.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create page filter: %w", err)
		}
		o.filter = f
	}
	return o, nil
}

// Execute runs the requested stages for sess in canonical order.
//
// Nothing runs unless the session is valid, the request is well formed, no
// other run is active on the session, and every requested stage has a
// settings entry. Each stage after the first executed one only sees the
// pages its gating stage produced output for; the narrowing is cumulative,
// so a page dropped once never comes back.
//
// After every stage the session's cancel flag is checked first: a run ended by
// Cancel returns a report with Cancelled set and a nil error, even when the
// interrupted stage reported failure. Otherwise execution stops at the first
// stage whose worker does not return stage.StatusOK, and the error is a
// *StageError carrying that status. A done ctx also ends the run before the
// next stage starts.
//
// Design decision: the report is returned alongside stage and filter errors
// so callers can see which stages finished before the failure.
func (o *Orchestrator) Execute(ctx context.Context, sess *model.Session, req Request) (*Report, error) {
	if err := sess.Validate(); err != nil {
		o.logger.Warn("rejecting process flow", "error", err)
		return nil, err
	}
	if err := req.validate(); err != nil {
		o.logger.Warn("rejecting process flow", "session", sess.ID, "error", err)
		return nil, err
	}

	state := o.store.State(sess.ID)
	if err := state.Claim(); err != nil {
		o.logger.Warn("process flow already running", "session", sess.ID)
		return nil, err
	}
	defer state.Release()

	if err := ValidateSettings(req.Processes, req.Settings); err != nil {
		o.logger.Warn("rejecting process flow", "session", sess.ID, "error", err)
		return nil, err
	}

	requested := req.requested()
	pageIDs := slices.Clone(req.PageIDs)
	report := newReport(sess.ID)
	defer report.finish()

	o.logger.Info("starting process flow",
		"session", sess.ID,
		"pages", len(pageIDs),
		"stages", len(requested),
	)

	first := true
	for _, s := range o.registry.Order() {
		if !requested[s] {
			continue
		}

		if err := ctx.Err(); err != nil {
			report.Cancelled = true
			o.logger.Warn("process flow interrupted", "session", sess.ID, "stage", s, "reason", err)
			return report, fmt.Errorf("process flow interrupted before %s: %w", s, err)
		}

		state.SetCurrent(s)

		if gate, ok := stage.Gate(s); ok && !first {
			filtered, err := o.filter.FilterValid(ctx, sess, pageIDs, gate)
			if err != nil {
				o.logger.Error("page filter failed", "session", sess.ID, "stage", s, "error", err)
				return report, fmt.Errorf("failed to filter pages for %s: %w", s, err)
			}
			pageIDs = filtered
		}
		first = false

		o.logger.Info("executing stage",
			"session", sess.ID,
			"stage", s,
			"pages", pageIDs,
		)

		start := time.Now()
		status := o.registry.Worker(s).Execute(ctx, sess, slices.Clone(pageIDs), req.Settings[s])
		report.add(StageRecord{
			Stage:    s,
			PageIDs:  slices.Clone(pageIDs),
			Status:   status,
			Duration: time.Since(start),
		})

		// A cancelled run stops here whatever the stage returned; a worker that
		// was terminated forcefully usually reports failure.
		if state.CancelRequested() {
			report.Cancelled = true
			o.logger.Warn("process flow cancelled",
				"session", sess.ID,
				"after", s,
				"status", int(status),
			)
			return report, nil
		}

		if !status.OK() {
			o.logger.Error("stage failed",
				"session", sess.ID,
				"stage", s,
				"status", int(status),
			)
			return report, &StageError{Stage: s, Status: status}
		}

		o.logger.Debug("stage completed", "session", sess.ID, "stage", s)
	}

	o.logger.Info("process flow completed", "session", sess.ID)
	return report, nil
}

// CurrentStatus returns the stage currently running for sessionID, or
// stage.None when nothing is running. It never blocks on a running stage.
func (o *Orchestrator) CurrentStatus(sessionID string) stage.Stage {
	return o.store.Current(sessionID)
}

// Forget drops the run state of sessionID. A session with an active run is
// kept and Forget reports false.
func (o *Orchestrator) Forget(sessionID string) bool {
	return o.store.Forget(sessionID)
}
