package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/processflow/internal/model"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency is the number of sessions a BatchRunner runs at once
// unless WithConcurrency says otherwise.
const DefaultBatchConcurrency = 4

// Job is one session's pipeline run within a batch.
type Job struct {
	Session *model.Session
	Request Request
}

// Result is the outcome of one Job.
type Result struct {
	Session *model.Session
	Report  *Report
	Err     error
}

// BatchRunner runs pipelines for several sessions concurrently through one
// Orchestrator.
//
// Design decision: a failing session does not stop the others. Each Result
// carries its own error, and only cancellation of the batch context ends the
// batch early. Two jobs for the same session are still subject to the
// single-flight rule, so one of them fails with ErrAlreadyRunning when they
// overlap.
type BatchRunner struct {
	// orchestrator executes every job.
	orchestrator *Orchestrator

	// concurrency is the maximum number of sessions running at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// forget drops each session's run state once its job has finished.
	forget bool
}

// BatchOption configures a BatchRunner.
type BatchOption func(*BatchRunner)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchRunner) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent sessions.
// Values below 1 are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchRunner) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithForgetFinished makes the runner drop each session's run state from the
// orchestrator after its job finishes. Use it when the sessions of a batch are
// not reused afterwards.
func WithForgetFinished() BatchOption {
	return func(b *BatchRunner) {
		b.forget = true
	}
}

// NewBatchRunner creates a BatchRunner that executes jobs with o.
func NewBatchRunner(o *Orchestrator, opts ...BatchOption) *BatchRunner {
	b := &BatchRunner{
		orchestrator: o,
		concurrency:  DefaultBatchConcurrency,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Run executes every job and returns the results in job order.
// The error is non-nil only when ctx was cancelled before all jobs started;
// jobs that never started have a nil Report and ctx's error.
func (b *BatchRunner) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	results := make([]Result, len(jobs))
	err := b.RunWithCallback(ctx, jobs, func(res Result, index int) {
		// Each index is written by exactly one goroutine.
		results[index] = res
	})
	for i := range results {
		if results[i].Session == nil && results[i].Err == nil && err != nil {
			results[i] = Result{Session: jobs[i].Session, Err: err}
		}
	}
	return results, err
}

// RunWithCallback executes every job and calls callback as each completes.
// The callback runs on the goroutine that finished the job, so it must be
// safe for concurrent use if it touches shared state.
func (b *BatchRunner) RunWithCallback(ctx context.Context, jobs []Job, callback func(res Result, index int)) error {
	b.logger.Info("starting batch",
		"sessions", len(jobs),
		"concurrency", b.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			report, err := b.orchestrator.Execute(ctx, job.Session, job.Request)
			if err != nil {
				b.logger.Warn("session failed", "index", i+1, "total", len(jobs), "error", err)
			}
			if b.forget && !b.orchestrator.Forget(job.Session.ID) {
				b.logger.Debug("session still active, keeping its state", "session", job.Session.ID)
			}
			callback(Result{Session: job.Session, Report: report, Err: err}, i)

			// A failed session must not cancel its siblings.
			return nil
		})
	}

	err := g.Wait()
	b.logger.Info("batch complete",
		"sessions", len(jobs),
		"elapsed", time.Since(startTime),
	)
	return err
}
