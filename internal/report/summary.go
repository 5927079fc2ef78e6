package report

import (
	"errors"
	"time"

	"github.com/nao1215/processflow/internal/pipeline"
	"github.com/nao1215/processflow/internal/stage"
)

// Outcome classifies how a session's run ended.
type Outcome string

const (
	// OutcomeCompleted means every requested stage ran and succeeded.
	OutcomeCompleted Outcome = "completed"

	// OutcomeCancelled means the run was cancelled or interrupted.
	OutcomeCancelled Outcome = "cancelled"

	// OutcomeFailed means a stage or the page filter failed.
	OutcomeFailed Outcome = "failed"

	// OutcomeRejected means the request was refused before any stage ran.
	OutcomeRejected Outcome = "rejected"
)

// Run is one session's entry in a Summary.
type Run struct {
	SessionID  string                 `json:"sessionId"`
	ProjectDir string                 `json:"projectDir"`
	ImageType  string                 `json:"imageType"`
	Outcome    Outcome                `json:"outcome"`
	Status     stage.Status           `json:"status"`
	Error      string                 `json:"error,omitempty"`
	Stages     []pipeline.StageRecord `json:"stages"`
	Elapsed    time.Duration          `json:"elapsed"`
}

// Summary is the outcome of one processflow invocation.
type Summary struct {
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generatedAt"`
	Runs        []Run     `json:"runs"`
}

// NewSummary builds a Summary from batch results, keeping their order.
func NewSummary(version string, results []pipeline.Result) *Summary {
	s := &Summary{
		Version:     version,
		GeneratedAt: time.Now(),
		Runs:        make([]Run, 0, len(results)),
	}
	for _, res := range results {
		s.Runs = append(s.Runs, newRun(res))
	}
	return s
}

func newRun(res pipeline.Result) Run {
	run := Run{
		Status: pipeline.StatusCode(res.Err),
		Stages: []pipeline.StageRecord{},
	}
	if res.Session != nil {
		run.SessionID = res.Session.ID
		run.ProjectDir = res.Session.ProjectDir
		run.ImageType = res.Session.ImageType
	}
	if res.Err != nil {
		run.Error = res.Err.Error()
	}
	if res.Report != nil {
		run.Stages = res.Report.Stages
		run.Elapsed = res.Report.Elapsed()
	}

	switch {
	case res.Report != nil && res.Report.Cancelled:
		run.Outcome = OutcomeCancelled
	case res.Err == nil:
		run.Outcome = OutcomeCompleted
	case res.Report == nil && !errors.Is(res.Err, pipeline.ErrStageFailed):
		run.Outcome = OutcomeRejected
	default:
		run.Outcome = OutcomeFailed
	}
	return run
}

// Count returns the number of runs with outcome o.
func (s *Summary) Count(o Outcome) int {
	n := 0
	for _, run := range s.Runs {
		if run.Outcome == o {
			n++
		}
	}
	return n
}

// Succeeded reports whether every run completed or was cancelled on request.
func (s *Summary) Succeeded() bool {
	return s.Count(OutcomeFailed) == 0 && s.Count(OutcomeRejected) == 0
}

// PagesProcessed returns the number of pages the last executed stage of
// run received.
func (r Run) PagesProcessed() int {
	if len(r.Stages) == 0 {
		return 0
	}
	return len(r.Stages[len(r.Stages)-1].PageIDs)
}
