package pipeline

import (
	"time"

	"github.com/nao1215/processflow/internal/stage"
)

// StageRecord describes one executed stage.
type StageRecord struct {
	// Stage is the stage that ran.
	Stage stage.Stage `json:"stage"`

	// PageIDs are the pages the stage was given, after filtering.
	PageIDs []string `json:"pageIds"`

	// Status is what the stage worker returned.
	Status stage.Status `json:"status"`

	// Duration is the wall time the worker took.
	Duration time.Duration `json:"duration"`
}

// Report summarizes a single Execute call.
type Report struct {
	SessionID  string        `json:"sessionId"`
	Stages     []StageRecord `json:"stages"`
	Cancelled  bool          `json:"cancelled"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
}

func newReport(sessionID string) *Report {
	return &Report{
		SessionID: sessionID,
		Stages:    make([]StageRecord, 0, len(stage.All())),
		StartedAt: time.Now(),
	}
}

func (r *Report) add(rec StageRecord) {
	r.Stages = append(r.Stages, rec)
}

func (r *Report) finish() {
	r.FinishedAt = time.Now()
}

// Executed returns the stages that ran, in order.
func (r *Report) Executed() []stage.Stage {
	out := make([]stage.Stage, len(r.Stages))
	for i, rec := range r.Stages {
		out[i] = rec.Stage
	}
	return out
}

// Last returns the record of the last stage that ran.
func (r *Report) Last() (StageRecord, bool) {
	if len(r.Stages) == 0 {
		return StageRecord{}, false
	}
	return r.Stages[len(r.Stages)-1], true
}

// Elapsed returns the wall time of the whole run.
func (r *Report) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
