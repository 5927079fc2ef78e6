package pipeline

import (
	"fmt"

	"github.com/nao1215/processflow/internal/model"
	"github.com/nao1215/processflow/internal/stage"
)

// Request asks the orchestrator to run a set of stages over a set of pages.
// A nil field means the field was absent from the caller's input.
type Request struct {
	// PageIDs lists the pages to process, in order. Ids must be unique.
	PageIDs []string

	// Processes is the set of stages to run. Order is irrelevant: stages
	// always run in canonical order.
	Processes []stage.Stage

	// Settings holds one settings bag per requested stage.
	Settings map[stage.Stage]model.Settings
}

// Data is the transport form of a Request, with stages named by string.
type Data struct {
	PageIDs            []string                  `json:"pageIds" yaml:"pageIds"`
	ProcessesToExecute []string                  `json:"processesToExecute" yaml:"processesToExecute"`
	ProcessSettings    map[string]model.Settings `json:"processSettings" yaml:"processSettings"`
}

// Request converts the transport form into a Request.
// Unknown stage names are reported as ErrBadRequest. Absent fields stay nil so
// that Execute can reject them.
func (d Data) Request() (Request, error) {
	processes, err := stage.ParseList(d.ProcessesToExecute)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}

	var settings map[stage.Stage]model.Settings
	if d.ProcessSettings != nil {
		settings = make(map[stage.Stage]model.Settings, len(d.ProcessSettings))
		for name, bag := range d.ProcessSettings {
			s, err := stage.Parse(name)
			if err != nil {
				return Request{}, fmt.Errorf("%w: settings: %w", ErrBadRequest, err)
			}
			settings[s] = bag
		}
	}

	return Request{
		PageIDs:   d.PageIDs,
		Processes: processes,
		Settings:  settings,
	}, nil
}

// validate checks the request shape. It does not look at settings contents.
func (r Request) validate() error {
	if r.PageIDs == nil || r.Processes == nil || r.Settings == nil {
		return fmt.Errorf("%w: pageIds, processesToExecute and processSettings are required", ErrBadRequest)
	}

	seen := make(map[string]struct{}, len(r.PageIDs))
	for _, id := range r.PageIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate page id %q", ErrBadRequest, id)
		}
		seen[id] = struct{}{}
	}

	for _, s := range r.Processes {
		if !s.Valid() {
			return fmt.Errorf("%w: %w: %d", ErrBadRequest, stage.ErrUnknownStage, int(s))
		}
	}
	return nil
}

// requested returns the set of requested stages.
func (r Request) requested() map[stage.Stage]bool {
	set := make(map[stage.Stage]bool, len(r.Processes))
	for _, s := range r.Processes {
		set[s] = true
	}
	return set
}
