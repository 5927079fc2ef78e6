package stage

import (
	"errors"
	"fmt"
)

// ErrMissingWorker is returned when a registry is built without a worker for
// one of the canonical stages.
var ErrMissingWorker = errors.New("missing stage worker")

// Registry binds every canonical stage to its worker.
// A Registry is immutable after NewRegistry returns and safe for concurrent use.
type Registry struct {
	workers [len(canonical)]Worker
}

// NewRegistry builds a registry from the given stage-to-worker bindings.
// Every canonical stage needs a non-nil worker, and keys outside the
// enumeration are rejected. The map is copied, so later changes to it do not
// affect the registry.
func NewRegistry(workers map[Stage]Worker) (*Registry, error) {
	r := &Registry{}
	for s, w := range workers {
		if !s.Valid() {
			return nil, fmt.Errorf("%w: %d", ErrUnknownStage, int(s))
		}
		r.workers[s.Index()] = w
	}
	for _, s := range canonical {
		if r.workers[s.Index()] == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingWorker, s)
		}
	}
	return r, nil
}

// Worker returns the worker bound to s, or nil when s is not a canonical stage.
func (r *Registry) Worker(s Stage) Worker {
	if !s.Valid() {
		return nil
	}
	return r.workers[s.Index()]
}

// Order returns the canonical execution order.
func (r *Registry) Order() []Stage {
	return All()
}
