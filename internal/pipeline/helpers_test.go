package pipeline

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nao1215/processflow/internal/model"
	"github.com/nao1215/processflow/internal/session"
	"github.com/nao1215/processflow/internal/stage"
)

// recorder collects the stages executed across all mock workers.
type recorder struct {
	mu     sync.Mutex
	stages []stage.Stage
}

func (r *recorder) record(s stage.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, s)
}

func (r *recorder) executed() []stage.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.stages)
}

// mockWorker is a test helper that implements stage.Worker.
type mockWorker struct {
	stage    stage.Stage
	recorder *recorder

	// execFunc overrides the default behaviour of returning StatusOK.
	execFunc func(ctx context.Context, sess *model.Session, pageIDs []string, settings model.Settings) stage.Status

	// cancelFunc runs on every Cancel call.
	cancelFunc func()

	mu          sync.Mutex
	pages       [][]string
	cancelCount atomic.Int32
}

// Execute implements stage.Worker.
func (m *mockWorker) Execute(ctx context.Context, sess *model.Session, pageIDs []string, settings model.Settings) stage.Status {
	m.mu.Lock()
	m.pages = append(m.pages, slices.Clone(pageIDs))
	m.mu.Unlock()

	if m.recorder != nil {
		m.recorder.record(m.stage)
	}
	if m.execFunc != nil {
		return m.execFunc(ctx, sess, pageIDs, settings)
	}
	return stage.StatusOK
}

// Cancel implements stage.Worker.
func (m *mockWorker) Cancel(context.Context, *model.Session) {
	m.cancelCount.Add(1)
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
}

func (m *mockWorker) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pages)
}

func (m *mockWorker) lastPages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pages) == 0 {
		return nil
	}
	return m.pages[len(m.pages)-1]
}

// fakeFilter is a test helper that implements PageFilter.
type fakeFilter struct {
	mu        sync.Mutex
	preceding []stage.Stage

	// drop lists pages removed when filtering against a given stage.
	drop map[stage.Stage][]string
	err  error
}

// FilterValid implements PageFilter.
func (f *fakeFilter) FilterValid(_ context.Context, _ *model.Session, pageIDs []string, preceding stage.Stage) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.preceding = append(f.preceding, preceding)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]string, 0, len(pageIDs))
	for _, id := range pageIDs {
		if !slices.Contains(f.drop[preceding], id) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeFilter) calls() []stage.Stage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.preceding)
}

type fixture struct {
	orchestrator *Orchestrator
	workers      map[stage.Stage]*mockWorker
	recorder     *recorder
	store        *session.Store
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFixture builds an orchestrator whose every stage is a mockWorker.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	rec := &recorder{}
	workers := make(map[stage.Stage]*mockWorker)
	registered := make(map[stage.Stage]stage.Worker)
	for _, s := range stage.All() {
		w := &mockWorker{stage: s, recorder: rec}
		workers[s] = w
		registered[s] = w
	}

	registry, err := stage.NewRegistry(registered)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	store := session.NewStore()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	o, err := New(registry, store, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &fixture{
		orchestrator: o,
		workers:      workers,
		recorder:     rec,
		store:        store,
	}
}

func testSession(id string) *model.Session {
	return model.NewSession(id, "/tmp/project", "Binary")
}

// requestFor builds a request with an empty settings bag for each stage.
func requestFor(pages []string, stages ...stage.Stage) Request {
	settings := make(map[stage.Stage]model.Settings, len(stages))
	for _, s := range stages {
		settings[s] = model.Settings{}
	}
	return Request{
		PageIDs:   pages,
		Processes: stages,
		Settings:  settings,
	}
}
