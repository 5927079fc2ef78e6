package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/nao1215/processflow/internal/model"
	"github.com/nao1215/processflow/internal/pagefilter"
	"github.com/nao1215/processflow/internal/session"
	"github.com/nao1215/processflow/internal/stage"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("rejects nil registry", func(t *testing.T) {
		t.Parallel()

		if _, err := New(nil, session.NewStore()); err == nil {
			t.Error("expected error for nil registry")
		}
	})

	t.Run("rejects nil store", func(t *testing.T) {
		t.Parallel()

		registry, err := stage.NewRegistry(map[stage.Stage]stage.Worker{
			stage.Preprocessing:    stage.WorkerFunc(okWorker),
			stage.Despeckling:      stage.WorkerFunc(okWorker),
			stage.Segmentation:     stage.WorkerFunc(okWorker),
			stage.RegionExtraction: stage.WorkerFunc(okWorker),
			stage.LineSegmentation: stage.WorkerFunc(okWorker),
			stage.Recognition:      stage.WorkerFunc(okWorker),
		})
		if err != nil {
			t.Fatalf("NewRegistry() error = %v", err)
		}
		if _, err := New(registry, nil); err == nil {
			t.Error("expected error for nil store")
		}
	})

	t.Run("uses a default page filter", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		if _, ok := f.orchestrator.filter.(*pagefilter.Filter); !ok {
			t.Errorf("filter = %T, want *pagefilter.Filter", f.orchestrator.filter)
		}
	})
}

func okWorker(context.Context, *model.Session, []string, model.Settings) stage.Status {
	return stage.StatusOK
}

func TestExecuteOrder(t *testing.T) {
	t.Parallel()

	t.Run("runs requested stages in canonical order", func(t *testing.T) {
		t.Parallel()

		filter := &fakeFilter{}
		f := newFixture(t, WithFilter(filter))
		req := requestFor([]string{"0001"}, stage.Recognition, stage.Segmentation, stage.Preprocessing)

		report, err := f.orchestrator.Execute(context.Background(), testSession("s1"), req)
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}

		want := []stage.Stage{stage.Preprocessing, stage.Segmentation, stage.Recognition}
		if diff := cmp.Diff(want, f.recorder.executed()); diff != "" {
			t.Errorf("executed stages mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(want, report.Executed()); diff != "" {
			t.Errorf("report stages mismatch (-want +got):\n%s", diff)
		}
		if report.Cancelled {
			t.Error("expected report not to be cancelled")
		}
		if report.SessionID != "s1" {
			t.Errorf("SessionID = %q, want s1", report.SessionID)
		}
	})

	t.Run("filters every stage except the first executed one", func(t *testing.T) {
		t.Parallel()

		filter := &fakeFilter{}
		f := newFixture(t, WithFilter(filter))
		req := requestFor([]string{"0001"}, stage.Recognition, stage.Segmentation, stage.Preprocessing)

		if _, err := f.orchestrator.Execute(context.Background(), testSession("s1"), req); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}

		// segmentation is gated by preprocessing, recognition by line segmentation.
		want := []stage.Stage{stage.Preprocessing, stage.LineSegmentation}
		if diff := cmp.Diff(want, filter.calls()); diff != "" {
			t.Errorf("filter calls mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("does not filter a gated stage that runs first", func(t *testing.T) {
		t.Parallel()

		filter := &fakeFilter{drop: map[stage.Stage][]string{stage.Preprocessing: {"0001"}}}
		f := newFixture(t, WithFilter(filter))
		req := requestFor([]string{"0001", "0002"}, stage.Despeckling)

		if _, err := f.orchestrator.Execute(context.Background(), testSession("s1"), req); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if len(filter.calls()) != 0 {
			t.Errorf("expected no filter calls, got %v", filter.calls())
		}
		if diff := cmp.Diff([]string{"0001", "0002"}, f.workers[stage.Despeckling].lastPages()); diff != "" {
			t.Errorf("despeckling pages mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("narrowing is cumulative", func(t *testing.T) {
		t.Parallel()

		filter := &fakeFilter{drop: map[stage.Stage][]string{
			stage.Preprocessing:    {"0002"},
			stage.RegionExtraction: {"0003"},
		}}
		f := newFixture(t, WithFilter(filter))
		req := requestFor([]string{"0001", "0002", "0003"},
			stage.Preprocessing, stage.Despeckling, stage.RegionExtraction, stage.LineSegmentation)

		report, err := f.orchestrator.Execute(context.Background(), testSession("s1"), req)
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}

		if diff := cmp.Diff([]string{"0001", "0002", "0003"}, f.workers[stage.Preprocessing].lastPages()); diff != "" {
			t.Errorf("preprocessing pages mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"0001", "0003"}, f.workers[stage.Despeckling].lastPages()); diff != "" {
			t.Errorf("despeckling pages mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"0001"}, f.workers[stage.LineSegmentation].lastPages()); diff != "" {
			t.Errorf("line segmentation pages mismatch (-want +got):\n%s", diff)
		}
		last, ok := report.Last()
		if !ok || last.Stage != stage.LineSegmentation {
			t.Errorf("Last() = %v, %v; want lineSegmentation", last.Stage, ok)
		}
	})

	t.Run("an empty page set still runs the stage", func(t *testing.T) {
		t.Parallel()

		filter := &fakeFilter{drop: map[stage.Stage][]string{stage.Preprocessing: {"0001"}}}
		f := newFixture(t, WithFilter(filter))
		req := requestFor([]string{"0001"}, stage.Preprocessing, stage.Despeckling)

		if _, err := f.orchestrator.Execute(context.Background(), testSession("s1"), req); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if f.workers[stage.Despeckling].callCount() != 1 {
			t.Fatal("expected despeckling to run")
		}
		if got := f.workers[stage.Despeckling].lastPages(); len(got) != 0 {
			t.Errorf("despeckling pages = %v, want none", got)
		}
	})

	t.Run("repeated stages run once", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, WithFilter(&fakeFilter{}))
		req := requestFor([]string{"0001"}, stage.Segmentation, stage.Segmentation)

		if _, err := f.orchestrator.Execute(context.Background(), testSession("s1"), req); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if got := f.workers[stage.Segmentation].callCount(); got != 1 {
			t.Errorf("segmentation ran %d times, want 1", got)
		}
	})

	t.Run("passes the stage settings to the worker", func(t *testing.T) {
		t.Parallel()

		var got model.Settings
		f := newFixture(t, WithFilter(&fakeFilter{}))
		f.workers[stage.Despeckling].execFunc = func(_ context.Context, _ *model.Session, _ []string, settings model.Settings) stage.Status {
			got = settings
			return stage.StatusOK
		}
		req := requestFor([]string{"0001"}, stage.Despeckling)
		req.Settings[stage.Despeckling] = model.Settings{"maxContourRemovalSize": 100.0}

		if _, err := f.orchestrator.Execute(context.Background(), testSession("s1"), req); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if diff := cmp.Diff(model.Settings{"maxContourRemovalSize": 100.0}, got); diff != "" {
			t.Errorf("settings mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestExecuteWithPageFilter(t *testing.T) {
	t.Parallel()

	// Preprocessing left both outputs for 0001 and 0003, but only the
	// binary image for 0002.
	dir := t.TempDir()
	processing := filepath.Join(dir, "processing")
	if err := os.MkdirAll(processing, 0o750); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"0001.bin.png", "0001.nrm.png", "0002.bin.png", "0003.bin.png", "0003.nrm.png"} {
		if err := os.WriteFile(filepath.Join(processing, name), []byte("png"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	filter, err := pagefilter.New(pagefilter.WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("pagefilter.New() error = %v", err)
	}
	f := newFixture(t, WithFilter(filter))
	sess := model.NewSession("s1", dir, "Binary")
	req := requestFor([]string{"0001", "0002", "0003"}, stage.Segmentation, stage.Preprocessing)

	report, err := f.orchestrator.Execute(context.Background(), sess, req)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if diff := cmp.Diff([]stage.Stage{stage.Preprocessing, stage.Segmentation}, report.Executed()); diff != "" {
		t.Errorf("executed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"0001", "0002", "0003"}, f.workers[stage.Preprocessing].lastPages()); diff != "" {
		t.Errorf("preprocessing pages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"0001", "0003"}, f.workers[stage.Segmentation].lastPages()); diff != "" {
		t.Errorf("segmentation pages mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteRejects(t *testing.T) {
	t.Parallel()

	validSettings := map[stage.Stage]model.Settings{stage.Segmentation: {}}

	tests := []struct {
		name    string
		sess    *model.Session
		req     Request
		wantErr error
		code    stage.Status
	}{
		{
			name:    "nil session",
			sess:    nil,
			req:     requestFor([]string{"0001"}, stage.Segmentation),
			wantErr: ErrInvalidSession,
			code:    stage.StatusInternalError,
		},
		{
			name:    "session without project dir",
			sess:    model.NewSession("s1", " ", "Binary"),
			req:     requestFor([]string{"0001"}, stage.Segmentation),
			wantErr: ErrInvalidSession,
			code:    stage.StatusInternalError,
		},
		{
			name:    "session without image type",
			sess:    model.NewSession("s1", "/tmp/project", ""),
			req:     requestFor([]string{"0001"}, stage.Segmentation),
			wantErr: ErrInvalidSession,
			code:    stage.StatusInternalError,
		},
		{
			name:    "missing page ids",
			sess:    testSession("s1"),
			req:     Request{Processes: []stage.Stage{stage.Segmentation}, Settings: validSettings},
			wantErr: ErrBadRequest,
			code:    stage.StatusBadRequest,
		},
		{
			name:    "missing processes",
			sess:    testSession("s1"),
			req:     Request{PageIDs: []string{"0001"}, Settings: validSettings},
			wantErr: ErrBadRequest,
			code:    stage.StatusBadRequest,
		},
		{
			name:    "missing settings map",
			sess:    testSession("s1"),
			req:     Request{PageIDs: []string{"0001"}, Processes: []stage.Stage{stage.Segmentation}},
			wantErr: ErrBadRequest,
			code:    stage.StatusBadRequest,
		},
		{
			name:    "duplicate page ids",
			sess:    testSession("s1"),
			req:     requestFor([]string{"0001", "0001"}, stage.Segmentation),
			wantErr: ErrBadRequest,
			code:    stage.StatusBadRequest,
		},
		{
			name:    "unknown stage",
			sess:    testSession("s1"),
			req:     requestFor([]string{"0001"}, stage.Stage(42)),
			wantErr: ErrBadRequest,
			code:    stage.StatusBadRequest,
		},
		{
			name: "missing stage settings",
			sess: testSession("s1"),
			req: Request{
				PageIDs:   []string{"0001"},
				Processes: []stage.Stage{stage.Segmentation, stage.Despeckling},
				Settings:  validSettings,
			},
			wantErr: ErrMissingSettings,
			code:    stage.StatusMissingSettings,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, WithFilter(&fakeFilter{}))
			report, err := f.orchestrator.Execute(context.Background(), tt.sess, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Execute() error = %v, want %v", err, tt.wantErr)
			}
			if report != nil {
				t.Errorf("expected nil report, got %+v", report)
			}
			if got := StatusCode(err); got != tt.code {
				t.Errorf("StatusCode() = %d, want %d", got, tt.code)
			}
			if got := f.recorder.executed(); len(got) != 0 {
				t.Errorf("expected no stage to run, got %v", got)
			}
		})
	}
}

func TestExecuteMissingSettingsNamesStage(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithFilter(&fakeFilter{}))
	req := Request{
		PageIDs:   []string{"0001"},
		Processes: []stage.Stage{stage.Preprocessing, stage.Despeckling},
		Settings:  map[stage.Stage]model.Settings{stage.Preprocessing: {}},
	}

	_, err := f.orchestrator.Execute(context.Background(), testSession("s1"), req)

	var missing *MissingSettingsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *MissingSettingsError, got %v", err)
	}
	if missing.Stage != stage.Despeckling {
		t.Errorf("Stage = %v, want despeckling", missing.Stage)
	}
	if f.workers[stage.Preprocessing].callCount() != 0 {
		t.Error("expected preprocessing not to run")
	}
	if got := f.orchestrator.CurrentStatus("s1"); got != stage.None {
		t.Errorf("CurrentStatus() = %v, want none", got)
	}
}

func TestExecuteStopsOnFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithFilter(&fakeFilter{}))
	f.workers[stage.Segmentation].execFunc = func(context.Context, *model.Session, []string, model.Settings) stage.Status {
		return stage.StatusInternalError
	}
	req := requestFor([]string{"0001"}, stage.Preprocessing, stage.Segmentation, stage.Recognition)

	report, err := f.orchestrator.Execute(context.Background(), testSession("s1"), req)

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected *StageError, got %v", err)
	}
	if stageErr.Stage != stage.Segmentation || stageErr.Status != stage.StatusInternalError {
		t.Errorf("StageError = %+v", stageErr)
	}
	if !errors.Is(err, ErrStageFailed) {
		t.Error("expected error to wrap ErrStageFailed")
	}
	if got := StatusCode(err); got != stage.StatusInternalError {
		t.Errorf("StatusCode() = %d, want 500", got)
	}
	if f.workers[stage.Recognition].callCount() != 0 {
		t.Error("expected recognition not to run")
	}
	if report == nil || len(report.Stages) != 2 {
		t.Fatalf("expected a report with two stages, got %+v", report)
	}
	if report.Stages[1].Status != stage.StatusInternalError {
		t.Errorf("recorded status = %d, want 500", report.Stages[1].Status)
	}
	if got := f.orchestrator.CurrentStatus("s1"); got != stage.None {
		t.Errorf("CurrentStatus() = %v, want none", got)
	}
}

func TestExecutePropagatesWorkerStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithFilter(&fakeFilter{}))
	f.workers[stage.Despeckling].execFunc = func(context.Context, *model.Session, []string, model.Settings) stage.Status {
		return stage.StatusInvalidInput
	}
	req := requestFor([]string{}, stage.Despeckling)

	_, err := f.orchestrator.Execute(context.Background(), testSession("s1"), req)
	if got := StatusCode(err); got != stage.StatusInvalidInput {
		t.Errorf("StatusCode() = %d, want 531", got)
	}
}

func TestExecuteFilterError(t *testing.T) {
	t.Parallel()

	filterErr := errors.New("disk on fire")
	f := newFixture(t, WithFilter(&fakeFilter{err: filterErr}))
	req := requestFor([]string{"0001"}, stage.Preprocessing, stage.Despeckling)

	report, err := f.orchestrator.Execute(context.Background(), testSession("s1"), req)
	if !errors.Is(err, filterErr) {
		t.Fatalf("Execute() error = %v, want %v", err, filterErr)
	}
	if got := StatusCode(err); got != stage.StatusInternalError {
		t.Errorf("StatusCode() = %d, want 500", got)
	}
	if f.workers[stage.Despeckling].callCount() != 0 {
		t.Error("expected despeckling not to run")
	}
	if diff := cmp.Diff([]stage.Stage{stage.Preprocessing}, report.Executed()); diff != "" {
		t.Errorf("executed mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteContextCancelled(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithFilter(&fakeFilter{}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.orchestrator.Execute(ctx, testSession("s1"), requestFor([]string{"0001"}, stage.Preprocessing))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}
	if report == nil || !report.Cancelled {
		t.Error("expected a cancelled report")
	}
	if got := f.recorder.executed(); len(got) != 0 {
		t.Errorf("expected no stage to run, got %v", got)
	}
}

func TestExecuteSingleFlight(t *testing.T) {
	t.Parallel()

	f := newFixture(t, WithFilter(&fakeFilter{}))
	started := make(chan struct{})
	release := make(chan struct{})
	var startOnce sync.Once
	f.workers[stage.Preprocessing].execFunc = func(context.Context, *model.Session, []string, model.Settings) stage.Status {
		startOnce.Do(func() { close(started) })
		<-release
		return stage.StatusOK
	}

	sess := testSession("s1")
	req := requestFor([]string{"0001"}, stage.Preprocessing)

	done := make(chan error, 1)
	go func() {
		_, err := f.orchestrator.Execute(context.Background(), sess, req)
		done <- err
	}()
	<-started

	if got := f.orchestrator.CurrentStatus("s1"); got != stage.Preprocessing {
		t.Errorf("CurrentStatus() = %v, want preprocessing", got)
	}

	_, err := f.orchestrator.Execute(context.Background(), sess, requestFor([]string{"0001"}, stage.Recognition))
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Execute() error = %v, want ErrAlreadyRunning", err)
	}
	if got := StatusCode(err); got != stage.StatusAlreadyRunning {
		t.Errorf("StatusCode() = %d, want 532", got)
	}

	// Other sessions are not affected.
	if _, err := f.orchestrator.Execute(context.Background(), testSession("s2"), requestFor([]string{"0001"}, stage.Recognition)); err != nil {
		t.Errorf("Execute() on another session error = %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}

	if got := f.orchestrator.CurrentStatus("s1"); got != stage.None {
		t.Errorf("CurrentStatus() after run = %v, want none", got)
	}
	if f.workers[stage.Recognition].callCount() != 1 {
		t.Errorf("recognition ran %d times, want 1", f.workers[stage.Recognition].callCount())
	}

	// The session accepts a new run once the first is over.
	if _, err := f.orchestrator.Execute(context.Background(), sess, req); err != nil {
		t.Errorf("third Execute() error = %v", err)
	}
}

func TestCurrentStatusUnknownSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if got := f.orchestrator.CurrentStatus("nobody"); got != stage.None {
		t.Errorf("CurrentStatus() = %v, want none", got)
	}
}

func TestStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want stage.Status
	}{
		{name: "nil", err: nil, want: stage.StatusOK},
		{name: "invalid session", err: ErrInvalidSession, want: stage.StatusInternalError},
		{name: "bad request", err: ErrBadRequest, want: stage.StatusBadRequest},
		{name: "already running", err: ErrAlreadyRunning, want: stage.StatusAlreadyRunning},
		{name: "missing settings", err: &MissingSettingsError{Stage: stage.Segmentation}, want: stage.StatusMissingSettings},
		{name: "nothing to cancel", err: ErrNothingToCancel, want: stage.StatusNothingToCancel},
		{name: "stage error", err: &StageError{Stage: stage.Recognition, Status: stage.StatusInvalidInput}, want: stage.StatusInvalidInput},
		{name: "unknown", err: errors.New("boom"), want: stage.StatusInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := StatusCode(tt.err); got != tt.want {
				t.Errorf("StatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReportElapsed(t *testing.T) {
	t.Parallel()

	r := newReport("s1")
	if r.Elapsed() != 0 {
		t.Error("expected zero elapsed before finish")
	}
	r.StartedAt = time.Now().Add(-time.Second)
	r.finish()
	if r.Elapsed() < time.Second {
		t.Errorf("Elapsed() = %v, want at least 1s", r.Elapsed())
	}
	if _, ok := newReport("s2").Last(); ok {
		t.Error("expected Last() to report no stage for an empty report")
	}
}
