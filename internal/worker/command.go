package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"sync"
	"time"

	"github.com/nao1215/processflow/internal/model"
	"github.com/nao1215/processflow/internal/stage"
)

// Environment variables set for every command.
const (
	EnvProjectDir = "PROCESSFLOW_PROJECT_DIR"
	EnvImageType  = "PROCESSFLOW_IMAGE_TYPE"
)

const (
	// maxStderrLog caps how much of a failed command's stderr is logged.
	maxStderrLog = 8 << 10

	// waitDelay bounds how long Execute waits for output pipes after the
	// process is killed, in case a child process still holds them open.
	waitDelay = 5 * time.Second
)

// CommandWorker is a stage.Worker that runs an external command.
// The command line is argv, then the stage arguments built by Args, then the
// page ids. It is safe for concurrent use by different sessions.
type CommandWorker struct {
	stage  stage.Stage
	argv   []string
	env    []string
	logger *slog.Logger

	mu sync.Mutex
	// running maps a session id to the cancel func of its process.
	running map[string]context.CancelFunc
}

// Option configures a CommandWorker.
type Option func(*CommandWorker)

// WithLogger sets a custom logger for the worker.
func WithLogger(logger *slog.Logger) Option {
	return func(w *CommandWorker) {
		w.logger = logger
	}
}

// WithEnv adds KEY=VALUE entries to the command environment.
func WithEnv(env ...string) Option {
	return func(w *CommandWorker) {
		w.env = append(w.env, env...)
	}
}

// NewCommandWorker creates a worker for s that runs argv.
func NewCommandWorker(s stage.Stage, argv []string, opts ...Option) (*CommandWorker, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", stage.ErrUnknownStage, int(s))
	}
	if len(argv) == 0 || argv[0] == "" {
		return nil, fmt.Errorf("%s: %w", s, ErrNoCommand)
	}

	w := &CommandWorker{
		stage:   s,
		argv:    slices.Clone(argv),
		running: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	return w, nil
}

// Stage returns the stage this worker serves.
func (w *CommandWorker) Stage() stage.Stage {
	return w.stage
}

// Execute runs the command for pageIDs and blocks until it exits.
//
// An empty page list or a malformed settings bag yields
// stage.StatusInvalidInput without starting anything. A zero exit status
// yields stage.StatusOK; any other outcome, including termination by Cancel,
// yields stage.StatusInternalError.
func (w *CommandWorker) Execute(ctx context.Context, sess *model.Session, pageIDs []string, settings model.Settings) stage.Status {
	if len(pageIDs) == 0 {
		w.logger.Warn("no pages to process", "stage", w.stage, "session", sess.ID)
		return stage.StatusInvalidInput
	}
	args, err := Args(w.stage, settings)
	if err != nil {
		w.logger.Warn("invalid settings", "stage", w.stage, "session", sess.ID, "error", err)
		return stage.StatusInvalidInput
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !w.track(sess.ID, cancel) {
		w.logger.Warn("command already running", "stage", w.stage, "session", sess.ID)
		return stage.StatusAlreadyRunning
	}
	defer w.untrack(sess.ID)

	cmdArgs := make([]string, 0, len(w.argv)-1+len(args)+len(pageIDs))
	cmdArgs = append(cmdArgs, w.argv[1:]...)
	cmdArgs = append(cmdArgs, args...)
	cmdArgs = append(cmdArgs, pageIDs...)

	cmd := exec.CommandContext(runCtx, w.argv[0], cmdArgs...)
	cmd.Dir = sess.ProjectDir
	cmd.WaitDelay = waitDelay
	cmd.Env = append(os.Environ(), w.env...)
	cmd.Env = append(cmd.Env,
		EnvProjectDir+"="+sess.ProjectDir,
		EnvImageType+"="+sess.ImageType,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	dur := time.Since(start)

	if err != nil {
		if errors.Is(runCtx.Err(), context.Canceled) {
			w.logger.Warn("command terminated",
				"stage", w.stage,
				"session", sess.ID,
				"duration_ms", dur.Milliseconds(),
			)
			return stage.StatusInternalError
		}
		w.logger.Error("command failed",
			"stage", w.stage,
			"session", sess.ID,
			"cmd", w.argv[0],
			"args", cmdArgs,
			"duration_ms", dur.Milliseconds(),
			"error", err,
			"stderr", truncate(stderr.String(), maxStderrLog),
		)
		return stage.StatusInternalError
	}

	w.logger.Debug("command completed",
		"stage", w.stage,
		"session", sess.ID,
		"duration_ms", dur.Milliseconds(),
		"stdout_bytes", stdout.Len(),
		"stderr_bytes", stderr.Len(),
	)
	return stage.StatusOK
}

// Cancel kills the process running for sess, if any. It returns at once and
// may be called any number of times.
func (w *CommandWorker) Cancel(_ context.Context, sess *model.Session) {
	if sess == nil {
		return
	}
	w.mu.Lock()
	cancel, ok := w.running[sess.ID]
	w.mu.Unlock()

	if ok {
		w.logger.Info("terminating command", "stage", w.stage, "session", sess.ID)
		cancel()
	}
}

// Running reports whether a process is running for sessionID.
func (w *CommandWorker) Running(sessionID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.running[sessionID]
	return ok
}

func (w *CommandWorker) track(sessionID string, cancel context.CancelFunc) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.running[sessionID]; busy {
		return false
	}
	w.running[sessionID] = cancel
	return true
}

func (w *CommandWorker) untrack(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.running, sessionID)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "...(truncated)"
}
