package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/nao1215/processflow/internal/model"
	"github.com/nao1215/processflow/internal/pipeline"
)

// canceller is the part of the orchestrator the interrupt handler needs.
type canceller interface {
	Cancel(ctx context.Context, sess *model.Session, terminateCurrent bool) error
}

// interruptHandler turns repeated interrupts into increasingly forceful
// cancellation. The first interrupt asks every session to stop after its
// current stage. The second also terminates the running stages. Any further
// interrupt abandons the run by cancelling the context.
type interruptHandler struct {
	ctx      context.Context
	cancel   context.CancelFunc
	target   canceller
	sessions []*model.Session
	logger   *slog.Logger

	mu    sync.Mutex
	count int
}

func newInterruptHandler(ctx context.Context, cancel context.CancelFunc, target canceller, sessions []*model.Session, logger *slog.Logger) *interruptHandler {
	return &interruptHandler{
		ctx:      ctx,
		cancel:   cancel,
		target:   target,
		sessions: sessions,
		logger:   logger,
	}
}

// watch handles signals from sigCh until done is closed.
func (h *interruptHandler) watch(sigCh <-chan os.Signal, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case sig := <-sigCh:
			h.logger.Debug("received signal", "signal", sig.String())
			h.interrupt()
		}
	}
}

// interrupt escalates by one step and returns the number of interrupts seen.
func (h *interruptHandler) interrupt() int {
	h.mu.Lock()
	h.count++
	n := h.count
	h.mu.Unlock()

	switch n {
	case 1:
		h.logger.Warn("interrupt received, stopping after the current stage (press Ctrl-C again to terminate it)")
		h.cancelSessions(false)
	case 2:
		h.logger.Warn("interrupt received, terminating the running stage (press Ctrl-C again to abort)")
		h.cancelSessions(true)
	default:
		h.logger.Warn("interrupt received, aborting")
		h.cancel()
	}
	return n
}

func (h *interruptHandler) cancelSessions(terminateCurrent bool) {
	for _, sess := range h.sessions {
		err := h.target.Cancel(h.ctx, sess, terminateCurrent)
		switch {
		case err == nil:
			h.logger.Info("cancellation requested", "session", sess.ID, "terminate", terminateCurrent)
		case errors.Is(err, pipeline.ErrNothingToCancel):
			h.logger.Debug("session not running", "session", sess.ID)
		default:
			h.logger.Error("failed to cancel session", "session", sess.ID, "error", err)
		}
	}
}
