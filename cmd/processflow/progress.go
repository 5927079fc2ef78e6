package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/nao1215/processflow/internal/model"
	"github.com/nao1215/processflow/internal/stage"
)

// progressInterval is how often the spinner text is refreshed.
const progressInterval = 200 * time.Millisecond

// statusFunc reports the stage currently running for a session.
type statusFunc func(sessionID string) stage.Stage

// progress shows a spinner with the stage each session is running.
type progress struct {
	spinner  *spinner.Spinner
	status   statusFunc
	sessions []*model.Session
}

func newProgress(w io.Writer, status statusFunc, sessions []*model.Session) *progress {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Writer = w
	s.Suffix = " starting"
	return &progress{
		spinner:  s,
		status:   status,
		sessions: sessions,
	}
}

// run animates the spinner until done is closed.
func (p *progress) run(done <-chan struct{}) {
	p.spinner.Start()
	defer p.spinner.Stop()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			p.spinner.Lock()
			p.spinner.Suffix = " " + p.describe()
			p.spinner.Unlock()
		}
	}
}

// describe renders the current stage of every running session.
// Sessions are named by their project directory when there is more than one.
func (p *progress) describe() string {
	parts := make([]string, 0, len(p.sessions))
	for _, sess := range p.sessions {
		current := p.status(sess.ID)
		if current == stage.None {
			continue
		}
		if len(p.sessions) == 1 {
			parts = append(parts, current.String())
			continue
		}
		parts = append(parts, fmt.Sprintf("%s [%s]", current, sess.ProjectDir))
	}
	if len(parts) == 0 {
		return "waiting"
	}
	return strings.Join(parts, ", ")
}
