package model

import (
	"errors"
	"strings"
)

// ErrInvalidSession is returned when a session lacks the context a run needs.
// A session must name its project directory and the image type the user
// selected before any stage can be executed.
var ErrInvalidSession = errors.New("invalid session: project directory and image type must be set")

// Session is the handle a caller holds for one user session.
// It carries the context stage workers need to locate their input and output,
// and its ID keys the session's run state in the session store.
//
// Session is immutable once created; run state lives elsewhere so that a
// Session can be shared freely between the orchestrator and stage workers.
type Session struct {
	// ID uniquely identifies the session in the session store.
	ID string `json:"id" yaml:"id"`

	// ProjectDir is the root directory of the project the session works on.
	// Stage workers read their input and write their output below it.
	ProjectDir string `json:"project_dir" yaml:"projectDir"`

	// ImageType is the image variant the user selected for the project
	// (for example "Binary" or "Gray").
	ImageType string `json:"image_type" yaml:"imageType"`
}

// NewSession creates a session handle.
func NewSession(id, projectDir, imageType string) *Session {
	return &Session{
		ID:         id,
		ProjectDir: projectDir,
		ImageType:  imageType,
	}
}

// Validate reports whether the session carries everything a run needs.
// Blank values count as missing.
func (s *Session) Validate() error {
	if s == nil {
		return ErrInvalidSession
	}
	if strings.TrimSpace(s.ProjectDir) == "" || strings.TrimSpace(s.ImageType) == "" {
		return ErrInvalidSession
	}
	return nil
}
