package worker

import "errors"

var (
	// ErrNoCommand is returned when a worker is configured without a command.
	ErrNoCommand = errors.New("no command configured")

	// ErrInvalidSettings is returned when a settings bag does not have the
	// shape the stage expects.
	ErrInvalidSettings = errors.New("invalid stage settings")
)
