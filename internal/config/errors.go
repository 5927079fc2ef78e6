package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and the file loader, so
// callers can use errors.Is() to tell them apart.
var (
	// ErrNoProjectDir is returned when no project directory is specified.
	ErrNoProjectDir = errors.New("no project directory specified: use --project")

	// ErrNoImageType is returned when the image type is empty.
	ErrNoImageType = errors.New("no image type specified: use --image-type")

	// ErrNoStages is returned when no stage is requested.
	ErrNoStages = errors.New("no stages specified: use --stages")

	// ErrInvalidConcurrency is returned when a concurrency limit is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidSettings is returned when a settings document holds a value of
	// the wrong type for its stage.
	ErrInvalidSettings = errors.New("invalid settings")

	// ErrInvalidConfigFile is returned when the configuration file names an
	// unknown stage or holds an invalid layout.
	ErrInvalidConfigFile = errors.New("invalid configuration file")
)
