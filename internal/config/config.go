package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/nao1215/processflow/internal/pagefilter"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "processflow"

	// DefaultImageType is the image variant recognition works on when none is
	// given. Binary images are what the preprocessing stage always produces.
	DefaultImageType = "Binary"

	// DefaultConcurrency is the number of projects processed at once when
	// several are given.
	DefaultConcurrency = 2

	// DefaultFilterConcurrency is the number of pages whose output is checked
	// in parallel between stages.
	DefaultFilterConcurrency = pagefilter.DefaultConcurrency
)

// Config holds all configuration options for a processflow run.
// It is populated from CLI flags and passed down explicitly.
//
// Design decision: a single flat struct, like the options it mirrors. The
// YAML file is kept apart in File because it describes the installation
// (which commands implement which stage), not a single run.
type Config struct {
	// ProjectDirs are the project directories to process. Each one becomes
	// its own session.
	ProjectDirs []string

	// ImageType is the image variant later stages work on, e.g. "Binary"
	// or "Gray".
	ImageType string

	// Stages lists the stage names to run. Order does not matter.
	Stages []string

	// PageIDs limits the run to these pages. When empty, the pages are
	// discovered from each project's original image directory.
	PageIDs []string

	// SettingsFile is an optional YAML or JSON file holding per-stage
	// settings for this run.
	SettingsFile string

	// EnvFile is an optional dotenv file whose variables are added to the
	// environment of every stage command.
	EnvFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the usual locations.
	ConfigFilePath string

	// File is the loaded configuration file, or nil if none was found.
	File *File

	// Concurrency is the number of projects processed at once.
	Concurrency int

	// FilterConcurrency is the number of pages checked in parallel by the
	// page filter.
	FilterConcurrency int

	// Verbose enables debug logging. When false, only warnings and errors
	// are logged.
	Verbose bool

	// LogJSON writes log records as JSON instead of text.
	LogJSON bool

	// JSONReport writes the run summary as JSON.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport writes the run summary as GitHub Flavored Markdown.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the run summary.
	// When empty, the summary goes to stdout.
	ReportFile string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		ImageType:         DefaultImageType,
		Concurrency:       DefaultConcurrency,
		FilterConcurrency: DefaultFilterConcurrency,
	}
}

// XDGConfigDir returns the XDG config directory for processflow.
// On Linux: ~/.config/processflow
// On macOS: ~/Library/Application Support/processflow
// On Windows: %APPDATA%\processflow
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as one of the sentinel errors.
func (c *Config) Validate() error {
	if len(c.ProjectDirs) == 0 {
		return ErrNoProjectDir
	}
	for _, dir := range c.ProjectDirs {
		if dir == "" {
			return ErrNoProjectDir
		}
	}

	if c.ImageType == "" {
		return ErrNoImageType
	}

	if len(c.Stages) == 0 {
		return ErrNoStages
	}

	if c.Concurrency <= 0 || c.FilterConcurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
