package config

import (
	"fmt"
	"slices"

	"github.com/nao1215/processflow/internal/model"
	"github.com/nao1215/processflow/internal/pagefilter"
	"github.com/nao1215/processflow/internal/stage"
)

// CommandPrefix is prepended to a stage name to form the default worker
// command, e.g. "processflow-despeckling".
const CommandPrefix = "processflow-"

// File represents the structure of the .processflow configuration file.
// All sections are keyed by stage name.
type File struct {
	// Workers maps a stage to the command line that implements it.
	// Stages without an entry use DefaultCommand.
	Workers map[string][]string `yaml:"workers,omitempty"`

	// Settings holds default settings per stage. Settings given for a run
	// override these key by key.
	Settings map[string]model.Settings `yaml:"settings,omitempty"`

	// Layout overrides the output patterns the page filter checks.
	// Stages without an entry keep the default patterns.
	Layout map[string][]string `yaml:"layout,omitempty"`
}

// DefaultCommand returns the command used for s when the file has none.
func DefaultCommand(s stage.Stage) []string {
	return []string{CommandPrefix + s.String()}
}

// Validate checks that every section only names known stages and that the
// layout patterns are usable.
func (f *File) Validate() error {
	if f == nil {
		return nil
	}
	for name, argv := range f.Workers {
		if _, err := stage.Parse(name); err != nil {
			return fmt.Errorf("%w: workers: %w", ErrInvalidConfigFile, err)
		}
		if len(argv) == 0 || argv[0] == "" {
			return fmt.Errorf("%w: workers: empty command for %s", ErrInvalidConfigFile, name)
		}
	}
	for name := range f.Settings {
		if _, err := stage.Parse(name); err != nil {
			return fmt.Errorf("%w: settings: %w", ErrInvalidConfigFile, err)
		}
	}
	if len(f.Settings) > 0 {
		doc := map[string]any{"processSettings": f.Settings}
		if err := ValidateSettingsDocument(doc); err != nil {
			return fmt.Errorf("%w: settings: %w", ErrInvalidConfigFile, err)
		}
	}
	if _, err := f.PageLayout(); err != nil {
		return err
	}
	return nil
}

// WorkerCommand returns the command line for s.
func (f *File) WorkerCommand(s stage.Stage) []string {
	if f != nil {
		if argv, ok := f.Workers[s.String()]; ok && len(argv) > 0 {
			return slices.Clone(argv)
		}
	}
	return DefaultCommand(s)
}

// StageSettings merges the file's default settings for s under override.
// Keys in override win. The result is never nil.
func (f *File) StageSettings(s stage.Stage, override model.Settings) model.Settings {
	var base model.Settings
	if f != nil {
		base = f.Settings[s.String()]
	}
	return override.Merge(base)
}

// PageLayout returns the default page filter layout with the file's
// overrides applied.
func (f *File) PageLayout() (pagefilter.Layout, error) {
	layout := pagefilter.DefaultLayout()
	if f == nil || len(f.Layout) == 0 {
		return layout, nil
	}

	override := make(pagefilter.Layout, len(f.Layout))
	for name, patterns := range f.Layout {
		s, err := stage.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("%w: layout: %w", ErrInvalidConfigFile, err)
		}
		override[s] = slices.Clone(patterns)
	}

	merged := layout.Merge(override)
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("%w: layout: %w", ErrInvalidConfigFile, err)
	}
	return merged, nil
}
