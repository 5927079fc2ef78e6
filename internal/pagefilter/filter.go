package pagefilter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/processflow/internal/model"
	"github.com/nao1215/processflow/internal/stage"
)

// DefaultConcurrency is the number of pages checked in parallel.
const DefaultConcurrency = 8

// Filter checks stage output on disk.
type Filter struct {
	layout      Layout
	concurrency int
	logger      *slog.Logger
}

// Option configures a Filter.
type Option func(*Filter)

// WithLayout replaces the default layout.
func WithLayout(layout Layout) Option {
	return func(f *Filter) {
		f.layout = layout
	}
}

// WithConcurrency sets how many pages are checked at the same time.
// Values below one are ignored.
func WithConcurrency(n int) Option {
	return func(f *Filter) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithLogger sets a custom logger for the filter.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Filter) {
		f.logger = logger
	}
}

// New creates a Filter. The layout is validated here so that a bad pattern
// is reported at startup rather than in the middle of a run.
func New(opts ...Option) (*Filter, error) {
	f := &Filter{
		layout:      DefaultLayout(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	if err := f.layout.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// FilterValid returns the pages of pageIDs that have output from the given
// stage in the session's project directory.
//
// The result preserves input order and is always a subset of pageIDs. It may
// be empty; deciding what an empty page set means is the next stage's job.
// A stage without layout patterns admits no page.
func (f *Filter) FilterValid(ctx context.Context, sess *model.Session, pageIDs []string, preceding stage.Stage) ([]string, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	patterns := f.layout[preceding]

	keep := make([]bool, len(pageIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, id := range pageIDs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ok, err := hasOutput(sess.ProjectDir, patterns, id)
			if err != nil {
				return err
			}
			keep[i] = ok
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to check %s output: %w", preceding, err)
	}

	valid := make([]string, 0, len(pageIDs))
	for i, id := range pageIDs {
		if keep[i] {
			valid = append(valid, id)
		}
	}

	if len(valid) != len(pageIDs) {
		f.logger.Info("pages without stage output were dropped",
			"stage", preceding.String(),
			"requested", len(pageIDs),
			"valid", len(valid),
		)
	}

	return valid, nil
}

// hasOutput reports whether every pattern matches at least one file for the
// page. Page ids that could escape the project directory never match.
func hasOutput(projectDir string, patterns []string, pageID string) (bool, error) {
	if !safePageID(pageID) || len(patterns) == 0 {
		return false, nil
	}
	for _, p := range patterns {
		matches, err := filepath.Glob(expand(projectDir, p, pageID))
		if err != nil {
			return false, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p, err)
		}
		if len(matches) == 0 {
			return false, nil
		}
	}
	return true, nil
}

// safePageID rejects empty ids, ids containing path separators, and ids that
// refer to a parent directory.
func safePageID(id string) bool {
	if id == "" || id == "." || strings.Contains(id, "..") {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}
