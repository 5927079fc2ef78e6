package pagefilter

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nao1215/processflow/internal/stage"
)

// PagePlaceholder is replaced by the page id in layout patterns.
const PagePlaceholder = "{page}"

// ErrInvalidPattern is returned when a layout pattern cannot be used.
var ErrInvalidPattern = errors.New("invalid layout pattern")

// Layout describes, per stage, where that stage leaves its output.
// Each pattern is a glob relative to the project directory and must contain
// PagePlaceholder. A page counts as processed by a stage when every pattern of
// that stage matches at least one file.
type Layout map[stage.Stage][]string

// DefaultLayout returns the directory layout written by the standard stage
// workers.
func DefaultLayout() Layout {
	return Layout{
		stage.Preprocessing: {
			"processing/{page}.bin.png",
			"processing/{page}.nrm.png",
		},
		stage.Despeckling: {
			"processing/{page}.desp.png",
		},
		stage.Segmentation: {
			"processing/{page}.xml",
		},
		stage.RegionExtraction: {
			"processing/{page}/*.png",
		},
		stage.LineSegmentation: {
			"processing/{page}/*/*.bin.png",
		},
		stage.Recognition: {
			"processing/{page}/*/*.txt",
		},
	}
}

// Validate checks every pattern of the layout.
func (l Layout) Validate() error {
	for s, patterns := range l {
		if !s.Valid() {
			return fmt.Errorf("%w: layout for %v", stage.ErrUnknownStage, s)
		}
		for _, p := range patterns {
			if err := validatePattern(p); err != nil {
				return fmt.Errorf("%s: %w", s, err)
			}
		}
	}
	return nil
}

// Merge returns a copy of l where the stages present in override replace
// their entries in l.
func (l Layout) Merge(override Layout) Layout {
	out := make(Layout, len(l)+len(override))
	for s, patterns := range l {
		out[s] = append([]string(nil), patterns...)
	}
	for s, patterns := range override {
		out[s] = append([]string(nil), patterns...)
	}
	return out
}

// validatePattern rejects patterns that do not mention the page or that
// filepath.Match cannot parse.
func validatePattern(p string) error {
	if !strings.Contains(p, PagePlaceholder) {
		return fmt.Errorf("%w: %q does not contain %s", ErrInvalidPattern, p, PagePlaceholder)
	}
	if filepath.IsAbs(p) {
		return fmt.Errorf("%w: %q must be relative to the project directory", ErrInvalidPattern, p)
	}
	sample := strings.ReplaceAll(p, PagePlaceholder, "page")
	if _, err := filepath.Match(sample, ""); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p, err)
	}
	return nil
}

// expand builds the concrete glob for one page.
// Glob metacharacters in the page id are escaped so they match literally.
func expand(projectDir, pattern, pageID string) string {
	rel := strings.ReplaceAll(pattern, PagePlaceholder, escapeGlob(pageID))
	return filepath.Join(escapeGlob(filepath.Clean(projectDir)), filepath.FromSlash(rel))
}

// escapeGlob quotes the characters filepath.Match treats specially.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
