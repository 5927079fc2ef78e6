package stage

import (
	"errors"
	"fmt"
)

// ErrUnknownStage is returned when a stage name or value is not part of the
// canonical enumeration.
var ErrUnknownStage = errors.New("unknown stage")

// Stage identifies one step of the pipeline.
// The zero value None means "no stage" and is what the session reports while
// nothing is running.
type Stage int

const (
	// None is the empty stage.
	None Stage = iota

	// Preprocessing produces the binary and grayscale page images.
	Preprocessing

	// Despeckling removes small contours from the binary images.
	Despeckling

	// Segmentation detects page regions and writes the page layout.
	Segmentation

	// RegionExtraction cuts region images out of the segmented pages.
	RegionExtraction

	// LineSegmentation splits the extracted regions into text lines.
	LineSegmentation

	// Recognition recognizes the text of every segmented line.
	Recognition
)

// canonical is the fixed execution order. It must list every stage except None
// exactly once.
var canonical = [...]Stage{
	Preprocessing,
	Despeckling,
	Segmentation,
	RegionExtraction,
	LineSegmentation,
	Recognition,
}

// names maps stages to the identifiers used on the wire.
var names = map[Stage]string{
	None:             "",
	Preprocessing:    "preprocessing",
	Despeckling:      "despeckling",
	Segmentation:     "segmentation",
	RegionExtraction: "regionExtraction",
	LineSegmentation: "lineSegmentation",
	Recognition:      "recognition",
}

// gates records which earlier stage's output decides the input pages of a
// stage. It is deliberately not "the previous stage": despeckling gates
// nothing, and segmentation is gated on preprocessing.
var gates = map[Stage]Stage{
	Despeckling:      Preprocessing,
	Segmentation:     Preprocessing,
	RegionExtraction: Segmentation,
	LineSegmentation: RegionExtraction,
	Recognition:      LineSegmentation,
}

// All returns every stage in canonical execution order.
// The returned slice is a fresh copy and may be modified by the caller.
func All() []Stage {
	out := make([]Stage, len(canonical))
	copy(out, canonical[:])
	return out
}

// String returns the wire name of the stage. None renders as the empty string.
func (s Stage) String() string {
	if name, ok := names[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Valid reports whether s is one of the canonical stages.
func (s Stage) Valid() bool {
	return s > None && int(s) <= len(canonical)
}

// Index returns the position of s in the canonical order, or -1 for None and
// unknown values.
func (s Stage) Index() int {
	if !s.Valid() {
		return -1
	}
	return int(s) - 1
}

// Parse converts a wire name into a Stage.
func Parse(name string) (Stage, error) {
	for _, s := range canonical {
		if names[s] == name {
			return s, nil
		}
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownStage, name)
}

// ParseList converts a list of wire names, rejecting unknown names.
func ParseList(list []string) ([]Stage, error) {
	if list == nil {
		return nil, nil
	}
	out := make([]Stage, 0, len(list))
	for _, name := range list {
		s, err := Parse(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Gate returns the stage whose on-disk output determines which pages may
// enter s. The second result is false when s is not gated.
func Gate(s Stage) (Stage, bool) {
	g, ok := gates[s]
	return g, ok
}

// MarshalText implements encoding.TextMarshaler so stages serialize by name.
func (s Stage) MarshalText() ([]byte, error) {
	if s != None && !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStage, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// The empty string decodes to None.
func (s *Stage) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = None
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
