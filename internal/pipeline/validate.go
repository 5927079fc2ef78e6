package pipeline

import (
	"github.com/nao1215/processflow/internal/model"
	"github.com/nao1215/processflow/internal/stage"
)

// ValidateSettings checks that settings has an entry for every stage in
// processes. It stops at the first stage without one and returns a
// *MissingSettingsError naming it. Nil inputs are allowed: no processes means
// nothing to check.
//
// Only the presence of the entry is checked. What goes inside a stage's bag
// is the stage worker's concern.
func ValidateSettings(processes []stage.Stage, settings map[stage.Stage]model.Settings) error {
	for _, s := range processes {
		if _, ok := settings[s]; !ok {
			return &MissingSettingsError{Stage: s}
		}
	}
	return nil
}
