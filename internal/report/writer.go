package report

import (
	"io"
)

// Writer defines the interface for summary output.
type Writer interface {
	// Write outputs the summary to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(summary *Summary) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// stageNames returns the stage names of run in execution order.
func stageNames(run Run) []string {
	names := make([]string, len(run.Stages))
	for i, rec := range run.Stages {
		names[i] = rec.Stage.String()
	}
	return names
}
