package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/processflow/internal/log"
)

// SimpleWriter outputs human-readable text summaries for terminal display.
//
// Design decision: plain text with ASCII formatting and no ANSI colors, so
// the output can be piped to files or other tools unchanged. The CLI adds
// color to its own one-line status messages instead.
type SimpleWriter struct {
	baseWriter

	// verbose lists every page id instead of a compact range.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	for _, run := range summary.Runs {
		w.writeRun(&sb, run)
	}
	w.writeFooter(&sb, summary)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                       PROCESS FLOW REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Sessions:  %d\n", len(summary.Runs))
	fmt.Fprintf(sb, "Completed: %d\n", summary.Count(OutcomeCompleted))
	fmt.Fprintf(sb, "Cancelled: %d\n", summary.Count(OutcomeCancelled))
	fmt.Fprintf(sb, "Failed:    %d\n", summary.Count(OutcomeFailed))
	fmt.Fprintf(sb, "Rejected:  %d\n", summary.Count(OutcomeRejected))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeRun(sb *strings.Builder, run Run) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "SESSION %s\n", run.SessionID)
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Project:    %s\n", run.ProjectDir)
	fmt.Fprintf(sb, "Image Type: %s\n", run.ImageType)
	fmt.Fprintf(sb, "Outcome:    %s (status %d)\n", strings.ToUpper(string(run.Outcome)), int(run.Status))
	if run.Error != "" {
		fmt.Fprintf(sb, "Error:      %s\n", run.Error)
	}
	sb.WriteString("\n")

	if len(run.Stages) == 0 {
		sb.WriteString("  No stage was executed\n\n")
		return
	}

	for _, rec := range run.Stages {
		marker := "+"
		if !rec.Status.OK() {
			marker = "x"
		}
		fmt.Fprintf(sb, "  [%s] %-18s %4d pages  %s\n",
			marker, rec.Stage, len(rec.PageIDs), rec.Duration.Round(time.Millisecond))
		if w.verbose && len(rec.PageIDs) > 0 {
			fmt.Fprintf(sb, "      %s\n", strings.Join(rec.PageIDs, " "))
		} else if len(rec.PageIDs) > 0 {
			fmt.Fprintf(sb, "      %s\n", log.Compact(rec.PageIDs))
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder, summary *Summary) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Report generated by processflow %s\n", summary.Version)
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
