package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter outputs summaries in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation, which gives us tables, GitHub alerts and mermaid charts
// without hand-building the syntax.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	for _, run := range summary.Runs {
		w.writeRun(md, run)
	}
	w.writeFooter(md, summary)

	return len(md.String()), md.Build()
}

// writeHeader writes the title and the outcome overview.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *Summary) {
	md.H1("Process Flow Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Sessions"},
		Rows: [][]string{
			{"✅ Completed", strconv.Itoa(summary.Count(OutcomeCompleted))},
			{"⏹️ Cancelled", strconv.Itoa(summary.Count(OutcomeCancelled))},
			{"❌ Failed", strconv.Itoa(summary.Count(OutcomeFailed))},
			{"🚫 Rejected", strconv.Itoa(summary.Count(OutcomeRejected))},
			{"**Total**", "**" + strconv.Itoa(len(summary.Runs)) + "**"},
		},
	})
	md.PlainText("")
}

// writeRun writes one session's section.
func (w *MarkdownWriter) writeRun(md *markdown.Markdown, run Run) {
	md.H2("Session " + run.SessionID)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Project", "`" + run.ProjectDir + "`"},
			{"Image Type", run.ImageType},
			{"Outcome", string(run.Outcome)},
			{"Status", strconv.Itoa(int(run.Status))},
			{"Elapsed", run.Elapsed.Round(time.Millisecond).String()},
		},
	})
	md.PlainText("")

	w.writeAlert(md, run)

	if len(run.Stages) == 0 {
		md.PlainText("No stage was executed.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(run.Stages))
	for i, rec := range run.Stages {
		rows[i] = []string{
			rec.Stage.String(),
			strconv.Itoa(len(rec.PageIDs)),
			strconv.Itoa(int(rec.Status)),
			rec.Duration.Round(time.Millisecond).String(),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Stage", "Pages", "Status", "Duration"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, run)

	if last := run.Stages[len(run.Stages)-1]; len(last.PageIDs) > 0 {
		md.Details("Pages given to "+last.Stage.String(), strings.Join(last.PageIDs, ", "))
		md.PlainText("")
	}
}

// writeAlert writes an alert matching the run outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, run Run) {
	switch run.Outcome {
	case OutcomeCompleted:
		md.Tip("All requested stages completed: " + strings.Join(stageNames(run), " → "))
	case OutcomeCancelled:
		md.Warningf("Run cancelled after %d stage(s).", len(run.Stages))
	case OutcomeFailed:
		md.Cautionf("Run failed with status %d: %s", int(run.Status), run.Error)
	case OutcomeRejected:
		md.Importantf("Request rejected with status %d: %s", int(run.Status), run.Error)
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of time spent per stage.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, run Run) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Time per stage (ms)"),
		piechart.WithShowData(true),
	)

	plotted := 0
	for _, rec := range run.Stages {
		ms := rec.Duration.Milliseconds()
		if ms <= 0 {
			continue
		}
		chart.LabelAndIntValue(rec.Stage.String(), uint64(ms))
		plotted++
	}
	if plotted < 2 {
		return
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown, summary *Summary) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by processflow %s at %s*",
		summary.Version, summary.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
}
