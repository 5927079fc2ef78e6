// Package report renders the summary of a processflow invocation.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - MarkdownWriter: GitHub Flavored Markdown for sharing
//   - JSONWriter: Structured JSON output for tool integration
//
// Design decision: the Summary is built once from the pipeline results and
// every writer renders the same value, so adding a format never touches the
// pipeline. Summaries are rendered, never stored.
package report
