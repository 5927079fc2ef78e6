// Package pagefilter decides which pages may enter the next pipeline stage.
//
// A stage worker can silently skip a page (for example when an image is judged
// unsuitable) without reporting a pipeline-level failure. Before each stage the
// orchestrator therefore asks the Filter which of the current pages actually
// have output on disk from the gating stage, and only those pages are passed on.
//
// The check is a pure filesystem predicate evaluated fresh on every call. The
// result keeps the input order and never contains a page that was not in the
// input.
package pagefilter
