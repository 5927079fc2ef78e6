// Package pipeline drives the fixed document-processing pipeline for a session.
//
// The Orchestrator validates a request, then runs every requested stage in
// the canonical order of the stage registry, narrowing the page set before
// each stage to the pages the gating stage actually produced output for. A
// session runs at most one pipeline at a time; a second request while one is
// in flight is rejected, never queued.
//
// Cancellation comes in two strengths. A cooperative cancel sets the session's
// cancel flag, which the orchestrator checks at every stage boundary, so the
// running stage finishes but no further stage starts. A forceful cancel also
// asks the running stage worker to stop early; how quickly it does is up to
// the worker.
//
// Status and cancel requests only touch the session's run state, which is
// guarded by its own lock, so they never wait for a running stage.
//
// The BatchRunner runs pipelines for several sessions at once, bounded by a
// concurrency limit. Sessions share no state, so their runs are independent.
package pipeline
