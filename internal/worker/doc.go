// Package worker provides stage workers that run external commands.
//
// A CommandWorker owns one stage. It turns the stage's settings bag into
// command-line flags, appends the page ids, and runs the configured command
// in the session's project directory. Each session has at most one process
// per worker, which Cancel kills.
package worker
