package stage

import "net/http"

// Status is the HTTP-style outcome code of a stage invocation.
// StatusOK means success; every other value is a failure.
type Status int

// Reserved status codes.
// The 53x codes are application specific and shared by every transport that
// fronts the orchestrator.
const (
	// StatusOK reports a successful invocation.
	StatusOK Status = http.StatusOK

	// StatusBadRequest reports that required request fields were absent.
	StatusBadRequest Status = http.StatusBadRequest

	// StatusInternalError reports a missing session context or a worker crash.
	StatusInternalError Status = http.StatusInternalServerError

	// StatusInvalidInput reports an empty page set or a malformed settings bag.
	StatusInvalidInput Status = 531

	// StatusAlreadyRunning reports that the session already has an active run.
	StatusAlreadyRunning Status = 532

	// StatusMissingSettings reports that a requested stage had no settings entry.
	StatusMissingSettings Status = 533

	// StatusNothingToCancel reports a cancel request without an active run.
	StatusNothingToCancel Status = 534
)

// OK reports whether the status denotes success.
func (s Status) OK() bool {
	return s == StatusOK
}
