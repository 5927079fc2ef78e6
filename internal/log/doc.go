// Package log provides the application's slog setup.
//
// Pipeline runs log the page ids a stage receives, and a book has hundreds of
// pages. The CompactHandler wraps any slog.Handler and shortens long string
// lists to their first and last element plus a count, so a log line stays
// readable while the ends of the range remain visible.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//
//	logger.Info("executing stage",
//	    "stage", "despeckling",
//	    "pages", pageIDs, // e.g. "0001 … 0420 (420 items)"
//	)
//
//	slog.SetDefault(logger)
package log
