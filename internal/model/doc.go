// Package model defines the data structures shared across processflow.
//
// This package contains the following main types:
//   - Session: the per-user handle (project location and image type) that is
//     passed to stage workers and used to key run state
//   - Settings: the untyped settings bag supplied for one stage
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The stage registry, the session store, the page filter and the
// workers all need the session handle, and centralizing it prevents import
// cycles between them.
package model
