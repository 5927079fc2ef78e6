// Package session holds the mutable run state of each user session.
//
// Every session owns one RunState, created on first use and kept for the
// lifetime of the Store. A RunState records which stage is currently running
// and whether cancellation was requested. All access goes through its methods,
// which serialize on a per-session mutex, so status and cancel requests can
// read and modify the state while a stage is executing without waiting for it.
//
// Sessions never share state: two sessions only ever contend on the Store's
// map lock, and only long enough to look up their RunState.
package session
