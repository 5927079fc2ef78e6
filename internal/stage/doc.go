// Package stage defines the fixed, ordered catalog of pipeline stages and the
// contract each stage worker must satisfy.
//
// The pipeline always runs its stages in the canonical order returned by All,
// regardless of the order in which a caller lists them. A Registry binds every
// stage to exactly one Worker and cannot be changed after it is built, so
// adding a stage means extending the enumeration and supplying a worker; no
// dispatch on stage names exists anywhere else.
package stage
