// Package node implements the node lifecycle state machine described by the
// engine: PENDING -> PROCESSING -> {COMPLETED, FAILED, ABORTING}, with input
// merging, schema validation, and cache-fingerprint derivation in between.
//
// A Node delegates its actual computation to a Provider (see nodes/ for the
// demo set); RunFull drives a process run including cache consultation,
// RunReactive drives the cheaper recompute-from-current-inputs pass used by
// reactive-only runs and cache-hit view refreshes.
package node
