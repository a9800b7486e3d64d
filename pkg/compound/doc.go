// Package compound implements the two compound node variants driven by a
// nested pkg/runner.Runner over an owned sub-graph: a static compound whose
// sub-graph never changes, and a regenerative compound that rebuilds its
// sub-graph from current run-input before every execution, including the
// replicate-over-array fan-out pattern. See Node.Regenerate and Node.Execute.
package compound
