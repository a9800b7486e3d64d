// Package dataflow's Edge is the unit the graph runner pushes values through:
// a directed, typed connection that mirrors its source node's status and
// error and exposes GetPortData/SetPortData for the runner's per-step
// input/output wiring. See pkg/graph for the DAG container edges live in and
// pkg/node for the state machine that drives them.
package dataflow
