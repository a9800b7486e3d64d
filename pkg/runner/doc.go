// Package runner ties graph, node, dataflow, scheduler, cache, and taskerr
// together into the orchestrator a caller actually invokes: Run for a full
// process run and RunReactive for a cache-free view refresh pass. See
// Runner.Run and Runner.RunReactive for the procedures they implement.
package runner
