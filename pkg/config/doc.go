// Package config centralizes configuration for the task-graph engine: execution
// limits, graph size limits, and the default leaf-merge strategy. Per-run
// overrides are expressed separately in runner.RunConfig; Config supplies the
// process-wide defaults a Runner falls back to.
package config
