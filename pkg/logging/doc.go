// Package logging provides structured logging for the task-graph engine,
// wrapping log/slog with a small set of With* builders for the fields a
// caller attaches to almost every line: run_id, graph_id, node_id,
// node_type. The runner, scheduler and compound packages do not log;
// cmd/demo is the caller in this module. JSON output by default; Pretty switches to slog's
// text handler for local development.
package logging
