// Package dataflow implements the typed edges that carry values, status,
// provenance, and error state between nodes in a task graph.
package dataflow

import (
	"fmt"

	"github.com/flowforge/taskgraph/pkg/eventbus"
)

// AllPorts is the reserved wildcard port token: "copy the entire source
// output object into the target's input map" rather than a single value.
const AllPorts = "ALL_PORTS"

// Status mirrors the lifecycle status of an edge's source node.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusAborting   Status = "ABORTING"
	StatusSkipped    Status = "SKIPPED"
)

// Provenance is a shallow string-keyed mapping merged along edges.
type Provenance map[string]string

// Merge returns a new Provenance with other's keys overlaid on p (right
// wins on key collision). Either argument may be nil.
func (p Provenance) Merge(other Provenance) Provenance {
	out := make(Provenance, len(p)+len(other))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Edge is a directed connection from (SourceNodeID, SourcePortID) to
// (TargetNodeID, TargetPortID). Its identifier is derived deterministically
// from the four endpoints so that graph insertion can detect duplicates
// without a separate id allocator.
type Edge struct {
	SourceNodeID string
	SourcePortID string
	TargetNodeID string
	TargetPortID string

	value      map[string]any
	provenance Provenance
	status     Status
	err        error

	events *eventbus.Emitter
}

// New creates an Edge between the given endpoints.
func New(sourceNodeID, sourcePortID, targetNodeID, targetPortID string) *Edge {
	return &Edge{
		SourceNodeID: sourceNodeID,
		SourcePortID: sourcePortID,
		TargetNodeID: targetNodeID,
		TargetPortID: targetPortID,
		status:       StatusPending,
		events:       eventbus.New(),
	}
}

// Identity implements graph.Edgelike.
func (e *Edge) Identity() string {
	return fmt.Sprintf("%s.%s -> %s.%s", e.SourceNodeID, e.SourcePortID, e.TargetNodeID, e.TargetPortID)
}

// SourceNode implements graph.Edgelike.
func (e *Edge) SourceNode() string { return e.SourceNodeID }

// TargetNode implements graph.Edgelike.
func (e *Edge) TargetNode() string { return e.TargetNodeID }

// Events returns the edge's own event emitter (start, complete, abort,
// reset, error, skipped).
func (e *Edge) Events() *eventbus.Emitter { return e.events }

// Status returns the edge's current status mirror.
func (e *Edge) Status() Status { return e.status }

// Err returns the propagated error, if the source node failed.
func (e *Edge) Err() error { return e.err }

// Provenance returns the edge's current provenance map.
func (e *Edge) Provenance() Provenance { return e.provenance }

// GetPortData returns the partial input contribution this edge makes to its
// target node: { targetPortID: value }, or the full value object unchanged
// when SourcePortID/TargetPortID is AllPorts.
func (e *Edge) GetPortData() map[string]any {
	if e.TargetPortID == AllPorts || e.SourcePortID == AllPorts {
		out := make(map[string]any, len(e.value))
		for k, v := range e.value {
			out[k] = v
		}
		return out
	}
	var v any
	if e.value != nil {
		v = e.value[e.SourcePortID]
	}
	return map[string]any{e.TargetPortID: v}
}

// SetPortData reads sourceOutput[SourcePortID] (or the entire object for
// AllPorts) and stores it as the edge's live value, replacing provenance.
func (e *Edge) SetPortData(sourceOutput map[string]any, provenance Provenance) {
	if e.SourcePortID == AllPorts {
		cloned := make(map[string]any, len(sourceOutput))
		for k, v := range sourceOutput {
			cloned[k] = v
		}
		e.value = cloned
	} else {
		e.value = map[string]any{e.SourcePortID: sourceOutput[e.SourcePortID]}
	}
	e.provenance = provenance
}

// PropagateStatus mirrors the source node's status and error onto the edge,
// emitting the matching edge-level event.
func (e *Edge) PropagateStatus(status Status, sourceErr error, ts eventbus.Type) {
	e.status = status
	e.err = sourceErr
	e.events.Emit(eventbus.Event{Type: ts, NodeID: e.TargetNodeID, Err: sourceErr})
}

// Reset clears the edge's value, status, error, and provenance back to a
// pre-run state and emits a reset event.
func (e *Edge) Reset() {
	e.value = nil
	e.provenance = nil
	e.status = StatusPending
	e.err = nil
	e.events.Emit(eventbus.Event{Type: eventbus.Reset, NodeID: e.TargetNodeID})
}
