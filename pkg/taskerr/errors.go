// Package taskerr defines the error vocabulary shared by the graph, node,
// scheduler, and runner packages: a closed set of error kinds, a GraphError
// wrapper that carries one of those kinds plus context, and an ErrorGroup
// that aggregates the per-node failures a run produces.
package taskerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the category of a GraphError.
type Kind string

const (
	DuplicateIdentity Kind = "DuplicateIdentity"
	MissingEndpoint   Kind = "MissingEndpoint"
	CycleDetected     Kind = "CycleDetected"
	InvalidInput      Kind = "InvalidInput"
	Configuration     Kind = "Configuration"
	Aborted           Kind = "Aborted"
	NodeFailed        Kind = "NodeFailed"
)

// Sentinel errors, one per Kind except NodeFailed, usable directly with errors.Is against a
// wrapped GraphError (GraphError.Is compares by Kind, not by identity).
var (
	ErrDuplicateIdentity = &GraphError{Kind: DuplicateIdentity, Message: "identity already exists"}
	ErrMissingEndpoint   = &GraphError{Kind: MissingEndpoint, Message: "edge references a node that does not exist"}
	ErrCycleDetected     = &GraphError{Kind: CycleDetected, Message: "operation would introduce a cycle"}
	ErrInvalidInput      = &GraphError{Kind: InvalidInput, Message: "input failed validation"}
	ErrConfiguration     = &GraphError{Kind: Configuration, Message: "invalid configuration"}
	ErrAborted           = &GraphError{Kind: Aborted, Message: "operation was aborted"}
)

// GraphError is the common error shape raised by graph, node, scheduler, and
// runner operations. NodeID and EdgeID are populated when the error concerns
// a specific entity; both are empty for graph-wide errors.
type GraphError struct {
	Kind    Kind
	Message string
	NodeID  string
	EdgeID  string
	Err     error
}

func (e *GraphError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.NodeID != "" {
		fmt.Fprintf(&b, " (node=%s)", e.NodeID)
	}
	if e.EdgeID != "" {
		fmt.Fprintf(&b, " (edge=%s)", e.EdgeID)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/As chains.
func (e *GraphError) Unwrap() error { return e.Err }

// Is reports equality by Kind so callers can match against the package
// sentinels (errors.Is(err, taskerr.ErrCycleDetected)) regardless of which
// node or edge the concrete error names.
func (e *GraphError) Is(target error) bool {
	other, ok := target.(*GraphError)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// New builds a GraphError of the given kind with a message.
func New(kind Kind, message string) *GraphError {
	return &GraphError{Kind: kind, Message: message}
}

// Wrap builds a GraphError of the given kind around an underlying cause.
func Wrap(kind Kind, message string, err error) *GraphError {
	return &GraphError{Kind: kind, Message: message, Err: err}
}

// ForNode returns a copy of e annotated with nodeID.
func (e *GraphError) ForNode(nodeID string) *GraphError {
	c := *e
	c.NodeID = nodeID
	return &c
}

// ForEdge returns a copy of e annotated with edgeID.
func (e *GraphError) ForEdge(edgeID string) *GraphError {
	c := *e
	c.EdgeID = edgeID
	return &c
}

// FailureEntry is one node's contribution to an ErrorGroup.
type FailureEntry struct {
	Key      string
	TypeName string
	Err      error
}

// ErrorGroup aggregates the failures (and, optionally, a single abort
// sentinel) produced by one run. A failed run raises exactly one ErrorGroup
// regardless of how many nodes failed.
type ErrorGroup struct {
	entries []FailureEntry
}

// NewErrorGroup creates an ErrorGroup from the given entries.
func NewErrorGroup(entries ...FailureEntry) *ErrorGroup {
	return &ErrorGroup{entries: entries}
}

// Add appends a failure entry.
func (g *ErrorGroup) Add(key, typeName string, err error) {
	g.entries = append(g.entries, FailureEntry{Key: key, TypeName: typeName, Err: err})
}

// Empty reports whether the group has no entries.
func (g *ErrorGroup) Empty() bool { return g == nil || len(g.entries) == 0 }

// Errors returns every entry in the group, in the order they were added.
func (g *ErrorGroup) Errors() []FailureEntry {
	if g == nil {
		return nil
	}
	return g.entries
}

// HasAbortError reports whether the group contains an Aborted entry.
func (g *ErrorGroup) HasAbortError() bool {
	if g == nil {
		return false
	}
	for _, e := range g.entries {
		if e.TypeName == string(Aborted) {
			return true
		}
		var ge *GraphError
		if errors.As(e.Err, &ge) && ge.Kind == Aborted {
			return true
		}
	}
	return false
}

// ErrorByKey returns the failure entry for key, if present.
func (g *ErrorGroup) ErrorByKey(key string) (FailureEntry, bool) {
	if g == nil {
		return FailureEntry{}, false
	}
	for _, e := range g.entries {
		if e.Key == key {
			return e, true
		}
	}
	return FailureEntry{}, false
}

// Error implements the error interface, joining every entry's message.
func (g *ErrorGroup) Error() string {
	if g.Empty() {
		return "no errors"
	}
	parts := make([]string, 0, len(g.entries))
	for _, e := range g.entries {
		parts = append(parts, fmt.Sprintf("%s(%s): %v", e.Key, e.TypeName, e.Err))
	}
	return "errorGroup: " + strings.Join(parts, "; ")
}
