package taskerr

import (
	"errors"
	"testing"
)

func TestGraphError_Is_MatchesByKind(t *testing.T) {
	a := New(CycleDetected, "edge 1->2 would close a loop")
	if !errors.Is(a, ErrCycleDetected) {
		t.Error("errors.Is() = false, want true for matching Kind")
	}
	if errors.Is(a, ErrMissingEndpoint) {
		t.Error("errors.Is() = true, want false for mismatched Kind")
	}
}

func TestGraphError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	wrapped := Wrap(NodeFailed, "execute panicked", cause)

	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is() = false, want true through Unwrap")
	}
}

func TestGraphError_ForNodeAndEdge(t *testing.T) {
	base := New(InvalidInput, "missing field x")
	nodeErr := base.ForNode("square-1")
	edgeErr := base.ForEdge("e1")

	if nodeErr.NodeID != "square-1" {
		t.Errorf("ForNode() NodeID = %q, want square-1", nodeErr.NodeID)
	}
	if base.NodeID != "" {
		t.Error("ForNode() mutated the receiver")
	}
	if edgeErr.EdgeID != "e1" {
		t.Errorf("ForEdge() EdgeID = %q, want e1", edgeErr.EdgeID)
	}
}

func TestErrorGroup_HasAbortError(t *testing.T) {
	tests := []struct {
		name    string
		entries []FailureEntry
		want    bool
	}{
		{
			name:    "no entries",
			entries: nil,
			want:    false,
		},
		{
			name:    "node failure only",
			entries: []FailureEntry{{Key: "failing", TypeName: string(NodeFailed), Err: New(NodeFailed, "boom")}},
			want:    false,
		},
		{
			name:    "abort entry by type name",
			entries: []FailureEntry{{Key: "*", TypeName: string(Aborted), Err: ErrAborted}},
			want:    true,
		},
		{
			name:    "abort entry wrapped as GraphError",
			entries: []FailureEntry{{Key: "long-running", TypeName: "Aborted", Err: New(Aborted, "cancelled")}},
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewErrorGroup(tt.entries...)
			if got := g.HasAbortError(); got != tt.want {
				t.Errorf("HasAbortError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorGroup_ErrorByKey(t *testing.T) {
	g := NewErrorGroup(
		FailureEntry{Key: "failing", TypeName: string(NodeFailed), Err: New(NodeFailed, "boom")},
	)

	entry, ok := g.ErrorByKey("failing")
	if !ok {
		t.Fatal("ErrorByKey() ok = false, want true")
	}
	if entry.TypeName != string(NodeFailed) {
		t.Errorf("ErrorByKey() TypeName = %q, want %q", entry.TypeName, NodeFailed)
	}

	if _, ok := g.ErrorByKey("missing"); ok {
		t.Error("ErrorByKey() ok = true for absent key, want false")
	}
}

func TestErrorGroup_Empty(t *testing.T) {
	var nilGroup *ErrorGroup
	if !nilGroup.Empty() {
		t.Error("Empty() on nil group = false, want true")
	}

	g := NewErrorGroup()
	if !g.Empty() {
		t.Error("Empty() on group with no entries = false, want true")
	}

	g.Add("n1", string(NodeFailed), errors.New("boom"))
	if g.Empty() {
		t.Error("Empty() after Add = true, want false")
	}
}

func TestErrorGroup_Error(t *testing.T) {
	g := NewErrorGroup(FailureEntry{Key: "failing", TypeName: string(NodeFailed), Err: errors.New("boom")})
	msg := g.Error()
	if msg == "" || msg == "no errors" {
		t.Errorf("Error() = %q, want a populated message", msg)
	}
}
