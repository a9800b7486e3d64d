package graph

import (
	"sort"
	"testing"
)

// testNode and testEdge are minimal Identifiable/Edgelike implementations
// used to exercise Graph without depending on pkg/node or pkg/dataflow.

type testNode struct{ id string }

func (n testNode) Identity() string { return n.id }

type testEdge struct{ id, source, target string }

func (e testEdge) Identity() string   { return e.id }
func (e testEdge) SourceNode() string { return e.source }
func (e testEdge) TargetNode() string { return e.target }

func newTestGraph() *Graph[testNode, testEdge] {
	return New[testNode, testEdge]()
}

func mustAddNodes(t *testing.T, g *Graph[testNode, testEdge], ids ...string) {
	t.Helper()
	for _, id := range ids {
		if err := g.AddNode(testNode{id: id}); err != nil {
			t.Fatalf("AddNode(%s) unexpected error: %v", id, err)
		}
	}
}

func TestAddNode_DuplicateIdentity(t *testing.T) {
	g := newTestGraph()
	mustAddNodes(t, g, "1")

	err := g.AddNode(testNode{id: "1"})
	if err != ErrDuplicateIdentity {
		t.Errorf("AddNode() error = %v, want %v", err, ErrDuplicateIdentity)
	}
}

func TestAddEdge_MissingEndpoint(t *testing.T) {
	g := newTestGraph()
	mustAddNodes(t, g, "1")

	err := g.AddEdge(testEdge{id: "e1", source: "1", target: "2"})
	if err != ErrMissingEndpoint {
		t.Errorf("AddEdge() error = %v, want %v", err, ErrMissingEndpoint)
	}
}

func TestAddEdge_DuplicateEdge(t *testing.T) {
	g := newTestGraph()
	mustAddNodes(t, g, "1", "2")

	if err := g.AddEdge(testEdge{id: "e1", source: "1", target: "2"}); err != nil {
		t.Fatalf("first AddEdge() unexpected error: %v", err)
	}
	err := g.AddEdge(testEdge{id: "e1", source: "2", target: "1"})
	if err != ErrDuplicateEdge {
		t.Errorf("AddEdge() error = %v, want %v", err, ErrDuplicateEdge)
	}
}

func TestAddEdge_RejectsCycle(t *testing.T) {
	tests := []struct {
		name  string
		edges []testEdge
		next  testEdge
	}{
		{
			name:  "direct cycle",
			edges: []testEdge{{id: "e1", source: "1", target: "2"}},
			next:  testEdge{id: "e2", source: "2", target: "1"},
		},
		{
			name: "transitive cycle",
			edges: []testEdge{
				{id: "e1", source: "1", target: "2"},
				{id: "e2", source: "2", target: "3"},
			},
			next: testEdge{id: "e3", source: "3", target: "1"},
		},
		{
			name:  "self loop",
			edges: nil,
			next:  testEdge{id: "e1", source: "1", target: "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGraph()
			mustAddNodes(t, g, "1", "2", "3")
			for _, e := range tt.edges {
				if err := g.AddEdge(e); err != nil {
					t.Fatalf("setup AddEdge(%s) unexpected error: %v", e.id, err)
				}
			}
			if err := g.AddEdge(tt.next); err != ErrCycleDetected {
				t.Errorf("AddEdge() error = %v, want %v", err, ErrCycleDetected)
			}
		})
	}
}

func TestTopologicallySortedNodes(t *testing.T) {
	tests := []struct {
		name      string
		nodeIDs   []string
		edges     []testEdge
		wantOrder []string
	}{
		{
			name:      "linear chain",
			nodeIDs:   []string{"1", "2", "3"},
			edges:     []testEdge{{id: "e1", source: "1", target: "2"}, {id: "e2", source: "2", target: "3"}},
			wantOrder: []string{"1", "2", "3"},
		},
		{
			name:      "single node",
			nodeIDs:   []string{"1"},
			wantOrder: []string{"1"},
		},
		{
			name:      "empty graph",
			nodeIDs:   nil,
			wantOrder: []string{},
		},
		{
			name:    "independent nodes keep insertion order",
			nodeIDs: []string{"c", "a", "b"},
			wantOrder: []string{"c", "a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGraph()
			mustAddNodes(t, g, tt.nodeIDs...)
			for _, e := range tt.edges {
				if err := g.AddEdge(e); err != nil {
					t.Fatalf("AddEdge(%s) unexpected error: %v", e.id, err)
				}
			}

			got, err := g.TopologicallySortedNodes()
			if err != nil {
				t.Fatalf("TopologicallySortedNodes() unexpected error: %v", err)
			}
			if !equalSlices(got, tt.wantOrder) {
				t.Errorf("TopologicallySortedNodes() = %v, want %v", got, tt.wantOrder)
			}
		})
	}
}

func TestTopologicallySortedNodes_Diamond(t *testing.T) {
	g := newTestGraph()
	mustAddNodes(t, g, "1", "2", "3", "4")
	edges := []testEdge{
		{id: "e1", source: "1", target: "2"},
		{id: "e2", source: "1", target: "3"},
		{id: "e3", source: "2", target: "4"},
		{id: "e4", source: "3", target: "4"},
	}
	for _, e := range edges {
		if err := g.AddEdge(e); err != nil {
			t.Fatalf("AddEdge(%s) unexpected error: %v", e.id, err)
		}
	}

	order, err := g.TopologicallySortedNodes()
	if err != nil {
		t.Fatalf("TopologicallySortedNodes() unexpected error: %v", err)
	}
	if !isValidTopologicalOrder(order, edges) {
		t.Errorf("TopologicallySortedNodes() returned invalid order: %v", order)
	}
}

func TestRemoveNode_CascadesEdges(t *testing.T) {
	g := newTestGraph()
	mustAddNodes(t, g, "1", "2", "3")
	if err := g.AddEdge(testEdge{id: "e1", source: "1", target: "2"}); err != nil {
		t.Fatalf("AddEdge() unexpected error: %v", err)
	}
	if err := g.AddEdge(testEdge{id: "e2", source: "2", target: "3"}); err != nil {
		t.Fatalf("AddEdge() unexpected error: %v", err)
	}

	if err := g.RemoveNode("2"); err != nil {
		t.Fatalf("RemoveNode() unexpected error: %v", err)
	}

	if _, ok := g.GetNode("2"); ok {
		t.Error("GetNode(2) found node after removal")
	}
	if _, ok := g.GetEdge("e1"); ok {
		t.Error("GetEdge(e1) found edge incident to a removed node")
	}
	if _, ok := g.GetEdge("e2"); ok {
		t.Error("GetEdge(e2) found edge incident to a removed node")
	}
	if len(g.Nodes()) != 2 {
		t.Errorf("Nodes() len = %d, want 2", len(g.Nodes()))
	}
}

func TestRemoveNode_NotFound(t *testing.T) {
	g := newTestGraph()
	if err := g.RemoveNode("missing"); err != ErrNodeNotFound {
		t.Errorf("RemoveNode() error = %v, want %v", err, ErrNodeNotFound)
	}
}

func TestRemoveEdge_AllowsReinsertionAfterCycleRejection(t *testing.T) {
	g := newTestGraph()
	mustAddNodes(t, g, "1", "2")
	if err := g.AddEdge(testEdge{id: "e1", source: "1", target: "2"}); err != nil {
		t.Fatalf("AddEdge() unexpected error: %v", err)
	}
	if err := g.AddEdge(testEdge{id: "e2", source: "2", target: "1"}); err != ErrCycleDetected {
		t.Fatalf("AddEdge(2->1) with 1->2 present error = %v, want %v", err, ErrCycleDetected)
	}
	if err := g.RemoveEdge("e1"); err != nil {
		t.Fatalf("RemoveEdge() unexpected error: %v", err)
	}
	// Now the reverse edge should be admissible since the forward edge is gone.
	if err := g.AddEdge(testEdge{id: "e2", source: "2", target: "1"}); err != nil {
		t.Errorf("AddEdge() after RemoveEdge() unexpected error: %v", err)
	}
}

func TestInOutEdges(t *testing.T) {
	g := newTestGraph()
	mustAddNodes(t, g, "1", "2", "3", "4")
	edges := []testEdge{
		{id: "e1", source: "1", target: "2"},
		{id: "e2", source: "3", target: "2"},
		{id: "e3", source: "2", target: "4"},
	}
	for _, e := range edges {
		if err := g.AddEdge(e); err != nil {
			t.Fatalf("AddEdge(%s) unexpected error: %v", e.id, err)
		}
	}

	if got := len(g.InEdges("2")); got != 2 {
		t.Errorf("InEdges(2) len = %d, want 2", got)
	}
	if got := len(g.OutEdges("2")); got != 1 {
		t.Errorf("OutEdges(2) len = %d, want 1", got)
	}
	if got := len(g.InEdges("1")); got != 0 {
		t.Errorf("InEdges(1) len = %d, want 0", got)
	}
}

func TestTerminalNodes(t *testing.T) {
	tests := []struct {
		name    string
		nodeIDs []string
		edges   []testEdge
		want    []string
	}{
		{
			name:    "single terminal",
			nodeIDs: []string{"1", "2"},
			edges:   []testEdge{{id: "e1", source: "1", target: "2"}},
			want:    []string{"2"},
		},
		{
			name:    "multiple terminals",
			nodeIDs: []string{"1", "2", "3"},
			edges:   []testEdge{{id: "e1", source: "1", target: "2"}, {id: "e2", source: "1", target: "3"}},
			want:    []string{"2", "3"},
		},
		{
			name:    "all nodes terminal",
			nodeIDs: []string{"1", "2"},
			want:    []string{"1", "2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGraph()
			mustAddNodes(t, g, tt.nodeIDs...)
			for _, e := range tt.edges {
				if err := g.AddEdge(e); err != nil {
					t.Fatalf("AddEdge(%s) unexpected error: %v", e.id, err)
				}
			}

			got := g.TerminalNodes()
			sort.Strings(got)
			want := append([]string(nil), tt.want...)
			sort.Strings(want)
			if !equalSlices(got, want) {
				t.Errorf("TerminalNodes() = %v, want %v", got, want)
			}
		})
	}
}

func TestDetectCycles(t *testing.T) {
	g := newTestGraph()
	mustAddNodes(t, g, "1", "2")
	if err := g.AddEdge(testEdge{id: "e1", source: "1", target: "2"}); err != nil {
		t.Fatalf("AddEdge() unexpected error: %v", err)
	}
	if err := g.DetectCycles(); err != nil {
		t.Errorf("DetectCycles() unexpected error: %v", err)
	}
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isValidTopologicalOrder(order []string, edges []testEdge) bool {
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for _, e := range edges {
		sourcePos, sourceOK := pos[e.source]
		targetPos, targetOK := pos[e.target]
		if !sourceOK || !targetOK || sourcePos >= targetPos {
			return false
		}
	}
	return true
}
