// Package graph provides the DAG container used by the task-graph engine: a
// generic node/edge arena with identity indices, incremental cycle rejection
// on edge insertion, and Kahn's-algorithm topological sort.
//
// Graph is generic over the engine's own node and edge types (pkg/node.Node
// and pkg/dataflow.Edge) via the Identifiable/Edgelike constraints below,
// which keeps this package free of a dependency on either.
package graph

// Identifiable is satisfied by anything that can occupy a Graph's node slot.
type Identifiable interface {
	Identity() string
}

// Edgelike is satisfied by anything that can occupy a Graph's edge slot.
type Edgelike interface {
	Identity() string
	SourceNode() string
	TargetNode() string
}

// Graph is a mutable DAG of nodes (N) and edges (E). The zero value is not
// usable; construct with New.
type Graph[N Identifiable, E Edgelike] struct {
	nodes []N
	edges []E

	nodeIdx map[string]int // id -> index into nodes
	edgeIdx map[string]int // id -> index into edges
	outAdj  map[string][]string
}

// New creates an empty Graph.
func New[N Identifiable, E Edgelike]() *Graph[N, E] {
	return &Graph[N, E]{
		nodeIdx: make(map[string]int),
		edgeIdx: make(map[string]int),
		outAdj:  make(map[string][]string),
	}
}

// AddNode appends n, failing with ErrDuplicateIdentity if its id collides
// with an existing node.
func (g *Graph[N, E]) AddNode(n N) error {
	id := n.Identity()
	if _, exists := g.nodeIdx[id]; exists {
		return ErrDuplicateIdentity
	}
	g.nodeIdx[id] = len(g.nodes)
	g.nodes = append(g.nodes, n)
	return nil
}

// AddEdge appends e after verifying both endpoints exist and that the edge
// would not introduce a cycle. Cycle detection performs an incremental
// reachability check from the target to the source before insertion: a path
// target ⇝ source already existing means adding source→target would close a
// loop, so the whole graph is never re-sorted just to admit one edge.
func (g *Graph[N, E]) AddEdge(e E) error {
	id := e.Identity()
	if _, exists := g.edgeIdx[id]; exists {
		return ErrDuplicateEdge
	}

	source, target := e.SourceNode(), e.TargetNode()
	if _, ok := g.nodeIdx[source]; !ok {
		return ErrMissingEndpoint
	}
	if _, ok := g.nodeIdx[target]; !ok {
		return ErrMissingEndpoint
	}
	if g.reachable(target, source) {
		return ErrCycleDetected
	}

	g.edgeIdx[id] = len(g.edges)
	g.edges = append(g.edges, e)
	g.outAdj[source] = append(g.outAdj[source], target)
	return nil
}

// reachable reports whether to is reachable from from via outbound edges.
func (g *Graph[N, E]) reachable(from, to string) bool {
	if from == to {
		return true
	}
	visited := make(map[string]bool, len(g.nodes))
	stack := []string{from}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n] {
			continue
		}
		visited[n] = true
		if n == to {
			return true
		}
		stack = append(stack, g.outAdj[n]...)
	}
	return false
}

// RemoveNode deletes the node and every edge incident to it.
func (g *Graph[N, E]) RemoveNode(id string) error {
	idx, ok := g.nodeIdx[id]
	if !ok {
		return ErrNodeNotFound
	}

	var incident []string
	for _, e := range g.edges {
		if e.SourceNode() == id || e.TargetNode() == id {
			incident = append(incident, e.Identity())
		}
	}
	for _, eid := range incident {
		_ = g.RemoveEdge(eid)
	}

	g.nodes = append(g.nodes[:idx], g.nodes[idx+1:]...)
	delete(g.nodeIdx, id)
	for i := idx; i < len(g.nodes); i++ {
		g.nodeIdx[g.nodes[i].Identity()] = i
	}
	delete(g.outAdj, id)
	return nil
}

// RemoveEdge deletes the referenced edge.
func (g *Graph[N, E]) RemoveEdge(id string) error {
	idx, ok := g.edgeIdx[id]
	if !ok {
		return ErrEdgeNotFound
	}
	e := g.edges[idx]

	g.edges = append(g.edges[:idx], g.edges[idx+1:]...)
	delete(g.edgeIdx, id)
	for i := idx; i < len(g.edges); i++ {
		g.edgeIdx[g.edges[i].Identity()] = i
	}

	source, target := e.SourceNode(), e.TargetNode()
	targets := g.outAdj[source]
	for i, t := range targets {
		if t == target {
			g.outAdj[source] = append(targets[:i], targets[i+1:]...)
			break
		}
	}
	return nil
}

// GetNode returns the node with id, or the zero value and false.
func (g *Graph[N, E]) GetNode(id string) (N, bool) {
	if idx, ok := g.nodeIdx[id]; ok {
		return g.nodes[idx], true
	}
	var zero N
	return zero, false
}

// GetEdge returns the edge with id, or the zero value and false.
func (g *Graph[N, E]) GetEdge(id string) (E, bool) {
	if idx, ok := g.edgeIdx[id]; ok {
		return g.edges[idx], true
	}
	var zero E
	return zero, false
}

// Nodes returns all nodes in insertion order. The returned slice shares
// storage with the graph and must not be mutated by the caller.
func (g *Graph[N, E]) Nodes() []N { return g.nodes }

// Edges returns all edges in insertion order.
func (g *Graph[N, E]) Edges() []E { return g.edges }

// InEdges returns every edge targeting id, in insertion order.
func (g *Graph[N, E]) InEdges(id string) []E {
	var out []E
	for _, e := range g.edges {
		if e.TargetNode() == id {
			out = append(out, e)
		}
	}
	return out
}

// OutEdges returns every edge sourced from id, in insertion order.
func (g *Graph[N, E]) OutEdges(id string) []E {
	var out []E
	for _, e := range g.edges {
		if e.SourceNode() == id {
			out = append(out, e)
		}
	}
	return out
}

// TerminalNodes returns the ids of every node with no outbound edges.
func (g *Graph[N, E]) TerminalNodes() []string {
	hasOut := make(map[string]bool, len(g.nodes))
	for _, e := range g.edges {
		hasOut[e.SourceNode()] = true
	}
	var out []string
	for _, n := range g.nodes {
		if !hasOut[n.Identity()] {
			out = append(out, n.Identity())
		}
	}
	return out
}

// TopologicallySortedNodes returns a total order consistent with every edge
// u→v (u before v). Order among mutually-independent nodes is insertion
// order: the ready queue is seeded by scanning nodes in insertion order and
// processed FIFO, so no secondary sort is needed to make the result stable.
func (g *Graph[N, E]) TopologicallySortedNodes() ([]string, error) {
	n := len(g.nodes)
	if n == 0 {
		return []string{}, nil
	}

	inDegree := make(map[string]int, n)
	for _, node := range g.nodes {
		inDegree[node.Identity()] = 0
	}
	for _, e := range g.edges {
		inDegree[e.TargetNode()]++
	}

	queue := make([]string, 0, n)
	for _, node := range g.nodes {
		id := node.Identity()
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, n)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		for _, target := range g.outAdj[current] {
			inDegree[target]--
			if inDegree[target] == 0 {
				queue = append(queue, target)
			}
		}
	}

	if len(order) != n {
		return nil, ErrCycleDetected
	}
	return order, nil
}

// DetectCycles reports whether the graph currently contains a cycle. AddEdge
// already rejects cycle-forming insertions; this exists for callers that
// rebuild adjacency out-of-band (e.g. after bulk loading from JSON) and want
// to validate before use.
func (g *Graph[N, E]) DetectCycles() error {
	_, err := g.TopologicallySortedNodes()
	return err
}

// Len returns the number of nodes currently in the graph.
func (g *Graph[N, E]) Len() int { return len(g.nodes) }
