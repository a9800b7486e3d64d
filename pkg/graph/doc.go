// Package graph implements the DAG container at the core of the task-graph
// engine.
//
// # Overview
//
// A Graph holds nodes and dataflow edges under identity indices so that
// lookups by id are O(1). Removals shift the backing slices and re-index the
// entries after the removed one, and InEdges/OutEdges scan the edge list.
// Edge insertion performs an incremental reachability check to reject cycles
// immediately rather than deferring to the next topological sort.
//
// # Construction
//
//	g := graph.New[*node.Node, *dataflow.Edge]()
//	g.AddNode(squareNode)
//	g.AddNode(addNode)
//	if err := g.AddEdge(edge); err != nil {
//	    // graph.ErrCycleDetected, graph.ErrMissingEndpoint, ...
//	}
//
// # Topological order
//
// TopologicallySortedNodes implements Kahn's algorithm: in-degree is
// computed in one pass over the edges, and the initial ready queue is
// seeded by scanning nodes in insertion order, so independent nodes come
// out in the order they were added rather than sorted by id.
//
//	order, err := g.TopologicallySortedNodes()
//	for _, id := range order {
//	    n, _ := g.GetNode(id)
//	    // execute n
//	}
//
// # Thread safety
//
// A Graph is not safe for concurrent mutation; callers that add or remove
// nodes/edges from multiple goroutines must synchronize externally. Reads
// via Nodes, Edges, InEdges, and OutEdges are safe once the graph is no
// longer being mutated.
package graph
