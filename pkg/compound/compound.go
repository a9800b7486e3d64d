package compound

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/flowforge/taskgraph/pkg/cache"
	"github.com/flowforge/taskgraph/pkg/config"
	"github.com/flowforge/taskgraph/pkg/dataflow"
	"github.com/flowforge/taskgraph/pkg/graph"
	"github.com/flowforge/taskgraph/pkg/node"
	"github.com/flowforge/taskgraph/pkg/runner"
	"github.com/flowforge/taskgraph/pkg/taskerr"
)

// ChildFactory builds one child node of a regenerative compound. replicated
// holds the owning node's run-input, keyed by port name, with this child's
// tuple values substituted for its replicate:true ports.
type ChildFactory func(childID string, replicated map[string]any) (*node.Node, error)

// Node is a compound node: it owns a sub-graph and defers execution to a
// nested runner over it. Node implements node.Provider so it can be wired
// into a node.Node the same way any other provider is.
type Node struct {
	parentID string
	typeName string
	cfg      *config.Config
	cache    cache.Cache

	// owner is the node.Node this provider is wired into. It is the
	// authoritative source of "current run-input" for reset-time
	// regeneration checks (RunInputChangedFromDefaults), since Regenerate
	// can run before Execute ever does.
	owner *node.Node

	// regenerative, when true, rebuilds Sub from current run-input before
	// every execution (including replicate fan-out). When false, Sub is
	// fixed at construction (static compound).
	regenerative bool

	replicatePorts []string
	childFactory   ChildFactory

	sub         *graph.Graph[*node.Node, *dataflow.Edge]
	subRunner   *runner.Runner
	mergeResult config.MergeStrategy

	defaults map[string]any
}

// NewStatic creates a static compound node over a fixed sub-graph.
func NewStatic(parentID, typeName string, sub *graph.Graph[*node.Node, *dataflow.Edge], cfg *config.Config, c cache.Cache, mergeStrategy config.MergeStrategy) *Node {
	n := &Node{
		parentID:    parentID,
		typeName:    typeName,
		cfg:         cfg,
		cache:       c,
		sub:         sub,
		mergeResult: mergeStrategy,
	}
	n.subRunner = runner.New(sub, cfg, c)
	return n
}

// NewRegenerative creates a regenerative compound node. replicatePorts names
// the input ports declared with replicate:true; childFactory builds one
// child node per Cartesian-product tuple (or a single child handed the
// run-input unchanged, when no replicated port carries a non-empty array).
func NewRegenerative(parentID, typeName string, replicatePorts []string, childFactory ChildFactory, cfg *config.Config, c cache.Cache) *Node {
	return &Node{
		parentID:       parentID,
		typeName:       typeName,
		cfg:            cfg,
		cache:          c,
		regenerative:   true,
		replicatePorts: replicatePorts,
		childFactory:   childFactory,
		mergeResult:    config.MergeLastOrPropertyArray,
		defaults:       map[string]any{},
	}
}

// SetDefaults records the declared defaults for the owning node's input, so
// RunInputChangedFromDefaults has something to diff against.
func (n *Node) SetDefaults(defaults map[string]any) {
	n.defaults = defaults
}

// SetOwner wires the node.Node this provider backs. Must be called once,
// after both have been constructed, before the node ever runs.
func (n *Node) SetOwner(owner *node.Node) {
	n.owner = owner
}

// Subgraph returns the compound's current sub-graph (nil until the first
// Regenerate call on a regenerative compound that has never run).
func (n *Node) Subgraph() *graph.Graph[*node.Node, *dataflow.Edge] {
	return n.sub
}

// RunInputChangedFromDefaults implements runner.CompoundController.
func (n *Node) RunInputChangedFromDefaults() bool {
	if n.owner == nil {
		return false
	}
	return !deepEqual(n.owner.RunInput(), n.defaults)
}

// Regenerate implements runner.CompoundController: it rebuilds the
// sub-graph from the owning node's current run-input (replicate fan-out for
// regenerative compounds; a no-op for static ones) and resets the new
// sub-graph's nodes to PENDING with runID. Execute rebuilds the sub-graph
// again from the input it is handed and runs it under its own nested run id.
func (n *Node) Regenerate(runID string) {
	if !n.regenerative || n.owner == nil {
		return
	}
	n.rebuild(n.owner.RunInput())
	for _, child := range n.sub.Nodes() {
		child.Reset(runID)
	}
	n.subRunner = runner.New(n.sub, n.cfg, n.cache)
}

func deepEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		if !valueEqual(av, bv) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	am, aok := a.(map[string]any)
	bm, bok := b.(map[string]any)
	if aok && bok {
		return deepEqual(am, bm)
	}
	aa, aok := a.([]any)
	ba, bok := b.([]any)
	if aok && bok {
		if len(aa) != len(ba) {
			return false
		}
		for i := range aa {
			if !valueEqual(aa[i], ba[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}

// rebuild constructs the sub-graph for the current run-input: replicate
// fan-out over the Cartesian product of every non-empty replicate:true
// array, or a single direct child when no replicated port carries one.
func (n *Node) rebuild(input map[string]any) {
	g := graph.New[*node.Node, *dataflow.Edge]()

	arrays := make(map[string][]any)
	for _, port := range n.replicatePorts {
		if v, ok := input[port].([]any); ok && len(v) > 0 {
			arrays[port] = v
		}
	}

	tuples := cartesianProduct(n.replicatePorts, arrays)
	for _, tuple := range tuples {
		childInput := make(map[string]any, len(input))
		for k, v := range input {
			childInput[k] = v
		}
		for k, v := range tuple {
			childInput[k] = v
		}
		childID := fmt.Sprintf("%s_%s", n.parentID, uuid.New().String())
		child, err := n.childFactory(childID, childInput)
		if err != nil {
			continue
		}
		_ = g.AddNode(child)
	}

	n.sub = g
}

// cartesianProduct returns the Cartesian product of the named arrays as a
// slice of tuples, each a map from port name to one element. Ports are
// visited in declared order (order), not map iteration order, so the first
// replicated port varies slowest and the result is reproducible across
// runs. An empty arrays map yields a single empty tuple (direct execution,
// no fan-out).
func cartesianProduct(order []string, arrays map[string][]any) []map[string]any {
	names := make([]string, 0, len(arrays))
	for _, name := range order {
		if _, ok := arrays[name]; ok {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return []map[string]any{{}}
	}

	tuples := []map[string]any{{}}
	for _, name := range names {
		var next []map[string]any
		for _, t := range tuples {
			for _, v := range arrays[name] {
				nt := make(map[string]any, len(t)+1)
				for k, existing := range t {
					nt[k] = existing
				}
				nt[name] = v
				next = append(next, nt)
			}
		}
		tuples = next
	}
	return tuples
}

// Execute implements node.Provider: it regenerates the sub-graph (for a
// regenerative compound, from the input it is handed directly, independent
// of the reset-time regeneration the runner already triggered) and drives
// it with a nested runner sharing the parent's abort signal and provenance.
func (n *Node) Execute(ctx context.Context, ec node.ExecContext, input map[string]any) (map[string]any, error) {
	if n.regenerative {
		n.rebuild(input)
		n.subRunner = runner.New(n.sub, n.cfg, n.cache)
	}

	if n.sub == nil || n.sub.Len() == 0 {
		return map[string]any{}, nil
	}

	result, err := n.subRunner.Run(ctx, n.parentID+":"+uuid.New().String(), runner.RunConfig{
		MergeStrategy:    n.mergeResult,
		ParentSignal:     ctx,
		ParentProvenance: ec.NodeProvenance,
	})
	if err != nil {
		return nil, err
	}

	output, ok := result.(map[string]any)
	if !ok {
		return nil, taskerr.New(taskerr.NodeFailed, fmt.Sprintf("compound %s: sub-graph result is not a map", n.parentID))
	}
	return output, nil
}

// ExecuteReactive implements node.Provider: it reruns the sub-graph's
// reactive pass rather than recomputing from scratch, so nested views can
// refresh without re-triggering full child execution.
func (n *Node) ExecuteReactive(ctx context.Context, ec node.ExecContext, input, lastOutput map[string]any) (map[string]any, error) {
	if n.sub == nil || n.sub.Len() == 0 {
		return lastOutput, nil
	}
	result, err := n.subRunner.RunReactive(ctx, n.parentID+":reactive")
	if err != nil {
		return lastOutput, nil
	}
	if leaves, ok := result.([]runner.LeafResult); ok && len(leaves) > 0 {
		return leaves[len(leaves)-1].Data, nil
	}
	return lastOutput, nil
}
