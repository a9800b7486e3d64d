// Package runner implements the graph orchestrator: it drives a scheduler
// over a graph.Graph[*node.Node, *dataflow.Edge], pushes values and status
// along edges, enforces at-most-one-run-in-progress and cooperative
// cancellation, consults the output cache via each node, and merges leaf
// outputs into the configured result shape.
package runner

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/flowforge/taskgraph/pkg/cache"
	"github.com/flowforge/taskgraph/pkg/config"
	"github.com/flowforge/taskgraph/pkg/dataflow"
	"github.com/flowforge/taskgraph/pkg/eventbus"
	"github.com/flowforge/taskgraph/pkg/graph"
	"github.com/flowforge/taskgraph/pkg/node"
	"github.com/flowforge/taskgraph/pkg/scheduler"
	"github.com/flowforge/taskgraph/pkg/taskerr"
)

// CacheOption selects how a run resolves its output cache reference.
type CacheOption int

const (
	// CacheUseDefault resolves to the runner's configured default cache.
	CacheUseDefault CacheOption = iota
	// CacheDisabled disables caching for the run regardless of a default.
	CacheDisabled
	// CacheExplicit uses RunConfig.Cache, even if nil.
	CacheExplicit
)

// RunConfig configures one invocation of Run.
type RunConfig struct {
	CacheOption CacheOption
	Cache       cache.Cache

	// MergeStrategy selects how leaf outputs combine. Empty uses the
	// runner's configured default.
	MergeStrategy config.MergeStrategy

	// ParentSignal, when non-nil, propagates an externally-owned abort:
	// its cancellation aborts this run the same way runner.Abort does.
	ParentSignal context.Context

	// ParentProvenance seeds every node's effective provenance.
	ParentProvenance dataflow.Provenance
}

// ErrReentrant is returned when Run or RunReactive is called while another
// run is already in progress on the same Runner.
var ErrReentrant = taskerr.New(taskerr.Configuration, "runner: a run is already in progress")

// CompoundController is implemented by pkg/compound on behalf of a compound
// node so the runner's reset pass can trigger sub-graph regeneration without
// this package depending on pkg/compound (which depends on this one to
// drive its nested runner).
type CompoundController interface {
	// RunInputChangedFromDefaults reports whether the compound node's
	// current run-input deep-differs from its declared defaults.
	RunInputChangedFromDefaults() bool
	// Regenerate rebuilds the sub-graph from current run-input and resets
	// the new sub-graph's nodes with the same run id.
	Regenerate(runID string)
}

// LeafResult is one terminal node's contribution to a run's merged result.
type LeafResult struct {
	ID       string
	TypeName string
	Data     map[string]any
	order    int
}

// Runner orchestrates a single graph. A Runner is not safe for concurrent
// Run/RunReactive calls against itself; Reentrant calls return ErrReentrant.
type Runner struct {
	g            *graph.Graph[*node.Node, *dataflow.Edge]
	cfg          *config.Config
	defaultCache cache.Cache
	events       *eventbus.Emitter

	mu          sync.Mutex
	running     bool
	abortCancel context.CancelFunc
	compounds   map[string]CompoundController
}

// New creates a Runner over g using cfg for run-wide defaults and
// defaultCache as the cache resolved by CacheUseDefault.
func New(g *graph.Graph[*node.Node, *dataflow.Edge], cfg *config.Config, defaultCache cache.Cache) *Runner {
	return &Runner{
		g:            g,
		cfg:          cfg,
		defaultCache: defaultCache,
		events:       eventbus.New(),
		compounds:    make(map[string]CompoundController),
	}
}

// Events returns the runner's graph-level event emitter.
func (r *Runner) Events() *eventbus.Emitter { return r.events }

// RegisterCompound wires a compound node's controller so the reset pass can
// regenerate its sub-graph when its run-input has diverged from defaults.
func (r *Runner) RegisterCompound(nodeID string, ctrl CompoundController) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compounds[nodeID] = ctrl
}

// Abort trips the current run's abort controller, if one is running. A call
// with no run in progress is a no-op.
func (r *Runner) Abort() {
	r.mu.Lock()
	cancel := r.abortCancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (r *Runner) selectCache(rc RunConfig) cache.Cache {
	switch rc.CacheOption {
	case CacheDisabled:
		return nil
	case CacheExplicit:
		return rc.Cache
	default:
		return r.defaultCache
	}
}

func validMergeStrategy(m config.MergeStrategy) bool {
	switch m {
	case config.MergeLast, config.MergeNamed, config.MergeUnorderedArray, config.MergePropertyArray,
		config.MergeLastOrNamed, config.MergeLastOrUnorderedArray, config.MergeLastOrPropertyArray:
		return true
	default:
		return false
	}
}

func eventTypeFor(s dataflow.Status) eventbus.Type {
	switch s {
	case dataflow.StatusCompleted:
		return eventbus.Complete
	case dataflow.StatusFailed:
		return eventbus.Error
	case dataflow.StatusAborting:
		return eventbus.Abort
	case dataflow.StatusSkipped:
		return eventbus.Skipped
	default:
		return eventbus.Start
	}
}

// reset traverses every node, clearing it and its outbound/inbound edges
// back to a pre-run state, and regenerates any compound node whose run-input
// has diverged from its defaults.
func (r *Runner) reset(runID string) {
	for _, n := range r.g.Nodes() {
		n.Reset(runID)
	}
	for _, e := range r.g.Edges() {
		e.Reset()
	}

	r.mu.Lock()
	compounds := make(map[string]CompoundController, len(r.compounds))
	for id, ctrl := range r.compounds {
		compounds[id] = ctrl
	}
	r.mu.Unlock()

	for _, ctrl := range compounds {
		if ctrl.RunInputChangedFromDefaults() {
			ctrl.Regenerate(runID)
		}
	}
}

// inboundInput collects the merged input contribution and provenance of
// every edge targeting id.
func (r *Runner) inboundInput(id string) (map[string]any, dataflow.Provenance) {
	inbound := make(map[string]any)
	var prov dataflow.Provenance
	for _, e := range r.g.InEdges(id) {
		for k, v := range e.GetPortData() {
			inbound[k] = v
		}
		prov = prov.Merge(e.Provenance())
	}
	return inbound, prov
}

// propagate mirrors n's post-run status/error onto its outbound edges and,
// on success, pushes the output values downstream.
func (r *Runner) propagate(n *node.Node, output map[string]any, runErr error, combinedProv dataflow.Provenance) {
	outEdges := r.g.OutEdges(n.Identity())
	status := n.Status()
	for _, e := range outEdges {
		e.PropagateStatus(status, n.Err(), eventTypeFor(status))
	}
	if runErr != nil {
		return
	}
	for _, e := range outEdges {
		e.SetPortData(output, combinedProv)
	}
}

// Run drives one full process run over the graph.
func (r *Runner) Run(ctx context.Context, runID string, rc RunConfig) (any, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrReentrant
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.abortCancel = nil
		r.mu.Unlock()
	}()

	mergeStrategy := rc.MergeStrategy
	if mergeStrategy == "" {
		mergeStrategy = r.cfg.DefaultMergeStrategy
	}
	if !validMergeStrategy(mergeStrategy) {
		return nil, taskerr.New(taskerr.Configuration, fmt.Sprintf("unknown merge strategy %q", mergeStrategy))
	}

	selectedCache := r.selectCache(rc)
	for _, n := range r.g.Nodes() {
		n.SetCache(selectedCache)
	}

	abortCtx, abortCancel := context.WithCancel(ctx)
	defer abortCancel()

	r.mu.Lock()
	r.abortCancel = abortCancel
	r.mu.Unlock()

	if rc.ParentSignal != nil {
		if rc.ParentSignal.Err() != nil {
			abortCancel()
		} else {
			stop := make(chan struct{})
			defer close(stop)
			go func() {
				select {
				case <-rc.ParentSignal.Done():
					abortCancel()
				case <-stop:
				}
			}()
		}
	}

	r.events.Emit(eventbus.Event{Type: eventbus.GraphStart, RunID: runID})

	r.reset(runID)

	ids := make([]string, 0, r.g.Len())
	predecessors := make(scheduler.Predecessors, r.g.Len())
	order := make(map[string]int, r.g.Len())
	for _, n := range r.g.Nodes() {
		id := n.Identity()
		ids = append(ids, id)
		order[id] = len(ids) - 1
		var preds []string
		for _, e := range r.g.InEdges(id) {
			preds = append(preds, e.SourceNode())
		}
		predecessors[id] = preds
	}
	sched := scheduler.NewDependency(ids, predecessors)

	var (
		mu     sync.Mutex
		leaves []LeafResult
		failed taskerr.ErrorGroup
		wg     sync.WaitGroup
	)

	recordFailure := func(key, typeName string, err error) {
		mu.Lock()
		failed.Add(key, typeName, err)
		mu.Unlock()
	}

	for {
		mu.Lock()
		stop := abortCtx.Err() != nil || !failed.Empty()
		mu.Unlock()
		if stop {
			break
		}

		id, ok := sched.NextReady(abortCtx.Done())
		if !ok {
			break
		}

		n, ok := r.g.GetNode(id)
		if !ok {
			continue
		}

		wg.Add(1)
		go func(n *node.Node) {
			defer wg.Done()
			defer sched.OnTaskCompleted(n.Identity())

			inbound, inProv := r.inboundInput(n.Identity())
			prov := rc.ParentProvenance.Merge(inProv)

			output, err := n.RunFull(abortCtx, inbound, prov)
			combined := prov.Merge(n.Provenance())
			r.propagate(n, output, err, combined)

			if err != nil {
				recordFailure(n.Identity(), n.TypeName, err)
				return
			}

			if len(r.g.OutEdges(n.Identity())) == 0 {
				mu.Lock()
				leaves = append(leaves, LeafResult{ID: n.Identity(), TypeName: n.TypeName, Data: output, order: order[n.Identity()]})
				mu.Unlock()
			}
		}(n)
	}

	wg.Wait()
	sort.Slice(leaves, func(i, j int) bool { return leaves[i].order < leaves[j].order })

	if abortCtx.Err() != nil {
		mu.Lock()
		failed.Add("*", string(taskerr.Aborted), taskerr.ErrAborted)
		mu.Unlock()
	}

	if !failed.Empty() {
		r.events.Emit(eventbus.Event{Type: eventbus.GraphError, RunID: runID, Err: &failed})
		return nil, &failed
	}

	result, err := mergeLeaves(mergeStrategy, leaves)
	if err != nil {
		return nil, err
	}

	r.events.Emit(eventbus.Event{Type: eventbus.GraphComplete, RunID: runID})
	return result, nil
}

// RunReactive drives a reactive-only pass over the graph using the
// topological scheduler: it never consults the cache, never aborts
// mid-iteration, and completes when the order is exhausted.
func (r *Runner) RunReactive(ctx context.Context, runID string) (any, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrReentrant
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	order, err := r.g.TopologicallySortedNodes()
	if err != nil {
		return nil, err
	}
	sched := scheduler.NewTopological(order)

	var leaves []LeafResult
	for {
		id, ok := sched.Next()
		if !ok {
			break
		}
		n, ok := r.g.GetNode(id)
		if !ok || n.Status() != dataflow.StatusPending {
			continue
		}

		inbound, inProv := r.inboundInput(id)

		output, rerr := n.RunReactive(ctx, inbound, inProv)
		combined := inProv.Merge(n.Provenance())
		r.propagate(n, output, rerr, combined)
		if rerr != nil {
			continue
		}

		if len(r.g.OutEdges(id)) == 0 {
			leaves = append(leaves, LeafResult{ID: id, TypeName: n.TypeName, Data: output})
		}
	}

	return leaves, nil
}

// mergeLeaves combines leaf outputs per the selected strategy.
func mergeLeaves(strategy config.MergeStrategy, leaves []LeafResult) (any, error) {
	switch strategy {
	case config.MergeLast:
		return lastData(leaves), nil
	case config.MergeNamed:
		return leaves, nil
	case config.MergeUnorderedArray:
		return unorderedArray(leaves), nil
	case config.MergePropertyArray:
		return propertyArray(leaves), nil
	case config.MergeLastOrNamed:
		if len(leaves) == 1 {
			return lastData(leaves), nil
		}
		return leaves, nil
	case config.MergeLastOrUnorderedArray:
		if len(leaves) == 1 {
			return lastData(leaves), nil
		}
		return unorderedArray(leaves), nil
	case config.MergeLastOrPropertyArray:
		if len(leaves) == 1 {
			return lastData(leaves), nil
		}
		return propertyArray(leaves), nil
	default:
		return nil, taskerr.New(taskerr.Configuration, fmt.Sprintf("unknown merge strategy %q", strategy))
	}
}

func lastData(leaves []LeafResult) map[string]any {
	if len(leaves) == 0 {
		return map[string]any{}
	}
	return leaves[len(leaves)-1].Data
}

func unorderedArray(leaves []LeafResult) map[string]any {
	data := make([]any, len(leaves))
	for i, l := range leaves {
		data[i] = l.Data
	}
	return map[string]any{"data": data}
}

func propertyArray(leaves []LeafResult) map[string]any {
	out := make(map[string]any)
	var keys []string
	seen := make(map[string]bool)
	for _, l := range leaves {
		for k := range l.Data {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	for _, k := range keys {
		values := make([]any, 0, len(leaves))
		for _, l := range leaves {
			values = append(values, l.Data[k])
		}
		out[k] = values
	}
	return out
}

var printer = message.NewPrinter(language.English)

// FormatErrorSummary renders a locale-aware one-line summary of the failure
// count in an ErrorGroup, for callers that surface run outcomes to users.
func FormatErrorSummary(eg *taskerr.ErrorGroup) string {
	if eg.Empty() {
		return printer.Sprintf("no failures")
	}
	return printer.Sprintf("%d task(s) failed", len(eg.Errors()))
}

// FormatProgress renders a locale-aware progress line combining a
// percentage (one decimal place) and message.
func FormatProgress(pct float64, msg string) string {
	return printer.Sprintf("%.1f%% — %s", pct, msg)
}
