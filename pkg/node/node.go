// Package node implements the per-node state machine: input merging and
// validation, cache-fingerprint derivation, execution (full and reactive),
// and the event stream listeners observe to track a node's lifecycle.
package node

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/flowforge/taskgraph/pkg/cache"
	"github.com/flowforge/taskgraph/pkg/dataflow"
	"github.com/flowforge/taskgraph/pkg/eventbus"
	"github.com/flowforge/taskgraph/pkg/schema"
	"github.com/flowforge/taskgraph/pkg/taskerr"
)

// PortType is the set of primitive shapes a declared port may carry.
type PortType string

const (
	PortNumber  PortType = "number"
	PortString  PortType = "string"
	PortBoolean PortType = "boolean"
	PortFunc    PortType = "function"
	PortAny     PortType = "any"
)

// PortSchema declares one input or output port.
type PortSchema struct {
	Name      string
	Type      PortType
	Required  bool
	IsArray   bool
	Replicate bool
	Default   any

	// JSONSchema, when non-empty, is a nested JSON Schema document applied
	// to the port's value after the primitive-type check. There is no
	// object or array PortType; ports holding objects or arrays use PortAny.
	JSONSchema string
	validator  *schema.Validator
}

// ExecContext is passed to a Provider's Execute/ExecuteReactive.
type ExecContext struct {
	Signal         context.Context
	NodeProvenance dataflow.Provenance
	UpdateProgress func(pct float64, message string, details map[string]any)
}

// Provider is the authoritative computation a node delegates to. Concrete
// node types (see package nodes, e.g. nodes/arithmetic.go) implement this.
type Provider interface {
	Execute(ctx context.Context, ec ExecContext, input map[string]any) (map[string]any, error)
	ExecuteReactive(ctx context.Context, ec ExecContext, input, lastOutput map[string]any) (map[string]any, error)
}

// Node is one unit of computation in the graph.
type Node struct {
	ID       string
	TypeName string

	InputSchema  []PortSchema
	OutputSchema []PortSchema

	Compound  bool
	Cacheable bool

	provider Provider
	cache    cache.Cache

	mu         sync.Mutex
	status     dataflow.Status
	progress   float64
	defaults   map[string]any
	runInput   map[string]any
	lastOutput map[string]any
	err        error
	provenance dataflow.Provenance

	createdAt   time.Time
	startedAt   time.Time
	completedAt time.Time

	runID string

	abortCancel context.CancelFunc
	execCtx     context.Context

	events *eventbus.Emitter

	// regenerate, when set, is called by SetInput after a merge that
	// changed run-input on a compound node (see pkg/compound).
	regenerate func()
}

// New creates a Node with the given id, type name, and provider.
func New(id, typeName string, provider Provider, inputSchema, outputSchema []PortSchema) (*Node, error) {
	for i := range inputSchema {
		if inputSchema[i].JSONSchema == "" {
			continue
		}
		v, err := schema.Compile(inputSchema[i].JSONSchema)
		if err != nil {
			return nil, fmt.Errorf("node %s: input port %s: %w", id, inputSchema[i].Name, err)
		}
		inputSchema[i].validator = v
	}

	defaults := make(map[string]any, len(inputSchema))
	for _, p := range inputSchema {
		if p.Default != nil {
			defaults[p.Name] = p.Default
		}
	}

	n := &Node{
		ID:           id,
		TypeName:     typeName,
		InputSchema:  inputSchema,
		OutputSchema: outputSchema,
		provider:     provider,
		status:       dataflow.StatusPending,
		defaults:     defaults,
		createdAt:    time.Now(),
		events:       eventbus.New(),
	}
	n.resetInputDataLocked()
	return n, nil
}

// Identity implements graph.Identifiable.
func (n *Node) Identity() string { return n.ID }

// Events returns the node's own event emitter.
func (n *Node) Events() *eventbus.Emitter { return n.events }

// Status returns the node's current lifecycle status.
func (n *Node) Status() dataflow.Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status
}

// Err returns the node's stored error, if it failed.
func (n *Node) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.err
}

// LastOutput returns the output produced by the most recent execution.
func (n *Node) LastOutput() map[string]any {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastOutput
}

// Provenance returns the node's own accumulated provenance.
func (n *Node) Provenance() dataflow.Provenance {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.provenance
}

// SetCache assigns the output cache the node consults when Cacheable.
func (n *Node) SetCache(c cache.Cache) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cache = c
}

// SetRegenerateHook installs the callback a compound node uses to rebuild
// its sub-graph after an input merge that changed run-input.
func (n *Node) SetRegenerateHook(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.regenerate = fn
}

// RunID returns the run id installed on this node by the last reset.
func (n *Node) RunID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.runID
}

// resetInputDataLocked deep-clones defaults into run-input. Caller holds mu.
func (n *Node) resetInputDataLocked() {
	n.runInput = deepCloneMap(n.defaults)
}

// ResetInputData deep-clones defaults into run-input.
func (n *Node) ResetInputData() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resetInputDataLocked()
}

// Reset transitions the node back to PENDING, clears output/error/progress,
// and installs runID, per the state machine's universal reset transition.
func (n *Node) Reset(runID string) {
	n.mu.Lock()
	n.status = dataflow.StatusPending
	n.lastOutput = nil
	n.err = nil
	n.progress = 0
	n.runID = runID
	n.startedAt = time.Time{}
	n.completedAt = time.Time{}
	n.mu.Unlock()

	n.events.Emit(eventbus.Event{Type: eventbus.Reset, NodeID: n.ID, NodeType: n.TypeName, RunID: runID})
}

// SetInput merges overrides into run-input following the array/wildcard
// merge rules, and triggers regeneration on compound nodes if anything
// changed.
func (n *Node) SetInput(overrides map[string]any) {
	n.mu.Lock()
	changed := false

	if all, ok := overrides[dataflow.AllPorts]; ok {
		if obj, ok := all.(map[string]any); ok {
			for k, v := range obj {
				if !valuesEqual(n.runInput[k], v) {
					changed = true
				}
				n.runInput[k] = v
			}
		}
	}

	for key, value := range overrides {
		if key == dataflow.AllPorts {
			continue
		}
		declared := n.findInputPort(key)

		shouldArray := declared != nil && declared.IsArray
		if !shouldArray {
			if _, isArr := n.runInput[key].([]any); isArr && (declared == nil || declared.Type == PortAny) {
				shouldArray = true
			} else if _, isArr := value.([]any); isArr && (declared == nil || declared.Type == PortAny) {
				shouldArray = true
			}
		}

		if shouldArray {
			existing, _ := n.runInput[key].([]any)
			if elems, ok := value.([]any); ok {
				existing = append(existing, elems...)
			} else {
				existing = append(existing, value)
			}
			n.runInput[key] = existing
			changed = true
			continue
		}

		if !valuesEqual(n.runInput[key], value) {
			changed = true
		}
		n.runInput[key] = value
	}

	regen := n.regenerate
	compound := n.Compound
	n.mu.Unlock()

	if changed && compound && regen != nil {
		regen()
	}
}

func (n *Node) findInputPort(name string) *PortSchema {
	for i := range n.InputSchema {
		if n.InputSchema[i].Name == name {
			return &n.InputSchema[i]
		}
	}
	return nil
}

// RunInput returns a snapshot of the node's current run-input.
func (n *Node) RunInput() map[string]any {
	n.mu.Lock()
	defer n.mu.Unlock()
	return deepCloneMap(n.runInput)
}

// ValidateInput checks input against the declared input schema: required
// ports must be present unless a default exists, array ports must hold
// arrays, and primitive types are checked. Ports that carry a nested JSON
// Schema are further checked via pkg/schema.
func (n *Node) ValidateInput(input map[string]any) error {
	for _, p := range n.InputSchema {
		value, present := input[p.Name]
		if !present {
			if p.Required && p.Default == nil {
				return taskerr.New(taskerr.InvalidInput, fmt.Sprintf("missing required port %q", p.Name)).ForNode(n.ID)
			}
			continue
		}

		if p.IsArray {
			if _, ok := value.([]any); !ok {
				return taskerr.New(taskerr.InvalidInput, fmt.Sprintf("port %q declared isArray but value is not an array", p.Name)).ForNode(n.ID)
			}
		}

		if err := validatePrimitive(p, value); err != nil {
			return err.ForNode(n.ID)
		}

		if p.validator != nil {
			failures, err := p.validator.Validate(value)
			if err != nil {
				return taskerr.Wrap(taskerr.InvalidInput, fmt.Sprintf("port %q schema check failed", p.Name), err).ForNode(n.ID)
			}
			if len(failures) > 0 {
				return taskerr.New(taskerr.InvalidInput, fmt.Sprintf("port %q: %v", p.Name, failures)).ForNode(n.ID)
			}
		}
	}
	return nil
}

func validatePrimitive(p PortSchema, value any) *taskerr.GraphError {
	switch p.Type {
	case PortNumber:
		switch value.(type) {
		case int, int64, float64, float32:
		default:
			return taskerr.New(taskerr.InvalidInput, fmt.Sprintf("port %q expects number, got %T", p.Name, value))
		}
	case PortString:
		if _, ok := value.(string); !ok {
			return taskerr.New(taskerr.InvalidInput, fmt.Sprintf("port %q expects string, got %T", p.Name, value))
		}
	case PortBoolean:
		if _, ok := value.(bool); !ok {
			return taskerr.New(taskerr.InvalidInput, fmt.Sprintf("port %q expects boolean, got %T", p.Name, value))
		}
	case PortFunc:
		switch value.(type) {
		case func(map[string]any) (map[string]any, error):
		default:
			return taskerr.New(taskerr.InvalidInput, fmt.Sprintf("port %q expects function, got %T", p.Name, value))
		}
	case PortAny, "":
		// no check
	default:
		return taskerr.New(taskerr.InvalidInput, fmt.Sprintf("port %q declares unknown type %q", p.Name, p.Type))
	}
	return nil
}

// Fingerprint derives the cache key for the node's current run-input:
// sha256(sortedJson({type, input})).
func (n *Node) Fingerprint() (string, error) {
	n.mu.Lock()
	payload := struct {
		Type  string         `json:"type"`
		Input map[string]any `json:"input"`
	}{Type: n.TypeName, Input: n.runInput}
	n.mu.Unlock()

	canonical, err := canonicalJSON(payload)
	if err != nil {
		return "", fmt.Errorf("node: fingerprint: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// RunFull drives the node: resets state, merges overrides, validates input,
// consults the cache when cacheable, invokes Execute (or ExecuteReactive on
// a cache hit so views refresh), persists to cache on a miss, transitions
// state, and emits events.
func (n *Node) RunFull(ctx context.Context, overrides map[string]any, inbound dataflow.Provenance) (map[string]any, error) {
	n.Reset(n.RunID())
	if overrides != nil {
		n.SetInput(overrides)
	}

	input := n.RunInput()
	if err := n.ValidateInput(input); err != nil {
		n.fail(err)
		return nil, err
	}

	n.start()

	execCtx, cancel := context.WithCancel(ctx)
	n.mu.Lock()
	n.abortCancel = cancel
	n.execCtx = execCtx
	n.mu.Unlock()
	defer cancel()

	ec := ExecContext{
		Signal:         execCtx,
		NodeProvenance: inbound.Merge(n.Provenance()),
		UpdateProgress: n.updateProgress,
	}

	if n.Cacheable && n.cache != nil {
		fp, err := n.Fingerprint()
		if err == nil {
			if cached, ok := n.cache.GetOutput(n.TypeName, fp); ok {
				refreshed, rerr := n.provider.ExecuteReactive(execCtx, ec, input, cached)
				if rerr != nil {
					n.fail(taskerr.Wrap(taskerr.NodeFailed, "cache-hit reactive refresh failed", rerr))
					return nil, n.Err()
				}
				if refreshed == nil {
					refreshed = cached
				}
				n.complete(refreshed)
				return refreshed, nil
			}
		}
	}

	output, err := n.provider.Execute(execCtx, ec, input)
	if err != nil {
		if execCtx.Err() != nil {
			n.abortLocked()
			return nil, n.Err()
		}
		n.fail(taskerr.Wrap(taskerr.NodeFailed, "execute failed", err))
		return nil, n.Err()
	}

	if n.Cacheable && n.cache != nil {
		if fp, ferr := n.Fingerprint(); ferr == nil {
			n.cache.SaveOutput(n.TypeName, fp, output)
		}
	}

	n.complete(output)
	return output, nil
}

// RunReactive drives only ExecuteReactive, used by reactive-only runs and
// never consults the cache.
func (n *Node) RunReactive(ctx context.Context, overrides map[string]any, inbound dataflow.Provenance) (map[string]any, error) {
	if overrides != nil {
		n.SetInput(overrides)
	}

	input := n.RunInput()
	lastOutput := n.LastOutput()

	n.start()

	ec := ExecContext{
		Signal:         ctx,
		NodeProvenance: inbound.Merge(n.Provenance()),
		UpdateProgress: n.updateProgress,
	}

	output, err := n.provider.ExecuteReactive(ctx, ec, input, lastOutput)
	if err != nil {
		n.fail(taskerr.Wrap(taskerr.NodeFailed, "executeReactive failed", err))
		return nil, n.Err()
	}
	n.complete(output)
	return output, nil
}

// Abort requests cancellation: transitions to ABORTING and signals the
// node's current execution context, if one is running.
func (n *Node) Abort() {
	n.abortLocked()
}

func (n *Node) abortLocked() {
	n.mu.Lock()
	n.status = dataflow.StatusAborting
	n.err = taskerr.ErrAborted.ForNode(n.ID)
	cancel := n.abortCancel
	n.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	n.events.Emit(eventbus.Event{Type: eventbus.Abort, NodeID: n.ID, NodeType: n.TypeName})
}

func (n *Node) start() {
	n.mu.Lock()
	n.status = dataflow.StatusProcessing
	n.startedAt = time.Now()
	n.mu.Unlock()
	n.events.Emit(eventbus.Event{Type: eventbus.Start, NodeID: n.ID, NodeType: n.TypeName, Timestamp: n.startedAt})
}

func (n *Node) updateProgress(pct float64, message string, details map[string]any) {
	n.mu.Lock()
	n.progress = pct
	n.mu.Unlock()
	n.events.Emit(eventbus.Event{
		Type: eventbus.Progress, NodeID: n.ID, NodeType: n.TypeName,
		Progress: pct, Message: message, Details: details,
	})
}

func (n *Node) complete(output map[string]any) {
	n.mu.Lock()
	n.status = dataflow.StatusCompleted
	n.lastOutput = output
	n.completedAt = time.Now()
	n.mu.Unlock()
	n.events.Emit(eventbus.Event{Type: eventbus.Complete, NodeID: n.ID, NodeType: n.TypeName, Timestamp: n.completedAt})
}

func (n *Node) fail(err error) {
	n.mu.Lock()
	n.status = dataflow.StatusFailed
	n.err = err
	n.mu.Unlock()
	n.events.Emit(eventbus.Event{Type: eventbus.Error, NodeID: n.ID, NodeType: n.TypeName, Err: err})
}

func deepCloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCloneValue(v)
	}
	return out
}

func deepCloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCloneValue(e)
		}
		return out
	default:
		return v
	}
}

func valuesEqual(a, b any) bool {
	aj, aerr := canonicalJSON(a)
	bj, berr := canonicalJSON(b)
	if aerr != nil || berr != nil {
		return false
	}
	return string(aj) == string(bj)
}

// canonicalJSON marshals v with map keys sorted, for stable fingerprinting
// and deep-equality comparisons. encoding/json already sorts map[string]any
// keys; this helper exists so the intent is named at call sites.
func canonicalJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}
