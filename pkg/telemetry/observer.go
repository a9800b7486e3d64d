package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowforge/taskgraph/pkg/eventbus"
)

// RunObserver subscribes to a graph-level eventbus and records spans and
// metrics for the run and every node inside it.
type RunObserver struct {
	provider *Provider

	mu            sync.Mutex
	runSpan       trace.Span
	runStart      time.Time
	nodeSpans     map[string]trace.Span
	nodeStartedAt map[string]time.Time
}

// NewRunObserver creates a RunObserver bound to provider.
func NewRunObserver(provider *Provider) *RunObserver {
	return &RunObserver{
		provider:      provider,
		nodeSpans:     make(map[string]trace.Span),
		nodeStartedAt: make(map[string]time.Time),
	}
}

// Attach subscribes the observer to bus and returns a function that removes
// every subscription it registered.
func (o *RunObserver) Attach(ctx context.Context, bus *eventbus.Emitter) (detach func()) {
	unsubs := []func(){
		bus.Subscribe(eventbus.GraphStart, func(ev eventbus.Event) { o.onRunStart(ctx, ev) }),
		bus.Subscribe(eventbus.GraphComplete, func(ev eventbus.Event) { o.onRunEnd(ctx, ev, true) }),
		bus.Subscribe(eventbus.GraphError, func(ev eventbus.Event) { o.onRunEnd(ctx, ev, false) }),
		bus.Subscribe(eventbus.GraphAbort, func(ev eventbus.Event) { o.onRunEnd(ctx, ev, false) }),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// AttachNode wires node-level span/metric recording for a single node's own
// event emitter (see pkg/node.Node.Events). Call once per node before the run starts.
func (o *RunObserver) AttachNode(ctx context.Context, nodeID, nodeType string, emitter *eventbus.Emitter) (detach func()) {
	unsubs := []func(){
		emitter.Subscribe(eventbus.Start, func(ev eventbus.Event) { o.onNodeStart(ctx, nodeID, nodeType, ev) }),
		emitter.Subscribe(eventbus.Complete, func(ev eventbus.Event) { o.onNodeEnd(ctx, nodeID, nodeType, true) }),
		emitter.Subscribe(eventbus.Error, func(ev eventbus.Event) { o.onNodeEnd(ctx, nodeID, nodeType, false) }),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (o *RunObserver) onRunStart(ctx context.Context, ev eventbus.Event) {
	_, span := o.provider.Tracer().Start(ctx, "run.execute",
		trace.WithAttributes(
			attribute.String("graph.id", ev.GraphID),
			attribute.String("run.id", ev.RunID),
		),
	)
	o.mu.Lock()
	o.runSpan = span
	o.runStart = ev.Timestamp
	o.mu.Unlock()
}

func (o *RunObserver) onRunEnd(ctx context.Context, ev eventbus.Event, success bool) {
	o.mu.Lock()
	duration := time.Since(o.runStart)
	span := o.runSpan
	o.mu.Unlock()

	nodesExecuted := 0
	if v, ok := ev.Metadata["nodes_executed"]; ok {
		if n, ok := v.(int); ok {
			nodesExecuted = n
		}
	}
	o.provider.RecordRun(ctx, ev.RunID, duration, success, nodesExecuted)

	if span == nil {
		return
	}
	if ev.Err != nil {
		span.RecordError(ev.Err)
		span.SetStatus(codes.Error, ev.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "run completed")
	}
	span.End()
}

func (o *RunObserver) onNodeStart(ctx context.Context, nodeID, nodeType string, ev eventbus.Event) {
	o.mu.Lock()
	parent := o.runSpan
	o.mu.Unlock()

	spanCtx := ctx
	if parent != nil {
		spanCtx = trace.ContextWithSpan(ctx, parent)
	}
	_, span := o.provider.Tracer().Start(spanCtx, "node.execute",
		trace.WithAttributes(
			attribute.String("node.id", nodeID),
			attribute.String("node.type", nodeType),
		),
	)

	o.mu.Lock()
	o.nodeSpans[nodeID] = span
	o.nodeStartedAt[nodeID] = ev.Timestamp
	o.mu.Unlock()
}

func (o *RunObserver) onNodeEnd(ctx context.Context, nodeID, nodeType string, success bool) {
	o.mu.Lock()
	start, hadStart := o.nodeStartedAt[nodeID]
	span := o.nodeSpans[nodeID]
	delete(o.nodeStartedAt, nodeID)
	delete(o.nodeSpans, nodeID)
	o.mu.Unlock()

	var duration time.Duration
	if hadStart {
		duration = time.Since(start)
	}
	o.provider.RecordNode(ctx, nodeID, nodeType, duration, success)

	if span == nil {
		return
	}
	if !success {
		span.SetStatus(codes.Error, "node failed")
	} else {
		span.SetStatus(codes.Ok, "node completed")
	}
	span.End()
}
