// Command demo wires the task-graph engine's literal scenarios (one graph
// per scenario) and runs each one, printing its outcome. It doubles as a
// smoke test for pkg/runner, pkg/compound, and nodes.
package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/flowforge/taskgraph/nodes"
	"github.com/flowforge/taskgraph/pkg/cache"
	"github.com/flowforge/taskgraph/pkg/compound"
	"github.com/flowforge/taskgraph/pkg/config"
	"github.com/flowforge/taskgraph/pkg/dataflow"
	"github.com/flowforge/taskgraph/pkg/graph"
	"github.com/flowforge/taskgraph/pkg/logging"
	"github.com/flowforge/taskgraph/pkg/node"
	"github.com/flowforge/taskgraph/pkg/runner"
	"github.com/flowforge/taskgraph/pkg/telemetry"
)

func main() {
	log := logging.New(logging.Config{Level: "info", Pretty: true})

	ctx := context.Background()
	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		ServiceName: "taskgraph-demo", ServiceVersion: "0.1.0", Environment: "local",
		EnableTracing: true, EnableMetrics: true,
	})
	if err != nil {
		log.Fatalf("telemetry.NewProvider: %v", err)
	}
	defer provider.Shutdown(ctx)
	observer := telemetry.NewRunObserver(provider)

	fmt.Println("=================================================")
	fmt.Println("Task-Graph Engine Demo")
	fmt.Println("=================================================")
	fmt.Println()

	demoIndependentLeaves(log, observer)
	demoChainWithAdd(log, observer)
	demoReplicateOverArray(log, observer)
	demoFailureMidGraph(log, observer)
	demoAbortMidFlight(log, observer)
	demoCacheHit(log, observer)
	demoCycleRejection(log)
}

func newGraph() *graph.Graph[*node.Node, *dataflow.Edge] {
	return graph.New[*node.Node, *dataflow.Edge]()
}

func attach(r *runner.Runner, observer *telemetry.RunObserver, nodes ...*node.Node) func() {
	detach := observer.Attach(context.Background(), r.Events())
	detaches := []func(){detach}
	for _, n := range nodes {
		detaches = append(detaches, observer.AttachNode(context.Background(), n.Identity(), n.TypeName, n.Events()))
	}
	return func() {
		for _, d := range detaches {
			d()
		}
	}
}

// S1 — Square then double, independent leaves.
func demoIndependentLeaves(log *logging.Logger, observer *telemetry.RunObserver) {
	fmt.Println("S1: Square then double, independent leaves")
	g := newGraph()
	task1, _ := nodes.NewSquare("task1")
	task2, _ := nodes.NewDouble("task2")
	task1.SetInput(map[string]any{"input": 5.0})
	task2.SetInput(map[string]any{"input": 5.0})
	_ = g.AddNode(task1)
	_ = g.AddNode(task2)

	r := runner.New(g, config.Default(), nil)
	defer attach(r, observer, task1, task2)()

	result, err := r.Run(context.Background(), "s1", runner.RunConfig{MergeStrategy: config.MergeNamed})
	if err != nil {
		log.WithError(err).Error("S1 run failed")
		return
	}
	fmt.Printf("  result: %#v\n\n", result)
}

// S2 — Chain with add.
func demoChainWithAdd(log *logging.Logger, observer *telemetry.RunObserver) {
	fmt.Println("S2: Chain with add")
	g := newGraph()
	task1, _ := nodes.NewSquare("task1")
	task2, _ := nodes.NewDouble("task2")
	task3, _ := nodes.NewAdd("task3")
	task1.SetInput(map[string]any{"input": 5.0})
	task2.SetInput(map[string]any{"input": 5.0})
	_ = g.AddNode(task1)
	_ = g.AddNode(task2)
	_ = g.AddNode(task3)
	_ = g.AddEdge(dataflow.New("task1", "output", "task3", "a"))
	_ = g.AddEdge(dataflow.New("task2", "output", "task3", "b"))

	r := runner.New(g, config.Default(), nil)
	defer attach(r, observer, task1, task2, task3)()

	result, err := r.Run(context.Background(), "s2", runner.RunConfig{MergeStrategy: config.MergeLast})
	if err != nil {
		log.WithError(err).Error("S2 run failed")
		return
	}
	fmt.Printf("  result: %#v\n\n", result)
}

// S3 — Replicate over array.
func demoReplicateOverArray(log *logging.Logger, observer *telemetry.RunObserver) {
	fmt.Println("S3: Replicate over array")

	factory := func(childID string, replicated map[string]any) (*node.Node, error) {
		n, err := nodes.NewSquare(childID)
		if err != nil {
			return nil, err
		}
		n.SetInput(map[string]any{"input": replicated["input"]})
		return n, nil
	}

	c := compound.NewRegenerative("sq", "Square", []string{"input"}, factory, config.Default(), nil)
	owner, _ := node.New("sq", "Square", c, []node.PortSchema{{Name: "input", Type: node.PortAny, IsArray: true}}, nil)
	owner.Compound = true
	c.SetOwner(owner)
	owner.SetRegenerateHook(func() { c.Regenerate(owner.RunID()) })

	values := make([]any, 11)
	for i := range values {
		values[i] = float64(i)
	}
	owner.SetInput(map[string]any{"input": values})

	output, err := owner.RunFull(context.Background(), nil, nil)
	if err != nil {
		log.WithError(err).Error("S3 run failed")
		return
	}
	fmt.Printf("  result: %#v\n\n", output)
}

// S4 — Failure mid-graph.
func demoFailureMidGraph(log *logging.Logger, observer *telemetry.RunObserver) {
	fmt.Println("S4: Failure mid-graph")
	g := newGraph()
	square, _ := nodes.NewSquare("square")
	failing, _ := nodes.NewFailing("failing", "boom")
	square.SetInput(map[string]any{"input": 5.0})
	_ = g.AddNode(square)
	_ = g.AddNode(failing)
	_ = g.AddEdge(dataflow.New("square", "output", "failing", "in"))

	r := runner.New(g, config.Default(), nil)
	defer attach(r, observer, square, failing)()

	_, err := r.Run(context.Background(), "s4", runner.RunConfig{MergeStrategy: config.MergeLast})
	log.WithError(err).Info("S4 run failed as expected")
	fmt.Printf("  error: %v\n\n", err)
}

// S5 — Abort after 1ms.
func demoAbortMidFlight(log *logging.Logger, observer *telemetry.RunObserver) {
	fmt.Println("S5: Abort after 1ms")
	g := newGraph()
	long, _ := nodes.NewLongRunning("long-running", 10*time.Second)
	target, _ := nodes.NewPassthrough("target")
	_ = g.AddNode(long)
	_ = g.AddNode(target)
	_ = g.AddEdge(dataflow.New("long-running", "output", "target", "input"))

	r := runner.New(g, config.Default(), nil)
	defer attach(r, observer, long, target)()

	done := make(chan struct{})
	var runErr error
	go func() {
		_, runErr = r.Run(context.Background(), "s5", runner.RunConfig{MergeStrategy: config.MergeLast})
		close(done)
	}()
	time.Sleep(time.Millisecond)
	r.Abort()
	<-done
	log.WithError(runErr).Info("S5 run aborted as expected")
	fmt.Printf("  error: %v\n\n", runErr)
}

// S6 — Cache hit.
func demoCacheHit(log *logging.Logger, observer *telemetry.RunObserver) {
	fmt.Println("S6: Cache hit")
	var calls atomic.Int64
	g := newGraph()
	gen, _ := nodes.NewGen("gen", &calls)
	gen.Cacheable = true
	gen.SetInput(map[string]any{"prompt": "x"})
	_ = g.AddNode(gen)

	sharedCache := cache.NewInMemory(0)
	r := runner.New(g, config.Default(), sharedCache)
	defer attach(r, observer, gen)()

	if _, err := r.Run(context.Background(), "s6a", runner.RunConfig{MergeStrategy: config.MergeLast}); err != nil {
		log.WithError(err).Error("S6 first run failed")
		return
	}
	if _, err := r.Run(context.Background(), "s6b", runner.RunConfig{MergeStrategy: config.MergeLast}); err != nil {
		log.WithError(err).Error("S6 second run failed")
		return
	}
	fmt.Printf("  execute calls after two runs: %d (want 1)\n\n", calls.Load())
}

// S7 — Cycle rejection.
func demoCycleRejection(log *logging.Logger) {
	fmt.Println("S7: Cycle rejection")
	g := newGraph()
	a, _ := nodes.NewPassthrough("a")
	b, _ := nodes.NewPassthrough("b")
	c, _ := nodes.NewPassthrough("c")
	_ = g.AddNode(a)
	_ = g.AddNode(b)
	_ = g.AddNode(c)
	_ = g.AddEdge(dataflow.New("a", "output", "b", "input"))
	_ = g.AddEdge(dataflow.New("b", "output", "c", "input"))

	err := g.AddEdge(dataflow.New("c", "output", "a", "input"))
	log.WithError(err).Info("S7 edge rejected as expected")
	fmt.Printf("  addEdge(c->a) error: %v\n\n", err)
}
