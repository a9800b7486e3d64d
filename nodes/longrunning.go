package nodes

import (
	"context"
	"time"

	"github.com/flowforge/taskgraph/pkg/node"
)

type longRunningProvider struct {
	duration time.Duration
}

// Execute blocks for the configured duration, honouring ctx cancellation so
// an abort mid-flight interrupts it immediately rather than running to
// completion in the background.
func (p longRunningProvider) Execute(ctx context.Context, ec node.ExecContext, input map[string]any) (map[string]any, error) {
	select {
	case <-time.After(p.duration):
		return map[string]any{"output": "done"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p longRunningProvider) ExecuteReactive(ctx context.Context, ec node.ExecContext, input, lastOutput map[string]any) (map[string]any, error) {
	return lastOutput, nil
}

// NewLongRunning builds a node that runs for duration unless its execution
// signal is cancelled first, for exercising abort-mid-flight (S5).
func NewLongRunning(id string, duration time.Duration) (*node.Node, error) {
	return node.New(id, "LongRunning", longRunningProvider{duration: duration}, nil,
		[]node.PortSchema{{Name: "output", Type: node.PortString}})
}
