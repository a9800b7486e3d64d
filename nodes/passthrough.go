package nodes

import (
	"context"

	"github.com/flowforge/taskgraph/pkg/node"
)

type passthroughProvider struct{}

func (passthroughProvider) Execute(ctx context.Context, ec node.ExecContext, input map[string]any) (map[string]any, error) {
	return map[string]any{"output": input["input"]}, nil
}

func (passthroughProvider) ExecuteReactive(ctx context.Context, ec node.ExecContext, input, lastOutput map[string]any) (map[string]any, error) {
	return lastOutput, nil
}

// NewPassthrough builds a node that copies its "input" port straight to
// "output", used as a simple downstream target in demo graphs.
func NewPassthrough(id string) (*node.Node, error) {
	return node.New(id, "Passthrough", passthroughProvider{},
		[]node.PortSchema{{Name: "input", Type: node.PortAny}},
		[]node.PortSchema{{Name: "output", Type: node.PortAny}})
}
