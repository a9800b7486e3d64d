package nodes

import (
	"context"
	"fmt"

	"github.com/flowforge/taskgraph/pkg/node"
)

type failingProvider struct {
	message string
}

func (p failingProvider) Execute(ctx context.Context, ec node.ExecContext, input map[string]any) (map[string]any, error) {
	return nil, fmt.Errorf("%s", p.message)
}

func (p failingProvider) ExecuteReactive(ctx context.Context, ec node.ExecContext, input, lastOutput map[string]any) (map[string]any, error) {
	return nil, fmt.Errorf("%s", p.message)
}

// NewFailing builds a node whose Execute always returns an error, for
// exercising a run's ErrorGroup construction (S4).
func NewFailing(id, message string) (*node.Node, error) {
	return node.New(id, "Failing", failingProvider{message: message},
		[]node.PortSchema{{Name: "in", Type: node.PortAny, Required: true}}, nil)
}
