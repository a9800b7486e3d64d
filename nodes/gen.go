package nodes

import (
	"context"
	"sync/atomic"

	"github.com/flowforge/taskgraph/pkg/node"
)

type genProvider struct {
	calls *atomic.Int64
}

func (p genProvider) Execute(ctx context.Context, ec node.ExecContext, input map[string]any) (map[string]any, error) {
	p.calls.Add(1)
	prompt, _ := input["prompt"].(string)
	return map[string]any{"text": "generated: " + prompt}, nil
}

func (p genProvider) ExecuteReactive(ctx context.Context, ec node.ExecContext, input, lastOutput map[string]any) (map[string]any, error) {
	return lastOutput, nil
}

// NewGen builds a cacheable node standing in for an expensive generation
// step (S6): Execute increments calls each time it actually runs, so a
// caller can assert a cache hit skipped it. The node's Cacheable flag is
// left to the caller to set alongside SetCache.
func NewGen(id string, calls *atomic.Int64) (*node.Node, error) {
	return node.New(id, "Gen", genProvider{calls: calls},
		[]node.PortSchema{{Name: "prompt", Type: node.PortString, Required: true}},
		[]node.PortSchema{{Name: "text", Type: node.PortString}})
}
