package nodes

import (
	"context"

	"github.com/flowforge/taskgraph/pkg/node"
)

func numberPort(name string, required bool) node.PortSchema {
	return node.PortSchema{Name: name, Type: node.PortNumber, Required: required}
}

func numberOut(name string) node.PortSchema {
	return node.PortSchema{Name: name, Type: node.PortNumber}
}

type squareProvider struct{}

func (squareProvider) Execute(ctx context.Context, ec node.ExecContext, input map[string]any) (map[string]any, error) {
	v := input["input"].(float64)
	return map[string]any{"output": v * v}, nil
}

func (squareProvider) ExecuteReactive(ctx context.Context, ec node.ExecContext, input, lastOutput map[string]any) (map[string]any, error) {
	return lastOutput, nil
}

// NewSquare builds a Square node: output = input^2.
func NewSquare(id string) (*node.Node, error) {
	return node.New(id, "Square", squareProvider{},
		[]node.PortSchema{numberPort("input", true)},
		[]node.PortSchema{numberOut("output")})
}

type doubleProvider struct{}

func (doubleProvider) Execute(ctx context.Context, ec node.ExecContext, input map[string]any) (map[string]any, error) {
	v := input["input"].(float64)
	return map[string]any{"output": v * 2}, nil
}

func (doubleProvider) ExecuteReactive(ctx context.Context, ec node.ExecContext, input, lastOutput map[string]any) (map[string]any, error) {
	return lastOutput, nil
}

// NewDouble builds a Double node: output = input*2.
func NewDouble(id string) (*node.Node, error) {
	return node.New(id, "Double", doubleProvider{},
		[]node.PortSchema{numberPort("input", true)},
		[]node.PortSchema{numberOut("output")})
}

type addProvider struct{}

func (addProvider) Execute(ctx context.Context, ec node.ExecContext, input map[string]any) (map[string]any, error) {
	a, _ := input["a"].(float64)
	b, _ := input["b"].(float64)
	return map[string]any{"output": a + b}, nil
}

func (addProvider) ExecuteReactive(ctx context.Context, ec node.ExecContext, input, lastOutput map[string]any) (map[string]any, error) {
	return lastOutput, nil
}

// NewAdd builds an Add node: output = a+b.
func NewAdd(id string) (*node.Node, error) {
	return node.New(id, "Add", addProvider{},
		[]node.PortSchema{numberPort("a", true), numberPort("b", true)},
		[]node.PortSchema{numberOut("output")})
}
