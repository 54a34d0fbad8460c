// Package value provides the constant-source node kind.
package value

import (
	"context"

	"github.com/zclconf/go-cty/cty"

	"github.com/jsjgdh/Graphite/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnEvaluateValue forwards the configured parameter as the node's output.
func OnEvaluateValue(ctx context.Context, call *registry.Call) (cty.Value, error) {
	return call.Inputs[0], nil
}

// Register registers the node kind with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("value", &registry.Handler{
		Params: []registry.Param{
			{Name: "value", Type: cty.DynamicPseudoType},
		},
		OutputType: cty.DynamicPseudoType,
		Evaluate:   OnEvaluateValue,
	})
}
