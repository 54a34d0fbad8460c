// Package transform provides the node kind applying a 2D affine transform
// to upstream content.
package transform

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/jsjgdh/Graphite/internal/registry"
	"github.com/jsjgdh/Graphite/internal/render"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnEvaluateTransform wraps vector markup in a transformed group. Raster
// content passes through untouched; its transform is carried in the render
// metadata instead of being resampled.
func OnEvaluateTransform(ctx context.Context, call *registry.Call) (cty.Value, error) {
	source := call.Inputs[0]
	matrix, err := decodeMatrix(call.Inputs[1])
	if err != nil {
		return cty.NilVal, err
	}

	if _, ok := render.AsRaster(source); ok {
		return source, nil
	}
	if source.Type().Equals(cty.String) {
		svg := source.AsString()
		if css := matrix.CSSMatrix(); css != "" {
			svg = fmt.Sprintf(`<g transform=%q>%s</g>`, css, svg)
		}
		return cty.StringVal(svg), nil
	}
	return cty.NilVal, fmt.Errorf("cannot transform %s", source.Type().FriendlyName())
}

func decodeMatrix(v cty.Value) (render.Transform, error) {
	if !v.CanIterateElements() || v.LengthInt() != 6 {
		return render.Transform{}, fmt.Errorf("matrix must hold exactly 6 numbers")
	}
	var m [6]float64
	i := 0
	for it := v.ElementIterator(); it.Next(); i++ {
		_, ev := it.Element()
		f, _ := ev.AsBigFloat().Float64()
		m[i] = f
	}
	return render.Transform{A: m[0], B: m[1], C: m[2], D: m[3], E: m[4], F: m[5]}, nil
}

// Register registers the node kind with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("transform", &registry.Handler{
		Params: []registry.Param{
			{Name: "source", Type: cty.DynamicPseudoType},
			{Name: "matrix", Type: cty.List(cty.Number)},
		},
		OutputType: cty.DynamicPseudoType,
		Evaluate:   OnEvaluateTransform,
	})
}
