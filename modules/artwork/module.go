// Package artwork provides the terminal node kinds of a document graph.
// The "artwork" kind wraps the upstream content into the typed render
// output consumed by the control plane; the "surface" kind emits a handle
// to a live canvas surface instead of pixel or vector content.
package artwork

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/jsjgdh/Graphite/internal/registry"
	"github.com/jsjgdh/Graphite/internal/render"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnEvaluateArtwork wraps the upstream value as the graph's terminal render
// output. Vector markup becomes an SVG document sized to the viewport;
// raster buffers pass through as raster output for the texture and export
// paths.
func OnEvaluateArtwork(ctx context.Context, call *registry.Call) (cty.Value, error) {
	source := call.Inputs[0]

	if buf, ok := render.AsRaster(source); ok {
		return render.WrapOutput(&render.Output{Kind: render.OutputRaster, Raster: buf}), nil
	}
	if source.Type().Equals(cty.String) {
		vp := call.Render.Viewport
		svg := fmt.Sprintf(
			`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">%s</svg>`,
			vp.Width, vp.Height, source.AsString(),
		)
		return render.WrapOutput(&render.Output{Kind: render.OutputSVG, SVG: svg}), nil
	}
	return cty.NilVal, fmt.Errorf("artwork cannot present %s", source.Type().FriendlyName())
}

// OnEvaluateSurface emits a frame referencing a live drawing surface owned
// by the presentation layer.
func OnEvaluateSurface(ctx context.Context, call *registry.Call) (cty.Value, error) {
	id, _ := call.Inputs[0].AsBigFloat().Float64()
	if id < 1 {
		return cty.NilVal, fmt.Errorf("surface id must be at least 1, got %g", id)
	}

	vp := call.Render.Viewport
	frame := &render.SurfaceFrame{
		SurfaceID: uint64(id),
		Transform: vp.Transform,
		Width:     vp.Width,
		Height:    vp.Height,
	}
	return render.WrapOutput(&render.Output{Kind: render.OutputSurface, Surface: frame}), nil
}

// Register registers both terminal node kinds with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("artwork", &registry.Handler{
		Params: []registry.Param{
			{Name: "source", Type: cty.DynamicPseudoType},
			{Name: "clip", Type: cty.Bool},
		},
		OutputType: render.OutputType,
		Evaluate:   OnEvaluateArtwork,
	})
	r.Register("surface", &registry.Handler{
		Params: []registry.Param{
			{Name: "surface_id", Type: cty.Number},
		},
		OutputType: render.OutputType,
		Evaluate:   OnEvaluateSurface,
	})
}
