// Package raster provides the procedural raster-source node kind: a solid
// or checkered RGBA buffer, the raster producer for the preview, PNG/JPG,
// and ASCII export paths.
package raster

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/jsjgdh/Graphite/internal/registry"
	"github.com/jsjgdh/Graphite/internal/render"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnEvaluateRaster generates the pixel buffer.
func OnEvaluateRaster(ctx context.Context, call *registry.Call) (cty.Value, error) {
	width, err := dimension(call.Inputs[0], call.Prefs.MaxRasterDimension)
	if err != nil {
		return cty.NilVal, fmt.Errorf("width: %w", err)
	}
	height, err := dimension(call.Inputs[1], call.Prefs.MaxRasterDimension)
	if err != nil {
		return cty.NilVal, fmt.Errorf("height: %w", err)
	}

	r, g, b, a, err := parseColor(call.Inputs[2].AsString())
	if err != nil {
		return cty.NilVal, err
	}
	checker := call.Inputs[3].True()

	buf := &render.Raster{Width: width, Height: height, Pixels: make([]byte, width*height*4)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			if checker && (x/8+y/8)%2 == 1 {
				buf.Pixels[i], buf.Pixels[i+1], buf.Pixels[i+2], buf.Pixels[i+3] = 0, 0, 0, a
				continue
			}
			buf.Pixels[i], buf.Pixels[i+1], buf.Pixels[i+2], buf.Pixels[i+3] = r, g, b, a
		}
	}
	return render.WrapRaster(buf), nil
}

func dimension(v cty.Value, limit int) (int, error) {
	f, _ := v.AsBigFloat().Float64()
	n := int(f)
	if n < 1 {
		return 0, fmt.Errorf("must be at least 1, got %d", n)
	}
	if n > limit {
		n = limit
	}
	return n, nil
}

// parseColor decodes #rrggbb or #rrggbbaa.
func parseColor(s string) (uint8, uint8, uint8, uint8, error) {
	var r, g, b, a uint8
	a = 0xff
	switch len(s) {
	case 7:
		if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
			return 0, 0, 0, 0, fmt.Errorf("invalid color %q", s)
		}
	case 9:
		if _, err := fmt.Sscanf(s, "#%02x%02x%02x%02x", &r, &g, &b, &a); err != nil {
			return 0, 0, 0, 0, fmt.Errorf("invalid color %q", s)
		}
	default:
		return 0, 0, 0, 0, fmt.Errorf("invalid color %q", s)
	}
	return r, g, b, a, nil
}

// Register registers the node kind with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("raster", &registry.Handler{
		Params: []registry.Param{
			{Name: "width", Type: cty.Number},
			{Name: "height", Type: cty.Number},
			{Name: "color", Type: cty.String},
			{Name: "checker", Type: cty.Bool},
		},
		OutputType: render.RasterType,
		Evaluate:   OnEvaluateRaster,
	})
}
