// Package text provides the text node kind, producing SVG markup from a
// string rendered with a font held in the engine's font cache.
package text

import (
	"context"
	"fmt"
	"html"

	"github.com/zclconf/go-cty/cty"

	"github.com/jsjgdh/Graphite/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// OnEvaluateText renders the string as SVG text markup. When the requested
// font family has not been delivered through the side channel yet, a
// system-font placeholder is emitted instead of failing the evaluation;
// the editor re-renders once the font arrives.
func OnEvaluateText(ctx context.Context, call *registry.Call) (cty.Value, error) {
	content := call.Inputs[0].AsString()
	family := call.Inputs[1].AsString()
	size, _ := call.Inputs[2].AsBigFloat().Float64()
	if size <= 0 {
		return cty.NilVal, fmt.Errorf("font size must be positive, got %g", size)
	}

	if family != "" && !call.Fonts.Has(family) {
		family = "sans-serif"
	}
	svg := fmt.Sprintf(
		`<text font-family=%q font-size="%g" y="%g">%s</text>`,
		family, size, size, html.EscapeString(content),
	)
	return cty.StringVal(svg), nil
}

// Register registers the node kind with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.Register("text", &registry.Handler{
		Params: []registry.Param{
			{Name: "content", Type: cty.String},
			{Name: "font", Type: cty.String},
			{Name: "size", Type: cty.Number},
		},
		OutputType: cty.String,
		Evaluate:   OnEvaluateText,
	})
}
