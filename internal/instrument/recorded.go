package instrument

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/jsjgdh/Graphite/internal/render"
)

// RecordKind is the closed set of shapes a tap may record. Unknown shapes
// are "not retrievable" rather than an error, so retrieval stays a pattern
// match instead of open-ended reflection.
type RecordKind int

const (
	// RecordBare is a plain forwarded value.
	RecordBare RecordKind = iota
	// RecordWithContext is a value recorded together with the render
	// configuration active during the evaluation.
	RecordWithContext
)

// Recorded is the value captured at one tap during one execution.
type Recorded struct {
	Kind    RecordKind
	Value   cty.Value
	Context *render.Config
}

// Retrieve unwraps the recorded value if its shape and type permit safe
// retrieval. Values whose type never resolved (unknowns, dynamics) are
// reported as absent.
func (r Recorded) Retrieve() (cty.Value, bool) {
	switch r.Kind {
	case RecordBare, RecordWithContext:
	default:
		return cty.NilVal, false
	}
	v := r.Value
	if v == cty.NilVal || v.Type() == cty.DynamicPseudoType || !v.IsKnown() {
		return cty.NilVal, false
	}
	return v, true
}
