package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/jsjgdh/Graphite/internal/graph"
	"github.com/jsjgdh/Graphite/internal/instrument"
	"github.com/jsjgdh/Graphite/internal/registry"
	"github.com/jsjgdh/Graphite/internal/render"
	"github.com/jsjgdh/Graphite/internal/runtimeio"
)

// execute evaluates the compiled program against one render configuration.
// Nodes at the same dependency depth run concurrently on the worker pool.
func (e *Engine) execute(ctx context.Context, cfg render.Config) (cty.Value, []runtimeio.DocUpdate, *runtimeio.InspectResult, error) {
	prog := e.program
	values := newValueStore()

	for _, level := range prog.levels() {
		if err := ctx.Err(); err != nil {
			return cty.NilVal, nil, nil, err
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		var firstErr error

		for _, key := range level {
			fn := prog.nodes[key]
			wg.Add(1)
			task := func() {
				defer wg.Done()
				v, err := e.evalNode(ctx, fn, values, cfg)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				values.set(fn.path.String(), v)
			}
			if err := e.pool.Submit(task); err != nil {
				// Pool rejection (shutdown) degrades to inline evaluation.
				task()
			}
		}
		wg.Wait()

		if firstErr != nil {
			return cty.NilVal, nil, nil, firstErr
		}
	}

	out, ok := values.get(prog.output)
	if !ok {
		return cty.NilVal, nil, nil, fmt.Errorf("program produced no output value")
	}

	var updates []runtimeio.DocUpdate
	if rendered, isOutput := render.AsOutput(out); isOutput {
		rendered.Metadata = e.buildMetadata(prog, values, cfg)
		if outputNode, ok := prog.nodes[prog.output]; ok {
			if rect, ok := rendered.Metadata.ClickTargets[outputNode.id]; ok {
				updates = append(updates, runtimeio.DocUpdate{Node: outputNode.id, Bounds: rect})
			}
		}
	}

	var inspected *runtimeio.InspectResult
	if e.inspect != 0 {
		if key, ok := prog.byID[e.inspect]; ok {
			if v, ok := values.get(key); ok {
				inspected = &runtimeio.InspectResult{Node: e.inspect, Value: v}
			}
		}
	}

	return out, updates, inspected, nil
}

// evalNode evaluates one flattened node. Taps forward their single input
// unchanged while recording it; everything else goes through its registered
// handler with inputs converted to the declared parameter types.
func (e *Engine) evalNode(ctx context.Context, fn *flatNode, values *valueStore, cfg render.Config) (cty.Value, error) {
	inputs := make([]cty.Value, len(fn.inputs))
	for i, in := range fn.inputs {
		switch in.kind {
		case srcValue:
			inputs[i] = in.value
		case srcNode:
			v, ok := values.get(in.key)
			if !ok {
				return cty.NilVal, fmt.Errorf("node %s: input %d was never evaluated", fn.path, i)
			}
			inputs[i] = v
		}
	}

	if fn.kind == instrument.TapKind {
		v := cty.NilVal
		if len(inputs) == 1 {
			v = inputs[0]
		}
		cfgCopy := cfg
		e.records.Store(fn.path.String(), instrument.Recorded{
			Kind:    instrument.RecordWithContext,
			Value:   v,
			Context: &cfgCopy,
		})
		return v, nil
	}

	handler, ok := e.registry.Handler(fn.kind)
	if !ok {
		return cty.NilVal, fmt.Errorf("node %s: unknown kind %q", fn.path, fn.kind)
	}

	for i, param := range handler.Params {
		if i >= len(inputs) || param.Type == cty.DynamicPseudoType || inputs[i] == cty.NilVal {
			continue
		}
		if inputs[i].Type().Equals(param.Type) {
			continue
		}
		converted, err := convert.Convert(inputs[i], param.Type)
		if err != nil {
			return cty.NilVal, fmt.Errorf("node %s: input %q: %w", fn.path, param.Name, err)
		}
		inputs[i] = converted
	}

	v, err := handler.Evaluate(ctx, &registry.Call{
		Inputs: inputs,
		Render: cfg,
		Fonts:  e.fonts,
		Prefs:  e.prefs,
	})
	if err != nil {
		return cty.NilVal, fmt.Errorf("node %s (%s): %w", fn.path, fn.kind, err)
	}
	return v, nil
}

// buildMetadata derives the spatial indices and transform records the
// editing tools query between evaluations.
func (e *Engine) buildMetadata(prog *program, values *valueStore, cfg render.Config) render.Metadata {
	meta := render.Metadata{
		UpstreamFootprints: make(map[graph.NodeID]render.Footprint),
		LocalTransforms:    make(map[graph.NodeID]render.Transform),
		ClickTargets:       make(map[graph.NodeID]render.Rect),
	}

	for _, key := range prog.order {
		fn := prog.nodes[key]
		v, ok := values.get(key)
		if !ok {
			continue
		}

		if _, isOutput := render.AsOutput(v); isOutput {
			meta.UpstreamFootprints[fn.id] = cfg.Viewport
		} else if _, isRaster := render.AsRaster(v); isRaster {
			meta.UpstreamFootprints[fn.id] = cfg.Viewport
		}

		if fn.kind == "transform" {
			if t, ok := e.transformInput(fn, values); ok {
				meta.LocalTransforms[fn.id] = t
			}
		}

		if fn.kind == "artwork" && e.clipEnabled(fn) {
			meta.ClipTargets = append(meta.ClipTargets, fn.id)
		}
	}

	if outputNode, ok := prog.nodes[prog.output]; ok {
		if v, ok := values.get(prog.output); ok {
			meta.ClickTargets[outputNode.id] = outputBounds(v, cfg)
		}
	}
	return meta
}

// clipEnabled reports whether an artwork node's clip parameter is set. Only
// statically configured clip flags are considered; a clip flag wired from
// another node does not register as a clip target.
func (e *Engine) clipEnabled(fn *flatNode) bool {
	handler, ok := e.registry.Handler(fn.kind)
	if !ok {
		return false
	}
	for i, param := range handler.Params {
		if param.Name != "clip" || i >= len(fn.inputs) {
			continue
		}
		in := fn.inputs[i]
		return in.kind == srcValue && in.value.Type().Equals(cty.Bool) && in.value.True()
	}
	return false
}

// transformInput decodes the matrix parameter of a transform node from its
// evaluated input sources.
func (e *Engine) transformInput(fn *flatNode, values *valueStore) (render.Transform, bool) {
	handler, ok := e.registry.Handler(fn.kind)
	if !ok {
		return render.Transform{}, false
	}
	for i, param := range handler.Params {
		if param.Name != "matrix" || i >= len(fn.inputs) {
			continue
		}
		in := fn.inputs[i]
		var v cty.Value
		switch in.kind {
		case srcValue:
			v = in.value
		case srcNode:
			v, _ = values.get(in.key)
		}
		return transformFromValue(v)
	}
	return render.Transform{}, false
}

// transformFromValue decodes a 6-element number sequence into an affine
// transform.
func transformFromValue(v cty.Value) (render.Transform, bool) {
	if v == cty.NilVal || v.IsNull() || !v.IsKnown() || !v.CanIterateElements() || v.LengthInt() != 6 {
		return render.Transform{}, false
	}
	var m [6]float64
	i := 0
	for it := v.ElementIterator(); it.Next(); i++ {
		_, ev := it.Element()
		if !ev.Type().Equals(cty.Number) {
			return render.Transform{}, false
		}
		f, _ := ev.AsBigFloat().Float64()
		m[i] = f
	}
	return render.Transform{A: m[0], B: m[1], C: m[2], D: m[3], E: m[4], F: m[5]}, true
}

// outputBounds computes the document-space bounding rect of the output.
func outputBounds(v cty.Value, cfg render.Config) render.Rect {
	if out, ok := render.AsOutput(v); ok {
		switch out.Kind {
		case render.OutputRaster:
			if out.Raster != nil {
				return render.Rect{W: float64(out.Raster.Width), H: float64(out.Raster.Height)}
			}
		case render.OutputSurface:
			if out.Surface != nil {
				return render.Rect{W: float64(out.Surface.Width), H: float64(out.Surface.Height)}
			}
		}
	}
	return render.Rect{W: float64(cfg.Viewport.Width), H: float64(cfg.Viewport.Height)}
}

// levels groups the topological order into batches whose members do not
// depend on one another, for concurrent evaluation.
func (p *program) levels() [][]string {
	depth := make(map[string]int, len(p.nodes))
	maxDepth := 0
	for _, key := range p.order {
		d := 0
		for _, in := range p.nodes[key].inputs {
			if in.kind == srcNode {
				if dd := depth[in.key] + 1; dd > d {
					d = dd
				}
			}
		}
		depth[key] = d
		if d > maxDepth {
			maxDepth = d
		}
	}
	levels := make([][]string, maxDepth+1)
	for _, key := range p.order {
		levels[depth[key]] = append(levels[depth[key]], key)
	}
	return levels
}

// valueStore holds evaluated node outputs keyed by structural path.
type valueStore struct {
	mu     sync.RWMutex
	values map[string]cty.Value
}

func newValueStore() *valueStore {
	return &valueStore{values: make(map[string]cty.Value)}
}

func (s *valueStore) set(key string, v cty.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = v
}

func (s *valueStore) get(key string) (cty.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}
