package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/jsjgdh/Graphite/internal/graph"
	"github.com/jsjgdh/Graphite/internal/instrument"
	"github.com/jsjgdh/Graphite/internal/render"
	"github.com/jsjgdh/Graphite/internal/runtimeio"
)

// runOnce compiles and executes a network, returning the output value.
func runOnce(t *testing.T, e *Engine, n *graph.Network, cfg render.Config) cty.Value {
	t.Helper()
	ctx := context.Background()
	e.handleGraphUpdate(ctx, runtimeio.GraphUpdate{Network: n})
	r := compilationResult(t, e.io)
	require.Empty(t, r.ErrMessage)

	e.handleExecution(ctx, runtimeio.ExecutionRequest{ID: 0, Config: cfg})
	exec := executionResult(t, e.io)
	require.Empty(t, exec.ErrMessage)
	return exec.Value
}

func TestInstrumented_ObservationallyEquivalent(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	n, _, _ := rasterNetwork(t)
	cfg := testConfig()

	plain, ok := render.AsOutput(runOnce(t, e, n.Copy(), cfg))
	require.True(t, ok)

	instrumented := n.Copy()
	instrument.Attach(instrumented)
	tapped, ok := render.AsOutput(runOnce(t, e, instrumented, cfg))
	require.True(t, ok)

	assert.Equal(t, plain.Kind, tapped.Kind)
	require.NotNil(t, tapped.Raster)
	assert.Equal(t, plain.Raster.Pixels, tapped.Raster.Pixels, "taps must not alter the rendered output")
}

func TestInstrumented_ReadBackAfterExecution(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	n, _, _ := rasterNetwork(t)
	cfg := testConfig()

	ins := instrument.Attach(n)
	runOnce(t, e, n, cfg)

	// The artwork node's first input carried the raster buffer.
	values := ins.ReadAll(e, "artwork", 0)
	require.Len(t, values, 1)
	_, isRaster := render.AsRaster(values[0])
	assert.True(t, isRaster)

	// The second input carried the static clip flag.
	flags := ins.ReadAll(e, "artwork", 1)
	require.Len(t, flags, 1)
	assert.Equal(t, cty.False, flags[0])

	// The raster node's width parameter is observable too.
	widths := ins.ReadAll(e, "raster", 0)
	require.Len(t, widths, 1)
	assert.Equal(t, cty.NumberIntVal(8), widths[0])
}

func TestInstrumented_RecordsCarryRenderContext(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	n, _, out := rasterNetwork(t)
	cfg := testConfig()

	ins := instrument.Attach(n)
	runOnce(t, e, n, cfg)

	taps, ok := ins.TapsAt(graph.PathOf(out))
	require.True(t, ok)
	require.Len(t, taps, 2)

	rec, ok := e.Introspect(taps[0])
	require.True(t, ok)
	assert.Equal(t, instrument.RecordWithContext, rec.Kind)
	require.NotNil(t, rec.Context)
	assert.Equal(t, cfg.Viewport, rec.Context.Viewport)
}

func TestInstrumented_RecordsClearedOnGraphUpdate(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	n, _, _ := rasterNetwork(t)
	cfg := testConfig()

	ins := instrument.Attach(n)
	runOnce(t, e, n, cfg)
	require.Len(t, ins.ReadAll(e, "raster", 0), 1)

	// Pushing a fresh uninstrumented graph invalidates the recordings.
	plain, _, _ := rasterNetwork(t)
	e.handleGraphUpdate(context.Background(), runtimeio.GraphUpdate{Network: plain})
	e.io.ReceiveAll()
	assert.Empty(t, ins.ReadAll(e, "raster", 0))
}
