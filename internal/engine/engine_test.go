package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/jsjgdh/Graphite/internal/graph"
	"github.com/jsjgdh/Graphite/internal/registry"
	"github.com/jsjgdh/Graphite/internal/render"
	"github.com/jsjgdh/Graphite/internal/runtimeio"
	"github.com/jsjgdh/Graphite/modules/artwork"
	"github.com/jsjgdh/Graphite/modules/raster"
	"github.com/jsjgdh/Graphite/modules/text"
	"github.com/jsjgdh/Graphite/modules/transform"
	"github.com/jsjgdh/Graphite/modules/value"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *runtimeio.IO) {
	t.Helper()
	reg := registry.New()
	for _, m := range []registry.Module{
		&value.Module{},
		&raster.Module{},
		&transform.Module{},
		&text.Module{},
		&artwork.Module{},
	} {
		m.Register(reg)
	}
	io := runtimeio.New()
	return New(io, reg, opts...), io
}

// rasterNetwork builds raster(8x8 red) -> artwork.
func rasterNetwork(t *testing.T) (*graph.Network, graph.NodeID, graph.NodeID) {
	t.Helper()
	n := graph.NewNetwork()
	source := n.Add(&graph.Node{
		Name: "fill",
		Kind: "raster",
		Inputs: []graph.Input{
			graph.FromValue(cty.NumberIntVal(8)),
			graph.FromValue(cty.NumberIntVal(8)),
			graph.FromValue(cty.StringVal("#ff0000")),
			graph.FromValue(cty.False),
		},
	})
	out := n.Add(&graph.Node{
		Name:   "present",
		Kind:   "artwork",
		Inputs: []graph.Input{graph.FromNode(source, 0), graph.FromValue(cty.False)},
	})
	n.Output = out
	return n, source, out
}

func testConfig() render.Config {
	return render.Config{
		Viewport: render.Footprint{Width: 64, Height: 64},
		Scale:    1,
	}
}

func compilationResult(t *testing.T, io *runtimeio.IO) runtimeio.CompilationResult {
	t.Helper()
	updates := io.ReceiveAll()
	require.Len(t, updates, 1)
	r, ok := updates[0].(runtimeio.CompilationResult)
	require.True(t, ok)
	return r
}

func executionResult(t *testing.T, io *runtimeio.IO) runtimeio.ExecutionResult {
	t.Helper()
	updates := io.ReceiveAll()
	require.Len(t, updates, 1)
	r, ok := updates[0].(runtimeio.ExecutionResult)
	require.True(t, ok)
	return r
}

func TestEngine_CompileResolvesTypes(t *testing.T) {
	t.Parallel()

	e, io := newTestEngine(t)
	n, source, out := rasterNetwork(t)

	e.handleGraphUpdate(context.Background(), runtimeio.GraphUpdate{Network: n})
	r := compilationResult(t, io)

	require.Empty(t, r.ErrMessage)
	require.Empty(t, r.Errors)
	assert.True(t, r.Delta[source].Equals(render.RasterType))
	assert.True(t, r.Delta[out].Equals(render.OutputType))
}

func TestEngine_CompileDeltaOnlyCarriesChanges(t *testing.T) {
	t.Parallel()

	e, io := newTestEngine(t)
	n, _, _ := rasterNetwork(t)

	e.handleGraphUpdate(context.Background(), runtimeio.GraphUpdate{Network: n})
	first := compilationResult(t, io)
	require.NotEmpty(t, first.Delta)

	// Recompiling the identical graph resolves the same types: empty delta.
	e.handleGraphUpdate(context.Background(), runtimeio.GraphUpdate{Network: n.Copy()})
	second := compilationResult(t, io)
	assert.Empty(t, second.Delta)
}

func TestEngine_ExecuteRasterGraph(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, io := newTestEngine(t)
	n, source, out := rasterNetwork(t)

	e.handleGraphUpdate(ctx, runtimeio.GraphUpdate{Network: n})
	io.ReceiveAll()

	e.handleExecution(ctx, runtimeio.ExecutionRequest{ID: 0, Config: testConfig()})
	r := executionResult(t, io)

	require.Empty(t, r.ErrMessage)
	result, ok := render.AsOutput(r.Value)
	require.True(t, ok)
	require.Equal(t, render.OutputRaster, result.Kind)
	require.NotNil(t, result.Raster)
	assert.Equal(t, 8, result.Raster.Width)

	red, g, b, a := result.Raster.At(3, 3)
	assert.Equal(t, [4]uint8{0xff, 0, 0, 0xff}, [4]uint8{red, g, b, a})

	// The output node's bounds follow the raster size, and the geometry
	// update mirrors the click target.
	assert.Equal(t, render.Rect{W: 8, H: 8}, result.Metadata.ClickTargets[out])
	require.Len(t, r.Updates, 1)
	assert.Equal(t, out, r.Updates[0].Node)
	assert.Contains(t, result.Metadata.UpstreamFootprints, source)
}

func TestEngine_ExecuteSVGGraph(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, io := newTestEngine(t)

	n := graph.NewNetwork()
	markup := n.Add(&graph.Node{
		Name:   "shape",
		Kind:   "value",
		Inputs: []graph.Input{graph.FromValue(cty.StringVal(`<rect width="4" height="4"/>`))},
	})
	n.Output = n.Add(&graph.Node{
		Name:   "present",
		Kind:   "artwork",
		Inputs: []graph.Input{graph.FromNode(markup, 0), graph.FromValue(cty.False)},
	})

	e.handleGraphUpdate(ctx, runtimeio.GraphUpdate{Network: n})
	io.ReceiveAll()
	e.handleExecution(ctx, runtimeio.ExecutionRequest{ID: 0, Config: testConfig()})
	r := executionResult(t, io)

	require.Empty(t, r.ErrMessage)
	result, ok := render.AsOutput(r.Value)
	require.True(t, ok)
	require.Equal(t, render.OutputSVG, result.Kind)
	assert.Contains(t, result.SVG, `<rect width="4" height="4"/>`)
	assert.Contains(t, result.SVG, `width="64"`)
}

func TestEngine_TransformAppliesToMetadata(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, io := newTestEngine(t)

	n, source, _ := rasterNetwork(t)
	moved := n.Add(&graph.Node{
		Name: "move",
		Kind: "transform",
		Inputs: []graph.Input{
			graph.FromNode(source, 0),
			graph.FromValue(cty.ListVal([]cty.Value{
				cty.NumberIntVal(1), cty.NumberIntVal(0),
				cty.NumberIntVal(0), cty.NumberIntVal(1),
				cty.NumberIntVal(10), cty.NumberIntVal(20),
			})),
		},
	})
	n.Nodes[n.Output].Inputs[0] = graph.FromNode(moved, 0)

	e.handleGraphUpdate(ctx, runtimeio.GraphUpdate{Network: n})
	io.ReceiveAll()
	e.handleExecution(ctx, runtimeio.ExecutionRequest{ID: 0, Config: testConfig()})
	r := executionResult(t, io)

	require.Empty(t, r.ErrMessage)
	result, _ := render.AsOutput(r.Value)
	local, ok := result.Metadata.LocalTransforms[moved]
	require.True(t, ok)
	assert.Equal(t, render.Translate(10, 20), local)
}

func TestEngine_ClipTargetCollected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, io := newTestEngine(t)

	n, _, out := rasterNetwork(t)
	n.Nodes[out].Inputs[1] = graph.FromValue(cty.True)

	e.handleGraphUpdate(ctx, runtimeio.GraphUpdate{Network: n})
	io.ReceiveAll()
	e.handleExecution(ctx, runtimeio.ExecutionRequest{ID: 0, Config: testConfig()})
	r := executionResult(t, io)

	require.Empty(t, r.ErrMessage)
	result, _ := render.AsOutput(r.Value)
	assert.Equal(t, []graph.NodeID{out}, result.Metadata.ClipTargets)
}

func TestEngine_UnknownKindFailsCompile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, io := newTestEngine(t)

	n := graph.NewNetwork()
	n.Output = n.Add(&graph.Node{Name: "bad", Kind: "no-such-kind"})

	e.handleGraphUpdate(ctx, runtimeio.GraphUpdate{Network: n})
	r := compilationResult(t, io)
	require.NotEmpty(t, r.ErrMessage)
	assert.Contains(t, r.ErrMessage, "unknown node kind")

	// The broken graph replaced any previous program.
	e.handleExecution(ctx, runtimeio.ExecutionRequest{ID: 0, Config: testConfig()})
	exec := executionResult(t, io)
	assert.Contains(t, exec.ErrMessage, "no runnable program")
}

func TestEngine_CycleFailsCompile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, io := newTestEngine(t)

	n := graph.NewNetwork()
	a := n.Add(&graph.Node{Name: "a", Kind: "value"})
	b := n.Add(&graph.Node{Name: "b", Kind: "value"})
	n.Nodes[a].Inputs = []graph.Input{graph.FromNode(b, 0)}
	n.Nodes[b].Inputs = []graph.Input{graph.FromNode(a, 0)}
	n.Output = a

	e.handleGraphUpdate(ctx, runtimeio.GraphUpdate{Network: n})
	r := compilationResult(t, io)
	require.NotEmpty(t, r.ErrMessage)
	assert.Contains(t, r.ErrMessage, "cycle")
}

func TestEngine_TypeMismatchFailsCompile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, io := newTestEngine(t)

	// A bool flowing into raster's numeric width has no conversion.
	n := graph.NewNetwork()
	flag := n.Add(&graph.Node{
		Name:   "flag",
		Kind:   "value",
		Inputs: []graph.Input{graph.FromValue(cty.True)},
	})
	n.Output = n.Add(&graph.Node{
		Name: "fill",
		Kind: "raster",
		Inputs: []graph.Input{
			graph.FromNode(flag, 0),
			graph.FromValue(cty.NumberIntVal(8)),
			graph.FromValue(cty.StringVal("#ffffff")),
			graph.FromValue(cty.False),
		},
	})

	e.handleGraphUpdate(ctx, runtimeio.GraphUpdate{Network: n})
	r := compilationResult(t, io)
	require.NotEmpty(t, r.ErrMessage)
	assert.Contains(t, r.ErrMessage, `input "width"`)

	// The partial delta still carries what did resolve.
	assert.True(t, r.Delta[flag].Equals(cty.Bool))
}

func TestEngine_InspectedValueReturned(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, io := newTestEngine(t)
	n, source, _ := rasterNetwork(t)

	e.handleGraphUpdate(ctx, runtimeio.GraphUpdate{Network: n, Inspect: source})
	io.ReceiveAll()
	e.handleExecution(ctx, runtimeio.ExecutionRequest{ID: 0, Config: testConfig()})
	r := executionResult(t, io)

	require.Empty(t, r.ErrMessage)
	require.NotNil(t, r.Inspected)
	assert.Equal(t, source, r.Inspected.Node)
	_, ok := render.AsRaster(r.Inspected.Value)
	assert.True(t, ok, "the inspected intermediate is the raster flowing out of the source node")
}

func TestEngine_NestedNetworkFlattens(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e, io := newTestEngine(t)

	// The wrapper receives markup through its first port; the inner value
	// node forwards it to the nested output.
	inner := graph.NewNetwork()
	forward := inner.Add(&graph.Node{
		Name:   "forward",
		Kind:   "value",
		Inputs: []graph.Input{graph.FromPort(0)},
	})
	inner.Output = forward

	n := graph.NewNetwork()
	wrapper := n.Add(&graph.Node{
		Name:   "group",
		Nested: inner,
		Inputs: []graph.Input{graph.FromValue(cty.StringVal("<circle/>"))},
	})
	n.Output = n.Add(&graph.Node{
		Name:   "present",
		Kind:   "artwork",
		Inputs: []graph.Input{graph.FromNode(wrapper, 0), graph.FromValue(cty.False)},
	})

	e.handleGraphUpdate(ctx, runtimeio.GraphUpdate{Network: n})
	r := compilationResult(t, io)
	require.Empty(t, r.ErrMessage)

	e.handleExecution(ctx, runtimeio.ExecutionRequest{ID: 0, Config: testConfig()})
	exec := executionResult(t, io)
	require.Empty(t, exec.ErrMessage)
	result, _ := render.AsOutput(exec.Value)
	assert.Contains(t, result.SVG, "<circle/>")
}

func TestEngine_SideChannelUpdatesState(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	e.fonts.Merge(map[string][]byte{"Inter": {1}})
	assert.True(t, e.Fonts().Has("Inter"))

	e.prefs = registry.Preferences{MaxRasterDimension: 16}

	ctx := context.Background()
	n := graph.NewNetwork()
	n.Output = n.Add(&graph.Node{
		Name: "big",
		Kind: "raster",
		Inputs: []graph.Input{
			graph.FromValue(cty.NumberIntVal(4096)),
			graph.FromValue(cty.NumberIntVal(4)),
			graph.FromValue(cty.StringVal("#000000")),
			graph.FromValue(cty.False),
		},
	})

	e.handleGraphUpdate(ctx, runtimeio.GraphUpdate{Network: n})
	e.io.ReceiveAll()
	e.handleExecution(ctx, runtimeio.ExecutionRequest{ID: 0, Config: testConfig()})
	r := executionResult(t, e.io)

	require.Empty(t, r.ErrMessage)
	buf, ok := render.AsRaster(r.Value)
	require.True(t, ok)
	assert.Equal(t, 16, buf.Width, "preference clamp must reach node evaluation")
}

func TestEngine_HookObservesEvents(t *testing.T) {
	t.Parallel()

	var events []Event
	e, io := newTestEngine(t, WithHook(func(ev Event) { events = append(events, ev) }))
	n, _, _ := rasterNetwork(t)

	ctx := context.Background()
	e.handleGraphUpdate(ctx, runtimeio.GraphUpdate{Network: n})
	e.handleExecution(ctx, runtimeio.ExecutionRequest{ID: 9, Config: testConfig()})
	io.ReceiveAll()

	require.Len(t, events, 2)
	assert.Equal(t, "compilation", events[0].Kind)
	assert.True(t, events[0].OK)
	assert.Equal(t, "execution", events[1].Kind)
	assert.Equal(t, uint64(9), events[1].ID)
	assert.True(t, events[1].OK)
}

func TestEngine_RunLoopProcessesRequests(t *testing.T) {
	t.Parallel()

	e, io := newTestEngine(t)
	n, _, _ := rasterNetwork(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	require.NoError(t, io.Send(runtimeio.GraphUpdate{Network: n}))
	require.NoError(t, io.Send(runtimeio.ExecutionRequest{ID: 0, Config: testConfig()}))

	var updates []runtimeio.Update
	require.Eventually(t, func() bool {
		updates = append(updates, io.ReceiveAll()...)
		return len(updates) == 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	<-done

	_, isCompile := updates[0].(runtimeio.CompilationResult)
	assert.True(t, isCompile)
	exec, isExec := updates[1].(runtimeio.ExecutionResult)
	require.True(t, isExec)
	assert.Empty(t, exec.ErrMessage)
}
