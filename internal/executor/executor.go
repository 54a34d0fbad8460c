// Package executor is the control plane between the editing flow and the
// execution engine. It decides when the compiled graph must be refreshed,
// dispatches evaluation requests with monotonically increasing ids, tracks
// them in a pending ledger, and routes each result back to its
// purpose-specific handler, discarding results superseded by newer ones.
package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jsjgdh/Graphite/internal/ctxlog"
	"github.com/jsjgdh/Graphite/internal/export"
	"github.com/jsjgdh/Graphite/internal/graph"
	"github.com/jsjgdh/Graphite/internal/instrument"
	"github.com/jsjgdh/Graphite/internal/registry"
	"github.com/jsjgdh/Graphite/internal/render"
	"github.com/jsjgdh/Graphite/internal/runtimeio"
)

// Executor drives the engine through the runtimeio channel pair. It is
// confined to the editing control flow: all methods must be called from a
// single goroutine, which makes the compiled-program cache check and its
// adoption atomic with respect to each other.
type Executor struct {
	io          *runtimeio.IO
	caps        export.Capabilities
	currentID   uint64
	pending     ledger
	graphHash   uint64
	hashValid   bool
	prevInspect graph.NodeID
	lastSurface *render.SurfaceFrame
	lastApplied uint64
	hasApplied  bool
}

// New creates an executor bound to the controller side of the channel pair.
func New(io *runtimeio.IO, caps export.Capabilities) *Executor {
	return &Executor{io: io, caps: caps}
}

// Pending reports the number of outstanding execution ids.
func (x *Executor) Pending() int {
	return x.pending.len()
}

// UpdateFonts forwards a font-data delta over the side channel. It carries
// no execution id and is never matched against the ledger.
func (x *Executor) UpdateFonts(delta map[string][]byte) error {
	return x.io.Send(runtimeio.FontUpdate{Delta: delta})
}

// UpdatePreferences forwards an editor-preference update over the side
// channel.
func (x *Executor) UpdatePreferences(prefs registry.Preferences) error {
	return x.io.Send(runtimeio.PreferencesUpdate{Prefs: prefs})
}

// needsUpdate reports whether the engine's compiled graph is stale against
// the current document state.
func (x *Executor) needsUpdate(fingerprint uint64, inspect graph.NodeID, force bool) bool {
	return !x.hashValid || fingerprint != x.graphHash || inspect != x.prevInspect || force
}

// updateGraph refreshes the engine's compiled graph if necessary. On a
// refresh the new fingerprint and inspect target are adopted immediately,
// so a repeated check within the same cycle sees the graph as current.
func (x *Executor) updateGraph(doc Document, inspect graph.NodeID, force bool) error {
	fingerprint := doc.Fingerprint()
	if !x.needsUpdate(fingerprint, inspect, force) {
		return nil
	}
	x.graphHash = fingerprint
	x.hashValid = true
	x.prevInspect = inspect
	return x.io.Send(runtimeio.GraphUpdate{Network: doc.Snapshot(), Inspect: inspect})
}

// queueExecution dispatches one evaluation of whatever graph the engine
// currently holds and returns its execution id. Ids strictly increase and
// are never reused.
func (x *Executor) queueExecution(cfg render.Config, kind export.FileKind) (uint64, error) {
	id := x.currentID
	x.currentID++
	err := x.io.Send(runtimeio.ExecutionRequest{ID: id, Config: cfg, ExportKind: kind})
	if err != nil {
		return 0, fmt.Errorf("failed to send execution request: %w", err)
	}
	return id, nil
}

func (x *Executor) record(id uint64, ec ExecutionContext) {
	x.pending.push(id, ec)
	if x.pending.len() >= ledgerWatermark {
		slog.Warn("Pending-request ledger is growing; the engine may have stalled.", "pending", x.pending.len())
	}
}

// EvalOptions parameterizes a normal render evaluation.
type EvalOptions struct {
	// ViewportTransform maps document space to viewport space.
	ViewportTransform render.Transform
	Width             int
	Height            int
	Scale             float64
	PointerX          float64
	PointerY          float64
	Time              render.Timing
	// Inspect designates a node whose intermediate value should be
	// surfaced after execution; zero means none.
	Inspect graph.NodeID
	// Force refreshes the engine graph even if the fingerprint matches.
	Force bool
}

// SubmitEvaluation refreshes the engine graph if needed and dispatches a
// normal render evaluation. It returns the execution id.
func (x *Executor) SubmitEvaluation(doc Document, documentID uint64, opts EvalOptions) (uint64, error) {
	if err := x.updateGraph(doc, opts.Inspect, opts.Force); err != nil {
		return 0, err
	}
	return x.SubmitCurrentEvaluation(documentID, opts)
}

// SubmitCurrentEvaluation dispatches a normal render evaluation of whatever
// graph the engine currently holds, without refreshing it. Instrumented
// runs use this so their rewritten graph is not clobbered by a fresh
// snapshot.
func (x *Executor) SubmitCurrentEvaluation(documentID uint64, opts EvalOptions) (uint64, error) {
	cfg := render.Config{
		Viewport: render.Footprint{
			Transform: opts.ViewportTransform,
			Width:     opts.Width,
			Height:    opts.Height,
		},
		Scale:    opts.Scale,
		PointerX: opts.PointerX,
		PointerY: opts.PointerY,
		Time:     opts.Time,
	}
	id, err := x.queueExecution(cfg, export.FileNone)
	if err != nil {
		return 0, err
	}
	x.record(id, ExecutionContext{Purpose: PurposeRender, Config: cfg, DocumentID: documentID})
	return id, nil
}

// PreviewOptions parameterizes a color-pick preview evaluation.
type PreviewOptions struct {
	Transform render.Transform
	Width     int
	Height    int
	PointerX  float64
	PointerY  float64
	Time      render.Timing
}

// SubmitPreview dispatches a best-effort preview evaluation of the
// currently cached graph, without refreshing it.
func (x *Executor) SubmitPreview(documentID uint64, opts PreviewOptions) (uint64, error) {
	cfg := render.Config{
		Viewport: render.Footprint{
			Transform: opts.Transform,
			Width:     opts.Width,
			Height:    opts.Height,
		},
		Scale:      1,
		PointerX:   opts.PointerX,
		PointerY:   opts.PointerY,
		Time:       opts.Time,
		ForPreview: true,
	}
	id, err := x.queueExecution(cfg, export.FileNone)
	if err != nil {
		return 0, err
	}
	x.record(id, ExecutionContext{Purpose: PurposePreview, Config: cfg, DocumentID: documentID})
	return id, nil
}

// SubmitExport refreshes the engine graph unconditionally and dispatches an
// export evaluation of the document region given by bounds.
func (x *Executor) SubmitExport(doc Document, documentID uint64, cfg export.Config, bounds render.Rect) (uint64, error) {
	if cfg.Kind == export.FileNone {
		return 0, fmt.Errorf("export requires a file kind")
	}
	if bounds.W <= 0 || bounds.H <= 0 {
		return 0, fmt.Errorf("no bounding box")
	}

	x.graphHash = doc.Fingerprint()
	x.hashValid = true
	x.prevInspect = 0
	if err := x.io.Send(runtimeio.GraphUpdate{Network: doc.Snapshot()}); err != nil {
		return 0, err
	}

	cfg.Width = bounds.W
	cfg.Height = bounds.H
	if cfg.ScaleFactor == 0 {
		cfg.ScaleFactor = 1
	}
	renderCfg := render.Config{
		Viewport: render.Footprint{
			Transform: render.Translate(-bounds.X, -bounds.Y),
			Width:     int(bounds.W + 0.5),
			Height:    int(bounds.H + 0.5),
		},
		Scale:         cfg.ScaleFactor,
		HideArtboards: cfg.Transparent,
		ForExport:     true,
	}
	id, err := x.queueExecution(renderCfg, cfg.Kind)
	if err != nil {
		return 0, err
	}
	x.record(id, ExecutionContext{Purpose: PurposeExport, Config: renderCfg, Export: &cfg, DocumentID: documentID})
	return id, nil
}

// SubmitInstrumented rewrites a snapshot of the document graph with
// recording taps and pushes it to the engine, invalidating the fingerprint
// cache so the next normal submission refreshes the graph again. The
// returned map answers read-back queries once an execution has completed.
func (x *Executor) SubmitInstrumented(ctx context.Context, doc Document) (*instrument.Instrumented, error) {
	logger := ctxlog.FromContext(ctx)

	x.hashValid = false
	x.prevInspect = 0
	network := doc.Snapshot()
	ins := instrument.Attach(network)
	logger.Debug("Instrumented document graph.", "nodes", len(network.Nodes))

	if err := x.io.Send(runtimeio.GraphUpdate{Network: network}); err != nil {
		return nil, err
	}
	return ins, nil
}
