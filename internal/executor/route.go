package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/jsjgdh/Graphite/internal/ctxlog"
	"github.com/jsjgdh/Graphite/internal/export"
	"github.com/jsjgdh/Graphite/internal/graph"
	"github.com/jsjgdh/Graphite/internal/render"
	"github.com/jsjgdh/Graphite/internal/runtimeio"
)

// asciiMismatchMessage is the user-facing error for an ASCII export of a
// graph that produced no raster.
const asciiMismatchMessage = "ASCII export requires raster output. Please ensure your document contains raster content or use PNG/JPG export."

// Poll drains every update that is ready and routes each one. Evaluation
// failures are collected and surfaced as error messages; they never abort
// the processing of the remaining drained results.
func (x *Executor) Poll(ctx context.Context, doc Document, pres Presenter, sink ExportSink) error {
	var errs []error
	for _, update := range x.io.ReceiveAll() {
		switch u := update.(type) {
		case runtimeio.CompilationResult:
			if err := x.routeCompilation(ctx, u, doc); err != nil {
				errs = append(errs, err)
			}
		case runtimeio.ExecutionResult:
			if err := x.routeExecution(ctx, u, doc, pres, sink); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// routeCompilation applies a type-resolution delta. A failed compile still
// ships its partial delta so the UI can show whatever resolved, and clears
// the spatial indices while the graph is un-renderable.
func (x *Executor) routeCompilation(ctx context.Context, u runtimeio.CompilationResult, doc Document) error {
	doc.UpdateTypes(u.Delta, u.Errors)
	if u.ErrMessage == "" {
		return nil
	}
	ctxlog.FromContext(ctx).Debug("Graph compilation failed.", "error", u.ErrMessage)
	doc.UpdateClickTargets(map[graph.NodeID]render.Rect{})
	doc.UpdateClipTargets(nil)
	return fmt.Errorf("node graph evaluation failed:\n%s", u.ErrMessage)
}

func (x *Executor) routeExecution(ctx context.Context, u runtimeio.ExecutionResult, doc Document, pres Presenter, sink ExportSink) error {
	logger := ctxlog.FromContext(ctx)

	// Staleness discard: once a newer id has been applied, results for
	// older ids are dropped unopened. Their ledger entries were retired
	// when the newer result was matched.
	if x.hasApplied && u.ID <= x.lastApplied {
		logger.Debug("Discarding superseded execution result.", "executionID", u.ID, "lastApplied", x.lastApplied)
		return nil
	}

	if retired := x.pending.retireUpTo(u.ID); retired > 0 {
		logger.Debug("Retired stale ledger entries.", "count", retired, "executionID", u.ID)
	}
	ec := x.pending.popMatching(u.ID)
	x.lastApplied = u.ID
	x.hasApplied = true

	if u.ErrMessage != "" {
		// The spatial indices derived from the previous successful output
		// are stale against a broken graph and must not be queried.
		doc.UpdateClickTargets(map[graph.NodeID]render.Rect{})
		doc.UpdateClipTargets(nil)
		return fmt.Errorf("node graph evaluation failed:\n%s", u.ErrMessage)
	}

	pres.ApplyGeometry(u.Updates)

	var err error
	switch ec.Purpose {
	case PurposeExport:
		err = x.processExport(u.Value, *ec.Export, sink)
	case PurposePreview:
		x.processPreview(u.Value, pres)
	default:
		err = x.processRender(u.Value, doc, pres)
	}

	if x.prevInspect != 0 && u.Inspected != nil {
		pres.ApplyInspect(u.Inspected.Node, u.Inspected.Value)
	} else {
		pres.ClearInspect()
	}
	return err
}

// processRender hands the typed output to the presentation path and
// propagates the recomputed spatial indices.
func (x *Executor) processRender(value cty.Value, doc Document, pres Presenter) error {
	out, ok := render.AsOutput(value)
	if !ok {
		return fmt.Errorf("invalid node graph output type: %s", describeValue(value))
	}

	switch out.Kind {
	case render.OutputSVG:
		pres.ApplyArtwork(out.SVG)
		x.lastSurface = nil
	case render.OutputSurface:
		frame := out.Surface
		if frame == nil {
			return fmt.Errorf("invalid node graph output type: surface output without a frame")
		}
		// Re-applying an unchanged live surface would flicker the canvas.
		if x.lastSurface == nil || *x.lastSurface != *frame {
			pres.ApplyArtwork(surfacePlaceholder(frame))
			surface := *frame
			x.lastSurface = &surface
		}
	case render.OutputRaster:
		// Raster output is presented by the live texture path, not through
		// artwork markup.
	default:
		return fmt.Errorf("invalid node graph output type: %s", out.Kind)
	}

	doc.UpdateClickTargets(out.Metadata.ClickTargets)
	doc.UpdateClipTargets(out.Metadata.ClipTargets)
	pres.ApplyUpstreamTransforms(out.Metadata.UpstreamFootprints, out.Metadata.LocalTransforms)
	return nil
}

// processPreview extracts a pixel sample for the color-pick preview.
// Preview is best-effort: output kinds incompatible with sampling are
// ignored without error.
func (x *Executor) processPreview(value cty.Value, pres Presenter) {
	out, ok := render.AsOutput(value)
	if !ok || out.Kind != render.OutputRaster || out.Raster == nil {
		return
	}
	pres.ApplyPreview(out.Raster)
}

// processExport encodes the output into the requested file container. No
// partial file is ever written: encoding happens before the sink is
// touched.
func (x *Executor) processExport(value cty.Value, cfg export.Config, sink ExportSink) error {
	out, ok := render.AsOutput(value)
	if !ok {
		return fmt.Errorf("incorrect render type for exporting to %s (%s)", cfg.Kind, describeValue(value))
	}
	name := cfg.FileName()

	switch out.Kind {
	case render.OutputSVG:
		switch cfg.Kind {
		case export.FileSVG:
			return sink.WriteFile(name, []byte(out.SVG))
		case export.FileASCII:
			return errors.New(asciiMismatchMessage)
		default:
			// Raster containers from vector markup are rasterized by the
			// frontend download path.
			return sink.TriggerDownload(name, cfg.Kind.MIME(), []byte(out.SVG))
		}

	case render.OutputRaster:
		if out.Raster == nil {
			return fmt.Errorf("incorrect render type for exporting to %s (empty raster)", cfg.Kind)
		}
		switch cfg.Kind {
		case export.FileSVG:
			return errors.New("SVG cannot be exported from an image buffer")
		case export.FileASCII:
			svg, _, _ := export.AsciiArtSVG(out.Raster)
			return sink.WriteFile(name, []byte(svg))
		default:
			if !x.caps.SupportsRasterEncode {
				return fmt.Errorf("raster export to %s is not supported by this engine build", cfg.Kind)
			}
			encoded, err := export.EncodeRaster(out.Raster, cfg.Kind, cfg.Transparent)
			if err != nil {
				return err
			}
			return sink.WriteFile(name, encoded)
		}
	}

	return fmt.Errorf("incorrect render type for exporting to %s (%s output)", cfg.Kind, out.Kind)
}

// surfacePlaceholder renders the markup that reserves space for a live
// canvas surface managed outside the artwork markup.
func surfacePlaceholder(frame *render.SurfaceFrame) string {
	transform := ""
	if matrix := frame.Transform.CSSMatrix(); matrix != "" {
		transform = fmt.Sprintf(" transform=%q", matrix)
	}
	return fmt.Sprintf(
		`<svg><foreignObject width="%d" height="%d"%s><div data-canvas-placeholder="%d" data-is-viewport="true"></div></foreignObject></svg>`,
		frame.Width, frame.Height, transform, frame.SurfaceID,
	)
}

func describeValue(v cty.Value) string {
	if v == cty.NilVal {
		return "no value"
	}
	return v.Type().FriendlyName()
}
