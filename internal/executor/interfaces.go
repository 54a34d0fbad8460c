package executor

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/jsjgdh/Graphite/internal/graph"
	"github.com/jsjgdh/Graphite/internal/render"
	"github.com/jsjgdh/Graphite/internal/runtimeio"
)

// Document is the controller-side view of the edited document: the graph
// snapshot source and the owner of the spatial indices derived from the
// last successful render.
type Document interface {
	// Fingerprint is the order-independent content hash of the current
	// document graph.
	Fingerprint() uint64
	// Snapshot returns an isolated deep copy of the document graph.
	Snapshot() *graph.Network
	// UpdateTypes applies a type-resolution delta and the current graph
	// error list to the node-graph UI.
	UpdateTypes(delta graph.TypesDelta, errs []graph.Error)
	// UpdateClickTargets replaces the click-target index. An empty map
	// clears it while the graph is in an un-renderable state.
	UpdateClickTargets(targets map[graph.NodeID]render.Rect)
	// UpdateClipTargets replaces the clip-target index.
	UpdateClipTargets(targets []graph.NodeID)
}

// Presenter is the presentation path receiving render results.
type Presenter interface {
	// ApplyArtwork replaces the displayed document artwork markup.
	ApplyArtwork(svg string)
	// ApplyUpstreamTransforms propagates recomputed footprints and local
	// transforms to the document metadata.
	ApplyUpstreamTransforms(footprints map[graph.NodeID]render.Footprint, transforms map[graph.NodeID]render.Transform)
	// ApplyGeometry propagates auxiliary bounding-geometry updates.
	ApplyGeometry(updates []runtimeio.DocUpdate)
	// ApplyPreview hands a raster sample to the color-pick preview.
	ApplyPreview(raster *render.Raster)
	// ApplyInspect updates the data panel with an inspected value.
	ApplyInspect(node graph.NodeID, value cty.Value)
	// ClearInspect empties the data panel.
	ClearInspect()
}

// ExportSink receives finished export artifacts.
type ExportSink interface {
	WriteFile(name string, data []byte) error
	TriggerDownload(name, mime string, data []byte) error
}
