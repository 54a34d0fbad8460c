// Package document holds the controller-side state of an edited document:
// the node network, its content fingerprint, and the indices derived from
// compilation and render results.
package document

import (
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/jsjgdh/Graphite/internal/graph"
	"github.com/jsjgdh/Graphite/internal/render"
)

// Document is an edited node network together with the resolved-type and
// spatial indices the editing tools read between evaluations.
type Document struct {
	network *graph.Network
	names   map[string]graph.NodeID

	types        map[graph.NodeID]cty.Type
	errs         []graph.Error
	clickTargets map[graph.NodeID]render.Rect
	clipTargets  []graph.NodeID
}

// New wraps an existing network. The names index is rebuilt from the node
// names present in the network.
func New(network *graph.Network) *Document {
	d := &Document{
		network:      network,
		names:        make(map[string]graph.NodeID),
		types:        make(map[graph.NodeID]cty.Type),
		clickTargets: make(map[graph.NodeID]render.Rect),
	}
	for id, node := range network.Nodes {
		if node.Name != "" {
			d.names[node.Name] = id
		}
	}
	return d
}

// Network returns the live network for editing. Mutations invalidate
// nothing here; staleness is detected through the fingerprint.
func (d *Document) Network() *graph.Network {
	return d.network
}

// Lookup resolves a node name to its identity.
func (d *Document) Lookup(name string) (graph.NodeID, bool) {
	id, ok := d.names[name]
	return id, ok
}

// Fingerprint is the order-independent content hash of the current graph.
func (d *Document) Fingerprint() uint64 {
	return d.network.Fingerprint()
}

// Snapshot returns an isolated deep copy of the graph.
func (d *Document) Snapshot() *graph.Network {
	return d.network.Copy()
}

// UpdateTypes applies a type-resolution delta and replaces the graph error
// list.
func (d *Document) UpdateTypes(delta graph.TypesDelta, errs []graph.Error) {
	for id, ty := range delta {
		d.types[id] = ty
	}
	d.errs = errs
}

// ResolvedType returns the last resolved output type of a node.
func (d *Document) ResolvedType(id graph.NodeID) (cty.Type, bool) {
	ty, ok := d.types[id]
	return ty, ok
}

// Errors returns the graph diagnostics from the last compile.
func (d *Document) Errors() []graph.Error {
	return d.errs
}

// UpdateClickTargets replaces the click-target index.
func (d *Document) UpdateClickTargets(targets map[graph.NodeID]render.Rect) {
	d.clickTargets = targets
}

// ClickTarget returns the last known bounding rect of a node.
func (d *Document) ClickTarget(id graph.NodeID) (render.Rect, bool) {
	r, ok := d.clickTargets[id]
	return r, ok
}

// UpdateClipTargets replaces the clip-target index.
func (d *Document) UpdateClipTargets(targets []graph.NodeID) {
	d.clipTargets = targets
}

// ClipTargets returns the nodes flagged as clip boundaries, sorted for
// deterministic iteration.
func (d *Document) ClipTargets() []graph.NodeID {
	out := make([]graph.NodeID, len(d.clipTargets))
	copy(out, d.clipTargets)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
