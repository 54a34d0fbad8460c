// Package instrument rewrites a document network so the value flowing into
// every input of every node can be read back after execution. The rewrite
// is purely additive: each input is redirected through a pass-through
// recording tap, so the instrumented graph is observationally equivalent to
// the original.
package instrument

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/jsjgdh/Graphite/internal/graph"
)

// TapKind is the node kind of a recording tap. The execution engine
// evaluates it as an identity function that also records its forwarded
// value under the tap's structural path.
const TapKind = "monitor"

// Instrumented is the map built while attaching taps: per underlying node
// kind, the tap paths of every occurrence of that kind across the whole
// graph; and per structural node path, the tap paths of that node's
// inputs, in input-declaration order.
type Instrumented struct {
	byKind map[string][][]graph.Path
	byPath map[string][]graph.Path
}

// Attach splices a recording tap after every input of every node,
// recursively including nested networks, mutating the given network in
// place. Callers instrument a snapshot, never the live document.
func Attach(network *graph.Network) *Instrumented {
	ins := &Instrumented{
		byKind: make(map[string][][]graph.Path),
		byPath: make(map[string][]graph.Path),
	}
	ins.add(network, graph.Path{})
	return ins
}

func (ins *Instrumented) add(network *graph.Network, path graph.Path) {
	type pendingTap struct {
		original graph.Input
		id       graph.NodeID
	}
	var taps []pendingTap

	// Walk a snapshot of the arena keys so the taps inserted below are not
	// themselves instrumented.
	for _, id := range network.SortedIDs() {
		node := network.Nodes[id]
		if node.Nested != nil {
			ins.add(node.Nested, path.Child(id))
		}

		tapPaths := make([]graph.Path, 0, len(node.Inputs))
		for i := range node.Inputs {
			tapID := graph.NewNodeID()
			original := node.Inputs[i]
			node.Inputs[i] = graph.FromNode(tapID, 0)
			taps = append(taps, pendingTap{original: original, id: tapID})
			tapPaths = append(tapPaths, path.Child(tapID))
		}

		if node.Kind != "" {
			ins.byKind[node.Kind] = append(ins.byKind[node.Kind], tapPaths)
			ins.byPath[path.Child(id).String()] = tapPaths
		}
	}

	for _, t := range taps {
		network.Nodes[t.id] = &graph.Node{
			Name:   "tap",
			Kind:   TapKind,
			Inputs: []graph.Input{t.original},
		}
	}
}

// Occurrences returns how many nodes of the given kind were instrumented.
func (ins *Instrumented) Occurrences(kind string) int {
	return len(ins.byKind[kind])
}

// TapsAt returns the tap paths attached to the inputs of the node at the
// given structural path.
func (ins *Instrumented) TapsAt(path graph.Path) ([]graph.Path, bool) {
	taps, ok := ins.byPath[path.String()]
	return taps, ok
}

// Introspector answers tap read-back queries after an execution. The
// execution engine implements it.
type Introspector interface {
	Introspect(path graph.Path) (Recorded, bool)
}

// ReadAll returns one recorded value per occurrence of the kind across the
// graph, for the given input index. Occurrences whose recorded value is not
// retrievable are skipped rather than failing the whole query.
func (ins *Instrumented) ReadAll(rt Introspector, kind string, inputIndex int) []cty.Value {
	var out []cty.Value
	for _, tapPaths := range ins.byKind[kind] {
		if inputIndex >= len(tapPaths) {
			continue
		}
		rec, ok := rt.Introspect(tapPaths[inputIndex])
		if !ok {
			continue
		}
		if v, ok := rec.Retrieve(); ok {
			out = append(out, v)
		}
	}
	return out
}

// ReadAt returns the recorded value for one input of the node at the given
// structural path, if it was recorded and is retrievable.
func (ins *Instrumented) ReadAt(rt Introspector, path graph.Path, inputIndex int) (cty.Value, bool) {
	tapPaths, ok := ins.byPath[path.String()]
	if !ok || inputIndex >= len(tapPaths) {
		return cty.NilVal, false
	}
	rec, ok := rt.Introspect(tapPaths[inputIndex])
	if !ok {
		return cty.NilVal, false
	}
	return rec.Retrieve()
}
