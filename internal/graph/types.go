package graph

import "github.com/zclconf/go-cty/cty"

// TypesDelta carries the per-node resolved output types that changed since
// the previous compile. A compile that resolves nothing new emits an empty
// delta; a failed compile emits whatever it managed to resolve.
type TypesDelta map[NodeID]cty.Type

// Error is a graph-level compilation diagnostic attached to a node.
type Error struct {
	Node    NodeID
	Message string
}

func (e Error) String() string {
	return "node " + e.Node.String() + ": " + e.Message
}
