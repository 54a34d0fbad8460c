// Package graph defines the document node network: an arena of typed nodes
// keyed by stable identity, the connections between them, and the
// content fingerprint used to detect when the compiled program is stale.
package graph

import (
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// InputKind discriminates the source feeding a node input slot.
type InputKind int

const (
	// InputNode wires the slot to another node's output.
	InputNode InputKind = iota
	// InputValue feeds the slot from an inline parameter value.
	InputValue
	// InputPort feeds the slot from the enclosing wrapper node's input,
	// only meaningful inside a nested network.
	InputPort
)

// Input is one input slot of a node.
type Input struct {
	Kind   InputKind
	Node   NodeID
	Output int
	Value  cty.Value
	Port   int
}

// FromNode returns an input wired to another node's output.
func FromNode(id NodeID, output int) Input {
	return Input{Kind: InputNode, Node: id, Output: output}
}

// FromValue returns an input fed by an inline parameter value.
func FromValue(v cty.Value) Input {
	return Input{Kind: InputValue, Value: v}
}

// FromPort returns an input fed by the wrapper node's nth input.
func FromPort(port int) Input {
	return Input{Kind: InputPort, Port: port}
}

// Node is a single vertex of the document network. A node is implemented
// either by a registered kind or by a nested network, never both.
type Node struct {
	Name   string
	Kind   string
	Nested *Network
	Inputs []Input
}

// Copy returns a deep copy of the node.
func (n *Node) Copy() *Node {
	out := &Node{Name: n.Name, Kind: n.Kind, Inputs: make([]Input, len(n.Inputs))}
	copy(out.Inputs, n.Inputs)
	if n.Nested != nil {
		out.Nested = n.Nested.Copy()
	}
	return out
}

// Network is the arena of nodes making up a document graph. Nodes are held
// by stable identity so structural rewrites (instrumentation) can insert
// synthetic nodes without invalidating references held elsewhere.
type Network struct {
	Nodes  map[NodeID]*Node
	Output NodeID
}

// NewNetwork returns an empty network.
func NewNetwork() *Network {
	return &Network{Nodes: make(map[NodeID]*Node)}
}

// Add inserts a node under a fresh identity and returns that identity.
func (n *Network) Add(node *Node) NodeID {
	id := NewNodeID()
	n.Nodes[id] = node
	return id
}

// Copy returns a deep copy of the network. Snapshots handed to the
// execution engine must be isolated from further edits on the document.
func (n *Network) Copy() *Network {
	out := &Network{Nodes: make(map[NodeID]*Node, len(n.Nodes)), Output: n.Output}
	for id, node := range n.Nodes {
		out.Nodes[id] = node.Copy()
	}
	return out
}

// SortedIDs returns all node identities in ascending order. Iteration over
// the arena map is randomized; deterministic walks go through here.
func (n *Network) SortedIDs() []NodeID {
	ids := make([]NodeID, 0, len(n.Nodes))
	for id := range n.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
