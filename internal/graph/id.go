package graph

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// NodeID is the stable identity of a node within a network arena. Identities
// are random, never reused, and survive structural rewrites of the graph.
type NodeID uint64

// NewNodeID returns a fresh random identity.
func NewNodeID() NodeID {
	u := uuid.New()
	return NodeID(binary.BigEndian.Uint64(u[:8]))
}

func (id NodeID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Path is the structural location of a node: the chain of wrapper node
// identities leading into nested networks, ending at the node itself.
type Path []NodeID

// PathOf is a convenience constructor for a top-level node path.
func PathOf(ids ...NodeID) Path {
	return Path(ids)
}

// Child returns a new path descending one level. The receiver is not
// mutated, so paths can be kept while a traversal stack grows and shrinks.
func (p Path) Child(id NodeID) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = id
	return out
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, id := range p {
		parts[i] = id.String()
	}
	return strings.Join(parts, "/")
}

// Equal reports whether two paths identify the same structural location.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}
