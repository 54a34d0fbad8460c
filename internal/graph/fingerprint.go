package graph

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Fingerprint returns an order-independent content hash over the network's
// structure and parameter values. Equal graphs hash equally regardless of
// arena iteration order: per-node digests are combined with wrapping
// addition before the final mix.
func (n *Network) Fingerprint() uint64 {
	var sum uint64
	for id, node := range n.Nodes {
		sum += nodeDigest(id, node)
	}

	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], sum)
	binary.BigEndian.PutUint64(buf[8:], uint64(n.Output))
	d := sha256.Sum256(buf[:])
	return binary.BigEndian.Uint64(d[:8])
}

// nodeDigest hashes a single node's identity, implementation, and inputs.
func nodeDigest(id NodeID, node *Node) uint64 {
	h := sha256.New()

	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], uint64(id))
	h.Write(idBuf[:])
	h.Write([]byte(node.Name))
	h.Write([]byte{0})
	h.Write([]byte(node.Kind))
	h.Write([]byte{0})

	if node.Nested != nil {
		binary.BigEndian.PutUint64(idBuf[:], node.Nested.Fingerprint())
		h.Write(idBuf[:])
	}

	for _, in := range node.Inputs {
		h.Write([]byte{byte(in.Kind)})
		switch in.Kind {
		case InputNode:
			binary.BigEndian.PutUint64(idBuf[:], uint64(in.Node))
			h.Write(idBuf[:])
			binary.BigEndian.PutUint64(idBuf[:], uint64(in.Output))
			h.Write(idBuf[:])
		case InputValue:
			h.Write(valueBytes(in.Value))
		case InputPort:
			binary.BigEndian.PutUint64(idBuf[:], uint64(in.Port))
			h.Write(idBuf[:])
		}
	}

	d := h.Sum(nil)
	return binary.BigEndian.Uint64(d[:8])
}

// valueBytes canonically encodes a parameter value for hashing. Parameter
// values are serializable cty values; anything that refuses JSON encoding
// (capsules never appear as document parameters) falls back to GoString.
func valueBytes(v cty.Value) []byte {
	if v == cty.NilVal {
		return []byte("nil")
	}
	b, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return []byte(v.GoString())
	}
	return append(b, []byte(v.Type().GoString())...)
}
