package graph

import (
	"crypto/sha256"
	"encoding/hex"
)

// NodeID is a content-addressed identifier for graph nodes.
type NodeID [32]byte

// ZeroID is the zero NodeID, carried by nodes not yet added to a graph.
var ZeroID NodeID

// NewNodeID hashes the given parts into a NodeID.
func NewNodeID(parts ...string) NodeID {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	var id NodeID
	copy(id[:], h.Sum(nil))
	return id
}

// IsZero reports whether id is the zero NodeID.
func (id NodeID) IsZero() bool {
	return id == ZeroID
}

// Short returns the first 6 bytes as hex, for logs and messages.
func (id NodeID) Short() string {
	return hex.EncodeToString(id[:6])
}

func (id NodeID) String() string {
	return hex.EncodeToString(id[:])
}
