// Package graph defines the node model for voxgraph.
//
// A graph is a DAG of nodes. Value nodes are pulled once per sample through
// a Context and return a scalar or vector. Producer nodes run once per pass
// over an Input and own one Output: a scalar field, a vector field, a mesh,
// or a combination. Edges are non-owning references resolved when the node
// is built.
package graph
