package graph

import (
	"fmt"
	"strconv"
)

// Graph owns a set of nodes and the roots whose outputs a pass delivers.
// Nodes are immutable once added except through SetInput during
// construction.
type Graph struct {
	nodes  []Node
	byID   map[NodeID]Node
	byName map[string]Node
	roots  []Node
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		byID:   make(map[NodeID]Node),
		byName: make(map[string]Node),
	}
}

// Add registers n and, recursively, every input of n not yet in the graph.
// It assigns IDs and memo slots and returns n. Adding a node twice is a
// no-op.
func (g *Graph) Add(n Node) Node {
	if n == nil {
		return nil
	}
	b := n.Info()
	if b.owner == g {
		return n
	}
	b.owner = g
	b.slot = len(g.nodes)
	g.nodes = append(g.nodes, n)
	for _, in := range b.inputs {
		g.Add(in)
	}

	parts := []string{b.kind, b.Name, strconv.Itoa(b.slot)}
	for _, in := range b.inputs {
		if in == nil {
			parts = append(parts, "-")
			continue
		}
		parts = append(parts, strconv.Itoa(in.Info().slot))
	}
	b.ID = NewNodeID(parts...)
	g.byID[b.ID] = n
	if b.Name != "" {
		if _, dup := g.byName[b.Name]; !dup {
			g.byName[b.Name] = n
		}
	}
	return n
}

// AddRoot adds n and marks it as an output of the graph.
func (g *Graph) AddRoot(n Node) Node {
	g.Add(n)
	for _, r := range g.roots {
		if r == n {
			return n
		}
	}
	g.roots = append(g.roots, n)
	return n
}

// Lookup returns the node with the given user-assigned name, or nil.
func (g *Graph) Lookup(name string) Node {
	return g.byName[name]
}

// MustLookup returns the node with the given name, or panics.
func (g *Graph) MustLookup(name string) Node {
	n := g.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("graph: no node named %q", name))
	}
	return n
}

// Get returns the node with the given ID, or nil.
func (g *Graph) Get(id NodeID) Node {
	return g.byID[id]
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []Node {
	return g.nodes
}

// Roots returns the output nodes.
func (g *Graph) Roots() []Node {
	return g.roots
}

// NodeCount returns the total number of nodes, which is also the number of
// memo slots a pass needs.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// Producers returns every producer reachable from the roots in dependency
// order: each producer follows all producers it reads from. Without roots
// every node is a starting point. Cycles are not followed; Validate reports
// them.
func (g *Graph) Producers() []Producer {
	start := g.roots
	if len(start) == 0 {
		start = g.nodes
	}
	seen := make(map[Node]bool, len(g.nodes))
	var order []Producer
	var visit func(n Node)
	visit = func(n Node) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		for _, in := range n.Info().inputs {
			visit(in)
		}
		if p, ok := n.(Producer); ok {
			order = append(order, p)
		}
	}
	for _, n := range start {
		visit(n)
	}
	return order
}
