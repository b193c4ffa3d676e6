package graph

import (
	"fmt"
	"log/slog"
	"sync"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Node is the fundamental element of the graph. Every node embeds a Base
// and exposes it through Info.
type Node interface {
	Info() *Base
}

// ScalarNode is a value node producing a float per sample.
type ScalarNode interface {
	Node
	Scalar(ctx *Context) float32
}

// VectorNode is a value node producing a vector per sample.
type VectorNode interface {
	Node
	Vector(ctx *Context) v3.Vec
}

// Producer is a node that computes a field or mesh once per pass. Evaluate
// may assume every upstream producer has already been evaluated. On failure
// the engine calls Clear so consumers see an empty output.
type Producer interface {
	Node
	Evaluate(in *Input) error
	Output() Output
	Clear()
}

// Base carries the identity and input edges shared by every node kind.
type Base struct {
	ID   NodeID
	Name string

	kind   string
	inputs []Node
	owner  *Graph
	slot   int
	warned sync.Map // message -> struct{}
}

// Init sets the node kind and its declared inputs. Constructors call it
// once; a nil input is an unconnected slot.
func (b *Base) Init(kind string, inputs ...Node) {
	b.kind = kind
	b.inputs = inputs
}

// Info returns b, satisfying Node for any type embedding Base.
func (b *Base) Info() *Base {
	return b
}

// Kind returns the node kind name.
func (b *Base) Kind() string {
	return b.kind
}

// Inputs returns the declared input nodes.
func (b *Base) Inputs() []Node {
	return b.inputs
}

// Input returns input i, or nil when it is out of range or unconnected.
func (b *Base) Input(i int) Node {
	if i < 0 || i >= len(b.inputs) {
		return nil
	}
	return b.inputs[i]
}

// SetInput connects n to input slot i, growing the input list if needed.
func (b *Base) SetInput(i int, n Node) {
	for len(b.inputs) <= i {
		b.inputs = append(b.inputs, nil)
	}
	b.inputs[i] = n
}

// Slot returns the node's memo slot. It is -1 until the node is added to a
// graph.
func (b *Base) Slot() int {
	if b.owner == nil {
		return -1
	}
	return b.slot
}

// Label names the node for log records.
func (b *Base) Label() string {
	if b.Name != "" {
		return b.Name
	}
	if b.ID.IsZero() {
		return b.kind
	}
	return fmt.Sprintf("%s#%s", b.kind, b.ID.Short())
}

// WarnOnce logs a warning for this node the first time it is called with
// msg in a pass. Per-sample code paths use it for recoverable conditions
// that would otherwise flood the log.
func (b *Base) WarnOnce(log *slog.Logger, msg string, args ...any) {
	if _, seen := b.warned.LoadOrStore(msg, struct{}{}); seen {
		return
	}
	if log == nil {
		log = slog.Default()
	}
	log.Warn(msg, append([]any{"node", b.Label(), "kind", b.kind}, args...)...)
}

// ResetWarnings rearms WarnOnce.
func (b *Base) ResetWarnings() {
	b.warned.Clear()
}
