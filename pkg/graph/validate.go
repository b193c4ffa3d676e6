package graph

import (
	"errors"
	"fmt"
)

// ErrCycle is wrapped by the validation error reported for a cyclic graph.
var ErrCycle = errors.New("graph: cycle")

// ValidationSeverity indicates whether a validation finding blocks evaluation
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks evaluation
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID             // which node has the problem (zero if graph-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning

	cause error
}

func (e ValidationError) Error() string {
	if e.NodeID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] node %s: %s", e.Severity, e.NodeID.Short(), e.Message)
}

func (e ValidationError) Unwrap() error {
	return e.cause
}

// Validate runs the structural checks on g and returns every finding. An
// empty slice means the graph is valid. It never mutates the graph.
func Validate(g *Graph) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateDAG(g)...)
	errs = append(errs, validateReferences(g)...)
	errs = append(errs, validateNames(g)...)
	errs = append(errs, validateRoots(g)...)
	return errs
}

// Check returns the error-severity findings of Validate joined into one
// error, or nil.
func Check(g *Graph) error {
	var errs []error
	for _, e := range Validate(g) {
		if e.Severity == SeverityError {
			errs = append(errs, e)
		}
	}
	return errors.Join(errs...)
}

// validateDAG checks for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = in current DFS path, black (2) = fully explored.
// If we encounter a gray node during traversal, we have found a cycle.
func validateDAG(g *Graph) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[Node]int, len(g.nodes))
	var errs []ValidationError

	var visit func(n Node) bool // returns true if cycle found
	visit = func(n Node) bool {
		switch color[n] {
		case black:
			return false
		case gray:
			b := n.Info()
			errs = append(errs, ValidationError{
				NodeID:   b.ID,
				Message:  fmt.Sprintf("cycle detected: node %s is part of a cycle", b.Label()),
				Severity: SeverityError,
				cause:    ErrCycle,
			})
			return true
		}

		color[n] = gray
		for _, in := range n.Info().inputs {
			if in != nil && visit(in) {
				return true
			}
		}
		color[n] = black
		return false
	}

	for _, n := range g.nodes {
		if color[n] == white && visit(n) {
			// One cycle error is sufficient; stop early.
			break
		}
	}
	return errs
}

// validateReferences checks that every input edge points at a node of this
// graph. Unconnected inputs are allowed; consumers treat them as empty.
func validateReferences(g *Graph) []ValidationError {
	var errs []ValidationError
	for _, n := range g.nodes {
		b := n.Info()
		for i, in := range b.inputs {
			if in == nil {
				continue
			}
			if in.Info().owner != g {
				errs = append(errs, ValidationError{
					NodeID:   b.ID,
					Message:  fmt.Sprintf("input %d (%s) belongs to another graph", i, in.Info().Label()),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateNames checks that no two nodes share a user-assigned name.
func validateNames(g *Graph) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]Node)
	for _, n := range g.nodes {
		b := n.Info()
		if b.Name == "" {
			continue
		}
		if prev, dup := seen[b.Name]; dup {
			errs = append(errs, ValidationError{
				NodeID:   b.ID,
				Message:  fmt.Sprintf("name %q already used by node %s", b.Name, prev.Info().ID.Short()),
				Severity: SeverityError,
			})
			continue
		}
		seen[b.Name] = n
	}
	return errs
}

// validateRoots checks that every root is a producer and reports nodes that
// no root reads from.
func validateRoots(g *Graph) []ValidationError {
	var errs []ValidationError
	if len(g.nodes) == 0 {
		return errs
	}
	if len(g.roots) == 0 {
		return append(errs, ValidationError{
			Message:  "graph has no output nodes",
			Severity: SeverityWarning,
		})
	}

	reachable := make(map[Node]bool, len(g.nodes))
	queue := make([]Node, 0, len(g.roots))
	for _, r := range g.roots {
		if _, ok := r.(Producer); !ok {
			errs = append(errs, ValidationError{
				NodeID:   r.Info().ID,
				Message:  fmt.Sprintf("output %s is a %s node, not a producer", r.Info().Label(), r.Info().Kind()),
				Severity: SeverityError,
			})
		}
		if !reachable[r] {
			reachable[r] = true
			queue = append(queue, r)
		}
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, in := range current.Info().inputs {
			if in != nil && !reachable[in] {
				reachable[in] = true
				queue = append(queue, in)
			}
		}
	}

	for _, n := range g.nodes {
		if !reachable[n] {
			errs = append(errs, ValidationError{
				NodeID:   n.Info().ID,
				Message:  fmt.Sprintf("node %q is not reachable from any output (orphan)", n.Info().Label()),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}
