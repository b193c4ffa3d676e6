// Package engine evaluates node graphs. Run walks the producers of a graph
// in dependency order; the resolve functions evaluate value nodes per
// sample with memoization and degrade type mismatches to empty outputs.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chazu/voxgraph/pkg/graph"
)

// EvalError records a producer that failed during a pass. Its output was
// cleared.
type EvalError struct {
	Node graph.NodeID
	Name string
	Err  error
}

func (e EvalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e EvalError) Unwrap() error {
	return e.Err
}

// Report summarizes one pass.
type Report struct {
	// Evaluated counts producers whose Evaluate returned without error.
	Evaluated int
	Errors    []EvalError
	// Warnings are validation findings below error severity.
	Warnings []graph.ValidationError
	Duration time.Duration
}

// OK reports whether every producer succeeded.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

// Err joins the producer errors, or returns nil.
func (r *Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Engine runs evaluation passes. It holds no per-pass state and is safe
// for concurrent use on distinct graphs.
type Engine struct {
	log *slog.Logger
}

// New returns an Engine logging to log, or to the default logger when log
// is nil.
func New(log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{log: log}
}

// Run evaluates every producer reachable from the graph roots, upstream
// first. A producer that fails or panics is cleared and recorded in the
// report, and the pass continues so downstream nodes see an empty input.
// Run returns an error only when the graph does not validate or ctx is
// cancelled between producers.
func (e *Engine) Run(ctx context.Context, g *graph.Graph, in *graph.Input) (*Report, error) {
	start := time.Now()
	r := &Report{}
	for _, v := range graph.Validate(g) {
		if v.Severity == graph.SeverityError {
			return r, fmt.Errorf("engine: %w", graph.Check(g))
		}
		r.Warnings = append(r.Warnings, v)
	}
	if !in.Transform.Valid() {
		return r, fmt.Errorf("engine: invalid pass transform %+v", in.Transform)
	}
	if in.Log == nil {
		in.Log = e.log
	}
	in.Slots = g.NodeCount()
	for _, n := range g.Nodes() {
		n.Info().ResetWarnings()
	}

	for _, p := range g.Producers() {
		if err := ctx.Err(); err != nil {
			r.Duration = time.Since(start)
			return r, err
		}
		b := p.Info()
		t := time.Now()
		if err := evaluate(p, in); err != nil {
			p.Clear()
			r.Errors = append(r.Errors, EvalError{Node: b.ID, Name: b.Label(), Err: err})
			in.Logger().Error("producer failed", "node", b.Label(), "kind", b.Kind(), "err", err)
			continue
		}
		r.Evaluated++
		in.Logger().Debug("producer evaluated", "node", b.Label(), "kind", b.Kind(),
			"output", p.Output().Kind.String(), "elapsed", time.Since(t))
	}
	r.Duration = time.Since(start)
	return r, nil
}

func evaluate(p graph.Producer, in *graph.Input) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic during evaluation: %v", rec)
		}
	}()
	return p.Evaluate(in)
}
