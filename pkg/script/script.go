// Package script evaluates voxgraph Lisp source into a node graph. It wraps
// zygomys in a sandboxed environment; each builtin constructs one node.
package script

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chazu/voxgraph/pkg/graph"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalTimeout is the default limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// ErrSuperseded is returned by an evaluation whose result arrived after a
// newer evaluation on the same Engine had started.
var ErrSuperseded = errors.New("script: result discarded, a newer evaluation started")

// Engine wraps the zygomys interpreter. It is safe for concurrent use;
// each call to Evaluate creates a fresh sandboxed environment. Only the
// most recent evaluation may deliver a graph.
type Engine struct {
	// Timeout bounds a single evaluation. Zero uses EvalTimeout.
	Timeout time.Duration

	generation atomic.Uint64
}

// NewEngine creates a new Engine with the default timeout.
func NewEngine() *Engine {
	return &Engine{}
}

type evalResult struct {
	graph  *graph.Graph
	errors []EvalError
	err    error
}

// Evaluate is EvaluateContext without a caller context.
func (e *Engine) Evaluate(source string) (*graph.Graph, []EvalError, error) {
	return e.EvaluateContext(context.Background(), source)
}

// EvaluateContext takes Lisp source code and produces a new Graph.
//
// Return semantics:
//   - On success: returns graph + nil errors + nil error
//   - On parse/eval failure: returns nil graph + eval errors + nil error
//   - On fatal failure (deadline, cancellation, panic, superseded):
//     returns nil + nil + error
//
// The interpreter cannot be interrupted. When ctx ends first the
// evaluation keeps running in the background and its result is dropped.
func (e *Engine) EvaluateContext(ctx context.Context, source string) (*graph.Graph, []EvalError, error) {
	gen := e.generation.Add(1)
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = EvalTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- evalResult{err: fmt.Errorf("script: panic during evaluation: %v", r)}
			}
		}()
		g, evalErrs, err := e.evaluate(source)
		done <- evalResult{graph: g, errors: evalErrs, err: err}
	}()
	return e.await(ctx, gen, done)
}

// await returns the result of evaluation gen, or the reason it was
// abandoned.
func (e *Engine) await(ctx context.Context, gen uint64, done <-chan evalResult) (*graph.Graph, []EvalError, error) {
	select {
	case res := <-done:
		if e.generation.Load() != gen {
			return nil, nil, ErrSuperseded
		}
		return res.graph, res.errors, res.err
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("script: evaluation abandoned: %w", ctx.Err())
	}
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*graph.Graph, []EvalError, error) {
	g := graph.New()
	if strings.TrimSpace(source) == "" {
		return g, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := &builder{g: g}
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	last, err := env.Run()
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	// Without an explicit (output ...) the value of the last expression is
	// the graph output when it is a producer.
	if len(g.Roots()) == 0 {
		if ref, ok := last.(*sexpNode); ok {
			if _, isProducer := ref.node.(graph.Producer); isProducer {
				g.AddRoot(ref.node)
			}
		}
	}
	return g, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
