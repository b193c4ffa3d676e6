package script

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEvaluateEmptyString(t *testing.T) {
	for _, src := range []string{"", "   \n\t  \n  "} {
		g := mustEvaluate(t, src)
		if g.NodeCount() != 0 {
			t.Errorf("expected empty graph, got %d nodes", g.NodeCount())
		}
	}
}

func TestEvaluateValidExpression(t *testing.T) {
	// Plain Lisp evaluates without touching the graph.
	g := mustEvaluate(t, "(def x 10)\n(def y 20)\n(+ x y)")
	if g.NodeCount() != 0 {
		t.Errorf("expected empty graph, got %d nodes", g.NodeCount())
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	evalErrors(t, "(+ 1 2")
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	evalErrors(t, "(+ 1 undefined-symbol)")
}

func TestEvaluateSyntaxErrorHasLineInfo(t *testing.T) {
	_, evalErrs, err := NewEngine().Evaluate("(+ 1 2)\n(+ 3")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error")
	}
	e := evalErrs[0]
	if e.Message == "" {
		t.Error("eval error message should not be empty")
	}
	if e.Line > 0 {
		t.Logf("extracted line info: line=%d, message=%q", e.Line, e.Message)
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	if s := e.Error(); !strings.Contains(s, "line 5") || !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() should contain line and message, got: %s", s)
	}
	e2 := EvalError{Message: "no location"}
	if s := e2.Error(); strings.Contains(s, "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", s)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	source := `(output (particle-field :weight 2))`
	var first string
	for i := 0; i < 5; i++ {
		g := mustEvaluate(t, source)
		id := g.Roots()[0].Info().ID.String()
		if i == 0 {
			first = id
			continue
		}
		if id != first {
			t.Errorf("iteration %d: node ID %s differs from %s", i, id, first)
		}
	}
}

func TestEvaluateDeadline(t *testing.T) {
	e := NewEngine()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	done := make(chan evalResult) // never sends

	start := time.Now()
	_, _, err := e.await(ctx, 0, done)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("deadline took far longer than requested")
	}
}

func TestEvaluateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewEngine().await(ctx, 0, make(chan evalResult))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got: %v", err)
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	e := NewEngine()
	e.generation.Store(2)

	done := make(chan evalResult, 1)
	done <- evalResult{}
	_, _, err := e.await(context.Background(), 1, done)
	if !errors.Is(err, ErrSuperseded) {
		t.Fatalf("expected superseded error, got: %v", err)
	}
}

func TestEvaluateContextUsesTimeout(t *testing.T) {
	e := &Engine{Timeout: time.Minute}
	g, evalErrs, err := e.EvaluateContext(context.Background(), `(+ 1 2)`)
	if err != nil || len(evalErrs) > 0 {
		t.Fatalf("unexpected failure: %v %v", err, evalErrs)
	}
	if g == nil {
		t.Fatal("expected a graph")
	}
	if e.generation.Load() != 1 {
		t.Errorf("expected generation 1, got %d", e.generation.Load())
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line format", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"no line info", "some generic error", 0, "some generic error"},
		{"line format lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"short line format", "line 3: bad form", 3, "bad form"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

// errString is a simple error type for testing.
type errString string

func (e errString) Error() string { return string(e) }
