package script

import (
	"fmt"
	"strings"

	"github.com/chazu/voxgraph/pkg/field"
	"github.com/chazu/voxgraph/pkg/graph"
	"github.com/chazu/voxgraph/pkg/kernel"
	"github.com/chazu/voxgraph/pkg/nodes"
	"github.com/chazu/voxgraph/pkg/value"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms voxgraph Lisp source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: particle-surface -> particle_surface
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp type for passing graph nodes through the zygomys environment
// ---------------------------------------------------------------------------

// sexpNode wraps a graph node so it can be passed between builtins.
type sexpNode struct {
	node graph.Node
}

func (n *sexpNode) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(node %s)", n.node.Info().Label())
}
func (n *sexpNode) Type() *zygo.RegisteredType { return nil }

func wrap(n graph.Node) (zygo.Sexp, error) {
	return &sexpNode{node: n}, nil
}

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value, treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// node returns keyword input key as a node, or nil when it is absent.
func (pa kwArgs) node(key string) (graph.Node, error) {
	v, ok := pa.kw[key]
	if !ok {
		return nil, nil
	}
	n, err := toNode(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// nodes resolves several keyword inputs at once.
func (pa kwArgs) nodes(keys ...string) ([]graph.Node, error) {
	out := make([]graph.Node, len(keys))
	for i, k := range keys {
		n, err := pa.node(k)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

// arg returns positional argument i as a node.
func (pa kwArgs) arg(i int) (graph.Node, error) {
	if i >= len(pa.positional) {
		return nil, fmt.Errorf("missing argument %d", i+1)
	}
	n, err := toNode(pa.positional[i])
	if err != nil {
		return nil, fmt.Errorf("argument %d: %w", i+1, err)
	}
	return n, nil
}

// number returns keyword key as a float64, or def when it is absent.
func (pa kwArgs) number(key string, def float64) (float64, error) {
	v, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// keyword returns keyword key as a name, or def when it is absent.
func (pa kwArgs) keyword(key, def string) (string, error) {
	v, ok := pa.kw[key]
	if !ok {
		return def, nil
	}
	s, err := toKeywordString(v)
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return s, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_max) and plain strings ("max").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toBool accepts booleans, numbers (nonzero is true) and a bare trailing
// keyword flag.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpInt:
		return v.Val != 0, nil
	}
	if s == zygo.SexpNull {
		return true, nil
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toAxis converts a keyword or string to a component index.
func toAxis(s zygo.Sexp) (int, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected axis keyword (:x, :y, :z): %w", err)
	}
	switch name {
	case "x":
		return 0, nil
	case "y":
		return 1, nil
	case "z":
		return 2, nil
	}
	return 0, fmt.Errorf("invalid axis %q, expected x, y, or z", name)
}

// toNode extracts a node. Numbers become scalar constants.
func toNode(s zygo.Sexp) (graph.Node, error) {
	switch v := s.(type) {
	case *sexpNode:
		return v.node, nil
	case *zygo.SexpInt:
		return value.NewConst(float32(v.Val)), nil
	case *zygo.SexpFloat:
		return value.NewConst(float32(v.Val)), nil
	}
	return nil, fmt.Errorf("expected node or number, got %T (%s)", s, s.SexpString(nil))
}

// toVec extracts a constant vector from a (vec3 ...) expression.
func toVec(s zygo.Sexp) (v3.Vec, error) {
	if ref, ok := s.(*sexpNode); ok {
		if c, ok := ref.node.(*value.VectorConst); ok {
			return c.Value, nil
		}
	}
	return v3.Vec{}, fmt.Errorf("expected constant vec3, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builder collects the nodes a script names or marks as output.
type builder struct {
	g *graph.Graph
}

// fn builds a node from parsed arguments. Errors are prefixed with the
// builtin name by register.
type fn func(pa kwArgs) (graph.Node, error)

// register installs a builtin whose Lisp name has hyphens replaced by
// underscores, matching preprocessSource.
func register(env *zygo.Zlisp, name string, f fn) {
	env.AddFunction(strings.ReplaceAll(name, "-", "_"),
		func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
			n, err := f(parseArgs(args))
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			return wrap(n)
		})
}

// registerBuiltins installs the voxgraph builtins into a zygomys
// environment. Source code must be preprocessed with preprocessSource()
// before evaluation so that :keyword tokens are recognizable.
func registerBuiltins(env *zygo.Zlisp, b *builder) {
	registerGraph(env, b)
	registerValues(env)
	registerProducers(env)
}

func registerGraph(env *zygo.Zlisp, b *builder) {
	// (defnode "name" expr) names a node and adds it to the graph.
	env.AddFunction("defnode", func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("defnode requires a name and a node expression")
		}
		name, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defnode: name: %w", err)
		}
		n, err := toNode(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defnode: %w", err)
		}
		if b.g.Lookup(name) != nil {
			return zygo.SexpNull, fmt.Errorf("defnode: duplicate node name %q", name)
		}
		if n.Info().Slot() >= 0 {
			return zygo.SexpNull, fmt.Errorf("defnode: %s is already in the graph", n.Info().Label())
		}
		n.Info().Name = name
		b.g.Add(n)
		return wrap(n)
	})

	// (ref "name")
	env.AddFunction("ref", func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("ref requires a name argument")
		}
		name, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("ref: name: %w", err)
		}
		n := b.g.Lookup(name)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("ref: no node named %q", name)
		}
		return wrap(n)
	})

	// (output producer ...) marks graph outputs.
	env.AddFunction("output", func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) == 0 {
			return zygo.SexpNull, fmt.Errorf("output requires at least one producer")
		}
		var last graph.Node
		for i, a := range args {
			n, err := toNode(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("output: argument %d: %w", i+1, err)
			}
			if _, ok := n.(graph.Producer); !ok {
				return zygo.SexpNull, fmt.Errorf("output: %s is not a producer", n.Info().Label())
			}
			b.g.AddRoot(n)
			last = n
		}
		return wrap(last)
	})
}

func registerValues(env *zygo.Zlisp) {
	// (scalar 0.5)
	register(env, "scalar", func(pa kwArgs) (graph.Node, error) {
		if len(pa.positional) != 1 {
			return nil, fmt.Errorf("requires exactly 1 argument")
		}
		f, err := toFloat64(pa.positional[0])
		if err != nil {
			return nil, err
		}
		return value.NewConst(float32(f)), nil
	})

	// (vec3 1 2 3)
	register(env, "vec3", func(pa kwArgs) (graph.Node, error) {
		if len(pa.positional) != 3 {
			return nil, fmt.Errorf("requires exactly 3 arguments, got %d", len(pa.positional))
		}
		var c [3]float64
		for i := range c {
			f, err := toFloat64(pa.positional[i])
			if err != nil {
				return nil, fmt.Errorf("%c: %w", "xyz"[i], err)
			}
			c[i] = f
		}
		return value.NewVectorConst(v3.Vec{X: c[0], Y: c[1], Z: c[2]}), nil
	})

	// (attr :sampled-density)
	register(env, "attr", func(pa kwArgs) (graph.Node, error) {
		if len(pa.kw) != 1 || len(pa.positional) != 0 {
			return nil, fmt.Errorf("requires one attribute keyword")
		}
		for name := range pa.kw {
			a, err := value.ParseAttribute(name)
			if err != nil {
				return nil, err
			}
			return value.NewAttribute(a), nil
		}
		return nil, nil
	})

	// (binary a b :op :mul)
	register(env, "binary", func(pa kwArgs) (graph.Node, error) {
		name, err := pa.keyword("op", "add")
		if err != nil {
			return nil, err
		}
		op, err := value.ParseBinaryOp(name)
		if err != nil {
			return nil, err
		}
		a, err := pa.arg(0)
		if err != nil {
			return nil, err
		}
		b, err := pa.arg(1)
		if err != nil {
			return nil, err
		}
		return value.NewBinary(op, a, b), nil
	})

	register(env, "abs", func(pa kwArgs) (graph.Node, error) {
		x, err := pa.arg(0)
		if err != nil {
			return nil, err
		}
		return value.NewAbs(x), nil
	})

	// (clamp x :lo 0 :hi 1)
	register(env, "clamp", func(pa kwArgs) (graph.Node, error) {
		x, err := pa.arg(0)
		if err != nil {
			return nil, err
		}
		in, err := pa.nodes("lo", "hi")
		if err != nil {
			return nil, err
		}
		return value.NewClamp(x, in[0], in[1]), nil
	})

	register(env, "vlength", func(pa kwArgs) (graph.Node, error) {
		v, err := pa.arg(0)
		if err != nil {
			return nil, err
		}
		return value.NewLength(v), nil
	})

	// (component v :axis :y)
	register(env, "component", func(pa kwArgs) (graph.Node, error) {
		v, err := pa.arg(0)
		if err != nil {
			return nil, err
		}
		axis := 0
		if s, ok := pa.kw["axis"]; ok {
			if axis, err = toAxis(s); err != nil {
				return nil, err
			}
		}
		return value.NewComponent(v, axis), nil
	})

	register(env, "compose", func(pa kwArgs) (graph.Node, error) {
		var c [3]graph.Node
		for i := range c {
			n, err := pa.arg(i)
			if err != nil {
				return nil, err
			}
			c[i] = n
		}
		return value.NewCompose(c[0], c[1], c[2]), nil
	})

	register(env, "vscale", func(pa kwArgs) (graph.Node, error) {
		v, err := pa.arg(0)
		if err != nil {
			return nil, err
		}
		s, err := pa.arg(1)
		if err != nil {
			return nil, err
		}
		return value.NewScale(v, s), nil
	})

	register(env, "vadd", func(pa kwArgs) (graph.Node, error) {
		a, err := pa.arg(0)
		if err != nil {
			return nil, err
		}
		b, err := pa.arg(1)
		if err != nil {
			return nil, err
		}
		return value.NewVectorSum(a, b), nil
	})

	// (noise :seed 3 :frequency 2 :amplitude 0.5 :octaves 4 :at p)
	noise := func(build func(p value.NoiseParams, at graph.Node) graph.Node) fn {
		return func(pa kwArgs) (graph.Node, error) {
			p, err := noiseParams(pa)
			if err != nil {
				return nil, err
			}
			at, err := pa.node("at")
			if err != nil {
				return nil, err
			}
			return build(p, at), nil
		}
	}
	register(env, "noise", noise(func(p value.NoiseParams, at graph.Node) graph.Node { return value.NewNoise(p, at) }))
	register(env, "fbm", noise(func(p value.NoiseParams, at graph.Node) graph.Node { return value.NewFBM(p, at) }))
	register(env, "vnoise", noise(func(p value.NoiseParams, at graph.Node) graph.Node { return value.NewVectorNoise(p, at) }))

	// (sample src :at p) reads a fog field; without src the pass fog.
	register(env, "sample", func(pa kwArgs) (graph.Node, error) {
		var src graph.Node
		if len(pa.positional) > 0 {
			n, err := pa.arg(0)
			if err != nil {
				return nil, err
			}
			src = n
		}
		at, err := pa.node("at")
		if err != nil {
			return nil, err
		}
		return value.NewFieldSample(src, at), nil
	})

	register(env, "vsample", func(pa kwArgs) (graph.Node, error) {
		src, err := pa.arg(0)
		if err != nil {
			return nil, err
		}
		at, err := pa.node("at")
		if err != nil {
			return nil, err
		}
		return value.NewVectorFieldSample(src, at), nil
	})
}

func noiseParams(pa kwArgs) (value.NoiseParams, error) {
	p := value.DefaultNoise()
	seed, err := pa.number("seed", float64(p.Seed))
	if err != nil {
		return p, err
	}
	p.Seed = int64(seed)
	for _, f := range []struct {
		key string
		dst *float32
	}{
		{"frequency", &p.Frequency},
		{"amplitude", &p.Amplitude},
		{"lacunarity", &p.Lacunarity},
		{"gain", &p.Gain},
	} {
		v, err := pa.number(f.key, float64(*f.dst))
		if err != nil {
			return p, err
		}
		*f.dst = float32(v)
	}
	octaves, err := pa.number("octaves", float64(p.Octaves))
	if err != nil {
		return p, err
	}
	p.Octaves = int(octaves)
	if s, ok := pa.kw["offset"]; ok {
		if p.Offset, err = toVec(s); err != nil {
			return p, fmt.Errorf("offset: %w", err)
		}
	}
	return p, nil
}

func registerProducers(env *zygo.Zlisp) {
	// (particle-surface :size 1 :cutoff 0.5)
	register(env, "particle-surface", func(pa kwArgs) (graph.Node, error) {
		in, err := pa.nodes("size", "cutoff")
		if err != nil {
			return nil, err
		}
		return nodes.NewParticleSurface(in[0], in[1]), nil
	})

	// (particle-field :resolution 0.5 :weight 1)
	register(env, "particle-field", func(pa kwArgs) (graph.Node, error) {
		in, err := pa.nodes("resolution", "weight")
		if err != nil {
			return nil, err
		}
		return nodes.NewParticleField(in[0], in[1]), nil
	})

	register(env, "smoke-cache", func(kwArgs) (graph.Node, error) { return nodes.NewSmokeCache(), nil })
	register(env, "fog-post", func(kwArgs) (graph.Node, error) { return nodes.NewFogPostInput(), nil })
	register(env, "surface-input", func(kwArgs) (graph.Node, error) { return nodes.NewSurfaceInput(), nil })

	// (solid :shape :sphere :position (vec3 0 1 0) :scale (vec3 2 2 2))
	register(env, "solid", func(pa kwArgs) (graph.Node, error) {
		name, err := pa.keyword("shape", "cube")
		if err != nil {
			return nil, err
		}
		shape, err := kernel.ParseShape(name)
		if err != nil {
			return nil, err
		}
		in, err := pa.nodes("position", "scale")
		if err != nil {
			return nil, err
		}
		return nodes.NewSolidInput(shape, in[0], in[1]), nil
	})

	// (transform surface :translate v :scale v)
	register(env, "transform", func(pa kwArgs) (graph.Node, error) {
		s, err := pa.arg(0)
		if err != nil {
			return nil, err
		}
		in, err := pa.nodes("translate", "scale")
		if err != nil {
			return nil, err
		}
		return nodes.NewTransform(s, in[0], in[1]), nil
	})

	// (surface-to-fog surface :cutoff 0.2)
	register(env, "surface-to-fog", func(pa kwArgs) (graph.Node, error) {
		s, err := pa.arg(0)
		if err != nil {
			return nil, err
		}
		cutoff, err := pa.number("cutoff", 0)
		if err != nil {
			return nil, err
		}
		return nodes.NewSurfaceToFog(s, float32(cutoff)), nil
	})

	// (composite fog value)
	register(env, "composite", func(pa kwArgs) (graph.Node, error) {
		f, err := pa.arg(0)
		if err != nil {
			return nil, err
		}
		v, err := pa.arg(1)
		if err != nil {
			return nil, err
		}
		return nodes.NewComposite(f, v), nil
	})

	// (combine a b :op :max)
	register(env, "combine", func(pa kwArgs) (graph.Node, error) {
		name, err := pa.keyword("op", "max")
		if err != nil {
			return nil, err
		}
		op, err := field.ParseOp(name)
		if err != nil {
			return nil, err
		}
		a, err := pa.arg(0)
		if err != nil {
			return nil, err
		}
		b, err := pa.arg(1)
		if err != nil {
			return nil, err
		}
		return nodes.NewCombine(op, a, b), nil
	})

	// (advection fog :threshold 0.5 :distance 2 :iterations 8
	//            :density d :velocity v :break true)
	register(env, "advection", func(pa kwArgs) (graph.Node, error) {
		f, err := pa.arg(0)
		if err != nil {
			return nil, err
		}
		in, err := pa.nodes("threshold", "distance", "iterations", "density", "velocity")
		if err != nil {
			return nil, err
		}
		n := nodes.NewAdvection(f, in[0], in[1], in[2], in[3], in[4])
		if v, ok := pa.kw["break"]; ok {
			if n.BreakOnThreshold, err = toBool(v); err != nil {
				return nil, fmt.Errorf("break: %w", err)
			}
		}
		return n, nil
	})

	// (displace surface :distance d :maximum 0.3 :billow 2 :resolution 0.5)
	register(env, "displace", func(pa kwArgs) (graph.Node, error) {
		s, err := pa.arg(0)
		if err != nil {
			return nil, err
		}
		in, err := pa.nodes("distance", "maximum", "billow")
		if err != nil {
			return nil, err
		}
		res, err := pa.number("resolution", 1)
		if err != nil {
			return nil, err
		}
		n := nodes.NewDisplacement(s, in[0], in[1], in[2])
		n.Resolution = float32(res)
		return n, nil
	})

	// (csg a b :op :difference)
	register(env, "csg", func(pa kwArgs) (graph.Node, error) {
		name, err := pa.keyword("op", "union")
		if err != nil {
			return nil, err
		}
		op, err := field.ParseCSGOp(name)
		if err != nil {
			return nil, err
		}
		a, err := pa.arg(0)
		if err != nil {
			return nil, err
		}
		b, err := pa.arg(1)
		if err != nil {
			return nil, err
		}
		return nodes.NewCSG(op, a, b), nil
	})
}
