// Command voxgraph evaluates a voxel node graph script over a scene object
// and exports the results.
//
// Usage:
//
//	voxgraph -script smoke.vg -particles points.csv -stl out.stl
//
// The scene object is a particle CSV (-particles), a smoke cache (-smoke
// with -density and -velocity grid names), a stored fog volume for
// post-processing (-fog with -density) or none. -surface names a cached
// level-set that advection treats as the dominant surface of the pass.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/chazu/voxgraph/pkg/asset"
	"github.com/chazu/voxgraph/pkg/config"
	"github.com/chazu/voxgraph/pkg/engine"
	"github.com/chazu/voxgraph/pkg/field"
	"github.com/chazu/voxgraph/pkg/graph"
	"github.com/chazu/voxgraph/pkg/kernel/sdfx"
	"github.com/chazu/voxgraph/pkg/script"
	"github.com/chazu/voxgraph/pkg/tessellate"
)

type options struct {
	configPath   string
	scriptPath   string
	particles    string
	smoke        string
	fog          string
	densityGrid  string
	velocityGrid string
	surface      string
	surfaceGrid  string
	stlPath      string
	fieldsPath   string
	fogIso       float64
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to config.yaml (empty = use defaults)")
	flag.StringVar(&opts.scriptPath, "script", "", "Graph script to evaluate (required)")
	flag.StringVar(&opts.particles, "particles", "", "Particle CSV with x,y,z[,vx,vy,vz][,radius] columns")
	flag.StringVar(&opts.smoke, "smoke", "", "Smoke cache file")
	flag.StringVar(&opts.fog, "fog", "", "Cache file holding a fog volume to post-process")
	flag.StringVar(&opts.densityGrid, "density", "density", "Density grid name in -smoke or -fog")
	flag.StringVar(&opts.velocityGrid, "velocity", "velocity", "Velocity grid name in -smoke")
	flag.StringVar(&opts.surface, "surface", "", "Cache file holding the dominant surface level-set")
	flag.StringVar(&opts.surfaceGrid, "surface-grid", "surface", "Level-set grid name in -surface")
	flag.StringVar(&opts.stlPath, "stl", "", "Write surface outputs to this STL file")
	flag.StringVar(&opts.fieldsPath, "fields", "", "Write field outputs to this cache file")
	flag.Float64Var(&opts.fogIso, "fog-iso", tessellate.DefaultFogIso, "Density at which fog outputs are meshed")
	flag.Parse()

	if err := run(opts); err != nil {
		slog.Error("voxgraph failed", "error", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if opts.scriptPath == "" {
		return fmt.Errorf("-script is required")
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	log := cfg.Logging.NewLogger(os.Stderr)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	source, err := os.ReadFile(opts.scriptPath)
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}
	eng := &script.Engine{Timeout: cfg.Engine.EvalTimeout}
	g, evalErrs, err := eng.EvaluateContext(ctx, string(source))
	if err != nil {
		return err
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			log.Error("script error", "file", opts.scriptPath, "line", e.Line, "message", e.Message)
		}
		return fmt.Errorf("%s: %d script error(s)", opts.scriptPath, len(evalErrs))
	}

	assets := asset.Files{}
	obj, err := sceneObject(opts, assets)
	if err != nil {
		return err
	}

	in := &graph.Input{
		Object: obj,
		Kernel: sdfx.New(cfg.Driver()),
		Assets: assets,
		Log:    log,
	}
	cfg.Apply(in)
	if pf, ok := obj.(*graph.PostFog); ok {
		in.Fog = pf.Fog
	}
	if opts.surface != "" {
		if in.Surface, err = loadSurface(assets, opts.surface, opts.surfaceGrid); err != nil {
			return err
		}
		log.Debug("loaded dominant surface", "path", opts.surface, "active", in.Surface.ActiveCount())
	}

	report, err := engine.New(log).Run(ctx, g, in)
	if err != nil {
		return err
	}
	for _, w := range report.Warnings {
		log.Warn("graph warning", "detail", w.Error())
	}
	log.Info("pass finished",
		"evaluated", report.Evaluated,
		"failed", len(report.Errors),
		"duration", report.Duration)
	summarize(log, g)

	if opts.fieldsPath != "" {
		if err := writeFields(opts.fieldsPath, g); err != nil {
			return err
		}
	}
	if opts.stlPath != "" {
		parts, err := tessellate.Collect(g, tessellate.Options{Kernel: in.Kernel, FogIso: float32(opts.fogIso)})
		if err != nil {
			return err
		}
		if err := tessellate.SaveSTL(opts.stlPath, parts); err != nil {
			return err
		}
		log.Info("wrote surfaces", "path", opts.stlPath, "parts", len(parts))
	}
	return report.Err()
}

// sceneObject loads the object named by the flags. At most one source may
// be given.
func sceneObject(opts options, assets asset.Reader) (graph.Object, error) {
	given := 0
	for _, s := range []string{opts.particles, opts.smoke, opts.fog} {
		if s != "" {
			given++
		}
	}
	if given > 1 {
		return nil, fmt.Errorf("-particles, -smoke and -fog are mutually exclusive")
	}

	switch {
	case opts.particles != "":
		f, err := os.Open(opts.particles)
		if err != nil {
			return nil, fmt.Errorf("opening particles: %w", err)
		}
		defer f.Close()
		ps, err := readParticles(f)
		if err != nil {
			return nil, err
		}
		return ps, nil
	case opts.smoke != "":
		return &graph.SmokeCache{Path: opts.smoke, DensityGrid: opts.densityGrid, VelocityGrid: opts.velocityGrid}, nil
	case opts.fog != "":
		h, err := assets.Open(opts.fog)
		if err != nil {
			return nil, err
		}
		defer h.Close()
		fog, err := h.ReadScalar(opts.densityGrid)
		if err != nil {
			return nil, fmt.Errorf("reading fog: %w", err)
		}
		return &graph.PostFog{Fog: fog}, nil
	}
	return nil, nil
}

// loadSurface reads the level-set named grid from the cache at path.
func loadSurface(assets asset.Reader, path, grid string) (*field.ScalarField, error) {
	h, err := assets.Open(path)
	if err != nil {
		return nil, err
	}
	defer h.Close()
	ls, err := h.ReadScalar(grid)
	if err != nil {
		return nil, fmt.Errorf("reading surface: %w", err)
	}
	if ls.Class != field.ClassLevelSet {
		return nil, fmt.Errorf("surface %q is a %s, not a level-set", grid, ls.Class)
	}
	return ls, nil
}

// summarize logs one record per graph output.
func summarize(log *slog.Logger, g *graph.Graph) {
	for _, root := range g.Roots() {
		p, ok := root.(graph.Producer)
		if !ok {
			continue
		}
		out := p.Output()
		attrs := []any{"node", root.Info().Label(), "kind", root.Info().Kind(), "output", out.Kind.String()}
		if out.Has(graph.OutputScalar) {
			attrs = append(attrs, "active_voxels", out.Scalar.ActiveCount())
		}
		if out.Has(graph.OutputVector) {
			attrs = append(attrs, "active_vectors", out.Vector.ActiveCount())
		}
		if out.Has(graph.OutputMesh) {
			attrs = append(attrs, "triangles", len(out.Mesh.Triangulated()))
		}
		log.Info("output", attrs...)
	}
}

// writeFields stores every field output of the graph roots, named by node
// label, in one cache file.
func writeFields(path string, g *graph.Graph) error {
	arc := asset.NewArchive()
	for _, root := range g.Roots() {
		p, ok := root.(graph.Producer)
		if !ok {
			continue
		}
		out := p.Output()
		name := root.Info().Label()
		if out.Has(graph.OutputScalar) {
			f := out.Scalar.DeepCopy()
			f.Name = name
			arc.AddScalar(f)
		}
		if out.Has(graph.OutputVector) {
			v := out.Vector.DeepCopy()
			v.Name = name + ".velocity"
			arc.AddVector(v)
		}
	}
	return asset.WriteFile(path, arc)
}
