// Package config loads voxgraph settings from YAML layered over embedded
// defaults.
package config

import (
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chazu/voxgraph/pkg/field"
	"github.com/chazu/voxgraph/pkg/graph"
	"github.com/chazu/voxgraph/pkg/reduce"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds every tunable of an evaluation run.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Volume    VolumeConfig    `yaml:"volume"`
	Particles ParticlesConfig `yaml:"particles"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// EngineConfig controls scheduling.
type EngineConfig struct {
	Workers     int           `yaml:"workers"`      // 0 = GOMAXPROCS
	GrainSize   int           `yaml:"grain_size"`   // indices claimed per chunk
	EvalTimeout time.Duration `yaml:"eval_timeout"` // script evaluation budget
}

// VolumeConfig describes the target grid of a pass.
type VolumeConfig struct {
	VoxelSize        float64 `yaml:"voxel_size"`
	BackgroundVoxels float64 `yaml:"background_voxels"` // narrow-band margin
	MeshIso          float32 `yaml:"mesh_iso"`
}

// ParticlesConfig bounds particle radii, in voxels.
type ParticlesConfig struct {
	MinRadiusVoxels float64 `yaml:"min_radius_voxels"`
	MaxRadiusVoxels float64 `yaml:"max_radius_voxels"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load reads a YAML file over the embedded defaults. Fields missing from
// the file keep their default. An empty path loads the defaults only.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no pass can run with.
func (c *Config) Validate() error {
	switch {
	case c.Volume.VoxelSize <= 0:
		return fmt.Errorf("config: volume.voxel_size must be positive, got %g", c.Volume.VoxelSize)
	case c.Volume.BackgroundVoxels < 0:
		return fmt.Errorf("config: volume.background_voxels must not be negative, got %g", c.Volume.BackgroundVoxels)
	case c.Engine.Workers < 0:
		return fmt.Errorf("config: engine.workers must not be negative, got %d", c.Engine.Workers)
	case c.Engine.GrainSize < 0:
		return fmt.Errorf("config: engine.grain_size must not be negative, got %d", c.Engine.GrainSize)
	case c.Particles.MinRadiusVoxels < 0 || c.Particles.MaxRadiusVoxels < c.Particles.MinRadiusVoxels:
		return fmt.Errorf("config: particle radius range [%g, %g] is invalid",
			c.Particles.MinRadiusVoxels, c.Particles.MaxRadiusVoxels)
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown logging.format %q", c.Logging.Format)
	}
	return nil
}

// Driver returns the reduction driver for the engine settings.
func (c *Config) Driver() reduce.Driver {
	return reduce.Driver{Workers: c.Engine.Workers, Grain: c.Engine.GrainSize}
}

// Apply copies the volume, particle and engine settings into a pass input.
// Object, Kernel, Assets and Log are left to the caller.
func (c *Config) Apply(in *graph.Input) {
	in.Transform = field.Linear(c.Volume.VoxelSize)
	in.Driver = c.Driver()
	in.BackgroundVoxels = c.Volume.BackgroundVoxels
	in.MeshIso = c.Volume.MeshIso
	in.MinRadius = c.Particles.MinRadiusVoxels
	in.MaxRadius = c.Particles.MaxRadiusVoxels
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("config: unknown logging.level %q", s)
}

// NewLogger builds a logger writing to w with the configured level and
// format.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
