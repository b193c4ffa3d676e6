package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chazu/voxgraph/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 0.1, cfg.Volume.VoxelSize)
	assert.Equal(t, 4.0, cfg.Volume.BackgroundVoxels)
	assert.Equal(t, 1.5, cfg.Particles.MinRadiusVoxels)
	assert.Equal(t, 1e5, cfg.Particles.MaxRadiusVoxels)
	assert.Equal(t, 256, cfg.Engine.GrainSize)
	assert.Equal(t, 10*time.Second, cfg.Engine.EvalTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voxgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, "volume:\n  voxel_size: 0.25\nengine:\n  workers: 3\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.Volume.VoxelSize)
	assert.Equal(t, 3, cfg.Engine.Workers)
	assert.Equal(t, 4.0, cfg.Volume.BackgroundVoxels, "unset field keeps its default")
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"zero voxel", "volume:\n  voxel_size: 0\n", "voxel_size"},
		{"negative margin", "volume:\n  background_voxels: -1\n", "background_voxels"},
		{"radius range", "particles:\n  min_radius_voxels: 4\n  max_radius_voxels: 2\n", "radius range"},
		{"level", "logging:\n  level: loud\n", "logging.level"},
		{"format", "logging:\n  format: xml\n", "logging.format"},
		{"syntax", "volume: [\n", "parsing config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading config file")
}

func TestApply(t *testing.T) {
	cfg := Default()
	cfg.Engine.Workers = 2
	in := &graph.Input{}
	cfg.Apply(in)
	assert.Equal(t, 0.1, in.Transform.Voxel())
	assert.Equal(t, 2, in.Driver.Workers)
	assert.Equal(t, 4.0, in.Margin())
	lo, hi := in.RadiusRange()
	assert.Equal(t, 1.5, lo)
	assert.Equal(t, 1e5, hi)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := LoggingConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	log.Info("hidden")
	log.Warn("shown", "node", "n1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "n1", rec["node"])
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Volume.VoxelSize = 0.5
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.WriteYAML(path))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
