package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/chazu/voxgraph/pkg/graph"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/gocarina/gocsv"
)

// particleRecord is one row of a particle CSV file. Only x, y and z are
// required; velocity and radius columns are used when the header has them.
type particleRecord struct {
	X      float64 `csv:"x"`
	Y      float64 `csv:"y"`
	Z      float64 `csv:"z"`
	VX     float64 `csv:"vx"`
	VY     float64 `csv:"vy"`
	VZ     float64 `csv:"vz"`
	Radius float32 `csv:"radius"`
}

// readParticles parses a particle CSV into a particle system.
func readParticles(r io.Reader) (*graph.ParticleSystem, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading particles: %w", err)
	}
	header, err := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading particles: %w", err)
	}
	cols := strings.Split(strings.ToLower(strings.TrimSpace(header)), ",")
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	for _, c := range []string{"x", "y", "z"} {
		if !slices.Contains(cols, c) {
			return nil, fmt.Errorf("reading particles: missing column %q", c)
		}
	}
	withVel := slices.Contains(cols, "vx") && slices.Contains(cols, "vy") && slices.Contains(cols, "vz")
	withRadius := slices.Contains(cols, "radius")

	var records []particleRecord
	if err := gocsv.UnmarshalBytes(data, &records); err != nil {
		return nil, fmt.Errorf("parsing particles: %w", err)
	}

	ps := &graph.ParticleSystem{Positions: make([]v3.Vec, 0, len(records))}
	for _, rec := range records {
		ps.Positions = append(ps.Positions, v3.Vec{X: rec.X, Y: rec.Y, Z: rec.Z})
		if withVel {
			ps.Velocities = append(ps.Velocities, v3.Vec{X: rec.VX, Y: rec.VY, Z: rec.VZ})
		}
		if withRadius {
			ps.Radii = append(ps.Radii, rec.Radius)
		}
	}
	return ps, nil
}
