package asset

import (
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/chazu/voxgraph/pkg/field"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const formatVersion = 1

type record struct {
	Name       string
	Vector     bool
	Class      field.Class
	Transform  field.Transform
	Background [3]float64
	Coords     []field.Coord
	Scalars    []float32
	Vectors    []v3.Vec
}

type fileHeader struct {
	Version int
	Records []record
}

// Files opens cache files from the file system. Relative paths resolve
// against Root.
type Files struct {
	Root string
}

// Open reads and decodes the whole cache at path.
func (f Files) Open(path string) (Handle, error) {
	if f.Root != "" && !filepath.IsAbs(path) {
		path = filepath.Join(f.Root, path)
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("asset: open %s: %w", path, err)
	}
	defer file.Close()

	a, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("asset: %s: %w", path, err)
	}
	return a, nil
}

// WriteFile encodes a to path, replacing any existing file.
func WriteFile(path string, a *Archive) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("asset: create %s: %w", path, err)
	}
	if err := Encode(file, a); err != nil {
		file.Close()
		return fmt.Errorf("asset: write %s: %w", path, err)
	}
	return file.Close()
}

// Encode writes a to w.
func Encode(w io.Writer, a *Archive) error {
	h := fileHeader{Version: formatVersion}
	for _, name := range sortedKeys(a.Scalars) {
		f := a.Scalars[name]
		r := record{Name: name, Class: f.Class, Transform: f.Transform}
		r.Background[0] = float64(f.Background())
		f.ForEachActive(func(c field.Coord, v float32) {
			r.Coords = append(r.Coords, c)
			r.Scalars = append(r.Scalars, v)
		})
		h.Records = append(h.Records, r)
	}
	for _, name := range sortedKeys(a.Vectors) {
		f := a.Vectors[name]
		bg := f.Background()
		r := record{Name: name, Vector: true, Class: f.Class, Transform: f.Transform,
			Background: [3]float64{bg.X, bg.Y, bg.Z}}
		f.ForEachActive(func(c field.Coord, v v3.Vec) {
			r.Coords = append(r.Coords, c)
			r.Vectors = append(r.Vectors, v)
		})
		h.Records = append(h.Records, r)
	}

	zw := gzip.NewWriter(w)
	if err := gob.NewEncoder(zw).Encode(&h); err != nil {
		zw.Close()
		return fmt.Errorf("encode: %w", err)
	}
	return zw.Close()
}

// Decode reads an archive written by Encode.
func Decode(r io.Reader) (*Archive, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	defer zr.Close()

	var h fileHeader
	if err := gob.NewDecoder(zr).Decode(&h); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if h.Version != formatVersion {
		return nil, fmt.Errorf("decode: unsupported version %d", h.Version)
	}

	a := NewArchive()
	for _, rec := range h.Records {
		if rec.Vector {
			if len(rec.Vectors) != len(rec.Coords) {
				return nil, fmt.Errorf("decode: field %q: %d coords, %d values", rec.Name, len(rec.Coords), len(rec.Vectors))
			}
			f := field.New(rec.Transform, v3.Vec{X: rec.Background[0], Y: rec.Background[1], Z: rec.Background[2]})
			f.Name, f.Class = rec.Name, rec.Class
			for i, c := range rec.Coords {
				f.Set(c, rec.Vectors[i])
			}
			a.Vectors[rec.Name] = f
			continue
		}
		if len(rec.Scalars) != len(rec.Coords) {
			return nil, fmt.Errorf("decode: field %q: %d coords, %d values", rec.Name, len(rec.Coords), len(rec.Scalars))
		}
		f := field.NewScalar(rec.Transform, rec.Class, float32(rec.Background[0]))
		f.Name = rec.Name
		for i, c := range rec.Coords {
			f.Set(c, rec.Scalars[i])
		}
		a.Scalars[rec.Name] = f
	}
	return a, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
