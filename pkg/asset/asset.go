// Package asset reads and writes named fields stored in cache files.
//
// A cache file is a gzip-compressed gob stream holding any number of named
// scalar and vector fields, each with its transform, class and background.
// Only active voxels are stored.
package asset

import (
	"errors"
	"fmt"

	"github.com/chazu/voxgraph/pkg/field"
)

var (
	// ErrNotFound is returned when a cache file does not exist.
	ErrNotFound = errors.New("asset: not found")
	// ErrFieldNotFound is returned when a cache has no field of that name.
	ErrFieldNotFound = errors.New("asset: field not found")
	// ErrKind is returned when a named field exists with the other value type.
	ErrKind = errors.New("asset: wrong field kind")
)

// Reader opens asset caches.
type Reader interface {
	Open(path string) (Handle, error)
}

// Handle is an open cache.
type Handle interface {
	ReadScalar(name string) (*field.ScalarField, error)
	ReadVector(name string) (*field.VectorField, error)
	Close() error
}

// Archive is an in-memory cache: a set of named fields. It implements
// Handle; reads return deep copies so callers may modify them.
type Archive struct {
	Scalars map[string]*field.ScalarField
	Vectors map[string]*field.VectorField
}

// NewArchive returns an empty archive.
func NewArchive() *Archive {
	return &Archive{
		Scalars: make(map[string]*field.ScalarField),
		Vectors: make(map[string]*field.VectorField),
	}
}

// AddScalar stores f under its name.
func (a *Archive) AddScalar(f *field.ScalarField) {
	a.Scalars[f.Name] = f
}

// AddVector stores f under its name.
func (a *Archive) AddVector(f *field.VectorField) {
	a.Vectors[f.Name] = f
}

// ReadScalar returns a copy of the scalar field called name.
func (a *Archive) ReadScalar(name string) (*field.ScalarField, error) {
	if f, ok := a.Scalars[name]; ok {
		return f.DeepCopy(), nil
	}
	if _, ok := a.Vectors[name]; ok {
		return nil, fmt.Errorf("%w: %q is a vector field", ErrKind, name)
	}
	return nil, fmt.Errorf("%w: %q", ErrFieldNotFound, name)
}

// ReadVector returns a copy of the vector field called name.
func (a *Archive) ReadVector(name string) (*field.VectorField, error) {
	if f, ok := a.Vectors[name]; ok {
		return f.DeepCopy(), nil
	}
	if _, ok := a.Scalars[name]; ok {
		return nil, fmt.Errorf("%w: %q is a scalar field", ErrKind, name)
	}
	return nil, fmt.Errorf("%w: %q", ErrFieldNotFound, name)
}

// Close is a no-op for in-memory archives.
func (a *Archive) Close() error {
	return nil
}

// MemStore serves archives from memory, keyed by path.
type MemStore map[string]*Archive

// Open returns the archive stored at path.
func (m MemStore) Open(path string) (Handle, error) {
	a, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return a, nil
}
