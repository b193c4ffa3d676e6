// Package field implements the sparse volumetric containers consumed by the
// node graph: scalar fields carrying fog-volume or level-set semantics, and
// three-component vector fields. Voxels are stored in dense 8x8x8 leaves keyed
// by leaf origin; only leaves that were written exist.
package field
