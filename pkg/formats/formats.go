// Package formats provides mesh file I/O: Wavefront OBJ text meshes
// and the binary .clod continuous-LOD container.
package formats

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is an indexed triangle mesh with position-only vertices.
type Mesh struct {
	Positions []r3.Vec
	Indices   []int32
}

// NumTriangles returns the number of triangles in the index buffer.
func (m *Mesh) NumTriangles() int {
	return len(m.Indices) / 3
}

// Bounds returns the axis-aligned bounding box of the positions.
// An empty mesh yields zero vectors.
func (m *Mesh) Bounds() (min, max r3.Vec) {
	if len(m.Positions) == 0 {
		return r3.Vec{}, r3.Vec{}
	}
	min, max = m.Positions[0], m.Positions[0]
	for _, p := range m.Positions[1:] {
		min.X = math.Min(min.X, p.X)
		min.Y = math.Min(min.Y, p.Y)
		min.Z = math.Min(min.Z, p.Z)
		max.X = math.Max(max.X, p.X)
		max.Y = math.Max(max.Y, p.Y)
		max.Z = math.Max(max.Z, p.Z)
	}
	return min, max
}
