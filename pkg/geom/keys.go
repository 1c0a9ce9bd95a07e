// Package geom provides canonical topology keys for triangle meshes.
//
// Mesh connectivity is tracked with value keys rather than pointers: an
// edge is identified by its unordered vertex pair and a triangle by its
// vertex triple up to cyclic rotation. Both key types are comparable, so
// they can be used directly as map keys, and both define a total order
// so key sets can be kept sorted for deterministic iteration.
package geom

import "fmt"

// EdgeKey identifies an undirected edge by its two vertex indices,
// stored with V[0] < V[1].
type EdgeKey struct {
	V [2]int32
}

// NewEdgeKey builds the canonical key for the edge between v0 and v1.
func NewEdgeKey(v0, v1 int32) EdgeKey {
	if v0 < v1 {
		return EdgeKey{V: [2]int32{v0, v1}}
	}
	return EdgeKey{V: [2]int32{v1, v0}}
}

// Has reports whether v is one of the edge's endpoints.
func (k EdgeKey) Has(v int32) bool {
	return k.V[0] == v || k.V[1] == v
}

// Compare returns -1, 0 or +1 ordering keys lexicographically.
func (k EdgeKey) Compare(other EdgeKey) int {
	for i := 0; i < 2; i++ {
		if k.V[i] < other.V[i] {
			return -1
		}
		if k.V[i] > other.V[i] {
			return 1
		}
	}
	return 0
}

// Less reports whether k orders before other.
func (k EdgeKey) Less(other EdgeKey) bool {
	return k.Compare(other) < 0
}

// String returns the key as "(v0,v1)".
func (k EdgeKey) String() string {
	return fmt.Sprintf("(%d,%d)", k.V[0], k.V[1])
}

// TriangleKey identifies an oriented triangle by its three vertex
// indices. The stored triple is the cyclic rotation that places the
// smallest index first, so (1,2,0), (2,0,1) and (0,1,2) map to the same
// key while the reversed winding (0,2,1) does not.
type TriangleKey struct {
	V [3]int32
}

// NewTriangleKey builds the canonical key for the oriented triangle
// (v0, v1, v2).
func NewTriangleKey(v0, v1, v2 int32) TriangleKey {
	if v0 < v1 {
		if v0 < v2 {
			return TriangleKey{V: [3]int32{v0, v1, v2}}
		}
		return TriangleKey{V: [3]int32{v2, v0, v1}}
	}
	if v1 < v2 {
		return TriangleKey{V: [3]int32{v1, v2, v0}}
	}
	return TriangleKey{V: [3]int32{v2, v0, v1}}
}

// Has reports whether v is one of the triangle's vertices.
func (k TriangleKey) Has(v int32) bool {
	return k.V[0] == v || k.V[1] == v || k.V[2] == v
}

// Compare returns -1, 0 or +1 ordering keys lexicographically.
func (k TriangleKey) Compare(other TriangleKey) int {
	for i := 0; i < 3; i++ {
		if k.V[i] < other.V[i] {
			return -1
		}
		if k.V[i] > other.V[i] {
			return 1
		}
	}
	return 0
}

// Less reports whether k orders before other.
func (k TriangleKey) Less(other TriangleKey) bool {
	return k.Compare(other) < 0
}

// String returns the key as "(v0,v1,v2)".
func (k TriangleKey) String() string {
	return fmt.Sprintf("(%d,%d,%d)", k.V[0], k.V[1], k.V[2])
}
