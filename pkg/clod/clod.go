// Package clod builds continuous level-of-detail representations of
// triangle meshes by greedy edge collapse.
//
// Create consumes a vertex array and a triangle index array and
// produces reordered copies of both plus an ordered list of collapse
// records. Each record removes one vertex and two triangles, so
// truncating the reordered buffers at a record's counts yields that
// intermediate level of detail, and Mesh replays the records in either
// direction at runtime.
//
// Edges collapse in nondecreasing cost order. An edge is a candidate
// only while it is 2-manifold, a collapse never moves a boundary or
// junction vertex, and a collapse that would fold the surface over
// itself is rejected. The whole pipeline is deterministic: the same
// input always produces the same output.
package clod

import (
	"fmt"
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/meshforge/clodmesh/pkg/geom"
)

// VertexAtom is the element type of the vertex buffer to be decimated.
// The engine reads only the position; everything else in the atom is
// carried through reordering untouched.
type VertexAtom interface {
	Position() r3.Vec
}

// Point is a position-only VertexAtom.
type Point r3.Vec

// Position implements VertexAtom.
func (p Point) Position() r3.Vec {
	return r3.Vec(p)
}

// Options configure a Creator.
type Options struct {
	// LengthWeight scales the edge-length term of the collapse cost.
	LengthWeight float64

	// AngleWeight scales the dihedral term, the cross product of the
	// area-weighted normals of the two triangles sharing the edge.
	AngleWeight float64

	// Logger receives debug-level progress. Defaults to a nop logger.
	Logger *zap.Logger
}

// DefaultOptions returns the default creator options.
func DefaultOptions() Options {
	return Options{
		LengthWeight: 10.0,
		AngleWeight:  1.0,
		Logger:       zap.NewNop(),
	}
}

// Result is the continuous LOD representation of a mesh. Vertices and
// Indices hold the full-detail mesh reordered so that entities removed
// by collapse i occupy the highest slots still live at record i-1;
// Records[0] is the full-detail sentinel.
type Result[V VertexAtom] struct {
	Vertices []V
	Indices  []int32
	Records  []CollapseRecord
}

// Walker returns a Mesh positioned at full detail over the result's
// index buffer and records. The buffer is cloned, so several walkers
// can share one Result.
func (r *Result[V]) Walker() (*Mesh, error) {
	return NewMesh(r.Indices, r.Records)
}

// Creator runs the edge-collapse pipeline. A Creator is reusable but
// not concurrency-safe: Create resets all intermediate state, so calls
// must be sequential. Independent Creators are fully isolated.
type Creator[V VertexAtom] struct {
	opts Options
	log  *zap.Logger

	atoms        []V
	indices      []int32
	numTriangles int32

	g graph

	collapses          []collapseInfo
	verticesRemaining  []int32
	trianglesRemaining []int32
}

// New returns a Creator with the given option overrides applied on top
// of DefaultOptions.
func New[V VertexAtom](optFns ...func(o *Options)) *Creator[V] {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Creator[V]{opts: opts, log: log}
}

// Create decimates the mesh (vertexAtoms, indices) and returns its
// continuous LOD representation. The inputs are never mutated. On any
// validation or invariant failure the result is nil and no partial
// output exists.
func (c *Creator[V]) Create(vertexAtoms []V, indices []int32) (*Result[V], error) {
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w: got %d indices", ErrIndexCount, len(indices))
	}

	c.atoms = slices.Clone(vertexAtoms)
	c.indices = slices.Clone(indices)
	c.numTriangles = int32(len(indices) / 3)
	c.collapses = c.collapses[:0]
	c.verticesRemaining = c.verticesRemaining[:0]
	c.trianglesRemaining = c.trianglesRemaining[:0]

	if err := c.validateBuffers(); err != nil {
		return nil, err
	}

	c.log.Debug("building topology graph",
		zap.Int("vertices", len(c.atoms)),
		zap.Int32("triangles", c.numTriangles))

	c.g.reset(len(c.atoms), len(c.indices))
	for t := int32(0); t < c.numTriangles; t++ {
		tk := geom.NewTriangleKey(c.indices[3*t], c.indices[3*t+1], c.indices[3*t+2])
		c.g.insertTriangle(tk, t)
	}

	c.g.classifyCollapsibleVertices()

	// Assign the initial collapse costs in sorted edge order so the
	// heap layout, and with it any cost ties, resolve the same way on
	// every run.
	for _, ek := range c.g.sortedEdgeKeys() {
		if !c.g.heap.Update(c.g.edges[ek].record, c.computeMetric(ek)) {
			return nil, fmt.Errorf("%w: stale heap record for edge %v", ErrInvariant, ek)
		}
	}

	if err := c.collapseAll(); err != nil {
		return nil, err
	}

	if err := c.validateResults(); err != nil {
		return nil, err
	}

	c.reorderBuffers()
	records := c.computeRecords()

	c.log.Debug("edge collapse finished",
		zap.Int("collapses", len(c.collapses)),
		zap.Int("verticesRemaining", len(c.verticesRemaining)),
		zap.Int("trianglesRemaining", len(c.trianglesRemaining)))

	return &Result[V]{Vertices: c.atoms, Indices: c.indices, Records: records}, nil
}

// validateBuffers rejects input the collapse algorithm cannot handle:
// degenerate or repeated triangles, out-of-range indices, and vertices
// never referenced by the index buffer. Unreferenced vertices are a
// problem because the vertex buffer is reordered by collapse time, so
// any external index buffer over it would silently go stale.
func (c *Creator[V]) validateBuffers() error {
	seen := make(map[geom.TriangleKey]struct{}, c.numTriangles)
	referenced := roaring.New()
	numVertices := int32(len(c.atoms))

	for t := int32(0); t < c.numTriangles; t++ {
		v0 := c.indices[3*t]
		v1 := c.indices[3*t+1]
		v2 := c.indices[3*t+2]

		for _, v := range [3]int32{v0, v1, v2} {
			if v < 0 || v >= numVertices {
				return fmt.Errorf("%w: index %d in triangle %d, vertex count %d",
					ErrIndexOutOfRange, v, t, numVertices)
			}
		}
		if v0 == v1 || v0 == v2 || v1 == v2 {
			return fmt.Errorf("%w: triangle %d = (%d,%d,%d)",
				ErrDegenerateTriangle, t, v0, v1, v2)
		}

		tk := geom.NewTriangleKey(v0, v1, v2)
		if _, dup := seen[tk]; dup {
			return fmt.Errorf("%w: triangle %d = (%d,%d,%d)",
				ErrRepeatedTriangle, t, v0, v1, v2)
		}
		seen[tk] = struct{}{}

		referenced.Add(uint32(v0))
		referenced.Add(uint32(v1))
		referenced.Add(uint32(v2))
	}

	if referenced.GetCardinality() != uint64(numVertices) {
		return fmt.Errorf("%w: %d of %d vertices referenced",
			ErrUnreferencedVertex, referenced.GetCardinality(), numVertices)
	}
	return nil
}

// collapseAll drains the edge heap: collapse the cheapest edge, or
// retire it to infinite cost when it is not safely collapsible. An
// infinite minimum means every remaining edge is pinned, which ends
// the run normally even if nothing collapsed at all.
func (c *Creator[V]) collapseAll() error {
	for c.g.heap.Len() > 0 {
		rec, _ := c.g.heap.Min()
		if math.IsInf(rec.Weight(), 1) {
			break
		}

		ek := rec.Key()
		vKeep, vThrow, ok, err := c.canCollapse(ek)
		if err != nil {
			return err
		}
		if !ok {
			if !c.g.heap.Update(rec, math.Inf(1)) {
				return fmt.Errorf("%w: stale heap record for edge %v", ErrInvariant, ek)
			}
			continue
		}
		if err := c.collapse(ek, vKeep, vThrow); err != nil {
			return err
		}
	}
	return nil
}

// computeMetric returns the collapse cost of an edge. Only 2-manifold
// edges may collapse; boundary edges (one adjacent triangle) and
// junction edges (three or more) cost +Inf.
func (c *Creator[V]) computeMetric(ek geom.EdgeKey) float64 {
	e := c.g.edges[ek]
	if len(e.adjTriangles) != 2 {
		return math.Inf(1)
	}

	p0 := c.atoms[ek.V[0]].Position()
	p1 := c.atoms[ek.V[1]].Position()
	metric := c.opts.LengthWeight * r3.Norm(r3.Sub(p1, p0))

	n0 := c.faceNormal(e.adjTriangles[0])
	n1 := c.faceNormal(e.adjTriangles[1])
	metric += c.opts.AngleWeight * r3.Norm(r3.Cross(n0, n1))
	return metric
}

// faceNormal returns the non-normalized CCW normal of the triangle, so
// its magnitude carries the triangle area into the dihedral term.
func (c *Creator[V]) faceNormal(tk geom.TriangleKey) r3.Vec {
	p0 := c.atoms[tk.V[0]].Position()
	p1 := c.atoms[tk.V[1]].Position()
	p2 := c.atoms[tk.V[2]].Position()
	return r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p0))
}

// canCollapse decides whether the edge may collapse and which endpoint
// to throw. The throw preference is fixed: the first endpoint if it is
// collapsible, else the second, else reject. The survivor then must not
// flip any triangle around the thrown vertex: for each such triangle
// the CCW normal recomputed with the keep position must stay within 90
// degrees of the original.
func (c *Creator[V]) canCollapse(ek geom.EdgeKey) (vKeep, vThrow int32, ok bool, err error) {
	switch {
	case c.g.vertices[ek.V[0]].collapsible:
		vThrow, vKeep = ek.V[0], ek.V[1]
	case c.g.vertices[ek.V[1]].collapsible:
		vThrow, vKeep = ek.V[1], ek.V[0]
	default:
		return 0, 0, false, nil
	}

	posKeep := c.atoms[vKeep].Position()
	posThrow := c.atoms[vThrow].Position()

	for _, tk := range c.g.vertices[vThrow].adjTriangles {
		j0 := vertexSlot(tk, vThrow)
		if j0 < 0 {
			return 0, 0, false, fmt.Errorf("%w: triangle %v adjacent to vertex %d without containing it",
				ErrInvariant, tk, vThrow)
		}

		posM := c.atoms[tk.V[(j0+2)%3]].Position()
		posP := c.atoms[tk.V[(j0+1)%3]].Position()

		normalThrow := r3.Cross(r3.Sub(posP, posThrow), r3.Sub(posM, posThrow))
		normalKeep := r3.Cross(r3.Sub(posP, posKeep), r3.Sub(posM, posKeep))

		// The two triangles sharing the collapsed edge degenerate to
		// zero area here and pass; all others must not fold over.
		if r3.Dot(normalThrow, normalKeep) < 0 {
			return 0, 0, false, nil
		}
	}

	return vKeep, vThrow, true, nil
}

// collapse removes vThrow by merging it into vKeep. The two triangles
// sharing the edge are destroyed; every other triangle around vThrow is
// re-inserted with vKeep substituted, keeping its output ordinal, and
// every edge of those replacements gets its cost recomputed.
func (c *Creator[V]) collapse(ek geom.EdgeKey, vKeep, vThrow int32) error {
	info := collapseInfo{vKeep: vKeep, vThrow: vThrow, tThrow0: -1, tThrow1: -1}

	// Removal mutates the adjacency set, so iterate a snapshot. The
	// snapshot is sorted, which fixes the discovery order of the two
	// destroyed triangles.
	needRemoval := c.g.vertices[vThrow].adjTriangles.clone()
	keepInfo := make([][3]int32, 0, len(needRemoval))

	for _, tk := range needRemoval {
		j0 := vertexSlot(tk, vThrow)
		if j0 < 0 {
			return fmt.Errorf("%w: triangle %v adjacent to vertex %d without containing it",
				ErrInvariant, tk, vThrow)
		}
		ord, present := c.g.triangles[tk]
		if !present {
			return fmt.Errorf("%w: triangle %v missing from the registry", ErrInvariant, tk)
		}

		tuple := [3]int32{tk.V[(j0+1)%3], tk.V[(j0+2)%3], ord}
		switch {
		case tuple[0] != vKeep && tuple[1] != vKeep:
			keepInfo = append(keepInfo, tuple)
		case info.tThrow0 == -1:
			info.tThrow0 = ord
		case info.tThrow1 == -1:
			info.tThrow1 = ord
		default:
			return fmt.Errorf("%w: more than two triangles share collapsed edge %v", ErrInvariant, ek)
		}

		if err := c.g.removeTriangle(tk); err != nil {
			return err
		}
	}

	if info.tThrow0 == -1 || info.tThrow1 == -1 {
		return fmt.Errorf("%w: collapsed edge %v shared by fewer than two triangles", ErrInvariant, ek)
	}
	c.collapses = append(c.collapses, info)

	// Re-insert the surviving triangles with vKeep in place of vThrow,
	// preserving their ordinals, then recompute the cost of every edge
	// they touch. Both passes run in sorted order.
	slices.SortFunc(keepInfo, func(a, b [3]int32) int {
		for i := 0; i < 3; i++ {
			if a[i] < b[i] {
				return -1
			}
			if a[i] > b[i] {
				return 1
			}
		}
		return 0
	})

	var needUpdate keySet[geom.EdgeKey]
	for _, tuple := range keepInfo {
		v0, v1, v2 := vKeep, tuple[0], tuple[1]
		c.g.insertTriangle(geom.NewTriangleKey(v0, v1, v2), tuple[2])
		needUpdate.insert(geom.NewEdgeKey(v0, v1))
		needUpdate.insert(geom.NewEdgeKey(v1, v2))
		needUpdate.insert(geom.NewEdgeKey(v2, v0))
	}

	for _, uk := range needUpdate {
		e, present := c.g.edges[uk]
		if !present {
			return fmt.Errorf("%w: edge %v vanished before its cost update", ErrInvariant, uk)
		}
		if !c.g.heap.Update(e.record, c.computeMetric(uk)) {
			return fmt.Errorf("%w: stale heap record for edge %v", ErrInvariant, uk)
		}
	}
	return nil
}

// vertexSlot returns the slot of v in the triangle key, or -1.
func vertexSlot(tk geom.TriangleKey, v int32) int {
	for j := 0; j < 3; j++ {
		if tk.V[j] == v {
			return j
		}
	}
	return -1
}
