// Package polyline provides continuous level-of-detail for open and
// closed polylines by vertex collapse.
//
// Each removable vertex gets a static weight, its distance to the
// segment joining its two neighbors divided by the segment length, and
// vertices leave in increasing weight order. The vertex and edge
// arrays are reordered so that switching between detail levels only
// patches edge endpoints in place; no geometry is recomputed at
// runtime.
package polyline

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/meshforge/clodmesh/pkg/minheap"
)

// ErrTooFewVertices rejects polylines below the collapsible minimum.
var ErrTooFewVertices = errors.New("too few vertices for a polyline")

// Polyline is a reducible polyline. The zero value is not usable; use
// New. Methods must not be called concurrently.
type Polyline struct {
	vertices []r3.Vec
	closed   bool

	// Live counts. The first numVertices entries of the vertex array
	// and the first 2*numEdges entries of the edge array are the
	// current level of detail.
	numVertices int
	numEdges    int

	edges []int32

	// edgeSlot[i] is the edge-array position patched when vertex i
	// leaves or re-enters the polyline.
	edgeSlot []int32

	vmin, vmax int
}

// New builds the collapse sequence for the given polyline at full
// detail. Open polylines need at least 2 vertices, closed ones at
// least 3. The segments are (V[i], V[i+1]), plus the wrap-around
// segment for a closed polyline.
func New(vertices []r3.Vec, closed bool) (*Polyline, error) {
	n := len(vertices)
	if closed {
		if n < 3 {
			return nil, fmt.Errorf("%w: closed polyline needs 3, got %d", ErrTooFewVertices, n)
		}
	} else if n < 2 {
		return nil, fmt.Errorf("%w: open polyline needs 2, got %d", ErrTooFewVertices, n)
	}

	p := &Polyline{
		vertices:    slices.Clone(vertices),
		closed:      closed,
		numVertices: n,
		vmin:        2,
		vmax:        n,
	}
	if closed {
		p.vmin = 3
	}
	p.build()
	return p, nil
}

// NumVertices returns the live vertex count.
func (p *Polyline) NumVertices() int {
	return p.numVertices
}

// Vertices returns the reordered vertex array. The first NumVertices
// entries are live at the current level of detail.
func (p *Polyline) Vertices() []r3.Vec {
	return p.vertices
}

// Closed reports whether the polyline wraps around.
func (p *Polyline) Closed() bool {
	return p.closed
}

// NumEdges returns the live edge count.
func (p *Polyline) NumEdges() int {
	return p.numEdges
}

// Edges returns the live edges, two vertex indices per edge.
func (p *Polyline) Edges() []int32 {
	return p.edges[:2*p.numEdges]
}

// MinLevelOfDetail returns the coarsest reachable vertex count: a
// single segment for an open polyline, a triangle for a closed one.
func (p *Polyline) MinLevelOfDetail() int {
	return p.vmin
}

// MaxLevelOfDetail returns the full-detail vertex count.
func (p *Polyline) MaxLevelOfDetail() int {
	return p.vmax
}

// LevelOfDetail returns the current vertex count.
func (p *Polyline) LevelOfDetail() int {
	return p.numVertices
}

// SetLevelOfDetail walks the polyline to the given vertex count,
// patching edge endpoints step by step. Counts outside
// [MinLevelOfDetail, MaxLevelOfDetail] are ignored.
func (p *Polyline) SetLevelOfDetail(numVertices int) {
	if numVertices < p.vmin || numVertices > p.vmax {
		return
	}

	for p.numVertices > numVertices {
		p.numVertices--
		p.edges[p.edgeSlot[p.numVertices]] = p.edges[2*p.numEdges-1]
		p.numEdges--
	}

	for p.numVertices < numVertices {
		p.numEdges++
		p.edges[p.edgeSlot[p.numVertices]] = int32(p.numVertices)
		p.numVertices++
	}
}

// build computes the collapse order and lays out the vertex and edge
// arrays so that the i-th array slot holds the i-th most important
// vertex. Polylines already at the coarsest level are laid out
// directly.
func (p *Polyline) build() {
	n := p.numVertices
	p.edgeSlot = make([]int32, n)

	if p.closed {
		p.numEdges = n
		p.edges = make([]int32, 2*n)
		if n == 3 {
			p.edgeSlot = []int32{0, 1, 3}
			p.edges = []int32{0, 1, 1, 2, 2, 0}
			return
		}
	} else {
		p.numEdges = n - 1
		p.edges = make([]int32, 2*(n-1))
		if n == 2 {
			p.edgeSlot = []int32{0, 1}
			p.edges = []int32{0, 1}
			return
		}
	}

	// Weigh every vertex. Open-polyline endpoints are not removable
	// and sink to the bottom of the order.
	heap := minheap.New[int32](n)
	qm1 := int32(n - 1)
	if p.closed {
		qm2 := qm1 - 1
		heap.Insert(0, p.weight(qm1, 0, 1))
		heap.Insert(qm1, p.weight(qm2, qm1, 0))
	} else {
		heap.Insert(0, math.Inf(1))
		heap.Insert(qm1, math.Inf(1))
	}
	for m, z, q := int32(0), int32(1), int32(2); z < qm1; m, z, q = m+1, z+1, q+1 {
		heap.Insert(z, p.weight(m, z, q))
	}

	// Drain into removal order: the first vertex to collapse lands in
	// the last slot.
	collapses := make([]int32, n)
	for i := n - 1; i >= 0; i-- {
		rec, ok := heap.PopMin()
		if !ok {
			break
		}
		collapses[i] = rec.Key()
	}

	if !p.closed {
		// The surviving segment is written as (collapses[0],
		// collapses[0]+1), so the left endpoint must land in slot 0
		// and the right endpoint in slot 1 whatever order the two
		// infinite weights drained in.
		if s := slices.Index(collapses, 0); s != 0 {
			collapses[0], collapses[s] = collapses[s], collapses[0]
		}
		if s := slices.Index(collapses, qm1); s != 1 {
			collapses[1], collapses[s] = collapses[s], collapses[1]
		}
	}

	p.computeEdges(collapses)
	p.reorderVertices(collapses)
}

// weight returns the collapse weight of vertex z between neighbors m
// and q: its distance to segment (m, q) relative to the segment
// length. Degenerate segments pin the vertex.
func (p *Polyline) weight(m, z, q int32) float64 {
	a := p.vertices[m]
	b := p.vertices[q]
	length := r3.Norm(r3.Sub(b, a))
	if length > 0 {
		return distPointSegment(p.vertices[z], a, b) / length
	}
	return math.Inf(1)
}

func distPointSegment(pt, a, b r3.Vec) float64 {
	dir := r3.Sub(b, a)
	t := r3.Dot(r3.Sub(pt, a), dir) / r3.Dot(dir, dir)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	closest := r3.Add(a, r3.Scale(t, dir))
	return r3.Norm(r3.Sub(pt, closest))
}

// computeEdges writes the edge array in removal order, records for
// each collapse vertex the edge slot its removal patches, and restores
// the array to full detail. Removing a vertex rewrites one endpoint
// slot; the matching patch value is the last live slot of the coarser
// level, which SetLevelOfDetail re-applies at runtime.
func (p *Polyline) computeEdges(collapses []int32) {
	n := len(collapses)
	eIndex := 2*p.numEdges - 1

	if p.closed {
		for i := n - 1; i >= 0; i-- {
			v := collapses[i]
			p.edges[eIndex] = (v + 1) % int32(n)
			eIndex--
			p.edges[eIndex] = v
			eIndex--
		}
	} else {
		for i := n - 1; i >= 2; i-- {
			v := collapses[i]
			p.edges[eIndex] = v + 1
			eIndex--
			p.edges[eIndex] = v
			eIndex--
		}
		v := collapses[0]
		p.edges[0] = v
		p.edges[1] = v + 1
	}

	// Simulate the collapses from finest to coarsest: find the one
	// live slot naming each removed vertex, remember it, and splice in
	// the tail slot the way a runtime decrease does. A vertex is named
	// by at most two live edges, and its earlier slot is the one that
	// survives the splice.
	eIndex = 2*p.numEdges - 1
	for i := n - 1; i >= 0; i-- {
		v := collapses[i]
		for e := 0; e < 2*p.numEdges; e++ {
			if p.edges[e] == v {
				p.edgeSlot[i] = int32(e)
				p.edges[e] = p.edges[eIndex]
				break
			}
		}
		eIndex -= 2

		if p.closed {
			if eIndex == 5 {
				break
			}
		} else {
			if eIndex == 1 {
				break
			}
		}
	}

	// Back to full detail.
	start := 2
	if p.closed {
		start = 3
	}
	for i := start; i < n; i++ {
		p.edges[p.edgeSlot[i]] = collapses[i]
	}
}

// reorderVertices permutes the vertex array into importance order and
// renames the edge endpoints accordingly: after this, vertex i of the
// array is exactly the vertex removed when the detail drops from i+1
// to i.
func (p *Polyline) reorderVertices(collapses []int32) {
	permute := make([]int32, len(collapses))
	permuted := make([]r3.Vec, len(collapses))
	for i, v := range collapses {
		permute[v] = int32(i)
		permuted[i] = p.vertices[v]
	}

	for i := range p.edges {
		p.edges[i] = permute[p.edges[i]]
	}
	p.vertices = permuted
}
