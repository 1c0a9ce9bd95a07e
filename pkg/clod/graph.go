package clod

import (
	"fmt"
	"math"
	"slices"

	"github.com/meshforge/clodmesh/pkg/geom"
	"github.com/meshforge/clodmesh/pkg/minheap"
)

// keySet is a sorted slice of canonical keys. Iterating a keySet visits
// keys in increasing order, which is what makes collapse processing
// deterministic. The zero value is an empty set.
type keySet[K interface{ Compare(K) int }] []K

func (s keySet[K]) search(k K) (int, bool) {
	return slices.BinarySearchFunc(s, k, func(a, b K) int { return a.Compare(b) })
}

func (s *keySet[K]) insert(k K) bool {
	i, found := s.search(k)
	if found {
		return false
	}
	*s = slices.Insert(*s, i, k)
	return true
}

func (s *keySet[K]) remove(k K) bool {
	i, found := s.search(k)
	if !found {
		return false
	}
	*s = slices.Delete(*s, i, i+1)
	return true
}

func (s keySet[K]) contains(k K) bool {
	_, found := s.search(k)
	return found
}

func (s keySet[K]) clone() keySet[K] {
	return slices.Clone(s)
}

// vertex tracks the edges and triangles sharing one mesh vertex.
type vertex struct {
	adjEdges     keySet[geom.EdgeKey]
	adjTriangles keySet[geom.TriangleKey]
	collapsible  bool
}

// edgeEntry tracks the triangles sharing one mesh edge together with
// the edge's handle in the collapse-cost heap.
type edgeEntry struct {
	adjTriangles keySet[geom.TriangleKey]
	record       *minheap.Record[geom.EdgeKey]
}

// graph is the vertex-edge-triangle adjacency structure. Vertices live
// in a slice indexed by vertex id; edges and triangles are keyed by
// their canonical keys. Triangle values are the ordinal slots the
// triangles occupy in the output index buffer.
type graph struct {
	vertices  []vertex
	edges     map[geom.EdgeKey]*edgeEntry
	triangles map[geom.TriangleKey]int32
	heap      *minheap.Heap[geom.EdgeKey]
}

func (g *graph) reset(numVertices, heapCapacity int) {
	g.vertices = make([]vertex, numVertices)
	for i := range g.vertices {
		g.vertices[i].collapsible = true
	}
	g.edges = make(map[geom.EdgeKey]*edgeEntry)
	g.triangles = make(map[geom.TriangleKey]int32)
	g.heap = minheap.New[geom.EdgeKey](heapCapacity)
}

func triangleEdges(tk geom.TriangleKey) [3]geom.EdgeKey {
	return [3]geom.EdgeKey{
		geom.NewEdgeKey(tk.V[0], tk.V[1]),
		geom.NewEdgeKey(tk.V[1], tk.V[2]),
		geom.NewEdgeKey(tk.V[2], tk.V[0]),
	}
}

// insertTriangle adds the triangle with ordinal t to the graph, wiring
// up vertex and edge adjacency. A first-seen edge is queued in the heap
// with an infinite cost; real costs are assigned by the metric passes.
func (g *graph) insertTriangle(tk geom.TriangleKey, t int32) {
	ek := triangleEdges(tk)

	// Each triangle vertex is adjacent to the triangle and to its two
	// incident edges.
	for i0, i1 := 2, 0; i1 < 3; i0, i1 = i1, i1+1 {
		v := &g.vertices[tk.V[i1]]
		v.adjEdges.insert(ek[i0])
		v.adjEdges.insert(ek[i1])
		v.adjTriangles.insert(tk)
	}

	for i := 0; i < 3; i++ {
		e, ok := g.edges[ek[i]]
		if !ok {
			e = &edgeEntry{record: g.heap.Insert(ek[i], math.Inf(1))}
			g.edges[ek[i]] = e
		}
		e.adjTriangles.insert(tk)
	}

	if _, ok := g.triangles[tk]; !ok {
		g.triangles[tk] = t
	}
}

// removeTriangle detaches the triangle from the graph. An edge left
// with no adjacent triangles is dropped entirely: its heap record is
// deleted and both endpoint vertices forget the edge.
func (g *graph) removeTriangle(tk geom.TriangleKey) error {
	ek := triangleEdges(tk)

	for i := 0; i < 3; i++ {
		g.vertices[tk.V[i]].adjTriangles.remove(tk)
	}

	for i0, i1 := 2, 0; i1 < 3; i0, i1 = i1, i1+1 {
		e, ok := g.edges[ek[i0]]
		if !ok {
			return fmt.Errorf("%w: edge %v missing while removing triangle %v", ErrInvariant, ek[i0], tk)
		}
		e.adjTriangles.remove(tk)
		if len(e.adjTriangles) == 0 {
			if !g.heap.Remove(e.record) {
				return fmt.Errorf("%w: heap record for edge %v already released", ErrInvariant, ek[i0])
			}
			g.vertices[tk.V[i0]].adjEdges.remove(ek[i0])
			g.vertices[tk.V[i1]].adjEdges.remove(ek[i0])
			delete(g.edges, ek[i0])
		}
	}

	delete(g.triangles, tk)
	return nil
}

// classifyCollapsibleVertices marks every vertex that touches a
// boundary edge (one adjacent triangle) or a junction edge (three or
// more) as non-collapsible. Only interior 2-manifold neighborhoods may
// lose their vertex.
func (g *graph) classifyCollapsibleVertices() {
	for i := range g.vertices {
		v := &g.vertices[i]
		for _, ek := range v.adjEdges {
			if len(g.edges[ek].adjTriangles) != 2 {
				v.collapsible = false
				break
			}
		}
	}
}

// sortedEdgeKeys returns all live edge keys in increasing order.
func (g *graph) sortedEdgeKeys() []geom.EdgeKey {
	keys := make([]geom.EdgeKey, 0, len(g.edges))
	for ek := range g.edges {
		keys = append(keys, ek)
	}
	slices.SortFunc(keys, func(a, b geom.EdgeKey) int { return a.Compare(b) })
	return keys
}

// sortedTriangleKeys returns all live triangle keys in increasing order.
func (g *graph) sortedTriangleKeys() []geom.TriangleKey {
	keys := make([]geom.TriangleKey, 0, len(g.triangles))
	for tk := range g.triangles {
		keys = append(keys, tk)
	}
	slices.SortFunc(keys, func(a, b geom.TriangleKey) int { return a.Compare(b) })
	return keys
}
