package clod

import (
	"fmt"
	"slices"
)

// collapseInfo is one executed edge collapse in graph terms: the kept
// and thrown vertex plus the output ordinals of the two triangles the
// collapse destroyed.
type collapseInfo struct {
	vKeep, vThrow    int32
	tThrow0, tThrow1 int32
}

// CollapseRecord is one step of the LOD sequence. Applying the record
// to the full-detail index buffer substitutes VKeep for VThrow at the
// listed buffer positions and truncates the live mesh to NumVertices
// and NumTriangles. Record 0 is the full-detail sentinel: initial
// counts, VKeep = VThrow = -1, no positions.
type CollapseRecord struct {
	VKeep, VThrow int32
	NumVertices   int32
	NumTriangles  int32
	Indices       []int32
}

// validateResults checks the bookkeeping after the collapse loop ends
// and gathers the surviving vertices and triangles for reordering.
// Triangles are collected in sorted key order, vertices in ascending
// index order.
func (c *Creator[V]) validateResults() error {
	expectedTriangles := 2*len(c.collapses) + len(c.g.triangles)
	if int(c.numTriangles) != expectedTriangles {
		return fmt.Errorf("%w: %d input triangles but %d collapses left %d live",
			ErrInvariant, c.numTriangles, len(c.collapses), len(c.g.triangles))
	}

	for _, tk := range c.g.sortedTriangleKeys() {
		c.trianglesRemaining = append(c.trianglesRemaining, c.g.triangles[tk])
	}

	for i := range c.g.vertices {
		v := &c.g.vertices[i]
		hasEdges := len(v.adjEdges) > 0
		hasTriangles := len(v.adjTriangles) > 0
		if hasEdges != hasTriangles {
			return fmt.Errorf("%w: vertex %d has edges=%t but triangles=%t",
				ErrInvariant, i, hasEdges, hasTriangles)
		}
		if hasEdges {
			c.verticesRemaining = append(c.verticesRemaining, int32(i))
		}
	}

	expectedVertices := len(c.collapses) + len(c.verticesRemaining)
	if len(c.g.vertices) != expectedVertices {
		return fmt.Errorf("%w: %d input vertices but %d collapses left %d live",
			ErrInvariant, len(c.g.vertices), len(c.collapses), len(c.verticesRemaining))
	}
	return nil
}

// reorderBuffers renumbers vertices and triangles in decreasing time
// of removal: the first vertex thrown by a collapse becomes the last
// vertex of the buffer, the first destroyed triangle pair becomes the
// last two triangles, and the survivors fill the front. Truncating the
// reordered buffers therefore realizes any intermediate LOD. The index
// buffer and the recorded collapses are remapped into the new
// numbering.
func (c *Creator[V]) reorderBuffers() {
	numVertices := int32(len(c.atoms))
	vertexNewToOld := make([]int32, numVertices)
	vertexOldToNew := make([]int32, numVertices)
	vNew := numVertices - 1

	for _, col := range c.collapses {
		vertexNewToOld[vNew] = col.vThrow
		vertexOldToNew[col.vThrow] = vNew
		vNew--
	}
	for _, vOld := range c.verticesRemaining {
		vertexNewToOld[vNew] = vOld
		vertexOldToNew[vOld] = vNew
		vNew--
	}

	newAtoms := make([]V, numVertices)
	for i := int32(0); i < numVertices; i++ {
		newAtoms[i] = c.atoms[vertexNewToOld[i]]
	}
	c.atoms = newAtoms

	triangleNewToOld := make([]int32, c.numTriangles)
	tNew := c.numTriangles - 1

	for _, col := range c.collapses {
		triangleNewToOld[tNew] = col.tThrow0
		tNew--
		triangleNewToOld[tNew] = col.tThrow1
		tNew--
	}
	for _, tOld := range c.trianglesRemaining {
		triangleNewToOld[tNew] = tOld
		tNew--
	}

	newIndices := make([]int32, len(c.indices))
	for t := int32(0); t < c.numTriangles; t++ {
		tOld := triangleNewToOld[t]
		copy(newIndices[3*t:3*t+3], c.indices[3*tOld:3*tOld+3])
	}
	c.indices = newIndices

	for i := range c.indices {
		c.indices[i] = vertexOldToNew[c.indices[i]]
	}

	for i := range c.collapses {
		c.collapses[i].vKeep = vertexOldToNew[c.collapses[i].vKeep]
		c.collapses[i].vThrow = vertexOldToNew[c.collapses[i].vThrow]
	}
}

// computeRecords converts the collapse sequence into replayable
// records against the reordered buffers. A working copy of the index
// buffer tracks the substitutions so each record scans exactly the
// index prefix that is live once its collapse has been applied.
func (c *Creator[V]) computeRecords() []CollapseRecord {
	records := make([]CollapseRecord, len(c.collapses)+1)
	records[0] = CollapseRecord{
		VKeep:        -1,
		VThrow:       -1,
		NumVertices:  int32(len(c.atoms)),
		NumTriangles: c.numTriangles,
	}

	indices := slices.Clone(c.indices)
	numVertices := int32(len(c.atoms))
	numTriangles := c.numTriangles

	for i, col := range c.collapses {
		rec := &records[i+1]
		rec.VKeep = col.vKeep
		rec.VThrow = col.vThrow

		// An edge collapse loses one vertex and two triangles.
		numVertices--
		rec.NumVertices = numVertices
		numTriangles -= 2
		rec.NumTriangles = numTriangles

		numIndices := 3 * numTriangles
		for j := int32(0); j < numIndices; j++ {
			if indices[j] == rec.VThrow {
				rec.Indices = append(rec.Indices, j)
				indices[j] = rec.VKeep
			}
		}
	}
	return records
}
