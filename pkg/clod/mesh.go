package clod

import (
	"fmt"
	"slices"
)

// Mesh replays collapse records over a full-detail index buffer for
// runtime LOD selection. Record 0 is full detail; higher targets are
// coarser. Moving the target rewrites only the affected index-buffer
// positions, so stepping between nearby levels is cheap. The live mesh
// at any target is the prefix LiveIndices() over the first NumVertices
// vertices of the reordered vertex buffer.
//
// A Mesh owns a private copy of the index buffer. It is not safe for
// concurrent use.
type Mesh struct {
	indices []int32
	records []CollapseRecord
	target  int
}

// NewMesh builds a walker at full detail. The records must form a
// valid collapse chain over the buffer: the sentinel's triangle count
// matches the buffer, counts step by one vertex and two triangles per
// record, and every recorded position lies inside the prefix that is
// live once its record applies.
func NewMesh(indices []int32, records []CollapseRecord) (*Mesh, error) {
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w: got %d indices", ErrIndexCount, len(indices))
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty record list", ErrTooFewRecords)
	}

	sentinel := records[0]
	if sentinel.NumTriangles != int32(len(indices)/3) {
		return nil, fmt.Errorf("%w: sentinel declares %d triangles, buffer holds %d",
			ErrInconsistentRecords, sentinel.NumTriangles, len(indices)/3)
	}

	prevV, prevT := sentinel.NumVertices, sentinel.NumTriangles
	for i, rec := range records[1:] {
		if rec.NumVertices != prevV-1 || rec.NumTriangles != prevT-2 {
			return nil, fmt.Errorf("%w: record %d counts (%d,%d) do not follow (%d,%d)",
				ErrInconsistentRecords, i+1, rec.NumVertices, rec.NumTriangles, prevV, prevT)
		}
		if rec.NumVertices < 1 || rec.NumTriangles < 0 {
			return nil, fmt.Errorf("%w: record %d collapses past an empty mesh", ErrInconsistentRecords, i+1)
		}
		// Reordering puts the thrown vertex right at the new live
		// vertex count and the kept vertex below it.
		if rec.VThrow != rec.NumVertices || rec.VKeep < 0 || rec.VKeep >= rec.NumVertices {
			return nil, fmt.Errorf("%w: record %d has vKeep=%d vThrow=%d for %d live vertices",
				ErrInconsistentRecords, i+1, rec.VKeep, rec.VThrow, rec.NumVertices)
		}
		for _, p := range rec.Indices {
			if p < 0 || p >= 3*rec.NumTriangles {
				return nil, fmt.Errorf("%w: record %d position %d outside live prefix %d",
					ErrInconsistentRecords, i+1, p, 3*rec.NumTriangles)
			}
		}
		prevV, prevT = rec.NumVertices, rec.NumTriangles
	}

	return &Mesh{indices: slices.Clone(indices), records: records}, nil
}

// NumRecords returns the number of records including the sentinel.
func (m *Mesh) NumRecords() int {
	return len(m.records)
}

// TargetRecord returns the current record index.
func (m *Mesh) TargetRecord() int {
	return m.target
}

// NumVertices returns the live vertex count at the current target.
func (m *Mesh) NumVertices() int32 {
	return m.records[m.target].NumVertices
}

// NumTriangles returns the live triangle count at the current target.
func (m *Mesh) NumTriangles() int32 {
	return m.records[m.target].NumTriangles
}

// Indices returns the full backing index buffer. Positions beyond the
// live prefix keep their full-detail values.
func (m *Mesh) Indices() []int32 {
	return m.indices
}

// LiveIndices returns the live prefix of the index buffer at the
// current target. The slice aliases the backing buffer.
func (m *Mesh) LiveIndices() []int32 {
	return m.indices[:3*m.records[m.target].NumTriangles]
}

// SetTargetRecord walks the mesh to the given record, clamped to the
// valid range. Walking forward applies each record's substitution of
// the kept vertex; walking backward restores the thrown vertex. It
// returns true if the target changed.
func (m *Mesh) SetTargetRecord(target int) bool {
	if target < 0 {
		target = 0
	}
	if maxTarget := len(m.records) - 1; target > maxTarget {
		target = maxTarget
	}
	if target == m.target {
		return false
	}

	for m.target < target {
		m.target++
		rec := &m.records[m.target]
		for _, p := range rec.Indices {
			m.indices[p] = rec.VKeep
		}
	}
	for m.target > target {
		rec := &m.records[m.target]
		for _, p := range rec.Indices {
			m.indices[p] = rec.VThrow
		}
		m.target--
	}
	return true
}
