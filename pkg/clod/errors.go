package clod

import "errors"

// Input validation errors. Create returns one of these, wrapped with
// context, when the vertex or index buffer is unusable for edge
// collapsing. Nothing is mutated in that case.
var (
	ErrIndexCount          = errors.New("index count must be a multiple of 3")
	ErrIndexOutOfRange     = errors.New("vertex index out of range")
	ErrDegenerateTriangle  = errors.New("degenerate triangle in index buffer")
	ErrRepeatedTriangle    = errors.New("index buffer contains repeated triangles")
	ErrUnreferencedVertex  = errors.New("index buffer does not reference all vertices")
	ErrTooFewRecords       = errors.New("record list must start with the full-detail record")
	ErrInconsistentRecords = errors.New("collapse records are inconsistent with the index buffer")
)

// ErrInvariant reports an internal inconsistency detected mid-operation.
// It always indicates a bug in this package, never bad caller input.
var ErrInvariant = errors.New("internal invariant violated")

// IsValidation reports whether err belongs to the input-validation
// category, as opposed to an internal invariant failure.
func IsValidation(err error) bool {
	for _, sentinel := range []error{
		ErrIndexCount,
		ErrIndexOutOfRange,
		ErrDegenerateTriangle,
		ErrRepeatedTriangle,
		ErrUnreferencedVertex,
		ErrTooFewRecords,
		ErrInconsistentRecords,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
