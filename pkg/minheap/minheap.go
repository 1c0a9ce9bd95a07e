// Package minheap provides a binary min-heap with stable record handles.
//
// Each inserted key is wrapped in a Record that the caller retains. The
// record keeps tracking its entry as the heap reorders itself, so the
// caller can reprioritise or delete arbitrary entries in O(log n)
// without searching. All operations are deterministic for a given
// sequence of calls.
package minheap

import "container/heap"

// Record is the handle for one heap entry. A record stays valid across
// weight updates and is invalidated when it leaves the heap.
type Record[K any] struct {
	key    K
	weight float64
	index  int
}

// Key returns the key the record was inserted with.
func (r *Record[K]) Key() K {
	return r.key
}

// Weight returns the record's current weight.
func (r *Record[K]) Weight() float64 {
	return r.weight
}

// InHeap reports whether the record is still queued.
func (r *Record[K]) InHeap() bool {
	return r.index >= 0
}

// recordSlice implements heap.Interface. Swap keeps each record's index
// in sync with its slot so handles survive sifting.
type recordSlice[K any] []*Record[K]

func (s recordSlice[K]) Len() int { return len(s) }

func (s recordSlice[K]) Less(i, j int) bool { return s[i].weight < s[j].weight }

func (s recordSlice[K]) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
	s[i].index = i
	s[j].index = j
}

func (s *recordSlice[K]) Push(x any) {
	r := x.(*Record[K])
	r.index = len(*s)
	*s = append(*s, r)
}

func (s *recordSlice[K]) Pop() any {
	old := *s
	n := len(old)
	r := old[n-1]
	old[n-1] = nil
	*s = old[:n-1]
	return r
}

// Heap is a min-heap of keys ordered by weight.
type Heap[K any] struct {
	records recordSlice[K]
}

// New returns an empty heap with room for capacity records.
func New[K any](capacity int) *Heap[K] {
	return &Heap[K]{records: make(recordSlice[K], 0, capacity)}
}

// Len returns the number of queued records.
func (h *Heap[K]) Len() int {
	return len(h.records)
}

// Insert queues key with the given weight and returns its handle.
func (h *Heap[K]) Insert(key K, weight float64) *Record[K] {
	r := &Record[K]{key: key, weight: weight, index: -1}
	heap.Push(&h.records, r)
	return r
}

// Min returns the minimum-weight record without removing it. The second
// result is false when the heap is empty.
func (h *Heap[K]) Min() (*Record[K], bool) {
	if len(h.records) == 0 {
		return nil, false
	}
	return h.records[0], true
}

// PopMin removes and returns the minimum-weight record. The second
// result is false when the heap is empty.
func (h *Heap[K]) PopMin() (*Record[K], bool) {
	if len(h.records) == 0 {
		return nil, false
	}
	r := heap.Pop(&h.records).(*Record[K])
	r.index = -1
	return r, true
}

// Update changes the record's weight and restores heap order. It
// returns false if the record is no longer queued in this heap.
func (h *Heap[K]) Update(r *Record[K], weight float64) bool {
	if !h.owns(r) {
		return false
	}
	r.weight = weight
	heap.Fix(&h.records, r.index)
	return true
}

// Remove deletes the record from the heap regardless of its position.
// It returns false if the record is no longer queued in this heap.
func (h *Heap[K]) Remove(r *Record[K]) bool {
	if !h.owns(r) {
		return false
	}
	heap.Remove(&h.records, r.index)
	r.index = -1
	return true
}

func (h *Heap[K]) owns(r *Record[K]) bool {
	return r != nil && r.index >= 0 && r.index < len(h.records) && h.records[r.index] == r
}
