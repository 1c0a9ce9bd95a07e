package minheap

import (
	"math"
	"testing"
)

func TestHeap_PopOrder(t *testing.T) {
	h := New[string](8)
	h.Insert("c", 3.0)
	h.Insert("a", 1.0)
	h.Insert("d", 4.0)
	h.Insert("b", 2.0)

	want := []string{"a", "b", "c", "d"}
	for _, key := range want {
		r, ok := h.PopMin()
		if !ok {
			t.Fatalf("PopMin() empty, want %q", key)
		}
		if r.Key() != key {
			t.Errorf("PopMin() = %q, want %q", r.Key(), key)
		}
	}
	if _, ok := h.PopMin(); ok {
		t.Error("PopMin() on empty heap returned ok")
	}
}

func TestHeap_MinPeeks(t *testing.T) {
	h := New[int](4)
	h.Insert(10, 5.0)
	h.Insert(20, 2.0)

	r, ok := h.Min()
	if !ok || r.Key() != 20 {
		t.Fatalf("Min() = %v, %v, want key 20", r, ok)
	}
	if h.Len() != 2 {
		t.Errorf("Len() = %d after Min(), want 2", h.Len())
	}
}

func TestHeap_UpdateReorders(t *testing.T) {
	h := New[int](4)
	a := h.Insert(1, 1.0)
	h.Insert(2, 2.0)
	h.Insert(3, 3.0)

	// Push the current minimum past everything else.
	if !h.Update(a, 10.0) {
		t.Fatal("Update() on live record returned false")
	}
	r, _ := h.Min()
	if r.Key() != 2 {
		t.Errorf("Min() after update = %d, want 2", r.Key())
	}

	// And bring it back to the front.
	if !h.Update(a, 0.5) {
		t.Fatal("Update() on live record returned false")
	}
	r, _ = h.Min()
	if r.Key() != 1 {
		t.Errorf("Min() after second update = %d, want 1", r.Key())
	}
	if r.Weight() != 0.5 {
		t.Errorf("Weight() = %v, want 0.5", r.Weight())
	}
}

func TestHeap_RemoveByHandle(t *testing.T) {
	h := New[int](4)
	h.Insert(1, 1.0)
	mid := h.Insert(2, 2.0)
	h.Insert(3, 3.0)

	if !h.Remove(mid) {
		t.Fatal("Remove() on live record returned false")
	}
	if h.Len() != 2 {
		t.Fatalf("Len() = %d after remove, want 2", h.Len())
	}
	if mid.InHeap() {
		t.Error("removed record still reports InHeap()")
	}

	got := []int{}
	for {
		r, ok := h.PopMin()
		if !ok {
			break
		}
		got = append(got, r.Key())
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("remaining pop order = %v, want [1 3]", got)
	}
}

func TestHeap_StaleHandleRejected(t *testing.T) {
	h := New[int](4)
	r := h.Insert(1, 1.0)
	h.PopMin()

	if h.Update(r, 5.0) {
		t.Error("Update() on popped record returned true")
	}
	if h.Remove(r) {
		t.Error("Remove() on popped record returned true")
	}
}

func TestHeap_InfiniteWeights(t *testing.T) {
	h := New[int](4)
	h.Insert(1, math.Inf(1))
	h.Insert(2, 7.0)

	r, _ := h.Min()
	if r.Key() != 2 {
		t.Errorf("Min() = %d, want finite-weight key 2", r.Key())
	}

	h.PopMin()
	r, _ = h.Min()
	if !math.IsInf(r.Weight(), 1) {
		t.Errorf("Weight() = %v, want +Inf", r.Weight())
	}
}

func TestHeap_Deterministic(t *testing.T) {
	build := func() []int {
		h := New[int](16)
		recs := make([]*Record[int], 0, 8)
		for i := 0; i < 8; i++ {
			recs = append(recs, h.Insert(i, float64(8-i)))
		}
		h.Update(recs[3], 0.5)
		h.Remove(recs[5])
		out := []int{}
		for {
			r, ok := h.PopMin()
			if !ok {
				break
			}
			out = append(out, r.Key())
		}
		return out
	}

	first := build()
	second := build()
	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("pop %d differs: %d vs %d", i, first[i], second[i])
		}
	}
}
