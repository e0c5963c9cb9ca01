package topn

import (
	"math/rand"
	"slices"
	"sort"
	"testing"
)

type scored struct {
	id    int
	count int64
}

func better(a, b scored) bool {
	if a.count != b.count {
		return a.count > b.count
	}
	return a.id < b.id
}

func TestHeap_KeepsBestN(t *testing.T) {
	h := New(3, better)
	for i, c := range []int64{5, 1, 9, 7, 3, 9} {
		h.Offer(scored{id: i, count: c})
	}
	got := h.Drain()
	want := []scored{{2, 9}, {5, 9}, {3, 7}}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if h.Len() != 0 {
		t.Errorf("drain should empty the heap")
	}
}

func TestHeap_EarlyReject(t *testing.T) {
	h := New(2, better)
	h.Offer(scored{1, 10})
	h.Offer(scored{2, 20})

	if h.Offer(scored{3, 10}) {
		t.Error("candidate tied with bottom but higher id should be rejected")
	}
	if h.Offer(scored{4, 5}) {
		t.Error("candidate below bottom should be rejected")
	}
	if !h.Offer(scored{0, 10}) {
		t.Error("candidate tied with bottom and lower id should be kept")
	}
	bottom, ok := h.Bottom()
	if !ok || bottom.id != 0 {
		t.Errorf("bottom = %v, want id 0", bottom)
	}
}

func TestHeap_ZeroCapacity(t *testing.T) {
	h := New(0, better)
	if h.Offer(scored{1, 1}) {
		t.Error("zero-capacity heap must reject")
	}
	if _, ok := h.Bottom(); ok {
		t.Error("empty heap has no bottom")
	}
	if len(h.Drain()) != 0 {
		t.Error("expected empty drain")
	}
}

func TestHeap_DeterministicAcrossInsertionOrder(t *testing.T) {
	items := make([]scored, 200)
	for i := range items {
		items[i] = scored{id: i, count: int64(i % 7)}
	}
	want := slices.Clone(items)
	sort.Slice(want, func(i, j int) bool { return better(want[i], want[j]) })
	want = want[:10]

	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 5; round++ {
		rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
		h := New(10, better)
		for _, it := range items {
			h.Offer(it)
		}
		if got := h.Drain(); !slices.Equal(got, want) {
			t.Fatalf("round %d: got %v, want %v", round, got, want)
		}
	}
}

func BenchmarkHeap_Offer(b *testing.B) {
	h := New(100, better)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		h.Offer(scored{id: i, count: int64(i % 1000)})
	}
}
