// Package topn selects the best N items from a stream with a fixed-capacity,
// array-backed binary heap.
package topn

// Heap keeps the n best items seen so far. The root is the current worst
// retained item (the bottom threshold). better(a, b) reports whether a ranks
// strictly before b; it must be a strict total order for deterministic output.
type Heap[T any] struct {
	items  []T
	n      int
	better func(a, b T) bool
}

// New creates a Heap retaining at most n items. n <= 0 retains nothing.
func New[T any](n int, better func(a, b T) bool) *Heap[T] {
	if n < 0 {
		n = 0
	}
	return &Heap[T]{items: make([]T, 0, n), n: n, better: better}
}

// Len returns the number of retained items.
func (h *Heap[T]) Len() int { return len(h.items) }

// Full reports whether the heap holds n items.
func (h *Heap[T]) Full() bool { return len(h.items) == h.n }

// Bottom returns the worst retained item.
func (h *Heap[T]) Bottom() (T, bool) {
	if len(h.items) == 0 {
		var zero T
		return zero, false
	}
	return h.items[0], true
}

// Offer adds v if it qualifies and reports whether it was kept. Once the heap
// is full, a candidate that does not rank before the bottom item is rejected
// without touching the heap.
func (h *Heap[T]) Offer(v T) bool {
	if len(h.items) < h.n {
		h.items = append(h.items, v)
		h.up(len(h.items) - 1)
		return true
	}
	if h.n == 0 || !h.better(v, h.items[0]) {
		return false
	}
	h.items[0] = v
	h.down(0)
	return true
}

// Drain empties the heap and returns its items best first.
func (h *Heap[T]) Drain() []T {
	out := make([]T, len(h.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = h.pop()
	}
	return out
}

func (h *Heap[T]) pop() T {
	last := len(h.items) - 1
	out := h.items[0]
	h.items[0] = h.items[last]
	var zero T
	h.items[last] = zero
	h.items = h.items[:last]
	if last > 0 {
		h.down(0)
	}
	return out
}

// worse orders the heap: the root is the item every other item ranks before.
func (h *Heap[T]) worse(i, j int) bool {
	return h.better(h.items[j], h.items[i])
}

func (h *Heap[T]) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.worse(i, parent) {
			return
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *Heap[T]) down(i int) {
	n := len(h.items)
	for {
		left := 2*i + 1
		if left >= n {
			return
		}
		worst := left
		if right := left + 1; right < n && h.worse(right, left) {
			worst = right
		}
		if !h.worse(worst, i) {
			return
		}
		h.items[i], h.items[worst] = h.items[worst], h.items[i]
		i = worst
	}
}
