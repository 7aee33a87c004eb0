// Package ds holds the ordered containers used by the chunk and merge phases.
//
// The heap started from https://github.com/zyedidia/generic/blob/master/heap/heap.go at 98022f9
package ds

// CompareFn is a function that returns:
//   - negative value if a < b
//   - zero if a == b
//   - positive value if a > b
type CompareFn[T any] func(a, b T) int

// Heap is a binary min-heap ordered by its CompareFn. Elements that compare
// equal pop in an unspecified order.
type Heap[T any] struct {
	data    []T
	compare CompareFn[T]
}

// NewHeap returns a new heap with the given compare function and capacity.
func NewHeap[T any](compare CompareFn[T], cap int) *Heap[T] {
	return &Heap[T]{
		data:    make([]T, 0, cap),
		compare: compare,
	}
}

// Push pushes the given element onto the heap.
func (h *Heap[T]) Push(x T) {
	h.data = append(h.data, x)
	h.up(len(h.data) - 1)
}

// Pop removes and returns the minimum element from the heap.
func (h *Heap[T]) Pop() (T, bool) {
	var x T
	if h.IsEmpty() {
		return x, false
	}

	x = h.data[0]
	n := len(h.data) - 1
	h.data[0] = h.data[n]
	h.data[n] = *new(T) // drop the reference held by the old tail slot
	h.data = h.data[:n]
	if n > 0 {
		h.down(0)
	}
	return x, true
}

// Peek returns the minimum element from the heap without removing it. if the
// heap is empty, it returns zero value and false.
func (h *Heap[T]) Peek() (T, bool) {
	if h.IsEmpty() {
		var x T
		return x, false
	}
	return h.data[0], true
}

// Size returns the number of elements in the heap.
func (h *Heap[T]) Size() int {
	return len(h.data)
}

func (h *Heap[T]) IsEmpty() bool {
	return len(h.data) == 0
}

func (h *Heap[T]) down(i int) {
	for {
		left, right := 2*i+1, 2*i+2
		if left >= len(h.data) || left < 0 { // `left < 0` in case of overflow
			return
		}

		// find the smallest child
		j := left
		if right < len(h.data) && h.compare(h.data[right], h.data[left]) < 0 {
			j = right
		}

		if h.compare(h.data[j], h.data[i]) >= 0 {
			return
		}

		h.data[i], h.data[j] = h.data[j], h.data[i]
		i = j
	}
}

func (h *Heap[T]) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.compare(h.data[i], h.data[parent]) >= 0 {
			return
		}
		h.data[i], h.data[parent] = h.data[parent], h.data[i]
		i = parent
	}
}
