package resonator

// History is a fixed-capacity ring of the most recent novelty samples.
// Once full it overwrites the oldest sample on every push. It is owned by a
// single goroutine and performs no locking or allocation after construction.
type History struct {
	data []float64
	pos  int
	fill int
}

// NewHistory creates a history ring holding up to capacity samples.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}

	return &History{
		data: make([]float64, capacity),
	}
}

// Push appends a sample, evicting the oldest when the ring is full.
func (h *History) Push(v float64) {
	h.data[h.pos] = v
	h.pos++
	if h.pos == len(h.data) {
		h.pos = 0
	}
	if h.fill < len(h.data) {
		h.fill++
	}
}

// Fill returns the number of samples currently stored.
func (h *History) Fill() int {
	return h.fill
}

// Capacity returns the maximum number of samples the ring can hold.
func (h *History) Capacity() int {
	return len(h.data)
}

// Tail copies the n most recent samples into dst, oldest first, and returns
// how many were copied. n is capped by the current fill and by len(dst).
func (h *History) Tail(dst []float64, n int) int {
	if n > h.fill {
		n = h.fill
	}
	if n > len(dst) {
		n = len(dst)
	}
	if n == 0 {
		return 0
	}

	start := h.pos - n
	if start < 0 {
		start += len(h.data)
	}

	first := copy(dst[:n], h.data[start:])
	if first < n {
		copy(dst[first:n], h.data[:n-first])
	}

	return n
}

// Reset discards all stored samples.
func (h *History) Reset() {
	for i := range h.data {
		h.data[i] = 0
	}
	h.pos = 0
	h.fill = 0
}
