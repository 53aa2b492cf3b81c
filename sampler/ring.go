package sampler

import "sync"

// Ring is a fixed-capacity sample buffer. Once full, each Add evicts the
// oldest sample. It is safe for concurrent use.
type Ring struct {
	mu   sync.Mutex
	buf  []Sample
	head int // index of the oldest sample
	size int
}

// NewRing creates a Ring holding at most capacity samples. A capacity
// below one is treated as one.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}

	return &Ring{buf: make([]Sample, capacity)}
}

// Add appends s, evicting the oldest sample when the ring is full.
func (r *Ring) Add(s Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = s
		r.size++

		return
	}

	r.buf[r.head] = s
	r.head = (r.head + 1) % len(r.buf)
}

// Len returns the number of samples held.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.size
}

// Cap returns the fixed capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Snapshot copies the held samples, oldest first.
func (r *Ring) Snapshot() Series {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(Series, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}

	return out
}
