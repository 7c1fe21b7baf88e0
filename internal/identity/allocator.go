package identity

import "sync"

// IDAllocator hands out monotonically increasing person IDs. It is seeded
// from the highest persisted ID so that resumed campaigns keep allocating
// past previously registered persons.
type IDAllocator struct {
	mu   sync.Mutex
	next int64
}

// NewIDAllocator returns an allocator whose next ID is last+1.
func NewIDAllocator(last int64) *IDAllocator {
	return &IDAllocator{next: last + 1}
}

func (a *IDAllocator) Next() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.next
	a.next++
	return id
}
