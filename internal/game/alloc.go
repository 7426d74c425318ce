package game

import (
	"fmt"

	"distworld.dev/internal/do"
)

// Allocator hands out avatar do_ids from a fixed inclusive range, skipping
// ids that are still active. The cursor wraps so freed ids get reused only
// after the range has cycled.
type Allocator struct {
	start, end uint32
	next       uint32
}

func NewAllocator(start, end uint32) *Allocator {
	return &Allocator{start: start, end: end, next: start}
}

// Next returns a free id, probing at most the full range once.
func (a *Allocator) Next(inUse func(uint32) bool) (uint32, error) {
	span := a.end - a.start + 1
	for i := uint32(0); i < span; i++ {
		id := a.next
		a.next++
		if a.next > a.end {
			a.next = a.start
		}
		if !inUse(id) {
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: range [%d, %d]", do.ErrAllocationExhausted, a.start, a.end)
}
