// Package dedup rejects duplicate inbound webhook deliveries by event ID.
//
// The filter is advisory, not a correctness guarantee: once an entry is
// evicted a replay of that event passes the filter again. Downstream effects
// stay safe because the conversation flow gates its single side effect on an
// explicit confirmation transition.
package dedup

import (
	"container/list"
	"sync"
)

// DefaultCapacity bounds the number of remembered event IDs.
const DefaultCapacity = 1000

// Filter is a bounded insertion-ordered set of recently seen event IDs.
// The oldest entry is evicted once capacity is exceeded.
type Filter struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	index    map[string]*list.Element
}

// NewFilter creates a Filter with the given capacity; non-positive values
// fall back to DefaultCapacity.
func NewFilter(capacity int) *Filter {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Filter{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element, capacity),
	}
}

// Seen reports whether eventID is currently remembered.
func (f *Filter) Seen(eventID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.index[eventID]
	return ok
}

// Mark records eventID, evicting the oldest entry when full. Marking an
// already-known ID is a no-op and does not refresh its position.
func (f *Filter) Mark(eventID string) {
	f.SeenOrMark(eventID)
}

// SeenOrMark records eventID and reports whether it was already known. The
// check and the insert share one lock, so of two simultaneous deliveries of
// the same event exactly one observes false.
func (f *Filter) SeenOrMark(eventID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.index[eventID]; ok {
		return true
	}
	for f.order.Len() >= f.capacity {
		oldest := f.order.Front()
		f.order.Remove(oldest)
		delete(f.index, oldest.Value.(string))
	}
	f.index[eventID] = f.order.PushBack(eventID)
	return false
}

// Len returns the number of remembered IDs.
func (f *Filter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.order.Len()
}
