package observer

import "sync"

// Queue coalesces refresh requests. Requests for an id already pending
// are dropped, so each id runs at most once per Flush, in the order it
// was first requested.
type Queue struct {
	mu      sync.Mutex
	pending []queued
	index   map[uint64]struct{}
}

type queued struct {
	id uint64
	fn func()
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{index: make(map[uint64]struct{})}
}

// Request schedules fn under id unless id is already pending.
// Reports whether fn was queued.
func (q *Queue) Request(id uint64, fn func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.index[id]; ok {
		return false
	}
	q.index[id] = struct{}{}
	q.pending = append(q.pending, queued{id: id, fn: fn})
	return true
}

// Pending returns the number of queued requests.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Flush runs every pending request and returns how many ran. Requests
// made while flushing are queued for the next Flush.
func (q *Queue) Flush() int {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.index = make(map[uint64]struct{})
	q.mu.Unlock()

	for _, item := range batch {
		item.fn()
	}
	return len(batch)
}
