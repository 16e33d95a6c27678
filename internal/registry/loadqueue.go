package registry

import (
	"sync"

	"protoforge/internal/proto"
)

// LoadQueue tracks handles whose raw prototype has been parsed but not yet
// registered, so status queries can tell "still loading" apart from "never
// seen". It carries its own lock; the loader queues from parse goroutines
// while the registry drains it.
type LoadQueue struct {
	mu      sync.Mutex
	handles map[proto.Handle]proto.ID
	ids     map[proto.ID]int
}

func NewLoadQueue() *LoadQueue {
	return &LoadQueue{
		handles: make(map[proto.Handle]proto.ID),
		ids:     make(map[proto.ID]int),
	}
}

// Enqueue records a parsed handle awaiting registration. Queueing a handle
// twice is a no-op.
func (q *LoadQueue) Enqueue(handle proto.Handle, id proto.ID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.handles[handle]; ok {
		return
	}
	q.handles[handle] = id
	q.ids[id]++
}

// Dequeue removes a handle from the queue, if queued.
func (q *LoadQueue) Dequeue(handle proto.Handle) {
	q.mu.Lock()
	defer q.mu.Unlock()
	id, ok := q.handles[handle]
	if !ok {
		return
	}
	delete(q.handles, handle)
	if q.ids[id]--; q.ids[id] <= 0 {
		delete(q.ids, id)
	}
}

// IsQueued reports whether any handle claiming the identifier is queued.
func (q *LoadQueue) IsQueued(id proto.ID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ids[id] > 0
}

// IsQueuedHandle reports whether the handle is queued.
func (q *LoadQueue) IsQueuedHandle(handle proto.Handle) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.handles[handle]
	return ok
}

// Len returns the number of queued handles.
func (q *LoadQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.handles)
}
