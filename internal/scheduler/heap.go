package scheduler

import (
	"container/heap"

	"github.com/inference-sim/hybrid-des/internal/event"
)

// heapScheduler implements Scheduler with container/heap, ordered by
// (Timestamp, Sequence), with an id index so RemoveByID need not scan.
type heapScheduler struct {
	events []*event.Event
	index  map[event.ID]int // event id -> position in events
}

func newHeapScheduler() *heapScheduler {
	h := &heapScheduler{
		events: make([]*event.Event, 0),
		index:  make(map[event.ID]int),
	}
	heap.Init(h)
	return h
}

// Len implements heap.Interface.
func (h *heapScheduler) Len() int { return len(h.events) }

// Less implements heap.Interface: (Timestamp, Sequence) order.
func (h *heapScheduler) Less(i, j int) bool {
	return event.Less(h.events[i], h.events[j])
}

// Swap implements heap.Interface, keeping the id index consistent.
func (h *heapScheduler) Swap(i, j int) {
	h.events[i], h.events[j] = h.events[j], h.events[i]
	h.index[h.events[i].ID()] = i
	h.index[h.events[j].ID()] = j
}

// Push implements heap.Interface.
func (h *heapScheduler) Push(x any) {
	e := x.(*event.Event)
	h.index[e.ID()] = len(h.events)
	h.events = append(h.events, e)
}

// Pop implements heap.Interface.
func (h *heapScheduler) Pop() any {
	old := h.events
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	h.events = old[:n-1]
	delete(h.index, e.ID())
	return e
}

func (h *heapScheduler) Insert(e *event.Event) {
	heap.Push(h, e)
}

func (h *heapScheduler) PeekNext() *event.Event {
	if len(h.events) == 0 {
		return nil
	}
	return h.events[0]
}

func (h *heapScheduler) RemoveNext() *event.Event {
	if len(h.events) == 0 {
		return nil
	}
	return heap.Pop(h).(*event.Event)
}

func (h *heapScheduler) RemoveByID(id event.ID) bool {
	pos, ok := h.index[id]
	if !ok {
		return false
	}
	heap.Remove(h, pos)
	return true
}

func (h *heapScheduler) IsEmpty() bool {
	return len(h.events) == 0
}
