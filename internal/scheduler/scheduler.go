// Package scheduler implements the per-LP priority queue. All state is
// private to one LP; the dispatcher never reaches into a Scheduler from more
// than one worker at a time.
package scheduler

import "github.com/inference-sim/hybrid-des/internal/event"

// Scheduler is the pluggable contract every backend implements. The
// dispatcher depends only on this interface, never on a concrete backend.
type Scheduler interface {
	// Insert adds an event, keyed by (Timestamp, Sequence).
	Insert(e *event.Event)
	// PeekNext returns the smallest-keyed event without removing it, or nil
	// if empty.
	PeekNext() *event.Event
	// RemoveNext removes and returns the smallest-keyed event, or nil if
	// empty.
	RemoveNext() *event.Event
	// RemoveByID removes the event with the given id, if present. Returns
	// false, a non-error idempotent no-op, if not found.
	RemoveByID(id event.ID) bool
	// IsEmpty reports whether the scheduler holds no events.
	IsEmpty() bool
	// Len reports the number of events currently held.
	Len() int
}

// Kind selects a Scheduler backend via New.
type Kind string

const (
	// KindHeap is the default binary-heap backend (O(log n) insert/remove).
	KindHeap Kind = "heap"
	// KindMap is a simple map-backed backend that sorts lazily when the
	// next event is requested, useful for small LPs or debugging where
	// heap reshuffling is undesirable.
	KindMap Kind = "map"
)

// New constructs a Scheduler of the requested kind. Unknown kinds fall back
// to KindHeap rather than erroring, since an invalid scheduler kind still
// has a sane default (unlike an invalid --log level, which does not).
func New(kind Kind) Scheduler {
	switch kind {
	case KindMap:
		return newMapScheduler()
	default:
		return newHeapScheduler()
	}
}
