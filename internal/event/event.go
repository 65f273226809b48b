// Package event defines the immutable event descriptor shared by every
// logical process: a simulated timestamp, a context, a per-LP sequence
// number used as tie-break and identity, cancellation, and a one-shot
// payload. The sequence counter is owned by each LP individually, monotonic
// within that LP but never global.
package event

import "math"

// NoContext is the distinguished "no routing context" value.
const NoContext uint32 = math.MaxUint32

// DestroyUID marks a teardown event; such events live in the process-wide
// destroy queue rather than being executed in the normal round loop.
const DestroyUID uint64 = math.MaxUint64

// ID identifies one event for cancellation/removal. Unique within the
// owning LP: a (sequence) is sufficient since sequence is monotonic and
// never reused within one LP's lifetime.
type ID uint64

// Payload is invoked exactly once, when the event executes.
type Payload func()

// Event is the immutable descriptor scheduled by one LP. "Immutable"
// refers to Timestamp/Context/UID/Payload; Cancelled is the one mutable bit,
// flipped by Cancel. Sequence is fixed once the event sits in the scheduler
// of the LP that executes it: an event that reaches an LP through its inbox
// is given that LP's next sequence number when the inbox is drained.
type Event struct {
	Timestamp int64
	Context   uint32
	Sequence  uint64
	UID       uint64
	Cancelled bool
	Payload   Payload
}

// New builds an event with the given fields. UID may be DestroyUID to mark
// a teardown event; Context may be NoContext for events with no routing
// target.
func New(timestamp int64, context uint32, sequence uint64, uid uint64, payload Payload) *Event {
	return &Event{
		Timestamp: timestamp,
		Context:   context,
		Sequence:  sequence,
		UID:       uid,
		Payload:   payload,
	}
}

// ID returns the identity used for Cancel/Remove/IsExpired lookups.
func (e *Event) ID() ID {
	return ID(e.Sequence)
}

// Cancel flips the cancelled flag. The scheduler still returns a cancelled
// event from RemoveNext; the LP must skip executing it.
func (e *Event) Cancel() {
	e.Cancelled = true
}

// Less orders two events by (Timestamp, Sequence), the total order required
// among events of one LP.
func Less(a, b *Event) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.Sequence < b.Sequence
}
