package scheduler

import (
	"sort"

	"github.com/inference-sim/hybrid-des/internal/event"
)

// mapScheduler keeps events in a map keyed by event id and re-sorts them
// into a (Timestamp, Sequence)-ordered slice lazily, on the first
// PeekNext/RemoveNext after an Insert or RemoveByID. Insert is O(1); the
// O(n log n) sort is only paid when the order is actually needed.
type mapScheduler struct {
	events map[event.ID]*event.Event
	dirty  bool
	sorted []*event.Event
}

func newMapScheduler() *mapScheduler {
	return &mapScheduler{
		events: make(map[event.ID]*event.Event),
	}
}

func (m *mapScheduler) Insert(e *event.Event) {
	m.events[e.ID()] = e
	m.dirty = true
}

func (m *mapScheduler) resort() {
	if !m.dirty {
		return
	}
	m.sorted = m.sorted[:0]
	for _, e := range m.events {
		m.sorted = append(m.sorted, e)
	}
	sort.Slice(m.sorted, func(i, j int) bool {
		return event.Less(m.sorted[i], m.sorted[j])
	})
	m.dirty = false
}

func (m *mapScheduler) PeekNext() *event.Event {
	m.resort()
	if len(m.sorted) == 0 {
		return nil
	}
	return m.sorted[0]
}

func (m *mapScheduler) RemoveNext() *event.Event {
	m.resort()
	if len(m.sorted) == 0 {
		return nil
	}
	e := m.sorted[0]
	m.sorted = m.sorted[1:]
	delete(m.events, e.ID())
	return e
}

func (m *mapScheduler) RemoveByID(id event.ID) bool {
	if _, ok := m.events[id]; !ok {
		return false
	}
	delete(m.events, id)
	m.dirty = true
	return true
}

func (m *mapScheduler) IsEmpty() bool {
	return len(m.events) == 0
}

func (m *mapScheduler) Len() int {
	return len(m.events)
}
