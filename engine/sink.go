package engine

import (
	"sync"

	"github.com/sarcophagus-org/sarco-engine/interfaces"
)

// MemorySink keeps the most recent events in a bounded ring for the audit
// endpoint. Older events are dropped once the capacity is reached.
type MemorySink struct {
	mu       sync.Mutex
	events   []interfaces.Event
	capacity int
}

// NewMemorySink creates a sink retaining up to capacity events.
func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemorySink{capacity: capacity}
}

func (s *MemorySink) Emit(event interfaces.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if len(s.events) > s.capacity {
		s.events = s.events[len(s.events)-s.capacity:]
	}
}

// Events returns a copy of the retained events, oldest first.
func (s *MemorySink) Events() []interfaces.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]interfaces.Event(nil), s.events...)
}

// EventsFor returns the retained events for one sarcophagus, oldest first.
func (s *MemorySink) EventsFor(id interfaces.SarcophagusID) []interfaces.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []interfaces.Event
	for _, event := range s.events {
		if event.SarcophagusID() == id {
			out = append(out, event)
		}
	}
	return out
}
