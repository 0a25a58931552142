package testutil

import (
	"context"
	"sync"

	"ctfplatform/internal/realtime"
)

// RecordingSink captures emitted events in order.
type RecordingSink struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (s *RecordingSink) Emit(_ context.Context, event realtime.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns a copy of the recorded events.
func (s *RecordingSink) Events() []realtime.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]realtime.Event(nil), s.events...)
}

// Kinds returns the recorded event kinds.
func (s *RecordingSink) Kinds() []realtime.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]realtime.Kind, 0, len(s.events))
	for _, e := range s.events {
		kinds = append(kinds, e.Type)
	}
	return kinds
}

func (s *RecordingSink) Reset() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}
