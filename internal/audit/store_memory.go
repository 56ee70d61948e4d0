package audit

import (
	"context"
	"sync"
)

// DefaultMemoryCapacity is how many events the in-memory store retains.
const DefaultMemoryCapacity = 1000

// InMemoryStore keeps the most recent events in process, evicting the oldest
// once capacity is reached. Used when no broker is configured and in tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	events   []Event
	next     int
	capacity int
}

// StoreOption configures an InMemoryStore.
type StoreOption func(*InMemoryStore)

// WithCapacity sets the number of events retained. Non-positive values keep
// the default.
func WithCapacity(n int) StoreOption {
	return func(s *InMemoryStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

func NewInMemoryStore(opts ...StoreOption) *InMemoryStore {
	s := &InMemoryStore{capacity: DefaultMemoryCapacity}
	for _, opt := range opts {
		opt(s)
	}
	s.events = make([]Event, 0, s.capacity)
	return s
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) < s.capacity {
		s.events = append(s.events, event)
		return nil
	}
	s.events[s.next] = event
	s.next = (s.next + 1) % s.capacity
	return nil
}

func (s *InMemoryStore) ListByVisitor(_ context.Context, visitorID string) ([]Event, error) {
	var out []Event
	for _, e := range s.All() {
		if e.VisitorID == visitorID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns the retained events oldest first.
func (s *InMemoryStore) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, 0, len(s.events))
	out = append(out, s.events[s.next:]...)
	out = append(out, s.events[:s.next]...)
	return out
}
