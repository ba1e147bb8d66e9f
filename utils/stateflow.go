package utils

import "sync"

// StateFlow holds the latest value of a piece of UI state and pushes every
// change to its subscribers. Subscribers are conflated: a slow reader only
// ever sees the newest value, never a backlog.
type StateFlow[T any] struct {
	mu     sync.Mutex
	value  T
	subs   map[int]chan T
	nextID int
}

// NewStateFlow creates a StateFlow holding initial
func NewStateFlow[T any](initial T) *StateFlow[T] {
	return &StateFlow[T]{
		value: initial,
		subs:  make(map[int]chan T),
	}
}

// Value returns the current value
func (s *StateFlow[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set replaces the current value and notifies subscribers
func (s *StateFlow[T]) Set(value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish(value)
}

// Update atomically derives the next value from the current one
func (s *StateFlow[T]) Update(fn func(T) T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := fn(s.value)
	s.publish(next)
	return next
}

// publish must be called with s.mu held
func (s *StateFlow[T]) publish(value T) {
	s.value = value
	for _, ch := range s.subs {
		offer(ch, value)
	}
}

// Subscribe returns a channel that immediately yields the current value and
// then every later one. Calling cancel closes the channel.
func (s *StateFlow[T]) Subscribe() (<-chan T, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	ch := make(chan T, 1)
	ch <- s.value
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// offer replaces whatever is buffered in ch with value
func offer[T any](ch chan T, value T) {
	for {
		select {
		case ch <- value:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
