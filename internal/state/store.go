// Package state holds the in-memory models read by the client UI. Each model is a
// pure reducer over typed actions plus an observable store; mutations go through the
// local store first and only then reach the model.
package state

import "sync"

// Reducer returns the state that results from applying a to s. It must not modify s.
type Reducer[S, A any] func(s S, a A) S

// Store holds a state value and notifies subscribers after every dispatch.
type Store[S, A any] struct {
	mu      sync.Mutex
	reducer Reducer[S, A]
	state   S
	subs    map[int]func(S)
	nextSub int
}

func NewStore[S, A any](reducer Reducer[S, A], initial S) *Store[S, A] {
	return &Store[S, A]{
		reducer: reducer,
		state:   initial,
		subs:    make(map[int]func(S)),
	}
}

func (s *Store[S, A]) State() S {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Dispatch applies a and calls every subscriber with the new state. Subscribers run
// on the dispatching goroutine, outside the store's lock.
func (s *Store[S, A]) Dispatch(a A) {
	s.mu.Lock()
	s.state = s.reducer(s.state, a)
	next := s.state

	subs := make([]func(S), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store[S, A]) Subscribe(fn func(S)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.subs, id)
	}
}
