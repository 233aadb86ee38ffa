// Package observer provides the two dispatch modes the pipeline uses to
// fan notifications out to registered observers: synchronous (observers
// run in registration order on the notifying goroutine, one failing
// observer never blocks the rest) and asynchronous (each observer runs
// as a detached goroutine, with a wait point for tests).
package observer

import (
	"log"
	"sync"
)

// Observer is a callback registered with a Subject.
type Observer[T any] func(T)

// Subject is a synchronous, ordered fan-out point. Registration order
// is notification order. A panicking observer is recovered and logged;
// it never prevents later observers from running.
type Subject[T any] struct {
	mu        sync.Mutex
	observers []Observer[T]
}

// Register adds an observer. Subjects are append-only and not
// deduplicated by identity since Go funcs are not comparable; callers
// are expected to register each observer exactly once.
func (s *Subject[T]) Register(o Observer[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Notify calls every registered observer, in registration order, on
// the calling goroutine.
func (s *Subject[T]) Notify(value T) {
	s.mu.Lock()
	observers := make([]Observer[T], len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, notify := range observers {
		s.safeCall(notify, value)
	}
}

func (s *Subject[T]) safeCall(notify Observer[T], value T) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("observer panic recovered: %v", r)
		}
	}()
	notify(value)
}

// Observable exposes registration without notification rights, for
// handing to components that should only subscribe.
type Observable[T any] struct {
	subject *Subject[T]
}

// NewObservable wraps subject for read-only (registration-only) access.
func NewObservable[T any](subject *Subject[T]) Observable[T] {
	return Observable[T]{subject: subject}
}

// Register adds an observer to the wrapped subject.
func (o Observable[T]) Register(observer Observer[T]) {
	o.subject.Register(observer)
}
