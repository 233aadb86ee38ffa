package observer

import (
	"log"
	"sync"
)

// AsyncObserver is a callback registered with an AsyncSubject.
type AsyncObserver[T any] func(T)

// AsyncSubject is a fan-out point whose notifications are dispatched as
// detached background goroutines: Notify returns immediately, and each
// observer runs independently of the others. A panicking observer is
// recovered and logged, never propagated. WaitForAll blocks until every
// goroutine started by a Notify call so far has returned; it exists for
// test synchronization, mirroring the source's wait_for_all_observers.
type AsyncSubject[T any] struct {
	mu        sync.Mutex
	observers []AsyncObserver[T]
	pending   sync.WaitGroup
}

// Register adds an observer, in the order later notified.
func (s *AsyncSubject[T]) Register(o AsyncObserver[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Notify dispatches value to every registered observer as a
// fire-and-forget goroutine.
func (s *AsyncSubject[T]) Notify(value T) {
	s.mu.Lock()
	observers := make([]AsyncObserver[T], len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, notify := range observers {
		s.pending.Add(1)
		go func(notify AsyncObserver[T]) {
			defer s.pending.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Printf("async observer panic recovered: %v", r)
				}
			}()
			notify(value)
		}(notify)
	}
}

// WaitForAll blocks until all dispatched-but-not-yet-returned observer
// goroutines have completed.
func (s *AsyncSubject[T]) WaitForAll() {
	s.pending.Wait()
}

// AsyncObservable exposes registration without notification rights.
type AsyncObservable[T any] struct {
	subject *AsyncSubject[T]
}

// NewAsyncObservable wraps subject for registration-only access.
func NewAsyncObservable[T any](subject *AsyncSubject[T]) AsyncObservable[T] {
	return AsyncObservable[T]{subject: subject}
}

// Register adds an observer to the wrapped subject.
func (o AsyncObservable[T]) Register(observer AsyncObserver[T]) {
	o.subject.Register(observer)
}

// WaitForAll delegates to the wrapped subject.
func (o AsyncObservable[T]) WaitForAll() {
	o.subject.WaitForAll()
}
