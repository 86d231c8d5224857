package stream

import "sync"

// Behavior is a stream with a current value. New subscribers receive the
// current value first, and Set only publishes when the value changes.
type Behavior[T comparable] struct {
	mu      sync.Mutex
	value   T
	subject *Subject[T]
}

// NewBehavior creates a Behavior holding initial.
func NewBehavior[T comparable](initial T) *Behavior[T] {
	b := &Behavior[T]{
		value:   initial,
		subject: NewSubject[T](WithReplay()),
	}
	b.subject.Publish(initial)
	return b
}

// Value returns the current value.
func (b *Behavior[T]) Value() T {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// Set updates the value and reports whether it changed.
func (b *Behavior[T]) Set(v T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if v == b.value {
		return false
	}
	b.value = v
	b.subject.Publish(v)
	return true
}

// Subscribe attaches a subscriber that starts with the current value.
func (b *Behavior[T]) Subscribe() *Subscription[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subject.Subscribe()
}

// Close ends the stream.
func (b *Behavior[T]) Close() {
	b.subject.Close()
}
