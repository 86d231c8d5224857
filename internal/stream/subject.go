// Package stream provides the small set of event-stream primitives the
// request pipeline is built from: a multicast Subject, a replaying Behavior,
// a with-latest-from holder and a restartable debounce timer.
package stream

import "sync"

// Option configures a Subject.
type Option func(*options)

type options struct {
	replay bool
}

// WithReplay makes a Subject hand its most recent value to every new
// subscriber before any later value.
func WithReplay() Option {
	return func(o *options) {
		o.replay = true
	}
}

// Subject is a multicast event hub. Every subscriber sees every value in
// publish order. Publish never blocks on a slow subscriber.
type Subject[T any] struct {
	mu      sync.Mutex
	subs    map[*Subscription[T]]struct{}
	replay  bool
	last    T
	hasLast bool
	closed  bool
}

// NewSubject creates an open Subject.
func NewSubject[T any](opts ...Option) *Subject[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Subject[T]{
		subs:   make(map[*Subscription[T]]struct{}),
		replay: o.replay,
	}
}

// Subscribe attaches a new subscriber. Subscribing to a closed Subject
// returns a Subscription whose channel is already closed (after the replayed
// value, if any).
func (s *Subject[T]) Subscribe() *Subscription[T] {
	sub := newSubscription(s)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.replay && s.hasLast {
		sub.push(s.last)
	}
	if s.closed {
		sub.finish()
		return sub
	}
	s.subs[sub] = struct{}{}
	return sub
}

// Publish delivers v to every current subscriber. It is a no-op once the
// Subject is closed.
func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.last = v
	s.hasLast = true
	for sub := range s.subs {
		sub.push(v)
	}
}

// Close ends the stream. Subscribers drain what was already published and
// then see their channel closed.
func (s *Subject[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for sub := range s.subs {
		sub.finish()
	}
	clear(s.subs)
}

func (s *Subject[T]) remove(sub *Subscription[T]) {
	s.mu.Lock()
	delete(s.subs, sub)
	s.mu.Unlock()
}

// Subscription is one subscriber's view of a Subject. Values are queued
// without bound until the receiver reads them from C.
type Subscription[T any] struct {
	subject *Subject[T]
	out     chan T

	mu      sync.Mutex
	queue   []T
	closing bool

	wake       chan struct{}
	quit       chan struct{}
	cancelOnce sync.Once
}

func newSubscription[T any](s *Subject[T]) *Subscription[T] {
	sub := &Subscription[T]{
		subject: s,
		out:     make(chan T),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
	}
	go sub.pump()
	return sub
}

// C returns the channel values are delivered on. It is closed when the
// Subject closes (after draining) or the Subscription is cancelled.
func (s *Subscription[T]) C() <-chan T {
	return s.out
}

// Next blocks for the next value. ok is false once the stream has ended.
func (s *Subscription[T]) Next() (v T, ok bool) {
	v, ok = <-s.out
	return v, ok
}

// Cancel detaches the subscriber and drops anything still queued.
func (s *Subscription[T]) Cancel() {
	s.cancelOnce.Do(func() {
		s.subject.remove(s)
		close(s.quit)
	})
}

func (s *Subscription[T]) push(v T) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription[T]) finish() {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription[T]) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription[T]) pump() {
	defer close(s.out)

	var zero T
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			closing := s.closing
			s.mu.Unlock()
			if closing {
				return
			}
			select {
			case <-s.wake:
			case <-s.quit:
				return
			}
			continue
		}
		v := s.queue[0]
		s.queue[0] = zero
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- v:
		case <-s.quit:
			return
		}
	}
}
