package stream

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv[T any](t *testing.T, sub *Subscription[T]) T {
	t.Helper()
	select {
	case v, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestSubjectMulticastsInOrder(t *testing.T) {
	s := NewSubject[int]()
	a := s.Subscribe()
	b := s.Subscribe()

	for i := 1; i <= 100; i++ {
		s.Publish(i)
	}

	for i := 1; i <= 100; i++ {
		assert.Equal(t, i, recv(t, a))
	}
	for i := 1; i <= 100; i++ {
		assert.Equal(t, i, recv(t, b))
	}
}

func TestSubjectPublishDoesNotBlockOnIdleSubscriber(t *testing.T) {
	s := NewSubject[int]()
	_ = s.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			s.Publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a subscriber nobody reads")
	}
}

func TestSubjectCloseDrainsThenCloses(t *testing.T) {
	s := NewSubject[string]()
	sub := s.Subscribe()

	s.Publish("a")
	s.Publish("b")
	s.Close()
	s.Publish("ignored")

	assert.Equal(t, "a", recv(t, sub))
	assert.Equal(t, "b", recv(t, sub))
	_, ok := sub.Next()
	assert.False(t, ok)
}

func TestSubjectReplay(t *testing.T) {
	s := NewSubject[[]string](WithReplay())
	s.Publish([]string{"x"})
	s.Publish([]string{"x", "y"})

	late := s.Subscribe()
	assert.Equal(t, []string{"x", "y"}, recv(t, late))

	plain := NewSubject[int]()
	plain.Publish(1)
	sub := plain.Subscribe()
	plain.Close()
	_, ok := sub.Next()
	assert.False(t, ok, "non-replaying subject must not hand out old values")
}

func TestSubscribeAfterClose(t *testing.T) {
	s := NewSubject[int](WithReplay())
	s.Publish(7)
	s.Close()

	sub := s.Subscribe()
	assert.Equal(t, 7, recv(t, sub))
	_, ok := sub.Next()
	assert.False(t, ok)
}

func TestSubscriptionCancel(t *testing.T) {
	s := NewSubject[int]()
	sub := s.Subscribe()
	sub.Cancel()
	sub.Cancel()

	s.Publish(1)

	_, ok := sub.Next()
	assert.False(t, ok)

	s.mu.Lock()
	assert.Empty(t, s.subs)
	s.mu.Unlock()
}

func TestSubjectConcurrentPublishers(t *testing.T) {
	s := NewSubject[int]()
	sub := s.Subscribe()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Publish(i)
			}
		}()
	}
	wg.Wait()
	s.Close()

	count := 0
	for range sub.C() {
		count++
	}
	assert.Equal(t, 200, count)
}

func TestBehavior(t *testing.T) {
	b := NewBehavior(false)
	sub := b.Subscribe()
	assert.False(t, recv(t, sub))

	assert.False(t, b.Set(false), "unchanged value is not republished")
	assert.True(t, b.Set(true))
	assert.True(t, b.Set(false))
	assert.False(t, b.Value())

	assert.True(t, recv(t, sub))
	assert.False(t, recv(t, sub))

	late := b.Subscribe()
	assert.False(t, recv(t, late))

	b.Close()
	_, ok := sub.Next()
	assert.False(t, ok)
}

func TestLatest(t *testing.T) {
	var l Latest[string]
	_, ok := l.Get()
	assert.False(t, ok, "zero Latest holds nothing")

	l.Set("")
	v, ok := l.Get()
	assert.True(t, ok, "empty string is a value")
	assert.Equal(t, "", v)

	l.Reset()
	_, ok = l.Get()
	assert.False(t, ok)

	n := LatestOf(3)
	v2, ok := n.Get()
	assert.True(t, ok)
	assert.Equal(t, 3, v2)
}

func TestDebouncerCollapsesBurst(t *testing.T) {
	d := NewDebouncer(40 * time.Millisecond)
	defer d.Stop()

	start := time.Now()
	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-d.C():
		assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("debouncer never fired")
	}

	select {
	case <-d.C():
		t.Fatal("burst produced more than one tick")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncerStop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	d.Trigger()
	d.Stop()

	select {
	case <-d.C():
		t.Fatal("stopped debouncer fired")
	case <-time.After(80 * time.Millisecond):
	}
	assert.Equal(t, 20*time.Millisecond, d.Window())
}
