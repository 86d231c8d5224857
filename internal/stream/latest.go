package stream

// Latest remembers the most recent value of a passive input so a driving
// trigger can sample it ("with-latest-from"). The zero Latest holds no value,
// which is distinct from holding the zero value of T.
//
// Latest is not safe for concurrent use; it belongs to one event loop.
type Latest[T any] struct {
	value T
	ok    bool
}

// LatestOf returns a Latest already holding v.
func LatestOf[T any](v T) Latest[T] {
	return Latest[T]{value: v, ok: true}
}

// Set records v as the latest value.
func (l *Latest[T]) Set(v T) {
	l.value = v
	l.ok = true
}

// Get returns the latest value and whether one was ever set.
func (l *Latest[T]) Get() (T, bool) {
	return l.value, l.ok
}

// Reset forgets the value.
func (l *Latest[T]) Reset() {
	var zero T
	l.value = zero
	l.ok = false
}
