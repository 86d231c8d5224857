package stream

import "time"

// Debouncer collapses bursts of triggers into one tick, delivered on C once
// the quiet window has passed since the last Trigger.
//
// Debouncer is owned by a single goroutine that selects on C.
type Debouncer struct {
	window time.Duration
	timer  *time.Timer
}

// NewDebouncer returns an idle Debouncer.
func NewDebouncer(window time.Duration) *Debouncer {
	t := time.NewTimer(window)
	t.Stop()
	return &Debouncer{window: window, timer: t}
}

// Trigger (re)starts the quiet window.
func (d *Debouncer) Trigger() {
	d.timer.Reset(d.window)
}

// C fires once per settled burst.
func (d *Debouncer) C() <-chan time.Time {
	return d.timer.C
}

// Stop discards a pending tick.
func (d *Debouncer) Stop() {
	d.timer.Stop()
}

// Window returns the quiet window.
func (d *Debouncer) Window() time.Duration {
	return d.window
}
