package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"

	"github.com/blacktop/robohashy/internal/photos"
	"github.com/blacktop/robohashy/internal/robohash"
	"github.com/blacktop/robohashy/internal/stream"
)

const (
	seedFail    = "fail"
	seedGarbage = "garbage"
)

// fakeFetcher answers by seed: "fail" fails the request, "garbage" returns an
// undecodable image and everything else succeeds. Seeds with a gate block
// until the gate is closed, ignoring cancellation like a slow transport.
type fakeFetcher struct {
	mu    sync.Mutex
	calls []robohash.Request
	gates map[string]chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{gates: make(map[string]chan struct{})}
}

func (f *fakeFetcher) hold(seed string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[seed] = gate
	return gate
}

func (f *fakeFetcher) Calls() []robohash.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]robohash.Request(nil), f.calls...)
}

func (f *fakeFetcher) URL(req robohash.Request) (string, error) {
	u, err := req.URL("https://robohash.test")
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (f *fakeFetcher) Fetch(ctx context.Context, req robohash.Request) (robohash.Image, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	gate := f.gates[req.Seed]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	switch req.Seed {
	case seedFail:
		return robohash.Image{}, fmt.Errorf("%w: connection refused", robohash.ErrRequestFailed)
	case seedGarbage:
		return robohash.Image{}, fmt.Errorf("%w: unknown format", robohash.ErrInvalidImage)
	default:
		return robohash.Image{Data: []byte("img:" + req.Seed), Format: "png", Width: 300, Height: 300}, nil
	}
}

// fakeLibrary records saves. grant decides each permission answer by query
// number (1-based); hold, when set, delays every query after the first.
type fakeLibrary struct {
	mu      sync.Mutex
	saved   []photos.Item
	saveErr error
	queries int
	grant   func(n int) bool
	hold    chan struct{}
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{grant: func(int) bool { return true }}
}

func (l *fakeLibrary) Save(ctx context.Context, item photos.Item) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.saveErr != nil {
		return "", l.saveErr
	}
	l.saved = append(l.saved, item)
	return fmt.Sprintf("memory://%d", len(l.saved)), nil
}

func (l *fakeLibrary) QueryWritePermission(ctx context.Context) bool {
	l.mu.Lock()
	l.queries++
	n := l.queries
	hold := l.hold
	grant := l.grant
	l.mu.Unlock()

	if n > 1 && hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return false
		}
	}
	return grant(n)
}

func (l *fakeLibrary) Saved() []photos.Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]photos.Item(nil), l.saved...)
}

func (l *fakeLibrary) Queries() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queries
}

var errDiskFull = errors.New("disk full")

// harness runs a Pipeline with unbuffered intent channels, so every send
// returns only after the event loop has taken the value.
type harness struct {
	t        *testing.T
	p        *Pipeline
	fetcher  *fakeFetcher
	library  *fakeLibrary
	text     chan string
	generate chan struct{}
	style    chan int
	save     chan struct{}
	about    chan struct{}

	creations *stream.Subscription[Creation]
	errs      *stream.Subscription[string]
	outcomes  *stream.Subscription[SaveOutcome]
	openURL   *stream.Subscription[string]

	cancel context.CancelFunc
	done   chan error
}

const testDebounce = 30 * time.Millisecond

func newHarness(t *testing.T, fetcher *fakeFetcher, library *fakeLibrary, opts ...Option) *harness {
	t.Helper()

	opts = append([]Option{WithDebounce(testDebounce), WithLogger(log.New(testWriter{t}))}, opts...)
	p := New(fetcher, library, opts...)
	out := p.Output()

	h := &harness{
		t:         t,
		p:         p,
		fetcher:   fetcher,
		library:   library,
		text:      make(chan string),
		generate:  make(chan struct{}),
		style:     make(chan int),
		save:      make(chan struct{}),
		about:     make(chan struct{}),
		creations: out.Creations.Subscribe(),
		errs:      out.Errors.Subscribe(),
		outcomes:  out.SaveOutcomes.Subscribe(),
		openURL:   out.OpenURL.Subscribe(),
		done:      make(chan error, 1),
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		h.done <- p.Run(ctx, Input{
			TextChanges:    h.text,
			GenerateIntent: h.generate,
			StyleSelection: h.style,
			SaveIntent:     h.save,
			AboutIntent:    h.about,
		})
	}()

	t.Cleanup(func() {
		fetcher.mu.Lock()
		for _, gate := range fetcher.gates {
			select {
			case <-gate:
			default:
				close(gate)
			}
		}
		fetcher.mu.Unlock()
		h.stop()
	})
	return h
}

func (h *harness) stop() error {
	h.cancel()
	select {
	case err := <-h.done:
		h.done <- err
		return err
	case <-time.After(2 * time.Second):
		h.t.Fatal("pipeline did not stop")
		return nil
	}
}

func (h *harness) typeText(s string) { h.text <- s }
func (h *harness) tapGenerate()      { h.generate <- struct{}{} }
func (h *harness) selectStyle(i int) { h.style <- i }
func (h *harness) tapSave()          { h.save <- struct{}{} }
func (h *harness) tapAbout()         { h.about <- struct{}{} }

// request types seed and taps generate once.
func (h *harness) request(seed string) {
	h.typeText(seed)
	h.tapGenerate()
}

func next[T any](t *testing.T, sub *stream.Subscription[T]) T {
	t.Helper()
	select {
	case v, ok := <-sub.C():
		require.True(t, ok, "stream closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	var zero T
	return zero
}

func none[T any](t *testing.T, sub *stream.Subscription[T], wait time.Duration) {
	t.Helper()
	select {
	case v, ok := <-sub.C():
		if ok {
			t.Fatalf("unexpected event: %+v", v)
		}
	case <-time.After(wait):
	}
}

// quiet is comfortably longer than the debounce window.
const quiet = 150 * time.Millisecond

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
