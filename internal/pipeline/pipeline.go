// Package pipeline turns user intents into avatar fetches and publishes the
// results, the derived button states and save outcomes as streams.
//
// All state lives on one event loop (Run). Fetches, saves and permission
// checks run in their own goroutines and report back to the loop, which
// applies a fetch result only if it belongs to the latest accepted request.
package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/blacktop/robohashy/internal/photos"
	"github.com/blacktop/robohashy/internal/robohash"
	"github.com/blacktop/robohashy/internal/stream"
)

// DefaultDebounce is the quiet window applied to generate intents.
const DefaultDebounce = 500 * time.Millisecond

// ErrAlreadyRunning is returned when Run is called twice.
var ErrAlreadyRunning = errors.New("pipeline is already running")

// Input carries the live intent streams from the presentation shell. A nil
// or closed channel simply contributes nothing.
type Input struct {
	TextChanges    <-chan string
	GenerateIntent <-chan struct{}
	StyleSelection <-chan int
	SaveIntent     <-chan struct{}
	AboutIntent    <-chan struct{}
}

// Output holds the streams the presentation shell subscribes to. All of them
// are closed when Run returns.
type Output struct {
	Creations       *stream.Subject[Creation]
	GenerateEnabled *stream.Behavior[bool]
	SaveEnabled     *stream.Behavior[bool]
	StyleOptions    *stream.Subject[[]string]
	Errors          *stream.Subject[string]
	SaveOutcomes    *stream.Subject[SaveOutcome]
	OpenURL         *stream.Subject[string]
}

func newOutput() *Output {
	return &Output{
		Creations:       stream.NewSubject[Creation](),
		GenerateEnabled: stream.NewBehavior(false),
		SaveEnabled:     stream.NewBehavior(false),
		StyleOptions:    stream.NewSubject[[]string](stream.WithReplay()),
		Errors:          stream.NewSubject[string](),
		SaveOutcomes:    stream.NewSubject[SaveOutcome](),
		OpenURL:         stream.NewSubject[string](),
	}
}

func (o *Output) close() {
	o.Creations.Close()
	o.GenerateEnabled.Close()
	o.SaveEnabled.Close()
	o.StyleOptions.Close()
	o.Errors.Close()
	o.SaveOutcomes.Close()
	o.OpenURL.Close()
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithAboutURL overrides the link published for about intents.
func WithAboutURL(u string) Option {
	return func(p *Pipeline) {
		if u != "" {
			p.aboutURL = u
		}
	}
}

// WithStyle sets the style used before any selection arrives.
func WithStyle(s robohash.StyleSet) Option {
	return func(p *Pipeline) {
		if s.Index() >= 0 {
			p.style = stream.LatestOf(s)
		}
	}
}

// Pipeline is one instance of the request pipeline.
type Pipeline struct {
	fetcher  robohash.Fetcher
	library  photos.Library
	logger   *log.Logger
	debounce time.Duration
	aboutURL string
	out      *Output
	running  atomic.Bool

	// event loop state, touched only by Run
	text        stream.Latest[string]
	style       stream.Latest[robohash.StyleSet]
	lastIssued  stream.Latest[robohash.Request]
	generation  uint64
	cancelFetch context.CancelFunc
	current     Creation
	permitted   bool
	permission  uint64
	saving      bool
}

// New creates a Pipeline. Subscribe to Output before calling Run.
func New(fetcher robohash.Fetcher, library photos.Library, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:  fetcher,
		library:  library,
		logger:   log.Default(),
		debounce: DefaultDebounce,
		aboutURL: robohash.AboutURL,
		style:    stream.LatestOf(robohash.DefaultStyleSet),
		out:      newOutput(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Output returns the pipeline's output streams.
func (p *Pipeline) Output() *Output {
	return p.out
}

type fetchResult struct {
	generation uint64
	image      robohash.Image
	err        error
}

type saveResult struct {
	location string
	err      error
}

type permissionResult struct {
	query   uint64
	granted bool
}

// Run processes intents until ctx is done, then closes every output stream
// and returns ctx.Err().
func (p *Pipeline) Run(ctx context.Context, in Input) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer p.out.close()

	debounce := stream.NewDebouncer(p.debounce)
	defer debounce.Stop()

	fetched := make(chan fetchResult)
	saved := make(chan saveResult)
	permission := make(chan permissionResult)

	p.out.StyleOptions.Publish(robohash.StyleNames())
	p.queryPermission(ctx, permission)

	textC, generateC, styleC, saveC, aboutC := in.TextChanges, in.GenerateIntent, in.StyleSelection, in.SaveIntent, in.AboutIntent

	for {
		select {
		case <-ctx.Done():
			if p.cancelFetch != nil {
				p.cancelFetch()
			}
			return ctx.Err()

		case text, ok := <-textC:
			if !ok {
				textC = nil
				continue
			}
			p.textChanged(text)

		case _, ok := <-generateC:
			if !ok {
				generateC = nil
				continue
			}
			debounce.Trigger()

		case idx, ok := <-styleC:
			if !ok {
				styleC = nil
				continue
			}
			p.styleSelected(idx)

		case <-debounce.C():
			p.generate(ctx, fetched)

		case res := <-fetched:
			p.settle(res)

		case _, ok := <-saveC:
			if !ok {
				saveC = nil
				continue
			}
			p.save(ctx, saved)

		case res := <-saved:
			p.saveSettled(ctx, res, permission)

		case res := <-permission:
			p.permissionSettled(res)

		case _, ok := <-aboutC:
			if !ok {
				aboutC = nil
				continue
			}
			p.out.OpenURL.Publish(p.aboutURL)
		}
	}
}

// generate runs once per debounced burst of generate intents.
func (p *Pipeline) generate(ctx context.Context, results chan<- fetchResult) {
	text, ok := p.text.Get()
	if !ok {
		p.logger.Debug("generate ignored: no text yet")
		return
	}
	seed, ok := robohash.NormalizeSeed(text)
	if !ok {
		p.logger.Debug("generate ignored: empty seed")
		return
	}
	style, _ := p.style.Get()
	req := robohash.Request{Seed: seed, Style: style}

	if last, ok := p.lastIssued.Get(); ok && last == req && p.current.State != Failed {
		p.logger.Debug("generate ignored: duplicate request", "seed", req.Seed, "style", req.Style)
		return
	}
	p.issue(ctx, req, results)
}

// issue starts a fetch for req and supersedes whatever was in flight.
func (p *Pipeline) issue(ctx context.Context, req robohash.Request, results chan<- fetchResult) {
	if p.cancelFetch != nil {
		p.cancelFetch()
	}
	p.generation++
	generation := p.generation
	p.lastIssued.Set(req)

	url, err := p.fetcher.URL(req)
	if err != nil {
		p.logger.Warn("could not resolve avatar URL", "seed", req.Seed, "err", err)
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	p.cancelFetch = cancel

	p.current = newCreation(req, url, generation)
	p.out.Creations.Publish(p.current)
	p.refreshSaveEnabled()

	p.logger.Info("requesting avatar", "seed", req.Seed, "style", req.Style, "generation", generation)

	go func() {
		img, err := p.fetcher.Fetch(fetchCtx, req)
		select {
		case results <- fetchResult{generation: generation, image: img, err: err}:
		case <-ctx.Done():
		}
	}()
}

// settle applies a fetch result if it belongs to the latest request.
func (p *Pipeline) settle(res fetchResult) {
	if res.generation != p.generation {
		p.logger.Debug("discarding superseded result", "generation", res.generation, "latest", p.generation)
		return
	}
	if p.cancelFetch != nil {
		p.cancelFetch()
		p.cancelFetch = nil
	}

	p.current = p.current.settle(res.image, res.err)
	p.out.Creations.Publish(p.current)
	p.refreshSaveEnabled()

	if res.err != nil {
		p.logger.Error("avatar request failed", "seed", p.current.Request.Seed, "err", res.err)
		p.out.Errors.Publish(robohash.Describe(res.err))
		return
	}
	p.logger.Info("avatar loaded", "seed", p.current.Request.Seed, "format", res.image.Format)
}
