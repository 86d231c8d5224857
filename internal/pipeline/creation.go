package pipeline

import "github.com/blacktop/robohashy/internal/robohash"

// State is where a Creation is in its lifecycle.
type State int

const (
	Loading State = iota
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Creation is one attempt at producing an avatar. It starts Loading and
// settles once, into Loaded or Failed. URL is set in every state.
type Creation struct {
	Request    robohash.Request
	URL        string
	Generation uint64
	State      State
	Image      robohash.Image
	Err        error
}

func newCreation(req robohash.Request, url string, generation uint64) Creation {
	return Creation{
		Request:    req,
		URL:        url,
		Generation: generation,
		State:      Loading,
	}
}

// settle moves a Loading creation to its terminal state. Settled creations
// are returned unchanged.
func (c Creation) settle(img robohash.Image, err error) Creation {
	if c.State != Loading {
		return c
	}
	if err != nil {
		c.State = Failed
		c.Err = err
		return c
	}
	c.State = Loaded
	c.Image = img
	return c
}

// SaveOutcome reports how a save intent ended. It is an event, never stored.
type SaveOutcome struct {
	Saved    bool
	Location string
	Message  string
}
