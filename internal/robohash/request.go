package robohash

import (
	"fmt"
	"net/url"
	"strings"
)

// Request identifies one avatar. Two equal Requests resolve to the same URL.
type Request struct {
	Seed  string
	Style StyleSet
}

// NormalizeSeed trims s and reports whether anything is left.
func NormalizeSeed(s string) (string, bool) {
	seed := strings.TrimSpace(s)
	return seed, seed != ""
}

// NewRequest builds a Request from raw user text.
func NewRequest(text string, style StyleSet) (Request, error) {
	seed, ok := NormalizeSeed(text)
	if !ok {
		return Request{}, fmt.Errorf("%w: empty seed", ErrInvalidRequest)
	}
	if style.Index() < 0 {
		return Request{}, fmt.Errorf("%w: unknown style set %d", ErrInvalidRequest, int(style))
	}
	return Request{Seed: seed, Style: style}, nil
}

// URL resolves the request against base. The seed becomes a single path
// segment, so "/", "?" and "#" inside it are percent-encoded.
func (r Request) URL(base string) (*url.URL, error) {
	if _, ok := NormalizeSeed(r.Seed); !ok {
		return nil, fmt.Errorf("%w: empty seed", ErrInvalidRequest)
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: base URL %q has no scheme or host", ErrInvalidRequest, base)
	}

	prefix := strings.TrimSuffix(u.Path, "/")
	rawPrefix := strings.TrimSuffix(u.EscapedPath(), "/")
	u.Path = prefix + "/" + r.Seed
	u.RawPath = rawPrefix + "/" + url.PathEscape(r.Seed)
	u.Fragment = ""

	if code, ok := r.Style.Code(); ok {
		u.RawQuery = url.Values{"set": {code}}.Encode()
	} else {
		u.RawQuery = ""
	}
	return u, nil
}
