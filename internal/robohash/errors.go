package robohash

import (
	"errors"
	"strings"
)

// Sentinel errors returned by Fetch. Callers classify with errors.Is.
var (
	// ErrInvalidRequest indicates the seed could not be turned into a URL
	ErrInvalidRequest = errors.New("invalid robohash request")

	// ErrRequestFailed indicates a transport failure or a non-2xx response
	ErrRequestFailed = errors.New("robohash request failed")

	// ErrInvalidImage indicates the response body is not a decodable image
	ErrInvalidImage = errors.New("robohash returned an invalid image")
)

// Describe turns a fetch error into a message fit for an alert.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRequest):
		return "That seed can't be turned into a Robohash request."
	case errors.Is(err, ErrInvalidImage):
		return "Robohash answered with something that isn't an image."
	case errors.Is(err, ErrRequestFailed):
		cause := strings.TrimPrefix(err.Error(), ErrRequestFailed.Error()+": ")
		return "Couldn't reach Robohash: " + cause
	default:
		return err.Error()
	}
}
