package ai

import "errors"

var (
	// ErrUnavailable means the suggestion backend could not be reached.
	ErrUnavailable = errors.New("suggestion service unavailable")
	// ErrBadResponse means the backend answered with something unparseable.
	ErrBadResponse = errors.New("suggestion service returned malformed response")
)
