package resolver

import (
	"errors"
	"fmt"
)

// Sentinel kinds for resolution errors.
var (
	ErrNoResponse  = errors.New("unknown arguments")
	ErrBadResponse = errors.New("bad response json")
	ErrStoreRead   = errors.New("response store unavailable")
)

// NoResponseError lists every key that was tried.
type NoResponseError struct {
	Keys []string
}

func (e *NoResponseError) Error() string {
	return fmt.Sprintf("%s: tried %d keys", ErrNoResponse, len(e.Keys))
}

func (e *NoResponseError) Unwrap() error { return ErrNoResponse }

// BadResponseError is a stored value that failed to parse.
type BadResponseError struct {
	Key string
	Err error
}

func (e *BadResponseError) Error() string {
	return fmt.Sprintf("%s: key %q: %v", ErrBadResponse, e.Key, e.Err)
}

func (e *BadResponseError) Unwrap() []error { return []error{ErrBadResponse, e.Err} }
