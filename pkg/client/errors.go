package client

import "errors"

// Sentinel kinds for client errors.
var (
	ErrNotFound         = errors.New("no response configured")
	ErrUnexpectedStatus = errors.New("unexpected status")
)
