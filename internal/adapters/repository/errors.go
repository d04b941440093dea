package repository

import "errors"

// Sentinel kinds for response store errors.
var (
	ErrUnknownBackend   = errors.New("unknown response store backend")
	ErrStoreUnavailable = errors.New("response store unavailable")
)
