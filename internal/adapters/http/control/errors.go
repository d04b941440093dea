package control

import "errors"

// Sentinel kinds for control errors.
var (
	ErrNotConfigured = errors.New("no response configured")
	ErrMissingKey    = errors.New("missing response key")
	ErrBadBulk       = errors.New("bulk body must be a json object")
	ErrStore         = errors.New("response store unavailable")
	ErrBodyTooLarge  = errors.New("request body too large")
)
