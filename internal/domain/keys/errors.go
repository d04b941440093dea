package keys

import "errors"

// Sentinel kinds for parameter extraction errors.
var (
	ErrMalformedBody = errors.New("malformed request body")
)
