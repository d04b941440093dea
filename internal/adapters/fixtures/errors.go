package fixtures

import "errors"

// Sentinel kinds for fixture errors.
var (
	ErrRead         = errors.New("read fixtures")
	ErrParse        = errors.New("parse fixtures")
	ErrEncode       = errors.New("encode fixture response")
	ErrDuplicateKey = errors.New("key defined in both responses and raw")
	ErrApply        = errors.New("apply fixtures")
)
