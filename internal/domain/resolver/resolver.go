// Package resolver finds the configured response for an ordered list of
// candidate keys.
package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Reader is the read side of the response store. found reports whether key
// exists at all; an existing key with an empty value is the "no answer here"
// marker and is skipped like a missing one.
type Reader interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
}

// Result is a successful resolution.
type Result struct {
	// Key is the candidate that matched.
	Key string
	// Depth is how many candidates were skipped before Key.
	Depth int
	// Body is the stored payload, validated and compacted.
	Body json.RawMessage
}

// Resolver scans a store in candidate order.
type Resolver struct {
	store Reader
}

// New returns a Resolver reading from store.
func New(store Reader) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the first candidate holding a non-empty value. It fails with
// a *NoResponseError when nothing matches, a *BadResponseError when the
// matched value is not JSON, and ErrStoreRead when the store cannot be read.
// Nothing is retried.
func (r *Resolver) Resolve(ctx context.Context, candidates []string) (Result, error) {
	for i, key := range candidates {
		raw, found, err := r.store.Get(ctx, key)
		if err != nil {
			return Result{}, fmt.Errorf("%w: key %q: %w", ErrStoreRead, key, err)
		}
		if !found || raw == "" {
			continue
		}

		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(raw)); err != nil {
			return Result{}, &BadResponseError{Key: key, Err: err}
		}
		return Result{Key: key, Depth: i, Body: buf.Bytes()}, nil
	}
	return Result{}, &NoResponseError{Keys: candidates}
}
