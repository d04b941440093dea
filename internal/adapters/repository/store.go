// Package repository holds the response store: the key to raw response table
// read by the resolver and written by the control channel and fixtures.
package repository

import "context"

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Store is the response table. Values are raw payloads; the empty string is
// the null marker ("key configured, no answer here"). Every write replaces
// the whole value of a single key.
type Store interface {
	// Get returns the value at key and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value at key. An empty value stores the null marker.
	Set(ctx context.Context, key, value string) error
	// Delete removes key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns a snapshot of every key and value.
	List(ctx context.Context) (map[string]string, error)
	// Clear removes every key.
	Clear(ctx context.Context) error
	// Count returns the number of keys.
	Count(ctx context.Context) (int, error)
	// Close releases backend resources.
	Close() error
}
