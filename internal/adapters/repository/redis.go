package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "mocksrv:response:"
	defaultScanCount = 200
)

// RedisStore keeps responses in Redis so several mock instances, or an
// out-of-process fixture loader, can share one table. Each response is a plain
// string key under a common prefix.
type RedisStore struct {
	client    redis.UniversalClient
	prefix    string
	scanCount int64
}

// NewRedisStore wraps client and checks connectivity.
func NewRedisStore(ctx context.Context, client redis.UniversalClient, opts ...RedisOption) (*RedisStore, error) {
	s := &RedisStore{
		client:    client,
		prefix:    defaultKeyPrefix,
		scanCount: defaultScanCount,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: redis ping: %w", ErrStoreUnavailable, err)
	}
	return s, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get: %w", ErrStoreUnavailable, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("%w: set: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, s.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: del: %w", ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

func (s *RedisStore) List(ctx context.Context) (map[string]string, error) {
	names, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(names))
	for start := 0; start < len(names); start += int(s.scanCount) {
		end := min(start+int(s.scanCount), len(names))
		batch := names[start:end]
		vals, err := s.client.MGet(ctx, batch...).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: mget: %w", ErrStoreUnavailable, err)
		}
		for i, v := range vals {
			str, ok := v.(string)
			if !ok {
				// deleted between SCAN and MGET
				continue
			}
			out[strings.TrimPrefix(batch[i], s.prefix)] = str
		}
	}
	return out, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	names, err := s.scan(ctx)
	if err != nil {
		return err
	}
	for start := 0; start < len(names); start += int(s.scanCount) {
		end := min(start+int(s.scanCount), len(names))
		if err := s.client.Del(ctx, names[start:end]...).Err(); err != nil {
			return fmt.Errorf("%w: del: %w", ErrStoreUnavailable, err)
		}
	}
	return nil
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	names, err := s.scan(ctx)
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// scan returns the full Redis names of every stored response, each once.
// SCAN may return an element more than once while the keyspace is rehashed.
func (s *RedisStore) scan(ctx context.Context) ([]string, error) {
	var names []string
	seen := make(map[string]struct{})
	iter := s.client.Scan(ctx, 0, escapeGlob(s.prefix)+"*", s.scanCount).Iterator()
	for iter.Next(ctx) {
		names = appendUnique(names, seen, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan: %w", ErrStoreUnavailable, err)
	}
	return names, nil
}

func appendUnique(names []string, seen map[string]struct{}, name string) []string {
	if _, dup := seen[name]; dup {
		return names
	}
	seen[name] = struct{}{}
	return append(names, name)
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`) //nolint:gochecknoglobals // immutable

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

var _ Store = (*RedisStore)(nil)
