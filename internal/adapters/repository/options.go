package repository

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithInitial seeds the store. The map is copied.
func WithInitial(responses map[string]string) MemoryOption {
	return func(s *MemoryStore) {
		for k, v := range responses {
			s.responses[k] = v
		}
	}
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix namespaces every response key in Redis.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithScanCount sets the SCAN page size and the MGET/DEL batch size.
func WithScanCount(n int64) RedisOption {
	return func(s *RedisStore) {
		if n > 0 {
			s.scanCount = n
		}
	}
}
