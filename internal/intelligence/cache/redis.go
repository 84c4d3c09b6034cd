package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"place-intelligence/internal/common/errors"
)

const scanBatch = 100

// RedisStore is the shared second tier for external signals. Keys are written as prefix+key.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// Get decodes the stored JSON into out. A missing key is (false, nil).
func (s *RedisStore) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.NewCacheStoreError("get", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, errors.NewCacheStoreError("decode", err)
	}
	return true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.NewCacheStoreError("encode", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		return errors.NewCacheStoreError("set", err)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix+keyPrefix and returns the count.
func (s *RedisStore) DeletePrefix(ctx context.Context, keyPrefix string) (int, error) {
	pattern := s.prefix + escapeGlob(keyPrefix) + "*"
	deleted := 0

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return deleted, errors.NewCacheStoreError("scan", err)
		}
		if len(keys) > 0 {
			n, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, errors.NewCacheStoreError("del", err)
			}
			deleted += int(n)
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}

// DeleteVenue drops the external entries for one venue.
func (s *RedisStore) DeleteVenue(ctx context.Context, venue string) (int, error) {
	return s.DeletePrefix(ctx, ExternalPrefix+venue+":")
}

func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
