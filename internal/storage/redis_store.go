package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps values in Redis under "<prefix>:<page>:<key>".
// Keys carry no TTL; the authorized flag must outlive any session.
type RedisStore struct {
	rdb     *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisStore parses redisURL and pings the server before returning.
func NewRedisStore(ctx context.Context, redisURL, prefix string, timeout time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}
	return &RedisStore{rdb: rdb, prefix: prefix, timeout: timeout}, nil
}

func (s *RedisStore) key(page, key string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, page, key)
}

func (s *RedisStore) Get(page, key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	val, err := s.rdb.Get(ctx, s.key(page, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", key, err)
	}
	return val, nil
}

func (s *RedisStore) Set(page, key, value string) error {
	return s.Apply(page, Put(key, value))
}

func (s *RedisStore) Remove(page, key string) error {
	return s.Apply(page, Del(key))
}

// Apply runs all mutations in one MULTI/EXEC.
func (s *RedisStore) Apply(page string, muts ...Mutation) error {
	if len(muts) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	pipe := s.rdb.TxPipeline()
	for _, mut := range muts {
		if mut.Delete {
			pipe.Del(ctx, s.key(page, mut.Key))
			continue
		}
		pipe.Set(ctx, s.key(page, mut.Key), mut.Value, 0)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing page %s: %w", page, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
