package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	pinerrors "github.com/jrsteele09/go-pin-client/internal/errors"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "pinclient:"
	redisOpTimeout = 3 * time.Second
)

var _ Repo = (*RedisRepo)(nil)

// RedisRepo persists keys in Redis without expiry; session lifetime is
// decided by the token's own exp claim.
type RedisRepo struct {
	redis *redis.Client
}

func NewRedisRepo(client *redis.Client) *RedisRepo {
	return &RedisRepo{redis: client}
}

// NewRedisRepoFromURL parses a redis:// URL and returns a repo using a new client.
func NewRedisRepoFromURL(url string) (*RedisRepo, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("[NewRedisRepoFromURL] parse url: %w", err)
	}
	return NewRedisRepo(redis.NewClient(opts)), nil
}

func (r *RedisRepo) Get(key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	value, err := r.redis.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", pinerrors.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("[RedisRepo] get %s: %w", key, err)
	}
	return value, nil
}

func (r *RedisRepo) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.redis.Set(ctx, redisKeyPrefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("[RedisRepo] set %s: %w", key, err)
	}
	return nil
}

func (r *RedisRepo) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := r.redis.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("[RedisRepo] delete %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying client.
func (r *RedisRepo) Close() error {
	return r.redis.Close()
}
