package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"flight-aggregator-service/internal/domain/entity"
	"flight-aggregator-service/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisRunLockRepository provides the cross-replica aggregation lock via SET NX with TTL
type RedisRunLockRepository struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisRunLockRepository creates a new Redis-backed run lock
func NewRedisRunLockRepository(client *redis.Client, name string, ttl time.Duration) *RedisRunLockRepository {
	return &RedisRunLockRepository{
		client: client,
		key:    fmt.Sprintf("lock:%s", name),
		ttl:    ttl,
	}
}

var _ repository.RunLockRepository = (*RedisRunLockRepository)(nil)

// Acquire takes the lock with a fresh ownership token
func (l *RedisRunLockRepository) Acquire(ctx context.Context) (repository.ReleaseFunc, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate lock token: %w", err)
	}
	token := hex.EncodeToString(b)

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", l.key, err)
	}
	if !ok {
		return nil, entity.ErrRunInProgress
	}

	return func(ctx context.Context) error {
		if _, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Result(); err != nil {
			return fmt.Errorf("failed to release lock %s: %w", l.key, err)
		}
		return nil
	}, nil
}
