package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bankclient/config"
	"bankclient/internal/model"

	"github.com/redis/go-redis/v9"
)

func NewRedisClient(config *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}
	return rdb, nil
}

// RedisSessionStore keeps the current device session under a single key that
// expires together with the access token.
type RedisSessionStore struct {
	rdb *redis.Client
	key string
}

func NewRedisSessionStore(rdb *redis.Client, config *config.Config) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, key: config.Redis.Key}
}

func (s *RedisSessionStore) Save(ctx context.Context, state model.SessionState, ttl time.Duration) error {
	if ttl <= 0 {
		return s.Delete(ctx)
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return s.rdb.Set(ctx, s.key, payload, ttl).Err()
}

func (s *RedisSessionStore) Load(ctx context.Context) (*model.SessionState, error) {
	val, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var state model.SessionState
	if err := json.Unmarshal(val, &state); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &state, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key).Err()
}
