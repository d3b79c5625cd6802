package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/henryLiu9527/invoice-ocr/internal/engine"
	"github.com/henryLiu9527/invoice-ocr/internal/logging"
)

// RedisStore keeps session results in Redis so exports can run on a
// different worker than the recognition that produced them. Entries
// expire with the session TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	return &RedisStore{
		client: redis.NewClient(opts),
		ttl:    ttl,
		logger: logging.NewLogger("RedisStore"),
	}, nil
}

func sessionKey(sessionID, filename string) string {
	return fmt.Sprintf("ocr:session:%s:%s", sessionID, filename)
}

func (s *RedisStore) Put(ctx context.Context, sessionID, filename string, res *engine.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sessionID, filename), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("storing result: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID, filename string) (*engine.Result, error) {
	data, err := s.client.Get(ctx, sessionKey(sessionID, filename)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching result: %w", err)
	}

	var res engine.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decoding result: %w", err)
	}
	return &res, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID, filename string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID, filename)).Err(); err != nil {
		return fmt.Errorf("deleting result: %w", err)
	}
	return nil
}

// Ping verifies connectivity at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
