package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "tender-monitor:token:"

// RedisStore shares tokens between instances; the key TTL follows the token expiry.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (s *RedisStore) Get(ctx context.Context, provider string) (Token, bool, error) {
	raw, err := s.client.Get(ctx, keyPrefix+provider).Bytes()
	if errors.Is(err, redis.Nil) {
		return Token{}, false, nil
	}
	if err != nil {
		return Token{}, false, fmt.Errorf("failed to read token for %s: %w", provider, err)
	}

	var token Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return Token{}, false, fmt.Errorf("failed to decode token for %s: %w", provider, err)
	}
	if token.Expired(s.now()) {
		return Token{}, false, nil
	}
	return token, true, nil
}

func (s *RedisStore) Set(ctx context.Context, provider string, token Token) error {
	now := s.now()
	if err := token.validate(now); err != nil {
		return err
	}

	raw, err := json.Marshal(token)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, keyPrefix+provider, raw, token.ExpiresAt.Sub(now)).Err(); err != nil {
		return fmt.Errorf("failed to store token for %s: %w", provider, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, provider string) error {
	return s.client.Del(ctx, keyPrefix+provider).Err()
}
