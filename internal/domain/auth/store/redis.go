package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"coolwatch-server-go/internal/platform/errors"
)

type redisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis builds a redis-backed token store. Expiry is delegated to redis
// key TTLs.
func NewRedis(cfg Config) (TokenStore, error) {
	if cfg.Redis == nil || cfg.Redis.Addr == "" {
		return nil, errors.New(errors.KindAuth, "token_store.redis", "redis address is required")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "coolwatch:refresh:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(errors.KindAuth, "token_store.redis", "redis ping failed", err)
	}

	return &redisStore{client: client, prefix: prefix, ttl: ttl}, nil
}

func (s *redisStore) tokenKey(token string) string {
	return s.prefix + token
}

func (s *redisStore) userKey(userID uint) string {
	return fmt.Sprintf("%suser:%d", s.prefix, userID)
}

func (s *redisStore) Save(ctx context.Context, token RefreshToken) error {
	if token.IssuedAt.IsZero() {
		token.IssuedAt = time.Now()
	}
	if token.ExpiresAt.IsZero() {
		token.ExpiresAt = token.IssuedAt.Add(s.ttl)
	}

	payload, err := json.Marshal(token)
	if err != nil {
		return errors.Wrap(errors.KindAuth, "token_store.save", "failed to encode token", err)
	}

	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return errors.New(errors.KindAuth, "token_store.save", "token already expired")
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.tokenKey(token.Token), payload, ttl)
	pipe.SAdd(ctx, s.userKey(token.UserID), token.Token)
	pipe.Expire(ctx, s.userKey(token.UserID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(errors.KindAuth, "token_store.save", "redis write failed", err)
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, token string) (*RefreshToken, error) {
	raw, err := s.client.Get(ctx, s.tokenKey(token)).Bytes()
	if err == redis.Nil {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, errors.Wrap(errors.KindAuth, "token_store.get", "redis read failed", err)
	}

	var stored RefreshToken
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, errors.Wrap(errors.KindAuth, "token_store.get", "failed to decode token", err)
	}
	return &stored, nil
}

func (s *redisStore) Revoke(ctx context.Context, token string) error {
	stored, err := s.Get(ctx, token)
	if err == ErrTokenNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.tokenKey(token))
	pipe.SRem(ctx, s.userKey(stored.UserID), token)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(errors.KindAuth, "token_store.revoke", "redis delete failed", err)
	}
	return nil
}

func (s *redisStore) RevokeUser(ctx context.Context, userID uint) error {
	tokens, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return errors.Wrap(errors.KindAuth, "token_store.revoke_user", "redis read failed", err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		keys = append(keys, s.tokenKey(token))
	}
	keys = append(keys, s.userKey(userID))

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return errors.Wrap(errors.KindAuth, "token_store.revoke_user", "redis delete failed", err)
	}
	return nil
}

func (s *redisStore) Close(_ context.Context) error {
	return s.client.Close()
}
