// Package store holds issued refresh tokens so they can be validated and
// revoked independently of the stateless access tokens.
package store

import (
	"context"
	"time"

	"coolwatch-server-go/internal/platform/errors"
)

// RefreshToken is one issued refresh credential.
type RefreshToken struct {
	Token     string    `json:"token"`
	UserID    uint      `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrTokenNotFound is returned when a token is unknown, revoked, or expired.
var ErrTokenNotFound = errors.New(errors.KindAuth, "token_store.get", "refresh token not found")

// TokenStore is the pluggable persistence behind refresh tokens.
type TokenStore interface {
	// Save stores the token until its expiry.
	Save(ctx context.Context, token RefreshToken) error
	// Get returns the token record or ErrTokenNotFound.
	Get(ctx context.Context, token string) (*RefreshToken, error)
	// Revoke removes a single token. Revoking an unknown token is a no-op.
	Revoke(ctx context.Context, token string) error
	// RevokeUser removes every token issued to the user.
	RevokeUser(ctx context.Context, userID uint) error
	Close(ctx context.Context) error
}

// Config selects and parameterises a store backend.
type Config struct {
	TTL    time.Duration
	Memory *MemoryConfig
	Redis  *RedisConfig
}

type MemoryConfig struct {
	GCInterval time.Duration
}

type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}
