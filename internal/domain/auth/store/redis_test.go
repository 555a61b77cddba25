package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newRedisTestStore(t *testing.T) (TokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	s, err := NewRedis(Config{
		TTL:   time.Minute,
		Redis: &RedisConfig{Addr: mr.Addr(), Prefix: "test:refresh:"},
	})
	if err != nil {
		t.Fatalf("NewRedis returned error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, mr
}

func TestRedisStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisTestStore(t)

	if err := s.Save(ctx, RefreshToken{Token: "tok-1", UserID: 3}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	stored, err := s.Get(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if stored.UserID != 3 {
		t.Fatalf("unexpected token record: %+v", stored)
	}

	if err := s.Revoke(ctx, "tok-1"); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}
	if _, err := s.Get(ctx, "tok-1"); err != ErrTokenNotFound {
		t.Fatalf("expected ErrTokenNotFound after revoke, got %v", err)
	}
}

func TestRedisStoreExpiresViaTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisTestStore(t)

	if err := s.Save(ctx, RefreshToken{Token: "tok-ttl", UserID: 5}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := s.Get(ctx, "tok-ttl"); err != ErrTokenNotFound {
		t.Fatalf("expected token to expire with redis TTL, got %v", err)
	}
}

func TestRedisStoreRevokeUser(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisTestStore(t)

	for _, tok := range []RefreshToken{
		{Token: "u1-a", UserID: 1},
		{Token: "u1-b", UserID: 1},
		{Token: "u2-a", UserID: 2},
	} {
		if err := s.Save(ctx, tok); err != nil {
			t.Fatalf("Save returned error: %v", err)
		}
	}

	if err := s.RevokeUser(ctx, 1); err != nil {
		t.Fatalf("RevokeUser returned error: %v", err)
	}
	if _, err := s.Get(ctx, "u1-a"); err != ErrTokenNotFound {
		t.Fatalf("expected user 1 tokens revoked, got %v", err)
	}
	if _, err := s.Get(ctx, "u2-a"); err != nil {
		t.Fatalf("user 2 token must survive: %v", err)
	}
}
