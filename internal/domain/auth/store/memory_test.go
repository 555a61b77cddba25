package store

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(Config{
		TTL:    time.Second,
		Memory: &MemoryConfig{GCInterval: 10 * time.Millisecond},
	})
	t.Cleanup(func() { _ = s.Close(ctx) })

	token := RefreshToken{Token: "tok-1", UserID: 7}
	if err := s.Save(ctx, token); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	stored, err := s.Get(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if stored.UserID != 7 {
		t.Fatalf("unexpected token record: %+v", stored)
	}
	if stored.ExpiresAt.IsZero() {
		t.Fatalf("expected expiry to be filled from TTL")
	}

	if err := s.Revoke(ctx, "tok-1"); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}
	if _, err := s.Get(ctx, "tok-1"); err != ErrTokenNotFound {
		t.Fatalf("expected ErrTokenNotFound after revoke, got %v", err)
	}

	// revoking again must stay a no-op
	if err := s.Revoke(ctx, "tok-1"); err != nil {
		t.Fatalf("second Revoke returned error: %v", err)
	}
}

func TestMemoryStoreExpiration(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(Config{
		TTL:    20 * time.Millisecond,
		Memory: &MemoryConfig{GCInterval: 5 * time.Millisecond},
	})
	t.Cleanup(func() { _ = s.Close(ctx) })

	if err := s.Save(ctx, RefreshToken{Token: "tok-exp", UserID: 1}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	time.Sleep(60 * time.Millisecond)
	if _, err := s.Get(ctx, "tok-exp"); err != ErrTokenNotFound {
		t.Fatalf("expected expired token to be gone, got %v", err)
	}
}

func TestMemoryStoreRevokeUser(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(Config{TTL: time.Minute})
	t.Cleanup(func() { _ = s.Close(ctx) })

	for _, tok := range []RefreshToken{
		{Token: "u7-a", UserID: 7},
		{Token: "u7-b", UserID: 7},
		{Token: "u9-a", UserID: 9},
	} {
		if err := s.Save(ctx, tok); err != nil {
			t.Fatalf("Save returned error: %v", err)
		}
	}

	if err := s.RevokeUser(ctx, 7); err != nil {
		t.Fatalf("RevokeUser returned error: %v", err)
	}
	if _, err := s.Get(ctx, "u7-a"); err != ErrTokenNotFound {
		t.Fatalf("expected user 7 token revoked, got %v", err)
	}
	if _, err := s.Get(ctx, "u7-b"); err != ErrTokenNotFound {
		t.Fatalf("expected user 7 token revoked, got %v", err)
	}
	if _, err := s.Get(ctx, "u9-a"); err != nil {
		t.Fatalf("user 9 token must survive: %v", err)
	}
}
