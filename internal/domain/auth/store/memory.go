package store

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu     sync.RWMutex
	tokens map[string]RefreshToken
	ttl    time.Duration
	ticker *time.Ticker
	stopCh chan struct{}
}

// NewMemory builds an in-process token store with periodic expiry sweeps.
func NewMemory(cfg Config) TokenStore {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	gcInterval := time.Minute
	if cfg.Memory != nil && cfg.Memory.GCInterval > 0 {
		gcInterval = cfg.Memory.GCInterval
	}

	s := &memoryStore{
		tokens: make(map[string]RefreshToken),
		ttl:    ttl,
		ticker: time.NewTicker(gcInterval),
		stopCh: make(chan struct{}),
	}
	go s.gcLoop()
	return s
}

func (s *memoryStore) gcLoop() {
	for {
		select {
		case <-s.ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *memoryStore) sweep() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, token := range s.tokens {
		if now.After(token.ExpiresAt) {
			delete(s.tokens, key)
		}
	}
}

func (s *memoryStore) Save(_ context.Context, token RefreshToken) error {
	if token.IssuedAt.IsZero() {
		token.IssuedAt = time.Now()
	}
	if token.ExpiresAt.IsZero() {
		token.ExpiresAt = token.IssuedAt.Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.Token] = token
	return nil
}

func (s *memoryStore) Get(_ context.Context, token string) (*RefreshToken, error) {
	s.mu.RLock()
	stored, ok := s.tokens[token]
	s.mu.RUnlock()

	if !ok || time.Now().After(stored.ExpiresAt) {
		return nil, ErrTokenNotFound
	}
	return &stored, nil
}

func (s *memoryStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

func (s *memoryStore) RevokeUser(_ context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, stored := range s.tokens {
		if stored.UserID == userID {
			delete(s.tokens, key)
		}
	}
	return nil
}

func (s *memoryStore) Close(_ context.Context) error {
	s.ticker.Stop()
	close(s.stopCh)
	return nil
}
