package store

import (
	"strings"
	"time"

	"coolwatch-server-go/internal/platform/config"
	"coolwatch-server-go/internal/platform/errors"
)

// New builds the token store selected by configuration.
func New(cfg config.TokenStoreConfig, ttl time.Duration) (TokenStore, error) {
	storeCfg := Config{TTL: ttl}

	switch strings.ToLower(cfg.Type) {
	case "", "memory":
		return NewMemory(storeCfg), nil
	case "redis":
		storeCfg.Redis = &RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}
		return NewRedis(storeCfg)
	default:
		return nil, errors.New(errors.KindConfig, "token_store.new", "unknown token store type: "+cfg.Type)
	}
}
