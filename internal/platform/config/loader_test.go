package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	platformerrors "coolwatch-server-go/internal/platform/errors"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := NewLoader().WithDotEnv(false).Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Realtime.Path != "/ws" {
		t.Fatalf("expected default realtime path, got %q", cfg.Realtime.Path)
	}
	if cfg.TokenStore.Type != "memory" {
		t.Fatalf("expected memory token store, got %q", cfg.TokenStore.Type)
	}
	if cfg.JWT.TTL != 24*time.Hour {
		t.Fatalf("unexpected default token ttl: %v", cfg.JWT.TTL)
	}
}

func TestLoadReadsFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
server:
  port: 9000
jwt:
  secret: from-file
simulation:
  enabled: true
  interval: 5s
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := NewLoader().WithDotEnv(false).Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Fatalf("env override must win, got port %d", cfg.Server.Port)
	}
	if cfg.JWT.Secret != "from-file" {
		t.Fatalf("file value lost: %q", cfg.JWT.Secret)
	}
	if cfg.TokenStore.Type != "redis" || cfg.TokenStore.Redis.Addr != "localhost:6379" {
		t.Fatalf("redis env override not applied: %+v", cfg.TokenStore)
	}
	if !cfg.Simulation.Enabled || cfg.Simulation.Interval != 5*time.Second {
		t.Fatalf("simulation settings lost: %+v", cfg.Simulation)
	}
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := NewLoader().WithDotEnv(false).Load("")
	if err == nil {
		t.Fatalf("expected error for missing jwt secret")
	}
	if !platformerrors.IsKind(err, platformerrors.KindConfig) {
		t.Fatalf("expected config kind, got %v", err)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("JWT_SECRET", "x")

	if _, err := NewLoader().WithDotEnv(false).Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
