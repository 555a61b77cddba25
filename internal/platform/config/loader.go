package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"coolwatch-server-go/internal/platform/errors"
)

// Loader reads the YAML config file and applies .env/environment overrides.
type Loader struct {
	useDotEnv bool
}

func NewLoader() *Loader {
	return &Loader{useDotEnv: true}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// Load parses path (optional) and returns the merged configuration. A missing
// file is not an error; defaults plus environment variables apply.
func (l *Loader) Load(path string) (*Config, error) {
	if l.useDotEnv {
		// .env is a development convenience; absence is fine.
		_ = godotenv.Load()
	}

	cfg := &Config{}
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, errors.Wrap(errors.KindConfig, "config.parse", "invalid config file", err)
			}
		case os.IsNotExist(err):
			// fall through to defaults
		default:
			return nil, errors.Wrap(errors.KindConfig, "config.read", "failed to read config file", err)
		}
	}

	applyEnvOverrides(cfg)
	merge(cfg)

	if cfg.JWT.Secret == "" {
		return nil, errors.New(errors.KindConfig, "config.validate", "jwt secret is required (JWT_SECRET)")
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_IP"); v != "" {
		cfg.Server.IP = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.TokenStore.Type = "redis"
		cfg.TokenStore.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.TokenStore.Redis.Password = v
	}
	if v := os.Getenv("ENABLE_SENSOR_SIMULATION"); v != "" {
		cfg.Simulation.Enabled = v == "true" || v == "1"
	}
}
