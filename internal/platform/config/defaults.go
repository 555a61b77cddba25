package config

import "time"

// Default returns the configuration used when the config file omits values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: 8080,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "logs",
			File:  "server.log",
		},
		Web: WebConfig{
			StaticDir: "./web",
		},
		Database: DatabaseConfig{
			Path: "coolwatch.db",
		},
		JWT: JWTConfig{
			Issuer:     "coolwatch",
			Audience:   "coolwatch-clients",
			TTL:        24 * time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Realtime: RealtimeConfig{
			Path:             "/ws",
			HandshakeTimeout: 10 * time.Second,
			SendBufferSize:   256,
			WriteTimeout:     10 * time.Second,
			PingInterval:     25 * time.Second,
			PongTimeout:      60 * time.Second,
		},
		TokenStore: TokenStoreConfig{
			Type: "memory",
		},
		Simulation: SimulationConfig{
			Enabled:  false,
			Interval: 30 * time.Second,
		},
	}
}

// merge fills zero-valued fields of cfg from the defaults.
func merge(cfg *Config) {
	def := Default()

	if cfg.Server.IP == "" {
		cfg.Server.IP = def.Server.IP
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Web.StaticDir == "" {
		cfg.Web.StaticDir = def.Web.StaticDir
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = def.Database.Path
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = def.JWT.Issuer
	}
	if cfg.JWT.Audience == "" {
		cfg.JWT.Audience = def.JWT.Audience
	}
	if cfg.JWT.TTL == 0 {
		cfg.JWT.TTL = def.JWT.TTL
	}
	if cfg.JWT.RefreshTTL == 0 {
		cfg.JWT.RefreshTTL = def.JWT.RefreshTTL
	}
	if cfg.Realtime.Path == "" {
		cfg.Realtime.Path = def.Realtime.Path
	}
	if cfg.Realtime.HandshakeTimeout == 0 {
		cfg.Realtime.HandshakeTimeout = def.Realtime.HandshakeTimeout
	}
	if cfg.Realtime.SendBufferSize == 0 {
		cfg.Realtime.SendBufferSize = def.Realtime.SendBufferSize
	}
	if cfg.Realtime.WriteTimeout == 0 {
		cfg.Realtime.WriteTimeout = def.Realtime.WriteTimeout
	}
	if cfg.Realtime.PingInterval == 0 {
		cfg.Realtime.PingInterval = def.Realtime.PingInterval
	}
	if cfg.Realtime.PongTimeout == 0 {
		cfg.Realtime.PongTimeout = def.Realtime.PongTimeout
	}
	if cfg.TokenStore.Type == "" {
		cfg.TokenStore.Type = def.TokenStore.Type
	}
	if cfg.Simulation.Interval == 0 {
		cfg.Simulation.Interval = def.Simulation.Interval
	}
}
