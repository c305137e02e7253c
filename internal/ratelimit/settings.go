package ratelimit

import (
	"strings"
	"time"
)

// DefaultRedisPrefix namespaces limiter keys in Redis.
const DefaultRedisPrefix = "frp-panel:rl"

// SettingsConfig captures the limiter settings.
type SettingsConfig struct {
	Limit         int
	Window        time.Duration
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Normalize trims fields and applies defaults.
func (cfg SettingsConfig) Normalize() SettingsConfig {
	cfg.RedisAddr = strings.TrimSpace(cfg.RedisAddr)
	cfg.RedisPassword = strings.TrimSpace(cfg.RedisPassword)
	cfg.RedisPrefix = strings.TrimSpace(cfg.RedisPrefix)
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = DefaultRedisPrefix
	}
	if cfg.RedisAddr != "" {
		cfg.RedisEnabled = true
	}
	if cfg.RedisDB < 0 {
		cfg.RedisDB = 0
	}
	if cfg.Limit < 0 {
		cfg.Limit = 0
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return cfg
}

// StaticSettings returns a provider that always yields cfg.
func StaticSettings(cfg SettingsConfig) SettingsProvider {
	cfg = cfg.Normalize()
	return func() SettingsConfig { return cfg }
}
