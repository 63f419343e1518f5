package types

import "time"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Memory    MemoryConfig    `yaml:"memory"`
	Directory DirectoryConfig `yaml:"directory"`
	Security  SecurityConfig  `yaml:"security"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// MemoryConfig configures the in-memory session store.
// MaxSessionDuration is expressed in seconds.
type MemoryConfig struct {
	MaxSessions        int   `yaml:"max_sessions"`
	MaxSessionDuration int64 `yaml:"max_session_duration"`
	SlidingRefresh     bool  `yaml:"sliding_refresh"`
}

// Duration returns MaxSessionDuration as a time.Duration, clamped to zero.
func (m MemoryConfig) Duration() time.Duration {
	if m.MaxSessionDuration <= 0 {
		return 0
	}
	return time.Duration(m.MaxSessionDuration) * time.Second
}

type DirectoryConfig struct {
	Type   string              `yaml:"type"`
	Static map[string][]string `yaml:"static"`
	Redis  RedisConfig         `yaml:"redis"`
}

type SecurityConfig struct {
	RateLimit      RateConfig `yaml:"rate_limit"`
	TrustedProxies []string   `yaml:"trusted_proxies"`
}

type RateConfig struct {
	Period time.Duration `yaml:"period"`
	Limit  int           `yaml:"limit"`
}
