package types

import "time"

// SessionEntry pairs a bearer token with its absolute expiration time.
type SessionEntry struct {
	Token     string
	ExpiresAt time.Time
}

// Expired reports whether the entry is no longer valid at now.
func (e SessionEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}
