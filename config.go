package construct

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/minus-twelve/construct/types"
)

const DefaultConfigPath = "configuration.yaml"

const (
	EnvAddr               = "CONSTRUCT_ADDR"
	EnvLogLevel           = "CONSTRUCT_LOG_LEVEL"
	EnvMaxSessions        = "CONSTRUCT_MAX_SESSIONS"
	EnvMaxSessionDuration = "CONSTRUCT_MAX_SESSION_DURATION"
	EnvRedisAddr          = "CONSTRUCT_REDIS_ADDR"
)

func DefaultConfig() types.Config {
	return types.Config{
		Server: types.ServerConfig{Addr: ":8000"},
		Log:    types.LogConfig{Level: "info"},
		Memory: types.MemoryConfig{
			MaxSessions:        5,
			MaxSessionDuration: 60 * 60,
		},
		Directory: types.DirectoryConfig{
			Type:   "static",
			Static: map[string][]string{},
		},
		Security: types.SecurityConfig{
			RateLimit: types.RateConfig{Period: time.Minute, Limit: 30},
		},
	}
}

// LoadConfig reads the YAML configuration at path, writing the defaults
// there first if the file does not exist. A .env file in the working
// directory is loaded when present and environment variables override the
// file.
func LoadConfig(path string) (types.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return types.Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := SaveConfig(path, cfg); err != nil {
			return types.Config{}, err
		}
	case err != nil:
		return types.Config{}, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return types.Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return types.Config{}, err
	}

	cfg.Memory.MaxSessions = max(0, cfg.Memory.MaxSessions)
	cfg.Memory.MaxSessionDuration = max(0, cfg.Memory.MaxSessionDuration)
	return cfg, nil
}

func SaveConfig(path string, cfg types.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *types.Config) error {
	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		cfg.Directory.Redis.Addr = v
	}
	if v := os.Getenv(EnvMaxSessions); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxSessions, err)
		}
		cfg.Memory.MaxSessions = n
	}
	if v := os.Getenv(EnvMaxSessionDuration); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxSessionDuration, err)
		}
		cfg.Memory.MaxSessionDuration = n
	}
	return nil
}
