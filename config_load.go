package goSession

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/goSession/policy"
)

// Environment variables read by LoadConfig. Each overrides the matching YAML
// setting when set and non-empty.
const (
	EnvMode           = "GOSESSION_MODE"
	EnvAPIBaseURL     = "GOSESSION_API_BASE_URL"
	EnvAPITimeout     = "GOSESSION_API_TIMEOUT"
	EnvStoreBackend   = "GOSESSION_STORE_BACKEND"
	EnvStoreFile      = "GOSESSION_STORE_FILE"
	EnvRedisAddr      = "GOSESSION_REDIS_ADDR"
	EnvRedisPrefix    = "GOSESSION_REDIS_PREFIX"
	EnvClientID       = "GOSESSION_CLIENT_ID"
	EnvMetrics        = "GOSESSION_METRICS_ENABLED"
	EnvRefreshTimeout = "GOSESSION_REFRESH_TIMEOUT"
	EnvLoginPath      = "GOSESSION_LOGIN_PATH"
)

// LoadConfig starts from DefaultConfig, overlays the YAML file at path (if
// path is non-empty) and then the GOSESSION_* environment, and validates the
// result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvMode); v != "" {
		mode, ok := policy.ParseMode(v)
		if !ok {
			return fmt.Errorf("invalid %s: %q", EnvMode, v)
		}
		cfg.Mode = mode
	}
	cfg.API.BaseURL = getEnv(EnvAPIBaseURL, cfg.API.BaseURL)
	if v := os.Getenv(EnvAPITimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid %s: %q", EnvAPITimeout, v)
		}
		cfg.API.Timeout = d
	}
	cfg.Store.Backend = strings.ToLower(getEnv(EnvStoreBackend, cfg.Store.Backend))
	cfg.Store.FilePath = getEnv(EnvStoreFile, cfg.Store.FilePath)
	cfg.Store.RedisAddr = getEnv(EnvRedisAddr, cfg.Store.RedisAddr)
	cfg.Store.RedisPrefix = getEnv(EnvRedisPrefix, cfg.Store.RedisPrefix)
	cfg.Store.ClientID = getEnv(EnvClientID, cfg.Store.ClientID)
	cfg.Metrics.Enabled = getEnvBool(EnvMetrics, cfg.Metrics.Enabled)
	if v := os.Getenv(EnvRefreshTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid %s: %q", EnvRefreshTimeout, v)
		}
		cfg.Refresh.Timeout = d
	}
	cfg.Routing.LoginPath = getEnv(EnvLoginPath, cfg.Routing.LoginPath)
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}
