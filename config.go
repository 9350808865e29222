package goSession

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/authapi"
	"github.com/MrEthical07/goSession/policy"
	"github.com/MrEthical07/goSession/session"
)

// Config holds every setting of a Manager. Obtain one from DefaultConfig or
// LoadConfig and treat it as immutable once passed to the Builder.
type Config struct {
	// Mode is the deployment mode. It selects the Environment Policy once,
	// at Build.
	Mode       policy.Mode      `yaml:"mode"`
	API        APIConfig        `yaml:"api"`
	Store      StoreConfig      `yaml:"store"`
	Audit      AuditConfig      `yaml:"audit"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	Validation ValidationConfig `yaml:"validation"`
	Routing    RoutingConfig    `yaml:"routing"`
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the remote auth API.
type APIConfig struct {
	BaseURL        string                  `yaml:"base_url"`
	Timeout        time.Duration           `yaml:"timeout"`
	LoginPaths     map[session.Role]string `yaml:"login_paths"`
	RolesPath      string                  `yaml:"roles_path"`
	CheckTokenPath string                  `yaml:"check_token_path"`
	RefreshPath    string                  `yaml:"refresh_path"`
	AuditPath      string                  `yaml:"audit_path"`
}

func (c APIConfig) paths() authapi.Paths {
	return authapi.Paths{
		Login:      maps.Clone(c.LoginPaths),
		Roles:      c.RolesPath,
		CheckToken: c.CheckTokenPath,
		Refresh:    c.RefreshPath,
		Audit:      c.AuditPath,
	}
}

/*
====================================
STORE CONFIG
====================================
*/

const (
	StoreBackendMemory = "memory"
	StoreBackendFile   = "file"
	StoreBackendRedis  = "redis"
)

// StoreConfig selects the credential store backend.
type StoreConfig struct {
	Backend     string `yaml:"backend"`
	FilePath    string `yaml:"file_path"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`
	// ClientID names this client's hash in a shared Redis.
	ClientID string `yaml:"client_id"`
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig tunes audit buffering. Whether auditing happens at all is
// decided by the Environment Policy.
type AuditConfig struct {
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

/*
====================================
REFRESH / VALIDATION CONFIG
====================================
*/

// RefreshConfig bounds the shared refresh call. The call is detached from the
// cancellation of whichever request started it, so Timeout is its only limit.
type RefreshConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// ValidationConfig tunes ValidateSession.
type ValidationConfig struct {
	// LocalExpiryCheck reports TokenRefreshNeeded without a server round
	// trip when the access token is a JWT whose exp has passed.
	LocalExpiryCheck bool          `yaml:"local_expiry_check"`
	ExpiryLeeway     time.Duration `yaml:"expiry_leeway"`
}

/*
====================================
ROUTING CONFIG
====================================
*/

// RoutingConfig maps route prefixes onto navigation areas for the HTTP guard.
type RoutingConfig struct {
	// AreaPrefixes maps a path prefix to the role whose area it is.
	AreaPrefixes map[string]session.Role `yaml:"area_prefixes"`
	LoginPath    string                  `yaml:"login_path"`
}

// AreaFor returns the navigation area of path. The longest matching prefix
// wins.
func (c RoutingConfig) AreaFor(path string) session.Area {
	best := ""
	area := session.AreaNone
	for prefix, role := range c.AreaPrefixes {
		if !strings.HasPrefix(path, prefix) || len(prefix) <= len(best) {
			continue
		}
		if prefix != path && !strings.HasSuffix(prefix, "/") && !strings.HasPrefix(path[len(prefix):], "/") {
			continue
		}
		best = prefix
		area = session.AreaFor(role)
	}
	return area
}

// DefaultConfig returns a development-ready configuration over an in-memory
// store. Mode is left empty, which resolves to the production policy.
func DefaultConfig() Config {
	def := authapi.DefaultPaths()
	return Config{
		API: APIConfig{
			BaseURL:        "http://localhost:8080",
			Timeout:        15 * time.Second,
			LoginPaths:     def.Login,
			RolesPath:      def.Roles,
			CheckTokenPath: def.CheckToken,
			RefreshPath:    def.Refresh,
			AuditPath:      def.Audit,
		},
		Store: StoreConfig{
			Backend:     StoreBackendMemory,
			RedisPrefix: "gs",
			ClientID:    "default",
		},
		Audit: AuditConfig{
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Refresh: RefreshConfig{
			Timeout: 10 * time.Second,
		},
		Validation: ValidationConfig{
			LocalExpiryCheck: true,
			ExpiryLeeway:     5 * time.Second,
		},
		Routing: RoutingConfig{
			AreaPrefixes: map[string]session.Role{
				"/member":  session.RoleMember,
				"/admin":   session.RoleAdmin,
				"/trainer": session.RoleTrainer,
			},
			LoginPath: "/login",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.API.LoginPaths = maps.Clone(cfg.API.LoginPaths)
	out.Routing.AreaPrefixes = maps.Clone(cfg.Routing.AreaPrefixes)
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Mode != "" {
		if _, ok := policy.ParseMode(string(c.Mode)); !ok {
			return fmt.Errorf("invalid mode: %q", c.Mode)
		}
	}

	// API
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API BaseURL: %q", c.API.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid API BaseURL scheme: %q", u.Scheme)
	}
	if c.API.Timeout <= 0 {
		return errors.New("API Timeout must be > 0")
	}
	for role, path := range c.API.LoginPaths {
		if !role.Valid() {
			return fmt.Errorf("invalid login path role: %q", role)
		}
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("login path for %s must start with /", role)
		}
	}
	for name, path := range map[string]string{
		"RolesPath":      c.API.RolesPath,
		"CheckTokenPath": c.API.CheckTokenPath,
		"RefreshPath":    c.API.RefreshPath,
		"AuditPath":      c.API.AuditPath,
	} {
		if path != "" && !strings.HasPrefix(path, "/") {
			return fmt.Errorf("API %s must start with /", name)
		}
	}

	// Store
	switch c.Store.Backend {
	case StoreBackendMemory:
	case StoreBackendFile:
		// empty FilePath resolves to the default location at Build
	case StoreBackendRedis:
		if strings.TrimSpace(c.Store.ClientID) == "" {
			return errors.New("Store ClientID required for redis backend")
		}
	default:
		return fmt.Errorf("invalid store backend: %q", c.Store.Backend)
	}

	// Audit
	if c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	// Refresh / validation
	if c.Refresh.Timeout <= 0 {
		return errors.New("Refresh Timeout must be > 0")
	}
	if c.Validation.ExpiryLeeway < 0 || c.Validation.ExpiryLeeway > 5*time.Minute {
		return errors.New("Validation ExpiryLeeway must be within [0, 5m]")
	}

	// Routing
	for prefix, role := range c.Routing.AreaPrefixes {
		if !strings.HasPrefix(prefix, "/") {
			return fmt.Errorf("area prefix %q must start with /", prefix)
		}
		if !role.Valid() {
			return fmt.Errorf("invalid role %q for area prefix %q", role, prefix)
		}
	}
	if c.Routing.LoginPath != "" && !strings.HasPrefix(c.Routing.LoginPath, "/") {
		return errors.New("Routing LoginPath must start with /")
	}

	return nil
}
