package goSession

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/goSession/authapi"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/policy"
	"github.com/MrEthical07/goSession/session"
)

// Builder assembles a Manager. A Builder can be used for one Build only.
type Builder struct {
	config Config
	policy *policy.Policy

	backend    session.Backend
	redis      redis.UniversalClient
	httpClient *http.Client
	base       http.RoundTripper

	logger    zerolog.Logger
	auditSink AuditSink
	navigator Navigator
	notifier  Notifier
	now       func() time.Time

	built bool
}

func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithPolicy overrides the policy that Config.Mode would resolve to.
func (b *Builder) WithPolicy(p policy.Policy) *Builder {
	b.policy = &p
	return b
}

// WithBackend supplies the credential store backend directly, bypassing
// Config.Store.
func (b *Builder) WithBackend(backend session.Backend) *Builder {
	b.backend = backend
	return b
}

// WithRedis supplies the client used by the redis store backend.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient sets the client used for auth API calls.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithBaseTransport sets the transport that business requests are finally
// sent through. Defaults to http.DefaultTransport.
func (b *Builder) WithBaseTransport(rt http.RoundTripper) *Builder {
	b.base = rt
	return b
}

func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink replaces the default sink, which posts to the audit-log
// endpoint.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithNavigator(n Navigator) *Builder {
	b.navigator = n
	return b
}

func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithClock replaces time.Now.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pol := policy.Resolve(string(cfg.Mode))
	if b.policy != nil {
		pol = *b.policy
	}
	if pol.SessionTimeout <= 0 {
		return nil, errors.New("policy SessionTimeout must be > 0")
	}

	backend, err := b.buildBackend(cfg)
	if err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.API.Timeout}
	}
	base := b.base
	if base == nil {
		base = http.DefaultTransport
	}

	store := session.NewStore(backend, pol.AllowDualSessions)
	api := authapi.NewClient(cfg.API.BaseURL, httpClient, cfg.API.paths())
	logger := b.logger.With().Str("component", "gosession").Logger()

	m := &Manager{
		config:    cfg,
		policy:    pol,
		store:     store,
		api:       api,
		metrics:   NewMetrics(cfg.Metrics),
		logger:    logger,
		navigator: b.navigator,
		notifier:  b.notifier,
		now:       now,
		base:      base,
	}

	sink := b.auditSink
	if sink == nil {
		sink = &apiAuditSink{
			api:     api,
			store:   store,
			timeout: cfg.API.Timeout,
			logger:  logger,
		}
	}
	m.audit = audit.NewDispatcher(audit.Config{
		Enabled:    pol.EnableAuditLog,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, sink)

	warn := func(msg string, kv ...any) {
		logger.Warn().Fields(kv).Msg(msg)
	}
	m.flows = flows.Deps{
		Login: flows.LoginDeps{
			API:              api,
			Store:            store,
			Now:              now,
			StrictValidation: pol.StrictValidation,
			Warn:             warn,
		},
		Validate: flows.ValidateDeps{
			Store:             store,
			CheckToken:        api.CheckToken,
			Now:               now,
			SessionTimeout:    pol.SessionTimeout,
			AllowDualSessions: pol.AllowDualSessions,
			LocalExpiry:       cfg.Validation.LocalExpiryCheck,
			ExpiryLeeway:      cfg.Validation.ExpiryLeeway,
			Warn:              warn,
		},
		Refresh: flows.RefreshDeps{
			API:   api,
			Store: store,
		},
		SwitchRole: flows.SwitchRoleDeps{
			Store: store,
		},
	}
	m.httpClient = &http.Client{
		Transport: m.Transport(base),
		Timeout:   cfg.API.Timeout,
	}

	logger.Debug().
		Str("mode", string(pol.Mode)).
		Bool("dual_sessions", pol.AllowDualSessions).
		Dur("session_timeout", pol.SessionTimeout).
		Bool("strict", pol.StrictValidation).
		Bool("audit", pol.EnableAuditLog).
		Msg("session manager built")

	b.built = true
	return m, nil
}

func (b *Builder) buildBackend(cfg Config) (session.Backend, error) {
	if b.backend != nil {
		return b.backend, nil
	}

	switch cfg.Store.Backend {
	case StoreBackendMemory:
		return session.NewMemoryBackend(), nil
	case StoreBackendFile:
		path := cfg.Store.FilePath
		if path == "" {
			def, err := session.DefaultFilePath()
			if err != nil {
				return nil, err
			}
			path = def
		}
		return session.NewFileBackend(path)
	case StoreBackendRedis:
		client := b.redis
		if client == nil {
			if cfg.Store.RedisAddr == "" {
				return nil, errors.New("redis backend requires a redis client or Store RedisAddr")
			}
			client = redis.NewClient(&redis.Options{Addr: cfg.Store.RedisAddr})
		}
		return session.NewRedisBackend(client, cfg.Store.RedisPrefix, cfg.Store.ClientID), nil
	default:
		return nil, fmt.Errorf("invalid store backend: %q", cfg.Store.Backend)
	}
}
