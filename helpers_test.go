package goSession

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goSession/internal/apitest"
	"github.com/MrEthical07/goSession/policy"
	"github.com/MrEthical07/goSession/session"
)

var (
	memberUser = apitest.User{
		ID:             "u-member",
		Role:           session.RoleMember,
		Username:       "mia",
		Password:       "mia-password",
		Name:           "Mia Member",
		RoleSpecificID: "m-100",
	}
	adminUser = apitest.User{
		ID:       "u-admin",
		Role:     session.RoleAdmin,
		Username: "ada",
		Password: "ada-password",
		Name:     "Ada Admin",
		Roles:    []string{"admin", "trainer"},
	}
)

type testClock struct {
	offset atomic.Int64
}

func (c *testClock) Now() time.Time {
	return time.Now().Add(time.Duration(c.offset.Load()))
}

func (c *testClock) Advance(d time.Duration) {
	c.offset.Add(int64(d))
}

type recordingNavigator struct {
	mu      sync.Mutex
	reasons []Reason
}

func (n *recordingNavigator) RedirectToLogin(_ context.Context, reason Reason) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reasons = append(n.reasons, reason)
}

func (n *recordingNavigator) Reasons() []Reason {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Reason(nil), n.reasons...)
}

type recordingNotifier struct {
	mu    sync.Mutex
	roles []session.Role
}

func (n *recordingNotifier) AccountDeleted(_ context.Context, role session.Role) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.roles = append(n.roles, role)
}

func (n *recordingNotifier) Roles() []session.Role {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]session.Role(nil), n.roles...)
}

type harness struct {
	m         *Manager
	srv       *apitest.Server
	backend   *session.MemoryBackend
	clock     *testClock
	navigator *recordingNavigator
	notifier  *recordingNotifier
}

type harnessOption func(*Config, *Builder)

func withAuditSink(sink AuditSink) harnessOption {
	return func(_ *Config, b *Builder) { b.WithAuditSink(sink) }
}

func withBaseTransport(rt http.RoundTripper) harnessOption {
	return func(_ *Config, b *Builder) { b.WithBaseTransport(rt) }
}

func withRefreshTimeout(d time.Duration) harnessOption {
	return func(cfg *Config, _ *Builder) { cfg.Refresh.Timeout = d }
}

func newHarness(t *testing.T, mode policy.Mode, opts ...harnessOption) *harness {
	t.Helper()

	srv := apitest.New(time.Hour)
	t.Cleanup(srv.Close)
	srv.AddUser(memberUser)
	srv.AddUser(adminUser)

	h := &harness{
		srv:       srv,
		backend:   session.NewMemoryBackend(),
		clock:     &testClock{},
		navigator: &recordingNavigator{},
		notifier:  &recordingNotifier{},
	}

	cfg := DefaultConfig()
	cfg.Mode = mode
	cfg.API.BaseURL = srv.URL
	cfg.API.Timeout = 5 * time.Second
	cfg.Metrics.EnableLatencyHistograms = true

	b := New()
	for _, opt := range opts {
		opt(&cfg, b)
	}
	m, err := b.WithConfig(cfg).
		WithBackend(h.backend).
		WithClock(h.clock.Now).
		WithNavigator(h.navigator).
		WithNotifier(h.notifier).
		Build()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	h.m = m
	return h
}

func (h *harness) login(t *testing.T, u apitest.User) *session.Record {
	t.Helper()
	res := h.m.AuthenticateUser(context.Background(), Credentials{Username: u.Username, Password: u.Password}, u.Role)
	require.True(t, res.Success(), "login %s: %v", u.Username, res.Err)
	return res.Session
}

func (h *harness) snapshot(t *testing.T) map[string]string {
	t.Helper()
	data, err := h.backend.Load(context.Background())
	require.NoError(t, err)
	return data
}

func (h *harness) get(t *testing.T, ctx context.Context, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.srv.URL+apitest.BusinessPrefix+path, nil)
	require.NoError(t, err)
	resp, err := h.m.HTTPClient().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (h *harness) activeToken(t *testing.T) string {
	t.Helper()
	creds, err := h.m.Store().Credentials(context.Background(), "")
	require.NoError(t, err)
	return creds.Token
}
