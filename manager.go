package goSession

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/MrEthical07/goSession/authapi"
	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/policy"
	"github.com/MrEthical07/goSession/session"
)

// Manager owns the session state of one client. Build it with Builder.
type Manager struct {
	config  Config
	policy  policy.Policy
	store   *session.Store
	api     *authapi.Client
	audit   *audit.Dispatcher
	metrics *Metrics
	logger  zerolog.Logger
	flows   flows.Deps

	navigator Navigator
	notifier  Notifier
	now       func() time.Time

	base       http.RoundTripper
	httpClient *http.Client

	// rotation serializes token refreshes and role switches.
	rotation     sync.Mutex
	refreshGroup singleflight.Group
	redirected   atomic.Bool
	validateSeq  atomic.Uint64
}

// Close flushes pending audit events.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.audit.Close()
}

// Policy returns the Environment Policy resolved at Build.
func (m *Manager) Policy() policy.Policy {
	return m.policy
}

// Store exposes the credential store for read-only inspection and tests.
func (m *Manager) Store() *session.Store {
	return m.store
}

func (m *Manager) MetricsSnapshot() MetricsSnapshot {
	if m == nil || m.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return m.metrics.Snapshot()
}

func (m *Manager) metricInc(id MetricID) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.Inc(id)
}

// AuthenticateUser logs in as role. It never returns an error: failures are
// described by AuthResult.Kind and AuthResult.Message, and leave every stored
// session untouched.
func (m *Manager) AuthenticateUser(ctx context.Context, creds Credentials, role session.Role) AuthResult {
	if m == nil || m.store == nil {
		return AuthResult{Kind: FailureServerError, Err: ErrManagerNotReady, Message: "session manager not ready"}
	}

	res := flows.RunLogin(ctx, flows.LoginInput{
		Role:     role,
		Username: creds.Username,
		Password: creds.Password,
	}, m.flows.Login)

	if res.Failure != flows.LoginFailureNone {
		out := mapLoginFailure(res)
		if out.Kind == FailureMaintenanceMode {
			m.metricInc(MetricLoginMaintenance)
		} else {
			m.metricInc(MetricLoginFailure)
		}
		m.logger.Info().
			Str("role", string(role)).
			Str("kind", out.Kind.String()).
			Err(res.Err).
			Msg("login failed")
		return out
	}

	if res.RolesFallback {
		m.metricInc(MetricLoginRolesFallback)
	}
	m.metricInc(MetricLoginSuccess)
	m.redirected.Store(false)
	m.emitAudit(ctx, AuditLogin, res.Record, map[string]string{
		"username": res.Record.Username,
	})
	m.logger.Info().
		Str("role", string(role)).
		Str("user_id", res.Record.UserID).
		Bool("dual_sessions", m.policy.AllowDualSessions).
		Msg("login succeeded")

	return AuthResult{Session: res.Record}
}

func mapLoginFailure(res flows.LoginResult) AuthResult {
	out := AuthResult{Message: res.Message}
	switch res.Failure {
	case flows.LoginFailureInvalidCredentials:
		out.Kind = FailureInvalidCredentials
		out.Err = fmt.Errorf("%w: %v", ErrInvalidCredentials, res.Err)
		if out.Message == "" {
			out.Message = "invalid username or password"
		}
	case flows.LoginFailureMaintenance:
		out.Kind = FailureMaintenanceMode
		out.Err = fmt.Errorf("%w: %v", ErrMaintenanceMode, res.Err)
		if out.Message == "" {
			out.Message = "the system is under maintenance"
		}
	case flows.LoginFailureNetwork:
		out.Kind = FailureNetworkError
		out.Err = fmt.Errorf("%w: %v", ErrNetwork, res.Err)
		if out.Message == "" {
			out.Message = "unable to reach the server"
		}
	case flows.LoginFailureStore:
		out.Kind = FailureServerError
		out.Err = fmt.Errorf("%w: %w: %v", ErrServer, ErrStoreUnavailable, res.Err)
		if out.Message == "" {
			out.Message = "unable to save the session"
		}
	default:
		out.Kind = FailureServerError
		out.Err = fmt.Errorf("%w: %v", ErrServer, res.Err)
		if out.Message == "" {
			out.Message = "the server could not complete the login"
		}
	}
	return out
}

// ValidateSession reports whether the Active Session is usable for a route
// in opts.Area. It never returns an error.
//
// With dual sessions enabled, entering another role's area promotes that
// role's Namespaced Session to active when one exists. An expired session is
// cleared unless opts.Operation is OperationDelete.
func (m *Manager) ValidateSession(ctx context.Context, opts ValidateOptions) ValidationStatus {
	if m == nil || m.store == nil {
		return ValidationStatus{Reason: ReasonMissingData, SkipClear: true, Err: ErrManagerNotReady}
	}

	seq := m.validateSeq.Add(1)
	start := time.Now()
	res := flows.RunValidate(ctx, flows.ValidateInput{
		Destructive: opts.Operation == OperationDelete,
		Area:        opts.Area,
	}, m.flows.Validate)
	if m.metrics.LatencyEnabled() {
		m.metrics.Observe(MetricValidateLatency, time.Since(start))
	}

	status := ValidationStatus{
		Valid:     res.Valid,
		SkipClear: res.SkipClear,
		Restored:  res.Restored,
		Stale:     m.validateSeq.Load() != seq,
		Session:   res.Record,
	}
	switch res.Reason {
	case flows.ValidateReasonMissingData:
		status.Reason = ReasonMissingData
	case flows.ValidateReasonExpired:
		status.Reason = ReasonExpired
		m.metricInc(MetricSessionExpired)
		if res.Cleared {
			m.metricInc(MetricSessionInvalidated)
		}
	case flows.ValidateReasonTokenRefreshNeeded:
		status.Reason = ReasonTokenRefreshNeeded
	case flows.ValidateReasonInvalidToken:
		status.Reason = ReasonInvalidToken
	}
	if err := status.Reason.Err(); err != nil {
		if res.Err != nil {
			status.Err = fmt.Errorf("%w: %v", err, res.Err)
		} else {
			status.Err = err
		}
	}

	if res.Restored {
		m.metricInc(MetricSessionRestored)
		evt := m.logger.Info().Str("area", opts.Area.String())
		if res.Record != nil {
			evt = evt.Str("role", string(res.Record.UserType))
		}
		evt.Msg("session restored from namespaced copy")
	} else if !res.Valid {
		m.logger.Debug().
			Str("reason", string(status.Reason)).
			Bool("skip_clear", status.SkipClear).
			Bool("cleared", res.Cleared).
			Bool("local_expiry", res.LocalExpiry).
			Msg("session invalid")
	}
	return status
}

// Logout removes the Active Session. Namespaced Sessions survive, so another
// role stays available for restoration.
func (m *Manager) Logout(ctx context.Context) error {
	if m == nil || m.store == nil {
		return ErrManagerNotReady
	}
	rec, _ := m.store.Active(ctx)
	if err := m.store.ClearActive(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	m.metricInc(MetricLogout)
	m.emitAudit(ctx, AuditLogout, rec, map[string]string{"scope": "active"})
	return nil
}

// ClearAllSessions removes the Active Session and every Namespaced Session.
func (m *Manager) ClearAllSessions(ctx context.Context) error {
	if m == nil || m.store == nil {
		return ErrManagerNotReady
	}
	rec, _ := m.store.Active(ctx)
	if err := m.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	m.metricInc(MetricLogout)
	m.metricInc(MetricSessionInvalidated)
	m.emitAudit(ctx, AuditLogout, rec, map[string]string{"scope": "all"})
	return nil
}

// GetAvailableSessions reports which roles hold a stored session.
func (m *Manager) GetAvailableSessions(ctx context.Context) (map[session.Role]bool, error) {
	if m == nil || m.store == nil {
		return nil, ErrManagerNotReady
	}
	avail, err := m.store.Available(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return avail, nil
}

// ActiveSession returns the Active Session.
func (m *Manager) ActiveSession(ctx context.Context) (*session.Record, error) {
	if m == nil || m.store == nil {
		return nil, ErrManagerNotReady
	}
	rec, err := m.store.Active(ctx)
	if err != nil {
		if errors.Is(err, session.ErrIncomplete) {
			return nil, fmt.Errorf("%w: %v", ErrNoActiveSession, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return rec, nil
}

// redirectToLogin fires the Navigator at most once until the next successful
// login.
func (m *Manager) redirectToLogin(ctx context.Context, reason Reason) {
	if !m.redirected.CompareAndSwap(false, true) {
		return
	}
	m.metricInc(MetricLoginRedirect)
	m.logger.Info().Str("reason", string(reason)).Msg("redirecting to login")
	if m.navigator != nil {
		m.navigator.RedirectToLogin(ctx, reason)
	}
}
