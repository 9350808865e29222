package goSession

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/session"
)

// HasRole reports whether the Active Session was granted role. It is false
// when no session is active.
func (m *Manager) HasRole(ctx context.Context, role string) bool {
	if m == nil || m.store == nil {
		return false
	}
	rec, err := m.store.Active(ctx)
	if err != nil {
		return false
	}
	return rec.HasRole(role)
}

// SwitchRole makes role the userType of the Active Session. Tokens and
// identity are unchanged. A role outside the session's granted roles fails
// with ErrRoleNotGranted and changes nothing.
func (m *Manager) SwitchRole(ctx context.Context, role session.Role) error {
	if m == nil || m.store == nil {
		return ErrManagerNotReady
	}

	m.rotation.Lock()
	defer m.rotation.Unlock()

	deps := m.flows.SwitchRole
	deps.BeforeCommit = func(ctx context.Context, rec *session.Record, to session.Role) {
		m.emitAudit(ctx, AuditRoleSwitch, rec, map[string]string{
			"from": string(rec.UserType),
			"to":   string(to),
		})
	}

	res := flows.RunSwitchRole(ctx, role, deps)
	switch res.Failure {
	case flows.SwitchRoleFailureNone:
		m.metricInc(MetricRoleSwitch)
		m.logger.Info().
			Str("from", string(res.From)).
			Str("to", string(role)).
			Msg("role switched")
		return nil
	case flows.SwitchRoleFailureNotGranted:
		return fmt.Errorf("%w: %q", ErrRoleNotGranted, role)
	case flows.SwitchRoleFailureNoSession:
		return fmt.Errorf("%w: %v", ErrNoActiveSession, res.Err)
	case flows.SwitchRoleFailureConflict:
		return fmt.Errorf("%w: %v", ErrSessionChanged, res.Err)
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
	}
}
