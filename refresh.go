package goSession

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/session"
)

// refresh runs at most one refresh per refresh token at a time. Callers that
// arrive while one is in flight wait for it and share its result.
//
// The exchange itself is detached from ctx so that one caller giving up does
// not fail the others. A caller whose ctx ends first gets a network failure.
func (m *Manager) refresh(ctx context.Context, in flows.RefreshInput) flows.RefreshResult {
	if in.RefreshToken == "" {
		return flows.RefreshResult{Failure: flows.RefreshFailureNoRefreshToken}
	}

	ch := m.refreshGroup.DoChan(in.RefreshToken, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.config.Refresh.Timeout)
		defer cancel()

		m.rotation.Lock()
		defer m.rotation.Unlock()

		res := flows.RunRefresh(rctx, in, m.flows.Refresh)
		m.logRefresh(in, res)
		return res, nil
	})

	select {
	case r := <-ch:
		if r.Shared {
			m.metricInc(MetricRefreshShared)
		}
		return r.Val.(flows.RefreshResult)
	case <-ctx.Done():
		return flows.RefreshResult{Failure: flows.RefreshFailureNetwork, Err: ctx.Err()}
	}
}

func (m *Manager) logRefresh(in flows.RefreshInput, res flows.RefreshResult) {
	switch res.Failure {
	case flows.RefreshFailureNone:
		m.metricInc(MetricRefreshSuccess)
		m.logger.Debug().
			Str("role", string(in.Role)).
			Bool("rotated", res.RefreshToken != "").
			Bool("stored", res.Stored).
			Msg("access token refreshed")
	case flows.RefreshFailureAccountDeleted:
		m.metricInc(MetricRefreshFailure)
		m.metricInc(MetricAccountDeleted)
		m.logger.Warn().
			Str("role", string(res.DeletedRole)).
			Msg("refresh rejected: account deleted")
	case flows.RefreshFailureStore:
		m.metricInc(MetricRefreshSuccess)
		m.logger.Warn().Err(res.Err).Msg("refreshed tokens could not be stored")
	default:
		m.metricInc(MetricRefreshFailure)
		m.logger.Warn().
			Err(res.Err).
			Str("role", string(in.Role)).
			Msg("token refresh failed")
	}
}

// RefreshSession exchanges the refresh token of role's session for a new
// access token. An empty role means the Active Session.
//
// Unlike the Transport, RefreshSession only reports failures: it never clears
// sessions or redirects.
func (m *Manager) RefreshSession(ctx context.Context, role session.Role) error {
	if m == nil || m.store == nil {
		return ErrManagerNotReady
	}
	creds, err := m.store.Credentials(ctx, role)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrIncomplete) {
			return fmt.Errorf("%w: %v", ErrNoActiveSession, err)
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if creds.Token == "" {
		return ErrNoActiveSession
	}

	res := m.refresh(ctx, flows.RefreshInput{RefreshToken: creds.RefreshToken, Role: creds.Role})
	switch res.Failure {
	case flows.RefreshFailureNone:
		if !res.Stored {
			return ErrSessionChanged
		}
		return nil
	case flows.RefreshFailureNoRefreshToken:
		return fmt.Errorf("%w: no refresh token", ErrTokenRefreshNeeded)
	case flows.RefreshFailureAccountDeleted:
		return fmt.Errorf("%w: %v", ErrAccountDeleted, res.Err)
	case flows.RefreshFailureNetwork:
		return fmt.Errorf("%w: %v", ErrNetwork, res.Err)
	case flows.RefreshFailureStore:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenInvalid, res.Err)
	}
}
