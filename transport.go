package goSession

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/session"
)

// RequestIDHeader carries a per-request id. A retry reuses the id of the
// original attempt.
const RequestIDHeader = "X-Request-ID"

// maxDrainBytes bounds how much of a discarded 401 body is read so the
// connection can be reused.
const maxDrainBytes = 64 << 10

// Transport is an http.RoundTripper that attaches the session's access token
// to business requests.
//
// On a 401 it refreshes the token once and retries the request once. Refresh
// failures end the session: a deleted account clears every session only when
// it was the active role's, and any other rejection clears everything and
// redirects to login unless a newer login already replaced the session.
// Requests that get no response at all are returned to the caller unchanged,
// and a caller whose context ends during the refresh gets ctx.Err().
type Transport struct {
	m    *Manager
	base http.RoundTripper
}

// Transport wraps base. A nil base means http.DefaultTransport.
func (m *Manager) Transport(base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{m: m, base: base}
}

// HTTPClient returns the client used for all business-API calls.
func (m *Manager) HTTPClient() *http.Client {
	return m.httpClient
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	m := t.m
	if m == nil || m.store == nil {
		return nil, ErrManagerNotReady
	}
	ctx := req.Context()

	getBody, err := replayableBody(req)
	if err != nil {
		return nil, err
	}

	creds, err := m.store.Credentials(ctx, roleFromContext(ctx))
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		// The requested role has no session. Send unauthenticated and let
		// the server decide.
		creds = session.Credentials{Role: roleFromContext(ctx)}
	}

	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	resp, err := t.send(req, getBody, creds.Token, requestID)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	// The token may already have been replaced by a refresh that finished
	// while this request was in flight.
	if current, err := m.store.Credentials(ctx, creds.Role); err == nil &&
		current.Token != "" && current.Token != creds.Token {
		return t.retry(req, resp, getBody, current.Token, requestID)
	}

	if creds.RefreshToken == "" {
		m.redirectToLogin(ctx, ReasonTokenRefreshNeeded)
		return resp, nil
	}

	res := m.refresh(ctx, flows.RefreshInput{
		RefreshToken: creds.RefreshToken,
		Role:         creds.Role,
	})
	switch res.Failure {
	case flows.RefreshFailureNone, flows.RefreshFailureStore:
		return t.retry(req, resp, getBody, res.AccessToken, requestID)
	case flows.RefreshFailureNetwork:
		if err := ctx.Err(); err != nil {
			drain(resp)
			return nil, err
		}
		return resp, nil
	case flows.RefreshFailureAccountDeleted:
		t.accountDeleted(ctx, res.DeletedRole)
		return resp, nil
	default:
		t.refreshRejected(ctx, creds.RefreshToken, res.Err)
		return resp, nil
	}
}

// refreshRejected ends the session that owned refreshToken. When no stored
// session holds it anymore, a newer login replaced it and nothing happens.
func (t *Transport) refreshRejected(ctx context.Context, refreshToken string, cause error) {
	m := t.m
	cleared, err := m.store.ClearAllIfRefresh(ctx, refreshToken)
	switch {
	case err != nil:
		m.logger.Warn().Err(err).Msg("clear sessions after rejected refresh failed")
	case !cleared:
		m.logger.Info().Err(cause).Msg("refresh rejected for a replaced session, ignoring")
		return
	default:
		m.logger.Info().Err(cause).Msg("refresh rejected, sessions cleared")
		m.metricInc(MetricSessionInvalidated)
	}
	m.redirectToLogin(ctx, ReasonInvalidToken)
}

// accountDeleted ends the session only when the deleted account belongs to
// the active role. Deletion of another role's account is ignored.
func (t *Transport) accountDeleted(ctx context.Context, deleted session.Role) {
	m := t.m
	active, err := m.store.ActiveRole(ctx)
	if err != nil || active == "" || active != deleted {
		m.logger.Info().
			Str("deleted_role", string(deleted)).
			Str("active_role", string(active)).
			Msg("account deleted for inactive role, session kept")
		return
	}

	if m.notifier != nil {
		m.notifier.AccountDeleted(ctx, deleted)
	}
	if err := m.store.ClearAll(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("clear sessions after account deletion failed")
	} else {
		m.metricInc(MetricSessionInvalidated)
	}
	m.redirectToLogin(ctx, ReasonAccountDeleted)
}

func (t *Transport) retry(req *http.Request, prev *http.Response, getBody func() (io.ReadCloser, error), token, requestID string) (*http.Response, error) {
	drain(prev)
	t.m.metricInc(MetricRequestRetried)
	return t.send(req, getBody, token, requestID)
}

func (t *Transport) send(req *http.Request, getBody func() (io.ReadCloser, error), token, requestID string) (*http.Response, error) {
	out := req.Clone(req.Context())
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
		out.GetBody = getBody
	}
	out.Header.Set(RequestIDHeader, requestID)
	if token != "" {
		(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(out)
	} else {
		out.Header.Del("Authorization")
	}
	return t.base.RoundTrip(out)
}

// replayableBody returns a function yielding fresh copies of the request
// body, buffering it when the request cannot rewind it itself.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		_ = req.Body.Close()
		return req.GetBody, nil
	}
	buf, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, err
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}, nil
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	_ = resp.Body.Close()
}
