package goSession

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goSession/internal/apitest"
	"github.com/MrEthical07/goSession/policy"
	"github.com/MrEthical07/goSession/session"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func decodeBusiness(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestTransportAttachesActiveToken(t *testing.T) {
	h := newHarness(t, policy.ModeTest)
	h.login(t, memberUser)

	resp := h.get(t, context.Background(), "/classes")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBusiness(t, resp)
	require.Equal(t, memberUser.ID, body["userId"])
	require.Equal(t, "member", body["userType"])
	require.Zero(t, h.srv.Counters.Refreshes.Load())
}

func TestTransportWithRoleUsesNamespacedSession(t *testing.T) {
	h := newHarness(t, policy.ModeTest)
	h.login(t, memberUser)
	h.login(t, adminUser)

	resp := h.get(t, WithRole(context.Background(), session.RoleMember), "/classes")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, memberUser.ID, decodeBusiness(t, resp)["userId"])

	resp = h.get(t, context.Background(), "/classes")
	require.Equal(t, adminUser.ID, decodeBusiness(t, resp)["userId"])
}

func TestTransportRefreshesAndRetriesOnce(t *testing.T) {
	h := newHarness(t, policy.ModeTest)
	h.login(t, memberUser)
	old := h.activeToken(t)
	h.srv.RevokeAccess(old)

	req, err := http.NewRequest(http.MethodPost, h.srv.URL+apitest.BusinessPrefix+"/bookings", strings.NewReader(`{"classId":"c-1"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.m.HTTPClient().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBusiness(t, resp)
	require.Equal(t, map[string]any{"classId": "c-1"}, body["echo"])
	require.Equal(t, int64(1), h.srv.Counters.Refreshes.Load())
	require.Equal(t, int64(2), h.srv.Counters.Business.Load())
	require.NotEqual(t, old, h.activeToken(t))

	// The namespaced copy follows the refreshed pair.
	member, err := h.m.Store().Namespaced(context.Background(), session.RoleMember)
	require.NoError(t, err)
	require.Equal(t, h.activeToken(t), member.Token)

	snap := h.m.MetricsSnapshot()
	require.Equal(t, uint64(1), snap.Counters[MetricRefreshSuccess])
	require.Equal(t, uint64(1), snap.Counters[MetricRequestRetried])
	require.Empty(t, h.navigator.Reasons())
}

func TestTransportRetriesAtMostOnce(t *testing.T) {
	h := newHarness(t, policy.ModeTest)
	h.login(t, memberUser)
	h.srv.SetDenyBusiness(true)

	resp := h.get(t, context.Background(), "/classes")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, int64(1), h.srv.Counters.Refreshes.Load())
	require.Equal(t, int64(2), h.srv.Counters.Business.Load())
}

func TestTransportReusesRequestIDOnRetry(t *testing.T) {
	var (
		mu  sync.Mutex
		ids []string
	)
	h := newHarness(t, policy.ModeTest, withBaseTransport(roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		ids = append(ids, req.Header.Get(RequestIDHeader))
		mu.Unlock()
		return http.DefaultTransport.RoundTrip(req)
	})))
	h.login(t, memberUser)
	h.srv.RevokeAccess(h.activeToken(t))

	resp := h.get(t, context.Background(), "/classes")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, ids, 2)
	require.NotEmpty(t, ids[0])
	require.Equal(t, ids[0], ids[1])
}

func TestTransportSharesConcurrentRefresh(t *testing.T) {
	h := newHarness(t, policy.ModeTest)
	h.login(t, memberUser)
	h.srv.SetRotateRefresh(true)
	h.srv.SetRefreshDelay(100 * time.Millisecond)
	h.srv.RevokeAccess(h.activeToken(t))

	const n = 8
	var wg sync.WaitGroup
	codes := make(chan int, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := h.m.HTTPClient().Get(h.srv.URL + apitest.BusinessPrefix + "/classes")
			if err != nil {
				errs <- err
				return
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			codes <- resp.StatusCode
		}()
	}
	wg.Wait()
	close(codes)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	for code := range codes {
		require.Equal(t, http.StatusOK, code)
	}
	require.Equal(t, int64(1), h.srv.Counters.Refreshes.Load())
	require.Empty(t, h.navigator.Reasons())
}

func TestTransportWithoutRefreshTokenRedirects(t *testing.T) {
	h := newHarness(t, policy.ModeTest)
	ctx := context.Background()
	require.NoError(t, h.m.Store().Save(ctx, &session.Record{
		Token:          "opaque-token",
		UserType:       session.RoleMember,
		UserRoles:      []string{"member"},
		UserID:         memberUser.ID,
		LoginTimestamp: time.Now(),
	}))

	resp := h.get(t, ctx, "/classes")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Zero(t, h.srv.Counters.Refreshes.Load())
	require.Equal(t, []Reason{ReasonTokenRefreshNeeded}, h.navigator.Reasons())
	require.Contains(t, h.snapshot(t), "token")
}

func TestTransportRejectedRefreshClearsAndRedirectsOnce(t *testing.T) {
	h := newHarness(t, policy.ModeTest)
	ctx := context.Background()
	h.login(t, memberUser)
	h.login(t, adminUser)
	h.srv.RevokeAccess(h.activeToken(t))
	h.srv.SetRefreshFailure(http.StatusUnauthorized)

	resp := h.get(t, ctx, "/classes")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Empty(t, h.snapshot(t))

	resp = h.get(t, ctx, "/classes")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, []Reason{ReasonInvalidToken}, h.navigator.Reasons())

	// A fresh login re-arms the redirect.
	h.srv.SetRefreshFailure(0)
	h.login(t, memberUser)
	h.srv.RevokeAccess(h.activeToken(t))
	h.srv.SetRefreshFailure(http.StatusForbidden)
	resp = h.get(t, ctx, "/classes")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, []Reason{ReasonInvalidToken, ReasonInvalidToken}, h.navigator.Reasons())
}

func TestTransportRejectedRefreshKeepsNewerLogin(t *testing.T) {
	h := newHarness(t, policy.ModeProduction)
	ctx := context.Background()
	h.login(t, adminUser)
	h.srv.RevokeAccess(h.activeToken(t))
	h.srv.SetRefreshDelay(300 * time.Millisecond)
	h.srv.SetRefreshFailure(http.StatusUnauthorized)

	status := make(chan int, 1)
	go func() {
		req, err := http.NewRequest(http.MethodGet, h.srv.URL+apitest.BusinessPrefix+"/classes", nil)
		if err != nil {
			status <- 0
			return
		}
		resp, err := h.m.HTTPClient().Do(req)
		if err != nil {
			status <- 0
			return
		}
		_ = resp.Body.Close()
		status <- resp.StatusCode
	}()
	require.Eventually(t, func() bool {
		return h.srv.Counters.Refreshes.Load() == 1
	}, time.Second, 5*time.Millisecond)

	h.login(t, memberUser)
	require.Equal(t, http.StatusUnauthorized, <-status)

	active, err := h.m.ActiveSession(ctx)
	require.NoError(t, err)
	require.Equal(t, session.RoleMember, active.UserType)
	require.Empty(t, h.navigator.Reasons())
	require.Zero(t, h.m.MetricsSnapshot().Counters[MetricSessionInvalidated])
}

func TestTransportDeletedAccountOfInactiveRoleIsIgnored(t *testing.T) {
	h := newHarness(t, policy.ModeTest)
	ctx := context.Background()
	h.login(t, memberUser)
	h.login(t, adminUser)
	before := h.snapshot(t)

	h.srv.DeleteUser(memberUser.ID)

	resp := h.get(t, WithRole(ctx, session.RoleMember), "/classes")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, int64(1), h.srv.Counters.Refreshes.Load())

	require.Equal(t, before, h.snapshot(t))
	require.Empty(t, h.navigator.Reasons())
	require.Empty(t, h.notifier.Roles())

	active, err := h.m.ActiveSession(ctx)
	require.NoError(t, err)
	require.Equal(t, session.RoleAdmin, active.UserType)
	require.Equal(t, uint64(1), h.m.MetricsSnapshot().Counters[MetricAccountDeleted])
}

func TestTransportDeletedAccountOfActiveRoleEndsSession(t *testing.T) {
	h := newHarness(t, policy.ModeTest)
	ctx := context.Background()
	h.login(t, adminUser)
	h.login(t, memberUser)

	h.srv.DeleteUser(memberUser.ID)

	resp := h.get(t, ctx, "/classes")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, []session.Role{session.RoleMember}, h.notifier.Roles())
	require.Equal(t, []Reason{ReasonAccountDeleted}, h.navigator.Reasons())
	require.Empty(t, h.snapshot(t))
}

func TestTransportRefreshNetworkFailureKeepsSession(t *testing.T) {
	h := newHarness(t, policy.ModeTest, withRefreshTimeout(50*time.Millisecond))
	h.login(t, memberUser)
	h.srv.RevokeAccess(h.activeToken(t))
	h.srv.SetRefreshDelay(300 * time.Millisecond)
	before := h.snapshot(t)

	resp := h.get(t, context.Background(), "/classes")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, before, h.snapshot(t))
	require.Empty(t, h.navigator.Reasons())
}

func TestTransportCancelledDuringRefreshReturnsContextError(t *testing.T) {
	h := newHarness(t, policy.ModeTest)
	rec := h.login(t, memberUser)
	h.srv.RevokeAccess(rec.Token)
	h.srv.SetRefreshDelay(300 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for h.srv.Counters.Refreshes.Load() == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		cancel()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.srv.URL+apitest.BusinessPrefix+"/classes", nil)
	require.NoError(t, err)
	resp, err := h.m.HTTPClient().Do(req)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, h.navigator.Reasons())

	// The shared refresh still completes for the session.
	require.Eventually(t, func() bool {
		creds, err := h.m.Store().Credentials(context.Background(), "")
		return err == nil && creds.Token != rec.Token
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTransportNetworkErrorIsSurfaced(t *testing.T) {
	offline := errors.New("offline")
	h := newHarness(t, policy.ModeTest, withBaseTransport(roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, offline
	})))
	h.login(t, memberUser)
	before := h.snapshot(t)

	req, err := http.NewRequest(http.MethodGet, h.srv.URL+apitest.BusinessPrefix+"/classes", nil)
	require.NoError(t, err)
	_, err = h.m.HTTPClient().Do(req)
	require.ErrorIs(t, err, offline)

	require.Zero(t, h.srv.Counters.Refreshes.Load())
	require.Equal(t, before, h.snapshot(t))
	require.Empty(t, h.navigator.Reasons())
}

func TestRefreshSession(t *testing.T) {
	h := newHarness(t, policy.ModeTest)
	ctx := context.Background()
	require.ErrorIs(t, h.m.RefreshSession(ctx, ""), ErrNoActiveSession)

	h.login(t, memberUser)
	old := h.activeToken(t)
	require.NoError(t, h.m.RefreshSession(ctx, ""))
	require.NotEqual(t, old, h.activeToken(t))

	h.srv.DeleteUser(memberUser.ID)
	require.ErrorIs(t, h.m.RefreshSession(ctx, ""), ErrAccountDeleted)
	require.Contains(t, h.snapshot(t), "token")
}
