package authapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/goSession/internal/apitest"
	"github.com/MrEthical07/goSession/session"
)

func newFake(t *testing.T) (*apitest.Server, *Client) {
	t.Helper()
	srv := apitest.New(0)
	t.Cleanup(srv.Close)
	srv.AddUser(apitest.User{
		ID: "u1", Role: session.RoleMember, Username: "ana", Password: "pw",
		Name: "Ana", RoleSpecificID: "m-1",
	})
	srv.AddUser(apitest.User{
		ID: "u2", Role: session.RoleAdmin, Username: "bo", Password: "pw",
		Name: "Bo", Roles: []string{"admin", "trainer"},
	})
	return srv, NewClient(srv.URL, srv.Client(), Paths{})
}

func TestLoginSuccess(t *testing.T) {
	srv, c := newFake(t)

	resp, err := c.Login(context.Background(), session.RoleMember, "ana", "pw")
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "u1", resp.UserID)
	require.Equal(t, "m-1", resp.SpecificID())
	require.Equal(t, int64(1), srv.Counters.Logins.Load())

	roles, err := c.Roles(context.Background(), resp.Token)
	require.NoError(t, err)
	require.Equal(t, []string{"member"}, roles)
	require.NoError(t, c.CheckToken(context.Background(), resp.Token))
}

func TestLoginFailuresCarryStatusAndCode(t *testing.T) {
	_, c := newFake(t)

	_, err := c.Login(context.Background(), session.RoleMember, "ana", "nope")
	apiErr, ok := AsError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, "wrong_password", apiErr.Code)

	_, err = c.Login(context.Background(), session.RoleMember, "ghost", "pw")
	apiErr, ok = AsError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, apiErr.Status)
	require.True(t, apiErr.ClientError())
}

func TestLoginMaintenanceOnSuccessStatus(t *testing.T) {
	srv, c := newFake(t)
	srv.SetMaintenance("Back at 6am")

	_, err := c.Login(context.Background(), session.RoleAdmin, "bo", "pw")
	apiErr, ok := AsError(err)
	require.True(t, ok)
	require.True(t, apiErr.Maintenance)
	require.Equal(t, "Back at 6am", apiErr.Message)
	require.Equal(t, http.StatusOK, apiErr.Status)
}

func TestMaintenanceOnServerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"maintenance":true,"message":"upgrading"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), Paths{})
	_, err := c.Login(context.Background(), session.RoleMember, "ana", "pw")
	apiErr, ok := AsError(err)
	require.True(t, ok)
	require.True(t, apiErr.Maintenance)
	require.Equal(t, "upgrading", apiErr.Message)
}

func TestNoResponse(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, nil, Paths{})
	_, err := c.Login(context.Background(), session.RoleMember, "ana", "pw")
	require.ErrorIs(t, err, ErrNoResponse)
	_, ok := AsError(err)
	require.False(t, ok)
}

func TestCheckTokenUnauthorized(t *testing.T) {
	_, c := newFake(t)
	err := c.CheckToken(context.Background(), "garbage")
	require.True(t, IsUnauthorized(err))
}

func TestRefreshAndUserDeleted(t *testing.T) {
	srv, c := newFake(t)
	login, err := c.Login(context.Background(), session.RoleMember, "ana", "pw")
	require.NoError(t, err)

	out, err := c.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, out.AccessToken)
	require.Empty(t, out.RefreshToken)

	srv.DeleteUser("u1")
	_, err = c.Refresh(context.Background(), login.RefreshToken)
	require.True(t, IsUserDeleted(err))
	apiErr, _ := AsError(err)
	require.Equal(t, "member", apiErr.UserType)
}

func TestPostAudit(t *testing.T) {
	srv, c := newFake(t)
	err := c.PostAudit(context.Background(), "", map[string]string{"event": "login"})
	require.NoError(t, err)
	require.Len(t, srv.Audits(), 1)
	require.Equal(t, "login", srv.Audits()[0]["event"])
}

func TestLoginUnknownRole(t *testing.T) {
	_, c := newFake(t)
	_, err := c.Login(context.Background(), session.Role("owner"), "x", "y")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNoResponse))
}
