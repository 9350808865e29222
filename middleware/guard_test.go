package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/apitest"
	"github.com/MrEthical07/goSession/policy"
	"github.com/MrEthical07/goSession/session"
)

func newManager(t *testing.T) (*goSession.Manager, goSession.RoutingConfig) {
	t.Helper()

	srv := apitest.New(time.Hour)
	t.Cleanup(srv.Close)
	srv.AddUser(apitest.User{ID: "u-1", Role: session.RoleMember, Username: "mia", Password: "pw"})
	srv.AddUser(apitest.User{ID: "u-2", Role: session.RoleAdmin, Username: "ada", Password: "pw"})

	cfg := goSession.DefaultConfig()
	cfg.Mode = policy.ModeTest
	cfg.API.BaseURL = srv.URL
	m, err := goSession.New().WithConfig(cfg).Build()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	ctx := context.Background()
	for _, c := range []struct {
		user string
		role session.Role
	}{{"mia", session.RoleMember}, {"ada", session.RoleAdmin}} {
		res := m.AuthenticateUser(ctx, goSession.Credentials{Username: c.user, Password: "pw"}, c.role)
		require.True(t, res.Success(), "%v", res.Err)
	}
	return m, cfg.Routing
}

func newRouter(m *goSession.Manager, routing goSession.RoutingConfig) http.Handler {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(Guard(m, routing))
		r.Get("/member/home", func(w http.ResponseWriter, r *http.Request) {
			status, _ := StatusFromContext(r.Context())
			if status.Restored {
				w.Header().Set("X-Restored", "1")
			}
			_, _ = w.Write([]byte(status.Session.UserType))
		})
		r.Get("/admin/home", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("admin"))
		})
		r.With(RequireRole(m, session.RoleAdmin)).Get("/reports", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("reports"))
		})
	})
	return r
}

func TestGuardRestoresByArea(t *testing.T) {
	m, routing := newManager(t)
	h := newRouter(m, routing)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/member/home", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "member", rec.Body.String())
	require.Equal(t, "1", rec.Header().Get("X-Restored"))

	// Outside any area the active member session is kept, and it lacks the
	// admin role.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/home", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGuardRedirectsWithoutSession(t *testing.T) {
	m, routing := newManager(t)
	require.NoError(t, m.Logout(context.Background()))
	h := newRouter(m, routing)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/member/home", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login?reason=missing_data", rec.Header().Get("Location"))

	routing.LoginPath = ""
	h = newRouter(m, routing)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/member/home", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardNilManager(t *testing.T) {
	h := Guard(nil, goSession.RoutingConfig{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
