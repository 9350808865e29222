package middleware

import (
	"context"
	"net/http"
	"net/url"

	goSession "github.com/MrEthical07/goSession"
)

type statusContextKey struct{}

// StatusFromContext returns the validation status stored by Guard.
func StatusFromContext(ctx context.Context) (goSession.ValidationStatus, bool) {
	status, ok := ctx.Value(statusContextKey{}).(goSession.ValidationStatus)
	return status, ok
}

// Guard validates the Active Session before next runs.
//
// DELETE requests validate with goSession.OperationDelete, so an expired
// session is reported but not wiped mid-operation. Invalid sessions are sent
// to routing.LoginPath with the reason in the query string, or answered with
// 401 when no login path is configured.
func Guard(m *goSession.Manager, routing goSession.RoutingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			opts := goSession.ValidateOptions{Area: routing.AreaFor(r.URL.Path)}
			if r.Method == http.MethodDelete {
				opts.Operation = goSession.OperationDelete
			}

			status := m.ValidateSession(r.Context(), opts)
			if !status.Valid {
				rejectToLogin(w, r, routing.LoginPath, status.Reason)
				return
			}

			ctx := context.WithValue(r.Context(), statusContextKey{}, status)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func rejectToLogin(w http.ResponseWriter, r *http.Request, loginPath string, reason goSession.Reason) {
	if loginPath == "" || r.URL.Path == loginPath {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	target := loginPath
	if reason != goSession.ReasonNone {
		target += "?" + url.Values{"reason": {string(reason)}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
