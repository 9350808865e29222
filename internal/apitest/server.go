package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/session"
)

// BusinessPrefix is the path prefix of the fake business endpoints.
const BusinessPrefix = "/api/business"

// User is an account known to the fake.
type User struct {
	ID             string
	Role           session.Role
	Username       string
	Password       string
	Name           string
	RoleSpecificID string
	// Roles is returned by the roles lookup. Empty means {Role}.
	Roles []string
}

type refreshEntry struct {
	userID string
	role   session.Role
}

// Counters are per-endpoint request counts.
type Counters struct {
	Logins      atomic.Int64
	RoleLookups atomic.Int64
	TokenChecks atomic.Int64
	Refreshes   atomic.Int64
	Audits      atomic.Int64
	Business    atomic.Int64
}

// Server is a fake auth API. The zero value is not usable; call New.
type Server struct {
	*httptest.Server

	Counters Counters

	issuer *jwt.Issuer

	mu             sync.Mutex
	users          map[string]User
	refresh        map[string]refreshEntry
	revoked        map[string]bool
	deleted        map[string]bool
	audits         []map[string]any
	maintenance    string
	rolesDown      bool
	rotateRefresh  bool
	refreshDelay   time.Duration
	alwaysDenyBiz  bool
	refreshFailure int
	nextCheckDelay time.Duration
}

// New starts a fake server. Close it with Server.Close.
func New(accessTTL time.Duration) *Server {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	issuer, err := jwt.NewIssuer(jwt.IssuerConfig{
		Secret:    []byte("apitest-signing-secret-0123456789"),
		AccessTTL: accessTTL,
		Issuer:    "gym-api",
	})
	if err != nil {
		panic(err)
	}

	s := &Server{
		issuer:  issuer,
		users:   make(map[string]User),
		refresh: make(map[string]refreshEntry),
		revoked: make(map[string]bool),
		deleted: make(map[string]bool),
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/api/members/login", s.handleLogin(session.RoleMember))
	r.Post("/api/admin/login", s.handleLogin(session.RoleAdmin))
	r.Post("/api/trainers/login", s.handleLogin(session.RoleTrainer))

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/roles", s.handleRoles)
		r.Get("/check-token", s.handleCheckToken)
		r.Post("/refresh", s.handleRefresh)
	})
	r.Post("/api/audit-logs", s.handleAudit)
	r.HandleFunc(BusinessPrefix+"/*", s.handleBusiness)

	return r
}

func userKey(role session.Role, username string) string {
	return string(role) + ":" + strings.ToLower(username)
}

// AddUser registers u.
func (s *Server) AddUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userKey(u.Role, u.Username)] = u
}

// SetMaintenance puts every login endpoint into maintenance with message.
// An empty message ends maintenance.
func (s *Server) SetMaintenance(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maintenance = message
}

// SetRolesDown makes the roles lookup fail with 503.
func (s *Server) SetRolesDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rolesDown = down
}

// SetRotateRefresh makes every refresh rotate the refresh token, so a second
// refresh with the old token fails.
func (s *Server) SetRotateRefresh(rotate bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotateRefresh = rotate
}

// SetRefreshDelay stalls the refresh endpoint by d.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshDelay = d
}

// DelayNextTokenCheck stalls only the next token-check request by d.
func (s *Server) DelayNextTokenCheck(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCheckDelay = d
}

// SetRefreshFailure makes the refresh endpoint answer with status. Zero
// restores normal behavior.
func (s *Server) SetRefreshFailure(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshFailure = status
}

// SetDenyBusiness makes business endpoints answer 401 for every token.
func (s *Server) SetDenyBusiness(deny bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alwaysDenyBiz = deny
}

// DeleteUser marks the account as deleted. Its refresh tokens then fail with
// code user_deleted.
func (s *Server) DeleteUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted[userID] = true
}

// RevokeAccess makes token fail the token check and business endpoints.
func (s *Server) RevokeAccess(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = true
}

// Audits returns the audit bodies received so far.
func (s *Server) Audits() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.audits))
	copy(out, s.audits)
	return out
}

// IssueRefreshToken mints a refresh token for an existing user, as if the
// user had logged in elsewhere.
func (s *Server) IssueRefreshToken(userID string, role session.Role) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newRefreshLocked(userID, role)
}

func (s *Server) newRefreshLocked(userID string, role session.Role) string {
	token := uuid.NewString()
	s.refresh[token] = refreshEntry{userID: userID, role: role}
	return token
}

func (s *Server) handleLogin(role session.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Counters.Logins.Add(1)

		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "bad_request", "invalid body")
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.maintenance != "" {
			respondJSON(w, http.StatusOK, map[string]any{
				"maintenance": true,
				"message":     s.maintenance,
			})
			return
		}
		u, ok := s.users[userKey(role, req.Username)]
		if !ok {
			respondError(w, http.StatusNotFound, "user_not_found", "user not found")
			return
		}
		if u.Password != req.Password {
			respondError(w, http.StatusUnauthorized, "wrong_password", "wrong password")
			return
		}
		if s.deleted[u.ID] {
			respondError(w, http.StatusNotFound, "user_not_found", "user not found")
			return
		}

		access, err := s.issuer.Issue(u.ID, string(role))
		if err != nil {
			respondError(w, http.StatusInternalServerError, "issue_failed", err.Error())
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{
			"token":          access,
			"refreshToken":   s.newRefreshLocked(u.ID, role),
			"userId":         u.ID,
			"name":           u.Name,
			"username":       u.Username,
			"roleSpecificId": u.RoleSpecificID,
		})
	}
}

func (s *Server) authorize(r *http.Request) (*jwt.AccessClaims, bool) {
	raw := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if raw == "" {
		return nil, false
	}
	claims, err := s.issuer.Verify(raw)
	if err != nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revoked[raw] || s.deleted[claims.Subject] {
		return nil, false
	}
	return claims, true
}

func (s *Server) handleRoles(w http.ResponseWriter, r *http.Request) {
	s.Counters.RoleLookups.Add(1)

	s.mu.Lock()
	down := s.rolesDown
	s.mu.Unlock()
	if down {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "roles lookup unavailable")
		return
	}

	claims, ok := s.authorize(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == claims.Subject && string(u.Role) == claims.UserType {
			roles := u.Roles
			if len(roles) == 0 {
				roles = []string{string(u.Role)}
			}
			respondJSON(w, http.StatusOK, map[string]any{"roles": roles})
			return
		}
	}
	respondError(w, http.StatusNotFound, "user_not_found", "user not found")
}

func (s *Server) handleCheckToken(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delay := s.nextCheckDelay
	s.nextCheckDelay = 0
	s.mu.Unlock()
	s.Counters.TokenChecks.Add(1)
	if delay > 0 {
		time.Sleep(delay)
	}
	if _, ok := s.authorize(r); !ok {
		respondError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.Counters.Refreshes.Add(1)

	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid body")
		return
	}

	s.mu.Lock()
	delay := s.refreshDelay
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refreshFailure != 0 {
		respondError(w, s.refreshFailure, "refresh_failed", "refresh failed")
		return
	}
	entry, ok := s.refresh[req.RefreshToken]
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid_refresh_token", "invalid refresh token")
		return
	}
	if s.deleted[entry.userID] {
		respondJSON(w, http.StatusUnauthorized, map[string]string{
			"code":     "user_deleted",
			"message":  "account no longer exists",
			"userType": string(entry.role),
		})
		return
	}

	access, err := s.issuer.Issue(entry.userID, string(entry.role))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "issue_failed", err.Error())
		return
	}
	out := map[string]string{"accessToken": access}
	if s.rotateRefresh {
		delete(s.refresh, req.RefreshToken)
		out["refreshToken"] = s.newRefreshLocked(entry.userID, entry.role)
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	s.Counters.Audits.Add(1)

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "bad_request", "invalid body")
		return
	}
	s.mu.Lock()
	s.audits = append(s.audits, body)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBusiness(w http.ResponseWriter, r *http.Request) {
	s.Counters.Business.Add(1)

	s.mu.Lock()
	deny := s.alwaysDenyBiz
	s.mu.Unlock()

	claims, ok := s.authorize(r)
	if deny || !ok {
		respondError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
		return
	}

	var payload any
	if r.Body != nil && r.ContentLength != 0 {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"path":     r.URL.Path,
		"method":   r.Method,
		"userId":   claims.Subject,
		"userType": claims.UserType,
		"echo":     payload,
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{"code": code, "message": message})
}
