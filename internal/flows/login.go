package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/authapi"
	"github.com/MrEthical07/goSession/session"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureInvalidCredentials
	LoginFailureMaintenance
	LoginFailureNetwork
	LoginFailureServer
	LoginFailureStore
)

// LoginInput is one login attempt.
type LoginInput struct {
	Role     session.Role
	Username string
	Password string
}

// LoginResult carries either the stored record or failure metadata.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	// Message is the user-facing text of a failure, when the server sent one.
	Message string
	Record  *session.Record
	// RolesFallback is set when the roles lookup failed and userRoles was
	// populated with the login role alone.
	RolesFallback bool
}

type LoginAPI interface {
	Login(ctx context.Context, role session.Role, username, password string) (*authapi.LoginResponse, error)
	Roles(ctx context.Context, token string) ([]string, error)
}

type LoginStore interface {
	Save(ctx context.Context, rec *session.Record) error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	API              LoginAPI
	Store            LoginStore
	Now              func() time.Time
	StrictValidation bool
	Warn             func(string, ...any)
}

// RunLogin authenticates against the role's login endpoint and stores the
// resulting session. No stored state changes on any failure path before the
// final Save.
func RunLogin(ctx context.Context, in LoginInput, deps LoginDeps) LoginResult {
	if !in.Role.Valid() {
		return LoginResult{
			Failure: LoginFailureInvalidCredentials,
			Err:     errors.New("unknown role"),
			Message: "unknown role",
		}
	}
	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		return LoginResult{
			Failure: LoginFailureInvalidCredentials,
			Err:     errors.New("username and password are required"),
			Message: "username and password are required",
		}
	}

	resp, err := deps.API.Login(ctx, in.Role, in.Username, in.Password)
	if err != nil {
		kind, msg := ClassifyLoginError(err)
		return LoginResult{Failure: kind, Err: err, Message: msg}
	}

	roles := []string{string(in.Role)}
	fallback := false
	if deps.StrictValidation {
		looked, err := deps.API.Roles(ctx, resp.Token)
		switch {
		case err != nil:
			fallback = true
			if deps.Warn != nil {
				deps.Warn("goSession: roles lookup failed, using login role", "role", in.Role, "err", err)
			}
		case len(session.NormalizeRoles(looked)) == 0:
			fallback = true
		default:
			roles = looked
		}
	}

	rec := &session.Record{
		Token:          resp.Token,
		RefreshToken:   resp.RefreshToken,
		UserType:       in.Role,
		UserRoles:      session.NormalizeRoles(roles),
		UserID:         resp.UserID,
		MemberID:       resp.SpecificID(),
		Name:           resp.Name,
		Username:       resp.Username,
		LoginTimestamp: deps.Now(),
	}
	if rec.Username == "" {
		rec.Username = in.Username
	}

	if err := deps.Store.Save(ctx, rec); err != nil {
		return LoginResult{Failure: LoginFailureStore, Err: err}
	}

	rec.SessionStart = rec.LoginTimestamp
	return LoginResult{Record: rec, RolesFallback: fallback}
}

// ClassifyLoginError maps an auth API login error onto a failure kind and a
// user-facing message. The maintenance flag wins over the status class.
func ClassifyLoginError(err error) (LoginFailureKind, string) {
	if apiErr, ok := authapi.AsError(err); ok {
		switch {
		case apiErr.Maintenance:
			return LoginFailureMaintenance, apiErr.Message
		case apiErr.ClientError():
			return LoginFailureInvalidCredentials, apiErr.Message
		default:
			return LoginFailureServer, apiErr.Message
		}
	}
	if errors.Is(err, authapi.ErrNoResponse) {
		return LoginFailureNetwork, ""
	}
	return LoginFailureServer, ""
}
