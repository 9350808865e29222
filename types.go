package goSession

import (
	"context"

	"github.com/MrEthical07/goSession/session"
)

// Credentials is what a user types into a login form.
type Credentials struct {
	Username string
	Password string
}

// FailureKind classifies a failed login.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureInvalidCredentials
	FailureMaintenanceMode
	FailureNetworkError
	FailureServerError
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureInvalidCredentials:
		return "invalid_credentials"
	case FailureMaintenanceMode:
		return "maintenance_mode"
	case FailureNetworkError:
		return "network_error"
	case FailureServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

// AuthResult is the outcome of AuthenticateUser. Exactly one of Session or a
// non-None Kind is set.
type AuthResult struct {
	Session *session.Record
	Kind    FailureKind
	// Message is the user-facing text for a failure. For maintenance it is
	// the server-supplied banner text.
	Message string
	Err     error
}

func (r AuthResult) Success() bool {
	return r.Kind == FailureNone && r.Session != nil
}

// Operation tags the caller of ValidateSession.
type Operation string

// OperationDelete marks a caller in the middle of a destructive action. It
// must not be forced to wipe state, so validation never clears on its behalf.
const OperationDelete Operation = "delete"

// ValidateOptions carries the caller's context into ValidateSession.
type ValidateOptions struct {
	Operation Operation
	// Area is the navigation area of the route being entered, computed once
	// by the routing layer.
	Area session.Area
}

// Reason explains an invalid ValidationStatus or a redirect to login.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonMissingData        Reason = "missing_data"
	ReasonExpired            Reason = "expired"
	ReasonTokenRefreshNeeded Reason = "token_refresh_needed"
	ReasonInvalidToken       Reason = "invalid_token"
	ReasonAccountDeleted     Reason = "account_deleted"
)

// Err returns the sentinel error matching r, or nil.
func (r Reason) Err() error {
	switch r {
	case ReasonMissingData:
		return ErrMissingSessionData
	case ReasonExpired:
		return ErrSessionExpired
	case ReasonTokenRefreshNeeded:
		return ErrTokenRefreshNeeded
	case ReasonInvalidToken:
		return ErrTokenInvalid
	case ReasonAccountDeleted:
		return ErrAccountDeleted
	default:
		return nil
	}
}

// ValidationStatus is the outcome of ValidateSession. It is never an error;
// every outcome is described by its fields.
type ValidationStatus struct {
	Valid  bool
	Reason Reason
	// SkipClear tells the caller not to wipe session state now.
	SkipClear bool
	// Restored is set when a Namespaced Session was promoted to active
	// because the route's area implied its role.
	Restored bool
	// Stale is set when a newer validation started before this one
	// finished. Callers may discard stale results.
	Stale   bool
	Session *session.Record
	Err     error
}

// Navigator performs the redirect to the login screen.
type Navigator interface {
	RedirectToLogin(ctx context.Context, reason Reason)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, reason Reason)

func (f NavigatorFunc) RedirectToLogin(ctx context.Context, reason Reason) {
	f(ctx, reason)
}

// Notifier tells the user about session events they did not trigger.
type Notifier interface {
	AccountDeleted(ctx context.Context, role session.Role)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, role session.Role)

func (f NotifierFunc) AccountDeleted(ctx context.Context, role session.Role) {
	f(ctx, role)
}
