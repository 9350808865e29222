package goSession

import "errors"

var (
	// ErrInvalidCredentials is returned for 4xx login responses.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMaintenanceMode is returned when the API flags maintenance.
	ErrMaintenanceMode = errors.New("maintenance mode")
	// ErrNetwork is returned when a call produced no response at all.
	ErrNetwork = errors.New("network error")
	// ErrServer is returned for 5xx and unusable responses.
	ErrServer = errors.New("server error")
	ErrMissingSessionData = errors.New("missing session data")
	ErrSessionExpired     = errors.New("session expired")
	// ErrTokenRefreshNeeded means the server rejected the access token but a
	// refresh may still recover the session.
	ErrTokenRefreshNeeded = errors.New("token refresh needed")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrAccountDeleted     = errors.New("account deleted")
	ErrRoleNotGranted     = errors.New("role not granted")
	ErrNoActiveSession    = errors.New("no active session")
	// ErrSessionChanged is returned when the Active Session was replaced
	// while an operation on it was in progress.
	ErrSessionChanged   = errors.New("session changed concurrently")
	ErrStoreUnavailable = errors.New("session store unavailable")
	ErrManagerNotReady  = errors.New("manager not initialized")
)
