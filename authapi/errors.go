package authapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoResponse marks requests that never produced an HTTP response.
	ErrNoResponse = errors.New("auth api: no response")
	// ErrMalformedResponse marks 2xx responses whose body could not be used.
	ErrMalformedResponse = errors.New("auth api: malformed response")
)

// CodeUserDeleted is sent by the refresh endpoint when the account behind the
// refresh token no longer exists.
const CodeUserDeleted = "user_deleted"

// Error is a non-2xx response from the auth API.
type Error struct {
	Status      int
	Code        string
	Message     string
	Maintenance bool
	// UserType is the role of the account the error refers to, when the
	// server names one.
	UserType string
}

func (e *Error) Error() string {
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("auth api: HTTP %d %s: %s", e.Status, e.Code, e.Message)
	case e.Message != "":
		return fmt.Sprintf("auth api: HTTP %d: %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("auth api: HTTP %d", e.Status)
	}
}

// Unauthorized reports a 401.
func (e *Error) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// ClientError reports a 4xx status.
func (e *Error) ClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsUnauthorized reports whether err is a 401 from the auth API.
func IsUnauthorized(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Unauthorized()
}

// IsUserDeleted reports whether err signals a deleted account.
func IsUserDeleted(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Code == CodeUserDeleted
}

// errorBody is the JSON error envelope. Both a flat message and an
// {"error": "..."} form are accepted.
type errorBody struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Error       string `json:"error"`
	Maintenance bool   `json:"maintenance"`
	UserType    string `json:"userType"`
}
