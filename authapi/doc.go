// Package authapi is the HTTP client for the remote authentication API.
//
// It covers the login endpoint of each role, the roles lookup, the token
// check, the token refresh and the audit log. Responses outside the 2xx range
// become an [*Error] carrying the status, a machine-readable code and the
// maintenance flag. A request that got no response at all returns an error
// wrapping [ErrNoResponse].
//
// The client performs no retries and holds no session state.
package authapi
