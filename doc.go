// Package goSession manages client-side sessions for the gym app's three
// roles: member, admin and trainer.
//
// It decides who is logged in and which role is active when one client holds
// credentials for several roles at once. It also covers how sessions expire
// and get restored, and how authorization failures on business calls are
// recovered (single-flight token refresh, one retry) or turned into a single
// redirect to login.
//
// The [Manager] is built once per process through [Builder.Build] and is safe
// for concurrent use. The deployment [policy.Policy] is resolved at Build and
// never changes afterwards.
//
// # Architecture boundaries
//
// goSession is the public surface: [Manager], [Builder], [Config], result
// types and the request [Transport]. Session storage lives in the session
// package, the auth API client in authapi, and flow orchestration under
// internal/flows.
//
// # What this package must NOT do
//
//   - Build storage keys; only the session package knows the key layout.
//   - Decide what a role may do. Authorization content belongs to the API.
//   - Retry a request more than once, or refresh more than once per request.
package goSession
