// Package middleware adapts goSession.Manager to net/http route guards.
//
// # Guards
//
//   - [Guard] validates the Active Session for every route, passing the
//     route's navigation area so that a dual-session user is switched to the
//     matching role by navigation alone.
//   - [RequireRole] rejects requests whose Active Session was not granted a
//     role.
//
// The routing layer computes the area once per request from
// goSession.RoutingConfig. Session decisions stay in the Manager; this package
// only translates them into redirects and status codes.
package middleware
