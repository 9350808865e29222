// Package apitest runs an in-process fake of the gym auth and business API.
//
// Tests register users per role, then drive the Manager and Transport against
// the fake while flipping failure switches (maintenance, deleted accounts,
// revoked tokens, refresh delays) and reading per-endpoint counters.
package apitest
