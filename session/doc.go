// Package session provides the client-resident credential store: the Active
// Session every caller reads, and the role-scoped Namespaced Sessions that let
// more than one role stay logged in at once.
//
// # Storage layout
//
// Fields are persisted as flat string keys. Active Session fields use
// unqualified keys ("token", "userType", ...); a Namespaced Session for role R
// uses the same field names prefixed with "R_". Key construction happens only in
// this package; nothing outside it builds a storage key.
//
// # Atomicity
//
// Every [Store] operation is one critical section that ends in a single
// [Backend.Apply]. A Mutation may carry expected values, giving compare-and-swap
// semantics: a write computed from a stale read is rejected with [ErrConflict]
// instead of being applied.
//
// # What this package must NOT do
//
//   - Import goSession, authapi or flows (no upward imports).
//   - Perform network calls other than the configured Backend's own I/O.
//   - Decide session validity; that belongs to the Manager.
package session
