// Package policy resolves the deployment mode into the environment policy that
// governs session lifetime, dual-role sessions, validation strictness and audit
// logging.
//
// # Architecture boundaries
//
// Resolution is a pure lookup. This package performs no I/O and holds no mutable
// state; the Manager resolves a policy exactly once at Build and keeps it for the
// lifetime of the process.
package policy
