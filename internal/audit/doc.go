// Package audit implements async delivery of session audit events.
//
// # Components
//
//   - [Event]: one login, logout or role_switch record.
//   - [Sink]: interface for event consumers (channel, JSON writer, func, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. Deciding which events to
// emit, and whether auditing is enabled at all, belongs to the Manager.
//
// # What this package must NOT do
//
//   - Read events back or feed them into session decisions.
//   - Import goSession or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
