// Package internal holds goSession packages that are not part of the public
// API.
//
// # Sub-packages
//
//   - audit: asynchronous audit event dispatch (Dispatcher and Sinks)
//   - flows: the login, validation, refresh and role switch algorithms,
//     written as functions over narrow dependency interfaces
//   - apitest: an in-process fake of the gym auth API for tests and examples
package internal
