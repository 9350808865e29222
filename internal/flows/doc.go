// Package flows contains pure-function orchestrators for every Manager operation.
//
// Each flow function (RunLogin, RunValidate, RunRefresh, RunSwitchRole)
// accepts a typed dependency struct and returns a tagged result instead of
// failing. The Manager maps failure kinds onto its public taxonomy and owns
// metrics, audit and logging side effects.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the credential store and the auth API.
// They do NOT own either resource; ownership stays with the Manager.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency interfaces.
package flows
