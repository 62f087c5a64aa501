// Package errors provides the classified error primitives used across targetbuilder.
//
// Every failure the build engine reports maps to one category:
//   - CategoryConfig: contradictory declarations (dual dependency and dynamic load,
//     shared PCH anchor outside the engine tree)
//   - CategoryNotFound: an unresolvable module
//   - CategoryFilter: a module or file filter that matched nothing
//   - CategoryPolicy: license, distribution-tier or layering violations
//   - CategoryExternal: build-step script or toolchain failures
//   - CategoryFileSystem: persistent IO failures after bounded retries
//
// Example usage:
//
//	err := errors.ExternalStepError("pre-build step failed").
//		WithExitCode(3).
//		WithCause(runErr).
//		Build()
package errors
