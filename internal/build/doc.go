// Package build runs a target build as an ordered pipeline of stages:
// setup, filtering, policy checks, custom build steps, linker fixups,
// shared PCH selection, compilation and receipt publication.
//
// All entry points (the build, clean and export commands and watch mode)
// go through DefaultBuildService so that stage timing, metrics and history
// are recorded the same way.
package build
