// Package receipt records what a target build produced and reconciles it with
// earlier builds.
//
// A Receipt lists the build products and runtime dependencies of one target
// using relocatable $(EngineDir) and $(ProjectDir) paths. Version manifests
// map module names to file names per output directory and carry the build id
// that lets separate builds share engine binaries. The Manager prepares both,
// decides whether an earlier build id can be recycled, writes them without
// touching unchanged files and deletes stale outputs.
package receipt
