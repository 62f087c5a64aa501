// Package modulegraph resolves module names into configured module nodes.
//
// A Builder owns the name to module cache for one build. Resolve is
// idempotent: the first call loads the declaration through the catalog,
// classifies the module, derives its include paths and generated-code
// directory, discovers its sources and recursively resolves its
// dependencies. Later calls return the cached node.
//
// Circular dependencies are edge metadata only. AllDependencies skips them
// unless asked to follow them, so closures stay finite without cycle
// detection.
package modulegraph
