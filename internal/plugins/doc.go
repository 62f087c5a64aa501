// Package plugins resolves the valid, enabled and build plugin sets for a
// target invocation.
//
// Valid plugins are every enumerated plugin not excluded by a missing build
// platform. Enabled plugins are the valid plugins switched on by the project
// or the target rules. Build plugins are what actually gets compiled, which
// can exceed the enabled set when all plugins or foreign plugins are built.
package plugins
