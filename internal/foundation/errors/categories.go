package errors

import "maps"

// ErrorCategory decides the CLI exit code and how a failure is reported.
type ErrorCategory string

const (
	// CategoryConfig covers contradictory or invalid declarations.
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"

	// CategoryFilter is raised when a module or file filter leaves nothing to build.
	CategoryFilter ErrorCategory = "filter"

	// CategoryPolicy covers license, distribution-tier and layering violations.
	CategoryPolicy ErrorCategory = "policy"

	// CategoryExternal covers failures of build-step scripts and the toolchain.
	CategoryExternal   ErrorCategory = "external"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryHistory    ErrorCategory = "history"

	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity says whether a failure stops the build.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"
	SeverityError   ErrorSeverity = "error"
	SeverityWarning ErrorSeverity = "warning" // logged, build continues
	SeverityInfo    ErrorSeverity = "info"
)

// RetryStrategy tells the clean-up loop whether trying again can help.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"
	RetryImmediate  RetryStrategy = "immediate"
	RetryBackoff    RetryStrategy = "backoff"
	RetryUserAction RetryStrategy = "user" // fix the inputs and rerun
)

// Well-known context keys.
const (
	ContextExitCode = "exit_code"
	ContextModule   = "module"
	ContextPath     = "path"
)

// ErrorContext holds the module, path or exit code an error concerns, plus
// any ad hoc values attached by the caller.
type ErrorContext map[string]any

// Set stores a value, allocating the map on first use.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = ErrorContext{}
	}
	c[key] = value
	return c
}

func lookup[T any](c ErrorContext, key string) (T, bool) {
	v, ok := c[key].(T)
	return v, ok
}

func (c ErrorContext) GetString(key string) (string, bool) { return lookup[string](c, key) }
func (c ErrorContext) GetInt(key string) (int, bool)       { return lookup[int](c, key) }

// Merge returns a new context with the entries of both; other wins on
// conflicting keys. Neither receiver nor argument is modified.
func (c ErrorContext) Merge(other ErrorContext) ErrorContext {
	out := make(ErrorContext, len(c)+len(other))
	maps.Copy(out, c)
	maps.Copy(out, other)
	return out
}
