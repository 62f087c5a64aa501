package errors

import "maps"

// ErrorBuilder assembles a ClassifiedError. Constructors below pick the
// category and defaults for each kind of build failure; callers attach the
// module, path or exit code it concerns.
type ErrorBuilder struct {
	category ErrorCategory
	severity ErrorSeverity
	retry    RetryStrategy
	message  string
	cause    error
	context  ErrorContext
}

// NewError creates a new ErrorBuilder with the specified category and message.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		retry:    RetryNever,
		message:  message,
		context:  make(ErrorContext),
	}
}

// WrapError creates a new ErrorBuilder that wraps an existing error.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	return NewError(category, message).WithCause(err)
}

func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.cause = err
	return b
}

// ForModule records the module the failure concerns.
func (b *ErrorBuilder) ForModule(name string) *ErrorBuilder {
	return b.WithContext(ContextModule, name)
}

// AtPath records the file or directory the failure concerns.
func (b *ErrorBuilder) AtPath(path string) *ErrorBuilder {
	return b.WithContext(ContextPath, path)
}

// WithExitCode records the exit status of a failed script or tool.
func (b *ErrorBuilder) WithExitCode(code int) *ErrorBuilder {
	return b.WithContext(ContextExitCode, code)
}

// WithSeverity sets the error severity.
func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.severity = severity
	return b
}

// WithRetry sets the retry strategy.
func (b *ErrorBuilder) WithRetry(strategy RetryStrategy) *ErrorBuilder {
	b.retry = strategy
	return b
}

// WithContext adds a context key-value pair.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

// Fatal sets the severity to fatal.
func (b *ErrorBuilder) Fatal() *ErrorBuilder {
	return b.WithSeverity(SeverityFatal)
}

// Warning sets the severity to warning.
func (b *ErrorBuilder) Warning() *ErrorBuilder {
	return b.WithSeverity(SeverityWarning)
}

// Retryable sets the retry strategy to backoff.
func (b *ErrorBuilder) Retryable() *ErrorBuilder {
	return b.WithRetry(RetryBackoff)
}

// UserAction sets the retry strategy to require user action.
func (b *ErrorBuilder) UserAction() *ErrorBuilder {
	return b.WithRetry(RetryUserAction)
}

// Build creates the ClassifiedError. The builder may be reused afterwards;
// the error keeps its own copy of the context.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		severity: b.severity,
		retry:    b.retry,
		message:  b.message,
		cause:    b.cause,
		context:  maps.Clone(b.context),
	}
}

// ConfigError creates a configuration error (contradictory declarations).
func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal().UserAction()
}

// ValidationError creates a validation error.
func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).Fatal()
}

// ModuleNotFoundError creates an error for an unresolvable module.
func ModuleNotFoundError(module string) *ErrorBuilder {
	return NewError(CategoryNotFound, "couldn't find module rules for '"+module+"'").
		Fatal().
		ForModule(module)
}

// FilterExhaustedError creates an error for a filter that matched nothing.
func FilterExhaustedError(message string) *ErrorBuilder {
	return NewError(CategoryFilter, message).Fatal().UserAction()
}

// PolicyViolationError creates a license, tier or layering violation.
func PolicyViolationError(message string) *ErrorBuilder {
	return NewError(CategoryPolicy, message).Fatal()
}

// ExternalStepError creates a script or toolchain failure.
func ExternalStepError(message string) *ErrorBuilder {
	return NewError(CategoryExternal, message).Fatal()
}

// FileSystemError creates a filesystem error.
func FileSystemError(message string) *ErrorBuilder {
	return NewError(CategoryFileSystem, message).Retryable()
}

// HistoryError creates a build history store error.
func HistoryError(message string) *ErrorBuilder {
	return NewError(CategoryHistory, message)
}

// RuntimeError creates a runtime error.
func RuntimeError(message string) *ErrorBuilder {
	return NewError(CategoryRuntime, message).Fatal()
}

// InternalError creates an internal error.
func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
