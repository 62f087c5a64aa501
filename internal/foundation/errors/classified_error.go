package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ClassifiedError carries the category a build failure belongs to, how bad it
// is, and the module or path it concerns.
type ClassifiedError struct {
	category ErrorCategory
	severity ErrorSeverity
	retry    RetryStrategy
	message  string
	cause    error
	context  ErrorContext
}

// Error renders "[category:severity] module: message: cause", leaving out the
// parts that are not set.
func (e *ClassifiedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s:%s] ", e.category, e.severity)
	if module, ok := e.Module(); ok {
		sb.WriteString(module)
		sb.WriteString(": ")
	}
	sb.WriteString(e.message)
	if e.cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.cause.Error())
	}
	return sb.String()
}

func (e *ClassifiedError) Unwrap() error { return e.cause }

func (e *ClassifiedError) Category() ErrorCategory      { return e.category }
func (e *ClassifiedError) Severity() ErrorSeverity      { return e.severity }
func (e *ClassifiedError) RetryStrategy() RetryStrategy { return e.retry }
func (e *ClassifiedError) Message() string              { return e.message }
func (e *ClassifiedError) Cause() error                 { return e.cause }
func (e *ClassifiedError) Context() ErrorContext        { return e.context }

// Module returns the module the failure was raised for, if any.
func (e *ClassifiedError) Module() (string, bool) {
	return e.context.GetString(ContextModule)
}

// ExitCode returns the exit status of a failed external step, if recorded.
func (e *ClassifiedError) ExitCode() (int, bool) {
	code, ok := e.context.GetInt(ContextExitCode)
	if !ok || code <= 0 || code > 255 {
		return 0, false
	}
	return code, true
}

// WithContext returns a copy of the error with an extra context value.
func (e *ClassifiedError) WithContext(key string, value any) *ClassifiedError {
	clone := *e
	clone.context = e.context.Merge(ErrorContext{key: value})
	return &clone
}

// Is matches another ClassifiedError with the same category and message, so
// sentinel-style comparisons work across rebuilt errors.
func (e *ClassifiedError) Is(target error) bool {
	other, ok := target.(*ClassifiedError)
	if !ok {
		return false
	}
	return e.category == other.category && e.message == other.message
}

// CanRetry reports whether the clean-up retry loop may try again.
func (e *ClassifiedError) CanRetry() bool {
	switch e.retry {
	case RetryImmediate, RetryBackoff:
		return true
	default:
		return false
	}
}

func (e *ClassifiedError) IsFatal() bool { return e.severity == SeverityFatal }

// AsClassified finds the first ClassifiedError in err's chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var classified *ClassifiedError
	if !stderrors.As(err, &classified) {
		return nil, false
	}
	return classified, true
}

// HasCategory reports whether the first ClassifiedError in err's chain has
// the given category.
func HasCategory(err error, category ErrorCategory) bool {
	classified, ok := AsClassified(err)
	return ok && classified.category == category
}

// GetCategory extracts the category from an error. Unclassified errors are
// internal.
func GetCategory(err error) ErrorCategory {
	if classified, ok := AsClassified(err); ok {
		return classified.category
	}
	return CategoryInternal
}
