package config

import "git.home.luguber.info/inful/targetbuilder/internal/foundation/normalization"

// RetryBackoffMode enumerates supported backoff strategies for retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
	// RetryBackoffStepped adds a constant step to the initial delay on every retry.
	RetryBackoffStepped RetryBackoffMode = "stepped"
)

var retryBackoffNormalizer = normalization.NewNormalizer(map[string]RetryBackoffMode{
	"fixed":       RetryBackoffFixed,
	"linear":      RetryBackoffLinear,
	"exponential": RetryBackoffExponential,
	"stepped":     RetryBackoffStepped,
}, "")

// NormalizeRetryBackoff converts arbitrary user input (case-insensitive) into a typed mode, returning empty string for unknown.
func NormalizeRetryBackoff(raw string) RetryBackoffMode {
	return retryBackoffNormalizer.Normalize(raw)
}

// Valid reports whether m is one of the known modes.
func (m RetryBackoffMode) Valid() bool {
	switch m {
	case RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential, RetryBackoffStepped:
		return true
	}
	return false
}
