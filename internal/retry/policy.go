package retry

import (
	"time"

	"git.home.luguber.info/inful/targetbuilder/internal/config"
)

// Policy is the delay schedule for retrying a deletion that failed because
// another process still holds the file.
type Policy struct {
	Mode       config.RetryBackoffMode
	Initial    time.Duration
	Step       time.Duration // stepped mode only
	Max        time.Duration
	MaxRetries int // attempts after the first failure
}

// DefaultPolicy is linear from 1s, capped at 30s, with 2 retries.
func DefaultPolicy() Policy {
	return Policy{Mode: config.RetryBackoffLinear, Initial: time.Second, Max: 30 * time.Second, MaxRetries: 2}
}

// CleanupPolicy is the schedule used when deleting files that may still be
// held open by a running process: ten retries of 1s, 1.2s, 1.4s and so on.
func CleanupPolicy() Policy {
	return Policy{
		Mode:       config.RetryBackoffStepped,
		Initial:    time.Second,
		Step:       200 * time.Millisecond,
		Max:        30 * time.Second,
		MaxRetries: 10,
	}
}

// NewPolicy builds a policy from raw config fields; zero/invalid values fall back to defaults.
func NewPolicy(mode config.RetryBackoffMode, initial, maxDuration time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	if mode.Valid() {
		p.Mode = mode
	}
	p.Initial = min(p.Initial, p.Max)
	return p
}

// FromCleanConfig builds the cleanup policy from the clean section of the config.
func FromCleanConfig(c config.CleanConfig) Policy {
	initial, step, maxDelay := c.Durations()
	return NewPolicy(c.RetryBackoff, initial, maxDelay, c.MaxRetries).WithStep(step)
}

// WithStep returns a copy of the policy with the stepped-mode increment set.
func (p Policy) WithStep(step time.Duration) Policy {
	if step >= 0 {
		p.Step = step
	}
	return p
}

// Delay returns the wait before retry n, counting the first retry as 1.
func (p Policy) Delay(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	var d time.Duration
	switch p.Mode {
	case config.RetryBackoffFixed:
		d = p.Initial
	case config.RetryBackoffExponential:
		d = p.Initial << (n - 1)
	case config.RetryBackoffStepped:
		d = p.Initial + time.Duration(n-1)*p.Step
	default:
		d = time.Duration(n) * p.Initial
	}
	return min(d, p.Max)
}
