package retry

import (
	"errors"
	"testing"
	"time"

	"git.home.luguber.info/inful/targetbuilder/internal/config"
)

// TestDefaultPolicy verifies the baseline default values.
func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.Mode != config.RetryBackoffLinear {
		t.Fatalf("expected linear default mode got %s", p.Mode)
	}
	if p.Initial != time.Second {
		t.Fatalf("expected initial 1s got %v", p.Initial)
	}
	if p.MaxRetries != 2 {
		t.Fatalf("expected max retries 2 got %d", p.MaxRetries)
	}
}

// TestNewPolicyOverrides checks override precedence and clamping when initial > max.
func TestNewPolicyOverrides(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, 5*time.Second, 2*time.Second, 5)
	if p.Initial != 2*time.Second {
		t.Fatalf("expected clamped initial 2s got %v", p.Initial)
	}
	if p.Mode != config.RetryBackoffFixed {
		t.Fatalf("expected fixed mode got %s", p.Mode)
	}
	if p.MaxRetries != 5 {
		t.Fatalf("expected maxRetries 5 got %d", p.MaxRetries)
	}
	if q := NewPolicy("bogus", 0, 0, -1); q.Mode != config.RetryBackoffLinear || q.MaxRetries != 2 {
		t.Fatalf("expected defaults for invalid input, got %+v", q)
	}
}

// TestDelayModes ensures every mode behaves and respects the cap.
func TestDelayModes(t *testing.T) {
	ms := time.Millisecond
	cases := []struct {
		name   string
		policy Policy
		want   []time.Duration
	}{
		{"fixed", NewPolicy(config.RetryBackoffFixed, 100*ms, 500*ms, 3), []time.Duration{100 * ms, 100 * ms, 100 * ms}},
		{"linear", NewPolicy(config.RetryBackoffLinear, 100*ms, 250*ms, 5), []time.Duration{100 * ms, 200 * ms, 250 * ms, 250 * ms}},
		{"exponential", NewPolicy(config.RetryBackoffExponential, 50*ms, 160*ms, 5), []time.Duration{50 * ms, 100 * ms, 160 * ms, 160 * ms}},
		{"stepped", CleanupPolicy(), []time.Duration{1000 * ms, 1200 * ms, 1400 * ms, 1600 * ms}},
		{"stepped capped", NewPolicy(config.RetryBackoffStepped, 100*ms, 250*ms, 5).WithStep(100 * ms), []time.Duration{100 * ms, 200 * ms, 250 * ms}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			for i, want := range c.want {
				if got := c.policy.Delay(i + 1); got != want {
					t.Fatalf("attempt %d expected %v got %v", i+1, want, got)
				}
			}
			if got := c.policy.Delay(0); got != 0 {
				t.Fatalf("expected zero delay for attempt 0, got %v", got)
			}
		})
	}
}

func TestFromCleanConfig(t *testing.T) {
	p := FromCleanConfig(config.CleanConfig{
		RetryBackoff:      config.RetryBackoffStepped,
		RetryInitialDelay: "1s",
		RetryStep:         "200ms",
		RetryMaxDelay:     "30s",
		MaxRetries:        10,
	})
	if p != CleanupPolicy() {
		t.Fatalf("expected cleanup policy, got %+v", p)
	}
}

func TestDoRetriesWithSteppedDelays(t *testing.T) {
	var slept []time.Duration
	sleep := func(d time.Duration) { slept = append(slept, d) }

	calls := 0
	err := Do(CleanupPolicy(), sleep, func(int) error {
		calls++
		if calls < 3 {
			return errors.New("locked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 1200*time.Millisecond {
		t.Fatalf("unexpected delays %v", slept)
	}
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	var slept []time.Duration
	calls := 0
	sentinel := errors.New("still locked")
	err := Do(CleanupPolicy(), func(d time.Duration) { slept = append(slept, d) }, func(int) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected final error, got %v", err)
	}
	if calls != 11 {
		t.Fatalf("expected 1 attempt + 10 retries, got %d", calls)
	}
	if slept[len(slept)-1] != 2800*time.Millisecond {
		t.Fatalf("expected last delay 2.8s, got %v", slept[len(slept)-1])
	}
}
