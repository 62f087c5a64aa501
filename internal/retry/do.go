package retry

import "time"

// Sleeper pauses between attempts. Tests substitute a recording fake.
type Sleeper func(time.Duration)

// Do runs fn until it succeeds or MaxRetries retries have failed, sleeping
// Delay(n) before retry n. The error of the final attempt is returned.
// There is no cancellation: the retry count bounds the loop.
func Do(p Policy, sleep Sleeper, fn func(attempt int) error) error {
	if sleep == nil {
		sleep = time.Sleep
	}
	err := fn(0)
	for retry := 1; err != nil && retry <= p.MaxRetries; retry++ {
		sleep(p.Delay(retry))
		err = fn(retry)
	}
	return err
}
