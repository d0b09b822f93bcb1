package mongo

import "time"

// Backoff selects how the wait between connection attempts grows.
type Backoff string

const (
	// BackoffFixed waits the same interval before every retry.
	BackoffFixed Backoff = "fixed"
	// BackoffExponential doubles the interval on every retry, capped at maxBackoff.
	BackoffExponential Backoff = "exponential"
)

const maxBackoff = 2 * time.Minute

// Delay returns the wait before retry number attempt (1-based).
func (b Backoff) Delay(interval time.Duration, attempt int) time.Duration {
	if b != BackoffExponential || attempt <= 1 {
		return interval
	}
	d := interval
	for range attempt - 1 {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
