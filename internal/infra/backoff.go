package infra

import (
	"time"
)

// Backoff computes exponential retry delays: Base * 2^retry, capped at Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultBackoff retries after 1s, 2s, 4s ... up to one minute.
func DefaultBackoff() Backoff {
	return Backoff{Base: 1 * time.Second, Max: 60 * time.Second}
}

// Delay returns the wait before retry number retry (0-based).
// A negative retry returns Base.
func (b Backoff) Delay(retry int) time.Duration {
	if retry <= 0 {
		return b.Base
	}

	// 2^30 * any sane base already exceeds Max; also keeps the shift safe.
	if retry > 30 {
		return b.Max
	}

	d := b.Base * time.Duration(1<<retry)
	if d > b.Max || d <= 0 {
		return b.Max
	}
	return d
}
