package completion

import (
	"context"
	"time"
)

// Policy configures timeout and retry behavior of a Client.
type Policy struct {
	MaxAttempts int           // Total attempts, first one included
	BaseDelay   time.Duration // Delay after the first failure (doubles each retry)
	Timeout     time.Duration // Bound on each attempt
}

// DefaultPolicy returns 3 attempts, a 600ms base delay and a 45s timeout.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   600 * time.Millisecond,
		Timeout:     45 * time.Second,
	}
}

// Backoff is the delay to wait after failed attempt n (1-based):
// BaseDelay * 2^(n-1). Non-positive attempts get no delay.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt <= 0 || p.BaseDelay <= 0 {
		return 0
	}
	return p.BaseDelay << (attempt - 1)
}

// withDefaults fills zero fields from DefaultPolicy.
func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.Timeout <= 0 {
		p.Timeout = def.Timeout
	}
	return p
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the real-time Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
