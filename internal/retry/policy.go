// Package retry paces repeated attempts, such as readiness connection probes.
package retry

import (
	"context"
	"time"
)

// Policy waits a fixed interval between attempts. It is immutable after construction.
type Policy struct {
	Interval time.Duration
}

// Fixed returns a policy that always waits interval between attempts.
// A non-positive interval means no pause.
func Fixed(interval time.Duration) Policy {
	return Policy{Interval: interval}
}

// Delay returns the pause before the given retry (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 || p.Interval <= 0 {
		return 0
	}
	return p.Interval
}

// Wait sleeps for the delay of retryCount, returning early with ctx.Err() if ctx ends first.
func (p Policy) Wait(ctx context.Context, retryCount int) error {
	d := p.Delay(retryCount)
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
