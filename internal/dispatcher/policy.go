package dispatcher

import "time"

// FlushPolicy decides when a pending batch is written.
type FlushPolicy struct {
	maxPoints int
	maxAge    time.Duration
}

// NewFlushPolicy creates a policy that flushes at maxPoints points or when
// the oldest pending point has waited maxAge.
func NewFlushPolicy(maxPoints int, maxAge time.Duration) FlushPolicy {
	return FlushPolicy{maxPoints: maxPoints, maxAge: maxAge}
}

// ShouldFlush returns true if any flush condition is met. firstAt is when
// the first point of the pending batch was received.
func (p FlushPolicy) ShouldFlush(count int, firstAt, now time.Time) bool {
	if count == 0 {
		return false
	}
	if p.maxPoints > 0 && count >= p.maxPoints {
		return true
	}
	if p.maxAge > 0 && now.Sub(firstAt) >= p.maxAge {
		return true
	}
	return false
}

// Wait returns how long a worker may block for the next point.
func (p FlushPolicy) Wait(count int, firstAt, now time.Time) time.Duration {
	if count == 0 {
		return p.maxAge
	}
	remaining := p.maxAge - now.Sub(firstAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}
