// Package ratelimit provides a small token bucket shared by the feed client
// and the DNS enrichment step.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

type Limiter struct {
	rate     float64
	capacity float64
	tokens   float64
	lastFill time.Time
	now      func() time.Time
	mu       sync.Mutex
}

// Status describes the current utilisation state of a Limiter.
type Status struct {
	Rate        float64
	Capacity    float64
	Remaining   float64
	Utilization float64
	RefillIn    time.Duration
}

// New returns a limiter that admits rate events per second with a burst of
// max(rate, 1). A non-positive rate disables limiting and yields nil, which
// every method treats as "always allow".
func New(rate float64) *Limiter {
	return NewWithBurst(rate, 0)
}

// NewWithBurst is New with an explicit bucket size. burst <= 0 selects the
// default of max(rate, 1).
func NewWithBurst(rate float64, burst int) *Limiter {
	if rate <= 0 {
		return nil
	}
	capacity := math.Max(rate, 1)
	if burst > 0 {
		capacity = float64(burst)
	}
	return &Limiter{
		rate:     rate,
		capacity: capacity,
		tokens:   capacity,
		lastFill: time.Now(),
		now:      time.Now,
	}
}

func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refillLocked(l.now())
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

// Acquire blocks until a token is available or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.mu.Lock()
		l.refillLocked(l.now())
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
		if wait < time.Millisecond {
			wait = time.Millisecond
		}
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (l *Limiter) refillLocked(now time.Time) {
	if now.Before(l.lastFill) {
		l.lastFill = now
		return
	}
	elapsed := now.Sub(l.lastFill)
	if elapsed <= 0 {
		return
	}
	l.tokens = math.Min(l.capacity, l.tokens+elapsed.Seconds()*l.rate)
	l.lastFill = now
}

// Status returns information about the limiter's current token bucket state.
func (l *Limiter) Status() Status {
	if l == nil {
		return Status{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.refillLocked(l.now())

	remaining := l.tokens
	used := math.Max(l.capacity-remaining, 0)

	utilization := 0.0
	if l.capacity > 0 {
		utilization = math.Min(used/l.capacity, 1)
	}

	var refillIn time.Duration
	if used > 0 {
		refillIn = time.Duration(used / l.rate * float64(time.Second))
	}

	return Status{
		Rate:        l.rate,
		Capacity:    l.capacity,
		Remaining:   remaining,
		Utilization: utilization,
		RefillIn:    refillIn,
	}
}
