// Package ratelimit provides a shared minimum-interval gate for outbound
// requests. Every request must acquire the gate before issuing, so the
// aggregate rate stays under the external service's ceiling no matter how
// many workers are in flight.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Gate spaces acquisitions at least one interval apart across all
// goroutines. A nil Gate or a zero interval admits immediately.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time // Earliest time the next acquisition may proceed
}

// NewGate creates a gate with the given minimum interval between requests.
func NewGate(interval time.Duration) *Gate {
	return &Gate{interval: interval}
}

// Wait blocks until the caller's slot opens or the context is done.
// Slots are handed out in acquisition order.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil || g.interval <= 0 {
		return ctx.Err()
	}

	g.mu.Lock()
	now := time.Now()
	if g.next.Before(now) {
		g.next = now
	}
	wait := g.next.Sub(now)
	g.next = g.next.Add(g.interval)
	g.mu.Unlock()

	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
