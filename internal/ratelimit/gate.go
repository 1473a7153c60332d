// Package ratelimit spaces outbound calls to an external origin.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Gate enforces a minimum interval between consecutive calls to one
// origin, process-wide. Waiters reserve their slot in arrival order.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

// NewGate creates a gate with the given minimum spacing between calls
func NewGate(interval time.Duration) *Gate {
	return &Gate{interval: interval}
}

// Wait blocks until the caller's reserved slot arrives, or the context
// is cancelled. The slot is reserved immediately, so concurrent waiters
// line up rather than stampede when the gate opens.
func (g *Gate) Wait(ctx context.Context) error {
	g.mu.Lock()
	now := time.Now()
	slot := g.next
	if slot.Before(now) {
		slot = now
	}
	g.next = slot.Add(g.interval)
	g.mu.Unlock()

	delay := time.Until(slot)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
