// Package keepalive tracks whether the daemon has polling work in flight so
// it can exit after a quiet period.
package keepalive

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/calsnap/internal/ports"
)

// Guard counts holders. Acquire and Release must be balanced; a Release
// without a matching Acquire is ignored.
type Guard struct {
	clock ports.Clock

	mu        sync.Mutex
	holders   int
	idleSince time.Time
	changed   chan struct{}
}

var _ ports.Keepalive = (*Guard)(nil)

func NewGuard(clock ports.Clock) *Guard {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Guard{
		clock:     clock,
		idleSince: clock.Now(),
		changed:   make(chan struct{}),
	}
}

func (g *Guard) Acquire() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.holders++
	g.notifyLocked()
}

func (g *Guard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.holders == 0 {
		return
	}
	g.holders--
	if g.holders == 0 {
		g.idleSince = g.clock.Now()
	}
	g.notifyLocked()
}

// Held reports whether anything currently holds the guard.
func (g *Guard) Held() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.holders > 0
}

// IdleFor reports how long the guard has been released, or zero while held.
func (g *Guard) IdleFor() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.holders > 0 {
		return 0
	}
	return g.clock.Now().Sub(g.idleSince)
}

// WaitIdle blocks until the guard has stayed released for grace, or ctx ends.
func (g *Guard) WaitIdle(ctx context.Context, grace time.Duration) error {
	for {
		g.mu.Lock()
		held := g.holders > 0
		remaining := grace - g.clock.Now().Sub(g.idleSince)
		changed := g.changed
		g.mu.Unlock()

		if !held && remaining <= 0 {
			return nil
		}

		if held {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-changed:
			}
			continue
		}

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-changed:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (g *Guard) notifyLocked() {
	close(g.changed)
	g.changed = make(chan struct{})
}
