package application

import (
	"time"

	"github.com/bnema/calsnap/internal/domain"
)

type TickOutcome string

const (
	TickPending   TickOutcome = "pending"
	TickProcessed TickOutcome = "processed"
	TickFailed    TickOutcome = "error"
	TickTimedOut  TickOutcome = "timeout"
	TickTransient TickOutcome = "transient_error"
	TickMissing   TickOutcome = "missing"
)

// Observer receives lifecycle signals for metrics. Implementations must be
// safe for concurrent use and must not block.
type Observer interface {
	TaskStarted(id domain.SessionID)
	TaskStopped(id domain.SessionID, ran time.Duration)
	TickCompleted(outcome TickOutcome)
	SessionFinalized(status domain.Status)
	BadgeRendered(badge domain.Badge)
}

type nopObserver struct{}

func (nopObserver) TaskStarted(domain.SessionID)                {}
func (nopObserver) TaskStopped(domain.SessionID, time.Duration) {}
func (nopObserver) TickCompleted(TickOutcome)                   {}
func (nopObserver) SessionFinalized(domain.Status)              {}
func (nopObserver) BadgeRendered(domain.Badge)                  {}

func observerOrNop(observer Observer) Observer {
	if observer == nil {
		return nopObserver{}
	}
	return observer
}
