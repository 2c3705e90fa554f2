package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports"
)

const (
	DefaultMaxPollDuration = 5 * time.Minute

	TimeoutMessage       = "Processing timed out. Please try again."
	DefaultFailedMessage = "Processing failed."
)

type LifecycleOptions struct {
	MaxDuration time.Duration
	Logger      *log.Logger
	Observer    Observer
}

// SessionLifecycle decides, tick by tick, how a polling session advances.
// Its HandleTick is the scheduler's tick handler.
type SessionLifecycle struct {
	store       *SessionStore
	queue       *NotificationQueue
	api         ports.SessionAPI
	notifier    ports.Notifier
	surfacer    ports.Surfacer
	maxDuration time.Duration
	logger      *log.Logger
	observer    Observer
}

func NewSessionLifecycle(store *SessionStore, queue *NotificationQueue, api ports.SessionAPI, notifier ports.Notifier, surfacer ports.Surfacer, opts LifecycleOptions) *SessionLifecycle {
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultMaxPollDuration
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}

	return &SessionLifecycle{
		store:       store,
		queue:       queue,
		api:         api,
		notifier:    notifier,
		surfacer:    surfacer,
		maxDuration: opts.MaxDuration,
		logger:      opts.Logger,
		observer:    observerOrNop(opts.Observer),
	}
}

func (l *SessionLifecycle) HandleTick(ctx context.Context, tick Tick) TickDecision {
	if tick.Elapsed >= l.maxDuration {
		if _, ok := l.finalize(ctx, tick.SessionID, domain.ErrorPatch(TimeoutMessage)); !ok {
			l.observer.TickCompleted(TickTransient)
			return TickContinue
		}
		l.observer.TickCompleted(TickTimedOut)
		return TickStop
	}

	status, err := l.api.GetSessionStatus(ctx, tick.SessionID)
	if err != nil {
		l.logger.Printf("lifecycle: get status for session %s (attempt %d): %v", tick.SessionID, tick.Attempt, err)
		l.observer.TickCompleted(TickTransient)
		return TickContinue
	}

	switch domain.Status(strings.ToLower(strings.TrimSpace(status.Status))) {
	case domain.StatusProcessed:
		return l.handleProcessed(ctx, tick.SessionID, status)
	case domain.StatusError:
		message := strings.TrimSpace(status.ErrorMessage)
		if message == "" {
			message = DefaultFailedMessage
		}
		patch := withMetadata(domain.ErrorPatch(message), status)
		if _, ok := l.finalize(ctx, tick.SessionID, patch); !ok {
			l.observer.TickCompleted(TickTransient)
			return TickContinue
		}
		l.observer.TickCompleted(TickFailed)
		return TickStop
	default:
		return l.handlePending(ctx, tick.SessionID, status)
	}
}

func (l *SessionLifecycle) handleProcessed(ctx context.Context, id domain.SessionID, status ports.RemoteStatus) TickDecision {
	events, err := l.api.GetSessionEvents(ctx, id)
	if err != nil {
		l.logger.Printf("lifecycle: get events for session %s: %v", id, err)
		l.observer.TickCompleted(TickTransient)
		return TickContinue
	}

	count := events.Count
	if count == 0 {
		count = len(events.Events)
	}

	result, ok := l.finalize(ctx, id, withMetadata(domain.ProcessedPatch(events.Events, count), status))
	if !ok {
		l.observer.TickCompleted(TickTransient)
		return TickContinue
	}
	if result.Transitioned {
		l.announce(ctx, result.Record)
	}

	l.observer.TickCompleted(TickProcessed)
	return TickStop
}

func (l *SessionLifecycle) handlePending(ctx context.Context, id domain.SessionID, status ports.RemoteStatus) TickDecision {
	record, found, err := l.touch(ctx, id, withMetadata(domain.Patch{}, status))
	if err != nil {
		l.logger.Printf("lifecycle: update session %s: %v", id, err)
		l.observer.TickCompleted(TickTransient)
		return TickContinue
	}
	if !found {
		l.logger.Printf("lifecycle: session %s no longer stored, stopping", id)
		l.observer.TickCompleted(TickMissing)
		return TickStop
	}
	if record.Status.Terminal() {
		// Finalized elsewhere, for example by another process sharing the store.
		l.observer.TickCompleted(TickMissing)
		return TickStop
	}

	l.observer.TickCompleted(TickPending)
	return TickContinue
}

// touch applies display metadata when the remote sent any, and otherwise
// only reads the record back.
func (l *SessionLifecycle) touch(ctx context.Context, id domain.SessionID, patch domain.Patch) (domain.SessionRecord, bool, error) {
	if patch.Title == nil && patch.Icon == nil {
		record, err := l.store.Get(ctx, id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.SessionRecord{}, false, nil
		}
		if err != nil {
			return domain.SessionRecord{}, false, err
		}
		return record, true, nil
	}

	result, err := l.store.Patch(ctx, id, patch)
	if err != nil && !result.Found {
		return domain.SessionRecord{}, false, err
	}
	if err != nil {
		l.logger.Printf("lifecycle: session %s: %v", id, err)
	}
	return result.Record, result.Found, nil
}

// finalize writes a terminal patch and queues the session for the user.
// The bool is false only when the write itself failed and the tick should
// be retried.
func (l *SessionLifecycle) finalize(ctx context.Context, id domain.SessionID, patch domain.Patch) (PatchResult, bool) {
	result, err := l.store.Patch(ctx, id, patch)
	if err != nil && !result.Found {
		l.logger.Printf("lifecycle: finalize session %s: %v", id, err)
		return result, false
	}
	if err != nil {
		l.logger.Printf("lifecycle: session %s: %v", id, err)
	}
	if !result.Found {
		l.logger.Printf("lifecycle: session %s no longer stored, dropping outcome", id)
		return result, true
	}

	if result.Transitioned {
		l.observer.SessionFinalized(result.Record.Status)
	}
	// The queue is a set, so re-pushing after a retried finalize is harmless.
	// A dismissed record has been acknowledged and must not come back.
	if result.Record.Status.Terminal() && !result.Record.Dismissed() {
		if err := l.queue.Push(ctx, id); err != nil {
			l.logger.Printf("lifecycle: queue session %s: %v", id, err)
			return result, false
		}
	}

	return result, true
}

func (l *SessionLifecycle) announce(ctx context.Context, record domain.SessionRecord) {
	if l.notifier != nil {
		if err := l.notifier.Notify(ctx, notificationFor(record)); err != nil {
			l.logger.Printf("lifecycle: notify session %s: %v", record.ID, err)
		}
	}
	if l.surfacer != nil {
		if err := l.surfacer.Surface(ctx, record.ID); err != nil {
			l.logger.Printf("lifecycle: surface session %s: %v", record.ID, err)
		}
	}
}

func notificationFor(record domain.SessionRecord) ports.Notification {
	title := "Events ready"
	if record.Title != "" {
		title = record.Title
	}

	var message string
	switch record.EventCount {
	case 0:
		message = "No events were found."
	case 1:
		message = "Found 1 event."
	default:
		message = fmt.Sprintf("Found %d events.", record.EventCount)
	}
	if len(record.EventSummaries) > 0 {
		message += " " + strings.Join(record.EventSummaries, ", ")
	}

	return ports.Notification{
		ID:        "session-" + string(record.ID),
		SessionID: record.ID,
		Title:     title,
		Message:   message,
	}
}

func withMetadata(patch domain.Patch, status ports.RemoteStatus) domain.Patch {
	if title := strings.TrimSpace(status.Title); title != "" {
		patch.Title = &title
	}
	if icon := strings.TrimSpace(status.Icon); icon != "" {
		patch.Icon = &icon
	}
	return patch
}
