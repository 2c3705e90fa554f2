package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports"
)

var (
	ErrEmptyContent         = errors.New("submission content is empty")
	ErrUnsupportedInputType = errors.New("unsupported input type")
)

type ControllerDeps struct {
	Store     *SessionStore
	Queue     *NotificationQueue
	Badge     *BadgeService
	Scheduler *PollScheduler
	API       ports.SessionAPI
	Guard     *CredentialGuard
	Clock     ports.Clock
	Logger    *log.Logger
}

// Controller is the entry point for user actions: it creates sessions,
// acknowledges outcomes and rebuilds polling after a restart.
type Controller struct {
	store     *SessionStore
	queue     *NotificationQueue
	badge     *BadgeService
	scheduler *PollScheduler
	api       ports.SessionAPI
	guard     *CredentialGuard
	clock     ports.Clock
	logger    *log.Logger
}

func NewController(deps ControllerDeps) *Controller {
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard, "", 0)
	}

	return &Controller{
		store:     deps.Store,
		queue:     deps.Queue,
		badge:     deps.Badge,
		scheduler: deps.Scheduler,
		api:       deps.API,
		guard:     deps.Guard,
		clock:     deps.Clock,
		logger:    deps.Logger,
	}
}

func (c *Controller) Submit(ctx context.Context, cmd SubmitCommand) (domain.SessionRecord, error) {
	inputType := cmd.inputType()
	if !inputType.Valid() {
		return domain.SessionRecord{}, fmt.Errorf("%w: %q", ErrUnsupportedInputType, inputType)
	}
	if strings.TrimSpace(cmd.Content.Text) == "" && strings.TrimSpace(cmd.Content.URL) == "" && len(cmd.Content.Data) == 0 {
		return domain.SessionRecord{}, ErrEmptyContent
	}
	cmd.Content.InputType = inputType

	if c.guard != nil {
		if err := c.guard.Check(ctx); err != nil {
			if errors.Is(err, domain.ErrAuthenticationRequired) {
				return domain.SessionRecord{}, c.authenticationFailed(ctx, err)
			}
			return domain.SessionRecord{}, fmt.Errorf("check credential: %w", err)
		}
	}

	id, err := c.api.CreateSession(ctx, cmd.Content)
	if err != nil {
		if IsAuthFailure(err) {
			return domain.SessionRecord{}, c.authenticationFailed(ctx, err)
		}
		return domain.SessionRecord{}, fmt.Errorf("create session: %w", err)
	}

	record := domain.SessionRecord{
		ID:        id,
		Status:    domain.StatusPolling,
		Title:     strings.TrimSpace(cmd.Title),
		CreatedAt: c.clock.Now(),
		InputType: inputType,
	}
	if err := c.store.Upsert(ctx, record); err != nil {
		return domain.SessionRecord{}, fmt.Errorf("store session %s: %w", id, err)
	}

	if !cmd.Detached && c.scheduler != nil {
		c.scheduler.Start(id, record.CreatedAt)
	}

	return record, nil
}

// authenticationFailed drops the rejected credential and flags the badge so
// the user is prompted to sign in again.
func (c *Controller) authenticationFailed(ctx context.Context, cause error) error {
	var errs []error
	if c.guard != nil {
		if err := c.guard.Invalidate(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if c.badge != nil {
		c.badge.Flag(ctx, domain.Badge{Kind: domain.BadgeError})
	}

	err := fmt.Errorf("%w: %v", domain.ErrAuthenticationRequired, cause)
	if len(errs) > 0 {
		return errors.Join(append([]error{err}, errs...)...)
	}
	return err
}

// Dismiss acknowledges a session outcome. The queue entry goes first so an
// interrupted dismiss leaves at worst a queue entry that the badge already
// ignores through DismissedAt.
func (c *Controller) Dismiss(ctx context.Context, id domain.SessionID) error {
	if err := c.queue.Remove(ctx, id); err != nil {
		return fmt.Errorf("dismiss %s: %w", id, err)
	}

	now := c.clock.Now()
	result, err := c.store.Patch(ctx, id, domain.Patch{DismissedAt: &now})
	if err != nil {
		return fmt.Errorf("dismiss %s: %w", id, err)
	}
	if !result.Found {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}

	return nil
}

// DismissAll acknowledges every queued outcome and returns how many it
// dismissed. Ids whose record was already evicted are dropped from the queue.
func (c *Controller) DismissAll(ctx context.Context) (int, error) {
	ids, err := c.queue.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list notification queue: %w", err)
	}

	dismissed := 0
	for _, id := range ids {
		if err := c.Dismiss(ctx, id); err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				continue
			}
			return dismissed, err
		}
		dismissed++
	}

	return dismissed, nil
}

// PushEvents sends a processed session's events to the user's calendar.
func (c *Controller) PushEvents(ctx context.Context, id domain.SessionID) error {
	record, err := c.store.Get(ctx, id)
	if err != nil {
		return err
	}
	eventIDs := record.EventIDs()
	if record.Status != domain.StatusProcessed || len(eventIDs) == 0 {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotProcessed, id)
	}

	if err := c.api.PushEvents(ctx, id, eventIDs); err != nil {
		if IsAuthFailure(err) {
			return c.authenticationFailed(ctx, err)
		}
		return fmt.Errorf("push events for %s: %w", id, err)
	}

	added := true
	if _, err := c.store.Patch(ctx, id, domain.Patch{AddedToCalendar: &added}); err != nil {
		return fmt.Errorf("mark %s added to calendar: %w", id, err)
	}

	return nil
}

// Recover restarts polling for every persisted record still in polling
// status. Deadlines continue from the record's CreatedAt. It returns the
// number of tasks it started.
func (c *Controller) Recover(ctx context.Context) (int, error) {
	records, err := c.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	started := 0
	for _, record := range records {
		if record.Status.Terminal() {
			continue
		}
		if c.scheduler.Start(record.ID, record.CreatedAt) {
			started++
		}
	}

	if c.badge != nil {
		if _, err := c.badge.Refresh(ctx); err != nil {
			return started, fmt.Errorf("refresh badge: %w", err)
		}
	}

	return started, nil
}

// Sync reconciles the active task set with the store after it changed
// underneath this process: polling records gain a task, and tasks whose
// record is gone or already terminal are stopped.
func (c *Controller) Sync(ctx context.Context) error {
	records, err := c.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	polling := make(map[domain.SessionID]bool, len(records))
	for _, record := range records {
		if record.Status.Terminal() {
			continue
		}
		polling[record.ID] = true
		if c.scheduler.Start(record.ID, record.CreatedAt) {
			c.logger.Printf("controller: picked up session %s", record.ID)
		}
	}
	for _, id := range c.scheduler.Active() {
		if !polling[id] {
			c.scheduler.Stop(id)
		}
	}

	if c.badge != nil {
		if _, err := c.badge.Refresh(ctx); err != nil {
			return fmt.Errorf("refresh badge: %w", err)
		}
	}

	return nil
}

func (c *Controller) Get(ctx context.Context, id domain.SessionID) (domain.SessionRecord, error) {
	return c.store.Get(ctx, id)
}

func (c *Controller) Overview(ctx context.Context) (Overview, error) {
	records, err := c.store.List(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("list sessions: %w", err)
	}
	queue, err := c.queue.List(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("list notification queue: %w", err)
	}

	overview := Overview{Records: records, Queue: queue}
	if c.badge != nil {
		badge, err := c.badge.Derive(ctx)
		if err != nil {
			return Overview{}, fmt.Errorf("derive badge: %w", err)
		}
		overview.Badge = badge
	}
	if c.scheduler != nil {
		overview.Active = c.scheduler.Active()
	}

	return overview, nil
}

// Idle reports whether no session is being polled by this process.
func (c *Controller) Idle() bool {
	return c.scheduler == nil || len(c.scheduler.Active()) == 0
}
