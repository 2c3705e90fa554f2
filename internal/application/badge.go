package application

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports"
)

const DefaultFeedbackWindow = 24 * time.Hour

type BadgeOptions struct {
	FeedbackWindow time.Duration
	Logger         *log.Logger
	Observer       Observer
}

// BadgeService derives the badge from persisted state and pushes it to the
// renderer. It reads the store directly so the stores can depend on it.
type BadgeService struct {
	kv       ports.KeyValueStore
	keys     Keys
	renderer ports.BadgeRenderer
	clock    ports.Clock
	window   time.Duration
	logger   *log.Logger
	observer Observer

	// mu orders derive+render so a stale derivation never renders last.
	mu      sync.Mutex
	current domain.Badge
}

func NewBadgeService(kv ports.KeyValueStore, keys Keys, renderer ports.BadgeRenderer, clock ports.Clock, opts BadgeOptions) *BadgeService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if opts.FeedbackWindow <= 0 {
		opts.FeedbackWindow = DefaultFeedbackWindow
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}

	return &BadgeService{
		kv:       kv,
		keys:     keys,
		renderer: renderer,
		clock:    clock,
		window:   opts.FeedbackWindow,
		logger:   opts.Logger,
		observer: observerOrNop(opts.Observer),
		current:  domain.Badge{Kind: domain.BadgeEmpty},
	}
}

// Refresh recomputes the badge. Render failures are logged, not returned.
func (b *BadgeService) Refresh(ctx context.Context) (domain.Badge, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	badge, err := b.derive(ctx)
	if err != nil {
		return domain.Badge{}, err
	}

	b.render(ctx, badge)
	return badge, nil
}

// Flag renders an explicit badge until the next Refresh replaces it.
func (b *BadgeService) Flag(ctx context.Context, badge domain.Badge) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.render(ctx, badge)
}

// Derive computes the badge from the store without rendering it.
func (b *BadgeService) Derive(ctx context.Context) (domain.Badge, error) {
	return b.derive(ctx)
}

// Current is the last rendered badge.
func (b *BadgeService) Current() domain.Badge {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.current
}

func (b *BadgeService) derive(ctx context.Context) (domain.Badge, error) {
	records, err := loadRecords(ctx, b.kv, b.keys.Sessions)
	if err != nil {
		return domain.Badge{}, err
	}
	queue, err := loadQueue(ctx, b.kv, b.keys.NotificationQueue)
	if err != nil {
		return domain.Badge{}, err
	}

	return domain.DeriveBadge(records, queue, b.clock.Now(), b.window), nil
}

func (b *BadgeService) render(ctx context.Context, badge domain.Badge) {
	b.current = badge
	b.observer.BadgeRendered(badge)

	if b.renderer == nil {
		return
	}
	if err := b.renderer.Render(ctx, badge); err != nil {
		b.logger.Printf("badge: render %s: %v", badge.Kind, err)
	}
}
