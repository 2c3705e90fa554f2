package application

import (
	"context"
	"fmt"
	"slices"

	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports"
)

// NotificationQueue is an insertion-ordered set of session ids whose outcome
// the user has not acknowledged yet.
type NotificationQueue struct {
	kv    ports.KeyValueStore
	key   string
	badge badgeRefresher
}

func NewNotificationQueue(kv ports.KeyValueStore, keys Keys, badge badgeRefresher) *NotificationQueue {
	return &NotificationQueue{kv: kv, key: keys.NotificationQueue, badge: badge}
}

func (q *NotificationQueue) Push(ctx context.Context, id domain.SessionID) error {
	if err := q.mutate(ctx, func(ids []domain.SessionID) ([]domain.SessionID, bool) {
		if slices.Contains(ids, id) {
			return ids, false
		}
		return append(ids, id), true
	}); err != nil {
		return fmt.Errorf("push %s: %w", id, err)
	}

	return q.refreshBadge(ctx)
}

func (q *NotificationQueue) Remove(ctx context.Context, id domain.SessionID) error {
	if err := q.mutate(ctx, func(ids []domain.SessionID) ([]domain.SessionID, bool) {
		index := slices.Index(ids, id)
		if index < 0 {
			return ids, false
		}
		return slices.Delete(ids, index, index+1), true
	}); err != nil {
		return fmt.Errorf("remove %s: %w", id, err)
	}

	return q.refreshBadge(ctx)
}

func (q *NotificationQueue) Clear(ctx context.Context) error {
	if err := q.mutate(ctx, func(ids []domain.SessionID) ([]domain.SessionID, bool) {
		return nil, len(ids) > 0
	}); err != nil {
		return fmt.Errorf("clear notification queue: %w", err)
	}

	return q.refreshBadge(ctx)
}

func (q *NotificationQueue) List(ctx context.Context) ([]domain.SessionID, error) {
	return loadQueue(ctx, q.kv, q.key)
}

func (q *NotificationQueue) mutate(ctx context.Context, change func([]domain.SessionID) ([]domain.SessionID, bool)) error {
	return updateQueue(ctx, q.kv, q.key, change)
}

func (q *NotificationQueue) refreshBadge(ctx context.Context) error {
	if q.badge == nil {
		return nil
	}
	if _, err := q.badge.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh badge: %w", err)
	}
	return nil
}
