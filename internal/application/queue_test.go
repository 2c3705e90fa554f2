package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/calsnap/internal/domain"
)

func TestNotificationQueuePushHasSetSemanticsAndKeepsOrder(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, h.queue.Push(ctx, "s1"))
	require.NoError(t, h.queue.Push(ctx, "s2"))
	require.NoError(t, h.queue.Push(ctx, "s1"))
	require.NoError(t, h.queue.Push(ctx, "s3"))

	assert.Equal(t, []domain.SessionID{"s1", "s2", "s3"}, h.queued(t))
}

func TestNotificationQueueRemove(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	ctx := context.Background()

	require.NoError(t, h.queue.Push(ctx, "s1"))
	require.NoError(t, h.queue.Push(ctx, "s2"))
	require.NoError(t, h.queue.Push(ctx, "s3"))

	require.NoError(t, h.queue.Remove(ctx, "s2"))
	require.NoError(t, h.queue.Remove(ctx, "missing"))
	assert.Equal(t, []domain.SessionID{"s1", "s3"}, h.queued(t))

	require.NoError(t, h.queue.Clear(ctx))
	assert.Empty(t, h.queued(t))
}

func TestNotificationQueueRefreshesBadge(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	ctx := context.Background()
	h.seed(t, domain.SessionRecord{ID: "s1", Status: domain.StatusProcessed, EventCount: 4, CreatedAt: testEpoch})

	require.NoError(t, h.queue.Push(ctx, "s1"))
	assert.Equal(t, domain.Badge{Kind: domain.BadgeCount, Count: 4}, h.renderer.Last())

	require.NoError(t, h.queue.Remove(ctx, "s1"))
	assert.Equal(t, domain.Badge{Kind: domain.BadgeEmpty}, h.renderer.Last())
}
