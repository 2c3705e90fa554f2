package application

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/calsnap/internal/adapters/kv/memory"
	"github.com/bnema/calsnap/internal/domain"
)

func TestBadgeServiceRefreshSkipsExpiredOutcomes(t *testing.T) {
	t.Parallel()

	clock := newManualClock(testEpoch)
	h := newHarness(t, nil, clock)
	ctx := context.Background()
	h.seed(t,
		domain.SessionRecord{ID: "fresh", Status: domain.StatusProcessed, EventCount: 2, CreatedAt: testEpoch},
		domain.SessionRecord{ID: "old", Status: domain.StatusError, CreatedAt: testEpoch.Add(-25 * time.Hour)},
	)
	require.NoError(t, h.queue.Push(ctx, "old"))
	require.NoError(t, h.queue.Push(ctx, "fresh"))

	badge, err := h.badge.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Badge{Kind: domain.BadgeCount, Count: 2}, badge)

	clock.Advance(25 * time.Hour)
	badge, err = h.badge.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Badge{Kind: domain.BadgeEmpty}, badge)
}

func TestBadgeServiceFlagOverridesUntilNextRefresh(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	ctx := context.Background()

	h.badge.Flag(ctx, domain.Badge{Kind: domain.BadgeError})
	assert.Equal(t, domain.Badge{Kind: domain.BadgeError}, h.badge.Current())
	assert.Equal(t, domain.Badge{Kind: domain.BadgeError}, h.renderer.Last())

	_, err := h.badge.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Badge{Kind: domain.BadgeEmpty}, h.badge.Current())
}

func TestBadgeServiceLogsRenderFailure(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	renderer := &recordingRenderer{err: errors.New("tray gone")}
	badge := NewBadgeService(memory.New(), NewKeys("test"), renderer, fixedClock{now: testEpoch}, BadgeOptions{
		Logger: log.New(&logs, "", 0),
	})

	got, err := badge.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.BadgeEmpty, got.Kind)
	assert.Contains(t, logs.String(), "badge: render empty: tray gone")
}

func TestBadgeServiceDeriveDoesNotRender(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil, nil)
	ctx := context.Background()
	h.seed(t, domain.SessionRecord{ID: "s1", Status: domain.StatusPolling, CreatedAt: testEpoch})
	rendered := len(h.renderer.Rendered())

	badge, err := h.badge.Derive(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.BadgeSpinner, badge.Kind)
	assert.Len(t, h.renderer.Rendered(), rendered)
}
