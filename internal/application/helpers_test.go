package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/calsnap/internal/adapters/kv/memory"
	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports"
)

var testEpoch = time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)

func mockAnyContext() interface{} {
	return mock.Anything
}

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time {
	return f.now
}

// manualClock only moves when a test advances it.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(now time.Time) *manualClock {
	return &manualClock{now: now}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingRenderer struct {
	mu     sync.Mutex
	badges []domain.Badge
	err    error
}

func (r *recordingRenderer) Render(_ context.Context, badge domain.Badge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.badges = append(r.badges, badge)
	return r.err
}

func (r *recordingRenderer) Rendered() []domain.Badge {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Badge(nil), r.badges...)
}

func (r *recordingRenderer) Last() domain.Badge {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.badges) == 0 {
		return domain.Badge{}
	}
	return r.badges[len(r.badges)-1]
}

type countingKeepalive struct {
	mu       sync.Mutex
	acquired int
	released int
}

func (k *countingKeepalive) Acquire() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.acquired++
}

func (k *countingKeepalive) Release() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.released++
}

func (k *countingKeepalive) Counts() (int, int) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.acquired, k.released
}

// writeLog wraps a KeyValueStore and records the key of every write.
type writeLog struct {
	ports.KeyValueStore
	mu   sync.Mutex
	keys []string
}

func (w *writeLog) Set(ctx context.Context, key string, value []byte) error {
	w.mu.Lock()
	w.keys = append(w.keys, key)
	w.mu.Unlock()
	return w.KeyValueStore.Set(ctx, key, value)
}

func (w *writeLog) Update(ctx context.Context, key string, fn ports.UpdateFunc) error {
	return w.KeyValueStore.Update(ctx, key, func(current []byte, found bool) ([]byte, bool, error) {
		next, write, err := fn(current, found)
		if err == nil && write {
			w.mu.Lock()
			w.keys = append(w.keys, key)
			w.mu.Unlock()
		}
		return next, write, err
	})
}

func (w *writeLog) Keys() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.keys...)
}

// failingKV fails every write after being armed.
type failingKV struct {
	ports.KeyValueStore
	mu  sync.Mutex
	err error
}

func (f *failingKV) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.KeyValueStore.Set(ctx, key, value)
}

func (f *failingKV) Update(ctx context.Context, key string, fn ports.UpdateFunc) error {
	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.KeyValueStore.Update(ctx, key, fn)
}

func (f *failingKV) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type harness struct {
	kv       ports.KeyValueStore
	keys     Keys
	clock    ports.Clock
	renderer *recordingRenderer
	badge    *BadgeService
	store    *SessionStore
	queue    *NotificationQueue
}

func newHarness(t *testing.T, kv ports.KeyValueStore, clock ports.Clock) *harness {
	t.Helper()

	if kv == nil {
		kv = memory.New()
	}
	if clock == nil {
		clock = fixedClock{now: testEpoch}
	}

	keys := NewKeys("test")
	renderer := &recordingRenderer{}
	badge := NewBadgeService(kv, keys, renderer, clock, BadgeOptions{FeedbackWindow: 24 * time.Hour})

	return &harness{
		kv:       kv,
		keys:     keys,
		clock:    clock,
		renderer: renderer,
		badge:    badge,
		store:    NewSessionStore(kv, keys, 10, badge),
		queue:    NewNotificationQueue(kv, keys, badge),
	}
}

func (h *harness) seed(t *testing.T, records ...domain.SessionRecord) {
	t.Helper()

	// Upsert puts the newest first, so seed in reverse to keep the given order.
	for i := len(records) - 1; i >= 0; i-- {
		require.NoError(t, h.store.Upsert(context.Background(), records[i]))
	}
}

func (h *harness) record(t *testing.T, id domain.SessionID) domain.SessionRecord {
	t.Helper()

	record, err := h.store.Get(context.Background(), id)
	require.NoError(t, err)
	return record
}

func (h *harness) queued(t *testing.T) []domain.SessionID {
	t.Helper()

	ids, err := h.queue.List(context.Background())
	require.NoError(t, err)
	return ids
}
