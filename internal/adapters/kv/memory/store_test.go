package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports"
)

func TestStoreRoundTripAndRemove(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "calsnap:sessions", []byte(`[]`)))
	value, err := store.Get(ctx, "calsnap:sessions")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), value)

	value[0] = 'x'
	again, err := store.Get(ctx, "calsnap:sessions")
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), again)

	require.NoError(t, store.Remove(ctx, "calsnap:sessions"))
	require.NoError(t, store.Remove(ctx, "calsnap:sessions"))
	_, err = store.Get(ctx, "calsnap:sessions")
	require.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestStoreWatchDeliversChangesUntilCanceled(t *testing.T) {
	t.Parallel()

	store := New()
	ctx, cancel := context.WithCancel(context.Background())

	changes, err := store.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Set(context.Background(), "k", []byte("v")))
	require.NoError(t, store.Remove(context.Background(), "k"))

	assert.Equal(t, ports.Change{Key: "k", Op: ports.ChangeSet}, receive(t, changes))
	assert.Equal(t, ports.Change{Key: "k", Op: ports.ChangeRemove}, receive(t, changes))

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-changes
		return !open
	}, time.Second, 10*time.Millisecond)
}

func TestStoreRejectsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := New()
	require.ErrorIs(t, store.Set(ctx, "k", nil), context.Canceled)
	_, err := store.Get(ctx, "k")
	require.ErrorIs(t, err, context.Canceled)
}

func receive(t *testing.T, changes <-chan ports.Change) ports.Change {
	t.Helper()

	select {
	case change := <-changes:
		return change
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change")
		return ports.Change{}
	}
}

func TestStoreUpdate(t *testing.T) {
	t.Parallel()

	store := New()
	ctx := context.Background()
	changes, err := store.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, "k", func(current []byte, found bool) ([]byte, bool, error) {
		assert.False(t, found)
		return nil, false, nil
	}))
	_, err = store.Get(ctx, "k")
	require.ErrorIs(t, err, domain.ErrKeyNotFound)

	require.NoError(t, store.Update(ctx, "k", func(current []byte, found bool) ([]byte, bool, error) {
		return []byte("a"), true, nil
	}))
	require.NoError(t, store.Update(ctx, "k", func(current []byte, found bool) ([]byte, bool, error) {
		assert.True(t, found)
		return append(current, 'b'), true, nil
	}))

	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "ab", string(value))
	assert.Equal(t, ports.Change{Key: "k", Op: ports.ChangeSet}, <-changes)
	assert.Equal(t, ports.Change{Key: "k", Op: ports.ChangeSet}, <-changes)

	failure := errors.New("bad value")
	err = store.Update(ctx, "k", func([]byte, bool) ([]byte, bool, error) {
		return []byte("ignored"), true, failure
	})
	require.ErrorIs(t, err, failure)
	value, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "ab", string(value))
}
