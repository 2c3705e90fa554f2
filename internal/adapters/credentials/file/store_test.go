package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/calsnap/internal/domain"
)

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "calsnap/auth/token", "eyJhbGciOi.token\n"))

	value, err := store.Get(ctx, "calsnap/auth/token")
	require.NoError(t, err)
	assert.Equal(t, "eyJhbGciOi.token", value)

	info, err := os.Stat(filepath.Join(root, "calsnap", "auth", "token"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, store.Delete(ctx, "calsnap/auth/token"))
	require.NoError(t, store.Delete(ctx, "calsnap/auth/token"))

	_, err = store.Get(ctx, "calsnap/auth/token")
	require.ErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestStoreRejectsKeysOutsideRoot(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())

	for _, key := range []string{"", "  ", ".", "..", "../escape", "/etc/passwd"} {
		err := store.Put(context.Background(), key, "x")
		require.Error(t, err, key)
	}
}

func TestStoreHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStore(t.TempDir()).Get(ctx, "calsnap/auth/token")
	require.ErrorIs(t, err, context.Canceled)
}
