package chain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	passstore "github.com/bnema/calsnap/internal/adapters/credentials/pass"
	"github.com/bnema/calsnap/internal/domain"
	"github.com/bnema/calsnap/internal/ports/mocks"
)

func mockAnyContext() interface{} {
	return mock.Anything
}

func TestNewStoreRejectsNilBackends(t *testing.T) {
	t.Parallel()

	_, err := NewStore(nil, mocks.NewMockCredentialStore(t))
	require.ErrorIs(t, err, errNilPrimaryStore)

	_, err = NewStore(mocks.NewMockCredentialStore(t), nil)
	require.ErrorIs(t, err, errNilFallbackStore)
}

func TestStoreGetFallsBack(t *testing.T) {
	t.Parallel()

	primary := mocks.NewMockCredentialStore(t)
	fallback := mocks.NewMockCredentialStore(t)
	store, err := NewStore(primary, fallback)
	require.NoError(t, err)

	primary.EXPECT().Get(mockAnyContext(), "calsnap/auth/token").Return("", passstore.ErrUnavailable).Once()
	fallback.EXPECT().Get(mockAnyContext(), "calsnap/auth/token").Return("from-file", nil).Once()

	value, err := store.Get(context.Background(), "calsnap/auth/token")
	require.NoError(t, err)
	assert.Equal(t, "from-file", value)
}

func TestStoreGetReportsNotFoundWhenBothMiss(t *testing.T) {
	t.Parallel()

	primary := mocks.NewMockCredentialStore(t)
	fallback := mocks.NewMockCredentialStore(t)
	store, err := NewStore(primary, fallback)
	require.NoError(t, err)

	primary.EXPECT().Get(mockAnyContext(), "k").Return("", fmt.Errorf("pass: %w", domain.ErrCredentialNotFound)).Once()
	fallback.EXPECT().Get(mockAnyContext(), "k").Return("", fmt.Errorf("file: %w", domain.ErrCredentialNotFound)).Once()

	_, err = store.Get(context.Background(), "k")
	require.ErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestStoreGetDoesNotFallBackWhenCanceled(t *testing.T) {
	t.Parallel()

	primary := mocks.NewMockCredentialStore(t)
	fallback := mocks.NewMockCredentialStore(t)
	store, err := NewStore(primary, fallback)
	require.NoError(t, err)

	primary.EXPECT().Get(mockAnyContext(), "k").Return("", context.Canceled).Once()

	_, err = store.Get(context.Background(), "k")
	require.ErrorIs(t, err, context.Canceled)
}

func TestStoreDeleteClearsBothBackends(t *testing.T) {
	t.Parallel()

	primary := mocks.NewMockCredentialStore(t)
	fallback := mocks.NewMockCredentialStore(t)
	store, err := NewStore(primary, fallback)
	require.NoError(t, err)

	primary.EXPECT().Delete(mockAnyContext(), "k").Return(nil).Once()
	fallback.EXPECT().Delete(mockAnyContext(), "k").Return(nil).Once()

	require.NoError(t, store.Delete(context.Background(), "k"))
}

func TestStoreDeleteIgnoresUnavailablePrimary(t *testing.T) {
	t.Parallel()

	primary := mocks.NewMockCredentialStore(t)
	fallback := mocks.NewMockCredentialStore(t)
	store, err := NewStore(primary, fallback)
	require.NoError(t, err)

	primary.EXPECT().Delete(mockAnyContext(), "k").Return(passstore.ErrUnavailable).Once()
	fallback.EXPECT().Delete(mockAnyContext(), "k").Return(nil).Once()

	require.NoError(t, store.Delete(context.Background(), "k"))
}

func TestStoreDeleteReportsFallbackFailure(t *testing.T) {
	t.Parallel()

	primary := mocks.NewMockCredentialStore(t)
	fallback := mocks.NewMockCredentialStore(t)
	store, err := NewStore(primary, fallback)
	require.NoError(t, err)

	diskErr := errors.New("read-only file system")
	primary.EXPECT().Delete(mockAnyContext(), "k").Return(nil).Once()
	fallback.EXPECT().Delete(mockAnyContext(), "k").Return(diskErr).Once()

	require.ErrorIs(t, store.Delete(context.Background(), "k"), diskErr)
}

func TestStorePutFallsBackOnPrimaryFailure(t *testing.T) {
	t.Parallel()

	primary := mocks.NewMockCredentialStore(t)
	fallback := mocks.NewMockCredentialStore(t)
	store, err := NewStore(primary, fallback)
	require.NoError(t, err)

	primary.EXPECT().Put(mockAnyContext(), "k", "v").Return(passstore.ErrUnavailable).Once()
	fallback.EXPECT().Put(mockAnyContext(), "k", "v").Return(nil).Once()

	require.NoError(t, store.Put(context.Background(), "k", "v"))
}
