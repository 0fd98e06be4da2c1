package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/druglabels/backend/internal/domain/providers"
)

func newTestMemoryAdapter(t *testing.T, size int) *MemoryAdapter {
	t.Helper()
	a, err := NewMemoryAdapter(size)
	require.NoError(t, err)
	return a
}

func TestMemoryAdapter_SetGet(t *testing.T) {
	ctx := context.Background()
	a := newTestMemoryAdapter(t, 10)

	require.NoError(t, a.Set(ctx, "seo_metadata:123", []byte(`{"title":"x"}`), 60))

	got, err := a.Get(ctx, "seo_metadata:123")
	require.NoError(t, err)
	assert.Equal(t, `{"title":"x"}`, string(got))

	exists, err := a.Exists(ctx, "seo_metadata:123")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemoryAdapter_MissingKey(t *testing.T) {
	a := newTestMemoryAdapter(t, 10)

	_, err := a.Get(context.Background(), "enhanced_content:nope")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestMemoryAdapter_ExpiryReadsAsMiss(t *testing.T) {
	ctx := context.Background()
	a := newTestMemoryAdapter(t, 10)

	require.NoError(t, a.Set(ctx, "k", []byte("v"), 1))
	_, err := a.Get(ctx, "k")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		exists, err := a.Exists(ctx, "k")
		return err == nil && !exists
	}, 3*time.Second, 50*time.Millisecond)

	_, err = a.Get(ctx, "k")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}

func TestMemoryAdapter_ExpiredEntriesAreRemoved(t *testing.T) {
	ctx := context.Background()
	a := newTestMemoryAdapter(t, 10)

	require.NoError(t, a.Set(ctx, "a", []byte("1"), 1))
	require.NoError(t, a.Set(ctx, "b", []byte("2"), 1))
	require.NoError(t, a.Set(ctx, "c", []byte("3"), 0))
	assert.Equal(t, 3, a.Len())

	assert.Eventually(t, func() bool {
		return a.Len() == 1
	}, 3*time.Second, 50*time.Millisecond)

	_, err := a.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestMemoryAdapter_ZeroTTLDoesNotExpire(t *testing.T) {
	ctx := context.Background()
	a := newTestMemoryAdapter(t, 10)

	require.NoError(t, a.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, a.Set(ctx, "n", []byte("v"), -5))
	time.Sleep(20 * time.Millisecond)

	_, err := a.Get(ctx, "k")
	assert.NoError(t, err)
	_, err = a.Get(ctx, "n")
	assert.NoError(t, err)
}

func TestMemoryAdapter_SetReplacesAcrossExpirations(t *testing.T) {
	ctx := context.Background()
	a := newTestMemoryAdapter(t, 10)

	require.NoError(t, a.Set(ctx, "k", []byte("short"), 300))
	require.NoError(t, a.Set(ctx, "k", []byte("long"), 86400))

	got, err := a.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "long", string(got))
	assert.Equal(t, 1, a.Len())

	require.NoError(t, a.Delete(ctx, "k"))
	exists, err := a.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryAdapter_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	a := newTestMemoryAdapter(t, 2)

	require.NoError(t, a.Set(ctx, "a", []byte("1"), 60))
	require.NoError(t, a.Set(ctx, "b", []byte("2"), 60))
	_, err := a.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, a.Set(ctx, "c", []byte("3"), 60))

	_, err = a.Get(ctx, "b")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
	_, err = a.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestMemoryAdapter_StoresCopies(t *testing.T) {
	ctx := context.Background()
	a := newTestMemoryAdapter(t, 10)

	value := []byte("original")
	require.NoError(t, a.Set(ctx, "k", value, 60))
	value[0] = 'X'

	got, err := a.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))
}

func TestMemoryAdapter_Delete(t *testing.T) {
	ctx := context.Background()
	a := newTestMemoryAdapter(t, 10)

	require.NoError(t, a.Set(ctx, "k", []byte("v"), 60))
	require.NoError(t, a.Delete(ctx, "k"))

	_, err := a.Get(ctx, "k")
	assert.ErrorIs(t, err, providers.ErrCacheMiss)
}
