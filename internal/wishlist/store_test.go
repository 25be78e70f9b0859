package wishlist

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluehouse-sports/storefront/internal/kv"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("add is idempotent", func(t *testing.T) {
		store := NewStore(ctx, kv.NewMemoryStore(), testLogger())

		store.Add(ctx, 7)
		store.Add(ctx, 7)
		store.Add(ctx, 2)

		assert.Equal(t, []int{7, 2}, store.IDs())
		assert.True(t, store.Contains(7))
		assert.False(t, store.Contains(99))
	})

	t.Run("remove unknown id is a no-op", func(t *testing.T) {
		store := NewStore(ctx, kv.NewMemoryStore(), testLogger())

		store.Add(ctx, 7)
		store.Remove(ctx, 99)
		store.Remove(ctx, 7)

		assert.Empty(t, store.IDs())
	})

	t.Run("toggle flips membership", func(t *testing.T) {
		store := NewStore(ctx, kv.NewMemoryStore(), testLogger())

		assert.True(t, store.Toggle(ctx, 7))
		assert.True(t, store.Contains(7))
		assert.False(t, store.Toggle(ctx, 7))
		assert.False(t, store.Contains(7))
	})

	t.Run("persists across instances", func(t *testing.T) {
		blob := kv.NewMemoryStore()

		first := NewStore(ctx, blob, testLogger())
		first.Add(ctx, 7)
		first.Add(ctx, 2)

		second := NewStore(ctx, blob, testLogger())
		assert.Equal(t, []int{7, 2}, second.IDs())
	})

	t.Run("malformed blob starts empty", func(t *testing.T) {
		blob := kv.NewMemoryStore()
		require.NoError(t, blob.Set(ctx, "bluehouse_wishlist", []byte("oops")))

		store := NewStore(ctx, blob, testLogger())
		assert.Empty(t, store.IDs())
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		store := NewStore(ctx, kv.NewMemoryStore(), testLogger())
		store.Add(ctx, 7)

		ids := store.IDs()
		ids[0] = 42
		assert.Equal(t, []int{7}, store.IDs())
	})
}
