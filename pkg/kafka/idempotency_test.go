package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestMemoryIdempotencyStore_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryIdempotencyStore(time.Minute)
	store.now = clock.now
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "evt-1"))
	seen, err := store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)

	clock.t = clock.t.Add(time.Minute)
	seen, err = store.Contains(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryIdempotencyStore_AddPrunesExpired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryIdempotencyStore(time.Minute)
	store.now = clock.now
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "old"))
	clock.t = clock.t.Add(2 * time.Minute)
	require.NoError(t, store.Add(ctx, "new"))

	assert.Equal(t, 1, store.Len())
}

type failingStore struct{}

func (failingStore) Contains(context.Context, string) (bool, error) {
	return false, errors.New("store down")
}
func (failingStore) Add(context.Context, string) error { return errors.New("store down") }

func TestIdempotentHandler(t *testing.T) {
	ctx := context.Background()
	event := &Event{EventID: "evt-1", EventType: "search.reindex.requested"}

	t.Run("duplicate is skipped", func(t *testing.T) {
		calls := 0
		h := IdempotentHandler(NewMemoryIdempotencyStore(time.Hour), func(context.Context, *Event) error {
			calls++
			return nil
		}, discardLogger())

		require.NoError(t, h(ctx, event))
		require.NoError(t, h(ctx, event))
		assert.Equal(t, 1, calls)
	})

	t.Run("failure is not recorded", func(t *testing.T) {
		store := NewMemoryIdempotencyStore(time.Hour)
		calls := 0
		h := IdempotentHandler(store, func(context.Context, *Event) error {
			calls++
			if calls == 1 {
				return errors.New("conflict")
			}
			return nil
		}, discardLogger())

		require.Error(t, h(ctx, event))
		require.NoError(t, h(ctx, event))
		assert.Equal(t, 2, calls)
	})

	t.Run("missing id passes through", func(t *testing.T) {
		calls := 0
		h := IdempotentHandler(NewMemoryIdempotencyStore(time.Hour), func(context.Context, *Event) error {
			calls++
			return nil
		}, discardLogger())

		anonymous := &Event{EventType: "search.reindex.requested"}
		require.NoError(t, h(ctx, anonymous))
		require.NoError(t, h(ctx, anonymous))
		assert.Equal(t, 2, calls)
	})

	t.Run("store failure still handles", func(t *testing.T) {
		calls := 0
		h := IdempotentHandler(failingStore{}, func(context.Context, *Event) error {
			calls++
			return nil
		}, discardLogger())

		require.NoError(t, h(ctx, event))
		assert.Equal(t, 1, calls)
	})
}
