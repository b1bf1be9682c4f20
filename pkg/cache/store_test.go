package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGet(t *testing.T) {
	store := NewStore()

	store.Set("k", "payload", time.Minute)

	got, ok := store.Get("k")
	require.True(t, ok)
	assert.Equal(t, "payload", got)
}

func TestStore_GetMissingKey(t *testing.T) {
	store := NewStore()

	_, ok := store.Get("absent")
	assert.False(t, ok)
}

func TestStore_ExpiredEntryIsEvictedOnGet(t *testing.T) {
	store := NewStore()

	store.Set("k", "payload", time.Nanosecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := store.Get("k")
	assert.False(t, ok)
	assert.Zero(t, store.Len(), "expired entry should be evicted, not just hidden")
}

func TestStore_SetRefreshesTTL(t *testing.T) {
	store := NewStore()

	store.Set("k", "old", time.Nanosecond)
	store.Set("k", "new", time.Minute)

	got, ok := store.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestStore_GetStaleReadsExpiredEntry(t *testing.T) {
	store := NewStore()

	store.Set("k", "payload", time.Nanosecond)
	time.Sleep(5 * time.Millisecond)

	got, storedAt, ok := store.GetStale("k")
	require.True(t, ok)
	assert.Equal(t, "payload", got)
	assert.WithinDuration(t, time.Now(), storedAt, time.Second)

	// Stale reads must not evict; the fallback has to stay reachable.
	_, _, ok = store.GetStale("k")
	assert.True(t, ok)
}

func TestStore_DeleteFunc(t *testing.T) {
	store := NewStore()
	store.Set("songs|a", 1, time.Minute)
	store.Set("songs|b", 2, time.Minute)
	store.Set("events|a", 3, time.Minute)

	removed := store.DeleteFunc(func(key string) bool {
		return key[:5] == "songs"
	})

	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, store.Len())
	_, ok := store.Get("events|a")
	assert.True(t, ok)
}

func TestStore_Sweep(t *testing.T) {
	store := NewStore()
	store.Set("stale", 1, time.Nanosecond)
	store.Set("fresh", 2, time.Minute)
	time.Sleep(5 * time.Millisecond)

	removed := store.Sweep()

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())
	_, ok := store.Get("fresh")
	assert.True(t, ok)
}

func TestStore_Clear(t *testing.T) {
	store := NewStore()
	store.Set("a", 1, time.Minute)
	store.Set("b", 2, time.Minute)

	store.Clear()

	assert.Zero(t, store.Len())
}

func TestStore_KeysIncludesExpired(t *testing.T) {
	store := NewStore()
	store.Set("stale", 1, time.Nanosecond)
	store.Set("fresh", 2, time.Minute)
	time.Sleep(5 * time.Millisecond)

	assert.ElementsMatch(t, []string{"stale", "fresh"}, store.Keys())
}
