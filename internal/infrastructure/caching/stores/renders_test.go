package stores

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRendersStoreSetGet(t *testing.T) {
	store := NewRendersStore(time.Hour)

	_, ok := store.Get("missing")
	assert.False(t, ok)

	store.Set("k1", "<svg>1</svg>")
	svg, ok := store.Get("k1")
	assert.True(t, ok)
	assert.Equal(t, "<svg>1</svg>", svg)

	stats := store.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestRendersStoreTTLExpiry(t *testing.T) {
	store := NewRendersStore(10 * time.Millisecond)
	store.Set("k1", "<svg/>")

	time.Sleep(25 * time.Millisecond)

	_, ok := store.Get("k1")
	assert.False(t, ok)
	assert.Equal(t, int64(1), store.Stats().Evictions)
}

func TestRendersStoreCleanup(t *testing.T) {
	store := NewRendersStore(10 * time.Millisecond)
	store.Set("old", "<svg/>")

	time.Sleep(25 * time.Millisecond)
	store.Set("fresh", "<svg/>")
	store.Cleanup()

	stats := store.Stats()
	assert.Equal(t, 1, stats.Entries)
	_, ok := store.Get("fresh")
	assert.True(t, ok)
}

func TestRendersStorePurgeAndInvalidate(t *testing.T) {
	store := NewRendersStore(time.Hour)
	store.Set("k1", "a")
	store.Set("k2", "b")

	store.Invalidate("k1")
	_, ok := store.Get("k1")
	assert.False(t, ok)

	store.Purge()
	assert.Equal(t, 0, store.Stats().Entries)
}
