package cards

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(userID int64, cardType string) Key {
	return Key{UserID: userID, CardType: cardType, Variant: "default"}
}

func TestArtifactCacheGetPut(t *testing.T) {
	c := NewArtifactCache(10, time.Hour)

	t.Run("Miss_On_Empty_Cache", func(t *testing.T) {
		_, found := c.Get(testKey(1, "animeStats"))
		assert.False(t, found)
	})

	t.Run("Hit_After_Put", func(t *testing.T) {
		c.Put(testKey(1, "animeStats"), []byte("<svg>a</svg>"))

		artifact, found := c.Get(testKey(1, "animeStats"))
		require.True(t, found)
		assert.Equal(t, []byte("<svg>a</svg>"), artifact)
	})

	t.Run("Different_Fingerprint_Misses", func(t *testing.T) {
		key := testKey(1, "animeStats")
		key.Fingerprint = "abc123"
		_, found := c.Get(key)
		assert.False(t, found)
	})

	t.Run("Put_Replaces_Existing_Entry", func(t *testing.T) {
		c.Put(testKey(1, "animeStats"), []byte("<svg>b</svg>"))

		artifact, found := c.Get(testKey(1, "animeStats"))
		require.True(t, found)
		assert.Equal(t, []byte("<svg>b</svg>"), artifact)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("Stats_Count_Hits_And_Misses", func(t *testing.T) {
		stats := c.Stats()
		assert.Greater(t, stats.Misses, int64(0))
		assert.Greater(t, stats.Hits, int64(0))
	})
}

func TestArtifactCacheLRUEviction(t *testing.T) {
	c := NewArtifactCache(3, time.Hour)

	c.Put(testKey(1, "animeStats"), []byte("1"))
	c.Put(testKey(2, "animeStats"), []byte("2"))
	c.Put(testKey(3, "animeStats"), []byte("3"))

	// Touch user 1 so user 2 becomes the least recently used.
	_, found := c.Get(testKey(1, "animeStats"))
	require.True(t, found)

	c.Put(testKey(4, "animeStats"), []byte("4"))

	_, found = c.Get(testKey(2, "animeStats"))
	assert.False(t, found, "least recently used entry should be evicted")
	_, found = c.Get(testKey(1, "animeStats"))
	assert.True(t, found)
	_, found = c.Get(testKey(3, "animeStats"))
	assert.True(t, found)
	_, found = c.Get(testKey(4, "animeStats"))
	assert.True(t, found)

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestArtifactCacheTTL(t *testing.T) {
	c := NewArtifactCache(10, time.Hour)
	current := time.Unix(1700000000, 0)
	c.now = func() time.Time { return current }

	key := testKey(1, "socialStats")
	c.Put(key, []byte("fresh"))

	t.Run("Fresh_Entry_Hits", func(t *testing.T) {
		_, found := c.Get(key)
		assert.True(t, found)
		assert.True(t, c.Contains(key))
	})

	t.Run("Expired_Entry_Misses_Lazily", func(t *testing.T) {
		current = current.Add(time.Hour + time.Second)

		assert.False(t, c.Contains(key))
		_, found := c.Get(key)
		assert.False(t, found)
		assert.Equal(t, 0, c.Len(), "expired entry is dropped on read")
	})

	t.Run("Replacing_Put_Restarts_TTL", func(t *testing.T) {
		c.Put(key, []byte("v1"))
		current = current.Add(30 * time.Minute)
		c.Put(key, []byte("v2"))
		current = current.Add(45 * time.Minute)

		// 75 minutes after the first put but only 45 after the replace.
		artifact, found := c.Get(key)
		require.True(t, found)
		assert.Equal(t, []byte("v2"), artifact)
	})
}

func TestArtifactCacheUnbounded(t *testing.T) {
	c := NewArtifactCache(0, 0)

	for i := int64(0); i < 100; i++ {
		c.Put(testKey(i, "mangaStats"), []byte(fmt.Sprintf("%d", i)))
	}

	assert.Equal(t, 100, c.Len())
	assert.Equal(t, int64(0), c.Stats().Evictions)
}
