package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anicards-project/anicards/pkg/cache"
)

func newTestCache(t *testing.T) *InMemoryCache {
	t.Helper()
	c, err := NewCache(&Config{DefaultExpiration: -1, CleanupInterval: -1})
	require.NoError(t, err)
	return c
}

func TestGetSet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	t.Run("Get_Missing_Key_Returns_CacheMiss", func(t *testing.T) {
		_, err := c.Get(ctx, "missing")
		assert.ErrorIs(t, err, cache.ErrCacheMiss)
	})

	t.Run("Set_Then_Get", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "key", "value", 0))
		val, err := c.Get(ctx, "key")
		require.NoError(t, err)
		assert.Equal(t, "value", val)
	})

	t.Run("Set_With_TTL_Expires", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "ephemeral", "v", 10*time.Millisecond))
		time.Sleep(30 * time.Millisecond)
		_, err := c.Get(ctx, "ephemeral")
		assert.ErrorIs(t, err, cache.ErrCacheMiss)
	})
}

func TestDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", "1", 0))
	require.NoError(t, c.Set(ctx, "b", "2", 0))

	require.NoError(t, c.Delete(ctx, "a", "b", "never-existed"))

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	_, err = c.Get(ctx, "b")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestKeysAndMGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "username:alpha", "1", 0))
	require.NoError(t, c.Set(ctx, "username:beta", "2", 0))
	require.NoError(t, c.Set(ctx, "failures:1", "3", 0))

	t.Run("Keys_Matches_Glob", func(t *testing.T) {
		keys, err := c.Keys(ctx, "username:*")
		require.NoError(t, err)
		assert.Equal(t, []string{"username:alpha", "username:beta"}, keys)
	})

	t.Run("MGet_Omits_Absent_Keys", func(t *testing.T) {
		values, err := c.MGet(ctx, "username:alpha", "username:gone", "failures:1")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"username:alpha": "1",
			"failures:1":     "3",
		}, values)
	})
}

func TestIncrement(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	t.Run("Creates_At_One", func(t *testing.T) {
		count, err := c.Increment(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Counts_Up", func(t *testing.T) {
		count, err := c.Increment(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("Non_Numeric_Value_Errors", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "text", "abc", 0))
		_, err := c.Increment(ctx, "text")
		assert.Error(t, err)
	})
}

func TestSortedSet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	t.Run("TopN_Empty_Set", func(t *testing.T) {
		members, err := c.SortedSetTopN(ctx, "zset", 5)
		require.NoError(t, err)
		assert.Empty(t, members)
	})

	t.Run("TopN_Orders_By_Score_Descending", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			require.NoError(t, c.SortedSetIncr(ctx, "zset", "mid"))
		}
		for i := 0; i < 5; i++ {
			require.NoError(t, c.SortedSetIncr(ctx, "zset", "high"))
		}
		require.NoError(t, c.SortedSetIncr(ctx, "zset", "low"))

		members, err := c.SortedSetTopN(ctx, "zset", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"high", "mid", "low"}, members)
	})

	t.Run("TopN_Truncates_To_N", func(t *testing.T) {
		members, err := c.SortedSetTopN(ctx, "zset", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"high", "mid"}, members)
	})

	t.Run("Equal_Scores_Keep_Discovery_Order", func(t *testing.T) {
		require.NoError(t, c.SortedSetIncr(ctx, "ties", "first"))
		require.NoError(t, c.SortedSetIncr(ctx, "ties", "second"))

		members, err := c.SortedSetTopN(ctx, "ties", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, members)
	})
}

func TestDisconnect(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", "value", 0))
	require.NoError(t, c.SortedSetIncr(ctx, "zset", "m"))

	require.NoError(t, c.Disconnect())

	_, err := c.Get(ctx, "key")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	members, err := c.SortedSetTopN(ctx, "zset", 5)
	require.NoError(t, err)
	assert.Empty(t, members)
}
