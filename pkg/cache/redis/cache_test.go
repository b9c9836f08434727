package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anicards-project/anicards/pkg/cache"
)

func newTestCache(t *testing.T) *RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	return NewCacheWithClient(client)
}

func TestRedisGetSet(t *testing.T) {
	rc := newTestCache(t)
	ctx := context.Background()

	t.Run("Get_Missing_Key_Returns_CacheMiss", func(t *testing.T) {
		_, err := rc.Get(ctx, "missing")
		assert.ErrorIs(t, err, cache.ErrCacheMiss)
	})

	t.Run("Set_Then_Get", func(t *testing.T) {
		require.NoError(t, rc.Set(ctx, "key", "value", 0))
		val, err := rc.Get(ctx, "key")
		require.NoError(t, err)
		assert.Equal(t, "value", val)
	})

	t.Run("Negative_TTL_Means_No_Expiry", func(t *testing.T) {
		assert.NoError(t, rc.Set(ctx, "forever", "v", -1))
	})
}

func TestRedisKeysAndMGet(t *testing.T) {
	rc := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "username:alpha", "1", 0))
	require.NoError(t, rc.Set(ctx, "username:beta", "2", 0))
	require.NoError(t, rc.Set(ctx, "failures:1", "3", 0))

	t.Run("Keys_Scans_By_Pattern", func(t *testing.T) {
		keys, err := rc.Keys(ctx, "username:*")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"username:alpha", "username:beta"}, keys)
	})

	t.Run("MGet_Omits_Absent_Keys", func(t *testing.T) {
		values, err := rc.MGet(ctx, "username:alpha", "username:gone", "failures:1")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"username:alpha": "1",
			"failures:1":     "3",
		}, values)
	})

	t.Run("MGet_Empty_Keys", func(t *testing.T) {
		values, err := rc.MGet(ctx)
		require.NoError(t, err)
		assert.Empty(t, values)
	})
}

func TestRedisIncrement(t *testing.T) {
	rc := newTestCache(t)
	ctx := context.Background()

	count, err := rc.Increment(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = rc.Increment(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRedisSortedSet(t *testing.T) {
	rc := newTestCache(t)
	ctx := context.Background()

	t.Run("TopN_Empty_Set", func(t *testing.T) {
		members, err := rc.SortedSetTopN(ctx, "zset", 5)
		require.NoError(t, err)
		assert.Empty(t, members)
	})

	t.Run("TopN_Orders_By_Score_Descending", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			require.NoError(t, rc.SortedSetIncr(ctx, "zset", "high"))
		}
		for i := 0; i < 3; i++ {
			require.NoError(t, rc.SortedSetIncr(ctx, "zset", "mid"))
		}
		require.NoError(t, rc.SortedSetIncr(ctx, "zset", "low"))

		members, err := rc.SortedSetTopN(ctx, "zset", 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"high", "mid"}, members)
	})
}

func TestRedisDelete(t *testing.T) {
	rc := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, "a", "1", 0))

	require.NoError(t, rc.Delete(ctx, "a", "never-existed"))
	_, err := rc.Get(ctx, "a")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	assert.NoError(t, rc.Delete(ctx))
}
