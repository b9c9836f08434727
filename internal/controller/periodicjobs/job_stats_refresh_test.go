package periodicjobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anicards-project/anicards/pkg/cache/inmemory"
	"github.com/anicards-project/anicards/pkg/clients/anilist"
	"github.com/anicards-project/anicards/pkg/common/structs"
	"github.com/anicards-project/anicards/pkg/store"
)

// fakeAniListClient scripts per-username fetch outcomes.
type fakeAniListClient struct {
	mu      sync.Mutex
	results map[string]error
	calls   map[string]int
}

func newFakeAniListClient() *fakeAniListClient {
	return &fakeAniListClient{
		results: make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (f *fakeAniListClient) GetUserID(_ context.Context, username string) (int64, error) {
	if err := f.results[username]; err != nil {
		return 0, err
	}
	return 0, nil
}

func (f *fakeAniListClient) FetchUserStats(_ context.Context, username string) (*structs.UserSnapshot, error) {
	f.mu.Lock()
	f.calls[username]++
	f.mu.Unlock()

	if err := f.results[username]; err != nil {
		return nil, err
	}
	return &structs.UserSnapshot{
		Meta:  &structs.MetaPart{UserID: userIDFor(username), Username: username, FetchedAt: time.Now()},
		Stats: &structs.StatsPart{TotalActivity: 42},
	}, nil
}

func (f *fakeAniListClient) callCount(username string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[username]
}

var _ anilist.Client = (*fakeAniListClient)(nil)

// userIDFor derives a deterministic id so fixtures and assertions line
// up without bookkeeping.
func userIDFor(username string) int64 {
	var id int64
	for _, r := range username {
		id = id*31 + int64(r)
	}
	return id
}

func newRefreshFixture(t *testing.T) (*StatsRefreshJob, *store.Store, *fakeAniListClient) {
	t.Helper()
	inMemCache, err := inmemory.NewCache(&inmemory.Config{
		DefaultExpiration: -1,
		CleanupInterval:   -1,
	})
	require.NoError(t, err)
	dataStore := store.New(inMemCache)
	client := newFakeAniListClient()
	job := NewStatsRefreshJob(dataStore, client, 2, time.Second)
	return job, dataStore, client
}

func seedRefreshUser(t *testing.T, dataStore *store.Store, username string) int64 {
	t.Helper()
	ctx := context.Background()
	userID := userIDFor(username)
	snapshot := &structs.UserSnapshot{
		Meta: &structs.MetaPart{UserID: userID, Username: username},
	}
	require.NoError(t, dataStore.Records.WriteParts(ctx, userID, snapshot.Parts()))
	require.NoError(t, dataStore.Usernames.Set(ctx, username, userID))
	return userID
}

func TestStatsRefreshJobAllSucceed(t *testing.T) {
	job, dataStore, _ := newRefreshFixture(t)
	ctx := context.Background()

	usernames := []string{"alice", "bob", "carol", "dave", "erin"}
	for _, username := range usernames {
		seedRefreshUser(t, dataStore, username)
	}

	summary, err := job.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Attempted)
	assert.Equal(t, 5, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 0, summary.Removed)
	assert.Equal(t, "Updated 5/5 users successfully. Failed: 0, Removed: 0", summary.Message())

	// Refreshed data landed.
	record, err := dataStore.Records.Reconstruct(ctx, userIDFor("alice"))
	require.NoError(t, err)
	require.NotNil(t, record.Stats)
	assert.Equal(t, 42, record.Stats.TotalActivity)
}

func TestStatsRefreshJobNotFoundCounting(t *testing.T) {
	job, dataStore, client := newRefreshFixture(t)
	ctx := context.Background()
	userID := seedRefreshUser(t, dataStore, "ghost")
	client.results["ghost"] = anilist.ErrUserNotFound

	t.Run("First_NotFound_Keeps_Record", func(t *testing.T) {
		summary, err := job.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, 0, summary.Removed)

		exists, err := dataStore.Records.Exists(ctx, userID)
		require.NoError(t, err)
		assert.True(t, exists, "stale record survives below the threshold")

		count, err := dataStore.Failures.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Second_NotFound_Keeps_Record", func(t *testing.T) {
		summary, err := job.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Failed)

		count, err := dataStore.Failures.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("Third_NotFound_Purges_User", func(t *testing.T) {
		summary, err := job.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Failed, "a removed user still counts as failed")
		assert.Equal(t, 1, summary.Removed)
		assert.Equal(t, "Updated 0/1 users successfully. Failed: 1, Removed: 1", summary.Message())

		exists, err := dataStore.Records.Exists(ctx, userID)
		require.NoError(t, err)
		assert.False(t, exists, "record parts purged at the threshold")

		_, err = dataStore.Usernames.Resolve(ctx, "ghost")
		assert.ErrorIs(t, err, store.ErrUserNotFound, "index entry purged")

		count, err := dataStore.Failures.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count, "counter purged")
	})

	t.Run("Purged_User_Leaves_Enumeration", func(t *testing.T) {
		summary, err := job.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Attempted)
	})
}

func TestStatsRefreshJobEvictsUserWithoutMetaPart(t *testing.T) {
	job, dataStore, client := newRefreshFixture(t)
	ctx := context.Background()

	// Only the index entry exists, the record parts were never written
	// (or were lost in a partial write).
	require.NoError(t, dataStore.Usernames.Set(ctx, "wraith", 777))
	client.results["wraith"] = anilist.ErrUserNotFound

	var summary *structs.RefreshSummary
	for i := 0; i < EvictionThreshold; i++ {
		var err error
		summary, err = job.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Attempted)
	}
	assert.Equal(t, 1, summary.Removed)

	_, err := dataStore.Usernames.Resolve(ctx, "wraith")
	assert.ErrorIs(t, err, store.ErrUserNotFound, "index entry purged even without a meta part")

	summary, err = job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Attempted, "evicted user leaves enumeration")
}

func TestStatsRefreshJobConcurrentRuns(t *testing.T) {
	job, dataStore, _ := newRefreshFixture(t)
	ctx := context.Background()

	for _, username := range []string{"alice", "bob", "carol"} {
		seedRefreshUser(t, dataStore, username)
	}

	// Two trigger requests landing at once must not share any mutable
	// job state.
	var wg sync.WaitGroup
	summaries := make([]*structs.RefreshSummary, 2)
	errs := make([]error, 2)
	for i := range summaries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			summaries[i], errs[i] = job.Run(ctx)
		}()
	}
	wg.Wait()

	for i := range summaries {
		require.NoError(t, errs[i])
		assert.Equal(t, 3, summaries[i].Attempted)
		assert.Equal(t, 3, summaries[i].Succeeded)
	}
}

func TestStatsRefreshJobSuccessResetsCounter(t *testing.T) {
	job, dataStore, client := newRefreshFixture(t)
	ctx := context.Background()
	userID := seedRefreshUser(t, dataStore, "flaky")

	client.results["flaky"] = anilist.ErrUserNotFound
	_, err := job.Run(ctx)
	require.NoError(t, err)
	_, err = job.Run(ctx)
	require.NoError(t, err)

	count, err := dataStore.Failures.Get(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	// Upstream recovers one cycle before the threshold.
	delete(client.results, "flaky")
	summary, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	count, err = dataStore.Failures.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count, "success resets the streak")

	// The streak starts over, never resuming at 2.
	client.results["flaky"] = anilist.ErrUserNotFound
	_, err = job.Run(ctx)
	require.NoError(t, err)

	exists, err := dataStore.Records.Exists(ctx, userID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStatsRefreshJobTransientErrorsNeverCount(t *testing.T) {
	job, dataStore, client := newRefreshFixture(t)
	ctx := context.Background()
	userID := seedRefreshUser(t, dataStore, "unlucky")
	client.results["unlucky"] = &anilist.UpstreamError{Status: 500, Message: "server error"}

	for i := 0; i < 5; i++ {
		summary, err := job.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Failed)
		assert.Equal(t, 0, summary.Removed)
	}

	count, err := dataStore.Failures.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count, "transient failures never touch the counter")

	exists, err := dataStore.Records.Exists(ctx, userID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStatsRefreshJobMixedOutcomes(t *testing.T) {
	job, dataStore, client := newRefreshFixture(t)
	ctx := context.Background()

	seedRefreshUser(t, dataStore, "healthy")
	seedRefreshUser(t, dataStore, "vanished")
	seedRefreshUser(t, dataStore, "flaky")
	client.results["vanished"] = anilist.ErrUserNotFound
	client.results["flaky"] = &anilist.UpstreamError{Status: 429, Message: "rate limited"}

	summary, err := job.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Attempted)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 0, summary.Removed)
	assert.Equal(t, "Updated 1/3 users successfully. Failed: 2, Removed: 0", summary.Message())
}

func TestStatsRefreshJobEnumerationFailureIsFatal(t *testing.T) {
	client := newFakeAniListClient()
	job := NewStatsRefreshJob(store.New(&failingCache{}), client, 2, time.Second)

	_, err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to enumerate known users")
	assert.Equal(t, 0, client.callCount("anyone"), "no per-user work after a failed enumeration")
}

func TestStatsRefreshJobEmptyUserSet(t *testing.T) {
	job, _, _ := newRefreshFixture(t)

	summary, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &structs.RefreshSummary{}, summary)
	assert.Equal(t, "Updated 0/0 users successfully. Failed: 0, Removed: 0", summary.Message())
}

func TestStatsRefreshJobName(t *testing.T) {
	job, _, _ := newRefreshFixture(t)
	assert.Equal(t, StatsRefreshJobName, job.GetName())
}

// failingCache errors on every operation, simulating a down store.
type failingCache struct{}

var errCacheDown = errors.New("cache down")

func (f *failingCache) Get(context.Context, string) (string, error) { return "", errCacheDown }
func (f *failingCache) Set(context.Context, string, string, time.Duration) error {
	return errCacheDown
}
func (f *failingCache) Delete(context.Context, ...string) error { return errCacheDown }
func (f *failingCache) Keys(context.Context, string) ([]string, error) {
	return nil, errCacheDown
}
func (f *failingCache) MGet(context.Context, ...string) (map[string]string, error) {
	return nil, errCacheDown
}
func (f *failingCache) Increment(context.Context, string) (int64, error) { return 0, errCacheDown }
func (f *failingCache) SortedSetIncr(context.Context, string, string) error {
	return errCacheDown
}
func (f *failingCache) SortedSetTopN(context.Context, string, int64) ([]string, error) {
	return nil, errCacheDown
}
func (f *failingCache) Disconnect() error { return nil }
