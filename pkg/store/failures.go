package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/anicards-project/anicards/pkg/cache"
)

// FailureStore tracks consecutive permanent refresh failures under
// failures:{id}. The counter lives outside the record so it survives
// cycles that do not touch the record itself.
type FailureStore struct {
	cache cache.Cache
}

func newFailureStore(cache cache.Cache) *FailureStore {
	return &FailureStore{cache: cache}
}

// Increment atomically bumps the counter and returns the new value. The
// underlying driver primitive makes concurrent increments safe.
func (f *FailureStore) Increment(ctx context.Context, userID int64) (int64, error) {
	count, err := f.cache.Increment(ctx, failuresKey(userID))
	if err != nil {
		return 0, fmt.Errorf("failed to increment failure counter for user %d: %w", userID, err)
	}
	return count, nil
}

// Get returns the current counter value, 0 when absent.
func (f *FailureStore) Get(ctx context.Context, userID int64) (int64, error) {
	val, err := f.cache.Get(ctx, failuresKey(userID))
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return 0, nil
		}
		return 0, err
	}
	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt failure counter for user %d: %w", userID, err)
	}
	return count, nil
}

// Clear deletes the counter key rather than writing 0.
func (f *FailureStore) Clear(ctx context.Context, userID int64) error {
	return f.cache.Delete(ctx, failuresKey(userID))
}
