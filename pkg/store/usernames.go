package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/anicards-project/anicards/pkg/cache"
)

// UsernameStore maintains the username:{normalized} -> userId index.
type UsernameStore struct {
	cache cache.Cache
}

func newUsernameStore(cache cache.Cache) *UsernameStore {
	return &UsernameStore{cache: cache}
}

// Resolve looks up the normalized username in the secondary index.
func (u *UsernameStore) Resolve(ctx context.Context, username string) (int64, error) {
	normalized := NormalizeUsername(username)
	if normalized == "" {
		return 0, ErrUserNotFound
	}

	val, err := u.cache.Get(ctx, usernameKey(normalized))
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to resolve username %q: %w", normalized, err)
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt username index entry %q: %w", normalized, err)
	}
	return userID, nil
}

// Set maps the normalized username to userID.
func (u *UsernameStore) Set(ctx context.Context, username string, userID int64) error {
	normalized := NormalizeUsername(username)
	if normalized == "" {
		return fmt.Errorf("cannot index empty username")
	}
	return u.cache.Set(ctx, usernameKey(normalized), strconv.FormatInt(userID, 10), 0)
}

// Delete removes the index entry for username.
func (u *UsernameStore) Delete(ctx context.Context, username string) error {
	return u.cache.Delete(ctx, usernameKey(NormalizeUsername(username)))
}

// All enumerates every index entry. The refresh cycle uses this as its
// known-user scan; a failure here is fatal for the whole cycle.
func (u *UsernameStore) All(ctx context.Context) (map[string]int64, error) {
	keys, err := u.cache.Keys(ctx, "username:*")
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate username index: %w", err)
	}
	if len(keys) == 0 {
		return map[string]int64{}, nil
	}

	values, err := u.cache.MGet(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("failed to read username index: %w", err)
	}

	users := make(map[string]int64, len(values))
	for key, val := range values {
		userID, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			// Corrupt entries are skipped; they would fail every
			// cycle forever if they aborted the scan.
			continue
		}
		users[strings.TrimPrefix(key, "username:")] = userID
	}
	return users, nil
}
