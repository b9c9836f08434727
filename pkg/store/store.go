package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anicards-project/anicards/pkg/cache"
	"github.com/anicards-project/anicards/pkg/common/structs"
)

// ErrUserNotFound is returned when a record's meta part or a username
// index entry is absent.
var ErrUserNotFound = errors.New("store: user not found")

// Store provides a high-level interface for managing user records,
// failure counters, card configuration and popularity data in cache.
// It encapsulates key prefixing and JSON serialization.
// NOTE: This store does NOT handle locking beyond what the cache driver
// guarantees - callers are responsible for cross-key synchronization.
type Store struct {
	Records     RecordStoreInterface
	Usernames   UsernameStoreInterface
	Failures    FailureStoreInterface
	CardConfigs CardConfigStoreInterface
	Popularity  PopularityStoreInterface

	cache cache.Cache
}

// New creates a new Store instance with all sub-stores initialized
func New(cache cache.Cache) *Store {
	return &Store{
		Records:     newRecordStore(cache),
		Usernames:   newUsernameStore(cache),
		Failures:    newFailureStore(cache),
		CardConfigs: newCardConfigStore(cache),
		Popularity:  newPopularityStore(cache),
		cache:       cache,
	}
}

// PurgeUser removes every trace of a user: all record parts, the failure
// counter, the derived card configuration and the username index entry.
// knownUsername is the caller's index entry for the user; the meta part
// is consulted too so a renamed or partially written record drops both
// index keys. Idempotent - keys that never existed are ignored.
func (s *Store) PurgeUser(ctx context.Context, userID int64, knownUsername string) error {
	usernames := make(map[string]struct{})
	if knownUsername != "" {
		usernames[NormalizeUsername(knownUsername)] = struct{}{}
	}
	record, err := s.Records.Reconstruct(ctx, userID)
	if err == nil && record.Meta != nil && record.Meta.Username != "" {
		usernames[NormalizeUsername(record.Meta.Username)] = struct{}{}
	} else if err != nil && !errors.Is(err, ErrUserNotFound) {
		return fmt.Errorf("failed to read record before purge: %w", err)
	}

	keys := make([]string, 0, len(structs.PartNames)+2+len(usernames))
	for _, part := range structs.PartNames {
		keys = append(keys, recordKey(userID, part))
	}
	keys = append(keys, failuresKey(userID), cardConfigKey(userID))
	for normalized := range usernames {
		keys = append(keys, usernameKey(normalized))
	}

	if err := s.cache.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to purge user %d: %w", userID, err)
	}
	return nil
}

// NormalizeUsername applies the canonical username normalization used by
// the secondary index: trim surrounding whitespace and lowercase.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func recordKey(userID int64, part string) string {
	return fmt.Sprintf("user:%d:%s", userID, part)
}

func usernameKey(normalized string) string {
	return fmt.Sprintf("username:%s", normalized)
}

func failuresKey(userID int64) string {
	return fmt.Sprintf("failures:%d", userID)
}

func cardConfigKey(userID int64) string {
	return fmt.Sprintf("cards:%d", userID)
}

// popularityKey is the sorted set holding request counts per userId.
const popularityKey = "popular:users"

// Compile-time interface compliance checks
var (
	_ RecordStoreInterface     = (*RecordStore)(nil)
	_ UsernameStoreInterface   = (*UsernameStore)(nil)
	_ FailureStoreInterface    = (*FailureStore)(nil)
	_ CardConfigStoreInterface = (*CardConfigStore)(nil)
	_ PopularityStoreInterface = (*PopularityStore)(nil)
)
