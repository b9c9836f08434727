package store

import (
	"context"
	"encoding/json"

	"github.com/anicards-project/anicards/pkg/common/structs"
)

// RecordStoreInterface defines operations for the sharded user record.
// A record exists iff its meta part is present; every other part is
// optional and reconstructs as an empty substructure when absent.
type RecordStoreInterface interface {
	// WriteParts writes each named part under its own key. Parts
	// succeed or fail independently; the returned error aggregates
	// per-part failures after every part has been attempted.
	WriteParts(ctx context.Context, userID int64, parts map[string]interface{}) error

	// ReadParts fetches only the requested parts. Absent parts are
	// omitted from the result map.
	ReadParts(ctx context.Context, userID int64, parts []string) (map[string]json.RawMessage, error)

	// Reconstruct reads all parts and assembles the logical record.
	// Returns ErrUserNotFound only when the meta part is absent;
	// missing optional parts are left nil.
	Reconstruct(ctx context.Context, userID int64) (*structs.UserRecord, error)

	// Exists checks whether the record's meta part is present.
	Exists(ctx context.Context, userID int64) (bool, error)

	// Delete removes every part key. Safe to call on absent records.
	Delete(ctx context.Context, userID int64) error
}

// UsernameStoreInterface maintains the normalized username -> userId
// secondary index.
type UsernameStoreInterface interface {
	// Resolve normalizes (trim + lowercase) and looks up the index.
	// Returns ErrUserNotFound when the username is unknown.
	Resolve(ctx context.Context, username string) (int64, error)

	// Set maps the normalized username to userID.
	Set(ctx context.Context, username string, userID int64) error

	// Delete removes the index entry. Missing entries are ignored.
	Delete(ctx context.Context, username string) error

	// All returns every indexed entry as normalized username -> userId.
	// This is the bounded scan the refresh cycle enumerates.
	All(ctx context.Context) (map[string]int64, error)
}

// FailureStoreInterface tracks consecutive permanent refresh failures
// per user, stored independently from the record itself.
type FailureStoreInterface interface {
	// Increment atomically adds 1 and returns the new count.
	Increment(ctx context.Context, userID int64) (int64, error)

	// Get returns the current count, 0 when no failures are recorded.
	Get(ctx context.Context, userID int64) (int64, error)

	// Clear removes the counter key entirely. A successful refresh
	// clears rather than writing 0 to keep storage minimal.
	Clear(ctx context.Context, userID int64) error
}

// CardConfigStoreInterface persists the per-user card configuration
// derived at generation time.
type CardConfigStoreInterface interface {
	// Get returns the stored config, or nil when none exists.
	Get(ctx context.Context, userID int64) (*structs.CardConfig, error)

	// Set stores the config for userID.
	Set(ctx context.Context, userID int64, cfg *structs.CardConfig) error

	// Delete removes the config. Missing entries are ignored.
	Delete(ctx context.Context, userID int64) error
}

// PopularityStoreInterface counts rendering requests per user and
// exposes the most requested users.
type PopularityStoreInterface interface {
	// RecordRequest increments the request counter for userID.
	RecordRequest(ctx context.Context, userID int64) error

	// TopN returns up to n userIds by descending request count.
	// Returns an empty result when nothing has been recorded.
	TopN(ctx context.Context, n int64) ([]int64, error)
}
