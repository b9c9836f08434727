package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anicards-project/anicards/pkg/cache"
	"github.com/anicards-project/anicards/pkg/common/structs"
)

// RecordStore persists a user's record as one key per part.
type RecordStore struct {
	cache cache.Cache
}

func newRecordStore(cache cache.Cache) *RecordStore {
	return &RecordStore{cache: cache}
}

// WriteParts writes each named part under user:{id}:{part}. There is no
// multi-key transaction: a crash mid-write may leave a mix of new and
// stale parts, which Reconstruct tolerates. Every part is attempted even
// when an earlier one fails.
func (r *RecordStore) WriteParts(ctx context.Context, userID int64, parts map[string]interface{}) error {
	var errs []error
	for _, part := range structs.PartNames {
		value, ok := parts[part]
		if !ok {
			continue
		}
		payload, err := json.Marshal(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to marshal part %q: %w", part, err))
			continue
		}
		if err := r.cache.Set(ctx, recordKey(userID, part), string(payload), 0); err != nil {
			errs = append(errs, fmt.Errorf("failed to write part %q: %w", part, err))
		}
	}
	return errors.Join(errs...)
}

// ReadParts fetches only the requested parts in a single round trip.
func (r *RecordStore) ReadParts(ctx context.Context, userID int64, parts []string) (map[string]json.RawMessage, error) {
	keys := make([]string, 0, len(parts))
	for _, part := range parts {
		keys = append(keys, recordKey(userID, part))
	}

	values, err := r.cache.MGet(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("failed to read parts for user %d: %w", userID, err)
	}

	result := make(map[string]json.RawMessage, len(values))
	for _, part := range parts {
		if raw, found := values[recordKey(userID, part)]; found {
			result[part] = json.RawMessage(raw)
		}
	}
	return result, nil
}

// Reconstruct assembles the logical user record from all parts. Only a
// missing meta part makes the record "not found"; every other absent
// part is left nil so callers see an empty substructure.
func (r *RecordStore) Reconstruct(ctx context.Context, userID int64) (*structs.UserRecord, error) {
	parts, err := r.ReadParts(ctx, userID, structs.PartNames)
	if err != nil {
		return nil, err
	}
	if _, found := parts[structs.PartMeta]; !found {
		return nil, ErrUserNotFound
	}

	record := &structs.UserRecord{UserID: userID}
	for part, raw := range parts {
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		if err := unmarshalPart(record, part, raw); err != nil {
			return nil, fmt.Errorf("failed to decode part %q for user %d: %w", part, userID, err)
		}
	}
	return record, nil
}

func unmarshalPart(record *structs.UserRecord, part string, raw json.RawMessage) error {
	switch part {
	case structs.PartMeta:
		record.Meta = &structs.MetaPart{}
		return json.Unmarshal(raw, record.Meta)
	case structs.PartStats:
		record.Stats = &structs.StatsPart{}
		return json.Unmarshal(raw, record.Stats)
	case structs.PartFavourites:
		record.Favourites = &structs.FavouritesPart{}
		return json.Unmarshal(raw, record.Favourites)
	case structs.PartStatistics:
		record.Statistics = &structs.StatisticsPart{}
		return json.Unmarshal(raw, record.Statistics)
	case structs.PartPages:
		record.Pages = &structs.PagesPart{}
		return json.Unmarshal(raw, record.Pages)
	case structs.PartPlanning:
		record.Planning = &structs.PlanningPart{}
		return json.Unmarshal(raw, record.Planning)
	case structs.PartRewatched:
		record.Rewatched = &structs.RewatchedPart{}
		return json.Unmarshal(raw, record.Rewatched)
	case structs.PartCompleted:
		record.Completed = &structs.CompletedPart{}
		return json.Unmarshal(raw, record.Completed)
	}
	// Unknown part names are skipped rather than failing the record.
	return nil
}

// Exists reports whether the record's meta part is present.
func (r *RecordStore) Exists(ctx context.Context, userID int64) (bool, error) {
	_, err := r.cache.Get(ctx, recordKey(userID, structs.PartMeta))
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes every part key for the user.
func (r *RecordStore) Delete(ctx context.Context, userID int64) error {
	keys := make([]string, 0, len(structs.PartNames))
	for _, part := range structs.PartNames {
		keys = append(keys, recordKey(userID, part))
	}
	return r.cache.Delete(ctx, keys...)
}
