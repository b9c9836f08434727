package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anicards-project/anicards/pkg/cache"
	"github.com/anicards-project/anicards/pkg/common/structs"
)

// CardConfigStore persists the per-user card configuration under
// cards:{id}. The config is derived data and is purged with the record.
type CardConfigStore struct {
	cache cache.Cache
}

func newCardConfigStore(cache cache.Cache) *CardConfigStore {
	return &CardConfigStore{cache: cache}
}

// Get returns the stored config, or nil when none exists.
func (c *CardConfigStore) Get(ctx context.Context, userID int64) (*structs.CardConfig, error) {
	val, err := c.cache.Get(ctx, cardConfigKey(userID))
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}

	cfg := &structs.CardConfig{}
	if err := json.Unmarshal([]byte(val), cfg); err != nil {
		return nil, fmt.Errorf("corrupt card config for user %d: %w", userID, err)
	}
	return cfg, nil
}

// Set stores the config for userID.
func (c *CardConfigStore) Set(ctx context.Context, userID int64, cfg *structs.CardConfig) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal card config: %w", err)
	}
	return c.cache.Set(ctx, cardConfigKey(userID), string(payload), 0)
}

// Delete removes the config entry.
func (c *CardConfigStore) Delete(ctx context.Context, userID int64) error {
	return c.cache.Delete(ctx, cardConfigKey(userID))
}
