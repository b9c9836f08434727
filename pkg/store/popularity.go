package store

import (
	"context"
	"strconv"

	"github.com/anicards-project/anicards/pkg/cache"
)

// PopularityStore counts rendering requests per user in the
// popular:users sorted set. Counts only go up; no decay is applied.
type PopularityStore struct {
	cache cache.Cache
}

func newPopularityStore(cache cache.Cache) *PopularityStore {
	return &PopularityStore{cache: cache}
}

// RecordRequest increments the request counter for userID. Callers treat
// this as fire-and-forget; a failure must never fail the serving request.
func (p *PopularityStore) RecordRequest(ctx context.Context, userID int64) error {
	return p.cache.SortedSetIncr(ctx, popularityKey, strconv.FormatInt(userID, 10))
}

// TopN returns up to n userIds by descending request count. Members that
// do not parse as ids are skipped.
func (p *PopularityStore) TopN(ctx context.Context, n int64) ([]int64, error) {
	members, err := p.cache.SortedSetTopN(ctx, popularityKey, n)
	if err != nil {
		return nil, err
	}

	userIDs := make([]int64, 0, len(members))
	for _, member := range members {
		userID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		userIDs = append(userIDs, userID)
	}
	return userIDs, nil
}
