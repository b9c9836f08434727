/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package periodicjobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/anicards-project/anicards/pkg/cards"
	"github.com/anicards-project/anicards/pkg/common/structs"
	"github.com/anicards-project/anicards/pkg/logger"
	"github.com/anicards-project/anicards/pkg/store"
)

const (
	// CacheWarmJobName is the unique identifier for the warm job.
	CacheWarmJobName = "anicards_cache_warm"

	// TopN bounds for the popularity query.
	MinWarmTopN     = 10
	MaxWarmTopN     = 100
	DefaultWarmTopN = 100
)

// ClampTopN forces n into the supported popularity window. Non-positive
// values select the default.
func ClampTopN(n int64) int64 {
	switch {
	case n <= 0:
		return DefaultWarmTopN
	case n < MinWarmTopN:
		return MinWarmTopN
	case n > MaxWarmTopN:
		return MaxWarmTopN
	}
	return n
}

// CacheWarmJob pre-renders cards for the most requested users so hot
// artifacts are already cached when traffic arrives.
type CacheWarmJob struct {
	store *store.Store
	cards *cards.Service
}

// NewCacheWarmJob creates a warm job over the given store and card
// service.
func NewCacheWarmJob(dataStore *store.Store, cardService *cards.Service) *CacheWarmJob {
	return &CacheWarmJob{
		store: dataStore,
		cards: cardService,
	}
}

// GetName returns the unique name identifier for this job.
func (j *CacheWarmJob) GetName() string {
	return CacheWarmJobName
}

// Run executes one warm cycle: query the popularity index for the top n
// users, then warm the users x cardTypes product. It returns the warm
// stats and how many users were selected. No recorded popularity yet is
// not an error; it short-circuits with zero stats.
func (j *CacheWarmJob) Run(ctx context.Context, topN int64, cardTypes []string) (structs.WarmStats, int, error) {
	ctx = logger.WithRequestId(ctx, uuid.New().String())
	log := logger.Logger(ctx).WithFields(logrus.Fields{
		"job": CacheWarmJobName,
	})

	topN = ClampTopN(topN)
	if len(cardTypes) == 0 {
		cardTypes = structs.DefaultCardTypes
	}

	log.WithFields(logrus.Fields{
		"topN":      topN,
		"cardTypes": cardTypes,
	}).Info("Starting cache warm cycle")

	userIDs, err := j.store.Popularity.TopN(ctx, topN)
	if err != nil {
		log.WithError(err).Error("Failed to query popularity index")
		return structs.WarmStats{}, 0, fmt.Errorf("failed to query popularity index: %w", err)
	}

	if len(userIDs) == 0 {
		log.Info("No users to warm")
		return structs.WarmStats{}, 0, nil
	}

	stats := j.cards.Warm(ctx, userIDs, cardTypes)

	log.WithFields(logrus.Fields{
		"topUsers":  len(userIDs),
		"attempted": stats.AttemptedCount,
		"succeeded": stats.SuccessCount,
		"failed":    stats.FailureCount,
	}).Info("Cache warm cycle completed")

	return stats, len(userIDs), nil
}
