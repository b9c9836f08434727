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

// Package periodicjobs holds the externally triggered maintenance cycles:
// the stats refresh walks every known user against the upstream API, and
// the cache warm pre-renders cards for the most requested users. Neither
// job schedules itself; an external timer hits the trigger endpoints.
package periodicjobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/anicards-project/anicards/pkg/clients/anilist"
	"github.com/anicards-project/anicards/pkg/common/structs"
	"github.com/anicards-project/anicards/pkg/logger"
	"github.com/anicards-project/anicards/pkg/store"
)

const (
	// StatsRefreshJobName is the unique identifier for the refresh job.
	StatsRefreshJobName = "anicards_stats_refresh"

	// EvictionThreshold is the number of consecutive upstream
	// not-found failures after which a user's data is purged.
	EvictionThreshold = 3

	defaultRefreshConcurrency = 4
)

// StatsRefreshJob refreshes the cached statistics for every known user.
//
// For each user the cycle fetches a fresh snapshot from the upstream API
// and overwrites the stored record. Users whose upstream identity has
// permanently disappeared accumulate failures and are purged once they
// hit the eviction threshold; transient upstream trouble is retried next
// cycle without counting toward eviction.
type StatsRefreshJob struct {

	// store provides access to records, counters and indexes with
	// prefixed keys.
	store *store.Store

	// client fetches user statistics from the upstream API.
	client anilist.Client

	// concurrency caps simultaneous upstream calls to respect the
	// upstream rate limit.
	concurrency int

	// userTimeout bounds the fetch-and-persist work for one user.
	userTimeout time.Duration
}

// NewStatsRefreshJob creates a refresh job over the given store and
// upstream client.
func NewStatsRefreshJob(dataStore *store.Store, client anilist.Client,
	concurrency int, userTimeout time.Duration) *StatsRefreshJob {
	if concurrency <= 0 {
		concurrency = defaultRefreshConcurrency
	}
	return &StatsRefreshJob{
		store:       dataStore,
		client:      client,
		concurrency: concurrency,
		userTimeout: userTimeout,
	}
}

// GetName returns the unique name identifier for this job.
func (j *StatsRefreshJob) GetName() string {
	return StatsRefreshJobName
}

// Run executes one full refresh cycle and returns its summary.
//
// The known-user set is enumerated once up front; a failure there is
// fatal for the whole cycle and no per-user work is attempted. Per-user
// failures are contained: the batch always settles and the summary
// reflects partial completion.
func (j *StatsRefreshJob) Run(ctx context.Context) (*structs.RefreshSummary, error) {
	ctx = logger.WithRequestId(ctx, uuid.New().String())
	// The entry stays a local so overlapping trigger requests never
	// share mutable job state.
	log := logger.Logger(ctx).WithFields(logrus.Fields{
		"job": StatsRefreshJobName,
	})
	log.Info("Starting stats refresh cycle")

	users, err := j.store.Usernames.All(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to enumerate known users")
		return nil, fmt.Errorf("failed to enumerate known users: %w", err)
	}

	log.WithField("count", len(users)).Info("Found users to refresh")

	summary := j.processUsers(ctx, log, users)

	log.WithFields(logrus.Fields{
		"attempted": summary.Attempted,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"removed":   summary.Removed,
	}).Info("Stats refresh cycle completed")

	return summary, nil
}

type refreshOutcome int

const (
	refreshSucceeded refreshOutcome = iota
	refreshFailed
	userRemoved
)

// processUsers fans the user set out over a bounded worker pool and
// aggregates per-user outcomes into the cycle summary.
func (j *StatsRefreshJob) processUsers(ctx context.Context, log *logrus.Entry, users map[string]int64) *structs.RefreshSummary {
	summary := &structs.RefreshSummary{Attempted: len(users)}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)

	for username, userID := range users {
		g.Go(func() error {
			outcome := j.refreshUser(gctx, log, username, userID)
			mu.Lock()
			switch outcome {
			case refreshSucceeded:
				summary.Succeeded++
			case userRemoved:
				// A removed user is a failed refresh too; Removed is
				// the subset of failures that ended in eviction.
				summary.Failed++
				summary.Removed++
			default:
				summary.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; failures are outcomes.
	_ = g.Wait()

	return summary
}

// refreshUser runs the per-user state machine:
// Pending -> Fetching -> {Success | TransientFailure | PermanentFailure}.
func (j *StatsRefreshJob) refreshUser(ctx context.Context, log *logrus.Entry, indexedName string, userID int64) refreshOutcome {
	if j.userTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.userTimeout)
		defer cancel()
	}

	log = log.WithFields(logrus.Fields{
		"userId":   userID,
		"username": indexedName,
	})

	// Fetch with the last-known username from the stored record; the
	// normalized index entry is the fallback for records whose meta
	// was lost in a partial write.
	username := j.lastKnownUsername(ctx, userID, indexedName)

	snapshot, err := j.client.FetchUserStats(ctx, username)
	if err == nil {
		return j.handleSuccess(ctx, log, userID, snapshot)
	}

	if errors.Is(err, anilist.ErrUserNotFound) {
		return j.handleNotFound(ctx, log, userID, indexedName)
	}

	// Anything other than the canonical not-found signal is transient:
	// no counter change, no eviction, retried next cycle.
	log.WithError(err).Warn("Transient upstream failure, will retry next cycle")
	return refreshFailed
}

func (j *StatsRefreshJob) lastKnownUsername(ctx context.Context, userID int64, fallback string) string {
	record, err := j.store.Records.Reconstruct(ctx, userID)
	if err == nil && record.Meta != nil && record.Meta.Username != "" {
		return record.Meta.Username
	}
	return fallback
}

// handleSuccess persists the fresh snapshot and clears the failure
// counter. A store failure counts the user as failed but never aborts
// the cycle.
func (j *StatsRefreshJob) handleSuccess(ctx context.Context, log *logrus.Entry,
	userID int64, snapshot *structs.UserSnapshot) refreshOutcome {
	if err := j.store.Records.WriteParts(ctx, userID, snapshot.Parts()); err != nil {
		log.WithError(err).Error("Failed to persist refreshed record")
		return refreshFailed
	}

	if err := j.store.Failures.Clear(ctx, userID); err != nil {
		// The record is fresh; a dangling counter only delays
		// eviction by resetting on the next successful cycle.
		log.WithError(err).Warn("Failed to clear failure counter")
	}

	log.Debug("Refreshed user record")
	return refreshSucceeded
}

// handleNotFound increments the consecutive-failure counter and purges
// the user once the eviction threshold is reached. The enumerated name
// rides along so the index entry is dropped even when the record's meta
// part is already gone.
func (j *StatsRefreshJob) handleNotFound(ctx context.Context, log *logrus.Entry, userID int64, indexedName string) refreshOutcome {
	count, err := j.store.Failures.Increment(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Failed to increment failure counter")
		return refreshFailed
	}

	if count < EvictionThreshold {
		log.WithField("failures", count).Info("User not found upstream, keeping stale record")
		return refreshFailed
	}

	if err := j.store.PurgeUser(ctx, userID, indexedName); err != nil {
		log.WithError(err).Error("Failed to purge evicted user")
		return refreshFailed
	}

	log.WithField("failures", count).Info("User purged after repeated upstream not-found")
	return userRemoved
}
