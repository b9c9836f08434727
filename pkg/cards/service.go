package cards

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anicards-project/anicards/pkg/common/structs"
	"github.com/anicards-project/anicards/pkg/logger"
	"github.com/anicards-project/anicards/pkg/render"
	"github.com/anicards-project/anicards/pkg/store"
)

const defaultWarmConcurrency = 8

// Service serves rendered cards from the artifact cache and pre-warms it
// for popular users. Cold entries populate lazily on serve; hot entries
// are kept fresh by the warm cycle.
type Service struct {
	store    *store.Store
	cache    *ArtifactCache
	renderer render.Renderer

	warmConcurrency int
	renderTimeout   time.Duration
}

// NewService wires the serving and warming flows together.
func NewService(dataStore *store.Store, cache *ArtifactCache, renderer render.Renderer,
	warmConcurrency int, renderTimeout time.Duration) *Service {
	if warmConcurrency <= 0 {
		warmConcurrency = defaultWarmConcurrency
	}
	return &Service{
		store:           dataStore,
		cache:           cache,
		renderer:        renderer,
		warmConcurrency: warmConcurrency,
		renderTimeout:   renderTimeout,
	}
}

// Serve returns the cached artifact for the key, rendering and inserting
// it when absent or expired. Within the TTL window two calls with the
// same key return the same bytes.
func (s *Service) Serve(ctx context.Context, userID int64, cardType, variant, fingerprint string) ([]byte, error) {
	key := Key{UserID: userID, CardType: cardType, Variant: variant, Fingerprint: fingerprint}
	if artifact, found := s.cache.Get(key); found {
		return artifact, nil
	}

	artifact, err := s.renderCard(ctx, key)
	if err != nil {
		return nil, err
	}

	s.cache.Put(key, artifact)
	return artifact, nil
}

// Warm pre-renders the Cartesian product of userIds and cardTypes with
// bounded concurrency. Individual render failures never abort the batch;
// the returned stats cover every combination. An empty user list yields
// zero stats without contacting the renderer.
func (s *Service) Warm(ctx context.Context, userIDs []int64, cardTypes []string) structs.WarmStats {
	stats := structs.WarmStats{}
	if len(userIDs) == 0 || len(cardTypes) == 0 {
		return stats
	}
	stats.AttemptedCount = len(userIDs) * len(cardTypes)

	log := logger.Logger(ctx).WithField("component", "cardwarmer")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.warmConcurrency)

	for _, userID := range userIDs {
		g.Go(func() error {
			succeeded, failed := s.warmUser(gctx, userID, cardTypes)
			mu.Lock()
			stats.SuccessCount += succeeded
			stats.FailureCount += failed
			mu.Unlock()
			return nil
		})
	}
	// Workers only report per-combination outcomes, never errors.
	_ = g.Wait()

	log.WithField("stats", stats).Info("cache warm batch settled")
	return stats
}

// warmUser renders every requested card type for one user. The record
// and card config are read once; a failure to read them fails all of the
// user's combinations.
func (s *Service) warmUser(ctx context.Context, userID int64, cardTypes []string) (succeeded, failed int) {
	log := logger.Logger(ctx).WithField("userId", userID)

	cfg, err := s.store.CardConfigs.Get(ctx, userID)
	if err != nil {
		log.WithError(err).Warn("failed to read card config, using defaults")
		cfg = nil
	}
	variant := render.DefaultVariant
	if cfg != nil && cfg.Variant != "" {
		variant = cfg.Variant
	}
	fingerprint := render.ConfigFingerprint(cfg)

	record, err := s.store.Records.Reconstruct(ctx, userID)
	if err != nil {
		log.WithError(err).Warn("failed to reconstruct record for warm")
		return 0, len(cardTypes)
	}

	for _, cardType := range cardTypes {
		key := Key{UserID: userID, CardType: cardType, Variant: variant, Fingerprint: fingerprint}
		if s.cache.Contains(key) {
			succeeded++
			continue
		}

		artifact, err := s.renderWithTimeout(ctx, record, key)
		if err != nil {
			log.WithError(err).WithField("cardType", cardType).Warn("render failed during warm")
			failed++
			continue
		}

		s.cache.Put(key, artifact)
		succeeded++
	}
	return succeeded, failed
}

// renderCard reconstructs the record and renders one card, used by the
// lazy serve path.
func (s *Service) renderCard(ctx context.Context, key Key) ([]byte, error) {
	record, err := s.store.Records.Reconstruct(ctx, key.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load record for user %d: %w", key.UserID, err)
	}
	return s.renderWithTimeout(ctx, record, key)
}

func (s *Service) renderWithTimeout(ctx context.Context, record *structs.UserRecord, key Key) ([]byte, error) {
	if s.renderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.renderTimeout)
		defer cancel()
	}
	return s.renderer.Render(ctx, record, key.CardType, key.Variant, key.Fingerprint)
}
