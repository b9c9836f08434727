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

// The anicards binary wires configuration, cache driver, store, upstream
// client, card service and HTTP server together explicitly. There are no
// package-level singletons; every dependency flows through constructors.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anicards-project/anicards/internal/controller/periodicjobs"
	"github.com/anicards-project/anicards/internal/server"
	"github.com/anicards-project/anicards/pkg/cache"
	"github.com/anicards-project/anicards/pkg/cache/inmemory"
	rediscache "github.com/anicards-project/anicards/pkg/cache/redis"
	"github.com/anicards-project/anicards/pkg/cards"
	"github.com/anicards-project/anicards/pkg/clients/anilist"
	"github.com/anicards-project/anicards/pkg/config"
	"github.com/anicards-project/anicards/pkg/logger"
	"github.com/anicards-project/anicards/pkg/render"
	"github.com/anicards-project/anicards/pkg/store"
)

func main() {
	if err := run(); err != nil {
		logger.Logger(context.Background()).WithError(err).Fatal("anicards exited with error")
	}
}

func run() error {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "default"
	}

	cfg, err := config.LoadConfig(env)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Logger(context.Background()).WithField("env", env)
	log.Info("Starting anicards")

	cacheDriver, err := newCacheDriver(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize cache driver: %w", err)
	}
	defer func() {
		if err := cacheDriver.Disconnect(); err != nil {
			log.WithError(err).Warn("Failed to disconnect cache driver")
		}
	}()

	dataStore := store.New(cacheDriver)

	client := anilist.NewClient(&anilist.Config{
		URL:           cfg.AniList.URL,
		Timeout:       cfg.AniList.Timeout,
		RetryCount:    cfg.AniList.RetryCount,
		RetryInterval: cfg.AniList.RetryInterval,
	})

	artifactCache := cards.NewArtifactCache(cfg.RenderCache.MaxEntries, cfg.RenderCache.TTL)
	renderer := render.NewSVGRenderer()
	cardService := cards.NewService(dataStore, artifactCache, renderer,
		cfg.Warm.Concurrency, cfg.Warm.RenderTimeout)

	refreshJob := periodicjobs.NewStatsRefreshJob(dataStore, client,
		cfg.Refresh.Concurrency, cfg.Refresh.UserTimeout)
	warmJob := periodicjobs.NewCacheWarmJob(dataStore, cardService)

	srv := server.New(cfg, dataStore, client, cardService, refreshJob, warmJob)

	httpServer := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.App.Port).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("Shutdown complete")
	return nil
}

// newCacheDriver selects the persistence driver from configuration.
func newCacheDriver(cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Driver {
	case "redis":
		return rediscache.NewCache(&rediscache.Config{
			Host:     cfg.Cache.Redis.Host,
			Port:     cfg.Cache.Redis.Port,
			Database: cfg.Cache.Redis.Database,
			Username: cfg.Cache.Redis.Username,
			Password: cfg.Cache.Redis.Password,
		})
	case "memory", "":
		return inmemory.NewCache(&inmemory.Config{
			DefaultExpiration: cfg.Cache.InMemory.DefaultExpiration,
			CleanupInterval:   cfg.Cache.InMemory.CleanupInterval,
		})
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Cache.Driver)
	}
}
